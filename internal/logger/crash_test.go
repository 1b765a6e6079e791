package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrashContext_Setters(t *testing.T) {
	globalContext = &CrashContext{}

	SetBasePath("/tmp/test-ideaflow")
	SetVersion("1.0.0-test")
	SetCommand("branch create")
	SetTarget(" idea-1234abcd ", "br-5678abcd")

	globalContext.mu.RLock()
	defer globalContext.mu.RUnlock()
	assert.Equal(t, "/tmp/test-ideaflow", globalContext.basePath)
	assert.Equal(t, "1.0.0-test", globalContext.version)
	assert.Equal(t, "branch create", globalContext.command)
	assert.Equal(t, "idea-1234abcd", globalContext.ideaID)
	assert.Equal(t, "br-5678abcd", globalContext.branchID)
}

func TestCreateCrashLog(t *testing.T) {
	globalContext = &CrashContext{version: "1.0.0", command: "snapshot restore", ideaID: "idea-1"}

	log := createCrashLog("boom")
	assert.Equal(t, "boom", log.PanicValue)
	assert.Equal(t, "1.0.0", log.Version)
	assert.Equal(t, "snapshot restore", log.Command)
	assert.Equal(t, "idea-1", log.IdeaID)
	assert.NotEmpty(t, log.StackTrace)
	assert.NotEmpty(t, log.GoVersion)
}

func TestFormatCrashLog(t *testing.T) {
	formatted := formatCrashLog(CrashLog{
		Timestamp:  time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Version:    "1.0.0",
		Command:    "branch switch",
		IdeaID:     "idea-1",
		BranchID:   "br-2",
		PanicValue: "boom",
		StackTrace: "goroutine 1 [running]:\nmain.main()",
		GoVersion:  "go1.24.6",
		OS:         "linux",
		Arch:       "amd64",
	})

	for _, want := range []string{
		"IDEAFLOW CRASH LOG",
		"Timestamp: 2025-01-01T12:00:00Z",
		"Command:   branch switch",
		"Idea:      idea-1",
		"Branch:    br-2",
		"OS/Arch:   linux/amd64",
		"PANIC VALUE",
		"boom",
		"goroutine 1 [running]",
	} {
		assert.Contains(t, formatted, want)
	}
}

func TestFormatCrashLog_OmitsEmptyTarget(t *testing.T) {
	formatted := formatCrashLog(CrashLog{Timestamp: time.Now(), PanicValue: "boom"})
	assert.NotContains(t, formatted, "Idea:")
	assert.NotContains(t, formatted, "Branch:")
}

func TestWriteCrashLog(t *testing.T) {
	basePath := filepath.Join(t.TempDir(), ".ideaflow")
	globalContext = &CrashContext{basePath: basePath}

	require.NoError(t, writeCrashLog(CrashLog{Timestamp: time.Now(), PanicValue: "test panic"}))

	logs, err := ListCrashLogs()
	require.NoError(t, err)
	require.Len(t, logs, 1)

	content, err := ReadCrashLog(logs[0])
	require.NoError(t, err)
	assert.Contains(t, content, "test panic")
}

func TestCleanOldCrashLogs(t *testing.T) {
	basePath := filepath.Join(t.TempDir(), ".ideaflow")
	crashDir := filepath.Join(basePath, CrashLogDir)
	require.NoError(t, os.MkdirAll(crashDir, 0755))
	globalContext = &CrashContext{basePath: basePath}

	for i := range MaxCrashLogs + 5 {
		name := filepath.Join(crashDir, "crash_20250101_12"+twoDigits(i)+"00.log")
		require.NoError(t, os.WriteFile(name, []byte("test"), 0644))
	}

	require.NoError(t, cleanOldCrashLogs(crashDir))

	logs, err := ListCrashLogs()
	require.NoError(t, err)
	assert.Len(t, logs, MaxCrashLogs-1, "room is left for the log about to be written")
	assert.True(t, strings.HasSuffix(logs[len(logs)-1], "crash_20250101_121400.log"), "newest logs survive")
}

func TestCrashLogPaths(t *testing.T) {
	globalContext = &CrashContext{basePath: "/tmp/test"}
	assert.Equal(t, "/tmp/test/crash_logs/crash_20250115_143045.log",
		getCrashLogPath(time.Date(2025, 1, 15, 14, 30, 45, 0, time.UTC)))

	globalContext = &CrashContext{}
	assert.Equal(t, ".ideaflow/crash_logs", getCrashLogDir())
}

func twoDigits(i int) string {
	return string(rune('0'+i/10)) + string(rune('0'+i%10))
}

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// CrashLogDir is the directory for crash logs relative to the data dir.
	CrashLogDir = "crash_logs"

	// MaxCrashLogs is the maximum number of crash logs to keep.
	MaxCrashLogs = 10
)

// CrashContext records what the process was doing, for crash reports.
type CrashContext struct {
	mu       sync.RWMutex
	command  string
	version  string
	basePath string
	ideaID   string
	branchID string
	logger   *zap.Logger
}

var globalContext = &CrashContext{}

// SetBasePath sets the directory crash logs are written under.
func SetBasePath(path string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.basePath = path
}

// SetVersion sets the application version for crash logs.
func SetVersion(version string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.version = version
}

// SetCommand sets the command being executed.
func SetCommand(cmd string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.command = cmd
}

// SetTarget records the idea and branch the current operation works on.
// Either may be empty.
func SetTarget(ideaID, branchID string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.ideaID = strings.TrimSpace(ideaID)
	globalContext.branchID = strings.TrimSpace(branchID)
}

// SetCrashLogger makes HandlePanic also report through l.
func SetCrashLogger(l *zap.Logger) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.logger = l
}

// CrashLog is one crash report.
type CrashLog struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version"`
	Command    string    `json:"command"`
	IdeaID     string    `json:"idea_id,omitempty"`
	BranchID   string    `json:"branch_id,omitempty"`
	PanicValue string    `json:"panic_value"`
	StackTrace string    `json:"stack_trace"`
	GoVersion  string    `json:"go_version"`
	OS         string    `json:"os"`
	Arch       string    `json:"arch"`
}

// HandlePanic recovers from a panic, writes a crash log and exits.
// Usage: defer logger.HandlePanic()
func HandlePanic() {
	r := recover()
	if r == nil {
		return
	}

	log := createCrashLog(r)

	globalContext.mu.RLock()
	l := globalContext.logger
	globalContext.mu.RUnlock()
	if l != nil {
		l.Error("panic",
			zap.String("command", log.Command),
			zap.String("idea_id", log.IdeaID),
			zap.String("branch_id", log.BranchID),
			zap.String("panic", log.PanicValue))
		_ = l.Sync()
	}

	if err := writeCrashLog(log); err != nil {
		fmt.Fprintf(os.Stderr, "\n[CRASH] Failed to write crash log: %v\n", err)
		fmt.Fprintf(os.Stderr, "[CRASH] Panic: %v\n%s\n", r, debug.Stack())
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "\nideaflow encountered an unexpected error.\n")
	fmt.Fprintf(os.Stderr, "A crash log has been saved to:\n  %s\n\n", getCrashLogPath(log.Timestamp))
	os.Exit(1)
}

func createCrashLog(panicValue any) CrashLog {
	globalContext.mu.RLock()
	defer globalContext.mu.RUnlock()

	return CrashLog{
		Timestamp:  time.Now(),
		Version:    globalContext.version,
		Command:    globalContext.command,
		IdeaID:     globalContext.ideaID,
		BranchID:   globalContext.branchID,
		PanicValue: fmt.Sprintf("%v", panicValue),
		StackTrace: string(debug.Stack()),
		GoVersion:  runtime.Version(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
	}
}

func writeCrashLog(log CrashLog) error {
	dir := getCrashLogDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create crash log dir: %w", err)
	}

	if err := cleanOldCrashLogs(dir); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to clean old crash logs: %v\n", err)
	}

	if err := os.WriteFile(getCrashLogPath(log.Timestamp), []byte(formatCrashLog(log)), 0644); err != nil {
		return fmt.Errorf("write crash log: %w", err)
	}
	return nil
}

func getCrashLogDir() string {
	globalContext.mu.RLock()
	basePath := globalContext.basePath
	globalContext.mu.RUnlock()

	if basePath == "" {
		basePath = ".ideaflow"
	}
	return filepath.Join(basePath, CrashLogDir)
}

func getCrashLogPath(t time.Time) string {
	return filepath.Join(getCrashLogDir(), fmt.Sprintf("crash_%s.log", t.Format("20060102_150405")))
}

func formatCrashLog(log CrashLog) string {
	var sb strings.Builder
	rule := strings.Repeat("=", 80)
	thin := strings.Repeat("-", 80)

	sb.WriteString(rule + "\nIDEAFLOW CRASH LOG\n" + rule + "\n\n")
	fmt.Fprintf(&sb, "Timestamp: %s\n", log.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Version:   %s\n", log.Version)
	fmt.Fprintf(&sb, "Command:   %s\n", log.Command)
	if log.IdeaID != "" {
		fmt.Fprintf(&sb, "Idea:      %s\n", log.IdeaID)
	}
	if log.BranchID != "" {
		fmt.Fprintf(&sb, "Branch:    %s\n", log.BranchID)
	}
	fmt.Fprintf(&sb, "Go:        %s\n", log.GoVersion)
	fmt.Fprintf(&sb, "OS/Arch:   %s/%s\n", log.OS, log.Arch)

	sb.WriteString("\n" + thin + "\nPANIC VALUE\n" + thin + "\n")
	sb.WriteString(log.PanicValue + "\n")

	sb.WriteString("\n" + thin + "\nSTACK TRACE\n" + thin + "\n")
	sb.WriteString(log.StackTrace)

	sb.WriteString("\n" + rule + "\nEND OF CRASH LOG\n" + rule + "\n")
	return sb.String()
}

// cleanOldCrashLogs keeps room for one more log within MaxCrashLogs.
func cleanOldCrashLogs(dir string) error {
	logs, err := crashLogNames(dir)
	if err != nil {
		return err
	}
	if len(logs) < MaxCrashLogs {
		return nil
	}

	// Names embed the timestamp, so sorted order is oldest first.
	for _, name := range logs[:len(logs)-MaxCrashLogs+1] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("remove old crash log %s: %w", name, err)
		}
	}
	return nil
}

func crashLogNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "crash_") && strings.HasSuffix(e.Name(), ".log") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// ListCrashLogs returns the paths of all crash logs, oldest first.
func ListCrashLogs() ([]string, error) {
	dir := getCrashLogDir()
	names, err := crashLogNames(dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}

// ReadCrashLog reads a crash log file.
func ReadCrashLog(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// Package project materializes idea project folders on disk.
//
// Every branch of an idea owns one folder under the idea's project root:
//
//	<projectRoot>/<folderName>/            live project files
//	<projectRoot>/<folderName>/versions/   one v<N>/ copy per snapshot
//
// The Materializer reads such a folder into an in-memory file list, writes a
// list back, clears a folder's tracked contents and clones folders. Build
// artifacts, installed dependencies and the versions/ tree are never part of
// a file list.
package project

import (
	"errors"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// File is one tracked project file, addressed by a slash-separated path
// relative to the branch folder.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

const (
	// DefaultFolderName is the folder of the root branch, and the fallback
	// when an idea has no branch rows yet.
	DefaultFolderName = "main"

	// VersionsDir holds per-snapshot copies inside each branch folder.
	VersionsDir = "versions"

	// MaxFileSize is the largest file included in a folder scan.
	MaxFileSize = 1 << 20
)

// protectedDirs are skipped when scanning and survive ClearFolder.
var protectedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
	".next":        true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	"target":       true,
	".cache":       true,
	".turbo":       true,
	"coverage":     true,
}

// IsProtectedDir reports whether a directory name holds build output or
// installed dependencies.
func IsProtectedDir(name string) bool {
	return protectedDirs[name]
}

// VersionDirName returns the folder name used for snapshot version n.
func VersionDirName(n int) string {
	return "v" + strconv.Itoa(n)
}

// VersionDir returns <branchDir>/versions/v<n>.
func VersionDir(branchDir string, n int) string {
	return filepath.Join(branchDir, VersionsDir, VersionDirName(n))
}

// cleanRelPath normalizes a file path and reports false if it would escape
// the folder it is written into.
func cleanRelPath(p string) (string, bool) {
	p = strings.TrimLeft(strings.ReplaceAll(p, "\\", "/"), "/")
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}
	return p, true
}

// ErrNoProjectPath is returned when an idea has no project root yet, so no
// branch folder can exist for it.
var ErrNoProjectPath = errors.New("idea has no project path")

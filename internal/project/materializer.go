package project

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Materializer moves project files between disk folders and in-memory file
// lists. It uses an afero.Fs so tests can run against afero.NewMemMapFs().
type Materializer struct {
	fs     afero.Fs
	logger *zap.Logger
}

// NewMaterializer creates a Materializer on the given filesystem.
// Use afero.NewOsFs() for real folders, or afero.NewMemMapFs() for testing.
func NewMaterializer(fs afero.Fs, logger *zap.Logger) *Materializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Materializer{
		fs:     fs,
		logger: logger.Named("materializer"),
	}
}

// NewOsMaterializer creates a Materializer on the operating system filesystem.
func NewOsMaterializer(logger *zap.Logger) *Materializer {
	return NewMaterializer(afero.NewOsFs(), logger)
}

// Fs exposes the underlying filesystem.
func (m *Materializer) Fs() afero.Fs {
	return m.fs
}

// Exists reports whether dir exists and is a directory.
func (m *Materializer) Exists(dir string) (bool, error) {
	return afero.DirExists(m.fs, dir)
}

// EnsureFolder creates dir and any missing parents.
func (m *Materializer) EnsureFolder(dir string) error {
	if err := m.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create folder %s: %w", dir, err)
	}
	return nil
}

// RemoveFolder deletes dir recursively. A missing folder is not an error.
func (m *Materializer) RemoveFolder(dir string) error {
	if err := m.fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove folder %s: %w", dir, err)
	}
	return nil
}

// ListFolders returns the names of the direct subdirectories of dir.
func (m *Materializer) ListFolders(dir string) ([]string, error) {
	exists, err := m.Exists(dir)
	if err != nil {
		return nil, fmt.Errorf("check folder %s: %w", dir, err)
	}
	if !exists {
		return []string{}, nil
	}

	entries, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReadFolder loads the tracked files of dir. A missing folder yields an
// empty list. Protected directories, the top-level versions/ tree, binary
// files and files above MaxFileSize are skipped; unreadable files are logged
// and skipped rather than failing the scan.
func (m *Materializer) ReadFolder(dir string) ([]File, error) {
	exists, err := m.Exists(dir)
	if err != nil {
		return nil, fmt.Errorf("check folder %s: %w", dir, err)
	}
	if !exists {
		return []File{}, nil
	}

	files := []File{}
	err = afero.Walk(m.fs, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			m.logger.Warn("skipping unreadable path", zap.String("path", p), zap.Error(err))
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(dir, p)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if IsProtectedDir(info.Name()) || rel == VersionsDir {
				return filepath.SkipDir
			}
			return nil
		}

		content, ok := m.trackedContent(p, info)
		if !ok {
			return nil
		}

		files = append(files, File{Path: rel, Content: string(content)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk folder %s: %w", dir, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// WriteFiles writes files under dir, creating directories as needed.
// Paths that would escape dir are rejected before anything is written.
func (m *Materializer) WriteFiles(dir string, files []File) error {
	cleaned := make([]File, 0, len(files))
	for _, f := range files {
		rel, ok := cleanRelPath(f.Path)
		if !ok {
			return fmt.Errorf("invalid file path %q", f.Path)
		}
		cleaned = append(cleaned, File{Path: rel, Content: f.Content})
	}

	if err := m.EnsureFolder(dir); err != nil {
		return err
	}

	for _, f := range cleaned {
		target := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := m.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("create directory for %s: %w", f.Path, err)
		}
		if err := afero.WriteFile(m.fs, target, []byte(f.Content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", f.Path, err)
		}
	}
	return nil
}

// ClearFolder removes every top-level entry of dir except protected
// directories and the versions/ tree. A missing folder is created empty.
func (m *Materializer) ClearFolder(dir string) error {
	exists, err := m.Exists(dir)
	if err != nil {
		return fmt.Errorf("check folder %s: %w", dir, err)
	}
	if !exists {
		return m.EnsureFolder(dir)
	}

	entries, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		return fmt.Errorf("read folder %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() && (IsProtectedDir(e.Name()) || e.Name() == VersionsDir) {
			continue
		}
		if err := m.fs.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}
	return nil
}

// ClearTrackedFiles removes the files ReadFolder would return and then
// prunes directories left empty. Binary and oversized files stay, since a
// stored file list cannot bring them back.
func (m *Materializer) ClearTrackedFiles(dir string) error {
	exists, err := m.Exists(dir)
	if err != nil {
		return fmt.Errorf("check folder %s: %w", dir, err)
	}
	if !exists {
		return m.EnsureFolder(dir)
	}

	var files, dirs []string
	err = afero.Walk(m.fs, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(dir, p)
		if relErr != nil || rel == "." {
			return nil
		}
		if info.IsDir() {
			if IsProtectedDir(info.Name()) || filepath.ToSlash(rel) == VersionsDir {
				return filepath.SkipDir
			}
			dirs = append(dirs, p)
			return nil
		}
		if _, ok := m.trackedContent(p, info); ok {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk folder %s: %w", dir, err)
	}

	for _, p := range files {
		if err := m.fs.Remove(p); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	// Walk order is lexical, so children come after their parents.
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := afero.ReadDir(m.fs, dirs[i])
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := m.fs.Remove(dirs[i]); err != nil {
			return fmt.Errorf("remove %s: %w", dirs[i], err)
		}
	}
	return nil
}

// CopyFolder recursively copies src into dst, including installed
// dependencies and the versions/ tree. dst is created if missing; existing
// files in dst are overwritten.
func (m *Materializer) CopyFolder(src, dst string) error {
	exists, err := m.Exists(src)
	if err != nil {
		return fmt.Errorf("check folder %s: %w", src, err)
	}
	if !exists {
		return fmt.Errorf("source folder %s: %w", src, os.ErrNotExist)
	}

	return afero.Walk(m.fs, src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return m.fs.MkdirAll(target, info.Mode().Perm()|0700)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return m.copyFile(p, target, info.Mode().Perm())
	})
}

// CopyContents copies the contents of src into dst like CopyFolder, but
// leaves protected directories and the versions/ tree of src behind. It is
// used to hot-swap a version copy back into a live branch folder.
func (m *Materializer) CopyContents(src, dst string) error {
	return afero.Walk(m.fs, src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return m.fs.MkdirAll(dst, 0755)
		}
		if info.IsDir() && (IsProtectedDir(info.Name()) || filepath.ToSlash(rel) == VersionsDir) {
			return filepath.SkipDir
		}

		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return m.fs.MkdirAll(target, 0755)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return m.copyFile(p, target, info.Mode().Perm())
	})
}

func (m *Materializer) copyFile(src, dst string, perm os.FileMode) error {
	in, err := m.fs.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	if err := m.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", dst, err)
	}

	if perm == 0 {
		perm = 0644
	}
	out, err := m.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

// trackedContent returns the content of a regular text file no larger than
// MaxFileSize. ok is false for anything ReadFolder skips.
func (m *Materializer) trackedContent(p string, info os.FileInfo) ([]byte, bool) {
	if !info.Mode().IsRegular() || info.Size() > MaxFileSize {
		return nil, false
	}
	content, err := m.readFile(p)
	if err != nil {
		m.logger.Warn("skipping unreadable file", zap.String("path", p), zap.Error(err))
		return nil, false
	}
	if isBinary(content) {
		return nil, false
	}
	return content, true
}

func (m *Materializer) readFile(p string) ([]byte, error) {
	f, err := m.fs.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(io.LimitReader(f, MaxFileSize+1))
}

// isBinary treats NUL bytes or invalid UTF-8 as binary content.
func isBinary(content []byte) bool {
	if bytes.IndexByte(content, 0) >= 0 {
		return true
	}
	return !utf8.Valid(content)
}

// FolderPath joins a project root and a branch folder name.
func FolderPath(projectRoot, folderName string) string {
	return filepath.Join(projectRoot, strings.TrimSpace(folderName))
}

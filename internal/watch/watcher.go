// Package watch follows the active branch folder of an idea and reports
// debounced batches of file changes.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/josephgoksu/ideaflow/internal/project"
)

// DefaultDelay is the quiet period before a batch is emitted.
const DefaultDelay = 500 * time.Millisecond

// Op is the kind of change seen for a path.
type Op string

// Op values.
const (
	OpCreate Op = "create"
	OpModify Op = "modify"
	OpDelete Op = "delete"
	OpRename Op = "rename"
)

// Event is one changed path, relative to the watched folder.
type Event struct {
	Path string `json:"path"` // slash-separated
	Op   Op     `json:"op"`
}

// Batch is the set of changes seen in one quiet period. Each path appears
// once, in first-seen order.
type Batch struct {
	Dir    string    `json:"dir"`
	Events []Event   `json:"events"`
	At     time.Time `json:"at"`
}

// Options configures a Watcher.
type Options struct {
	Delay  time.Duration // Quiet period; defaults to DefaultDelay
	Logger *zap.Logger
}

// Watcher watches one branch folder recursively. Protected directories and
// the top-level versions/ tree are not watched.
type Watcher struct {
	fsw     *fsnotify.Watcher
	logger  *zap.Logger
	batches chan Batch

	mu      sync.Mutex
	dir     string
	watched map[string]bool
	pending []Event
	index   map[string]int
	timer   *time.Timer
	delay   time.Duration
	closed  bool

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup // event loop
	flushing sync.WaitGroup // in-flight batch sends
}

// New creates a Watcher for dir. Call Start to begin receiving batches.
func New(dir string, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		fsw:     fsw,
		logger:  opts.Logger.Named("watch"),
		batches: make(chan Batch, 16),
		dir:     filepath.Clean(dir),
		watched: make(map[string]bool),
		index:   make(map[string]int),
		delay:   opts.Delay,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Batches returns the channel batches are delivered on. It is closed by
// Close.
func (w *Watcher) Batches() <-chan Batch {
	return w.batches
}

// Dir returns the folder currently watched.
func (w *Watcher) Dir() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dir
}

// Start adds the watches and starts the event loop.
func (w *Watcher) Start() error {
	w.mu.Lock()
	err := w.addRecursive(w.dir)
	w.mu.Unlock()
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.wg.Add(1)
	go w.eventLoop()
	w.logger.Debug("watching", zap.String("dir", w.dir))
	return nil
}

// Retarget moves the watch to dir, typically after a branch switch.
// Pending changes of the old folder are dropped.
func (w *Watcher) Retarget(dir string) error {
	dir = filepath.Clean(dir)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("watcher is closed")
	}
	if dir == w.dir {
		return nil
	}

	for p := range w.watched {
		_ = w.fsw.Remove(p)
	}
	w.watched = make(map[string]bool)
	w.resetPending()

	old := w.dir
	w.dir = dir
	if err := w.addRecursive(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("watch retargeted", zap.String("from", old), zap.String("to", dir))
	return nil
}

// Close stops the watcher and closes the Batches channel.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.resetPending()
	w.mu.Unlock()

	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()
	w.flushing.Wait()
	close(w.batches)
	return err
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	rel, err := filepath.Rel(w.dir, event.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return
	}
	rel = filepath.ToSlash(rel)
	if skipped(rel) {
		return
	}

	var op Op
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("watching new directory failed", zap.String("path", event.Name), zap.Error(err))
			}
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
		delete(w.watched, event.Name)
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
		delete(w.watched, event.Name)
	default:
		return // chmod
	}

	w.queue(Event{Path: rel, Op: op})
}

// queue merges e into the pending batch and restarts the quiet period.
// Caller holds w.mu.
func (w *Watcher) queue(e Event) {
	if i, ok := w.index[e.Path]; ok {
		prev := w.pending[i].Op
		switch {
		case prev == OpCreate && e.Op == OpModify:
			// still a new file
		case prev == OpCreate && (e.Op == OpDelete || e.Op == OpRename):
			w.pending[i].Op = "" // came and went
		default:
			w.pending[i].Op = e.Op
		}
	} else {
		w.index[e.Path] = len(w.pending)
		w.pending = append(w.pending, e)
	}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	events := make([]Event, 0, len(w.pending))
	for _, e := range w.pending {
		if e.Op != "" {
			events = append(events, e)
		}
	}
	dir := w.dir
	w.pending = nil
	w.index = make(map[string]int)
	w.timer = nil
	if len(events) == 0 {
		w.mu.Unlock()
		return
	}
	w.flushing.Add(1)
	w.mu.Unlock()
	defer w.flushing.Done()

	select {
	case w.batches <- Batch{Dir: dir, Events: events, At: time.Now()}:
	case <-w.ctx.Done():
	}
}

// resetPending drops queued events. Caller holds w.mu.
func (w *Watcher) resetPending() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.pending = nil
	w.index = make(map[string]int)
}

// addRecursive watches dir and its subdirectories. A missing dir is not an
// error: the branch folder may be created later. Caller holds w.mu.
func (w *Watcher) addRecursive(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		w.logger.Debug("folder does not exist yet", zap.String("dir", dir))
		return nil
	}
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.dir {
			rel, relErr := filepath.Rel(w.dir, p)
			if relErr == nil && skipped(filepath.ToSlash(rel)) {
				return filepath.SkipDir
			}
		}
		if w.watched[p] {
			return nil
		}
		if err := w.fsw.Add(p); err != nil {
			return err
		}
		w.watched[p] = true
		return nil
	})
}

// skipped reports whether a slash-separated relative path lies in a
// protected directory, in the top-level versions/ tree, or is an editor
// temp file.
func skipped(rel string) bool {
	parts := strings.Split(rel, "/")
	if parts[0] == project.VersionsDir {
		return true
	}
	for _, part := range parts {
		if project.IsProtectedDir(part) {
			return true
		}
	}
	name := parts[len(parts)-1]
	return strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp") || strings.HasSuffix(name, ".tmp")
}

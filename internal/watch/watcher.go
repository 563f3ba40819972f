// Package watch turns file system notifications below a pipeline root into
// debounced batches of changed, root-relative paths.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
	"git.home.luguber.info/inful/contented/internal/logfields"
)

// MatchFunc reports whether a root-relative, slash separated file path is
// watched content.
type MatchFunc func(rel string) bool

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger used for watch diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Watcher observes every directory below a root. Qualifying events are
// file events whose path matches, and directory creations and removals.
type Watcher struct {
	root      string
	match     MatchFunc
	debouncer *Debouncer
	logger    *slog.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	dirs    map[string]struct{} // watched directories, root-relative
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// New creates a watcher for root. It does not touch the file system until Start.
func New(root string, match MatchFunc, cfg DebouncerConfig, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, ferrors.IOError(root).WithCause(err).Build()
	}
	if match == nil {
		match = func(string) bool { return true }
	}
	d, err := NewDebouncer(cfg)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:      abs,
		match:     match,
		debouncer: d,
		logger:    slog.Default(),
		dirs:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Batches delivers coalesced batches of changed root-relative paths.
func (w *Watcher) Batches() <-chan []string { return w.debouncer.Batches() }

// Start subscribes to every directory under the root and begins emitting batches.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ferrors.InternalError("watcher already started").Build()
	}
	if w.done != nil {
		return ferrors.InternalError("watcher cannot be restarted").Build()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "create file system watcher").Build()
	}
	w.fsw = fsw
	if err := w.addRecursive(w.root); err != nil {
		_ = fsw.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.started = true

	go w.debouncer.Run(runCtx)
	<-w.debouncer.Ready()
	go w.loop(runCtx)

	w.logger.Info("Watching for changes", logfields.Path(w.root))
	return nil
}

// Stop ends the subscription. Batches is closed once the watcher has stopped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = false
	cancel, done, fsw := w.cancel, w.done, w.fsw
	w.mu.Unlock()

	cancel()
	<-done
	return fsw.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if rel, ok := w.handle(ev); ok {
				w.debouncer.Add(ctx, rel)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// handle maps an event to a root-relative path when it qualifies.
func (w *Watcher) handle(ev fsnotify.Event) (string, bool) {
	if !qualifies(ev.Op) || ShouldIgnore(ev.Name) {
		return "", false
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)

	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			addErr := w.addRecursive(ev.Name)
			w.mu.Unlock()
			if addErr != nil {
				w.logger.Warn("Watch add failed", logfields.Path(rel), logfields.Error(addErr))
			}
			return rel, true
		}
	}

	if ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
		if w.forgetDir(rel) {
			return rel, true
		}
	}

	if !w.match(rel) {
		return "", false
	}
	w.logger.Debug("File change detected", logfields.Path(rel), slog.String("op", ev.Op.String()))
	return rel, true
}

// addRecursive must be called with w.mu held.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return ferrors.IOError(p).WithCause(err).Build()
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root && ShouldIgnore(p) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			w.logger.Warn("Watch add failed", logfields.Path(p), logfields.Error(err))
			return nil
		}
		if rel, relErr := filepath.Rel(w.root, p); relErr == nil {
			w.dirs[filepath.ToSlash(rel)] = struct{}{}
		}
		return nil
	})
}

// forgetDir drops rel and every watched directory below it and reports
// whether rel was a watched directory.
func (w *Watcher) forgetDir(rel string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[rel]; !ok {
		return false
	}
	for d := range w.dirs {
		if d == rel || strings.HasPrefix(d, rel+"/") {
			delete(w.dirs, d)
			_ = w.fsw.Remove(filepath.Join(w.root, filepath.FromSlash(d)))
		}
	}
	return true
}

// ShouldIgnore reports whether a path refers to a hidden, editor temp or
// OS metadata file that must not trigger rebuilds.
func ShouldIgnore(p string) bool {
	base := path.Base(filepath.ToSlash(p))

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasSuffix(base, ".tmp") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db" || base == "4913"
}

// qualifies reports whether an fsnotify op can change the index.
func qualifies(op fsnotify.Op) bool {
	return op.Has(fsnotify.Create) || op.Has(fsnotify.Write) || op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)
}

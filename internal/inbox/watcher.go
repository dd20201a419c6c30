package inbox

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/echopipe/internal/content"
	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/logfields"
)

const (
	// ProcessedDir receives request files whose requests all executed.
	ProcessedDir = "processed"
	// FailedDir receives unreadable files and files with a failed request.
	FailedDir = "failed"
	// DefaultDebounce is how long a file must stay quiet before it is read.
	DefaultDebounce = 500 * time.Millisecond
)

// Handler executes one request read from source.
type Handler func(ctx context.Context, req content.Request, source string) error

// Watcher feeds request files dropped into a directory to a Handler.
type Watcher struct {
	dir      string
	handle   Handler
	debounce time.Duration
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	work    chan string
	done    chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// New creates the inbox directories and an fsnotify watcher on dir.
func New(dir string, handle Handler, opts ...Option) (*Watcher, error) {
	if handle == nil {
		return nil, derrors.ConfigError("inbox handler is required").Build()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "resolve inbox path").
			WithContext("path", dir).
			Build()
	}
	for _, d := range []string{abs, filepath.Join(abs, ProcessedDir), filepath.Join(abs, FailedDir)} {
		if err := os.MkdirAll(d, 0o750); err != nil {
			return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "create inbox directory").
				WithContext("path", d).
				Build()
		}
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryRuntime, "create file watcher").Build()
	}
	if err := fw.Add(abs); err != nil {
		_ = fw.Close()
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "watch inbox directory").
			WithContext("path", abs).
			Build()
	}
	w := &Watcher{
		dir:      abs,
		handle:   handle,
		debounce: DefaultDebounce,
		watcher:  fw,
		pending:  make(map[string]*time.Timer),
		work:     make(chan string, 64),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Dir returns the absolute inbox directory.
func (w *Watcher) Dir() string { return w.dir }

// Run processes files already in the inbox, then watches for new ones until
// ctx is done. Files are handled one at a time in arrival order. Run must
// only be called once.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.done)
	defer w.stopTimers()
	slog.Info("Watching request inbox", logfields.Path(w.dir))

	existing, err := w.existing()
	if err != nil {
		return err
	}
	for _, p := range existing {
		w.process(ctx, p)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping request inbox", logfields.Path(w.dir))
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Dir(ev.Name) != w.dir || !IsRequestFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				w.schedule(ev.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Inbox watcher error", logfields.Error(err))
		case p := <-w.work:
			w.process(ctx, p)
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) existing() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "list inbox").
			WithContext("path", w.dir).
			Build()
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsRequestFile(e.Name()) {
			out = append(out, filepath.Join(w.dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// schedule debounces rapid writes to the same file.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case w.work <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.pending {
		t.Stop()
		delete(w.pending, p)
	}
}

// process handles every request in path and moves the file out of the inbox.
func (w *Watcher) process(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		// Already moved, or replaced by something that is not a file.
		return
	}
	log := slog.With(logfields.Path(path))

	specs, err := LoadRequests(path)
	if err != nil {
		log.Warn("Rejected request file", logfields.Error(err))
		w.move(path, FailedDir)
		return
	}
	failed := 0
	for _, spec := range specs {
		if ctx.Err() != nil {
			return
		}
		if err := w.handle(ctx, spec.Request(), path); err != nil {
			failed++
			log.Error("Request from inbox failed", logfields.Topic(spec.Topic), logfields.Error(err))
		}
	}
	dest := ProcessedDir
	if failed > 0 {
		dest = FailedDir
	}
	log.Info("Request file handled", slog.Int("requests", len(specs)), slog.Int("failed", failed))
	w.move(path, dest)
}

func (w *Watcher) move(path, sub string) {
	target := filepath.Join(w.dir, sub, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		slog.Error("Failed to move request file", logfields.Path(path), logfields.Error(err))
	}
}

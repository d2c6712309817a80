// Package watcher runs a callback when drawing files of one directory change.
package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aalvaropc/procblock/internal/domain"
)

const defaultDebounce = 500 * time.Millisecond

// Handler processes the files that changed since the last call. Handlers run
// one at a time on the goroutine calling Run.
type Handler func(ctx context.Context, changed []string) error

type Watcher struct {
	dir      string
	match    func(name string) bool
	debounce time.Duration
	log      *slog.Logger

	// modification times seen after the last handler run; a later event on an
	// unchanged file is the handler's own save echoing back.
	seen  map[string]time.Time
	ready chan struct{}
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

func New(dir string, match func(name string) bool, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		match:    match,
		debounce: defaultDebounce,
		log:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
		seen:     map[string]time.Time{},
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Ready is closed once the directory is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Remember records the current state of the directory so files already
// processed are not reported again until they change.
func (w *Watcher) Remember() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || !w.match(e.Name()) {
			continue
		}
		if info, err := e.Info(); err == nil {
			w.seen[filepath.Join(w.dir, e.Name())] = info.ModTime()
		}
	}
}

func (w *Watcher) changed(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	prev, ok := w.seen[path]
	return !ok || !prev.Equal(info.ModTime())
}

// Run blocks until ctx is done or the watcher fails.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return &domain.OpError{Op: "watcher.start", Kind: domain.KindExecution, Path: w.dir, Err: err}
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return &domain.OpError{Op: "watcher.add", Kind: domain.KindNotFound, Path: w.dir, Err: err}
	}
	w.log.Info("watcher.started", "dir", w.dir, "debounce_ms", w.debounce.Milliseconds())
	close(w.ready)

	pending := map[string]bool{}
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("watcher.stopped", "dir", w.dir)
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !w.match(filepath.Base(ev.Name)) {
				continue
			}
			w.log.Debug("watcher.event", "file", ev.Name, "op", ev.Op.String())
			pending[ev.Name] = true
			timer.Reset(w.debounce)

		case <-timer.C:
			var files []string
			for p := range pending {
				if w.changed(p) {
					files = append(files, p)
				}
			}
			pending = map[string]bool{}
			if len(files) == 0 {
				continue
			}
			sort.Strings(files)

			if err := handle(ctx, files); err != nil {
				w.log.Error("watcher.handler.failed", "files", len(files), "err", err)
			}
			w.Remember()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher.error", "err", err)
		}
	}
}

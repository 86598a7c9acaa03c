// Package watch reports saves of a single scene file.
//
// The file's directory is watched rather than the file itself so that
// editors which save by writing a temporary file and renaming it over the
// original are still seen. Bursts of events inside the debounce window
// produce one Change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before a
// Change is reported.
const DefaultDebounce = 150 * time.Millisecond

// Change says the watched file was written.
type Change struct {
	Path string
	Time time.Time
}

// Options configures a Watcher. Zero values take defaults.
type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher delivers Changes for one file.
type Watcher struct {
	path     string
	fw       *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	changes  chan Change
	done     chan struct{}
	stopOnce sync.Once
	started  sync.Once
}

// New watches path, which need not exist yet; its directory must.
func New(path string, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve %s: %w", path, err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch: add %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{
		path:     abs,
		fw:       fw,
		debounce: opts.Debounce,
		logger:   opts.Logger,
		changes:  make(chan Change, 1),
		done:     make(chan struct{}),
	}, nil
}

// Path is the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Changes is closed once the watcher stops.
func (w *Watcher) Changes() <-chan Change { return w.changes }

// Start runs the event loop until ctx is done or Close is called. Calling
// it more than once has no effect.
func (w *Watcher) Start(ctx context.Context) {
	w.started.Do(func() { go w.loop(ctx) })
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fw.Close()
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.changes)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("scene file event", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			select {
			case w.changes <- Change{Path: w.path, Time: time.Now()}:
			default:
				// already pending
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

package whereami

import (
	"context"
	"errors"
	"sync"

	"github.com/vrclog/whereami/internal/dirwatch"
	"github.com/vrclog/whereami/internal/logfinder"
	"github.com/vrclog/whereami/internal/switcher"
)

// Watcher follows the live VRChat log across file rotations.
type Watcher struct {
	cfg    *watchConfig
	logDir string

	mu       sync.Mutex
	closed   bool
	cancel   context.CancelFunc // cancel func to stop the goroutine
	doneCh   chan struct{}      // signals when goroutine has exited
	watching bool               // true if Watch() has been called
}

// NewWatcher creates a watcher.
// Resolves the log directory but does not start goroutines.
// Returns ErrLogDirNotFound if no log directory can be found.
func NewWatcher(opts ...WatchOption) (*Watcher, error) {
	cfg := applyWatchOptions(opts)

	logDir, err := logfinder.FindLogDir(cfg.logDir)
	if err != nil {
		return nil, err
	}

	return &Watcher{
		cfg:    cfg,
		logDir: logDir,
	}, nil
}

// LogDir returns the resolved log directory.
func (w *Watcher) LogDir() string {
	return w.logDir
}

// Watch starts watching and returns channels.
//
// Events of the newest log file are delivered in file order; when a newer
// file appears the current one is abandoned and its undelivered events are
// dropped. Nothing is delivered until a log file exists.
//
// A fatal error is sent on the error channel, after which both channels
// close. They also close when ctx is done or Close is called.
// Watch can only be called once per Watcher instance.
func (w *Watcher) Watch(ctx context.Context) (<-chan Event, <-chan error, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, nil, ErrWatcherClosed
	}
	if w.watching {
		w.mu.Unlock()
		return nil, nil, ErrAlreadyWatching
	}
	w.watching = true

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	eventCh := make(chan Event)
	errCh := make(chan error, 1)

	go w.run(ctx, eventCh, errCh)

	return eventCh, errCh, nil
}

// Close stops the watcher and releases resources.
// Safe to call multiple times.
// Blocks until the goroutine has exited.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true

	if w.cancel != nil {
		w.cancel()
	}
	doneCh := w.doneCh
	w.mu.Unlock()

	if doneCh != nil {
		<-doneCh
	}
	return nil
}

func (w *Watcher) run(ctx context.Context, eventCh chan<- Event, errCh chan<- error) {
	defer close(w.doneCh)
	defer close(eventCh)
	defer close(errCh)

	logger := w.cfg.logger.With("dir", w.logDir)
	logger.Debug("watching log directory")

	dirs := dirwatch.New(w.logDir, dirwatch.WithLogger(w.cfg.logger))
	err := switcher.Latest[logfinder.LogFile, Event](ctx, dirs.Run, w.fileEvents, eventCh)
	if err != nil && ctx.Err() == nil {
		var werr *WatchError
		if !errors.As(err, &werr) {
			err = &WatchError{Op: WatchOpDir, Path: w.logDir, Err: err}
		}
		logger.Debug("watch failed", "error", err)
		errCh <- err
	}
}

// Watch is a convenience function that creates a watcher and starts watching.
// Returns error immediately for initialization failures.
func Watch(ctx context.Context, opts ...WatchOption) (<-chan Event, <-chan error, error) {
	w, err := NewWatcher(opts...)
	if err != nil {
		return nil, nil, err
	}
	events, errs, err := w.Watch(ctx)
	if err != nil {
		return nil, nil, err
	}
	go func() {
		<-ctx.Done()
		_ = w.Close()
	}()
	return events, errs, nil
}

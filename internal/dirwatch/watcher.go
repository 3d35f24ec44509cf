// Package dirwatch selects the live VRChat log file in a directory.
//
// A Watcher emits the newest log file found by an initial scan, then every
// newly created log file whose name timestamp is newer than anything emitted
// before.
package dirwatch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vrclog/whereami/internal/logfinder"
	"github.com/vrclog/whereami/internal/metrics"
)

// Watcher watches one directory for log rotation.
type Watcher struct {
	dir    string
	logger *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New returns a Watcher for dir. Nothing is started until Run.
func New(dir string, opts ...Option) *Watcher {
	w := &Watcher{
		dir:    dir,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Run sends selected log files to out until ctx is done or a fatal error
// occurs. Failing to register the watch, failing to read the directory and
// errors reported by the notification backend are fatal.
func (w *Watcher) Run(ctx context.Context, out chan<- logfinder.LogFile) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating directory watcher: %w", err)
	}
	defer fsw.Close()

	// Register before scanning so a file created in between is not missed.
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching log directory %s: %w", w.dir, err)
	}

	var latest time.Time
	emit := func(lf logfinder.LogFile) error {
		if !latest.IsZero() && !lf.Timestamp.After(latest) {
			return nil
		}
		latest = lf.Timestamp
		metrics.LogFilesSelected.Inc()
		w.logger.Debug("selected log file", "path", lf.Path, "timestamp", lf.Timestamp)
		select {
		case out <- lf:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	first, ok, err := logfinder.ScanLatest(w.dir)
	if err != nil {
		return err
	}
	if ok {
		if err := emit(first); err != nil {
			return err
		}
	} else {
		w.logger.Debug("no log file yet, waiting for one", "dir", w.dir)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("directory watcher closed")
			}
			lf, ok := candidate(ev)
			if !ok {
				continue
			}
			if err := emit(lf); err != nil {
				return err
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("directory watcher closed")
			}
			return fmt.Errorf("directory watcher: %w", err)
		}
	}
}

// candidate returns the log file announced by a creation event.
func candidate(ev fsnotify.Event) (logfinder.LogFile, bool) {
	if !ev.Has(fsnotify.Create) || ev.Name == "" {
		return logfinder.LogFile{}, false
	}
	return logfinder.NewLogFile(filepath.Clean(ev.Name))
}

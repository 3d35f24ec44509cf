package whereami_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vrclog/whereami/pkg/whereami"
)

const waitTimeout = 5 * time.Second

func startWatch(t *testing.T, dir string, opts ...whereami.WatchOption) (<-chan whereami.Event, <-chan error) {
	t.Helper()
	opts = append([]whereami.WatchOption{
		whereami.WithLogDir(dir),
		whereami.WithPollInterval(10 * time.Millisecond),
	}, opts...)

	watcher, err := whereami.NewWatcher(opts...)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { _ = watcher.Close() })

	events, errs, err := watcher.Watch(context.Background())
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	return events, errs
}

func nextEvent(t *testing.T, events <-chan whereami.Event, errs <-chan error) whereami.Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("events channel closed")
		}
		return ev
	case err := <-errs:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(waitTimeout):
		t.Fatal("timeout waiting for event")
	}
	return whereami.Event{}
}

func noEvent(t *testing.T, events <-chan whereami.Event, d time.Duration) {
	t.Helper()
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(d):
	}
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
}

func TestNewWatcher_InvalidLogDir(t *testing.T) {
	_, err := whereami.NewWatcher(whereami.WithLogDir("/nonexistent/path"))
	if !errors.Is(err, whereami.ErrLogDirNotFound) {
		t.Errorf("NewWatcher() error = %v, want %v", err, whereami.ErrLogDirNotFound)
	}
}

func TestWatcher_ReadsExistingThenFollows(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "output_log_2024-01-15_11-00-00.txt", crlf(joiningLine))

	events, errs := startWatch(t, dir)

	if ev := nextEvent(t, events, errs); ev.Type != whereami.EventJoiningRoom {
		t.Errorf("first event = %v, want joining", ev.Type)
	}

	// A partial line is held until its terminator arrives.
	appendLog(t, path, leftLine)
	noEvent(t, events, 100*time.Millisecond)
	appendLog(t, path, "\r\n")

	if ev := nextEvent(t, events, errs); ev.Type != whereami.EventLeftRoom {
		t.Errorf("second event = %v, want left", ev.Type)
	}
}

func TestWatcher_WaitsForFirstFile(t *testing.T) {
	dir := t.TempDir()
	events, errs := startWatch(t, dir)

	noEvent(t, events, 100*time.Millisecond)

	writeLog(t, dir, "output_log_2024-01-15_11-00-00.txt", crlf(leftLine))
	if ev := nextEvent(t, events, errs); ev.Type != whereami.EventLeftRoom {
		t.Errorf("event = %v, want left", ev.Type)
	}
}

func TestWatcher_SwitchesToNewerFile(t *testing.T) {
	dir := t.TempDir()
	old := writeLog(t, dir, "output_log_2024-01-15_11-00-00.txt", crlf(leftLine))

	events, errs := startWatch(t, dir)
	nextEvent(t, events, errs)

	writeLog(t, dir, "output_log_2024-01-16_11-00-00.txt", crlf(
		"2024.01.16 11:00:01 Debug      -  [Behaviour] Joining "+testRoom))

	ev := nextEvent(t, events, errs)
	if ev.Type != whereami.EventJoiningRoom || ev.Timestamp.Day() != 16 {
		t.Fatalf("event = %+v, want joining from the new file", ev)
	}

	// The abandoned file no longer contributes.
	appendLog(t, old, crlf(leftLine))
	noEvent(t, events, 200*time.Millisecond)
}

func TestWatcher_IgnoresOlderFile(t *testing.T) {
	dir := t.TempDir()
	current := writeLog(t, dir, "output_log_2024-01-15_11-00-00.txt", "")

	events, errs := startWatch(t, dir)

	writeLog(t, dir, "output_log_2024-01-14_11-00-00.txt", crlf(leftLine))
	noEvent(t, events, 200*time.Millisecond)

	appendLog(t, current, crlf(joiningLine))
	if ev := nextEvent(t, events, errs); ev.Type != whereami.EventJoiningRoom {
		t.Errorf("event = %v, want joining from the current file", ev.Type)
	}
}

func TestWatcher_Filters(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "output_log_2024-01-15_11-00-00.txt", crlf(leftLine, joiningLine, leftLine))

	events, errs := startWatch(t, dir,
		whereami.WithIncludeTypes(whereami.EventJoiningRoom),
		whereami.WithIncludeRawLine(true),
	)

	ev := nextEvent(t, events, errs)
	if ev.Type != whereami.EventJoiningRoom {
		t.Errorf("event = %v, want joining", ev.Type)
	}
	if ev.RawLine != joiningLine {
		t.Errorf("RawLine = %q, want %q", ev.RawLine, joiningLine)
	}
	noEvent(t, events, 100*time.Millisecond)
}

func TestWatcher_ReadErrorIsFatal(t *testing.T) {
	dir := t.TempDir()
	events, errs := startWatch(t, dir)
	time.Sleep(100 * time.Millisecond) // let the directory watch register

	// A directory with a log file name is announced like a file but cannot
	// be read.
	if err := os.Mkdir(filepath.Join(dir, "output_log_2024-01-15_11-00-00.txt"), 0755); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errs:
		var werr *whereami.WatchError
		if !errors.As(err, &werr) {
			t.Fatalf("err = %v, want *WatchError", err)
		}
		if werr.Op != whereami.WatchOpRead {
			t.Errorf("Op = %q, want %q", werr.Op, whereami.WatchOpRead)
		}
	case <-time.After(waitTimeout):
		t.Fatal("timeout waiting for fatal error")
	}

	select {
	case _, ok := <-events:
		if ok {
			t.Error("expected events channel to be closed")
		}
	case <-time.After(waitTimeout):
		t.Error("timeout waiting for events channel to close")
	}
}

func TestWatcher_ContextCancel(t *testing.T) {
	dir := t.TempDir()
	watcher, err := whereami.NewWatcher(whereami.WithLogDir(dir))
	if err != nil {
		t.Fatal(err)
	}
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	events, errs, err := watcher.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Error("expected events channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for events channel to close")
	}
	if err, ok := <-errs; ok {
		t.Errorf("unexpected error after cancel: %v", err)
	}
}

func TestWatcher_Close(t *testing.T) {
	dir := t.TempDir()
	watcher, err := whereami.NewWatcher(whereami.WithLogDir(dir))
	if err != nil {
		t.Fatal(err)
	}

	events, _, err := watcher.Watch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := watcher.Watch(context.Background()); !errors.Is(err, whereami.ErrAlreadyWatching) {
		t.Errorf("second Watch() error = %v, want ErrAlreadyWatching", err)
	}

	// Close() should be safe to call multiple times
	if err := watcher.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := watcher.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	// Close blocks until the goroutine exits, so the channel is already closed.
	select {
	case _, ok := <-events:
		if ok {
			t.Error("expected events channel to be closed")
		}
	default:
		t.Error("events channel still open after Close")
	}

	if _, _, err := watcher.Watch(context.Background()); !errors.Is(err, whereami.ErrWatcherClosed) {
		t.Errorf("Watch() after Close error = %v, want ErrWatcherClosed", err)
	}
}

func TestWatcher_LogDir(t *testing.T) {
	dir := t.TempDir()
	watcher, err := whereami.NewWatcher(whereami.WithLogDir(dir))
	if err != nil {
		t.Fatal(err)
	}
	defer watcher.Close()

	want, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	if watcher.LogDir() != want {
		t.Errorf("LogDir() = %q, want %q", watcher.LogDir(), want)
	}
}

package whereami

import (
	"errors"

	"github.com/vrclog/whereami/internal/logfinder"
)

// Sentinel errors returned by this package.
var (
	// ErrLogDirNotFound is returned when the VRChat log directory
	// cannot be found or accessed.
	ErrLogDirNotFound = logfinder.ErrLogDirNotFound

	// ErrNoLogFiles is returned when no log files are found
	// in the specified directory.
	ErrNoLogFiles = logfinder.ErrNoLogFiles

	// ErrWatcherClosed is returned by Watch after Close.
	ErrWatcherClosed = errors.New("watcher closed")

	// ErrAlreadyWatching is returned by a second call to Watch.
	ErrAlreadyWatching = errors.New("watch already started")
)

// WatchOp names the stage of a watch that failed.
type WatchOp string

// Watch stages reported in WatchError.
const (
	WatchOpDir  WatchOp = "watch_dir"
	WatchOpOpen WatchOp = "open"
	WatchOpRead WatchOp = "read"
)

// WatchError is the fatal error delivered on a Watcher's error channel.
type WatchError struct {
	Op   WatchOp
	Path string
	Err  error
}

func (e *WatchError) Error() string {
	return string(e.Op) + " " + e.Path + ": " + e.Err.Error()
}

func (e *WatchError) Unwrap() error {
	return e.Err
}

// Package tailer reads VRChat log files while they are still being written.
package tailer

import (
	"context"
	"errors"
	"io"
	"time"
)

// DefaultPollInterval is how long Reader waits after a read that made no
// progress before trying again.
const DefaultPollInterval = 100 * time.Millisecond

// Reader wraps a growing file. Read never reports io.EOF: when no new bytes
// are available it sleeps for the poll interval and retries, until data
// arrives or the context is done.
type Reader struct {
	ctx      context.Context
	r        io.Reader
	interval time.Duration
	timer    *time.Timer
}

// NewReader returns a Reader polling r every interval while idle.
// A non-positive interval uses DefaultPollInterval.
func NewReader(ctx context.Context, r io.Reader, interval time.Duration) *Reader {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Reader{ctx: ctx, r: r, interval: interval}
}

// Read reads up to len(p) bytes. Any read returning at least one byte is
// returned immediately, even if short.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if err := r.ctx.Err(); err != nil {
			return 0, err
		}
		n, err := r.r.Read(p)
		if n > 0 {
			// The caller sees the error (if not EOF) on its next call.
			if errors.Is(err, io.EOF) {
				err = nil
			}
			return n, err
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if err := r.wait(); err != nil {
			return 0, err
		}
	}
}

// wait re-arms the timer on every idle check, so a late wakeup never turns
// into a burst of back-to-back retries.
func (r *Reader) wait() error {
	if r.timer == nil {
		r.timer = time.NewTimer(r.interval)
	} else {
		r.timer.Reset(r.interval)
	}
	select {
	case <-r.timer.C:
		return nil
	case <-r.ctx.Done():
		r.timer.Stop()
		return r.ctx.Err()
	}
}

package tailer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nxadm/tail"
)

// followErrBuffer bounds the error channel; errors beyond it are dropped.
const followErrBuffer = 16

// Follower follows one named file with nxadm/tail (tail -F) and emits its
// CR LF terminated records, the same records ReadLine yields. Unlike Reader
// it survives truncation and re-creation of the file, so it suits following
// a single file outside the rotation-aware watcher.
type Follower struct {
	t       *tail.Tail
	cancel  context.CancelFunc
	records chan string
	errs    chan error
	done    chan struct{}
	stop    sync.Once
	stopErr error
}

// FollowConfig selects how the file is followed.
type FollowConfig struct {
	// ReOpen reopens the file when it is truncated or re-created.
	ReOpen bool

	// Poll polls for changes instead of using file notifications.
	Poll bool

	// MustExist fails Follow when the file does not exist yet.
	MustExist bool

	// FromStart reads existing content; otherwise only appended records.
	FromStart bool
}

// DefaultFollowConfig follows a VRChat log from its first record.
func DefaultFollowConfig() FollowConfig {
	return FollowConfig{
		ReOpen:    true,
		MustExist: true,
		FromStart: true,
	}
}

// Follow starts following path until ctx is done or Stop is called.
func Follow(ctx context.Context, path string, cfg FollowConfig) (*Follower, error) {
	whence := 2
	if cfg.FromStart {
		whence = 0
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    cfg.ReOpen,
		Poll:      cfg.Poll,
		MustExist: cfg.MustExist,
		Location:  &tail.SeekInfo{Whence: whence},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("following %s: %w", path, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	f := &Follower{
		t:       t,
		cancel:  cancel,
		records: make(chan string),
		errs:    make(chan error, followErrBuffer),
		done:    make(chan struct{}),
	}
	go f.run(ctx)
	return f, nil
}

// Lines returns the records without their CR LF. It closes when following
// ends.
func (f *Follower) Lines() <-chan string {
	return f.records
}

// Errors returns read errors reported by nxadm/tail. Following continues
// after them.
func (f *Follower) Errors() <-chan error {
	return f.errs
}

// Stop ends following and waits for the channels to close. Safe to call
// more than once.
func (f *Follower) Stop() error {
	f.stop.Do(func() {
		f.cancel()
		<-f.done
		f.stopErr = f.t.Stop()
		f.t.Cleanup()
	})
	return f.stopErr
}

func (f *Follower) run(ctx context.Context) {
	defer close(f.done)
	defer close(f.records)
	defer close(f.errs)

	// nxadm/tail splits on every LF. A chunk without a trailing CR is the
	// start of a record that continues on the next chunk.
	var pending strings.Builder
	for {
		var line *tail.Line
		select {
		case <-ctx.Done():
			return
		case l, ok := <-f.t.Lines:
			if !ok {
				return
			}
			line = l
		}

		if line.Err != nil {
			select {
			case f.errs <- fmt.Errorf("tail: %w", line.Err):
			default:
			}
			continue
		}

		text, complete := strings.CutSuffix(line.Text, "\r")
		pending.WriteString(text)
		if !complete {
			pending.WriteByte('\n')
			continue
		}
		record := pending.String()
		pending.Reset()

		select {
		case f.records <- record:
		case <-ctx.Done():
			return
		}
	}
}

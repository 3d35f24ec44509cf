package whereami

import (
	"bufio"
	"context"
	"os"
	"unicode/utf8"

	"github.com/vrclog/whereami/internal/logfinder"
	"github.com/vrclog/whereami/internal/metrics"
	"github.com/vrclog/whereami/internal/switcher"
	"github.com/vrclog/whereami/internal/tailer"
)

const readBufferSize = 64 * 1024

// fileEvents returns the event stream of one log file, read from the start
// and followed forever. Opening or reading the file fails the stream.
func (w *Watcher) fileEvents(lf logfinder.LogFile) switcher.Source[Event] {
	return func(ctx context.Context, out chan<- Event) error {
		f, err := os.Open(lf.Path)
		if err != nil {
			return &WatchError{Op: WatchOpOpen, Path: lf.Path, Err: err}
		}
		defer f.Close()

		logger := w.cfg.logger.With("path", lf.Path)
		logger.Info("following log file")
		defer logger.Debug("stopped following log file")

		br := bufio.NewReaderSize(tailer.NewReader(ctx, f, w.cfg.pollInterval), readBufferSize)
		var buf []byte
		for {
			line, err := tailer.ReadLine(br, buf)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return &WatchError{Op: WatchOpRead, Path: lf.Path, Err: err}
			}
			buf = line[:0]
			metrics.LinesRead.Inc()

			if !utf8.Valid(line) {
				continue
			}
			ev, ok := w.cfg.filter.apply(string(line))
			if !ok {
				continue
			}
			metrics.Events.WithLabelValues(string(ev.Type)).Inc()

			select {
			case out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

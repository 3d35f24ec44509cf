package whereami

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"time"
	"unicode/utf8"

	"github.com/vrclog/whereami/internal/logfinder"
	"github.com/vrclog/whereami/internal/parser"
	"github.com/vrclog/whereami/internal/tailer"
)

// ParseLine parses a single VRChat log line, without its CR LF terminator.
// It returns nil when the line is not a recognized event.
//
// Example:
//
//	line := "2024.01.15 23:59:59 Debug      -  [Behaviour] Successfully left room"
//	if ev := whereami.ParseLine(line); ev != nil {
//	    fmt.Println(ev.Type)
//	}
func ParseLine(line string) *Event {
	return parser.Parse(line)
}

// ParseFile parses a VRChat log file and returns an iterator over events.
// The file is opened lazily on first iteration, so the returned iterator
// is cheap to create but must be consumed to release resources.
//
// Lines are framed on CR LF exactly as the live watcher frames them. A final
// line without a terminator is parsed as well.
//
// The iterator yields (Event, error) pairs. When an error occurs:
//   - File open and read errors: yields (Event{}, error) once and stops
//   - Context cancellation: yields (Event{}, ctx.Err()) and stops
//
// Example:
//
//	for ev, err := range whereami.ParseFile(ctx, "output_log_2024-01-15_10-00-00.txt") {
//	    if err != nil {
//	        log.Printf("error: %v", err)
//	        break
//	    }
//	    fmt.Printf("event: %+v\n", ev)
//	}
func ParseFile(ctx context.Context, path string, opts ...ParseOption) iter.Seq2[Event, error] {
	if path == "" {
		return func(yield func(Event, error) bool) {
			yield(Event{}, errors.New("whereami: path required"))
		}
	}
	return parseFile(ctx, path, applyParseOptions(opts))
}

func parseFile(ctx context.Context, path string, cfg *parseConfig) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		file, err := os.Open(path)
		if err != nil {
			yield(Event{}, err)
			return
		}
		defer file.Close()

		br := bufio.NewReaderSize(file, readBufferSize)
		var buf []byte
		for {
			if err := ctx.Err(); err != nil {
				yield(Event{}, err)
				return
			}

			line, err := tailer.ReadLine(br, buf)
			last := err == io.EOF
			if err != nil && !last {
				yield(Event{}, fmt.Errorf("reading %s: %w", path, err))
				return
			}
			if last {
				line = bytes.TrimSuffix(line, []byte("\r"))
				if len(line) == 0 {
					return
				}
			}
			buf = line[:0]

			if utf8.Valid(line) {
				ev, ok := cfg.filter.apply(string(line))
				if ok {
					if !cfg.until.IsZero() && !ev.Timestamp.Before(cfg.until) {
						return // Past the time window
					}
					if !yield(ev, nil) {
						return
					}
				}
			}
			if last {
				return
			}
		}
	}
}

// ParseFileAll is a convenience function that parses a log file and collects
// all events into a slice. Stops on first error and returns events collected so far.
//
// For large files, consider using ParseFile directly to avoid loading all events
// into memory at once.
func ParseFileAll(ctx context.Context, path string, opts ...ParseOption) ([]Event, error) {
	events := make([]Event, 0, 64)
	for ev, err := range ParseFile(ctx, path, opts...) {
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// ParseDirOption configures ParseDir behavior.
type ParseDirOption func(*parseDirConfig)

type parseDirConfig struct {
	parseConfig
	logDir string
	paths  []string // explicit file paths (optional)
}

func applyParseDirOptions(opts []ParseDirOption) *parseDirConfig {
	cfg := &parseDirConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithDirLogDir sets the log directory to parse.
// If not set, the directory is detected as for NewWatcher.
func WithDirLogDir(dir string) ParseDirOption {
	return func(c *parseDirConfig) {
		c.logDir = dir
	}
}

// WithDirPaths sets explicit file paths to parse, in the given order.
// If set, the log directory is ignored.
func WithDirPaths(paths ...string) ParseDirOption {
	return func(c *parseDirConfig) {
		c.paths = paths
	}
}

// WithDirIncludeTypes filters events to only include the specified types.
func WithDirIncludeTypes(types ...EventType) ParseDirOption {
	return func(c *parseDirConfig) {
		c.filter.types = c.filter.types.withInclude(types)
	}
}

// WithDirExcludeTypes filters out events of the specified types.
func WithDirExcludeTypes(types ...EventType) ParseDirOption {
	return func(c *parseDirConfig) {
		c.filter.types = c.filter.types.withExclude(types)
	}
}

// WithDirTimeRange filters events to only include those within the time range.
// since is inclusive, until is exclusive.
func WithDirTimeRange(since, until time.Time) ParseDirOption {
	return func(c *parseDirConfig) {
		c.filter.since = since
		c.until = until
	}
}

// WithDirIncludeRawLine includes the original log line in Event.RawLine.
func WithDirIncludeRawLine(include bool) ParseDirOption {
	return func(c *parseDirConfig) {
		c.filter.includeRawLine = include
	}
}

// WithDirStopOnError stops on the first unreadable file instead of skipping it.
func WithDirStopOnError(stop bool) ParseDirOption {
	return func(c *parseDirConfig) {
		c.stopOnError = stop
	}
}

// ParseDir parses all VRChat log files in a directory, yielding events
// in chronological order of the session timestamp in each file name,
// oldest first. Files whose names are not log file names are ignored.
//
// The iterator yields (Event, error) pairs. When an error occurs:
//   - Directory access errors: yields (Event{}, error) once and stops
//   - File errors: skips to next file by default, or stops if WithDirStopOnError is set
//
// Example:
//
//	for ev, err := range whereami.ParseDir(ctx,
//	    whereami.WithDirIncludeTypes(whereami.EventJoiningRoom),
//	) {
//	    if err != nil {
//	        log.Printf("error: %v", err)
//	        break
//	    }
//	    fmt.Printf("room: %s\n", ev.Room)
//	}
func ParseDir(ctx context.Context, opts ...ParseDirOption) iter.Seq2[Event, error] {
	cfg := applyParseDirOptions(opts)

	return func(yield func(Event, error) bool) {
		files := cfg.paths
		if len(files) == 0 {
			logDir, err := logfinder.FindLogDir(cfg.logDir)
			if err != nil {
				yield(Event{}, err)
				return
			}
			logs, err := logfinder.List(logDir)
			if err != nil {
				yield(Event{}, err)
				return
			}
			for _, lf := range logs {
				files = append(files, lf.Path)
			}
		}

		if len(files) == 0 {
			yield(Event{}, ErrNoLogFiles)
			return
		}

		for _, file := range files {
			if ctx.Err() != nil {
				yield(Event{}, ctx.Err())
				return
			}

			for ev, err := range parseFile(ctx, file, &cfg.parseConfig) {
				if err != nil {
					if cfg.stopOnError || ctx.Err() != nil {
						yield(Event{}, err)
						return
					}
					// Skip to next file on error
					break
				}
				if !yield(ev, nil) {
					return
				}
			}
		}
	}
}

package whereami

import (
	"log/slog"
	"time"

	"github.com/vrclog/whereami/internal/tailer"
)

// WatchOption configures a Watcher using the functional options pattern.
type WatchOption func(*watchConfig)

type watchConfig struct {
	logDir       string
	pollInterval time.Duration
	logger       *slog.Logger
	filter       eventFilter
}

func defaultWatchConfig() *watchConfig {
	return &watchConfig{
		pollInterval: tailer.DefaultPollInterval,
		logger:       slog.New(slog.DiscardHandler),
	}
}

func applyWatchOptions(opts []WatchOption) *watchConfig {
	cfg := defaultWatchConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithLogDir sets the VRChat log directory.
// If not set, VRCHAT_LOG_DIR is used, then the default Windows locations.
func WithLogDir(dir string) WatchOption {
	return func(c *watchConfig) {
		c.logDir = dir
	}
}

// WithPollInterval sets how long the tail waits after reaching the end of
// the live file before checking it again.
// Default: 100ms. Non-positive values keep the default.
func WithPollInterval(interval time.Duration) WatchOption {
	return func(c *watchConfig) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithIncludeRawLine includes the original log line in Event.RawLine.
// Default: false.
func WithIncludeRawLine(include bool) WatchOption {
	return func(c *watchConfig) {
		c.filter.includeRawLine = include
	}
}

// WithSince drops events timestamped before since. Lines are still read.
func WithSince(since time.Time) WatchOption {
	return func(c *watchConfig) {
		c.filter.since = since
	}
}

// WithLogger sets the slog logger for debug output.
// If nil (default), logging is disabled.
func WithLogger(logger *slog.Logger) WatchOption {
	return func(c *watchConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIncludeTypes filters events to only include the specified types.
// If called multiple times, only the last call takes effect.
func WithIncludeTypes(types ...EventType) WatchOption {
	return func(c *watchConfig) {
		c.filter.types = c.filter.types.withInclude(types)
	}
}

// WithExcludeTypes filters out events of the specified types.
// Exclude takes precedence over include.
// If called multiple times, only the last call takes effect.
func WithExcludeTypes(types ...EventType) WatchOption {
	return func(c *watchConfig) {
		c.filter.types = c.filter.types.withExclude(types)
	}
}

// WithFilter sets both include and exclude type filters.
// Exclude takes precedence over include.
func WithFilter(include, exclude []EventType) WatchOption {
	return func(c *watchConfig) {
		c.filter.types = newCompiledFilter(include, exclude)
	}
}

// ParseOption configures ParseFile behavior.
type ParseOption func(*parseConfig)

type parseConfig struct {
	filter      eventFilter
	until       time.Time
	stopOnError bool
}

func applyParseOptions(opts []ParseOption) *parseConfig {
	cfg := &parseConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithParseIncludeTypes filters events to only include the specified types.
func WithParseIncludeTypes(types ...EventType) ParseOption {
	return func(c *parseConfig) {
		c.filter.types = c.filter.types.withInclude(types)
	}
}

// WithParseExcludeTypes filters out events of the specified types.
func WithParseExcludeTypes(types ...EventType) ParseOption {
	return func(c *parseConfig) {
		c.filter.types = c.filter.types.withExclude(types)
	}
}

// WithParseFilter sets both include and exclude type filters for parsing.
func WithParseFilter(include, exclude []EventType) ParseOption {
	return func(c *parseConfig) {
		c.filter.types = newCompiledFilter(include, exclude)
	}
}

// WithParseIncludeRawLine includes the original log line in Event.RawLine.
func WithParseIncludeRawLine(include bool) ParseOption {
	return func(c *parseConfig) {
		c.filter.includeRawLine = include
	}
}

// WithParseTimeRange filters events to only include those within the time range.
// since is inclusive, until is exclusive.
// Zero values are ignored (no filtering for that boundary).
func WithParseTimeRange(since, until time.Time) ParseOption {
	return func(c *parseConfig) {
		c.filter.since = since
		c.until = until
	}
}

// WithParseSince filters events to only include those at or after the given time.
func WithParseSince(since time.Time) ParseOption {
	return func(c *parseConfig) {
		c.filter.since = since
	}
}

// WithParseUntil filters events to only include those before the given time.
func WithParseUntil(until time.Time) ParseOption {
	return func(c *parseConfig) {
		c.until = until
	}
}

// WithParseStopOnError makes ParseDir stop on the first file that cannot be
// read instead of skipping to the next one.
// Default: false.
func WithParseStopOnError(stop bool) ParseOption {
	return func(c *parseConfig) {
		c.stopOnError = stop
	}
}

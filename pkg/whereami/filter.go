package whereami

import (
	"time"

	"github.com/vrclog/whereami/internal/parser"
)

// compiledFilter holds pre-compiled filter configuration for efficient event filtering.
// It is built by the type filter options.
type compiledFilter struct {
	include map[EventType]struct{}
	exclude map[EventType]struct{}
}

// newCompiledFilter creates a new compiledFilter from include and exclude slices.
// Returns nil if both slices are empty (no filtering needed).
func newCompiledFilter(include, exclude []EventType) *compiledFilter {
	if len(include) == 0 && len(exclude) == 0 {
		return nil
	}

	f := &compiledFilter{}

	if len(include) > 0 {
		f.include = make(map[EventType]struct{}, len(include))
		for _, t := range include {
			f.include[t] = struct{}{}
		}
	}

	if len(exclude) > 0 {
		f.exclude = make(map[EventType]struct{}, len(exclude))
		for _, t := range exclude {
			f.exclude[t] = struct{}{}
		}
	}

	return f
}

// Allows returns true if the given event type passes the filter.
// If include is non-empty, only types in include are allowed.
// Types in exclude are always rejected (exclude takes precedence).
func (f *compiledFilter) Allows(t EventType) bool {
	if f == nil {
		return true
	}

	// Check include list first (if specified)
	if len(f.include) > 0 {
		if _, ok := f.include[t]; !ok {
			return false
		}
	}

	// Check exclude list (always takes precedence)
	if len(f.exclude) > 0 {
		if _, ok := f.exclude[t]; ok {
			return false
		}
	}

	return true
}

// withInclude returns a copy of f whose include set is replaced by types.
func (f *compiledFilter) withInclude(types []EventType) *compiledFilter {
	g := f.clone()
	g.include = make(map[EventType]struct{}, len(types))
	for _, t := range types {
		g.include[t] = struct{}{}
	}
	return g
}

// withExclude returns a copy of f whose exclude set is replaced by types.
func (f *compiledFilter) withExclude(types []EventType) *compiledFilter {
	g := f.clone()
	g.exclude = make(map[EventType]struct{}, len(types))
	for _, t := range types {
		g.exclude[t] = struct{}{}
	}
	return g
}

func (f *compiledFilter) clone() *compiledFilter {
	if f == nil {
		return &compiledFilter{}
	}
	return &compiledFilter{include: f.include, exclude: f.exclude}
}

// eventFilter is the per-event selection shared by the live and batch paths.
type eventFilter struct {
	types          *compiledFilter
	includeRawLine bool
	since          time.Time
}

// apply parses line and reports whether the resulting event passes the
// filter. Lines that are not events never pass.
func (f *eventFilter) apply(line string) (Event, bool) {
	ev := parser.Parse(line)
	if ev == nil {
		return Event{}, false
	}
	if !f.types.Allows(ev.Type) {
		return Event{}, false
	}
	if !f.since.IsZero() && ev.Timestamp.Before(f.since) {
		return Event{}, false
	}
	if f.includeRawLine {
		ev.RawLine = line
	}
	return *ev, true
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vrclog/whereami/pkg/whereami"
	"github.com/vrclog/whereami/pkg/whereami/event"
)

// ValidEventTypes maps CLI string names to whereami.EventType.
var ValidEventTypes = map[string]whereami.EventType{
	"left_room":    whereami.EventLeftRoom,
	"joining_room": whereami.EventJoiningRoom,
}

// ValidEventTypeNames returns a sorted list of valid event type names.
func ValidEventTypeNames() []string {
	return event.TypeNames()
}

// NormalizeEventTypes converts CLI string values to a whereami.EventType slice.
// It handles case-insensitivity, whitespace trimming, and duplicate removal.
func NormalizeEventTypes(values []string) ([]whereami.EventType, error) {
	if len(values) == 0 {
		return nil, nil
	}

	result := make([]whereami.EventType, 0, len(values))
	seen := make(map[whereami.EventType]struct{})

	for _, raw := range values {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			return nil, fmt.Errorf("empty event type provided (input: %q); valid types: %s", raw, strings.Join(ValidEventTypeNames(), ", "))
		}

		t, ok := ValidEventTypes[name]
		if !ok {
			return nil, fmt.Errorf("unknown event type %q (valid: %s)", raw, strings.Join(ValidEventTypeNames(), ", "))
		}

		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		result = append(result, t)
	}

	return result, nil
}

// RejectOverlap returns an error if any event type is in both includes and excludes.
func RejectOverlap(includes, excludes []whereami.EventType) error {
	ex := make(map[whereami.EventType]struct{}, len(excludes))
	for _, t := range excludes {
		ex[t] = struct{}{}
	}
	for _, t := range includes {
		if _, ok := ex[t]; ok {
			return fmt.Errorf("event type %q cannot be both included and excluded", t)
		}
	}
	return nil
}

// typeFlags holds the shared --include-types/--exclude-types values.
type typeFlags struct {
	include []string
	exclude []string
}

func (f *typeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.include, "include-types", nil,
		"Event types to include (comma-separated: "+strings.Join(ValidEventTypeNames(), ",")+")")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude-types", nil,
		"Event types to exclude (comma-separated)")
	registerEventTypeCompletion(cmd, "include-types")
	registerEventTypeCompletion(cmd, "exclude-types")
}

// resolve normalizes both lists and rejects overlap.
func (f *typeFlags) resolve() (includes, excludes []whereami.EventType, err error) {
	if includes, err = NormalizeEventTypes(f.include); err != nil {
		return nil, nil, err
	}
	if excludes, err = NormalizeEventTypes(f.exclude); err != nil {
		return nil, nil, err
	}
	if err := RejectOverlap(includes, excludes); err != nil {
		return nil, nil, err
	}
	return includes, excludes, nil
}

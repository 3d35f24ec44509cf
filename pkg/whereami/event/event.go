// Package event defines the core Event type for VRChat log parsing.
//
// This package is separated from the main whereami package to avoid import cycles
// between pkg/whereami and internal/parser.
package event

import (
	"sort"
	"strings"
	"time"

	"github.com/vrclog/whereami/pkg/whereami/vrcid"
)

// Type represents the type of VRChat log event.
type Type string

const (
	// LeftRoom indicates the local user has left the current room.
	LeftRoom Type = "left_room"

	// JoiningRoom indicates the local user is joining a room.
	JoiningRoom Type = "joining_room"
)

// allTypes is the canonical list of all event types.
var allTypes = []Type{LeftRoom, JoiningRoom}

// TypeNames returns a sorted list of all valid event type names.
// This is the single source of truth for event type enumeration.
func TypeNames() []string {
	names := make([]string, len(allTypes))
	for i, t := range allTypes {
		names[i] = string(t)
	}
	sort.Strings(names)
	return names
}

var typeByName = func() map[string]Type {
	m := make(map[string]Type, len(allTypes))
	for _, t := range allTypes {
		m[string(t)] = t
	}
	return m
}()

// ParseType converts a string to Type if valid.
// It is case-insensitive and trims leading/trailing whitespace.
func ParseType(name string) (Type, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	t, ok := typeByName[name]
	return t, ok
}

// Event represents a parsed VRChat log event.
type Event struct {
	// Type is the event type.
	Type Type `json:"type"`

	// Timestamp is the line's timestamp (local time, as written by VRChat).
	Timestamp time.Time `json:"timestamp"`

	// Room is the room being joined (JoiningRoom only).
	Room *vrcid.RoomID `json:"room,omitempty"`

	// RawLine is the original log line (only included if requested).
	RawLine string `json:"raw_line,omitempty"`
}

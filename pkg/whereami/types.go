package whereami

import (
	"github.com/vrclog/whereami/pkg/whereami/event"
	"github.com/vrclog/whereami/pkg/whereami/vrcid"
)

// Re-export event types for convenience.
// Users can import just "github.com/vrclog/whereami/pkg/whereami"
// and use whereami.Event, whereami.EventJoiningRoom, etc.

// Event represents a parsed VRChat log event.
type Event = event.Event

// EventType represents the type of VRChat log event.
type EventType = event.Type

// RoomID identifies a world instance.
type RoomID = vrcid.RoomID

// Event type constants.
const (
	EventLeftRoom    = event.LeftRoom
	EventJoiningRoom = event.JoiningRoom
)

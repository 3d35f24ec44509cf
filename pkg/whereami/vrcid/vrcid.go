// Package vrcid implements the VRChat identifiers that appear in log lines
// and API responses: world, user, instance and room ids.
//
// All types round-trip through their textual form, so they can be used
// directly as JSON strings and HTTP path segments.
package vrcid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Id prefixes used by VRChat.
const (
	WorldPrefix = "wrld_"
	UserPrefix  = "usr_"
)

// WorldID identifies a world (wrld_<uuid>).
type WorldID struct {
	UUID uuid.UUID
}

// ParseWorldID parses a "wrld_"-prefixed world id.
func ParseWorldID(s string) (WorldID, error) {
	id, err := parsePrefixed(s, WorldPrefix)
	if err != nil {
		return WorldID{}, fmt.Errorf("invalid world id %q: %w", s, err)
	}
	return WorldID{UUID: id}, nil
}

// String returns the canonical wrld_ form with a lower-case hyphenated UUID.
func (w WorldID) String() string {
	return WorldPrefix + w.UUID.String()
}

// MarshalText implements encoding.TextMarshaler.
func (w WorldID) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *WorldID) UnmarshalText(text []byte) error {
	id, err := ParseWorldID(string(text))
	if err != nil {
		return err
	}
	*w = id
	return nil
}

// UserID identifies a user (usr_<uuid>).
type UserID struct {
	UUID uuid.UUID
}

// ParseUserID parses a "usr_"-prefixed user id.
func ParseUserID(s string) (UserID, error) {
	id, err := parsePrefixed(s, UserPrefix)
	if err != nil {
		return UserID{}, fmt.Errorf("invalid user id %q: %w", s, err)
	}
	return UserID{UUID: id}, nil
}

func (u UserID) String() string {
	return UserPrefix + u.UUID.String()
}

// MarshalText implements encoding.TextMarshaler.
func (u UserID) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *UserID) UnmarshalText(text []byte) error {
	id, err := ParseUserID(string(text))
	if err != nil {
		return err
	}
	*u = id
	return nil
}

func parsePrefixed(s, prefix string) (uuid.UUID, error) {
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return uuid.UUID{}, fmt.Errorf("missing %q prefix", prefix)
	}
	return uuid.Parse(rest)
}

// Attribute is one ~key(value) group of an instance id.
type Attribute struct {
	Key   string
	Value string
}

// InstanceID is the part of a room id after the world, e.g.
// "46115~hidden(usr_...)~region(eu)".
type InstanceID struct {
	ID uint32
	// Attributes keeps source order so String reproduces the input.
	Attributes []Attribute
}

// ParseInstanceID parses "<id>(~<key>(<value>))*".
func ParseInstanceID(s string) (InstanceID, error) {
	parts := strings.Split(s, "~")

	id, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return InstanceID{}, fmt.Errorf("invalid instance id %q: %w", parts[0], err)
	}

	inst := InstanceID{ID: uint32(id)}
	for _, part := range parts[1:] {
		key, rest, ok := strings.Cut(part, "(")
		if !ok {
			return InstanceID{}, fmt.Errorf("invalid attribute %q", part)
		}
		value, ok := strings.CutSuffix(rest, ")")
		if !ok {
			return InstanceID{}, fmt.Errorf("invalid attribute value %q", part)
		}
		inst.Attributes = append(inst.Attributes, Attribute{Key: key, Value: value})
	}
	return inst, nil
}

func (i InstanceID) String() string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(uint64(i.ID), 10))
	for _, a := range i.Attributes {
		b.WriteByte('~')
		b.WriteString(a.Key)
		b.WriteByte('(')
		b.WriteString(a.Value)
		b.WriteByte(')')
	}
	return b.String()
}

// Lookup returns the value of the first attribute named key.
func (i InstanceID) Lookup(key string) (string, bool) {
	for _, a := range i.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Equal reports whether i and o name the same instance. Attribute order is
// not significant.
func (i InstanceID) Equal(o InstanceID) bool {
	if i.ID != o.ID || len(i.Attributes) != len(o.Attributes) {
		return false
	}
	counts := make(map[Attribute]int, len(i.Attributes))
	for _, a := range i.Attributes {
		counts[a]++
	}
	for _, a := range o.Attributes {
		if counts[a] == 0 {
			return false
		}
		counts[a]--
	}
	return true
}

// RoomID is a joinable instance of a world: "<world-id>:<instance-id>".
type RoomID struct {
	World    WorldID
	Instance InstanceID
}

// ErrInvalidRoomID is returned when a room id has no world/instance separator.
var ErrInvalidRoomID = errors.New("invalid room id")

// ParseRoomID parses "wrld_<uuid>:<instance-id>".
func ParseRoomID(s string) (RoomID, error) {
	world, instance, ok := strings.Cut(s, ":")
	if !ok {
		return RoomID{}, fmt.Errorf("%w: %q", ErrInvalidRoomID, s)
	}
	w, err := ParseWorldID(world)
	if err != nil {
		return RoomID{}, err
	}
	inst, err := ParseInstanceID(instance)
	if err != nil {
		return RoomID{}, err
	}
	return RoomID{World: w, Instance: inst}, nil
}

func (r RoomID) String() string {
	return r.World.String() + ":" + r.Instance.String()
}

// Equal reports whether r and o name the same room.
func (r RoomID) Equal(o RoomID) bool {
	return r.World == o.World && r.Instance.Equal(o.Instance)
}

// MarshalText implements encoding.TextMarshaler.
func (r RoomID) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RoomID) UnmarshalText(text []byte) error {
	id, err := ParseRoomID(string(text))
	if err != nil {
		return err
	}
	*r = id
	return nil
}

// Package parser turns single VRChat log lines into events.
//
// Parsing is permissive: a line that does not match the grammar simply
// yields no event. The log contains many unrelated channels and messages.
package parser

import (
	"strings"
	"time"
	"unicode"

	"github.com/vrclog/whereami/pkg/whereami/event"
	"github.com/vrclog/whereami/pkg/whereami/vrcid"
)

// Channel is the log source tag carrying room transitions.
const Channel = "Debug"

const (
	// timestampLen covers "YYYY.MM.DD HH:MM:SS " including the trailing space.
	timestampLen = len("YYYY.MM.DD HH:MM:SS ")

	sourceSeparator = "-  "

	msgLeftRoom    = "[Behaviour] Successfully left room"
	msgJoiningRoom = "[Behaviour] Joining "
)

// Parse parses one line, without its CR LF terminator. It returns nil when
// the line is not a recognized event.
func Parse(line string) *event.Event {
	if len(line) < timestampLen {
		return nil
	}
	ts, ok := ParseTimestamp(line[:timestampLen])
	if !ok {
		return nil
	}

	source, message, ok := strings.Cut(line[timestampLen:], sourceSeparator)
	if !ok {
		return nil
	}
	if strings.TrimRightFunc(source, unicode.IsSpace) != Channel {
		return nil
	}

	if message == msgLeftRoom {
		return &event.Event{Type: event.LeftRoom, Timestamp: ts}
	}
	if rest, ok := strings.CutPrefix(message, msgJoiningRoom); ok {
		room, err := vrcid.ParseRoomID(rest)
		if err != nil {
			return nil
		}
		return &event.Event{Type: event.JoiningRoom, Timestamp: ts, Room: &room}
	}
	return nil
}

// ParseTimestamp parses the "YYYY.MM.DD HH:MM:SS " line prefix (trailing
// space required) as local time.
func ParseTimestamp(s string) (time.Time, bool) {
	if len(s) != timestampLen {
		return time.Time{}, false
	}
	if s[4] != '.' || s[7] != '.' || s[10] != ' ' ||
		s[13] != ':' || s[16] != ':' || s[19] != ' ' {
		return time.Time{}, false
	}
	return DateTime(time.Local, s[0:4], s[5:7], s[8:10], s[11:13], s[14:16], s[17:19])
}

// DateTime builds a time in loc from decimal fields, rejecting anything that
// is not a real calendar date and wall-clock time in loc (month 13, Feb 30,
// hour 24, or a local time skipped by a DST transition).
func DateTime(loc *time.Location, year, month, day, hour, min, sec string) (time.Time, bool) {
	var f [6]int
	for i, s := range [6]string{year, month, day, hour, min, sec} {
		n, ok := atoi(s)
		if !ok {
			return time.Time{}, false
		}
		f[i] = n
	}
	if f[1] < 1 || f[1] > 12 || f[2] < 1 || f[3] > 23 || f[4] > 59 || f[5] > 59 {
		return time.Time{}, false
	}
	t := time.Date(f[0], time.Month(f[1]), f[2], f[3], f[4], f[5], 0, loc)
	// time.Date normalizes overflowing days and DST gaps instead of failing
	if t.Day() != f[2] || t.Hour() != f[3] || t.Minute() != f[4] {
		return time.Time{}, false
	}
	return t, true
}

// atoi accepts ASCII digits only.
func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

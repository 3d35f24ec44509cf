package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/vrclog/whereami/pkg/whereami"
)

// ValidFormats lists the accepted --format values.
var ValidFormats = map[string]bool{
	"jsonl":  true,
	"pretty": true,
}

var (
	timeColor  = color.New(color.Faint)
	joinColor  = color.New(color.FgGreen)
	leftColor  = color.New(color.FgYellow)
	rawColor   = color.New(color.Faint)
	prettyTime = "2006-01-02 15:04:05"
)

// OutputEvent writes ev to w in the given format.
func OutputEvent(format string, ev whereami.Event, w io.Writer) error {
	switch format {
	case "jsonl":
		return OutputJSON(ev, w)
	case "pretty":
		return OutputPretty(ev, w)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// OutputJSON writes ev as a single JSON line.
func OutputJSON(ev whereami.Event, w io.Writer) error {
	return json.NewEncoder(w).Encode(ev)
}

// OutputPretty writes ev in a human-readable, optionally coloured form.
func OutputPretty(ev whereami.Event, w io.Writer) error {
	if _, err := timeColor.Fprintf(w, "[%s] ", ev.Timestamp.Format(prettyTime)); err != nil {
		return err
	}

	var err error
	switch ev.Type {
	case whereami.EventJoiningRoom:
		room := "?"
		if ev.Room != nil {
			room = ev.Room.String()
		}
		_, err = joinColor.Fprintf(w, "> Joining %s", room)
	case whereami.EventLeftRoom:
		_, err = leftColor.Fprint(w, "< Left room")
	default:
		_, err = fmt.Fprintf(w, "%s", ev.Type)
	}
	if err != nil {
		return err
	}

	if ev.RawLine != "" {
		if _, err := rawColor.Fprintf(w, "\n    %s", ev.RawLine); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w)
	return err
}

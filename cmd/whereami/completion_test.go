package main

import (
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestCompleteEventTypes(t *testing.T) {
	tests := []struct {
		name       string
		toComplete string
		flagVals   []string
		want       []string
	}{
		{name: "empty input returns all types", toComplete: "", want: []string{"joining_room", "left_room"}},
		{name: "prefix", toComplete: "jo", want: []string{"joining_room"}},
		{name: "comma prefix preserves typed values", toComplete: "left_room,jo", want: []string{"left_room,joining_room"}},
		{name: "empty after comma returns remaining types", toComplete: "left_room,", want: []string{"left_room,joining_room"}},
		{name: "excludes values from flag", toComplete: "", flagVals: []string{"left_room"}, want: []string{"joining_room"}},
		{name: "case insensitive matching", toComplete: "LE", want: []string{"left_room"}},
		{name: "trims whitespace", toComplete: "  le  ", want: []string{"left_room"}},
		{name: "no match returns empty", toComplete: "xyz", want: nil},
		{name: "all types used returns empty", toComplete: "left_room,joining_room,", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.Flags().StringSlice("include-types", nil, "")
			if tt.flagVals != nil {
				if err := cmd.Flags().Set("include-types", strings.Join(tt.flagVals, ",")); err != nil {
					t.Fatalf("failed to set flag: %v", err)
				}
			}

			got, dir := completeEventTypes("include-types")(cmd, nil, tt.toComplete)

			if want := cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp; dir != want {
				t.Errorf("directive = %v, want %v", dir, want)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("candidates = %v, want %v", got, tt.want)
			}
		})
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vrclog/whereami/pkg/whereami"
)

var (
	// parse flags
	parseTypes       typeFlags
	parseSince       string
	parseUntil       string
	parseFormat      string
	parseRaw         bool
	parseStopOnError bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [files...]",
	Short: "Parse VRChat log files (batch mode)",
	Long: `Parse all VRChat log files in a directory and output room events.

Unlike 'events', this command processes historical files without
real-time following. It reads all matching log files in chronological
order.

Examples:
  # Parse all logs in auto-detected directory
  whereami parse

  # Filter by time range
  whereami parse --since "2024-01-15T12:00:00Z" --until "2024-01-16T00:00:00Z"

  # Every room visited
  whereami parse --include-types joining_room --format pretty

  # Parse specific files
  whereami parse output_log_2024-01-15_12-00-00.txt`,
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseSince, "since", "",
		"Only events at/after timestamp (RFC3339 format, e.g., 2024-01-15T12:00:00Z)")
	parseCmd.Flags().StringVar(&parseUntil, "until", "",
		"Only events before timestamp (RFC3339 format)")
	parseCmd.Flags().StringVarP(&parseFormat, "format", "f", "jsonl",
		"Output format: jsonl, pretty")
	parseCmd.Flags().BoolVar(&parseRaw, "raw", false,
		"Include raw log lines in output")
	parseCmd.Flags().BoolVar(&parseStopOnError, "stop-on-error", false,
		"Stop on first error instead of skipping")
	parseTypes.register(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	if !ValidFormats[parseFormat] {
		return fmt.Errorf("invalid format %q: must be one of: jsonl, pretty", parseFormat)
	}

	includes, excludes, err := parseTypes.resolve()
	if err != nil {
		return err
	}

	sinceTime, untilTime, err := parseTimeRange(parseSince, parseUntil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []whereami.ParseDirOption{
		whereami.WithDirLogDir(cfg.LogsPath),
		whereami.WithDirIncludeRawLine(parseRaw),
		whereami.WithDirStopOnError(parseStopOnError),
	}
	if len(args) > 0 {
		opts = append(opts, whereami.WithDirPaths(args...))
	}
	if len(includes) > 0 {
		opts = append(opts, whereami.WithDirIncludeTypes(includes...))
	}
	if len(excludes) > 0 {
		opts = append(opts, whereami.WithDirExcludeTypes(excludes...))
	}
	if !sinceTime.IsZero() || !untilTime.IsZero() {
		opts = append(opts, whereami.WithDirTimeRange(sinceTime, untilTime))
	}

	out := cmd.OutOrStdout()
	for ev, err := range whereami.ParseDir(ctx, opts...) {
		if err != nil {
			// Ctrl+C: exit silently
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("parse error: %w", err)
		}

		if err := OutputEvent(parseFormat, ev, out); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}

	return nil
}

// parseTimeRange parses since and until strings into time.Time values.
func parseTimeRange(since, until string) (time.Time, time.Time, error) {
	var sinceTime, untilTime time.Time
	var err error

	if since != "" {
		sinceTime, err = time.Parse(time.RFC3339, since)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --since format: %w (expected RFC3339, e.g., 2024-01-15T12:00:00Z)", err)
		}
	}

	if until != "" {
		untilTime, err = time.Parse(time.RFC3339, until)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --until format: %w (expected RFC3339, e.g., 2024-01-15T12:00:00Z)", err)
		}
	}

	if !sinceTime.IsZero() && !untilTime.IsZero() && sinceTime.After(untilTime) {
		return time.Time{}, time.Time{}, fmt.Errorf("--since must be before --until")
	}

	return sinceTime, untilTime, nil
}

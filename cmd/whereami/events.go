package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vrclog/whereami/pkg/whereami"
)

var (
	// events flags
	eventsFormat string
	eventsTypes  typeFlags
	eventsRaw    bool
	eventsSince  string
)

var eventsCmd = &cobra.Command{
	Use:     "events",
	Aliases: []string{"tail"},
	Short:   "Follow VRChat logs and output room events",
	Long: `Follow the newest VRChat log file in real-time and output room events.

The newest file is read from its start, and whenever VRChat starts a
newer log file the output switches to it.

Events are output as JSON Lines by default (one JSON object per line),
which makes it easy to process with tools like jq.

Examples:
  # Follow with default settings (auto-detect log directory)
  whereami events

  # Specify log directory
  whereami events --log-dir "C:\Users\me\AppData\LocalLow\VRChat\VRChat"

  # Only room joins
  whereami events --include-types joining_room

  # Human-readable output, skipping what happened before a point in time
  whereami events --format pretty --since 2024-01-15T12:00:00Z

  # Pipe to jq for filtering
  whereami events | jq -r 'select(.type == "joining_room") | .room'`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().StringVarP(&eventsFormat, "format", "f", "jsonl",
		"Output format: jsonl, pretty")
	eventsCmd.Flags().BoolVar(&eventsRaw, "raw", false,
		"Include raw log lines in output")
	eventsCmd.Flags().StringVar(&eventsSince, "since", "",
		"Drop events before timestamp (RFC3339 format, e.g., 2024-01-15T12:00:00Z)")
	eventsTypes.register(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	if !ValidFormats[eventsFormat] {
		return fmt.Errorf("invalid format %q: must be one of: jsonl, pretty", eventsFormat)
	}

	includes, excludes, err := eventsTypes.resolve()
	if err != nil {
		return err
	}

	watchOpts := []whereami.WatchOption{
		whereami.WithLogDir(cfg.LogsPath),
		whereami.WithPollInterval(cfg.PollInterval),
		whereami.WithLogger(logger),
		whereami.WithFilter(includes, excludes),
		whereami.WithIncludeRawLine(eventsRaw),
	}
	if eventsSince != "" {
		t, err := time.Parse(time.RFC3339, eventsSince)
		if err != nil {
			return fmt.Errorf("invalid --since format: %w", err)
		}
		watchOpts = append(watchOpts, whereami.WithSince(t))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher, err := whereami.NewWatcher(watchOpts...)
	if err != nil {
		return err
	}
	defer watcher.Close()

	logger.Debug("following VRChat logs", "dir", watcher.LogDir())

	events, errs, err := watcher.Watch(ctx)
	if err != nil {
		return err
	}

	return printEvents(ctx, events, errs, eventsFormat, cmd.OutOrStdout())
}

// printEvents writes events until the context ends or the watcher fails.
// Watcher errors are fatal: the channels close right after one is sent.
func printEvents(ctx context.Context, events <-chan whereami.Event, errs <-chan error, format string, w io.Writer) error {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				if errs == nil {
					return nil
				}
				continue
			}
			if err := OutputEvent(format, ev, w); err != nil {
				return fmt.Errorf("output error: %w", err)
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				if events == nil {
					return nil
				}
				continue
			}
			return err

		case <-ctx.Done():
			return nil
		}
	}
}

package main

import (
	"fmt"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vrclog/whereami/internal/logfinder"
	"github.com/vrclog/whereami/internal/tailer"
	"github.com/vrclog/whereami/pkg/whereami"
)

var (
	// follow flags
	followFormat    string
	followTypes     typeFlags
	followRaw       bool
	followPoll      bool
	followFromStart bool
)

var followCmd = &cobra.Command{
	Use:   "follow [FILE]",
	Short: "Follow a single log file (tail -F)",
	Long: `Follow one named log file and output room events.

Unlike 'events', no directory is watched: the named file is followed
even when it is truncated or re-created, and newer log files are
ignored. Useful for copies of logs or files on network shares.
Without FILE the newest log file in the log directory is followed.

Examples:
  whereami follow output_log_2024-01-15_12-00-00.txt

  # Only new lines, polling instead of file notifications
  whereami follow --from-start=false --poll /mnt/share/output_log.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFollow,
}

func init() {
	followCmd.Flags().StringVarP(&followFormat, "format", "f", "jsonl",
		"Output format: jsonl, pretty")
	followCmd.Flags().BoolVar(&followRaw, "raw", false,
		"Include raw log lines in output")
	followCmd.Flags().BoolVar(&followPoll, "poll", false,
		"Poll for changes instead of using file notifications")
	followCmd.Flags().BoolVar(&followFromStart, "from-start", true,
		"Read the file from its beginning")
	followTypes.register(followCmd)
}

func runFollow(cmd *cobra.Command, args []string) error {
	if !ValidFormats[followFormat] {
		return fmt.Errorf("invalid format %q: must be one of: jsonl, pretty", followFormat)
	}

	includes, excludes, err := followTypes.resolve()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fc := tailer.DefaultFollowConfig()
	fc.Poll = followPoll
	fc.FromStart = followFromStart

	path, err := followPath(args)
	if err != nil {
		return err
	}
	logger.Debug("following file", "path", path)

	f, err := tailer.Follow(ctx, path, fc)
	if err != nil {
		return err
	}
	defer f.Stop()

	out := cmd.OutOrStdout()
	lines, errs := f.Lines(), f.Errors()
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			ev := whereami.ParseLine(line)
			if ev == nil || !typeAllowed(ev.Type, includes, excludes) {
				continue
			}
			if followRaw {
				ev.RawLine = line
			}
			if err := OutputEvent(followFormat, *ev, out); err != nil {
				return fmt.Errorf("output error: %w", err)
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("following file", "path", path, "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}

// followPath returns the named file, or the newest log file.
func followPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	dir, err := logfinder.FindLogDir(cfg.LogsPath)
	if err != nil {
		return "", err
	}
	return logfinder.FindLatestLogFile(dir)
}

// typeAllowed reports whether t passes the include and exclude lists.
func typeAllowed(t whereami.EventType, includes, excludes []whereami.EventType) bool {
	if len(includes) > 0 && !slices.Contains(includes, t) {
		return false
	}
	return !slices.Contains(excludes, t)
}

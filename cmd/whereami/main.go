package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vrclog/whereami/internal/config"
	"github.com/vrclog/whereami/internal/logging"
)

var (
	// Version information (set by ldflags)
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	verbose    bool
	configPath string

	// Set up before every command by loadConfig.
	settings  = config.New()
	cfg       *config.Config
	logger    = slog.New(slog.DiscardHandler)
	logCloser io.Closer
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "whereami",
	Short: "Show which VRChat world you are in",
	Long: `whereami follows the VRChat log and tracks the room you are in.

'whereami serve' publishes the current world and instance for stream
overlays (OBS browser sources) over HTTP, server-sent events and
WebSocket. The other commands print room events from live or past logs.

Settings are read from where-am-i.toml in the working directory and can
be overridden with WHEREAMI_* environment variables and flags.

This is an unofficial tool and is not affiliated with VRChat Inc.`,
	SilenceUsage:      true, // Don't show usage on error
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func init() {
	// Global flags (inherited by all subcommands)
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose logging")
	flags.StringVarP(&configPath, "config", "c", "",
		"Configuration file (default: ./"+config.FileName+" if present)")
	flags.StringP("log-dir", "d", "",
		"VRChat log directory (auto-detected if not specified)")
	flags.String("log-file", "",
		"Also write diagnostics to this file, rotated by size")

	_ = settings.BindPFlag(config.KeyLogsPath, flags.Lookup("log-dir"))
	_ = settings.BindPFlag(config.KeyLogFile, flags.Lookup("log-file"))

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the configuration and builds the logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(settings, configPath)
	if err != nil {
		return err
	}
	cfg = c

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	l, closer, err := logging.New(os.Stderr, logging.Options{
		Level:      level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return err
	}
	logger, logCloser = l, closer
	slog.SetDefault(logger)
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "whereami %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

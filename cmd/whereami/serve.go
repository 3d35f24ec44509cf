package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vrclog/whereami/internal/config"
	"github.com/vrclog/whereami/internal/location"
	"github.com/vrclog/whereami/internal/server"
	"github.com/vrclog/whereami/internal/vrcapi"
	"github.com/vrclog/whereami/pkg/whereami"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Track the current room and serve it over HTTP",
	Long: `Follow the VRChat log and publish the current location.

Endpoints:
  /api/status                  server-sent events with the location as JSON
  /api/ws                      the same documents over WebSocket
  /api/world/current/info.txt  "<name>" by <author>: <world page>
  /api/room/current/link.txt   link that launches the current instance
  /api/world/{world}/image     world image
  /metrics                     Prometheus metrics

Everything else is served from the content directory.

Examples:
  # Serve on the default address
  whereami serve

  # Serve an overlay from ./overlay on all interfaces
  whereami serve --address 0.0.0.0:37544 --content overlay`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("address", "", "Listen address (default 127.0.0.1:37544)")
	serveCmd.Flags().String("content", "", "Static content directory (default static)")
	serveCmd.Flags().String("cache", "", "Metadata cache directory (default cache)")

	_ = settings.BindPFlag(config.KeyAddress, serveCmd.Flags().Lookup("address"))
	_ = settings.BindPFlag(config.KeyContent, serveCmd.Flags().Lookup("content"))
	_ = settings.BindPFlag(config.KeyCache, serveCmd.Flags().Lookup("cache"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher, err := whereami.NewWatcher(
		whereami.WithLogDir(cfg.LogsPath),
		whereami.WithPollInterval(cfg.PollInterval),
		whereami.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer watcher.Close()

	cache, err := vrcapi.OpenCache(cfg.Cache)
	if err != nil {
		return err
	}
	defer cache.Close()
	if n, err := cache.Prune(ctx); err != nil {
		logger.Warn("pruning metadata cache", "error", err)
	} else if n > 0 {
		logger.Debug("pruned metadata cache", "entries", n)
	}

	api := vrcapi.New(
		vrcapi.WithBaseURL(cfg.API.BaseURL),
		vrcapi.WithCookie(cfg.API.Cookie),
		vrcapi.WithRate(cfg.API.Rate),
		vrcapi.WithMaxRetries(cfg.API.MaxRetries),
		vrcapi.WithCache(cache, cfg.API.CacheTTL),
		vrcapi.WithLogger(logger),
	)

	store := location.NewStore()
	tracker := location.NewTracker(store, api, logger)
	srv := server.New(store, api,
		server.WithContentDir(cfg.Content),
		server.WithLogger(logger),
	)

	ln, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return fmt.Errorf("network bind error: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	events, errs, err := watcher.Watch(ctx)
	if err != nil {
		_ = ln.Close()
		return err
	}

	logger.Info("following VRChat logs", "dir", watcher.LogDir())
	fmt.Fprintf(cmd.OutOrStdout(), "Add an OBS browser source for http://%s\n", ln.Addr())

	g.Go(func() error {
		err := tracker.Run(ctx, events, errs)
		if ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled)) {
			return nil
		}
		if err == nil {
			return errors.New("log watcher stopped")
		}
		return fmt.Errorf("log watcher: %w", err)
	})
	g.Go(func() error {
		return srv.Serve(ctx, ln)
	})

	return g.Wait()
}

// Package server republishes the current location over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vrclog/whereami/internal/location"
	"github.com/vrclog/whereami/internal/metrics"
	"github.com/vrclog/whereami/internal/vrcapi"
	"github.com/vrclog/whereami/pkg/whereami/vrcid"
)

const (
	notAvailable = "N/A"
	worldPageURL = "https://vrchat.com/home/world/"
	launchURL    = "https://vrchat.com/home/launch"

	writeTimeout    = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// ImageSource fetches world images.
type ImageSource interface {
	GetWorldImage(ctx context.Context, world vrcid.WorldID) (*vrcapi.Image, error)
}

// Server serves the location API and the overlay content.
type Server struct {
	store   *location.Store
	images  ImageSource
	content string
	logger  *slog.Logger
	mux     *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithContentDir serves static files from dir for unmatched paths.
func WithContentDir(dir string) Option {
	return func(s *Server) {
		s.content = dir
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a Server reading store and fetching images from images.
func New(store *location.Store, images ImageSource, opts ...Option) *Server {
	s := &Server{
		store:  store,
		images: images,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/ws", s.handleWebSocket)
	s.mux.HandleFunc("GET /api/world/current/info.txt", s.handleCurrentWorldInfo)
	s.mux.HandleFunc("GET /api/world/{world}/image", s.handleWorldImage)
	s.mux.HandleFunc("GET /api/room/current/link.txt", s.handleCurrentRoomLink)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	if s.content != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.content)))
	} else {
		s.mux.Handle("/", http.NotFoundHandler())
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
}

// Serve accepts connections on ln until ctx is done, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// handleStatus streams the location as server-sent events: the current
// value first, then one event per change.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")

	clients := metrics.StreamClients.WithLabelValues("sse")
	clients.Inc()
	defer clients.Dec()

	loc, changed := s.store.Load()
	for {
		data, err := json.Marshal(loc)
		if err != nil {
			s.logger.Error("encoding location", "error", err)
			return
		}
		if _, err := fmt.Fprintf(w, "event: location\ndata: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()

		select {
		case <-r.Context().Done():
			return
		case <-changed:
		}
		loc, changed = s.store.Load()
	}
}

// handleWebSocket sends the same JSON documents as handleStatus, one text
// message per change. Client messages are ignored.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()

	clients := metrics.StreamClients.WithLabelValues("websocket")
	clients.Inc()
	defer clients.Dec()

	ctx := conn.CloseRead(r.Context())

	loc, changed := s.store.Load()
	for {
		data, err := json.Marshal(loc)
		if err != nil {
			s.logger.Error("encoding location", "error", err)
			_ = conn.Close(websocket.StatusInternalError, "encoding error")
			return
		}
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err = conn.Write(writeCtx, websocket.MessageText, data)
		cancel()
		if err != nil {
			return
		}

		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-changed:
		}
		loc, changed = s.store.Load()
	}
}

func (s *Server) handleWorldImage(w http.ResponseWriter, r *http.Request) {
	world, err := vrcid.ParseWorldID(r.PathValue("world"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	img, err := s.images.GetWorldImage(r.Context(), world)
	if errors.Is(err, vrcapi.ErrNoImage) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("image download error", "world", world, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if img.ContentType != "" {
		w.Header().Set("Content-Type", img.ContentType)
	}
	_, _ = w.Write(img.Data)
}

func (s *Server) handleCurrentWorldInfo(w http.ResponseWriter, r *http.Request) {
	loc, _ := s.store.Load()
	writeText(w, worldInfo(loc))
}

func (s *Server) handleCurrentRoomLink(w http.ResponseWriter, r *http.Request) {
	loc, _ := s.store.Load()
	if loc == nil {
		writeText(w, notAvailable)
		return
	}
	writeText(w, RoomLink(loc.RoomID))
}

// worldInfo renders `"<name>" by <author>: <world page>`.
func worldInfo(loc *location.Location) string {
	if loc == nil {
		return notAvailable
	}
	page := worldPageURL + loc.WorldID.String()
	if loc.World == nil {
		return page
	}
	return `"` + orNA(loc.World.Name) + `" by ` + orNA(loc.World.AuthorName) + ": " + page
}

// RoomLink returns the web link that launches room.
func RoomLink(room vrcid.RoomID) string {
	return launchURL +
		"?worldId=" + url.QueryEscape(room.World.String()) +
		"&instanceId=" + url.QueryEscape(room.Instance.String())
}

func orNA(s *string) string {
	if s == nil {
		return notAvailable
	}
	return *s
}

func writeText(w http.ResponseWriter, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, s)
}

// Package location keeps the user's current room, fed by log events.
package location

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vrclog/whereami/internal/vrcapi"
	"github.com/vrclog/whereami/pkg/whereami/event"
	"github.com/vrclog/whereami/pkg/whereami/vrcid"
)

// Location is the room the user is in, with world metadata when it could
// be resolved.
type Location struct {
	RoomID  vrcid.RoomID  `json:"roomId"`
	WorldID vrcid.WorldID `json:"worldId"`
	World   *vrcapi.World `json:"world"`
}

// Store holds the latest location. Readers wait for changes through the
// channel returned by Load.
type Store struct {
	mu      sync.Mutex
	cur     *Location
	changed chan struct{}
}

// NewStore returns a store with no location.
func NewStore() *Store {
	return &Store{changed: make(chan struct{})}
}

// Load returns the current location, nil when not in a room, and a channel
// that is closed at the next Set.
func (s *Store) Load() (*Location, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur, s.changed
}

// Set replaces the current location and wakes all waiters.
func (s *Store) Set(loc *Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = loc
	close(s.changed)
	s.changed = make(chan struct{})
}

// WorldResolver looks up world metadata.
type WorldResolver interface {
	GetWorld(ctx context.Context, world vrcid.WorldID) (*vrcapi.World, error)
}

// Tracker applies log events to a Store.
type Tracker struct {
	store  *Store
	worlds WorldResolver
	logger *slog.Logger
}

// NewTracker returns a Tracker updating store. worlds may be nil, in which
// case locations carry no metadata.
func NewTracker(store *Store, worlds WorldResolver, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracker{store: store, worlds: worlds, logger: logger}
}

// Run consumes events until the stream ends or ctx is done. An error
// received on errs ends Run with that error; the store keeps its last value.
func (t *Tracker) Run(ctx context.Context, events <-chan event.Event, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			return err
		case ev, ok := <-events:
			if !ok {
				// The error, if any, is sent before the events close.
				if errs != nil {
					if err, ok := <-errs; ok {
						return err
					}
				}
				return nil
			}
			t.apply(ctx, ev)
		}
	}
}

func (t *Tracker) apply(ctx context.Context, ev event.Event) {
	t.logger.Debug("got event", "type", ev.Type, "timestamp", ev.Timestamp)

	switch ev.Type {
	case event.LeftRoom:
		t.store.Set(nil)
	case event.JoiningRoom:
		if ev.Room == nil {
			return
		}
		room := *ev.Room
		t.store.Set(&Location{
			RoomID:  room,
			WorldID: room.World,
			World:   t.resolve(ctx, room.World),
		})
	}
}

func (t *Tracker) resolve(ctx context.Context, world vrcid.WorldID) *vrcapi.World {
	if t.worlds == nil {
		return nil
	}
	w, err := t.worlds.GetWorld(ctx, world)
	if err != nil {
		t.logger.Error("world info error", "world", world, "error", err)
		return nil
	}
	return w
}

package location

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrclog/whereami/internal/vrcapi"
	"github.com/vrclog/whereami/pkg/whereami/event"
	"github.com/vrclog/whereami/pkg/whereami/vrcid"
)

const testRoom = "wrld_900dd077-1337-c0fe-babe-71de05ea12c4:46115~region(eu)"

type fakeWorlds struct {
	world *vrcapi.World
	err   error
	calls int
}

func (f *fakeWorlds) GetWorld(ctx context.Context, world vrcid.WorldID) (*vrcapi.World, error) {
	f.calls++
	return f.world, f.err
}

func room(t *testing.T) *vrcid.RoomID {
	t.Helper()
	r, err := vrcid.ParseRoomID(testRoom)
	require.NoError(t, err)
	return &r
}

func strptr(s string) *string { return &s }

// feed runs the tracker over evs and returns Run's result.
func feed(t *testing.T, tr *Tracker, evs []event.Event, fatal error) error {
	t.Helper()
	events := make(chan event.Event, len(evs))
	errs := make(chan error, 1)
	for _, ev := range evs {
		events <- ev
	}
	if fatal != nil {
		errs <- fatal
	}
	close(errs)
	close(events)
	return tr.Run(context.Background(), events, errs)
}

func TestStore_LoadWaitsForSet(t *testing.T) {
	s := NewStore()
	loc, changed := s.Load()
	assert.Nil(t, loc)

	select {
	case <-changed:
		t.Fatal("changed closed before Set")
	default:
	}

	want := &Location{}
	s.Set(want)

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("changed not closed after Set")
	}
	got, next := s.Load()
	assert.Same(t, want, got)
	assert.NotEqual(t, changed, next)
}

func TestTracker_JoinResolvesWorld(t *testing.T) {
	store := NewStore()
	worlds := &fakeWorlds{world: &vrcapi.World{Name: strptr("Test World")}}
	tr := NewTracker(store, worlds, nil)

	err := feed(t, tr, []event.Event{{Type: event.JoiningRoom, Room: room(t)}}, nil)
	require.NoError(t, err)

	loc, _ := store.Load()
	require.NotNil(t, loc)
	assert.Equal(t, testRoom, loc.RoomID.String())
	assert.Equal(t, "wrld_900dd077-1337-c0fe-babe-71de05ea12c4", loc.WorldID.String())
	require.NotNil(t, loc.World)
	assert.Equal(t, "Test World", *loc.World.Name)
	assert.Equal(t, 1, worlds.calls)
}

func TestTracker_ResolveFailureKeepsLocation(t *testing.T) {
	store := NewStore()
	tr := NewTracker(store, &fakeWorlds{err: errors.New("offline")}, nil)

	require.NoError(t, feed(t, tr, []event.Event{{Type: event.JoiningRoom, Room: room(t)}}, nil))

	loc, _ := store.Load()
	require.NotNil(t, loc)
	assert.Nil(t, loc.World)
}

func TestTracker_LeftClears(t *testing.T) {
	store := NewStore()
	tr := NewTracker(store, nil, nil)

	require.NoError(t, feed(t, tr, []event.Event{
		{Type: event.JoiningRoom, Room: room(t)},
		{Type: event.LeftRoom},
	}, nil))

	loc, _ := store.Load()
	assert.Nil(t, loc)
}

func TestTracker_FatalErrorFreezesState(t *testing.T) {
	store := NewStore()
	tr := NewTracker(store, nil, nil)
	boom := errors.New("boom")

	err := feed(t, tr, []event.Event{{Type: event.JoiningRoom, Room: room(t)}}, boom)
	assert.ErrorIs(t, err, boom)

	// Either order of delivery leaves the store untouched by the error.
	loc, _ := store.Load()
	if loc != nil {
		assert.Equal(t, testRoom, loc.RoomID.String())
	}
}

func TestTracker_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewTracker(NewStore(), nil, nil)
	err := tr.Run(ctx, make(chan event.Event), make(chan error))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocation_JSON(t *testing.T) {
	loc := Location{RoomID: *room(t), WorldID: room(t).World}

	data, err := json.Marshal(loc)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"roomId": "`+testRoom+`",
		"worldId": "wrld_900dd077-1337-c0fe-babe-71de05ea12c4",
		"world": null
	}`, string(data))

	loc.World = &vrcapi.World{Name: strptr("W")}
	data, err = json.Marshal(loc)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"roomId": "`+testRoom+`",
		"worldId": "wrld_900dd077-1337-c0fe-babe-71de05ea12c4",
		"world": {
			"authorId": null,
			"authorName": null,
			"description": null,
			"imageUrl": null,
			"name": "W",
			"thumbnailImageUrl": null
		}
	}`, string(data))
}

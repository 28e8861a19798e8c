package types

import (
	"testing"

	"github.com/glachaux/reunion-rooms/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRoomStateIsFresh(t *testing.T) {
	a := DefaultRoomState()
	b := DefaultRoomState()
	a.Members["lea"] = true
	assert.Empty(t, b.Members, "defaults must not alias between calls")
	assert.Equal(t, "Notre lieu de retrouvailles", b.Meet.PlaceName)
	assert.NotNil(t, b.Playlist)
	assert.NotZero(t, b.CreatedAt)
}

func TestDefaultRoomStateSeedsWatchlist(t *testing.T) {
	a := DefaultRoomState()
	require.Len(t, a.Movies, len(content.DefaultMovies))
	for i, title := range content.DefaultMovies {
		assert.Equal(t, title, a.Movies[i].Title)
		assert.False(t, a.Movies[i].Done)
	}
	// the seeded list does not alias between rooms
	a.Movies[0].Done = true
	assert.False(t, DefaultRoomState().Movies[0].Done)
}

func TestMergeDefaults(t *testing.T) {
	r := RoomState{TargetISO: "2026-03-07T12:00:00+01:00"}
	r.MergeDefaults()
	assert.NotNil(t, r.Playlist)
	assert.NotNil(t, r.Todos)
	assert.Len(t, r.Movies, len(content.DefaultMovies), "a document without a watchlist gets the seeded one")
	assert.NotNil(t, r.CustomMovies)
	assert.NotNil(t, r.RestRanges)
	assert.NotNil(t, r.Members)
	assert.Equal(t, "Notre lieu de retrouvailles", r.Meet.PlaceName)
	assert.NotZero(t, r.CreatedAt)
	// does not overwrite what is already there
	assert.Equal(t, "2026-03-07T12:00:00+01:00", r.TargetISO)

	// a deliberately emptied watchlist stays empty
	emptied := RoomState{Movies: []MovieItem{}}
	emptied.MergeDefaults()
	assert.Empty(t, emptied.Movies)
}

func TestClone(t *testing.T) {
	r := DefaultRoomState()
	r.Playlist = append(r.Playlist, PlaylistEntry{DateKey: "2026-03-01", Who: "lea", Title: "a song"})
	r.Members["lea"] = true
	c := r.Clone()
	c.Playlist[0].Title = "changed"
	c.Members["gauthier"] = true
	assert.Equal(t, "a song", r.Playlist[0].Title)
	assert.False(t, r.Members["gauthier"])
}

func TestRoomPatchApplyTo(t *testing.T) {
	r := DefaultRoomState()
	r.LastDailyNotify = "2026-03-01"

	target := "2026-03-07T12:00:00+01:00"
	todos := []TodoItem{{Text: "valise", Done: false}}
	p := &RoomPatch{TargetISO: &target, Todos: &todos}
	p.ApplyTo(&r)

	assert.Equal(t, target, r.TargetISO)
	assert.Equal(t, todos, r.Todos)
	// untouched fields survive
	assert.Equal(t, "2026-03-01", r.LastDailyNotify)

	// nil patch is a no-op
	var nilPatch *RoomPatch
	nilPatch.ApplyTo(&r)
	assert.Equal(t, target, r.TargetISO)
}

func TestRoomDocumentRoundTrip(t *testing.T) {
	r := DefaultRoomState()
	r.Owner = "lea"
	doc := RoomDocument(r)
	val, err := doc.Value()
	require.NoError(t, err)

	var scanned RoomDocument
	require.NoError(t, scanned.Scan(val))
	assert.Equal(t, "lea", RoomState(scanned).Owner)

	assert.Error(t, scanned.Scan(12345))
}

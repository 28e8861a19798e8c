package persistence

import (
	"sync"
	"testing"

	"github.com/glachaux/reunion-rooms/config"
	"github.com/glachaux/reunion-rooms/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemPersister(t *testing.T) Persister {
	t.Helper()
	cfg := &config.Config{}
	cfg.PersistenceConfig.Type = "buntdb"
	cfg.PersistenceConfig.BuntDBConfig.Name = ":memory:"
	p, err := NewPersister(cfg)
	require.NoError(t, err)
	require.NotNil(t, p)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestNewPersisterUnconfigured(t *testing.T) {
	p, err := NewPersister(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, p)

	cfg := &config.Config{}
	cfg.PersistenceConfig.Type = "does-not-exist"
	_, err = NewPersister(cfg)
	assert.Error(t, err)
}

func TestRoomCRUD(t *testing.T) {
	p := newMemPersister(t)

	_, err := p.GetRoom("abcd2345")
	assert.Equal(t, ErrRoomNotFound, err)

	room := types.DefaultRoomState()
	room.Owner = "lea"
	require.NoError(t, p.StoreRoom("abcd2345", room))

	got, err := p.GetRoom("abcd2345")
	require.NoError(t, err)
	assert.Equal(t, "lea", got.Owner)

	rooms, err := p.GetRooms()
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Contains(t, rooms, "abcd2345")

	require.NoError(t, p.DeleteRoom("abcd2345"))
	_, err = p.GetRoom("abcd2345")
	assert.Equal(t, ErrRoomNotFound, err)
}

func TestInsertRoom(t *testing.T) {
	p := newMemPersister(t)
	room := types.DefaultRoomState()
	room.Owner = "lea"
	require.NoError(t, p.InsertRoom("abcd2345", room))

	other := types.DefaultRoomState()
	other.Owner = "intrus"
	assert.Equal(t, ErrRoomExists, p.InsertRoom("abcd2345", other))

	got, err := p.GetRoom("abcd2345")
	require.NoError(t, err)
	assert.Equal(t, "lea", got.Owner, "a colliding insert must not overwrite")
}

func TestUpdateRoom(t *testing.T) {
	p := newMemPersister(t)
	room := types.DefaultRoomState()
	require.NoError(t, p.StoreRoom("abcd2345", room))

	before, after, err := p.UpdateRoom("abcd2345", func(r *types.RoomState) error {
		r.Owner = "lea"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "", before.Owner)
	assert.Equal(t, "lea", after.Owner)

	got, err := p.GetRoom("abcd2345")
	require.NoError(t, err)
	assert.Equal(t, "lea", got.Owner)

	_, _, err = p.UpdateRoom("missing1", func(r *types.RoomState) error { return nil })
	assert.Equal(t, ErrRoomNotFound, err)
}

func TestUpdateRoomConcurrent(t *testing.T) {
	p := newMemPersister(t)
	require.NoError(t, p.StoreRoom("abcd2345", types.DefaultRoomState()))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := p.UpdateRoom("abcd2345", func(r *types.RoomState) error {
				r.Todos = append(r.Todos, types.TodoItem{Text: "x"})
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := p.GetRoom("abcd2345")
	require.NoError(t, err)
	assert.Len(t, got.Todos, 20, "transactions must not lose updates")
}

func TestPushTokens(t *testing.T) {
	p := newMemPersister(t)
	require.NoError(t, p.StoreRoom("abcd2345", types.DefaultRoomState()))

	require.NoError(t, p.StorePushToken("abcd2345", types.PushToken{Token: "tok-1", UserAgent: "ua"}))
	require.NoError(t, p.StorePushToken("abcd2345", types.PushToken{Token: "tok-2"}))
	require.NoError(t, p.StorePushToken("other000", types.PushToken{Token: "tok-3"}))

	tokens, err := p.GetPushTokens("abcd2345")
	require.NoError(t, err)
	assert.Len(t, tokens, 2)

	require.NoError(t, p.DeletePushTokens("abcd2345", []string{"tok-1"}))
	tokens, err = p.GetPushTokens("abcd2345")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "tok-2", tokens[0].Token)

	// deleting nothing is fine
	require.NoError(t, p.DeletePushTokens("abcd2345", nil))

	// deleting the room sweeps its tokens
	require.NoError(t, p.DeleteRoom("abcd2345"))
	tokens, err = p.GetPushTokens("abcd2345")
	require.NoError(t, err)
	assert.Empty(t, tokens)

	tokens, err = p.GetPushTokens("other000")
	require.NoError(t, err)
	assert.Len(t, tokens, 1)
}

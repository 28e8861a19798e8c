package persistence

import (
	"errors"
	"fmt"

	"github.com/glachaux/reunion-rooms/config"
	"github.com/glachaux/reunion-rooms/types"
)

// ErrRoomNotFound distinguishes "bad room code" from write rejections; the sync
// engine's recreate path and the join flow both branch on it.
var ErrRoomNotFound = errors.New("room not found")

// ErrRoomExists rejects an insert against a taken room id; the code generator
// rolls a fresh code on it.
var ErrRoomExists = errors.New("room already exists")

// Persister is the storage behind the shared room documents and the per-room
// push-token sets. UpdateRoom is the transactional read-modify-write primitive:
// apply is called with the freshly read document and the merged result is
// committed within the same transaction, so two concurrent composite mutations
// cannot lose each other's changes.
type Persister interface {
	StoreRoom(id string, room types.RoomState) error
	// InsertRoom stores the document only if the id is free, ErrRoomExists
	// otherwise. The check and the write happen in one transaction, so two
	// concurrent creators drawing the same code cannot overwrite each other.
	InsertRoom(id string, room types.RoomState) error
	GetRoom(id string) (*types.RoomState, error)
	GetRooms() (map[string]*types.RoomState, error)
	UpdateRoom(id string, apply func(*types.RoomState) error) (before, after *types.RoomState, err error)
	DeleteRoom(id string) error

	StorePushToken(roomId string, token types.PushToken) error
	GetPushTokens(roomId string) ([]types.PushToken, error)
	DeletePushTokens(roomId string, tokens []string) error

	Close() error
}

// NewPersister creates the configured persister. It returns nil (and no error)
// if no persistence is configured.
func NewPersister(cfg *config.Config) (Persister, error) {
	switch cfg.PersistenceConfig.Type {
	case "buntdb":
		return NewBuntPersister(cfg)
	case "sqlite":
		return NewSQLitePersister(cfg)
	case "postgres":
		return NewPostgresPersister(cfg)
	case "gorm-sqlite", "gorm-postgres":
		return NewGormPersister(cfg)
	case "":
		if cfg.PersistenceConfig.BuntDBConfig.Name != "" {
			return NewBuntPersister(cfg)
		}
		return nil, nil
	}
	return nil, fmt.Errorf("invalid persistence type %q", cfg.PersistenceConfig.Type)
}

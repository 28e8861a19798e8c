package persistence

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofrs/flock"
	"github.com/glachaux/reunion-rooms/config"
	"github.com/glachaux/reunion-rooms/types"
	"github.com/tidwall/buntdb"
)

// BuntDBPersist is the primary document store. Every room is one JSON value
// under "room:<id>", push tokens live under "token:<roomId>:<token>".
// buntdb serializes Update transactions, which is exactly the semantics the
// composite read-modify-write path needs.
type BuntDBPersist struct {
	db   *buntdb.DB
	lock *flock.Flock
}

func NewBuntPersister(cfg *config.Config) (Persister, error) {
	fileName := cfg.PersistenceConfig.BuntDBConfig.Name
	if fileName == "" {
		fileName = cfg.PersistenceConfig.DSN
	}
	if fileName == "" {
		return nil, nil // no or wrong configuration, ignore the persister
	}
	var fl *flock.Flock
	if fileName != ":memory:" {
		fl = flock.New(fileName + ".lock")
		locked, err := fl.TryLock()
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, fmt.Errorf("database %s is in use by another process", fileName)
		}
	}
	db, err := buntdb.Open(fileName)
	if err != nil {
		if fl != nil {
			_ = fl.Unlock()
		}
		return nil, err
	}
	return &BuntDBPersist{db: db, lock: fl}, nil
}

func roomKey(id string) string {
	return "room:" + id
}

func tokenKey(roomId, token string) string {
	return "token:" + roomId + ":" + token
}

func (p *BuntDBPersist) StoreRoom(id string, room types.RoomState) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(roomKey(id), string(raw), nil)
		return err
	})
}

func (p *BuntDBPersist) InsertRoom(id string, room types.RoomState) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(roomKey(id)); err == nil {
			return ErrRoomExists
		} else if err != buntdb.ErrNotFound {
			return err
		}
		_, _, err := tx.Set(roomKey(id), string(raw), nil)
		return err
	})
}

func (p *BuntDBPersist) GetRoom(id string) (*types.RoomState, error) {
	if id == "" {
		return nil, fmt.Errorf("no room id")
	}
	var room types.RoomState
	err := p.db.View(func(tx *buntdb.Tx) error {
		raw, err := tx.Get(roomKey(id))
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(raw), &room)
	})
	if err == buntdb.ErrNotFound {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (p *BuntDBPersist) GetRooms() (map[string]*types.RoomState, error) {
	rooms := make(map[string]*types.RoomState)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("room:*", func(key, val string) bool {
			var room types.RoomState
			if err := json.Unmarshal([]byte(val), &room); err == nil {
				rooms[strings.TrimPrefix(key, "room:")] = &room
			}
			return true
		})
	})
	return rooms, err
}

// UpdateRoom applies the mutation to the freshly read document inside one
// buntdb transaction.
func (p *BuntDBPersist) UpdateRoom(id string, apply func(*types.RoomState) error) (*types.RoomState, *types.RoomState, error) {
	var before, after types.RoomState
	err := p.db.Update(func(tx *buntdb.Tx) error {
		raw, err := tx.Get(roomKey(id))
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(raw), &before); err != nil {
			return err
		}
		after = before.Clone()
		if err := apply(&after); err != nil {
			return err
		}
		out, err := json.Marshal(after)
		if err != nil {
			return err
		}
		_, _, err = tx.Set(roomKey(id), string(out), nil)
		return err
	})
	if err == buntdb.ErrNotFound {
		return nil, nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return &before, &after, nil
}

func (p *BuntDBPersist) DeleteRoom(id string) error {
	err := p.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Delete(roomKey(id)); err != nil {
			return err
		}
		var stale []string
		err := tx.AscendKeys(tokenKey(id, "*"), func(key, val string) bool {
			stale = append(stale, key)
			return true
		})
		if err != nil {
			return err
		}
		for _, key := range stale {
			if _, err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err == buntdb.ErrNotFound {
		return ErrRoomNotFound
	}
	return err
}

func (p *BuntDBPersist) StorePushToken(roomId string, token types.PushToken) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(tokenKey(roomId, token.Token), string(raw), nil)
		return err
	})
}

func (p *BuntDBPersist) GetPushTokens(roomId string) ([]types.PushToken, error) {
	tokens := make([]types.PushToken, 0)
	err := p.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(tokenKey(roomId, "*"), func(key, val string) bool {
			var tok types.PushToken
			if err := json.Unmarshal([]byte(val), &tok); err == nil {
				tokens = append(tokens, tok)
			}
			return true
		})
	})
	return tokens, err
}

func (p *BuntDBPersist) DeletePushTokens(roomId string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		for _, token := range tokens {
			if _, err := tx.Delete(tokenKey(roomId, token)); err != nil && err != buntdb.ErrNotFound {
				return err
			}
		}
		return nil
	})
}

func (p *BuntDBPersist) Close() error {
	err := p.db.Close()
	if p.lock != nil {
		_ = p.lock.Unlock()
	}
	return err
}

package persistence

import (
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/glachaux/reunion-rooms/config"
	"github.com/glachaux/reunion-rooms/types"
	_ "github.com/mattn/go-sqlite3"
)

// SQLitePersist stores documents as TEXT. sqlite has no row locks, so a single
// mutex serializes all writers in-process instead.
type SQLitePersist struct {
	sync.RWMutex
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rooms (
	id TEXT PRIMARY KEY,
	doc TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS push_tokens (
	room_id TEXT NOT NULL,
	token TEXT NOT NULL,
	doc TEXT NOT NULL,
	PRIMARY KEY (room_id, token)
);
`

func NewSQLitePersister(cfg *config.Config) (Persister, error) {
	if cfg.PersistenceConfig.DSN == "" {
		return nil, nil // no or wrong configuration, ignore the persister
	}
	db, err := sql.Open("sqlite3", cfg.PersistenceConfig.DSN)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLitePersist{db: db}, nil
}

func (p *SQLitePersist) storeRoomLocked(id string, room types.RoomState) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(
		`INSERT INTO rooms (id, doc) VALUES (?, ?)
		 ON CONFLICT (id) DO UPDATE SET doc = excluded.doc`, id, string(raw))
	return err
}

func (p *SQLitePersist) getRoomLocked(id string) (*types.RoomState, error) {
	var raw string
	err := p.db.QueryRow(`SELECT doc FROM rooms WHERE id = ?`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	var room types.RoomState
	if err := json.Unmarshal([]byte(raw), &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (p *SQLitePersist) StoreRoom(id string, room types.RoomState) error {
	p.Lock()
	defer p.Unlock()
	return p.storeRoomLocked(id, room)
}

func (p *SQLitePersist) InsertRoom(id string, room types.RoomState) error {
	p.Lock()
	defer p.Unlock()
	_, err := p.getRoomLocked(id)
	if err == nil {
		return ErrRoomExists
	}
	if err != ErrRoomNotFound {
		return err
	}
	return p.storeRoomLocked(id, room)
}

func (p *SQLitePersist) GetRoom(id string) (*types.RoomState, error) {
	p.RLock()
	defer p.RUnlock()
	return p.getRoomLocked(id)
}

func (p *SQLitePersist) GetRooms() (map[string]*types.RoomState, error) {
	p.RLock()
	defer p.RUnlock()
	rows, err := p.db.Query(`SELECT id, doc FROM rooms`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	rooms := make(map[string]*types.RoomState)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var room types.RoomState
		if err := json.Unmarshal([]byte(raw), &room); err == nil {
			rooms[id] = &room
		}
	}
	return rooms, rows.Err()
}

func (p *SQLitePersist) UpdateRoom(id string, apply func(*types.RoomState) error) (*types.RoomState, *types.RoomState, error) {
	p.Lock()
	defer p.Unlock()
	before, err := p.getRoomLocked(id)
	if err != nil {
		return nil, nil, err
	}
	after := before.Clone()
	if err := apply(&after); err != nil {
		return nil, nil, err
	}
	if err := p.storeRoomLocked(id, after); err != nil {
		return nil, nil, err
	}
	return before, &after, nil
}

func (p *SQLitePersist) DeleteRoom(id string) error {
	p.Lock()
	defer p.Unlock()
	if _, err := p.db.Exec(`DELETE FROM rooms WHERE id = ?`, id); err != nil {
		return err
	}
	_, err := p.db.Exec(`DELETE FROM push_tokens WHERE room_id = ?`, id)
	return err
}

func (p *SQLitePersist) StorePushToken(roomId string, token types.PushToken) error {
	p.Lock()
	defer p.Unlock()
	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(
		`INSERT INTO push_tokens (room_id, token, doc) VALUES (?, ?, ?)
		 ON CONFLICT (room_id, token) DO UPDATE SET doc = excluded.doc`,
		roomId, token.Token, string(raw))
	return err
}

func (p *SQLitePersist) GetPushTokens(roomId string) ([]types.PushToken, error) {
	p.RLock()
	defer p.RUnlock()
	rows, err := p.db.Query(`SELECT doc FROM push_tokens WHERE room_id = ?`, roomId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tokens := make([]types.PushToken, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var tok types.PushToken
		if err := json.Unmarshal([]byte(raw), &tok); err == nil {
			tokens = append(tokens, tok)
		}
	}
	return tokens, rows.Err()
}

func (p *SQLitePersist) DeletePushTokens(roomId string, tokens []string) error {
	p.Lock()
	defer p.Unlock()
	for _, token := range tokens {
		if _, err := p.db.Exec(`DELETE FROM push_tokens WHERE room_id = ? AND token = ?`, roomId, token); err != nil {
			return err
		}
	}
	return nil
}

func (p *SQLitePersist) Close() error {
	return p.db.Close()
}

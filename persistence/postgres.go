package persistence

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/glachaux/reunion-rooms/config"
	"github.com/glachaux/reunion-rooms/types"
	_ "github.com/lib/pq"
)

// PostgresPersist keeps room documents in a JSONB column and relies on
// SELECT ... FOR UPDATE row locks to serialize composite mutations.
type PostgresPersist struct {
	db *sql.DB
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS rooms (
	id TEXT PRIMARY KEY,
	doc JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS push_tokens (
	room_id TEXT NOT NULL,
	token TEXT NOT NULL,
	doc JSONB NOT NULL,
	PRIMARY KEY (room_id, token)
);
`

func NewPostgresPersister(cfg *config.Config) (Persister, error) {
	if cfg.PersistenceConfig.DSN == "" {
		return nil, nil // no or wrong configuration, ignore the persister
	}
	db, err := sql.Open("postgres", cfg.PersistenceConfig.DSN)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(pgSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresPersist{db: db}, nil
}

func (p *PostgresPersist) StoreRoom(id string, room types.RoomState) error {
	doc := types.RoomDocument(room)
	_, err := p.db.Exec(
		`INSERT INTO rooms (id, doc) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`, id, &doc)
	return err
}

func (p *PostgresPersist) InsertRoom(id string, room types.RoomState) error {
	doc := types.RoomDocument(room)
	res, err := p.db.Exec(
		`INSERT INTO rooms (id, doc) VALUES ($1, $2)
		 ON CONFLICT (id) DO NOTHING`, id, &doc)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRoomExists
	}
	return nil
}

func (p *PostgresPersist) GetRoom(id string) (*types.RoomState, error) {
	var doc types.RoomDocument
	err := p.db.QueryRow(`SELECT doc FROM rooms WHERE id = $1`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	room := types.RoomState(doc)
	return &room, nil
}

func (p *PostgresPersist) GetRooms() (map[string]*types.RoomState, error) {
	rows, err := p.db.Query(`SELECT id, doc FROM rooms`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	rooms := make(map[string]*types.RoomState)
	for rows.Next() {
		var id string
		var doc types.RoomDocument
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		room := types.RoomState(doc)
		rooms[id] = &room
	}
	return rooms, rows.Err()
}

func (p *PostgresPersist) UpdateRoom(id string, apply func(*types.RoomState) error) (*types.RoomState, *types.RoomState, error) {
	ctx := context.Background()
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var doc types.RoomDocument
	err = tx.QueryRowContext(ctx, `SELECT doc FROM rooms WHERE id = $1 FOR UPDATE`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	before := types.RoomState(doc)
	after := before.Clone()
	if err := apply(&after); err != nil {
		return nil, nil, err
	}
	next := types.RoomDocument(after)
	if _, err := tx.ExecContext(ctx, `UPDATE rooms SET doc = $2 WHERE id = $1`, id, &next); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &before, &after, nil
}

func (p *PostgresPersist) DeleteRoom(id string) error {
	if _, err := p.db.Exec(`DELETE FROM rooms WHERE id = $1`, id); err != nil {
		return err
	}
	_, err := p.db.Exec(`DELETE FROM push_tokens WHERE room_id = $1`, id)
	return err
}

func (p *PostgresPersist) StorePushToken(roomId string, token types.PushToken) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(
		`INSERT INTO push_tokens (room_id, token, doc) VALUES ($1, $2, $3)
		 ON CONFLICT (room_id, token) DO UPDATE SET doc = EXCLUDED.doc`,
		roomId, token.Token, raw)
	return err
}

func (p *PostgresPersist) GetPushTokens(roomId string) ([]types.PushToken, error) {
	rows, err := p.db.Query(`SELECT doc FROM push_tokens WHERE room_id = $1`, roomId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tokens := make([]types.PushToken, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var tok types.PushToken
		if err := json.Unmarshal(raw, &tok); err == nil {
			tokens = append(tokens, tok)
		}
	}
	return tokens, rows.Err()
}

func (p *PostgresPersist) DeletePushTokens(roomId string, tokens []string) error {
	for _, token := range tokens {
		if _, err := p.db.Exec(`DELETE FROM push_tokens WHERE room_id = $1 AND token = $2`, roomId, token); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresPersist) Close() error {
	return p.db.Close()
}

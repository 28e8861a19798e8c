package persistence

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/glachaux/reunion-rooms/config"
	"github.com/glachaux/reunion-rooms/types"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPersist stores the room document as a single JSON column; the database is
// only ever asked for whole documents, so the relational mapping stays trivial.
type GormPersist struct {
	db *gorm.DB
}

type roomRow struct {
	Id  string         `gorm:"primaryKey"`
	Doc datatypes.JSON `gorm:"not null"`
}

func (roomRow) TableName() string { return "rooms" }

type tokenRow struct {
	RoomId string         `gorm:"primaryKey"`
	Token  string         `gorm:"primaryKey"`
	Doc    datatypes.JSON `gorm:"not null"`
}

func (tokenRow) TableName() string { return "push_tokens" }

func NewGormPersister(cfg *config.Config) (Persister, error) {
	db, err := setupGormDB(cfg)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, nil // no or wrong configuration, ignore the persister
	}
	return &GormPersist{db: db}, nil
}

func setupGormDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.PersistenceConfig.DSN == "" {
		return nil, nil
	}
	var dial gorm.Dialector
	switch cfg.PersistenceConfig.Type {
	case "gorm-postgres":
		dial = postgres.Open(cfg.PersistenceConfig.DSN)

	case "gorm-sqlite":
		dial = sqlite.Open(cfg.PersistenceConfig.DSN)

	default:
		return nil, fmt.Errorf("invalid gorm configuration")
	}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.Migrator().AutoMigrate(&roomRow{}, &tokenRow{}); err != nil {
		return nil, err
	}
	return db, nil
}

func encodeRoom(room types.RoomState) (datatypes.JSON, error) {
	raw, err := json.Marshal(room)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func decodeRoom(doc datatypes.JSON) (*types.RoomState, error) {
	var room types.RoomState
	if err := json.Unmarshal(doc, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (p *GormPersist) StoreRoom(id string, room types.RoomState) error {
	doc, err := encodeRoom(room)
	if err != nil {
		return err
	}
	row := roomRow{Id: id, Doc: doc}
	return p.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (p *GormPersist) InsertRoom(id string, room types.RoomState) error {
	doc, err := encodeRoom(room)
	if err != nil {
		return err
	}
	row := roomRow{Id: id, Doc: doc}
	res := p.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRoomExists
	}
	return nil
}

func (p *GormPersist) GetRoom(id string) (*types.RoomState, error) {
	var row roomRow
	err := p.db.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRoom(row.Doc)
}

func (p *GormPersist) GetRooms() (map[string]*types.RoomState, error) {
	rows := make([]roomRow, 0)
	if err := p.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	rooms := make(map[string]*types.RoomState, len(rows))
	for _, row := range rows {
		room, err := decodeRoom(row.Doc)
		if err != nil {
			continue
		}
		rooms[row.Id] = room
	}
	return rooms, nil
}

func (p *GormPersist) UpdateRoom(id string, apply func(*types.RoomState) error) (*types.RoomState, *types.RoomState, error) {
	var before, after *types.RoomState
	err := p.db.Transaction(func(tx *gorm.DB) error {
		var row roomRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		before, err = decodeRoom(row.Doc)
		if err != nil {
			return err
		}
		next := before.Clone()
		if err := apply(&next); err != nil {
			return err
		}
		after = &next
		doc, err := encodeRoom(next)
		if err != nil {
			return err
		}
		return tx.Model(&roomRow{}).Where("id = ?", id).Update("doc", doc).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

func (p *GormPersist) DeleteRoom(id string) error {
	if err := p.db.Delete(&roomRow{}, "id = ?", id).Error; err != nil {
		return err
	}
	return p.db.Delete(&tokenRow{}, "room_id = ?", id).Error
}

func (p *GormPersist) StorePushToken(roomId string, token types.PushToken) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}
	row := tokenRow{RoomId: roomId, Token: token.Token, Doc: datatypes.JSON(raw)}
	return p.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (p *GormPersist) GetPushTokens(roomId string) ([]types.PushToken, error) {
	rows := make([]tokenRow, 0)
	if err := p.db.Find(&rows, "room_id = ?", roomId).Error; err != nil {
		return nil, err
	}
	tokens := make([]types.PushToken, 0, len(rows))
	for _, row := range rows {
		var tok types.PushToken
		if err := json.Unmarshal(row.Doc, &tok); err == nil {
			tokens = append(tokens, tok)
		}
	}
	return tokens, nil
}

func (p *GormPersist) DeletePushTokens(roomId string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return p.db.Delete(&tokenRow{}, "room_id = ? AND token IN ?", roomId, tokens).Error
}

func (p *GormPersist) Close() error {
	return nil
}

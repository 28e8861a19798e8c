package persistence

import (
	"sync"

	"github.com/glachaux/reunion-rooms/globals"
	"github.com/glachaux/reunion-rooms/types"
)

// Update describes a committed room change. Before is nil for a freshly
// created room.
type Update struct {
	RoomId string
	Before *types.RoomState
	After  *types.RoomState
}

// Store wraps a Persister and fans committed changes out to subscribers.
// Per-room subscribers get the latest document snapshot; the firehose gets
// every before/after pair, which is what the notification dispatcher diffs.
//
// Subscriber channels are buffered with one slot and hold the newest value
// only: a slow consumer sees the latest state, never a backlog.
type Store struct {
	p Persister

	mu       sync.Mutex
	nextId   int
	roomSubs map[string]map[int]chan types.RoomState
	allSubs  map[int]chan Update
}

func NewStore(p Persister) *Store {
	return &Store{
		p:        p,
		roomSubs: make(map[string]map[int]chan types.RoomState),
		allSubs:  make(map[int]chan Update),
	}
}

// Persister exposes the underlying storage, for admin paths that do not need
// change notifications.
func (s *Store) Persister() Persister {
	return s.p
}

func offer(ch chan types.RoomState, room types.RoomState) {
	for {
		select {
		case ch <- room:
			return
		default:
		}
		select { // drop the stale snapshot
		case <-ch:
		default:
		}
	}
}

func offerUpdate(ch chan Update, u Update) {
	select {
	case ch <- u:
	default:
		globals.AppLogger.Warn("firehose subscriber lagging, dropping update", "room", u.RoomId)
	}
}

func (s *Store) publish(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.After != nil {
		for _, ch := range s.roomSubs[u.RoomId] {
			offer(ch, *u.After)
		}
	}
	for _, ch := range s.allSubs {
		offerUpdate(ch, u)
	}
}

// Subscribe registers for snapshots of one room. If the room exists, the
// current document is delivered immediately. The returned func cancels the
// subscription and closes the channel.
func (s *Store) Subscribe(roomId string) (<-chan types.RoomState, func()) {
	ch := make(chan types.RoomState, 1)
	s.mu.Lock()
	id := s.nextId
	s.nextId++
	subs, ok := s.roomSubs[roomId]
	if !ok {
		subs = make(map[int]chan types.RoomState)
		s.roomSubs[roomId] = subs
	}
	subs[id] = ch
	s.mu.Unlock()

	if room, err := s.p.GetRoom(roomId); err == nil {
		offer(ch, *room)
	}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if subs, ok := s.roomSubs[roomId]; ok {
			if _, ok := subs[id]; ok {
				delete(subs, id)
				close(ch)
			}
			if len(subs) == 0 {
				delete(s.roomSubs, roomId)
			}
		}
	}
	return ch, cancel
}

// SubscribeAll registers for the firehose of all committed room changes.
func (s *Store) SubscribeAll() (<-chan Update, func()) {
	ch := make(chan Update, 64)
	s.mu.Lock()
	id := s.nextId
	s.nextId++
	s.allSubs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.allSubs[id]; ok {
			delete(s.allSubs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// StoreRoom writes the full document and publishes the change.
func (s *Store) StoreRoom(id string, room types.RoomState) error {
	before, err := s.p.GetRoom(id)
	if err != nil && err != ErrRoomNotFound {
		return err
	}
	if err := s.p.StoreRoom(id, room); err != nil {
		return err
	}
	after := room.Clone()
	s.publish(Update{RoomId: id, Before: before, After: &after})
	return nil
}

// InsertRoom stores the document only if the room id is free and publishes
// the creation.
func (s *Store) InsertRoom(id string, room types.RoomState) error {
	if err := s.p.InsertRoom(id, room); err != nil {
		return err
	}
	after := room.Clone()
	s.publish(Update{RoomId: id, After: &after})
	return nil
}

func (s *Store) GetRoom(id string) (*types.RoomState, error) {
	return s.p.GetRoom(id)
}

func (s *Store) GetRooms() (map[string]*types.RoomState, error) {
	return s.p.GetRooms()
}

// UpdateRoom runs the mutation transactionally and publishes the result.
func (s *Store) UpdateRoom(id string, apply func(*types.RoomState) error) (*types.RoomState, *types.RoomState, error) {
	before, after, err := s.p.UpdateRoom(id, apply)
	if err != nil {
		return nil, nil, err
	}
	s.publish(Update{RoomId: id, Before: before, After: after})
	return before, after, nil
}

// PatchRoom applies a partial update, last writer wins per field.
func (s *Store) PatchRoom(id string, patch *types.RoomPatch) (*types.RoomState, error) {
	_, after, err := s.UpdateRoom(id, func(r *types.RoomState) error {
		patch.ApplyTo(r)
		r.UpdatedAt = types.NowMs()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return after, nil
}

func (s *Store) DeleteRoom(id string) error {
	return s.p.DeleteRoom(id)
}

func (s *Store) StorePushToken(roomId string, token types.PushToken) error {
	return s.p.StorePushToken(roomId, token)
}

func (s *Store) GetPushTokens(roomId string) ([]types.PushToken, error) {
	return s.p.GetPushTokens(roomId)
}

func (s *Store) DeletePushTokens(roomId string, tokens []string) error {
	return s.p.DeletePushTokens(roomId, tokens)
}

func (s *Store) Close() error {
	s.mu.Lock()
	for _, subs := range s.roomSubs {
		for id, ch := range subs {
			delete(subs, id)
			close(ch)
		}
	}
	s.roomSubs = make(map[string]map[int]chan types.RoomState)
	for id, ch := range s.allSubs {
		delete(s.allSubs, id)
		close(ch)
	}
	s.mu.Unlock()
	return s.p.Close()
}

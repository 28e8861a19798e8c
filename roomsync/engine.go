package roomsync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/glachaux/reunion-rooms/globals"
	"github.com/glachaux/reunion-rooms/persistence"
	"github.com/glachaux/reunion-rooms/types"
)

// State is the sync engine connection state.
type State int

const (
	Disconnected State = iota
	Subscribing
	Synced
	Writing
	ErrorState
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Subscribing:
		return "subscribing"
	case Synced:
		return "synced"
	case Writing:
		return "writing"
	case ErrorState:
		return "error"
	}
	return "unknown"
}

// Engine keeps one participant's view of a room in sync with the store.
//
// Local state is optimistic: every mutation is applied to the local copy and
// surfaced immediately, then written out. Adopting a remote snapshot arms a
// one-shot suppression flag which the next Patch consumes instead of writing,
// so the write that merely restates what the snapshot already said never
// echoes back into the store.
type Engine struct {
	store       *persistence.Store
	participant string
	legacyRoom  string
	onChange    func(types.RoomState)

	mu           sync.Mutex
	roomId       string
	local        *types.RoomState
	backup       *types.RoomState
	state        State
	lastError    string
	suppressNext bool
	unsub        func()
}

// NewEngine creates an engine for one participant. onChange receives a copy of
// the local document after every adoption or optimistic apply; it is called
// with the engine lock held and must not call back into the engine.
func NewEngine(store *persistence.Store, participant, legacyRoom string, onChange func(types.RoomState)) *Engine {
	if onChange == nil {
		onChange = func(types.RoomState) {}
	}
	return &Engine{
		store:       store,
		participant: participant,
		legacyRoom:  legacyRoom,
		onChange:    onChange,
		state:       Disconnected,
	}
}

func (e *Engine) setError(err error) {
	e.state = ErrorState
	e.lastError = err.Error()
}

// Subscribe selects a room and starts following it. A missing document is
// created from the engine's backup (or defaults) so a room wiped server-side
// comes back rather than breaking the client. A membership rejection clears
// the selection entirely.
func (e *Engine) Subscribe(roomId string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unsub != nil {
		e.unsub()
		e.unsub = nil
	}
	e.roomId = roomId
	e.state = Subscribing
	e.lastError = ""

	room, err := e.store.GetRoom(roomId)
	switch {
	case err == persistence.ErrRoomNotFound:
		fresh := e.recoveredState()
		fresh.Members[e.participant] = true
		if fresh.Owner == "" {
			fresh.Owner = e.participant
		}
		e.suppressNext = true
		if err := e.store.StoreRoom(roomId, fresh); err != nil {
			e.suppressNext = false
			e.setError(err)
			return err
		}
		room = &fresh

	case err != nil:
		e.setError(err)
		return err

	default:
		if !CanWrite(room, roomId, e.participant, e.legacyRoom) {
			e.roomId = ""
			e.local = nil
			e.setError(ErrPermissionDenied)
			return ErrPermissionDenied
		}
	}

	e.adoptLocked(*room)
	ch, cancel := e.store.Subscribe(roomId)
	e.unsub = cancel
	go e.follow(roomId, ch)
	return nil
}

// adoptLocked takes a remote snapshot as the new local truth and arms the
// echo suppression. Caller holds the lock.
func (e *Engine) adoptLocked(room types.RoomState) {
	room.MergeDefaults()
	e.local = &room
	bak := room.Clone()
	e.backup = &bak
	e.suppressNext = true
	e.state = Synced
	e.lastError = ""
	e.onChange(room.Clone())
}

func (e *Engine) follow(roomId string, ch <-chan types.RoomState) {
	for room := range ch {
		e.mu.Lock()
		if e.roomId != roomId {
			e.mu.Unlock()
			return
		}
		e.adoptLocked(room)
		e.mu.Unlock()
	}
}

// patchChanges reports whether applying the patch would change the document,
// ignoring the updatedAt stamp.
func patchChanges(base *types.RoomState, patch *types.RoomPatch) bool {
	next := base.Clone()
	patch.ApplyTo(&next)
	next.UpdatedAt = base.UpdatedAt
	a, err1 := json.Marshal(base)
	b, err2 := json.Marshal(next)
	if err1 != nil || err2 != nil {
		return true
	}
	return !bytes.Equal(a, b)
}

// recoveredState is the document to recreate a missing room from: the last
// adopted backup if there is one, else defaults.
func (e *Engine) recoveredState() types.RoomState {
	if e.backup != nil {
		r := e.backup.Clone()
		r.MergeDefaults()
		return r
	}
	return types.DefaultRoomState()
}

// Patch applies a partial last-writer-wins update. The local copy is patched
// first and surfaced; if the suppression flag is armed it is consumed and no
// write happens. A write against a vanished room recreates it with the patch
// folded in.
func (e *Engine) Patch(patch *types.RoomPatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.roomId == "" || e.local == nil {
		return fmt.Errorf("no room selected")
	}
	changed := patchChanges(e.local, patch)
	patch.ApplyTo(e.local)
	e.local.UpdatedAt = types.NowMs()
	e.onChange(e.local.Clone())

	if e.suppressNext {
		e.suppressNext = false
		// an echo of the snapshot just adopted, nothing new to write
		if !changed {
			return nil
		}
	}

	e.state = Writing
	_, err := e.store.PatchRoom(e.roomId, patch)
	if err == persistence.ErrRoomNotFound {
		fresh := e.recoveredState()
		patch.ApplyTo(&fresh)
		fresh.UpdatedAt = types.NowMs()
		err = e.store.StoreRoom(e.roomId, fresh)
	}
	if err != nil {
		globals.AppLogger.Error("patch write failed", "room", e.roomId, "error", err)
		e.setError(err)
		return err
	}
	e.state = Synced
	return nil
}

// Transact applies a composite op: optimistically to the local copy, then
// transactionally against the freshly read base document.
func (e *Engine) Transact(op Op) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.roomId == "" || e.local == nil {
		return fmt.Errorf("no room selected")
	}
	if err := op(e.local); err != nil {
		e.setError(err)
		return err
	}
	e.local.UpdatedAt = types.NowMs()
	e.onChange(e.local.Clone())

	e.state = Writing
	_, _, err := e.store.UpdateRoom(e.roomId, func(r *types.RoomState) error {
		r.MergeDefaults()
		if err := op(r); err != nil {
			return err
		}
		r.UpdatedAt = types.NowMs()
		return nil
	})
	if err != nil {
		globals.AppLogger.Error("transaction failed", "room", e.roomId, "error", err)
		e.setError(err)
		return err
	}
	e.state = Synced
	return nil
}

// Leave drops the room subscription.
func (e *Engine) Leave() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unsub != nil {
		e.unsub()
		e.unsub = nil
	}
	e.roomId = ""
	e.local = nil
	e.state = Disconnected
}

// Room returns a copy of the local document, ok=false before the first adopt.
func (e *Engine) Room() (types.RoomState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.local == nil {
		return types.RoomState{}, false
	}
	return e.local.Clone(), true
}

func (e *Engine) RoomId() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roomId
}

func (e *Engine) Participant() string {
	return e.participant
}

// Status returns the connection state and the last error string, empty when
// healthy.
func (e *Engine) Status() (State, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.lastError
}

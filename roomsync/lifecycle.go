package roomsync

import (
	"errors"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/glachaux/reunion-rooms/persistence"
	"github.com/glachaux/reunion-rooms/types"
)

var (
	// ErrPermissionDenied rejects writes and joins against a room the
	// participant is not a member of.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrTooManyAttempts means the code generator could not find a free code.
	ErrTooManyAttempts = errors.New("too many attempts to find a free room code")
)

// codeAlphabet avoids the lookalikes 0/o, 1/l/i, so a code read aloud over a
// bad connection still types correctly.
const codeAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

const codeLength = 8

var (
	spacesRe  = regexp.MustCompile(`\s+`)
	invalidRe = regexp.MustCompile(`[^a-z0-9-]`)
)

func init() {
	rand.Seed(time.Now().UnixNano())
}

// NormalizeRoomCode canonicalizes user input into a room code: lower case,
// runs of whitespace become a dash, anything outside [a-z0-9-] is dropped.
// Both the legacy dash format and generated codes survive unchanged.
func NormalizeRoomCode(raw string) string {
	code := strings.ToLower(strings.TrimSpace(raw))
	code = spacesRe.ReplaceAllString(code, "-")
	return invalidRe.ReplaceAllString(code, "")
}

// GenerateRoomCode returns a fresh random 8-char code.
func GenerateRoomCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// CreateRoom creates a new room with default state owned by the creator. The
// insert is atomic, a collision with an existing (or simultaneously created)
// room rolls a fresh code, up to attempts times.
func CreateRoom(store *persistence.Store, owner string, attempts int) (string, *types.RoomState, error) {
	if attempts <= 0 {
		attempts = 5
	}
	for i := 0; i < attempts; i++ {
		code := GenerateRoomCode()
		room := types.DefaultRoomState()
		room.Owner = owner
		room.Members[owner] = true
		err := store.InsertRoom(code, room)
		if err == persistence.ErrRoomExists {
			continue // taken, roll again
		}
		if err != nil {
			return "", nil, err
		}
		return code, &room, nil
	}
	return "", nil, ErrTooManyAttempts
}

// JoinRoom registers who as a member of the room. A room holds two people:
// joining a full room that who is not already part of is denied. The
// membership write is transactional so two simultaneous joiners cannot both
// take the last seat.
func JoinRoom(store *persistence.Store, roomId, who string) (*types.RoomState, error) {
	_, after, err := store.UpdateRoom(roomId, func(r *types.RoomState) error {
		if r.Members == nil {
			r.Members = map[string]bool{}
		}
		if r.Members[who] {
			return nil // already in
		}
		if len(r.Members) >= 2 {
			return ErrPermissionDenied
		}
		r.Members[who] = true
		r.UpdatedAt = types.NowMs()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return after, nil
}

// CanWrite reports whether who may mutate the room. Members always can; the
// configured legacy room predates membership and stays open to everyone.
func CanWrite(room *types.RoomState, roomId, who, legacyRoom string) bool {
	if legacyRoom != "" && roomId == legacyRoom {
		return true
	}
	if room == nil || room.Members == nil {
		return false
	}
	return room.Members[who]
}

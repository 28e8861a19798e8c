package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glachaux/reunion-rooms/content"
)

// Daily is the once-per-day unlocked love note + challenge pair.
// A record only counts for the calendar day its DateKey names.
type Daily struct {
	DateKey   string `json:"dateKey" mapstructure:"dateKey"`
	Love      string `json:"love" mapstructure:"love"`
	Challenge string `json:"challenge" mapstructure:"challenge"`
}

// Flight carries the reunion flight details.
type Flight struct {
	Airline          string `json:"airline" mapstructure:"airline"`
	FlightNumber     string `json:"flightNumber" mapstructure:"flightNumber"`
	DepartureAirport string `json:"departureAirport" mapstructure:"departureAirport"`
	DepartureTime    string `json:"departureTime" mapstructure:"departureTime"`
	ArrivalAirport   string `json:"arrivalAirport" mapstructure:"arrivalAirport"`
	ArrivalTime      string `json:"arrivalTime" mapstructure:"arrivalTime"`
	BookingRef       string `json:"bookingRef" mapstructure:"bookingRef"`
	Notes            string `json:"notes" mapstructure:"notes"`
}

// Meet is the shared meeting point record.
type Meet struct {
	PlaceName string `json:"placeName" mapstructure:"placeName"`
	City      string `json:"city" mapstructure:"city"`
	Address   string `json:"address" mapstructure:"address"`
	ImageUrl  string `json:"imageUrl" mapstructure:"imageUrl"`
	Flight    Flight `json:"flight" mapstructure:"flight"`
}

// PlaylistEntry is one participant's song of the day.
// The playlist holds at most one entry per (DateKey, Who).
type PlaylistEntry struct {
	DateKey string `json:"dateKey" mapstructure:"dateKey"`
	Who     string `json:"who" mapstructure:"who"`
	Title   string `json:"title" mapstructure:"title"`
	Artist  string `json:"artist" mapstructure:"artist"`
	Link    string `json:"link" mapstructure:"link"`
	Note    string `json:"note" mapstructure:"note"`
	AddedAt string `json:"addedAt" mapstructure:"addedAt"`
}

type TodoItem struct {
	Text string `json:"text" mapstructure:"text"`
	Done bool   `json:"done" mapstructure:"done"`
}

type MovieItem struct {
	Title string `json:"title" mapstructure:"title"`
	Done  bool   `json:"done" mapstructure:"done"`
}

// QuizAnswer is one participant's answer to the daily trivia question.
type QuizAnswer struct {
	Answer     int    `json:"answer" mapstructure:"answer"`
	Correct    bool   `json:"correct" mapstructure:"correct"`
	AnsweredAt string `json:"answeredAt" mapstructure:"answeredAt"`
}

// DailyQuiz is valid only when DateKey is the current day and QuestionId is
// the day's deterministically picked question; otherwise it is treated as absent.
type DailyQuiz struct {
	DateKey    string                `json:"dateKey" mapstructure:"dateKey"`
	QuestionId string                `json:"questionId" mapstructure:"questionId"`
	Answers    map[string]QuizAnswer `json:"answers" mapstructure:"answers"`
}

// CoupleQuizEntry is one participant's submission to the Valentine's couple quiz.
type CoupleQuizEntry struct {
	Answers     []string `json:"answers" mapstructure:"answers"`
	SubmittedAt string   `json:"submittedAt" mapstructure:"submittedAt"`
}

type CoupleQuiz struct {
	Answers map[string]CoupleQuizEntry `json:"answers" mapstructure:"answers"`
}

// RoomState is the full shared room document, everything two clients keep in sync.
// JSON field names are the document field names.
type RoomState struct {
	TargetISO string `json:"targetISO" mapstructure:"targetISO"`

	Daily *Daily `json:"daily" mapstructure:"daily"`

	Meet Meet `json:"meet" mapstructure:"meet"`

	Playlist []PlaylistEntry `json:"playlist" mapstructure:"playlist"`

	Todos []TodoItem `json:"todos" mapstructure:"todos"`

	Movies       []MovieItem `json:"movies" mapstructure:"movies"`
	CustomMovies []MovieItem `json:"customMovies" mapstructure:"customMovies"`

	RestRanges []RestRange `json:"restRanges" mapstructure:"restRanges"`

	DailyQuiz  *DailyQuiz  `json:"dailyQuiz" mapstructure:"dailyQuiz"`
	CoupleQuiz *CoupleQuiz `json:"coupleQuiz" mapstructure:"coupleQuiz"`

	Members map[string]bool `json:"members" mapstructure:"members"`
	Owner   string          `json:"owner" mapstructure:"owner"`

	// dispatcher idempotency keys
	LastDailyNotify string `json:"lastDailyNotify" mapstructure:"lastDailyNotify"`
	LastJ14Notify   string `json:"lastJ14Notify" mapstructure:"lastJ14Notify"`

	CreatedAt int64 `json:"createdAt" mapstructure:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" mapstructure:"updatedAt"`
}

// NowMs is the document timestamp convention (epoch milliseconds).
func NowMs() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// defaultMovies is the seeded shared watchlist of a fresh room.
func defaultMovies() []MovieItem {
	movies := make([]MovieItem, 0, len(content.DefaultMovies))
	for _, title := range content.DefaultMovies {
		movies = append(movies, MovieItem{Title: title})
	}
	return movies
}

// DefaultRoomState returns a fresh default document. It is a pure factory, a new
// value each call, so defaults and live state never alias.
func DefaultRoomState() RoomState {
	now := NowMs()
	return RoomState{
		TargetISO: "",
		Daily:     nil,
		Meet: Meet{
			PlaceName: "Notre lieu de retrouvailles",
		},
		Playlist:     []PlaylistEntry{},
		Todos:        []TodoItem{},
		Movies:       defaultMovies(),
		CustomMovies: []MovieItem{},
		RestRanges:   []RestRange{},
		Members:      map[string]bool{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// MergeDefaults fills nil composite fields of a loaded document so that fields
// introduced after the document was created get their defaults.
func (r *RoomState) MergeDefaults() {
	if r.Playlist == nil {
		r.Playlist = []PlaylistEntry{}
	}
	if r.Todos == nil {
		r.Todos = []TodoItem{}
	}
	if r.Movies == nil {
		r.Movies = defaultMovies()
	}
	if r.CustomMovies == nil {
		r.CustomMovies = []MovieItem{}
	}
	if r.RestRanges == nil {
		r.RestRanges = []RestRange{}
	}
	if r.Members == nil {
		r.Members = map[string]bool{}
	}
	if r.Meet.PlaceName == "" {
		r.Meet.PlaceName = DefaultRoomState().Meet.PlaceName
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = NowMs()
	}
}

// Clone returns a deep copy via the JSON round trip. The document is small, so
// this is the simplest way to keep optimistic local state and backups unaliased.
func (r RoomState) Clone() RoomState {
	data, err := json.Marshal(r)
	if err != nil {
		return r
	}
	var out RoomState
	if err := json.Unmarshal(data, &out); err != nil {
		return r
	}
	return out
}

// RoomPatch is a partial scalar/whole-object update, the last-writer-wins path.
// Only non-nil fields are applied. Composite fields mutated by appending or
// removing elements go through the transactional ops instead. The daily record
// is deliberately absent: it is only ever written by the deterministic unlock
// op, never by a client-supplied value.
type RoomPatch struct {
	TargetISO       *string      `json:"targetISO,omitempty" mapstructure:"targetISO"`
	Meet            *Meet        `json:"meet,omitempty" mapstructure:"meet"`
	Todos           *[]TodoItem  `json:"todos,omitempty" mapstructure:"todos"`
	Movies          *[]MovieItem `json:"movies,omitempty" mapstructure:"movies"`
	LastDailyNotify *string      `json:"lastDailyNotify,omitempty" mapstructure:"lastDailyNotify"`
	LastJ14Notify   *string      `json:"lastJ14Notify,omitempty" mapstructure:"lastJ14Notify"`
}

// ApplyTo merges the patch into a document, field-wise.
func (p *RoomPatch) ApplyTo(r *RoomState) {
	if p == nil {
		return
	}
	if p.TargetISO != nil {
		r.TargetISO = *p.TargetISO
	}
	if p.Meet != nil {
		r.Meet = *p.Meet
	}
	if p.Todos != nil {
		r.Todos = append([]TodoItem{}, (*p.Todos)...)
	}
	if p.Movies != nil {
		r.Movies = append([]MovieItem{}, (*p.Movies)...)
	}
	if p.LastDailyNotify != nil {
		r.LastDailyNotify = *p.LastDailyNotify
	}
	if p.LastJ14Notify != nil {
		r.LastJ14Notify = *p.LastJ14Notify
	}
}

// RoomDocument stores a RoomState as a JSON column, for the SQL persisters.
type RoomDocument RoomState

// Value implements driver.Valuer.
func (d RoomDocument) Value() (driver.Value, error) {
	ba, err := json.Marshal(RoomState(d))
	return string(ba), err
}

// Scan implements sql.Scanner.
func (d *RoomDocument) Scan(val interface{}) error {
	var ba []byte
	switch v := val.(type) {
	case []byte:
		ba = v
	case string:
		ba = []byte(v)
	default:
		return errors.New(fmt.Sprint("failed to unmarshal room document:", val))
	}
	var r RoomState
	if err := json.Unmarshal(ba, &r); err != nil {
		return err
	}
	*d = RoomDocument(r)
	return nil
}

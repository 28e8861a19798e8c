package types

import "encoding/json"

const (
	// server -> client
	WireMessageTypeSnapshot = "snapshot"
	WireMessageTypeInfo     = "info"
	WireMessageTypeError    = "error"

	// client -> server
	WireMessageTypePatch            = "patch"
	WireMessageTypeDailyUnlock      = "daily-unlock"
	WireMessageTypePlaylistAdd      = "playlist-add"
	WireMessageTypePlaylistRemove   = "playlist-remove"
	WireMessageTypePlaylistClear    = "playlist-clear"
	WireMessageTypeRestAdd          = "rest-add"
	WireMessageTypeRestRemove       = "rest-remove"
	WireMessageTypeMovieAdd         = "movie-add"
	WireMessageTypeMovieRemove      = "movie-remove"
	WireMessageTypeQuizAnswer       = "quiz-answer"
	WireMessageTypeCoupleQuizSubmit = "couple-quiz-submit"
)

// JSON-serialized WebsocketMessage is what is actually sent via the Websocket connection
type WebsocketMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// InfoMessage carries room statistics to all clients.
type InfoMessage struct {
	Room          string `json:"room"`
	NoConnections int    `json:"no_connections"`
}

// ErrorMessage surfaces a human-readable error string; the client keeps its
// local state and stays connected.
type ErrorMessage struct {
	Message string `json:"message"`
}

// The different op payloads transferred from the client to here. They are
// decoded from the raw data maps with mapstructure.

type PlaylistRemovePayload struct {
	DateKey string `json:"dateKey" mapstructure:"dateKey"`
	Who     string `json:"who" mapstructure:"who"`
}

type MoviePayload struct {
	Title string `json:"title" mapstructure:"title"`
}

type QuizAnswerPayload struct {
	Answer int `json:"answer" mapstructure:"answer"`
}

type CoupleQuizPayload struct {
	Answers []string `json:"answers" mapstructure:"answers"`
}

package types

// PushToken is one registered notification endpoint of a room. Tokens live in a
// per-room set; endpoints the messaging provider reports as permanently invalid
// are deleted by the dispatcher.
type PushToken struct {
	Token      string `json:"token"`
	UserAgent  string `json:"userAgent"`
	CreatedAt  int64  `json:"createdAt"`
	LastSeenAt int64  `json:"lastSeenAt"`
}

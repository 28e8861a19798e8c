// Package notify implements the scheduled and change-triggered push
// notifications: the daily content unlock, the J-14 reminder, and the
// playlist-add ping.
package notify

// Notification is a displayable push message plus its data payload.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// SendResult reports the per-call outcome. Invalid holds the tokens the push
// service rejected as permanently dead; the dispatcher prunes them.
type SendResult struct {
	Success int
	Failure int
	Invalid []string
}

// Messenger delivers one notification to a batch of device tokens.
type Messenger interface {
	Send(tokens []string, n Notification) (SendResult, error)
}

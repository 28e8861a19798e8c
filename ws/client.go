package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/glachaux/reunion-rooms/globals"
	"github.com/glachaux/reunion-rooms/roomsync"
	"github.com/glachaux/reunion-rooms/types"
	"github.com/gorilla/websocket"
	"github.com/mitchellh/mapstructure"
)

const sendChannelSize = 1000

// Client is a middleman between the websocket connection and the sync engine.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	participant string

	engine *roomsync.Engine

	doneChan chan struct{}

	// WaitGroup which keeps track of running read/write loops and write access to Send. If the WaitGroup is done,
	// it is safe to close all channels (all loops are done and there are no more write operations on the channels)
	sync.WaitGroup
}

func NewClient(hub *Hub, conn *websocket.Conn, participant string, doneChan chan struct{}) *Client {
	c := &Client{
		hub:         hub,
		conn:        conn,
		Send:        make(chan []byte, sendChannelSize),
		participant: participant,
		doneChan:    doneChan,
	}
	c.engine = roomsync.NewEngine(hub.Store, participant, hub.Cfg.RoomsConfig.LegacyRoom, c.pushSnapshot)
	return c
}

// Engine exposes the connection's sync engine, for the subscribe call after
// the handshake.
func (c *Client) Engine() *roomsync.Engine {
	return c.engine
}

// pushSnapshot forwards a document snapshot to this connection. It runs under
// the engine lock, so it only queues.
func (c *Client) pushSnapshot(room types.RoomState) {
	msg, err := wireMessage(types.WireMessageTypeSnapshot, room)
	if err != nil {
		globals.AppLogger.Error("could not marshal snapshot", "error", err)
		return
	}
	select {
	case c.Send <- msg:
	default:
		globals.AppLogger.Warn("send buffer full, dropping snapshot", "participant", c.participant)
	}
}

// SendError surfaces an op failure to this connection only. The document state
// is unaffected, the client stays subscribed.
func (c *Client) SendError(err error) {
	msg, merr := wireMessage(types.WireMessageTypeError, types.ErrorMessage{Message: err.Error()})
	if merr != nil {
		return
	}
	select {
	case c.Send <- msg:
	default:
	}
}

// decode unmarshals the raw payload into a map and weakly decodes it into out,
// so numeric and string variants from older clients still bind.
func decode(raw json.RawMessage, out interface{}) error {
	payload := make(map[string]interface{})
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return mapstructure.WeakDecode(payload, out)
}

// ReadLoop pumps messages from the websocket connection to the sync engine.
//
// The application runs ReadLoop in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadLoop() {
	defer func() {
		c.conn.Close()
		close(c.doneChan)
		c.Done()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	message := &types.WebsocketMessage{}
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				globals.AppLogger.Info("ws closed unexpected", "error", err)
			}
			return
		}

		err = json.Unmarshal(raw, &message)
		if err != nil {
			globals.AppLogger.Error("could not unmarshal ws message", "error", err)
			return
		}

		if err := c.handleMessage(message); err != nil {
			c.SendError(err)
		}
	}
}

func (c *Client) handleMessage(message *types.WebsocketMessage) error {
	now := time.Now()
	switch message.Event {
	case types.WireMessageTypePatch:
		patch := &types.RoomPatch{}
		if err := decode(message.Data, patch); err != nil {
			return err
		}
		return c.engine.Patch(patch)

	case types.WireMessageTypeDailyUnlock:
		return c.engine.Transact(roomsync.UnlockDaily(c.engine.RoomId(), now))

	case types.WireMessageTypePlaylistAdd:
		entry := types.PlaylistEntry{}
		if err := decode(message.Data, &entry); err != nil {
			return err
		}
		entry.Who = c.participant
		return c.engine.Transact(roomsync.AddPlaylistEntry(entry, now))

	case types.WireMessageTypePlaylistRemove:
		payload := types.PlaylistRemovePayload{}
		if err := decode(message.Data, &payload); err != nil {
			return err
		}
		return c.engine.Transact(roomsync.RemovePlaylistEntry(payload.DateKey, payload.Who))

	case types.WireMessageTypePlaylistClear:
		return c.engine.Transact(roomsync.ClearPlaylist())

	case types.WireMessageTypeRestAdd:
		var payload interface{}
		if err := json.Unmarshal(message.Data, &payload); err != nil {
			return err
		}
		return c.engine.Transact(roomsync.AddRestRange(payload))

	case types.WireMessageTypeRestRemove:
		var payload interface{}
		if err := json.Unmarshal(message.Data, &payload); err != nil {
			return err
		}
		return c.engine.Transact(roomsync.RemoveRestRange(payload))

	case types.WireMessageTypeMovieAdd:
		payload := types.MoviePayload{}
		if err := decode(message.Data, &payload); err != nil {
			return err
		}
		return c.engine.Transact(roomsync.AddCustomMovie(payload.Title))

	case types.WireMessageTypeMovieRemove:
		payload := types.MoviePayload{}
		if err := decode(message.Data, &payload); err != nil {
			return err
		}
		return c.engine.Transact(roomsync.RemoveCustomMovie(payload.Title))

	case types.WireMessageTypeQuizAnswer:
		payload := types.QuizAnswerPayload{}
		if err := decode(message.Data, &payload); err != nil {
			return err
		}
		return c.engine.Transact(roomsync.AnswerDailyQuiz(c.engine.RoomId(), c.participant, payload.Answer, now))

	case types.WireMessageTypeCoupleQuizSubmit:
		payload := types.CoupleQuizPayload{}
		if err := decode(message.Data, &payload); err != nil {
			return err
		}
		return c.engine.Transact(roomsync.SubmitCoupleQuiz(c.participant, payload.Answers, now))
	}
	globals.AppLogger.Debug("ignoring unknown ws event", "event", message.Event)
	return nil
}

// WriteLoop pumps messages from the hub to the websocket connection.
//
// A goroutine running WriteLoop is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WriteLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.Done()
	}()
	for {
		select {
		case <-c.doneChan:
			return
		default:
		}
		select {
		case message, ok := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.doneChan:
			return
		}
	}
}

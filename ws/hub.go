package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/glachaux/reunion-rooms/config"
	"github.com/glachaux/reunion-rooms/globals"
	"github.com/glachaux/reunion-rooms/persistence"
	"github.com/glachaux/reunion-rooms/types"
)

const (
	maxMessageSize       = 4096
	pongWait             = 2 * time.Minute
	pingPeriod           = time.Minute
	writeWait            = 10 * time.Second
	broadcastChannelSize = 1000
)

// Hub tracks the websocket connections of one room. Document snapshots flow
// from each connection's own sync engine; the hub only carries room-level
// broadcasts (connection counts).
type Hub struct {
	// there is one hub per room
	roomId string

	// Registered clients.
	clients map[*Client]struct{}

	// Broadcast messages to all clients.
	Broadcast chan []byte

	// Register a new client to the hub.
	Register chan *Client

	// Unregister a client from the hub.
	Unregister chan *Client

	// global configuration
	Cfg *config.Config

	// shared document store
	Store *persistence.Store

	// mutex for manipulating the clients
	sync.RWMutex
}

func NewHub(roomId string, cfg *config.Config, store *persistence.Store) *Hub {
	return &Hub{
		roomId:     roomId,
		clients:    make(map[*Client]struct{}),
		Broadcast:  make(chan []byte, broadcastChannelSize),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Cfg:        cfg,
		Store:      store,
	}
}

// NoClients returns the number of clients registered
func (h *Hub) NoClients() int {
	h.RLock()
	defer h.RUnlock()
	return len(h.clients)
}

// Run is the main hub event loop handling register, unregister and broadcast events.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			globals.AppLogger.Debug("register new client", "room", h.roomId)
			h.Lock()
			h.clients[client] = struct{}{}
			h.Unlock()
			go h.SendInfo(h.GetInfo())

		case client := <-h.Unregister:
			go func() {
				h.RLock()
				if _, ok := h.clients[client]; ok {
					h.RUnlock()
					globals.AppLogger.Debug("unregister client", "room", h.roomId)

					h.Lock()
					delete(h.clients, client)
					client.engine.Leave()
					// probably already is closed, just to make sure
					client.conn.Close()
					// wait for all loops and write operations to be finished,
					// then it is safe to close the send channel
					client.Wait()
					close(client.Send)
					h.Unlock()
					go h.SendInfo(h.GetInfo())
				} else {
					h.RUnlock()
				}
			}()

		case message := <-h.Broadcast:
			go func() {
				var wg sync.WaitGroup
				h.RLock()
				for client := range h.clients {
					wg.Add(1)
					client.Add(1)
					go func(c *Client) {
						defer wg.Done()
						defer c.Done()
						c.Send <- message
					}(client)
				}
				wg.Wait()
				h.RUnlock()
			}()
		}
	}
}

func (h *Hub) GetInfo() types.InfoMessage {
	return types.InfoMessage{
		Room:          h.roomId,
		NoConnections: h.NoClients(),
	}
}

// SendInfo broadcasts hub statistics to all clients.
func (h *Hub) SendInfo(info types.InfoMessage) {
	msg, err := wireMessage(types.WireMessageTypeInfo, info)
	if err != nil {
		globals.AppLogger.Error("could not marshal ws info", "error", err)
		return
	}
	h.Broadcast <- msg
}

// wireMessage wraps a payload in the {event, data} envelope.
func wireMessage(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(types.WebsocketMessage{Event: event, Data: data})
}

// Package live pushes tournament events to websocket subscribers, one room
// per tournament.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"casino-tournaments/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	broadcastBuffer = 256
	clientBuffer    = 64
)

var errHubStopped = errors.New("live hub stopped")

// Message is the frame sent to subscribers.
type Message struct {
	Type         model.EventType `json:"type"`
	TournamentID string          `json:"tournament_id"`
	At           time.Time       `json:"at"`
	Payload      any             `json:"payload,omitempty"`
}

// Client is one websocket subscriber.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room string
}

// Hub fans events out to the clients subscribed to a tournament.
type Hub struct {
	broadcast  chan model.Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}

	upgrader websocket.Upgrader
}

// NewHub creates a new Hub instance. Run must be started before clients connect.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan model.Event, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Publish queues an event for broadcast. It never blocks; events are dropped
// when the hub is saturated.
func (h *Hub) Publish(evt model.Event) {
	select {
	case h.broadcast <- evt:
	default:
		log.Warn().
			Str("tournament_id", evt.TournamentID).
			Str("type", string(evt.Type)).
			Msg("Live feed saturated, dropping event")
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// closes every client.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return nil

		case c := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[c.room]
			if !ok {
				room = make(map[*Client]struct{})
				h.rooms[c.room] = room
			}
			room[c] = struct{}{}
			n := len(room)
			h.mu.Unlock()
			log.Debug().Str("tournament_id", c.room).Int("clients", n).Msg("Live client registered")

		case c := <-h.unregister:
			h.remove(c)

		case evt := <-h.broadcast:
			h.deliver(evt)
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[c.room]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, c.room)
	}
	log.Debug().Str("tournament_id", c.room).Int("clients", len(room)).Msg("Live client unregistered")
}

func (h *Hub) deliver(evt model.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room := h.rooms[evt.TournamentID]
	if len(room) == 0 {
		return
	}

	data, err := json.Marshal(Message{
		Type:         evt.Type,
		TournamentID: evt.TournamentID,
		At:           evt.At,
		Payload:      evt.Payload,
	})
	if err != nil {
		log.Error().Err(err).Str("tournament_id", evt.TournamentID).Msg("Failed to encode live event")
		return
	}

	for c := range room {
		select {
		case c.send <- data:
		default:
			log.Debug().Str("tournament_id", evt.TournamentID).Msg("Live client too slow, skipping event")
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		for c := range room {
			close(c.send)
		}
		delete(h.rooms, id)
	}
}

// Subscribers returns the number of clients watching a tournament.
func (h *Hub) Subscribers(tournamentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[tournamentID])
}

// ServeWS upgrades the request and subscribes it to tournamentID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, tournamentID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, clientBuffer),
		room: tournamentID,
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return errHubStopped
	case <-r.Context().Done():
		conn.Close()
		return r.Context().Err()
	}

	go c.writePump()
	go c.readPump()
	return nil
}

// readPump drains client frames so pongs and close frames are handled.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("tournament_id", c.room).Msg("Live client closed unexpectedly")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

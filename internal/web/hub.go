package web

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/codefionn/daybook/internal/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// ProgressEvent is pushed to connected clients while a digest generation
// run fans out over its sources.
type ProgressEvent struct {
	Type   string `json:"type"`
	Source string `json:"source,omitempty"`
	Time   int64  `json:"time"`
}

// Hub maintains the set of active progress subscribers and broadcasts
// events to all of them.
type Hub struct {
	clients    map[*hubClient]bool
	broadcast  chan ProgressEvent
	register   chan *hubClient
	unregister chan *hubClient
	quit       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a progress hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*hubClient]bool),
		broadcast:  make(chan ProgressEvent, 64),
		register:   make(chan *hubClient),
		unregister: make(chan *hubClient),
		quit:       make(chan struct{}),
	}
}

// Run dispatches events until Stop is called.
func (h *Hub) Run() {
	log := logger.Global().WithPrefix("web")
	log.Debug("progress hub started")
	defer log.Debug("progress hub stopped")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- event:
				default:
					// Slow consumer, drop it.
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			return
		}
	}
}

// Stop stops the hub.
func (h *Hub) Stop() {
	close(h.quit)
}

// Broadcast publishes an event to every subscriber. Safe to call from any
// goroutine; events are dropped when no dispatcher is draining the channel.
func (h *Hub) Broadcast(eventType, source string) {
	event := ProgressEvent{
		Type:   eventType,
		Source: source,
		Time:   time.Now().UnixMilli(),
	}
	select {
	case h.broadcast <- event:
	default:
	}
}

type hubClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan ProgressEvent
}

func newHubClient(hub *Hub, conn *websocket.Conn) *hubClient {
	return &hubClient{
		hub:  hub,
		conn: conn,
		send: make(chan ProgressEvent, 64),
	}
}

// readPump discards client messages and detects disconnects.
func (c *hubClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards broadcast events to the peer and keeps the connection
// alive with pings.
func (c *hubClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

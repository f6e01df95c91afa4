// Package ws is the live activity feed. Clients subscribe to a collection
// and receive every committed event for it as JSON frames.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bazaar/domain/market"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	room string
}

// Hub fans committed events out to subscribed connections. Slow clients are
// dropped rather than allowed to back-pressure the feed.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
	log   *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*client]struct{}),
		log:   log,
	}
}

// Publish implements the service's event feed.
func (h *Hub) Publish(ev market.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("encode feed event", zap.Error(err))
		return
	}
	room := ev.Collection.Hex()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		select {
		case c.send <- payload:
		default:
			// Buffer full; the write pump will notice the closed channel.
			go h.remove(c)
		}
	}
}

// ServeHTTP upgrades a subscription request. The collection comes from the
// "collection" query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("collection")
	if room == "" {
		http.Error(w, "missing collection", http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), room: room}
	h.add(c)
	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[c.room] == nil {
		h.rooms[c.room] = make(map[*client]struct{})
	}
	h.rooms[c.room][c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.rooms[c.room]; ok {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			close(c.send)
			if len(clients) == 0 {
				delete(h.rooms, c.room)
			}
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

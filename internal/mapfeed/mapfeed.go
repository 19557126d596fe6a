// Package mapfeed broadcasts decoded ACARS records to connected
// WebSocket clients, standing in for the
// original system's external map-UI feed (spec.md §6).
//
// Grounded on dxcluster_websocket.go's broadcast hub: one write mutex
// per connection, a copy-then-release pattern so slow client writes
// never block the registry lock, and best-effort cleanup of failed
// connections.
package mapfeed

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Update is one event pushed to every connected client: the
// identifying fields and text of a decoded ACARS record. It carries no
// position.
type Update struct {
	Timestamp    int64   `json:"timestamp"`
	Registration string  `json:"registration"`
	FlightNo     string  `json:"flight,omitempty"`
	Label        string  `json:"label"`
	Frequency    float64 `json:"freq"`
	Text         string  `json:"text,omitempty"`
	Direction    string  `json:"direction"`
}

// Hub fans Updates out to every connected WebSocket client.
type Hub struct {
	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*sync.Mutex

	upgrader websocket.Upgrader

	bufferMu sync.RWMutex
	buffer   []Update
	maxBuf   int
}

// NewHub returns an empty Hub retaining up to maxBuf recent updates
// for replay to newly connected clients.
func NewHub(maxBuf int) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*sync.Mutex),
		buffer:  make([]Update, 0, maxBuf),
		maxBuf:  maxBuf,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    1024,
			WriteBufferSize:   1024,
			EnableCompression: true,
			CheckOrigin:       func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request to a WebSocket connection and
// replays the buffered updates before joining the broadcast set.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("mapfeed: upgrade failed: %v", err)
		return
	}

	h.bufferMu.RLock()
	backlog := append([]Update{}, h.buffer...)
	h.bufferMu.RUnlock()

	for _, u := range backlog {
		buf, err := json.Marshal(u)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, buf); err != nil {
			conn.Close()
			return
		}
	}

	h.clientsMu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.clientsMu.Unlock()

	go h.readUntilClosed(conn)
}

func (h *Hub) readUntilClosed(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.clientsMu.Lock()
			delete(h.clients, conn)
			h.clientsMu.Unlock()
			conn.Close()
			return
		}
	}
}

// Publish buffers u and broadcasts it to every connected client.
func (h *Hub) Publish(u Update) {
	h.bufferMu.Lock()
	h.buffer = append(h.buffer, u)
	if len(h.buffer) > h.maxBuf {
		h.buffer = h.buffer[len(h.buffer)-h.maxBuf:]
	}
	h.bufferMu.Unlock()

	payload, err := json.Marshal(u)
	if err != nil {
		log.Printf("mapfeed: marshal failed: %v", err)
		return
	}

	h.clientsMu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	mus := make([]*sync.Mutex, 0, len(h.clients))
	for c, mu := range h.clients {
		conns = append(conns, c)
		mus = append(mus, mu)
	}
	h.clientsMu.RUnlock()

	var failed []*websocket.Conn
	for i, conn := range conns {
		mus[i].Lock()
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		err := conn.WriteMessage(websocket.TextMessage, payload)
		mus[i].Unlock()
		if err != nil {
			failed = append(failed, conn)
		}
	}

	if len(failed) > 0 {
		h.clientsMu.Lock()
		for _, c := range failed {
			delete(h.clients, c)
			c.Close()
		}
		h.clientsMu.Unlock()
	}
}

package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// DisplayEvent is the tagged union pushed to hall displays.
type DisplayEvent struct {
	Type    string   `json:"type"` // question, results, slide
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
	Seconds int      `json:"seconds,omitempty"`
}

const (
	DisplayEventQuestion = "question"
	DisplayEventResults  = "results"
	DisplayEventSlide    = "slide"
)

// DisplayConn is the write side of one hall connection. *websocket.Conn
// satisfies it.
type DisplayConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// displayTextMessage mirrors websocket.TextMessage without importing the
// transport package into the hub.
const displayTextMessage = 1

// Hub fans display events out to every registered hall connection. Broadcast
// is always best-effort: a connection that fails a write is pruned and the
// rest still receive the event.
type Hub struct {
	mu    sync.Mutex
	conns map[DisplayConn]struct{}
	cache *LiveStateCache
}

func NewHub(cache *LiveStateCache) *Hub {
	return &Hub{
		conns: make(map[DisplayConn]struct{}),
		cache: cache,
	}
}

func (h *Hub) Register(conn DisplayConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
	log.Printf("hall display connected, total=%d", len(h.conns))
}

// Unregister removes a connection; calling it twice is harmless.
func (h *Hub) Unregister(conn DisplayConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; !ok {
		return
	}
	delete(h.conns, conn)
	_ = conn.Close()
	log.Printf("hall display disconnected, total=%d", len(h.conns))
}

// Broadcast delivers the event to every connected display and remembers it as
// the current hall screen so late joiners can catch up. It never fails as a
// whole.
func (h *Hub) Broadcast(event DisplayEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("hall broadcast marshal failed: %v", err)
		return
	}

	if h.cache != nil {
		if err := h.cache.StoreEvent(context.Background(), event); err != nil {
			log.Printf("failed to cache hall state: %v", err)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	var dead []DisplayConn
	for conn := range h.conns {
		if err := conn.WriteMessage(displayTextMessage, data); err != nil {
			dead = append(dead, conn)
		}
	}
	for _, conn := range dead {
		delete(h.conns, conn)
		_ = conn.Close()
	}
	if len(dead) > 0 {
		log.Printf("pruned %d dead hall displays, total=%d", len(dead), len(h.conns))
	}
}

// SendCurrent replays the cached hall screen to one freshly connected display.
func (h *Hub) SendCurrent(ctx context.Context, conn DisplayConn) {
	if h.cache == nil {
		return
	}
	event, err := h.cache.CurrentEvent(ctx)
	if err != nil {
		log.Printf("failed to load cached hall state: %v", err)
		return
	}
	if event == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := conn.WriteMessage(displayTextMessage, data); err != nil {
		h.Unregister(conn)
	}
}

// ConnectionCount is used by tests and the health endpoint.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

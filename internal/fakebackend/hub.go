package fakebackend

import (
	"sync"
	"time"

	"github.com/vovakirdan/livetrigger/internal/proto"
)

const backlogSize = 512

// Client is a websocket subscriber of the hub.
type Client struct {
	ID     string
	Events chan proto.Inbound
}

// NewClient constructs a client with a buffered event channel.
func NewClient(id string) *Client {
	return &Client{ID: id, Events: make(chan proto.Inbound, 64)}
}

type entry struct {
	seq int64
	msg proto.Inbound
}

// Hub fans published frames out to websocket clients and keeps a cursor
// addressed backlog for long-poll sessions.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	backlog []entry
	seq     int64
	wake    chan struct{}
	now     func() time.Time
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		wake:    make(chan struct{}),
		now:     time.Now,
	}
}

// Register adds c to the broadcast set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes c. Returns true if it was registered.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	delete(h.clients, c)
	return true
}

// Clients returns the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish stamps msg, appends it to the backlog and broadcasts it.
func (h *Hub) Publish(msg proto.Inbound) {
	if msg.TS == 0 {
		msg.TS = h.now().UnixMilli()
	}

	h.mu.Lock()
	h.seq++
	h.backlog = append(h.backlog, entry{seq: h.seq, msg: msg})
	if len(h.backlog) > backlogSize {
		h.backlog = h.backlog[len(h.backlog)-backlogSize:]
	}
	for c := range h.clients {
		select {
		case c.Events <- msg:
		default:
			// Drop if slow consumer.
		}
	}
	close(h.wake)
	h.wake = make(chan struct{})
	h.mu.Unlock()
}

// Since returns frames published after cursor, the new cursor, and a channel
// closed on the next publish.
func (h *Hub) Since(cursor int64) ([]proto.Inbound, int64, <-chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []proto.Inbound
	for _, e := range h.backlog {
		if e.seq > cursor {
			out = append(out, e.msg)
		}
	}
	return out, h.seq, h.wake
}

// Cursor returns the sequence of the newest frame.
func (h *Hub) Cursor() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seq
}

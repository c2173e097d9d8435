package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/obsidianstack/rateboost/pkg/types"
)

// EventSnapshot is the only event the hub emits.
const EventSnapshot = "snapshot"

// Source provides the snapshot to broadcast.
type Source interface {
	Snapshot() types.Snapshot
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string         `json:"event"`
	Data  types.Snapshot `json:"data"`
}

// Hub fans snapshots out to connected clients.
type Hub struct {
	src      Source
	interval time.Duration
	upgrader websocket.Upgrader

	// mu guards peers. Sends to a peer's queue happen under RLock and the
	// queue is closed only under Lock, so a send never hits a closed queue.
	mu    sync.RWMutex
	peers map[*peer]struct{}
}

// New returns a Hub that publishes src every interval.
func New(src Source, interval time.Duration) *Hub {
	return &Hub{
		src:      src,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// CORS is left to the reverse proxy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		peers: make(map[*peer]struct{}),
	}
}

// Run publishes until ctx is done, then disconnects every peer.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.dropAll()
			return
		case <-t.C:
			h.publish()
		}
	}
}

// ServeHTTP upgrades the request and serves the peer until it goes away.
// The current snapshot is queued before the first broadcast.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	p := newPeer(conn)
	if frame, err := h.frame(); err == nil {
		p.queue <- frame
	}
	h.mu.Lock()
	h.peers[p] = struct{}{}
	h.mu.Unlock()
	defer h.drop(p)

	go p.writeLoop()
	p.readLoop()
}

// Count returns the number of connected peers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

func (h *Hub) publish() {
	if h.Count() == 0 {
		return
	}
	frame, err := h.frame()
	if err != nil {
		slog.Warn("ws: encode snapshot failed", "err", err)
		return
	}

	var slow []*peer
	h.mu.RLock()
	for p := range h.peers {
		if !p.offer(frame) {
			slow = append(slow, p)
		}
	}
	h.mu.RUnlock()

	for _, p := range slow {
		slog.Debug("ws: dropping slow client", "remote", p.conn.RemoteAddr().String())
		h.drop(p)
	}
}

func (h *Hub) frame() ([]byte, error) {
	return json.Marshal(Message{Event: EventSnapshot, Data: h.src.Snapshot()})
}

func (h *Hub) drop(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.peers[p]; ok {
		delete(h.peers, p)
		close(p.queue)
	}
}

func (h *Hub) dropAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for p := range h.peers {
		delete(h.peers, p)
		close(p.queue)
	}
}

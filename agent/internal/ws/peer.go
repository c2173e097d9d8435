package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	idleWait   = 60 * time.Second
	pingEvery  = idleWait * 9 / 10
	queueDepth = 16
	maxInbound = 512
)

// peer is one WebSocket connection. Its queue is owned by the Hub: only
// the Hub closes it.
type peer struct {
	conn  *websocket.Conn
	queue chan []byte
}

func newPeer(conn *websocket.Conn) *peer {
	return &peer{conn: conn, queue: make(chan []byte, queueDepth)}
}

// offer queues frame without blocking and reports whether there was room.
func (p *peer) offer(frame []byte) bool {
	select {
	case p.queue <- frame:
		return true
	default:
		return false
	}
}

// writeLoop forwards queued frames and keeps the connection alive with
// pings. A closed queue sends a close frame and ends the connection.
func (p *peer) writeLoop() {
	ping := time.NewTicker(pingEvery)
	defer func() {
		ping.Stop()
		p.conn.Close()
	}()

	for {
		var (
			kind = websocket.PingMessage
			data []byte
		)
		select {
		case frame, ok := <-p.queue:
			if !ok {
				p.conn.SetWriteDeadline(time.Now().Add(writeWait))
				p.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck
				return
			}
			kind, data = websocket.TextMessage, frame
		case <-ping.C:
		}
		p.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := p.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}

// readLoop discards inbound frames; it exists to process pongs and close
// frames and to notice a dead connection.
func (p *peer) readLoop() {
	defer p.conn.Close()
	p.conn.SetReadLimit(maxInbound)
	p.conn.SetReadDeadline(time.Now().Add(idleWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(idleWait))
	})
	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			return
		}
	}
}

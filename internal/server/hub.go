package server

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ruminaider/profilepop/internal/router"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
)

// Hub streams router events to every connected websocket client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	log     *zap.Logger
}

type client struct {
	conn *websocket.Conn
	send chan router.Event
}

// NewHub constructor
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		log:     log,
	}
}

// Publish delivers ev to every client. Clients whose buffer is full miss the
// event rather than stalling the publisher.
func (h *Hub) Publish(_ context.Context, ev router.Event) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	var wg conc.WaitGroup
	for _, c := range clients {
		wg.Go(func() {
			select {
			case c.send <- ev:
			default:
				h.log.Warn("event dropped for slow client",
					zap.String("event", string(ev.Type)),
					zap.String("remote", c.conn.RemoteAddr().String()),
				)
			}
		})
	}
	wg.Wait()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Attach streams events to an upgraded connection until the client leaves.
func (h *Hub) Attach(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan router.Event, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("event client connected", zap.String("remote", conn.RemoteAddr().String()))

	done := make(chan struct{})
	go h.writeLoop(c, done)

	// Incoming frames are ignored; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(done)
	conn.Close()
	h.log.Debug("event client disconnected", zap.String("remote", conn.RemoteAddr().String()))
}

func (h *Hub) writeLoop(c *client, done <-chan struct{}) {
	for {
		select {
		case ev := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				h.log.Info("writing event", zap.Error(err))
				return
			}
		case <-done:
			return
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

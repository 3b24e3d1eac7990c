package websocket

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	xglog "moviemania/internal/log"
	"moviemania/pkg/models"
)

// Hub fans notification entries out to connected dashboard clients. All
// client bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[*client]struct{}
	broadcast  chan models.Notification
	register   chan *client
	unregister chan *client
	done       chan struct{}
	logger     zerolog.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan models.Notification, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     xglog.WithComponent("websocket"),
	}
}

// Run handles registration and broadcasting until ctx is cancelled, then
// closes every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	logger := h.logger
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			logger.Debug().Str("username", c.username).Int("clients", len(h.clients)).Msg("client connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				logger.Debug().Str("username", c.username).Int("clients", len(h.clients)).Msg("client disconnected")
			}

		case n := <-h.broadcast:
			data, err := json.Marshal(n)
			if err != nil {
				logger.Error().Err(err).Msg("marshal notification")
				continue
			}
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					logger.Warn().Str("username", c.username).Msg("client send buffer full, dropping client")
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Publish queues n for broadcast without blocking the caller.
func (h *Hub) Publish(n models.Notification) {
	select {
	case h.broadcast <- n:
	default:
		h.logger.Warn().Msg("broadcast queue full, dropping notification")
	}
}

func (h *Hub) join(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

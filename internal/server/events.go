package server

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"soulspark/internal/middleware"
	"soulspark/internal/models"
	"soulspark/internal/notifications"
	"soulspark/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	// Max concurrent feed streams
	maxStreams   = 1000
	streamBuffer = 16

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 1024
)

var errTooManyStreams = errors.New("event stream limit reached")

// feedHub fans feed events out to connected feed streams. Slow streams drop
// events rather than block the broadcaster.
type feedHub struct {
	mu      sync.RWMutex
	clients map[chan notifications.Event]struct{}
	closed  bool
}

func newFeedHub() *feedHub {
	return &feedHub{clients: make(map[chan notifications.Event]struct{})}
}

func (h *feedHub) register() (chan notifications.Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, errors.New("event hub closed")
	}
	if len(h.clients) >= maxStreams {
		return nil, errTooManyStreams
	}
	ch := make(chan notifications.Event, streamBuffer)
	h.clients[ch] = struct{}{}
	return ch, nil
}

func (h *feedHub) unregister(ch chan notifications.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

func (h *feedHub) broadcast(ev notifications.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *feedHub) size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// close disconnects every stream and refuses new ones.
func (h *feedHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}

// FeedUpgrade rejects plain HTTP requests to the live feed endpoint before
// the websocket handshake.
func (s *Server) FeedUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s.redis == nil {
			return s.respond(c, models.NewUnavailableError("Live updates are not available."))
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
				"error": "Websocket upgrade required",
			})
		}
		return c.Next()
	}
}

// StreamEvents handles GET /api/events as a websocket that pushes feed
// changes. The stream is one-way; inbound messages are ignored.
func (s *Server) StreamEvents() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ch, err := s.feed.register()
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		observability.FeedStreams.Inc()
		defer observability.FeedStreams.Dec()

		done := make(chan struct{})
		go func() {
			defer close(done)
			conn.SetReadLimit(maxInboundSize)
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer func() {
			ticker.Stop()
			s.feed.unregister(ch)
			_ = conn.Close()
		}()

		for {
			select {
			case <-done:
				return
			case ev, ok := <-ch:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := conn.WriteJSON(ev); err != nil {
					middleware.Logger.Debug("feed stream closed", slog.String("error", err.Error()))
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	})
}

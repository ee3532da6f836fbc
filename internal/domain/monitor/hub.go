package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	defaultSendBuffer = 8
)

// Hub fans stats snapshots out to every connected WebSocket client. Clients
// that cannot keep up with the broadcast rate are disconnected rather than
// allowed to block the others.
type Hub struct {
	collector  *Collector
	interval   time.Duration
	sendBuffer int
	upgrader   websocket.Upgrader
	logger     zerolog.Logger

	mu      sync.Mutex
	clients map[*session]struct{}

	done chan struct{}
	once sync.Once
}

type session struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(collector *Collector, interval time.Duration, sendBuffer int, logger zerolog.Logger) *Hub {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	return &Hub{
		collector:  collector,
		interval:   interval,
		sendBuffer: sendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Admin sessions are cookie-scoped; the dashboard may be served
			// from a different origin in development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger.With().Str("component", "monitor_hub").Logger(),
		clients: map[*session]struct{}{},
		done:    make(chan struct{}),
	}
}

// Run broadcasts a snapshot on every tick until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.Shutdown()
			return
		case <-h.done:
			return
		case <-ticker.C:
			h.broadcast()
		}
	}
}

// Shutdown closes every client connection and stops the broadcast loop.
func (h *Hub) Shutdown() {
	h.once.Do(func() {
		close(h.done)
		h.mu.Lock()
		for s := range h.clients {
			close(s.send)
			delete(h.clients, s)
		}
		h.mu.Unlock()
	})
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a WebSocket connection and streams
// snapshots to it. The first snapshot is sent immediately on connect.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	s := &session{conn: conn, send: make(chan []byte, h.sendBuffer)}

	h.mu.Lock()
	h.clients[s] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().Int("clients", count).Msg("monitor client connected")

	if payload, err := json.Marshal(h.collector.Snapshot(count)); err == nil {
		select {
		case s.send <- payload:
		default:
		}
	}

	go h.writePump(s)
	go h.readPump(s)
}

func (h *Hub) broadcast() {
	h.mu.Lock()
	count := len(h.clients)
	h.mu.Unlock()
	if count == 0 {
		return
	}

	payload, err := json.Marshal(h.collector.Snapshot(count))
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal snapshot failed")
		return
	}

	h.mu.Lock()
	for s := range h.clients {
		select {
		case s.send <- payload:
		default:
			// Slow consumer: drop it instead of stalling the broadcast.
			close(s.send)
			delete(h.clients, s)
			h.logger.Warn().Msg("dropping slow monitor client")
		}
	}
	h.mu.Unlock()
}

func (h *Hub) remove(s *session) {
	h.mu.Lock()
	if _, ok := h.clients[s]; ok {
		close(s.send)
		delete(h.clients, s)
	}
	h.mu.Unlock()
}

func (h *Hub) writePump(s *session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains inbound frames so pongs and close frames are processed.
func (h *Hub) readPump(s *session) {
	defer func() {
		h.remove(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

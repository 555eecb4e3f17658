// Package ws bridges the signal bus to WebSocket clients so classroom
// dashboards see quote publications, executed orders, and state changes as
// they happen.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/misionbonos/bondgame/internal/domain"
	"github.com/misionbonos/bondgame/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10 // must stay under pongWait
	maxMessageSize = 4096
	sessionBuffer  = 256
)

// busChannels are the signal bus channels the hub mirrors to clients.
var busChannels = []string{
	service.ChannelQuotes,
	service.ChannelOrders,
	service.ChannelGame,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards connect from arbitrary classroom machines; REST CORS is
	// enforced separately.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// session is one connected dashboard. A session receives every event until
// it narrows its feed to particular game codes.
type session struct {
	hub  *Hub
	conn *websocket.Conn
	out  chan []byte

	mu    sync.RWMutex
	games map[string]struct{} // empty means all games
}

// controlMsg is the filter message a session may send:
//
//	{"action":"watch","games":["MB-001"]}
//	{"action":"unwatch","games":["MB-001"]}
type controlMsg struct {
	Action string   `json:"action"`
	Games  []string `json:"games"`
}

// Hub fans signal-bus events out to WebSocket sessions.
type Hub struct {
	bus    domain.SignalBus
	logger *slog.Logger

	events  chan []byte
	joins   chan *session
	leaves  chan *session
	done    chan struct{}
	started time.Time

	mu       sync.RWMutex
	sessions map[*session]struct{}
}

// NewHub creates a hub bridging the given signal bus to WebSocket clients.
func NewHub(bus domain.SignalBus, logger *slog.Logger) *Hub {
	return &Hub{
		bus:      bus,
		logger:   logger,
		events:   make(chan []byte, 256),
		joins:    make(chan *session),
		leaves:   make(chan *session),
		done:     make(chan struct{}),
		started:  time.Now().UTC(),
		sessions: make(map[*session]struct{}),
	}
}

// Run pumps bus events to sessions until the context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for _, ch := range busChannels {
		go h.mirror(ctx, ch)
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return ctx.Err()
		case s := <-h.joins:
			h.add(s)
		case s := <-h.leaves:
			h.remove(s)
		case data := <-h.events:
			h.deliver(data)
		}
	}
}

// join registers the session with the event loop. It reports false when
// the hub has already stopped.
func (h *Hub) join(s *session) bool {
	select {
	case h.joins <- s:
		return true
	case <-h.done:
		return false
	}
}

// leave hands the session back to the event loop. A stopped hub has
// already closed every session, so the handoff is skipped.
func (h *Hub) leave(s *session) {
	select {
	case h.leaves <- s:
	case <-h.done:
	}
}

func (h *Hub) add(s *session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	n := len(h.sessions)
	h.mu.Unlock()
	h.logger.Info("ws: client connected", slog.Int("sessions", n))
}

func (h *Hub) remove(s *session) {
	h.mu.Lock()
	if _, ok := h.sessions[s]; ok {
		delete(h.sessions, s)
		close(s.out)
	}
	n := len(h.sessions)
	h.mu.Unlock()
	h.logger.Info("ws: client disconnected", slog.Int("sessions", n))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		close(s.out)
		delete(h.sessions, s)
	}
}

// deliver routes one event to every session watching its game code. Slow
// sessions get skipped rather than stalling the loop.
func (h *Hub) deliver(data []byte) {
	code := eventGameCode(data)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.sessions {
		if !s.watches(code) {
			continue
		}
		select {
		case s.out <- data:
		default:
			h.logger.Warn("ws: dropping event for slow client")
		}
	}
}

// mirror forwards one bus channel into the hub's event loop.
func (h *Hub) mirror(ctx context.Context, channel string) {
	feed, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error("ws: subscribe failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	h.logger.Info("ws: mirroring channel", slog.String("channel", channel))

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-feed:
			if !ok {
				h.logger.Warn("ws: bus feed closed", slog.String("channel", channel))
				return
			}
			select {
			case h.events <- data:
			case <-ctx.Done():
				return
			}
		}
	}
}

// eventGameCode peeks at the event envelope for its game code. Payloads
// that do not parse broadcast to everyone.
func eventGameCode(data []byte) string {
	var env struct {
		GameCode string `json:"game_code"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return ""
	}
	return env.GameCode
}

// HandleWS upgrades the request and registers the session. The ?game=
// query parameter narrows the feed from the start.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	s := &session{
		hub:   h,
		conn:  conn,
		out:   make(chan []byte, sessionBuffer),
		games: make(map[string]struct{}),
	}
	if code := r.URL.Query().Get("game"); code != "" {
		s.games[code] = struct{}{}
	}

	if !h.join(s) {
		conn.Close()
		return
	}
	s.greet()

	go s.writeLoop()
	go s.readLoop()
}

// readLoop consumes watch/unwatch messages and keeps the pong deadline
// fresh.
func (s *session) readLoop() {
	defer func() {
		s.hub.leave(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("ws: unexpected close", slog.String("error", err.Error()))
			}
			return
		}

		var msg controlMsg
		if err := json.Unmarshal(raw, &msg); err == nil {
			s.applyFilter(msg)
		}
	}
}

func (s *session) applyFilter(msg controlMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg.Action {
	case "watch":
		for _, code := range msg.Games {
			s.games[code] = struct{}{}
		}
	case "unwatch":
		for _, code := range msg.Games {
			delete(s.games, code)
		}
	}
}

// watches reports whether the session wants events for the game code. An
// empty filter accepts everything; an unscoped event goes to everyone.
func (s *session) watches(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.games) == 0 || code == "" {
		return true
	}
	_, ok := s.games[code]
	return ok
}

// greet sends a small envelope so clients can mark the connection healthy
// before any game events flow.
func (s *session) greet() {
	msg, err := json.Marshal(map[string]any{
		"kind": "hub.welcome",
		"data": map[string]any{
			"uptime_seconds": int64(time.Since(s.hub.started).Seconds()),
		},
	})
	if err != nil {
		return
	}
	select {
	case s.out <- msg:
	default:
	}
}

// writeLoop pushes hub events to the connection and pings for keepalive.
func (s *session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

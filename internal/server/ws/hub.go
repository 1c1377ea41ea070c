// Package ws streams scan results to WebSocket clients. Messages published on
// the signal bus are forwarded to every session subscribed to their channel.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/polyanalytics/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per session.
	sendBufferSize = 256

	defaultReplayCount = 50
	maxReplayCount     = 500
)

// defaultChannels are the bus channels every session starts subscribed to.
var defaultChannels = []string{domain.ChannelArb, domain.ChannelScan}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Replayer returns scan events recorded after a stream id.
type Replayer interface {
	ReplayEvents(ctx context.Context, afterID string, count int) ([]domain.ScanEvent, error)
}

// envelope wraps every frame sent to a client.
type envelope struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// subscribeMsg is the JSON message a client sends to change subscriptions.
type subscribeMsg struct {
	Action   string   `json:"action"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// Hub bridges the signal bus to connected WebSocket sessions.
type Hub struct {
	bus       domain.SignalBus
	replay    Replayer
	sessions  *Registry
	logger    *slog.Logger
	mode      string
	startedAt time.Time
}

// Config captures runtime metadata sent to clients on connect.
type Config struct {
	Mode      string
	StartedAt time.Time
}

// NewHub creates a Hub. replay may be nil, in which case ?since= is ignored.
func NewHub(bus domain.SignalBus, replay Replayer, logger *slog.Logger, cfg Config) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	startedAt := cfg.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	return &Hub{
		bus:       bus,
		replay:    replay,
		sessions:  NewRegistry(),
		logger:    logger.With(slog.String("component", "ws_hub")),
		mode:      cfg.Mode,
		startedAt: startedAt,
	}
}

// Sessions exposes the live session registry.
func (h *Hub) Sessions() *Registry { return h.sessions }

// Run subscribes to the bus channels and forwards messages until ctx is
// cancelled, then closes every session. Without a bus it only waits.
func (h *Hub) Run(ctx context.Context) error {
	if h.bus == nil {
		<-ctx.Done()
		h.sessions.closeAll()
		return ctx.Err()
	}
	for _, ch := range defaultChannels {
		msgs, err := h.bus.Subscribe(ctx, ch)
		if err != nil {
			h.logger.ErrorContext(ctx, "ws: subscribe failed",
				slog.String("channel", ch),
				slog.String("error", err.Error()),
			)
			continue
		}
		go h.forward(ctx, ch, msgs)
	}

	<-ctx.Done()
	h.sessions.closeAll()
	return ctx.Err()
}

func (h *Hub) forward(ctx context.Context, channel string, msgs <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgs:
			if !ok {
				h.logger.WarnContext(ctx, "ws: channel subscription closed", slog.String("channel", channel))
				return
			}
			h.Broadcast(channel, data)
		}
	}
}

// Broadcast sends a bus payload to every session subscribed to channel.
// Slow sessions drop the message.
func (h *Hub) Broadcast(channel string, payload []byte) {
	frame, err := json.Marshal(envelope{Type: "event", Channel: channel, Payload: rawJSON(payload)})
	if err != nil {
		return
	}
	for _, s := range h.sessions.snapshot() {
		if !s.subscribed(channel) {
			continue
		}
		if !s.enqueue(frame) {
			h.logger.Warn("ws: dropping message for slow session", slog.String("session_id", s.id))
		}
	}
}

// HandleWS upgrades the request and registers a session. ?since=<stream id>
// replays scan events recorded after that id; ?since=0 replays from the
// start of the retained stream.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	s := h.sessions.create(conn, defaultChannels)
	h.logger.Info("ws: session opened",
		slog.String("session_id", s.id),
		slog.Int("sessions", h.sessions.Len()),
	)

	h.sendHello(s)
	if since := r.URL.Query().Get("since"); since != "" && h.replay != nil {
		h.sendReplay(r.Context(), s, since, replayCount(r))
	}

	go h.writePump(s)
	go h.readPump(s)
}

func replayCount(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil || n <= 0 {
		return defaultReplayCount
	}
	return min(n, maxReplayCount)
}

func (h *Hub) sendHello(s *session) {
	payload, err := json.Marshal(map[string]any{
		"session_id":     s.id,
		"mode":           h.mode,
		"uptime_seconds": max(int64(time.Since(h.startedAt).Seconds()), 0),
		"channels":       defaultChannels,
	})
	if err != nil {
		return
	}
	h.enqueueFrame(s, envelope{Type: "hello", Payload: payload})
}

func (h *Hub) sendReplay(ctx context.Context, s *session, since string, count int) {
	events, err := h.replay.ReplayEvents(ctx, since, count)
	if err != nil {
		h.logger.WarnContext(ctx, "ws: replay failed",
			slog.String("session_id", s.id),
			slog.String("error", err.Error()),
		)
		return
	}
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		h.enqueueFrame(s, envelope{Type: "replay", Channel: domain.ChannelScan, Payload: payload})
	}
}

func (h *Hub) enqueueFrame(s *session, env envelope) {
	frame, err := json.Marshal(env)
	if err != nil {
		return
	}
	s.enqueue(frame)
}

// readPump handles subscription changes and deletes the session when the
// connection closes.
func (h *Hub) readPump(s *session) {
	defer func() {
		h.sessions.delete(s.id)
		s.conn.Close()
		h.logger.Info("ws: session closed",
			slog.String("session_id", s.id),
			slog.Int("sessions", h.sessions.Len()),
		)
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("ws: unexpected close error",
					slog.String("session_id", s.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var sub subscribeMsg
		if json.Unmarshal(message, &sub) != nil {
			continue
		}
		switch sub.Action {
		case "subscribe":
			s.setSubs(sub.Channels, true)
		case "unsubscribe":
			s.setSubs(sub.Channels, false)
		}
	}
}

// writePump writes queued frames and keepalive pings.
func (h *Hub) writePump(s *session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// rawJSON passes valid JSON through and quotes anything else.
func rawJSON(b []byte) json.RawMessage {
	if json.Valid(b) {
		return b
	}
	quoted, _ := json.Marshal(string(b))
	return quoted
}

package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"pair-relay/domain/event"
	"pair-relay/observability"
	"pair-relay/runtime"
	"pair-relay/sink"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

type Config struct {
	// BufferSize bounds the outbound queue of each connection.
	BufferSize int
	// MaxFrameBytes is the largest inbound frame accepted before the connection is dropped.
	MaxFrameBytes  int64
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	AllowedOrigins []string
}

// Handler upgrades HTTP requests to WebSocket connections and bridges
// every frame to the coordinator. One read pump and one write pump per connection.
type Handler struct {
	log         *slog.Logger
	coordinator *runtime.Coordinator
	metrics     *observability.Metrics
	config      Config
	upgrader    websocket.Upgrader
}

func NewHandler(log *slog.Logger, coordinator *runtime.Coordinator, metrics *observability.Metrics, config Config) *Handler {
	h := &Handler{
		log:         log,
		coordinator: coordinator,
		metrics:     metrics,
		config:      config,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeHTTP blocks until the client goes away.
// Presence is released before the outbound queue is closed.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	out := sink.NewConnectionSink(h.config.BufferSize, h.metrics.DroppedFrames)
	session := h.coordinator.Connect(out)

	written := make(chan struct{})
	go func() {
		defer close(written)
		h.writePump(conn, out)
	}()

	h.readPump(ctx, conn, session)
	h.coordinator.Disconnect(ctx, session)
	out.Close()
	<-written
	_ = conn.Close()

	if dropped := out.Dropped(); dropped > 0 {
		h.log.Warn("Slow connection lost frames", "session", session.ID, "identity", session.Identity(), "dropped", dropped)
	}
}

func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, session *runtime.Session) {
	conn.SetReadLimit(h.config.MaxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Info("Connection lost", "session", session.ID, "error", err)
			}
			return
		}
		// Any frame proves the peer is alive
		_ = conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))

		evt, err := event.Decode(raw)
		if err != nil {
			h.coordinator.Reject(ctx, session, err)
			continue
		}
		h.coordinator.Handle(ctx, session, evt)
	}
}

// writePump is the only goroutine writing to conn.
func (h *Handler) writePump(conn *websocket.Conn, out *sink.ConnectionSink) {
	ticker := time.NewTicker(h.config.PongTimeout * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-out.Frames():
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				// Unblocks the read pump, which then runs the cleanup
				_ = conn.Close()
				drain(out)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.config.WriteTimeout)); err != nil {
				_ = conn.Close()
				drain(out)
				return
			}
		}
	}
}

// drain discards frames until the sink is closed.
func drain(out *sink.ConnectionSink) {
	for range out.Frames() {
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.config.AllowedOrigins) == 0 || lo.Contains(h.config.AllowedOrigins, "*") {
		return true
	}
	return lo.Contains(h.config.AllowedOrigins, origin)
}

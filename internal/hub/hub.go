package hub

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nabekah/farmkonnect-production-sub012/internal/auth"
	"github.com/nabekah/farmkonnect-production-sub012/internal/event"
	"github.com/nabekah/farmkonnect-production-sub012/internal/store"
)

// Config holds hub settings.
type Config struct {
	HeartbeatInterval time.Duration
	WriteTimeout      time.Duration
	SendQueueSize     int
	ReadBufferSize    int
	WriteBufferSize   int
	MaxMessageBytes   int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 30 * time.Second,
		WriteTimeout:      5 * time.Second,
		SendQueueSize:     64,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		MaxMessageBytes:   1 << 20,
	}
}

// PresenceSink mirrors connection state into an external presence store.
// Refresh extends the store's TTL and runs on the heartbeat cadence for
// every session that passes a liveness sweep. Failures are logged, never
// fatal to the connection.
type PresenceSink interface {
	Online(ctx context.Context, userID, farmID int64, connID string) error
	Offline(ctx context.Context, userID int64, connID string) error
	Refresh(ctx context.Context, userID int64) error
}

// Hub owns the connection registry and the per-connection lifecycle:
// handshake, registration, inbound routing, heartbeat reaping, teardown.
type Hub struct {
	cfg       Config
	reg       *Registry
	bcast     *Broadcaster
	router    *Router
	monitor   *HeartbeatMonitor
	extractor auth.Extractor
	presence  PresenceSink // optional
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithPresence mirrors session registration into a presence store.
func WithPresence(sink PresenceSink) Option {
	return func(h *Hub) { h.presence = sink }
}

// New creates a hub. tasks may be nil (acknowledgments are then only
// logged).
func New(cfg Config, extractor auth.Extractor, tasks store.TaskAcker, logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	reg := NewRegistry(logger)
	bcast := NewBroadcaster(reg, logger)

	h := &Hub{
		cfg:       cfg,
		reg:       reg,
		bcast:     bcast,
		router:    NewRouter(bcast, tasks, logger),
		extractor: extractor,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.monitor = NewHeartbeatMonitor(reg, cfg.HeartbeatInterval, cfg.WriteTimeout, h.reap, h.keepalive, logger)
	return h
}

// Registry exposes the connection index (read-mostly callers: REST layer,
// tests).
func (h *Hub) Registry() *Registry { return h.reg }

// Broadcaster exposes the fan-out API for the business layer.
func (h *Hub) Broadcaster() *Broadcaster { return h.bcast }

// Start launches the heartbeat monitor.
func (h *Hub) Start(ctx context.Context) error {
	return h.monitor.Start(ctx)
}

// Stop halts the monitor and closes every session with the intentional
// close code so well-behaved clients do not reconnect.
func (h *Hub) Stop(ctx context.Context) error {
	if err := h.monitor.Stop(ctx); err != nil {
		return err
	}
	for _, s := range h.reg.Sessions() {
		h.drop(s, websocket.CloseNormalClosure, "server shutting down")
	}
	return nil
}

// HandleWS is the gin handler for the realtime handshake endpoint. The
// credential rides in the "token" query parameter.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	claims, err := h.extractor.Extract(c.Query("token"))
	if err != nil {
		h.logger.Warn("handshake rejected", "error", err)
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(CloseAuthFailure, "unauthorized"),
			time.Now().Add(time.Second),
		)
		conn.Close()
		return
	}

	s := newSession(uuid.NewString(), claims.UserID, claims.FarmID, conn, h.cfg.SendQueueSize)
	h.reg.Register(s)

	ctx := c.Request.Context()
	if h.presence != nil {
		if err := h.presence.Online(ctx, s.UserID, s.FarmID, s.ID); err != nil {
			h.logger.Warn("presence online failed", "conn_id", s.ID, "error", err)
		}
	}

	h.logger.Info("connection established",
		"conn_id", s.ID,
		"user_id", s.UserID,
		"farm_id", s.FarmID,
	)

	go s.writePump(h.cfg.WriteTimeout)
	h.sendEstablished(s)

	conn.SetReadLimit(h.cfg.MaxMessageBytes)
	conn.SetPongHandler(func(string) error {
		s.refresh()
		return nil
	})

	h.readLoop(ctx, s, conn)
}

// sendEstablished confirms the handshake to the peer.
func (h *Hub) sendEstablished(s *Session) {
	env, err := event.New(event.TypeConnectionEstablished, event.ConnectionEstablished{
		UserID: s.UserID,
		FarmID: s.FarmID,
	})
	if err != nil {
		h.logger.Error("build connection_established", "error", err)
		return
	}
	data, err := env.Encode()
	if err != nil {
		h.logger.Error("encode connection_established", "error", err)
		return
	}
	s.enqueue(data)
}

// readLoop reads frames until the peer goes away, then tears the session
// down. Frame handling errors never escape to the connection.
func (h *Hub) readLoop(ctx context.Context, s *Session, conn *websocket.Conn) {
	defer h.drop(s, websocket.CloseNormalClosure, "")

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				h.logger.Info("connection read error", "conn_id", s.ID, "error", err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		h.router.HandleInbound(ctx, s, data)
	}
}

// reap terminates a session that failed the liveness sweep.
func (h *Hub) reap(s *Session) {
	h.drop(s, websocket.CloseGoingAway, "heartbeat timeout")
}

// keepalive extends external presence for a session that passed the
// liveness sweep, so a long-lived connection never outlives its TTL.
func (h *Hub) keepalive(s *Session) {
	if h.presence == nil {
		return
	}
	if err := h.presence.Refresh(context.Background(), s.UserID); err != nil {
		h.logger.Warn("presence refresh failed", "conn_id", s.ID, "error", err)
	}
}

// drop unregisters and closes a session. Safe to call more than once.
func (h *Hub) drop(s *Session, code int, reason string) {
	removed := h.reg.Unregister(s.ID)
	s.close(code, reason)

	if removed != nil {
		if h.presence != nil {
			if err := h.presence.Offline(context.Background(), s.UserID, s.ID); err != nil {
				h.logger.Warn("presence offline failed", "conn_id", s.ID, "error", err)
			}
		}
		h.logger.Info("connection closed",
			"conn_id", s.ID,
			"user_id", s.UserID,
		)
	}
}

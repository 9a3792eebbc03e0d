package hub

import (
	"context"
	"log/slog"

	"github.com/nabekah/farmkonnect-production-sub012/internal/event"
	"github.com/nabekah/farmkonnect-production-sub012/internal/store"
)

// Router dispatches inbound frames by type tag. Malformed or unrecognized
// frames are logged and dropped; the connection stays up. Errors from
// handlers are confined to the frame that caused them.
type Router struct {
	broadcaster *Broadcaster
	tasks       store.TaskAcker // optional
	logger      *slog.Logger
}

// NewRouter creates an inbound router. tasks may be nil when the gateway
// runs without the business database (acknowledgments are then only logged).
func NewRouter(broadcaster *Broadcaster, tasks store.TaskAcker, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		broadcaster: broadcaster,
		tasks:       tasks,
		logger:      logger,
	}
}

// HandleInbound processes one raw frame from a session.
func (r *Router) HandleInbound(ctx context.Context, s *Session, raw []byte) {
	env, err := event.Parse(raw)
	if err != nil {
		r.logger.Warn("dropping malformed frame",
			"conn_id", s.ID,
			"user_id", s.UserID,
			"error", err,
		)
		return
	}

	payload, err := event.Decode(env)
	if err != nil {
		r.logger.Warn("dropping frame",
			"conn_id", s.ID,
			"type", env.Type,
			"error", err,
		)
		return
	}

	switch p := payload.(type) {
	case *event.Ping:
		r.handlePing(s)

	case *event.AcknowledgeTask:
		r.handleAcknowledgeTask(ctx, s, p)

	case *event.ActivityUpdate:
		// Re-broadcast to the sender's farm, tagged with the sender.
		p.UserID = s.UserID
		r.rebroadcast(s, event.TypeActivityUpdate, p)

	case *event.LocationUpdate:
		p.UserID = s.UserID
		r.rebroadcast(s, event.TypeLocationUpdate, p)

	default:
		r.logger.Warn("dropping unexpected inbound type",
			"conn_id", s.ID,
			"type", env.Type,
		)
	}
}

// handlePing answers immediately with a pong frame to the sender only,
// and counts as a liveness signal.
func (r *Router) handlePing(s *Session) {
	s.refresh()

	env, err := event.New(event.TypePong, event.Pong{})
	if err != nil {
		r.logger.Error("build pong", "error", err)
		return
	}
	data, err := env.Encode()
	if err != nil {
		r.logger.Error("encode pong", "error", err)
		return
	}
	s.enqueue(data)
}

func (r *Router) handleAcknowledgeTask(ctx context.Context, s *Session, p *event.AcknowledgeTask) {
	if r.tasks == nil {
		r.logger.Info("task acknowledged (no store configured)",
			"task_id", p.TaskID,
			"user_id", s.UserID,
		)
		return
	}
	if err := r.tasks.AcknowledgeTask(ctx, p.TaskID, s.UserID); err != nil {
		r.logger.Warn("record task acknowledgment",
			"task_id", p.TaskID,
			"user_id", s.UserID,
			"error", err,
		)
	}
}

// rebroadcast fans an inbound update out to the sender's farm,
// fire-and-forget.
func (r *Router) rebroadcast(s *Session, t event.Type, payload any) {
	env, err := event.New(t, payload)
	if err != nil {
		r.logger.Error("build broadcast frame", "type", t, "error", err)
		return
	}
	r.broadcaster.BroadcastToFarm(s.FarmID, env)
}

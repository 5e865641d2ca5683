package live

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"

	"crowdboard/internal/correlation"
	"crowdboard/internal/metrics"
)

const maxFrameBytes = 256 * 1024

// Journal buffers broadcast frames so new dashboards can catch up on
// recent events. Implementations must be safe for concurrent use.
type Journal interface {
	Append(ctx context.Context, frame []byte) error
	Recent(ctx context.Context) ([][]byte, error)
}

// Gateway runs the server side of one live connection: it registers the
// connection, replays the journal to new subscribers, and dispatches
// inbound commands until the peer goes away.
type Gateway struct {
	registry *Registry
	journal  Journal // nil disables replay and event journaling
}

func NewGateway(registry *Registry, journal Journal) *Gateway {
	return &Gateway{registry: registry, journal: journal}
}

// Counts reports the currently registered connections by role.
func (g *Gateway) Counts() (subscribers, sources int) {
	return g.registry.Count(RoleSubscriber), g.registry.Count(RoleSource)
}

// Handle drives conn until it closes. It blocks, so call it from the
// connection's HTTP handler.
func (g *Gateway) Handle(ctx context.Context, conn *websocket.Conn, role Role, peer string) {
	id := g.registry.Register(role, conn)
	ctx = correlation.WithConnectionID(ctx, id)
	logger := slog.With("connection_id", id, "role", string(role), "peer", peer)
	logger.Info("Live connection opened")

	defer func() {
		g.registry.Deregister(role, id)
		logger.Info("Live connection closed")
	}()

	if role == RoleSubscriber {
		g.replayJournal(ctx, logger, id)
	}

	conn.SetReadLimit(maxFrameBytes)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("Live connection read failed", "error", err)
			}
			return
		}
		g.dispatch(ctx, logger, role, id, raw)
	}
}

// replayJournal pushes recent frames to a newly registered subscriber.
// They queue behind the register frame, so ordering is preserved.
func (g *Gateway) replayJournal(ctx context.Context, logger *slog.Logger, id string) {
	if g.journal == nil {
		return
	}

	frames, err := g.journal.Recent(ctx)
	if err != nil {
		logger.Warn("Failed to load journal for replay", "error", err)
		return
	}
	if len(frames) == 0 {
		return
	}

	for _, frame := range frames {
		g.registry.Send(RoleSubscriber, id, json.RawMessage(frame))
	}
	metrics.JournalReplaysTotal.Inc()
	logger.Debug("Replayed journal to new subscriber", "frames", len(frames))
}

func (g *Gateway) dispatch(ctx context.Context, logger *slog.Logger, role Role, id string, raw []byte) {
	cmd, err := DecodeCommand(raw)
	if err != nil {
		metrics.CommandsReceived.WithLabelValues("malformed").Inc()
		logger.Warn("Ignoring malformed frame", "error", err)
		return
	}

	switch c := cmd.(type) {
	case KeepaliveCommand:
		metrics.CommandsReceived.WithLabelValues("keepalive").Inc()
	case EventCommand:
		metrics.CommandsReceived.WithLabelValues("event").Inc()
		if role != RoleSource {
			logger.Warn("Ignoring event from subscriber connection")
			return
		}
		g.relayEvent(ctx, logger, id, c)
	case UnknownCommand:
		metrics.CommandsReceived.WithLabelValues("unknown").Inc()
		logger.Debug("Ignoring unknown command", "command", c.Name)
	}
}

// relayEvent wraps a source's event with its origin and fans it out. The
// frame is serialized once and shared by the broadcast and the journal.
func (g *Gateway) relayEvent(ctx context.Context, logger *slog.Logger, sourceID string, c EventCommand) {
	frame, err := json.Marshal(envelope{Command: "event", Source: sourceID, Data: c.Data})
	if err != nil {
		logger.Error("Failed to marshal event frame", "error", err)
		return
	}

	g.registry.Broadcast(RoleSubscriber, json.RawMessage(frame))

	if g.journal != nil {
		if err := g.journal.Append(ctx, frame); err != nil {
			logger.Warn("Failed to append event to journal", "error", err)
		}
	}
}

// Package live tracks the server's websocket connections and fans event
// frames out to them.
package live

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"crowdboard/internal/metrics"
)

// Role classifies a live connection by what it receives.
type Role string

const (
	// RoleSubscriber marks dashboard connections that receive event pushes.
	RoleSubscriber Role = "subscriber"
	// RoleSource marks world-side connections that feed events in.
	RoleSource Role = "source"
)

// --- Command types ---

type registryCmd interface{ registryCmd() }

type cmdRegister struct {
	role    Role
	conn    *websocket.Conn
	replyCh chan string
}

func (cmdRegister) registryCmd() {}

type cmdDeregister struct {
	role Role
	id   string
}

func (cmdDeregister) registryCmd() {}

type cmdBroadcast struct {
	role Role
	data []byte
}

func (cmdBroadcast) registryCmd() {}

type cmdSend struct {
	role Role
	id   string
	data []byte
}

func (cmdSend) registryCmd() {}

type cmdList struct {
	role    Role
	replyCh chan []string
}

func (cmdList) registryCmd() {}

type cmdCount struct {
	role    Role
	replyCh chan int
}

func (cmdCount) registryCmd() {}

type cmdStop struct {
	doneCh chan struct{}
}

func (cmdStop) registryCmd() {}

// --- Registry ---

// Registry owns every live connection, keyed by role and id. All state
// lives in a single goroutine; the exported methods post commands to it,
// so they are safe from any goroutine and never block on a peer.
type Registry struct {
	cmdCh chan registryCmd
	conns map[Role]map[string]*connWriter
	clock clockwork.Clock
}

func NewRegistry(clock clockwork.Clock) *Registry {
	r := &Registry{
		cmdCh: make(chan registryCmd, 256),
		conns: map[Role]map[string]*connWriter{
			RoleSubscriber: {},
			RoleSource:     {},
		},
		clock: clock,
	}
	go r.run()
	return r
}

func (r *Registry) run() {
	for cmd := range r.cmdCh {
		switch c := cmd.(type) {
		case cmdRegister:
			c.replyCh <- r.handleRegister(c)
		case cmdDeregister:
			r.handleDeregister(c.role, c.id)
		case cmdBroadcast:
			r.handleBroadcast(c)
		case cmdSend:
			r.handleSend(c)
		case cmdList:
			c.replyCh <- r.handleList(c.role)
		case cmdCount:
			c.replyCh <- len(r.conns[c.role])
		case cmdStop:
			r.handleStop()
			close(c.doneCh)
			return
		}
	}
}

func (r *Registry) handleRegister(c cmdRegister) string {
	id := uuid.NewString()

	cw := newConnWriter(c.conn, r.clock, func() { r.Deregister(c.role, id) })
	r.conns[c.role][id] = cw

	// Queued before the id is returned and before any later broadcast can
	// see this connection, so it is always the first frame the peer gets.
	cw.sendChannel <- registerFrame(id)

	metrics.LiveConnectionsCurrent.WithLabelValues(string(c.role)).Inc()
	metrics.LiveConnectionsTotal.WithLabelValues("accepted").Inc()
	slog.Info("Live connection registered", "connection_id", id, "role", string(c.role), "total", len(r.conns[c.role]))
	return id
}

func (r *Registry) handleDeregister(role Role, id string) {
	cw, exists := r.conns[role][id]
	if !exists {
		return
	}

	delete(r.conns[role], id)
	cw.stop()

	metrics.LiveConnectionsCurrent.WithLabelValues(string(role)).Dec()
	slog.Info("Live connection deregistered", "connection_id", id, "role", string(role), "remaining", len(r.conns[role]))
}

func (r *Registry) handleBroadcast(c cmdBroadcast) {
	metrics.BroadcastsTotal.WithLabelValues(string(c.role)).Inc()

	var slow []string
	for id, cw := range r.conns[c.role] {
		select {
		case cw.sendChannel <- c.data:
			// queued
		default:
			// peer is not draining its queue, mark for removal
			slow = append(slow, id)
		}
	}

	for _, id := range slow {
		metrics.SlowConnectionsEvicted.Inc()
		slog.Warn("Evicting slow live connection", "connection_id", id, "role", string(c.role))
		r.handleDeregister(c.role, id)
	}
}

func (r *Registry) handleSend(c cmdSend) {
	cw, exists := r.conns[c.role][c.id]
	if !exists {
		return
	}

	select {
	case cw.sendChannel <- c.data:
	default:
		metrics.SlowConnectionsEvicted.Inc()
		slog.Warn("Evicting slow live connection", "connection_id", c.id, "role", string(c.role))
		r.handleDeregister(c.role, c.id)
	}
}

func (r *Registry) handleList(role Role) []string {
	ids := make([]string, 0, len(r.conns[role]))
	for id := range r.conns[role] {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) handleStop() {
	for role, conns := range r.conns {
		for id, cw := range conns {
			cw.stopGraceful("server shutting down")
			delete(conns, id)
			metrics.LiveConnectionsCurrent.WithLabelValues(string(role)).Dec()
		}
	}
}

// --- Public API ---

// Register adds conn under a fresh id and returns the id. Registration
// never fails; capacity decisions happen before the upgrade.
func (r *Registry) Register(role Role, conn *websocket.Conn) string {
	replyCh := make(chan string, 1)
	r.cmdCh <- cmdRegister{role: role, conn: conn, replyCh: replyCh}
	return <-replyCh
}

// Deregister removes the connection with the given id and closes it.
// Unknown ids are a no-op, so transport failures and normal closes can
// both report without coordination.
func (r *Registry) Deregister(role Role, id string) {
	r.cmdCh <- cmdDeregister{role: role, id: id}
}

// Broadcast serializes message once and queues it for every connection of
// the given role. A connection that cannot keep up is deregistered; the
// rest are unaffected.
func (r *Registry) Broadcast(role Role, message any) {
	data, err := json.Marshal(message)
	if err != nil {
		slog.Error("Failed to marshal broadcast message", "error", err)
		return
	}
	r.cmdCh <- cmdBroadcast{role: role, data: data}
}

// Send queues a frame for a single connection. Unknown ids are a no-op.
func (r *Registry) Send(role Role, id string, message any) {
	data, err := json.Marshal(message)
	if err != nil {
		slog.Error("Failed to marshal message", "error", err)
		return
	}
	r.cmdCh <- cmdSend{role: role, id: id, data: data}
}

// List returns a snapshot of the ids registered for a role.
func (r *Registry) List(role Role) []string {
	replyCh := make(chan []string, 1)
	r.cmdCh <- cmdList{role: role, replyCh: replyCh}
	return <-replyCh
}

// Count returns the number of connections registered for a role.
func (r *Registry) Count(role Role) int {
	replyCh := make(chan int, 1)
	r.cmdCh <- cmdCount{role: role, replyCh: replyCh}
	return <-replyCh
}

// Stop closes every connection with a close frame and stops the registry.
// It blocks until all writers have exited.
func (r *Registry) Stop() {
	doneCh := make(chan struct{})
	r.cmdCh <- cmdStop{doneCh: doneCh}
	<-doneCh
}

package server

import (
	"fmt"
	"net/http"

	apperrors "crowdboard/internal/errors"
	"crowdboard/internal/live"
	"crowdboard/internal/metrics"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	socketReadBufferSize  = 1024
	socketWriteBufferSize = 1024
)

// newUpgrader builds the websocket upgrader. In development any origin may
// connect; in production the zero CheckOrigin falls back to gorilla's
// same-origin check.
func newUpgrader(permissiveOrigin bool) websocket.Upgrader {
	u := websocket.Upgrader{
		ReadBufferSize:  socketReadBufferSize,
		WriteBufferSize: socketWriteBufferSize,
	}
	if permissiveOrigin {
		u.CheckOrigin = func(*http.Request) bool { return true }
	}
	return u
}

func (s *Server) handleSocket(c echo.Context) error {
	role, err := socketRole(c.QueryParam("role"))
	if err != nil {
		return err
	}

	ip := c.RealIP()
	ok, reason := s.limits.Acquire(ip)
	if !ok {
		metrics.LiveConnectionsTotal.WithLabelValues("rejected").Inc()
		metrics.LiveConnectionsRejected.WithLabelValues(string(reason)).Inc()
		status := http.StatusTooManyRequests
		if reason == LimitReasonGlobal {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, map[string]string{"error": "connection limit exceeded"})
	}
	defer s.limits.Release(ip)

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade socket: %w", err)
	}

	// Blocks for the lifetime of the connection.
	s.gateway.Handle(c.Request().Context(), conn, role, ip)
	return nil
}

func socketRole(param string) (live.Role, error) {
	switch param {
	case "", string(live.RoleSubscriber):
		return live.RoleSubscriber, nil
	case string(live.RoleSource):
		return live.RoleSource, nil
	default:
		return "", apperrors.ValidationError("unknown socket role").WithField("role", param)
	}
}

// Package server implements the HTTP server using Echo framework.
//
// Routes: read endpoints (tasks, workers, runs), the dashboard app shell,
// the live socket upgrade, health probes, and Prometheus metrics.
// Handlers split by concern: handlers.go (read endpoints and app shell),
// handlers_health.go (probes), socket.go (live channel admission).
package server

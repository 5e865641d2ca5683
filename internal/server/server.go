package server

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"crowdboard/internal/app"
	"crowdboard/internal/config"
	"crowdboard/internal/domain"
	"crowdboard/internal/live"
	"crowdboard/web"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
)

// appService is the slice of the application layer the handlers consume.
type appService interface {
	ListRuns(ctx context.Context) ([]domain.Run, error)
	ListWorkers(ctx context.Context) ([]domain.Worker, error)
	GetRunOverview(ctx context.Context, runID string) (*app.RunOverview, error)
	GetWorkerOverview(ctx context.Context, workerID string) (*app.WorkerOverview, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	clock  clockwork.Clock

	app      appService
	gateway  *live.Gateway
	limits   *ConnectionLimits
	upgrader websocket.Upgrader

	templates    *template.Template
	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, clock clockwork.Clock, app appService, gateway *live.Gateway, healthChecks []HealthCheck) (*Server, error) {
	templates, err := template.ParseFS(web.TemplateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	limits := NewConnectionLimits(
		clock,
		int64(cfg.MaxSocketConnections),
		cfg.MaxSocketConnectionsPerIP,
		float64(cfg.SocketConnectsPerMinute)/60.0,
		cfg.SocketConnectsPerMinute,
	)

	srv := &Server{
		echo:         e,
		config:       cfg,
		clock:        clock,
		app:          app,
		gateway:      gateway,
		limits:       limits,
		upgrader:     newUpgrader(cfg.IsDevelopment()),
		templates:    templates,
		healthChecks: healthChecks,
		startTime:    clock.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port, "dashboard", fmt.Sprintf("http://%s:%s/app/tasks", s.config.Hostname, s.config.Port))
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

func (s *Server) renderTemplate(c echo.Context, name string, data any) error {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Template execution failed", "path", c.Request().URL.Path, "error", err)
		if err := c.String(http.StatusInternalServerError, "Failed to render page"); err != nil {
			return fmt.Errorf("failed to send error response: %w", err)
		}
		return nil
	}
	return c.HTML(http.StatusOK, buf.String())
}

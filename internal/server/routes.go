package server

import (
	"log/slog"
	"net/http"

	"crowdboard/internal/correlation"
	apperrors "crowdboard/internal/errors"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(apperrors.Middleware(s.config.IsDevelopment()))

	s.registerHealthRoutes()
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.GET("/", s.handleRoot)
	s.echo.GET("/app/*", s.handleAppShell)

	s.echo.GET("/tasks", s.handleListTasks)
	s.echo.POST("/tasks", s.handleEchoTask)
	s.echo.GET("/workers", s.handleListWorkers)
	s.echo.GET("/workers/:id", s.handleGetWorker)
	s.echo.GET("/runs/:id", s.handleGetRun)

	s.echo.GET("/error", s.handleInjectedError)
	s.echo.GET("/error/:text", s.handleInjectedError)

	s.echo.GET("/socket", s.handleSocket)
}

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := correlation.WithID(c.Request().Context(), correlation.NewID())
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.Redirect(http.StatusFound, "/app/tasks")
}

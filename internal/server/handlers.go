package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"crowdboard/internal/domain"
	apperrors "crowdboard/internal/errors"

	"github.com/labstack/echo/v4"
)

// runDetails is the run record as served, extended with the run status
// placeholder. Status derivation from HIT and assignment states is not
// implemented; the sentinel makes that explicit to clients.
type runDetails struct {
	domain.Run
	RunStatus string `json:"run_status"`
}

func (s *Server) handleListTasks(c echo.Context) error {
	runs, err := s.app.ListRuns(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("failed to list task runs", err)
	}
	return c.JSON(http.StatusOK, runs)
}

// handleEchoTask round-trips the posted JSON body. Operators use it to
// verify connectivity and serialization from dashboard scripts.
func (s *Server) handleEchoTask(c echo.Context) error {
	var req any
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return apperrors.ValidationError("request body is not valid JSON")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"req":    req,
	})
}

func (s *Server) handleListWorkers(c echo.Context) error {
	workers, err := s.app.ListWorkers(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("failed to list workers", err)
	}
	return c.JSON(http.StatusOK, workers)
}

func (s *Server) handleGetWorker(c echo.Context) error {
	workerID := c.Param("id")

	overview, err := s.app.GetWorkerOverview(c.Request().Context(), workerID)
	if errors.Is(err, domain.ErrWorkerNotFound) {
		return apperrors.NotFoundError("worker not found").WithField("worker_id", workerID)
	}
	if err != nil {
		return apperrors.InternalError("failed to load worker view", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"worker_details": overview.Details,
		"assignments":    overview.Assignments,
	})
}

func (s *Server) handleGetRun(c echo.Context) error {
	runID := c.Param("id")

	overview, err := s.app.GetRunOverview(c.Request().Context(), runID)
	if errors.Is(err, domain.ErrRunNotFound) {
		return apperrors.NotFoundError("run not found").WithField("run_id", runID)
	}
	if err != nil {
		return apperrors.InternalError("failed to load run view", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"run_details": runDetails{Run: overview.Details, RunStatus: domain.RunStatusNotComputed},
		"assignments": overview.Assignments,
		"hits":        overview.HITs,
	})
}

// handleInjectedError fails on purpose so operators can inspect the error
// path end to end (response shape, logging, metrics).
func (s *Server) handleInjectedError(c echo.Context) error {
	text := c.Param("text")
	if text == "" {
		text = "test error"
	}
	return apperrors.InternalError(text, nil)
}

func (s *Server) handleAppShell(c echo.Context) error {
	data := map[string]any{
		"InitialLocation": c.Param("*"),
		"WSHost":          c.Request().Host,
	}
	return s.renderTemplate(c, "app.html", data)
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crowdboard/internal/app"
	"crowdboard/internal/config"
	"crowdboard/internal/domain"
	"crowdboard/internal/live"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockAppService struct {
	listRunsFn          func(ctx context.Context) ([]domain.Run, error)
	listWorkersFn       func(ctx context.Context) ([]domain.Worker, error)
	getRunOverviewFn    func(ctx context.Context, runID string) (*app.RunOverview, error)
	getWorkerOverviewFn func(ctx context.Context, workerID string) (*app.WorkerOverview, error)
}

func (m *mockAppService) ListRuns(ctx context.Context) ([]domain.Run, error) {
	if m.listRunsFn != nil {
		return m.listRunsFn(ctx)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) ListWorkers(ctx context.Context) ([]domain.Worker, error) {
	if m.listWorkersFn != nil {
		return m.listWorkersFn(ctx)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) GetRunOverview(ctx context.Context, runID string) (*app.RunOverview, error) {
	if m.getRunOverviewFn != nil {
		return m.getRunOverviewFn(ctx, runID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockAppService) GetWorkerOverview(ctx context.Context, workerID string) (*app.WorkerOverview, error) {
	if m.getWorkerOverviewFn != nil {
		return m.getWorkerOverviewFn(ctx, workerID)
	}
	return nil, fmt.Errorf("not implemented")
}

func newTestServer(t *testing.T, appSvc appService, opts ...func(*Server)) *Server {
	t.Helper()

	tmpl := template.Must(template.New("app.html").Parse(`Shell {{.InitialLocation}}`))

	cfg := &config.Config{
		AppEnv:                    "development",
		Port:                      "0",
		MaxSocketConnections:      100,
		MaxSocketConnectionsPerIP: 100,
		SocketConnectsPerMinute:   6000,
	}

	clock := clockwork.NewRealClock()
	registry := live.NewRegistry(clock)
	t.Cleanup(registry.Stop)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:      e,
		config:    cfg,
		clock:     clock,
		app:       appSvc,
		gateway:   live.NewGateway(registry, nil),
		upgrader:  newUpgrader(true),
		templates: tmpl,
		startTime: clock.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.limits = NewConnectionLimits(
		srv.clock,
		int64(srv.config.MaxSocketConnections),
		srv.config.MaxSocketConnectionsPerIP,
		float64(srv.config.SocketConnectsPerMinute)/60.0,
		srv.config.SocketConnectsPerMinute,
	)

	srv.registerRoutes()

	return srv
}

func withConfig(cfg *config.Config) func(*Server) {
	return func(s *Server) {
		s.config = cfg
	}
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

// serve dispatches a request through the full middleware chain.
func serve(srv *Server, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestHandleListTasks(t *testing.T) {
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	mockApp := &mockAppService{
		listRunsFn: func(ctx context.Context) ([]domain.Run, error) {
			return []domain.Run{
				{RunID: "run_1", Created: created, Maximum: 10, Completed: 3, TaskName: "dialogue", Sandbox: true},
				{RunID: "run_2", Created: created, TaskName: "qa_collection"},
			}, nil
		},
	}
	srv := newTestServer(t, mockApp)

	rec := serve(srv, http.MethodGet, "/tasks", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var runs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "run_1", runs[0]["run_id"])
	assert.Equal(t, "dialogue", runs[0]["task_name"])
	assert.Equal(t, true, runs[0]["sandbox"])
	assert.Equal(t, float64(10), runs[0]["maximum"])
}

func TestHandleListTasks_StoreError(t *testing.T) {
	mockApp := &mockAppService{
		listRunsFn: func(ctx context.Context) ([]domain.Run, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}
	srv := newTestServer(t, mockApp)

	rec := serve(srv, http.MethodGet, "/tasks", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"internal"`)
	assert.Contains(t, rec.Body.String(), "failed to list task runs")
}

func TestHandleEchoTask(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := serve(srv, http.MethodPost, "/tasks", `{"probe":"hello","n":3}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","req":{"probe":"hello","n":3}}`, rec.Body.String())
}

func TestHandleEchoTask_InvalidJSON(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := serve(srv, http.MethodPost, "/tasks", `{"probe":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"validation"`)
}

func TestHandleListWorkers(t *testing.T) {
	mockApp := &mockAppService{
		listWorkersFn: func(ctx context.Context) ([]domain.Worker, error) {
			return []domain.Worker{
				{WorkerID: "W_A", Accepted: 4, Completed: 3, Blocked: false},
				{WorkerID: "W_B", Blocked: true},
			}, nil
		},
	}
	srv := newTestServer(t, mockApp)

	rec := serve(srv, http.MethodGet, "/workers", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var workers []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &workers))
	require.Len(t, workers, 2)
	assert.Equal(t, "W_A", workers[0]["worker_id"])
	assert.Equal(t, true, workers[1]["blocked"])
}

func TestHandleGetWorker(t *testing.T) {
	worldStatus := "done"
	mockApp := &mockAppService{
		getWorkerOverviewFn: func(ctx context.Context, workerID string) (*app.WorkerOverview, error) {
			require.Equal(t, "W_A", workerID)
			return &app.WorkerOverview{
				Details: domain.Worker{WorkerID: "W_A", Accepted: 2, Completed: 1},
				Assignments: []domain.AssignmentView{
					{AssignmentID: "asgn_1", WorkerID: "W_A", RunID: "run_1", Status: "Submitted", WorldStatus: &worldStatus},
					{AssignmentID: "asgn_2", WorkerID: "W_A", RunID: "run_2", Status: "Accepted"},
				},
			}, nil
		},
	}
	srv := newTestServer(t, mockApp)

	rec := serve(srv, http.MethodGet, "/workers/W_A", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		WorkerDetails map[string]any   `json:"worker_details"`
		Assignments   []map[string]any `json:"assignments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "W_A", body.WorkerDetails["worker_id"])
	require.Len(t, body.Assignments, 2)
	assert.Equal(t, "done", body.Assignments[0]["world_status"])
	assert.Nil(t, body.Assignments[1]["world_status"])
}

func TestHandleGetWorker_NotFound(t *testing.T) {
	mockApp := &mockAppService{
		getWorkerOverviewFn: func(ctx context.Context, workerID string) (*app.WorkerOverview, error) {
			return nil, domain.ErrWorkerNotFound
		},
	}
	srv := newTestServer(t, mockApp)

	rec := serve(srv, http.MethodGet, "/workers/W_GHOST", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"not_found"`)
	assert.Contains(t, rec.Body.String(), "W_GHOST")
}

func TestHandleGetRun(t *testing.T) {
	mockApp := &mockAppService{
		getRunOverviewFn: func(ctx context.Context, runID string) (*app.RunOverview, error) {
			require.Equal(t, "run_1", runID)
			return &app.RunOverview{
				Details:     domain.Run{RunID: "run_1", TaskName: "dialogue", Maximum: 5},
				Assignments: []domain.AssignmentView{{AssignmentID: "asgn_1", WorkerID: "W_A", RunID: "run_1", Status: "Submitted"}},
				HITs:        []domain.HIT{{HITID: "hit_1", RunID: "run_1", Status: "assigned"}},
			}, nil
		},
	}
	srv := newTestServer(t, mockApp)

	rec := serve(srv, http.MethodGet, "/runs/run_1", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		RunDetails  map[string]any   `json:"run_details"`
		Assignments []map[string]any `json:"assignments"`
		HITs        []map[string]any `json:"hits"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "run_1", body.RunDetails["run_id"])
	assert.Equal(t, "not computed", body.RunDetails["run_status"])
	require.Len(t, body.Assignments, 1)
	require.Len(t, body.HITs, 1)
	assert.Equal(t, "hit_1", body.HITs[0]["hit_id"])
}

func TestHandleGetRun_NotFound(t *testing.T) {
	mockApp := &mockAppService{
		getRunOverviewFn: func(ctx context.Context, runID string) (*app.RunOverview, error) {
			return nil, domain.ErrRunNotFound
		},
	}
	srv := newTestServer(t, mockApp)

	rec := serve(srv, http.MethodGet, "/runs/ghost", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"not_found"`)
}

func TestHandleInjectedError(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := serve(srv, http.MethodGet, "/error/broken_pipe", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "broken_pipe")
}

func TestHandleInjectedError_DefaultText(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := serve(srv, http.MethodGet, "/error", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "test error")
}

func TestHandleInjectedError_HidesDetailInProduction(t *testing.T) {
	cfg := &config.Config{
		AppEnv:                    "production",
		MaxSocketConnections:      100,
		MaxSocketConnectionsPerIP: 100,
		SocketConnectsPerMinute:   6000,
	}
	srv := newTestServer(t, &mockAppService{}, withConfig(cfg))

	rec := serve(srv, http.MethodGet, "/error/secret_detail", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret_detail")
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestHandleRoot_RedirectsToTasks(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := serve(srv, http.MethodGet, "/", "")

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/app/tasks", rec.Header().Get("Location"))
}

func TestHandleAppShell(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})

	rec := serve(srv, http.MethodGet, "/app/workers/W_A", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "workers/W_A")
}

package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"crowdboard/internal/domain"
	"crowdboard/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockRecordStore struct {
	getAllRunsFn              func(ctx context.Context) ([]domain.Run, error)
	getRunFn                  func(ctx context.Context, runID string) (*domain.Run, error)
	getAllWorkersFn           func(ctx context.Context) ([]domain.Worker, error)
	getWorkerFn               func(ctx context.Context, workerID string) (*domain.Worker, error)
	getHITsForRunFn           func(ctx context.Context, runID string) ([]domain.HIT, error)
	getAssignmentsForRunFn    func(ctx context.Context, runID string) ([]domain.Assignment, error)
	getPairingsForRunFn       func(ctx context.Context, runID string) ([]domain.Pairing, error)
	getAssignmentsForWorkerFn func(ctx context.Context, workerID string) ([]domain.Assignment, error)
	getPairingsForWorkerFn    func(ctx context.Context, workerID string) ([]domain.Pairing, error)
}

func (m *mockRecordStore) GetAllRuns(ctx context.Context) ([]domain.Run, error) {
	if m.getAllRunsFn != nil {
		return m.getAllRunsFn(ctx)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockRecordStore) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	if m.getRunFn != nil {
		return m.getRunFn(ctx, runID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockRecordStore) GetAllWorkers(ctx context.Context) ([]domain.Worker, error) {
	if m.getAllWorkersFn != nil {
		return m.getAllWorkersFn(ctx)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockRecordStore) GetWorker(ctx context.Context, workerID string) (*domain.Worker, error) {
	if m.getWorkerFn != nil {
		return m.getWorkerFn(ctx, workerID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockRecordStore) GetHITsForRun(ctx context.Context, runID string) ([]domain.HIT, error) {
	if m.getHITsForRunFn != nil {
		return m.getHITsForRunFn(ctx, runID)
	}
	return []domain.HIT{}, nil
}

func (m *mockRecordStore) GetAssignmentsForRun(ctx context.Context, runID string) ([]domain.Assignment, error) {
	if m.getAssignmentsForRunFn != nil {
		return m.getAssignmentsForRunFn(ctx, runID)
	}
	return []domain.Assignment{}, nil
}

func (m *mockRecordStore) GetPairingsForRun(ctx context.Context, runID string) ([]domain.Pairing, error) {
	if m.getPairingsForRunFn != nil {
		return m.getPairingsForRunFn(ctx, runID)
	}
	return []domain.Pairing{}, nil
}

func (m *mockRecordStore) GetAssignmentsForWorker(ctx context.Context, workerID string) ([]domain.Assignment, error) {
	if m.getAssignmentsForWorkerFn != nil {
		return m.getAssignmentsForWorkerFn(ctx, workerID)
	}
	return []domain.Assignment{}, nil
}

func (m *mockRecordStore) GetPairingsForWorker(ctx context.Context, workerID string) ([]domain.Pairing, error) {
	if m.getPairingsForWorkerFn != nil {
		return m.getPairingsForWorkerFn(ctx, workerID)
	}
	return []domain.Pairing{}, nil
}

// --- Tests ---

func TestListRuns(t *testing.T) {
	want := []domain.Run{
		{RunID: "run_1", TaskName: "dialogue"},
		{RunID: "run_2", TaskName: "qa_collection"},
	}
	store := &mockRecordStore{
		getAllRunsFn: func(ctx context.Context) ([]domain.Run, error) { return want, nil },
	}

	svc := NewService(store)
	runs, err := svc.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, runs)
}

func TestListRuns_StoreError(t *testing.T) {
	store := &mockRecordStore{
		getAllRunsFn: func(ctx context.Context) ([]domain.Run, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}

	svc := NewService(store)
	_, err := svc.ListRuns(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestListRuns_CollapsesConcurrentCalls(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	store := &mockRecordStore{
		getAllRunsFn: func(ctx context.Context) ([]domain.Run, error) {
			calls.Add(1)
			once.Do(func() { close(started) })
			<-release
			return []domain.Run{{RunID: "run_1"}}, nil
		},
	}
	svc := NewService(store)

	var wg sync.WaitGroup
	results := make(chan int, 5)

	wg.Add(1)
	go func() {
		defer wg.Done()
		runs, err := svc.ListRuns(context.Background())
		assert.NoError(t, err)
		results <- len(runs)
	}()
	<-started

	// The first query is in flight, further callers must join it.
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runs, err := svc.ListRuns(context.Background())
			assert.NoError(t, err)
			results <- len(runs)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	assert.Equal(t, int32(1), calls.Load())
	for n := range results {
		assert.Equal(t, 1, n)
	}
}

func TestListWorkers(t *testing.T) {
	want := []domain.Worker{{WorkerID: "W_A"}, {WorkerID: "W_B"}}
	store := &mockRecordStore{
		getAllWorkersFn: func(ctx context.Context) ([]domain.Worker, error) { return want, nil },
	}

	svc := NewService(store)
	workers, err := svc.ListWorkers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, workers)
}

func TestGetRunOverview(t *testing.T) {
	run := domain.Run{RunID: "run_1", Created: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), TaskName: "dialogue"}
	hits := []domain.HIT{{HITID: "hit_1", RunID: "run_1", Status: "assigned"}}
	conversationID := "conv_1"

	store := &mockRecordStore{
		getRunFn: func(ctx context.Context, runID string) (*domain.Run, error) {
			require.Equal(t, "run_1", runID)
			return &run, nil
		},
		getAssignmentsForRunFn: func(ctx context.Context, runID string) ([]domain.Assignment, error) {
			return []domain.Assignment{
				{AssignmentID: "asgn_1", WorkerID: "W_A", RunID: "run_1", Status: "Submitted"},
				{AssignmentID: "asgn_2", WorkerID: "W_B", RunID: "run_1", Status: "Accepted"},
			}, nil
		},
		getPairingsForRunFn: func(ctx context.Context, runID string) ([]domain.Pairing, error) {
			return []domain.Pairing{
				{AssignmentID: "asgn_1", WorkerID: "W_A", RunID: "run_1", Status: "done", ConversationID: &conversationID},
				{AssignmentID: "asgn_gone", WorkerID: "W_C", RunID: "run_1", Status: "done"},
			}, nil
		},
		getHITsForRunFn: func(ctx context.Context, runID string) ([]domain.HIT, error) { return hits, nil },
	}

	diagnosticsBefore := testutil.ToFloat64(metrics.MergeDiagnosticsTotal)

	svc := NewService(store)
	overview, err := svc.GetRunOverview(context.Background(), "run_1")
	require.NoError(t, err)

	assert.Equal(t, run, overview.Details)
	assert.Equal(t, hits, overview.HITs)
	require.Len(t, overview.Assignments, 2)

	require.NotNil(t, overview.Assignments[0].WorldStatus)
	assert.Equal(t, "done", *overview.Assignments[0].WorldStatus)
	assert.Equal(t, &conversationID, overview.Assignments[0].ConversationID)
	assert.Nil(t, overview.Assignments[1].WorldStatus)

	// The unmatched pairing is reported, not merged.
	assert.Equal(t, diagnosticsBefore+1, testutil.ToFloat64(metrics.MergeDiagnosticsTotal))
}

func TestGetRunOverview_NotFound(t *testing.T) {
	store := &mockRecordStore{
		getRunFn: func(ctx context.Context, runID string) (*domain.Run, error) {
			return nil, domain.ErrRunNotFound
		},
	}

	svc := NewService(store)
	overview, err := svc.GetRunOverview(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
	assert.Nil(t, overview)
}

func TestGetRunOverview_AssignmentQueryError(t *testing.T) {
	store := &mockRecordStore{
		getRunFn: func(ctx context.Context, runID string) (*domain.Run, error) {
			return &domain.Run{RunID: runID}, nil
		},
		getAssignmentsForRunFn: func(ctx context.Context, runID string) ([]domain.Assignment, error) {
			return nil, fmt.Errorf("boom")
		},
	}

	svc := NewService(store)
	_, err := svc.GetRunOverview(context.Background(), "run_1")
	assert.ErrorContains(t, err, "failed to load assignments for run run_1")
}

func TestGetWorkerOverview(t *testing.T) {
	worker := domain.Worker{WorkerID: "W_A", Accepted: 3, Completed: 2}

	store := &mockRecordStore{
		getWorkerFn: func(ctx context.Context, workerID string) (*domain.Worker, error) {
			require.Equal(t, "W_A", workerID)
			return &worker, nil
		},
		getAssignmentsForWorkerFn: func(ctx context.Context, workerID string) ([]domain.Assignment, error) {
			return []domain.Assignment{{AssignmentID: "asgn_1", WorkerID: "W_A", RunID: "run_1", Status: "Approved"}}, nil
		},
		getPairingsForWorkerFn: func(ctx context.Context, workerID string) ([]domain.Pairing, error) {
			return []domain.Pairing{{AssignmentID: "asgn_1", WorkerID: "W_A", RunID: "run_1", Status: "done", BonusAmount: 1.5}}, nil
		},
	}

	svc := NewService(store)
	overview, err := svc.GetWorkerOverview(context.Background(), "W_A")
	require.NoError(t, err)

	assert.Equal(t, worker, overview.Details)
	require.Len(t, overview.Assignments, 1)
	require.NotNil(t, overview.Assignments[0].BonusAmount)
	assert.Equal(t, 1.5, *overview.Assignments[0].BonusAmount)
}

func TestGetWorkerOverview_NotFound(t *testing.T) {
	store := &mockRecordStore{
		getWorkerFn: func(ctx context.Context, workerID string) (*domain.Worker, error) {
			return nil, domain.ErrWorkerNotFound
		},
	}

	svc := NewService(store)
	overview, err := svc.GetWorkerOverview(context.Background(), "W_GHOST")
	assert.ErrorIs(t, err, domain.ErrWorkerNotFound)
	assert.Nil(t, overview)
}

package app

import (
	"context"
	"fmt"

	"crowdboard/internal/domain"
	"crowdboard/internal/merge"

	"golang.org/x/sync/singleflight"
)

// RunOverview is the composed per-run view: run details, the merged
// assignment/pairing records, and the HITs launched for the run.
type RunOverview struct {
	Details     domain.Run
	Assignments []domain.AssignmentView
	HITs        []domain.HIT
}

// WorkerOverview is the composed per-worker view: worker details plus the
// merged records of every assignment the worker ever held.
type WorkerOverview struct {
	Details     domain.Worker
	Assignments []domain.AssignmentView
}

// Service is the application layer. It owns the read use cases of the
// dashboard and is the only component that combines store queries with the
// record merge.
type Service struct {
	store     domain.RecordStore
	listGroup singleflight.Group
}

// NewService creates the application layer service.
func NewService(store domain.RecordStore) *Service {
	return &Service{store: store}
}

// ListRuns returns all task runs. Concurrent calls are collapsed into a
// single store query.
func (s *Service) ListRuns(ctx context.Context) ([]domain.Run, error) {
	v, err, _ := s.listGroup.Do("runs", func() (any, error) {
		return s.store.GetAllRuns(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Run), nil
}

// ListWorkers returns all known workers. Concurrent calls are collapsed into
// a single store query.
func (s *Service) ListWorkers(ctx context.Context) ([]domain.Worker, error) {
	v, err, _ := s.listGroup.Do("workers", func() (any, error) {
		return s.store.GetAllWorkers(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Worker), nil
}

// GetRunOverview builds the per-run view. Returns domain.ErrRunNotFound for
// unknown run ids.
func (s *Service) GetRunOverview(ctx context.Context, runID string) (*RunOverview, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.store.GetAssignmentsForRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments for run %s: %w", runID, err)
	}
	pairings, err := s.store.GetPairingsForRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pairings for run %s: %w", runID, err)
	}

	views, orphans := merge.Records(assignments, pairings)
	merge.ReportOrphans("run "+runID, orphans)

	hits, err := s.store.GetHITsForRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load hits for run %s: %w", runID, err)
	}

	return &RunOverview{Details: *run, Assignments: views, HITs: hits}, nil
}

// GetWorkerOverview builds the per-worker view. Returns
// domain.ErrWorkerNotFound for unknown worker ids.
func (s *Service) GetWorkerOverview(ctx context.Context, workerID string) (*WorkerOverview, error) {
	worker, err := s.store.GetWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.store.GetAssignmentsForWorker(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments for worker %s: %w", workerID, err)
	}
	pairings, err := s.store.GetPairingsForWorker(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pairings for worker %s: %w", workerID, err)
	}

	views, orphans := merge.Records(assignments, pairings)
	merge.ReportOrphans("worker "+workerID, orphans)

	return &WorkerOverview{Details: *worker, Assignments: views}, nil
}

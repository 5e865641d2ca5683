package database

import (
	"context"
	"errors"
	"fmt"

	"crowdboard/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Column lists must match the Scan order in the corresponding scan helper.
const (
	runColumns        = `run_id, created, maximum, completed, failed, task_name, sandbox`
	hitColumns        = `hit_id, run_id, assignment_id, expiration, status`
	assignmentColumns = `assignment_id, hit_id, worker_id, run_id, status, approve_time`
	workerColumns     = `worker_id, accepted, disconnected, completed, approved, rejected, notes, blocked`
	pairingColumns    = `assignment_id, run_id, worker_id, status, onboarding_id, conversation_id, bonus_amount, bonus_text, bonus_paid, notes, hidden`
)

// Store implements domain.RecordStore backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ domain.RecordStore = (*Store)(nil)

// NewStore creates a Store from the shared connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanRun(row pgx.Row) (domain.Run, error) {
	var r domain.Run
	err := row.Scan(&r.RunID, &r.Created, &r.Maximum, &r.Completed, &r.Failed, &r.TaskName, &r.Sandbox)
	return r, err
}

func scanHIT(row pgx.Row) (domain.HIT, error) {
	var h domain.HIT
	err := row.Scan(&h.HITID, &h.RunID, &h.AssignmentID, &h.Expiration, &h.Status)
	return h, err
}

func scanAssignment(row pgx.Row) (domain.Assignment, error) {
	var a domain.Assignment
	err := row.Scan(&a.AssignmentID, &a.HITID, &a.WorkerID, &a.RunID, &a.Status, &a.ApproveTime)
	return a, err
}

func scanWorker(row pgx.Row) (domain.Worker, error) {
	var w domain.Worker
	err := row.Scan(&w.WorkerID, &w.Accepted, &w.Disconnected, &w.Completed, &w.Approved, &w.Rejected, &w.Notes, &w.Blocked)
	return w, err
}

func scanPairing(row pgx.Row) (domain.Pairing, error) {
	var p domain.Pairing
	err := row.Scan(
		&p.AssignmentID, &p.RunID, &p.WorkerID, &p.Status,
		&p.OnboardingID, &p.ConversationID,
		&p.BonusAmount, &p.BonusText, &p.BonusPaid, &p.Notes, &p.Hidden,
	)
	return p, err
}

// collect drains rows through a scan helper, always returning a non-nil slice.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) GetAllRuns(ctx context.Context) ([]domain.Run, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	runs, err := collect(rows, scanRun)
	if err != nil {
		return nil, fmt.Errorf("failed to scan runs: %w", err)
	}
	return runs, nil
}

func (s *Store) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = $1`, runID)

	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

func (s *Store) GetAllWorkers(ctx context.Context) ([]domain.Worker, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+workerColumns+` FROM workers ORDER BY worker_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workers: %w", err)
	}

	workers, err := collect(rows, scanWorker)
	if err != nil {
		return nil, fmt.Errorf("failed to scan workers: %w", err)
	}
	return workers, nil
}

func (s *Store) GetWorker(ctx context.Context, workerID string) (*domain.Worker, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+workerColumns+` FROM workers WHERE worker_id = $1`, workerID)

	worker, err := scanWorker(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWorkerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}
	return &worker, nil
}

func (s *Store) GetHITsForRun(ctx context.Context, runID string) ([]domain.HIT, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+hitColumns+` FROM hits WHERE run_id = $1 ORDER BY hit_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query hits for run: %w", err)
	}

	hits, err := collect(rows, scanHIT)
	if err != nil {
		return nil, fmt.Errorf("failed to scan hits for run: %w", err)
	}
	return hits, nil
}

func (s *Store) GetAssignmentsForRun(ctx context.Context, runID string) ([]domain.Assignment, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE run_id = $1 ORDER BY assignment_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments for run: %w", err)
	}

	assignments, err := collect(rows, scanAssignment)
	if err != nil {
		return nil, fmt.Errorf("failed to scan assignments for run: %w", err)
	}
	return assignments, nil
}

func (s *Store) GetPairingsForRun(ctx context.Context, runID string) ([]domain.Pairing, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pairingColumns+` FROM pairings WHERE run_id = $1 ORDER BY assignment_id, worker_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pairings for run: %w", err)
	}

	pairings, err := collect(rows, scanPairing)
	if err != nil {
		return nil, fmt.Errorf("failed to scan pairings for run: %w", err)
	}
	return pairings, nil
}

func (s *Store) GetAssignmentsForWorker(ctx context.Context, workerID string) ([]domain.Assignment, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE worker_id = $1 ORDER BY assignment_id`, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments for worker: %w", err)
	}

	assignments, err := collect(rows, scanAssignment)
	if err != nil {
		return nil, fmt.Errorf("failed to scan assignments for worker: %w", err)
	}
	return assignments, nil
}

func (s *Store) GetPairingsForWorker(ctx context.Context, workerID string) ([]domain.Pairing, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pairingColumns+` FROM pairings WHERE worker_id = $1 ORDER BY assignment_id, worker_id`, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pairings for worker: %w", err)
	}

	pairings, err := collect(rows, scanPairing)
	if err != nil {
		return nil, fmt.Errorf("failed to scan pairings for worker: %w", err)
	}
	return pairings, nil
}

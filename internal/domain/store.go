package domain

import "context"

// RecordStore is the read boundary over the task database. List getters
// return empty slices (never nil errors masking absence) for unknown ids;
// single-record getters return ErrRunNotFound / ErrWorkerNotFound.
type RecordStore interface {
	GetAllRuns(ctx context.Context) ([]Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	GetAllWorkers(ctx context.Context) ([]Worker, error)
	GetWorker(ctx context.Context, workerID string) (*Worker, error)
	GetHITsForRun(ctx context.Context, runID string) ([]HIT, error)
	GetAssignmentsForRun(ctx context.Context, runID string) ([]Assignment, error)
	GetPairingsForRun(ctx context.Context, runID string) ([]Pairing, error)
	GetAssignmentsForWorker(ctx context.Context, workerID string) ([]Assignment, error)
	GetPairingsForWorker(ctx context.Context, workerID string) ([]Pairing, error)
}

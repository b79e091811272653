/*
store.go - Persistence interfaces for workers and attendance records

PURPOSE:
  Defines the boundary between the engine and storage. The engine is
  pure: it loads state through these interfaces and hands updated
  records back; durability is the store's problem.

CONTRACT:
  - GetWorker / GetRecord return (nil, nil) when the entity is missing.
    The engine maps a missing worker to ErrWorkerNotFound; callers
    decide what a missing record means (usually "no events today").
  - SaveRecord upserts by (WorkerID, Date). Records are updated in
    place and never deleted.
  - Updates to a given (worker, date) key must be applied serially to
    preserve the engine's idempotence rules. The bundled stores do this
    with a single mutex; a multi-writer backend needs a per-key
    equivalent.

IMPLEMENTATIONS:
  - store/memory: In-memory, for tests and dev
  - store/sqlite: SQLite-backed production store
*/
package attendance

import (
	"context"
	"time"
)

// WorkerStore persists worker identity records.
type WorkerStore interface {
	// GetWorker returns the worker or (nil, nil) if unknown.
	GetWorker(ctx context.Context, id string) (*Worker, error)

	// SaveWorker upserts a worker record.
	SaveWorker(ctx context.Context, w Worker) error

	// ListWorkers returns all workers, active and inactive.
	ListWorkers(ctx context.Context) ([]Worker, error)
}

// RecordStore persists daily attendance records keyed by (worker, day).
type RecordStore interface {
	// GetRecord returns the record for the worker's calendar day, or
	// (nil, nil) if no event has been recorded yet.
	GetRecord(ctx context.Context, workerID string, day time.Time) (*DailyAttendanceRecord, error)

	// SaveRecord upserts the record for (rec.WorkerID, rec.Date).
	SaveRecord(ctx context.Context, rec DailyAttendanceRecord) error

	// RecordsInRange returns a worker's records with Date in [from, to],
	// ordered by date.
	RecordsInRange(ctx context.Context, workerID string, from, to time.Time) ([]DailyAttendanceRecord, error)
}

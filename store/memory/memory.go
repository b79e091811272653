// Package memory provides an in-memory implementation of the storage
// interfaces, for tests and development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/equipment"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Store implements attendance.WorkerStore, attendance.RecordStore, and
// equipment.Store. A single mutex serializes all updates, which
// satisfies the engine's per-(worker, day) serial-update requirement.
type Store struct {
	mu        sync.RWMutex
	workers   map[string]attendance.Worker
	records   map[recordKey]attendance.DailyAttendanceRecord
	equipment map[string]equipment.Equipment
}

type recordKey struct {
	WorkerID string
	Day      string // 2006-01-02
}

func New() *Store {
	return &Store{
		workers:   make(map[string]attendance.Worker),
		records:   make(map[recordKey]attendance.DailyAttendanceRecord),
		equipment: make(map[string]equipment.Equipment),
	}
}

func keyFor(workerID string, day time.Time) recordKey {
	return recordKey{WorkerID: workerID, Day: attendance.DayOf(day).Format("2006-01-02")}
}

// =============================================================================
// WORKER STORE
// =============================================================================

func (m *Store) GetWorker(_ context.Context, id string) (*attendance.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.workers[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (m *Store) SaveWorker(_ context.Context, w attendance.Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers[w.ID] = w
	return nil
}

func (m *Store) ListWorkers(_ context.Context) ([]attendance.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]attendance.Worker, 0, len(m.workers))
	for _, w := range m.workers {
		result = append(result, w)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// RECORD STORE
// =============================================================================

func (m *Store) GetRecord(_ context.Context, workerID string, day time.Time) (*attendance.DailyAttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[keyFor(workerID, day)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Store) SaveRecord(_ context.Context, rec attendance.DailyAttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[keyFor(rec.WorkerID, rec.Date)] = rec
	return nil
}

func (m *Store) RecordsInRange(_ context.Context, workerID string, from, to time.Time) ([]attendance.DailyAttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	period := attendance.Period{Start: attendance.DayOf(from), End: attendance.DayOf(to)}
	var result []attendance.DailyAttendanceRecord
	for _, rec := range m.records {
		if rec.WorkerID == workerID && period.Contains(rec.Date) {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// =============================================================================
// EQUIPMENT STORE
// =============================================================================

func (m *Store) GetEquipment(_ context.Context, id string) (*equipment.Equipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	eq, ok := m.equipment[id]
	if !ok {
		return nil, nil
	}
	// Copy history so callers can't mutate stored state.
	eq.History = append([]equipment.LoanEvent(nil), eq.History...)
	return &eq, nil
}

func (m *Store) SaveEquipment(_ context.Context, eq equipment.Equipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	eq.History = append([]equipment.LoanEvent(nil), eq.History...)
	m.equipment[eq.ID] = eq
	return nil
}

func (m *Store) ListEquipment(_ context.Context) ([]equipment.Equipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]equipment.Equipment, 0, len(m.equipment))
	for _, eq := range m.equipment {
		eq.History = append([]equipment.LoanEvent(nil), eq.History...)
		result = append(result, eq)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

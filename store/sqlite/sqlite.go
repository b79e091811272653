/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements attendance.WorkerStore, attendance.RecordStore, and
  equipment.Store using SQLite. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  workers:            Identity records (soft-deactivated, never deleted)
  attendance_records: One row per (worker_id, date), updated in place
  equipment:          Tool records with current status/holder
  equipment_loans:    Append-only loan/return history

CONCURRENCY:
  Uses sync.Mutex so updates to a (worker, date) row are applied
  serially, preserving the engine's idempotence rules. With PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and crash recovery improves.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := attendance.NewEngine(store, store, attendance.DefaultPolicy())

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - attendance/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/equipment"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		position TEXT,
		department TEXT,
		daily_salary TEXT NOT NULL DEFAULT '0',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	-- One row per (worker, calendar day), updated in place.
	CREATE TABLE IF NOT EXISTS attendance_records (
		worker_id TEXT NOT NULL,
		date TEXT NOT NULL,
		check_in TEXT,
		check_out TEXT,
		status TEXT NOT NULL,
		minutes_late INTEGER NOT NULL DEFAULT 0,
		hours_worked TEXT NOT NULL DEFAULT '0',
		overtime_hours TEXT NOT NULL DEFAULT '0',
		overtime_pay TEXT NOT NULL DEFAULT '0',
		auto_checkout INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (worker_id, date),
		FOREIGN KEY (worker_id) REFERENCES workers(id)
	);

	CREATE TABLE IF NOT EXISTS equipment (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT,
		status TEXT NOT NULL,
		holder_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Append-only loan/return history.
	CREATE TABLE IF NOT EXISTS equipment_loans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		equipment_id TEXT NOT NULL,
		worker_id TEXT NOT NULL,
		action TEXT NOT NULL,
		at TEXT NOT NULL,
		FOREIGN KEY (equipment_id) REFERENCES equipment(id)
	);

	CREATE INDEX IF NOT EXISTS idx_equipment_loans_equipment
		ON equipment_loans(equipment_id, id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WORKER STORE
// =============================================================================

func (s *Store) SaveWorker(ctx context.Context, w attendance.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workers (id, name, position, department, daily_salary, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			position = excluded.position,
			department = excluded.department,
			daily_salary = excluded.daily_salary,
			active = excluded.active`,
		w.ID, w.Name, w.Position, w.Department,
		w.DailySalary.String(), boolToInt(w.Active), w.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save worker: %w", err)
	}
	return nil
}

func (s *Store) GetWorker(ctx context.Context, id string) (*attendance.Worker, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, position, department, daily_salary, active, created_at
		FROM workers WHERE id = ?`, id)

	w, err := scanWorker(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get worker: %w", err)
	}
	return w, nil
}

func (s *Store) ListWorkers(ctx context.Context) ([]attendance.Worker, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, position, department, daily_salary, active, created_at
		FROM workers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	var workers []attendance.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("list workers: %w", err)
		}
		workers = append(workers, *w)
	}
	return workers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorker(row rowScanner) (*attendance.Worker, error) {
	var (
		w         attendance.Worker
		salary    string
		active    int
		createdAt string
	)
	if err := row.Scan(&w.ID, &w.Name, &w.Position, &w.Department, &salary, &active, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if w.DailySalary, err = decimal.NewFromString(salary); err != nil {
		return nil, fmt.Errorf("parse daily_salary: %w", err)
	}
	if w.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	w.Active = active != 0
	return &w, nil
}

// =============================================================================
// RECORD STORE
// =============================================================================

func (s *Store) SaveRecord(ctx context.Context, rec attendance.DailyAttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance_records
			(worker_id, date, check_in, check_out, status, minutes_late,
			 hours_worked, overtime_hours, overtime_pay, auto_checkout)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(worker_id, date) DO UPDATE SET
			check_in = excluded.check_in,
			check_out = excluded.check_out,
			status = excluded.status,
			minutes_late = excluded.minutes_late,
			hours_worked = excluded.hours_worked,
			overtime_hours = excluded.overtime_hours,
			overtime_pay = excluded.overtime_pay,
			auto_checkout = excluded.auto_checkout`,
		rec.WorkerID, attendance.DayOf(rec.Date).Format(dateLayout),
		formatTimePtr(rec.CheckIn), formatTimePtr(rec.CheckOut),
		string(rec.Status), rec.MinutesLate,
		rec.HoursWorked.String(), rec.OvertimeHours.String(), rec.OvertimePay.String(),
		boolToInt(rec.AutoCheckout))
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

func (s *Store) GetRecord(ctx context.Context, workerID string, day time.Time) (*attendance.DailyAttendanceRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT worker_id, date, check_in, check_out, status, minutes_late,
		       hours_worked, overtime_hours, overtime_pay, auto_checkout
		FROM attendance_records WHERE worker_id = ? AND date = ?`,
		workerID, attendance.DayOf(day).Format(dateLayout))

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func (s *Store) RecordsInRange(ctx context.Context, workerID string, from, to time.Time) ([]attendance.DailyAttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT worker_id, date, check_in, check_out, status, minutes_late,
		       hours_worked, overtime_hours, overtime_pay, auto_checkout
		FROM attendance_records
		WHERE worker_id = ? AND date >= ? AND date <= ?
		ORDER BY date`,
		workerID,
		attendance.DayOf(from).Format(dateLayout),
		attendance.DayOf(to).Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("records in range: %w", err)
	}
	defer rows.Close()

	var recs []attendance.DailyAttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("records in range: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func scanRecord(row rowScanner) (*attendance.DailyAttendanceRecord, error) {
	var (
		rec           attendance.DailyAttendanceRecord
		date          string
		checkIn       sql.NullString
		checkOut      sql.NullString
		status        string
		hoursWorked   string
		overtimeHours string
		overtimePay   string
		autoCheckout  int
	)
	if err := row.Scan(&rec.WorkerID, &date, &checkIn, &checkOut, &status, &rec.MinutesLate,
		&hoursWorked, &overtimeHours, &overtimePay, &autoCheckout); err != nil {
		return nil, err
	}

	var err error
	if rec.Date, err = time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("parse date: %w", err)
	}
	if rec.CheckIn, err = parseTimePtr(checkIn); err != nil {
		return nil, fmt.Errorf("parse check_in: %w", err)
	}
	if rec.CheckOut, err = parseTimePtr(checkOut); err != nil {
		return nil, fmt.Errorf("parse check_out: %w", err)
	}
	if rec.HoursWorked, err = decimal.NewFromString(hoursWorked); err != nil {
		return nil, fmt.Errorf("parse hours_worked: %w", err)
	}
	if rec.OvertimeHours, err = decimal.NewFromString(overtimeHours); err != nil {
		return nil, fmt.Errorf("parse overtime_hours: %w", err)
	}
	if rec.OvertimePay, err = decimal.NewFromString(overtimePay); err != nil {
		return nil, fmt.Errorf("parse overtime_pay: %w", err)
	}
	rec.Status = attendance.Status(status)
	rec.AutoCheckout = autoCheckout != 0
	return &rec, nil
}

// =============================================================================
// EQUIPMENT STORE
// =============================================================================

func (s *Store) SaveEquipment(ctx context.Context, eq equipment.Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if eq.CreatedAt.IsZero() {
		eq.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save equipment: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO equipment (id, name, category, status, holder_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			status = excluded.status,
			holder_id = excluded.holder_id`,
		eq.ID, eq.Name, eq.Category, string(eq.Status), eq.HolderID,
		eq.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("save equipment: %w", err)
	}

	// History is append-only: persist only the entries beyond what is
	// already stored.
	var have int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM equipment_loans WHERE equipment_id = ?`, eq.ID).Scan(&have); err != nil {
		return fmt.Errorf("save equipment: %w", err)
	}
	for i := have; i < len(eq.History); i++ {
		ev := eq.History[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO equipment_loans (equipment_id, worker_id, action, at)
			VALUES (?, ?, ?, ?)`,
			eq.ID, ev.WorkerID, string(ev.Action), ev.At.Format(timeLayout))
		if err != nil {
			return fmt.Errorf("save equipment history: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) GetEquipment(ctx context.Context, id string) (*equipment.Equipment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, status, holder_id, created_at
		FROM equipment WHERE id = ?`, id)

	eq, err := scanEquipment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get equipment: %w", err)
	}

	if eq.History, err = s.loadHistory(ctx, id); err != nil {
		return nil, err
	}
	return eq, nil
}

func (s *Store) ListEquipment(ctx context.Context) ([]equipment.Equipment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, status, holder_id, created_at
		FROM equipment ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	defer rows.Close()

	var result []equipment.Equipment
	for rows.Next() {
		eq, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("list equipment: %w", err)
		}
		result = append(result, *eq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		if result[i].History, err = s.loadHistory(ctx, result[i].ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Store) loadHistory(ctx context.Context, equipmentID string) ([]equipment.LoanEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT worker_id, action, at FROM equipment_loans
		WHERE equipment_id = ? ORDER BY id`, equipmentID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var history []equipment.LoanEvent
	for rows.Next() {
		var (
			ev     equipment.LoanEvent
			action string
			at     string
		)
		if err := rows.Scan(&ev.WorkerID, &action, &at); err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		ev.Action = equipment.LoanAction(action)
		if ev.At, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("parse loan time: %w", err)
		}
		history = append(history, ev)
	}
	return history, rows.Err()
}

func scanEquipment(row rowScanner) (*equipment.Equipment, error) {
	var (
		eq        equipment.Equipment
		status    string
		createdAt string
	)
	if err := row.Scan(&eq.ID, &eq.Name, &eq.Category, &status, &eq.HolderID, &createdAt); err != nil {
		return nil, err
	}
	eq.Status = equipment.Status(status)

	var err error
	if eq.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &eq, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// Reset clears all data. Dev/test only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"equipment_loans", "equipment", "attendance_records", "workers"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(timeLayout)
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

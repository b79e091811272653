/*
Package attendance implements the attendance and pay engine.

PURPOSE:
  This package contains the core decision logic for worker attendance:
  check-in/check-out state transitions, tardiness classification,
  worked-hours and overtime pay computation, and weekly reporting over
  the organization's Thursday-to-Wednesday work week.

KEY CONCEPTS IN THIS FILE (types.go):
  - Worker: Identity record with salary info (soft-deactivated, never deleted)
  - DailyAttendanceRecord: One record per (worker, calendar day)
  - Status: Derived arrival classification (early, on-time, late, absent)
  - CheckInResult/CheckOutResult: Structured outcomes for callers

DESIGN PRINCIPLES:
  1. Purity: The engine performs no I/O; stores are injected
  2. Precision: Uses decimal.Decimal for hours and pay to avoid float drift
  3. Idempotence: Duplicate scans never corrupt a day's record
  4. Auditability: Backfilled check-ins are flagged, never silent

USAGE:
  engine := attendance.NewEngine(workers, records, attendance.DefaultPolicy())
  result, err := engine.RecordCheckIn(ctx, "wrk-1", time.Now())

SEE ALSO:
  - policy.go: Configurable business rules (boundaries, multipliers)
  - engine.go: State machine and pay computation
  - period.go: Work week boundaries
*/
package attendance

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// WORKER - Identity and salary record
// =============================================================================

// Worker is the identity record attendance operations run against.
// Workers are soft-deactivated, never hard-deleted, so historical
// attendance records always resolve to a worker.
type Worker struct {
	ID          string
	Name        string
	Position    string
	Department  string
	DailySalary decimal.Decimal // zero means "use policy default"
	Active      bool
	CreatedAt   time.Time
}

// =============================================================================
// STATUS - Derived arrival classification
// =============================================================================

type Status string

const (
	StatusEarly  Status = "early"
	StatusOnTime Status = "on-time"
	StatusLate   Status = "late"
	StatusAbsent Status = "absent"
)

// =============================================================================
// DAILY ATTENDANCE RECORD - One per (worker, calendar day)
// =============================================================================

// DailyAttendanceRecord holds the attendance state for a single worker
// on a single calendar day. It is created on the first check-in/out
// event of the day and updated in place thereafter - never deleted.
//
// INVARIANT: CheckOut, when set, is after CheckIn. A check-out with no
// prior check-in backfills CheckIn from policy and sets AutoCheckout.
type DailyAttendanceRecord struct {
	WorkerID string
	Date     time.Time // midnight at the start of the calendar day

	CheckIn  *time.Time
	CheckOut *time.Time

	Status      Status
	MinutesLate int

	HoursWorked   decimal.Decimal
	OvertimeHours decimal.Decimal
	OvertimePay   decimal.Decimal

	// AutoCheckout marks records whose check-in was backfilled because
	// the check-out arrived without a matching check-in. Surfaced to
	// reporting for later audit/correction.
	AutoCheckout bool
}

// CheckedOut reports whether the record reached its terminal state.
// A second check-out against such a record is an idempotent update.
func (r *DailyAttendanceRecord) CheckedOut() bool {
	return r.CheckOut != nil
}

// =============================================================================
// OPERATION RESULTS - Structured outcomes for callers
// =============================================================================

// CheckInResult is returned by RecordCheckIn.
type CheckInResult struct {
	Status      Status
	MinutesLate int // only meaningful when Status is late
	Record      DailyAttendanceRecord
}

// CheckOutResult is returned by RecordCheckOut.
type CheckOutResult struct {
	HoursWorked   decimal.Decimal
	OvertimeHours decimal.Decimal
	OvertimePay   decimal.Decimal
	AutoCheckout  bool
	Record        DailyAttendanceRecord
}

// WeeklyReport aggregates a worker's records over one work week.
type WeeklyReport struct {
	WorkerID string
	Week     Period

	TotalHours         decimal.Decimal
	TotalOvertimeHours decimal.Decimal
	TotalOvertimePay   decimal.Decimal
	LateDays           int
	DaysRecorded       int
}

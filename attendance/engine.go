/*
engine.go - Attendance state machine and pay computation

PURPOSE:
  Implements the per-(worker, day) state machine

      NoRecord -> CheckedIn -> CheckedOut

  and the derived computations: tardiness classification, worked hours,
  and overtime pay.

STATE RULES:
  - First check-in of the day wins; a duplicate check-in only replaces
    it when the new time is earlier (double-tap of a QR card).
  - CheckedOut is terminal for the day. A repeated check-out re-applies
    the same computed fields and changes nothing.
  - A check-out with no prior check-in backfills the check-in from
    Policy.DefaultCheckIn and flags the record AutoCheckout.

PAY RULES:
  hoursWorked   = checkOut - checkIn, fractional, same-day only
  overtimeHours = max(0, hoursWorked - StandardHours)
  overtimePay   = overtimeHours * (dailySalary / StandardHours)
                  * OvertimeSurcharge
                  * WeekendMultiplier (only on WeekendDay)

  The surcharge and weekend multiplier compose multiplicatively.

NO I/O:
  The engine touches the injected stores and nothing else. It makes no
  network calls; notification and persistence wiring is the caller's
  responsibility.

SEE ALSO:
  - policy.go: The configurable constants referenced above
  - period.go: Work week boundaries used by WeeklyReport
*/
package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine applies attendance operations against injected stores.
type Engine struct {
	workers WorkerStore
	records RecordStore
	policy  Policy
}

// NewEngine creates an engine over the given stores and policy.
func NewEngine(workers WorkerStore, records RecordStore, policy Policy) *Engine {
	return &Engine{workers: workers, records: records, policy: policy}
}

// Policy returns the ruleset the engine was built with.
func (e *Engine) Policy() Policy { return e.policy }

// =============================================================================
// CHECK-IN
// =============================================================================

// RecordCheckIn records an arrival for the worker's current calendar day.
//
// Idempotence: if a check-in already exists for the day, the earlier of
// the two times is kept. A later duplicate scan returns the existing
// record unchanged. When an earlier arrival lands on a day that is
// already checked out, hours and pay are recomputed from the new span.
func (e *Engine) RecordCheckIn(ctx context.Context, workerID string, at time.Time) (*CheckInResult, error) {
	worker, err := e.requireWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}

	day := DayOf(at)
	rec, err := e.records.GetRecord(ctx, workerID, day)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}

	if rec != nil && rec.CheckIn != nil && !at.Before(*rec.CheckIn) {
		// Duplicate scan after the recorded arrival: first check-in wins.
		return &CheckInResult{Status: rec.Status, MinutesLate: rec.MinutesLate, Record: *rec}, nil
	}

	if rec == nil {
		rec = &DailyAttendanceRecord{WorkerID: workerID, Date: day}
	}

	arrival := at
	rec.CheckIn = &arrival
	rec.Status, rec.MinutesLate = e.classifyArrival(at)
	if rec.CheckOut != nil {
		// The day was already checked out; moving the arrival changes
		// the worked span, so the derived fields must follow.
		e.applyPay(rec, worker)
	}

	if err := e.records.SaveRecord(ctx, *rec); err != nil {
		return nil, fmt.Errorf("save record: %w", err)
	}
	return &CheckInResult{Status: rec.Status, MinutesLate: rec.MinutesLate, Record: *rec}, nil
}

// classifyArrival compares the arrival against the workday boundary.
// The boundary is inclusive-low: arriving at exactly WorkdayStart is
// early. MinutesLate truncates toward zero, so 08:00:01 is late with
// zero whole minutes.
func (e *Engine) classifyArrival(at time.Time) (Status, int) {
	boundary := e.policy.WorkdayStart.At(at)
	if !at.After(boundary) {
		return StatusEarly, 0
	}
	if e.policy.LatenessGrace > 0 && !at.After(boundary.Add(e.policy.LatenessGrace)) {
		return StatusOnTime, 0
	}
	return StatusLate, int(at.Sub(boundary).Minutes())
}

// =============================================================================
// CHECK-OUT
// =============================================================================

// RecordCheckOut records a departure and computes worked hours and
// overtime pay for the day.
//
// If no check-in exists, the check-in is backfilled from
// Policy.DefaultCheckIn and the record is flagged AutoCheckout so the
// correction stays visible downstream.
//
// A record that is already checked out is terminal: the stored times are
// kept and the same computed fields are re-applied.
func (e *Engine) RecordCheckOut(ctx context.Context, workerID string, at time.Time) (*CheckOutResult, error) {
	worker, err := e.requireWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}

	day := DayOf(at)
	rec, err := e.records.GetRecord(ctx, workerID, day)
	if err != nil {
		return nil, fmt.Errorf("load record: %w", err)
	}

	if rec == nil {
		rec = &DailyAttendanceRecord{WorkerID: workerID, Date: day}
	}

	if rec.CheckIn == nil {
		backfill := e.policy.DefaultCheckIn.At(day)
		rec.CheckIn = &backfill
		rec.Status, rec.MinutesLate = e.classifyArrival(backfill)
		rec.AutoCheckout = true
	}

	if rec.CheckOut == nil {
		if at.Before(*rec.CheckIn) {
			return nil, &InvalidCheckOutError{WorkerID: workerID, CheckIn: *rec.CheckIn, CheckOut: at}
		}
		departure := at
		rec.CheckOut = &departure
	}

	e.applyPay(rec, worker)

	if err := e.records.SaveRecord(ctx, *rec); err != nil {
		return nil, fmt.Errorf("save record: %w", err)
	}
	return &CheckOutResult{
		HoursWorked:   rec.HoursWorked,
		OvertimeHours: rec.OvertimeHours,
		OvertimePay:   rec.OvertimePay,
		AutoCheckout:  rec.AutoCheckout,
		Record:        *rec,
	}, nil
}

// applyPay derives hours, overtime, and pay from the record's times.
// Recomputing from the same times yields the same fields, which is what
// makes a repeated check-out a no-op.
func (e *Engine) applyPay(rec *DailyAttendanceRecord, worker *Worker) {
	minutes := rec.CheckOut.Sub(*rec.CheckIn) / time.Minute
	rec.HoursWorked = decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60))

	if rec.HoursWorked.LessThanOrEqual(e.policy.StandardHours) {
		rec.OvertimeHours = decimal.Zero
		rec.OvertimePay = decimal.Zero
		return
	}

	rec.OvertimeHours = rec.HoursWorked.Sub(e.policy.StandardHours)
	pay := rec.OvertimeHours.
		Mul(e.policy.HourlyRate(worker.DailySalary)).
		Mul(e.policy.OvertimeSurcharge)
	if rec.CheckOut.Weekday() == e.policy.WeekendDay {
		pay = pay.Mul(e.policy.WeekendMultiplier)
	}
	rec.OvertimePay = pay
}

// =============================================================================
// WEEKLY REPORT
// =============================================================================

// WeeklyReport aggregates the worker's records over the work week
// containing referenceDate (most recent WeekStart through the following
// six days, inclusive).
func (e *Engine) WeeklyReport(ctx context.Context, workerID string, referenceDate time.Time) (*WeeklyReport, error) {
	if _, err := e.requireWorker(ctx, workerID); err != nil {
		return nil, err
	}

	week := WorkWeekFor(referenceDate, e.policy.WeekStart)
	recs, err := e.records.RecordsInRange(ctx, workerID, week.Start, week.End)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	report := &WeeklyReport{
		WorkerID:           workerID,
		Week:               week,
		TotalHours:         decimal.Zero,
		TotalOvertimeHours: decimal.Zero,
		TotalOvertimePay:   decimal.Zero,
	}
	for _, rec := range recs {
		report.DaysRecorded++
		report.TotalHours = report.TotalHours.Add(rec.HoursWorked)
		report.TotalOvertimeHours = report.TotalOvertimeHours.Add(rec.OvertimeHours)
		report.TotalOvertimePay = report.TotalOvertimePay.Add(rec.OvertimePay)
		if rec.Status == StatusLate {
			report.LateDays++
		}
	}
	return report, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (e *Engine) requireWorker(ctx context.Context, workerID string) (*Worker, error) {
	worker, err := e.workers.GetWorker(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("load worker: %w", err)
	}
	if worker == nil {
		return nil, &NotFoundError{Kind: "worker", ID: workerID}
	}
	return worker, nil
}

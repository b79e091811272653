/*
policy.go - Configurable attendance and pay rules

PURPOSE:
  Collects every business-rule constant of the engine in one explicit
  configuration struct. The numbers here are policy, not algorithmic
  necessity: the workday boundary, the overtime surcharge, and the
  weekend multiplier all vary by organization.

DEFAULTS:
  WorkdayStart        08:00  (arrival at or before is "early")
  LatenessGrace       0      (arrival any time after the boundary is "late")
  DefaultCheckIn      17:00  (backfill for check-out without check-in)
  StandardHours       8      (overtime starts beyond this)
  OvertimeSurcharge   1.25
  WeekendMultiplier   1.5    (composes multiplicatively with the surcharge)
  WeekendDay          Saturday
  DefaultDailySalary  100
  WeekStart           Thursday (reporting cycle, not the ISO week)

NOTE ON DefaultCheckIn:
  Backfilling a *check-in* from the end-of-day constant is inherited
  behavior from the system this engine replaces. It is kept as the
  default so existing records stay comparable, but it is configuration,
  and records built from it always carry AutoCheckout=true.

SEE ALSO:
  - engine.go: Applies these rules
*/
package attendance

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CLOCK TIME - Wall-clock boundary within a day
// =============================================================================

// ClockTime is a time-of-day boundary (no date component).
type ClockTime struct {
	Hour   int
	Minute int
}

// At anchors the boundary onto a specific calendar day.
func (c ClockTime) At(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

// =============================================================================
// POLICY - The complete attendance ruleset
// =============================================================================

// Policy defines the business rules the engine applies. Construct with
// DefaultPolicy and override fields as needed.
type Policy struct {
	// WorkdayStart is the tardiness boundary. Arrival at or before the
	// boundary classifies as early (inclusive-low); any later arrival
	// is late unless it falls within LatenessGrace.
	WorkdayStart ClockTime

	// LatenessGrace classifies arrivals in (WorkdayStart, WorkdayStart+grace]
	// as on-time instead of late. Zero disables the window.
	LatenessGrace time.Duration

	// DefaultCheckIn is the backfilled check-in time used when a
	// check-out arrives with no prior check-in for the day.
	DefaultCheckIn ClockTime

	// StandardHours is the daily threshold beyond which hours count as
	// overtime.
	StandardHours decimal.Decimal

	// OvertimeSurcharge multiplies the hourly rate for overtime hours.
	OvertimeSurcharge decimal.Decimal

	// WeekendMultiplier is applied on top of the surcharge when the
	// check-out falls on WeekendDay.
	WeekendMultiplier decimal.Decimal
	WeekendDay        time.Weekday

	// DefaultDailySalary is used when a worker has no salary recorded.
	DefaultDailySalary decimal.Decimal

	// WeekStart anchors the reporting week. The work week runs from the
	// most recent WeekStart through the following six days.
	WeekStart time.Weekday
}

// DefaultPolicy returns the standard ruleset.
func DefaultPolicy() Policy {
	return Policy{
		WorkdayStart:       ClockTime{Hour: 8},
		LatenessGrace:      0,
		DefaultCheckIn:     ClockTime{Hour: 17},
		StandardHours:      decimal.NewFromInt(8),
		OvertimeSurcharge:  decimal.RequireFromString("1.25"),
		WeekendMultiplier:  decimal.RequireFromString("1.5"),
		WeekendDay:         time.Saturday,
		DefaultDailySalary: decimal.NewFromInt(100),
		WeekStart:          time.Thursday,
	}
}

// HourlyRate derives the rate used for overtime pay from a daily salary.
func (p Policy) HourlyRate(dailySalary decimal.Decimal) decimal.Decimal {
	if dailySalary.IsZero() {
		dailySalary = p.DefaultDailySalary
	}
	return dailySalary.Div(p.StandardHours)
}

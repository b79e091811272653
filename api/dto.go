/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract,
  allowing field renaming and version evolution without breaking
  clients.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/equipment"
)

// =============================================================================
// WORKERS
// =============================================================================

// WorkerDTO represents a worker in API responses.
type WorkerDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Position    string  `json:"position,omitempty"`
	Department  string  `json:"department,omitempty"`
	DailySalary float64 `json:"daily_salary"`
	Active      bool    `json:"active"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// SaveWorkerRequest creates or updates a worker.
type SaveWorkerRequest struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Position    string   `json:"position,omitempty"`
	Department  string   `json:"department,omitempty"`
	DailySalary *float64 `json:"daily_salary,omitempty"`
}

// =============================================================================
// SCAN AND ATTENDANCE
// =============================================================================

// ScanRequest carries one decoded QR text string from the scanner.
type ScanRequest struct {
	Text string `json:"text"`
	// At optionally pins the event time (RFC3339); defaults to now.
	At string `json:"at,omitempty"`
}

// ScanResponseDTO is the classified outcome of a scan.
type ScanResponseDTO struct {
	Kind string `json:"kind"` // attendance | equipment | unrecognized

	// Attendance outcome
	WorkerID   string         `json:"worker_id,omitempty"`
	Valid      *bool          `json:"valid,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Action     string         `json:"action,omitempty"` // check-in | check-out
	Attendance *AttendanceDTO `json:"attendance,omitempty"`

	// Equipment pass-through
	EquipmentID string `json:"equipment_id,omitempty"`

	// Raw text for manual entry on unrecognized scans
	Raw string `json:"raw,omitempty"`
}

// CheckRequest pins the event time for explicit check-in/out endpoints.
type CheckRequest struct {
	At string `json:"at,omitempty"` // RFC3339, defaults to now
}

// AttendanceDTO represents a daily attendance record.
type AttendanceDTO struct {
	WorkerID      string  `json:"worker_id"`
	Date          string  `json:"date"`
	CheckIn       *string `json:"check_in,omitempty"`
	CheckOut      *string `json:"check_out,omitempty"`
	Status        string  `json:"status"`
	MinutesLate   int     `json:"minutes_late"`
	HoursWorked   float64 `json:"hours_worked"`
	OvertimeHours float64 `json:"overtime_hours"`
	OvertimePay   float64 `json:"overtime_pay"`
	AutoCheckout  bool    `json:"auto_checkout"`
}

// WeeklyReportDTO aggregates one work week.
type WeeklyReportDTO struct {
	WorkerID           string  `json:"worker_id"`
	WeekStart          string  `json:"week_start"`
	WeekEnd            string  `json:"week_end"`
	TotalHours         float64 `json:"total_hours"`
	TotalOvertimeHours float64 `json:"total_overtime_hours"`
	TotalOvertimePay   float64 `json:"total_overtime_pay"`
	LateDays           int     `json:"late_days"`
	DaysRecorded       int     `json:"days_recorded"`
}

// =============================================================================
// EQUIPMENT
// =============================================================================

// EquipmentDTO represents an equipment record.
type EquipmentDTO struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Category  string         `json:"category,omitempty"`
	Status    string         `json:"status"`
	HolderID  string         `json:"holder_id,omitempty"`
	History   []LoanEventDTO `json:"history,omitempty"`
	CreatedAt string         `json:"created_at,omitempty"`
}

// LoanEventDTO is one loan-history entry.
type LoanEventDTO struct {
	WorkerID string `json:"worker_id"`
	Action   string `json:"action"`
	At       string `json:"at"`
}

// SaveEquipmentRequest creates or updates an equipment record.
type SaveEquipmentRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Status   string `json:"status,omitempty"` // defaults to available
}

// LoanRequest loans or returns equipment.
type LoanRequest struct {
	WorkerID string `json:"worker_id"`
	At       string `json:"at,omitempty"` // RFC3339, defaults to now
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toWorkerDTO(w attendance.Worker) WorkerDTO {
	salary, _ := w.DailySalary.Float64()
	return WorkerDTO{
		ID:          w.ID,
		Name:        w.Name,
		Position:    w.Position,
		Department:  w.Department,
		DailySalary: salary,
		Active:      w.Active,
		CreatedAt:   w.CreatedAt.Format(time.RFC3339),
	}
}

func toAttendanceDTO(rec attendance.DailyAttendanceRecord) AttendanceDTO {
	hours, _ := rec.HoursWorked.Float64()
	otHours, _ := rec.OvertimeHours.Float64()
	otPay, _ := rec.OvertimePay.Float64()

	dto := AttendanceDTO{
		WorkerID:      rec.WorkerID,
		Date:          rec.Date.Format("2006-01-02"),
		Status:        string(rec.Status),
		MinutesLate:   rec.MinutesLate,
		HoursWorked:   hours,
		OvertimeHours: otHours,
		OvertimePay:   otPay,
		AutoCheckout:  rec.AutoCheckout,
	}
	if rec.CheckIn != nil {
		v := rec.CheckIn.Format(time.RFC3339)
		dto.CheckIn = &v
	}
	if rec.CheckOut != nil {
		v := rec.CheckOut.Format(time.RFC3339)
		dto.CheckOut = &v
	}
	return dto
}

func toWeeklyReportDTO(r attendance.WeeklyReport) WeeklyReportDTO {
	hours, _ := r.TotalHours.Float64()
	otHours, _ := r.TotalOvertimeHours.Float64()
	otPay, _ := r.TotalOvertimePay.Float64()
	return WeeklyReportDTO{
		WorkerID:           r.WorkerID,
		WeekStart:          r.Week.Start.Format("2006-01-02"),
		WeekEnd:            r.Week.End.Format("2006-01-02"),
		TotalHours:         hours,
		TotalOvertimeHours: otHours,
		TotalOvertimePay:   otPay,
		LateDays:           r.LateDays,
		DaysRecorded:       r.DaysRecorded,
	}
}

func toEquipmentDTO(eq equipment.Equipment) EquipmentDTO {
	dto := EquipmentDTO{
		ID:        eq.ID,
		Name:      eq.Name,
		Category:  eq.Category,
		Status:    string(eq.Status),
		HolderID:  eq.HolderID,
		CreatedAt: eq.CreatedAt.Format(time.RFC3339),
	}
	for _, ev := range eq.History {
		dto.History = append(dto.History, LoanEventDTO{
			WorkerID: ev.WorkerID,
			Action:   string(ev.Action),
			At:       ev.At.Format(time.RFC3339),
		})
	}
	return dto
}

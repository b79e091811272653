/*
handlers.go - HTTP API handlers for the attendance system

PURPOSE:
  Exposes the attendance engine, QR interpreter, and equipment service
  via REST. Handles HTTP request/response and JSON serialization, and
  delegates every decision to the domain packages.

ENDPOINTS:
  Scan:
    POST   /api/scan                     Classify decoded QR text and act on it

  Workers:
    GET    /api/workers                  List workers
    POST   /api/workers                  Create/update worker
    GET    /api/workers/{id}             Get worker
    DELETE /api/workers/{id}             Deactivate worker (soft)
    GET    /api/workers/{id}/token       Issue today's attendance token
    POST   /api/workers/{id}/check-in    Explicit check-in
    POST   /api/workers/{id}/check-out   Explicit check-out
    GET    /api/workers/{id}/report      Weekly report (Thu-Wed window)
    GET    /api/workers/{id}/records     Records in a date range

  Equipment:
    GET    /api/equipment                List equipment
    POST   /api/equipment                Create/update equipment
    GET    /api/equipment/{id}           Get equipment with loan history
    POST   /api/equipment/{id}/loan      Loan to a worker
    POST   /api/equipment/{id}/return    Return

SCAN FLOW:
  Decoded text -> qr.Interpreter classifies -> valid attendance tokens
  toggle the worker's day (no record: check-in; checked in: check-out;
  checked out: idempotent re-checkout). Invalid tokens and unrecognized
  text come back as data, never as attendance mutations.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input, invariant violations
  - 404: Unknown worker/equipment
  - 409: Equipment state conflicts (loan unavailable, return idle)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/equipment"
	"github.com/warp/attendance-engine/qr"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Workers   attendance.WorkerStore
	Records   attendance.RecordStore
	Engine    *attendance.Engine
	Equipment *equipment.Service
	EquipSt   equipment.Store
	Issuer    *qr.TokenIssuer
	Interp    *qr.Interpreter

	// Now is the clock used for scan/check events; tests override it.
	Now func() time.Time
}

// Deps bundles the stores a Handler is built from.
type Deps struct {
	Workers  attendance.WorkerStore
	Records  attendance.RecordStore
	EquipSt  equipment.Store
	Policy   attendance.Policy
	QRSecret []byte
}

// NewHandler wires a handler from stores and policy.
func NewHandler(d Deps) *Handler {
	issuer := qr.NewTokenIssuer(d.QRSecret)
	return &Handler{
		Workers:   d.Workers,
		Records:   d.Records,
		Engine:    attendance.NewEngine(d.Workers, d.Records, d.Policy),
		Equipment: equipment.NewService(d.EquipSt),
		EquipSt:   d.EquipSt,
		Issuer:    issuer,
		Interp:    qr.NewInterpreter(issuer),
		Now:       time.Now,
	}
}

// =============================================================================
// SCAN
// =============================================================================

// Scan classifies one decoded QR string and, for valid attendance
// tokens, toggles the worker's day between check-in and check-out.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	at, err := h.eventTime(req.At)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid at timestamp (use RFC3339)", err)
		return
	}

	result := h.Interp.Interpret(req.Text)
	resp := ScanResponseDTO{Kind: string(result.Kind), Raw: result.Raw}

	switch result.Kind {
	case qr.KindEquipment:
		resp.EquipmentID = result.EquipmentID
		writeJSON(w, http.StatusOK, resp)

	case qr.KindAttendance:
		resp.WorkerID = result.Token.WorkerID
		valid := result.Validation.Valid
		resp.Valid = &valid
		resp.Reason = result.Validation.Reason
		if !valid {
			// Tampered/expired tokens never record attendance.
			writeJSON(w, http.StatusOK, resp)
			return
		}
		h.applyAttendanceScan(w, r, &resp, result.Token.WorkerID, at)

	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

// applyAttendanceScan toggles the worker's day: first scan checks in,
// the next checks out, and further scans re-apply the checkout.
func (h *Handler) applyAttendanceScan(w http.ResponseWriter, r *http.Request, resp *ScanResponseDTO, workerID string, at time.Time) {
	ctx := r.Context()

	rec, err := h.Records.GetRecord(ctx, workerID, at)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load record", err)
		return
	}

	if rec == nil || rec.CheckIn == nil {
		result, err := h.Engine.RecordCheckIn(ctx, workerID, at)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		resp.Action = "check-in"
		dto := toAttendanceDTO(result.Record)
		resp.Attendance = &dto
		writeJSON(w, http.StatusOK, resp)
		return
	}

	result, err := h.Engine.RecordCheckOut(ctx, workerID, at)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	resp.Action = "check-out"
	dto := toAttendanceDTO(result.Record)
	resp.Attendance = &dto
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// WORKER HANDLERS
// =============================================================================

// ListWorkers returns all workers.
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.Workers.ListWorkers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list workers", err)
		return
	}

	dtos := make([]WorkerDTO, len(workers))
	for i, worker := range workers {
		dtos[i] = toWorkerDTO(worker)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetWorker returns a single worker.
func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	worker, err := h.Workers.GetWorker(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get worker", err)
		return
	}
	if worker == nil {
		writeError(w, http.StatusNotFound, "Worker not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toWorkerDTO(*worker))
}

// SaveWorker creates or updates a worker.
func (h *Handler) SaveWorker(w http.ResponseWriter, r *http.Request) {
	var req SaveWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	worker := attendance.Worker{
		ID:         req.ID,
		Name:       req.Name,
		Position:   req.Position,
		Department: req.Department,
		Active:     true,
		CreatedAt:  h.Now(),
	}
	if req.DailySalary != nil {
		worker.DailySalary = decimal.NewFromFloat(*req.DailySalary)
	}

	if existing, err := h.Workers.GetWorker(r.Context(), req.ID); err == nil && existing != nil {
		worker.CreatedAt = existing.CreatedAt
		if req.DailySalary == nil {
			worker.DailySalary = existing.DailySalary
		}
	}

	if err := h.Workers.SaveWorker(r.Context(), worker); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save worker", err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkerDTO(worker))
}

// DeactivateWorker soft-deletes a worker. Attendance history survives.
func (h *Handler) DeactivateWorker(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	worker, err := h.Workers.GetWorker(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get worker", err)
		return
	}
	if worker == nil {
		writeError(w, http.StatusNotFound, "Worker not found", nil)
		return
	}

	worker.Active = false
	if err := h.Workers.SaveWorker(r.Context(), *worker); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to deactivate worker", err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkerDTO(*worker))
}

// IssueToken returns the worker's attendance token for today.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	worker, err := h.Workers.GetWorker(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get worker", err)
		return
	}
	if worker == nil {
		writeError(w, http.StatusNotFound, "Worker not found", nil)
		return
	}

	token := h.Issuer.GenerateDailyToken(worker.ID, worker.Name, h.Now())
	writeJSON(w, http.StatusOK, token)
}

// CheckIn records an explicit check-in event.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.checkEvent(w, r, func(workerID string, at time.Time) (attendance.DailyAttendanceRecord, error) {
		result, err := h.Engine.RecordCheckIn(r.Context(), workerID, at)
		if err != nil {
			return attendance.DailyAttendanceRecord{}, err
		}
		return result.Record, nil
	})
}

// CheckOut records an explicit check-out event.
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	h.checkEvent(w, r, func(workerID string, at time.Time) (attendance.DailyAttendanceRecord, error) {
		result, err := h.Engine.RecordCheckOut(r.Context(), workerID, at)
		if err != nil {
			return attendance.DailyAttendanceRecord{}, err
		}
		return result.Record, nil
	})
}

func (h *Handler) checkEvent(w http.ResponseWriter, r *http.Request, apply func(string, time.Time) (attendance.DailyAttendanceRecord, error)) {
	id := chi.URLParam(r, "id")

	var req CheckRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	at, err := h.eventTime(req.At)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid at timestamp (use RFC3339)", err)
		return
	}

	rec, err := apply(id, at)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(rec))
}

// WeeklyReport returns the Thursday-to-Wednesday aggregation containing
// the given date (query param "date", default today).
func (h *Handler) WeeklyReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ref := h.Now()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
			return
		}
		ref = parsed
	}

	report, err := h.Engine.WeeklyReport(r.Context(), id, ref)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWeeklyReportDTO(*report))
}

// ListRecords returns a worker's records in [from, to].
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}

	recs, err := h.Records.RecordsInRange(r.Context(), id, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list records", err)
		return
	}

	dtos := make([]AttendanceDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toAttendanceDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// EQUIPMENT HANDLERS
// =============================================================================

// ListEquipment returns all equipment records.
func (h *Handler) ListEquipment(w http.ResponseWriter, r *http.Request) {
	items, err := h.EquipSt.ListEquipment(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list equipment", err)
		return
	}

	dtos := make([]EquipmentDTO, len(items))
	for i, eq := range items {
		dtos[i] = toEquipmentDTO(eq)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEquipment returns one equipment record with its loan history.
func (h *Handler) GetEquipment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	eq, err := h.EquipSt.GetEquipment(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get equipment", err)
		return
	}
	if eq == nil {
		writeError(w, http.StatusNotFound, "Equipment not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEquipmentDTO(*eq))
}

// SaveEquipment creates or updates an equipment record.
func (h *Handler) SaveEquipment(w http.ResponseWriter, r *http.Request) {
	var req SaveEquipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	status := equipment.Status(req.Status)
	if status == "" {
		status = equipment.StatusAvailable
	}

	eq := equipment.Equipment{
		ID:        req.ID,
		Name:      req.Name,
		Category:  req.Category,
		Status:    status,
		CreatedAt: h.Now(),
	}
	if existing, err := h.EquipSt.GetEquipment(r.Context(), req.ID); err == nil && existing != nil {
		eq.Status = existing.Status
		eq.HolderID = existing.HolderID
		eq.History = existing.History
		eq.CreatedAt = existing.CreatedAt
	}

	if err := h.EquipSt.SaveEquipment(r.Context(), eq); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save equipment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEquipmentDTO(eq))
}

// LoanEquipment hands equipment to a worker.
func (h *Handler) LoanEquipment(w http.ResponseWriter, r *http.Request) {
	h.loanEvent(w, r, h.Equipment.Loan)
}

// ReturnEquipment takes equipment back.
func (h *Handler) ReturnEquipment(w http.ResponseWriter, r *http.Request) {
	h.loanEvent(w, r, h.Equipment.Return)
}

func (h *Handler) loanEvent(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, equipmentID, workerID string, at time.Time) (*equipment.Equipment, error)) {
	id := chi.URLParam(r, "id")

	var req LoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.WorkerID == "" {
		writeError(w, http.StatusBadRequest, "worker_id is required", nil)
		return
	}

	at, err := h.eventTime(req.At)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid at timestamp (use RFC3339)", err)
		return
	}

	// The worker must exist before we touch equipment state.
	worker, err := h.Workers.GetWorker(r.Context(), req.WorkerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get worker", err)
		return
	}
	if worker == nil {
		writeError(w, http.StatusNotFound, "Worker not found", nil)
		return
	}

	eq, err := apply(r.Context(), id, req.WorkerID, at)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEquipmentDTO(*eq))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func (h *Handler) eventTime(at string) (time.Time, error) {
	if at == "" {
		return h.Now(), nil
	}
	return time.Parse(time.RFC3339, at)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps domain errors onto HTTP statuses per the error
// taxonomy: unknown entities 404, invariant violations 400, state
// conflicts 409, everything else 500.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, attendance.ErrWorkerNotFound),
		errors.Is(err, equipment.ErrEquipmentNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, attendance.ErrCheckOutBeforeCheckIn):
		writeError(w, http.StatusBadRequest, "Invalid attendance event", err)
	case errors.Is(err, equipment.ErrNotAvailable),
		errors.Is(err, equipment.ErrNotLoaned):
		writeError(w, http.StatusConflict, "Equipment state conflict", err)
	default:
		writeError(w, http.StatusInternalServerError, "Operation failed", err)
	}
}

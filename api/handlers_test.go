package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/qr"
	"github.com/warp/attendance-engine/store/memory"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

// testClock is the frozen "now" for API tests: Monday 2025-03-10 08:00 UTC.
var testClock = time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *Handler) {
	t.Helper()

	store := memory.New()
	h := NewHandler(Deps{
		Workers:  store,
		Records:  store,
		EquipSt:  store,
		Policy:   attendance.DefaultPolicy(),
		QRSecret: []byte("test-secret"),
	})
	// Freeze both clocks: the handler's event clock and the
	// interpreter's expiry clock.
	h.Now = func() time.Time { return testClock }
	h.Interp = qr.NewInterpreter(h.Issuer, qr.WithNow(func() time.Time { return testClock }))

	server := httptest.NewServer(NewRouter(h))
	t.Cleanup(server.Close)
	return server, h
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createWorker(t *testing.T, base string, id string, salary float64) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, base+"/api/workers", SaveWorkerRequest{
		ID:          id,
		Name:        "Worker " + id,
		DailySalary: &salary,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

// =============================================================================
// SCAN FLOW
// =============================================================================

func TestScan_TokenTogglesCheckInThenCheckOut(t *testing.T) {
	// GIVEN: A worker with today's token
	// WHEN: The token is scanned at 08:00 and again at 17:30
	// THEN: First scan checks in (early), second checks out with
	//       9.5 hours and weekday overtime pay

	server, _ := newTestServer(t)
	createWorker(t, server.URL, "wrk-1", 100)

	tokenResp := doJSON(t, http.MethodGet, server.URL+"/api/workers/wrk-1/token", nil)
	require.Equal(t, http.StatusOK, tokenResp.StatusCode)
	token := decode[qr.DailyToken](t, tokenResp)
	payload, err := json.Marshal(token)
	require.NoError(t, err)

	// Morning scan: check-in.
	morning := doJSON(t, http.MethodPost, server.URL+"/api/scan", ScanRequest{
		Text: string(payload),
		At:   testClock.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, morning.StatusCode)
	first := decode[ScanResponseDTO](t, morning)

	assert.Equal(t, "attendance", first.Kind)
	require.NotNil(t, first.Valid)
	assert.True(t, *first.Valid)
	assert.Equal(t, "check-in", first.Action)
	require.NotNil(t, first.Attendance)
	assert.Equal(t, "early", first.Attendance.Status)

	// Evening scan: check-out.
	evening := doJSON(t, http.MethodPost, server.URL+"/api/scan", ScanRequest{
		Text: string(payload),
		At:   testClock.Add(9*time.Hour + 30*time.Minute).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, evening.StatusCode)
	second := decode[ScanResponseDTO](t, evening)

	assert.Equal(t, "check-out", second.Action)
	require.NotNil(t, second.Attendance)
	assert.InDelta(t, 9.5, second.Attendance.HoursWorked, 1e-9)
	assert.InDelta(t, 1.5, second.Attendance.OvertimeHours, 1e-9)
	assert.InDelta(t, 23.4375, second.Attendance.OvertimePay, 1e-9)
}

func TestScan_TamperedToken_NoMutation(t *testing.T) {
	// GIVEN: A token with a forged worker id
	// WHEN: Scanned
	// THEN: The response carries valid=false/tampered and no attendance
	//       record is created for either worker

	server, h := newTestServer(t)
	createWorker(t, server.URL, "wrk-1", 100)
	createWorker(t, server.URL, "wrk-2", 100)

	token := h.Issuer.GenerateDailyToken("wrk-1", "Worker wrk-1", testClock)
	token.WorkerID = "wrk-2"
	payload, err := json.Marshal(token)
	require.NoError(t, err)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/scan", ScanRequest{
		Text: string(payload),
		At:   testClock.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	scan := decode[ScanResponseDTO](t, resp)

	assert.Equal(t, "attendance", scan.Kind)
	require.NotNil(t, scan.Valid)
	assert.False(t, *scan.Valid)
	assert.Equal(t, qr.ReasonTampered, scan.Reason)
	assert.Empty(t, scan.Action)
	assert.Nil(t, scan.Attendance)
}

func TestScan_EquipmentCode_PassesThrough(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/scan", ScanRequest{Text: "EQ-1023"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	scan := decode[ScanResponseDTO](t, resp)

	assert.Equal(t, "equipment", scan.Kind)
	assert.Equal(t, "EQ-1023", scan.EquipmentID)
}

func TestScan_Unrecognized_PreservesRaw(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/scan", ScanRequest{Text: "hello world"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	scan := decode[ScanResponseDTO](t, resp)

	assert.Equal(t, "unrecognized", scan.Kind)
	assert.Equal(t, "hello world", scan.Raw)
}

func TestScan_ValidTokenUnknownWorker_NotFound(t *testing.T) {
	// A well-formed token for a worker that was never registered.
	server, h := newTestServer(t)

	token := h.Issuer.GenerateDailyToken("ghost", "Ghost", testClock)
	payload, err := json.Marshal(token)
	require.NoError(t, err)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/scan", ScanRequest{
		Text: string(payload),
		At:   testClock.Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// EXPLICIT CHECK-IN / CHECK-OUT
// =============================================================================

func TestCheckIn_Explicit(t *testing.T) {
	server, _ := newTestServer(t)
	createWorker(t, server.URL, "wrk-1", 100)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/workers/wrk-1/check-in", CheckRequest{
		At: testClock.Add(95 * time.Minute).Format(time.RFC3339), // 09:35
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rec := decode[AttendanceDTO](t, resp)

	assert.Equal(t, "late", rec.Status)
	assert.Equal(t, 95, rec.MinutesLate)
	assert.Equal(t, "2025-03-10", rec.Date)
}

func TestCheckOut_BeforeCheckIn_BadRequest(t *testing.T) {
	server, _ := newTestServer(t)
	createWorker(t, server.URL, "wrk-1", 100)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/workers/wrk-1/check-in", CheckRequest{
		At: testClock.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/workers/wrk-1/check-out", CheckRequest{
		At: testClock.Add(-time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckIn_UnknownWorker_NotFound(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/workers/ghost/check-in", CheckRequest{
		At: testClock.Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// WEEKLY REPORT
// =============================================================================

func TestWeeklyReport_Endpoint(t *testing.T) {
	server, _ := newTestServer(t)
	createWorker(t, server.URL, "wrk-1", 100)

	// One full day: 08:00 -> 17:30.
	resp := doJSON(t, http.MethodPost, server.URL+"/api/workers/wrk-1/check-in", CheckRequest{
		At: testClock.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, http.MethodPost, server.URL+"/api/workers/wrk-1/check-out", CheckRequest{
		At: testClock.Add(9*time.Hour + 30*time.Minute).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/workers/wrk-1/report?date=2025-03-10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[WeeklyReportDTO](t, resp)

	assert.Equal(t, "2025-03-06", report.WeekStart)
	assert.Equal(t, "2025-03-12", report.WeekEnd)
	assert.Equal(t, 1, report.DaysRecorded)
	assert.InDelta(t, 9.5, report.TotalHours, 1e-9)
	assert.InDelta(t, 23.4375, report.TotalOvertimePay, 1e-9)
}

// =============================================================================
// WORKERS
// =============================================================================

func TestWorker_CRUDAndDeactivate(t *testing.T) {
	server, _ := newTestServer(t)
	createWorker(t, server.URL, "wrk-1", 120)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/workers/wrk-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	worker := decode[WorkerDTO](t, resp)
	assert.Equal(t, "wrk-1", worker.ID)
	assert.InDelta(t, 120, worker.DailySalary, 1e-9)
	assert.True(t, worker.Active)

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/workers/wrk-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	worker = decode[WorkerDTO](t, resp)
	assert.False(t, worker.Active)

	// Soft delete: the record is still readable.
	resp = doJSON(t, http.MethodGet, server.URL+"/api/workers/wrk-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/workers/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSaveWorker_MissingFields_BadRequest(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/workers", SaveWorkerRequest{Name: "No ID"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// EQUIPMENT
// =============================================================================

func TestEquipment_LoanAndReturnFlow(t *testing.T) {
	server, _ := newTestServer(t)
	createWorker(t, server.URL, "wrk-1", 100)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/equipment", SaveEquipmentRequest{
		ID:   "EQ-1023",
		Name: "Impact drill",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	loanURL := fmt.Sprintf("%s/api/equipment/%s/loan", server.URL, "EQ-1023")
	resp = doJSON(t, http.MethodPost, loanURL, LoanRequest{
		WorkerID: "wrk-1",
		At:       testClock.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	eq := decode[EquipmentDTO](t, resp)
	assert.Equal(t, "loaned", eq.Status)
	assert.Equal(t, "wrk-1", eq.HolderID)

	// Second loan while out conflicts.
	resp = doJSON(t, http.MethodPost, loanURL, LoanRequest{
		WorkerID: "wrk-1",
		At:       testClock.Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	returnURL := fmt.Sprintf("%s/api/equipment/%s/return", server.URL, "EQ-1023")
	resp = doJSON(t, http.MethodPost, returnURL, LoanRequest{
		WorkerID: "wrk-1",
		At:       testClock.Add(8 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	eq = decode[EquipmentDTO](t, resp)
	assert.Equal(t, "available", eq.Status)
	assert.Empty(t, eq.HolderID)
	assert.Len(t, eq.History, 2)
}

func TestEquipment_LoanToUnknownWorker_NotFound(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/equipment", SaveEquipmentRequest{
		ID:   "EQ-1023",
		Name: "Impact drill",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/equipment/EQ-1023/loan", LoanRequest{
		WorkerID: "ghost",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

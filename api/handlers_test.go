package api_test

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
	"go.uber.org/zap"

	"github.com/warp/shift-engine/api"
	"github.com/warp/shift-engine/schedule"
	memstore "github.com/warp/shift-engine/schedule/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *memstore.Memory) {
	t.Helper()
	st := memstore.NewMemory()
	logger := zap.NewNop()
	audit := schedule.NewAuditSink(st, logger)
	catalog := schedule.NewCatalog(st, schedule.DefaultTemplates(), schedule.NoHolidays{}, audit)
	bookings := schedule.NewBookingLedger(st, audit, schedule.NoopDispatcher{})
	vacations := schedule.NewVacationLedger(st, &schedule.StaticEntitlements{
		Default: schedule.Entitlement{AnnualDays: 15},
	}, audit, schedule.NoopDispatcher{})
	workflow := schedule.NewRequestWorkflow(st, audit, schedule.NoopDispatcher{})
	budget := schedule.NewHourBudget(st, audit)

	h := api.NewHandler(st, catalog, bookings, vacations, workflow, budget, audit, logger)
	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, st
}

// doAs issues a request with the identity headers set.
func doAs(t *testing.T, srv *httptest.Server, actor schedule.Actor, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", actor.ID)
	req.Header.Set("X-User-Name", actor.Name)
	req.Header.Set("X-User-Role", string(actor.Role))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

var (
	apiAdmin = schedule.Actor{ID: "admin-1", Name: "Admin", Role: schedule.RoleAdmin}
	apiAnna  = schedule.Actor{ID: "u-anna", Name: "Anna", Role: schedule.RoleEmployee}
	apiJonas = schedule.Actor{ID: "u-jonas", Name: "Jonas", Role: schedule.RoleEmployee}
)

// seedShift creates one shift over HTTP and returns its id.
func seedShift(t *testing.T, srv *httptest.Server, date string, typ string, capacity int) string {
	t.Helper()
	resp := doAs(t, srv, apiAdmin, http.MethodPost, "/api/shifts", map[string]any{
		"date":      date,
		"startTime": "09:00",
		"endTime":   "15:00",
		"type":      typ,
		"capacity":  capacity,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[map[string]any](t, resp)["id"].(string)
}

// =============================================================================
// SHIFT ENDPOINT TESTS
// =============================================================================

func TestAPI_CreateShift_EmployeeForbidden(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doAs(t, srv, apiAnna, http.MethodPost, "/api/shifts", map[string]any{
		"date": "2025-03-10", "startTime": "09:00", "endTime": "15:00",
		"type": "early", "capacity": 2,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_ListShifts_IncludesHeldBookings(t *testing.T) {
	srv, _ := newTestServer(t)
	shiftID := seedShift(t, srv, "2025-03-10", "early", 2)

	resp := doAs(t, srv, apiAnna, http.MethodPost, "/api/bookings", map[string]any{"shiftId": shiftID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doAs(t, srv, apiAnna, http.MethodGet, "/api/shifts?from=2025-03-10&to=2025-03-14", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	shifts := decodeBody[[]map[string]any](t, resp)
	require.Len(t, shifts, 1)
	bookings := shifts[0]["bookings"].([]any)
	require.Len(t, bookings, 1)
	assert.Equal(t, apiAnna.ID, bookings[0].(map[string]any)["userId"])
}

func TestAPI_GenerateWeek(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doAs(t, srv, apiAdmin, http.MethodPost, "/api/shifts/generate", map[string]any{
		"weekStart": "2025-03-10",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[[]map[string]any](t, resp)
	assert.Len(t, created, 20)
}

// =============================================================================
// BOOKING ENDPOINT TESTS
// =============================================================================

func TestAPI_CreateBooking_DefaultsToCaller(t *testing.T) {
	srv, _ := newTestServer(t)
	shiftID := seedShift(t, srv, "2025-03-10", "early", 2)

	resp := doAs(t, srv, apiAnna, http.MethodPost, "/api/bookings", map[string]any{"shiftId": shiftID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	booking := decodeBody[map[string]any](t, resp)
	assert.Equal(t, apiAnna.ID, booking["userId"])
	assert.Equal(t, "active", booking["status"])
}

func TestAPI_CreateBooking_CapacityConflict409(t *testing.T) {
	srv, _ := newTestServer(t)
	shiftID := seedShift(t, srv, "2025-03-10", "early", 1)

	resp := doAs(t, srv, apiAnna, http.MethodPost, "/api/bookings", map[string]any{"shiftId": shiftID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doAs(t, srv, apiJonas, http.MethodPost, "/api/bookings", map[string]any{"shiftId": shiftID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "capacity_exceeded", body["kind"])
}

func TestAPI_CreateBooking_UnknownShift404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doAs(t, srv, apiAnna, http.MethodPost, "/api/bookings", map[string]any{"shiftId": "nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_CreateBooking_ForOther403(t *testing.T) {
	srv, _ := newTestServer(t)
	shiftID := seedShift(t, srv, "2025-03-10", "early", 2)

	resp := doAs(t, srv, apiAnna, http.MethodPost, "/api/bookings", map[string]any{
		"shiftId": shiftID, "userId": apiJonas.ID, "userName": apiJonas.Name,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// =============================================================================
// HOUR BUDGET ENDPOINT TESTS
// =============================================================================

func TestAPI_WeekBudget(t *testing.T) {
	srv, _ := newTestServer(t)
	shiftID := seedShift(t, srv, "2025-03-10", "early", 2)
	resp := doAs(t, srv, apiAnna, http.MethodPost, "/api/bookings", map[string]any{"shiftId": shiftID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doAs(t, srv, apiAnna, http.MethodGet,
		fmt.Sprintf("/api/users/%s/hours?week=2025-03-12", apiAnna.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	budget := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "2025-03-10", budget["weekStart"], "mid-week date normalizes to Monday")
	assert.Equal(t, "6", budget["worked"])
	assert.Equal(t, "20", budget["cap"])
	assert.Equal(t, "14", budget["remaining"])
}

func TestAPI_HourExceptions_AdminLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doAs(t, srv, apiAnna, http.MethodPut, "/api/hour-exceptions", map[string]any{
		"userId": apiAnna.ID, "userName": apiAnna.Name,
		"weekStart": "2025-03-10", "maxHours": "30",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doAs(t, srv, apiAdmin, http.MethodPut, "/api/hour-exceptions", map[string]any{
		"userId": apiAnna.ID, "userName": apiAnna.Name,
		"weekStart": "2025-03-10", "maxHours": "30",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doAs(t, srv, apiAdmin, http.MethodGet, "/api/hour-exceptions?week=2025-03-10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decodeBody[[]map[string]any](t, resp)
	require.Len(t, entries, 1)
	assert.Equal(t, "30", entries[0]["maxHours"])
}

// =============================================================================
// LEAVE ENDPOINT TESTS
// =============================================================================

func TestAPI_FileVacation_WeekendBoundary400(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doAs(t, srv, apiAnna, http.MethodPost, "/api/vacations", map[string]any{
		"startDate": "2025-03-15", "endDate": "2025-03-17", "type": "vacation",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "weekend_boundary", body["kind"])
}

func TestAPI_FileSick_ReturnsCancelledBookings(t *testing.T) {
	srv, _ := newTestServer(t)
	shiftID := seedShift(t, srv, "2025-03-10", "early", 2)
	resp := doAs(t, srv, apiAnna, http.MethodPost, "/api/bookings", map[string]any{"shiftId": shiftID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	bookingID := decodeBody[map[string]any](t, resp)["id"].(string)

	resp = doAs(t, srv, apiAnna, http.MethodPost, "/api/vacations", map[string]any{
		"startDate": "2025-03-10", "endDate": "2025-03-10", "type": "sick",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	cancelled := body["cancelledBookingIds"].([]any)
	require.Len(t, cancelled, 1)
	assert.Equal(t, bookingID, cancelled[0])
}

func TestAPI_VacationOverBooking409(t *testing.T) {
	srv, _ := newTestServer(t)
	shiftID := seedShift(t, srv, "2025-03-10", "early", 2)
	resp := doAs(t, srv, apiAnna, http.MethodPost, "/api/bookings", map[string]any{"shiftId": shiftID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doAs(t, srv, apiAnna, http.MethodPost, "/api/vacations", map[string]any{
		"startDate": "2025-03-10", "endDate": "2025-03-10", "type": "vacation",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "booked_date_conflict", body["kind"])
}

// =============================================================================
// REQUEST WORKFLOW ENDPOINT TESTS
// =============================================================================

func TestAPI_RequestLifecycle(t *testing.T) {
	// Open a cancel request as Anna, approve it as admin, booking gone.

	srv, _ := newTestServer(t)
	shiftID := seedShift(t, srv, "2025-03-10", "early", 2)
	resp := doAs(t, srv, apiAnna, http.MethodPost, "/api/bookings", map[string]any{"shiftId": shiftID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	bookingID := decodeBody[map[string]any](t, resp)["id"].(string)

	resp = doAs(t, srv, apiAnna, http.MethodPost, "/api/requests/cancel", map[string]any{"bookingId": bookingID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	requestID := decodeBody[map[string]any](t, resp)["id"].(string)

	// The pending queue is admin-only.
	resp = doAs(t, srv, apiAnna, http.MethodGet, "/api/requests/pending", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doAs(t, srv, apiAdmin, http.MethodGet, "/api/requests/pending", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pending := decodeBody[[]map[string]any](t, resp)
	require.Len(t, pending, 1)

	resp = doAs(t, srv, apiAdmin, http.MethodPost,
		"/api/requests/"+requestID+"/approve", map[string]any{"note": "ok"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Deciding again conflicts.
	resp = doAs(t, srv, apiAdmin, http.MethodPost,
		"/api/requests/"+requestID+"/reject", map[string]any{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "invalid_transition", body["kind"])
}

// =============================================================================
// AUDIT ENDPOINT TESTS
// =============================================================================

func TestAPI_Audit_AdminOnly_NewestFirst(t *testing.T) {
	srv, _ := newTestServer(t)
	seedShift(t, srv, "2025-03-10", "early", 2)
	time.Sleep(5 * time.Millisecond)
	seedShift(t, srv, "2025-03-11", "late", 2)

	resp := doAs(t, srv, apiAnna, http.MethodGet, "/api/audit", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doAs(t, srv, apiAdmin, http.MethodGet, "/api/audit?limit=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decodeBody[[]map[string]any](t, resp)
	require.Len(t, entries, 1)
	assert.Equal(t, "shift.created", entries[0]["action"])
}

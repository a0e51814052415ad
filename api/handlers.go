/*
handlers.go - HTTP API handlers for the shift scheduling engine

PURPOSE:
  Exposes the booking engine via REST API. Handles HTTP request and
  response, JSON serialization, and delegates every decision to the
  schedule package.

ENDPOINTS:
  Shifts:
    GET    /api/shifts?from=&to=       List shifts in a date range
    POST   /api/shifts                 Create shift (admin)
    PUT    /api/shifts/{id}            Update shift (admin)
    DELETE /api/shifts/{id}            Delete shift and its bookings (admin)
    POST   /api/shifts/generate        Generate a templated week (admin)

  Bookings:
    POST   /api/bookings               Create booking (the core transaction)
    POST   /api/bookings/{id}/cancel   Cancel with reason (admin)
    DELETE /api/bookings/{id}          Delete (admin)
    PUT    /api/bookings/{id}/time     Set custom times (admin)

  Hours:
    GET    /api/users/{id}/hours?week= Weekly budget summary
    GET    /api/hour-exceptions?week=  List cap overrides
    PUT    /api/hour-exceptions        Set override (admin)
    DELETE /api/hour-exceptions        Remove override (admin)

  Leave:
    GET    /api/vacations?userId=&from=&to=  List entries
    POST   /api/vacations                    File entry
    POST   /api/vacations/{id}/approve       Approve pending entry (admin)
    POST   /api/vacations/{id}/reject        Reject pending entry (admin)
    DELETE /api/vacations/{id}               Delete immediately (admin)
    POST   /api/vacations/{id}/request-deletion
    POST   /api/vacations/{id}/approve-deletion (admin)
    POST   /api/vacations/{id}/reject-deletion  (admin)

  Requests:
    POST   /api/requests/cancel        Open a cancel request
    POST   /api/requests/swap          Open a swap request
    GET    /api/requests/pending       Pending queue (admin)
    GET    /api/requests/mine          Caller's requests
    POST   /api/requests/{id}/approve  Decide (admin)
    POST   /api/requests/{id}/reject   Decide (admin)

  Audit:
    GET    /api/audit?limit=           Newest-first audit trail

IDENTITY:
  The identity provider in front of this service injects X-User-Id,
  X-User-Name, and X-User-Role headers; they are trusted as given.

ERROR HANDLING:
  Typed schedule errors map to HTTP statuses:
  - 404: NotFound
  - 403: Unauthorized
  - 409: Rule violations (capacity, duplicates, overlaps, budgets)
  - 400: Validation and weekend-boundary errors
  - 503: Transient conflict after exhausted retries
  - 500: Everything else

SEE ALSO:
  - dto.go:    Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/shift-engine/schedule"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Catalog   *schedule.Catalog
	Bookings  *schedule.BookingLedger
	Vacations *schedule.VacationLedger
	Workflow  *schedule.RequestWorkflow
	Budget    *schedule.HourBudget
	Audit     *schedule.AuditSink
	Store     schedule.Store

	log      *zap.Logger
	validate *validator.Validate
}

// NewHandler creates a handler wired to the engine components.
func NewHandler(store schedule.Store, catalog *schedule.Catalog, bookings *schedule.BookingLedger,
	vacations *schedule.VacationLedger, workflow *schedule.RequestWorkflow,
	budget *schedule.HourBudget, audit *schedule.AuditSink, log *zap.Logger) *Handler {
	return &Handler{
		Catalog:   catalog,
		Bookings:  bookings,
		Vacations: vacations,
		Workflow:  workflow,
		Budget:    budget,
		Audit:     audit,
		Store:     store,
		log:       log,
		validate:  validator.New(),
	}
}

// actorFromRequest reads the trusted identity headers.
func actorFromRequest(r *http.Request) schedule.Actor {
	role := schedule.RoleEmployee
	if r.Header.Get("X-User-Role") == string(schedule.RoleAdmin) {
		role = schedule.RoleAdmin
	}
	return schedule.Actor{
		ID:   r.Header.Get("X-User-Id"),
		Name: r.Header.Get("X-User-Name"),
		Role: role,
	}
}

// decode parses and structurally validates a JSON body.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

// ListShifts returns shifts in a date range, bookings included.
// GET /api/shifts?from=&to=
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	from, err := schedule.ParseDay(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := schedule.ParseDay(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}

	shifts, err := h.Catalog.ShiftsInRange(r.Context(), from, to)
	if err != nil {
		h.writeDomainError(w, "Failed to list shifts", err)
		return
	}

	dtos := make([]ShiftDTO, 0, len(shifts))
	for _, s := range shifts {
		dto := toShiftDTO(s)
		bookings, err := h.Bookings.BookingsForShift(r.Context(), s.ID)
		if err != nil {
			h.writeDomainError(w, "Failed to load bookings", err)
			return
		}
		for _, b := range bookings {
			if b.Status.HoldsSlot() {
				dto.Bookings = append(dto.Bookings, toBookingDTO(b))
			}
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateShift adds a shift to the catalog.
// POST /api/shifts
func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	var req ShiftRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	shift, err := shiftFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift fields", err)
		return
	}

	created, err := h.Catalog.CreateShift(r.Context(), actorFromRequest(r), shift)
	if err != nil {
		h.writeDomainError(w, "Failed to create shift", err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftDTO(*created))
}

// UpdateShift rewrites a shift.
// PUT /api/shifts/{id}
func (h *Handler) UpdateShift(w http.ResponseWriter, r *http.Request) {
	var req ShiftRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	shift, err := shiftFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift fields", err)
		return
	}
	shift.ID = chi.URLParam(r, "id")

	updated, err := h.Catalog.UpdateShift(r.Context(), actorFromRequest(r), shift)
	if err != nil {
		h.writeDomainError(w, "Failed to update shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(*updated))
}

// DeleteShift removes a shift and its bookings.
// DELETE /api/shifts/{id}
func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Catalog.DeleteShift(r.Context(), actorFromRequest(r), id); err != nil {
		h.writeDomainError(w, "Failed to delete shift", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateWeek bulk-creates the templated shifts of one week.
// POST /api/shifts/generate
func (h *Handler) GenerateWeek(w http.ResponseWriter, r *http.Request) {
	var req GenerateWeekRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	weekStart, err := schedule.ParseDay(req.WeekStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid weekStart date (use YYYY-MM-DD)", err)
		return
	}
	types := make([]schedule.ShiftType, 0, len(req.Types))
	for _, t := range req.Types {
		types = append(types, schedule.ShiftType(t))
	}

	created, err := h.Catalog.GenerateWeek(r.Context(), actorFromRequest(r), weekStart, types)
	if err != nil {
		h.writeDomainError(w, "Failed to generate week", err)
		return
	}
	dtos := make([]ShiftDTO, 0, len(created))
	for _, s := range created {
		dtos = append(dtos, toShiftDTO(s))
	}
	writeJSON(w, http.StatusCreated, dtos)
}

func shiftFromRequest(req ShiftRequest) (schedule.Shift, error) {
	var s schedule.Shift
	var err error
	if s.Date, err = schedule.ParseDay(req.Date); err != nil {
		return s, err
	}
	if s.StartTime, err = schedule.ParseClock(req.StartTime); err != nil {
		return s, err
	}
	if s.EndTime, err = schedule.ParseClock(req.EndTime); err != nil {
		return s, err
	}
	s.Type = schedule.ShiftType(req.Type)
	s.Capacity = req.Capacity
	return s, nil
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// CreateBooking runs the booking transaction.
// POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	actor := actorFromRequest(r)
	userID, userName := req.UserID, req.UserName
	if userID == "" {
		userID, userName = actor.ID, actor.Name
	}

	booking, err := h.Bookings.CreateBooking(r.Context(), actor, req.ShiftID, userID, userName)
	if err != nil {
		h.writeDomainError(w, "Failed to create booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingDTO(*booking))
}

// CancelBooking flips a booking to cancelled.
// POST /api/bookings/{id}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	var req CancelBookingRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.Bookings.CancelBooking(r.Context(), actorFromRequest(r), id, req.Reason); err != nil {
		h.writeDomainError(w, "Failed to cancel booking", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteBooking removes a booking record.
// DELETE /api/bookings/{id}
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Bookings.DeleteBooking(r.Context(), actorFromRequest(r), id); err != nil {
		h.writeDomainError(w, "Failed to delete booking", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetBookingTime sets or clears a booking's custom time window.
// PUT /api/bookings/{id}/time
func (h *Handler) SetBookingTime(w http.ResponseWriter, r *http.Request) {
	var req BookingTimeRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var start, end *schedule.ClockTime
	if req.StartTime != "" {
		c, err := schedule.ParseClock(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid startTime (use HH:MM)", err)
			return
		}
		start = &c
	}
	if req.EndTime != "" {
		c, err := schedule.ParseClock(req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid endTime (use HH:MM)", err)
			return
		}
		end = &c
	}

	id := chi.URLParam(r, "id")
	if err := h.Bookings.SetBookingTime(r.Context(), actorFromRequest(r), id, start, end); err != nil {
		h.writeDomainError(w, "Failed to set booking time", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HOUR HANDLERS
// =============================================================================

// GetWeekBudget returns the weekly budget summary for a user.
// GET /api/users/{id}/hours?week=
func (h *Handler) GetWeekBudget(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	week, err := schedule.ParseDay(r.URL.Query().Get("week"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid week date (use YYYY-MM-DD)", err)
		return
	}

	wb, err := h.Budget.Budget(r.Context(), userID, schedule.WeekStart(week))
	if err != nil {
		h.writeDomainError(w, "Failed to compute budget", err)
		return
	}
	writeJSON(w, http.StatusOK, toWeekBudgetDTO(wb))
}

// ListHourExceptions lists cap overrides for a week.
// GET /api/hour-exceptions?week=
func (h *Handler) ListHourExceptions(w http.ResponseWriter, r *http.Request) {
	week, err := schedule.ParseDay(r.URL.Query().Get("week"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid week date (use YYYY-MM-DD)", err)
		return
	}
	entries, err := h.Budget.ExceptionsForWeek(r.Context(), week)
	if err != nil {
		h.writeDomainError(w, "Failed to list hour exceptions", err)
		return
	}
	dtos := make([]HourExceptionDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toHourExceptionDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SetHourException installs a cap override.
// PUT /api/hour-exceptions
func (h *Handler) SetHourException(w http.ResponseWriter, r *http.Request) {
	var req SetHourExceptionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	week, err := schedule.ParseDay(req.WeekStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid weekStart date (use YYYY-MM-DD)", err)
		return
	}
	var maxHours *schedule.Hours
	if req.MaxHours != nil {
		d, err := decimal.NewFromString(*req.MaxHours)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid maxHours", err)
			return
		}
		maxHours = &d
	}

	err = h.Budget.SetException(r.Context(), actorFromRequest(r), req.UserID, req.UserName, week, maxHours)
	if err != nil {
		h.writeDomainError(w, "Failed to set hour exception", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveHourException restores the default cap.
// DELETE /api/hour-exceptions
func (h *Handler) RemoveHourException(w http.ResponseWriter, r *http.Request) {
	var req RemoveHourExceptionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	week, err := schedule.ParseDay(req.WeekStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid weekStart date (use YYYY-MM-DD)", err)
		return
	}
	if err := h.Budget.RemoveException(r.Context(), actorFromRequest(r), req.UserID, week); err != nil {
		h.writeDomainError(w, "Failed to remove hour exception", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// ListVacations returns leave entries, filtered by user and range.
// GET /api/vacations?userId=&from=&to=
func (h *Handler) ListVacations(w http.ResponseWriter, r *http.Request) {
	from, to, err := rangeFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range (use YYYY-MM-DD)", err)
		return
	}

	var entries []schedule.VacationEntry
	if userID := r.URL.Query().Get("userId"); userID != "" {
		entries, err = h.Store.VacationsForUser(r.Context(), userID, from, to)
	} else {
		entries, err = h.Vacations.EntriesInRange(r.Context(), from, to)
	}
	if err != nil {
		h.writeDomainError(w, "Failed to list vacations", err)
		return
	}
	dtos := make([]VacationDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toVacationDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// FileVacation files a leave entry.
// POST /api/vacations
func (h *Handler) FileVacation(w http.ResponseWriter, r *http.Request) {
	var req FileVacationRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	actor := actorFromRequest(r)
	userID, userName := req.UserID, req.UserName
	if userID == "" {
		userID, userName = actor.ID, actor.Name
	}
	start, err := schedule.ParseDay(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid startDate (use YYYY-MM-DD)", err)
		return
	}
	end, err := schedule.ParseDay(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid endDate (use YYYY-MM-DD)", err)
		return
	}

	result, err := h.Vacations.File(r.Context(), actor, schedule.Filing{
		UserID:    userID,
		UserName:  userName,
		StartDate: start,
		EndDate:   end,
		Type:      schedule.LeaveType(req.Type),
		Note:      req.Note,
		Pending:   req.Pending,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to file leave", err)
		return
	}
	writeJSON(w, http.StatusCreated, FileVacationResponse{
		Entry:               toVacationDTO(result.Entry),
		CancelledBookingIDs: result.CancelledBookingIDs,
	})
}

// ApproveVacation approves a pending entry.
// POST /api/vacations/{id}/approve
func (h *Handler) ApproveVacation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Vacations.ApproveEntry(r.Context(), actorFromRequest(r), id); err != nil {
		h.writeDomainError(w, "Failed to approve leave", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RejectVacation rejects a pending entry.
// POST /api/vacations/{id}/reject
func (h *Handler) RejectVacation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Vacations.RejectEntry(r.Context(), actorFromRequest(r), id); err != nil {
		h.writeDomainError(w, "Failed to reject leave", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteVacation removes an entry immediately.
// DELETE /api/vacations/{id}
func (h *Handler) DeleteVacation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Vacations.Delete(r.Context(), actorFromRequest(r), id); err != nil {
		h.writeDomainError(w, "Failed to delete leave", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestVacationDeletion opens the two-step deletion.
// POST /api/vacations/{id}/request-deletion
func (h *Handler) RequestVacationDeletion(w http.ResponseWriter, r *http.Request) {
	var req DeletionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.Vacations.RequestDeletion(r.Context(), actorFromRequest(r), id, req.Reason); err != nil {
		h.writeDomainError(w, "Failed to request deletion", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApproveVacationDeletion completes the two-step deletion.
// POST /api/vacations/{id}/approve-deletion
func (h *Handler) ApproveVacationDeletion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Vacations.ApproveDeletion(r.Context(), actorFromRequest(r), id); err != nil {
		h.writeDomainError(w, "Failed to approve deletion", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RejectVacationDeletion keeps the entry.
// POST /api/vacations/{id}/reject-deletion
func (h *Handler) RejectVacationDeletion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Vacations.RejectDeletion(r.Context(), actorFromRequest(r), id); err != nil {
		h.writeDomainError(w, "Failed to reject deletion", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// OpenCancelRequest opens a cancel request for a booking.
// POST /api/requests/cancel
func (h *Handler) OpenCancelRequest(w http.ResponseWriter, r *http.Request) {
	var req OpenCancelRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	created, err := h.Workflow.RequestCancel(r.Context(), actorFromRequest(r), req.BookingID)
	if err != nil {
		h.writeDomainError(w, "Failed to open cancel request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(*created))
}

// OpenSwapRequest opens a swap request for a booking.
// POST /api/requests/swap
func (h *Handler) OpenSwapRequest(w http.ResponseWriter, r *http.Request) {
	var req OpenSwapRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	created, err := h.Workflow.RequestSwap(r.Context(), actorFromRequest(r), req.BookingID, req.ToShiftID, req.TargetUserID)
	if err != nil {
		h.writeDomainError(w, "Failed to open swap request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(*created))
}

// ListPendingRequests returns the admin decision queue.
// GET /api/requests/pending
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	if !actorFromRequest(r).IsAdmin() {
		writeError(w, http.StatusForbidden, "Administrator role required", nil)
		return
	}
	requests, err := h.Workflow.Pending(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list requests", err)
		return
	}
	dtos := make([]RequestDTO, 0, len(requests))
	for _, req := range requests {
		dtos = append(dtos, toRequestDTO(req))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListMyRequests returns the caller's requests.
// GET /api/requests/mine
func (h *Handler) ListMyRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Workflow.ForUser(r.Context(), actorFromRequest(r).ID)
	if err != nil {
		h.writeDomainError(w, "Failed to list requests", err)
		return
	}
	dtos := make([]RequestDTO, 0, len(requests))
	for _, req := range requests {
		dtos = append(dtos, toRequestDTO(req))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveRequest applies a pending request.
// POST /api/requests/{id}/approve
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	var req DecideRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.Workflow.Approve(r.Context(), actorFromRequest(r), id, req.Note); err != nil {
		h.writeDomainError(w, "Failed to approve request", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RejectRequest declines a pending request.
// POST /api/requests/{id}/reject
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	var req DecideRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.Workflow.Reject(r.Context(), actorFromRequest(r), id, req.Note); err != nil {
		h.writeDomainError(w, "Failed to reject request", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// ListAudit returns the audit trail, newest first.
// GET /api/audit?limit=
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if !actorFromRequest(r).IsAdmin() {
		writeError(w, http.StatusForbidden, "Administrator role required", nil)
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	entries, err := h.Audit.Entries(r.Context(), limit)
	if err != nil {
		h.writeDomainError(w, "Failed to list audit entries", err)
		return
	}
	dtos := make([]AuditEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, AuditEntryDTO{
			ID:        e.ID,
			Action:    e.Action,
			ActorID:   e.ActorID,
			ActorName: e.ActorName,
			TargetID:  e.TargetID,
			Detail:    e.Detail,
			At:        e.At.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func rangeFromQuery(r *http.Request) (schedule.Day, schedule.Day, error) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" && toStr == "" {
		// Whole-year default keeps list endpoints usable without params.
		year := schedule.Today().Year()
		return schedule.NewDay(year, 1, 1), schedule.NewDay(year, 12, 31), nil
	}
	from, err := schedule.ParseDay(fromStr)
	if err != nil {
		return schedule.Day{}, schedule.Day{}, err
	}
	to, err := schedule.ParseDay(toStr)
	if err != nil {
		return schedule.Day{}, schedule.Day{}, err
	}
	return from, to, nil
}

// writeDomainError maps typed schedule errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	kind := ""

	switch {
	case schedule.IsNotFound(err):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, schedule.ErrUnauthorized):
		status, kind = http.StatusForbidden, "unauthorized"
	case errors.Is(err, schedule.ErrTransientConflict):
		status, kind = http.StatusServiceUnavailable, "transient_conflict"
	case errors.Is(err, schedule.ErrCapacityExceeded):
		status, kind = http.StatusConflict, "capacity_exceeded"
	case errors.Is(err, schedule.ErrDuplicateBooking):
		status, kind = http.StatusConflict, "duplicate_booking"
	case errors.Is(err, schedule.ErrSameDayConflict):
		status, kind = http.StatusConflict, "same_day_conflict"
	case errors.Is(err, schedule.ErrLeaveOverlap):
		status, kind = http.StatusConflict, "leave_overlap"
	case errors.Is(err, schedule.ErrLongShiftConflict):
		status, kind = http.StatusConflict, "long_shift_conflict"
	case errors.Is(err, schedule.ErrHourBudgetExceeded):
		status, kind = http.StatusConflict, "hour_budget_exceeded"
	case errors.Is(err, schedule.ErrInsufficientLeaveBalance):
		status, kind = http.StatusConflict, "insufficient_leave_balance"
	case errors.Is(err, schedule.ErrBookedDateConflict):
		status, kind = http.StatusConflict, "booked_date_conflict"
	case errors.Is(err, schedule.ErrInvalidTransition):
		status, kind = http.StatusConflict, "invalid_transition"
	case errors.Is(err, schedule.ErrWeekendBoundary):
		status, kind = http.StatusBadRequest, "weekend_boundary"
	case errors.Is(err, schedule.ErrValidation):
		status, kind = http.StatusBadRequest, "validation"
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("message", message), zap.Error(err))
	}
	writeJSON(w, status, ErrorResponse{Error: message, Kind: kind, Details: err.Error()})
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

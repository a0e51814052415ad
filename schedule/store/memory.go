// Package store provides the in-memory Store implementation used in
// tests and development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/shift-engine/schedule"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Memory implements schedule.Store with maps guarded by a single lock.
// WithTx is simulated with a snapshot plus rollback on error; the lock
// is held for the whole transaction, so transactions serialize.
type Memory struct {
	mu         sync.RWMutex
	shifts     map[string]schedule.Shift
	bookings   map[string]schedule.Booking
	vacations  map[string]schedule.VacationEntry
	exceptions map[excKey]schedule.HourException
	requests   map[string]schedule.Request
	audit      []schedule.AuditEntry
}

type excKey struct {
	UserID    string
	WeekStart string
}

func NewMemory() *Memory {
	return &Memory{
		shifts:     make(map[string]schedule.Shift),
		bookings:   make(map[string]schedule.Booking),
		vacations:  make(map[string]schedule.VacationEntry),
		exceptions: make(map[excKey]schedule.HourException),
		requests:   make(map[string]schedule.Request),
	}
}

// =============================================================================
// SHIFTS
// =============================================================================

func (m *Memory) SaveShift(_ context.Context, s schedule.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveShiftLocked(s)
	return nil
}

func (m *Memory) saveShiftLocked(s schedule.Shift) { m.shifts[s.ID] = s }

func (m *Memory) GetShift(_ context.Context, id string) (*schedule.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getShiftLocked(id), nil
}

func (m *Memory) getShiftLocked(id string) *schedule.Shift {
	if s, ok := m.shifts[id]; ok {
		return &s
	}
	return nil
}

func (m *Memory) ShiftsInRange(_ context.Context, from, to schedule.Day) ([]schedule.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shiftsInRangeLocked(from, to), nil
}

func (m *Memory) shiftsInRangeLocked(from, to schedule.Day) []schedule.Shift {
	var out []schedule.Shift
	for _, s := range m.shifts {
		if !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].StartTime.Minutes() != out[j].StartTime.Minutes() {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Memory) DeleteShift(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteShiftLocked(id)
	return nil
}

func (m *Memory) deleteShiftLocked(id string) { delete(m.shifts, id) }

// =============================================================================
// BOOKINGS
// =============================================================================

func (m *Memory) SaveBooking(_ context.Context, b schedule.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveBookingLocked(b)
	return nil
}

func (m *Memory) saveBookingLocked(b schedule.Booking) { m.bookings[b.ID] = b }

func (m *Memory) GetBooking(_ context.Context, id string) (*schedule.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getBookingLocked(id), nil
}

func (m *Memory) getBookingLocked(id string) *schedule.Booking {
	if b, ok := m.bookings[id]; ok {
		return &b
	}
	return nil
}

func (m *Memory) DeleteBooking(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteBookingLocked(id)
	return nil
}

func (m *Memory) deleteBookingLocked(id string) { delete(m.bookings, id) }

func (m *Memory) BookingsForShift(_ context.Context, shiftID string) ([]schedule.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bookingsForShiftLocked(shiftID), nil
}

func (m *Memory) bookingsForShiftLocked(shiftID string) []schedule.Booking {
	var out []schedule.Booking
	for _, b := range m.bookings {
		if b.ShiftID == shiftID {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out
}

func (m *Memory) BookingsForUser(_ context.Context, userID string, from, to schedule.Day) ([]schedule.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bookingsForUserLocked(userID, from, to), nil
}

func (m *Memory) bookingsForUserLocked(userID string, from, to schedule.Day) []schedule.Booking {
	var out []schedule.Booking
	for _, b := range m.bookings {
		if b.UserID != userID {
			continue
		}
		s, ok := m.shifts[b.ShiftID]
		if !ok {
			continue
		}
		if !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out
}

func sortBookings(bs []schedule.Booking) {
	sort.Slice(bs, func(i, j int) bool {
		if !bs[i].CreatedAt.Equal(bs[j].CreatedAt) {
			return bs[i].CreatedAt.Before(bs[j].CreatedAt)
		}
		return bs[i].ID < bs[j].ID
	})
}

// =============================================================================
// VACATIONS
// =============================================================================

func (m *Memory) SaveVacation(_ context.Context, v schedule.VacationEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveVacationLocked(v)
	return nil
}

func (m *Memory) saveVacationLocked(v schedule.VacationEntry) { m.vacations[v.ID] = v }

func (m *Memory) GetVacation(_ context.Context, id string) (*schedule.VacationEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getVacationLocked(id), nil
}

func (m *Memory) getVacationLocked(id string) *schedule.VacationEntry {
	if v, ok := m.vacations[id]; ok {
		return &v
	}
	return nil
}

func (m *Memory) DeleteVacation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteVacationLocked(id)
	return nil
}

func (m *Memory) deleteVacationLocked(id string) { delete(m.vacations, id) }

func (m *Memory) VacationsForUser(_ context.Context, userID string, from, to schedule.Day) ([]schedule.VacationEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vacationsForUserLocked(userID, from, to), nil
}

func (m *Memory) vacationsForUserLocked(userID string, from, to schedule.Day) []schedule.VacationEntry {
	var out []schedule.VacationEntry
	for _, v := range m.vacations {
		if v.UserID == userID && overlaps(v, from, to) {
			out = append(out, v)
		}
	}
	sortVacations(out)
	return out
}

func (m *Memory) VacationsInRange(_ context.Context, from, to schedule.Day) ([]schedule.VacationEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vacationsInRangeLocked(from, to), nil
}

func (m *Memory) vacationsInRangeLocked(from, to schedule.Day) []schedule.VacationEntry {
	var out []schedule.VacationEntry
	for _, v := range m.vacations {
		if overlaps(v, from, to) {
			out = append(out, v)
		}
	}
	sortVacations(out)
	return out
}

func overlaps(v schedule.VacationEntry, from, to schedule.Day) bool {
	return !v.StartDate.After(to) && !v.EndDate.Before(from)
}

func sortVacations(vs []schedule.VacationEntry) {
	sort.Slice(vs, func(i, j int) bool {
		if !vs[i].StartDate.Equal(vs[j].StartDate) {
			return vs[i].StartDate.Before(vs[j].StartDate)
		}
		return vs[i].ID < vs[j].ID
	})
}

// =============================================================================
// HOUR EXCEPTIONS
// =============================================================================

func (m *Memory) SaveHourException(_ context.Context, e schedule.HourException) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveHourExceptionLocked(e)
	return nil
}

func (m *Memory) saveHourExceptionLocked(e schedule.HourException) {
	m.exceptions[excKey{UserID: e.UserID, WeekStart: e.WeekStart.String()}] = e
}

func (m *Memory) GetHourException(_ context.Context, userID string, weekStart schedule.Day) (*schedule.HourException, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getHourExceptionLocked(userID, weekStart), nil
}

func (m *Memory) getHourExceptionLocked(userID string, weekStart schedule.Day) *schedule.HourException {
	if e, ok := m.exceptions[excKey{UserID: userID, WeekStart: weekStart.String()}]; ok {
		return &e
	}
	return nil
}

func (m *Memory) DeleteHourException(_ context.Context, userID string, weekStart schedule.Day) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteHourExceptionLocked(userID, weekStart)
	return nil
}

func (m *Memory) deleteHourExceptionLocked(userID string, weekStart schedule.Day) {
	delete(m.exceptions, excKey{UserID: userID, WeekStart: weekStart.String()})
}

func (m *Memory) HourExceptionsForWeek(_ context.Context, weekStart schedule.Day) ([]schedule.HourException, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hourExceptionsForWeekLocked(weekStart), nil
}

func (m *Memory) hourExceptionsForWeekLocked(weekStart schedule.Day) []schedule.HourException {
	var out []schedule.HourException
	for _, e := range m.exceptions {
		if e.WeekStart.Equal(weekStart) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// =============================================================================
// REQUESTS
// =============================================================================

func (m *Memory) SaveRequest(_ context.Context, r schedule.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveRequestLocked(r)
	return nil
}

func (m *Memory) saveRequestLocked(r schedule.Request) { m.requests[r.ID] = r }

func (m *Memory) GetRequest(_ context.Context, id string) (*schedule.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getRequestLocked(id), nil
}

func (m *Memory) getRequestLocked(id string) *schedule.Request {
	if r, ok := m.requests[id]; ok {
		return &r
	}
	return nil
}

func (m *Memory) PendingRequests(_ context.Context) ([]schedule.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pendingRequestsLocked(), nil
}

func (m *Memory) pendingRequestsLocked() []schedule.Request {
	var out []schedule.Request
	for _, r := range m.requests {
		if r.Status == schedule.RequestPending {
			out = append(out, r)
		}
	}
	sortRequests(out)
	return out
}

func (m *Memory) RequestsForUser(_ context.Context, userID string) ([]schedule.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestsForUserLocked(userID), nil
}

func (m *Memory) requestsForUserLocked(userID string) []schedule.Request {
	var out []schedule.Request
	for _, r := range m.requests {
		if r.RequesterID == userID {
			out = append(out, r)
		}
	}
	sortRequests(out)
	return out
}

func sortRequests(rs []schedule.Request) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].ID < rs[j].ID
	})
}

// =============================================================================
// AUDIT
// =============================================================================

func (m *Memory) AppendAudit(_ context.Context, e schedule.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, e)
	return nil
}

func (m *Memory) AuditEntries(_ context.Context, limit int) ([]schedule.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]schedule.AuditEntry, 0, len(m.audit))
	for i := len(m.audit) - 1; i >= 0; i-- {
		out = append(out, m.audit[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn against a transactional view while holding the
// write lock, then rolls back to a snapshot if fn fails.
func (m *Memory) WithTx(ctx context.Context, fn func(schedule.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	shifts     map[string]schedule.Shift
	bookings   map[string]schedule.Booking
	vacations  map[string]schedule.VacationEntry
	exceptions map[excKey]schedule.HourException
	requests   map[string]schedule.Request
	auditLen   int
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		shifts:     make(map[string]schedule.Shift, len(m.shifts)),
		bookings:   make(map[string]schedule.Booking, len(m.bookings)),
		vacations:  make(map[string]schedule.VacationEntry, len(m.vacations)),
		exceptions: make(map[excKey]schedule.HourException, len(m.exceptions)),
		requests:   make(map[string]schedule.Request, len(m.requests)),
		auditLen:   len(m.audit),
	}
	for k, v := range m.shifts {
		s.shifts[k] = v
	}
	for k, v := range m.bookings {
		s.bookings[k] = v
	}
	for k, v := range m.vacations {
		s.vacations[k] = v
	}
	for k, v := range m.exceptions {
		s.exceptions[k] = v
	}
	for k, v := range m.requests {
		s.requests[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.shifts = s.shifts
	m.bookings = s.bookings
	m.vacations = s.vacations
	m.exceptions = s.exceptions
	m.requests = s.requests
	m.audit = m.audit[:s.auditLen]
}

// txView runs against the parent while the parent's lock is already
// held, so it calls the unlocked helpers directly.
type txView struct {
	parent *Memory
}

func (t *txView) SaveShift(_ context.Context, s schedule.Shift) error {
	t.parent.saveShiftLocked(s)
	return nil
}

func (t *txView) GetShift(_ context.Context, id string) (*schedule.Shift, error) {
	return t.parent.getShiftLocked(id), nil
}

func (t *txView) ShiftsInRange(_ context.Context, from, to schedule.Day) ([]schedule.Shift, error) {
	return t.parent.shiftsInRangeLocked(from, to), nil
}

func (t *txView) DeleteShift(_ context.Context, id string) error {
	t.parent.deleteShiftLocked(id)
	return nil
}

func (t *txView) SaveBooking(_ context.Context, b schedule.Booking) error {
	t.parent.saveBookingLocked(b)
	return nil
}

func (t *txView) GetBooking(_ context.Context, id string) (*schedule.Booking, error) {
	return t.parent.getBookingLocked(id), nil
}

func (t *txView) DeleteBooking(_ context.Context, id string) error {
	t.parent.deleteBookingLocked(id)
	return nil
}

func (t *txView) BookingsForShift(_ context.Context, shiftID string) ([]schedule.Booking, error) {
	return t.parent.bookingsForShiftLocked(shiftID), nil
}

func (t *txView) BookingsForUser(_ context.Context, userID string, from, to schedule.Day) ([]schedule.Booking, error) {
	return t.parent.bookingsForUserLocked(userID, from, to), nil
}

func (t *txView) SaveVacation(_ context.Context, v schedule.VacationEntry) error {
	t.parent.saveVacationLocked(v)
	return nil
}

func (t *txView) GetVacation(_ context.Context, id string) (*schedule.VacationEntry, error) {
	return t.parent.getVacationLocked(id), nil
}

func (t *txView) DeleteVacation(_ context.Context, id string) error {
	t.parent.deleteVacationLocked(id)
	return nil
}

func (t *txView) VacationsForUser(_ context.Context, userID string, from, to schedule.Day) ([]schedule.VacationEntry, error) {
	return t.parent.vacationsForUserLocked(userID, from, to), nil
}

func (t *txView) VacationsInRange(_ context.Context, from, to schedule.Day) ([]schedule.VacationEntry, error) {
	return t.parent.vacationsInRangeLocked(from, to), nil
}

func (t *txView) SaveHourException(_ context.Context, e schedule.HourException) error {
	t.parent.saveHourExceptionLocked(e)
	return nil
}

func (t *txView) GetHourException(_ context.Context, userID string, weekStart schedule.Day) (*schedule.HourException, error) {
	return t.parent.getHourExceptionLocked(userID, weekStart), nil
}

func (t *txView) DeleteHourException(_ context.Context, userID string, weekStart schedule.Day) error {
	t.parent.deleteHourExceptionLocked(userID, weekStart)
	return nil
}

func (t *txView) HourExceptionsForWeek(_ context.Context, weekStart schedule.Day) ([]schedule.HourException, error) {
	return t.parent.hourExceptionsForWeekLocked(weekStart), nil
}

func (t *txView) SaveRequest(_ context.Context, r schedule.Request) error {
	t.parent.saveRequestLocked(r)
	return nil
}

func (t *txView) GetRequest(_ context.Context, id string) (*schedule.Request, error) {
	return t.parent.getRequestLocked(id), nil
}

func (t *txView) PendingRequests(_ context.Context) ([]schedule.Request, error) {
	return t.parent.pendingRequestsLocked(), nil
}

func (t *txView) RequestsForUser(_ context.Context, userID string) ([]schedule.Request, error) {
	return t.parent.requestsForUserLocked(userID), nil
}

func (t *txView) AppendAudit(_ context.Context, e schedule.AuditEntry) error {
	t.parent.audit = append(t.parent.audit, e)
	return nil
}

func (t *txView) AuditEntries(_ context.Context, limit int) ([]schedule.AuditEntry, error) {
	out := make([]schedule.AuditEntry, 0, len(t.parent.audit))
	for i := len(t.parent.audit) - 1; i >= 0; i-- {
		out = append(out, t.parent.audit[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// WithTx on a transactional view runs fn directly; writes already
// belong to the enclosing transaction.
func (t *txView) WithTx(_ context.Context, fn func(schedule.Store) error) error {
	return fn(t)
}

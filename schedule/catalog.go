/*
catalog.go - Shift catalog management

PURPOSE:
  CRUD over the shift catalog plus template-driven week generation.
  Structural validation only; the booking rules live in booking.go.

SEE ALSO:
  - config.go:  shift templates consumed by GenerateWeek
  - holiday.go: holiday calendar consulted during generation
*/
package schedule

import (
	"context"
	"fmt"
	"time"
)

const (
	minShiftCapacity = 1
	maxShiftCapacity = 10
)

// Catalog manages the shift catalog.
type Catalog struct {
	store     Store
	templates Templates
	holidays  HolidayOracle
	audit     *AuditSink
}

func NewCatalog(store Store, templates Templates, holidays HolidayOracle, audit *AuditSink) *Catalog {
	return &Catalog{store: store, templates: templates, holidays: holidays, audit: audit}
}

// =============================================================================
// LOOKUPS
// =============================================================================

// ShiftByID returns the shift or a NotFoundError.
func (c *Catalog) ShiftByID(ctx context.Context, id string) (*Shift, error) {
	s, err := c.store.GetShift(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load shift: %w", err)
	}
	if s == nil {
		return nil, &NotFoundError{Kind: "shift", ID: id}
	}
	return s, nil
}

// ShiftsInRange returns all shifts with dates in [from, to].
func (c *Catalog) ShiftsInRange(ctx context.Context, from, to Day) ([]Shift, error) {
	return c.store.ShiftsInRange(ctx, from, to)
}

// =============================================================================
// MUTATIONS (administrators only)
// =============================================================================

// CreateShift adds a shift to the catalog.
func (c *Catalog) CreateShift(ctx context.Context, actor Actor, s Shift) (*Shift, error) {
	if !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	if err := validateShift(s); err != nil {
		return nil, err
	}
	s.ID = newID()
	s.CreatedBy = actor.ID
	s.UpdatedAt = time.Now().UTC()
	if err := c.store.SaveShift(ctx, s); err != nil {
		return nil, fmt.Errorf("save shift: %w", err)
	}
	c.audit.Record(ctx, AuditShiftCreated, actor, s.ID, fmt.Sprintf("%s %s", s.Date, s.Type))
	return &s, nil
}

// UpdateShift rewrites an existing shift's fields.
func (c *Catalog) UpdateShift(ctx context.Context, actor Actor, s Shift) (*Shift, error) {
	if !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	existing, err := c.ShiftByID(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	if err := validateShift(s); err != nil {
		return nil, err
	}
	s.CreatedBy = existing.CreatedBy
	s.UpdatedAt = time.Now().UTC()
	if err := c.store.SaveShift(ctx, s); err != nil {
		return nil, fmt.Errorf("save shift: %w", err)
	}
	c.audit.Record(ctx, AuditShiftUpdated, actor, s.ID, fmt.Sprintf("%s %s", s.Date, s.Type))
	return &s, nil
}

// DeleteShift removes a shift and its bookings.
func (c *Catalog) DeleteShift(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	err := runTx(ctx, c.store, func(tx Store) error {
		s, err := tx.GetShift(ctx, id)
		if err != nil {
			return err
		}
		if s == nil {
			return &NotFoundError{Kind: "shift", ID: id}
		}
		bookings, err := tx.BookingsForShift(ctx, id)
		if err != nil {
			return err
		}
		for _, b := range bookings {
			if err := tx.DeleteBooking(ctx, b.ID); err != nil {
				return err
			}
		}
		return tx.DeleteShift(ctx, id)
	})
	if err != nil {
		return err
	}
	c.audit.Record(ctx, AuditShiftDeleted, actor, id, "")
	return nil
}

// GenerateWeek creates the templated shifts for the five business days
// starting at weekStart, skipping holidays and days that already carry
// a shift of that type. Returns the shifts created.
func (c *Catalog) GenerateWeek(ctx context.Context, actor Actor, weekStart Day, types []ShiftType) ([]Shift, error) {
	if !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	weekStart = WeekStart(weekStart)
	if len(types) == 0 {
		types = []ShiftType{ShiftEarly, ShiftLate, ShiftLongEarly, ShiftLongLate}
	}

	var created []Shift
	err := runTx(ctx, c.store, func(tx Store) error {
		created = created[:0]
		existing, err := tx.ShiftsInRange(ctx, weekStart, weekStart.AddDays(4))
		if err != nil {
			return err
		}
		have := make(map[string]bool, len(existing))
		for _, s := range existing {
			have[s.Date.String()+"/"+string(s.Type)] = true
		}

		for _, day := range WeekDays(weekStart) {
			if c.holidays.IsHoliday(day) {
				continue
			}
			for _, typ := range types {
				tpl, ok := c.templates[typ]
				if !ok {
					return &ValidationError{Fields: map[string]string{"type": fmt.Sprintf("no template for %q", typ)}}
				}
				if have[day.String()+"/"+string(typ)] {
					continue
				}
				start, end := tpl.Window()
				s := Shift{
					ID:        newID(),
					Date:      day,
					StartTime: start,
					EndTime:   end,
					Type:      typ,
					Capacity:  tpl.Capacity,
					CreatedBy: actor.ID,
					UpdatedAt: time.Now().UTC(),
				}
				if err := tx.SaveShift(ctx, s); err != nil {
					return err
				}
				created = append(created, s)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.audit.Record(ctx, AuditShiftCreated, actor, "",
		fmt.Sprintf("generated %d shifts for week %s", len(created), weekStart))
	return created, nil
}

// validateShift enforces the structural invariants.
func validateShift(s Shift) error {
	fields := map[string]string{}
	if s.Date.IsZero() {
		fields["date"] = "required"
	}
	if !s.StartTime.Before(s.EndTime) {
		fields["startTime"] = "must precede end time"
	}
	if s.Capacity < minShiftCapacity || s.Capacity > maxShiftCapacity {
		fields["capacity"] = fmt.Sprintf("must be between %d and %d", minShiftCapacity, maxShiftCapacity)
	}
	if !s.Type.Known() {
		fields["type"] = fmt.Sprintf("unknown shift type %q", s.Type)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

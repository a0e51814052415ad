/*
seed.go - Demo data seeding for testing and demonstrations

PURPOSE:

	Populates the store with a realistic demo week: templated shifts,
	a handful of staff bookings, an approved vacation, and a cap
	override. Gives a fresh install something to click around in.

WHAT GETS SEEDED:
 1. One templated week of shifts starting next Monday
 2. Bookings for two demo employees on the early shifts
 3. An approved vacation for one employee later that week
 4. A weekly hour cap override for the part-time employee

USAGE VIA API:

	POST /api/seed    (admin role required)

NOTE:

	Seeding does not reset existing data. Run it against an empty
	database in development/demo environments only.

SEE ALSO:
  - server.go: Route registration
  - handlers.go: Handler context
*/
package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/shift-engine/schedule"
)

type seedUser struct {
	id   string
	name string
}

var demoStaff = []seedUser{
	{id: "u-anna", name: "Anna Fischer"},
	{id: "u-jonas", name: "Jonas Weber"},
	{id: "u-mira", name: "Mira Schulz"},
}

// SeedDemo loads the demo week.
// POST /api/seed
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	if !actor.IsAdmin() {
		writeError(w, http.StatusForbidden, "Administrator role required", nil)
		return
	}

	created, err := h.seedWeek(r.Context(), actor)
	if err != nil {
		h.writeDomainError(w, "Failed to seed demo data", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"shifts": len(created),
		"staff":  len(demoStaff),
	})
}

func (h *Handler) seedWeek(ctx context.Context, actor schedule.Actor) ([]schedule.Shift, error) {
	// Next Monday keeps the seeded week ahead of today regardless of
	// when the seed runs.
	weekStart := schedule.WeekStart(schedule.Today().AddDays(7))

	created, err := h.Catalog.GenerateWeek(ctx, actor, weekStart, nil)
	if err != nil {
		return nil, err
	}

	// Book the two full-time employees onto the early shifts.
	for _, s := range created {
		if s.Type != schedule.ShiftEarly {
			continue
		}
		for _, u := range demoStaff[:2] {
			if _, err := h.Bookings.CreateBooking(ctx, actor, s.ID, u.id, u.name); err != nil {
				// Hour budgets legitimately stop some of these.
				if !schedule.IsRuleViolation(err) {
					return nil, err
				}
			}
		}
	}

	// One approved vacation day for Jonas at the end of the week.
	_, err = h.Vacations.File(ctx, actor, schedule.Filing{
		UserID:    demoStaff[1].id,
		UserName:  demoStaff[1].name,
		StartDate: weekStart.AddDays(4),
		EndDate:   weekStart.AddDays(4),
		Type:      schedule.LeaveVacation,
		Note:      "long weekend",
	})
	if err != nil && !schedule.IsRuleViolation(err) {
		return nil, err
	}

	// Mira works reduced hours.
	twelve := decimal.NewFromInt(12)
	err = h.Budget.SetException(ctx, actor, demoStaff[2].id, demoStaff[2].name, weekStart, &twelve)
	if err != nil {
		return nil, err
	}

	return created, nil
}

// audit.go - Append-only audit trail for administrative review.
//
// Every state mutation records who did what to which record. Audit
// writes are best effort: a failed append is logged and never fails
// the operation that triggered it.
package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Audit actions.
const (
	AuditShiftCreated      = "shift.created"
	AuditShiftUpdated      = "shift.updated"
	AuditShiftDeleted      = "shift.deleted"
	AuditBookingCreated    = "booking.created"
	AuditBookingCancelled  = "booking.cancelled"
	AuditBookingDeleted    = "booking.deleted"
	AuditBookingTimeSet    = "booking.time_set"
	AuditLeaveFiled        = "leave.filed"
	AuditLeaveApproved     = "leave.approved"
	AuditLeaveRejected     = "leave.rejected"
	AuditLeaveDeleted      = "leave.deleted"
	AuditRequestOpened     = "request.opened"
	AuditRequestApproved   = "request.approved"
	AuditRequestRejected   = "request.rejected"
	AuditExceptionSet      = "hour_exception.set"
	AuditExceptionRemoved  = "hour_exception.removed"
)

// AuditEntry is one line of the audit trail.
type AuditEntry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	ActorID   string    `json:"actorId"`
	ActorName string    `json:"actorName"`
	TargetID  string    `json:"targetId"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// AuditSink records audit entries after their transaction commits.
type AuditSink struct {
	store AuditStore
	log   *zap.Logger
}

func NewAuditSink(store AuditStore, log *zap.Logger) *AuditSink {
	return &AuditSink{store: store, log: log}
}

// Record appends an entry. Failures are logged and swallowed.
func (a *AuditSink) Record(ctx context.Context, action string, actor Actor, targetID, detail string) {
	e := AuditEntry{
		ID:        newID(),
		Action:    action,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		TargetID:  targetID,
		Detail:    detail,
		At:        time.Now().UTC(),
	}
	if err := a.store.AppendAudit(ctx, e); err != nil {
		a.log.Warn("audit append failed",
			zap.String("action", action),
			zap.String("target", targetID),
			zap.Error(err))
	}
}

// Entries returns the trail newest first, at most limit (0 = all).
func (a *AuditSink) Entries(ctx context.Context, limit int) ([]AuditEntry, error) {
	return a.store.AuditEntries(ctx, limit)
}

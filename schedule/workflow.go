/*
workflow.go - Cancel/swap request state machine

PURPOSE:
  Employees release or move an active booking only through a deferred
  request an administrator decides. The booking keeps holding its slot
  while the request is pending.

STATE MACHINE:
  active -> pending_cancel -> deleted (approved) | active (rejected)
  active -> pending_swap   -> moved (approved)   | active (rejected)

  A booking is in at most one pending state at a time. Approve and
  reject are terminal; a request cannot be decided twice.

  Swap approval rewrites the booking's shift reference without
  re-running the booking rules. The admin deciding the swap owns the
  capacity judgement.

SEE ALSO:
  - booking.go: the rules that applied when the booking was created
*/
package schedule

import (
	"context"
	"fmt"
	"time"
)

// RequestWorkflow manages cancel and swap requests.
type RequestWorkflow struct {
	store  Store
	audit  *AuditSink
	notify NotificationDispatcher
}

func NewRequestWorkflow(store Store, audit *AuditSink, notify NotificationDispatcher) *RequestWorkflow {
	return &RequestWorkflow{store: store, audit: audit, notify: notify}
}

// =============================================================================
// OPEN
// =============================================================================

// RequestCancel asks to release an active booking. The owner or an
// administrator may open the request.
func (w *RequestWorkflow) RequestCancel(ctx context.Context, actor Actor, bookingID string) (*Request, error) {
	return w.open(ctx, actor, RequestCancel, bookingID, "", "")
}

// RequestSwap asks to move an active booking to another shift,
// optionally handing it to another user.
func (w *RequestWorkflow) RequestSwap(ctx context.Context, actor Actor, bookingID, toShiftID, targetUserID string) (*Request, error) {
	if toShiftID == "" {
		return nil, &ValidationError{Fields: map[string]string{"toShiftId": "required"}}
	}
	return w.open(ctx, actor, RequestSwap, bookingID, toShiftID, targetUserID)
}

func (w *RequestWorkflow) open(ctx context.Context, actor Actor, typ RequestType, bookingID, toShiftID, targetUserID string) (*Request, error) {
	pendingStatus := BookingPendingCancel
	if typ == RequestSwap {
		pendingStatus = BookingPendingSwap
	}

	req := Request{
		ID:           newID(),
		Type:         typ,
		Status:       RequestPending,
		RequesterID:  actor.ID,
		BookingID:    bookingID,
		ToShiftID:    toShiftID,
		TargetUserID: targetUserID,
		CreatedAt:    time.Now().UTC(),
	}

	var owner Booking
	err := runTx(ctx, w.store, func(tx Store) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return &NotFoundError{Kind: "booking", ID: bookingID}
		}
		if !actor.IsAdmin() && b.UserID != actor.ID {
			return ErrUnauthorized
		}
		if b.Status != BookingActive {
			return &TransitionError{Kind: "booking", ID: bookingID, Have: string(b.Status), Want: string(BookingActive)}
		}
		if typ == RequestSwap {
			target, err := tx.GetShift(ctx, toShiftID)
			if err != nil {
				return err
			}
			if target == nil {
				return &NotFoundError{Kind: "shift", ID: toShiftID}
			}
		}
		b.Status = pendingStatus
		owner = *b
		if err := tx.SaveBooking(ctx, *b); err != nil {
			return err
		}
		return tx.SaveRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	w.audit.Record(ctx, AuditRequestOpened, actor, req.ID,
		fmt.Sprintf("%s booking %s", typ, bookingID))
	w.notify.Dispatch(ctx, Notification{
		Kind:     NotifyRequestOpened,
		UserID:   owner.UserID,
		UserName: owner.UserName,
		Detail:   map[string]string{"type": string(typ), "bookingId": bookingID},
		At:       time.Now().UTC(),
	})
	return &req, nil
}

// =============================================================================
// DECIDE
// =============================================================================

// Approve applies the requested mutation and closes the request.
func (w *RequestWorkflow) Approve(ctx context.Context, actor Actor, requestID, note string) error {
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	var req Request
	var owner Booking
	err := runTx(ctx, w.store, func(tx Store) error {
		r, b, err := pendingRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}

		switch r.Type {
		case RequestCancel:
			if err := tx.DeleteBooking(ctx, b.ID); err != nil {
				return err
			}
		case RequestSwap:
			target, err := tx.GetShift(ctx, r.ToShiftID)
			if err != nil {
				return err
			}
			if target == nil {
				return &NotFoundError{Kind: "shift", ID: r.ToShiftID}
			}
			b.ShiftID = r.ToShiftID
			if r.TargetUserID != "" {
				b.UserID = r.TargetUserID
			}
			b.Status = BookingActive
			if err := tx.SaveBooking(ctx, *b); err != nil {
				return err
			}
		default:
			return &ValidationError{Fields: map[string]string{"type": fmt.Sprintf("unknown request type %q", r.Type)}}
		}

		now := time.Now().UTC()
		r.Status = RequestApproved
		r.AdminNote = note
		r.DecidedBy = actor.ID
		r.DecidedAt = &now
		req, owner = *r, *b
		return tx.SaveRequest(ctx, *r)
	})
	if err != nil {
		return err
	}

	w.audit.Record(ctx, AuditRequestApproved, actor, requestID, note)
	w.notify.Dispatch(ctx, Notification{
		Kind:     NotifyRequestDecided,
		UserID:   owner.UserID,
		UserName: owner.UserName,
		Detail:   map[string]string{"type": string(req.Type), "status": string(RequestApproved)},
		At:       time.Now().UTC(),
	})
	return nil
}

// Reject restores the booking to active and closes the request.
func (w *RequestWorkflow) Reject(ctx context.Context, actor Actor, requestID, note string) error {
	if !actor.IsAdmin() {
		return ErrUnauthorized
	}
	var req Request
	var owner Booking
	err := runTx(ctx, w.store, func(tx Store) error {
		r, b, err := pendingRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}

		b.Status = BookingActive
		if err := tx.SaveBooking(ctx, *b); err != nil {
			return err
		}

		now := time.Now().UTC()
		r.Status = RequestRejected
		r.AdminNote = note
		r.DecidedBy = actor.ID
		r.DecidedAt = &now
		req, owner = *r, *b
		return tx.SaveRequest(ctx, *r)
	})
	if err != nil {
		return err
	}

	w.audit.Record(ctx, AuditRequestRejected, actor, requestID, note)
	w.notify.Dispatch(ctx, Notification{
		Kind:     NotifyRequestDecided,
		UserID:   owner.UserID,
		UserName: owner.UserName,
		Detail:   map[string]string{"type": string(req.Type), "status": string(RequestRejected)},
		At:       time.Now().UTC(),
	})
	return nil
}

// pendingRequest loads an undecided request and its booking.
func pendingRequest(ctx context.Context, tx Store, requestID string) (*Request, *Booking, error) {
	r, err := tx.GetRequest(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if r == nil {
		return nil, nil, &NotFoundError{Kind: "request", ID: requestID}
	}
	if r.Status != RequestPending {
		return nil, nil, &TransitionError{Kind: "request", ID: requestID, Have: string(r.Status), Want: string(RequestPending)}
	}
	b, err := tx.GetBooking(ctx, r.BookingID)
	if err != nil {
		return nil, nil, err
	}
	if b == nil {
		return nil, nil, &NotFoundError{Kind: "booking", ID: r.BookingID}
	}
	return r, b, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Pending returns every undecided request.
func (w *RequestWorkflow) Pending(ctx context.Context) ([]Request, error) {
	return w.store.PendingRequests(ctx)
}

// ForUser returns the user's requests, any status.
func (w *RequestWorkflow) ForUser(ctx context.Context, userID string) ([]Request, error) {
	return w.store.RequestsForUser(ctx, userID)
}

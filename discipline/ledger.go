/*
ledger.go - Suspension ledger: storage interface and lifecycle operations

PURPOSE:
  The suspension ledger is the engine's own entity store. This file
  defines the persistence interface and the four lifecycle operations a
  suspension can go through: creation, mark-served, reduce-by-one, and
  deletion. Nothing else mutates a suspension.

LIFECYCLE:
  Create      -> status=active, EventsRemaining=EventCount
  MarkServed  -> status=served, EventsRemaining=0 (idempotent)
  ReduceByOne -> decrement, auto-serve at 0 (no-op once served)
  Delete      -> hard removal (reconciliation, admin, card retraction)

ATOMICITY:
  All mutations run inside a single storage transaction (TxStore.WithTx)
  so a card deletion and its dependent suspension deletion are never
  observed partially applied. Reads never lock.

AUDIT SNAPSHOT:
  EventsRemaining is kept current by ReduceByOne/MarkServed for display
  and audit, but eligibility decisions recompute from the event timeline
  every call (see eligibility.go). The snapshot is never an input to a
  decision.

SEE ALSO:
  - reconcile.go: Deletes orphans through this ledger
  - engine.go: RetractCard cascade using WithTx
*/
package discipline

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// STORAGE INTERFACES
// =============================================================================

// SuspensionFilter narrows a suspension query. Nil fields match everything.
type SuspensionFilter struct {
	MemberID *MemberID
	Status   *SuspensionStatus
}

// SuspensionStore persists suspensions. Implementations must return
// ErrSuspensionNotFound from Get/Update/Delete for unknown ids.
type SuspensionStore interface {
	Insert(ctx context.Context, s Suspension) error
	Get(ctx context.Context, id SuspensionID) (Suspension, error)
	Update(ctx context.Context, s Suspension) error
	Delete(ctx context.Context, id SuspensionID) error
	List(ctx context.Context, f SuspensionFilter) ([]Suspension, error)
}

// Store is the engine-owned persistence surface: suspensions plus the
// one external-record write the engine is allowed (suspension-linked
// card deletion during retraction).
type Store interface {
	SuspensionStore

	// DeleteMatchCard removes a match card record. Only called from
	// inside the RetractCard cascade.
	DeleteMatchCard(ctx context.Context, id CardID) error
}

// TxStore wraps Store with transaction support.
// If fn returns an error the transaction is rolled back.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// LEDGER - Lifecycle operations over a Store
// =============================================================================

// Ledger applies suspension lifecycle operations. Mutations run inside
// WithTx when the store supports it.
type Ledger struct {
	store Store
	now   func() time.Time
}

// NewLedger creates a ledger over the given store. now may be nil, in
// which case time.Now is used.
func NewLedger(store Store, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: store, now: now}
}

// CreateSuspension is the input to Create.
type CreateSuspension struct {
	MemberID     MemberID
	Reason       SuspensionReason
	CardSourceID *MatchID
	EventCount   int
	StartsAt     time.Time
	Notes        string
}

// Create records a new active suspension with the full obligation
// remaining. Rejects EventCount < 1 before touching storage.
func (l *Ledger) Create(ctx context.Context, in CreateSuspension) (Suspension, error) {
	if in.MemberID == "" {
		return Suspension{}, ErrMissingMember
	}
	if in.EventCount < 1 {
		return Suspension{}, ErrInvalidEventCount
	}
	if in.Reason != ReasonRed && in.Reason != ReasonYellowAccumulation {
		return Suspension{}, &ValidationError{Field: "reason", Message: "must be red or yellow_accumulation"}
	}

	s := Suspension{
		ID:              SuspensionID(uuid.NewString()),
		MemberID:        in.MemberID,
		Reason:          in.Reason,
		CardSourceID:    in.CardSourceID,
		EventCount:      in.EventCount,
		StartsAt:        in.StartsAt,
		EventsRemaining: in.EventCount,
		Status:          SuspensionActive,
		Notes:           in.Notes,
		CreatedAt:       l.now(),
	}

	err := l.inTx(ctx, func(store Store) error {
		return store.Insert(ctx, s)
	})
	if err != nil {
		return Suspension{}, err
	}
	return s, nil
}

// MarkServed forces the suspension to served with nothing remaining.
// Idempotent: marking an already-served suspension is a no-op.
func (l *Ledger) MarkServed(ctx context.Context, id SuspensionID) (Suspension, error) {
	var out Suspension
	err := l.inTx(ctx, func(store Store) error {
		s, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		if s.Status == SuspensionServed {
			out = s
			return nil
		}
		at := l.now()
		s.Status = SuspensionServed
		s.EventsRemaining = 0
		s.ServedAt = &at
		if err := store.Update(ctx, s); err != nil {
			return err
		}
		out = s
		return nil
	})
	return out, err
}

// ReduceByOne decrements the remaining obligation, flooring at zero.
// When the count first reaches zero the suspension auto-transitions to
// served. No-op once served.
func (l *Ledger) ReduceByOne(ctx context.Context, id SuspensionID) (Suspension, error) {
	var out Suspension
	err := l.inTx(ctx, func(store Store) error {
		s, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		if s.Status == SuspensionServed {
			out = s
			return nil
		}
		if s.EventsRemaining > 0 {
			s.EventsRemaining--
		}
		if s.EventsRemaining == 0 {
			at := l.now()
			s.Status = SuspensionServed
			s.ServedAt = &at
		}
		if err := store.Update(ctx, s); err != nil {
			return err
		}
		out = s
		return nil
	})
	return out, err
}

// Delete hard-removes a suspension.
func (l *Ledger) Delete(ctx context.Context, id SuspensionID) error {
	return l.inTx(ctx, func(store Store) error {
		return store.Delete(ctx, id)
	})
}

// List returns suspensions matching the filter.
func (l *Ledger) List(ctx context.Context, f SuspensionFilter) ([]Suspension, error) {
	return l.store.List(ctx, f)
}

// ListActive returns active suspensions, optionally for one member.
func (l *Ledger) ListActive(ctx context.Context, memberID *MemberID) ([]Suspension, error) {
	status := SuspensionActive
	return l.store.List(ctx, SuspensionFilter{MemberID: memberID, Status: &status})
}

func (l *Ledger) inTx(ctx context.Context, fn func(Store) error) error {
	if ts, ok := l.store.(TxStore); ok {
		return ts.WithTx(ctx, fn)
	}
	return fn(l.store)
}

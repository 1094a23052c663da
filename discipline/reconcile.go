/*
reconcile.go - Orphaned-suspension detection and cleanup

PURPOSE:
  Finds active suspensions whose originating card can no longer be
  correlated to any existing match card, and deletes them.

ORPHAN PREDICATE:
  A suspension is orphaned when all of:
    - it is active,
    - CardSourceID is set (manual accumulation suspensions are never
      cleanup candidates),
    - no red match card exists for the same member whose match
      timestamp falls within +/-24h of the suspension's stored start.

  The tolerance window absorbs timezone and precision drift between the
  suspension-creation timestamp and the match-record timestamp. It
  accepts some false negatives (an orphan within 24h of a coincidental
  same-type card goes unflagged) in exchange for never deleting a
  legitimate suspension over minor clock skew. Do not tighten it.

ATOMICITY:
  Cleanup deletes every orphan found by the same predicate inside one
  storage transaction; a failed batch rolls back entirely. Detection is
  read-only and may run concurrently with eligibility reads.

SEE ALSO:
  - ledger.go: Store / TxStore
  - engine.go: Exposes FindOrphans / CleanupOrphans
*/
package discipline

import (
	"context"
	"errors"
	"time"
)

// OrphanTolerance is the correlation window between a suspension's
// stored start and its source card's match timestamp.
const OrphanTolerance = 24 * time.Hour

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler correlates suspensions back to their source cards.
type Reconciler struct {
	store Store
	cards CardSource
}

// NewReconciler creates an orphan reconciler.
func NewReconciler(store Store, cards CardSource) *Reconciler {
	return &Reconciler{store: store, cards: cards}
}

// FindOrphans returns all active suspensions whose source card cannot
// be correlated to any existing red match card.
func (r *Reconciler) FindOrphans(ctx context.Context) ([]Suspension, error) {
	status := SuspensionActive
	active, err := r.store.List(ctx, SuspensionFilter{Status: &status})
	if err != nil {
		return nil, &DependencyError{Dependency: "suspension_store", Err: err}
	}

	var orphans []Suspension
	for _, s := range active {
		if s.CardSourceID == nil {
			continue
		}
		matched, err := r.hasSourceCard(ctx, s)
		if err != nil {
			return nil, err
		}
		if !matched {
			orphans = append(orphans, s)
		}
	}
	return orphans, nil
}

// Cleanup deletes every orphan found by the FindOrphans predicate and
// returns how many were removed. Detection is read-only and runs
// outside the write transaction so it never blocks eligibility reads;
// the deletions themselves are one short-lived atomic batch. A failed
// batch rolls back entirely, since partial deletion would leave the
// ledger unaudited.
func (r *Reconciler) Cleanup(ctx context.Context) (int, error) {
	orphans, err := r.FindOrphans(ctx)
	if err != nil {
		return 0, err
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	deleted := 0
	run := func(store Store) error {
		for _, s := range orphans {
			err := store.Delete(ctx, s.ID)
			if errors.Is(err, ErrSuspensionNotFound) {
				// Removed concurrently, nothing left to clean.
				continue
			}
			if err != nil {
				return err
			}
			deleted++
		}
		return nil
	}

	if ts, ok := r.store.(TxStore); ok {
		err = ts.WithTx(ctx, run)
	} else {
		err = run(r.store)
	}
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// hasSourceCard reports whether any red card for the member sits within
// the tolerance window of the suspension's stored start. Correlation is
// deliberately fuzzy: any qualifying card anywhere in the window
// counts, not just one on the recorded source match.
func (r *Reconciler) hasSourceCard(ctx context.Context, s Suspension) (bool, error) {
	cards, err := r.cards.ListMatchCards(ctx, CardFilter{MemberID: &s.MemberID})
	if err != nil {
		return false, &DependencyError{Dependency: "card_source", Err: err}
	}
	for _, c := range cards {
		if c.Card != CardRed {
			continue
		}
		if withinWindow(c.MatchAt, s.StartsAt, OrphanTolerance) {
			return true, nil
		}
	}
	return false, nil
}

func withinWindow(a, b time.Time, window time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= window
}

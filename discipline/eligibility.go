/*
eligibility.go - Remaining-events computation and eligibility decisions

PURPOSE:
  Decides whether a member may participate as of a cutoff date by
  replaying the event timeline since each active suspension began.

ALGORITHM:
  For each active suspension of the member:
    1. Resolve the effective start: the timestamp of the event
       containing the source card's match. The stored StartsAt may be a
       stale write-time value; the suspension is anchored to the event
       in which the disqualifying card occurred. If the source cannot
       be resolved, fall back to the stored StartsAt.
    2. Count events with effectiveStart < OccursAt < asOf. Both bounds
       are exclusive: the causing event does not count against the
       suspension, and the event being checked into is the one under
       evaluation.
    3. remaining = max(0, EventCount - eventsPassed).
  Total remaining is the sum across suspensions (additive, not capped).

RECOMPUTE-ON-READ:
  The persisted EventsRemaining is never consulted here. Recomputing
  from the timeline tolerates event reordering and backfill.

FAIL-CLOSED:
  If a collaborator is unavailable, the member is reported not
  eligible. Uncertainty never allows a check-in.

SEE ALSO:
  - timeline.go: CountEventsBetween
  - ledger.go: The audit snapshot the lifecycle operations maintain
*/
package discipline

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator computes remaining suspension events from the live timeline.
type Calculator struct {
	timeline    EventTimeline
	suspensions SuspensionStore
}

// NewCalculator creates an eligibility calculator.
func NewCalculator(timeline EventTimeline, suspensions SuspensionStore) *Calculator {
	return &Calculator{timeline: timeline, suspensions: suspensions}
}

// RemainingEvents returns how many suspension events the member still
// owes as of the given cutoff, summed across all active suspensions.
func (c *Calculator) RemainingEvents(ctx context.Context, memberID MemberID, asOf time.Time) (int, error) {
	if memberID == "" {
		return 0, ErrMissingMember
	}

	status := SuspensionActive
	active, err := c.suspensions.List(ctx, SuspensionFilter{MemberID: &memberID, Status: &status})
	if err != nil {
		return 0, &DependencyError{Dependency: "suspension_store", Err: err}
	}
	if len(active) == 0 {
		return 0, nil
	}

	events, err := c.timeline.ListEvents(ctx)
	if err != nil {
		return 0, &DependencyError{Dependency: "event_timeline", Err: err}
	}

	total := 0
	for _, s := range active {
		start, err := c.effectiveStart(ctx, s)
		if err != nil {
			return 0, err
		}
		passed := CountEventsBetween(events, start, asOf)
		if remaining := s.EventCount - passed; remaining > 0 {
			total += remaining
		}
	}
	return total, nil
}

// IsEligible reports whether the member owes no suspension events as of
// the cutoff. On dependency failure it reports false (fail-closed) and
// returns the error alongside so callers can surface it.
func (c *Calculator) IsEligible(ctx context.Context, memberID MemberID, asOf time.Time) (bool, error) {
	remaining, err := c.RemainingEvents(ctx, memberID, asOf)
	if err != nil {
		return false, err
	}
	return remaining == 0, nil
}

// effectiveStart anchors the suspension to the event in which the
// disqualifying card occurred. Unknown matches or events fall back to
// the stored start; collaborator failures propagate as dependency
// errors so the decision fails closed upstream.
func (c *Calculator) effectiveStart(ctx context.Context, s Suspension) (time.Time, error) {
	if s.CardSourceID == nil {
		return s.StartsAt, nil
	}

	match, err := c.timeline.FindMatch(ctx, *s.CardSourceID)
	if err != nil {
		if errors.Is(err, ErrMatchNotFound) {
			return s.StartsAt, nil
		}
		return time.Time{}, &DependencyError{Dependency: "event_timeline", Err: fmt.Errorf("resolve match %s: %w", *s.CardSourceID, err)}
	}

	at, err := c.timeline.EventTimestamp(ctx, match.EventID)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return s.StartsAt, nil
		}
		return time.Time{}, &DependencyError{Dependency: "event_timeline", Err: fmt.Errorf("resolve event %s: %w", match.EventID, err)}
	}
	return at, nil
}

/*
timeline.go - Read-only collaborator interfaces

PURPOSE:
  The engine consumes events, matches and card records from external
  collaborators. These interfaces are the whole contract: the engine
  never mutates anything behind them (the one exception, retracting a
  card, goes through the engine-owned Store in ledger.go so the cascade
  is transactional).

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite-backed league fixtures
  - discipline/store: In-memory implementation for testing

SEE ALSO:
  - eligibility.go: Replays the timeline
  - summary.go: Joins cards through their owning event
*/
package discipline

import (
	"context"
	"time"
)

// =============================================================================
// EVENT TIMELINE - Ordered, immutable-once-published sequence of events
// =============================================================================

// EventTimeline exposes the league's chronological event sequence.
type EventTimeline interface {
	// ListEvents returns all events ascending by timestamp.
	ListEvents(ctx context.Context) ([]Event, error)

	// EventTimestamp resolves a single event's timestamp.
	// Returns ErrEventNotFound for unknown ids.
	EventTimestamp(ctx context.Context, id EventID) (time.Time, error)

	// FindMatch resolves a match to its containing event.
	// Returns ErrMatchNotFound for unknown ids.
	FindMatch(ctx context.Context, id MatchID) (Match, error)
}

// =============================================================================
// CARD SOURCE - Match cards and lifetime disciplinary records
// =============================================================================

// CardFilter narrows a match-card query. Nil fields match everything.
type CardFilter struct {
	MemberID *MemberID
	MatchID  *MatchID
}

// RecordFilter narrows a disciplinary-record query. Nil fields match
// everything.
type RecordFilter struct {
	MemberID *MemberID
	TeamID   *TeamID
}

// CardSource exposes card issuances and disciplinary history.
type CardSource interface {
	ListMatchCards(ctx context.Context, f CardFilter) ([]MatchCardRecord, error)
	ListDisciplinaryRecords(ctx context.Context, f RecordFilter) ([]DisciplinaryRecord, error)
}

// =============================================================================
// TIMELINE ARITHMETIC
// =============================================================================

// CountEventsBetween counts events with after < OccursAt < before.
// Both bounds are exclusive: the event that caused a suspension does
// not count against it, and the event being checked into is still
// being evaluated, not already consumed.
func CountEventsBetween(events []Event, after, before time.Time) int {
	n := 0
	for _, e := range events {
		if e.OccursAt.After(after) && e.OccursAt.Before(before) {
			n++
		}
	}
	return n
}

/*
Package discipline provides the core eligibility and disciplinary
accounting engine for a league.

PURPOSE:
  This package contains the domain types and algorithms for tracking
  disciplinary cards issued to players, deriving whether a player is
  currently suspended, reconciling suspensions that lost their source
  card, and computing attendance-lock windows for matches.

KEY CONCEPTS IN THIS FILE (types.go):
  - Event: A scheduled league event; its timestamp is the unit of
    suspension duration (one suspension event = one league event missed)
  - MatchCardRecord: One card issued during a specific match
  - DisciplinaryRecord: A standalone lifetime disciplinary entry
  - Suspension: The engine-owned record of a suspension obligation
  - CardSummary: Aggregated season/lifetime card counts

DESIGN PRINCIPLES:
  1. Recompute-on-read: Eligibility is always derived by replaying the
     event timeline; the persisted EventsRemaining is an audit snapshot,
     never an input to an eligibility decision.
  2. Ownership: Suspensions are owned by this engine. Events, matches
     and card records are owned by external collaborators and are only
     ever read.
  3. Determinism: "Now" and season cutoffs are always explicit
     parameters or injected clocks, never ambient wall-clock reads.
  4. Type Safety: Strong typing for IDs prevents mixing member, match
     and suspension identifiers.

SEE ALSO:
  - timeline.go: Read-only collaborator interfaces
  - eligibility.go: Remaining-events computation
  - ledger.go: Suspension lifecycle operations
  - reconcile.go: Orphaned-suspension cleanup
*/
package discipline

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type MemberID string
type TeamID string
type EventID string
type MatchID string
type CardID string
type RecordID string
type SuspensionID string

// =============================================================================
// CARDS
// =============================================================================

// CardType is the color of a disciplinary card.
type CardType string

const (
	CardYellow CardType = "yellow"
	CardRed    CardType = "red"
)

// Valid reports whether the card type is one of the known colors.
func (c CardType) Valid() bool {
	return c == CardYellow || c == CardRed
}

// =============================================================================
// EVENT - One scheduled league event (the unit of suspension duration)
// =============================================================================

// Event is a scheduled league event. The engine only needs its
// chronological position; everything else about events is owned by the
// external event store.
type Event struct {
	ID       EventID
	OccursAt time.Time
}

// Match links a match to its containing event. StartsAt may be nil for
// matches that have no scheduled kickoff yet.
type Match struct {
	ID       MatchID
	EventID  EventID
	StartsAt *time.Time
}

// =============================================================================
// CARD RECORDS - Owned by external collaborators, read-only here
// =============================================================================

// MatchCardRecord is one issuance of a card during a specific match.
// Source of truth for in-match discipline.
type MatchCardRecord struct {
	ID       CardID
	MatchID  MatchID
	MemberID MemberID
	Card     CardType
	MatchAt  time.Time // timestamp of the containing match
}

// DisciplinaryRecord is a standalone lifetime disciplinary entry. It is
// independent of the MatchCardRecord lifecycle: deleting a roster entry
// does not delete disciplinary history except via explicit cascade.
type DisciplinaryRecord struct {
	ID         RecordID
	MemberID   MemberID
	TeamID     TeamID
	Card       CardType
	IncidentAt time.Time

	// Optional suspension obligation carried by this record.
	SuspensionEventCount int
	SuspensionServed     bool
	SuspensionServedAt   *time.Time
}

// =============================================================================
// SUSPENSION - Engine-owned entity
// =============================================================================

// SuspensionReason is why the suspension was issued.
type SuspensionReason string

const (
	ReasonRed                SuspensionReason = "red"
	ReasonYellowAccumulation SuspensionReason = "yellow_accumulation"
)

// SuspensionStatus is the lifecycle state of a suspension.
type SuspensionStatus string

const (
	SuspensionActive SuspensionStatus = "active"
	SuspensionServed SuspensionStatus = "served"
)

// Suspension records one suspension obligation. Created once per
// qualifying card.
//
// INVARIANTS:
//   - EventsRemaining is always in [0, EventCount].
//   - Status == served exactly when EventsRemaining == 0 is the target
//     state; transient divergence during recomputation is tolerated.
//   - Mutated only by: creation, MarkServed, ReduceByOne, or deletion.
//     Never mutated by reads.
//
// CardSourceID correlates back to the match whose card caused the
// suspension. It is nil for manually entered accumulation suspensions,
// which are never candidates for orphan cleanup.
type Suspension struct {
	ID           SuspensionID
	MemberID     MemberID
	Reason       SuspensionReason
	CardSourceID *MatchID

	// EventCount is the total number of league events to sit out.
	EventCount int

	// StartsAt is the stored start of the suspension. Eligibility
	// computation prefers the timestamp of the event containing the
	// source card (the effective start); this field is the fallback.
	StartsAt time.Time

	// EventsRemaining is an audit/display snapshot maintained by
	// ReduceByOne and MarkServed. Eligibility decisions never read it;
	// they recompute from the event timeline.
	EventsRemaining int

	Status    SuspensionStatus
	Notes     string
	CreatedAt time.Time
	ServedAt  *time.Time
}

// Active reports whether the suspension still carries an obligation.
func (s Suspension) Active() bool {
	return s.Status == SuspensionActive
}

// =============================================================================
// CARD SUMMARY - Aggregated counts for display
// =============================================================================

// CardSummary holds per-member card counts. Match-card counts and
// lifetime disciplinary counts come from different sources and are
// never merged: the same incident may legitimately appear in both.
type CardSummary struct {
	MemberID MemberID

	// Counted from match card records.
	AllMatchYellow      int
	AllMatchRed         int
	CurrentSeasonYellow int
	CurrentSeasonRed    int

	// Counted from disciplinary records only.
	LifetimeYellow int
	LifetimeRed    int
}

/*
engine.go - Facade wiring the calculators, ledger and reconciler

PURPOSE:
  Engine is the single entry point host applications use: eligibility
  decisions, suspension lifecycle, orphan reconciliation, check-in
  locks and card summaries. It owns the bounded-timeout policy for
  collaborator calls and the one cascading write the engine performs
  (card retraction).

TIMEOUTS:
  Every read that touches a collaborator runs under a bounded timeout.
  A timed-out eligibility read surfaces as ErrDependencyUnavailable and
  the decision fails closed; mutations propagate the error as
  retryable.

CASCADE:
  RetractCard deletes a match card and every active suspension sourced
  from that match in one storage transaction. The side effects are
  enumerated here in code rather than delegated to storage-level
  cascade triggers, so the transaction boundary is explicit.

SEE ALSO:
  - api/handlers.go: HTTP surface over this facade
  - cmd/server/main.go: Wiring at startup
*/
package discipline

import (
	"context"
	"time"
)

// DefaultDependencyTimeout bounds calls to external collaborators.
const DefaultDependencyTimeout = 5 * time.Second

// =============================================================================
// ENGINE
// =============================================================================

// Engine exposes the full disciplinary accounting surface.
type Engine struct {
	timeline EventTimeline
	cards    CardSource
	store    TxStore

	ledger *Ledger
	calc   *Calculator
	recon  *Reconciler
	agg    *Aggregator

	now     func() time.Time
	timeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects the time source used for CreatedAt/ServedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithDependencyTimeout overrides the bound on collaborator calls.
func WithDependencyTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// New creates an engine over the given collaborators and store.
func New(timeline EventTimeline, cards CardSource, store TxStore, opts ...Option) *Engine {
	e := &Engine{
		timeline: timeline,
		cards:    cards,
		store:    store,
		now:      time.Now,
		timeout:  DefaultDependencyTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ledger = NewLedger(store, e.now)
	e.calc = NewCalculator(timeline, store)
	e.recon = NewReconciler(store, cards)
	e.agg = NewAggregator(timeline, cards)
	return e
}

// =============================================================================
// ELIGIBILITY
// =============================================================================

// RemainingEvents returns how many suspension events the member still
// owes as of the cutoff.
func (e *Engine) RemainingEvents(ctx context.Context, memberID MemberID, asOf time.Time) (int, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.calc.RemainingEvents(ctx, memberID, asOf)
}

// IsEligible reports whether the member may participate as of the
// cutoff. Fails closed: on dependency failure the member is reported
// not eligible and the error is returned alongside.
func (e *Engine) IsEligible(ctx context.Context, memberID MemberID, asOf time.Time) (bool, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.calc.IsEligible(ctx, memberID, asOf)
}

// =============================================================================
// SUSPENSION LIFECYCLE
// =============================================================================

// CreateSuspension records a new active suspension.
func (e *Engine) CreateSuspension(ctx context.Context, in CreateSuspension) (Suspension, error) {
	return e.ledger.Create(ctx, in)
}

// MarkServed forces a suspension to served. Idempotent.
func (e *Engine) MarkServed(ctx context.Context, id SuspensionID) (Suspension, error) {
	return e.ledger.MarkServed(ctx, id)
}

// ReduceByOne decrements a suspension's remaining obligation.
func (e *Engine) ReduceByOne(ctx context.Context, id SuspensionID) (Suspension, error) {
	return e.ledger.ReduceByOne(ctx, id)
}

// DeleteSuspension hard-removes a suspension.
func (e *Engine) DeleteSuspension(ctx context.Context, id SuspensionID) error {
	return e.ledger.Delete(ctx, id)
}

// GetSuspension returns one suspension by id.
func (e *Engine) GetSuspension(ctx context.Context, id SuspensionID) (Suspension, error) {
	return e.store.Get(ctx, id)
}

// ListSuspensions returns suspensions matching the filter.
func (e *Engine) ListSuspensions(ctx context.Context, f SuspensionFilter) ([]Suspension, error) {
	return e.ledger.List(ctx, f)
}

// ListActiveSuspensions returns active suspensions, optionally for one
// member.
func (e *Engine) ListActiveSuspensions(ctx context.Context, memberID *MemberID) ([]Suspension, error) {
	return e.ledger.ListActive(ctx, memberID)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// FindOrphans returns active suspensions whose source card is gone.
func (e *Engine) FindOrphans(ctx context.Context) ([]Suspension, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.recon.FindOrphans(ctx)
}

// CleanupOrphans deletes all orphans atomically and returns the count.
func (e *Engine) CleanupOrphans(ctx context.Context) (int, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.recon.Cleanup(ctx)
}

// =============================================================================
// CHECK-IN LOCK
// =============================================================================

// MatchCheckInLock resolves the match's scheduled start and reports
// its attendance-lock state at now. A match with no schedule is never
// locked.
func (e *Engine) MatchCheckInLock(ctx context.Context, matchID MatchID, now time.Time) (CheckInLock, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	match, err := e.timeline.FindMatch(ctx, matchID)
	if err != nil {
		return CheckInLock{}, err
	}
	return NewCheckInLock(match, now), nil
}

// =============================================================================
// CARD SUMMARY
// =============================================================================

// CardSummary returns the member's season and lifetime card counts.
func (e *Engine) CardSummary(ctx context.Context, memberID MemberID, seasonCutoff time.Time) (CardSummary, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.agg.Summary(ctx, memberID, seasonCutoff)
}

// =============================================================================
// CARD RETRACTION - One explicit cascading domain operation
// =============================================================================

// RetractCard deletes a match card and every active suspension sourced
// from that match for the carded member whose reason matches the card's
// type, in a single transaction.
func (e *Engine) RetractCard(ctx context.Context, matchID MatchID, cardID CardID) error {
	readCtx, cancel := e.bound(ctx)
	defer cancel()
	cards, err := e.cards.ListMatchCards(readCtx, CardFilter{MatchID: &matchID})
	if err != nil {
		return &DependencyError{Dependency: "card_source", Err: err}
	}
	var card *MatchCardRecord
	for i := range cards {
		if cards[i].ID == cardID {
			card = &cards[i]
			break
		}
	}
	if card == nil {
		return ErrCardNotFound
	}

	return e.store.WithTx(ctx, func(store Store) error {
		if err := store.DeleteMatchCard(ctx, cardID); err != nil {
			return err
		}
		status := SuspensionActive
		subs, err := store.List(ctx, SuspensionFilter{MemberID: &card.MemberID, Status: &status})
		if err != nil {
			return err
		}
		for _, s := range subs {
			if s.CardSourceID == nil || *s.CardSourceID != matchID {
				continue
			}
			if !cardCausesReason(card.Card, s.Reason) {
				continue
			}
			if err := store.Delete(ctx, s.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// cardCausesReason reports whether a card of the given type can be the
// source of a suspension with the given reason. Retracting a yellow
// card must not cascade onto a red-card suspension from the same match.
func cardCausesReason(card CardType, reason SuspensionReason) bool {
	switch card {
	case CardRed:
		return reason == ReasonRed
	case CardYellow:
		return reason == ReasonYellowAccumulation
	}
	return false
}

func (e *Engine) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.timeout)
}

/*
summary.go - Per-member card aggregation

PURPOSE:
  Produces season and lifetime card counts for display. Two sources,
  two scopes, never merged:
    - Match card records: in-match occurrences. "Current season" joins
      each card through its owning event (event timestamp >= cutoff).
    - Disciplinary records: externally recorded lifetime history.
  The same incident may appear in both; merging would double-count.

SEE ALSO:
  - timeline.go: CardSource and EventTimeline
*/
package discipline

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator derives card counts from match cards and disciplinary
// records.
type Aggregator struct {
	timeline EventTimeline
	cards    CardSource
}

// NewAggregator creates a card aggregator.
func NewAggregator(timeline EventTimeline, cards CardSource) *Aggregator {
	return &Aggregator{timeline: timeline, cards: cards}
}

// Summary returns the member's card counts. Cards whose owning event
// has timestamp >= seasonCutoff count toward the current season.
func (a *Aggregator) Summary(ctx context.Context, memberID MemberID, seasonCutoff time.Time) (CardSummary, error) {
	if memberID == "" {
		return CardSummary{}, ErrMissingMember
	}

	out := CardSummary{MemberID: memberID}

	matchCards, err := a.cards.ListMatchCards(ctx, CardFilter{MemberID: &memberID})
	if err != nil {
		return CardSummary{}, &DependencyError{Dependency: "card_source", Err: err}
	}
	for _, c := range matchCards {
		switch c.Card {
		case CardYellow:
			out.AllMatchYellow++
		case CardRed:
			out.AllMatchRed++
		}

		at, err := a.cardEventTime(ctx, c)
		if err != nil {
			return CardSummary{}, err
		}
		if at.Before(seasonCutoff) {
			continue
		}
		switch c.Card {
		case CardYellow:
			out.CurrentSeasonYellow++
		case CardRed:
			out.CurrentSeasonRed++
		}
	}

	records, err := a.cards.ListDisciplinaryRecords(ctx, RecordFilter{MemberID: &memberID})
	if err != nil {
		return CardSummary{}, &DependencyError{Dependency: "card_source", Err: err}
	}
	for _, rec := range records {
		switch rec.Card {
		case CardYellow:
			out.LifetimeYellow++
		case CardRed:
			out.LifetimeRed++
		}
	}

	return out, nil
}

// cardEventTime resolves a card's owning event timestamp, falling back
// to the recorded match timestamp when the event chain is broken.
func (a *Aggregator) cardEventTime(ctx context.Context, c MatchCardRecord) (time.Time, error) {
	match, err := a.timeline.FindMatch(ctx, c.MatchID)
	if err != nil {
		if errors.Is(err, ErrMatchNotFound) {
			return c.MatchAt, nil
		}
		return time.Time{}, &DependencyError{Dependency: "event_timeline", Err: err}
	}
	at, err := a.timeline.EventTimestamp(ctx, match.EventID)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return c.MatchAt, nil
		}
		return time.Time{}, &DependencyError{Dependency: "event_timeline", Err: err}
	}
	return at, nil
}

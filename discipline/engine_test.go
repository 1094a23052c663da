package discipline_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/discipline-engine/discipline"
	"github.com/warp/discipline-engine/discipline/store"
)

// =============================================================================
// CARD RETRACTION CASCADE
// =============================================================================

func TestRetractCard_DeletesCardAndDependentSuspension(t *testing.T) {
	// GIVEN: A red card in m1 and the suspension it caused
	// WHEN: Retracting the card
	// THEN: Both the card and the suspension are gone

	mem := store.NewMemory()
	seedLeague(mem)
	engine := newTestEngine(mem)
	ctx := context.Background()

	addRedCard(mem, "c1", "alex", "m1", march(1))
	sus := redCardSuspension(t, engine, "alex", "m1", march(1), 2)

	require.NoError(t, engine.RetractCard(ctx, "m1", "c1"))

	cards, err := mem.ListMatchCards(ctx, discipline.CardFilter{})
	require.NoError(t, err)
	assert.Empty(t, cards)

	_, err = engine.GetSuspension(ctx, sus.ID)
	assert.ErrorIs(t, err, discipline.ErrSuspensionNotFound)
}

func TestRetractCard_LeavesUnrelatedSuspensions(t *testing.T) {
	// GIVEN: Suspensions sourced from two different matches, plus a
	//        manual one with no source
	// WHEN: Retracting the m1 card
	// THEN: Only the m1-sourced suspension is cascaded away

	mem := store.NewMemory()
	seedLeague(mem)
	engine := newTestEngine(mem)
	ctx := context.Background()

	addRedCard(mem, "c1", "alex", "m1", march(1))
	fromM1 := redCardSuspension(t, engine, "alex", "m1", march(1), 2)
	fromM2 := redCardSuspension(t, engine, "alex", "m2", march(8), 1)

	manual, err := engine.CreateSuspension(ctx, discipline.CreateSuspension{
		MemberID:   "alex",
		Reason:     discipline.ReasonYellowAccumulation,
		EventCount: 1,
		StartsAt:   march(1),
	})
	require.NoError(t, err)

	require.NoError(t, engine.RetractCard(ctx, "m1", "c1"))

	_, err = engine.GetSuspension(ctx, fromM1.ID)
	assert.ErrorIs(t, err, discipline.ErrSuspensionNotFound)

	_, err = engine.GetSuspension(ctx, fromM2.ID)
	assert.NoError(t, err)
	_, err = engine.GetSuspension(ctx, manual.ID)
	assert.NoError(t, err)
}

func TestRetractCard_YellowDoesNotCascadeOntoRedSuspension(t *testing.T) {
	// GIVEN: A yellow and a red card in m1, with a suspension sourced
	//        from the match for each reason
	// WHEN: Retracting only the yellow card
	// THEN: The red-card suspension survives; the accumulation one is gone

	mem := store.NewMemory()
	seedLeague(mem)
	engine := newTestEngine(mem)
	ctx := context.Background()

	addRedCard(mem, "c-red", "alex", "m1", march(1))
	addYellowCard(mem, "c-yel", "alex", "m1", march(1))

	fromRed := redCardSuspension(t, engine, "alex", "m1", march(1), 2)
	fromYellow, err := engine.CreateSuspension(ctx, discipline.CreateSuspension{
		MemberID:     "alex",
		Reason:       discipline.ReasonYellowAccumulation,
		CardSourceID: matchRef("m1"),
		EventCount:   1,
		StartsAt:     march(1),
	})
	require.NoError(t, err)

	require.NoError(t, engine.RetractCard(ctx, "m1", "c-yel"))

	_, err = engine.GetSuspension(ctx, fromYellow.ID)
	assert.ErrorIs(t, err, discipline.ErrSuspensionNotFound)

	_, err = engine.GetSuspension(ctx, fromRed.ID)
	assert.NoError(t, err, "red-card suspension is not the yellow card's consequence")
}

func TestRetractCard_UnknownCard(t *testing.T) {
	mem := store.NewMemory()
	seedLeague(mem)
	engine := newTestEngine(mem)

	err := engine.RetractCard(context.Background(), "m1", "nope")
	assert.ErrorIs(t, err, discipline.ErrCardNotFound)
}

// =============================================================================
// BOUNDED COLLABORATOR CALLS
// =============================================================================

// stalledCardSource blocks every call until the context is cancelled.
type stalledCardSource struct{}

func (stalledCardSource) ListMatchCards(ctx context.Context, _ discipline.CardFilter) ([]discipline.MatchCardRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalledCardSource) ListDisciplinaryRecords(ctx context.Context, _ discipline.RecordFilter) ([]discipline.DisciplinaryRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func newStalledEngine(mem *store.Memory) *discipline.Engine {
	return discipline.New(mem, stalledCardSource{}, mem,
		discipline.WithClock(fixedNow),
		discipline.WithDependencyTimeout(50*time.Millisecond))
}

func TestCleanupOrphans_BoundedWhenCardSourceStalls(t *testing.T) {
	// GIVEN: A card-sourced suspension and a card source that never answers
	// WHEN: Running cleanup with a 50ms dependency timeout
	// THEN: The call returns promptly with a retryable error instead of
	//       blocking on the stalled collaborator

	mem := store.NewMemory()
	seedLeague(mem)
	engine := newStalledEngine(mem)
	ctx := context.Background()

	redCardSuspension(t, engine, "alex", "m1", march(1), 2)

	begin := time.Now()
	_, err := engine.CleanupOrphans(ctx)
	assert.ErrorIs(t, err, discipline.ErrDependencyUnavailable)
	assert.True(t, discipline.IsRetryable(err))
	assert.Less(t, time.Since(begin), 2*time.Second)
}

func TestRetractCard_BoundedWhenCardSourceStalls(t *testing.T) {
	mem := store.NewMemory()
	seedLeague(mem)
	engine := newStalledEngine(mem)

	begin := time.Now()
	err := engine.RetractCard(context.Background(), "m1", "c1")
	assert.ErrorIs(t, err, discipline.ErrDependencyUnavailable)
	assert.Less(t, time.Since(begin), 2*time.Second)
}

// =============================================================================
// CHECK-IN LOCK VIA MATCH RESOLUTION
// =============================================================================

func TestMatchCheckInLock_ResolvesSchedule(t *testing.T) {
	mem := store.NewMemory()
	seedLeague(mem)
	engine := newTestEngine(mem)
	ctx := context.Background()

	lock, err := engine.MatchCheckInLock(ctx, "m1", march(1).Add(3*time.Hour))
	require.NoError(t, err)
	assert.True(t, lock.Locked)

	lock, err = engine.MatchCheckInLock(ctx, "m1", march(1).Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, lock.Locked)
}

func TestMatchCheckInLock_UnscheduledMatch_NeverLocked(t *testing.T) {
	mem := store.NewMemory()
	engine := newTestEngine(mem)
	ctx := context.Background()

	mem.AddEvent(discipline.Event{ID: "e1", OccursAt: march(1)})
	mem.AddMatch(discipline.Match{ID: "m1", EventID: "e1"})

	lock, err := engine.MatchCheckInLock(ctx, "m1", march(1).AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.False(t, lock.Locked)
}

func TestMatchCheckInLock_UnknownMatch(t *testing.T) {
	mem := store.NewMemory()
	engine := newTestEngine(mem)

	_, err := engine.MatchCheckInLock(context.Background(), "nope", march(1))
	assert.ErrorIs(t, err, discipline.ErrMatchNotFound)
}

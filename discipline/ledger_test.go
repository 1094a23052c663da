package discipline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/discipline-engine/discipline"
	"github.com/warp/discipline-engine/discipline/store"
)

func newTestLedger() (*discipline.Ledger, *store.Memory) {
	mem := store.NewMemory()
	return discipline.NewLedger(mem, fixedNow), mem
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreate_SetsFullObligation(t *testing.T) {
	// GIVEN: A new 3-event red-card suspension
	// WHEN: Creating it
	// THEN: It is active with the full obligation remaining

	ledger, _ := newTestLedger()

	sus, err := ledger.Create(context.Background(), discipline.CreateSuspension{
		MemberID:     "alex",
		Reason:       discipline.ReasonRed,
		CardSourceID: matchRef("m1"),
		EventCount:   3,
		StartsAt:     march(1),
		Notes:        "straight red",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, sus.ID)
	assert.Equal(t, discipline.SuspensionActive, sus.Status)
	assert.Equal(t, 3, sus.EventCount)
	assert.Equal(t, 3, sus.EventsRemaining)
	assert.Equal(t, testClock, sus.CreatedAt)
	assert.Nil(t, sus.ServedAt)
}

func TestCreate_RejectsInvalidInput(t *testing.T) {
	ledger, mem := newTestLedger()
	ctx := context.Background()

	_, err := ledger.Create(ctx, discipline.CreateSuspension{
		MemberID: "alex", Reason: discipline.ReasonRed, EventCount: 0, StartsAt: march(1),
	})
	assert.ErrorIs(t, err, discipline.ErrInvalidEventCount)

	_, err = ledger.Create(ctx, discipline.CreateSuspension{
		Reason: discipline.ReasonRed, EventCount: 1, StartsAt: march(1),
	})
	assert.ErrorIs(t, err, discipline.ErrMissingMember)

	_, err = ledger.Create(ctx, discipline.CreateSuspension{
		MemberID: "alex", Reason: "lifetime_ban", EventCount: 1, StartsAt: march(1),
	})
	var ve *discipline.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.True(t, discipline.IsClientError(err))

	// Nothing was persisted by the rejected calls.
	subs, err := mem.List(ctx, discipline.SuspensionFilter{})
	require.NoError(t, err)
	assert.Empty(t, subs)
}

// =============================================================================
// REDUCE BY ONE
// =============================================================================

func TestReduceByOne_DecrementsAndAutoServes(t *testing.T) {
	// GIVEN: An active suspension with 2 events remaining
	// WHEN: Reducing it three times
	// THEN: 2 -> 1 -> 0 (served), and the third call is a no-op

	ledger, _ := newTestLedger()
	ctx := context.Background()

	sus, err := ledger.Create(ctx, discipline.CreateSuspension{
		MemberID: "alex", Reason: discipline.ReasonYellowAccumulation,
		EventCount: 2, StartsAt: march(1),
	})
	require.NoError(t, err)

	sus, err = ledger.ReduceByOne(ctx, sus.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sus.EventsRemaining)
	assert.Equal(t, discipline.SuspensionActive, sus.Status)
	assert.Nil(t, sus.ServedAt)

	sus, err = ledger.ReduceByOne(ctx, sus.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, sus.EventsRemaining)
	assert.Equal(t, discipline.SuspensionServed, sus.Status, "auto-serves when reaching 0")
	require.NotNil(t, sus.ServedAt)
	assert.Equal(t, testClock, *sus.ServedAt)

	sus, err = ledger.ReduceByOne(ctx, sus.ID)
	require.NoError(t, err, "reducing a served suspension is a no-op, not an error")
	assert.Equal(t, 0, sus.EventsRemaining)
	assert.Equal(t, discipline.SuspensionServed, sus.Status)
}

func TestReduceByOne_UnknownSuspension(t *testing.T) {
	ledger, _ := newTestLedger()

	_, err := ledger.ReduceByOne(context.Background(), "nope")
	assert.ErrorIs(t, err, discipline.ErrSuspensionNotFound)
	assert.True(t, discipline.IsNotFound(err))
}

// =============================================================================
// MARK SERVED
// =============================================================================

func TestMarkServed_Idempotent(t *testing.T) {
	// GIVEN: An active suspension with 4 events remaining
	// WHEN: Marking it served twice
	// THEN: Both calls succeed and leave remaining=0, status=served

	ledger, _ := newTestLedger()
	ctx := context.Background()

	sus, err := ledger.Create(ctx, discipline.CreateSuspension{
		MemberID: "alex", Reason: discipline.ReasonRed,
		EventCount: 4, StartsAt: march(1),
	})
	require.NoError(t, err)

	first, err := ledger.MarkServed(ctx, sus.ID)
	require.NoError(t, err)
	assert.Equal(t, discipline.SuspensionServed, first.Status)
	assert.Equal(t, 0, first.EventsRemaining)
	require.NotNil(t, first.ServedAt)

	second, err := ledger.MarkServed(ctx, sus.ID)
	require.NoError(t, err, "second call is a no-op, not an error")
	assert.Equal(t, discipline.SuspensionServed, second.Status)
	assert.Equal(t, 0, second.EventsRemaining)
	assert.Equal(t, *first.ServedAt, *second.ServedAt, "served timestamp unchanged")
}

// =============================================================================
// DELETE / LIST
// =============================================================================

func TestDelete_RemovesSuspension(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	sus, err := ledger.Create(ctx, discipline.CreateSuspension{
		MemberID: "alex", Reason: discipline.ReasonRed,
		EventCount: 1, StartsAt: march(1),
	})
	require.NoError(t, err)

	require.NoError(t, ledger.Delete(ctx, sus.ID))
	err = ledger.Delete(ctx, sus.ID)
	assert.ErrorIs(t, err, discipline.ErrSuspensionNotFound)
}

func TestListActive_FiltersServedAndOtherMembers(t *testing.T) {
	// GIVEN: Active and served suspensions across two members
	// WHEN: Listing active suspensions for one member
	// THEN: Only that member's active entries come back

	ledger, _ := newTestLedger()
	ctx := context.Background()

	a1, err := ledger.Create(ctx, discipline.CreateSuspension{
		MemberID: "alex", Reason: discipline.ReasonRed, EventCount: 2, StartsAt: march(1),
	})
	require.NoError(t, err)

	a2, err := ledger.Create(ctx, discipline.CreateSuspension{
		MemberID: "alex", Reason: discipline.ReasonYellowAccumulation, EventCount: 1, StartsAt: march(8),
	})
	require.NoError(t, err)
	_, err = ledger.MarkServed(ctx, a2.ID)
	require.NoError(t, err)

	_, err = ledger.Create(ctx, discipline.CreateSuspension{
		MemberID: "sam", Reason: discipline.ReasonRed, EventCount: 1, StartsAt: march(1),
	})
	require.NoError(t, err)

	member := discipline.MemberID("alex")
	active, err := ledger.ListActive(ctx, &member)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a1.ID, active[0].ID)

	all, err := ledger.List(ctx, discipline.SuspensionFilter{MemberID: &member})
	require.NoError(t, err)
	assert.Len(t, all, 2, "unfiltered list includes served entries")
}

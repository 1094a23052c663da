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

func addYellowCard(mem *store.Memory, id, member, matchID string, at time.Time) {
	mem.AddMatchCard(discipline.MatchCardRecord{
		ID:       discipline.CardID(id),
		MatchID:  discipline.MatchID(matchID),
		MemberID: discipline.MemberID(member),
		Card:     discipline.CardYellow,
		MatchAt:  at,
	})
}

func TestCardSummary_SourcesNeverMerged(t *testing.T) {
	// GIVEN: 2 match yellows this season and 1 lifetime-only red
	//        disciplinary record
	// WHEN: Building the summary
	// THEN: currentSeasonYellow=2 and lifetimeRed=1 with no
	//       cross-contamination between the two sources

	mem := store.NewMemory()
	seedLeague(mem)
	engine := newTestEngine(mem)
	ctx := context.Background()

	addYellowCard(mem, "c1", "alex", "m2", march(8))
	addYellowCard(mem, "c2", "alex", "m3", march(15))
	mem.AddDisciplinaryRecord(discipline.DisciplinaryRecord{
		ID:         "d1",
		MemberID:   "alex",
		Card:       discipline.CardRed,
		IncidentAt: time.Date(2023, time.June, 4, 0, 0, 0, 0, time.UTC),
	})

	summary, err := engine.CardSummary(ctx, "alex", march(1))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.CurrentSeasonYellow)
	assert.Equal(t, 2, summary.AllMatchYellow)
	assert.Equal(t, 0, summary.CurrentSeasonRed)
	assert.Equal(t, 0, summary.AllMatchRed, "disciplinary red never leaks into match counts")
	assert.Equal(t, 1, summary.LifetimeRed)
	assert.Equal(t, 0, summary.LifetimeYellow, "match yellows never leak into lifetime counts")
}

func TestCardSummary_SeasonCutoffJoinsThroughOwningEvent(t *testing.T) {
	// GIVEN: Two yellows, one in an event before the cutoff and one
	//        after; the older card's raw match timestamp is misleadingly
	//        recent
	// WHEN: Building the summary with a mid-season cutoff
	// THEN: Season membership follows the owning event's timestamp, not
	//       the card's own

	mem := store.NewMemory()
	seedLeague(mem)
	engine := newTestEngine(mem)
	ctx := context.Background()

	// Card in m1 (event e1, Mar 1) but recorded with a late timestamp.
	addYellowCard(mem, "c1", "alex", "m1", march(20))
	addYellowCard(mem, "c2", "alex", "m4", march(22))

	summary, err := engine.CardSummary(ctx, "alex", march(10))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.AllMatchYellow)
	assert.Equal(t, 1, summary.CurrentSeasonYellow, "e1 predates the cutoff")
}

func TestCardSummary_BrokenEventChain_FallsBackToCardTimestamp(t *testing.T) {
	// GIVEN: A card whose match is no longer resolvable
	// WHEN: Building the summary
	// THEN: The card's own timestamp decides season membership

	mem := store.NewMemory()
	seedLeague(mem)
	engine := newTestEngine(mem)
	ctx := context.Background()

	addYellowCard(mem, "c1", "alex", "m-gone", march(15))

	summary, err := engine.CardSummary(ctx, "alex", march(10))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CurrentSeasonYellow)

	summary, err = engine.CardSummary(ctx, "alex", march(20))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.CurrentSeasonYellow)
	assert.Equal(t, 1, summary.AllMatchYellow)
}

func TestCardSummary_MissingMember_Rejected(t *testing.T) {
	mem := store.NewMemory()
	engine := newTestEngine(mem)

	_, err := engine.CardSummary(context.Background(), "", march(1))
	assert.ErrorIs(t, err, discipline.ErrMissingMember)
}

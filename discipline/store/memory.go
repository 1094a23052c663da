// Package store provides in-memory implementations of the discipline
// storage and collaborator interfaces, for testing and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/discipline-engine/discipline"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements discipline.TxStore, discipline.EventTimeline and
// discipline.CardSource in memory.
type Memory struct {
	mu          sync.RWMutex
	suspensions map[discipline.SuspensionID]discipline.Suspension
	events      map[discipline.EventID]discipline.Event
	matches     map[discipline.MatchID]discipline.Match
	matchCards  map[discipline.CardID]discipline.MatchCardRecord
	records     map[discipline.RecordID]discipline.DisciplinaryRecord
}

func NewMemory() *Memory {
	return &Memory{
		suspensions: make(map[discipline.SuspensionID]discipline.Suspension),
		events:      make(map[discipline.EventID]discipline.Event),
		matches:     make(map[discipline.MatchID]discipline.Match),
		matchCards:  make(map[discipline.CardID]discipline.MatchCardRecord),
		records:     make(map[discipline.RecordID]discipline.DisciplinaryRecord),
	}
}

// =============================================================================
// SEEDING - League fixtures (events, matches, cards, records)
// =============================================================================

func (m *Memory) AddEvent(e discipline.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = e
}

func (m *Memory) AddMatch(match discipline.Match) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches[match.ID] = match
}

func (m *Memory) AddMatchCard(c discipline.MatchCardRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchCards[c.ID] = c
}

func (m *Memory) AddDisciplinaryRecord(r discipline.DisciplinaryRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = r
}

// =============================================================================
// EVENT TIMELINE
// =============================================================================

func (m *Memory) ListEvents(_ context.Context) ([]discipline.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]discipline.Event, 0, len(m.events))
	for _, e := range m.events {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].OccursAt.Before(events[j].OccursAt)
	})
	return events, nil
}

func (m *Memory) EventTimestamp(_ context.Context, id discipline.EventID) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[id]
	if !ok {
		return time.Time{}, discipline.ErrEventNotFound
	}
	return e.OccursAt, nil
}

func (m *Memory) FindMatch(_ context.Context, id discipline.MatchID) (discipline.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	match, ok := m.matches[id]
	if !ok {
		return discipline.Match{}, discipline.ErrMatchNotFound
	}
	return match, nil
}

// =============================================================================
// CARD SOURCE
// =============================================================================

func (m *Memory) ListMatchCards(_ context.Context, f discipline.CardFilter) ([]discipline.MatchCardRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []discipline.MatchCardRecord
	for _, c := range m.matchCards {
		if f.MemberID != nil && c.MemberID != *f.MemberID {
			continue
		}
		if f.MatchID != nil && c.MatchID != *f.MatchID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchAt.Before(out[j].MatchAt) })
	return out, nil
}

func (m *Memory) ListDisciplinaryRecords(_ context.Context, f discipline.RecordFilter) ([]discipline.DisciplinaryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []discipline.DisciplinaryRecord
	for _, r := range m.records {
		if f.MemberID != nil && r.MemberID != *f.MemberID {
			continue
		}
		if f.TeamID != nil && r.TeamID != *f.TeamID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IncidentAt.Before(out[j].IncidentAt) })
	return out, nil
}

// =============================================================================
// SUSPENSION STORE
// =============================================================================

func (m *Memory) Insert(_ context.Context, s discipline.Suspension) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(s)
}

func (m *Memory) Get(_ context.Context, id discipline.SuspensionID) (discipline.Suspension, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id)
}

func (m *Memory) Update(_ context.Context, s discipline.Suspension) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(s)
}

func (m *Memory) Delete(_ context.Context, id discipline.SuspensionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(id)
}

func (m *Memory) List(_ context.Context, f discipline.SuspensionFilter) ([]discipline.Suspension, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(f), nil
}

func (m *Memory) DeleteMatchCard(_ context.Context, id discipline.CardID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteMatchCardLocked(id)
}

func (m *Memory) insertLocked(s discipline.Suspension) error {
	m.suspensions[s.ID] = s
	return nil
}

func (m *Memory) getLocked(id discipline.SuspensionID) (discipline.Suspension, error) {
	s, ok := m.suspensions[id]
	if !ok {
		return discipline.Suspension{}, discipline.ErrSuspensionNotFound
	}
	return s, nil
}

func (m *Memory) updateLocked(s discipline.Suspension) error {
	if _, ok := m.suspensions[s.ID]; !ok {
		return discipline.ErrSuspensionNotFound
	}
	m.suspensions[s.ID] = s
	return nil
}

func (m *Memory) deleteLocked(id discipline.SuspensionID) error {
	if _, ok := m.suspensions[id]; !ok {
		return discipline.ErrSuspensionNotFound
	}
	delete(m.suspensions, id)
	return nil
}

func (m *Memory) listLocked(f discipline.SuspensionFilter) []discipline.Suspension {
	var out []discipline.Suspension
	for _, s := range m.suspensions {
		if f.MemberID != nil && s.MemberID != *f.MemberID {
			continue
		}
		if f.Status != nil && s.Status != *f.Status {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *Memory) deleteMatchCardLocked(id discipline.CardID) error {
	if _, ok := m.matchCards[id]; !ok {
		return discipline.ErrCardNotFound
	}
	delete(m.matchCards, id)
	return nil
}

// =============================================================================
// TRANSACTIONS - Simulated with snapshot + rollback on error
// =============================================================================

// WithTx executes fn against a view of the store. On error the
// suspension and card maps are restored to their pre-transaction state.
func (m *Memory) WithTx(_ context.Context, fn func(discipline.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshotLocked()
	if err := fn(&txView{parent: m}); err != nil {
		m.restoreLocked(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	suspensions map[discipline.SuspensionID]discipline.Suspension
	matchCards  map[discipline.CardID]discipline.MatchCardRecord
}

func (m *Memory) snapshotLocked() memorySnapshot {
	subs := make(map[discipline.SuspensionID]discipline.Suspension, len(m.suspensions))
	for k, v := range m.suspensions {
		subs[k] = v
	}
	cards := make(map[discipline.CardID]discipline.MatchCardRecord, len(m.matchCards))
	for k, v := range m.matchCards {
		cards[k] = v
	}
	return memorySnapshot{suspensions: subs, matchCards: cards}
}

func (m *Memory) restoreLocked(s memorySnapshot) {
	m.suspensions = s.suspensions
	m.matchCards = s.matchCards
}

// txView routes Store calls to the parent's unlocked methods; the
// parent holds the lock for the duration of WithTx.
type txView struct {
	parent *Memory
}

func (tv *txView) Insert(_ context.Context, s discipline.Suspension) error {
	return tv.parent.insertLocked(s)
}

func (tv *txView) Get(_ context.Context, id discipline.SuspensionID) (discipline.Suspension, error) {
	return tv.parent.getLocked(id)
}

func (tv *txView) Update(_ context.Context, s discipline.Suspension) error {
	return tv.parent.updateLocked(s)
}

func (tv *txView) Delete(_ context.Context, id discipline.SuspensionID) error {
	return tv.parent.deleteLocked(id)
}

func (tv *txView) List(_ context.Context, f discipline.SuspensionFilter) ([]discipline.Suspension, error) {
	return tv.parent.listLocked(f), nil
}

func (tv *txView) DeleteMatchCard(_ context.Context, id discipline.CardID) error {
	return tv.parent.deleteMatchCardLocked(id)
}

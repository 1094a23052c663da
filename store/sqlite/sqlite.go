/*
Package sqlite provides a SQLite-backed implementation of the discipline
storage interfaces.

PURPOSE:
  Implements discipline.TxStore, discipline.EventTimeline and
  discipline.CardSource using SQLite. In production the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  suspensions:          Engine-owned suspension ledger
  events:               League event timeline (read-only fixtures)
  matches:              Match-to-event links and scheduled kickoffs
  match_cards:          Card issuances per match
  disciplinary_records: Lifetime disciplinary history

OWNERSHIP:
  The engine writes only to suspensions, plus the single
  suspension-linked match-card deletion performed during retraction.
  Everything else is populated by the host application through the
  Put* fixture methods.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so reconciliation
  write transactions do not block eligibility reads.

CONCURRENCY:
  Uses sync.RWMutex around write transactions. With PostgreSQL,
  database-level concurrency control handles this instead.

USAGE:
  store, err := sqlite.New("./data/league.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := discipline.New(store, store, store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - discipline/ledger.go: Interface definitions
  - discipline/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/discipline-engine/discipline"
)

const timeFormat = time.RFC3339Nano

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Engine-owned suspension ledger
	CREATE TABLE IF NOT EXISTS suspensions (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		card_source_id TEXT,
		event_count INTEGER NOT NULL,
		starts_at TEXT NOT NULL,
		events_remaining INTEGER NOT NULL,
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		served_at TEXT
	);

	-- Hot path: active suspensions per member (eligibility checks)
	CREATE INDEX IF NOT EXISTS idx_suspensions_member_status
		ON suspensions(member_id, status);
	CREATE INDEX IF NOT EXISTS idx_suspensions_status
		ON suspensions(status);
	CREATE INDEX IF NOT EXISTS idx_suspensions_card_source
		ON suspensions(card_source_id) WHERE card_source_id IS NOT NULL;

	-- League event timeline
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		occurs_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_occurs_at
		ON events(occurs_at);

	-- Matches link to their containing event
	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		starts_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_matches_event
		ON matches(event_id);

	-- Card issuances per match
	CREATE TABLE IF NOT EXISTS match_cards (
		id TEXT PRIMARY KEY,
		match_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		card_type TEXT NOT NULL,
		match_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_match_cards_member
		ON match_cards(member_id);
	CREATE INDEX IF NOT EXISTS idx_match_cards_match
		ON match_cards(match_id);

	-- Lifetime disciplinary history
	CREATE TABLE IF NOT EXISTS disciplinary_records (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		team_id TEXT NOT NULL DEFAULT '',
		card_type TEXT NOT NULL,
		incident_at TEXT NOT NULL,
		suspension_event_count INTEGER NOT NULL DEFAULT 0,
		suspension_served BOOLEAN NOT NULL DEFAULT FALSE,
		suspension_served_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_disciplinary_member
		ON disciplinary_records(member_id);
	CREATE INDEX IF NOT EXISTS idx_disciplinary_team
		ON disciplinary_records(team_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// EVENT TIMELINE
// =============================================================================

// ListEvents returns all events ascending by timestamp.
func (s *Store) ListEvents(ctx context.Context) ([]discipline.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, occurs_at FROM events ORDER BY occurs_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []discipline.Event
	for rows.Next() {
		var id, occursAt string
		if err := rows.Scan(&id, &occursAt); err != nil {
			return nil, err
		}
		at, err := parseTime(occursAt)
		if err != nil {
			return nil, err
		}
		events = append(events, discipline.Event{ID: discipline.EventID(id), OccursAt: at})
	}
	return events, rows.Err()
}

// EventTimestamp resolves one event's timestamp.
func (s *Store) EventTimestamp(ctx context.Context, id discipline.EventID) (time.Time, error) {
	var occursAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT occurs_at FROM events WHERE id = ?`, string(id)).Scan(&occursAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, discipline.ErrEventNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return parseTime(occursAt)
}

// FindMatch resolves a match to its containing event.
func (s *Store) FindMatch(ctx context.Context, id discipline.MatchID) (discipline.Match, error) {
	var eventID string
	var startsAt sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT event_id, starts_at FROM matches WHERE id = ?`, string(id)).
		Scan(&eventID, &startsAt)
	if errors.Is(err, sql.ErrNoRows) {
		return discipline.Match{}, discipline.ErrMatchNotFound
	}
	if err != nil {
		return discipline.Match{}, err
	}

	match := discipline.Match{ID: id, EventID: discipline.EventID(eventID)}
	if startsAt.Valid {
		at, err := parseTime(startsAt.String)
		if err != nil {
			return discipline.Match{}, err
		}
		match.StartsAt = &at
	}
	return match, nil
}

// =============================================================================
// CARD SOURCE
// =============================================================================

// ListMatchCards returns match cards matching the filter, oldest first.
func (s *Store) ListMatchCards(ctx context.Context, f discipline.CardFilter) ([]discipline.MatchCardRecord, error) {
	query := `SELECT id, match_id, member_id, card_type, match_at FROM match_cards WHERE 1=1`
	var args []any
	if f.MemberID != nil {
		query += ` AND member_id = ?`
		args = append(args, string(*f.MemberID))
	}
	if f.MatchID != nil {
		query += ` AND match_id = ?`
		args = append(args, string(*f.MatchID))
	}
	query += ` ORDER BY match_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list match cards: %w", err)
	}
	defer rows.Close()

	var cards []discipline.MatchCardRecord
	for rows.Next() {
		var id, matchID, memberID, cardType, matchAt string
		if err := rows.Scan(&id, &matchID, &memberID, &cardType, &matchAt); err != nil {
			return nil, err
		}
		at, err := parseTime(matchAt)
		if err != nil {
			return nil, err
		}
		cards = append(cards, discipline.MatchCardRecord{
			ID:       discipline.CardID(id),
			MatchID:  discipline.MatchID(matchID),
			MemberID: discipline.MemberID(memberID),
			Card:     discipline.CardType(cardType),
			MatchAt:  at,
		})
	}
	return cards, rows.Err()
}

// ListDisciplinaryRecords returns disciplinary records matching the
// filter, oldest first.
func (s *Store) ListDisciplinaryRecords(ctx context.Context, f discipline.RecordFilter) ([]discipline.DisciplinaryRecord, error) {
	query := `SELECT id, member_id, team_id, card_type, incident_at,
		suspension_event_count, suspension_served, suspension_served_at
		FROM disciplinary_records WHERE 1=1`
	var args []any
	if f.MemberID != nil {
		query += ` AND member_id = ?`
		args = append(args, string(*f.MemberID))
	}
	if f.TeamID != nil {
		query += ` AND team_id = ?`
		args = append(args, string(*f.TeamID))
	}
	query += ` ORDER BY incident_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list disciplinary records: %w", err)
	}
	defer rows.Close()

	var records []discipline.DisciplinaryRecord
	for rows.Next() {
		var id, memberID, teamID, cardType, incidentAt string
		var eventCount int
		var served bool
		var servedAt sql.NullString
		if err := rows.Scan(&id, &memberID, &teamID, &cardType, &incidentAt,
			&eventCount, &served, &servedAt); err != nil {
			return nil, err
		}
		at, err := parseTime(incidentAt)
		if err != nil {
			return nil, err
		}
		rec := discipline.DisciplinaryRecord{
			ID:                   discipline.RecordID(id),
			MemberID:             discipline.MemberID(memberID),
			TeamID:               discipline.TeamID(teamID),
			Card:                 discipline.CardType(cardType),
			IncidentAt:           at,
			SuspensionEventCount: eventCount,
			SuspensionServed:     served,
		}
		if servedAt.Valid {
			sat, err := parseTime(servedAt.String)
			if err != nil {
				return nil, err
			}
			rec.SuspensionServedAt = &sat
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// SUSPENSION STORE
// =============================================================================

func (s *Store) Insert(ctx context.Context, sus discipline.Suspension) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertSuspension(ctx, s.db, sus)
}

func (s *Store) Get(ctx context.Context, id discipline.SuspensionID) (discipline.Suspension, error) {
	return getSuspension(ctx, s.db, id)
}

func (s *Store) Update(ctx context.Context, sus discipline.Suspension) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateSuspension(ctx, s.db, sus)
}

func (s *Store) Delete(ctx context.Context, id discipline.SuspensionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteSuspension(ctx, s.db, id)
}

func (s *Store) List(ctx context.Context, f discipline.SuspensionFilter) ([]discipline.Suspension, error) {
	return listSuspensions(ctx, s.db, f)
}

func (s *Store) DeleteMatchCard(ctx context.Context, id discipline.CardID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteMatchCard(ctx, s.db, id)
}

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store discipline.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes Store calls through an open transaction.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Insert(ctx context.Context, sus discipline.Suspension) error {
	return insertSuspension(ctx, t.tx, sus)
}

func (t *txStore) Get(ctx context.Context, id discipline.SuspensionID) (discipline.Suspension, error) {
	return getSuspension(ctx, t.tx, id)
}

func (t *txStore) Update(ctx context.Context, sus discipline.Suspension) error {
	return updateSuspension(ctx, t.tx, sus)
}

func (t *txStore) Delete(ctx context.Context, id discipline.SuspensionID) error {
	return deleteSuspension(ctx, t.tx, id)
}

func (t *txStore) List(ctx context.Context, f discipline.SuspensionFilter) ([]discipline.Suspension, error) {
	return listSuspensions(ctx, t.tx, f)
}

func (t *txStore) DeleteMatchCard(ctx context.Context, id discipline.CardID) error {
	return deleteMatchCard(ctx, t.tx, id)
}

// =============================================================================
// SUSPENSION SQL (shared between Store and txStore)
// =============================================================================

func insertSuspension(ctx context.Context, q querier, sus discipline.Suspension) error {
	var cardSource sql.NullString
	if sus.CardSourceID != nil {
		cardSource = sql.NullString{String: string(*sus.CardSourceID), Valid: true}
	}
	var servedAt sql.NullString
	if sus.ServedAt != nil {
		servedAt = sql.NullString{String: sus.ServedAt.Format(timeFormat), Valid: true}
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO suspensions
			(id, member_id, reason, card_source_id, event_count, starts_at,
			 events_remaining, status, notes, created_at, served_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(sus.ID), string(sus.MemberID), string(sus.Reason), cardSource,
		sus.EventCount, sus.StartsAt.Format(timeFormat),
		sus.EventsRemaining, string(sus.Status), sus.Notes,
		sus.CreatedAt.Format(timeFormat), servedAt)
	if err != nil {
		return fmt.Errorf("failed to insert suspension: %w", err)
	}
	return nil
}

func getSuspension(ctx context.Context, q querier, id discipline.SuspensionID) (discipline.Suspension, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, member_id, reason, card_source_id, event_count, starts_at,
		       events_remaining, status, notes, created_at, served_at
		FROM suspensions WHERE id = ?`, string(id))

	sus, err := scanSuspension(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return discipline.Suspension{}, discipline.ErrSuspensionNotFound
	}
	return sus, err
}

func updateSuspension(ctx context.Context, q querier, sus discipline.Suspension) error {
	var servedAt sql.NullString
	if sus.ServedAt != nil {
		servedAt = sql.NullString{String: sus.ServedAt.Format(timeFormat), Valid: true}
	}

	res, err := q.ExecContext(ctx, `
		UPDATE suspensions
		SET events_remaining = ?, status = ?, notes = ?, served_at = ?
		WHERE id = ?`,
		sus.EventsRemaining, string(sus.Status), sus.Notes, servedAt, string(sus.ID))
	if err != nil {
		return fmt.Errorf("failed to update suspension: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return discipline.ErrSuspensionNotFound
	}
	return nil
}

func deleteSuspension(ctx context.Context, q querier, id discipline.SuspensionID) error {
	res, err := q.ExecContext(ctx, `DELETE FROM suspensions WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete suspension: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return discipline.ErrSuspensionNotFound
	}
	return nil
}

func listSuspensions(ctx context.Context, q querier, f discipline.SuspensionFilter) ([]discipline.Suspension, error) {
	query := `SELECT id, member_id, reason, card_source_id, event_count, starts_at,
		events_remaining, status, notes, created_at, served_at
		FROM suspensions WHERE 1=1`
	var args []any
	if f.MemberID != nil {
		query += ` AND member_id = ?`
		args = append(args, string(*f.MemberID))
	}
	if f.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*f.Status))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list suspensions: %w", err)
	}
	defer rows.Close()

	var out []discipline.Suspension
	for rows.Next() {
		sus, err := scanSuspension(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, sus)
	}
	return out, rows.Err()
}

func deleteMatchCard(ctx context.Context, q querier, id discipline.CardID) error {
	res, err := q.ExecContext(ctx, `DELETE FROM match_cards WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete match card: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return discipline.ErrCardNotFound
	}
	return nil
}

func scanSuspension(scan func(...any) error) (discipline.Suspension, error) {
	var id, memberID, reason, startsAt, status, notes, createdAt string
	var cardSource, servedAt sql.NullString
	var eventCount, remaining int

	err := scan(&id, &memberID, &reason, &cardSource, &eventCount, &startsAt,
		&remaining, &status, &notes, &createdAt, &servedAt)
	if err != nil {
		return discipline.Suspension{}, err
	}

	sus := discipline.Suspension{
		ID:              discipline.SuspensionID(id),
		MemberID:        discipline.MemberID(memberID),
		Reason:          discipline.SuspensionReason(reason),
		EventCount:      eventCount,
		EventsRemaining: remaining,
		Status:          discipline.SuspensionStatus(status),
		Notes:           notes,
	}
	if sus.StartsAt, err = parseTime(startsAt); err != nil {
		return discipline.Suspension{}, err
	}
	if sus.CreatedAt, err = parseTime(createdAt); err != nil {
		return discipline.Suspension{}, err
	}
	if cardSource.Valid {
		mid := discipline.MatchID(cardSource.String)
		sus.CardSourceID = &mid
	}
	if servedAt.Valid {
		at, err := parseTime(servedAt.String)
		if err != nil {
			return discipline.Suspension{}, err
		}
		sus.ServedAt = &at
	}
	return sus, nil
}

// =============================================================================
// FIXTURES
// =============================================================================

// PutEvent upserts a league event. Host-application data, not engine-owned.
func (s *Store) PutEvent(ctx context.Context, e discipline.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO events (id, occurs_at) VALUES (?, ?)`,
		string(e.ID), e.OccursAt.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("failed to put event: %w", err)
	}
	return nil
}

// PutMatch upserts a match.
func (s *Store) PutMatch(ctx context.Context, m discipline.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var startsAt sql.NullString
	if m.StartsAt != nil {
		startsAt = sql.NullString{String: m.StartsAt.Format(timeFormat), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO matches (id, event_id, starts_at) VALUES (?, ?, ?)`,
		string(m.ID), string(m.EventID), startsAt)
	if err != nil {
		return fmt.Errorf("failed to put match: %w", err)
	}
	return nil
}

// PutMatchCard upserts a card issuance.
func (s *Store) PutMatchCard(ctx context.Context, c discipline.MatchCardRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO match_cards (id, match_id, member_id, card_type, match_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(c.ID), string(c.MatchID), string(c.MemberID),
		string(c.Card), c.MatchAt.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("failed to put match card: %w", err)
	}
	return nil
}

// PutDisciplinaryRecord upserts a lifetime disciplinary record.
func (s *Store) PutDisciplinaryRecord(ctx context.Context, r discipline.DisciplinaryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var servedAt sql.NullString
	if r.SuspensionServedAt != nil {
		servedAt = sql.NullString{String: r.SuspensionServedAt.Format(timeFormat), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO disciplinary_records
			(id, member_id, team_id, card_type, incident_at,
			 suspension_event_count, suspension_served, suspension_served_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.ID), string(r.MemberID), string(r.TeamID), string(r.Card),
		r.IncidentAt.Format(timeFormat), r.SuspensionEventCount,
		r.SuspensionServed, servedAt)
	if err != nil {
		return fmt.Errorf("failed to put disciplinary record: %w", err)
	}
	return nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

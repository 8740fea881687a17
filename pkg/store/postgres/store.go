// Package postgres persists players, matches and settlement results.
//
// Settlement is write-once: ApplySettlement commits both rating updates
// and the match's derived fields in a single transaction guarded by
// processed = false, so a concurrent settler can never double-apply a
// rating delta. Lifecycle transitions use conditional updates keyed on
// the current locked/status fields for the same reason.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/tbreck/courtside/pkg/engine"
	"github.com/tbreck/courtside/pkg/engine/lifecycle"
	"github.com/tbreck/courtside/pkg/engine/names"
)

// ErrNotFound is returned when a player or match does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the platform database.
type Store struct {
	db *sql.DB
}

// Open connects to the database and verifies the connection.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

const matchColumns = `id, player_a_id, player_b_id, score_a, score_b,
	status, locked, processed, start_time, lock_time,
	prob_a, prob_b, points_favorite, points_underdog`

func scanMatch(row interface{ Scan(...any) error }) (*engine.Match, error) {
	var m engine.Match
	var status int
	var lockTime sql.NullTime
	var probA, probB sql.NullFloat64
	var ptsFav, ptsDog sql.NullInt64
	err := row.Scan(
		&m.ID, &m.PlayerAID, &m.PlayerBID, &m.ScoreA, &m.ScoreB,
		&status, &m.Locked, &m.Processed, &m.StartTime, &lockTime,
		&probA, &probB, &ptsFav, &ptsDog,
	)
	if err != nil {
		return nil, err
	}
	m.Status = engine.MatchStatus(status)
	if lockTime.Valid {
		t := lockTime.Time
		m.LockTime = &t
	}
	// Derived columns are NULL until settlement.
	m.ProbA = probA.Float64
	m.ProbB = probB.Float64
	m.PointsFavorite = int(ptsFav.Int64)
	m.PointsUnderdog = int(ptsDog.Int64)
	return &m, nil
}

// Match fetches a match by id.
func (s *Store) Match(ctx context.Context, id string) (*engine.Match, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: match %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching match %s: %w", id, err)
	}
	return m, nil
}

// Player fetches a player by id.
func (s *Store) Player(ctx context.Context, id string) (*engine.Player, error) {
	var p engine.Player
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, rating FROM players WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Rating)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: player %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching player %s: %w", id, err)
	}
	return &p, nil
}

// PlayerByName fetches a player by normalized name key.
func (s *Store) PlayerByName(ctx context.Context, name string) (*engine.Player, error) {
	var p engine.Player
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, rating FROM players WHERE name_key = $1`,
		names.Normalize(name)).
		Scan(&p.ID, &p.Name, &p.Rating)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: player named %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching player %q: %w", name, err)
	}
	return &p, nil
}

// DueMatches returns matches that may need a lifecycle transition at
// the given instant: still upcoming or locked, with a lock or start
// deadline that has passed.
func (s *Store) DueMatches(ctx context.Context, now time.Time) ([]*engine.Match, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches
		 WHERE status < $1
		   AND (start_time <= $2
		        OR (lock_time IS NOT NULL AND lock_time <= $2 AND NOT locked))
		 ORDER BY start_time`,
		int(engine.StatusLive), now)
	if err != nil {
		return nil, fmt.Errorf("querying due matches: %w", err)
	}
	defer rows.Close()

	var matches []*engine.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning due match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// FinishedUnsettled returns finished matches with scores entered that
// have not been through settlement yet.
func (s *Store) FinishedUnsettled(ctx context.Context) ([]*engine.Match, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches
		 WHERE status = $1
		   AND processed = false
		   AND score_a IS NOT NULL
		   AND score_b IS NOT NULL
		 ORDER BY start_time`,
		int(engine.StatusFinished))
	if err != nil {
		return nil, fmt.Errorf("querying unsettled matches: %w", err)
	}
	defer rows.Close()

	var matches []*engine.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning unsettled match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// ApplyTransition persists one lifecycle transition. The update is
// conditional on the match still being in the state the transition was
// computed from; a concurrent scheduler that got there first makes this
// a no-op, reported via the returned bool.
func (s *Store) ApplyTransition(ctx context.Context, tr lifecycle.Transition) (bool, error) {
	var res sql.Result
	var err error

	switch tr.Type {
	case lifecycle.TransitionLock:
		res, err = s.db.ExecContext(ctx,
			`UPDATE matches SET locked = true
			 WHERE id = $1 AND locked = false AND status = $2`,
			tr.MatchID, int(engine.StatusUpcoming))
	case lifecycle.TransitionGoLive:
		res, err = s.db.ExecContext(ctx,
			`UPDATE matches SET status = $2
			 WHERE id = $1 AND status < $2`,
			tr.MatchID, int(engine.StatusLive))
	default:
		return false, fmt.Errorf("unknown transition type %v", tr.Type)
	}
	if err != nil {
		return false, fmt.Errorf("applying %s to match %s: %w", tr.Type, tr.MatchID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("applying %s to match %s: %w", tr.Type, tr.MatchID, err)
	}
	return n > 0, nil
}

// ApplySettlement commits a settled match and both updated players in
// one transaction. The match row update is guarded by processed = false;
// if another settler won the race the whole transaction rolls back and
// engine.ErrAlreadySettled is returned.
func (s *Store) ApplySettlement(ctx context.Context, m *engine.Match, a, b *engine.Player) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning settlement tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE matches
		 SET processed = true, prob_a = $2, prob_b = $3,
		     points_favorite = $4, points_underdog = $5
		 WHERE id = $1 AND processed = false`,
		m.ID, m.ProbA, m.ProbB, m.PointsFavorite, m.PointsUnderdog)
	if err != nil {
		return fmt.Errorf("updating match %s: %w", m.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating match %s: %w", m.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: match %s", engine.ErrAlreadySettled, m.ID)
	}

	for _, p := range []*engine.Player{a, b} {
		if _, err := tx.ExecContext(ctx,
			`UPDATE players SET rating = $2 WHERE id = $1`,
			p.ID, p.Rating); err != nil {
			return fmt.Errorf("updating player %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing settlement for match %s: %w", m.ID, err)
	}
	return nil
}

// RecordParlay stores a computed slip and its legs for the downstream
// grader. Legs are written in slip order so safe-bet grading can rebuild
// the odds product with any single leg removed.
func (s *Store) RecordParlay(ctx context.Context, slip *engine.ParlaySlip) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning parlay tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO parlay_slips
		 (id, user_id, stake, base_odds, bonus_multiplier, final_odds,
		  is_safe_bet, safe_bet_token_cost, leg_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		slip.ID, slip.UserID, slip.Stake, slip.BaseOdds, slip.BonusMultiplier,
		slip.FinalOdds, slip.IsSafeBet, slip.SafeBetTokenCost, len(slip.Legs),
		slip.CreatedAt); err != nil {
		return fmt.Errorf("recording parlay %s: %w", slip.ID, err)
	}

	for i, leg := range slip.Legs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO parlay_legs (slip_id, leg_index, match_id, pick, odds)
			 VALUES ($1, $2, $3, $4, $5)`,
			slip.ID, i, leg.MatchID, int(leg.Pick), leg.Odds); err != nil {
			return fmt.Errorf("recording parlay %s leg %d: %w", slip.ID, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing parlay %s: %w", slip.ID, err)
	}
	return nil
}

// Package engine defines the shared domain model for the Courtside
// match settlement and wagering engine: players, matches, prediction
// legs and parlay slips, plus the error taxonomy shared by the rating,
// lifecycle and parlay components.
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Player is a tennis player tracked by the rating engine.
// Players are created upstream; this engine only mutates Rating.
type Player struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
}

// MatchStatus represents where a match is in its lifecycle.
type MatchStatus int

const (
	StatusUpcoming MatchStatus = iota
	StatusLocked
	StatusLive
	StatusFinished
)

func (s MatchStatus) String() string {
	switch s {
	case StatusUpcoming:
		return "UPCOMING"
	case StatusLocked:
		return "LOCKED"
	case StatusLive:
		return "LIVE"
	case StatusFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Match is a scheduled or completed match between two players.
//
// ScoreA/ScoreB are nil until a result is entered. ProbA, ProbB,
// PointsFavorite and PointsUnderdog are derived by the rating engine at
// settlement time; once Processed is true they are final and the match
// must never be settled again.
type Match struct {
	ID        string `json:"id"`
	PlayerAID string `json:"player_a_id"`
	PlayerBID string `json:"player_b_id"`

	ScoreA *int `json:"score_a,omitempty"`
	ScoreB *int `json:"score_b,omitempty"`

	Status    MatchStatus `json:"status"`
	Locked    bool        `json:"locked"`
	Processed bool        `json:"processed"`

	StartTime time.Time  `json:"start_time"`
	LockTime  *time.Time `json:"lock_time,omitempty"`

	// Derived at settlement.
	ProbA          float64 `json:"prob_a"`
	ProbB          float64 `json:"prob_b"`
	PointsFavorite int     `json:"points_favorite"`
	PointsUnderdog int     `json:"points_underdog"`
}

// Pick is the outcome a prediction leg backs.
type Pick int

const (
	PickPlayerA Pick = iota
	PickPlayerB
)

func (p Pick) String() string {
	if p == PickPlayerB {
		return "PLAYER_B"
	}
	return "PLAYER_A"
}

// PredictionLeg is a single pick inside a parlay slip. Odds use the
// decimal odds convention and must be strictly greater than 1.
type PredictionLeg struct {
	MatchID string          `json:"match_id"`
	Pick    Pick            `json:"pick"`
	Odds    decimal.Decimal `json:"odds"`
}

// ParlaySlip is a combined wager over two or more legs. It is computed
// once at submission time and immutable after settlement.
type ParlaySlip struct {
	ID     string          `json:"id"`
	UserID string          `json:"user_id"`
	Legs   []PredictionLeg `json:"legs"`
	Stake  decimal.Decimal `json:"stake"`

	BaseOdds         decimal.Decimal `json:"base_odds"`
	BonusMultiplier  decimal.Decimal `json:"bonus_multiplier"`
	FinalOdds        decimal.Decimal `json:"final_odds"`
	IsSafeBet        bool            `json:"is_safe_bet"`
	SafeBetTokenCost int             `json:"safe_bet_token_cost"`

	CreatedAt time.Time `json:"created_at"`
}

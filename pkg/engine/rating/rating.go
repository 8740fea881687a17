// Package rating implements Elo settlement for finished matches: rating
// updates for both players, post-match win probabilities and the points
// payout split between favorite and underdog.
package rating

import (
	"fmt"
	"math"

	"github.com/tbreck/courtside/pkg/engine"
	"github.com/tbreck/courtside/pkg/engine/tuning"
)

// Engine settles finished matches against the shared tuning table.
type Engine struct {
	tuning *tuning.Tuning
}

// New creates a rating engine. A nil tuning uses the defaults.
func New(t *tuning.Tuning) *Engine {
	if t == nil {
		t = tuning.Default()
	}
	return &Engine{tuning: t}
}

// Result is the outcome of settling one match.
type Result struct {
	MatchID  string `json:"match_id"`
	WinnerID string `json:"winner_id"`
	LoserID  string `json:"loser_id"`

	// Delta is the rating points moved from loser to winner, before
	// the loser's floor clamp.
	Delta float64 `json:"delta"`

	NewRatingA float64 `json:"new_rating_a"`
	NewRatingB float64 `json:"new_rating_b"`

	ProbA          float64 `json:"prob_a"`
	ProbB          float64 `json:"prob_b"`
	PointsFavorite int     `json:"points_favorite"`
	PointsUnderdog int     `json:"points_underdog"`
}

// Settle applies a finished match's result to both players' ratings and
// derives the match's win probabilities and points split. The match and
// players are mutated in place; persisting the mutation atomically is
// the caller's job (see store.ApplySettlement).
//
// An already-processed match returns engine.ErrAlreadySettled and
// leaves every input untouched.
func (e *Engine) Settle(m *engine.Match, a, b *engine.Player) (*Result, error) {
	if m.Processed {
		return nil, fmt.Errorf("%w: match %s", engine.ErrAlreadySettled, m.ID)
	}
	if m.ScoreA == nil || m.ScoreB == nil {
		return nil, fmt.Errorf("%w: match %s has missing scores", engine.ErrIncompleteMatch, m.ID)
	}
	if *m.ScoreA == *m.ScoreB {
		return nil, fmt.Errorf("%w: match %s scored %d-%d", engine.ErrInvalidResult, m.ID, *m.ScoreA, *m.ScoreB)
	}
	if a.ID != m.PlayerAID || b.ID != m.PlayerBID {
		return nil, fmt.Errorf("%w: %s/%s vs match %s", engine.ErrPlayerMismatch, a.ID, b.ID, m.ID)
	}

	winner, loser := a, b
	if *m.ScoreB > *m.ScoreA {
		winner, loser = b, a
	}

	expected := expectedScore(winner.Rating, loser.Rating)
	delta := math.Round(e.tuning.KFactor * (1 - expected))

	winner.Rating += delta
	loser.Rating = math.Max(loser.Rating-delta, e.tuning.RatingFloor)

	// Probabilities come from the post-match ratings, in integer
	// hundredths so the rounded pair always sums to exactly 1.00, with
	// the favorite absorbing any rounding residual.
	rawA := expectedScore(a.Rating, b.Rating)
	pa := int(math.Round(rawA * 100))
	pb := int(math.Round((1 - rawA) * 100))
	if pa+pb != 100 {
		if pa >= pb {
			pa = 100 - pb
		} else {
			pb = 100 - pa
		}
	}
	probA := float64(pa) / 100
	probB := float64(pb) / 100

	fav := math.Max(probA, probB)

	scale := e.tuning.PointsScale
	pointsFav := clampInt(
		int(math.Round((1-fav)*scale))+e.tuning.FavoriteOffset,
		e.tuning.FavoriteOffset,
		e.tuning.FavoriteOffset+int(scale),
	)
	pointsDog := clampInt(
		int(math.Round(fav*scale))+e.tuning.UnderdogOffset,
		e.tuning.UnderdogOffset,
		e.tuning.UnderdogOffset+int(scale),
	)

	m.ProbA = probA
	m.ProbB = probB
	m.PointsFavorite = pointsFav
	m.PointsUnderdog = pointsDog
	m.Processed = true

	return &Result{
		MatchID:        m.ID,
		WinnerID:       winner.ID,
		LoserID:        loser.ID,
		Delta:          delta,
		NewRatingA:     a.Rating,
		NewRatingB:     b.Rating,
		ProbA:          probA,
		ProbB:          probB,
		PointsFavorite: pointsFav,
		PointsUnderdog: pointsDog,
	}, nil
}

// expectedScore is the logistic Elo expectation for a player rated r
// against an opponent rated opp.
func expectedScore(r, opp float64) float64 {
	return 1 / (1 + math.Pow(10, (opp-r)/400))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

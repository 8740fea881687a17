package rating

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/tbreck/courtside/pkg/engine"
)

func intPtr(v int) *int { return &v }

func newMatch(scoreA, scoreB *int) *engine.Match {
	return &engine.Match{
		ID:        "m1",
		PlayerAID: "p1",
		PlayerBID: "p2",
		ScoreA:    scoreA,
		ScoreB:    scoreB,
		Status:    engine.StatusFinished,
		StartTime: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newPlayers(ratingA, ratingB float64) (*engine.Player, *engine.Player) {
	return &engine.Player{ID: "p1", Name: "Player A", Rating: ratingA},
		&engine.Player{ID: "p2", Name: "Player B", Rating: ratingB}
}

func TestSettleEvenMatch(t *testing.T) {
	m := newMatch(intPtr(2), intPtr(0))
	a, b := newPlayers(1500, 1500)

	res, err := New(nil).Settle(m, a, b)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}

	if res.WinnerID != "p1" || res.LoserID != "p2" {
		t.Errorf("winner/loser = %s/%s, want p1/p2", res.WinnerID, res.LoserID)
	}
	if res.Delta != 16 {
		t.Errorf("delta = %v, want 16", res.Delta)
	}
	if a.Rating != 1516 || b.Rating != 1484 {
		t.Errorf("ratings = %v/%v, want 1516/1484", a.Rating, b.Rating)
	}
	if res.ProbA != 0.55 || res.ProbB != 0.45 {
		t.Errorf("probs = %v/%v, want 0.55/0.45", res.ProbA, res.ProbB)
	}
	// (1-0.55)*50 lands a hair under 22.5 in float64, so the favorite
	// rounds down to 22+10.
	if res.PointsFavorite != 32 {
		t.Errorf("points favorite = %d, want 32", res.PointsFavorite)
	}
	if res.PointsUnderdog != 68 {
		t.Errorf("points underdog = %d, want 68", res.PointsUnderdog)
	}
	if !m.Processed {
		t.Error("match should be marked processed")
	}
}

func TestSettlePlayerBWins(t *testing.T) {
	m := newMatch(intPtr(1), intPtr(2))
	a, b := newPlayers(1400, 1600)

	res, err := New(nil).Settle(m, a, b)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if res.WinnerID != "p2" {
		t.Errorf("winner = %s, want p2", res.WinnerID)
	}
	if b.Rating <= 1600 || a.Rating >= 1400 {
		t.Errorf("ratings = %v/%v, winner should gain and loser should drop", a.Rating, b.Rating)
	}
}

func TestSettleRatingConservation(t *testing.T) {
	m := newMatch(intPtr(2), intPtr(1))
	a, b := newPlayers(1620, 1480)

	res, err := New(nil).Settle(m, a, b)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}

	gain := a.Rating - 1620
	loss := 1480 - b.Rating
	if gain != loss {
		t.Errorf("gain %v != loss %v, delta should apply symmetrically", gain, loss)
	}
	if gain != res.Delta {
		t.Errorf("gain %v != reported delta %v", gain, res.Delta)
	}
}

func TestSettleClampsLoserAtFloor(t *testing.T) {
	// A near-even upset at the bottom of the ladder: delta is 16 but
	// the loser only has 5 points of room above the floor.
	m := newMatch(intPtr(2), intPtr(0))
	a, b := newPlayers(100, 105)

	res, err := New(nil).Settle(m, a, b)
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if b.Rating != 100 {
		t.Errorf("loser rating = %v, want floor 100", b.Rating)
	}
	if a.Rating != 100+res.Delta {
		t.Errorf("winner rating = %v, want %v", a.Rating, 100+res.Delta)
	}
}

func TestSettleTwiceIsNoOp(t *testing.T) {
	m := newMatch(intPtr(2), intPtr(0))
	a, b := newPlayers(1500, 1500)
	eng := New(nil)

	if _, err := eng.Settle(m, a, b); err != nil {
		t.Fatalf("first Settle: %v", err)
	}

	_, err := eng.Settle(m, a, b)
	if !errors.Is(err, engine.ErrAlreadySettled) {
		t.Fatalf("second Settle err = %v, want ErrAlreadySettled", err)
	}
	if a.Rating != 1516 || b.Rating != 1484 {
		t.Errorf("ratings changed on second settle: %v/%v", a.Rating, b.Rating)
	}
}

func TestSettleValidation(t *testing.T) {
	tests := []struct {
		name    string
		scoreA  *int
		scoreB  *int
		wantErr error
	}{
		{"missing both scores", nil, nil, engine.ErrIncompleteMatch},
		{"missing score B", intPtr(2), nil, engine.ErrIncompleteMatch},
		{"drawn score", intPtr(1), intPtr(1), engine.ErrInvalidResult},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMatch(tt.scoreA, tt.scoreB)
			a, b := newPlayers(1500, 1500)
			_, err := New(nil).Settle(m, a, b)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettleRejectsWrongPlayers(t *testing.T) {
	m := newMatch(intPtr(2), intPtr(0))
	a, b := newPlayers(1500, 1500)
	a.ID = "someone-else"

	_, err := New(nil).Settle(m, a, b)
	if !errors.Is(err, engine.ErrPlayerMismatch) {
		t.Errorf("err = %v, want %v", err, engine.ErrPlayerMismatch)
	}
	if m.Processed {
		t.Error("match marked processed despite mismatched players")
	}
}

func TestSettleProbabilitiesSumToOne(t *testing.T) {
	pairs := [][2]float64{
		{1500, 1500}, {1600, 1400}, {2000, 1100}, {3000, 100},
		{1510, 1490}, {1850, 1700}, {100, 2500},
	}

	for _, pair := range pairs {
		m := newMatch(intPtr(2), intPtr(0))
		a, b := newPlayers(pair[0], pair[1])
		res, err := New(nil).Settle(m, a, b)
		if err != nil {
			t.Fatalf("Settle(%v, %v): %v", pair[0], pair[1], err)
		}

		sum := int(math.Round(res.ProbA*100)) + int(math.Round(res.ProbB*100))
		if sum != 100 {
			t.Errorf("ratings %v/%v: probs %v + %v sum to %d hundredths, want 100",
				pair[0], pair[1], res.ProbA, res.ProbB, sum)
		}
		if res.PointsFavorite < 10 || res.PointsFavorite > 60 {
			t.Errorf("ratings %v/%v: points favorite %d outside [10,60]", pair[0], pair[1], res.PointsFavorite)
		}
		if res.PointsUnderdog < 40 || res.PointsUnderdog > 90 {
			t.Errorf("ratings %v/%v: points underdog %d outside [40,90]", pair[0], pair[1], res.PointsUnderdog)
		}
	}
}

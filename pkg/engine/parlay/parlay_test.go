package parlay

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tbreck/courtside/pkg/engine"
)

func legsFromOdds(odds ...float64) []engine.PredictionLeg {
	legs := make([]engine.PredictionLeg, 0, len(odds))
	for i, o := range odds {
		legs = append(legs, engine.PredictionLeg{
			MatchID: string(rune('a' + i)),
			Pick:    engine.PickPlayerA,
			Odds:    decimal.NewFromFloat(o),
		})
	}
	return legs
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeTwoLegsNoBonus(t *testing.T) {
	res, err := New(nil).Compute(legsFromOdds(2.0, 3.0), decimal.NewFromInt(10), false, 0)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if !res.BaseOdds.Equal(dec("6")) {
		t.Errorf("base odds = %s, want 6", res.BaseOdds)
	}
	if !res.BonusMultiplier.Equal(dec("1")) {
		t.Errorf("bonus multiplier = %s, want 1", res.BonusMultiplier)
	}
	if !res.FinalOdds.Equal(dec("6")) {
		t.Errorf("final odds = %s, want 6", res.FinalOdds)
	}
	if !res.PotentialWinnings.Equal(dec("60")) {
		t.Errorf("potential winnings = %s, want 60", res.PotentialWinnings)
	}
	if len(res.AppliedBonuses) != 0 {
		t.Errorf("applied bonuses = %v, want none at 2 legs", res.AppliedBonuses)
	}
}

func TestComputeFourLegTier(t *testing.T) {
	res, err := New(nil).Compute(legsFromOdds(1.5, 1.5, 1.5, 1.5), decimal.NewFromInt(20), false, 0)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if !res.BaseOdds.Equal(dec("5.0625")) {
		t.Errorf("base odds = %s, want 5.0625", res.BaseOdds)
	}
	if !res.BonusMultiplier.Equal(dec("1.1")) {
		t.Errorf("bonus multiplier = %s, want 1.1", res.BonusMultiplier)
	}
	if !res.FinalOdds.Equal(dec("5.56875")) {
		t.Errorf("final odds = %s, want 5.56875", res.FinalOdds)
	}
	if len(res.AppliedBonuses) != 1 {
		t.Fatalf("applied bonuses = %v, want one entry", res.AppliedBonuses)
	}
	if res.AppliedBonuses[0] != "4-leg parlay bonus: +10%" {
		t.Errorf("bonus description = %q", res.AppliedBonuses[0])
	}
}

func TestComputeTierBoundaries(t *testing.T) {
	tests := []struct {
		legs       int
		multiplier string
	}{
		{2, "1"},
		{3, "1"},
		{4, "1.1"},
		{5, "1.1"},
		{6, "1.2"},
		{7, "1.2"},
		{8, "1.3"},
		{10, "1.3"},
	}

	for _, tt := range tests {
		odds := make([]float64, tt.legs)
		for i := range odds {
			odds[i] = 1.5
		}
		res, err := New(nil).Compute(legsFromOdds(odds...), decimal.NewFromInt(5), false, 0)
		if err != nil {
			t.Fatalf("Compute(%d legs): %v", tt.legs, err)
		}
		if !res.BonusMultiplier.Equal(dec(tt.multiplier)) {
			t.Errorf("%d legs: multiplier = %s, want %s", tt.legs, res.BonusMultiplier, tt.multiplier)
		}
	}
}

func TestComputeSafeBetGranted(t *testing.T) {
	res, err := New(nil).Compute(legsFromOdds(2.0, 2.0, 2.0), decimal.NewFromInt(10), true, 20)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !res.IsSafeBet {
		t.Error("safe bet should be granted with 20 tokens against a cost of 15")
	}
	if res.SafeBetTokenCost != 15 {
		t.Errorf("token cost = %d, want 15", res.SafeBetTokenCost)
	}
}

func TestComputeSafeBetDeclinedOnTokens(t *testing.T) {
	// 3 legs cost 15 tokens; 10 available. Insurance silently declines,
	// the slip itself still computes.
	res, err := New(nil).Compute(legsFromOdds(2.0, 2.0, 2.0), decimal.NewFromInt(10), true, 10)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if res.IsSafeBet {
		t.Error("safe bet should be declined with insufficient tokens")
	}
	if res.SafeBetTokenCost != 0 {
		t.Errorf("token cost = %d, want 0 when declined", res.SafeBetTokenCost)
	}
	if !res.BaseOdds.Equal(dec("8")) {
		t.Errorf("base odds = %s, want 8", res.BaseOdds)
	}
}

func TestComputeValidation(t *testing.T) {
	tests := []struct {
		name    string
		legs    []engine.PredictionLeg
		stake   decimal.Decimal
		wantErr error
	}{
		{"no legs", nil, decimal.NewFromInt(10), engine.ErrNotAParlay},
		{"single leg", legsFromOdds(2.0), decimal.NewFromInt(10), engine.ErrNotAParlay},
		{"odds of exactly one", legsFromOdds(2.0, 1.0), decimal.NewFromInt(10), engine.ErrInvalidOdds},
		{"odds below one", legsFromOdds(0.9, 2.0), decimal.NewFromInt(10), engine.ErrInvalidOdds},
		{"zero stake", legsFromOdds(2.0, 3.0), decimal.Zero, engine.ErrInvalidStake},
		{"negative stake", legsFromOdds(2.0, 3.0), decimal.NewFromInt(-5), engine.ErrInvalidStake},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil).Compute(tt.legs, tt.stake, false, 0)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// Package parlay combines independent prediction legs into a single
// wager: multiplicative base odds, leg-count bonus tiers and the
// safe-bet insurance toggle.
package parlay

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tbreck/courtside/pkg/engine"
	"github.com/tbreck/courtside/pkg/engine/tuning"
)

// Calculator computes parlay slips against the shared tuning table. It
// is stateless and safe for concurrent use.
type Calculator struct {
	tuning  *tuning.Tuning
	printer *message.Printer
}

// New creates a parlay calculator. A nil tuning uses the defaults.
func New(t *tuning.Tuning) *Calculator {
	if t == nil {
		t = tuning.Default()
	}
	return &Calculator{
		tuning:  t,
		printer: message.NewPrinter(language.English),
	}
}

// Result is the computed slip. BaseOdds, BonusMultiplier and FinalOdds
// are fixed at submission time; AppliedBonuses is the display-ready
// description of the tiers that applied and travels with the numbers
// because it is not re-derivable downstream.
//
// IsSafeBet and SafeBetTokenCost record insurance eligibility only. The
// grader downstream owns the covered-loss semantics: an insured slip
// still pays out if exactly one leg loses, as if that leg had been
// removed before multiplying odds.
type Result struct {
	BaseOdds          decimal.Decimal `json:"base_odds"`
	BonusMultiplier   decimal.Decimal `json:"bonus_multiplier"`
	FinalOdds         decimal.Decimal `json:"final_odds"`
	PotentialWinnings decimal.Decimal `json:"potential_winnings"`
	IsSafeBet         bool            `json:"is_safe_bet"`
	SafeBetTokenCost  int             `json:"safe_bet_token_cost"`
	AppliedBonuses    []string        `json:"applied_bonuses"`
}

// Compute validates the legs and stake and produces the slip numbers.
//
// Insurance is a best-effort upsell: when the caller cannot afford the
// token cost the slip is computed uninsured rather than rejected.
func (c *Calculator) Compute(legs []engine.PredictionLeg, stake decimal.Decimal, safeBetRequested bool, availableTokens int) (*Result, error) {
	one := decimal.NewFromInt(1)

	if len(legs) < c.tuning.MinParlayLegs {
		return nil, fmt.Errorf("%w: got %d", engine.ErrNotAParlay, len(legs))
	}
	if stake.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: got %s", engine.ErrInvalidStake, stake)
	}
	for i, leg := range legs {
		if leg.Odds.LessThanOrEqual(one) {
			return nil, fmt.Errorf("%w: leg %d (match %s) has odds %s", engine.ErrInvalidOdds, i, leg.MatchID, leg.Odds)
		}
	}

	baseOdds := one
	for _, leg := range legs {
		baseOdds = baseOdds.Mul(leg.Odds)
	}

	bonus := c.tuning.BonusFor(len(legs))
	bonusMultiplier := one.Add(decimal.NewFromFloat(bonus))
	finalOdds := baseOdds.Mul(bonusMultiplier)

	var applied []string
	if bonus > 0 {
		applied = append(applied, c.printer.Sprintf("%d-leg parlay bonus: +%d%%",
			len(legs), int(math.Round(bonus*100))))
	}

	res := &Result{
		BaseOdds:          baseOdds,
		BonusMultiplier:   bonusMultiplier,
		FinalOdds:         finalOdds,
		PotentialWinnings: stake.Mul(finalOdds),
		AppliedBonuses:    applied,
	}

	if safeBetRequested {
		cost := len(legs) * c.tuning.SafeBetUnitCost
		if availableTokens >= cost {
			res.IsSafeBet = true
			res.SafeBetTokenCost = cost
		}
	}

	return res, nil
}

// Package tuning holds the business-tunable numeric constants shared by
// the rating, lifecycle and parlay components. The values ship with
// documented defaults and can be overridden from a YAML file so that
// product changes to the formulas do not require a code change.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BonusTier maps a minimum leg count to a parlay bonus percentage.
// Tiers are inclusive at MinLegs; the highest tier at or below the leg
// count applies.
type BonusTier struct {
	MinLegs int     `yaml:"min_legs" json:"min_legs"`
	Bonus   float64 `yaml:"bonus" json:"bonus"`
}

// Tuning is the shared constants table.
type Tuning struct {
	// Elo settlement.
	KFactor     float64 `yaml:"k_factor" json:"k_factor"`
	RatingFloor float64 `yaml:"rating_floor" json:"rating_floor"`

	// Points split. pointsFavorite = round((1-fav)*PointsScale) +
	// FavoriteOffset, pointsUnderdog = round(fav*PointsScale) +
	// UnderdogOffset, each clamped to [offset, offset+scale].
	PointsScale    float64 `yaml:"points_scale" json:"points_scale"`
	FavoriteOffset int     `yaml:"favorite_offset" json:"favorite_offset"`
	UnderdogOffset int     `yaml:"underdog_offset" json:"underdog_offset"`

	// Parlay.
	MinParlayLegs   int         `yaml:"min_parlay_legs" json:"min_parlay_legs"`
	BonusTiers      []BonusTier `yaml:"bonus_tiers" json:"bonus_tiers"`
	SafeBetUnitCost int         `yaml:"safe_bet_unit_cost" json:"safe_bet_unit_cost"`
}

// Default returns the production constants table.
func Default() *Tuning {
	return &Tuning{
		KFactor:     32,
		RatingFloor: 100,

		PointsScale:    50,
		FavoriteOffset: 10,
		UnderdogOffset: 40,

		MinParlayLegs: 2,
		BonusTiers: []BonusTier{
			{MinLegs: 2, Bonus: 0},
			{MinLegs: 4, Bonus: 0.10},
			{MinLegs: 6, Bonus: 0.20},
			{MinLegs: 8, Bonus: 0.30},
		},
		SafeBetUnitCost: 5,
	}
}

// LoadFile reads YAML overrides from path on top of the defaults.
func LoadFile(path string) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tuning file: %w", err)
	}

	t := Default()
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parsing tuning file: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("tuning file %s: %w", path, err)
	}
	return t, nil
}

// Validate checks the table for values the engine cannot work with.
func (t *Tuning) Validate() error {
	if t.KFactor <= 0 {
		return fmt.Errorf("k_factor must be positive, got %v", t.KFactor)
	}
	if t.RatingFloor <= 0 {
		return fmt.Errorf("rating_floor must be positive, got %v", t.RatingFloor)
	}
	if t.PointsScale <= 0 {
		return fmt.Errorf("points_scale must be positive, got %v", t.PointsScale)
	}
	if t.MinParlayLegs < 2 {
		return fmt.Errorf("min_parlay_legs must be at least 2, got %d", t.MinParlayLegs)
	}
	if len(t.BonusTiers) == 0 {
		return fmt.Errorf("bonus_tiers must not be empty")
	}
	for i, tier := range t.BonusTiers {
		if tier.Bonus < 0 {
			return fmt.Errorf("bonus_tiers[%d]: bonus must not be negative", i)
		}
		if i == 0 {
			continue
		}
		prev := t.BonusTiers[i-1]
		if tier.MinLegs <= prev.MinLegs || tier.Bonus < prev.Bonus {
			return fmt.Errorf("bonus_tiers must be monotonic, tier %d breaks the order", i)
		}
	}
	if t.SafeBetUnitCost < 0 {
		return fmt.Errorf("safe_bet_unit_cost must not be negative, got %d", t.SafeBetUnitCost)
	}
	return nil
}

// BonusFor returns the bonus percentage for a leg count: the highest
// tier whose MinLegs is at or below legCount.
func (t *Tuning) BonusFor(legCount int) float64 {
	bonus := 0.0
	for _, tier := range t.BonusTiers {
		if legCount >= tier.MinLegs {
			bonus = tier.Bonus
		}
	}
	return bonus
}

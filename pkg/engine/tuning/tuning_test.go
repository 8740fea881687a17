package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default tuning should validate: %v", err)
	}
}

func TestBonusFor(t *testing.T) {
	tun := Default()

	tests := []struct {
		legs int
		want float64
	}{
		{2, 0},
		{3, 0},
		{4, 0.10},
		{5, 0.10},
		{6, 0.20},
		{7, 0.20},
		{8, 0.30},
		{12, 0.30},
	}

	for _, tt := range tests {
		if got := tun.BonusFor(tt.legs); got != tt.want {
			t.Errorf("BonusFor(%d) = %v, want %v", tt.legs, got, tt.want)
		}
	}
}

func TestValidateRejectsBadTables(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tuning)
	}{
		{"zero k factor", func(tu *Tuning) { tu.KFactor = 0 }},
		{"negative floor", func(tu *Tuning) { tu.RatingFloor = -1 }},
		{"one-leg parlay", func(tu *Tuning) { tu.MinParlayLegs = 1 }},
		{"empty tiers", func(tu *Tuning) { tu.BonusTiers = nil }},
		{"non-monotonic tiers", func(tu *Tuning) {
			tu.BonusTiers = []BonusTier{{MinLegs: 2, Bonus: 0.2}, {MinLegs: 4, Bonus: 0.1}}
		}},
		{"negative token cost", func(tu *Tuning) { tu.SafeBetUnitCost = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tun := Default()
			tt.mutate(tun)
			if err := tun.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	content := "k_factor: 24\nsafe_bet_unit_cost: 10\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tun, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if tun.KFactor != 24 {
		t.Errorf("KFactor = %v, want 24", tun.KFactor)
	}
	if tun.SafeBetUnitCost != 10 {
		t.Errorf("SafeBetUnitCost = %d, want 10", tun.SafeBetUnitCost)
	}
	// Untouched keys keep their defaults.
	if tun.RatingFloor != 100 {
		t.Errorf("RatingFloor = %v, want default 100", tun.RatingFloor)
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte("k_factor: -3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for invalid tuning file")
	}
}

package names

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Rafael Nadal", "rafael nadal"},
		{"  Rafael   Nadal ", "rafael nadal"},
		{"MUÑOZ", "munoz"},
		{"Gaël Monfils", "gael monfils"},
		{"Björn Borg", "bjorn borg"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeStable(t *testing.T) {
	// Normalizing twice must be a fixed point.
	in := "José María Muñoz"
	once := Normalize(in)
	if twice := Normalize(once); twice != once {
		t.Errorf("Normalize not idempotent: %q -> %q", once, twice)
	}
}

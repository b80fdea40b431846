package snapshot

import (
	"testing"

	"github.com/okian/muster/internal/domain/model"
)

func TestNormalizePhase(t *testing.T) {
	cases := []struct {
		in    string
		want  string
		known bool
	}{
		{"", model.PhaseAny, true},
		{"Fight phase", "Fight phase", true},
		{"fight PHASE", "Fight phase", true},
		{"  Any phase  ", model.PhaseAny, true},
		{"your shooting phase", "Shooting phase", true},
		{"opponent's charge phase", "Enemy Charge phase", true},
		{"Movement or Shooting phase", "Movement phase", true},
		{"Command or Fight phase", "Command phase", true},
		// Canonical entries containing " or " must not be split.
		{"Shooting or Fight phase", "Shooting or Fight phase", true},
		{"After enemy unit ends Normal, Advance or Fall Back move",
			"After enemy unit ends Normal, Advance or Fall Back move", true},
		{"When the stars align", model.PhaseAny, false},
		{"Sternguard or", model.PhaseAny, false},
	}
	for _, tc := range cases {
		got, known := normalizePhase(tc.in)
		if got != tc.want || known != tc.known {
			t.Errorf("normalizePhase(%q) = (%q, %v), want (%q, %v)",
				tc.in, got, known, tc.want, tc.known)
		}
	}
}

func TestParseCost(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"1", 1},
		{"2CP", 2},
		{"1/2", 1},
		{" 3 ", 3},
		{"", 0},
		{"free", 0},
		{"CP2", 0},
	}
	for _, tc := range cases {
		if got := parseCost(tc.in); got != tc.want {
			t.Errorf("parseCost(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestSplitKeywords(t *testing.T) {
	got := splitKeywords("adeptus astartes; infantry ;;")
	want := []string{"ADEPTUS ASTARTES", "INFANTRY"}
	if len(got) != len(want) {
		t.Fatalf("splitKeywords returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keyword %d = %q, want %q", i, got[i], want[i])
		}
	}
	if splitKeywords("") != nil {
		t.Error("expected nil for empty input")
	}
}

func TestInvalidType(t *testing.T) {
	valid := []string{"Core Stratagem", "Battle Tactic Stratagem", "Epic Deed Stratagem"}
	for _, typ := range valid {
		if invalidType(typ) {
			t.Errorf("invalidType(%q) = true, want false", typ)
		}
	}
	invalid := []string{
		"Requisition Stratagem (Supplement)",
		"Crusade Stratagem",
		"Boarding Actions Stratagem",
		"Crusher Stampede Battle Tactic",
	}
	for _, typ := range invalid {
		if !invalidType(typ) {
			t.Errorf("invalidType(%q) = false, want true", typ)
		}
	}
}

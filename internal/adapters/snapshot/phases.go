package snapshot

import (
	"strings"

	"github.com/okian/muster/internal/domain/model"
)

// phaseSynonyms fold spellings the upstream data uses that the canonical
// phase table does not list verbatim.
var phaseSynonyms = map[string]string{
	"any":                       model.PhaseAny,
	"all phases":                model.PhaseAny,
	"your command phase":        "Command phase",
	"your movement phase":       "Movement phase",
	"your shooting phase":       "Shooting phase",
	"your charge phase":         "Charge phase",
	"your fight phase":          "Fight phase",
	"your psychic phase":        "Psychic phase",
	"opponent's shooting phase": "Enemy Shooting phase",
	"opponent's charge phase":   "Enemy Charge phase",
	"opponent's movement phase": "Enemy Movement phase",
	"opponent's psychic phase":  "Enemy Psychic phase",
	"end of turn":               "End of the turn",
	"start of the battle round": "At the start of battle round",
}

// normalizePhase folds a raw phase cell onto the canonical table. Empty
// cells mean the card applies any time. Combined cells ("Movement or
// Shooting phase") fold to their first recognized alternative. The bool is
// false when nothing was recognized and the cell fell back to PhaseAny.
func normalizePhase(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return model.PhaseAny, true
	}
	if p, ok := lookupPhase(s); ok {
		return p, true
	}
	for _, alt := range splitAlternatives(s) {
		if p, ok := lookupPhase(alt); ok {
			return p, true
		}
		if p, ok := lookupPhase(alt + " phase"); ok {
			return p, true
		}
	}
	return model.PhaseAny, false
}

func lookupPhase(s string) (string, bool) {
	if p, ok := model.CanonicalPhase(s); ok {
		return p, true
	}
	p, ok := phaseSynonyms[strings.ToLower(strings.TrimSpace(s))]
	return p, ok
}

// splitAlternatives splits a combined phase cell on " or ", returning nil
// when the cell has no alternatives.
func splitAlternatives(s string) []string {
	lower := strings.ToLower(s)
	var parts []string
	for {
		i := strings.Index(lower, " or ")
		if i < 0 {
			break
		}
		parts = append(parts, strings.TrimSpace(s[:i]))
		s, lower = s[i+4:], lower[i+4:]
	}
	if len(parts) == 0 {
		return nil
	}
	return append(parts, strings.TrimSpace(s))
}

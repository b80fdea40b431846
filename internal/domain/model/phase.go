package model

import "strings"

// PhaseAny is the catch-all phase assigned to cards whose phase text could
// not be recognized, and to cards usable in any phase.
const PhaseAny = "Any phase"

// PhaseOrder is the canonical presentation order of game phases. Results
// are sorted by position in this list before cost and ID tie-breaks.
var PhaseOrder = []string{
	"Any time",
	"Before battle",
	"During deployment",
	"At the start of battle round",
	"Any phase",
	"Any of your phases",
	"At the start of your turn",
	"At the start of enemy turn",
	"Start of any phase",
	"Command phase",
	"Start of the Command phase",
	"End of the Command phase",
	"Enemy Command phase",
	"Movement phase",
	"Enemy Movement phase",
	"Psychic phase",
	"Enemy Psychic phase",
	"Shooting phase",
	"Enemy Shooting phase",
	"Shooting or Fight phase",
	"Being targeted",
	"Charge phase",
	"Start of the Charge phase",
	"Enemy Charge phase",
	"Fight phase",
	"Start of the Fight phase",
	"Enemy Fight phase",
	"Morale phase",
	"Enemy Morale phase",
	"Taking casualties",
	"Enemy taking casualties",
	"End of your turn",
	"End of enemy turn",
	"End of the turn",
	"End of the phase",
	"End of the battle round",
	"End of the Battle",
	"After enemy unit ends Normal, Advance or Fall Back move",
	"End of any phase",
}

var phaseIndex = buildPhaseIndex()

func buildPhaseIndex() map[string]int {
	idx := make(map[string]int, len(PhaseOrder))
	for i, p := range PhaseOrder {
		idx[strings.ToLower(p)] = i
	}
	return idx
}

// PhaseIndex returns the position of phase in the canonical order.
// Unknown phases sort after every known one.
func PhaseIndex(phase string) int {
	if i, ok := phaseIndex[strings.ToLower(phase)]; ok {
		return i
	}
	return len(PhaseOrder)
}

// CanonicalPhase matches phase case-insensitively against the canonical
// list and returns the canonical spelling.
func CanonicalPhase(phase string) (string, bool) {
	if i, ok := phaseIndex[strings.ToLower(strings.TrimSpace(phase))]; ok {
		return PhaseOrder[i], true
	}
	return "", false
}

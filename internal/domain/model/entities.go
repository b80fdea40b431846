// Package model contains domain models passed between layers.
package model

import (
	"github.com/okian/muster/internal/domain/eligibility"
)

// Roster is a parsed army-list document. Slices preserve document order.
type Roster struct {
	Name          string       // roster name attribute, may be empty
	SchemaVersion string       // battleScribeVersion from the export
	FactionTags   []string     // raw per-force catalogue names, deduplicated keeping first
	Detachments   []Detachment // declared detachments
	Units         []Unit       // unit entries

	// Set by the normalizer.
	FactionIDs         []string // resolved canonical faction IDs
	UnresolvedFactions []string // raw tags that failed resolution
}

// Unit is one selectable unit entry from a roster.
type Unit struct {
	ID            string   // export id, or synthesized unit-N when absent
	Name          string   // name as exported
	CanonicalName string   // normalized name; defaults to Name
	FactionID     string   // faction hint, canonical after normalization
	Keywords      []string // uppercased category names, first-occurrence order
	Models        int      // model count, always >= 1

	// Normalization diagnostics.
	Unresolved       bool // faction hint failed resolution
	RenameUnresolved bool // canonical name absent from the unit vocabulary
}

// Detachment is a declared detachment choice on the roster.
type Detachment struct {
	Name string // detachment type name as exported
	Rule string // rule text reference, may be empty
}

// Faction is a reference-data faction. ParentID links subfactions to their
// parent (e.g. a chapter to its parent army); empty for top-level factions.
type Faction struct {
	ID       string
	Name     string
	ParentID string
}

// Stratagem is a reference-data rule card. Immutable once loaded.
type Stratagem struct {
	ID           string
	Name         string
	Type         string
	Phase        string   // canonical phase, see PhaseOrder
	Cost         int      // command point cost; non-numeric source parses to 0
	FactionScope []string // faction IDs; empty means generic (usable by any army)
	Detachment   string   // required detachment type name, empty = none
	Eligibility  eligibility.Predicate
	Description  string // card rules text
	Legend       string // card flavor text
}

// Generic reports whether the stratagem applies regardless of faction.
func (s Stratagem) Generic() bool {
	return len(s.FactionScope) == 0
}

// EligibilityResult names one usable stratagem for a roster.
type EligibilityResult struct {
	StratagemID  string
	MatchedUnits []string // unit IDs in document order; empty when roster-wide
}

// Diagnostics carries the non-fatal findings of a single evaluation.
type Diagnostics struct {
	UnresolvedFactions   []string // raw faction tags that failed resolution
	UnresolvedRenames    []string // unit IDs whose canonical name is not in the vocabulary
	UnitsWithoutKeywords []string // unit IDs with empty keyword sets
}

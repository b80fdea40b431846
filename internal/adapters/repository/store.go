// Package repository indexes a loaded reference snapshot for fast
// read-only lookups during evaluation.
package repository

import (
	"context"

	"github.com/okian/muster/internal/domain/model"
)

// Store provides read access to the indexed reference snapshot. All
// methods are safe for concurrent use; the index never changes after
// construction.
type Store interface {
	// StratagemsForFaction returns the stratagems scoped to the faction
	// plus the generic pool, ordered by id. Ancestor scopes are not
	// expanded here; callers query each faction of interest.
	StratagemsForFaction(ctx context.Context, factionID string) []model.Stratagem

	// StratagemsForPhase returns the canonical phase bucket, ordered by id.
	StratagemsForPhase(ctx context.Context, phase string) []model.Stratagem

	// StratagemByID returns the stratagem with the given id.
	StratagemByID(ctx context.Context, id string) (model.Stratagem, bool)

	// All returns every indexed stratagem, ordered by id.
	All(ctx context.Context) []model.Stratagem

	// FactionByID returns the faction with the given canonical id.
	FactionByID(ctx context.Context, id string) (model.Faction, bool)

	// FactionByName matches a faction name case-insensitively.
	FactionByName(ctx context.Context, name string) (model.Faction, bool)

	// Ancestors returns the parent chain of id, nearest first.
	Ancestors(ctx context.Context, id string) []string

	// HasUnitName reports whether name is in the canonical unit
	// vocabulary, case-insensitively.
	HasUnitName(ctx context.Context, name string) bool

	// Generic returns the faction-agnostic stratagems, ordered by id.
	Generic(ctx context.Context) []model.Stratagem

	// Count returns the number of stratagems indexed.
	Count(ctx context.Context) int

	// Version returns the snapshot version string.
	Version(ctx context.Context) string
}

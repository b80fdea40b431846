// Package normalize folds raw roster faction tags and unit names onto the
// canonical reference vocabulary. Resolution is exact-match only: aliases
// and renames come from curated tables, and anything that misses every
// table is flagged unresolved rather than guessed at.
package normalize

import (
	"context"
	"strings"

	"github.com/okian/muster/internal/domain/model"
)

// Catalogue names carry allegiance prefixes that reference data does not.
var cataloguePrefixes = []string{"imperium - ", "chaos - "}

// FactionResolver answers exact faction lookups against the reference data.
type FactionResolver interface {
	// FactionByID resolves a canonical faction ID.
	FactionByID(ctx context.Context, id string) (model.Faction, bool)

	// FactionByName resolves a faction by case-insensitive exact name.
	FactionByName(ctx context.Context, name string) (model.Faction, bool)
}

// Normalizer rewrites a parsed roster onto canonical faction IDs and unit
// names. Tables are immutable after construction; the zero set of options
// yields a pass-through normalizer that only consults the resolver.
type Normalizer struct {
	resolver FactionResolver
	aliases  map[string]string // lowercased alias -> canonical faction ID or name
	renames  map[string]string // exact export unit name -> canonical unit name
	vocab    func(string) bool // canonical unit vocabulary membership, nil = skip check
}

// New creates a Normalizer around a resolver with configuration options.
func New(resolver FactionResolver, opts ...Option) *Normalizer {
	n := &Normalizer{
		resolver: resolver,
		aliases:  make(map[string]string),
		renames:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize returns a normalized copy of r. The input is not mutated.
// Normalization never fails: resolution misses become diagnostics on the
// returned roster, and normalize(normalize(r)) == normalize(r).
func (n *Normalizer) Normalize(ctx context.Context, r *model.Roster) *model.Roster {
	out := *r
	out.FactionIDs = nil
	out.UnresolvedFactions = nil

	seen := make(map[string]struct{}, len(r.FactionTags))
	for _, tag := range r.FactionTags {
		id, ok := n.resolveFaction(ctx, tag)
		if !ok {
			out.UnresolvedFactions = append(out.UnresolvedFactions, tag)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out.FactionIDs = append(out.FactionIDs, id)
	}

	out.Units = make([]model.Unit, len(r.Units))
	for i, u := range r.Units {
		out.Units[i] = n.normalizeUnit(ctx, u)
	}

	return &out
}

func (n *Normalizer) normalizeUnit(ctx context.Context, u model.Unit) model.Unit {
	u.CanonicalName = u.Name
	if canonical, ok := n.renames[u.Name]; ok {
		u.CanonicalName = canonical
	}
	u.RenameUnresolved = n.vocab != nil && !n.vocab(u.CanonicalName)

	u.Unresolved = false
	if tag := strings.TrimSpace(u.FactionID); tag != "" {
		if id, ok := n.resolveFaction(ctx, tag); ok {
			u.FactionID = id
		} else {
			u.Unresolved = true
		}
	}

	return u
}

// ResolveTag resolves one raw faction tag to a canonical faction ID with
// the same rules Normalize applies to roster tags. It backs query surfaces
// that accept loose faction spellings.
func (n *Normalizer) ResolveTag(ctx context.Context, raw string) (string, bool) {
	return n.resolveFaction(ctx, raw)
}

// resolveFaction maps one raw faction tag to a canonical faction ID:
//  1. an already-canonical ID passes through unchanged;
//  2. the tag is lower-cased and catalogue prefixes stripped;
//  3. exact alias-table lookup, the target resolved by ID then name;
//  4. case-insensitive exact match against known faction names.
//
// Anything else is unresolved. No fuzzy or partial matching.
func (n *Normalizer) resolveFaction(ctx context.Context, raw string) (string, bool) {
	tag := strings.TrimSpace(raw)
	if tag == "" {
		return "", false
	}

	if f, ok := n.resolver.FactionByID(ctx, tag); ok {
		return f.ID, true
	}

	key := strings.ToLower(tag)
	for _, prefix := range cataloguePrefixes {
		key = strings.TrimPrefix(key, prefix)
	}
	key = strings.TrimSpace(key)

	if target, ok := n.aliases[key]; ok {
		if f, ok := n.resolver.FactionByID(ctx, target); ok {
			return f.ID, true
		}
		if f, ok := n.resolver.FactionByName(ctx, target); ok {
			return f.ID, true
		}
		return "", false
	}

	if f, ok := n.resolver.FactionByName(ctx, key); ok {
		return f.ID, true
	}

	return "", false
}

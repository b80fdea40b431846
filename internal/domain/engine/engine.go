// Package engine evaluates which stratagems a roster can legally use.
//
// Evaluation is a pure, synchronous computation: effective factions are
// resolved through the reference repository's parent chains, the candidate
// card pool is gathered and deduplicated, and each card's predicate is
// checked against the roster's detachments, unit keywords, and optional
// condition expression. Output order is canonical phase, then cost, then id,
// so identical input always yields identical output.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/okian/muster/internal/domain/eligibility"
	"github.com/okian/muster/internal/domain/model"
)

// Repository is the reference-data surface evaluation reads. Implementations
// must be safe for concurrent readers.
type Repository interface {
	// StratagemsForFaction returns cards scoped to the faction plus the
	// generic pool, ordered by id.
	StratagemsForFaction(ctx context.Context, factionID string) []model.Stratagem
	// Ancestors returns the faction's parent chain, nearest first.
	Ancestors(ctx context.Context, id string) []string
	// Generic returns the faction-agnostic pool, ordered by id.
	Generic(ctx context.Context) []model.Stratagem
}

// Report is the outcome of evaluating one roster.
type Report struct {
	Results     []model.EligibilityResult
	Diagnostics model.Diagnostics

	// Warnings carries data-quality findings, such as condition
	// expressions that failed at runtime. Evaluation continues past them.
	Warnings []string
}

// Engine matches rosters against the stratagem reference. It holds no
// mutable state; one Engine serves concurrent evaluations.
type Engine struct {
	repo Repository
}

// New builds an Engine over the given reference repository.
func New(repo Repository) *Engine {
	return &Engine{repo: repo}
}

// Evaluate returns every stratagem the roster can use. Rosters whose
// faction tags all failed resolution still run against the generic pool;
// the diagnostics carry the unresolved tags so callers can surface a
// warning instead of an unexplained short result.
func (e *Engine) Evaluate(ctx context.Context, roster *model.Roster) (Report, error) {
	if roster == nil {
		return Report{}, ErrNilRoster
	}

	report := Report{Diagnostics: diagnose(roster)}

	effective := e.effectiveFactions(ctx, roster)
	candidates := e.candidates(ctx, effective)
	sortCandidates(candidates)

	env := buildEnv(roster, effective)
	for i := range candidates {
		res, ok, warn := match(&candidates[i], roster, env)
		if warn != "" {
			report.Warnings = append(report.Warnings, warn)
		}
		if ok {
			report.Results = append(report.Results, res)
		}
	}
	return report, nil
}

// effectiveFactions returns the roster's resolved factions plus every
// ancestor, first-seen order preserved.
func (e *Engine) effectiveFactions(ctx context.Context, roster *model.Roster) []string {
	seen := make(map[string]struct{}, len(roster.FactionIDs))
	out := make([]string, 0, len(roster.FactionIDs))
	add := func(id string) {
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range roster.FactionIDs {
		add(id)
		for _, anc := range e.repo.Ancestors(ctx, id) {
			add(anc)
		}
	}
	return out
}

// candidates gathers the card pool for the effective faction set,
// deduplicated by id. A card reachable through several ancestor paths
// counts once. An empty faction set falls back to the generic pool.
func (e *Engine) candidates(ctx context.Context, effective []string) []model.Stratagem {
	if len(effective) == 0 {
		return e.repo.Generic(ctx)
	}
	seen := make(map[string]struct{})
	var out []model.Stratagem
	for _, fid := range effective {
		for _, s := range e.repo.StratagemsForFaction(ctx, fid) {
			if _, dup := seen[s.ID]; dup {
				continue
			}
			seen[s.ID] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// match evaluates one candidate. The faction gate already passed; what
// remains is the conjunction of the detachment requirement, the keyword
// requirement, and the optional condition expression. A failing condition
// reports a warning and the card simply does not match.
func match(s *model.Stratagem, roster *model.Roster, env eligibility.Env) (model.EligibilityResult, bool, string) {
	for _, required := range []string{s.Detachment, s.Eligibility.Detachment} {
		if required != "" && !hasDetachment(roster, required) {
			return model.EligibilityResult{}, false, ""
		}
	}

	var matched []string
	if len(s.Eligibility.Keywords) > 0 {
		matched = unitsWithKeywords(roster, s.Eligibility.Keywords)
		if len(matched) == 0 {
			return model.EligibilityResult{}, false, ""
		}
	}

	if s.Eligibility.HasCondition() {
		ok, err := s.Eligibility.EvalCondition(env)
		if err != nil {
			return model.EligibilityResult{}, false, fmt.Sprintf("stratagem %s: %v", s.ID, err)
		}
		if !ok {
			return model.EligibilityResult{}, false, ""
		}
	}

	return model.EligibilityResult{StratagemID: s.ID, MatchedUnits: matched}, true, ""
}

func hasDetachment(roster *model.Roster, required string) bool {
	want := eligibility.NormalizeDetachment(required)
	for _, d := range roster.Detachments {
		if eligibility.NormalizeDetachment(d.Name) == want {
			return true
		}
	}
	return false
}

// unitsWithKeywords returns ids of units whose keyword set covers all of
// required, in document order.
func unitsWithKeywords(roster *model.Roster, required []string) []string {
	var out []string
	for _, u := range roster.Units {
		if hasAllKeywords(u.Keywords, required) {
			out = append(out, u.ID)
		}
	}
	return out
}

func hasAllKeywords(have, required []string) bool {
	for _, req := range required {
		found := false
		for _, k := range have {
			if strings.EqualFold(k, req) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func buildEnv(roster *model.Roster, factionIDs []string) eligibility.Env {
	units := make([]eligibility.UnitView, len(roster.Units))
	for i, u := range roster.Units {
		units[i] = eligibility.UnitView{
			ID:       u.ID,
			Name:     u.CanonicalName,
			Keywords: u.Keywords,
			Models:   u.Models,
		}
	}
	detachments := make([]string, len(roster.Detachments))
	for i, d := range roster.Detachments {
		detachments[i] = d.Name
	}
	return eligibility.Env{Units: units, Detachments: detachments, FactionIDs: factionIDs}
}

func diagnose(roster *model.Roster) model.Diagnostics {
	var d model.Diagnostics
	if len(roster.UnresolvedFactions) > 0 {
		d.UnresolvedFactions = append([]string(nil), roster.UnresolvedFactions...)
	}
	for _, u := range roster.Units {
		if u.RenameUnresolved {
			d.UnresolvedRenames = append(d.UnresolvedRenames, u.ID)
		}
		if len(u.Keywords) == 0 {
			d.UnitsWithoutKeywords = append(d.UnitsWithoutKeywords, u.ID)
		}
	}
	return d
}

// sortCandidates orders cards by canonical phase, then cost, then id.
// Matching preserves this order, so results come out already sorted.
func sortCandidates(candidates []model.Stratagem) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := &candidates[i], &candidates[j]
		if pa, pb := model.PhaseIndex(a.Phase), model.PhaseIndex(b.Phase); pa != pb {
			return pa < pb
		}
		if a.Cost != b.Cost {
			return a.Cost < b.Cost
		}
		return a.ID < b.ID
	})
}

// Package eligibility defines the usability predicate attached to reference
// rule cards: required unit keywords, a required detachment, and an optional
// condition expression compiled to bytecode at snapshot load.
package eligibility

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// UnitView is the slice of unit state visible to condition expressions.
type UnitView struct {
	ID       string
	Name     string
	Keywords []string
	Models   int
}

// Env wraps roster state and exposes helper methods callable from
// condition expressions.
type Env struct {
	Units       []UnitView
	Detachments []string
	FactionIDs  []string
}

func (e Env) HasKeyword(kw string) bool {
	for _, u := range e.Units {
		for _, k := range u.Keywords {
			if strings.EqualFold(k, kw) {
				return true
			}
		}
	}
	return false
}

func (e Env) UnitsWithKeyword(kw string) int {
	n := 0
	for _, u := range e.Units {
		for _, k := range u.Keywords {
			if strings.EqualFold(k, kw) {
				n++
				break
			}
		}
	}
	return n
}

// CountModels sums model counts across units carrying the keyword.
func (e Env) CountModels(kw string) int {
	n := 0
	for _, u := range e.Units {
		for _, k := range u.Keywords {
			if strings.EqualFold(k, kw) {
				n += u.Models
				break
			}
		}
	}
	return n
}

func (e Env) HasDetachment(name string) bool {
	want := NormalizeDetachment(name)
	for _, d := range e.Detachments {
		if NormalizeDetachment(d) == want {
			return true
		}
	}
	return false
}

func (e Env) HasFaction(id string) bool {
	for _, f := range e.FactionIDs {
		if strings.EqualFold(f, id) {
			return true
		}
	}
	return false
}

func (e Env) HasUnitNamed(name string) bool {
	for _, u := range e.Units {
		if strings.EqualFold(u.Name, name) {
			return true
		}
	}
	return false
}

func (e Env) UnitCount() int { return len(e.Units) }

// NormalizeDetachment folds a detachment type name for comparison:
// lower-cased with all spaces removed.
func NormalizeDetachment(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}

// Predicate is the conjunction of requirements gating one rule card.
// The zero value matches any roster.
type Predicate struct {
	Keywords   []string // required unit keywords
	Detachment string   // required detachment type name, empty = none
	Source     string   // raw condition expression, empty = none

	program *vm.Program
}

// New builds a predicate with no condition expression.
func New(keywords []string, detachment string) Predicate {
	return Predicate{Keywords: keywords, Detachment: detachment}
}

// Compile builds a predicate and compiles the optional condition expression
// against Env. A bad expression returns ErrBadCondition; callers typically
// fall back to New with the structured parts only.
func Compile(keywords []string, detachment, source string) (Predicate, error) {
	p := Predicate{Keywords: keywords, Detachment: detachment, Source: source}
	if source == "" {
		return p, nil
	}
	prog, err := expr.Compile(source, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return Predicate{}, fmt.Errorf("%w: %s", ErrBadCondition, err)
	}
	p.program = prog
	return p, nil
}

// Empty reports whether the predicate carries no requirements at all.
func (p Predicate) Empty() bool {
	return len(p.Keywords) == 0 && p.Detachment == "" && p.program == nil
}

// HasCondition reports whether a compiled condition expression is attached.
func (p Predicate) HasCondition() bool { return p.program != nil }

// EvalCondition runs the compiled condition against env. A predicate with
// no condition matches trivially. Runtime failures and non-boolean results
// are returned as errors; callers treat them as non-matches.
func (p Predicate) EvalCondition(env Env) (bool, error) {
	if p.program == nil {
		return true, nil
	}
	out, err := vm.Run(p.program, env)
	if err != nil {
		return false, fmt.Errorf("condition eval: %w", err)
	}
	match, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition returned %T, want bool", out)
	}
	return match, nil
}

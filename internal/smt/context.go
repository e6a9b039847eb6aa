// Package smt defines the constraint-emission surface of the synthesis
// pipeline. The pipeline never solves anything itself; it introduces
// variables, finite sorts and constraints through a Context, and the
// embedding application hands the collected system to an actual solver.
package smt

import (
	"fmt"
	"sort"
	"strings"
)

// Context is where the synthesis pipeline declares its unknowns.
type Context interface {
	// IntVar introduces a fresh integer variable. A non-nil value pins the
	// variable to that concrete value. Duplicate names are an error.
	IntVar(name string, value *int) error
	// EnumSort registers a finite sort with the given symbols. Redefining a
	// sort with different symbols is an error.
	EnumSort(name string, symbols []string) error
	// Assert records a constraint over previously introduced variables.
	Assert(c Constraint) error
}

// Constraint is one asserted relation. The concrete types below cover what
// the pipeline emits; String renders an SMT-LIB-flavored form for logs and
// goldens.
type Constraint interface {
	String() string
}

// GE pins a variable to be at least Bound.
type GE struct {
	Var   string
	Bound int
}

func (c GE) String() string { return fmt.Sprintf("(>= %s %d)", c.Var, c.Bound) }

// Eq pins a variable to a concrete value.
type Eq struct {
	Var   string
	Value int
}

func (c Eq) String() string { return fmt.Sprintf("(= %s %d)", c.Var, c.Value) }

// Distinct requires pairwise-distinct values. Vars are kept sorted so the
// rendering is stable.
type Distinct struct {
	Vars []string
}

func NewDistinct(vars []string) Distinct {
	sorted := append([]string(nil), vars...)
	sort.Strings(sorted)
	return Distinct{Vars: sorted}
}

func (c Distinct) String() string {
	return "(distinct " + strings.Join(c.Vars, " ") + ")"
}

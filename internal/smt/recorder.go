package smt

import (
	"fmt"
	"sort"
	"sync"
)

// Recorder is the reference Context: it stores everything declared so the
// collected system can be inspected, serialized or replayed against a
// solver binding. Safe for concurrent use.
type Recorder struct {
	mu          sync.Mutex
	vars        map[string]*int
	varOrder    []string
	sorts       map[string][]string
	constraints []Constraint
}

func NewRecorder() *Recorder {
	return &Recorder{
		vars:  make(map[string]*int),
		sorts: make(map[string][]string),
	}
}

func (r *Recorder) IntVar(name string, value *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vars[name]; ok {
		return fmt.Errorf("smt: variable %s already declared", name)
	}
	if value != nil {
		v := *value
		value = &v
	}
	r.vars[name] = value
	r.varOrder = append(r.varOrder, name)
	return nil
}

func (r *Recorder) EnumSort(name string, symbols []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sorts[name]; ok {
		if !equalStrings(existing, symbols) {
			return fmt.Errorf("smt: sort %s redefined with different symbols", name)
		}
		return nil
	}
	r.sorts[name] = append([]string(nil), symbols...)
	return nil
}

func (r *Recorder) Assert(c Constraint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constraints = append(r.constraints, c)
	return nil
}

// Vars returns declared variable names in declaration order.
func (r *Recorder) Vars() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.varOrder...)
}

// Value returns a variable's pinned value, if any.
func (r *Recorder) Value(name string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.vars[name]
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Sort returns a sort's symbols, or nil when undeclared.
func (r *Recorder) Sort(name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sorts[name]...)
}

// SortNames returns declared sort names, sorted.
func (r *Recorder) SortNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sorts))
	for n := range r.sorts {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Constraints returns the asserted constraints in assertion order.
func (r *Recorder) Constraints() []Constraint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Constraint(nil), r.constraints...)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

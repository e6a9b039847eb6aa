// Package sketch models configuration values that may be left open in a
// sketch: concrete, bound to a symbolic solver variable, or entirely unset.
// Callers branch on the state instead of comparing against a sentinel.
package sketch

import (
	"encoding/json"
	"fmt"
)

// Placeholder is the wire token for a value left for the solver to decide.
// It round-trips through JSON distinctly from an absent field.
const Placeholder = "?"

// State describes how far a sketch value has been resolved.
type State int

const (
	Unset State = iota
	Symbolic
	Concrete
)

func (s State) String() string {
	switch s {
	case Unset:
		return "unset"
	case Symbolic:
		return "symbolic"
	case Concrete:
		return "concrete"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Value is a three-way config value: Concrete(v) | Symbolic(handle) | Unset.
type Value[T any] struct {
	state  State
	value  T
	handle string
}

func Of[T any](v T) Value[T] {
	return Value[T]{state: Concrete, value: v}
}

// Hole returns an unset value, to be filled by the synthesizer.
func Hole[T any]() Value[T] {
	return Value[T]{state: Unset}
}

// Var returns a value bound to the named symbolic variable.
func Var[T any](handle string) Value[T] {
	return Value[T]{state: Symbolic, handle: handle}
}

func (v Value[T]) State() State     { return v.state }
func (v Value[T]) IsUnset() bool    { return v.state == Unset }
func (v Value[T]) IsSymbolic() bool { return v.state == Symbolic }
func (v Value[T]) IsConcrete() bool { return v.state == Concrete }

// Get returns the concrete value. It is an error to call Get on a value that
// is not concrete; the second return reports whether the value was concrete.
func (v Value[T]) Get() (T, bool) {
	if v.state != Concrete {
		var zero T
		return zero, false
	}
	return v.value, true
}

// Handle returns the symbolic variable name, or "" if not symbolic.
func (v Value[T]) Handle() string {
	if v.state != Symbolic {
		return ""
	}
	return v.handle
}

func (v Value[T]) String() string {
	switch v.state {
	case Concrete:
		return fmt.Sprintf("%v", v.value)
	case Symbolic:
		return "$" + v.handle
	default:
		return Placeholder
	}
}

// MarshalJSON encodes concrete values directly and non-concrete values as the
// placeholder token, matching the persisted route-map format.
func (v Value[T]) MarshalJSON() ([]byte, error) {
	if v.state == Concrete {
		return json.Marshal(v.value)
	}
	return json.Marshal(Placeholder)
}

// UnmarshalJSON decodes the placeholder token to Unset and anything else to a
// concrete value.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil && s == Placeholder {
		*v = Hole[T]()
		return nil
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("sketch: decoding value: %w", err)
	}
	*v = Of(out)
	return nil
}

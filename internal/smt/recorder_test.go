package smt

import "testing"

func TestRecorder_IntVar(t *testing.T) {
	r := NewRecorder()
	if err := r.IntVar("router_id_r1", nil); err != nil {
		t.Fatalf("IntVar: %v", err)
	}
	pinned := 7
	if err := r.IntVar("router_id_r2", &pinned); err != nil {
		t.Fatalf("IntVar: %v", err)
	}
	if err := r.IntVar("router_id_r1", nil); err == nil {
		t.Fatal("expected duplicate variable to be rejected")
	}

	vars := r.Vars()
	if len(vars) != 2 || vars[0] != "router_id_r1" || vars[1] != "router_id_r2" {
		t.Fatalf("expected declaration order, got %v", vars)
	}
	if _, ok := r.Value("router_id_r1"); ok {
		t.Fatal("expected free variable to have no pinned value")
	}
	if v, ok := r.Value("router_id_r2"); !ok || v != 7 {
		t.Fatalf("expected pinned value 7, got %d (%v)", v, ok)
	}

	// Pinned values are copied at declaration time.
	pinned = 99
	if v, _ := r.Value("router_id_r2"); v != 7 {
		t.Fatalf("expected declaration-time copy, got %d", v)
	}
}

func TestRecorder_EnumSort(t *testing.T) {
	r := NewRecorder()
	symbols := []string{"as_path_10", "as_path_20_10"}
	if err := r.EnumSort("ASPathSort", symbols); err != nil {
		t.Fatalf("EnumSort: %v", err)
	}
	// Same symbols again is a no-op.
	if err := r.EnumSort("ASPathSort", symbols); err != nil {
		t.Fatalf("expected idempotent redefinition, got %v", err)
	}
	if err := r.EnumSort("ASPathSort", []string{"as_path_10"}); err == nil {
		t.Fatal("expected redefinition with different symbols to fail")
	}

	got := r.Sort("ASPathSort")
	if len(got) != 2 || got[0] != symbols[0] || got[1] != symbols[1] {
		t.Fatalf("unexpected sort symbols %v", got)
	}
	if r.Sort("missing") != nil {
		t.Fatal("expected nil for undeclared sort")
	}
	names := r.SortNames()
	if len(names) != 1 || names[0] != "ASPathSort" {
		t.Fatalf("unexpected sort names %v", names)
	}
}

func TestRecorder_Constraints(t *testing.T) {
	r := NewRecorder()
	if err := r.Assert(GE{Var: "router_id_r1", Bound: 1}); err != nil {
		t.Fatalf("Assert: %v", err)
	}
	if err := r.Assert(Eq{Var: "router_id_r2", Value: 7}); err != nil {
		t.Fatalf("Assert: %v", err)
	}
	if err := r.Assert(NewDistinct([]string{"router_id_r2", "router_id_r1"})); err != nil {
		t.Fatalf("Assert: %v", err)
	}

	cs := r.Constraints()
	want := []string{
		"(>= router_id_r1 1)",
		"(= router_id_r2 7)",
		"(distinct router_id_r1 router_id_r2)",
	}
	if len(cs) != len(want) {
		t.Fatalf("expected %d constraints, got %d", len(want), len(cs))
	}
	for i, c := range cs {
		if c.String() != want[i] {
			t.Errorf("constraint %d: expected %s, got %s", i, want[i], c.String())
		}
	}
}

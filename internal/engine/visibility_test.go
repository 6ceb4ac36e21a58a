package engine

import (
	"reflect"
	"testing"
)

func boolField(id int64, name string) FieldState {
	return FieldState{ID: id, HTMLName: name, InputType: "checkbox"}
}

func condField(id int64, name string, controller int64, values ...string) FieldState {
	return FieldState{
		ID:            id,
		HTMLName:      name,
		InputType:     "text",
		ShowIfFieldID: controller,
		ShowIfValues:  values,
	}
}

func TestResolveHidden_BooleanCondition(t *testing.T) {
	fields := []FieldState{
		boolField(1, "attending_dinner"),
		condField(2, "dinner_menu", 1, "1"),
	}

	state := FormState{Fields: fields, Values: map[string]any{"attending_dinner": true}}
	hidden := ResolveHidden(state)
	if hidden[2] {
		t.Fatalf("expected field 2 visible when controller is true, got %v", hidden)
	}

	state.Values["attending_dinner"] = false
	hidden = ResolveHidden(state)
	if !hidden[2] {
		t.Fatalf("expected field 2 hidden when controller is false, got %v", hidden)
	}
}

func TestResolveHidden_HiddenFieldValueResets(t *testing.T) {
	fields := []FieldState{
		boolField(1, "attending_dinner"),
		condField(2, "dinner_menu", 1, "1"),
	}
	state := FormState{Fields: fields, Values: map[string]any{
		"attending_dinner": false,
		"dinner_menu":      "vegetarian",
	}}

	hidden := ResolveHidden(state)
	values := ResetHidden(state, hidden)
	if values["dinner_menu"] != "" {
		t.Fatalf("expected hidden field reset to type default, got %q", values["dinner_menu"])
	}
	if values["attending_dinner"] != false {
		t.Fatalf("controller value must be untouched, got %v", values["attending_dinner"])
	}
	// original map untouched
	if state.Values["dinner_menu"] != "vegetarian" {
		t.Fatalf("ResetHidden must not mutate its input")
	}
}

func TestResolveHidden_TransitiveHiding(t *testing.T) {
	// A controls B, B controls C; hiding B hides C no matter what B's stale
	// value says.
	fields := []FieldState{
		boolField(1, "a"),
		condField(2, "b", 1, "1"),
		condField(3, "c", 2, "anything"),
	}
	state := FormState{Fields: fields, Values: map[string]any{
		"a": false,
		"b": "anything",
	}}

	hidden := ResolveHidden(state)
	if !hidden[2] || !hidden[3] {
		t.Fatalf("expected 2 and 3 hidden, got %v", hidden)
	}

	state.Values["a"] = true
	hidden = ResolveHidden(state)
	if len(hidden) != 0 {
		t.Fatalf("expected nothing hidden, got %v", hidden)
	}
}

func TestResolveHidden_TransitiveEvaluationOrderIndependent(t *testing.T) {
	// dependent listed before its controller; memoization must still resolve
	// the chain correctly
	fields := []FieldState{
		condField(3, "c", 2, "yes"),
		condField(2, "b", 1, "1"),
		boolField(1, "a"),
	}
	state := FormState{Fields: fields, Values: map[string]any{
		"a": false,
		"b": "yes",
	}}

	hidden := ResolveHidden(state)
	if !hidden[2] || !hidden[3] {
		t.Fatalf("expected 2 and 3 hidden regardless of field order, got %v", hidden)
	}
}

func TestResolveHidden_NoCondition_NeverHidden(t *testing.T) {
	fields := []FieldState{
		{ID: 1, HTMLName: "first_name", InputType: "text"},
		{ID: 2, HTMLName: "last_name", InputType: "text"},
	}
	hidden := ResolveHidden(FormState{Fields: fields, Values: map[string]any{}})
	if len(hidden) != 0 {
		t.Fatalf("expected empty hidden-set, got %v", hidden)
	}
}

func TestResolveHidden_DanglingController_FailOpen(t *testing.T) {
	fields := []FieldState{
		condField(2, "b", 99, "1"),
	}
	hidden := ResolveHidden(FormState{Fields: fields, Values: map[string]any{}})
	if hidden[2] {
		t.Fatalf("expected dangling controller to leave field visible, got %v", hidden)
	}
}

func TestResolveHidden_MultiChoiceIntersection(t *testing.T) {
	fields := []FieldState{
		{ID: 1, HTMLName: "workshops", InputType: "multi_choice"},
		condField(2, "laptop_model", 1, "ws-coding", "ws-hacking"),
	}

	state := FormState{Fields: fields, Values: map[string]any{
		"workshops": map[string]any{"ws-yoga": float64(1)},
	}}
	hidden := ResolveHidden(state)
	if !hidden[2] {
		t.Fatalf("expected hidden without matching selection, got %v", hidden)
	}

	state.Values["workshops"] = map[string]any{
		"ws-yoga":   float64(1),
		"ws-coding": float64(2),
	}
	hidden = ResolveHidden(state)
	if hidden[2] {
		t.Fatalf("expected visible when a matching key is selected, got %v", hidden)
	}

	// zero slot counts do not count as selected
	state.Values["workshops"] = map[string]any{"ws-coding": float64(0)}
	hidden = ResolveHidden(state)
	if !hidden[2] {
		t.Fatalf("expected hidden when matching key has zero slots, got %v", hidden)
	}
}

func TestResolveHidden_Idempotent(t *testing.T) {
	fields := []FieldState{
		boolField(1, "a"),
		condField(2, "b", 1, "1"),
		condField(3, "c", 2, "x"),
		condField(4, "d", 99, "1"),
	}
	state := FormState{Fields: fields, Values: map[string]any{"a": false}}

	first := ResolveHidden(state)
	second := ResolveHidden(state)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %v then %v", first, second)
	}
}

func TestResolveHidden_CycleDoesNotHang(t *testing.T) {
	fields := []FieldState{
		condField(1, "a", 2, "x"),
		condField(2, "b", 1, "y"),
	}
	state := FormState{Fields: fields, Values: map[string]any{"a": "y", "b": "x"}}

	// a cycle is a misconfiguration; the resolver must terminate and treat the
	// re-entered controller as visible
	hidden := ResolveHidden(state)
	if len(hidden) != 0 {
		t.Fatalf("expected satisfied cycle to resolve as visible, got %v", hidden)
	}

	// with both conditions unmet the chain collapses to hidden, still without
	// looping
	state.Values = map[string]any{"a": "nope", "b": "nope"}
	hidden = ResolveHidden(state)
	if !hidden[1] || !hidden[2] {
		t.Fatalf("expected unmet cycle to resolve as hidden, got %v", hidden)
	}
}

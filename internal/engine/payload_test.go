package engine

import (
	"reflect"
	"testing"
)

func TestBuildPayload_DropsHiddenAndTransient(t *testing.T) {
	fields := []FieldState{
		boolField(1, "attending_dinner"),
		condField(2, "dinner_menu", 1, "1"),
		{ID: 3, HTMLName: "agreement_privacy", InputType: "checkbox"},
		{ID: 4, InputType: "label"},
	}
	state := FormState{Fields: fields, Values: map[string]any{
		"attending_dinner":  false,
		"dinner_menu":       "stale vegetarian pick",
		"agreement_privacy": true,
	}}

	hidden := ResolveHidden(state)
	payload := BuildPayload(state, hidden, []string{"agreement_privacy"})

	if _, ok := payload["dinner_menu"]; ok {
		t.Fatalf("hidden field must be absent from payload, got %v", payload)
	}
	if _, ok := payload["agreement_privacy"]; ok {
		t.Fatalf("transient consent value must be absent from payload, got %v", payload)
	}
	if payload["attending_dinner"] != false {
		t.Fatalf("expected controller value kept, got %v", payload)
	}
}

func TestBuildPayload_SkipsLabelItems(t *testing.T) {
	fields := []FieldState{
		{ID: 1, HTMLName: "ghost_label", InputType: "label"},
		{ID: 2, HTMLName: "name", InputType: "text"},
	}
	state := FormState{Fields: fields, Values: map[string]any{
		"ghost_label": "should never persist",
		"name":        "Ada",
	}}
	payload := BuildPayload(state, nil, nil)
	want := map[string]any{"name": "Ada"}
	if !reflect.DeepEqual(payload, want) {
		t.Fatalf("got %v want %v", payload, want)
	}
}

func TestDiffPayload_OnlyChangedFields(t *testing.T) {
	payload := map[string]any{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"workshops":  map[string]any{"ws-coding": float64(1)},
	}
	previous := map[string]any{
		"first_name": "Ada",
		"last_name":  "Byron",
		"workshops":  map[string]any{"ws-coding": float64(1)},
	}

	got := DiffPayload(payload, previous, nil)
	want := map[string]any{"last_name": "Lovelace"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestDiffPayload_AlwaysIncludedControlFields(t *testing.T) {
	payload := map[string]any{
		"first_name":  "Ada",
		"notify_user": true,
	}
	previous := map[string]any{
		"first_name":  "Ada",
		"notify_user": true,
	}

	got := DiffPayload(payload, previous, []string{"notify_user"})
	want := map[string]any{"notify_user": true}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestDiffPayload_NewFieldAlwaysSent(t *testing.T) {
	payload := map[string]any{"new_field": "x"}
	got := DiffPayload(payload, map[string]any{}, nil)
	if !reflect.DeepEqual(got, map[string]any{"new_field": "x"}) {
		t.Fatalf("got %v", got)
	}
}

func TestValidateValues_SkipsHiddenFields(t *testing.T) {
	fields := []FieldState{
		boolField(1, "attending"),
		{
			ID: 2, HTMLName: "menu", InputType: "text", IsRequired: true,
			ShowIfFieldID: 1, ShowIfValues: []string{"1"},
		},
	}
	state := FormState{Fields: fields, Values: map[string]any{"attending": false}}

	hidden := ResolveHidden(state)
	errs := ValidateValues(state, hidden)
	if len(errs) != 0 {
		t.Fatalf("hidden required field must not be validated, got %v", errs)
	}

	state.Values["attending"] = true
	hidden = ResolveHidden(state)
	errs = ValidateValues(state, hidden)
	if errs["menu"] == "" {
		t.Fatalf("expected required error for visible empty field, got %v", errs)
	}
}

func TestTotalPrice_IgnoresHiddenFields(t *testing.T) {
	settings := map[string]any{"choices": []any{
		map[string]any{"id": "gala", "caption": "Gala", "price": float64(40)},
	}}
	fields := []FieldState{
		boolField(1, "attending"),
		{
			ID: 2, HTMLName: "evening", InputType: "single_choice", Settings: settings,
			ShowIfFieldID: 1, ShowIfValues: []string{"1"},
		},
		{ID: 3, HTMLName: "tshirt", InputType: "checkbox", Price: 15},
	}
	state := FormState{Fields: fields, Values: map[string]any{
		"attending": true,
		"evening":   map[string]any{"gala": float64(1)},
		"tshirt":    true,
	}}

	hidden := ResolveHidden(state)
	if got := TotalPrice(state, hidden); got != 55 {
		t.Fatalf("got %v want 55", got)
	}

	state.Values["attending"] = false
	hidden = ResolveHidden(state)
	if got := TotalPrice(state, hidden); got != 15 {
		t.Fatalf("hidden priced field must not count, got %v want 15", got)
	}
}

package engine

import "testing"

func TestResolveLocks_NotPaid_NeverPaymentLocked(t *testing.T) {
	fields := []FieldState{
		{ID: 1, HTMLName: "dinner", InputType: "checkbox", Price: 10},
		{ID: 2, HTMLName: "name", InputType: "text"},
	}
	locks := ResolveLocks(FormState{Fields: fields, Values: map[string]any{}}, false, nil)
	for id, l := range locks {
		if l.PaymentLocked {
			t.Fatalf("field %d payment-locked on unpaid registration", id)
		}
	}
}

func TestResolveLocks_PaidFieldWithPrice_Locked(t *testing.T) {
	fields := []FieldState{
		{ID: 1, HTMLName: "dinner", InputType: "checkbox", Price: 10},
		{ID: 2, HTMLName: "name", InputType: "text"},
	}
	locks := ResolveLocks(FormState{Fields: fields, Values: map[string]any{}}, true, nil)
	if !locks[1].PaymentLocked {
		t.Fatalf("expected priced field locked when paid, got %+v", locks[1])
	}
	if locks[2].PaymentLocked {
		t.Fatalf("expected free field unlocked, got %+v", locks[2])
	}
}

func TestResolveLocks_SelectedPricedChoice_Locked(t *testing.T) {
	settings := map[string]any{"choices": []any{
		map[string]any{"id": "gala", "caption": "Gala dinner", "price": float64(40)},
		map[string]any{"id": "none", "caption": "Not attending"},
	}}
	fields := []FieldState{
		{ID: 1, HTMLName: "evening", InputType: "single_choice", Settings: settings},
	}

	state := FormState{Fields: fields, Values: map[string]any{
		"evening": map[string]any{"gala": float64(1)},
	}}
	if locks := ResolveLocks(state, true, nil); !locks[1].PaymentLocked {
		t.Fatalf("expected lock when a priced choice is selected")
	}

	state.Values["evening"] = map[string]any{"none": float64(1)}
	if locks := ResolveLocks(state, true, nil); locks[1].PaymentLocked {
		t.Fatalf("expected no lock when the free choice is selected")
	}
}

func TestResolveLocks_VisibilityAncestorOfPricedField_Locked(t *testing.T) {
	fields := []FieldState{
		{ID: 1, HTMLName: "attending", InputType: "checkbox"},
		{
			ID: 2, HTMLName: "gala", InputType: "checkbox", Price: 40,
			ShowIfFieldID: 1, ShowIfValues: []string{"1"},
		},
		{ID: 3, HTMLName: "notes", InputType: "textarea"},
	}
	locks := ResolveLocks(FormState{Fields: fields, Values: map[string]any{}}, true, nil)
	if !locks[1].PaymentLocked {
		t.Fatalf("expected controller of priced field locked, got %+v", locks[1])
	}
	if !locks[2].PaymentLocked {
		t.Fatalf("expected priced field locked, got %+v", locks[2])
	}
	if locks[3].PaymentLocked {
		t.Fatalf("expected unrelated field unlocked, got %+v", locks[3])
	}
}

func TestResolveLocks_TransitiveAncestorChain(t *testing.T) {
	fields := []FieldState{
		{ID: 1, HTMLName: "a", InputType: "checkbox"},
		{ID: 2, HTMLName: "b", InputType: "checkbox", ShowIfFieldID: 1, ShowIfValues: []string{"1"}},
		{ID: 3, HTMLName: "c", InputType: "checkbox", Price: 5, ShowIfFieldID: 2, ShowIfValues: []string{"1"}},
	}
	locks := ResolveLocks(FormState{Fields: fields, Values: map[string]any{}}, true, nil)
	for id := int64(1); id <= 3; id++ {
		if !locks[id].PaymentLocked {
			t.Fatalf("expected field %d locked via ancestor chain, got %+v", id, locks)
		}
	}
}

func TestResolveLocks_Purged_IndependentOfPayment(t *testing.T) {
	fields := []FieldState{
		{ID: 1, HTMLName: "dietary", InputType: "text"},
	}
	purged := map[int64]bool{1: true}

	locks := ResolveLocks(FormState{Fields: fields, Values: map[string]any{}}, false, purged)
	if !locks[1].Purged {
		t.Fatalf("expected purged flag on unpaid registration, got %+v", locks[1])
	}
	if locks[1].PaymentLocked {
		t.Fatalf("purged must not imply payment lock, got %+v", locks[1])
	}

	locks = ResolveLocks(FormState{Fields: fields, Values: map[string]any{}}, true, purged)
	if !locks[1].Purged {
		t.Fatalf("expected purged flag on paid registration, got %+v", locks[1])
	}
}

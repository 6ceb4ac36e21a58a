package engine

import (
	"regform-api/internal/fieldtypes"
)

// ResolveHidden computes the hidden-set: the ids of all fields whose showIf
// condition is currently unmet. A field with a condition on controller C is
// hidden when C is itself hidden, or when none of C's extracted comparison
// values appear in the field's token set. A dangling controller reference
// (deleted field) leaves the dependent visible. The walk memoizes per field,
// so chains are evaluated once regardless of input order; a field re-entered
// during its own evaluation (condition cycle) is treated as visible.
func ResolveHidden(state FormState) map[int64]bool {
	byID := state.fieldsByID()
	memo := make(map[int64]visState, len(state.Fields))
	hidden := make(map[int64]bool)

	var resolve func(f FieldState) bool
	resolve = func(f FieldState) bool {
		switch memo[f.ID] {
		case visHidden:
			return true
		case visShown, visPending:
			return false
		}
		memo[f.ID] = visPending

		result := false
		if f.ShowIfFieldID != 0 {
			controller, ok := byID[f.ShowIfFieldID]
			if ok {
				if resolve(controller) {
					result = true
				} else {
					extracted := fieldtypes.Lookup(controller.InputType).ExtractValues(state.valueOf(controller))
					result = !intersects(extracted, f.ShowIfValues)
				}
			}
		}

		if result {
			memo[f.ID] = visHidden
		} else {
			memo[f.ID] = visShown
		}
		return result
	}

	for _, f := range state.Fields {
		if resolve(f) {
			hidden[f.ID] = true
		}
	}
	return hidden
}

// ResetHidden returns a copy of the value map with every hidden field's value
// replaced by its type default, so stale values from hidden fields never make
// it into a submission.
func ResetHidden(state FormState, hidden map[int64]bool) map[string]any {
	out := make(map[string]any, len(state.Values))
	for k, v := range state.Values {
		out[k] = v
	}
	for _, f := range state.Fields {
		if !hidden[f.ID] || f.HTMLName == "" {
			continue
		}
		out[f.HTMLName] = fieldtypes.Lookup(f.InputType).DefaultValue(f.Settings)
	}
	return out
}

type visState int

const (
	visUnknown visState = iota
	visPending
	visShown
	visHidden
)

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

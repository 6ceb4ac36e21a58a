package engine

import (
	"reflect"

	"regform-api/internal/fieldtypes"
)

// BuildPayload assembles the values to persist for a submission: static items
// and fields in the hidden-set are dropped (the server must never store stale
// values for hidden fields), as is every transient-only html name such as the
// one-time consent checkbox.
func BuildPayload(state FormState, hidden map[int64]bool, transient []string) map[string]any {
	skip := make(map[string]bool, len(transient))
	for _, name := range transient {
		skip[name] = true
	}

	out := map[string]any{}
	for _, f := range state.Fields {
		if f.HTMLName == "" || hidden[f.ID] || skip[f.HTMLName] {
			continue
		}
		if fieldtypes.Lookup(f.InputType).NoInput {
			continue
		}
		if v, ok := state.Values[f.HTMLName]; ok {
			out[f.HTMLName] = v
		}
	}
	return out
}

// DiffPayload reduces an update payload to the fields whose value actually
// changed against the previously stored ones, plus the html names that are
// always included (control flags like the notify switch).
func DiffPayload(payload, previous map[string]any, alwaysInclude []string) map[string]any {
	keep := make(map[string]bool, len(alwaysInclude))
	for _, name := range alwaysInclude {
		keep[name] = true
	}

	out := map[string]any{}
	for name, value := range payload {
		prev, had := previous[name]
		if keep[name] || !had || !reflect.DeepEqual(value, prev) {
			out[name] = value
		}
	}
	return out
}

// ValidateValues runs the per-type value check for every visible input field,
// returning a {htmlName: message} map. Hidden fields are never validated.
func ValidateValues(state FormState, hidden map[int64]bool) map[string]string {
	errs := map[string]string{}
	for _, f := range state.Fields {
		if f.HTMLName == "" || hidden[f.ID] {
			continue
		}
		def := fieldtypes.Lookup(f.InputType)
		if def.NoInput || def.Placeholder {
			continue
		}
		if err := def.ValidateValue(state.Values[f.HTMLName], f.Settings, f.IsRequired); err != nil {
			errs[f.HTMLName] = err.Error()
		}
	}
	return errs
}

// TotalPrice sums the price every visible field derives from its current
// value.
func TotalPrice(state FormState, hidden map[int64]bool) float64 {
	var total float64
	for _, f := range state.Fields {
		if hidden[f.ID] {
			continue
		}
		def := fieldtypes.Lookup(f.InputType)
		total += def.CalculatePrice(state.valueOf(f), f.Settings, f.Price)
	}
	return total
}

package fieldtypes

import (
	"fmt"
	"strings"
	"sync"
)

// Definition describes one input type of the registration form. All function
// members operate on the decoded JSON shapes the API stores: settings as a
// map, values as whatever json.Unmarshal produced for the field.
type Definition struct {
	Name string

	// NoInput marks static items (labels) that carry no html_name and no value.
	NoInput bool

	// Placeholder marks an unknown type. The form keeps rendering such fields
	// as inert blocks instead of failing.
	Placeholder bool

	ExtractValues    func(raw any) []string
	DefaultValue     func(settings map[string]any) any
	ValidateSettings func(settings map[string]any) error
	ValidateValue    func(value any, settings map[string]any, required bool) error
	CalculatePrice   func(value any, settings map[string]any, basePrice float64) float64
}

var (
	mu       sync.RWMutex
	registry = map[string]Definition{}
)

// Register adds or replaces a type definition. Called from init for the
// builtin types; plugins may call it during startup.
func Register(def Definition) {
	if strings.TrimSpace(def.Name) == "" {
		panic("fieldtypes: definition without a name")
	}
	mu.Lock()
	defer mu.Unlock()
	registry[def.Name] = def
}

// Lookup resolves an input-type tag. Unknown tags yield an inert placeholder
// so a form referencing a type from a disabled plugin stays usable.
func Lookup(name string) Definition {
	mu.RLock()
	def, ok := registry[name]
	mu.RUnlock()
	if ok {
		return fillDefaults(def)
	}
	return fillDefaults(Definition{Name: name, Placeholder: true})
}

// Known reports whether the tag has a real (non-placeholder) definition.
func Known(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[name]
	return ok
}

func fillDefaults(def Definition) Definition {
	if def.ExtractValues == nil {
		def.ExtractValues = extractPassthrough
	}
	if def.DefaultValue == nil {
		def.DefaultValue = func(map[string]any) any { return nil }
	}
	if def.ValidateSettings == nil {
		def.ValidateSettings = func(map[string]any) error { return nil }
	}
	if def.ValidateValue == nil {
		def.ValidateValue = validateRequiredOnly
	}
	if def.CalculatePrice == nil {
		def.CalculatePrice = priceBaseIfSet
	}
	return def
}

// extractPassthrough is the fallback comparison-value extraction: the raw
// value stringified, or nothing when it is falsy.
func extractPassthrough(raw any) []string {
	if isFalsy(raw) {
		return nil
	}
	return []string{fmt.Sprintf("%v", raw)}
}

func validateRequiredOnly(value any, _ map[string]any, required bool) error {
	if required && isFalsy(value) {
		return fmt.Errorf("field is required")
	}
	return nil
}

func priceBaseIfSet(value any, _ map[string]any, basePrice float64) float64 {
	if basePrice <= 0 || isFalsy(value) {
		return 0
	}
	return basePrice
}

func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

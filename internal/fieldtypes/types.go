package fieldtypes

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"
)

// Builtin input types mirroring the registration form catalog. Each entry is
// registered at package init; the settings payloads stay opaque maps owned by
// the type that declared them.

func init() {
	Register(textType("text"))
	Register(textType("textarea"))
	Register(textType("phone"))
	Register(Definition{
		Name:          "number",
		ValidateValue: validateNumber,
	})
	Register(Definition{
		Name:          "checkbox",
		ExtractValues: extractCheckbox,
		DefaultValue:  func(map[string]any) any { return false },
		ValidateValue: validateCheckbox,
	})
	Register(Definition{
		Name:          "date",
		ValidateValue: validateRequiredOnly,
	})
	Register(Definition{
		Name:          "country",
		ValidateValue: validateCountry,
	})
	Register(Definition{
		Name:          "email",
		ValidateValue: validateEmail,
	})
	Register(Definition{
		Name:             "single_choice",
		ExtractValues:    extractChoiceKeys,
		DefaultValue:     defaultSingleChoice,
		ValidateSettings: validateChoiceSettings,
		ValidateValue:    validateChoiceValue,
		CalculatePrice:   priceChoices,
	})
	Register(Definition{
		Name:             "multi_choice",
		ExtractValues:    extractChoiceKeys,
		DefaultValue:     func(map[string]any) any { return map[string]any{} },
		ValidateSettings: validateChoiceSettings,
		ValidateValue:    validateChoiceValue,
		CalculatePrice:   priceChoices,
	})
	Register(Definition{
		Name:             "accommodation",
		ExtractValues:    extractAccommodation,
		DefaultValue:     func(map[string]any) any { return map[string]any{} },
		ValidateSettings: validateChoiceSettings,
		ValidateValue:    validateAccommodation,
		CalculatePrice:   priceAccommodation,
	})
	Register(Definition{Name: "file"})
	Register(Definition{Name: "picture"})
	Register(Definition{Name: "label", NoInput: true})
}

func textType(name string) Definition {
	return Definition{
		Name:          name,
		DefaultValue:  func(map[string]any) any { return "" },
		ValidateValue: validateText,
	}
}

// extractCheckbox yields "1" or "0" so boolean conditions compare against the
// stored token set.
func extractCheckbox(raw any) []string {
	b, _ := raw.(bool)
	if b {
		return []string{"1"}
	}
	return []string{"0"}
}

// extractChoiceKeys yields the choice ids with a positive slot count. Single
// and multi choice share the {id: slots} value shape.
func extractChoiceKeys(raw any) []string {
	m, ok := raw.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	var keys []string
	for id, slots := range m {
		if n, ok := slots.(float64); ok && n <= 0 {
			continue
		}
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}

func extractAccommodation(raw any) []string {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	choice, _ := m["choice"].(string)
	if choice == "" {
		return nil
	}
	return []string{choice}
}

func defaultSingleChoice(settings map[string]any) any {
	id, _ := settings["default_item"].(string)
	if id == "" {
		return map[string]any{}
	}
	for _, c := range settingsChoices(settings) {
		if choiceID(c) == id {
			return map[string]any{id: float64(1)}
		}
	}
	return map[string]any{}
}

func validateText(value any, settings map[string]any, required bool) error {
	s, _ := value.(string)
	s = strings.TrimSpace(s)
	if s == "" {
		if required {
			return fmt.Errorf("field is required")
		}
		return nil
	}
	if max, ok := settings["max_length"].(float64); ok && max > 0 && float64(len(s)) > max {
		return fmt.Errorf("value is longer than %d characters", int(max))
	}
	return nil
}

func validateNumber(value any, settings map[string]any, required bool) error {
	if isFalsy(value) && required {
		return fmt.Errorf("field is required")
	}
	n, ok := value.(float64)
	if !ok {
		if value == nil {
			return nil
		}
		return fmt.Errorf("not a number")
	}
	if min, ok := settings["min_value"].(float64); ok && n < min {
		return fmt.Errorf("value must be at least %v", min)
	}
	if max, ok := settings["max_value"].(float64); ok && max > 0 && n > max {
		return fmt.Errorf("value must be at most %v", max)
	}
	return nil
}

func validateCheckbox(value any, _ map[string]any, required bool) error {
	b, _ := value.(bool)
	if required && !b {
		return fmt.Errorf("field must be checked")
	}
	return nil
}

func validateCountry(value any, _ map[string]any, required bool) error {
	s, _ := value.(string)
	s = strings.TrimSpace(s)
	if s == "" {
		if required {
			return fmt.Errorf("field is required")
		}
		return nil
	}
	if len(s) != 2 || s != strings.ToUpper(s) {
		return fmt.Errorf("not a country code")
	}
	return nil
}

func validateEmail(value any, _ map[string]any, required bool) error {
	s, _ := value.(string)
	s = strings.TrimSpace(s)
	if s == "" {
		if required {
			return fmt.Errorf("field is required")
		}
		return nil
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

func validateChoiceSettings(settings map[string]any) error {
	choices := settingsChoices(settings)
	if len(choices) == 0 {
		return fmt.Errorf("at least one choice is required")
	}
	seen := map[string]bool{}
	for i, c := range choices {
		id := choiceID(c)
		if id == "" {
			return fmt.Errorf("choice %d has no id", i+1)
		}
		if seen[id] {
			return fmt.Errorf("duplicate choice id %s", id)
		}
		seen[id] = true
		if caption, _ := c["caption"].(string); strings.TrimSpace(caption) == "" {
			return fmt.Errorf("choice %s has no caption", id)
		}
		if price, ok := c["price"].(float64); ok && price < 0 {
			return fmt.Errorf("choice %s has a negative price", id)
		}
	}
	return nil
}

func validateChoiceValue(value any, settings map[string]any, required bool) error {
	selected := extractChoiceKeys(value)
	if len(selected) == 0 {
		if required {
			return fmt.Errorf("field is required")
		}
		return nil
	}
	choices := settingsChoices(settings)
	for _, id := range selected {
		found := false
		for _, c := range choices {
			if choiceID(c) == id {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown choice %s", id)
		}
	}
	return nil
}

func validateAccommodation(value any, settings map[string]any, required bool) error {
	m, _ := value.(map[string]any)
	if len(m) == 0 {
		if required {
			return fmt.Errorf("field is required")
		}
		return nil
	}
	if noAcc, _ := m["is_no_accommodation"].(bool); noAcc {
		return nil
	}
	choice, _ := m["choice"].(string)
	if choice == "" {
		return fmt.Errorf("no accommodation selected")
	}
	arrival, _ := m["arrival_date"].(string)
	departure, _ := m["departure_date"].(string)
	if arrival == "" || departure == "" {
		return fmt.Errorf("arrival/departure date is missing")
	}
	if arrival > departure {
		return fmt.Errorf("arrival date can't be set after the departure date")
	}
	return validateChoiceValue(map[string]any{choice: float64(1)}, settings, false)
}

// priceChoices sums the price of every selected billable choice; extra slots
// beyond the first pay again when the choice opted into that.
func priceChoices(value any, settings map[string]any, _ float64) float64 {
	m, ok := value.(map[string]any)
	if !ok || len(m) == 0 {
		return 0
	}
	var total float64
	for _, c := range settingsChoices(settings) {
		id := choiceID(c)
		slotsRaw, selected := m[id]
		if !selected {
			continue
		}
		price, _ := c["price"].(float64)
		if price <= 0 {
			continue
		}
		total += price
		slots, _ := slotsRaw.(float64)
		if pay, _ := c["extra_slots_pay"].(bool); pay && slots > 1 {
			total += (slots - 1) * price
		}
	}
	return total
}

func priceAccommodation(value any, settings map[string]any, _ float64) float64 {
	m, ok := value.(map[string]any)
	if !ok {
		return 0
	}
	choice, _ := m["choice"].(string)
	if choice == "" {
		return 0
	}
	for _, c := range settingsChoices(settings) {
		if choiceID(c) != choice {
			continue
		}
		price, _ := c["price"].(float64)
		if price <= 0 {
			return 0
		}
		arrival, _ := m["arrival_date"].(string)
		departure, _ := m["departure_date"].(string)
		nights := nightsBetween(arrival, departure)
		if nights <= 0 {
			return 0
		}
		return price * float64(nights)
	}
	return 0
}

func nightsBetween(arrival, departure string) int {
	a, err := time.Parse("2006-01-02", arrival)
	if err != nil {
		return 0
	}
	d, err := time.Parse("2006-01-02", departure)
	if err != nil {
		return 0
	}
	return int(d.Sub(a).Hours() / 24)
}

func settingsChoices(settings map[string]any) []map[string]any {
	raw, _ := settings["choices"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func choiceID(c map[string]any) string {
	id, _ := c["id"].(string)
	return id
}

// ChoicePrice returns the price of one choice id, 0 when absent or free.
func ChoicePrice(settings map[string]any, id string) float64 {
	for _, c := range settingsChoices(settings) {
		if choiceID(c) == id {
			price, _ := c["price"].(float64)
			return price
		}
	}
	return 0
}

// HasPricedChoice reports whether any choice of the settings carries a price.
func HasPricedChoice(settings map[string]any) bool {
	for _, c := range settingsChoices(settings) {
		if price, _ := c["price"].(float64); price > 0 {
			return true
		}
	}
	return false
}

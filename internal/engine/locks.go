package engine

import (
	"regform-api/internal/fieldtypes"
)

// FieldLock is the derived edit state of one field.
type FieldLock struct {
	// PaymentLocked means edits are blocked because the registration was
	// already paid and changing this field could change the amount due.
	PaymentLocked bool
	// Purged means the field's stored data was erased after its retention
	// period elapsed; such fields render read-only and empty no matter what.
	Purged bool
}

// ResolveLocks derives per-field locks. Payment locking applies when the
// registration is paid and the field either carries a price itself, currently
// selects a priced choice, or (transitively) controls the visibility of a
// priced field. Purged state is supplied by the caller and passed through
// unconditionally.
func ResolveLocks(state FormState, isPaid bool, purged map[int64]bool) map[int64]FieldLock {
	locks := make(map[int64]FieldLock, len(state.Fields))
	for _, f := range state.Fields {
		locks[f.ID] = FieldLock{Purged: purged[f.ID]}
	}
	if !isPaid {
		return locks
	}

	byID := state.fieldsByID()
	for _, f := range state.Fields {
		if selectsPrice(state, f) {
			lock := locks[f.ID]
			lock.PaymentLocked = true
			locks[f.ID] = lock
		}

		// changing an ancestor could toggle a priced field's visibility
		if !carriesPrice(f) {
			continue
		}
		seen := map[int64]bool{f.ID: true}
		for cur := f; cur.ShowIfFieldID != 0; {
			controller, ok := byID[cur.ShowIfFieldID]
			if !ok || seen[controller.ID] {
				break
			}
			seen[controller.ID] = true
			lock := locks[controller.ID]
			lock.PaymentLocked = true
			locks[controller.ID] = lock
			cur = controller
		}
	}
	return locks
}

func carriesPrice(f FieldState) bool {
	return f.Price > 0 || fieldtypes.HasPricedChoice(f.Settings)
}

func selectsPrice(state FormState, f FieldState) bool {
	if f.Price > 0 {
		return true
	}
	if !fieldtypes.HasPricedChoice(f.Settings) {
		return false
	}
	def := fieldtypes.Lookup(f.InputType)
	for _, id := range def.ExtractValues(state.valueOf(f)) {
		if fieldtypes.ChoicePrice(f.Settings, id) > 0 {
			return true
		}
	}
	return false
}

package engine

// FieldState is the snapshot of one form field the resolvers work on. It
// carries only what visibility and lock evaluation need; rendering metadata
// stays in the regform models.
type FieldState struct {
	ID            int64
	HTMLName      string
	InputType     string
	IsRequired    bool
	Price         float64
	ShowIfFieldID int64 // 0 means no condition
	ShowIfValues  []string
	Settings      map[string]any
}

// FormState is an explicit, injectable snapshot of one form instance: the
// field list plus the current value of every html name. Multiple states can
// coexist (one per request, one per test) since nothing here is global.
type FormState struct {
	Fields []FieldState
	Values map[string]any
}

func (s FormState) fieldsByID() map[int64]FieldState {
	m := make(map[int64]FieldState, len(s.Fields))
	for _, f := range s.Fields {
		m[f.ID] = f
	}
	return m
}

func (s FormState) valueOf(f FieldState) any {
	if f.HTMLName == "" {
		return nil
	}
	return s.Values[f.HTMLName]
}

package regform

import (
	"fmt"
	"sort"
)

// bandEntry is the minimal view of a section or field the position logic
// needs. Keeping the renumbering pure makes rollback a replay of the inverse
// move and keeps it independent of the persistence layer.
type bandEntry struct {
	ID       int64
	Enabled  bool
	Position int
}

// renumber assigns canonical band positions: enabled entries get consecutive
// integers from 1 in their current relative order, disabled entries get
// consecutive integers from DisabledBandStart.
func renumber(entries []bandEntry) map[int64]int {
	sorted := make([]bandEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Enabled != sorted[j].Enabled {
			return sorted[i].Enabled
		}
		return sorted[i].Position < sorted[j].Position
	})

	out := make(map[int64]int, len(sorted))
	nextEnabled, nextDisabled := 1, DisabledBandStart
	for _, e := range sorted {
		if e.Enabled {
			out[e.ID] = nextEnabled
			nextEnabled++
		} else {
			out[e.ID] = nextDisabled
			nextDisabled++
		}
	}
	return out
}

// moveEntry reorders one enabled entry to endPos (1-based) within the enabled
// band and returns the full renumbered position map. Disabled entries cannot
// be moved; they first have to be re-enabled, which renumbers both bands
// anyway.
func moveEntry(entries []bandEntry, id int64, endPos int) (map[int64]int, error) {
	var target *bandEntry
	enabled := make([]bandEntry, 0, len(entries))
	for i := range entries {
		if entries[i].ID == id {
			target = &entries[i]
		}
		if entries[i].Enabled {
			enabled = append(enabled, entries[i])
		}
	}
	if target == nil {
		return nil, fmt.Errorf("entry %d not found", id)
	}
	if !target.Enabled {
		return nil, fmt.Errorf("cannot move a disabled entry")
	}
	if endPos < 1 || endPos > len(enabled) {
		return nil, fmt.Errorf("target position %d out of range 1..%d", endPos, len(enabled))
	}

	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Position < enabled[j].Position
	})

	reordered := make([]bandEntry, 0, len(enabled))
	for _, e := range enabled {
		if e.ID != id {
			reordered = append(reordered, e)
		}
	}
	reordered = append(reordered, bandEntry{})
	copy(reordered[endPos:], reordered[endPos-1:])
	reordered[endPos-1] = *target

	out := make(map[int64]int, len(entries))
	for i, e := range reordered {
		out[e.ID] = i + 1
	}
	nextDisabled := DisabledBandStart
	disabled := make([]bandEntry, 0)
	for _, e := range entries {
		if !e.Enabled {
			disabled = append(disabled, e)
		}
	}
	sort.SliceStable(disabled, func(i, j int) bool {
		return disabled[i].Position < disabled[j].Position
	})
	for _, e := range disabled {
		out[e.ID] = nextDisabled
		nextDisabled++
	}
	return out, nil
}

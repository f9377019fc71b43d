package chat

import (
	"strings"
	"time"
)

// Ledger is the append-only record of recipe mutations for a session. The
// effective remove set is always derived from the entries, never cached.
type Ledger struct {
	entries []ModificationEntry
}

func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the ledger in append order.
func (l *Ledger) Entries() []ModificationEntry {
	out := make([]ModificationEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger) Append(entry ModificationEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	l.entries = append(l.entries, entry)
}

// Restore replaces the ledger wholesale, used when a client re-seeds a
// session at init.
func (l *Ledger) Restore(entries []ModificationEntry) {
	l.entries = make([]ModificationEntry, len(entries))
	copy(l.entries, entries)
}

// EffectiveRemoveSet is the union of removed ingredients across remove and
// replace entries, minus ingredients later re-introduced by a replace.
// Order follows first appearance.
func (l *Ledger) EffectiveRemoveSet() []string {
	var removed []string
	allowed := make(map[string]struct{})

	for _, entry := range l.entries {
		if entry.Type != ModRemove && entry.Type != ModReplace {
			continue
		}
		removed = append(removed, entry.RemoveIngredients...)
		if entry.Type == ModReplace {
			for _, ingredient := range entry.AddIngredients {
				allowed[ingredient] = struct{}{}
			}
		}
	}

	seen := make(map[string]struct{}, len(removed))
	var effective []string
	for _, ingredient := range removed {
		if _, ok := allowed[ingredient]; ok {
			continue
		}
		if _, ok := seen[ingredient]; ok {
			continue
		}
		seen[ingredient] = struct{}{}
		effective = append(effective, ingredient)
	}
	return effective
}

// ConflictsWith returns the effectively-removed ingredients that appear as
// substrings of the query (case-insensitive).
func (l *Ledger) ConflictsWith(query string) []string {
	queryLower := strings.ToLower(query)
	var conflicted []string
	for _, ingredient := range l.EffectiveRemoveSet() {
		if strings.Contains(queryLower, strings.ToLower(ingredient)) {
			conflicted = append(conflicted, ingredient)
		}
	}
	return conflicted
}

// ReleaseIngredients lifts the given ingredients from the ledger after the
// user confirms a conflicting search. Entries whose remove list empties out
// are dropped; entries that never removed anything stay.
func (l *Ledger) ReleaseIngredients(ingredients []string) {
	released := make(map[string]struct{}, len(ingredients))
	for _, ingredient := range ingredients {
		released[ingredient] = struct{}{}
	}

	var kept []ModificationEntry
	for _, entry := range l.entries {
		if entry.Type != ModRemove && entry.Type != ModReplace {
			kept = append(kept, entry)
			continue
		}
		var remaining []string
		for _, ingredient := range entry.RemoveIngredients {
			if _, ok := released[ingredient]; !ok {
				remaining = append(remaining, ingredient)
			}
		}
		if len(remaining) > 0 || len(entry.RemoveIngredients) == 0 {
			entry.RemoveIngredients = remaining
			kept = append(kept, entry)
		}
	}
	l.entries = kept
}

package usage

import "strings"

// RenameUser moves every occurrence of oldName across the given periods to
// newName. When newName already exists in a period, the two entries are
// merged by device identity key, the same policy the aggregator applies
// across periods. Empty or whitespace-only new names are a no-op, not an
// error. Returns whether any period changed.
func RenameUser(periods []*ReportPeriod, oldName, newName string) bool {
	newName = strings.TrimSpace(newName)
	if newName == "" || newName == oldName {
		return false
	}

	changed := false
	for _, p := range periods {
		ud, ok := p.Users[oldName]
		if !ok {
			continue
		}
		delete(p.Users, oldName)

		if existing, ok := p.Users[newName]; ok {
			for _, pu := range ud.PrinterUsage {
				existing.AddUsage(*pu)
			}
		} else {
			p.Users[newName] = ud
		}
		changed = true
	}
	return changed
}

// DeleteUsers removes each named identity from every period's user map
// unconditionally. No merge, no recomputation of sibling totals. Returns the
// number of (period, user) entries removed.
func DeleteUsers(periods []*ReportPeriod, names ...string) int {
	removed := 0
	for _, p := range periods {
		for _, name := range names {
			if _, ok := p.Users[name]; ok {
				delete(p.Users, name)
				removed++
			}
		}
	}
	return removed
}

package usage

import (
	"sort"
	"time"
)

// Summary is the output of Aggregate: the ordered period list, the overall
// date span, the full identity sets, and the per-user merged totals after
// printer filtering.
type Summary struct {
	Periods    []*ReportPeriod      `json:"periods"`
	RangeStart *time.Time           `json:"rangeStart,omitempty"`
	RangeEnd   *time.Time           `json:"rangeEnd,omitempty"`
	Users      []string             `json:"users"`
	Printers   []string             `json:"printers"`
	PerUser    map[string]*UserData `json:"perUserTotals"`
}

// Aggregate merges a set of periods into per-user totals. It is a pure
// function of its inputs: no hidden state, so re-running it with the same
// arguments yields identical output.
//
// selectedPrinters restricts per-user output to usage on the named devices;
// an empty or nil selection means no filter. A user whose every device is
// excluded by the filter contributes nothing at all, not even a zero entry,
// though they still appear in the unfiltered Users set.
func Aggregate(periods []*ReportPeriod, selectedPrinters []string) *Summary {
	var selection map[string]bool
	if len(selectedPrinters) > 0 {
		selection = make(map[string]bool, len(selectedPrinters))
		for _, name := range selectedPrinters {
			selection[name] = true
		}
	}

	ordered := make([]*ReportPeriod, len(periods))
	copy(ordered, periods)
	// Stable: periods with equal keys keep their input order.
	sort.SliceStable(ordered, func(i, j int) bool {
		return periodSortKey(ordered[i]).Before(periodSortKey(ordered[j]))
	})

	s := &Summary{
		Periods: ordered,
		PerUser: make(map[string]*UserData),
	}
	s.RangeStart, s.RangeEnd = overallRange(ordered)

	userSet := make(map[string]bool)
	printerSet := make(map[string]bool)

	for _, p := range ordered {
		for _, name := range sortedUserNames(p) {
			userSet[name] = true
			ud := p.Users[name]
			for _, pu := range ud.PrinterUsage {
				printerSet[pu.DeviceName] = true
			}

			surviving := ud.PrinterUsage
			if selection != nil {
				surviving = nil
				for _, pu := range ud.PrinterUsage {
					if selection[pu.DeviceName] {
						surviving = append(surviving, pu)
					}
				}
				if len(surviving) == 0 {
					continue
				}
			}

			entry, ok := s.PerUser[name]
			if !ok {
				entry = &UserData{}
				s.PerUser[name] = entry
			}
			for _, pu := range surviving {
				entry.AddUsage(*pu)
			}
		}
	}

	s.Users = sortedKeys(userSet)
	s.Printers = sortedKeys(printerSet)
	return s
}

func periodSortKey(p *ReportPeriod) time.Time {
	if p.RangeStart != nil {
		return *p.RangeStart
	}
	if p.DateCreated != nil {
		return *p.DateCreated
	}
	return time.Time{}
}

// overallRange spans the min rangeStart to the max rangeEnd across periods.
// Absent entirely when no period carries both ends.
func overallRange(periods []*ReportPeriod) (*time.Time, *time.Time) {
	hasComplete := false
	for _, p := range periods {
		if p.RangeStart != nil && p.RangeEnd != nil {
			hasComplete = true
			break
		}
	}
	if !hasComplete {
		return nil, nil
	}

	var start, end *time.Time
	for _, p := range periods {
		if p.RangeStart != nil && (start == nil || p.RangeStart.Before(*start)) {
			t := *p.RangeStart
			start = &t
		}
		if p.RangeEnd != nil && (end == nil || p.RangeEnd.After(*end)) {
			t := *p.RangeEnd
			end = &t
		}
	}
	return start, end
}

func sortedUserNames(p *ReportPeriod) []string {
	names := make([]string, 0, len(p.Users))
	for name := range p.Users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

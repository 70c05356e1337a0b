package usage

import (
	"testing"
)

func TestRenameUserMovesData(t *testing.T) {
	p := makePeriod("jan", date(2024, 1, 1), date(2024, 1, 31), map[string][]PrinterUsage{
		"jdoe": {devUsage("Office MFP", "10.0.0.1", 10, 10)},
	})

	if !RenameUser([]*ReportPeriod{p}, "jdoe", "John Doe") {
		t.Fatal("expected rename to report a change")
	}
	if _, ok := p.Users["jdoe"]; ok {
		t.Error("old identity still present")
	}
	if ud := p.Users["John Doe"]; ud == nil || ud.Totals.Mono != 10 {
		t.Errorf("data not moved: %+v", ud)
	}
}

func TestRenameUserMergesOnCollision(t *testing.T) {
	p := makePeriod("jan", date(2024, 1, 1), date(2024, 1, 31), map[string][]PrinterUsage{
		"jdoe":     {devUsage("Office MFP", "10.0.0.1", 10, 10)},
		"John Doe": {devUsage("Office MFP", "10.0.0.1", 5, 5), devUsage("Lobby Printer", "10.0.0.2", 2, 2)},
	})

	if !RenameUser([]*ReportPeriod{p}, "jdoe", "John Doe") {
		t.Fatal("expected rename to report a change")
	}

	ud := p.Users["John Doe"]
	if ud.Totals.Mono != 15 {
		t.Errorf("mono = %d, want sum of both identities (15)", ud.Totals.Mono)
	}
	// Shared devices merge by identity key rather than concatenating.
	if len(ud.PrinterUsage) != 2 {
		t.Errorf("devices = %d, want 2", len(ud.PrinterUsage))
	}

	var sum Totals
	for _, pu := range ud.PrinterUsage {
		sum.Add(pu.Totals)
	}
	if sum != ud.Totals {
		t.Errorf("totals %+v != device sum %+v", ud.Totals, sum)
	}
}

func TestRenameUserBlankNameIsNoOp(t *testing.T) {
	p := makePeriod("jan", date(2024, 1, 1), date(2024, 1, 31), map[string][]PrinterUsage{
		"jdoe": {devUsage("Office MFP", "10.0.0.1", 10, 10)},
	})

	if RenameUser([]*ReportPeriod{p}, "jdoe", "   ") {
		t.Error("whitespace-only name must be a no-op")
	}
	if _, ok := p.Users["jdoe"]; !ok {
		t.Error("identity should be untouched after no-op")
	}
}

func TestRenameUserAcrossPeriods(t *testing.T) {
	p1 := makePeriod("jan", date(2024, 1, 1), date(2024, 1, 31), map[string][]PrinterUsage{
		"jdoe": {devUsage("Office MFP", "10.0.0.1", 10, 10)},
	})
	p2 := makePeriod("feb", date(2024, 2, 1), date(2024, 2, 29), map[string][]PrinterUsage{
		"jdoe": {devUsage("Office MFP", "10.0.0.1", 3, 3)},
	})

	RenameUser([]*ReportPeriod{p1, p2}, "jdoe", "John Doe")
	for _, p := range []*ReportPeriod{p1, p2} {
		if _, ok := p.Users["John Doe"]; !ok {
			t.Errorf("period %s missing renamed identity", p.ID)
		}
	}
}

func TestDeleteUsers(t *testing.T) {
	p1 := makePeriod("jan", date(2024, 1, 1), date(2024, 1, 31), map[string][]PrinterUsage{
		"jdoe":   {devUsage("Office MFP", "10.0.0.1", 10, 10)},
		"asmith": {devUsage("Lobby Printer", "10.0.0.2", 7, 7)},
	})
	p2 := makePeriod("feb", date(2024, 2, 1), date(2024, 2, 29), map[string][]PrinterUsage{
		"jdoe": {devUsage("Office MFP", "10.0.0.1", 3, 3)},
	})
	grand := p1.GrandTotals

	removed := DeleteUsers([]*ReportPeriod{p1, p2}, "jdoe", "nobody")
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if _, ok := p1.Users["jdoe"]; ok {
		t.Error("jdoe still present in jan")
	}
	if _, ok := p1.Users["asmith"]; !ok {
		t.Error("asmith should be untouched")
	}
	// Delete performs no totals recomputation of siblings or the period.
	if p1.GrandTotals != grand {
		t.Errorf("grand totals changed: %+v -> %+v", grand, p1.GrandTotals)
	}
}

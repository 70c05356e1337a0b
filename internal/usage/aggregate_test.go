package usage

import (
	"reflect"
	"testing"
	"time"
)

func devUsage(name, ip string, mono, total int64) PrinterUsage {
	return PrinterUsage{
		DeviceModel: "Test Device",
		DeviceName:  name,
		IPAddress:   ip,
		Totals:      Totals{Mono: mono, Total: total},
	}
}

func makePeriod(id string, start, end *time.Time, users map[string][]PrinterUsage) *ReportPeriod {
	p := &ReportPeriod{
		ID:         id,
		FileName:   id,
		RangeStart: start,
		RangeEnd:   end,
		Users:      make(map[string]*UserData),
	}
	for name, usages := range users {
		ud := &UserData{}
		for _, u := range usages {
			ud.AddUsage(u)
		}
		p.Users[name] = ud
		p.GrandTotals.Add(ud.Totals)
	}
	return p
}

func TestAggregateMergesAcrossPeriods(t *testing.T) {
	p1 := makePeriod("jan", date(2024, 1, 1), date(2024, 1, 31), map[string][]PrinterUsage{
		"jdoe": {devUsage("Office MFP", "10.0.0.1", 10, 10)},
	})
	p2 := makePeriod("feb", date(2024, 2, 1), date(2024, 2, 29), map[string][]PrinterUsage{
		"jdoe":   {devUsage("Office MFP", "10.0.0.1", 5, 5), devUsage("Lobby Printer", "10.0.0.2", 3, 3)},
		"asmith": {devUsage("Lobby Printer", "10.0.0.2", 7, 7)},
	})

	s := Aggregate([]*ReportPeriod{p2, p1}, nil)

	if got := []string{s.Periods[0].ID, s.Periods[1].ID}; got[0] != "jan" || got[1] != "feb" {
		t.Errorf("periods not sorted by range start: %v", got)
	}
	if s.RangeStart == nil || !s.RangeStart.Equal(*date(2024, 1, 1)) {
		t.Errorf("rangeStart = %v", s.RangeStart)
	}
	if s.RangeEnd == nil || !s.RangeEnd.Equal(*date(2024, 2, 29)) {
		t.Errorf("rangeEnd = %v", s.RangeEnd)
	}
	if !reflect.DeepEqual(s.Users, []string{"asmith", "jdoe"}) {
		t.Errorf("users = %v", s.Users)
	}
	if !reflect.DeepEqual(s.Printers, []string{"Lobby Printer", "Office MFP"}) {
		t.Errorf("printers = %v", s.Printers)
	}

	jdoe := s.PerUser["jdoe"]
	if jdoe.Totals.Mono != 18 {
		t.Errorf("jdoe mono = %d, want 18", jdoe.Totals.Mono)
	}
	// Same device across periods merges into one entry.
	if len(jdoe.PrinterUsage) != 2 {
		t.Errorf("jdoe devices = %d, want 2", len(jdoe.PrinterUsage))
	}

	// Totals consistency: user totals equal the device-wise sum.
	for name, ud := range s.PerUser {
		var sum Totals
		for _, pu := range ud.PrinterUsage {
			sum.Add(pu.Totals)
		}
		if sum != ud.Totals {
			t.Errorf("%s: totals %+v != device sum %+v", name, ud.Totals, sum)
		}
	}
}

func TestAggregatePrinterFilterHidesUser(t *testing.T) {
	p := makePeriod("jan", date(2024, 1, 1), date(2024, 1, 31), map[string][]PrinterUsage{
		"jdoe":   {devUsage("Office MFP", "10.0.0.1", 10, 10)},
		"asmith": {devUsage("Lobby Printer", "10.0.0.2", 7, 7)},
	})

	s := Aggregate([]*ReportPeriod{p}, []string{"Office MFP"})

	if _, ok := s.PerUser["asmith"]; ok {
		t.Error("asmith's only device is filtered out; they must not appear in per-user totals")
	}
	if _, ok := s.PerUser["jdoe"]; !ok {
		t.Error("jdoe should survive the filter")
	}

	// The unfiltered identity sets still include everyone.
	if !reflect.DeepEqual(s.Users, []string{"asmith", "jdoe"}) {
		t.Errorf("users = %v", s.Users)
	}
	if !reflect.DeepEqual(s.Printers, []string{"Lobby Printer", "Office MFP"}) {
		t.Errorf("printers = %v", s.Printers)
	}
}

func TestAggregateEmptySelectionMeansNoFilter(t *testing.T) {
	p := makePeriod("jan", date(2024, 1, 1), date(2024, 1, 31), map[string][]PrinterUsage{
		"jdoe": {devUsage("Office MFP", "10.0.0.1", 10, 10)},
	})

	s := Aggregate([]*ReportPeriod{p}, []string{})
	if _, ok := s.PerUser["jdoe"]; !ok {
		t.Error("empty selection should include all printers")
	}
}

func TestAggregateZeroUsageUserVisibleWithoutFilter(t *testing.T) {
	p := makePeriod("jan", date(2024, 1, 1), date(2024, 1, 31), map[string][]PrinterUsage{
		"ghost": nil,
	})

	s := Aggregate([]*ReportPeriod{p}, nil)
	if _, ok := s.PerUser["ghost"]; !ok {
		t.Error("zero-usage user should appear when no printer filter is active")
	}

	s = Aggregate([]*ReportPeriod{p}, []string{"Office MFP"})
	if _, ok := s.PerUser["ghost"]; ok {
		t.Error("zero-usage user should disappear under a printer filter")
	}
}

func TestAggregateStableSort(t *testing.T) {
	start := date(2024, 1, 1)
	a := makePeriod("a", start, date(2024, 1, 31), nil)
	b := makePeriod("b", start, date(2024, 1, 31), nil)
	c := makePeriod("c", start, date(2024, 1, 31), nil)

	s := Aggregate([]*ReportPeriod{b, a, c}, nil)
	got := []string{s.Periods[0].ID, s.Periods[1].ID, s.Periods[2].ID}
	if !reflect.DeepEqual(got, []string{"b", "a", "c"}) {
		t.Errorf("equal-key periods must keep input order, got %v", got)
	}
}

func TestAggregateSortFallbacks(t *testing.T) {
	dated := makePeriod("dated", date(2024, 6, 1), date(2024, 6, 30), nil)
	created := makePeriod("created", nil, nil, nil)
	created.DateCreated = date(2024, 3, 15)
	bare := makePeriod("bare", nil, nil, nil)

	s := Aggregate([]*ReportPeriod{dated, created, bare}, nil)
	got := []string{s.Periods[0].ID, s.Periods[1].ID, s.Periods[2].ID}
	if !reflect.DeepEqual(got, []string{"bare", "created", "dated"}) {
		t.Errorf("sort fallback order wrong: %v", got)
	}
}

func TestAggregateRangeAbsentWithoutCompletePeriod(t *testing.T) {
	onlyStart := makePeriod("a", date(2024, 1, 1), nil, nil)
	onlyEnd := makePeriod("b", nil, date(2024, 2, 1), nil)

	s := Aggregate([]*ReportPeriod{onlyStart, onlyEnd}, nil)
	if s.RangeStart != nil || s.RangeEnd != nil {
		t.Errorf("no period has both ends; range should be absent, got %v / %v", s.RangeStart, s.RangeEnd)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	p1 := makePeriod("jan", date(2024, 1, 1), date(2024, 1, 31), map[string][]PrinterUsage{
		"jdoe":   {devUsage("Office MFP", "10.0.0.1", 10, 10)},
		"asmith": {devUsage("Lobby Printer", "10.0.0.2", 7, 7)},
	})
	p2 := makePeriod("feb", date(2024, 2, 1), date(2024, 2, 29), map[string][]PrinterUsage{
		"jdoe": {devUsage("Office MFP", "10.0.0.1", 4, 4)},
	})
	periods := []*ReportPeriod{p1, p2}
	filter := []string{"Office MFP", "Lobby Printer"}

	first := Aggregate(periods, filter)
	second := Aggregate(periods, filter)
	if !reflect.DeepEqual(first, second) {
		t.Error("aggregation must be a pure function of its inputs")
	}
}

package usage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Fallbacks substituted for fields the document fails to provide.
const (
	UnknownUser   = "Unknown User"
	UnknownDevice = "Unknown Device"
	UnknownIP     = "Unknown IP"
)

var dateRe = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`)

// Parse recovers a ReportPeriod from a vendor-exported HTML usage report.
// The parser is tolerant: any missing or malformed field resolves to a
// documented default (absent date, zero counter, Unknown placeholder) and
// parsing continues. Only a document whose tree cannot be built at all
// returns an error.
func Parse(documentText, fileName string) (*ReportPeriod, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(documentText))
	if err != nil {
		return nil, fmt.Errorf("build document tree: %w", err)
	}

	period := &ReportPeriod{
		FileName: fileName,
		Users:    make(map[string]*UserData),
	}

	parseHeader(doc, period)

	rows := collectRows(doc)
	scanUserSections(rows, period)

	if grand, ok := findGrandTotals(rows); ok {
		period.GrandTotals = grand
	} else {
		for _, ud := range period.Users {
			period.GrandTotals.Add(ud.Totals)
		}
	}

	period.PeriodLabel = PeriodLabel(period.RangeStart, period.RangeEnd)
	if period.PeriodLabel == "" {
		period.PeriodLabel = fileName
	}
	period.ID = PeriodID(fileName, period.RangeStart, period.RangeEnd)

	return period, nil
}

// parseHeader reads creation date and date range from the header table
// (id="header" preferred, else the first table in the document).
func parseHeader(doc *goquery.Document, period *ReportPeriod) {
	header := doc.Find("table#header").First()
	if header.Length() == 0 {
		header = doc.Find("table").First()
	}
	if header.Length() == 0 {
		return
	}

	header.Find("tr").Each(func(_ int, row *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(row.Find("th,td").First().Text()))
		switch {
		case strings.Contains(label, "date created"):
			if dates := extractDates(row.Text()); len(dates) > 0 {
				period.DateCreated = &dates[0]
			}
		case strings.Contains(label, "date range"):
			dates := extractDates(row.Text())
			if len(dates) > 0 {
				period.RangeStart = &dates[0]
			}
			if len(dates) > 1 {
				period.RangeEnd = &dates[1]
			}
		}
	})
}

// extractDates pulls every parseable MM/DD/YYYY date out of s, in order.
// Strings that match the pattern but are not real calendar dates are skipped.
func extractDates(s string) []time.Time {
	var dates []time.Time
	for _, m := range dateRe.FindAllString(s, -1) {
		if t, err := time.Parse("1/2/2006", m); err == nil {
			dates = append(dates, t)
		}
	}
	return dates
}

func collectRows(doc *goquery.Document) []*goquery.Selection {
	var rows []*goquery.Selection
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		rows = append(rows, row)
	})
	return rows
}

// scanUserSections is a single linear pass over every row in the document.
// A group-header row opens a new user section; rows are then skipped until
// that section's column-header row, after which every row with more than
// minDataCells cells is a usage data row until the next group header.
func scanUserSections(rows []*goquery.Selection, period *ReportPeriod) {
	var current *UserData
	seenColumns := false

	for i, row := range rows {
		if isGroupHeader(row) {
			current = ensureUser(period, userNameAfterGroup(rows, i))
			seenColumns = false
			continue
		}
		if current == nil {
			continue
		}
		if !seenColumns {
			if isColumnHeader(row) {
				seenColumns = true
			}
			continue
		}
		if isTotalsRow(row) {
			// Sub-total row, not a device record.
			continue
		}

		cells := cellTexts(row)
		if len(cells) <= minDataCells {
			continue
		}
		if rec, ok := decodeDataRow(cells); ok {
			current.AddUsage(rec)
		}
	}
}

// userNameAfterGroup reads the user identity for the group header at index i:
// the first data cell of the second row following it.
func userNameAfterGroup(rows []*goquery.Selection, i int) string {
	if i+2 >= len(rows) {
		return UnknownUser
	}
	name := strings.TrimSpace(rows[i+2].Find("td").First().Text())
	if name == "" {
		return UnknownUser
	}
	return name
}

func ensureUser(period *ReportPeriod, name string) *UserData {
	if ud, ok := period.Users[name]; ok {
		return ud
	}
	ud := &UserData{}
	period.Users[name] = ud
	return ud
}

// decodeDataRow extracts a device record via fixed column-index lookup.
// Returns ok=false when the decoded counters fail the non-negative check,
// in which case the whole row is dropped.
func decodeDataRow(cells []string) (PrinterUsage, bool) {
	rec := PrinterUsage{
		DeviceModel: textCell(cells, usageColumns.DeviceModel, UnknownDevice),
		DeviceName:  textCell(cells, usageColumns.DeviceName, UnknownDevice),
		IPAddress:   textCell(cells, usageColumns.IPAddress, UnknownIP),
		Totals:      decodeCounters(cells),
	}
	if !rec.Totals.Valid() {
		return PrinterUsage{}, false
	}
	return rec, true
}

func decodeCounters(cells []string) Totals {
	t := Totals{
		Mono:             counterCell(cells, usageColumns.Mono),
		Color:            counterCell(cells, usageColumns.Color),
		Blank:            counterCell(cells, usageColumns.Blank),
		AdobePDF:         counterCell(cells, usageColumns.AdobePDF),
		Copy:             counterCell(cells, usageColumns.Copy),
		MSExcel:          counterCell(cells, usageColumns.MSExcel),
		MSPowerPoint:     counterCell(cells, usageColumns.MSPowerPoint),
		MSWord:           counterCell(cells, usageColumns.MSWord),
		OtherApplication: counterCell(cells, usageColumns.OtherApplication),
		Print:            counterCell(cells, usageColumns.Print),
		Simplex:          counterCell(cells, usageColumns.Simplex),
		Duplex:           counterCell(cells, usageColumns.Duplex),
	}
	if strings.TrimSpace(rawCell(cells, usageColumns.Total)) == "" {
		t.Total = t.Mono + t.Color + t.Blank
	} else {
		t.Total = counterCell(cells, usageColumns.Total)
	}
	return t
}

// findGrandTotals locates the document's own grand-total row: the last
// totals-tagged row wide enough to carry the full counter layout.
func findGrandTotals(rows []*goquery.Selection) (Totals, bool) {
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if !strings.Contains(rowClass(row), "total") {
			continue
		}
		cells := cellTexts(row)
		if len(cells) > minDataCells {
			return decodeCounters(cells), true
		}
	}
	return Totals{}, false
}

// ---- row classification ----

func rowClass(row *goquery.Selection) string {
	class, _ := row.Attr("class")
	return strings.ToLower(class)
}

func isGroupHeader(row *goquery.Selection) bool {
	return strings.Contains(rowClass(row), "group") &&
		strings.Contains(strings.ToLower(row.Text()), "user")
}

func isColumnHeader(row *goquery.Selection) bool {
	class := rowClass(row)
	return strings.Contains(class, "header") && !strings.Contains(class, "group")
}

func isTotalsRow(row *goquery.Selection) bool {
	if strings.Contains(rowClass(row), "total") {
		return true
	}
	first := strings.ToLower(strings.TrimSpace(row.Find("th,td").First().Text()))
	return strings.Contains(first, "total")
}

// ---- cell decoding ----

func cellTexts(row *goquery.Selection) []string {
	var cells []string
	row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, cell.Text())
	})
	return cells
}

func rawCell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

func textCell(cells []string, idx int, fallback string) string {
	v := strings.TrimSpace(rawCell(cells, idx))
	if v == "" {
		return fallback
	}
	return v
}

// counterCell parses a counter value: everything except digits is stripped
// (a leading minus sign is kept), and anything unparseable falls back to 0.
func counterCell(cells []string, idx int) int64 {
	return parseCounter(rawCell(cells, idx))
}

func parseCounter(raw string) int64 {
	s := strings.TrimSpace(raw)
	neg := strings.HasPrefix(s, "-")

	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0
	}

	v, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return 0
	}
	if neg {
		return -v
	}
	return v
}

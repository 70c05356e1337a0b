package reports

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strconv"

	"github.com/printops/usagehub/internal/usage"
)

var exportHeader = []string{
	"user", "mono", "color", "blank", "total", "adobe_pdf", "copy",
	"ms_excel", "ms_powerpoint", "ms_word", "simplex", "duplex",
	"other_application", "print",
}

// ExportCSV renders the per-user totals of an aggregation as CSV. It is a
// pure projection: all merging and filtering already happened in the
// aggregator.
func ExportCSV(summary *usage.Summary) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}

	var grand usage.Totals
	for _, name := range sortedUserKeys(summary.PerUser) {
		t := summary.PerUser[name].Totals
		grand.Add(t)
		if err := w.Write(totalsRecord(name, t)); err != nil {
			return nil, err
		}
	}
	if err := w.Write(totalsRecord("TOTAL", grand)); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func totalsRecord(name string, t usage.Totals) []string {
	return []string{
		name,
		formatCount(t.Mono),
		formatCount(t.Color),
		formatCount(t.Blank),
		formatCount(t.Total),
		formatCount(t.AdobePDF),
		formatCount(t.Copy),
		formatCount(t.MSExcel),
		formatCount(t.MSPowerPoint),
		formatCount(t.MSWord),
		formatCount(t.Simplex),
		formatCount(t.Duplex),
		formatCount(t.OtherApplication),
		formatCount(t.Print),
	}
}

func formatCount(v int64) string {
	return strconv.FormatInt(v, 10)
}

func sortedUserKeys(perUser map[string]*usage.UserData) []string {
	keys := make([]string, 0, len(perUser))
	for k := range perUser {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

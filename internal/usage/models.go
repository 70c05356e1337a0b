package usage

import (
	"time"
)

// Totals is the fixed additive page-counter record shared by every level of
// aggregation: one device, one user, or a whole period.
type Totals struct {
	Mono             int64 `json:"mono"`
	Color            int64 `json:"color"`
	Blank            int64 `json:"blank"`
	Total            int64 `json:"total"`
	AdobePDF         int64 `json:"adobePdf"`
	Copy             int64 `json:"copy"`
	MSExcel          int64 `json:"msExcel"`
	MSPowerPoint     int64 `json:"msPowerPoint"`
	MSWord           int64 `json:"msWord"`
	Simplex          int64 `json:"simplex"`
	Duplex           int64 `json:"duplex"`
	OtherApplication int64 `json:"otherApplication"`
	Print            int64 `json:"print"`
}

// Add merges o into t field-wise. Merging is commutative and associative.
func (t *Totals) Add(o Totals) {
	t.Mono += o.Mono
	t.Color += o.Color
	t.Blank += o.Blank
	t.Total += o.Total
	t.AdobePDF += o.AdobePDF
	t.Copy += o.Copy
	t.MSExcel += o.MSExcel
	t.MSPowerPoint += o.MSPowerPoint
	t.MSWord += o.MSWord
	t.Simplex += o.Simplex
	t.Duplex += o.Duplex
	t.OtherApplication += o.OtherApplication
	t.Print += o.Print
}

// Valid reports whether every counter is non-negative. Records that fail this
// check are dropped whole during parsing.
func (t Totals) Valid() bool {
	return t.Mono >= 0 && t.Color >= 0 && t.Blank >= 0 && t.Total >= 0 &&
		t.AdobePDF >= 0 && t.Copy >= 0 && t.MSExcel >= 0 &&
		t.MSPowerPoint >= 0 && t.MSWord >= 0 && t.Simplex >= 0 &&
		t.Duplex >= 0 && t.OtherApplication >= 0 && t.Print >= 0
}

// IsZero reports whether every counter is zero.
func (t Totals) IsZero() bool {
	return t == Totals{}
}

// PrinterKey identifies a device for merge purposes.
type PrinterKey struct {
	Name string
	IP   string
}

// PrinterUsage is one device's contribution to a user's usage within a period.
type PrinterUsage struct {
	DeviceModel string `json:"deviceModel"`
	// DeviceName is the human-readable device name. The JSON field keeps the
	// historical "ipHostname" name so persisted envelopes stay compatible.
	DeviceName string `json:"ipHostname"`
	IPAddress  string `json:"ipAddress"`
	Totals     Totals `json:"totals"`
}

// Key returns the identity used to merge two PrinterUsage records.
func (p PrinterUsage) Key() PrinterKey {
	return PrinterKey{Name: p.DeviceName, IP: p.IPAddress}
}

// UserData is one user's contribution within a period: an aggregate Totals
// plus one PrinterUsage entry per distinct device the user touched.
// Invariant: Totals always equals the field-wise sum of PrinterUsage totals.
type UserData struct {
	Totals       Totals          `json:"totals"`
	PrinterUsage []*PrinterUsage `json:"printerUsage"`
}

// AddUsage accumulates one device record into the user. Records sharing a
// (deviceName, ipAddress) key are summed into a single entry; first-seen
// order of devices is preserved.
func (u *UserData) AddUsage(rec PrinterUsage) {
	u.Totals.Add(rec.Totals)
	key := rec.Key()
	for _, existing := range u.PrinterUsage {
		if existing.Key() == key {
			existing.Totals.Add(rec.Totals)
			return
		}
	}
	entry := rec
	u.PrinterUsage = append(u.PrinterUsage, &entry)
}

// ReportPeriod is one parsed upload: the counters recovered from a single
// exported HTML document and the date range it covers.
type ReportPeriod struct {
	ID          string               `json:"id"`
	FileName    string               `json:"fileName"`
	DateCreated *time.Time           `json:"dateCreated,omitempty"`
	RangeStart  *time.Time           `json:"rangeStart,omitempty"`
	RangeEnd    *time.Time           `json:"rangeEnd,omitempty"`
	PeriodLabel string               `json:"periodLabel"`
	Users       map[string]*UserData `json:"users"`
	GrandTotals Totals               `json:"grandTotals"`
}

// SavedReport is the persisted envelope: a named, owner-grouped collection of
// periods. It owns its period list exclusively.
type SavedReport struct {
	ID         string          `json:"id"`
	ReportName string          `json:"reportName"`
	UserName   string          `json:"userName"`
	UserSlug   string          `json:"userSlug"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  *time.Time      `json:"updatedAt,omitempty"`
	Periods    []*ReportPeriod `json:"periods"`
	// DisplayNames records user identity renames (original -> display name),
	// kept separately from the identity used as the map key.
	DisplayNames map[string]string `json:"displayNames,omitempty"`
}

// PeriodID derives the stable dedup/selection key for a period. Re-uploads of
// the same file with the same detected range collide on the same id.
func PeriodID(fileName string, rangeStart, rangeEnd *time.Time) string {
	return fileName + "::" + isoOrUnknown(rangeStart) + "::" + isoOrUnknown(rangeEnd)
}

func isoOrUnknown(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	return t.Format("2006-01-02")
}

// PeriodLabel renders a human-readable label for a date range, e.g.
// "Jan 1 → Jan 31, 2024". The start date omits its year when both ends share
// one. Returns "" when either end is missing.
func PeriodLabel(start, end *time.Time) string {
	if start == nil || end == nil {
		return ""
	}
	if start.Year() == end.Year() {
		return start.Format("Jan 2") + " → " + end.Format("Jan 2, 2006")
	}
	return start.Format("Jan 2, 2006") + " → " + end.Format("Jan 2, 2006")
}

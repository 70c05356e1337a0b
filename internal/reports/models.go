package reports

import (
	"regexp"
	"strings"
	"time"

	"github.com/printops/usagehub/internal/usage"
)

// DefaultOwner is the grouping label reports are filed under when the
// caller does not name one.
const DefaultOwner = "General"

// SaveReportRequest creates or overwrites a saved report.
type SaveReportRequest struct {
	ReportName string                `json:"reportName"`
	UserName   string                `json:"userName"`
	Periods    []*usage.ReportPeriod `json:"periods"`
}

// RenameIdentityRequest renames a detected user identity inside a report.
type RenameIdentityRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DeleteIdentitiesRequest removes detected user identities from a report.
type DeleteIdentitiesRequest struct {
	Users []string `json:"users"`
}

// ReportListItem is the metadata projection used by list responses.
type ReportListItem struct {
	ID          string     `json:"id"`
	ReportName  string     `json:"reportName"`
	UserName    string     `json:"userName"`
	UserSlug    string     `json:"userSlug"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	PeriodCount int        `json:"periodCount"`
}

// ReportListResponse is the list response envelope.
type ReportListResponse struct {
	Reports []ReportListItem `json:"reports"`
}

// Export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives the filesystem/key-safe partition name for an owner:
// lowercase, non-alphanumeric runs collapsed to '-', trimmed; never empty.
func Slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "user"
	}
	return s
}

func toListItem(r *usage.SavedReport) ReportListItem {
	return ReportListItem{
		ID:          r.ID,
		ReportName:  r.ReportName,
		UserName:    r.UserName,
		UserSlug:    r.UserSlug,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		PeriodCount: len(r.Periods),
	}
}

package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/printops/usagehub/internal/usage"
)

// Sentinel error kinds. Callers must be able to tell "nothing at that id"
// apart from "could not reach the store", and name conflicts apart from
// generic failures.
var (
	ErrNotFound = errors.New("report not found")
	ErrConflict = errors.New("report name already in use")
)

// ReportsStorage persists saved report envelopes, keyed by report id and
// grouped by the owner's user slug.
type ReportsStorage interface {
	// SaveReport creates or overwrites the envelope at report.ID.
	SaveReport(ctx context.Context, report *usage.SavedReport) error

	// GetReport returns the envelope at id, or ErrNotFound.
	GetReport(ctx context.Context, id string) (*usage.SavedReport, error)

	// ListReports returns every stored envelope.
	ListReports(ctx context.Context) ([]*usage.SavedReport, error)

	// DeleteReport removes the envelope at id, or returns ErrNotFound.
	DeleteReport(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

// PartitionFromID extracts the slug prefix that names a report's storage
// partition. Ids without the "__" separator (pre-slug reports) have no
// partition; lookups for those fall back to a full scan.
func PartitionFromID(id string) (string, bool) {
	slug, _, found := strings.Cut(id, "__")
	if !found || slug == "" {
		return "", false
	}
	return slug, true
}

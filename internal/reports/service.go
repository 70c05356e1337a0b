package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/printops/usagehub/internal/storage"
	"github.com/printops/usagehub/internal/usage"
)

// Errors
var (
	ErrEmptyReportName = fmt.Errorf("report name is required")
	ErrDuplicateName   = fmt.Errorf("report name in use: %w", storage.ErrConflict)
	ErrReportNotFound  = storage.ErrNotFound
)

// Service handles saved-report business logic: parsing uploads, persisting
// envelopes, and applying identity reconciliation and aggregation to them.
type Service struct {
	storage storage.ReportsStorage
}

// NewService creates a new reports service
func NewService(st storage.ReportsStorage) *Service {
	return &Service{storage: st}
}

// ParseDocument parses one uploaded vendor HTML export into a period.
func (s *Service) ParseDocument(content []byte, fileName string) (*usage.ReportPeriod, error) {
	return usage.Parse(string(content), fileName)
}

// SaveReport creates a new saved report envelope.
func (s *Service) SaveReport(ctx context.Context, req SaveReportRequest) (*usage.SavedReport, error) {
	name := strings.TrimSpace(req.ReportName)
	if name == "" {
		return nil, ErrEmptyReportName
	}
	owner := strings.TrimSpace(req.UserName)
	if owner == "" {
		owner = DefaultOwner
	}

	if err := s.ensureUniqueName(ctx, owner, name, ""); err != nil {
		return nil, err
	}

	slug := Slug(owner)
	report := &usage.SavedReport{
		ID:         newReportID(slug),
		ReportName: name,
		UserName:   owner,
		UserSlug:   slug,
		CreatedAt:  time.Now().UTC(),
		Periods:    req.Periods,
	}
	if report.Periods == nil {
		report.Periods = []*usage.ReportPeriod{}
	}

	if err := s.storage.SaveReport(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	return report, nil
}

// GetReport retrieves a saved report by id.
func (s *Service) GetReport(ctx context.Context, id string) (*usage.SavedReport, error) {
	return s.storage.GetReport(ctx, id)
}

// ListReports returns metadata for every saved report, optionally filtered
// by owner name (case-insensitive).
func (s *Service) ListReports(ctx context.Context, owner string) ([]ReportListItem, error) {
	all, err := s.storage.ListReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	owner = strings.TrimSpace(owner)
	items := make([]ReportListItem, 0, len(all))
	for _, r := range all {
		if owner != "" && !strings.EqualFold(strings.TrimSpace(r.UserName), owner) {
			continue
		}
		items = append(items, toListItem(r))
	}
	return items, nil
}

// UpdateReport overwrites an existing report: rename, change owner, or
// replace the period list. Sets updatedAt.
func (s *Service) UpdateReport(ctx context.Context, id string, req SaveReportRequest) (*usage.SavedReport, error) {
	report, err := s.storage.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	name := report.ReportName
	if v := strings.TrimSpace(req.ReportName); v != "" {
		name = v
	}
	owner := report.UserName
	if v := strings.TrimSpace(req.UserName); v != "" {
		owner = v
	}

	if err := s.ensureUniqueName(ctx, owner, name, report.ID); err != nil {
		return nil, err
	}

	report.ReportName = name
	report.UserName = owner
	// The id (and with it the storage partition) stays stable across owner
	// renames; lookups cover the mismatch via the full-scan fallback.
	report.UserSlug = Slug(owner)
	if req.Periods != nil {
		report.Periods = req.Periods
	}
	touch(report)

	if err := s.storage.SaveReport(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	return report, nil
}

// DeleteReport removes a saved report.
func (s *Service) DeleteReport(ctx context.Context, id string) error {
	return s.storage.DeleteReport(ctx, id)
}

// RenameIdentity renames a detected user identity across every period of a
// report, merging on collision. A blank new name is a no-op, not an error.
func (s *Service) RenameIdentity(ctx context.Context, id string, req RenameIdentityRequest) (*usage.SavedReport, error) {
	report, err := s.storage.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	if !usage.RenameUser(report.Periods, req.From, req.To) {
		return report, nil
	}

	if report.DisplayNames == nil {
		report.DisplayNames = make(map[string]string)
	}
	report.DisplayNames[req.From] = strings.TrimSpace(req.To)
	touch(report)

	if err := s.storage.SaveReport(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	return report, nil
}

// DeleteIdentities removes detected user identities from every period of a
// report. Unknown names are ignored.
func (s *Service) DeleteIdentities(ctx context.Context, id string, req DeleteIdentitiesRequest) (*usage.SavedReport, error) {
	report, err := s.storage.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	if usage.DeleteUsers(report.Periods, req.Users...) == 0 {
		return report, nil
	}
	touch(report)

	if err := s.storage.SaveReport(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	return report, nil
}

// Summarize aggregates a report's periods, optionally restricted to a set of
// period ids and printer identities.
func (s *Service) Summarize(ctx context.Context, id string, periodIDs, printers []string) (*usage.Summary, error) {
	report, err := s.storage.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	return usage.Aggregate(filterPeriods(report.Periods, periodIDs), printers), nil
}

// ensureUniqueName enforces the boundary constraint: no two reports may
// share a case-insensitive, trimmed (userName, reportName) pair, except the
// record being updated.
func (s *Service) ensureUniqueName(ctx context.Context, owner, name, excludeID string) error {
	all, err := s.storage.ListReports(ctx)
	if err != nil {
		return fmt.Errorf("list reports: %w", err)
	}
	for _, r := range all {
		if r.ID == excludeID {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(r.UserName), owner) &&
			strings.EqualFold(strings.TrimSpace(r.ReportName), name) {
			return ErrDuplicateName
		}
	}
	return nil
}

func filterPeriods(periods []*usage.ReportPeriod, ids []string) []*usage.ReportPeriod {
	if len(ids) == 0 {
		return periods
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []*usage.ReportPeriod
	for _, p := range periods {
		if wanted[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

func touch(report *usage.SavedReport) {
	now := time.Now().UTC()
	report.UpdatedAt = &now
}

// newReportID mints "<userSlug>__<epoch-ms>-<random6>".
func newReportID(slug string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s__%d-%s", slug, time.Now().UnixMilli(), suffix)
}

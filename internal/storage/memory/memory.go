package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/printops/usagehub/internal/storage"
	"github.com/printops/usagehub/internal/usage"
)

// Storage is an in-memory ReportsStorage, used by tests and as the fallback
// when no persistent backend is configured.
type Storage struct {
	mu      sync.RWMutex
	reports map[string]*usage.SavedReport
}

func New() *Storage {
	return &Storage{reports: make(map[string]*usage.SavedReport)}
}

func (s *Storage) SaveReport(ctx context.Context, report *usage.SavedReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.ID] = report
	return nil
}

func (s *Storage) GetReport(ctx context.Context, id string) (*usage.SavedReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return report, nil
}

func (s *Storage) ListReports(ctx context.Context) ([]*usage.SavedReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := make([]*usage.SavedReport, 0, len(s.reports))
	for _, r := range s.reports {
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}

func (s *Storage) DeleteReport(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.reports, id)
	return nil
}

func (s *Storage) Close() error {
	return nil
}

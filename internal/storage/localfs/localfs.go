package localfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/printops/usagehub/internal/storage"
	"github.com/printops/usagehub/internal/usage"
)

// Storage keeps saved reports as JSON files under
// <root>/reports/<userSlug>/<id>.json.
type Storage struct {
	root string
}

func New(root string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Join(root, "reports"), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Storage{root: root}, nil
}

func (s *Storage) reportsDir() string {
	return filepath.Join(s.root, "reports")
}

func (s *Storage) path(partition, id string) string {
	return filepath.Join(s.reportsDir(), partition, id+".json")
}

func (s *Storage) SaveReport(ctx context.Context, report *usage.SavedReport) error {
	// The id's slug prefix names the partition; the owner slug covers
	// pre-slug ids.
	partition, ok := storage.PartitionFromID(report.ID)
	if !ok {
		partition = report.UserSlug
	}
	if partition == "" {
		partition = "user"
	}

	dir := filepath.Join(s.reportsDir(), partition)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create partition dir: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	// Write-then-rename so a crash never leaves a half-written envelope.
	tmp := filepath.Join(dir, report.ID+".json.tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, s.path(partition, report.ID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func (s *Storage) GetReport(ctx context.Context, id string) (*usage.SavedReport, error) {
	path, err := s.locate(id)
	if err != nil {
		return nil, err
	}
	return s.readReport(path)
}

func (s *Storage) ListReports(ctx context.Context) ([]*usage.SavedReport, error) {
	var reports []*usage.SavedReport
	err := filepath.WalkDir(s.reportsDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		report, err := s.readReport(path)
		if err != nil {
			// A corrupt file should not take down the whole listing.
			return nil
		}
		reports = append(reports, report)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan reports dir: %w", err)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}

func (s *Storage) DeleteReport(ctx context.Context, id string) error {
	path, err := s.locate(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	return nil
}

// locate resolves the file holding id: the partition named by the id's slug
// prefix first, then a full scan of all partitions (pre-slug reports, or
// reports whose owner was renamed since saving).
func (s *Storage) locate(id string) (string, error) {
	if partition, ok := storage.PartitionFromID(id); ok {
		path := s.path(partition, id)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat report: %w", err)
		}
	}

	var found string
	target := id + ".json"
	err := filepath.WalkDir(s.reportsDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == target {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan reports dir: %w", err)
	}
	if found == "" {
		return "", storage.ErrNotFound
	}
	return found, nil
}

func (s *Storage) readReport(path string) (*usage.SavedReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read report: %w", err)
	}
	var report usage.SavedReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", filepath.Base(path), err)
	}
	return &report, nil
}

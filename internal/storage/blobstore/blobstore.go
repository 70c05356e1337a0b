package blobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/printops/usagehub/internal/blob"
	"github.com/printops/usagehub/internal/storage"
	"github.com/printops/usagehub/internal/usage"
)

const keyPrefix = "reports/"

// Storage keeps saved reports as JSON objects in blob storage under
// reports/<userSlug>/<id>.json, the same layout the filesystem backend uses.
type Storage struct {
	store blob.Store
}

func New(store blob.Store) *Storage {
	return &Storage{store: store}
}

func objectKey(partition, id string) string {
	return keyPrefix + partition + "/" + id + ".json"
}

func (s *Storage) SaveReport(ctx context.Context, report *usage.SavedReport) error {
	partition, ok := storage.PartitionFromID(report.ID)
	if !ok {
		partition = report.UserSlug
	}
	if partition == "" {
		partition = "user"
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if _, err := s.store.PutObject(ctx, objectKey(partition, report.ID), data, "application/json"); err != nil {
		return fmt.Errorf("upload report: %w", err)
	}
	return nil
}

func (s *Storage) GetReport(ctx context.Context, id string) (*usage.SavedReport, error) {
	key, err := s.locate(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := s.store.GetObject(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("download report: %w", err)
	}

	var report usage.SavedReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &report, nil
}

func (s *Storage) ListReports(ctx context.Context) ([]*usage.SavedReport, error) {
	keys, err := s.store.ListObjects(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	var reports []*usage.SavedReport
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		data, err := s.store.GetObject(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("download report %s: %w", key, err)
		}
		var report usage.SavedReport
		if err := json.Unmarshal(data, &report); err != nil {
			// Skip foreign objects under the prefix.
			continue
		}
		reports = append(reports, &report)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}

func (s *Storage) DeleteReport(ctx context.Context, id string) error {
	key, err := s.locate(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	return nil
}

// locate resolves the object key for id: the partition named by the id's
// slug prefix first, then a scan across all partitions.
func (s *Storage) locate(ctx context.Context, id string) (string, error) {
	if partition, ok := storage.PartitionFromID(id); ok {
		key := objectKey(partition, id)
		keys, err := s.store.ListObjects(ctx, key)
		if err != nil {
			return "", fmt.Errorf("list reports: %w", err)
		}
		for _, k := range keys {
			if k == key {
				return key, nil
			}
		}
	}

	keys, err := s.store.ListObjects(ctx, keyPrefix)
	if err != nil {
		return "", fmt.Errorf("list reports: %w", err)
	}
	suffix := "/" + id + ".json"
	for _, k := range keys {
		if strings.HasSuffix(k, suffix) {
			return k, nil
		}
	}
	return "", storage.ErrNotFound
}

package localfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/printops/usagehub/internal/storage"
	"github.com/printops/usagehub/internal/usage"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	st, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return st
}

func sampleReport(id, owner, slug string) *usage.SavedReport {
	return &usage.SavedReport{
		ID:         id,
		ReportName: "Monthly",
		UserName:   owner,
		UserSlug:   slug,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
		Periods:    []*usage.ReportPeriod{},
	}
}

func TestSaveAndGetReport(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	report := sampleReport("alice__1700000000000-abc123", "Alice", "alice")
	if err := st.SaveReport(ctx, report); err != nil {
		t.Fatalf("save: %v", err)
	}

	// The envelope lands under its slug partition.
	path := filepath.Join(st.root, "reports", "alice", report.ID+".json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file at %s: %v", path, err)
	}

	got, err := st.GetReport(ctx, report.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != report.ID || got.ReportName != "Monthly" || got.UserName != "Alice" {
		t.Errorf("roundtrip mismatch: %+v", got)
	}
}

func TestGetReportNotFound(t *testing.T) {
	st := newTestStorage(t)

	_, err := st.GetReport(context.Background(), "ghost__1-abcdef")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocateScanFallback(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	// Pre-slug ids carry no "__" partition marker; the file is placed by
	// owner slug and must be found by the full scan.
	report := sampleReport("legacy-report-1", "Bob", "bob")
	if err := st.SaveReport(ctx, report); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := st.GetReport(ctx, "legacy-report-1")
	if err != nil {
		t.Fatalf("get via scan: %v", err)
	}
	if got.UserName != "Bob" {
		t.Errorf("got %+v", got)
	}
}

func TestLocateAfterOwnerRename(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	// The id keeps its original slug prefix even after the owner changes,
	// so the direct partition lookup still hits.
	report := sampleReport("alice__1700000000000-abc123", "Alicia", "alicia")
	if err := st.SaveReport(ctx, report); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := st.GetReport(ctx, report.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
}

func TestListReports(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	older := sampleReport("a__1-aaaaaa", "A", "a")
	older.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := sampleReport("b__2-bbbbbb", "B", "b")
	newer.CreatedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, r := range []*usage.SavedReport{older, newer} {
		if err := st.SaveReport(ctx, r); err != nil {
			t.Fatalf("save %s: %v", r.ID, err)
		}
	}

	// A corrupt file is skipped, not fatal.
	corrupt := filepath.Join(st.root, "reports", "a", "broken.json")
	if err := os.WriteFile(corrupt, []byte("{nope"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	reports, err := st.ListReports(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports", len(reports))
	}
	if reports[0].ID != newer.ID {
		t.Errorf("list not sorted newest first: %s", reports[0].ID)
	}
}

func TestDeleteReport(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	report := sampleReport("alice__1-abcdef", "Alice", "alice")
	if err := st.SaveReport(ctx, report); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.DeleteReport(ctx, report.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.GetReport(ctx, report.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := st.DeleteReport(ctx, report.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("double delete: %v", err)
	}
}

func TestSaveOverwrites(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	report := sampleReport("alice__1-abcdef", "Alice", "alice")
	if err := st.SaveReport(ctx, report); err != nil {
		t.Fatalf("save: %v", err)
	}
	report.ReportName = "Renamed"
	if err := st.SaveReport(ctx, report); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := st.GetReport(ctx, report.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ReportName != "Renamed" {
		t.Errorf("name = %q", got.ReportName)
	}

	reports, err := st.ListReports(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reports) != 1 {
		t.Errorf("overwrite duplicated the report: %d entries", len(reports))
	}
}

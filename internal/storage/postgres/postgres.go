package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printops/usagehub/internal/storage"
	"github.com/printops/usagehub/internal/usage"
)

// Storage persists saved reports in the saved_reports table, with the period
// list and display-name map as JSONB columns.
type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Storage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Storage{pool: pool}, nil
}

func (s *Storage) SaveReport(ctx context.Context, report *usage.SavedReport) error {
	periods, err := json.Marshal(report.Periods)
	if err != nil {
		return fmt.Errorf("encode periods: %w", err)
	}
	displayNames, err := json.Marshal(report.DisplayNames)
	if err != nil {
		return fmt.Errorf("encode display names: %w", err)
	}

	query := `
		INSERT INTO saved_reports (id, report_name, user_name, user_slug, created_at, updated_at, periods, display_names)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			report_name = EXCLUDED.report_name,
			user_name = EXCLUDED.user_name,
			user_slug = EXCLUDED.user_slug,
			updated_at = EXCLUDED.updated_at,
			periods = EXCLUDED.periods,
			display_names = EXCLUDED.display_names
	`
	_, err = s.pool.Exec(ctx, query,
		report.ID,
		report.ReportName,
		report.UserName,
		report.UserSlug,
		report.CreatedAt,
		report.UpdatedAt,
		periods,
		displayNames,
	)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (s *Storage) GetReport(ctx context.Context, id string) (*usage.SavedReport, error) {
	query := `
		SELECT id, report_name, user_name, user_slug, created_at, updated_at, periods, display_names
		FROM saved_reports
		WHERE id = $1
	`
	report, err := scanReport(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

func (s *Storage) ListReports(ctx context.Context) ([]*usage.SavedReport, error) {
	query := `
		SELECT id, report_name, user_name, user_slug, created_at, updated_at, periods, display_names
		FROM saved_reports
		ORDER BY created_at DESC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []*usage.SavedReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (s *Storage) DeleteReport(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM saved_reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

func scanReport(row pgx.Row) (*usage.SavedReport, error) {
	var (
		report       usage.SavedReport
		periods      []byte
		displayNames []byte
	)
	err := row.Scan(
		&report.ID,
		&report.ReportName,
		&report.UserName,
		&report.UserSlug,
		&report.CreatedAt,
		&report.UpdatedAt,
		&periods,
		&displayNames,
	)
	if err != nil {
		return nil, err
	}

	if len(periods) > 0 {
		if err := json.Unmarshal(periods, &report.Periods); err != nil {
			return nil, fmt.Errorf("decode periods: %w", err)
		}
	}
	if len(displayNames) > 0 {
		if err := json.Unmarshal(displayNames, &report.DisplayNames); err != nil {
			return nil, fmt.Errorf("decode display names: %w", err)
		}
	}
	return &report, nil
}

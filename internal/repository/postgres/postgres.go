package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartcity/airquality/internal/domain"
)

// DefaultListLimit caps report listings when the caller passes no limit
const DefaultListLimit = 1000

const schema = `
	CREATE TABLE IF NOT EXISTS pollution_reports (
		id          UUID PRIMARY KEY,
		name        TEXT NOT NULL,
		mobile      TEXT NOT NULL,
		email       TEXT NOT NULL,
		location    TEXT NOT NULL,
		latitude    DOUBLE PRECISION,
		longitude   DOUBLE PRECISION,
		severity    SMALLINT NOT NULL CHECK (severity BETWEEN 1 AND 5),
		description TEXT NOT NULL DEFAULT '',
		image_url   TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT 'pending',
		created_at  TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS pollution_reports_status_created_idx
		ON pollution_reports (status, created_at DESC);
`

// DB is the subset of pgxpool.Pool the repository uses
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

var _ DB = (*pgxpool.Pool)(nil)

// PostgresRepository implements domain.ReportRepository
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the reports table when it does not exist
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to ensure schema: %w", err)
	}
	return nil
}

// SaveReport persists a new report
func (r *PostgresRepository) SaveReport(ctx context.Context, report domain.PollutionReport) error {
	query := `
		INSERT INTO pollution_reports (
			id, name, mobile, email, location, latitude, longitude,
			severity, description, image_url, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Exec(ctx, query,
		report.ID, report.Name, report.Mobile, report.Email, report.Location, report.Latitude, report.Longitude,
		report.Severity, report.Description, report.ImageURL, string(report.Status), report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save report: %w", err)
	}

	return nil
}

// ListReports returns reports newest first, optionally filtered by status
func (r *PostgresRepository) ListReports(ctx context.Context, status domain.ReportStatus, limit int) ([]domain.PollutionReport, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, name, mobile, email, location, latitude, longitude,
			   severity, description, image_url, status, created_at
		FROM pollution_reports
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query reports: %w", err)
	}
	defer rows.Close()

	results := []domain.PollutionReport{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate reports: %w", err)
	}

	return results, nil
}

// GetReport returns a single report or domain.ErrReportNotFound
func (r *PostgresRepository) GetReport(ctx context.Context, id string) (domain.PollutionReport, error) {
	query := `
		SELECT id, name, mobile, email, location, latitude, longitude,
			   severity, description, image_url, status, created_at
		FROM pollution_reports
		WHERE id = $1
	`

	report, err := scanReport(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PollutionReport{}, domain.ErrReportNotFound
	}
	return report, err
}

// UpdateReportStatus changes a report's status or returns domain.ErrReportNotFound
func (r *PostgresRepository) UpdateReportStatus(ctx context.Context, id string, status domain.ReportStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE pollution_reports SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("postgres: failed to update report status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

func scanReport(row pgx.Row) (domain.PollutionReport, error) {
	var (
		report domain.PollutionReport
		status string
	)
	err := row.Scan(
		&report.ID, &report.Name, &report.Mobile, &report.Email, &report.Location, &report.Latitude, &report.Longitude,
		&report.Severity, &report.Description, &report.ImageURL, &status, &report.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return report, err
	}
	if err != nil {
		return report, fmt.Errorf("postgres: failed to scan report row: %w", err)
	}
	report.Status = domain.ReportStatus(status)
	return report, nil
}

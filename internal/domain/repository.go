package domain

import "context"

// ReportRepository defines the interface for report persistence
// This follows the Dependency Inversion Principle - domain defines the interface
type ReportRepository interface {
	// SaveReport persists a new report
	SaveReport(ctx context.Context, report PollutionReport) error

	// ListReports returns reports newest first, optionally filtered by status
	ListReports(ctx context.Context, status ReportStatus, limit int) ([]PollutionReport, error)

	// GetReport returns a single report or ErrReportNotFound
	GetReport(ctx context.Context, id string) (PollutionReport, error)

	// UpdateReportStatus changes a report's status or returns ErrReportNotFound
	UpdateReportStatus(ctx context.Context, id string, status ReportStatus) error

	// Health checks database connectivity
	Health(ctx context.Context) error
}

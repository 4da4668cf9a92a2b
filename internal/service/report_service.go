package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/smartcity/airquality/internal/domain"
)

// Notifier is told about report lifecycle events
type Notifier interface {
	ReportCreated(ctx context.Context, report domain.PollutionReport)
	StatusChanged(ctx context.Context, report domain.PollutionReport, status domain.ReportStatus)
}

// LogNotifier emits notifications as structured log events
type LogNotifier struct {
	log logrus.FieldLogger
}

// NewLogNotifier creates a notifier writing to log
func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log.WithField("component", "notifier")}
}

// ReportCreated implements Notifier
func (n *LogNotifier) ReportCreated(_ context.Context, report domain.PollutionReport) {
	n.log.WithFields(logrus.Fields{
		"report_id": report.ID,
		"email":     report.Email,
		"severity":  report.Severity,
	}).Info("report confirmation queued")
}

// StatusChanged implements Notifier
func (n *LogNotifier) StatusChanged(_ context.Context, report domain.PollutionReport, status domain.ReportStatus) {
	n.log.WithFields(logrus.Fields{
		"report_id": report.ID,
		"email":     report.Email,
		"status":    string(status),
	}).Info("report status notification queued")
}

// ReportService manages citizen pollution reports
type ReportService struct {
	repo     ReportRepository
	notifier Notifier
	validate *validator.Validate
	clock    clockwork.Clock
}

// NewReportService creates a new report service
func NewReportService(repo ReportRepository, notifier Notifier, clock clockwork.Clock) *ReportService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ReportService{
		repo:     repo,
		notifier: notifier,
		validate: validator.New(),
		clock:    clock,
	}
}

// Create validates and stores a new report in status pending
func (s *ReportService) Create(ctx context.Context, in domain.ReportCreate) (domain.PollutionReport, error) {
	if err := s.validate.Struct(in); err != nil {
		return domain.PollutionReport{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	report := domain.PollutionReport{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Mobile:      in.Mobile,
		Email:       in.Email,
		Location:    in.Location,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Severity:    in.Severity,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Status:      domain.ReportPending,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.repo.SaveReport(ctx, report); err != nil {
		return domain.PollutionReport{}, fmt.Errorf("reports: failed to create report: %w", err)
	}

	s.notifier.ReportCreated(ctx, report)
	return report, nil
}

// List returns reports newest first, optionally filtered by status
func (s *ReportService) List(ctx context.Context, status string) ([]domain.PollutionReport, error) {
	reports, err := s.repo.ListReports(ctx, domain.ReportStatus(status), 0)
	if err != nil {
		return nil, fmt.Errorf("reports: failed to list reports: %w", err)
	}
	return reports, nil
}

// UpdateStatus moves a report to a new status
func (s *ReportService) UpdateStatus(ctx context.Context, id string, in domain.StatusUpdate) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrReportNotFound
	}

	report, err := s.repo.GetReport(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			return err
		}
		return fmt.Errorf("reports: failed to load report: %w", err)
	}
	if err := s.repo.UpdateReportStatus(ctx, id, in.Status); err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			return err
		}
		return fmt.Errorf("reports: failed to update status: %w", err)
	}

	s.notifier.StatusChanged(ctx, report, in.Status)
	return nil
}

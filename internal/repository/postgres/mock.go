package postgres

import (
	"context"
	"sort"
	"sync"

	"github.com/smartcity/airquality/internal/domain"
)

// MockRepository implements domain.ReportRepository in memory for demo mode
type MockRepository struct {
	mu      sync.RWMutex
	reports map[string]domain.PollutionReport
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{reports: make(map[string]domain.PollutionReport)}
}

// SaveReport stores the report in memory
func (r *MockRepository) SaveReport(ctx context.Context, report domain.PollutionReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[report.ID] = report
	return nil
}

// ListReports returns stored reports newest first
func (r *MockRepository) ListReports(ctx context.Context, status domain.ReportStatus, limit int) ([]domain.PollutionReport, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	r.mu.RLock()
	results := make([]domain.PollutionReport, 0, len(r.reports))
	for _, report := range r.reports {
		if status == "" || report.Status == status {
			results = append(results, report)
		}
	}
	r.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GetReport returns a stored report
func (r *MockRepository) GetReport(ctx context.Context, id string) (domain.PollutionReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.reports[id]
	if !ok {
		return domain.PollutionReport{}, domain.ErrReportNotFound
	}
	return report, nil
}

// UpdateReportStatus changes a stored report's status
func (r *MockRepository) UpdateReportStatus(ctx context.Context, id string, status domain.ReportStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	report, ok := r.reports[id]
	if !ok {
		return domain.ErrReportNotFound
	}
	report.Status = status
	r.reports[id] = report
	return nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}

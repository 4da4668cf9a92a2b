package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/airquality/internal/domain"
)

func seedReports(t *testing.T, repo *MockRepository) {
	t.Helper()
	base := time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)
	for i, status := range []domain.ReportStatus{domain.ReportPending, domain.ReportResolved, domain.ReportPending} {
		require.NoError(t, repo.SaveReport(context.Background(), domain.PollutionReport{
			ID:        string(rune('a' + i)),
			Name:      "Citizen",
			Severity:  3,
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
}

func TestMockRepository_ListReports(t *testing.T) {
	repo := NewMockRepository()
	seedReports(t, repo)

	all, err := repo.ListReports(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	pending, err := repo.ListReports(context.Background(), domain.ReportPending, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	limited, err := repo.ListReports(context.Background(), "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "c", limited[0].ID)
}

func TestMockRepository_UpdateReportStatus(t *testing.T) {
	repo := NewMockRepository()
	seedReports(t, repo)

	require.NoError(t, repo.UpdateReportStatus(context.Background(), "a", domain.ReportInvestigating))
	got, err := repo.GetReport(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportInvestigating, got.Status)

	assert.ErrorIs(t, repo.UpdateReportStatus(context.Background(), "zzz", domain.ReportResolved), domain.ErrReportNotFound)
	_, err = repo.GetReport(context.Background(), "zzz")
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestMockRepository_Health(t *testing.T) {
	assert.NoError(t, NewMockRepository().Health(context.Background()))
}

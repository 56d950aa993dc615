package service

import (
	"context"
	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datePtr(t time.Time) *time.Time { return &t }

func newReportFixture() (*ReportService, *memReports) {
	today := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	repo := &memReports{
		areas: []model.ComplianceArea{
			{ID: uuid.NewString(), OwnerID: "owner", Name: "Dane osobowe klientów", Score: 40, Risk: "Wysoki", LastUpdated: today.AddDate(0, 0, -3)},
			{ID: uuid.NewString(), OwnerID: "owner", Name: "Bezpieczeństwo IT", Score: 90, Risk: "niski", LastUpdated: today.AddDate(0, -3, 0)},
			{ID: uuid.NewString(), OwnerID: "owner", Name: "Archiwizacja", Score: 60, Risk: "średni", LastUpdated: today.AddDate(0, 0, -20)},
			{ID: uuid.NewString(), OwnerID: "other", Name: "Cudzy obszar", Score: 10, Risk: "wysoki", LastUpdated: today},
		},
		recs: []model.Recommendation{
			{ID: "r-low", Text: "Szkolenie", Priority: "niski", DueDate: datePtr(today.AddDate(0, 0, 5))},
			{ID: "r-high", Text: "Szyfrowanie", Priority: "wysoki", DueDate: datePtr(today.AddDate(0, 0, 12))},
			{ID: "r-none", Text: "Bez terminu", Priority: "średni"},
			{ID: "r-old", Text: "Zaległe", Priority: "średni", DueDate: datePtr(today.AddDate(0, -2, 0))},
			{ID: "r-late", Text: "Później", Priority: "wysoki", DueDate: datePtr(today.AddDate(0, 0, 30))},
		},
	}
	svc := NewReportService(repo)
	svc.now = func() time.Time { return today.Add(9 * time.Hour) }
	svc.intn = func(int) int { return 0 }
	return svc, repo
}

func TestReportService_OverviewDefaults(t *testing.T) {
	svc, _ := newReportFixture()

	out, err := svc.Overview(context.Background(), "owner", ReportFilter{})
	require.NoError(t, err)

	require.Len(t, out.Areas, 3)
	assert.Equal(t, []int{90, 60, 40}, []int{out.Areas[0].Score, out.Areas[1].Score, out.Areas[2].Score})

	priorities := make([]string, 0, len(out.Recommendations))
	for _, r := range out.Recommendations {
		priorities = append(priorities, r.Priority)
		assert.Equal(t, "2-4 tygodnie", r.EstimatedTime)
		assert.Equal(t, "5000-10000 PLN", r.EstimatedCost)
	}
	assert.Equal(t, []string{"wysoki", "wysoki", "średni", "średni", "niski"}, priorities)

	assert.Equal(t, 1, out.RiskAssessment.HighRisk)
	assert.Equal(t, 1, out.RiskAssessment.MediumRisk)
	assert.Equal(t, 1, out.RiskAssessment.LowRisk)
	assert.Equal(t, (100+50+10)/3, out.RiskAssessment.OverallRiskScore)
	assert.Len(t, out.RiskAssessment.RiskCategories, 5)

	require.Len(t, out.UpcomingDeadlines, 2)
	assert.Equal(t, "r-low", out.UpcomingDeadlines[0].ID)
	assert.Equal(t, 5, out.UpcomingDeadlines[0].DaysRemaining)
	assert.Equal(t, "r-high", out.UpcomingDeadlines[1].ID)

	assert.InDelta(t, 63.33, out.Benchmarks.YourScore, 0.01)
	assert.Equal(t, 65.0, out.Benchmarks.IndustryAverage)
	assert.Equal(t, 85.0, out.Benchmarks.TopPerformers)

	require.Len(t, out.Trends.ComplianceScoreTrend, 6)
	assert.Equal(t, 70, out.Trends.ComplianceScoreTrend[0].Score)
	assert.Equal(t, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), out.Trends.ComplianceScoreTrend[5].Date)
	last := out.Trends.RiskLevelTrend[5]
	assert.Equal(t, []int{5, 8, 12}, []int{last.HighRisk, last.MediumRisk, last.LowRisk})
	first := out.Trends.RiskLevelTrend[0]
	assert.Equal(t, []int{3, 7, 11}, []int{first.HighRisk, first.MediumRisk, first.LowRisk})
}

func TestReportService_OverviewFilters(t *testing.T) {
	svc, _ := newReportFixture()
	ctx := context.Background()

	out, err := svc.Overview(ctx, "owner", ReportFilter{RiskLevel: "WYSOKI"})
	require.NoError(t, err)
	require.Len(t, out.Areas, 1)
	assert.Equal(t, "Dane osobowe klientów", out.Areas[0].Name)

	out, err = svc.Overview(ctx, "owner", ReportFilter{RiskCategory: "bezpieczeństwo"})
	require.NoError(t, err)
	require.Len(t, out.Areas, 1)
	assert.Equal(t, 90, out.Areas[0].Score)

	out, err = svc.Overview(ctx, "owner", ReportFilter{DateRange: "month", SortBy: "name"})
	require.NoError(t, err)
	require.Len(t, out.Areas, 2)
	assert.Equal(t, "Archiwizacja", out.Areas[0].Name)
	for _, r := range out.Recommendations {
		assert.NotNil(t, r.DueDate)
		assert.NotEqual(t, "r-old", r.ID)
	}

	out, err = svc.Overview(ctx, "owner", ReportFilter{SortBy: "date"})
	require.NoError(t, err)
	assert.Equal(t, 40, out.Areas[0].Score)

	out, err = svc.Overview(ctx, "owner", ReportFilter{SortBy: "risk"})
	require.NoError(t, err)
	assert.Equal(t, "Wysoki", out.Areas[0].Risk)

	out, err = svc.Overview(ctx, "nobody", ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, out.Areas)
	assert.Zero(t, out.RiskAssessment.OverallRiskScore)
	assert.Zero(t, out.Benchmarks.YourScore)
}

func TestReportService_AreaDetails(t *testing.T) {
	svc, repo := newReportFixture()
	ctx := context.Background()
	area := repo.areas[2]

	d, err := svc.AreaDetails(ctx, "owner", area.ID)
	require.NoError(t, err)
	assert.Equal(t, "Szczegółowy opis obszaru Archiwizacja", d.Description)
	require.Len(t, d.Requirements, 5)
	assert.Equal(t, "Wymaganie 1 dla obszaru Archiwizacja", d.Requirements[0].Text)
	require.Len(t, d.ProgressHistory, 6)
	assert.Equal(t, []int{60, 50, 40, 30, 20, 10}, func() []int {
		var s []int
		for _, p := range d.ProgressHistory {
			s = append(s, p.Score)
		}
		return s
	}())
	require.Len(t, d.Recommendations, 3)
	assert.Equal(t, "średni", d.Recommendations[0].Priority)
	assert.Equal(t, "w trakcie", d.Recommendations[0].Status)
	assert.Equal(t, "wysoki", d.Recommendations[2].Priority)

	_, err = svc.AreaDetails(ctx, "owner", repo.areas[3].ID)
	assert.Equal(t, "Brak dostępu do tego obszaru", common.PublicMessage(err))
	_, err = svc.AreaDetails(ctx, "owner", uuid.NewString())
	assert.Equal(t, "Obszar o podanym ID nie istnieje", common.PublicMessage(err))
}

func TestReportService_Export(t *testing.T) {
	svc, _ := newReportFixture()

	res, err := svc.Export("PDF")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Raport został wyeksportowany do formatu pdf", res.Message)
	assert.Equal(t, "raport_rodo_2025-03-10.pdf", res.FileName)

	_, err = svc.Export("")
	assert.ErrorIs(t, err, common.ErrValidation)
}

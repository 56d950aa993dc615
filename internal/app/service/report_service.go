package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
	"rodo_assess/internal/domain/repository"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

var (
	errAreaNotFound  = common.NewPublicError(common.ErrNotFound, "Obszar o podanym ID nie istnieje")
	errAreaForbidden = common.NewPublicError(common.ErrForbidden, "Brak dostępu do tego obszaru")
)

var riskCategoryNames = []string{"Dane osobowe", "Bezpieczeństwo IT", "Procesy biznesowe", "Dokumentacja", "Szkolenia"}

const (
	estimatedTime = "2-4 tygodnie"
	estimatedCost = "5000-10000 PLN"
	deadlineDays  = 30
)

// ReportService builds the reporting views. Parts of the overview (trends,
// category scores, benchmarks) are illustrative and drawn from intn.
type ReportService struct {
	reportRepo repository.ReportRepository
	now        func() time.Time
	intn       func(n int) int
}

func NewReportService(reportRepo repository.ReportRepository) *ReportService {
	return &ReportService{reportRepo: reportRepo, now: time.Now, intn: rand.IntN}
}

type ReportFilter struct {
	DateRange    string
	RiskCategory string
	RiskLevel    string
	SortBy       string
}

type AreaSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Score       int       `json:"score"`
	Risk        string    `json:"risk"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type RecommendationView struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	Priority      string     `json:"priority"`
	Status        string     `json:"status"`
	DueDate       *time.Time `json:"dueDate"`
	EstimatedTime string     `json:"estimatedTime"`
	EstimatedCost string     `json:"estimatedCost"`
}

type CategoryScore struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type RiskAssessment struct {
	HighRisk         int             `json:"highRisk"`
	MediumRisk       int             `json:"mediumRisk"`
	LowRisk          int             `json:"lowRisk"`
	OverallRiskScore int             `json:"overallRiskScore"`
	RiskCategories   []CategoryScore `json:"riskCategories"`
}

type ScorePoint struct {
	Date  time.Time `json:"date"`
	Score int       `json:"score"`
}

type RiskLevelPoint struct {
	Date       time.Time `json:"date"`
	HighRisk   int       `json:"highRisk"`
	MediumRisk int       `json:"mediumRisk"`
	LowRisk    int       `json:"lowRisk"`
}

type Trends struct {
	ComplianceScoreTrend []ScorePoint     `json:"complianceScoreTrend"`
	RiskLevelTrend       []RiskLevelPoint `json:"riskLevelTrend"`
}

type Deadline struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	DueDate       time.Time `json:"dueDate"`
	Priority      string    `json:"priority"`
	DaysRemaining int       `json:"daysRemaining"`
}

type CategoryBenchmark struct {
	Name            string `json:"name"`
	YourScore       int    `json:"yourScore"`
	IndustryAverage int    `json:"industryAverage"`
	TopPerformers   int    `json:"topPerformers"`
}

type Benchmarks struct {
	YourScore       float64             `json:"yourScore"`
	IndustryAverage float64             `json:"industryAverage"`
	TopPerformers   float64             `json:"topPerformers"`
	Categories      []CategoryBenchmark `json:"categories"`
}

type ReportOverview struct {
	Areas             []AreaSummary        `json:"areas"`
	Recommendations   []RecommendationView `json:"recommendations"`
	RiskAssessment    RiskAssessment       `json:"riskAssessment"`
	Trends            Trends               `json:"trends"`
	UpcomingDeadlines []Deadline           `json:"upcomingDeadlines"`
	Benchmarks        Benchmarks           `json:"benchmarks"`
}

type AreaRequirement struct {
	ID      int    `json:"id"`
	Text    string `json:"text"`
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

type AreaRecommendation struct {
	ID       int    `json:"id"`
	Text     string `json:"text"`
	Priority string `json:"priority"`
	Status   string `json:"status"`
}

type AreaDetails struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	Description     string               `json:"description"`
	Score           int                  `json:"score"`
	Risk            string               `json:"risk"`
	LastUpdated     time.Time            `json:"lastUpdated"`
	Requirements    []AreaRequirement    `json:"requirements"`
	ProgressHistory []ScorePoint         `json:"progressHistory"`
	Recommendations []AreaRecommendation `json:"recommendations"`
}

type ExportResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	FileName string `json:"fileName"`
}

// rangeStart maps a date range keyword to the earliest accepted date.
// Unknown non-empty values fall back to one month.
func rangeStart(today time.Time, dateRange string) time.Time {
	switch strings.ToLower(dateRange) {
	case "week":
		return today.AddDate(0, 0, -7)
	case "quarter":
		return addMonths(today, -3)
	case "year":
		return addMonths(today, -12)
	default:
		return addMonths(today, -1)
	}
}

func (s *ReportService) Overview(ctx context.Context, userID string, f ReportFilter) (*ReportOverview, error) {
	areas, err := s.reportRepo.ListAreasByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list compliance areas: %w", err)
	}
	recs, err := s.reportRepo.ListRecommendationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}

	today := truncateDay(s.now())
	if f.DateRange != "" {
		start := rangeStart(today, f.DateRange)
		areas = filterAreas(areas, func(a model.ComplianceArea) bool {
			return !a.LastUpdated.Before(start)
		})
		recs = filterRecommendations(recs, func(r model.Recommendation) bool {
			return r.DueDate != nil && !r.DueDate.Before(start)
		})
	}
	if f.RiskLevel != "" {
		areas = filterAreas(areas, func(a model.ComplianceArea) bool {
			return strings.EqualFold(a.Risk, f.RiskLevel)
		})
	}
	if f.RiskCategory != "" {
		needle := strings.ToLower(f.RiskCategory)
		areas = filterAreas(areas, func(a model.ComplianceArea) bool {
			return strings.Contains(strings.ToLower(a.Name), needle)
		})
	}
	sortAreas(areas, f.SortBy)
	sortRecommendations(recs)

	out := &ReportOverview{
		Areas:             make([]AreaSummary, 0, len(areas)),
		Recommendations:   make([]RecommendationView, 0, len(recs)),
		RiskAssessment:    s.riskAssessment(areas),
		Trends:            s.trends(today),
		UpcomingDeadlines: upcomingDeadlines(recs, today),
		Benchmarks:        s.benchmarks(areas),
	}
	for _, a := range areas {
		out.Areas = append(out.Areas, AreaSummary{ID: a.ID, Name: a.Name, Score: a.Score, Risk: a.Risk, LastUpdated: a.LastUpdated})
	}
	for _, r := range recs {
		out.Recommendations = append(out.Recommendations, RecommendationView{
			ID:            r.ID,
			Text:          r.Text,
			Priority:      r.Priority,
			Status:        r.Status,
			DueDate:       r.DueDate,
			EstimatedTime: estimatedTime,
			EstimatedCost: estimatedCost,
		})
	}
	return out, nil
}

func filterAreas(in []model.ComplianceArea, keep func(model.ComplianceArea) bool) []model.ComplianceArea {
	out := in[:0:0]
	for _, a := range in {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func filterRecommendations(in []model.Recommendation, keep func(model.Recommendation) bool) []model.Recommendation {
	out := in[:0:0]
	for _, r := range in {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func sortAreas(areas []model.ComplianceArea, sortBy string) {
	var less func(a, b model.ComplianceArea) bool
	switch sortBy {
	case "risk":
		less = func(a, b model.ComplianceArea) bool { return a.Risk < b.Risk }
	case "name":
		less = func(a, b model.ComplianceArea) bool { return a.Name < b.Name }
	case "date":
		less = func(a, b model.ComplianceArea) bool { return a.LastUpdated.After(b.LastUpdated) }
	default:
		less = func(a, b model.ComplianceArea) bool { return a.Score > b.Score }
	}
	sort.SliceStable(areas, func(i, j int) bool { return less(areas[i], areas[j]) })
}

func priorityRank(p string) int {
	switch strings.ToLower(p) {
	case model.RiskHigh:
		return 1
	case model.RiskMedium:
		return 2
	case model.RiskLow:
		return 3
	default:
		return 4
	}
}

func sortRecommendations(recs []model.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank(recs[i].Priority) < priorityRank(recs[j].Priority)
	})
}

func (s *ReportService) riskAssessment(areas []model.ComplianceArea) RiskAssessment {
	var ra RiskAssessment
	for _, a := range areas {
		switch strings.ToLower(a.Risk) {
		case model.RiskHigh:
			ra.HighRisk++
		case model.RiskMedium:
			ra.MediumRisk++
		case model.RiskLow:
			ra.LowRisk++
		}
	}
	if total := ra.HighRisk + ra.MediumRisk + ra.LowRisk; total > 0 {
		ra.OverallRiskScore = (ra.HighRisk*100 + ra.MediumRisk*50 + ra.LowRisk*10) / total
	}
	ra.RiskCategories = make([]CategoryScore, 0, len(riskCategoryNames))
	for _, name := range riskCategoryNames {
		ra.RiskCategories = append(ra.RiskCategories, CategoryScore{Name: name, Score: 50 + s.intn(50)})
	}
	return ra
}

func (s *ReportService) trends(today time.Time) Trends {
	t := Trends{
		ComplianceScoreTrend: make([]ScorePoint, 0, 6),
		RiskLevelTrend:       make([]RiskLevelPoint, 0, 6),
	}
	score := 75
	for i := 5; i >= 0; i-- {
		date := addMonths(today, -i)
		score = min(100, max(0, score+s.intn(10)-5))
		t.ComplianceScoreTrend = append(t.ComplianceScoreTrend, ScorePoint{Date: date, Score: score})
		t.RiskLevelTrend = append(t.RiskLevelTrend, RiskLevelPoint{
			Date:       date,
			HighRisk:   max(0, 5-i/2),
			MediumRisk: max(0, 8-i/3),
			LowRisk:    max(0, 12-i/4),
		})
	}
	return t
}

// upcomingDeadlines returns recommendations due strictly between today and
// today plus deadlineDays, earliest first.
func upcomingDeadlines(recs []model.Recommendation, today time.Time) []Deadline {
	limit := today.AddDate(0, 0, deadlineDays)
	out := []Deadline{}
	for _, r := range recs {
		if r.DueDate == nil {
			continue
		}
		due := truncateDay(*r.DueDate)
		if !due.After(today) || !due.Before(limit) {
			continue
		}
		out = append(out, Deadline{
			ID:            r.ID,
			Text:          r.Text,
			DueDate:       due,
			Priority:      r.Priority,
			DaysRemaining: int(due.Sub(today).Hours() / 24),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out
}

func (s *ReportService) benchmarks(areas []model.ComplianceArea) Benchmarks {
	b := Benchmarks{IndustryAverage: 65.0, TopPerformers: 85.0}
	if len(areas) > 0 {
		sum := 0
		for _, a := range areas {
			sum += a.Score
		}
		b.YourScore = float64(sum) / float64(len(areas))
	}
	b.Categories = make([]CategoryBenchmark, 0, len(riskCategoryNames))
	for _, name := range riskCategoryNames {
		b.Categories = append(b.Categories, CategoryBenchmark{
			Name:            name,
			YourScore:       50 + s.intn(50),
			IndustryAverage: 50 + s.intn(30),
			TopPerformers:   80 + s.intn(20),
		})
	}
	return b
}

func (s *ReportService) AreaDetails(ctx context.Context, userID, areaID string) (*AreaDetails, error) {
	if _, err := uuid.Parse(areaID); err != nil {
		return nil, errAreaNotFound
	}
	area, err := s.reportRepo.FindArea(ctx, areaID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errAreaNotFound
		}
		return nil, fmt.Errorf("failed to load area: %w", err)
	}
	if area.OwnerID != userID {
		return nil, errAreaForbidden
	}

	today := truncateDay(s.now())
	d := &AreaDetails{
		ID:              area.ID,
		Name:            area.Name,
		Description:     "Szczegółowy opis obszaru " + area.Name,
		Score:           area.Score,
		Risk:            area.Risk,
		LastUpdated:     area.LastUpdated,
		Requirements:    make([]AreaRequirement, 0, 5),
		ProgressHistory: make([]ScorePoint, 0, 6),
		Recommendations: make([]AreaRecommendation, 0, 3),
	}
	for i := 1; i <= 5; i++ {
		d.Requirements = append(d.Requirements, AreaRequirement{
			ID:      i,
			Text:    fmt.Sprintf("Wymaganie %d dla obszaru %s", i, area.Name),
			Status:  "zgodny",
			Comment: fmt.Sprintf("Komentarz do wymagania %d", i),
		})
	}
	for i := 0; i < 6; i++ {
		d.ProgressHistory = append(d.ProgressHistory, ScorePoint{
			Date:  addMonths(today, -i),
			Score: max(0, area.Score-i*10),
		})
	}
	priorities := []string{model.RiskHigh, model.RiskMedium, model.RiskLow}
	statuses := []string{"nowy", "w trakcie", "zakończony"}
	for i := 1; i <= 3; i++ {
		d.Recommendations = append(d.Recommendations, AreaRecommendation{
			ID:       i,
			Text:     fmt.Sprintf("Rekomendacja %d dla obszaru %s", i, area.Name),
			Priority: priorities[i%3],
			Status:   statuses[i%3],
		})
	}
	return d, nil
}

func (s *ReportService) Export(format string) (*ExportResult, error) {
	format = slug.Make(format)
	if format == "" {
		return nil, common.NewValidationError("Format eksportu jest wymagany")
	}
	return &ExportResult{
		Success:  true,
		Message:  "Raport został wyeksportowany do formatu " + format,
		FileName: fmt.Sprintf("raport_rodo_%s.%s", s.now().Format("2006-01-02"), format),
	}, nil
}

package service

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
	"rodo_assess/internal/domain/repository"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

//go:embed templates/assessment.json
var templateChapters []byte

var (
	errAssessmentNotFound  = common.NewPublicError(common.ErrNotFound, "Ocena o podanym ID nie istnieje")
	errAssessmentForbidden = common.NewPublicError(common.ErrForbidden, "Brak dostępu do tej oceny")
)

type AssessmentService struct {
	db             *sql.DB
	assessmentRepo repository.AssessmentRepository
	log            *zap.Logger
	now            func() time.Time
}

func NewAssessmentService(db *sql.DB, assessmentRepo repository.AssessmentRepository, log *zap.Logger) *AssessmentService {
	return &AssessmentService{db: db, assessmentRepo: assessmentRepo, log: log.Named("assessment_service"), now: time.Now}
}

// AssessmentRequest is the client payload for create and update.
type AssessmentRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Status      model.AssessmentStatus `json:"status"`
	Chapters    []model.Chapter        `json:"chapters"`
}

// AssessmentStats aggregates a user's assessments and area scores.
type AssessmentStats struct {
	TotalAssessments      int     `json:"totalAssessments"`
	InProgressAssessments int     `json:"inProgressAssessments"`
	CompletedAssessments  int     `json:"completedAssessments"`
	PositiveAreas         int     `json:"positiveAreas"`
	WarningAreas          int     `json:"warningAreas"`
	NegativeAreas         int     `json:"negativeAreas"`
	TotalAreas            int     `json:"totalAreas"`
	CompliancePercentage  float64 `json:"compliancePercentage"`
}

// AssessmentTemplate is a blank assessment prefilled with the default chapters.
type AssessmentTemplate struct {
	ID          *string                `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Status      model.AssessmentStatus `json:"status"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
	Chapters    []model.Chapter        `json:"chapters"`
}

func (s *AssessmentService) List(ctx context.Context, userID string) ([]model.AssessmentSummary, error) {
	list, err := s.assessmentRepo.ListSummariesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	if list == nil {
		list = []model.AssessmentSummary{}
	}
	return list, nil
}

func (s *AssessmentService) Summary(ctx context.Context, userID string) (*AssessmentStats, error) {
	list, err := s.assessmentRepo.ListSummariesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	counts, err := s.assessmentRepo.CountAreaScoresByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count area scores: %w", err)
	}

	stats := &AssessmentStats{TotalAssessments: len(list)}
	for _, a := range list {
		switch a.Status {
		case model.AssessmentInProgress:
			stats.InProgressAssessments++
		case model.AssessmentCompleted:
			stats.CompletedAssessments++
		}
	}
	stats.PositiveAreas = counts[model.ScorePositive]
	stats.WarningAreas = counts[model.ScoreWarning]
	stats.NegativeAreas = counts[model.ScoreNegative]
	for _, n := range counts {
		stats.TotalAreas += n
	}
	stats.CompliancePercentage = CompliancePercentage(stats.PositiveAreas, stats.WarningAreas, stats.TotalAreas)
	return stats, nil
}

// CompliancePercentage counts a warning area as half compliant (integer
// halving) and rounds the result to two decimals.
func CompliancePercentage(positive, warning, total int) float64 {
	if total == 0 {
		return 0
	}
	p := float64(positive+warning/2) / float64(total) * 100
	return math.Round(p*100) / 100
}

func (s *AssessmentService) Template() (*AssessmentTemplate, error) {
	var chapters []model.Chapter
	if err := json.Unmarshal(templateChapters, &chapters); err != nil {
		return nil, fmt.Errorf("failed to decode assessment template: %w", err)
	}
	now := s.now()
	return &AssessmentTemplate{
		Status:    model.AssessmentDraft,
		CreatedAt: now,
		UpdatedAt: now,
		Chapters:  chapters,
	}, nil
}

// Get returns the assessment with the given id if it belongs to userID.
func (s *AssessmentService) Get(ctx context.Context, userID, id string) (*model.Assessment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errAssessmentNotFound
	}
	a, err := s.assessmentRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to load assessment: %w", err)
	}
	if a.UserID != userID {
		return nil, errAssessmentForbidden
	}
	return a, nil
}

func (s *AssessmentService) Create(ctx context.Context, userID string, req AssessmentRequest) (*model.Assessment, error) {
	if err := validateAssessment(&req); err != nil {
		return nil, err
	}
	now := s.now()
	a := &model.Assessment{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Chapters:    assignIDs(req.Chapters),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.assessmentRepo.Create(ctx, tx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}
	s.log.Info("assessment created", zap.String("assessment_id", a.ID), zap.String("user_id", userID))
	return a, nil
}

func (s *AssessmentService) Update(ctx context.Context, userID, id string, req AssessmentRequest) (*model.Assessment, error) {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := validateAssessment(&req); err != nil {
		return nil, err
	}
	a.Name = req.Name
	a.Description = req.Description
	a.Status = req.Status
	a.Chapters = assignIDs(req.Chapters)
	a.UpdatedAt = s.now()

	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.assessmentRepo.Update(ctx, tx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update assessment: %w", err)
	}
	return a, nil
}

func (s *AssessmentService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.assessmentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return errAssessmentNotFound
		}
		return fmt.Errorf("failed to delete assessment: %w", err)
	}
	s.log.Info("assessment deleted", zap.String("assessment_id", id))
	return nil
}

// Export returns the assessment together with a download file name.
func (s *AssessmentService) Export(ctx context.Context, userID, id string) (*model.Assessment, string, error) {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, "", err
	}
	return a, ExportFileName(a), nil
}

func ExportFileName(a *model.Assessment) string {
	name := "assessment"
	if s := slug.Make(a.Name); s != "" {
		name += "_" + s
	}
	return name + "_" + a.ID + ".json"
}

func validateAssessment(req *AssessmentRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return common.NewValidationError("Nazwa oceny jest wymagana")
	}
	if tooLong(req.Name, 255) {
		return common.NewValidationError("Nazwa oceny nie może przekraczać 255 znaków")
	}
	if tooLong(req.Description, 1000) {
		return common.NewValidationError("Opis oceny nie może przekraczać 1000 znaków")
	}
	switch req.Status {
	case "":
		req.Status = model.AssessmentDraft
	case model.AssessmentDraft, model.AssessmentInProgress, model.AssessmentCompleted:
	default:
		return common.NewValidationError("Nieprawidłowy status oceny")
	}

	for i := range req.Chapters {
		ch := &req.Chapters[i]
		ch.Name = strings.TrimSpace(ch.Name)
		if ch.Name == "" {
			return common.NewValidationError("Nazwa rozdziału jest wymagana")
		}
		for j := range ch.Areas {
			ar := &ch.Areas[j]
			ar.Name = strings.TrimSpace(ar.Name)
			if ar.Name == "" {
				return common.NewValidationError("Nazwa obszaru jest wymagana")
			}
			switch ar.Score {
			case "", model.ScorePositive, model.ScoreWarning, model.ScoreNegative, model.ScoreInProgress, model.ScoreNotApplicable:
			default:
				return common.NewValidationError("Nieprawidłowa ocena obszaru: " + string(ar.Score))
			}
			for k := range ar.Requirements {
				rq := &ar.Requirements[k]
				rq.Text = strings.TrimSpace(rq.Text)
				if rq.Text == "" {
					return common.NewValidationError("Treść wymagania jest wymagana")
				}
				switch rq.Value {
				case "", model.RequirementYes, model.RequirementNo, model.RequirementInProgress, model.RequirementNotApplicable:
				default:
					return common.NewValidationError("Nieprawidłowa wartość wymagania: " + string(rq.Value))
				}
			}
		}
	}
	return nil
}

// assignIDs gives every nested element a fresh id. Client supplied ids are
// discarded since the tree is always rewritten as a whole.
func assignIDs(chapters []model.Chapter) []model.Chapter {
	if chapters == nil {
		return []model.Chapter{}
	}
	for i := range chapters {
		chapters[i].ID = uuid.NewString()
		for j := range chapters[i].Areas {
			area := &chapters[i].Areas[j]
			area.ID = uuid.NewString()
			for k := range area.Requirements {
				area.Requirements[k].ID = uuid.NewString()
			}
		}
	}
	return chapters
}

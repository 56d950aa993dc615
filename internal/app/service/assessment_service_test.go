package service

import (
	"context"
	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleAssessment() AssessmentRequest {
	return AssessmentRequest{
		Name:   "Ocena 2025",
		Status: model.AssessmentInProgress,
		Chapters: []model.Chapter{{
			Name: "Rozdział I",
			Areas: []model.Area{
				{Name: "Zgody", Score: model.ScorePositive, Requirements: []model.Requirement{{Text: "Wymaganie", Value: model.RequirementYes}}},
				{Name: "Retencja", Score: model.ScoreWarning},
				{Name: "Transfery", Score: model.ScoreNegative},
				{Name: "IOD", Score: model.ScoreNotApplicable},
			},
		}},
	}
}

func TestCompliancePercentage(t *testing.T) {
	tests := []struct {
		positive, warning, total int
		want                     float64
	}{
		{0, 0, 0, 0},
		{1, 1, 4, 25},
		{1, 2, 4, 50},
		{2, 1, 3, 66.67},
		{3, 0, 3, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompliancePercentage(tt.positive, tt.warning, tt.total))
	}
}

func TestAssessmentService_CRUD(t *testing.T) {
	svc := NewAssessmentService(nil, &memAssessments{}, zap.NewNop())
	ctx := context.Background()

	created, err := svc.Create(ctx, "owner", sampleAssessment())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	for _, ch := range created.Chapters {
		assert.NotEmpty(t, ch.ID)
		for _, ar := range ch.Areas {
			assert.NotEmpty(t, ar.ID)
		}
	}

	got, err := svc.Get(ctx, "owner", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ocena 2025", got.Name)

	_, err = svc.Get(ctx, "intruder", created.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrForbidden)
	assert.Equal(t, "Brak dostępu do tej oceny", common.PublicMessage(err))

	_, err = svc.Get(ctx, "owner", uuid.NewString())
	assert.Equal(t, "Ocena o podanym ID nie istnieje", common.PublicMessage(err))
	_, err = svc.Get(ctx, "owner", "not-a-uuid")
	assert.ErrorIs(t, err, common.ErrNotFound)

	req := sampleAssessment()
	req.Name = "Ocena poprawiona"
	req.Status = model.AssessmentCompleted
	updated, err := svc.Update(ctx, "owner", created.ID, req)
	require.NoError(t, err)
	assert.Equal(t, model.AssessmentCompleted, updated.Status)

	_, err = svc.Update(ctx, "intruder", created.ID, req)
	assert.ErrorIs(t, err, common.ErrForbidden)

	a, name, err := svc.Export(ctx, "owner", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, a.ID)
	assert.Equal(t, "assessment_ocena-poprawiona_"+created.ID+".json", name)

	assert.ErrorIs(t, svc.Delete(ctx, "intruder", created.ID), common.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, "owner", created.ID))
	_, err = svc.Get(ctx, "owner", created.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAssessmentService_Validation(t *testing.T) {
	svc := NewAssessmentService(nil, &memAssessments{}, zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name   string
		modify func(r *AssessmentRequest)
		msg    string
	}{
		{"name required", func(r *AssessmentRequest) { r.Name = " " }, "Nazwa oceny jest wymagana"},
		{"name too long", func(r *AssessmentRequest) { r.Name = strings.Repeat("a", 256) }, "Nazwa oceny nie może przekraczać 255 znaków"},
		{"description too long", func(r *AssessmentRequest) { r.Description = strings.Repeat("a", 1001) }, "Opis oceny nie może przekraczać 1000 znaków"},
		{"chapter name", func(r *AssessmentRequest) { r.Chapters[0].Name = "" }, "Nazwa rozdziału jest wymagana"},
		{"area name", func(r *AssessmentRequest) { r.Chapters[0].Areas[0].Name = "" }, "Nazwa obszaru jest wymagana"},
		{"requirement text", func(r *AssessmentRequest) { r.Chapters[0].Areas[0].Requirements[0].Text = "" }, "Treść wymagania jest wymagana"},
		{"bad status", func(r *AssessmentRequest) { r.Status = "DONE" }, "Nieprawidłowy status oceny"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := sampleAssessment()
			tt.modify(&req)
			_, err := svc.Create(ctx, "owner", req)
			require.Error(t, err)
			assert.Equal(t, tt.msg, common.PublicMessage(err))
		})
	}

	req := sampleAssessment()
	req.Status = ""
	a, err := svc.Create(ctx, "owner", req)
	require.NoError(t, err)
	assert.Equal(t, model.AssessmentDraft, a.Status)
}

func TestAssessmentService_Summary(t *testing.T) {
	svc := NewAssessmentService(nil, &memAssessments{}, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Create(ctx, "owner", sampleAssessment())
	require.NoError(t, err)
	done := sampleAssessment()
	done.Status = model.AssessmentCompleted
	_, err = svc.Create(ctx, "owner", done)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "someone-else", sampleAssessment())
	require.NoError(t, err)

	stats, err := svc.Summary(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, &AssessmentStats{
		TotalAssessments:      2,
		InProgressAssessments: 1,
		CompletedAssessments:  1,
		PositiveAreas:         2,
		WarningAreas:          2,
		NegativeAreas:         2,
		TotalAreas:            8,
		CompliancePercentage:  37.5,
	}, stats)

	empty, err := svc.Summary(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, empty.CompliancePercentage)
}

func TestAssessmentService_Template(t *testing.T) {
	svc := NewAssessmentService(nil, &memAssessments{}, zap.NewNop())
	tpl, err := svc.Template()
	require.NoError(t, err)
	assert.Nil(t, tpl.ID)
	assert.Equal(t, model.AssessmentDraft, tpl.Status)
	require.NotEmpty(t, tpl.Chapters)
	for _, ch := range tpl.Chapters {
		assert.NotEmpty(t, ch.Name)
		assert.NotEmpty(t, ch.Areas)
	}
}

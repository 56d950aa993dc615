package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
)

type ReportRepository interface {
	ListAreasByUser(ctx context.Context, userID string) ([]model.ComplianceArea, error)
	ListRecommendationsByUser(ctx context.Context, userID string) ([]model.Recommendation, error)
	// FindArea returns the area with OwnerID set to the user owning its report.
	FindArea(ctx context.Context, id string) (*model.ComplianceArea, error)
}

type pgReportRepository struct {
	db *sql.DB
}

func NewPgReportRepository(db *sql.DB) ReportRepository {
	return &pgReportRepository{db: db}
}

func (r *pgReportRepository) ListAreasByUser(ctx context.Context, userID string) ([]model.ComplianceArea, error) {
	query := `SELECT ca.id, ca.report_id, rp.user_id, ca.name, ca.score, COALESCE(ca.risk, ''), ca.last_updated
	          FROM compliance_areas ca
	          JOIN reports rp ON rp.id = ca.report_id
	          WHERE rp.user_id = $1`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgReportRepository.ListAreasByUser: %w", err)
	}
	defer rows.Close()

	areas := []model.ComplianceArea{}
	for rows.Next() {
		var a model.ComplianceArea
		if err := rows.Scan(&a.ID, &a.ReportID, &a.OwnerID, &a.Name, &a.Score, &a.Risk, &a.LastUpdated); err != nil {
			return nil, fmt.Errorf("pgReportRepository.ListAreasByUser scan: %w", err)
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

func (r *pgReportRepository) ListRecommendationsByUser(ctx context.Context, userID string) ([]model.Recommendation, error) {
	query := `SELECT rc.id, rc.report_id, rc.text, rc.priority, COALESCE(rc.status, ''), rc.due_date
	          FROM recommendations rc
	          JOIN reports rp ON rp.id = rc.report_id
	          WHERE rp.user_id = $1`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgReportRepository.ListRecommendationsByUser: %w", err)
	}
	defer rows.Close()

	recs := []model.Recommendation{}
	for rows.Next() {
		var rc model.Recommendation
		var due sql.NullTime
		if err := rows.Scan(&rc.ID, &rc.ReportID, &rc.Text, &rc.Priority, &rc.Status, &due); err != nil {
			return nil, fmt.Errorf("pgReportRepository.ListRecommendationsByUser scan: %w", err)
		}
		if due.Valid {
			t := due.Time
			rc.DueDate = &t
		}
		recs = append(recs, rc)
	}
	return recs, rows.Err()
}

func (r *pgReportRepository) FindArea(ctx context.Context, id string) (*model.ComplianceArea, error) {
	query := `SELECT ca.id, ca.report_id, rp.user_id, ca.name, ca.score, COALESCE(ca.risk, ''), ca.last_updated
	          FROM compliance_areas ca
	          JOIN reports rp ON rp.id = ca.report_id
	          WHERE ca.id = $1`
	a := &model.ComplianceArea{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.ReportID, &a.OwnerID, &a.Name, &a.Score, &a.Risk, &a.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgReportRepository.FindArea: %w", err)
	}
	return a, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
)

type AssessmentRepository interface {
	ListSummariesByUser(ctx context.Context, userID string) ([]model.AssessmentSummary, error)
	FindByID(ctx context.Context, id string) (*model.Assessment, error)
	// Create inserts the assessment with its whole chapter tree.
	Create(ctx context.Context, tx *sql.Tx, a *model.Assessment) error
	// Update rewrites the header and replaces the chapter tree.
	Update(ctx context.Context, tx *sql.Tx, a *model.Assessment) error
	Delete(ctx context.Context, id string) error
	CountAreaScoresByUser(ctx context.Context, userID string) (map[model.AreaScore]int, error)
}

type pgAssessmentRepository struct {
	db *sql.DB
}

func NewPgAssessmentRepository(db *sql.DB) AssessmentRepository {
	return &pgAssessmentRepository{db: db}
}

func (r *pgAssessmentRepository) ListSummariesByUser(ctx context.Context, userID string) ([]model.AssessmentSummary, error) {
	query := `SELECT a.id, a.name, a.description, a.status, a.created_at, a.updated_at,
	                 (SELECT COUNT(*) FROM chapters c WHERE c.assessment_id = a.id),
	                 (SELECT COUNT(*) FROM areas ar JOIN chapters c ON c.id = ar.chapter_id
	                   WHERE c.assessment_id = a.id),
	                 (SELECT COUNT(*) FROM requirements rq JOIN areas ar ON ar.id = rq.area_id
	                   JOIN chapters c ON c.id = ar.chapter_id WHERE c.assessment_id = a.id)
	          FROM assessments a
	          WHERE a.user_id = $1
	          ORDER BY a.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgAssessmentRepository.ListSummariesByUser: %w", err)
	}
	defer rows.Close()

	summaries := []model.AssessmentSummary{}
	for rows.Next() {
		var s model.AssessmentSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Status, &s.CreatedAt, &s.UpdatedAt,
			&s.ChaptersCount, &s.AreasCount, &s.RequirementsCount); err != nil {
			return nil, fmt.Errorf("pgAssessmentRepository.ListSummariesByUser scan: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *pgAssessmentRepository) FindByID(ctx context.Context, id string) (*model.Assessment, error) {
	query := `SELECT id, user_id, name, description, status, created_at, updated_at
	          FROM assessments WHERE id = $1`
	a := &model.Assessment{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.Name, &a.Description, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgAssessmentRepository.FindByID: %w", err)
	}
	if a.Chapters, err = r.loadChapters(ctx, a.ID); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *pgAssessmentRepository) loadChapters(ctx context.Context, assessmentID string) ([]model.Chapter, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description FROM chapters WHERE assessment_id = $1 ORDER BY position`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("pgAssessmentRepository.loadChapters: %w", err)
	}
	chapters := []model.Chapter{}
	for rows.Next() {
		var ch model.Chapter
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Description); err != nil {
			rows.Close()
			return nil, fmt.Errorf("pgAssessmentRepository.loadChapters scan: %w", err)
		}
		chapters = append(chapters, ch)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range chapters {
		if chapters[i].Areas, err = r.loadAreas(ctx, chapters[i].ID); err != nil {
			return nil, err
		}
	}
	return chapters, nil
}

func (r *pgAssessmentRepository) loadAreas(ctx context.Context, chapterID string) ([]model.Area, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, score, comment FROM areas WHERE chapter_id = $1 ORDER BY position`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("pgAssessmentRepository.loadAreas: %w", err)
	}
	areas := []model.Area{}
	for rows.Next() {
		var ar model.Area
		if err := rows.Scan(&ar.ID, &ar.Name, &ar.Description, &ar.Score, &ar.Comment); err != nil {
			rows.Close()
			return nil, fmt.Errorf("pgAssessmentRepository.loadAreas scan: %w", err)
		}
		areas = append(areas, ar)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range areas {
		reqRows, err := r.db.QueryContext(ctx,
			`SELECT id, text, value, comment FROM requirements WHERE area_id = $1 ORDER BY position`, areas[i].ID)
		if err != nil {
			return nil, fmt.Errorf("pgAssessmentRepository.loadRequirements: %w", err)
		}
		areas[i].Requirements = []model.Requirement{}
		for reqRows.Next() {
			var rq model.Requirement
			if err := reqRows.Scan(&rq.ID, &rq.Text, &rq.Value, &rq.Comment); err != nil {
				reqRows.Close()
				return nil, fmt.Errorf("pgAssessmentRepository.loadRequirements scan: %w", err)
			}
			areas[i].Requirements = append(areas[i].Requirements, rq)
		}
		reqRows.Close()
		if err := reqRows.Err(); err != nil {
			return nil, err
		}
	}
	return areas, nil
}

func (r *pgAssessmentRepository) Create(ctx context.Context, tx *sql.Tx, a *model.Assessment) error {
	query := `INSERT INTO assessments (id, user_id, name, description, status)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at, updated_at`
	err := pick(r.db, tx).QueryRowContext(ctx, query, a.ID, a.UserID, a.Name, a.Description, a.Status).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pgAssessmentRepository.Create: %w", err)
	}
	return r.insertChapters(ctx, tx, a)
}

func (r *pgAssessmentRepository) insertChapters(ctx context.Context, tx *sql.Tx, a *model.Assessment) error {
	q := pick(r.db, tx)
	for ci := range a.Chapters {
		ch := &a.Chapters[ci]
		if _, err := q.ExecContext(ctx,
			`INSERT INTO chapters (id, assessment_id, name, description, position) VALUES ($1, $2, $3, $4, $5)`,
			ch.ID, a.ID, ch.Name, ch.Description, ci); err != nil {
			return fmt.Errorf("pgAssessmentRepository.insertChapters: %w", err)
		}
		for ai := range ch.Areas {
			ar := &ch.Areas[ai]
			if _, err := q.ExecContext(ctx,
				`INSERT INTO areas (id, chapter_id, name, description, score, comment, position)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				ar.ID, ch.ID, ar.Name, ar.Description, ar.Score, ar.Comment, ai); err != nil {
				return fmt.Errorf("pgAssessmentRepository.insertAreas: %w", err)
			}
			for ri := range ar.Requirements {
				rq := &ar.Requirements[ri]
				if _, err := q.ExecContext(ctx,
					`INSERT INTO requirements (id, area_id, text, value, comment, position)
					 VALUES ($1, $2, $3, $4, $5, $6)`,
					rq.ID, ar.ID, rq.Text, rq.Value, rq.Comment, ri); err != nil {
					return fmt.Errorf("pgAssessmentRepository.insertRequirements: %w", err)
				}
			}
		}
	}
	return nil
}

func (r *pgAssessmentRepository) Update(ctx context.Context, tx *sql.Tx, a *model.Assessment) error {
	q := pick(r.db, tx)
	res, err := q.ExecContext(ctx,
		`UPDATE assessments SET name = $2, description = $3, status = $4, updated_at = NOW() WHERE id = $1`,
		a.ID, a.Name, a.Description, a.Status)
	if err != nil {
		return fmt.Errorf("pgAssessmentRepository.Update: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	// Areas and requirements go with their chapter (ON DELETE CASCADE).
	if _, err := q.ExecContext(ctx, `DELETE FROM chapters WHERE assessment_id = $1`, a.ID); err != nil {
		return fmt.Errorf("pgAssessmentRepository.Update (clear chapters): %w", err)
	}
	return r.insertChapters(ctx, tx, a)
}

func (r *pgAssessmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assessments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgAssessmentRepository.Delete: %w", err)
	}
	return requireAffected(res)
}

func (r *pgAssessmentRepository) CountAreaScoresByUser(ctx context.Context, userID string) (map[model.AreaScore]int, error) {
	query := `SELECT ar.score, COUNT(*)
	          FROM areas ar
	          JOIN chapters c ON c.id = ar.chapter_id
	          JOIN assessments a ON a.id = c.assessment_id
	          WHERE a.user_id = $1
	          GROUP BY ar.score`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgAssessmentRepository.CountAreaScoresByUser: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.AreaScore]int)
	for rows.Next() {
		var score model.AreaScore
		var n int
		if err := rows.Scan(&score, &n); err != nil {
			return nil, fmt.Errorf("pgAssessmentRepository.CountAreaScoresByUser scan: %w", err)
		}
		counts[score] = n
	}
	return counts, rows.Err()
}

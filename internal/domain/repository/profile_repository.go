package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
)

type ProfileRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.UserProfile, error)
	Upsert(ctx context.Context, tx *sql.Tx, profile *model.UserProfile) error
}

type pgProfileRepository struct {
	db *sql.DB
}

func NewPgProfileRepository(db *sql.DB) ProfileRepository {
	return &pgProfileRepository{db: db}
}

func (r *pgProfileRepository) FindByUserID(ctx context.Context, userID string) (*model.UserProfile, error) {
	query := `SELECT user_id, phone, position, notification_email, notification_app
	          FROM user_profiles WHERE user_id = $1`
	p := &model.UserProfile{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Phone, &p.Position, &p.NotificationEmail, &p.NotificationApp,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProfileRepository.FindByUserID: %w", err)
	}
	return p, nil
}

func (r *pgProfileRepository) Upsert(ctx context.Context, tx *sql.Tx, p *model.UserProfile) error {
	query := `INSERT INTO user_profiles (user_id, phone, position, notification_email, notification_app)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (user_id) DO UPDATE SET
	              phone = EXCLUDED.phone,
	              position = EXCLUDED.position,
	              notification_email = EXCLUDED.notification_email,
	              notification_app = EXCLUDED.notification_app`
	_, err := pick(r.db, tx).ExecContext(ctx, query, p.UserID, p.Phone, p.Position, p.NotificationEmail, p.NotificationApp)
	if err != nil {
		return fmt.Errorf("pgProfileRepository.Upsert: %w", err)
	}
	return nil
}

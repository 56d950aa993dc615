package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
	"time"
)

type SubscriptionRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.Subscription, error)
	Create(ctx context.Context, sub *model.Subscription) error
	Update(ctx context.Context, tx *sql.Tx, sub *model.Subscription) error
	// FindDue returns subscriptions in the given statuses whose billing date is not after asOf.
	FindDue(ctx context.Context, tx *sql.Tx, asOf time.Time, statuses []model.SubscriptionStatus, limit int) ([]model.Subscription, error)
}

type pgSubscriptionRepository struct {
	db *sql.DB
}

func NewPgSubscriptionRepository(db *sql.DB) SubscriptionRepository {
	return &pgSubscriptionRepository{db: db}
}

const subscriptionColumns = `id, user_id, plan, status, next_billing_date, billing_day, payment_method, created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }, s *model.Subscription) error {
	return row.Scan(&s.ID, &s.UserID, &s.Plan, &s.Status, &s.NextBillingDate, &s.BillingDay, &s.PaymentMethod, &s.CreatedAt, &s.UpdatedAt)
}

func (r *pgSubscriptionRepository) FindByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`
	s := &model.Subscription{}
	if err := scanSubscription(r.db.QueryRowContext(ctx, query, userID), s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubscriptionRepository.FindByUserID: %w", err)
	}
	return s, nil
}

func (r *pgSubscriptionRepository) Create(ctx context.Context, s *model.Subscription) error {
	query := `INSERT INTO subscriptions (id, user_id, plan, status, next_billing_date, billing_day, payment_method)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, s.ID, s.UserID, s.Plan, s.Status, s.NextBillingDate, s.BillingDay, s.PaymentMethod).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("subscription already exists for user: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgSubscriptionRepository.Create: %w", err)
	}
	return nil
}

func (r *pgSubscriptionRepository) Update(ctx context.Context, tx *sql.Tx, s *model.Subscription) error {
	query := `UPDATE subscriptions
	          SET plan = $2, status = $3, next_billing_date = $4, billing_day = $5, payment_method = $6, updated_at = NOW()
	          WHERE id = $1`
	res, err := pick(r.db, tx).ExecContext(ctx, query, s.ID, s.Plan, s.Status, s.NextBillingDate, s.BillingDay, s.PaymentMethod)
	if err != nil {
		return fmt.Errorf("pgSubscriptionRepository.Update: %w", err)
	}
	return requireAffected(res)
}

func (r *pgSubscriptionRepository) FindDue(ctx context.Context, tx *sql.Tx, asOf time.Time, statuses []model.SubscriptionStatus, limit int) ([]model.Subscription, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
	          WHERE next_billing_date <= $1 AND status = ANY($2)
	          ORDER BY next_billing_date
	          LIMIT $3
	          FOR UPDATE SKIP LOCKED`
	rows, err := pick(r.db, tx).QueryContext(ctx, query, asOf, names, limit)
	if err != nil {
		return nil, fmt.Errorf("pgSubscriptionRepository.FindDue: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		var s model.Subscription
		if err := scanSubscription(rows, &s); err != nil {
			return nil, fmt.Errorf("pgSubscriptionRepository.FindDue scan: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
)

type CompanyRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.Company, error)
	// Upsert creates or replaces the single company record of c.UserID.
	Upsert(ctx context.Context, c *model.Company) error
}

type pgCompanyRepository struct {
	db *sql.DB
}

func NewPgCompanyRepository(db *sql.DB) CompanyRepository {
	return &pgCompanyRepository{db: db}
}

func (r *pgCompanyRepository) FindByUserID(ctx context.Context, userID string) (*model.Company, error) {
	query := `SELECT id, user_id, name, address, city, postal_code, nip, regon, industry
	          FROM companies WHERE user_id = $1`
	c := &model.Company{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&c.ID, &c.UserID, &c.Name, &c.Address, &c.City, &c.PostalCode, &c.NIP, &c.REGON, &c.Industry,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgCompanyRepository.FindByUserID: %w", err)
	}
	return c, nil
}

func (r *pgCompanyRepository) Upsert(ctx context.Context, c *model.Company) error {
	query := `INSERT INTO companies (id, user_id, name, address, city, postal_code, nip, regon, industry)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          ON CONFLICT (user_id) DO UPDATE SET
	              name = EXCLUDED.name,
	              address = EXCLUDED.address,
	              city = EXCLUDED.city,
	              postal_code = EXCLUDED.postal_code,
	              nip = EXCLUDED.nip,
	              regon = EXCLUDED.regon,
	              industry = EXCLUDED.industry
	          RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		c.ID, c.UserID, c.Name, c.Address, c.City, c.PostalCode, c.NIP, c.REGON, c.Industry,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("pgCompanyRepository.Upsert: %w", err)
	}
	return nil
}

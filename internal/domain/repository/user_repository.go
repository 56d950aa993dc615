package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
	"strings"
)

type UserRepository interface {
	Create(ctx context.Context, tx *sql.Tx, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	UpdateNames(ctx context.Context, tx *sql.Tx, userID, firstName, lastName string) error
	UpdatePassword(ctx context.Context, userID, hashedPassword string) error
	// ReplaceRoles sets the user's roles to exactly the given role ids.
	ReplaceRoles(ctx context.Context, tx *sql.Tx, userID string, roleIDs []string) error
	AssignRole(ctx context.Context, tx *sql.Tx, userID, roleID string) error
}

type RoleRepository interface {
	FindByName(ctx context.Context, tx *sql.Tx, name string) (*model.Role, error)
	Create(ctx context.Context, tx *sql.Tx, role *model.Role) error
	// FindOrCreate inserts role unless its name is taken, then sets role.ID to
	// the stored row. Concurrent callers for the same name all succeed.
	FindOrCreate(ctx context.Context, tx *sql.Tx, role *model.Role) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func pick(db *sql.DB, tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return db
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, tx *sql.Tx, user *model.User) error {
	query := `INSERT INTO users (id, username, email, first_name, last_name, hashed_password)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := pick(r.db, tx).ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.FirstName, user.LastName, user.HashedPassword)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

const selectUserWithRoles = `SELECT u.id, u.username, u.email, u.first_name, u.last_name, u.hashed_password,
	       u.created_at, u.updated_at, COALESCE(string_agg(r.name, ',' ORDER BY r.name), '')
	FROM users u
	LEFT JOIN user_roles ur ON ur.user_id = u.id
	LEFT JOIN roles r ON r.id = ur.role_id`

func (r *pgUserRepository) findOne(ctx context.Context, where string, arg any) (*model.User, error) {
	query := selectUserWithRoles + " WHERE " + where + " GROUP BY u.id"
	user := &model.User{}
	var roles string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName, &user.HashedPassword,
		&user.CreatedAt, &user.UpdatedAt, &roles,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	user.Roles = splitRoles(roles)
	return user, nil
}

func splitRoles(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := r.findOne(ctx, "u.email = $1", email)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgUserRepository.FindByEmail: %w", err)
	}
	return user, err
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := r.findOne(ctx, "u.username = $1", username)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgUserRepository.FindByUsername: %w", err)
	}
	return user, err
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := r.findOne(ctx, "u.id = $1", id)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgUserRepository.FindByID: %w", err)
	}
	return user, err
}

func (r *pgUserRepository) UpdateNames(ctx context.Context, tx *sql.Tx, userID, firstName, lastName string) error {
	query := `UPDATE users SET first_name = $2, last_name = $3, updated_at = NOW() WHERE id = $1`
	res, err := pick(r.db, tx).ExecContext(ctx, query, userID, firstName, lastName)
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdateNames: %w", err)
	}
	return requireAffected(res)
}

func (r *pgUserRepository) UpdatePassword(ctx context.Context, userID, hashedPassword string) error {
	query := `UPDATE users SET hashed_password = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, userID, hashedPassword)
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdatePassword: %w", err)
	}
	return requireAffected(res)
}

func (r *pgUserRepository) ReplaceRoles(ctx context.Context, tx *sql.Tx, userID string, roleIDs []string) error {
	q := pick(r.db, tx)
	if _, err := q.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("pgUserRepository.ReplaceRoles (delete): %w", err)
	}
	for _, roleID := range roleIDs {
		if err := r.AssignRole(ctx, tx, userID, roleID); err != nil {
			return err
		}
	}
	return nil
}

func (r *pgUserRepository) AssignRole(ctx context.Context, tx *sql.Tx, userID, roleID string) error {
	query := `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := pick(r.db, tx).ExecContext(ctx, query, userID, roleID); err != nil {
		return fmt.Errorf("pgUserRepository.AssignRole: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

type pgRoleRepository struct {
	db *sql.DB
}

func NewPgRoleRepository(db *sql.DB) RoleRepository {
	return &pgRoleRepository{db: db}
}

func (r *pgRoleRepository) FindByName(ctx context.Context, tx *sql.Tx, name string) (*model.Role, error) {
	role := &model.Role{}
	err := pick(r.db, tx).QueryRowContext(ctx, `SELECT id, name FROM roles WHERE name = $1`, name).
		Scan(&role.ID, &role.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgRoleRepository.FindByName: %w", err)
	}
	return role, nil
}

func (r *pgRoleRepository) Create(ctx context.Context, tx *sql.Tx, role *model.Role) error {
	_, err := pick(r.db, tx).ExecContext(ctx, `INSERT INTO roles (id, name) VALUES ($1, $2)`, role.ID, role.Name)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("role %q already exists: %w", role.Name, common.ErrConflict)
		}
		return fmt.Errorf("pgRoleRepository.Create: %w", err)
	}
	return nil
}

func (r *pgRoleRepository) FindOrCreate(ctx context.Context, tx *sql.Tx, role *model.Role) error {
	q := pick(r.db, tx)
	err := q.QueryRowContext(ctx,
		`INSERT INTO roles (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING RETURNING id`,
		role.ID, role.Name).Scan(&role.ID)
	if errors.Is(err, sql.ErrNoRows) {
		err = q.QueryRowContext(ctx, `SELECT id FROM roles WHERE name = $1`, role.Name).Scan(&role.ID)
	}
	if err != nil {
		return fmt.Errorf("pgRoleRepository.FindOrCreate: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"regexp"
	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var userColumns = []string{"id", "username", "email", "first_name", "last_name", "hashed_password", "created_at", "updated_at", "roles"}

func TestPgUserRepository_FindByUsernameSplitsRoles(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.username = $1 GROUP BY u.id")).
		WithArgs("anna").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u1", "anna", "anna@example.pl", "Anna", "Nowak", "hash", now, now, "ROLE_ADMIN,ROLE_USER"))

	user, err := NewPgUserRepository(db).FindByUsername(context.Background(), "anna")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, []string{"ROLE_ADMIN", "ROLE_USER"}, user.Roles)
	assert.True(t, user.HasRole(model.RoleAdmin))
}

func TestPgUserRepository_FindByUsernameWithoutRoles(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.username = $1")).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u2", "bob", "bob@example.pl", "", "", "hash", now, now, ""))

	user, err := NewPgUserRepository(db).FindByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.Empty(t, user.Roles)
	assert.NotNil(t, user.Roles)
}

func TestPgUserRepository_FindByUsernameNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.username = $1")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := NewPgUserRepository(db).FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPgUserRepository_FindByUsernameDriverError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE u.username = $1")).
		WithArgs("anna").
		WillReturnError(sql.ErrConnDone)

	_, err := NewPgUserRepository(db).FindByUsername(context.Background(), "anna")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestPgUserRepository_CreateUniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("u1", "anna", "anna@example.pl", "", "", "hash").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := NewPgUserRepository(db).Create(context.Background(), nil, &model.User{
		ID: "u1", Username: "anna", Email: "anna@example.pl", HashedPassword: "hash",
	})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestPgUserRepository_UpdatePasswordMissingUser(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET hashed_password")).
		WithArgs("u1", "newhash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewPgUserRepository(db).UpdatePassword(context.Background(), "u1", "newhash")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPgUserRepository_ReplaceRolesInTx(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_roles")).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_roles")).WithArgs("u1", "r1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_roles")).WithArgs("u1", "r2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, NewPgUserRepository(db).ReplaceRoles(context.Background(), tx, "u1", []string{"r1", "r2"}))
	require.NoError(t, tx.Commit())
}

func TestPgRoleRepository_FindByNameNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM roles")).
		WithArgs("ROLE_X").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, err := NewPgRoleRepository(db).FindByName(context.Background(), nil, "ROLE_X")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPgRoleRepository_FindOrCreateInserts(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO roles (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING RETURNING id")).
		WithArgs("r-new", "ROLE_ADMIN").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r-new"))

	role := &model.Role{ID: "r-new", Name: "ROLE_ADMIN"}
	require.NoError(t, NewPgRoleRepository(db).FindOrCreate(context.Background(), nil, role))
	assert.Equal(t, "r-new", role.ID)
}

func TestPgRoleRepository_FindOrCreateExisting(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (name) DO NOTHING")).
		WithArgs("r-new", "ROLE_ADMIN").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM roles WHERE name = $1")).
		WithArgs("ROLE_ADMIN").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r-seeded"))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	role := &model.Role{ID: "r-new", Name: "ROLE_ADMIN"}
	require.NoError(t, NewPgRoleRepository(db).FindOrCreate(context.Background(), tx, role))
	require.NoError(t, tx.Commit())
	assert.Equal(t, "r-seeded", role.ID)
}

func TestMemoryRoles_FindOrCreateReturnsStoredRole(t *testing.T) {
	roles := NewMemoryUserStore().Roles()
	ctx := context.Background()

	first := &model.Role{ID: "r1", Name: "ROLE_ADMIN"}
	require.NoError(t, roles.FindOrCreate(ctx, nil, first))
	second := &model.Role{ID: "r2", Name: "ROLE_ADMIN"}
	require.NoError(t, roles.FindOrCreate(ctx, nil, second))

	assert.Equal(t, "r1", second.ID)
	stored, err := roles.FindByName(ctx, nil, "ROLE_ADMIN")
	require.NoError(t, err)
	assert.Equal(t, "r1", stored.ID)
}

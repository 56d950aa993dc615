package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"rodo_assess/internal/api/middleware"
	"rodo_assess/internal/app/service"
	"rodo_assess/internal/common"
	"rodo_assess/internal/common/security"
	"rodo_assess/internal/domain/model"
	"rodo_assess/internal/domain/repository"
	"rodo_assess/internal/platform/config"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type memProfiles struct {
	mu sync.Mutex
	m  map[string]model.UserProfile
}

func (p *memProfiles) FindByUserID(_ context.Context, userID string) (*model.UserProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.m[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &v, nil
}

func (p *memProfiles) Upsert(_ context.Context, _ *sql.Tx, profile *model.UserProfile) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[profile.UserID] = *profile
	return nil
}

type denylist struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (d *denylist) Revoke(_ context.Context, id string, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[id] = true
	return nil
}

func (d *denylist) IsRevoked(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.revoked[id], nil
}

type testServer struct {
	handler http.Handler
	store   *repository.MemoryUserStore
	users   *service.UserService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	store := repository.NewMemoryUserStore()
	tokens, err := security.NewTokenService([]byte("router-test-secret"), time.Hour, store,
		security.WithDenylist(&denylist{revoked: map[string]bool{}}))
	require.NoError(t, err)

	users := service.NewUserService(nil, store, store.Roles(), &memProfiles{m: map[string]model.UserProfile{}}, bcrypt.MinCost, log)
	h := NewRouter(RouterConfig{
		Verifier:      tokens,
		Resolver:      security.NewIdentityResolver(store),
		PublicPaths:   config.DefaultPublicPaths,
		QueryFallback: true,
		LoginLimiter:  middleware.NewClientRateLimiter(100, 100),
		Logger:        log,
	}, Services{
		Auth:  service.NewAuthService(nil, store, store.Roles(), tokens, bcrypt.MinCost, log),
		Users: users,
	})
	return &testServer{handler: h, store: store, users: users}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/register", "", map[string]string{
		"userName": username,
		"password": "Secret#123",
		"email":    username + "@example.pl",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp service.RegisterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRouter_PublicPaths(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/v3/api-docs", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"openapi"`)

	rec = s.do(t, http.MethodPost, "/login", "", map[string]string{"login": "ghost", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid username or password"}`, rec.Body.String())
}

func TestRouter_ProtectedRequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/users/profile", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_RegisterLoginAndUseToken(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "anna")

	rec := s.do(t, http.MethodPost, "/login", "", map[string]string{"login": "anna", "password": "Secret#123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login service.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	rec = s.do(t, http.MethodGet, "/verify-token", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":true,"username":"anna","email":"anna@example.pl","role":"ROLE_ADMIN"}`, rec.Body.String())

	rec = s.do(t, http.MethodPut, "/users/profile", login.Token, map[string]string{"firstName": "Anna", "phone": "123"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Profil został zaktualizowany"}`, rec.Body.String())

	// Query parameter fallback for clients that cannot set headers.
	rec = s.do(t, http.MethodGet, "/users/profile?token="+login.Token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile service.ProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "Anna", profile.FirstName)
	assert.Equal(t, "123", profile.Phone)
}

func TestRouter_RegisterValidation(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/register", "", map[string]string{
		"userName": "anna", "password": "Secret#123", "email": "nope",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid email format"}`, rec.Body.String())
}

func TestRouter_DeletedUserIsRejected(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "anna")
	user, err := s.store.FindByUsername(context.Background(), "anna")
	require.NoError(t, err)
	s.store.Delete(user.ID)

	rec := s.do(t, http.MethodGet, "/users/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_LogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "anna")

	rec := s.do(t, http.MethodPost, "/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/verify-token", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_RoleManagementUsesCurrentRoles(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	opToken := s.register(t, "operator")
	userToken := s.register(t, "anna")

	rec := s.do(t, http.MethodGet, "/users/anna/roles", opToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Granted out of band; the existing token picks it up on the next request.
	_, err := s.users.SetRoles(ctx, "operator", []string{model.RoleAdmin, model.RoleSuperAdmin})
	require.NoError(t, err)

	rec = s.do(t, http.MethodPut, "/users/anna/roles", opToken, map[string][]string{"roles": {"ROLE_USER"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"username":"anna","roles":["ROLE_USER"]}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/verify-token", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"ROLE_USER"`)
}

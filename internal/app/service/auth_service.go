package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"rodo_assess/internal/common"
	"rodo_assess/internal/common/security"
	"rodo_assess/internal/domain/model"
	"rodo_assess/internal/domain/repository"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Role granted to every self-registered account.
const RegistrationRole = model.RoleAdmin

type AuthService struct {
	db         *sql.DB
	userRepo   repository.UserRepository
	roleRepo   repository.RoleRepository
	tokens     *security.TokenService
	bcryptCost int
	log        *zap.Logger
}

func NewAuthService(db *sql.DB, userRepo repository.UserRepository, roleRepo repository.RoleRepository,
	tokens *security.TokenService, bcryptCost int, log *zap.Logger) *AuthService {
	return &AuthService{
		db:         db,
		userRepo:   userRepo,
		roleRepo:   roleRepo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		log:        log.Named("auth_service"),
	}
}

type LoginRequest struct {
	Login    string `json:"login"` // username, or email
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type RegisterRequest struct {
	UserName  string `json:"userName"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

type RegisterResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	login := strings.TrimSpace(req.Login)
	if login == "" || req.Password == "" {
		return nil, common.ErrUnauthorized
	}

	user, err := s.userRepo.FindByUsername(ctx, login)
	if errors.Is(err, common.ErrNotFound) && strings.Contains(login, "@") {
		user, err = s.userRepo.FindByEmail(ctx, login)
	}
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized // Generic message for security
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		s.log.Info("login failed", zap.String("username", user.Username))
		return nil, common.ErrUnauthorized
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &TokenResponse{Token: token}, nil
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	req.UserName = strings.TrimSpace(req.UserName)
	req.Email = strings.TrimSpace(req.Email)

	if !validEmail(req.Email) {
		return nil, common.NewValidationError("Invalid email format")
	}
	if !strongPassword(req.Password) {
		return nil, common.NewValidationError("Password must contain at least one uppercase letter and one special character")
	}
	if req.UserName == "" {
		return nil, common.NewValidationError("Username is required")
	}

	if _, err := s.userRepo.FindByUsername(ctx, req.UserName); err == nil {
		return nil, common.NewValidationError("Username already exists")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, common.NewValidationError("Email already exists")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := security.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Username:       req.UserName,
		Email:          req.Email,
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		HashedPassword: hashedPassword,
	}

	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.userRepo.Create(ctx, tx, user); err != nil {
			return err
		}
		role, err := ensureRole(ctx, tx, s.roleRepo, RegistrationRole)
		if err != nil {
			return err
		}
		return s.userRepo.AssignRole(ctx, tx, user.ID, role.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	s.log.Info("user registered", zap.String("username", user.Username))
	return &RegisterResponse{Token: token, Message: "Registration successful"}, nil
}

// Logout revokes the caller's token when a denylist is configured.
func (s *AuthService) Logout(ctx context.Context, p *security.Principal) error {
	return s.tokens.Revoke(ctx, p)
}

// ensureRole returns the named role, creating it on first use.
func ensureRole(ctx context.Context, tx *sql.Tx, roles repository.RoleRepository, name string) (*model.Role, error) {
	role := &model.Role{ID: uuid.NewString(), Name: name}
	if err := roles.FindOrCreate(ctx, tx, role); err != nil {
		return nil, err
	}
	return role, nil
}

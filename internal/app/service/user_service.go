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
	"sort"
	"strings"

	"go.uber.org/zap"
)

type UserService struct {
	db          *sql.DB
	userRepo    repository.UserRepository
	roleRepo    repository.RoleRepository
	profileRepo repository.ProfileRepository
	bcryptCost  int
	log         *zap.Logger
}

func NewUserService(db *sql.DB, userRepo repository.UserRepository, roleRepo repository.RoleRepository,
	profileRepo repository.ProfileRepository, bcryptCost int, log *zap.Logger) *UserService {
	return &UserService{
		db:          db,
		userRepo:    userRepo,
		roleRepo:    roleRepo,
		profileRepo: profileRepo,
		bcryptCost:  bcryptCost,
		log:         log.Named("user_service"),
	}
}

type ProfileResponse struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Phone           string `json:"phone"`
	Position        string `json:"position"`
	Notifications   bool   `json:"notifications"`
	NotificationApp bool   `json:"notificationApp"`
}

type UpdateProfileRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Phone           string `json:"phone"`
	Position        string `json:"position"`
	Notifications   *bool  `json:"notifications"`
	NotificationApp *bool  `json:"notificationApp"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *UserService) GetProfile(ctx context.Context, user *model.User) (*ProfileResponse, error) {
	resp := &ProfileResponse{
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
	profile, err := s.profileRepo.FindByUserID(ctx, user.ID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile != nil {
		resp.Phone = profile.Phone
		resp.Position = profile.Position
		resp.Notifications = profile.NotificationEmail
		resp.NotificationApp = profile.NotificationApp
	}
	return resp, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, user *model.User, req UpdateProfileRequest) error {
	if tooLong(req.FirstName, 100) || tooLong(req.LastName, 100) {
		return common.NewValidationError("Imię i nazwisko nie mogą przekraczać 100 znaków")
	}
	if tooLong(req.Phone, 20) {
		return common.NewValidationError("Numer telefonu nie może przekraczać 20 znaków")
	}
	if tooLong(req.Position, 100) {
		return common.NewValidationError("Stanowisko nie może przekraczać 100 znaków")
	}

	profile, err := s.profileRepo.FindByUserID(ctx, user.ID)
	if errors.Is(err, common.ErrNotFound) {
		profile = &model.UserProfile{UserID: user.ID, NotificationEmail: true}
	} else if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	profile.Phone = strings.TrimSpace(req.Phone)
	profile.Position = strings.TrimSpace(req.Position)
	if req.Notifications != nil {
		profile.NotificationEmail = *req.Notifications
	}
	if req.NotificationApp != nil {
		profile.NotificationApp = *req.NotificationApp
	}

	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.userRepo.UpdateNames(ctx, tx, user.ID, strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName)); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		if err := s.profileRepo.Upsert(ctx, tx, profile); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}
		return nil
	})
}

func (s *UserService) ChangePassword(ctx context.Context, user *model.User, req ChangePasswordRequest) error {
	if !security.CheckPasswordHash(req.CurrentPassword, user.HashedPassword) {
		return common.NewValidationError("Aktualne hasło jest nieprawidłowe")
	}
	if !strongPassword(req.NewPassword) {
		return common.NewValidationError("Hasło musi zawierać co najmniej jedną wielką literę i jeden znak specjalny")
	}
	hashed, err := security.HashPassword(req.NewPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.log.Info("password changed", zap.String("username", user.Username))
	return nil
}

// GetRoles returns the role names currently held by username.
func (s *UserService) GetRoles(ctx context.Context, username string) ([]string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewPublicError(common.ErrNotFound, "Użytkownik nie istnieje")
		}
		return nil, err
	}
	return append([]string{}, user.Roles...), nil
}

// SetRoles replaces the roles of username. Unknown role names are created.
// The change applies to tokens already issued to the user.
func (s *UserService) SetRoles(ctx context.Context, username string, roles []string) ([]string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewPublicError(common.ErrNotFound, "Użytkownik nie istnieje")
		}
		return nil, err
	}

	names := make([]string, 0, len(roles))
	seen := make(map[string]bool)
	for _, r := range roles {
		r = strings.ToUpper(strings.TrimSpace(r))
		if r == "" || seen[r] {
			continue
		}
		if !rolePattern.MatchString(r) {
			return nil, common.NewValidationError(fmt.Sprintf("Nieprawidłowa nazwa roli: %s", r))
		}
		seen[r] = true
		names = append(names, r)
	}
	sort.Strings(names)

	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		ids := make([]string, 0, len(names))
		for _, name := range names {
			role, err := ensureRole(ctx, tx, s.roleRepo, name)
			if err != nil {
				return err
			}
			ids = append(ids, role.ID)
		}
		return s.userRepo.ReplaceRoles(ctx, tx, user.ID, ids)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace roles: %w", err)
	}
	s.log.Info("roles replaced", zap.String("username", username), zap.Strings("roles", names))
	return names, nil
}

package handler

import (
	"errors"
	"net/http"
	"rodo_assess/internal/app/service"
	"rodo_assess/internal/common"
	"rodo_assess/internal/common/security"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *service.AuthService
	resolver    UserResolver
	log         *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, resolver UserResolver, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, resolver: resolver, log: log.Named("auth_handler")}
}

// RegisterRoutes mounts the credential endpoints. Login and register are
// wrapped by limit when it is non-nil.
func (h *AuthHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Group(func(public chi.Router) {
		if limit != nil {
			public.Use(limit)
		}
		public.Post("/login", h.login)
		public.Post("/register", h.register)
	})
	r.Get("/verify-token", h.verifyToken)
	r.Post("/logout", h.logout)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		h.log.Error("login failed", zap.Error(err))
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.authService.Register(r.Context(), req)
	if err != nil {
		if common.HTTPStatusFromError(err) == http.StatusInternalServerError {
			h.log.Error("registration failed", zap.Error(err))
		}
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

type verifyTokenResponse struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (h *AuthHandler) verifyToken(w http.ResponseWriter, r *http.Request) {
	user, err := h.resolver.CurrentUser(r.Context())
	if err != nil {
		if errors.Is(err, common.ErrUnknownPrincipal) {
			common.RespondWithJSON(w, http.StatusUnauthorized, verifyTokenResponse{Valid: false, Message: "Invalid token"})
			return
		}
		common.RespondWithDomainError(w, err)
		return
	}
	role := "USER"
	if len(user.Roles) > 0 {
		role = user.Roles[0]
	}
	common.RespondWithJSON(w, http.StatusOK, verifyTokenResponse{
		Valid:    true,
		Username: user.Username,
		Email:    user.Email,
		Role:     role,
	})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	p, ok := security.FromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	if err := h.authService.Logout(r.Context(), p); err != nil {
		h.log.Error("logout failed", zap.String("username", p.Username()), zap.Error(err))
		common.RespondWithDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Wylogowano pomyślnie")
}

package handler

import (
	"net/http"
	"rodo_assess/internal/api/middleware"
	"rodo_assess/internal/app/service"
	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	userService    *service.UserService
	companyService *service.CompanyService
	resolver       UserResolver
}

func NewUserHandler(us *service.UserService, cs *service.CompanyService, resolver UserResolver) *UserHandler {
	return &UserHandler{userService: us, companyService: cs, resolver: resolver}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/profile", h.getProfile)
	r.Put("/profile", h.updateProfile)
	r.Put("/password", h.changePassword)
	r.Get("/company", h.getCompany)
	r.Put("/company", h.updateCompany)

	r.Group(func(op chi.Router) {
		op.Use(middleware.RequireAuthority(model.RoleSuperAdmin))
		op.Get("/{username}/roles", h.getRoles)
		op.Put("/{username}/roles", h.setRoles)
	})
}

func (h *UserHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.resolver)
	if !ok {
		return
	}
	profile, err := h.userService.GetProfile(r.Context(), user)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.resolver)
	if !ok {
		return
	}
	var req service.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.userService.UpdateProfile(r.Context(), user, req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Profil został zaktualizowany")
}

func (h *UserHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.resolver)
	if !ok {
		return
	}
	var req service.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.userService.ChangePassword(r.Context(), user, req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Hasło zostało zmienione")
}

func (h *UserHandler) getCompany(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.resolver)
	if !ok {
		return
	}
	company, err := h.companyService.Get(r.Context(), user.ID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, company)
}

func (h *UserHandler) updateCompany(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.resolver)
	if !ok {
		return
	}
	var req service.CompanyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.companyService.Update(r.Context(), user.ID, req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Dane firmy zostały zaktualizowane")
}

type rolesPayload struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

func (h *UserHandler) getRoles(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	roles, err := h.userService.GetRoles(r.Context(), username)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, rolesPayload{Username: username, Roles: roles})
}

func (h *UserHandler) setRoles(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	var req rolesPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	roles, err := h.userService.SetRoles(r.Context(), username, req.Roles)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, rolesPayload{Username: username, Roles: roles})
}

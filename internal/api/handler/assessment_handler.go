package handler

import (
	"fmt"
	"net/http"
	"rodo_assess/internal/app/service"
	"rodo_assess/internal/common"

	"github.com/go-chi/chi/v5"
)

type AssessmentHandler struct {
	assessmentService *service.AssessmentService
	resolver          UserResolver
}

func NewAssessmentHandler(as *service.AssessmentService, resolver UserResolver) *AssessmentHandler {
	return &AssessmentHandler{assessmentService: as, resolver: resolver}
}

func (h *AssessmentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/summary", h.summary)
	r.Get("/template", h.template)
	r.Get("/{assessmentID}", h.get)
	r.Put("/{assessmentID}", h.update)
	r.Delete("/{assessmentID}", h.delete)
	r.Get("/{assessmentID}/export", h.export)
}

func (h *AssessmentHandler) list(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.resolver)
	if !ok {
		return
	}
	list, err := h.assessmentService.List(r.Context(), user.ID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, list)
}

func (h *AssessmentHandler) summary(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.resolver)
	if !ok {
		return
	}
	stats, err := h.assessmentService.Summary(r.Context(), user.ID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, stats)
}

func (h *AssessmentHandler) template(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r, h.resolver); !ok {
		return
	}
	tpl, err := h.assessmentService.Template()
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, tpl)
}

func (h *AssessmentHandler) get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.resolver)
	if !ok {
		return
	}
	a, err := h.assessmentService.Get(r.Context(), user.ID, chi.URLParam(r, "assessmentID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, a)
}

func (h *AssessmentHandler) create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.resolver)
	if !ok {
		return
	}
	var req service.AssessmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.assessmentService.Create(r.Context(), user.ID, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, map[string]any{
		"id":      a.ID,
		"success": true,
		"message": "Ocena została utworzona",
	})
}

func (h *AssessmentHandler) update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.resolver)
	if !ok {
		return
	}
	var req service.AssessmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.assessmentService.Update(r.Context(), user.ID, chi.URLParam(r, "assessmentID"), req); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Ocena została zaktualizowana")
}

func (h *AssessmentHandler) delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.resolver)
	if !ok {
		return
	}
	if err := h.assessmentService.Delete(r.Context(), user.ID, chi.URLParam(r, "assessmentID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, "Ocena została usunięta")
}

func (h *AssessmentHandler) export(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.resolver)
	if !ok {
		return
	}
	a, fileName, err := h.assessmentService.Export(r.Context(), user.ID, chi.URLParam(r, "assessmentID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	common.RespondWithJSON(w, http.StatusOK, a)
}

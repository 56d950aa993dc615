package handler

import (
	"net/http"
	"rodo_assess/internal/app/service"
	"rodo_assess/internal/common"

	"github.com/go-chi/chi/v5"
)

type ReportHandler struct {
	reportService *service.ReportService
	resolver      UserResolver
}

func NewReportHandler(rs *service.ReportService, resolver UserResolver) *ReportHandler {
	return &ReportHandler{reportService: rs, resolver: resolver}
}

func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.overview)
	r.Get("/areas/{areaID}", h.areaDetails)
	r.Get("/export", h.export)
}

func (h *ReportHandler) overview(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.resolver)
	if !ok {
		return
	}
	q := r.URL.Query()
	out, err := h.reportService.Overview(r.Context(), user.ID, service.ReportFilter{
		DateRange:    q.Get("dateRange"),
		RiskCategory: q.Get("riskCategory"),
		RiskLevel:    q.Get("riskLevel"),
		SortBy:       q.Get("sortBy"),
	})
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, out)
}

func (h *ReportHandler) areaDetails(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.resolver)
	if !ok {
		return
	}
	d, err := h.reportService.AreaDetails(r.Context(), user.ID, chi.URLParam(r, "areaID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, d)
}

func (h *ReportHandler) export(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r, h.resolver); !ok {
		return
	}
	res, err := h.reportService.Export(r.URL.Query().Get("format"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

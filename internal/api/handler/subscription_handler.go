package handler

import (
	"net/http"
	"rodo_assess/internal/app/service"
	"rodo_assess/internal/common"

	"github.com/go-chi/chi/v5"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
	resolver            UserResolver
}

func NewSubscriptionHandler(ss *service.SubscriptionService, resolver UserResolver) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: ss, resolver: resolver}
}

func (h *SubscriptionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.getSubscription)
	r.Get("/plans", h.listPlans)
	r.Put("/plan", h.changePlan)
	r.Put("/cancel", h.cancel)
}

func (h *SubscriptionHandler) getSubscription(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.resolver)
	if !ok {
		return
	}
	sub, err := h.subscriptionService.Get(r.Context(), user.ID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) listPlans(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r, h.resolver); !ok {
		return
	}
	common.RespondWithJSON(w, http.StatusOK, h.subscriptionService.Plans())
}

func (h *SubscriptionHandler) changePlan(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.resolver)
	if !ok {
		return
	}
	var req service.ChangePlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.subscriptionService.ChangePlan(r.Context(), user.ID, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"message":         res.Message,
		"plan":            res.Plan,
		"nextBillingDate": res.NextBillingDate,
	})
}

func (h *SubscriptionHandler) cancel(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.resolver)
	if !ok {
		return
	}
	res, err := h.subscriptionService.Cancel(r.Context(), user.ID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    res.Message,
		"validUntil": res.ValidUntil,
	})
}

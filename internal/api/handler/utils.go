package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
)

const (
	maxBodyBytes      = 1 << 20
	msgUnauthorized   = "Nieautoryzowany dostęp"
	msgInvalidPayload = "Nieprawidłowe dane żądania"
)

// UserResolver returns the stored user behind the authenticated request.
type UserResolver interface {
	CurrentUser(ctx context.Context) (*model.User, error)
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func respondSuccess(w http.ResponseWriter, code int, message string) {
	common.RespondWithJSON(w, code, successResponse{Success: true, Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, msgInvalidPayload)
		return false
	}
	return true
}

// currentUser writes the error response itself and reports false when the
// request has no resolvable user.
func currentUser(w http.ResponseWriter, r *http.Request, resolver UserResolver) (*model.User, bool) {
	user, err := resolver.CurrentUser(r.Context())
	if err != nil {
		if errors.Is(err, common.ErrUnknownPrincipal) {
			common.RespondWithError(w, http.StatusUnauthorized, msgUnauthorized)
		} else {
			common.RespondWithDomainError(w, err)
		}
		return nil, false
	}
	return user, true
}

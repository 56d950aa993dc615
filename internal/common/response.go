package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithDomainError writes err using its mapped status. Unmapped errors
// are reported as a generic internal error so driver details never leak.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	code := HTTPStatusFromError(err)
	if code == http.StatusInternalServerError {
		RespondWithError(w, code, ErrInternalServer.Error())
		return
	}
	RespondWithError(w, code, PublicMessage(err))
}

// PublicMessage returns the client facing text of err. Wrapped errors without
// a PublicError report only the sentinel they map to.
func PublicMessage(err error) string {
	var pe *PublicError
	if errors.As(err, &pe) {
		return pe.Message
	}
	for _, m := range statusByKind {
		if errors.Is(err, m.kind) {
			return m.kind.Error()
		}
	}
	if IsUniqueViolation(err) {
		return ErrConflict.Error()
	}
	return ErrInternalServer.Error()
}

// PublicError pairs a client facing message with the sentinel that decides
// its status code.
type PublicError struct {
	Kind    error
	Message string
}

func NewPublicError(kind error, msg string) error {
	return &PublicError{Kind: kind, Message: msg}
}

func NewValidationError(msg string) error {
	return NewPublicError(ErrValidation, msg)
}

func (e *PublicError) Error() string { return e.Message }

func (e *PublicError) Unwrap() error { return e.Kind }

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

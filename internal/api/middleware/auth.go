package middleware

import (
	"context"
	"errors"
	"net/http"
	"rodo_assess/internal/common"
	"rodo_assess/internal/common/security"
	"rodo_assess/internal/platform/metrics"
	"strings"

	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"
)

// TokenQueryParam is the query parameter consulted when no Authorization header is sent.
const TokenQueryParam = "token"

const (
	msgAuthenticationRequired = "authentication required"
	msgUnauthorized           = "unauthorized"
	msgUnavailable            = "authentication service unavailable"
)

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*security.Principal, error)
}

type GateConfig struct {
	Verifier TokenVerifier
	// PublicPaths are path prefixes served without authentication.
	PublicPaths []string
	// QueryFallback enables reading the token from ?token= for clients
	// that cannot set headers (download links).
	QueryFallback bool
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
}

// Gate authenticates every request outside the public path prefixes. It
// verifies at most one token per request and, on success, stores the
// resulting principal in the request context. Rejected requests never
// reach next.
func Gate(cfg GateConfig) func(http.Handler) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("auth_gate")

	record := func(outcome string) {
		if cfg.Metrics != nil {
			cfg.Metrics.GateOutcomes.WithLabelValues(outcome).Inc()
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsPublicPath(r.URL.Path, cfg.PublicPaths) {
				record(metrics.OutcomePublic)
				next.ServeHTTP(w, r)
				return
			}

			token, source := ExtractToken(r, cfg.QueryFallback)
			if token == "" {
				record(metrics.OutcomeMissing)
				common.RespondWithError(w, http.StatusUnauthorized, msgAuthenticationRequired)
				return
			}

			principal, err := cfg.Verifier.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, common.ErrServiceUnavailable) {
					record(metrics.OutcomeUnavailable)
					log.Error("token verification unavailable", zap.String("path", r.URL.Path), zap.Error(err))
					common.RespondWithError(w, http.StatusServiceUnavailable, msgUnavailable)
					return
				}
				record(metrics.OutcomeInvalid)
				log.Info("token rejected",
					zap.String("path", r.URL.Path),
					zap.String("source", source),
					zap.Error(err))
				common.RespondWithError(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}

			record(metrics.OutcomeAccepted)
			next.ServeHTTP(w, r.WithContext(security.NewContext(r.Context(), principal)))
		})
	}
}

// IsPublicPath reports whether path starts with one of the configured prefixes.
func IsPublicPath(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// ExtractToken returns the bearer token and where it was found ("header" or "query").
func ExtractToken(r *http.Request, queryFallback bool) (string, string) {
	if token := jwtauth.TokenFromHeader(r); token != "" {
		return token, "header"
	}
	if queryFallback {
		if token := strings.TrimSpace(r.URL.Query().Get(TokenQueryParam)); token != "" {
			return token, "query"
		}
	}
	return "", ""
}

// RequireAuthority rejects principals lacking authority with 403.
func RequireAuthority(authority string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := security.FromContext(r.Context())
			if !ok {
				common.RespondWithError(w, http.StatusUnauthorized, msgAuthenticationRequired)
				return
			}
			if !p.HasAuthority(authority) {
				common.RespondWithError(w, http.StatusForbidden, "Insufficient authority")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

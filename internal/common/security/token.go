package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
	"rodo_assess/internal/platform/metrics"

	"github.com/go-chi/jwtauth/v5"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/sony/gobreaker"
)

const DefaultTokenTTL = 10 * time.Hour

// CredentialStore resolves users by username.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// Denylist holds identifiers of revoked tokens until they would have expired anyway.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenService issues and verifies HS256 bearer tokens.
type TokenService struct {
	auth     *jwtauth.JWTAuth
	ttl      time.Duration
	users    CredentialStore
	denylist Denylist
	breaker  *gobreaker.CircuitBreaker
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*TokenService)

// WithDenylist enables server side revocation.
func WithDenylist(d Denylist) Option {
	return func(s *TokenService) { s.denylist = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *TokenService) { s.metrics = m }
}

// WithClock replaces the wall clock used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(secret []byte, ttl time.Duration, users CredentialStore, opts ...Option) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: token signing secret is empty", common.ErrConfiguration)
	}
	if users == nil {
		return nil, fmt.Errorf("%w: credential store is required", common.ErrConfiguration)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	s := &TokenService{
		ttl:   ttl,
		users: users,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.auth = jwtauth.New("HS256", secret, nil,
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return s.now() })),
		jwt.WithRequiredClaim(jwt.IssuerKey),
		jwt.WithRequiredClaim(jwt.IssuedAtKey),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
	)
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "credential-store",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// A missing user is an answer, not a store failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, common.ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(_ string, _ gobreaker.State, to gobreaker.State) {
			if s.metrics != nil {
				s.metrics.CredentialBreakerState.Set(float64(to))
			}
		},
	})
	return s, nil
}

func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for an already authenticated username.
func (s *TokenService) Issue(username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("%w: username is empty", common.ErrBadRequest)
	}
	now := s.now()
	claims := gojwt.MapClaims{
		"iss": username,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
		"jti": uuid.NewString(),
	}
	_, tokenString, err := s.auth.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	if s.metrics != nil {
		s.metrics.TokensIssued.Inc()
	}
	return tokenString, nil
}

// Verify checks signature and expiry, then resolves the issuer against the
// credential store so the returned authorities are the user's current roles.
// Store outages are reported as common.ErrServiceUnavailable; every other
// failure wraps common.ErrInvalidToken.
func (s *TokenService) Verify(ctx context.Context, tokenString string) (*Principal, error) {
	if s.metrics != nil {
		start := time.Now()
		defer func() { s.metrics.VerifyDuration.Observe(time.Since(start).Seconds()) }()
	}

	token, err := jwtauth.VerifyToken(s.auth, tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	username := token.Issuer()
	if username == "" {
		return nil, fmt.Errorf("%w: issuer claim is missing", common.ErrInvalidToken)
	}

	if s.denylist != nil && token.JwtID() != "" {
		revoked, err := s.denylist.IsRevoked(ctx, token.JwtID())
		if err != nil {
			return nil, fmt.Errorf("%w: denylist lookup: %w", common.ErrServiceUnavailable, err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: token has been revoked", common.ErrInvalidToken)
		}
	}

	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}

	authorities := make([]string, len(user.Roles))
	copy(authorities, user.Roles)

	return &Principal{
		User:        user,
		Authorities: authorities,
		TokenID:     token.JwtID(),
		IssuedAt:    token.IssuedAt(),
		ExpiresAt:   token.Expiration(),
	}, nil
}

func (s *TokenService) lookup(ctx context.Context, username string) (*model.User, error) {
	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.users.FindByUsername(ctx, username)
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", common.ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: credential store: %w", common.ErrServiceUnavailable, err)
	}
	user, ok := res.(*model.User)
	if !ok || user == nil {
		return nil, fmt.Errorf("%w: user not found", common.ErrInvalidToken)
	}
	return user, nil
}

// Revoke denylists the principal's token for the rest of its lifetime.
// Without a denylist logout is client side only and Revoke is a no-op.
func (s *TokenService) Revoke(ctx context.Context, p *Principal) error {
	if s.denylist == nil || p == nil || p.TokenID == "" {
		return nil
	}
	remaining := p.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	if err := s.denylist.Revoke(ctx, p.TokenID, remaining); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if s.metrics != nil {
		s.metrics.TokensRevoked.Inc()
	}
	return nil
}

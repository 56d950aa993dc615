package security

import (
	"context"
	"time"

	"rodo_assess/internal/domain/model"
)

// Principal is the authenticated caller of one request.
type Principal struct {
	User        *model.User
	Authorities []string
	TokenID     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Username returns the plain username of the authenticated user.
func (p *Principal) Username() string {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.Username
}

func (p *Principal) HasAuthority(authority string) bool {
	if p == nil {
		return false
	}
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

type principalKey struct{}

// NewContext returns a copy of ctx carrying p.
func NewContext(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by the authentication gate, if any.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

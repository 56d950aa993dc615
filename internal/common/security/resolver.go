package security

import (
	"context"
	"errors"
	"fmt"

	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
)

// IdentityResolver gives handlers the full record of the authenticated user.
type IdentityResolver struct {
	users CredentialStore
}

func NewIdentityResolver(users CredentialStore) *IdentityResolver {
	return &IdentityResolver{users: users}
}

// CurrentUser re-reads the caller from the credential store. It returns
// common.ErrUnknownPrincipal when the request carries no principal or the
// user no longer exists.
func (r *IdentityResolver) CurrentUser(ctx context.Context) (*model.User, error) {
	p, ok := FromContext(ctx)
	if !ok || p.Username() == "" {
		return nil, common.ErrUnknownPrincipal
	}
	user, err := r.users.FindByUsername(ctx, p.Username())
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", common.ErrUnknownPrincipal, p.Username())
		}
		return nil, fmt.Errorf("IdentityResolver.CurrentUser: %w", err)
	}
	return user, nil
}

package auth

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
)

// RequireAuthenticated returns the caller's identity or
// common.ErrorUnauthenticated when the request is anonymous.
func RequireAuthenticated(ctx context.Context) (Identity, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return Identity{}, common.ErrorUnauthenticated
	}
	return id, nil
}

// RequireSelfOrRole allows the caller to act on targetID when it is their own
// account or when they hold role.
func RequireSelfOrRole(id Identity, targetID, role string) error {
	if id.ID == targetID || id.Role == role {
		return nil
	}
	return common.ErrorForbidden
}

// RequireRole allows only callers holding role.
func RequireRole(id Identity, role string) error {
	if id.Role != role {
		return common.ErrorForbidden
	}
	return nil
}

package auth

import (
	"context"
	"strings"
)

// Identity is the caller resolved from a token.
type Identity struct {
	ID    string
	Email string
	Phone string
	Role  string
}

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored in ctx, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.ID == "" {
		return Identity{}, false
	}
	return id, true
}

// TokenParser turns a bearer token into the identity it carries.
type TokenParser interface {
	Parse(token string) (Identity, error)
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively; a bare token is returned as is.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

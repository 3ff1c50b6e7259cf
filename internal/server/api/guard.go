package api

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

// Guard decides whether the caller in ctx may run an operation with args.
// It runs after the arguments are decoded and before they are validated.
type Guard func(ctx context.Context, args any) error

// Targeted is implemented by arguments that name the account acted upon.
type Targeted interface {
	TargetID() string
}

// Anyone admits every caller, anonymous ones included.
func Anyone(context.Context, any) error { return nil }

// Authenticated admits any caller carrying a valid token.
func Authenticated(ctx context.Context, _ any) error {
	_, err := auth.RequireAuthenticated(ctx)
	return err
}

// SelfOrAdmin admits the owner of the targeted account and admins.
func SelfOrAdmin(ctx context.Context, args any) error {
	id, err := auth.RequireAuthenticated(ctx)
	if err != nil {
		return err
	}
	var target string
	if t, ok := args.(Targeted); ok {
		target = t.TargetID()
	}
	return auth.RequireSelfOrRole(id, target, models.RoleAdmin)
}

// AdminOnly admits admins.
func AdminOnly(ctx context.Context, _ any) error {
	id, err := auth.RequireAuthenticated(ctx)
	if err != nil {
		return err
	}
	return auth.RequireRole(id, models.RoleAdmin)
}

// Privileged is implemented by arguments that may set admin-only fields.
type Privileged interface {
	Privileged() bool
}

// AdminForPrivileged admits anyone unless args set admin-only fields, which
// only admins may do.
func AdminForPrivileged(ctx context.Context, args any) error {
	if p, ok := args.(Privileged); ok && p.Privileged() {
		return AdminOnly(ctx, args)
	}
	return nil
}

// All admits the caller only when every guard does. Guards run in order and
// the first refusal wins.
func All(guards ...Guard) Guard {
	return func(ctx context.Context, args any) error {
		for _, g := range guards {
			if err := g(ctx, args); err != nil {
				return err
			}
		}
		return nil
	}
}

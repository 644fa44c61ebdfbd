package middleware

import (
	"context"

	"equiprent/internal/app/actor"
	"equiprent/internal/app/commands"
	"equiprent/internal/app/queries"
	domainuser "equiprent/internal/domain/user"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// RoleRestricted messages declare which roles may send them. Admin always passes.
type RoleRestricted interface {
	AllowedRoles() []domainuser.Role
}

// RoleAuthorizer checks RoleRestricted messages against the actor in context.
// Unrestricted messages pass without an actor.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(ctx context.Context, message any) error {
	restricted, ok := message.(RoleRestricted)
	if !ok {
		return nil
	}
	who, ok := actor.FromContext(ctx)
	if !ok {
		return actor.ErrUnauthenticated
	}
	if who.IsAdmin() {
		return nil
	}
	for _, role := range restricted.AllowedRoles() {
		if who.Has(role) {
			return nil
		}
	}
	return actor.ErrForbidden
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}

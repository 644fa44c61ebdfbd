package actor

import (
	"context"
	"errors"

	domainuser "equiprent/internal/domain/user"
)

var (
	ErrUnauthenticated = errors.New("actor: authentication required")
	ErrForbidden       = errors.New("actor: insufficient role")
)

// Actor is the authenticated caller a command or query runs on behalf of.
type Actor struct {
	UserID string
	Roles  []domainuser.Role
}

func (a Actor) Has(role domainuser.Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a Actor) IsAdmin() bool { return a.Has(domainuser.RoleAdmin) }

// System is used by background jobs.
var System = Actor{UserID: "system", Roles: []domainuser.Role{domainuser.RoleAdmin}}

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok && a.UserID != ""
}

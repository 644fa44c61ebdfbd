package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"equiprent/internal/app/actor"
	"equiprent/internal/app/services/auth"
	domainauth "equiprent/internal/domain/auth"
	domainuser "equiprent/internal/domain/user"
)

const (
	principalContextKey = "equiprent.principal"
	tokenContextKey     = "equiprent.token"
)

// TokenResolver maps a bearer token to its caller.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (actor.Actor, *domainuser.User, error)
}

type AuthMiddleware struct {
	Service TokenResolver
	Logger  *slog.Logger
}

// Handle attaches the caller to the request context. Anonymous requests pass through;
// handlers and the command pipeline decide what needs an actor.
func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	who, user, err := m.Service.Resolve(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrSessionNotFound) && m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	c.Request = c.Request.WithContext(actor.WithActor(c.Request.Context(), who))
	c.Set(principalContextKey, user)
	c.Set(tokenContextKey, token)
	c.Next()
}

func currentUser(c *gin.Context) (*domainuser.User, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return nil, false
	}
	u, ok := val.(*domainuser.User)
	return u, ok && u != nil
}

// requireActor answers 401 when the request is anonymous.
func requireActor(c *gin.Context) (actor.Actor, bool) {
	who, ok := actor.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return actor.Actor{}, false
	}
	return who, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

var _ TokenResolver = (*auth.Service)(nil)

package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"equiprent/internal/app/dto"
	authsvc "equiprent/internal/app/services/auth"
)

type AuthHandler struct {
	Service *authsvc.Service
	Logger  *slog.Logger
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type signupRequest struct {
	credentialsRequest
	Name     string `json:"name"`
	AsVendor bool   `json:"as_vendor"`
}

func (h AuthHandler) Register(c *gin.Context) {
	var req signupRequest
	if !h.bind(c, &req) {
		return
	}
	session, err := h.Service.Register(c.Request.Context(), authsvc.RegisterParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		AsVendor: req.AsVendor,
	})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewAuthResponse(session.User, session.Token))
}

func (h AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if !h.bind(c, &req) {
		return
	}
	session, err := h.Service.Login(c.Request.Context(), authsvc.LoginParams{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAuthResponse(session.User, session.Token))
}

// Logout revokes the bearer token; unknown tokens are not an error.
func (h AuthHandler) Logout(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auth service unavailable"})
		return
	}
	token := c.GetString(tokenContextKey)
	if token == "" {
		token = extractBearerToken(c.GetHeader("Authorization"))
	}
	if err := h.Service.Logout(c.Request.Context(), token); err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AuthHandler) Me(c *gin.Context) {
	if user, ok := currentUser(c); ok {
		c.JSON(http.StatusOK, dto.MapUserProfile(user))
		return
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
}

func (h AuthHandler) bind(c *gin.Context, req any) bool {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auth service unavailable"})
		return false
	}
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}
	return true
}

var _ AuthHTTP = AuthHandler{}

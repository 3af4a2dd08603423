package handlers

import (
	"github.com/gin-gonic/gin"

	"stregsystem/internal/core/apperror"
	"stregsystem/internal/domain/auth"
	"stregsystem/internal/infrastructure/http/v1/dto"
)

// AuthHandler serves admin authentication endpoints.
type AuthHandler struct {
	*BaseHandler
	service *auth.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *BaseHandler, service *auth.Service) *AuthHandler {
	return &AuthHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers auth endpoints on the public and protected
// groups.
func (h *AuthHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.POST("/login", h.Login)
	public.POST("/refresh", h.Refresh)
	protected.POST("/logout", h.Logout)
	protected.POST("/change-password", h.ChangePassword)
}

// Login issues a token pair for valid credentials.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}
	pair, _, err := h.service.Login(c.Request.Context(), auth.Credentials{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, pair)
}

// Refresh rotates a refresh token into a new pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !h.BindJSON(c, &req) {
		return
	}
	pair, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, pair)
}

// Logout revokes all of the operator's refresh tokens.
func (h *AuthHandler) Logout(c *gin.Context) {
	operator := auth.OperatorFrom(c.Request.Context())
	if operator == nil {
		h.Error(c, apperror.NewUnauthorized("authentication required"))
		return
	}
	if err := h.service.Logout(c.Request.Context(), operator.UserID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// ChangePassword rotates the operator's password and revokes sessions.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	operator := auth.OperatorFrom(c.Request.Context())
	if operator == nil {
		h.Error(c, apperror.NewUnauthorized("authentication required"))
		return
	}
	var req dto.ChangePasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), operator.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

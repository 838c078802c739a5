package handler

import (
	"context"
	"errors"
	"net/http"

	"wallet_tracker/internal/model"
	"wallet_tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	service service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(s service.AuthService) *AuthHandler {
	return &AuthHandler{service: s}
}

// Registration enforces a minimum length; login accepts whatever was stored.
type registerRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type loginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authFunc func(ctx context.Context, phone, password string) (*model.User, string, error)

// issue runs an auth call and answers with the caller's identity and token.
func issue(c *gin.Context, call authFunc, phone, password string, status int, message, fallback string) {
	user, token, err := call(c.Request.Context(), phone, password)
	switch {
	case errors.Is(err, service.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	case err != nil:
		respondError(c, err, fallback)
		return
	}

	c.JSON(status, gin.H{
		"message": message,
		"user_id": user.ID,
		"phone":   user.Phone,
		"role":    user.Role,
		"token":   token,
	})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	issue(c, h.service.Register, req.Phone, req.Password, http.StatusCreated, "User registered successfully", "Failed to register user")
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	issue(c, h.service.Login, req.Phone, req.Password, http.StatusOK, "Login successful", "Failed to login")
}

// RegisterAuthRoutes registers auth routes
func (h *AuthHandler) RegisterAuthRoutes(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}
}

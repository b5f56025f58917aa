package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kleurijkwonen/inspections/config"
	"github.com/kleurijkwonen/inspections/middleware"
	"github.com/kleurijkwonen/inspections/model"
	"github.com/kleurijkwonen/inspections/service"
)

type AuthHandler struct {
	auth   *service.AuthService
	store  *service.Store
	config *config.AuthConfig
}

func NewAuthHandler(auth *service.AuthService, store *service.Store, cfg *config.AuthConfig) *AuthHandler {
	return &AuthHandler{auth: auth, store: store, config: cfg}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := h.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "")
		return
	}

	h.issueToken(c, http.StatusOK, user)
}

// Register creates a tenant or employee account and logs it in
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "")
		return
	}

	h.issueToken(c, http.StatusCreated, user)
}

func (h *AuthHandler) issueToken(c *gin.Context, status int, user *model.User) {
	token, expiresAt, err := middleware.GenerateToken(user.ID, user.Email, user.Role, h.config)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(status, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		User:      user,
	})
}

// GetCurrentUser returns the current user info
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.store.GetUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "User not found")
		return
	}

	c.JSON(http.StatusOK, user)
}

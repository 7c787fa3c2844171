package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/podium/pkg/podium/mail"
	"github.com/mikepea/podium/pkg/podium/models"
	"github.com/mikepea/podium/pkg/podium/storage"
	"gorm.io/gorm"
)

// Options wires the auth handler to its collaborators
type Options struct {
	Sessions SessionStore
	Mailer   mail.Mailer
	Uploader storage.Uploader
	// ResetURL is the page that receives ?token=... from reset emails
	ResetURL string
}

// Handler handles authentication and profile requests
type Handler struct {
	db       *gorm.DB
	sessions SessionStore
	mailer   mail.Mailer
	uploader storage.Uploader
	resetURL string
}

// NewHandler creates a new auth handler. Missing collaborators fall back to
// in-memory sessions and a logging mailer.
func NewHandler(db *gorm.DB, opts Options) *Handler {
	h := &Handler{
		db:       db,
		sessions: opts.Sessions,
		mailer:   opts.Mailer,
		uploader: opts.Uploader,
		resetURL: opts.ResetURL,
	}
	if h.sessions == nil {
		h.sessions = NewMemorySessionStore()
	}
	if h.mailer == nil {
		h.mailer = mail.LogMailer{}
	}
	if h.resetURL == "" {
		h.resetURL = "podium://reset-password"
	}
	return h
}

// RegisterRequest represents the sign-up request body
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required,max=50"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest exchanges a refresh token for a new token pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	User         UserResponse `json:"user"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	SystemRole  string `json:"system_role"`
}

// ToUserResponse converts a user model into its API shape
func ToUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		SystemRole:  string(user.SystemRole),
	}
}

// issueTokens creates an access token and a stored refresh token for user
func (h *Handler) issueTokens(c *gin.Context, user models.User) (AuthResponse, error) {
	token, err := GenerateToken(user.ID, user.Email, string(user.SystemRole))
	if err != nil {
		return AuthResponse{}, err
	}

	refresh := NewRefreshToken()
	if err := h.sessions.Save(c.Request.Context(), refresh, user.ID, RefreshTokenTTL); err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		Token:        token,
		RefreshToken: refresh,
		ExpiresIn:    int64(getTokenDuration().Seconds()),
		User:         ToUserResponse(user),
	}, nil
}

// Register handles user sign-up
// @Summary Register a new user
// @Description Create a new account and receive a token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Email already registered"
// @Router /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Display name is required"})
		return
	}

	// Check if email already exists
	var existingUser models.User
	if err := h.db.Where("email = ?", email).First(&existingUser).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered", "code": "email_taken"})
		return
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	user := models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		DisplayName:  displayName,
		SystemRole:   models.SystemRoleUser,
	}
	if err := h.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered", "code": "email_taken"})
			return
		}
		log.Printf("Failed to create user %s: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	resp, err := h.issueTokens(c, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login handles user login
// @Summary Login
// @Description Authenticate with email and password to receive a token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	resp, err := h.issueTokens(c, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Refresh rotates a refresh token
// @Summary Refresh session
// @Description Exchange a refresh token for a new token pair. The old refresh token stops working.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} map[string]string "Invalid refresh token"
// @Router /auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := h.sessions.Consume(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			log.Printf("Failed to read session: %v", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	resp, err := h.issueTokens(c, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// LogoutRequest optionally names the refresh token to revoke
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout revokes the caller's refresh token
// @Summary Logout
// @Description Revoke a refresh token. Access tokens expire on their own.
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string "Logged out successfully"
// @Router /auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	var req LogoutRequest
	// Body is optional
	_ = c.ShouldBindJSON(&req)

	if req.RefreshToken != "" {
		if err := h.sessions.Revoke(c.Request.Context(), req.RefreshToken); err != nil {
			log.Printf("Failed to revoke session: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// RegisterRoutes registers auth routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
	rg.POST("/refresh", h.Refresh)
	rg.POST("/logout", h.Logout)
	rg.POST("/password/forgot", h.ForgotPassword)
	rg.POST("/password/reset", h.ResetPassword)

	authed := rg.Group("", AuthMiddleware())
	authed.GET("/me", h.Me)
	authed.PUT("/me", h.UpdateProfile)
	authed.PUT("/password", h.ChangePassword)
	authed.POST("/avatar", h.UploadAvatar)
}

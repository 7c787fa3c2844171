package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/podium/pkg/podium/models"
	"github.com/mikepea/podium/pkg/podium/storage"
)

// UpdateProfileRequest represents a profile update. Nil fields are left alone.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=50"`
	AvatarURL   *string `json:"avatar_url" binding:"omitempty,url"`
}

// ChangePasswordRequest changes the password of a signed-in user
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// AvatarRequest carries a base64 image, optionally as a data URI
type AvatarRequest struct {
	Image string `json:"image" binding:"required"`
}

// Me returns the current authenticated user
// @Summary Get current user
// @Tags auth
// @Produce json
// @Success 200 {object} UserResponse
// @Security BearerAuth
// @Router /auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	userID, exists := GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, ToUserResponse(user))
}

// UpdateProfile updates the display name or avatar of the current user
// @Summary Update profile
// @Tags auth
// @Accept json
// @Produce json
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} UserResponse
// @Security BearerAuth
// @Router /auth/me [put]
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, _ := GetUserID(c)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Display name is required"})
			return
		}
		user.DisplayName = name
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}

	if err := h.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, ToUserResponse(user))
}

// ChangePassword updates the password after checking the current one
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ChangePasswordRequest true "Passwords"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /auth/password [put]
func (h *Handler) ChangePassword(c *gin.Context) {
	userID, _ := GetUserID(c)

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if !CheckPassword(req.CurrentPassword, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
		return
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}
	if err := h.db.Model(&user).Update("password_hash", hash).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// UploadAvatar stores a base64 image and saves its URL on the profile
// @Summary Upload avatar
// @Tags auth
// @Accept json
// @Produce json
// @Param request body AvatarRequest true "Base64 image"
// @Success 200 {object} UserResponse
// @Security BearerAuth
// @Router /auth/avatar [post]
func (h *Handler) UploadAvatar(c *gin.Context) {
	userID, _ := GetUserID(c)

	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Uploads are not configured"})
		return
	}

	var req AvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, contentType, err := storage.DecodeBase64Image(req.Image)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, storage.ErrUploadTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	url, err := h.uploader.Upload(c.Request.Context(), storage.ObjectName("avatars", contentType), data, contentType)
	if err != nil {
		log.Printf("Avatar upload failed for user %d: %v", userID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to upload avatar"})
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err := h.db.Model(&user).Update("avatar_url", url).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	user.AvatarURL = url

	c.JSON(http.StatusOK, ToUserResponse(user))
}

package admin

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/podium/pkg/podium/auth"
	"github.com/mikepea/podium/pkg/podium/models"
	"gorm.io/gorm"
)

// Handler handles system administration requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// UserResponse represents user data in admin responses
type UserResponse struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	SystemRole  string `json:"system_role"`
	CreatedAt   string `json:"created_at"`
	GroupCount  int64  `json:"group_count"`
	VoteCount   int64  `json:"vote_count"`
}

// UpdateUserRequest represents the request to update a user
type UpdateUserRequest struct {
	DisplayName *string `json:"display_name"`
	SystemRole  *string `json:"system_role"`
}

// StatsResponse represents system statistics
type StatsResponse struct {
	TotalUsers      int64 `json:"total_users"`
	AdminUsers      int64 `json:"admin_users"`
	TotalGroups     int64 `json:"total_groups"`
	ActiveGroups    int64 `json:"active_groups"`
	TotalAwards     int64 `json:"total_awards"`
	ActiveVotings   int64 `json:"active_votings"`
	CompletedAwards int64 `json:"completed_awards"`
	TotalVotes      int64 `json:"total_votes"`
}

func (h *Handler) toUserResponse(user models.User) UserResponse {
	var groupCount, voteCount int64
	h.db.Model(&models.GroupMembership{}).Where("user_id = ? AND is_active = ?", user.ID, true).Count(&groupCount)
	h.db.Model(&models.Vote{}).Where("voter_id = ?", user.ID).Count(&voteCount)

	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		SystemRole:  string(user.SystemRole),
		CreatedAt:   user.CreatedAt.UTC().Format(time.RFC3339),
		GroupCount:  groupCount,
		VoteCount:   voteCount,
	}
}

// ListUsers returns all users (admin only)
// @Summary List users
// @Tags admin
// @Produce json
// @Param q query string false "Search email or display name"
// @Param role query string false "Filter by system role"
// @Success 200 {array} UserResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	var users []models.User

	query := h.db.Order("created_at DESC")

	if search := c.Query("q"); search != "" {
		query = query.Where("email LIKE ? OR display_name LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("system_role = ?", role)
	}

	if err := query.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = h.toUserResponse(user)
	}

	c.JSON(http.StatusOK, responses)
}

// GetUser returns a single user by ID (admin only)
// @Summary Get user
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Security BearerAuth
// @Router /admin/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, h.toUserResponse(user))
}

// UpdateUser updates a user's display name or system role (admin only)
// @Summary Update user
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "Fields to change"
// @Success 200 {object} UserResponse
// @Security BearerAuth
// @Router /admin/users/{id} [put]
func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Prevent admin from demoting themselves
	currentUserID, _ := auth.GetUserID(c)
	if uint(id) == currentUserID && req.SystemRole != nil && *req.SystemRole != string(models.SystemRoleAdmin) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot demote yourself"})
		return
	}

	updates := make(map[string]interface{})
	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.SystemRole != nil {
		role := models.SystemRole(*req.SystemRole)
		if role != models.SystemRoleAdmin && role != models.SystemRoleUser {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid system role"})
			return
		}
		updates["system_role"] = role
	}

	if len(updates) > 0 {
		if err := h.db.Model(&user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
	}

	h.db.First(&user, id)
	c.JSON(http.StatusOK, h.toUserResponse(user))
}

// DeleteUser soft-deletes a user and deactivates their memberships (admin only).
// Users who still own a group must hand it over first.
// @Summary Delete user
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string
// @Failure 409 {object} map[string]string "User owns a group"
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	// Prevent admin from deleting themselves
	currentUserID, _ := auth.GetUserID(c)
	if uint(id) == currentUserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete yourself"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var owned int64
	h.db.Model(&models.GroupMembership{}).
		Joins("JOIN groups ON groups.id = group_memberships.group_id").
		Where("group_memberships.user_id = ? AND group_memberships.role = ? AND groups.status <> ?", user.ID, models.GroupRoleOwner, models.GroupStatusDeleted).
		Count(&owned)
	if owned > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "User still owns groups; transfer them first", "code": "owns_groups"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.GroupMembership{}).Where("user_id = ?", user.ID).Updates(map[string]interface{}{
			"is_active": false,
			"left_at":   time.Now(),
		}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		log.Printf("Failed to delete user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// GetStats returns system-wide statistics (admin only)
// @Summary System statistics
// @Tags admin
// @Produce json
// @Success 200 {object} StatsResponse
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	var stats StatsResponse

	h.db.Model(&models.User{}).Count(&stats.TotalUsers)
	h.db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin).Count(&stats.AdminUsers)
	h.db.Model(&models.Group{}).Where("status <> ?", models.GroupStatusDeleted).Count(&stats.TotalGroups)
	h.db.Model(&models.Group{}).Where("status = ?", models.GroupStatusActive).Count(&stats.ActiveGroups)
	h.db.Model(&models.Award{}).Count(&stats.TotalAwards)
	h.db.Model(&models.Award{}).Where("status = ?", models.AwardStatusVoting).Count(&stats.ActiveVotings)
	h.db.Model(&models.Award{}).Where("status = ?", models.AwardStatusCompleted).Count(&stats.CompletedAwards)
	h.db.Model(&models.Vote{}).Count(&stats.TotalVotes)

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers admin routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.GetStats)
	rg.GET("/users", h.ListUsers)
	rg.GET("/users/:id", h.GetUser)
	rg.PUT("/users/:id", h.UpdateUser)
	rg.DELETE("/users/:id", h.DeleteUser)
}

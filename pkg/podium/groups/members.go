package groups

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/podium/pkg/podium/auth"
	"github.com/mikepea/podium/pkg/podium/models"
	"github.com/mikepea/podium/pkg/podium/policy"
	"gorm.io/gorm"
)

// MemberResponse represents a group member in API responses
type MemberResponse struct {
	UserID          uint      `json:"user_id"`
	Email           string    `json:"email"`
	DisplayName     string    `json:"display_name"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	Role            string    `json:"role"`
	PendingApproval bool      `json:"pending_approval,omitempty"`
	JoinedAt        time.Time `json:"joined_at"`
}

// UpdateMemberRequest changes a member's role
type UpdateMemberRequest struct {
	Role string `json:"role" binding:"required,oneof=admin member"`
}

// TransferOwnershipRequest hands the group to another member
type TransferOwnershipRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

func toMemberResponse(m models.GroupMembership) MemberResponse {
	return MemberResponse{
		UserID:          m.UserID,
		Email:           m.User.Email,
		DisplayName:     m.User.DisplayName,
		AvatarURL:       m.User.AvatarURL,
		Role:            string(m.Role),
		PendingApproval: m.PendingApproval,
		JoinedAt:        m.JoinedAt,
	}
}

// targetMembership loads the membership named by :userId
func (h *Handler) targetMembership(c *gin.Context, groupID uint, pending bool) (models.GroupMembership, bool) {
	userID, ok := parseID(c, "userId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return models.GroupMembership{}, false
	}

	var target models.GroupMembership
	err := h.db.Preload("User").
		Where("group_id = ? AND user_id = ? AND is_active = ? AND pending_approval = ?", groupID, userID, !pending, pending).
		First(&target).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return models.GroupMembership{}, false
	}
	return target, true
}

// ListMembers returns active members of a group. Admins also see members
// waiting for approval.
// @Summary List group members
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {array} MemberResponse
// @Security BearerAuth
// @Router /groups/{id}/members [get]
func (h *Handler) ListMembers(c *gin.Context) {
	membership, group, ok := h.membershipOrAbort(c)
	if !ok {
		return
	}

	query := h.db.Preload("User").Where("group_id = ?", group.ID)
	if policy.IsAdmin(membership.Role) {
		query = query.Where("((is_active = ? AND pending_approval = ?) OR pending_approval = ?)", true, false, true)
	} else {
		query = query.Where("is_active = ? AND pending_approval = ?", true, false)
	}

	var members []models.GroupMembership
	if err := query.Order("joined_at ASC").Find(&members).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}

	response := make([]MemberResponse, len(members))
	for i, m := range members {
		response[i] = toMemberResponse(m)
	}

	c.JSON(http.StatusOK, response)
}

// UpdateMember changes the role of a member
// @Summary Update member role
// @Tags groups
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param userId path int true "User ID"
// @Param request body UpdateMemberRequest true "New role"
// @Success 200 {object} MemberResponse
// @Failure 403 {object} map[string]string "Not allowed to manage this member"
// @Security BearerAuth
// @Router /groups/{id}/members/{userId} [put]
func (h *Handler) UpdateMember(c *gin.Context) {
	membership, group, ok := h.membershipOrAbort(c)
	if !ok {
		return
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role := models.GroupRole(req.Role)
	if !policy.AssignableRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Role must be admin or member"})
		return
	}

	target, ok := h.targetMembership(c, group.ID, false)
	if !ok {
		return
	}

	if !policy.CanManage(membership.Role, target.Role, membership.UserID == target.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You cannot manage this member"})
		return
	}

	if err := h.db.Model(&target).Update("role", role).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update member"})
		return
	}
	target.Role = role

	c.JSON(http.StatusOK, toMemberResponse(target))
}

// RemoveMember deactivates a membership. The row is kept so the user can rejoin.
// @Summary Remove member
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Param userId path int true "User ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string "Not allowed to manage this member"
// @Security BearerAuth
// @Router /groups/{id}/members/{userId} [delete]
func (h *Handler) RemoveMember(c *gin.Context) {
	membership, group, ok := h.membershipOrAbort(c)
	if !ok {
		return
	}

	target, ok := h.targetMembership(c, group.ID, false)
	if !ok {
		return
	}

	if !policy.CanManage(membership.Role, target.Role, membership.UserID == target.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You cannot manage this member"})
		return
	}

	if err := deactivate(h.db, &target); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// ApproveMember activates a pending membership (admin only)
// @Summary Approve pending member
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Param userId path int true "User ID"
// @Success 200 {object} MemberResponse
// @Failure 409 {object} map[string]string "Group is full"
// @Security BearerAuth
// @Router /groups/{id}/members/{userId}/approve [post]
func (h *Handler) ApproveMember(c *gin.Context) {
	membership, group, ok := h.membershipOrAbort(c)
	if !ok {
		return
	}

	if !policy.IsAdmin(membership.Role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	target, ok := h.targetMembership(c, group.ID, true)
	if !ok {
		return
	}

	settings := group.Settings.Data()
	if settings.MaxMembers > 0 && CountActiveMembers(h.db, group.ID) >= int64(settings.MaxMembers) {
		c.JSON(http.StatusConflict, gin.H{"error": "Group is full", "code": "group_full"})
		return
	}

	now := time.Now()
	if err := h.db.Model(&target).Updates(map[string]interface{}{
		"is_active":        true,
		"pending_approval": false,
		"joined_at":        now,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve member"})
		return
	}
	target.IsActive = true
	target.PendingApproval = false
	target.JoinedAt = now

	c.JSON(http.StatusOK, toMemberResponse(target))
}

// Leave removes the caller from a group. The owner must transfer first.
// @Summary Leave group
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Owner must transfer ownership first"
// @Security BearerAuth
// @Router /groups/{id}/leave [post]
func (h *Handler) Leave(c *gin.Context) {
	membership, _, ok := h.membershipOrAbort(c)
	if !ok {
		return
	}

	if membership.Role == models.GroupRoleOwner {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Transfer ownership before leaving the group", "code": "owner_cannot_leave"})
		return
	}

	if err := deactivate(h.db, &membership); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to leave group"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Left group"})
}

// TransferOwnership makes another member the owner; the old owner becomes admin
// @Summary Transfer ownership
// @Tags groups
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param request body TransferOwnershipRequest true "New owner"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string "Owner access required"
// @Security BearerAuth
// @Router /groups/{id}/transfer [post]
func (h *Handler) TransferOwnership(c *gin.Context) {
	membership, group, ok := h.membershipOrAbort(c)
	if !ok {
		return
	}

	if membership.Role != models.GroupRoleOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can transfer ownership"})
		return
	}

	var req TransferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == membership.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You already own this group"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		var target models.GroupMembership
		if err := tx.Where("group_id = ? AND user_id = ? AND is_active = ? AND pending_approval = ?", group.ID, req.UserID, true, false).
			First(&target).Error; err != nil {
			return err
		}
		if err := tx.Model(&target).Update("role", models.GroupRoleOwner).Error; err != nil {
			return err
		}
		return tx.Model(&membership).Update("role", models.GroupRoleAdmin).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
			return
		}
		log.Printf("Failed to transfer ownership of group %d: %v", group.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to transfer ownership"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Ownership transferred"})
}

func deactivate(db *gorm.DB, m *models.GroupMembership) error {
	now := time.Now()
	return db.Model(m).Updates(map[string]interface{}{
		"is_active": false,
		"left_at":   now,
	}).Error
}

// RegisterMemberRoutes registers member management routes
func (h *Handler) RegisterMemberRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/members", h.ListMembers)
	rg.PUT("/:id/members/:userId", h.UpdateMember)
	rg.DELETE("/:id/members/:userId", h.RemoveMember)
	rg.POST("/:id/members/:userId/approve", h.ApproveMember)
}

// currentUser returns the authenticated user's id
func currentUser(c *gin.Context) uint {
	id, _ := auth.GetUserID(c)
	return id
}

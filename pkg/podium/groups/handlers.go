package groups

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/podium/pkg/podium/auth"
	"github.com/mikepea/podium/pkg/podium/invite"
	"github.com/mikepea/podium/pkg/podium/models"
	"github.com/mikepea/podium/pkg/podium/policy"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Handler handles group-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new groups handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateGroupRequest represents the request to create a group
type CreateGroupRequest struct {
	Name        string                `json:"name" binding:"required,max=100"`
	Description string                `json:"description" binding:"max=500"`
	Icon        string                `json:"icon"`
	Settings    *models.GroupSettings `json:"settings"`
}

// UpdateGroupRequest represents the request to update a group.
// Nil fields are left alone. When Version is set the update only applies if
// the group has not changed since that version was read.
type UpdateGroupRequest struct {
	Name        *string               `json:"name" binding:"omitempty,max=100"`
	Description *string               `json:"description" binding:"omitempty,max=500"`
	Icon        *string               `json:"icon"`
	Status      *string               `json:"status" binding:"omitempty,oneof=active archived"`
	Settings    *models.GroupSettings `json:"settings"`
	Version     *uint                 `json:"version"`
}

// GroupResponse represents a group in API responses
type GroupResponse struct {
	ID          uint                 `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Icon        string               `json:"icon"`
	Status      string               `json:"status"`
	InviteCode  string               `json:"invite_code,omitempty"`
	Settings    models.GroupSettings `json:"settings"`
	Role        string               `json:"role,omitempty"` // Caller's role in this group
	MemberCount int                  `json:"member_count"`
	Version     uint                 `json:"version"`
	CreatedAt   time.Time            `json:"created_at"`
}

// LoadActiveMembership returns the caller's active membership and the group,
// or gorm.ErrRecordNotFound when the group is deleted or the caller is not an
// active member.
func LoadActiveMembership(db *gorm.DB, userID, groupID uint) (models.GroupMembership, models.Group, error) {
	var group models.Group
	if err := db.Where("id = ? AND status <> ?", groupID, models.GroupStatusDeleted).First(&group).Error; err != nil {
		return models.GroupMembership{}, models.Group{}, err
	}

	var membership models.GroupMembership
	if err := db.Where("user_id = ? AND group_id = ? AND is_active = ? AND pending_approval = ?", userID, groupID, true, false).
		First(&membership).Error; err != nil {
		return models.GroupMembership{}, models.Group{}, err
	}
	return membership, group, nil
}

// CountActiveMembers returns the number of active members of a group
func CountActiveMembers(db *gorm.DB, groupID uint) int64 {
	var count int64
	db.Model(&models.GroupMembership{}).
		Where("group_id = ? AND is_active = ? AND pending_approval = ?", groupID, true, false).
		Count(&count)
	return count
}

func (h *Handler) toResponse(group models.Group, role models.GroupRole) GroupResponse {
	return GroupResponse{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
		Icon:        group.Icon,
		Status:      string(group.Status),
		InviteCode:  group.InviteCode,
		Settings:    group.Settings.Data(),
		Role:        string(role),
		MemberCount: int(CountActiveMembers(h.db, group.ID)),
		Version:     group.Version,
		CreatedAt:   group.CreatedAt,
	}
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// membershipOrAbort loads the caller's membership and answers 404 when it is
// missing. Deleted groups and strangers look the same from outside.
func (h *Handler) membershipOrAbort(c *gin.Context) (models.GroupMembership, models.Group, bool) {
	userID, _ := auth.GetUserID(c)
	groupID, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return models.GroupMembership{}, models.Group{}, false
	}

	membership, group, err := LoadActiveMembership(h.db, userID, groupID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to load membership for group %d: %v", groupID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group"})
			return models.GroupMembership{}, models.Group{}, false
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return models.GroupMembership{}, models.Group{}, false
	}
	return membership, group, true
}

func validateSettings(s models.GroupSettings) error {
	if s.MaxMembers < 0 {
		return errors.New("max_members cannot be negative")
	}
	return nil
}

// List returns all groups the current user is an active member of
// @Summary List my groups
// @Tags groups
// @Produce json
// @Success 200 {array} GroupResponse
// @Security BearerAuth
// @Router /groups [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var memberships []models.GroupMembership
	if err := h.db.Preload("Group").
		Where("user_id = ? AND is_active = ? AND pending_approval = ?", userID, true, false).
		Order("joined_at DESC").
		Find(&memberships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}

	groups := make([]GroupResponse, 0, len(memberships))
	for _, m := range memberships {
		if m.Group.Status == models.GroupStatusDeleted {
			continue
		}
		groups = append(groups, h.toResponse(m.Group, m.Role))
	}

	c.JSON(http.StatusOK, groups)
}

// Create creates a new group and makes the creator its owner
// @Summary Create a group
// @Tags groups
// @Accept json
// @Produce json
// @Param request body CreateGroupRequest true "Group details"
// @Success 201 {object} GroupResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /groups [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Group name is required"})
		return
	}

	settings := models.DefaultGroupSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}
	if err := validateSettings(settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Create group and owner membership in a transaction
	var group models.Group
	err := h.db.Transaction(func(tx *gorm.DB) error {
		code, err := newInviteCode(tx)
		if err != nil {
			return err
		}

		group = models.Group{
			Name:        name,
			Description: strings.TrimSpace(req.Description),
			Icon:        req.Icon,
			Status:      models.GroupStatusActive,
			InviteCode:  code,
			Settings:    datatypes.NewJSONType(settings),
			CreatedByID: userID,
			Version:     1,
		}
		if err := tx.Create(&group).Error; err != nil {
			return err
		}

		membership := models.GroupMembership{
			UserID:   userID,
			GroupID:  group.ID,
			Role:     models.GroupRoleOwner,
			IsActive: true,
			JoinedAt: time.Now(),
		}
		return tx.Create(&membership).Error
	})

	if err != nil {
		log.Printf("Failed to create group: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create group"})
		return
	}

	c.JSON(http.StatusCreated, h.toResponse(group, models.GroupRoleOwner))
}

// Get returns a specific group
// @Summary Get a group
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} GroupResponse
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /groups/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	membership, group, ok := h.membershipOrAbort(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.toResponse(group, membership.Role))
}

// Update updates a group (admin only)
// @Summary Update a group
// @Description Update details, status or settings. Send the last seen version to avoid overwriting a concurrent edit.
// @Tags groups
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param request body UpdateGroupRequest true "Updated group details"
// @Success 200 {object} GroupResponse
// @Failure 403 {object} map[string]string "Admin access required"
// @Failure 409 {object} map[string]string "Group changed since it was read"
// @Security BearerAuth
// @Router /groups/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	membership, group, ok := h.membershipOrAbort(c)
	if !ok {
		return
	}

	if !policy.CanEditGroup(membership.Role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Group name is required"})
			return
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}
	if req.Status != nil {
		updates["status"] = models.GroupStatus(*req.Status)
	}
	if req.Settings != nil {
		if err := validateSettings(*req.Settings); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		updates["settings"] = datatypes.NewJSONType(*req.Settings)
	}
	updates["version"] = gorm.Expr("version + 1")

	query := h.db.Model(&models.Group{}).Where("id = ?", group.ID)
	if req.Version != nil {
		query = query.Where("version = ?", *req.Version)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		log.Printf("Failed to update group %d: %v", group.ID, result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update group"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Group was changed by someone else, reload and try again", "code": "stale_version"})
		return
	}

	if err := h.db.First(&group, group.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group"})
		return
	}

	c.JSON(http.StatusOK, h.toResponse(group, membership.Role))
}

// Delete soft-deletes a group (owner only)
// @Summary Delete a group
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} map[string]string "Group deleted"
// @Failure 403 {object} map[string]string "Owner access required"
// @Security BearerAuth
// @Router /groups/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	membership, group, ok := h.membershipOrAbort(c)
	if !ok {
		return
	}

	if !policy.CanDeleteGroup(membership.Role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can delete a group"})
		return
	}

	if err := h.db.Model(&models.Group{}).Where("id = ?", group.ID).Updates(map[string]interface{}{
		"status":  models.GroupStatusDeleted,
		"version": gorm.Expr("version + 1"),
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete group"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Group deleted"})
}

// newInviteCode returns an invite code not used by any group
func newInviteCode(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := invite.Generate()
		if err != nil {
			return "", err
		}
		var count int64
		if err := tx.Model(&models.Group{}).Where("invite_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique invite code")
}

// RegisterRoutes registers group routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/join", h.Join)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/leave", h.Leave)
	rg.POST("/:id/transfer", h.TransferOwnership)
	rg.POST("/:id/invite-code", h.RegenerateInviteCode)
	rg.GET("/:id/share", h.Share)
}

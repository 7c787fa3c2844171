package groups

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/podium/pkg/podium/invite"
	"github.com/mikepea/podium/pkg/podium/models"
	"github.com/mikepea/podium/pkg/podium/policy"
	"gorm.io/gorm"
)

// Join outcomes
const (
	JoinJoined          = "joined"
	JoinAlreadyMember   = "already_member"
	JoinPendingApproval = "pending_approval"
)

var errGroupFull = errors.New("group is full")

// JoinRequest represents a request to join a group by invite code
type JoinRequest struct {
	InviteCode string `json:"invite_code" binding:"required,invitecode"`
}

// JoinResponse reports how a join request was resolved
type JoinResponse struct {
	Status string        `json:"status"`
	Group  GroupResponse `json:"group"`
}

// InvitePreview is the public view of a group reached through an invite code
type InvitePreview struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	MemberCount int    `json:"member_count"`
	InviteCode  string `json:"invite_code"`
}

// ShareResponse carries everything needed to share an invite
type ShareResponse struct {
	InviteCode string `json:"invite_code"`
	DeepLink   string `json:"deep_link"`
	Message    string `json:"message"`
}

func (h *Handler) findByCode(db *gorm.DB, code string) (models.Group, error) {
	var group models.Group
	err := db.Where("invite_code = ? AND status = ?", invite.Normalize(code), models.GroupStatusActive).First(&group).Error
	return group, err
}

// Preview returns public details of the group behind an invite code
// @Summary Preview invite
// @Description Public endpoint, no authentication required
// @Tags invites
// @Produce json
// @Param code path string true "Invite code"
// @Success 200 {object} InvitePreview
// @Failure 404 {object} map[string]string "Invalid invite code"
// @Router /invites/{code} [get]
func (h *Handler) Preview(c *gin.Context) {
	code := c.Param("code")
	if !invite.Valid(code) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid invite code"})
		return
	}

	group, err := h.findByCode(h.db, code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid invite code"})
		return
	}

	c.JSON(http.StatusOK, InvitePreview{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
		Icon:        group.Icon,
		MemberCount: int(CountActiveMembers(h.db, group.ID)),
		InviteCode:  group.InviteCode,
	})
}

// Join adds the caller to the group behind an invite code
// @Summary Join group
// @Description Joining is idempotent: existing members get already_member. Groups that require approval answer 202.
// @Tags groups
// @Accept json
// @Produce json
// @Param request body JoinRequest true "Invite code"
// @Success 200 {object} JoinResponse "Already a member"
// @Success 201 {object} JoinResponse "Joined"
// @Success 202 {object} JoinResponse "Waiting for approval"
// @Failure 404 {object} map[string]string "Invalid invite code"
// @Failure 409 {object} map[string]string "Group is full"
// @Security BearerAuth
// @Router /groups/join [post]
func (h *Handler) Join(c *gin.Context) {
	userID := currentUser(c)

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invite code format"})
		return
	}

	var (
		group  models.Group
		role   models.GroupRole
		status string
	)
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		group, err = h.findByCode(tx, req.InviteCode)
		if err != nil {
			return err
		}

		var existing models.GroupMembership
		found := true
		if err := tx.Where("user_id = ? AND group_id = ?", userID, group.ID).First(&existing).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			found = false
		}

		if found && existing.IsActive && !existing.PendingApproval {
			status, role = JoinAlreadyMember, existing.Role
			return nil
		}
		if found && existing.PendingApproval {
			status = JoinPendingApproval
			return nil
		}

		settings := group.Settings.Data()
		if settings.MaxMembers > 0 && CountActiveMembers(tx, group.ID) >= int64(settings.MaxMembers) {
			return errGroupFull
		}

		pending := settings.RequireApproval
		status, role = JoinJoined, models.GroupRoleMember
		if pending {
			status, role = JoinPendingApproval, ""
		}

		now := time.Now()
		if found {
			return tx.Model(&existing).Updates(map[string]interface{}{
				"role":             models.GroupRoleMember,
				"is_active":        !pending,
				"pending_approval": pending,
				"joined_at":        now,
				"left_at":          nil,
			}).Error
		}

		return tx.Create(&models.GroupMembership{
			UserID:          userID,
			GroupID:         group.ID,
			Role:            models.GroupRoleMember,
			IsActive:        !pending,
			PendingApproval: pending,
			JoinedAt:        now,
		}).Error
	})

	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Invalid invite code"})
		case errors.Is(err, errGroupFull):
			c.JSON(http.StatusConflict, gin.H{"error": "This group is full", "code": "group_full"})
		case errors.Is(err, gorm.ErrDuplicatedKey):
			// A concurrent join for the same user won the insert
			c.JSON(http.StatusOK, JoinResponse{Status: JoinAlreadyMember, Group: h.toResponse(group, models.GroupRoleMember)})
		default:
			log.Printf("Failed to join group: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join group"})
		}
		return
	}

	code := http.StatusOK
	switch status {
	case JoinJoined:
		code = http.StatusCreated
	case JoinPendingApproval:
		code = http.StatusAccepted
	}

	resp := h.toResponse(group, role)
	if status == JoinPendingApproval {
		resp.InviteCode = ""
	}
	c.JSON(code, JoinResponse{Status: status, Group: resp})
}

// RegenerateInviteCode replaces the invite code; the old one stops working
// @Summary Regenerate invite code
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string "Admin access required"
// @Security BearerAuth
// @Router /groups/{id}/invite-code [post]
func (h *Handler) RegenerateInviteCode(c *gin.Context) {
	membership, group, ok := h.membershipOrAbort(c)
	if !ok {
		return
	}

	if !policy.IsAdmin(membership.Role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	var code string
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		if code, err = newInviteCode(tx); err != nil {
			return err
		}
		return tx.Model(&models.Group{}).Where("id = ?", group.ID).Update("invite_code", code).Error
	})
	if err != nil {
		log.Printf("Failed to regenerate invite code for group %d: %v", group.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to regenerate invite code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"invite_code": code})
}

// Share returns the invite code, deep link and a ready-made share message
// @Summary Share invite
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} ShareResponse
// @Security BearerAuth
// @Router /groups/{id}/share [get]
func (h *Handler) Share(c *gin.Context) {
	_, group, ok := h.membershipOrAbort(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, ShareResponse{
		InviteCode: group.InviteCode,
		DeepLink:   invite.DeepLink(group.InviteCode),
		Message:    invite.ShareMessage(group.Name, group.InviteCode),
	})
}

// RegisterPublicRoutes registers routes that do not require authentication
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/:code", h.Preview)
}

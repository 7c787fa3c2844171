package awards

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/podium/pkg/podium/lifecycle"
	"github.com/mikepea/podium/pkg/podium/models"
	"github.com/mikepea/podium/pkg/podium/policy"
	"gorm.io/gorm"
)

// AddNominee nominates another group member while the award is open for nominations
// @Summary Add nominee
// @Tags awards
// @Accept json
// @Produce json
// @Param id path int true "Award ID"
// @Param request body NomineeInput true "Nominee"
// @Success 201 {object} NomineeResponse
// @Failure 409 {object} map[string]string "Already nominated or nominations closed"
// @Security BearerAuth
// @Router /awards/{id}/nominees [post]
func (h *Handler) AddNominee(c *gin.Context) {
	award, membership, group, ok := h.loadAward(c)
	if !ok {
		return
	}

	if !policy.CanCreateAward(membership.Role, group.Settings.Data()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can nominate in this group"})
		return
	}
	if !lifecycle.AcceptsNominees(award.Status) {
		c.JSON(http.StatusConflict, gin.H{"error": "Nominations are closed", "code": "nominations_closed"})
		return
	}

	var req NomineeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := eligibleNominees(h.db, group.ID, []NomineeInput{req}); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	nominee := models.Nominee{
		AwardID:       award.ID,
		UserID:        req.UserID,
		NominatedByID: membership.UserID,
		Reason:        req.Reason,
		MediaURL:      req.MediaURL,
		Text:          req.Text,
	}
	if err := h.db.Create(&nominee).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "This member is already nominated", "code": "already_nominated"})
			return
		}
		log.Printf("Failed to add nominee to award %d: %v", award.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add nominee"})
		return
	}
	if err := h.db.Preload("User").First(&nominee, nominee.ID).Error; err != nil {
		log.Printf("Failed to reload nominee %d: %v", nominee.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch nominee"})
		return
	}

	c.JSON(http.StatusCreated, NomineeResponse{
		ID:            nominee.ID,
		UserID:        nominee.UserID,
		DisplayName:   nominee.User.DisplayName,
		AvatarURL:     nominee.User.AvatarURL,
		NominatedByID: nominee.NominatedByID,
		Reason:        nominee.Reason,
		MediaURL:      nominee.MediaURL,
		Text:          nominee.Text,
		CreatedAt:     nominee.CreatedAt,
	})
}

// RemoveNominee withdraws a nomination before voting starts
// @Summary Remove nominee
// @Tags awards
// @Produce json
// @Param id path int true "Award ID"
// @Param nomineeId path int true "Nominee ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string "Admin access required"
// @Security BearerAuth
// @Router /awards/{id}/nominees/{nomineeId} [delete]
func (h *Handler) RemoveNominee(c *gin.Context) {
	award, membership, _, ok := h.loadAward(c)
	if !ok {
		return
	}

	nomineeID, ok := parseID(c, "nomineeId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid nominee ID"})
		return
	}

	var nominee models.Nominee
	if err := h.db.Where("id = ? AND award_id = ?", nomineeID, award.ID).First(&nominee).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Nominee not found"})
		return
	}

	// Whoever made the nomination may withdraw it
	if !policy.IsAdmin(membership.Role) && nominee.NominatedByID != membership.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}
	if !lifecycle.AcceptsNominees(award.Status) {
		c.JSON(http.StatusConflict, gin.H{"error": "Nominations are closed", "code": "nominations_closed"})
		return
	}

	if err := h.db.Delete(&nominee).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove nominee"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Nominee removed"})
}

package awards

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/podium/pkg/podium/lifecycle"
	"github.com/mikepea/podium/pkg/podium/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpdateStatusRequest moves an award to another status. Starting voting needs
// a deadline: either a preset mode or a custom date.
type UpdateStatusRequest struct {
	Status       string `json:"status" binding:"required"`
	DeadlineMode string `json:"deadline_mode" binding:"omitempty,oneof=24h 48h 1w custom"`
	Deadline     string `json:"deadline"`
	Version      *uint  `json:"version"`
}

var errStale = errors.New("award changed concurrently")

// UpdateStatus applies a lifecycle transition
// @Summary Update award status
// @Description draft -> nominations|voting, nominations -> voting, voting -> completed, completed -> archived
// @Tags awards
// @Accept json
// @Produce json
// @Param id path int true "Award ID"
// @Param request body UpdateStatusRequest true "Target status"
// @Success 200 {object} AwardResponse
// @Failure 400 {object} map[string]string "Invalid deadline or too few nominees"
// @Failure 409 {object} map[string]string "Transition not allowed"
// @Security BearerAuth
// @Router /awards/{id}/status [put]
func (h *Handler) UpdateStatus(c *gin.Context) {
	award, membership, _, ok := h.loadAward(c)
	if !ok {
		return
	}
	if !requireAdmin(c, membership.Role) {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	to, err := lifecycle.ParseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := lifecycle.Transition(award.Status, to); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "invalid_transition"})
		return
	}
	if req.Version != nil && *req.Version != award.Version {
		c.JSON(http.StatusConflict, gin.H{"error": "Award was changed by someone else, reload and try again", "code": "stale_version"})
		return
	}

	now := h.now()
	updates := map[string]interface{}{
		"status":  to,
		"version": gorm.Expr("version + 1"),
	}

	switch to {
	case models.AwardStatusVoting:
		if len(award.Nominees) < lifecycle.MinNominees {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Add at least two nominees before voting", "code": "insufficient_nominees"})
			return
		}
		deadline, err := h.deadline(req, now)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_deadline"})
			return
		}
		updates["voting_start_at"] = now
		updates["voting_end_at"] = deadline
	case models.AwardStatusCompleted:
		if err := h.finish(award, now); err != nil {
			h.finishFailed(c, award.ID, err)
			return
		}
		h.respondWithAward(c, http.StatusOK, award.ID, membership.Role)
		return
	}

	result := h.db.Model(&models.Award{}).
		Where("id = ? AND status = ? AND version = ?", award.ID, award.Status, award.Version).
		Updates(updates)
	if result.Error != nil {
		log.Printf("Failed to update award %d status: %v", award.ID, result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Award was changed by someone else, reload and try again", "code": "stale_version"})
		return
	}

	h.respondWithAward(c, http.StatusOK, award.ID, membership.Role)
}

// deadline computes the end of voting. A bare custom date implies custom mode.
func (h *Handler) deadline(req UpdateStatusRequest, now time.Time) (time.Time, error) {
	mode := lifecycle.DeadlineMode(req.DeadlineMode)
	if mode == "" {
		if req.Deadline == "" {
			return time.Time{}, errors.New("a voting deadline is required")
		}
		mode = lifecycle.DeadlineCustom
	}
	return lifecycle.ComputeDeadline(mode, req.Deadline, now)
}

// finish closes voting: picks the winner, flags it and completes the award in
// one transaction. The winner stays hidden until Reveal.
func (h *Handler) finish(award models.Award, now time.Time) error {
	return h.db.Transaction(func(tx *gorm.DB) error {
		var current models.Award
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, award.ID).Error; err != nil {
			return err
		}
		if err := lifecycle.Transition(current.Status, models.AwardStatusCompleted); err != nil {
			return err
		}

		var nominees []models.Nominee
		if err := tx.Where("award_id = ?", award.ID).Find(&nominees).Error; err != nil {
			return err
		}
		winner, err := lifecycle.SelectWinner(nominees)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.Nominee{}).Where("id = ?", winner.ID).Update("is_winner", true).Error; err != nil {
			return err
		}

		result := tx.Model(&models.Award{}).
			Where("id = ? AND status = ?", award.ID, models.AwardStatusVoting).
			Updates(map[string]interface{}{
				"status":       models.AwardStatusCompleted,
				"winner_id":    winner.UserID,
				"completed_at": now,
				"is_revealed":  false,
				"version":      gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errStale
		}
		return nil
	})
}

func (h *Handler) finishFailed(c *gin.Context, awardID uint, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Voting is not in progress", "code": "invalid_transition"})
	case errors.Is(err, lifecycle.ErrNoNominees):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Award has no nominees", "code": "insufficient_nominees"})
	case errors.Is(err, errStale):
		c.JSON(http.StatusConflict, gin.H{"error": "Award was changed by someone else, reload and try again", "code": "stale_version"})
	default:
		log.Printf("Failed to declare winner for award %d: %v", awardID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to declare winner"})
	}
}

// DeclareWinner ends voting and records the nominee with the most votes.
// Ties go to the earliest nomination.
// @Summary Declare winner
// @Tags awards
// @Produce json
// @Param id path int true "Award ID"
// @Success 200 {object} AwardResponse
// @Failure 409 {object} map[string]string "Voting is not in progress"
// @Security BearerAuth
// @Router /awards/{id}/winner [post]
func (h *Handler) DeclareWinner(c *gin.Context) {
	award, membership, _, ok := h.loadAward(c)
	if !ok {
		return
	}
	if !requireAdmin(c, membership.Role) {
		return
	}

	if err := h.finish(award, h.now()); err != nil {
		h.finishFailed(c, award.ID, err)
		return
	}

	h.respondWithAward(c, http.StatusOK, award.ID, membership.Role)
}

// Reveal makes the winner of a completed award visible to every member
// @Summary Reveal winner
// @Tags awards
// @Produce json
// @Param id path int true "Award ID"
// @Success 200 {object} AwardResponse
// @Failure 409 {object} map[string]string "Award is not completed"
// @Security BearerAuth
// @Router /awards/{id}/reveal [post]
func (h *Handler) Reveal(c *gin.Context) {
	award, membership, _, ok := h.loadAward(c)
	if !ok {
		return
	}
	if !requireAdmin(c, membership.Role) {
		return
	}

	if award.Status != models.AwardStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "Only completed awards can be revealed", "code": "invalid_transition"})
		return
	}

	if !award.IsRevealed {
		if err := h.db.Model(&models.Award{}).Where("id = ?", award.ID).Updates(map[string]interface{}{
			"is_revealed": true,
			"version":     gorm.Expr("version + 1"),
		}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reveal winner"})
			return
		}
	}

	h.respondWithAward(c, http.StatusOK, award.ID, membership.Role)
}

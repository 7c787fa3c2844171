package awards

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/mikepea/podium/pkg/podium/auth"
	"github.com/mikepea/podium/pkg/podium/groups"
	"github.com/mikepea/podium/pkg/podium/lifecycle"
	"github.com/mikepea/podium/pkg/podium/models"
	"github.com/mikepea/podium/pkg/podium/policy"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Handler handles award-related requests
type Handler struct {
	db  *gorm.DB
	now func() time.Time
}

// NewHandler creates a new awards handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db, now: time.Now}
}

// NomineeInput describes one nominee when creating an award or adding to it
type NomineeInput struct {
	UserID   uint   `json:"user_id" binding:"required"`
	Reason   string `json:"reason" binding:"max=500"`
	MediaURL string `json:"media_url" binding:"omitempty,url"`
	Text     string `json:"text" binding:"max=1000"`
}

// CreateAwardRequest represents the request to create an award
type CreateAwardRequest struct {
	Name           string                 `json:"name" binding:"required,max=100"`
	Description    string                 `json:"description" binding:"max=500"`
	Icon           string                 `json:"icon"`
	VoteType       string                 `json:"vote_type" binding:"omitempty,oneof=person photo video audio text"`
	VotingSettings *models.VotingSettings `json:"voting_settings"`
	Nominees       []NomineeInput         `json:"nominees" binding:"dive"`
}

// UpdateAwardRequest represents the request to update an award.
// Nil fields are left alone.
type UpdateAwardRequest struct {
	Name           *string                `json:"name" binding:"omitempty,max=100"`
	Description    *string                `json:"description" binding:"omitempty,max=500"`
	Icon           *string                `json:"icon"`
	VotingSettings *models.VotingSettings `json:"voting_settings"`
	Version        *uint                  `json:"version"`
}

// NomineeResponse represents a nominee in API responses.
// VoteCount is nil when the caller may not see the tally yet.
type NomineeResponse struct {
	ID            uint      `json:"id"`
	UserID        uint      `json:"user_id"`
	DisplayName   string    `json:"display_name"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	NominatedByID uint      `json:"nominated_by_id"`
	Reason        string    `json:"reason,omitempty"`
	MediaURL      string    `json:"media_url,omitempty"`
	Text          string    `json:"text,omitempty"`
	VoteCount     *int      `json:"vote_count,omitempty"`
	IsWinner      bool      `json:"is_winner"`
	CreatedAt     time.Time `json:"created_at"`
}

// AwardResponse represents an award in API responses
type AwardResponse struct {
	ID             uint                  `json:"id"`
	GroupID        uint                  `json:"group_id"`
	CreatedByID    uint                  `json:"created_by_id"`
	Name           string                `json:"name"`
	Description    string                `json:"description"`
	Icon           string                `json:"icon"`
	Status         string                `json:"status"`
	VoteType       string                `json:"vote_type"`
	VotingStartAt  *time.Time            `json:"voting_start_at,omitempty"`
	VotingEndAt    *time.Time            `json:"voting_end_at,omitempty"`
	VotingEndsIn   string                `json:"voting_ends_in,omitempty"`
	CompletedAt    *time.Time            `json:"completed_at,omitempty"`
	WinnerID       *uint                 `json:"winner_id,omitempty"`
	IsRevealed     bool                  `json:"is_revealed"`
	VotingSettings models.VotingSettings `json:"voting_settings"`
	Version        uint                  `json:"version"`
	NomineeCount   int                   `json:"nominee_count"`
	Nominees       []NomineeResponse     `json:"nominees"`
	CreatedAt      time.Time             `json:"created_at"`
}

// resultsVisible reports whether role may see counts and the winner of award
func resultsVisible(award models.Award, role models.GroupRole) bool {
	return award.IsRevealed || policy.IsAdmin(role)
}

func (h *Handler) toResponse(award models.Award, role models.GroupRole) AwardResponse {
	visible := resultsVisible(award, role)

	nominees := make([]NomineeResponse, len(award.Nominees))
	for i, n := range award.Nominees {
		nr := NomineeResponse{
			ID:            n.ID,
			UserID:        n.UserID,
			DisplayName:   n.User.DisplayName,
			AvatarURL:     n.User.AvatarURL,
			NominatedByID: n.NominatedByID,
			Reason:        n.Reason,
			MediaURL:      n.MediaURL,
			Text:          n.Text,
			CreatedAt:     n.CreatedAt,
		}
		if visible {
			count := n.VoteCount
			nr.VoteCount = &count
			nr.IsWinner = n.IsWinner
		}
		nominees[i] = nr
	}

	resp := AwardResponse{
		ID:             award.ID,
		GroupID:        award.GroupID,
		CreatedByID:    award.CreatedByID,
		Name:           award.Name,
		Description:    award.Description,
		Icon:           award.Icon,
		Status:         string(award.Status),
		VoteType:       string(award.VoteType),
		VotingStartAt:  award.VotingStartAt,
		VotingEndAt:    award.VotingEndAt,
		CompletedAt:    award.CompletedAt,
		IsRevealed:     award.IsRevealed,
		VotingSettings: award.VotingSettings.Data(),
		Version:        award.Version,
		NomineeCount:   len(award.Nominees),
		Nominees:       nominees,
		CreatedAt:      award.CreatedAt,
	}
	if visible {
		resp.WinnerID = award.WinnerID
	}
	if award.Status == models.AwardStatusVoting && award.VotingEndAt != nil && award.VotingEndAt.After(h.now()) {
		resp.VotingEndsIn = humanize.RelTime(*award.VotingEndAt, h.now(), "ago", "from now")
	}
	return resp
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// loadAward loads the award named by :id with its nominees, and the caller's
// membership in the award's group. Non-members get 404.
func (h *Handler) loadAward(c *gin.Context) (models.Award, models.GroupMembership, models.Group, bool) {
	userID, _ := auth.GetUserID(c)
	awardID, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid award ID"})
		return models.Award{}, models.GroupMembership{}, models.Group{}, false
	}

	var award models.Award
	if err := h.db.Preload("Nominees", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	}).Preload("Nominees.User").First(&award, awardID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Award not found"})
		return models.Award{}, models.GroupMembership{}, models.Group{}, false
	}

	membership, group, err := groups.LoadActiveMembership(h.db, userID, award.GroupID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Award not found"})
		return models.Award{}, models.GroupMembership{}, models.Group{}, false
	}
	return award, membership, group, true
}

// requireAdmin answers 403 unless role is owner or admin
func requireAdmin(c *gin.Context, role models.GroupRole) bool {
	if !policy.IsAdmin(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return false
	}
	return true
}

// normalizeVotingSettings fills in max_votes_per_user when a client leaves it out
func normalizeVotingSettings(s models.VotingSettings) models.VotingSettings {
	if s.MaxVotesPerUser == 0 {
		s.MaxVotesPerUser = 1
	}
	return s
}

func validateVotingSettings(s models.VotingSettings) error {
	if s.MaxVotesPerUser != 1 {
		return errors.New("max_votes_per_user must be 1")
	}
	return nil
}

// eligibleNominees checks that every input names a distinct active member of the group
func eligibleNominees(db *gorm.DB, groupID uint, inputs []NomineeInput) error {
	seen := make(map[uint]bool, len(inputs))
	ids := make([]uint, 0, len(inputs))
	for _, in := range inputs {
		if seen[in.UserID] {
			return errors.New("a member can only be nominated once")
		}
		seen[in.UserID] = true
		ids = append(ids, in.UserID)
	}
	if len(ids) == 0 {
		return nil
	}

	var count int64
	if err := db.Model(&models.GroupMembership{}).
		Where("group_id = ? AND user_id IN ? AND is_active = ? AND pending_approval = ?", groupID, ids, true, false).
		Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(ids) {
		return errors.New("nominees must be members of the group")
	}
	return nil
}

// List returns the awards of a group, excluding archived ones
// @Summary List awards
// @Tags awards
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {array} AwardResponse
// @Security BearerAuth
// @Router /groups/{id}/awards [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	membership, _, err := groups.LoadActiveMembership(h.db, userID, groupID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	var awards []models.Award
	if err := h.db.Preload("Nominees").Preload("Nominees.User").
		Where("group_id = ? AND status <> ?", groupID, models.AwardStatusArchived).
		Order("created_at DESC").
		Find(&awards).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch awards"})
		return
	}

	response := make([]AwardResponse, len(awards))
	for i, a := range awards {
		response[i] = h.toResponse(a, membership.Role)
	}

	c.JSON(http.StatusOK, response)
}

// Create creates an award with its initial nominees
// @Summary Create award
// @Description Person awards need at least two nominees.
// @Tags awards
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param request body CreateAwardRequest true "Award details"
// @Success 201 {object} AwardResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Not allowed to create awards"
// @Security BearerAuth
// @Router /groups/{id}/awards [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	groupID, ok := parseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	membership, group, err := groups.LoadActiveMembership(h.db, userID, groupID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	if !policy.CanCreateAward(membership.Role, group.Settings.Data()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can create awards in this group"})
		return
	}

	var req CreateAwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Award name is required"})
		return
	}

	voteType := models.VoteTypePerson
	if req.VoteType != "" {
		voteType = models.VoteType(req.VoteType)
	}

	settings := models.DefaultVotingSettings()
	if req.VotingSettings != nil {
		settings = normalizeVotingSettings(*req.VotingSettings)
	}
	if err := validateVotingSettings(settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if voteType == models.VoteTypePerson && len(req.Nominees) < lifecycle.MinNominees {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Add at least two nominees", "code": "insufficient_nominees"})
		return
	}
	if err := eligibleNominees(h.db, group.ID, req.Nominees); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	award := models.Award{
		GroupID:        group.ID,
		CreatedByID:    userID,
		Name:           name,
		Description:    strings.TrimSpace(req.Description),
		Icon:           req.Icon,
		Status:         models.AwardStatusDraft,
		VoteType:       voteType,
		VotingSettings: datatypes.NewJSONType(settings),
		Version:        1,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&award).Error; err != nil {
			return err
		}
		for _, in := range req.Nominees {
			nominee := models.Nominee{
				AwardID:       award.ID,
				UserID:        in.UserID,
				NominatedByID: userID,
				Reason:        in.Reason,
				MediaURL:      in.MediaURL,
				Text:          in.Text,
			}
			if err := tx.Create(&nominee).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Failed to create award: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create award"})
		return
	}

	h.respondWithAward(c, http.StatusCreated, award.ID, membership.Role)
}

// respondWithAward reloads an award with nominees and writes it
func (h *Handler) respondWithAward(c *gin.Context, status int, awardID uint, role models.GroupRole) {
	var award models.Award
	if err := h.db.Preload("Nominees", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	}).Preload("Nominees.User").First(&award, awardID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch award"})
		return
	}
	c.JSON(status, h.toResponse(award, role))
}

// Get returns an award with its nominees
// @Summary Get award
// @Description Vote counts and the winner are hidden from non-admins until the award is revealed.
// @Tags awards
// @Produce json
// @Param id path int true "Award ID"
// @Success 200 {object} AwardResponse
// @Failure 404 {object} map[string]string "Award not found"
// @Security BearerAuth
// @Router /awards/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	award, membership, _, ok := h.loadAward(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.toResponse(award, membership.Role))
}

// Update updates award details. Voting settings are locked once voting starts.
// @Summary Update award
// @Tags awards
// @Accept json
// @Produce json
// @Param id path int true "Award ID"
// @Param request body UpdateAwardRequest true "Updated details"
// @Success 200 {object} AwardResponse
// @Failure 409 {object} map[string]string "Award changed since it was read"
// @Security BearerAuth
// @Router /awards/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	award, membership, _, ok := h.loadAward(c)
	if !ok {
		return
	}

	if !policy.IsAdmin(membership.Role) && award.CreatedByID != membership.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins or the creator can edit this award"})
		return
	}

	var req UpdateAwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Award name is required"})
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
	if req.VotingSettings != nil {
		if !lifecycle.AcceptsNominees(award.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Voting settings cannot change once voting has started"})
			return
		}
		settings := normalizeVotingSettings(*req.VotingSettings)
		if err := validateVotingSettings(settings); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		updates["voting_settings"] = datatypes.NewJSONType(settings)
	}
	updates["version"] = gorm.Expr("version + 1")

	query := h.db.Model(&models.Award{}).Where("id = ?", award.ID)
	if req.Version != nil {
		query = query.Where("version = ?", *req.Version)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		log.Printf("Failed to update award %d: %v", award.ID, result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update award"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Award was changed by someone else, reload and try again", "code": "stale_version"})
		return
	}

	h.respondWithAward(c, http.StatusOK, award.ID, membership.Role)
}

// Delete permanently removes an award with its nominees and votes
// @Summary Delete award
// @Tags awards
// @Produce json
// @Param id path int true "Award ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string "Admin access required"
// @Security BearerAuth
// @Router /awards/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	award, membership, _, ok := h.loadAward(c)
	if !ok {
		return
	}
	if !requireAdmin(c, membership.Role) {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("award_id = ?", award.ID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("award_id = ?", award.ID).Delete(&models.Nominee{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Award{}, award.ID).Error
	})
	if err != nil {
		log.Printf("Failed to delete award %d: %v", award.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete award"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Award deleted"})
}

// RegisterGroupRoutes registers award routes nested under a group
func (h *Handler) RegisterGroupRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/awards", h.List)
	rg.POST("/:id/awards", h.Create)
}

// RegisterRoutes registers routes addressing a single award
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.PUT("/:id/status", h.UpdateStatus)
	rg.POST("/:id/nominees", h.AddNominee)
	rg.DELETE("/:id/nominees/:nomineeId", h.RemoveNominee)
	rg.POST("/:id/votes", h.CastVote)
	rg.GET("/:id/votes/me", h.MyVote)
	rg.POST("/:id/winner", h.DeclareWinner)
	rg.POST("/:id/reveal", h.Reveal)
	rg.GET("/:id/results", h.Results)
}

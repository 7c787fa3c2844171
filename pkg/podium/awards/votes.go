package awards

import (
	"errors"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/podium/pkg/podium/lifecycle"
	"github.com/mikepea/podium/pkg/podium/models"
	"github.com/mikepea/podium/pkg/podium/policy"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CastVoteRequest picks a nominee
type CastVoteRequest struct {
	NomineeID uint `json:"nominee_id" binding:"required"`
}

// VoteResponse represents the caller's vote
type VoteResponse struct {
	AwardID   uint      `json:"award_id"`
	NomineeID uint      `json:"nominee_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VoterResponse names a voter in non-anonymous results
type VoterResponse struct {
	UserID      uint   `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// ResultEntry is one nominee's line in the tally
type ResultEntry struct {
	NomineeID   uint            `json:"nominee_id"`
	UserID      uint            `json:"user_id"`
	DisplayName string          `json:"display_name"`
	VoteCount   int             `json:"vote_count"`
	IsWinner    bool            `json:"is_winner"`
	Voters      []VoterResponse `json:"voters,omitempty"`
}

// ResultsResponse is the tally of an award
type ResultsResponse struct {
	AwardID    uint          `json:"award_id"`
	Status     string        `json:"status"`
	TotalVotes int           `json:"total_votes"`
	Anonymous  bool          `json:"anonymous"`
	Results    []ResultEntry `json:"results"`
}

var (
	errAlreadyVoted = errors.New("already voted")
	errVotingClosed = errors.New("voting closed")
)

func toVoteResponse(v models.Vote) VoteResponse {
	return VoteResponse{
		AwardID:   v.AwardID,
		NomineeID: v.NomineeID,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

// CastVote records the caller's vote. With allow_vote_change a second vote
// moves the ballot; otherwise it is rejected.
// @Summary Cast vote
// @Tags awards
// @Accept json
// @Produce json
// @Param id path int true "Award ID"
// @Param request body CastVoteRequest true "Nominee"
// @Success 201 {object} VoteResponse "Vote recorded"
// @Success 200 {object} VoteResponse "Vote changed"
// @Failure 403 {object} map[string]string "Voting closed or not eligible"
// @Failure 409 {object} map[string]string "Already voted"
// @Security BearerAuth
// @Router /awards/{id}/votes [post]
func (h *Handler) CastVote(c *gin.Context) {
	award, membership, group, ok := h.loadAward(c)
	if !ok {
		return
	}

	if !lifecycle.VotingOpen(award, h.now()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Voting is closed", "code": "voting_closed"})
		return
	}
	if !policy.CanVote(membership.Role, group.Settings.Data()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can vote in this group", "code": "not_eligible"})
		return
	}

	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var target *models.Nominee
	voterIsNominee := false
	for i := range award.Nominees {
		n := &award.Nominees[i]
		if n.ID == req.NomineeID {
			target = n
		}
		if n.UserID == membership.UserID {
			voterIsNominee = true
		}
	}
	if target == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Nominee not found"})
		return
	}

	settings := award.VotingSettings.Data()
	if !policy.CanNomineeVote(settings, award.VoteType, voterIsNominee, target.UserID == membership.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to vote for this nominee", "code": "not_eligible"})
		return
	}

	status := http.StatusCreated
	var vote models.Vote
	err := h.db.Transaction(func(tx *gorm.DB) error {
		// Finishing voting locks the same row, so a vote either lands before
		// the winner is picked or sees the award closed
		var current models.Award
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, award.ID).Error; err != nil {
			return err
		}
		if !lifecycle.VotingOpen(current, h.now()) {
			return errVotingClosed
		}

		var existing models.Vote
		err := tx.Where("award_id = ? AND voter_id = ?", award.ID, membership.UserID).First(&existing).Error
		switch {
		case err == nil:
			if !settings.AllowVoteChange {
				return errAlreadyVoted
			}
			status = http.StatusOK
			if existing.NomineeID == target.ID {
				vote = existing
				return nil
			}
			if err := tx.Model(&models.Nominee{}).Where("id = ?", existing.NomineeID).
				Update("vote_count", gorm.Expr("vote_count - 1")).Error; err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		vote = models.Vote{AwardID: award.ID, VoterID: membership.UserID, NomineeID: target.ID}
		create := tx
		if status == http.StatusOK {
			create = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "award_id"}, {Name: "voter_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"nominee_id", "updated_at"}),
			})
		}
		if err := create.Create(&vote).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errAlreadyVoted
			}
			return err
		}

		if err := tx.Model(&models.Nominee{}).Where("id = ?", target.ID).
			Update("vote_count", gorm.Expr("vote_count + 1")).Error; err != nil {
			return err
		}
		if status == http.StatusOK {
			var moved models.Vote
			if err := tx.Where("award_id = ? AND voter_id = ?", award.ID, membership.UserID).First(&moved).Error; err != nil {
				return err
			}
			vote = moved
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errAlreadyVoted) {
			c.JSON(http.StatusConflict, gin.H{"error": "You have already voted", "code": "already_voted"})
			return
		}
		if errors.Is(err, errVotingClosed) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Voting is closed", "code": "voting_closed"})
			return
		}
		log.Printf("Failed to cast vote in award %d: %v", award.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cast vote"})
		return
	}

	c.JSON(status, toVoteResponse(vote))
}

// MyVote returns the caller's vote in an award
// @Summary Get my vote
// @Tags awards
// @Produce json
// @Param id path int true "Award ID"
// @Success 200 {object} VoteResponse
// @Failure 404 {object} map[string]string "No vote yet"
// @Security BearerAuth
// @Router /awards/{id}/votes/me [get]
func (h *Handler) MyVote(c *gin.Context) {
	award, membership, _, ok := h.loadAward(c)
	if !ok {
		return
	}

	var vote models.Vote
	if err := h.db.Where("award_id = ? AND voter_id = ?", award.ID, membership.UserID).First(&vote).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "You have not voted yet"})
		return
	}

	c.JSON(http.StatusOK, toVoteResponse(vote))
}

// Results returns the tally. Members see it once revealed, admins any time.
// Voters are listed only when voting is not anonymous.
// @Summary Award results
// @Tags awards
// @Produce json
// @Param id path int true "Award ID"
// @Success 200 {object} ResultsResponse
// @Failure 403 {object} map[string]string "Results not revealed yet"
// @Security BearerAuth
// @Router /awards/{id}/results [get]
func (h *Handler) Results(c *gin.Context) {
	award, membership, _, ok := h.loadAward(c)
	if !ok {
		return
	}

	if !resultsVisible(award, membership.Role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Results have not been revealed yet", "code": "results_hidden"})
		return
	}

	anonymous := award.VotingSettings.Data().AnonymousVoting
	voters := map[uint][]VoterResponse{}
	if !anonymous {
		var votes []models.Vote
		if err := h.db.Preload("Voter").Where("award_id = ?", award.ID).Order("created_at ASC").Find(&votes).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch votes"})
			return
		}
		for _, v := range votes {
			voters[v.NomineeID] = append(voters[v.NomineeID], VoterResponse{UserID: v.VoterID, DisplayName: v.Voter.DisplayName})
		}
	}

	resp := ResultsResponse{
		AwardID:   award.ID,
		Status:    string(award.Status),
		Anonymous: anonymous,
		Results:   make([]ResultEntry, len(award.Nominees)),
	}
	for i, n := range award.Nominees {
		resp.TotalVotes += n.VoteCount
		resp.Results[i] = ResultEntry{
			NomineeID:   n.ID,
			UserID:      n.UserID,
			DisplayName: n.User.DisplayName,
			VoteCount:   n.VoteCount,
			IsWinner:    n.IsWinner,
			Voters:      voters[n.ID],
		}
	}

	sort.SliceStable(resp.Results, func(i, j int) bool {
		return resp.Results[i].VoteCount > resp.Results[j].VoteCount
	})

	c.JSON(http.StatusOK, resp)
}

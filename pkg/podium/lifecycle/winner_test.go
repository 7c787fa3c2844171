package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/mikepea/podium/pkg/podium/models"
)

func TestSelectWinnerHighestCount(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	nominees := []models.Nominee{
		{ID: 1, UserID: 10, VoteCount: 2, CreatedAt: base},
		{ID: 2, UserID: 11, VoteCount: 5, CreatedAt: base.Add(time.Minute)},
		{ID: 3, UserID: 12, VoteCount: 1, CreatedAt: base.Add(2 * time.Minute)},
	}

	winner, err := SelectWinner(nominees)
	if err != nil {
		t.Fatalf("SelectWinner failed: %v", err)
	}
	if winner.ID != 2 {
		t.Errorf("Expected nominee 2 (5 votes), got %d", winner.ID)
	}
}

func TestSelectWinnerTieBreak(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Earliest nomination wins, regardless of input order
	nominees := []models.Nominee{
		{ID: 7, VoteCount: 3, CreatedAt: base.Add(time.Hour)},
		{ID: 9, VoteCount: 3, CreatedAt: base},
		{ID: 4, VoteCount: 1, CreatedAt: base.Add(-time.Hour)},
	}
	winner, _ := SelectWinner(nominees)
	if winner.ID != 9 {
		t.Errorf("Expected earliest nominee 9, got %d", winner.ID)
	}

	// Same timestamp falls back to the lowest ID
	nominees = []models.Nominee{
		{ID: 8, VoteCount: 3, CreatedAt: base},
		{ID: 5, VoteCount: 3, CreatedAt: base},
	}
	winner, _ = SelectWinner(nominees)
	if winner.ID != 5 {
		t.Errorf("Expected lowest ID 5, got %d", winner.ID)
	}
}

func TestSelectWinnerEmpty(t *testing.T) {
	if _, err := SelectWinner(nil); !errors.Is(err, ErrNoNominees) {
		t.Errorf("Expected ErrNoNominees, got %v", err)
	}
}

func TestVotingOpen(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	if !VotingOpen(models.Award{Status: models.AwardStatusVoting, VotingEndAt: &later}, now) {
		t.Error("voting award before deadline should be open")
	}
	if VotingOpen(models.Award{Status: models.AwardStatusVoting, VotingEndAt: &earlier}, now) {
		t.Error("voting award past deadline should be closed")
	}
	if VotingOpen(models.Award{Status: models.AwardStatusDraft, VotingEndAt: &later}, now) {
		t.Error("draft award should be closed")
	}
}

package lifecycle

import (
	"errors"
	"time"

	"github.com/mikepea/podium/pkg/podium/models"
)

var ErrNoNominees = errors.New("award has no nominees")

// MinNominees is the smallest field an award can be voted on with
const MinNominees = 2

// SelectWinner picks the nominee with the most votes. Ties go to the earliest
// nomination, then to the lowest nominee ID, so the result never depends on
// the order the store returned the rows in.
func SelectWinner(nominees []models.Nominee) (models.Nominee, error) {
	if len(nominees) == 0 {
		return models.Nominee{}, ErrNoNominees
	}

	best := nominees[0]
	for _, n := range nominees[1:] {
		if beats(n, best) {
			best = n
		}
	}
	return best, nil
}

func beats(a, b models.Nominee) bool {
	if a.VoteCount != b.VoteCount {
		return a.VoteCount > b.VoteCount
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// VotingOpen reports whether award accepts votes at now
func VotingOpen(award models.Award, now time.Time) bool {
	if award.Status != models.AwardStatusVoting {
		return false
	}
	if award.VotingEndAt != nil && !now.Before(*award.VotingEndAt) {
		return false
	}
	return true
}

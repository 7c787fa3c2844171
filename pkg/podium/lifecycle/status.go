// Package lifecycle implements the award state machine, voting deadlines and
// winner selection.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/mikepea/podium/pkg/podium/models"
)

var (
	ErrUnknownStatus     = errors.New("unknown award status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// transitions lists every legal status change. nominations and archived are
// never entered by the lifecycle actions, only through a direct status update.
var transitions = map[models.AwardStatus][]models.AwardStatus{
	models.AwardStatusDraft:       {models.AwardStatusNominations, models.AwardStatusVoting},
	models.AwardStatusNominations: {models.AwardStatusVoting},
	models.AwardStatusVoting:      {models.AwardStatusCompleted},
	models.AwardStatusCompleted:   {models.AwardStatusArchived},
	models.AwardStatusArchived:    nil,
}

// ParseStatus converts s into a known award status
func ParseStatus(s string) (models.AwardStatus, error) {
	status := models.AwardStatus(s)
	if _, ok := transitions[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return status, nil
}

// CanTransition reports whether an award may move from one status to another
func CanTransition(from, to models.AwardStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns ErrInvalidTransition when from -> to is not allowed
func Transition(from, to models.AwardStatus) error {
	if _, ok := transitions[from]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, from)
	}
	if _, ok := transitions[to]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// AcceptsNominees reports whether nominees may still be added or removed
func AcceptsNominees(status models.AwardStatus) bool {
	return status == models.AwardStatusDraft || status == models.AwardStatusNominations
}

package client

import (
	"github.com/mikepea/podium/pkg/podium/lifecycle"
	"github.com/mikepea/podium/pkg/podium/models"
	"github.com/mikepea/podium/pkg/podium/policy"
)

// Permissions answers what the user may do in a group, using the same
// rules the server enforces. Use it to hide actions the server would
// reject; the server still has the final word.
type Permissions struct {
	Role     models.GroupRole
	Settings models.GroupSettings
}

// PermissionsFor evaluates permissions from a fetched group
func PermissionsFor(g Group) Permissions {
	return Permissions{Role: g.Role, Settings: g.Settings}
}

func (p Permissions) IsAdmin() bool        { return policy.IsAdmin(p.Role) }
func (p Permissions) CanEditGroup() bool   { return policy.CanEditGroup(p.Role) }
func (p Permissions) CanDeleteGroup() bool { return policy.CanDeleteGroup(p.Role) }
func (p Permissions) CanCreateAward() bool { return policy.CanCreateAward(p.Role, p.Settings) }
func (p Permissions) CanVote() bool        { return policy.CanVote(p.Role, p.Settings) }

// CanInvite reports whether the user may regenerate the invite code
func (p Permissions) CanInvite() bool { return policy.IsAdmin(p.Role) }

// CanLeave reports whether the user may leave without transferring ownership
func (p Permissions) CanLeave() bool { return p.Role != models.GroupRoleOwner }

// CanManage reports whether the user may change or remove member m
func (p Permissions) CanManage(m Member, self uint) bool {
	return policy.CanManage(p.Role, m.Role, m.UserID == self)
}

// CanStartVoting reports whether the user may open voting on a
func (p Permissions) CanStartVoting(a Award) bool {
	return policy.IsAdmin(p.Role) &&
		lifecycle.CanTransition(a.Status, models.AwardStatusVoting) &&
		len(a.Nominees) >= 2
}

// CanDeclareWinner reports whether the user may close voting on a
func (p Permissions) CanDeclareWinner(a Award) bool {
	return policy.IsAdmin(p.Role) && a.Status == models.AwardStatusVoting
}

// CanReveal reports whether the user may reveal a's winner
func (p Permissions) CanReveal(a Award) bool {
	return policy.IsAdmin(p.Role) && a.Status == models.AwardStatusCompleted && !a.IsRevealed
}

// CanVoteFor reports whether user self may vote for nominee n in a. It
// does not know about the voting deadline; check a.VotingEndAt for that.
func (p Permissions) CanVoteFor(a Award, n Nominee, self uint) bool {
	if a.Status != models.AwardStatusVoting || !p.CanVote() {
		return false
	}
	voterIsNominee := false
	for _, other := range a.Nominees {
		if other.UserID == self {
			voterIsNominee = true
			break
		}
	}
	return policy.CanNomineeVote(a.VotingSettings, a.VoteType, voterIsNominee, n.UserID == self)
}

// ResultsVisible reports whether the user can see vote counts for a
func (p Permissions) ResultsVisible(a Award) bool {
	return a.IsRevealed || policy.IsAdmin(p.Role)
}

// Package policy holds the group permission rules.
//
// Every function is pure so the server can evaluate it against fresh
// membership rows and clients can evaluate it against a cached snapshot.
package policy

import "github.com/mikepea/podium/pkg/podium/models"

// IsAdmin reports whether role carries admin rights (owners are admins too)
func IsAdmin(role models.GroupRole) bool {
	return role == models.GroupRoleOwner || role == models.GroupRoleAdmin
}

// CanManage reports whether an actor may promote, demote or remove a target
// member. Nobody manages themself, owners manage everyone else, admins manage
// admins and members but never the owner.
func CanManage(actorRole, targetRole models.GroupRole, isSelf bool) bool {
	if isSelf {
		return false
	}
	switch actorRole {
	case models.GroupRoleOwner:
		return true
	case models.GroupRoleAdmin:
		return targetRole != models.GroupRoleOwner
	default:
		return false
	}
}

// CanCreateAward reports whether a member with role may create awards
func CanCreateAward(role models.GroupRole, settings models.GroupSettings) bool {
	return IsAdmin(role) || settings.AllowMemberNominations
}

// CanVote reports whether a member with role may vote in the group's awards
func CanVote(role models.GroupRole, settings models.GroupSettings) bool {
	return IsAdmin(role) || settings.AllowMemberVoting
}

// CanEditGroup reports whether role may change group details and settings
func CanEditGroup(role models.GroupRole) bool {
	return IsAdmin(role)
}

// CanDeleteGroup reports whether role may delete the group
func CanDeleteGroup(role models.GroupRole) bool {
	return role == models.GroupRoleOwner
}

// AssignableRole reports whether role can be handed out through a role
// update. Ownership only moves through a transfer.
func AssignableRole(role models.GroupRole) bool {
	return role == models.GroupRoleAdmin || role == models.GroupRoleMember
}

// CanNomineeVote applies the per-award nominee rules. They only apply to
// awards whose nominees are people.
func CanNomineeVote(settings models.VotingSettings, voteType models.VoteType, voterIsNominee, targetIsSelf bool) bool {
	if voteType != models.VoteTypePerson {
		return true
	}
	if voterIsNominee && !settings.NomineesCanVote {
		return false
	}
	if targetIsSelf && !settings.AllowSelfVote {
		return false
	}
	return true
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// AwardStatus is the lifecycle status of an award.
// Legal transitions are defined in the lifecycle package.
type AwardStatus string

const (
	AwardStatusDraft       AwardStatus = "draft"
	AwardStatusNominations AwardStatus = "nominations"
	AwardStatusVoting      AwardStatus = "voting"
	AwardStatusCompleted   AwardStatus = "completed"
	AwardStatusArchived    AwardStatus = "archived"
)

// VoteType describes what nominees of an award are
type VoteType string

const (
	VoteTypePerson VoteType = "person"
	VoteTypePhoto  VoteType = "photo"
	VoteTypeVideo  VoteType = "video"
	VoteTypeAudio  VoteType = "audio"
	VoteTypeText   VoteType = "text"
)

// ValidVoteType reports whether t is a known vote type
func ValidVoteType(t VoteType) bool {
	switch t {
	case VoteTypePerson, VoteTypePhoto, VoteTypeVideo, VoteTypeAudio, VoteTypeText:
		return true
	}
	return false
}

// VotingSettings are per-award voting rules
type VotingSettings struct {
	AllowSelfVote   bool `json:"allow_self_vote"`
	NomineesCanVote bool `json:"nominees_can_vote"`
	AllowVoteChange bool `json:"allow_vote_change"`
	MaxVotesPerUser int  `json:"max_votes_per_user"`
	AnonymousVoting bool `json:"anonymous_voting"`
}

// DefaultVotingSettings returns the voting rules applied to new awards
func DefaultVotingSettings() VotingSettings {
	return VotingSettings{
		AllowSelfVote:   false,
		NomineesCanVote: true,
		AllowVoteChange: false,
		MaxVotesPerUser: 1,
		AnonymousVoting: true,
	}
}

// Award is a category members nominate and vote in, e.g. "Best Cook"
type Award struct {
	ID             uint                               `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time                          `json:"created_at"`
	UpdatedAt      time.Time                          `json:"updated_at"`
	GroupID        uint                               `gorm:"not null;index" json:"group_id"`
	CreatedByID    uint                               `gorm:"not null" json:"created_by_id"`
	Name           string                             `gorm:"not null" json:"name"`
	Description    string                             `json:"description"`
	Icon           string                             `json:"icon"`
	Status         AwardStatus                        `gorm:"type:varchar(20);default:'draft';index" json:"status"`
	VoteType       VoteType                           `gorm:"type:varchar(20);default:'person'" json:"vote_type"`
	VotingStartAt  *time.Time                         `json:"voting_start_at"`
	VotingEndAt    *time.Time                         `json:"voting_end_at"`
	CompletedAt    *time.Time                         `json:"completed_at"`
	WinnerID       *uint                              `json:"winner_id"`
	IsRevealed     bool                               `gorm:"not null" json:"is_revealed"`
	VotingSettings datatypes.JSONType[VotingSettings] `json:"voting_settings"`
	Version        uint                               `gorm:"not null;default:1" json:"version"`

	// Relationships
	Group    Group     `gorm:"foreignKey:GroupID" json:"-"`
	Nominees []Nominee `gorm:"foreignKey:AwardID" json:"nominees,omitempty"`
}

// Nominee is a candidate in an award. VoteCount is maintained by the vote
// handlers inside the same transaction that writes the vote.
type Nominee struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	AwardID       uint      `gorm:"not null;uniqueIndex:idx_award_nominee" json:"award_id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_award_nominee" json:"user_id"`
	NominatedByID uint      `gorm:"not null" json:"nominated_by_id"`
	Reason        string    `json:"reason"`
	MediaURL      string    `json:"media_url,omitempty"`
	Text          string    `json:"text,omitempty"`
	VoteCount     int       `gorm:"not null;default:0" json:"vote_count"`
	IsWinner      bool      `gorm:"not null" json:"is_winner"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Vote is one member's ballot in an award. The unique index on
// (award_id, voter_id) makes a second insert fail with a duplicate key.
type Vote struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	AwardID   uint      `gorm:"not null;uniqueIndex:idx_award_voter" json:"award_id"`
	VoterID   uint      `gorm:"not null;uniqueIndex:idx_award_voter" json:"voter_id"`
	NomineeID uint      `gorm:"not null;index" json:"nominee_id"`

	// Relationships
	Voter   User    `gorm:"foreignKey:VoterID" json:"-"`
	Nominee Nominee `gorm:"foreignKey:NomineeID" json:"-"`
}

package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GroupStatus is the lifecycle status of a group
type GroupStatus string

const (
	GroupStatusActive   GroupStatus = "active"
	GroupStatusArchived GroupStatus = "archived"
	GroupStatusDeleted  GroupStatus = "deleted"
)

// GroupSettings controls what plain members may do inside a group
type GroupSettings struct {
	AllowMemberNominations bool `json:"allow_member_nominations"`
	AllowMemberVoting      bool `json:"allow_member_voting"`
	MaxMembers             int  `json:"max_members"`
	RequireApproval        bool `json:"require_approval"`
}

// DefaultGroupSettings returns the settings applied to new groups
func DefaultGroupSettings() GroupSettings {
	return GroupSettings{
		AllowMemberNominations: true,
		AllowMemberVoting:      true,
		MaxMembers:             50,
		RequireApproval:        false,
	}
}

// Group is a circle of friends that hands out awards.
// Groups are never hard-deleted; deleting sets Status to "deleted".
type Group struct {
	ID          uint                              `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time                         `json:"created_at"`
	UpdatedAt   time.Time                         `json:"updated_at"`
	DeletedAt   gorm.DeletedAt                    `gorm:"index" json:"-"`
	Name        string                            `gorm:"not null" json:"name"`
	Description string                            `json:"description"`
	Icon        string                            `json:"icon"`
	Status      GroupStatus                       `gorm:"type:varchar(20);default:'active';index" json:"status"`
	InviteCode  string                            `gorm:"type:varchar(8);uniqueIndex;not null" json:"invite_code"`
	Settings    datatypes.JSONType[GroupSettings] `json:"settings"`
	CreatedByID uint                              `gorm:"not null" json:"created_by_id"`
	Version     uint                              `gorm:"not null;default:1" json:"version"`

	// Relationships
	Members []GroupMembership `gorm:"foreignKey:GroupID" json:"members,omitempty"`
	Awards  []Award           `gorm:"foreignKey:GroupID" json:"awards,omitempty"`
}

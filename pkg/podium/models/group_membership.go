package models

import (
	"time"
)

// GroupRole represents a user's role within a specific group
type GroupRole string

const (
	GroupRoleOwner  GroupRole = "owner"
	GroupRoleAdmin  GroupRole = "admin"
	GroupRoleMember GroupRole = "member"
)

// GroupMembership links a user to a group.
// Rows are never deleted: leaving or being removed clears IsActive, and
// re-joining reactivates the same row.
type GroupMembership struct {
	ID              uint       `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	UserID          uint       `gorm:"not null;uniqueIndex:idx_user_group" json:"user_id"`
	GroupID         uint       `gorm:"not null;uniqueIndex:idx_user_group;index" json:"group_id"`
	Role            GroupRole  `gorm:"type:varchar(20);default:'member'" json:"role"`
	IsActive        bool       `gorm:"not null" json:"is_active"`
	PendingApproval bool       `gorm:"not null;default:false" json:"pending_approval"`
	JoinedAt        time.Time  `json:"joined_at"`
	LeftAt          *time.Time `json:"left_at"`

	// Relationships
	User  User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Group Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}

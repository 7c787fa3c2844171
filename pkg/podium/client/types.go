package client

import (
	"time"

	"github.com/mikepea/podium/pkg/podium/models"
)

// User is the signed-in user's profile
type User struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	SystemRole  string `json:"system_role"`
}

// AuthResponse is returned by register, login and refresh
type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         User   `json:"user"`
}

// Group as seen by one of its members
type Group struct {
	ID          uint                 `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Icon        string               `json:"icon"`
	Status      models.GroupStatus   `json:"status"`
	InviteCode  string               `json:"invite_code,omitempty"`
	Settings    models.GroupSettings `json:"settings"`
	Role        models.GroupRole     `json:"role,omitempty"`
	MemberCount int                  `json:"member_count"`
	Version     uint                 `json:"version"`
	CreatedAt   time.Time            `json:"created_at"`
}

// CreateGroupInput creates a group. Nil Settings uses the server defaults.
type CreateGroupInput struct {
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Icon        string                `json:"icon,omitempty"`
	Settings    *models.GroupSettings `json:"settings,omitempty"`
}

// UpdateGroupInput changes the non-nil fields. Set Version to reject the
// update if someone else changed the group first.
type UpdateGroupInput struct {
	Name        *string               `json:"name,omitempty"`
	Description *string               `json:"description,omitempty"`
	Icon        *string               `json:"icon,omitempty"`
	Status      *models.GroupStatus   `json:"status,omitempty"`
	Settings    *models.GroupSettings `json:"settings,omitempty"`
	Version     *uint                 `json:"version,omitempty"`
}

// Member of a group
type Member struct {
	UserID          uint             `json:"user_id"`
	Email           string           `json:"email"`
	DisplayName     string           `json:"display_name"`
	AvatarURL       string           `json:"avatar_url,omitempty"`
	Role            models.GroupRole `json:"role"`
	PendingApproval bool             `json:"pending_approval,omitempty"`
	JoinedAt        time.Time        `json:"joined_at"`
}

// InvitePreview is what anyone holding an invite code may see
type InvitePreview struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	MemberCount int    `json:"member_count"`
	InviteCode  string `json:"invite_code"`
}

// Join outcomes reported by the server
const (
	JoinJoined          = "joined"
	JoinAlreadyMember   = "already_member"
	JoinPendingApproval = "pending_approval"
)

// JoinResult is the outcome of joining by invite code
type JoinResult struct {
	Status string `json:"status"`
	Group  Group  `json:"group"`
}

// Share carries an invite ready for the share sheet
type Share struct {
	InviteCode string `json:"invite_code"`
	DeepLink   string `json:"deep_link"`
	Message    string `json:"message"`
}

// Nominee in an award. VoteCount is nil until results are visible to the caller.
type Nominee struct {
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

// Award with its nominees
type Award struct {
	ID             uint                  `json:"id"`
	GroupID        uint                  `json:"group_id"`
	CreatedByID    uint                  `json:"created_by_id"`
	Name           string                `json:"name"`
	Description    string                `json:"description"`
	Icon           string                `json:"icon"`
	Status         models.AwardStatus    `json:"status"`
	VoteType       models.VoteType       `json:"vote_type"`
	VotingStartAt  *time.Time            `json:"voting_start_at,omitempty"`
	VotingEndAt    *time.Time            `json:"voting_end_at,omitempty"`
	VotingEndsIn   string                `json:"voting_ends_in,omitempty"`
	CompletedAt    *time.Time            `json:"completed_at,omitempty"`
	WinnerID       *uint                 `json:"winner_id,omitempty"`
	IsRevealed     bool                  `json:"is_revealed"`
	VotingSettings models.VotingSettings `json:"voting_settings"`
	Version        uint                  `json:"version"`
	NomineeCount   int                   `json:"nominee_count"`
	Nominees       []Nominee             `json:"nominees"`
	CreatedAt      time.Time             `json:"created_at"`
}

// NomineeInput nominates a group member
type NomineeInput struct {
	UserID   uint   `json:"user_id"`
	Reason   string `json:"reason,omitempty"`
	MediaURL string `json:"media_url,omitempty"`
	Text     string `json:"text,omitempty"`
}

// CreateAwardInput creates an award with its first nominees
type CreateAwardInput struct {
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	Icon           string                 `json:"icon,omitempty"`
	VoteType       models.VoteType        `json:"vote_type,omitempty"`
	VotingSettings *models.VotingSettings `json:"voting_settings,omitempty"`
	Nominees       []NomineeInput         `json:"nominees"`
}

// UpdateAwardInput changes the non-nil fields of an award
type UpdateAwardInput struct {
	Name           *string                `json:"name,omitempty"`
	Description    *string                `json:"description,omitempty"`
	Icon           *string                `json:"icon,omitempty"`
	VotingSettings *models.VotingSettings `json:"voting_settings,omitempty"`
	Version        *uint                  `json:"version,omitempty"`
}

// StatusInput moves an award through its lifecycle
type StatusInput struct {
	Status       models.AwardStatus `json:"status"`
	DeadlineMode string             `json:"deadline_mode,omitempty"`
	Deadline     string             `json:"deadline,omitempty"`
	Version      *uint              `json:"version,omitempty"`
}

// Vote is the caller's ballot in an award
type Vote struct {
	AwardID   uint      `json:"award_id"`
	NomineeID uint      `json:"nominee_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Voter appears in results of non-anonymous awards
type Voter struct {
	UserID      uint   `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// ResultEntry is one nominee's tally
type ResultEntry struct {
	NomineeID   uint    `json:"nominee_id"`
	UserID      uint    `json:"user_id"`
	DisplayName string  `json:"display_name"`
	VoteCount   int     `json:"vote_count"`
	IsWinner    bool    `json:"is_winner"`
	Voters      []Voter `json:"voters,omitempty"`
}

// Results of an award, highest count first
type Results struct {
	AwardID    uint          `json:"award_id"`
	Status     string        `json:"status"`
	TotalVotes int           `json:"total_votes"`
	Anonymous  bool          `json:"anonymous"`
	Results    []ResultEntry `json:"results"`
}

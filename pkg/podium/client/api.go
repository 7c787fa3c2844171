package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mikepea/podium/pkg/podium/lifecycle"
	"github.com/mikepea/podium/pkg/podium/models"
)

// Register creates an account. Most callers want Session.SignUp instead.
func (c *Client) Register(ctx context.Context, email, password, displayName string) (*AuthResponse, error) {
	var out AuthResponse
	in := map[string]string{"email": email, "password": password, "display_name": displayName}
	if err := c.do(ctx, http.MethodPost, "/auth/register", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token pair
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh rotates a refresh token. The old token stops working.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	var out AuthResponse
	in := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes a refresh token on the server
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", map[string]string{"refresh_token": refreshToken}, nil)
}

// ForgotPassword asks the server to mail a reset link
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/password/forgot", map[string]string{"email": email}, nil)
}

// ResetPassword sets a new password with a token from a reset email
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	in := map[string]string{"token": token, "new_password": newPassword}
	return c.do(ctx, http.MethodPost, "/auth/password/reset", in, nil)
}

// Me returns the signed-in user
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile changes the display name and/or avatar URL. Nil leaves a field alone.
func (c *Client) UpdateProfile(ctx context.Context, displayName, avatarURL *string) (*User, error) {
	in := map[string]*string{}
	if displayName != nil {
		in["display_name"] = displayName
	}
	if avatarURL != nil {
		in["avatar_url"] = avatarURL
	}
	var out User
	if err := c.do(ctx, http.MethodPut, "/auth/me", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword replaces the signed-in user's password
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	in := map[string]string{"current_password": current, "new_password": next}
	return c.do(ctx, http.MethodPut, "/auth/password", in, nil)
}

// UploadAvatar uploads a base64 image or data URI as the user's avatar
func (c *Client) UploadAvatar(ctx context.Context, image string) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodPost, "/auth/avatar", map[string]string{"image": image}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Groups lists the groups the user is an active member of
func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	var out []Group
	if err := c.do(ctx, http.MethodGet, "/groups", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateGroup creates a group owned by the user
func (c *Client) CreateGroup(ctx context.Context, in CreateGroupInput) (*Group, error) {
	var out Group
	if err := c.do(ctx, http.MethodPost, "/groups", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Group fetches one group
func (c *Client) Group(ctx context.Context, id uint) (*Group, error) {
	var out Group
	if err := c.do(ctx, http.MethodGet, groupPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateGroup changes group details or settings
func (c *Client) UpdateGroup(ctx context.Context, id uint, in UpdateGroupInput) (*Group, error) {
	var out Group
	if err := c.do(ctx, http.MethodPut, groupPath(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteGroup deletes a group. Only its owner may do this.
func (c *Client) DeleteGroup(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, groupPath(id), nil, nil)
}

// PreviewInvite shows the group behind an invite code without joining it.
// It needs no session.
func (c *Client) PreviewInvite(ctx context.Context, code string) (*InvitePreview, error) {
	var out InvitePreview
	if err := c.do(ctx, http.MethodGet, "/invites/"+url.PathEscape(code), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JoinGroup joins the group behind an invite code. Joining a group twice
// reports JoinAlreadyMember rather than an error.
func (c *Client) JoinGroup(ctx context.Context, code string) (*JoinResult, error) {
	var out JoinResult
	if err := c.do(ctx, http.MethodPost, "/groups/join", map[string]string{"invite_code": code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LeaveGroup leaves a group. Owners must transfer ownership first.
func (c *Client) LeaveGroup(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodPost, groupPath(id, "/leave"), nil, nil)
}

// TransferOwnership hands the group to another active member
func (c *Client) TransferOwnership(ctx context.Context, id, userID uint) error {
	return c.do(ctx, http.MethodPost, groupPath(id, "/transfer"), map[string]uint{"user_id": userID}, nil)
}

// RegenerateInviteCode replaces the group's invite code and returns the new one
func (c *Client) RegenerateInviteCode(ctx context.Context, id uint) (string, error) {
	var out struct {
		InviteCode string `json:"invite_code"`
	}
	if err := c.do(ctx, http.MethodPost, groupPath(id, "/invite-code"), nil, &out); err != nil {
		return "", err
	}
	return out.InviteCode, nil
}

// ShareGroup returns the invite message and deep link for a group
func (c *Client) ShareGroup(ctx context.Context, id uint) (*Share, error) {
	var out Share
	if err := c.do(ctx, http.MethodGet, groupPath(id, "/share"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Members lists a group's members
func (c *Client) Members(ctx context.Context, groupID uint) ([]Member, error) {
	var out []Member
	if err := c.do(ctx, http.MethodGet, groupPath(groupID, "/members"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateMemberRole promotes or demotes a member
func (c *Client) UpdateMemberRole(ctx context.Context, groupID, userID uint, role models.GroupRole) (*Member, error) {
	var out Member
	path := groupPath(groupID, fmt.Sprintf("/members/%d", userID))
	if err := c.do(ctx, http.MethodPut, path, map[string]models.GroupRole{"role": role}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveMember removes a member from a group
func (c *Client) RemoveMember(ctx context.Context, groupID, userID uint) error {
	return c.do(ctx, http.MethodDelete, groupPath(groupID, fmt.Sprintf("/members/%d", userID)), nil, nil)
}

// ApproveMember admits a member waiting for approval
func (c *Client) ApproveMember(ctx context.Context, groupID, userID uint) (*Member, error) {
	var out Member
	if err := c.do(ctx, http.MethodPost, groupPath(groupID, fmt.Sprintf("/members/%d/approve", userID)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Awards lists a group's awards
func (c *Client) Awards(ctx context.Context, groupID uint) ([]Award, error) {
	var out []Award
	if err := c.do(ctx, http.MethodGet, groupPath(groupID, "/awards"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAward creates an award in a group
func (c *Client) CreateAward(ctx context.Context, groupID uint, in CreateAwardInput) (*Award, error) {
	var out Award
	if err := c.do(ctx, http.MethodPost, groupPath(groupID, "/awards"), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Award fetches one award with its nominees
func (c *Client) Award(ctx context.Context, id uint) (*Award, error) {
	var out Award
	if err := c.do(ctx, http.MethodGet, awardPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAward changes award details
func (c *Client) UpdateAward(ctx context.Context, id uint, in UpdateAwardInput) (*Award, error) {
	var out Award
	if err := c.do(ctx, http.MethodPut, awardPath(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAward deletes an award with its nominees and votes
func (c *Client) DeleteAward(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, awardPath(id), nil, nil)
}

// UpdateAwardStatus moves an award to a new lifecycle status
func (c *Client) UpdateAwardStatus(ctx context.Context, id uint, in StatusInput) (*Award, error) {
	var out Award
	if err := c.do(ctx, http.MethodPut, awardPath(id, "/status"), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartVoting opens voting until a preset or custom deadline. custom is
// only read when mode is lifecycle.DeadlineCustom.
func (c *Client) StartVoting(ctx context.Context, id uint, mode lifecycle.DeadlineMode, custom string) (*Award, error) {
	in := StatusInput{Status: models.AwardStatusVoting, DeadlineMode: string(mode)}
	if mode == lifecycle.DeadlineCustom {
		in.Deadline = custom
	}
	return c.UpdateAwardStatus(ctx, id, in)
}

// AddNominee nominates a member for an award
func (c *Client) AddNominee(ctx context.Context, awardID uint, in NomineeInput) (*Nominee, error) {
	var out Nominee
	if err := c.do(ctx, http.MethodPost, awardPath(awardID, "/nominees"), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveNominee withdraws a nomination
func (c *Client) RemoveNominee(ctx context.Context, awardID, nomineeID uint) error {
	return c.do(ctx, http.MethodDelete, awardPath(awardID, fmt.Sprintf("/nominees/%d", nomineeID)), nil, nil)
}

// CastVote votes for a nominee. A second vote fails with ErrAlreadyVoted
// unless the award allows changing votes.
func (c *Client) CastVote(ctx context.Context, awardID, nomineeID uint) (*Vote, error) {
	var out Vote
	if err := c.do(ctx, http.MethodPost, awardPath(awardID, "/votes"), map[string]uint{"nominee_id": nomineeID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyVote returns the user's vote, or nil if they have not voted
func (c *Client) MyVote(ctx context.Context, awardID uint) (*Vote, error) {
	var out Vote
	err := c.do(ctx, http.MethodGet, awardPath(awardID, "/votes/me"), nil, &out)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeclareWinner closes voting and picks the winner
func (c *Client) DeclareWinner(ctx context.Context, awardID uint) (*Award, error) {
	var out Award
	if err := c.do(ctx, http.MethodPost, awardPath(awardID, "/winner"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevealWinner makes a completed award's result visible to every member
func (c *Client) RevealWinner(ctx context.Context, awardID uint) (*Award, error) {
	var out Award
	if err := c.do(ctx, http.MethodPost, awardPath(awardID, "/reveal"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Results returns the tally once it is visible to the caller
func (c *Client) Results(ctx context.Context, awardID uint) (*Results, error) {
	var out Results
	if err := c.do(ctx, http.MethodGet, awardPath(awardID, "/results"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

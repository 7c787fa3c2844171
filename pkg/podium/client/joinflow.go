package client

import (
	"context"
	"errors"
	"sync"

	"github.com/mikepea/podium/pkg/podium/invite"
)

// JoinState is a step of the invite link screens
type JoinState string

const (
	JoinStateLoading         JoinState = "loading"
	JoinStatePreview         JoinState = "preview"
	JoinStateJoining         JoinState = "joining"
	JoinStateSuccess         JoinState = "success"
	JoinStateAlreadyMember   JoinState = "already_member"
	JoinStatePendingApproval JoinState = "pending_approval"
	JoinStateError           JoinState = "error"
)

// ErrInvalidInvite is reported for codes that cannot be valid
var ErrInvalidInvite = errors.New("podium: invalid invite code")

// JoinFlow takes a user from an invite link to membership. Load shows the
// group behind the code to anyone. Join needs a signed-in session; without
// one it fails with ErrNotAuthenticated and the flow stays on the preview
// so the app can sign the user in and call Join again.
type JoinFlow struct {
	api     *Client
	session *Session

	mu      sync.Mutex
	state   JoinState
	gen     uint64
	code    string
	preview *InvitePreview
	result  *JoinResult
	err     error
}

// NewJoinFlow creates a flow. api is used unauthenticated for the preview.
func NewJoinFlow(api *Client, session *Session) *JoinFlow {
	return &JoinFlow{api: api, session: session, state: JoinStateLoading}
}

// State returns the current step
func (f *JoinFlow) State() JoinState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Preview returns the previewed group, once loaded
func (f *JoinFlow) Preview() *InvitePreview {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.preview
}

// Result returns the join outcome, once joined
func (f *JoinFlow) Result() *JoinResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// Err returns the error that put the flow in JoinStateError
func (f *JoinFlow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Load fetches the preview for code
func (f *JoinFlow) Load(ctx context.Context, code string) error {
	code = invite.Normalize(code)

	f.mu.Lock()
	f.gen++
	gen := f.gen
	f.state = JoinStateLoading
	f.code = code
	f.preview, f.result, f.err = nil, nil, nil
	f.mu.Unlock()

	if !invite.Valid(code) {
		return f.fail(gen, ErrInvalidInvite)
	}

	preview, err := f.api.PreviewInvite(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidInvite
		}
		return f.fail(gen, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gen != gen {
		return ErrSuperseded
	}
	f.state = JoinStatePreview
	f.preview = preview
	return nil
}

// Join joins the previewed group
func (f *JoinFlow) Join(ctx context.Context) (JoinState, error) {
	f.mu.Lock()
	if f.state != JoinStatePreview {
		state := f.state
		f.mu.Unlock()
		return state, errors.New("podium: nothing to join, load an invite first")
	}
	if f.session == nil || f.session.State() != StateAuthenticated {
		f.mu.Unlock()
		return JoinStatePreview, ErrNotAuthenticated
	}
	code, gen := f.code, f.gen
	f.state = JoinStateJoining
	f.mu.Unlock()

	result, err := f.session.Client().JoinGroup(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotAuthenticated) {
			f.mu.Lock()
			if f.gen == gen {
				f.state = JoinStatePreview
			}
			f.mu.Unlock()
			return JoinStatePreview, err
		}
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidInvite
		}
		return JoinStateError, f.fail(gen, err)
	}

	state := JoinStateSuccess
	switch result.Status {
	case JoinAlreadyMember:
		state = JoinStateAlreadyMember
	case JoinPendingApproval:
		state = JoinStatePendingApproval
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gen != gen {
		return f.state, ErrSuperseded
	}
	f.state = state
	f.result = result
	return state, nil
}

func (f *JoinFlow) fail(gen uint64, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gen != gen {
		return ErrSuperseded
	}
	f.state = JoinStateError
	f.err = err
	return err
}

package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/podium/pkg/podium/lifecycle"
	"github.com/mikepea/podium/pkg/podium/models"
	"github.com/mikepea/podium/pkg/podium/server"
	"github.com/mikepea/podium/pkg/podium/testutil"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.SetupTestDB(t)
	srv := httptest.NewServer(server.NewRouter(server.Deps{DB: db}))
	t.Cleanup(srv.Close)
	return srv, db
}

func signedIn(t *testing.T, srv *httptest.Server, email, name string) *Session {
	t.Helper()
	s := NewSession(New(srv.URL+"/api"), nil)
	if _, err := s.SignUp(context.Background(), email, "password123", name); err != nil {
		t.Fatalf("SignUp %s: %v", email, err)
	}
	t.Cleanup(s.Dispose)
	return s
}

func TestAPIErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    *APIError
		target error
		want   bool
	}{
		{"404", &APIError{Status: 404}, ErrNotFound, true},
		{"401", &APIError{Status: 401}, ErrUnauthorized, true},
		{"403", &APIError{Status: 403, Code: "not_eligible"}, ErrForbidden, true},
		{"already voted", &APIError{Status: 409, Code: "already_voted"}, ErrAlreadyVoted, true},
		{"already voted is a conflict", &APIError{Status: 409, Code: "already_voted"}, ErrConflict, true},
		{"stale version", &APIError{Status: 409, Code: "stale_version"}, ErrStaleVersion, true},
		{"group full", &APIError{Status: 409, Code: "group_full"}, ErrGroupFull, true},
		{"plain conflict", &APIError{Status: 409}, ErrConflict, true},
		{"plain conflict is not already voted", &APIError{Status: 409}, ErrAlreadyVoted, false},
		{"500", &APIError{Status: 500}, ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.want)
			}
		})
	}
}

func TestDecodeErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Me(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Message != "Bad Gateway" {
		t.Errorf("Unexpected error: %+v", apiErr)
	}
}

func TestUnauthenticatedClient(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := New(srv.URL + "/api").Groups(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestAwardFlowThroughClient(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	owner := signedIn(t, srv, "owner@example.com", "Owner").Client()
	alice := signedIn(t, srv, "alice@example.com", "Alice").Client()

	group, err := owner.CreateGroup(ctx, CreateGroupInput{Name: "Flatmates"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if group.Role != models.GroupRoleOwner || group.MemberCount != 1 {
		t.Errorf("Unexpected group: %+v", group)
	}

	preview, err := New(srv.URL+"/api").PreviewInvite(ctx, group.InviteCode)
	if err != nil {
		t.Fatalf("PreviewInvite: %v", err)
	}
	if preview.Name != "Flatmates" {
		t.Errorf("Expected preview of Flatmates, got %q", preview.Name)
	}

	joined, err := alice.JoinGroup(ctx, group.InviteCode)
	if err != nil {
		t.Fatalf("JoinGroup: %v", err)
	}
	if joined.Status != JoinJoined {
		t.Errorf("Expected joined, got %q", joined.Status)
	}
	again, err := alice.JoinGroup(ctx, group.InviteCode)
	if err != nil {
		t.Fatalf("JoinGroup again: %v", err)
	}
	if again.Status != JoinAlreadyMember {
		t.Errorf("Expected already_member, got %q", again.Status)
	}

	members, err := owner.Members(ctx, group.ID)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("Expected 2 members, got %d", len(members))
	}
	var ownerID, aliceID uint
	for _, m := range members {
		if m.Role == models.GroupRoleOwner {
			ownerID = m.UserID
		} else {
			aliceID = m.UserID
		}
	}

	award, err := owner.CreateAward(ctx, group.ID, CreateAwardInput{
		Name:     "Best Cook",
		Nominees: []NomineeInput{{UserID: ownerID}, {UserID: aliceID}},
	})
	if err != nil {
		t.Fatalf("CreateAward: %v", err)
	}
	if award.Status != models.AwardStatusDraft || len(award.Nominees) != 2 {
		t.Fatalf("Unexpected award: %+v", award)
	}

	award, err = owner.StartVoting(ctx, award.ID, lifecycle.Deadline24h, "")
	if err != nil {
		t.Fatalf("StartVoting: %v", err)
	}
	if award.Status != models.AwardStatusVoting || award.VotingEndAt == nil {
		t.Fatalf("Expected voting with a deadline, got %+v", award)
	}

	var ownerNominee uint
	for _, n := range award.Nominees {
		if n.UserID == ownerID {
			ownerNominee = n.ID
		}
	}

	if vote, err := alice.MyVote(ctx, award.ID); err != nil || vote != nil {
		t.Fatalf("Expected no vote yet, got %+v, %v", vote, err)
	}
	if _, err := alice.CastVote(ctx, award.ID, ownerNominee); err != nil {
		t.Fatalf("CastVote: %v", err)
	}
	_, err = alice.CastVote(ctx, award.ID, ownerNominee)
	if !errors.Is(err, ErrAlreadyVoted) || !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrAlreadyVoted, got %v", err)
	}
	vote, err := alice.MyVote(ctx, award.ID)
	if err != nil || vote == nil || vote.NomineeID != ownerNominee {
		t.Fatalf("Expected vote for %d, got %+v, %v", ownerNominee, vote, err)
	}

	if _, err := alice.Results(ctx, award.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected hidden results, got %v", err)
	}

	award, err = owner.DeclareWinner(ctx, award.ID)
	if err != nil {
		t.Fatalf("DeclareWinner: %v", err)
	}
	if award.WinnerID == nil || *award.WinnerID != ownerID {
		t.Errorf("Expected owner to win, got %v", award.WinnerID)
	}
	if _, err := owner.RevealWinner(ctx, award.ID); err != nil {
		t.Fatalf("RevealWinner: %v", err)
	}

	results, err := alice.Results(ctx, award.ID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if results.TotalVotes != 1 || len(results.Results) != 2 || results.Results[0].NomineeID != ownerNominee {
		t.Errorf("Unexpected results: %+v", results)
	}
}

func TestUpdateGroupStaleVersion(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	owner := signedIn(t, srv, "owner@example.com", "Owner").Client()

	group, err := owner.CreateGroup(ctx, CreateGroupInput{Name: "Climbers"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	name := "Boulderers"
	version := group.Version
	updated, err := owner.UpdateGroup(ctx, group.ID, UpdateGroupInput{Name: &name, Version: &version})
	if err != nil {
		t.Fatalf("UpdateGroup: %v", err)
	}
	if updated.Name != name || updated.Version != version+1 {
		t.Errorf("Unexpected group: %+v", updated)
	}

	_, err = owner.UpdateGroup(ctx, group.ID, UpdateGroupInput{Name: &name, Version: &version})
	if !errors.Is(err, ErrStaleVersion) {
		t.Errorf("Expected ErrStaleVersion, got %v", err)
	}
}

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/podium/pkg/podium/auth"
	"github.com/mikepea/podium/pkg/podium/awards"
	"github.com/mikepea/podium/pkg/podium/groups"
	"github.com/mikepea/podium/pkg/podium/models"
	"github.com/mikepea/podium/pkg/podium/testutil"
	"gorm.io/gorm"
)

func setupFullServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	gin.SetMode(gin.TestMode)
	db := testutil.SetupTestDB(t)
	return NewRouter(Deps{DB: db}), db
}

type client struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func (c *client) do(method, path string, body interface{}, out interface{}) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp := httptest.NewRecorder()
	c.router.ServeHTTP(resp, req)
	if out != nil {
		if err := json.Unmarshal(resp.Body.Bytes(), out); err != nil {
			c.t.Fatalf("%s %s: failed to decode %q: %v", method, path, resp.Body.String(), err)
		}
	}
	return resp.Code
}

func signUp(t *testing.T, router *gin.Engine, email, name string) *client {
	t.Helper()
	c := &client{t: t, router: router}
	var resp auth.AuthResponse
	code := c.do("POST", "/api/auth/register", auth.RegisterRequest{Email: email, Password: "password123", DisplayName: name}, &resp)
	if code != http.StatusCreated {
		t.Fatalf("Register %s: expected 201, got %d", email, code)
	}
	c.token = resp.Token
	return c
}

func TestHealth(t *testing.T) {
	router, _ := setupFullServer(t)
	c := &client{t: t, router: router}

	for _, path := range []string{"/health", "/api/health"} {
		if code := c.do("GET", path, nil, nil); code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, code)
		}
	}
}

func TestSwaggerDoc(t *testing.T) {
	router, _ := setupFullServer(t)
	c := &client{t: t, router: router}

	var doc map[string]interface{}
	if code := c.do("GET", "/swagger/doc.json", nil, &doc); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if doc["swagger"] != "2.0" {
		t.Errorf("Expected a swagger 2.0 document, got %v", doc["swagger"])
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router, _ := setupFullServer(t)
	c := &client{t: t, router: router}

	for _, path := range []string{"/api/groups", "/api/awards/1", "/api/auth/me", "/api/admin/stats"} {
		if code := c.do("GET", path, nil, nil); code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, code)
		}
	}
}

// TestAwardFlow walks a group from creation to a revealed winner
func TestAwardFlow(t *testing.T) {
	router, _ := setupFullServer(t)
	owner := signUp(t, router, "owner@example.com", "Olive")
	friend := signUp(t, router, "friend@example.com", "Fred")
	guest := &client{t: t, router: router}

	var group groups.GroupResponse
	if code := owner.do("POST", "/api/groups", groups.CreateGroupRequest{Name: "Book Club"}, &group); code != http.StatusCreated {
		t.Fatalf("Create group: expected 201, got %d", code)
	}

	var preview groups.InvitePreview
	if code := guest.do("GET", "/api/invites/"+group.InviteCode, nil, &preview); code != http.StatusOK {
		t.Fatalf("Preview: expected 200, got %d", code)
	}
	if preview.Name != "Book Club" {
		t.Errorf("Expected preview of Book Club, got %s", preview.Name)
	}

	var joined groups.JoinResponse
	if code := friend.do("POST", "/api/groups/join", groups.JoinRequest{InviteCode: group.InviteCode}, &joined); code != http.StatusCreated {
		t.Fatalf("Join: expected 201, got %d", code)
	}

	var members []groups.MemberResponse
	owner.do("GET", fmt.Sprintf("/api/groups/%d/members", group.ID), nil, &members)
	if len(members) != 2 {
		t.Fatalf("Expected 2 members, got %d", len(members))
	}
	ids := map[string]uint{}
	for _, m := range members {
		ids[m.Email] = m.UserID
	}

	var award awards.AwardResponse
	code := friend.do("POST", fmt.Sprintf("/api/groups/%d/awards", group.ID), awards.CreateAwardRequest{
		Name: "Best Reader",
		Nominees: []awards.NomineeInput{
			{UserID: ids["owner@example.com"]},
			{UserID: ids["friend@example.com"]},
		},
	}, &award)
	if code != http.StatusCreated {
		t.Fatalf("Create award: expected 201, got %d", code)
	}

	if code := friend.do("PUT", fmt.Sprintf("/api/awards/%d/status", award.ID), awards.UpdateStatusRequest{Status: "voting", DeadlineMode: "24h"}, nil); code != http.StatusForbidden {
		t.Errorf("Member starting voting: expected 403, got %d", code)
	}
	if code := owner.do("PUT", fmt.Sprintf("/api/awards/%d/status", award.ID), awards.UpdateStatusRequest{Status: "voting", DeadlineMode: "24h"}, &award); code != http.StatusOK {
		t.Fatalf("Start voting: expected 200, got %d", code)
	}

	ownerNominee, friendNominee := award.Nominees[0].ID, award.Nominees[1].ID
	if code := owner.do("POST", fmt.Sprintf("/api/awards/%d/votes", award.ID), awards.CastVoteRequest{NomineeID: friendNominee}, nil); code != http.StatusCreated {
		t.Fatalf("Owner vote: expected 201, got %d", code)
	}
	if code := friend.do("POST", fmt.Sprintf("/api/awards/%d/votes", award.ID), awards.CastVoteRequest{NomineeID: friendNominee}, nil); code != http.StatusForbidden {
		t.Errorf("Self vote: expected 403, got %d", code)
	}
	if code := friend.do("POST", fmt.Sprintf("/api/awards/%d/votes", award.ID), awards.CastVoteRequest{NomineeID: ownerNominee}, nil); code != http.StatusCreated {
		t.Fatalf("Friend vote: expected 201, got %d", code)
	}
	if code := friend.do("POST", fmt.Sprintf("/api/awards/%d/votes", award.ID), awards.CastVoteRequest{NomineeID: ownerNominee}, nil); code != http.StatusConflict {
		t.Errorf("Second vote: expected 409, got %d", code)
	}

	if code := owner.do("POST", fmt.Sprintf("/api/awards/%d/winner", award.ID), nil, nil); code != http.StatusOK {
		t.Fatalf("Declare winner: expected 200, got %d", code)
	}

	var hidden awards.AwardResponse
	friend.do("GET", fmt.Sprintf("/api/awards/%d", award.ID), nil, &hidden)
	if hidden.Status != "completed" || hidden.IsRevealed || hidden.WinnerID != nil {
		t.Errorf("Expected completed award with hidden winner, got %+v", hidden)
	}

	if code := owner.do("POST", fmt.Sprintf("/api/awards/%d/reveal", award.ID), nil, nil); code != http.StatusOK {
		t.Fatalf("Reveal: expected 200, got %d", code)
	}

	var revealed awards.AwardResponse
	friend.do("GET", fmt.Sprintf("/api/awards/%d", award.ID), nil, &revealed)
	// 1-1 tie: the owner was nominated first
	if revealed.WinnerID == nil || *revealed.WinnerID != ids["owner@example.com"] {
		t.Errorf("Expected owner to win the tie, got %v", revealed.WinnerID)
	}
}

func TestJoinRedirectRoute(t *testing.T) {
	router, db := setupFullServer(t)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	group := testutil.CreateTestGroup(t, db, "Office", owner.ID, models.DefaultGroupSettings())

	req := httptest.NewRequest("GET", "/join/"+group.InviteCode, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusFound {
		t.Fatalf("Expected 302, got %d", resp.Code)
	}
	if loc := resp.Header().Get("Location"); loc != "podium://join/"+group.InviteCode {
		t.Errorf("Unexpected Location %s", loc)
	}
}

func TestUploadsServed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	router := NewRouter(Deps{DB: testutil.SetupTestDB(t), UploadDir: dir})

	req := httptest.NewRequest("GET", "/uploads/a.txt", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK || resp.Body.String() != "hi" {
		t.Errorf("Expected uploaded file, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestEnsureAdminExists(t *testing.T) {
	db := testutil.SetupTestDB(t)

	created, err := EnsureAdminExists(db, "Admin@Podium.local", "changeme")
	if err != nil || !created {
		t.Fatalf("Expected admin to be created, got %v %v", created, err)
	}

	created, err = EnsureAdminExists(db, "other@podium.local", "changeme")
	if err != nil || created {
		t.Errorf("Expected no second admin, got %v %v", created, err)
	}

	var admin models.User
	db.Where("system_role = ?", models.SystemRoleAdmin).First(&admin)
	if admin.Email != "admin@podium.local" {
		t.Errorf("Expected lowercased email, got %s", admin.Email)
	}
}

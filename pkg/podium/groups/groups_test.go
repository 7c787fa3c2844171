package groups

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/podium/pkg/podium/auth"
	"github.com/mikepea/podium/pkg/podium/models"
	"github.com/mikepea/podium/pkg/podium/testutil"
	"gorm.io/gorm"
)

func setupTestRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		t.Fatalf("Failed to register validators: %v", err)
	}
	r := gin.New()
	handler := NewHandler(db)

	groups := r.Group("/groups")
	groups.Use(auth.AuthMiddleware())
	handler.RegisterRoutes(groups)
	handler.RegisterMemberRoutes(groups)

	handler.RegisterPublicRoutes(r.Group("/invites"))

	return r
}

func doRequest(router *gin.Engine, method, path string, body interface{}, user *models.User) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", testutil.AuthHeader(*user))
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func idPath(prefix string, id uint, suffix string) string {
	return fmt.Sprintf("%s/%d%s", prefix, id, suffix)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestCreateGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(t, db)
	user := testutil.CreateTestUser(t, db, "test@example.com")

	resp := doRequest(router, "POST", "/groups", CreateGroupRequest{Name: "Office", Description: "Desk neighbours"}, &user)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response GroupResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.Name != "Office" {
		t.Errorf("Expected name 'Office', got '%s'", response.Name)
	}
	if response.Role != "owner" {
		t.Errorf("Expected role 'owner', got '%s'", response.Role)
	}
	if len(response.InviteCode) != 8 || strings.ToUpper(response.InviteCode) != response.InviteCode {
		t.Errorf("Expected 8-char uppercase invite code, got '%s'", response.InviteCode)
	}
	if response.MemberCount != 1 {
		t.Errorf("Expected 1 member, got %d", response.MemberCount)
	}
	if response.Settings != models.DefaultGroupSettings() {
		t.Errorf("Expected default settings, got %+v", response.Settings)
	}

	var owners int64
	db.Model(&models.GroupMembership{}).Where("group_id = ? AND role = ?", response.ID, models.GroupRoleOwner).Count(&owners)
	if owners != 1 {
		t.Errorf("Expected exactly one owner, got %d", owners)
	}
}

func TestCreateGroupRequiresName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(t, db)
	user := testutil.CreateTestUser(t, db, "test@example.com")

	for _, name := range []string{"", "   "} {
		resp := doRequest(router, "POST", "/groups", CreateGroupRequest{Name: name}, &user)
		if resp.Code != http.StatusBadRequest {
			t.Errorf("name %q: expected status 400, got %d", name, resp.Code)
		}
	}

	var count int64
	db.Model(&models.Group{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no groups to be created, got %d", count)
	}
}

func TestListGroupsExcludesDeletedAndLeft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(t, db)
	user := testutil.CreateTestUser(t, db, "test@example.com")
	other := testutil.CreateTestUser(t, db, "other@example.com")

	testutil.CreateTestGroup(t, db, "Kept", user.ID, models.DefaultGroupSettings())
	deleted := testutil.CreateTestGroup(t, db, "Deleted", user.ID, models.DefaultGroupSettings())
	db.Model(&deleted).Update("status", models.GroupStatusDeleted)
	left := testutil.CreateTestGroup(t, db, "Left", other.ID, models.DefaultGroupSettings())
	m := testutil.AddTestMember(t, db, left.ID, user.ID, models.GroupRoleMember)
	db.Model(&m).Update("is_active", false)

	resp := doRequest(router, "GET", "/groups", nil, &user)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var groups []GroupResponse
	json.Unmarshal(resp.Body.Bytes(), &groups)
	if len(groups) != 1 || groups[0].Name != "Kept" {
		t.Errorf("Expected only 'Kept', got %+v", groups)
	}
}

func TestGetGroupNonMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(t, db)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	stranger := testutil.CreateTestUser(t, db, "stranger@example.com")
	group := testutil.CreateTestGroup(t, db, "Private", owner.ID, models.DefaultGroupSettings())

	resp := doRequest(router, "GET", idPath("/groups", group.ID, ""), nil, &stranger)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}

	resp = doRequest(router, "GET", "/groups/999", nil, &owner)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown group, got %d", resp.Code)
	}
}

func TestUpdateGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(t, db)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	member := testutil.CreateTestUser(t, db, "member@example.com")
	group := testutil.CreateTestGroup(t, db, "Office", owner.ID, models.DefaultGroupSettings())
	testutil.AddTestMember(t, db, group.ID, member.ID, models.GroupRoleMember)

	name := "Renamed"
	resp := doRequest(router, "PUT", idPath("/groups", group.ID, ""), UpdateGroupRequest{Name: &name}, &member)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for member, got %d", resp.Code)
	}

	settings := models.GroupSettings{AllowMemberNominations: false, AllowMemberVoting: true, MaxMembers: 10}
	resp = doRequest(router, "PUT", idPath("/groups", group.ID, ""), UpdateGroupRequest{Name: &name, Settings: &settings}, &owner)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response GroupResponse
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.Name != "Renamed" {
		t.Errorf("Expected name 'Renamed', got '%s'", response.Name)
	}
	if response.Settings != settings {
		t.Errorf("Expected settings %+v, got %+v", settings, response.Settings)
	}
	if response.Version != 2 {
		t.Errorf("Expected version 2, got %d", response.Version)
	}
}

func TestUpdateGroupStaleVersion(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(t, db)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	group := testutil.CreateTestGroup(t, db, "Office", owner.ID, models.DefaultGroupSettings())

	first, second := "First", "Second"
	version := uint(1)

	resp := doRequest(router, "PUT", idPath("/groups", group.ID, ""), UpdateGroupRequest{Name: &first, Version: &version}, &owner)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	resp = doRequest(router, "PUT", idPath("/groups", group.ID, ""), UpdateGroupRequest{Name: &second, Version: &version}, &owner)
	if resp.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "stale_version") {
		t.Errorf("Expected stale_version code, got %s", resp.Body.String())
	}

	var stored models.Group
	db.First(&stored, group.ID)
	if stored.Name != "First" {
		t.Errorf("Expected first write to survive, got '%s'", stored.Name)
	}
}

func TestDeleteGroupOwnerOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(t, db)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	admin := testutil.CreateTestUser(t, db, "admin@example.com")
	group := testutil.CreateTestGroup(t, db, "Office", owner.ID, models.DefaultGroupSettings())
	testutil.AddTestMember(t, db, group.ID, admin.ID, models.GroupRoleAdmin)

	resp := doRequest(router, "DELETE", idPath("/groups", group.ID, ""), nil, &admin)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for admin, got %d", resp.Code)
	}

	resp = doRequest(router, "DELETE", idPath("/groups", group.ID, ""), nil, &owner)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var stored models.Group
	db.First(&stored, group.ID)
	if stored.Status != models.GroupStatusDeleted {
		t.Errorf("Expected status deleted, got %s", stored.Status)
	}

	resp = doRequest(router, "GET", idPath("/groups", group.ID, ""), nil, &owner)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected deleted group to be hidden, got %d", resp.Code)
	}
}

func TestJoinGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(t, db)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	joiner := testutil.CreateTestUser(t, db, "joiner@example.com")
	group := testutil.CreateTestGroup(t, db, "Office", owner.ID, models.DefaultGroupSettings())

	// Codes are matched case-insensitively
	resp := doRequest(router, "POST", "/groups/join", JoinRequest{InviteCode: strings.ToLower(group.InviteCode)}, &joiner)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response JoinResponse
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.Status != JoinJoined {
		t.Errorf("Expected status joined, got %s", response.Status)
	}
	if response.Group.Role != "member" {
		t.Errorf("Expected role member, got %s", response.Group.Role)
	}

	// Joining again is idempotent
	resp = doRequest(router, "POST", "/groups/join", JoinRequest{InviteCode: group.InviteCode}, &joiner)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.Status != JoinAlreadyMember {
		t.Errorf("Expected already_member, got %s", response.Status)
	}

	var count int64
	db.Model(&models.GroupMembership{}).Where("group_id = ?", group.ID).Count(&count)
	if count != 2 {
		t.Errorf("Expected 2 memberships, got %d", count)
	}
}

func TestJoinGroupInvalidCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(t, db)
	user := testutil.CreateTestUser(t, db, "user@example.com")

	resp := doRequest(router, "POST", "/groups/join", JoinRequest{InviteCode: "ABC"}, &user)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed code, got %d", resp.Code)
	}

	resp = doRequest(router, "POST", "/groups/join", JoinRequest{InviteCode: "ZZZZ9999"}, &user)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown code, got %d", resp.Code)
	}
}

func TestJoinGroupFull(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(t, db)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	joiner := testutil.CreateTestUser(t, db, "joiner@example.com")
	settings := models.DefaultGroupSettings()
	settings.MaxMembers = 1
	group := testutil.CreateTestGroup(t, db, "Tiny", owner.ID, settings)

	resp := doRequest(router, "POST", "/groups/join", JoinRequest{InviteCode: group.InviteCode}, &joiner)
	if resp.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "group_full") {
		t.Errorf("Expected group_full code, got %s", resp.Body.String())
	}
}

func TestJoinRequiresApproval(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(t, db)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	joiner := testutil.CreateTestUser(t, db, "joiner@example.com")
	settings := models.DefaultGroupSettings()
	settings.RequireApproval = true
	group := testutil.CreateTestGroup(t, db, "Gated", owner.ID, settings)

	resp := doRequest(router, "POST", "/groups/join", JoinRequest{InviteCode: group.InviteCode}, &joiner)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", resp.Code, resp.Body.String())
	}

	// Pending members cannot see the group yet
	resp = doRequest(router, "GET", idPath("/groups", group.ID, ""), nil, &joiner)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 while pending, got %d", resp.Code)
	}

	resp = doRequest(router, "POST", idPath("/groups", group.ID, "/members/"+itoa(joiner.ID)+"/approve"), nil, &owner)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on approve, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doRequest(router, "GET", idPath("/groups", group.ID, ""), nil, &joiner)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200 after approval, got %d", resp.Code)
	}
}

func TestRejoinReactivatesMembership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(t, db)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	member := testutil.CreateTestUser(t, db, "member@example.com")
	group := testutil.CreateTestGroup(t, db, "Office", owner.ID, models.DefaultGroupSettings())
	original := testutil.AddTestMember(t, db, group.ID, member.ID, models.GroupRoleAdmin)

	resp := doRequest(router, "POST", idPath("/groups", group.ID, "/leave"), nil, &member)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on leave, got %d", resp.Code)
	}

	resp = doRequest(router, "POST", "/groups/join", JoinRequest{InviteCode: group.InviteCode}, &member)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 on rejoin, got %d: %s", resp.Code, resp.Body.String())
	}

	var memberships []models.GroupMembership
	db.Where("group_id = ? AND user_id = ?", group.ID, member.ID).Find(&memberships)
	if len(memberships) != 1 {
		t.Fatalf("Expected a single membership row, got %d", len(memberships))
	}
	if memberships[0].ID != original.ID || !memberships[0].IsActive || memberships[0].LeftAt != nil {
		t.Errorf("Expected original row reactivated, got %+v", memberships[0])
	}
	if memberships[0].Role != models.GroupRoleMember {
		t.Errorf("Expected rejoin as member, got %s", memberships[0].Role)
	}
}

func TestOwnerCannotLeave(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(t, db)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	group := testutil.CreateTestGroup(t, db, "Office", owner.ID, models.DefaultGroupSettings())

	resp := doRequest(router, "POST", idPath("/groups", group.ID, "/leave"), nil, &owner)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}

func TestTransferOwnership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(t, db)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	member := testutil.CreateTestUser(t, db, "member@example.com")
	group := testutil.CreateTestGroup(t, db, "Office", owner.ID, models.DefaultGroupSettings())
	testutil.AddTestMember(t, db, group.ID, member.ID, models.GroupRoleMember)

	resp := doRequest(router, "POST", idPath("/groups", group.ID, "/transfer"), TransferOwnershipRequest{UserID: member.ID}, &owner)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var roles []models.GroupMembership
	db.Where("group_id = ?", group.ID).Find(&roles)
	for _, m := range roles {
		switch m.UserID {
		case owner.ID:
			if m.Role != models.GroupRoleAdmin {
				t.Errorf("Expected old owner to be admin, got %s", m.Role)
			}
		case member.ID:
			if m.Role != models.GroupRoleOwner {
				t.Errorf("Expected new owner, got %s", m.Role)
			}
		}
	}
}

func TestUpdateMemberRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(t, db)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	admin := testutil.CreateTestUser(t, db, "admin@example.com")
	member := testutil.CreateTestUser(t, db, "member@example.com")
	group := testutil.CreateTestGroup(t, db, "Office", owner.ID, models.DefaultGroupSettings())
	testutil.AddTestMember(t, db, group.ID, admin.ID, models.GroupRoleAdmin)
	testutil.AddTestMember(t, db, group.ID, member.ID, models.GroupRoleMember)

	tests := []struct {
		name   string
		actor  models.User
		target models.User
		role   string
		want   int
	}{
		{"member cannot manage", member, admin, "member", http.StatusForbidden},
		{"admin cannot demote owner", admin, owner, "member", http.StatusForbidden},
		{"admin promotes member", admin, member, "admin", http.StatusOK},
		{"nobody manages self", admin, admin, "member", http.StatusForbidden},
		{"owner role not assignable", owner, member, "owner", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := tt.actor
			path := idPath("/groups", group.ID, "/members/"+itoa(tt.target.ID))
			resp := doRequest(router, "PUT", path, UpdateMemberRequest{Role: tt.role}, &actor)
			if resp.Code != tt.want {
				t.Errorf("Expected status %d, got %d: %s", tt.want, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestRemoveMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(t, db)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	member := testutil.CreateTestUser(t, db, "member@example.com")
	group := testutil.CreateTestGroup(t, db, "Office", owner.ID, models.DefaultGroupSettings())
	testutil.AddTestMember(t, db, group.ID, member.ID, models.GroupRoleMember)

	resp := doRequest(router, "DELETE", idPath("/groups", group.ID, "/members/"+itoa(member.ID)), nil, &owner)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	resp = doRequest(router, "GET", idPath("/groups", group.ID, "/members"), nil, &owner)
	var members []MemberResponse
	json.Unmarshal(resp.Body.Bytes(), &members)
	if len(members) != 1 || members[0].UserID != owner.ID {
		t.Errorf("Expected only the owner to remain, got %+v", members)
	}
}

func TestRegenerateInviteCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(t, db)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	joiner := testutil.CreateTestUser(t, db, "joiner@example.com")
	group := testutil.CreateTestGroup(t, db, "Office", owner.ID, models.DefaultGroupSettings())

	resp := doRequest(router, "POST", idPath("/groups", group.ID, "/invite-code"), nil, &owner)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	var body map[string]string
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body["invite_code"] == group.InviteCode {
		t.Error("Expected a new invite code")
	}

	resp = doRequest(router, "POST", "/groups/join", JoinRequest{InviteCode: group.InviteCode}, &joiner)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected old code to stop working, got %d", resp.Code)
	}
}

func TestShareAndPreview(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := setupTestRouter(t, db)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	group := testutil.CreateTestGroup(t, db, "Office", owner.ID, models.DefaultGroupSettings())

	resp := doRequest(router, "GET", idPath("/groups", group.ID, "/share"), nil, &owner)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	var share ShareResponse
	json.Unmarshal(resp.Body.Bytes(), &share)
	if share.DeepLink != "podium://join/"+group.InviteCode {
		t.Errorf("Unexpected deep link %s", share.DeepLink)
	}
	if !strings.Contains(share.Message, group.InviteCode) {
		t.Errorf("Expected share message to contain the code, got %s", share.Message)
	}

	// Preview is public
	resp = doRequest(router, "GET", "/invites/"+strings.ToLower(group.InviteCode), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	var preview InvitePreview
	json.Unmarshal(resp.Body.Bytes(), &preview)
	if preview.Name != "Office" || preview.MemberCount != 1 {
		t.Errorf("Unexpected preview %+v", preview)
	}

	resp = doRequest(router, "GET", "/invites/NOPE0000", nil, nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

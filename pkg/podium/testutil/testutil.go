// Package testutil holds helpers shared by the handler tests.
package testutil

import (
	"testing"

	"github.com/mikepea/podium/pkg/podium/auth"
	"github.com/mikepea/podium/pkg/podium/invite"
	"github.com/mikepea/podium/pkg/podium/models"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupTestDB creates a migrated in-memory SQLite database.
// The pool is pinned to one connection so every query sees the same memory database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// CreateTestUser inserts a user with the password "password123"
func CreateTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	hash, _ := auth.HashPassword("password123")
	user := models.User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  "Test User",
		SystemRole:   models.SystemRoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// CreateTestGroup inserts an active group owned by ownerID
func CreateTestGroup(t *testing.T, db *gorm.DB, name string, ownerID uint, settings models.GroupSettings) models.Group {
	t.Helper()
	code, err := invite.Generate()
	if err != nil {
		t.Fatalf("Failed to generate invite code: %v", err)
	}
	group := models.Group{
		Name:        name,
		Status:      models.GroupStatusActive,
		InviteCode:  code,
		Settings:    datatypes.NewJSONType(settings),
		CreatedByID: ownerID,
		Version:     1,
	}
	if err := db.Create(&group).Error; err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}
	AddTestMember(t, db, group.ID, ownerID, models.GroupRoleOwner)
	return group
}

// AddTestMember inserts an active membership
func AddTestMember(t *testing.T, db *gorm.DB, groupID, userID uint, role models.GroupRole) models.GroupMembership {
	t.Helper()
	membership := models.GroupMembership{
		UserID:   userID,
		GroupID:  groupID,
		Role:     role,
		IsActive: true,
	}
	if err := db.Create(&membership).Error; err != nil {
		t.Fatalf("Failed to create test membership: %v", err)
	}
	return membership
}

// AuthHeader returns a bearer header for user
func AuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(user.ID, user.Email, string(user.SystemRole))
	return "Bearer " + token
}

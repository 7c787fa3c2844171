package server

import (
	"log"
	"strings"

	"github.com/mikepea/podium/pkg/podium/auth"
	"github.com/mikepea/podium/pkg/podium/models"
	"gorm.io/gorm"
)

// EnsureAdminExists creates a system admin with the given credentials if the
// database has none. It reports whether a user was created.
func EnsureAdminExists(db *gorm.DB, email, password string) (bool, error) {
	var count int64
	if err := db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}

	admin := models.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		DisplayName:  "Admin",
		PasswordHash: hashedPassword,
		SystemRole:   models.SystemRoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return false, err
	}

	log.Printf("Created default admin user: %s", admin.Email)
	return true, nil
}

package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var DB *gorm.DB

// Config returns the GORM configuration shared by the server and tests.
// TranslateError maps driver errors to gorm.ErrDuplicatedKey and friends,
// which the vote and join handlers rely on.
func Config() *gorm.Config {
	return &gorm.Config{TranslateError: true}
}

// Open opens a database connection for the given driver without touching the
// package-level handle.
func Open(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case DriverSQLite, "":
		return gorm.Open(sqlite.Open(dsn), Config())
	case DriverPostgres:
		return gorm.Open(postgres.Open(dsn), Config())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Connect initializes the database connection.
func Connect(driver, dsn string) error {
	db, err := Open(driver, dsn)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// GetDB returns the database instance.
func GetDB() *gorm.DB {
	return DB
}

// Package config binds server settings to command line flags and environment
// variables.
package config

import (
	"time"

	"github.com/urfave/cli/v2"
)

// Config holds everything the server needs at start-up
type Config struct {
	DBDriver string
	DBDSN    string
	Port     string
	BaseURL  string

	JWTSecret string
	AccessTTL time.Duration

	RedisURL string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	ResetURL     string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
	UploadDir           string

	AdminEmail    string
	AdminPassword string
}

// Flags returns the CLI flags, each also readable from the environment
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "db-driver", Value: "sqlite", Usage: "database driver (sqlite or postgres)", EnvVars: []string{"PODIUM_DB_DRIVER"}},
		&cli.StringFlag{Name: "db-dsn", Value: "podium.db", Usage: "database DSN or SQLite path", EnvVars: []string{"PODIUM_DB_DSN", "PODIUM_DB_PATH"}},
		&cli.StringFlag{Name: "port", Value: "8080", Usage: "HTTP listen port", EnvVars: []string{"PORT"}},
		&cli.StringFlag{Name: "base-url", Value: "http://localhost:8080", Usage: "public base URL of the server", EnvVars: []string{"PODIUM_BASE_URL"}},

		&cli.StringFlag{Name: "jwt-secret", Usage: "access token signing secret", EnvVars: []string{"JWT_SECRET"}},
		&cli.DurationFlag{Name: "access-ttl", Value: time.Hour, Usage: "access token lifetime", EnvVars: []string{"PODIUM_ACCESS_TTL"}},

		&cli.StringFlag{Name: "redis-url", Usage: "Redis URL for refresh sessions; in-memory when empty", EnvVars: []string{"REDIS_URL"}},

		&cli.StringFlag{Name: "smtp-host", Usage: "SMTP host; reset mails are only logged when empty", EnvVars: []string{"SMTP_HOST"}},
		&cli.IntFlag{Name: "smtp-port", Value: 587, EnvVars: []string{"SMTP_PORT"}},
		&cli.StringFlag{Name: "smtp-user", EnvVars: []string{"SMTP_USER"}},
		&cli.StringFlag{Name: "smtp-password", EnvVars: []string{"SMTP_PASSWORD"}},
		&cli.StringFlag{Name: "smtp-from", EnvVars: []string{"SMTP_FROM"}},
		&cli.StringFlag{Name: "reset-url", Value: "podium://reset-password", Usage: "link target of password reset mails", EnvVars: []string{"PODIUM_RESET_URL"}},

		&cli.StringFlag{Name: "cloudinary-cloud-name", EnvVars: []string{"CLOUDINARY_CLOUD_NAME"}},
		&cli.StringFlag{Name: "cloudinary-api-key", EnvVars: []string{"CLOUDINARY_API_KEY"}},
		&cli.StringFlag{Name: "cloudinary-api-secret", EnvVars: []string{"CLOUDINARY_API_SECRET"}},
		&cli.StringFlag{Name: "cloudinary-folder", Value: "podium", EnvVars: []string{"CLOUDINARY_FOLDER"}},
		&cli.StringFlag{Name: "upload-dir", Usage: "serve uploads from this directory when Cloudinary is not configured", EnvVars: []string{"PODIUM_UPLOAD_DIR"}},

		&cli.StringFlag{Name: "admin-email", Value: "admin@podium.local", Usage: "email of the bootstrap system admin", EnvVars: []string{"PODIUM_ADMIN_EMAIL"}},
		&cli.StringFlag{Name: "admin-password", Value: "changeme", EnvVars: []string{"PODIUM_ADMIN_PASSWORD"}},
	}
}

// FromContext reads a Config from parsed flags
func FromContext(c *cli.Context) Config {
	return Config{
		DBDriver:            c.String("db-driver"),
		DBDSN:               c.String("db-dsn"),
		Port:                c.String("port"),
		BaseURL:             c.String("base-url"),
		JWTSecret:           c.String("jwt-secret"),
		AccessTTL:           c.Duration("access-ttl"),
		RedisURL:            c.String("redis-url"),
		SMTPHost:            c.String("smtp-host"),
		SMTPPort:            c.Int("smtp-port"),
		SMTPUser:            c.String("smtp-user"),
		SMTPPassword:        c.String("smtp-password"),
		SMTPFrom:            c.String("smtp-from"),
		ResetURL:            c.String("reset-url"),
		CloudinaryCloudName: c.String("cloudinary-cloud-name"),
		CloudinaryAPIKey:    c.String("cloudinary-api-key"),
		CloudinaryAPISecret: c.String("cloudinary-api-secret"),
		CloudinaryFolder:    c.String("cloudinary-folder"),
		UploadDir:           c.String("upload-dir"),
		AdminEmail:          c.String("admin-email"),
		AdminPassword:       c.String("admin-password"),
	}
}

// CloudinaryEnabled reports whether all Cloudinary credentials are set
func (c Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

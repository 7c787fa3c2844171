package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/mikepea/podium/pkg/podium/auth"
	"github.com/mikepea/podium/pkg/podium/config"
	"github.com/mikepea/podium/pkg/podium/database"
	"github.com/mikepea/podium/pkg/podium/mail"
	"github.com/mikepea/podium/pkg/podium/models"
	"github.com/mikepea/podium/pkg/podium/server"
	"github.com/mikepea/podium/pkg/podium/storage"
	"github.com/urfave/cli/v2"
)

// @title Podium API
// @version 1.0
// @description Group award nominations and voting among friends.

// @contact.name Podium Support
// @contact.url https://github.com/mikepea/podium

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT access token. Format: "Bearer {token}"

func main() {
	// A missing .env is fine; real deployments use the environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env: %v", err)
	}

	app := &cli.App{
		Name:   "podium-server",
		Usage:  "serve the Podium awards API",
		Flags:  config.Flags(),
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg := config.FromContext(c)

	auth.Configure(auth.TokenSettings{Secret: cfg.JWTSecret, AccessTTL: cfg.AccessTTL})

	if err := database.Connect(cfg.DBDriver, cfg.DBDSN); err != nil {
		return cli.Exit("Failed to connect to database: "+err.Error(), 1)
	}
	db := database.GetDB()

	if err := models.AutoMigrate(db); err != nil {
		return cli.Exit("Failed to run migrations: "+err.Error(), 1)
	}
	log.Println("Database migrations completed")

	if _, err := server.EnsureAdminExists(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return cli.Exit("Failed to ensure admin user exists: "+err.Error(), 1)
	}

	sessions, err := sessionStore(c.Context, cfg)
	if err != nil {
		return cli.Exit("Failed to connect to Redis: "+err.Error(), 1)
	}

	deps := server.Deps{
		DB:       db,
		Sessions: sessions,
		Mailer:   mailer(cfg),
		Uploader: uploader(cfg),
		ResetURL: cfg.ResetURL,
	}
	if !cfg.CloudinaryEnabled() && cfg.UploadDir != "" {
		deps.UploadDir = cfg.UploadDir
	}

	r := server.NewRouter(deps)

	log.Printf("Starting Podium server on :%s", cfg.Port)
	return r.Run(":" + cfg.Port)
}

func sessionStore(ctx context.Context, cfg config.Config) (auth.SessionStore, error) {
	if cfg.RedisURL == "" {
		log.Println("REDIS_URL not set - refresh sessions are kept in memory")
		return auth.NewMemorySessionStore(), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	log.Println("Refresh sessions stored in Redis")
	return auth.NewRedisSessionStore(client), nil
}

func mailer(cfg config.Config) mail.Mailer {
	if cfg.SMTPHost == "" {
		log.Println("SMTP_HOST not set - password reset mails are only logged")
		return mail.LogMailer{}
	}
	return mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

func uploader(cfg config.Config) storage.Uploader {
	if cfg.CloudinaryEnabled() {
		return &storage.CloudinaryUploader{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
		}
	}
	if cfg.UploadDir != "" {
		return storage.NewLocalUploader(cfg.UploadDir, strings.TrimSuffix(cfg.BaseURL, "/"))
	}
	log.Println("No upload storage configured - avatar uploads are disabled")
	return nil
}

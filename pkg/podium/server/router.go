// Package server assembles the HTTP API.
package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/podium/pkg/podium/admin"
	"github.com/mikepea/podium/pkg/podium/auth"
	"github.com/mikepea/podium/pkg/podium/awards"
	"github.com/mikepea/podium/pkg/podium/groups"
	"github.com/mikepea/podium/pkg/podium/mail"
	"github.com/mikepea/podium/pkg/podium/redirect"
	"github.com/mikepea/podium/pkg/podium/storage"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "github.com/mikepea/podium/api/swagger"
)

// Deps are the collaborators the router wires into handlers.
// Only DB is required.
type Deps struct {
	DB       *gorm.DB
	Sessions auth.SessionStore
	Mailer   mail.Mailer
	Uploader storage.Uploader
	ResetURL string
	// UploadDir is served at /uploads when set
	UploadDir string
}

// NewRouter builds the gin engine with every route registered
func NewRouter(deps Deps) *gin.Engine {
	if err := groups.RegisterValidators(); err != nil {
		log.Printf("Failed to register validators: %v", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if gin.Mode() != gin.TestMode {
		r.Use(gin.Logger())
	}

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if deps.UploadDir != "" {
		r.Static("/uploads", deps.UploadDir)
	}

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"service": "podium",
			})
		})

		// Auth routes (public, /me and friends check the token themselves)
		authHandler := auth.NewHandler(deps.DB, auth.Options{
			Sessions: deps.Sessions,
			Mailer:   deps.Mailer,
			Uploader: deps.Uploader,
			ResetURL: deps.ResetURL,
		})
		authHandler.RegisterRoutes(api.Group("/auth"))

		groupsHandler := groups.NewHandler(deps.DB)
		groupsHandler.RegisterPublicRoutes(api.Group("/invites"))

		awardsHandler := awards.NewHandler(deps.DB)

		groupsGroup := api.Group("/groups")
		groupsGroup.Use(auth.AuthMiddleware())
		groupsHandler.RegisterRoutes(groupsGroup)
		groupsHandler.RegisterMemberRoutes(groupsGroup)
		awardsHandler.RegisterGroupRoutes(groupsGroup)

		awardsGroup := api.Group("/awards")
		awardsGroup.Use(auth.AuthMiddleware())
		awardsHandler.RegisterRoutes(awardsGroup)

		// Admin routes (system admin role required)
		adminHandler := admin.NewHandler(deps.DB)
		adminGroup := api.Group("/admin")
		adminGroup.Use(auth.AuthMiddleware(), auth.RequireAdmin())
		adminHandler.RegisterRoutes(adminGroup)
	}

	// Web fallback for shared invite links
	redirect.NewHandler(deps.DB).RegisterRoutes(r)

	return r
}

package redirect

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/podium/pkg/podium/invite"
	"github.com/mikepea/podium/pkg/podium/models"
	"gorm.io/gorm"
)

// Handler sends shared invite links into the app
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new redirect handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// Join redirects a web invite link to the app's deep link.
// Unknown or inactive codes get 404 so stale links don't open the app on a dead end.
func (h *Handler) Join(c *gin.Context) {
	code := c.Param("code")
	if !invite.Valid(code) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invite not found"})
		return
	}

	var count int64
	h.db.Model(&models.Group{}).
		Where("invite_code = ? AND status = ?", invite.Normalize(code), models.GroupStatusActive).
		Count(&count)
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invite not found"})
		return
	}

	c.Redirect(http.StatusFound, invite.DeepLink(code))
}

// RegisterRoutes registers redirect routes on the root router
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/join/:code", h.Join)
}

// Package pub registers the unauthenticated card-facing API surface.
package pub

import (
	"github.com/cardkeyhq/cardkey/internal/card"
	"github.com/cardkeyhq/cardkey/internal/http/api/pub/handlers"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterPublicRoutes registers the verify/activate/status endpoints and
// the content gate.
func RegisterPublicRoutes(r *gin.Engine, db *gorm.DB, svc *card.Service) {
	if r == nil || db == nil || svc == nil {
		return
	}

	cardHandler := handlers.NewCardHandler(svc)
	cardGroup := r.Group("/api/card")
	cardGroup.POST("/verify", cardHandler.Verify)
	cardGroup.POST("/activate", cardHandler.Activate)
	cardGroup.GET("/status/:code", cardHandler.Status)

	contentHandler := handlers.NewContentHandler(db, svc)
	r.GET("/api/content/:id", contentHandler.Get)
}

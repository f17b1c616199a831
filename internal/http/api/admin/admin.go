// Package admin registers the authenticated console API surface.
package admin

import (
	"net/http"
	"strings"

	"github.com/cardkeyhq/cardkey/internal/card"
	"github.com/cardkeyhq/cardkey/internal/config"
	"github.com/cardkeyhq/cardkey/internal/http/api/admin/handlers"
	"github.com/cardkeyhq/cardkey/internal/models"
	"github.com/cardkeyhq/cardkey/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers console authentication and management routes.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, svc *card.Service) {
	if r == nil || db == nil || svc == nil {
		return
	}

	group := r.Group("/api/admin")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	group.POST("/login", authHandler.Login)

	authed := group.Group("")
	authed.Use(authMiddleware(db, jwtCfg))

	authed.POST("/mfa/totp/prepare", authHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", authHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", authHandler.DisableTOTP)

	cardHandler := handlers.NewCardHandler(db, svc)
	authed.GET("/cards", cardHandler.List)
	authed.GET("/cards/:id", cardHandler.Get)
	authed.POST("/cards", cardHandler.Create)
	authed.POST("/cards/batch", cardHandler.BatchCreate)
	authed.DELETE("/cards/:id", cardHandler.Delete)

	settingHandler := handlers.NewSettingHandler(db)
	authed.GET("/settings", settingHandler.List)
	authed.PUT("/settings", settingHandler.Update)

	contentHandler := handlers.NewContentHandler(db)
	authed.GET("/contents", contentHandler.List)
	authed.POST("/contents", contentHandler.Create)
	authed.PUT("/contents/:id", contentHandler.Update)
	authed.DELETE("/contents/:id", contentHandler.Delete)
}

// authMiddleware validates console JWTs and loads the user into context.
func authMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).
			Select("id", "username", "role", "active").
			First(&user, claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if !user.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account is disabled"})
			return
		}

		c.Set("userID", user.ID)
		c.Set("user", &user)
		c.Next()
	}
}

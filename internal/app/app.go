// Package app wires configuration, storage, the lifecycle engine and the
// front ends into a running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cardkeyhq/cardkey/internal/bot"
	"github.com/cardkeyhq/cardkey/internal/card"
	"github.com/cardkeyhq/cardkey/internal/cardcache"
	"github.com/cardkeyhq/cardkey/internal/config"
	"github.com/cardkeyhq/cardkey/internal/db"
	adminapi "github.com/cardkeyhq/cardkey/internal/http/api/admin"
	"github.com/cardkeyhq/cardkey/internal/http/api/pub"
	"github.com/cardkeyhq/cardkey/internal/logging"
	"github.com/cardkeyhq/cardkey/internal/models"
	"github.com/cardkeyhq/cardkey/internal/security"
	"github.com/cardkeyhq/cardkey/internal/settings"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate opens the database, runs migrations and seeds defaults.
func Migrate(ctx context.Context, cfg *config.Config) error {
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	return prepare(ctx, conn, cfg)
}

// RunServer boots the HTTP server, expiry sweeper and Telegram bot.
func RunServer(ctx context.Context, cfg *config.Config) error {
	logging.Setup(cfg.Log)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errPrepare := prepare(ctx, conn, cfg); errPrepare != nil {
		return errPrepare
	}

	cache, errCache := cardcache.New(cfg.Redis)
	if errCache != nil {
		return errCache
	}
	var statusCache card.StatusCache
	if cache != nil {
		statusCache = cache
		defer func() { _ = cache.Close() }()
	}

	engine := card.NewEngine(conn)
	svc := card.NewService(engine, statusCache)

	sweeper := card.NewSweeper(conn, settings.CheckInterval)
	sweeper.Start(ctx)

	if settings.TelegramBotEnabled() {
		tgBot, errBot := bot.New(cfg.Telegram.Token, conn, svc)
		if errBot != nil {
			log.WithError(errBot).Warn("telegram bot init failed, continuing without it")
		} else if tgBot != nil {
			tgBot.Start(ctx)
		}
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "site": settings.SiteName()})
	})
	pub.RegisterPublicRoutes(router, conn, svc)
	adminapi.RegisterAdminRoutes(router, conn, cfg.JWT, svc)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// prepare migrates the schema, seeds defaults and loads the settings
// snapshot.
func prepare(ctx context.Context, conn *gorm.DB, cfg *config.Config) error {
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errSeed := settings.SeedDefaults(ctx, conn); errSeed != nil {
		return errSeed
	}
	if errAdmin := seedAdmin(ctx, conn, cfg.Admin); errAdmin != nil {
		return errAdmin
	}
	return settings.RefreshDBConfigSnapshot(ctx, conn)
}

// seedAdmin creates the bootstrap admin account when no users exist.
func seedAdmin(ctx context.Context, conn *gorm.DB, cfg config.AdminConfig) error {
	var count int64
	if errCount := conn.WithContext(ctx).Model(&models.User{}).Count(&count).Error; errCount != nil {
		return errCount
	}
	if count > 0 {
		return nil
	}
	if cfg.Password == "" {
		return fmt.Errorf("app: admin.password is required to bootstrap the first account")
	}

	hashed, errHash := security.HashPassword(cfg.Password)
	if errHash != nil {
		return errHash
	}
	admin := models.User{
		Username: cfg.Username,
		Password: hashed,
		Role:     models.RoleSuper,
		Active:   true,
	}
	if errCreate := conn.WithContext(ctx).Create(&admin).Error; errCreate != nil {
		return errCreate
	}
	log.Infof("bootstrap admin %q created", cfg.Username)
	return nil
}

// requestLogger logs each request with method, path, status and latency.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("request")
	}
}

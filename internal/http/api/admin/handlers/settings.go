package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cardkeyhq/cardkey/internal/models"
	"github.com/cardkeyhq/cardkey/internal/settings"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettingHandler handles runtime settings endpoints.
type SettingHandler struct {
	db *gorm.DB
}

// NewSettingHandler constructs a SettingHandler.
func NewSettingHandler(db *gorm.DB) *SettingHandler {
	return &SettingHandler{db: db}
}

// List returns all settings rows.
func (h *SettingHandler) List(c *gin.Context) {
	var rows []models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).Order("key ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list settings failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"key":         row.Key,
			"value":       row.Value,
			"description": row.Description,
			"is_system":   row.IsSystem,
			"updated_at":  row.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"settings": out})
}

// updateSettingsRequest maps setting keys to their new JSON values.
type updateSettingsRequest map[string]json.RawMessage

// Update upserts setting values and refreshes the in-memory snapshot so the
// new values take effect immediately. Only super users may change settings.
func (h *SettingHandler) Update(c *gin.Context) {
	if user := getUser(c); user == nil || !user.IsSuper() {
		c.JSON(http.StatusForbidden, gin.H{"error": "super role required"})
		return
	}

	var body updateSettingsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no settings to update"})
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		for key, value := range body {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			row := models.Setting{Key: key, Value: value}
			if errSave := tx.Where("key = ?", key).
				Assign(map[string]any{"value": value}).
				FirstOrCreate(&row).Error; errSave != nil {
				return errSave
			}
		}
		return nil
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update settings failed"})
		return
	}

	if errRefresh := settings.RefreshDBConfigSnapshot(c.Request.Context(), h.db); errRefresh != nil {
		log.WithError(errRefresh).Warn("settings snapshot refresh failed")
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

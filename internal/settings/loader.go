package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/cardkeyhq/cardkey/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefreshDBConfigSnapshot reloads all settings from the database and updates
// the in-memory snapshot.
//
// This is required at process startup; otherwise DBConfigValue() returns
// empty values until an admin updates settings via the API (which triggers a
// refresh).
func RefreshDBConfigSnapshot(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("settings: nil db")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var rows []struct {
		Key       string
		Value     json.RawMessage
		UpdatedAt time.Time
	}
	if errFind := db.WithContext(ctx).
		Model(&models.Setting{}).
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	var latest time.Time
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = row.Value
		if at := row.UpdatedAt.UTC(); at.After(latest) {
			latest = at
		}
	}

	StoreDBConfig(latest, values)
	return nil
}

// defaultSetting describes one seeded settings row.
type defaultSetting struct {
	key         string
	value       any
	description string
}

// SeedDefaults inserts the system settings that are missing. Existing rows
// are never overwritten.
func SeedDefaults(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("settings: nil db")
	}

	defaults := []defaultSetting{
		{SiteNameKey, DefaultSiteName, "Site name shown in the console"},
		{SiteDescriptionKey, "Card key access management", "Site description"},
		{CardPrefixKey, DefaultCardPrefix, "Prefix for generated card codes"},
		{BatchIssueCapKey, DefaultBatchIssueCap, "Maximum cards per batch issuance"},
		{DefaultCardTypeKey, models.CardTypeMonth, "Card type used when issuance omits one"},
		{CheckIntervalMinutesKey, DefaultCheckIntervalMinutes, "Expiry sweep interval in minutes"},
		{TelegramBotEnabledKey, DefaultTelegramBotEnabled, "Whether the Telegram bot is enabled"},
		{HomepageNoticeKey, "Welcome to CardKey!", "Homepage notice text"},
	}

	rows := make([]models.Setting, 0, len(defaults))
	for _, def := range defaults {
		encoded, errMarshal := json.Marshal(def.value)
		if errMarshal != nil {
			return errMarshal
		}
		rows = append(rows, models.Setting{
			Key:         def.key,
			Value:       encoded,
			Description: def.description,
			IsSystem:    true,
		})
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

package settings

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cardkeyhq/cardkey/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// resetSnapshot restores an empty snapshot after a test mutates the global.
func resetSnapshot(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { StoreDBConfig(time.Time{}, nil) })
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("unwrap sql db: %v", errDB)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if errMigrate := conn.AutoMigrate(&models.Setting{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestAccessorsFallBackWhenUnset(t *testing.T) {
	resetSnapshot(t)
	StoreDBConfig(time.Time{}, nil)

	if got := CardPrefix(); got != DefaultCardPrefix {
		t.Fatalf("CardPrefix() = %q, want %q", got, DefaultCardPrefix)
	}
	if got := BatchIssueCap(); got != DefaultBatchIssueCap {
		t.Fatalf("BatchIssueCap() = %d, want %d", got, DefaultBatchIssueCap)
	}
	if got := SiteName(); got != DefaultSiteName {
		t.Fatalf("SiteName() = %q, want %q", got, DefaultSiteName)
	}
	if got := DefaultCardType(); got != models.CardTypeMonth {
		t.Fatalf("DefaultCardType() = %q, want month", got)
	}
	if TelegramBotEnabled() {
		t.Fatal("TelegramBotEnabled() = true with empty snapshot")
	}
	if got := CheckInterval(); got != time.Duration(DefaultCheckIntervalMinutes)*time.Minute {
		t.Fatalf("CheckInterval() = %v, want default", got)
	}
}

func TestAccessorsReadSnapshot(t *testing.T) {
	resetSnapshot(t)
	StoreDBConfig(time.Now(), map[string]json.RawMessage{
		CardPrefixKey:           json.RawMessage(`"VIP_"`),
		BatchIssueCapKey:        json.RawMessage(`10`),
		SiteNameKey:             json.RawMessage(`"Acme Cards"`),
		TelegramBotEnabledKey:   json.RawMessage(`true`),
		CheckIntervalMinutesKey: json.RawMessage(`5`),
	})

	if got := CardPrefix(); got != "VIP_" {
		t.Fatalf("CardPrefix() = %q, want VIP_", got)
	}
	if got := BatchIssueCap(); got != 10 {
		t.Fatalf("BatchIssueCap() = %d, want 10", got)
	}
	if got := SiteName(); got != "Acme Cards" {
		t.Fatalf("SiteName() = %q, want Acme Cards", got)
	}
	if !TelegramBotEnabled() {
		t.Fatal("TelegramBotEnabled() = false, want true")
	}
	if got := CheckInterval(); got != 5*time.Minute {
		t.Fatalf("CheckInterval() = %v, want 5m", got)
	}
}

func TestAccessorsAcceptLegacyStringValues(t *testing.T) {
	resetSnapshot(t)
	StoreDBConfig(time.Now(), map[string]json.RawMessage{
		BatchIssueCapKey:      json.RawMessage(`"25"`),
		TelegramBotEnabledKey: json.RawMessage(`"true"`),
	})

	if got := BatchIssueCap(); got != 25 {
		t.Fatalf("BatchIssueCap() = %d, want 25 from legacy string", got)
	}
	if !TelegramBotEnabled() {
		t.Fatal("TelegramBotEnabled() did not accept legacy string")
	}
}

func TestSeedAndRefresh(t *testing.T) {
	resetSnapshot(t)
	conn := newTestDB(t)
	ctx := context.Background()

	if errSeed := SeedDefaults(ctx, conn); errSeed != nil {
		t.Fatalf("seed defaults: %v", errSeed)
	}
	if errRefresh := RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		t.Fatalf("refresh snapshot: %v", errRefresh)
	}

	if got := CardPrefix(); got != DefaultCardPrefix {
		t.Fatalf("CardPrefix() = %q after seed, want %q", got, DefaultCardPrefix)
	}
	if DBConfigUpdatedAt().IsZero() {
		t.Fatal("snapshot timestamp not set after refresh")
	}

	// Seeding again must not overwrite an edited row.
	if errUpdate := conn.Model(&models.Setting{}).
		Where("key = ?", CardPrefixKey).
		Update("value", json.RawMessage(`"EDITED_"`)).Error; errUpdate != nil {
		t.Fatalf("edit setting: %v", errUpdate)
	}
	if errSeed := SeedDefaults(ctx, conn); errSeed != nil {
		t.Fatalf("re-seed: %v", errSeed)
	}
	if errRefresh := RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		t.Fatalf("re-refresh: %v", errRefresh)
	}
	if got := CardPrefix(); got != "EDITED_" {
		t.Fatalf("CardPrefix() = %q, want edited value preserved", got)
	}
}

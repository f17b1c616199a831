package settings

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/cardkeyhq/cardkey/internal/models"
)

// CardPrefix returns the configured code prefix.
func CardPrefix() string {
	return stringValue(CardPrefixKey, DefaultCardPrefix)
}

// BatchIssueCap returns the configured batch issuance bound.
func BatchIssueCap() int {
	if n := intValue(BatchIssueCapKey, DefaultBatchIssueCap); n > 0 {
		return n
	}
	return DefaultBatchIssueCap
}

// DefaultCardType returns the card type used when issuance omits one.
func DefaultCardType() string {
	return stringValue(DefaultCardTypeKey, models.CardTypeMonth)
}

// SiteName returns the configured site name.
func SiteName() string {
	return stringValue(SiteNameKey, DefaultSiteName)
}

// TelegramBotEnabled reports whether the Telegram bot should run.
func TelegramBotEnabled() bool {
	return boolValue(TelegramBotEnabledKey, DefaultTelegramBotEnabled)
}

// CheckInterval returns the expiry sweep interval.
func CheckInterval() time.Duration {
	minutes := intValue(CheckIntervalMinutesKey, DefaultCheckIntervalMinutes)
	if minutes <= 0 {
		minutes = DefaultCheckIntervalMinutes
	}
	return time.Duration(minutes) * time.Minute
}

func stringValue(key, fallback string) string {
	raw, ok := DBConfigValue(key)
	if !ok || len(raw) == 0 {
		return fallback
	}
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		return s
	}
	return fallback
}

func intValue(key string, fallback int) int {
	raw, ok := DBConfigValue(key)
	if !ok || len(raw) == 0 {
		return fallback
	}
	var n int
	if errUnmarshal := json.Unmarshal(raw, &n); errUnmarshal == nil {
		return n
	}
	// Older rows stored numbers as strings.
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		if parsed, errParse := strconv.Atoi(strings.TrimSpace(s)); errParse == nil {
			return parsed
		}
	}
	return fallback
}

func boolValue(key string, fallback bool) bool {
	raw, ok := DBConfigValue(key)
	if !ok || len(raw) == 0 {
		return fallback
	}
	var b bool
	if errUnmarshal := json.Unmarshal(raw, &b); errUnmarshal == nil {
		return b
	}
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		return strings.EqualFold(strings.TrimSpace(s), "true") || strings.TrimSpace(s) == "1"
	}
	return fallback
}

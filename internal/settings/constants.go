package settings

// DB config keys and defaults.
const (
	// SiteNameKey is the DB config key for the console site name.
	SiteNameKey = "site_name"
	// DefaultSiteName is the fallback site name.
	DefaultSiteName = "CardKey"
	// SiteDescriptionKey is the DB config key for the site description.
	SiteDescriptionKey = "site_description"
	// CardPrefixKey controls the prefix applied to generated card codes.
	CardPrefixKey = "card_prefix"
	// DefaultCardPrefix is the fallback code prefix.
	DefaultCardPrefix = "CARD_"
	// BatchIssueCapKey bounds how many cards a single batch may create.
	BatchIssueCapKey = "batch_issue_cap"
	// DefaultCardTypeKey sets the card type used when issuance omits one.
	DefaultCardTypeKey = "default_card_type"
	// DefaultBatchIssueCap is the fallback batch bound.
	DefaultBatchIssueCap = 50
	// CheckIntervalMinutesKey controls the expiry sweep interval in minutes.
	CheckIntervalMinutesKey = "check_interval"
	// DefaultCheckIntervalMinutes is the fallback sweep interval (minutes).
	DefaultCheckIntervalMinutes = 30
	// TelegramBotEnabledKey toggles the Telegram command layer.
	TelegramBotEnabledKey = "telegram_bot_enabled"
	// DefaultTelegramBotEnabled keeps the bot off until configured.
	DefaultTelegramBotEnabled = false
	// HomepageNoticeKey is the DB config key for the homepage notice text.
	HomepageNoticeKey = "homepage_notice"
)

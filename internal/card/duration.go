package card

import "github.com/cardkeyhq/cardkey/internal/models"

// DefaultDurationDays is the fallback validity window for unrecognized types.
const DefaultDurationDays = 30

// DurationForType maps a card type to its default validity in days.
func DurationForType(cardType string) int {
	switch cardType {
	case models.CardTypeDay:
		return 1
	case models.CardTypeMonth:
		return 30
	case models.CardTypeYear:
		return 365
	default:
		return DefaultDurationDays
	}
}

// ResolveDuration picks the validity window for a new card. Custom cards take
// the caller-supplied day count when positive; everything else follows the
// type table.
func ResolveDuration(cardType string, customDays int) int {
	if cardType == models.CardTypeCustom && customDays > 0 {
		return customDays
	}
	return DurationForType(cardType)
}

package card

import (
	"testing"

	"github.com/cardkeyhq/cardkey/internal/models"
)

func TestDurationForType(t *testing.T) {
	cases := []struct {
		cardType string
		want     int
	}{
		{models.CardTypeDay, 1},
		{models.CardTypeMonth, 30},
		{models.CardTypeYear, 365},
		{models.CardTypeCustom, 30},
		{"lifetime", 30},
		{"", 30},
	}
	for _, tc := range cases {
		if got := DurationForType(tc.cardType); got != tc.want {
			t.Errorf("DurationForType(%q) = %d, want %d", tc.cardType, got, tc.want)
		}
	}
}

func TestResolveDuration(t *testing.T) {
	if got := ResolveDuration(models.CardTypeCustom, 7); got != 7 {
		t.Fatalf("custom with override = %d, want 7", got)
	}
	if got := ResolveDuration(models.CardTypeCustom, 0); got != 30 {
		t.Fatalf("custom without override = %d, want 30", got)
	}
	// The override only applies to custom cards.
	if got := ResolveDuration(models.CardTypeDay, 7); got != 1 {
		t.Fatalf("day with override = %d, want 1", got)
	}
}

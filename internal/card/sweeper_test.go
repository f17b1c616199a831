package card

import (
	"context"
	"testing"
	"time"

	"github.com/cardkeyhq/cardkey/internal/models"
)

func TestSweepFlipsElapsedCards(t *testing.T) {
	engine, conn := newTestEngine(t)
	ctx := context.Background()

	elapsed := mustIssue(t, engine, models.CardTypeDay)
	current := mustIssue(t, engine, models.CardTypeMonth)
	untouched := mustIssue(t, engine, models.CardTypeYear)

	for _, code := range []string{elapsed.Code, current.Code} {
		if _, errActivate := engine.Activate(ctx, code, nil); errActivate != nil {
			t.Fatalf("activate %s: %v", code, errActivate)
		}
	}
	past := time.Now().UTC().Add(-time.Minute)
	if errBackdate := conn.Model(&models.Card{}).
		Where("code = ?", elapsed.Code).
		Update("expires_at", past).Error; errBackdate != nil {
		t.Fatalf("backdate expiry: %v", errBackdate)
	}

	sweeper := NewSweeper(conn, nil)
	if errSweep := sweeper.Sweep(ctx); errSweep != nil {
		t.Fatalf("sweep: %v", errSweep)
	}

	wantStatuses := map[string]string{
		elapsed.Code:   models.CardStatusExpired,
		current.Code:   models.CardStatusUsed,
		untouched.Code: models.CardStatusUnused,
	}
	for code, want := range wantStatuses {
		row, errGet := engine.Get(ctx, code)
		if errGet != nil {
			t.Fatalf("reload %s: %v", code, errGet)
		}
		if row.Status != want {
			t.Fatalf("card %s status = %q, want %q", code, row.Status, want)
		}
	}

	// A second pass has nothing left to flip.
	if errSweep := sweeper.Sweep(ctx); errSweep != nil {
		t.Fatalf("second sweep: %v", errSweep)
	}
}

package card

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cardkeyhq/cardkey/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestEngine opens an in-memory database with one card table and returns
// an engine over it. A single connection keeps the in-memory database shared
// across goroutines.
func newTestEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()

	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
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

	if errMigrate := conn.AutoMigrate(&models.Card{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return NewEngine(conn), conn
}

func mustIssue(t *testing.T, e *Engine, cardType string) *models.Card {
	t.Helper()
	row, errIssue := e.Issue(context.Background(), IssuePolicy{}, IssueParams{Type: cardType})
	if errIssue != nil {
		t.Fatalf("issue %s card: %v", cardType, errIssue)
	}
	return row
}

func TestActivateSetsValidityWindow(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	issued := mustIssue(t, engine, models.CardTypeDay)
	before := time.Now().UTC()

	activated, errActivate := engine.Activate(ctx, issued.Code, map[string]any{"user": "alice"})
	if errActivate != nil {
		t.Fatalf("activate: %v", errActivate)
	}
	if activated.Status != models.CardStatusUsed {
		t.Fatalf("status = %q, want %q", activated.Status, models.CardStatusUsed)
	}
	if activated.ActivatedAt == nil || activated.ExpiresAt == nil {
		t.Fatalf("activation timestamps not set: activatedAt=%v expiresAt=%v", activated.ActivatedAt, activated.ExpiresAt)
	}
	if activated.ActivatedAt.Before(before.Add(-time.Second)) {
		t.Fatalf("activatedAt %v predates the call", activated.ActivatedAt)
	}
	wantExpiry := activated.ActivatedAt.AddDate(0, 0, 1)
	if !activated.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expiresAt = %v, want activatedAt + 1 day = %v", activated.ExpiresAt, wantExpiry)
	}

	stored, errGet := engine.Get(ctx, issued.Code)
	if errGet != nil {
		t.Fatalf("reload card: %v", errGet)
	}
	if stored.Status != models.CardStatusUsed || stored.ActivatedAt == nil || stored.ExpiresAt == nil {
		t.Fatalf("persisted card incomplete: %+v", stored)
	}
	if len(stored.BoundUserInfo) == 0 {
		t.Fatal("bound user info not persisted")
	}
}

func TestActivateUnknownCode(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, errActivate := engine.Activate(context.Background(), "NO_SUCH_CODE", nil)
	if !errors.Is(errActivate, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", errActivate)
	}
}

func TestActivateTwiceKeepsOriginalWindow(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	issued := mustIssue(t, engine, models.CardTypeMonth)
	first, errFirst := engine.Activate(ctx, issued.Code, nil)
	if errFirst != nil {
		t.Fatalf("first activation: %v", errFirst)
	}

	_, errSecond := engine.Activate(ctx, issued.Code, map[string]any{"user": "mallory"})
	if !errors.Is(errSecond, ErrAlreadyActivated) {
		t.Fatalf("second activation error = %v, want ErrAlreadyActivated", errSecond)
	}

	stored, errGet := engine.Get(ctx, issued.Code)
	if errGet != nil {
		t.Fatalf("reload card: %v", errGet)
	}
	if !stored.ActivatedAt.Equal(*first.ActivatedAt) {
		t.Fatalf("activatedAt changed: %v -> %v", first.ActivatedAt, stored.ActivatedAt)
	}
	if !stored.ExpiresAt.Equal(*first.ExpiresAt) {
		t.Fatalf("expiresAt changed: %v -> %v", first.ExpiresAt, stored.ExpiresAt)
	}
}

func TestConcurrentActivationSingleWinner(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	issued := mustIssue(t, engine, models.CardTypeMonth)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, results[slot] = engine.Activate(ctx, issued.Code, nil)
		}(i)
	}
	wg.Wait()

	winners, losers := 0, 0
	for _, errActivate := range results {
		switch {
		case errActivate == nil:
			winners++
		case errors.Is(errActivate, ErrAlreadyActivated):
			losers++
		default:
			t.Fatalf("unexpected activation error: %v", errActivate)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
	if losers != callers-1 {
		t.Fatalf("losers = %d, want %d", losers, callers-1)
	}
}

func TestActivateRevokedBetweenLoadAndUpdate(t *testing.T) {
	engine, conn := newTestEngine(t)
	ctx := context.Background()

	issued := mustIssue(t, engine, models.CardTypeMonth)

	// Delete the row after the activation load but before its conditional
	// update, reproducing a revocation racing the activation.
	const callbackName = "revoke_before_update"
	fired := false
	errRegister := conn.Callback().Update().Before("gorm:update").Register(callbackName, func(tx *gorm.DB) {
		if fired {
			return
		}
		fired = true
		if _, errExec := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"DELETE FROM cards WHERE code = ?", issued.Code); errExec != nil {
			t.Errorf("delete mid-activation: %v", errExec)
		}
	})
	if errRegister != nil {
		t.Fatalf("register callback: %v", errRegister)
	}
	t.Cleanup(func() { _ = conn.Callback().Update().Remove(callbackName) })

	_, errActivate := engine.Activate(ctx, issued.Code, nil)
	if !errors.Is(errActivate, ErrNotFound) {
		t.Fatalf("activate on revoked card = %v, want ErrNotFound", errActivate)
	}
	if errors.Is(errActivate, ErrAlreadyActivated) {
		t.Fatal("revoked card misreported as already activated")
	}
}

func TestCheckValidityFlipsExpired(t *testing.T) {
	engine, conn := newTestEngine(t)
	ctx := context.Background()

	issued := mustIssue(t, engine, models.CardTypeDay)
	if _, errActivate := engine.Activate(ctx, issued.Code, nil); errActivate != nil {
		t.Fatalf("activate: %v", errActivate)
	}

	// Backdate the window so it has already elapsed.
	past := time.Now().UTC().Add(-time.Hour)
	if errBackdate := conn.Model(&models.Card{}).
		Where("code = ?", issued.Code).
		Update("expires_at", past).Error; errBackdate != nil {
		t.Fatalf("backdate expiry: %v", errBackdate)
	}

	row, derived, errCheck := engine.CheckValidity(ctx, issued.Code)
	if errCheck != nil {
		t.Fatalf("check validity: %v", errCheck)
	}
	if derived.Valid {
		t.Fatal("expired card reported valid")
	}
	if derived.Status != models.CardStatusExpired || row.Status != models.CardStatusExpired {
		t.Fatalf("status = %q/%q, want expired", derived.Status, row.Status)
	}

	stored, errGet := engine.Get(ctx, issued.Code)
	if errGet != nil {
		t.Fatalf("reload card: %v", errGet)
	}
	if stored.Status != models.CardStatusExpired {
		t.Fatalf("persisted status = %q, want expired", stored.Status)
	}

	// Running the check again must not change anything.
	again, derivedAgain, errAgain := engine.CheckValidity(ctx, issued.Code)
	if errAgain != nil {
		t.Fatalf("second check: %v", errAgain)
	}
	if derivedAgain.Valid || again.Status != models.CardStatusExpired {
		t.Fatalf("second check diverged: valid=%v status=%q", derivedAgain.Valid, again.Status)
	}
}

func TestCheckValidityUnusedCard(t *testing.T) {
	engine, _ := newTestEngine(t)

	issued := mustIssue(t, engine, models.CardTypeYear)
	row, derived, errCheck := engine.CheckValidity(context.Background(), issued.Code)
	if errCheck != nil {
		t.Fatalf("check validity: %v", errCheck)
	}
	if derived.Valid {
		t.Fatal("unused card reported valid")
	}
	if row.Status != models.CardStatusUnused {
		t.Fatalf("status = %q, want unused", row.Status)
	}
	if row.ActivatedAt != nil || row.ExpiresAt != nil {
		t.Fatal("unused card has activation timestamps")
	}
}

func TestDayCardValidInsideWindow(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	issued := mustIssue(t, engine, models.CardTypeDay)
	if _, errActivate := engine.Activate(ctx, issued.Code, nil); errActivate != nil {
		t.Fatalf("activate: %v", errActivate)
	}

	_, derived, errCheck := engine.CheckValidity(ctx, issued.Code)
	if errCheck != nil {
		t.Fatalf("check validity: %v", errCheck)
	}
	if !derived.Valid {
		t.Fatal("freshly activated day card reported invalid")
	}
	if derived.Status != models.CardStatusUsed {
		t.Fatalf("status = %q, want used", derived.Status)
	}
}

func TestEvaluate(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	cases := []struct {
		name       string
		card       models.Card
		wantValid  bool
		wantStatus string
	}{
		{"unused", models.Card{Status: models.CardStatusUnused}, false, models.CardStatusUnused},
		{"used inside window", models.Card{Status: models.CardStatusUsed, ExpiresAt: &future}, true, models.CardStatusUsed},
		{"used past window", models.Card{Status: models.CardStatusUsed, ExpiresAt: &past}, false, models.CardStatusExpired},
		{"already expired", models.Card{Status: models.CardStatusExpired, ExpiresAt: &past}, false, models.CardStatusExpired},
		{"used without expiry", models.Card{Status: models.CardStatusUsed}, false, models.CardStatusUsed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(&tc.card, now)
			if got.Valid != tc.wantValid {
				t.Fatalf("valid = %v, want %v", got.Valid, tc.wantValid)
			}
			if got.Status != tc.wantStatus {
				t.Fatalf("status = %q, want %q", got.Status, tc.wantStatus)
			}
		})
	}
}

func TestRevoke(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	issued := mustIssue(t, engine, models.CardTypeMonth)
	if errRevoke := engine.Revoke(ctx, issued.Code); errRevoke != nil {
		t.Fatalf("revoke: %v", errRevoke)
	}
	if _, errGet := engine.Get(ctx, issued.Code); !errors.Is(errGet, ErrNotFound) {
		t.Fatalf("get after revoke = %v, want ErrNotFound", errGet)
	}
	if errAgain := engine.Revoke(ctx, issued.Code); !errors.Is(errAgain, ErrNotFound) {
		t.Fatalf("second revoke = %v, want ErrNotFound", errAgain)
	}
}

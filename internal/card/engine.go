package card

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cardkeyhq/cardkey/internal/models"
	"github.com/cardkeyhq/cardkey/internal/util"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Engine implements the card lifecycle: issuance, one-time activation and
// lazy expiry. All state transitions go through conditional updates so
// concurrent callers cannot double-apply them.
type Engine struct {
	db *gorm.DB
}

// NewEngine constructs a lifecycle engine over the given database.
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// Derived is the pure validity decision for a card at a point in time.
type Derived struct {
	Valid     bool       // Whether the card currently grants access.
	Status    string     // Status the card should hold at the evaluation time.
	ExpiresAt *time.Time // Expiry time, nil before activation.
}

// Evaluate derives a card's validity at the given time without side effects.
// Cards that are not used are never valid; a used card whose expiry has
// passed derives the expired status.
func Evaluate(c *models.Card, now time.Time) Derived {
	out := Derived{Status: c.Status, ExpiresAt: c.ExpiresAt}
	if c.Status != models.CardStatusUsed {
		return out
	}
	if c.ExpiresAt == nil {
		return out
	}
	if c.ExpiresAt.After(now) {
		out.Valid = true
		return out
	}
	out.Status = models.CardStatusExpired
	return out
}

// Get loads a card by code.
func (e *Engine) Get(ctx context.Context, code string) (*models.Card, error) {
	var row models.Card
	errFind := e.db.WithContext(ctx).Where("code = ?", code).First(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query card: %w", errFind)
	}
	return &row, nil
}

// Activate performs the one-time unused -> used transition for a code.
// The transition is a single conditional update keyed on the unused status,
// so exactly one of any set of concurrent callers wins; the rest observe
// ErrAlreadyActivated.
func (e *Engine) Activate(ctx context.Context, code string, boundInfo map[string]any) (*models.Card, error) {
	var row models.Card
	if errFind := e.db.WithContext(ctx).Where("code = ?", code).First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query card: %w", errFind)
	}

	var infoJSON datatypes.JSON
	if len(boundInfo) > 0 {
		encoded, errMarshal := json.Marshal(boundInfo)
		if errMarshal != nil {
			return nil, fmt.Errorf("encode bound user info: %w", errMarshal)
		}
		infoJSON = datatypes.JSON(encoded)
	}

	now := time.Now().UTC()
	expiresAt := now.AddDate(0, 0, row.DurationDays)

	res := e.db.WithContext(ctx).
		Model(&models.Card{}).
		Where("code = ? AND status = ?", code, models.CardStatusUnused).
		Updates(map[string]any{
			"status":          models.CardStatusUsed,
			"activated_at":    now,
			"expires_at":      expiresAt,
			"bound_user_info": infoJSON,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("activate card: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Either another caller won the race or the card was revoked after
		// the load above. Re-check existence to tell them apart.
		var count int64
		if errCount := e.db.WithContext(ctx).Model(&models.Card{}).
			Where("code = ?", code).Count(&count).Error; errCount != nil {
			return nil, fmt.Errorf("query card: %w", errCount)
		}
		if count == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrAlreadyActivated
	}

	row.Status = models.CardStatusUsed
	row.ActivatedAt = &now
	row.ExpiresAt = &expiresAt
	row.BoundUserInfo = infoJSON
	log.WithField("code", util.MaskCode(row.Code)).Info("card activated")
	return &row, nil
}

// CheckValidity evaluates a card and persists the expired transition when the
// validity window has passed. The flip is committed before this method
// returns, so the next read is guaranteed to observe expired. Re-running the
// flip is a no-op.
func (e *Engine) CheckValidity(ctx context.Context, code string) (*models.Card, Derived, error) {
	row, errGet := e.Get(ctx, code)
	if errGet != nil {
		return nil, Derived{}, errGet
	}

	derived := Evaluate(row, time.Now().UTC())
	if derived.Status != row.Status {
		if errFlip := e.persistStatus(ctx, row, derived.Status); errFlip != nil {
			return nil, Derived{}, errFlip
		}
	}
	return row, derived, nil
}

// persistStatus applies a derived status transition. The guard on the
// current status keeps the update idempotent under concurrent reads.
func (e *Engine) persistStatus(ctx context.Context, row *models.Card, status string) error {
	res := e.db.WithContext(ctx).
		Model(&models.Card{}).
		Where("id = ? AND status = ?", row.ID, row.Status).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("persist card status: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		log.WithFields(log.Fields{"code": util.MaskCode(row.Code), "status": status}).Info("card status updated")
	}
	row.Status = status
	return nil
}

// Revoke removes a card so its code can no longer be verified or activated.
// Authorization is the caller's concern.
func (e *Engine) Revoke(ctx context.Context, code string) error {
	res := e.db.WithContext(ctx).Where("code = ?", code).Delete(&models.Card{})
	if res.Error != nil {
		return fmt.Errorf("revoke card: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	log.WithField("code", util.MaskCode(code)).Info("card revoked")
	return nil
}

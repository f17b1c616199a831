package card

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cardkeyhq/cardkey/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultMaxBatch caps a single batch issuance when no policy override is set.
const DefaultMaxBatch = 50

// maxCollisionRetries bounds regeneration attempts when a generated code
// collides with an existing row.
const maxCollisionRetries = 5

// IssuePolicy carries the runtime issuance configuration. Callers build it
// from the settings snapshot and pass it in explicitly.
type IssuePolicy struct {
	CodePrefix  string // Prefix applied to generated codes.
	MaxBatch    int    // Upper bound for a single batch; DefaultMaxBatch when zero.
	DefaultType string // Type used when a request omits one; month when empty.
}

// Cap returns the effective batch limit.
func (p IssuePolicy) Cap() int {
	if p.MaxBatch > 0 {
		return p.MaxBatch
	}
	return DefaultMaxBatch
}

// FallbackType returns the type applied when a request omits one.
func (p IssuePolicy) FallbackType() string {
	if t := strings.TrimSpace(p.DefaultType); t != "" {
		return t
	}
	return models.CardTypeMonth
}

// IssueParams describes a card to issue.
type IssueParams struct {
	Code         string // Caller-assigned code; generated when empty.
	Type         string // Card type; defaults to month.
	DurationDays int    // Explicit window for custom cards.
	CreatedBy    uint64 // Issuing admin.
	Remark       string // Optional note.
}

// Issue creates a single unused card. Generated codes are retried on
// collision against the unique index; caller-assigned codes are not.
func (e *Engine) Issue(ctx context.Context, policy IssuePolicy, params IssueParams) (*models.Card, error) {
	cardType := strings.TrimSpace(params.Type)
	if cardType == "" {
		cardType = policy.FallbackType()
	}

	row := models.Card{
		Type:         cardType,
		DurationDays: ResolveDuration(cardType, params.DurationDays),
		Status:       models.CardStatusUnused,
		CreatedBy:    params.CreatedBy,
		Remark:       params.Remark,
	}

	assigned := strings.TrimSpace(params.Code)
	if assigned != "" {
		row.Code = assigned
		if errCreate := e.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
			if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
				return nil, fmt.Errorf("%w: code already exists", ErrIssuanceFailed)
			}
			return nil, fmt.Errorf("create card: %w", errCreate)
		}
		return &row, nil
	}

	for attempt := 0; attempt <= maxCollisionRetries; attempt++ {
		row.ID = 0
		row.Code = GenerateCode(policy.CodePrefix)
		errCreate := e.db.WithContext(ctx).Create(&row).Error
		if errCreate == nil {
			return &row, nil
		}
		if !errors.Is(errCreate, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("create card: %w", errCreate)
		}
		log.WithField("attempt", attempt+1).Warn("generated card code collided, regenerating")
	}
	return nil, fmt.Errorf("%w: collision retries exhausted", ErrIssuanceFailed)
}

// IssueBatch creates count cards of one type. Each card is created
// independently, so a failed slot does not roll back the rest; the returned
// slice holds exactly the cards that persisted. A non-nil error alongside a
// partial slice means at least one slot failed.
func (e *Engine) IssueBatch(ctx context.Context, policy IssuePolicy, cardType string, count int, params IssueParams) ([]models.Card, error) {
	if count < 1 {
		count = 1
	}
	if limit := policy.Cap(); count > limit {
		count = limit
	}

	issued := make([]models.Card, 0, count)
	var firstErr error
	for i := 0; i < count; i++ {
		slot := params
		slot.Code = ""
		slot.Type = cardType
		row, errIssue := e.Issue(ctx, policy, slot)
		if errIssue != nil {
			log.WithError(errIssue).Warnf("batch issuance slot %d/%d failed", i+1, count)
			if firstErr == nil {
				firstErr = errIssue
			}
			continue
		}
		issued = append(issued, *row)
	}
	return issued, firstErr
}

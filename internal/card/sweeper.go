package card

import (
	"context"
	"time"

	"github.com/cardkeyhq/cardkey/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// defaultSweepInterval is used when no interval is configured.
const defaultSweepInterval = 30 * time.Minute

// Sweeper proactively flips used cards to expired once their window has
// passed. Validity reads self-correct, so the sweep is an optimization that
// keeps listings and stats fresh, not a correctness requirement.
type Sweeper struct {
	db       *gorm.DB
	interval func() time.Duration
}

// NewSweeper constructs a sweeper. intervalFn resolves the sweep interval on
// every cycle so settings changes take effect without a restart; nil falls
// back to the default interval.
func NewSweeper(db *gorm.DB, intervalFn func() time.Duration) *Sweeper {
	if db == nil {
		return nil
	}
	if intervalFn == nil {
		intervalFn = func() time.Duration { return defaultSweepInterval }
	}
	return &Sweeper{db: db, interval: intervalFn}
}

// Start launches the sweep loop in a background goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go s.run(ctx)
	log.Info("card expiry sweeper started")
}

func (s *Sweeper) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if errSweep := s.Sweep(ctx); errSweep != nil {
			log.WithError(errSweep).Warn("card expiry sweep failed")
		}

		interval := s.interval()
		if interval <= 0 {
			interval = defaultSweepInterval
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// Sweep runs one pass. The status guard makes it idempotent and safe to run
// concurrently with lazy expiry on the read path.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).
		Model(&models.Card{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.CardStatusUsed, now).
		Update("status", models.CardStatusExpired)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		log.Infof("card expiry sweep flipped %d cards", res.RowsAffected)
	}
	return nil
}

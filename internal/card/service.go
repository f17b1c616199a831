package card

import (
	"context"
	"time"
)

// Validity is the read-only projection returned to content gates and bots.
type Validity struct {
	Valid       bool       `json:"valid"`
	Status      string     `json:"status"`
	Type        string     `json:"type"`
	ActivatedAt *time.Time `json:"activated_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// StatusCache caches validity projections keyed by code. A nil cache
// disables caching.
type StatusCache interface {
	Get(ctx context.Context, code string) (*Validity, bool)
	Set(ctx context.Context, code string, v *Validity, ttl time.Duration)
	Invalidate(ctx context.Context, code string)
}

// Service is the validity query front over the engine. It never mutates
// state beyond the lazy expiry transition the engine performs.
type Service struct {
	engine   *Engine
	cache    StatusCache
	cacheTTL time.Duration
}

// defaultCacheTTL bounds how long a validity projection may be served stale.
const defaultCacheTTL = 30 * time.Second

// NewService wraps an engine. cache may be nil to disable caching.
func NewService(engine *Engine, cache StatusCache) *Service {
	return &Service{engine: engine, cache: cache, cacheTTL: defaultCacheTTL}
}

// Engine exposes the underlying lifecycle engine for write-path callers.
func (s *Service) Engine() *Engine { return s.engine }

// Status returns the validity projection for a code. Not-found is reported
// as ErrNotFound, distinct from a found-but-invalid card.
func (s *Service) Status(ctx context.Context, code string) (*Validity, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, code); ok {
			return cached, nil
		}
	}

	row, derived, errCheck := s.engine.CheckValidity(ctx, code)
	if errCheck != nil {
		return nil, errCheck
	}

	out := &Validity{
		Valid:       derived.Valid,
		Status:      derived.Status,
		Type:        row.Type,
		ActivatedAt: row.ActivatedAt,
		ExpiresAt:   row.ExpiresAt,
	}
	if s.cache != nil {
		if ttl := s.ttlFor(out); ttl > 0 {
			s.cache.Set(ctx, code, out, ttl)
		}
	}
	return out, nil
}

// ttlFor clamps the cache TTL so a valid projection never outlives its
// expiry time.
func (s *Service) ttlFor(v *Validity) time.Duration {
	ttl := s.cacheTTL
	if v.Valid && v.ExpiresAt != nil {
		if remaining := time.Until(*v.ExpiresAt); remaining < ttl {
			ttl = remaining
		}
	}
	return ttl
}

// Invalidate drops any cached projection for a code. Called after
// activation and revocation.
func (s *Service) Invalidate(ctx context.Context, code string) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, code)
}

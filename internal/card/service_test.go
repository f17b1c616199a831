package card

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cardkeyhq/cardkey/internal/models"
)

// memoryCache is an in-process StatusCache used to observe cache traffic.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*Validity
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]*Validity{}}
}

func (m *memoryCache) Get(_ context.Context, code string) (*Validity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[code]
	return v, ok
}

func (m *memoryCache) Set(_ context.Context, code string, v *Validity, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[code] = v
	m.sets++
}

func (m *memoryCache) Invalidate(_ context.Context, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, code)
}

func TestServiceStatusNotFound(t *testing.T) {
	engine, _ := newTestEngine(t)
	svc := NewService(engine, nil)

	_, errStatus := svc.Status(context.Background(), "MISSING")
	if !errors.Is(errStatus, ErrNotFound) {
		t.Fatalf("status = %v, want ErrNotFound", errStatus)
	}
}

func TestServiceStatusCachesAndInvalidates(t *testing.T) {
	engine, _ := newTestEngine(t)
	cache := newMemoryCache()
	svc := NewService(engine, cache)
	ctx := context.Background()

	issued := mustIssue(t, engine, models.CardTypeMonth)
	if _, errActivate := engine.Activate(ctx, issued.Code, nil); errActivate != nil {
		t.Fatalf("activate: %v", errActivate)
	}

	first, errFirst := svc.Status(ctx, issued.Code)
	if errFirst != nil {
		t.Fatalf("first status: %v", errFirst)
	}
	if !first.Valid || first.Status != models.CardStatusUsed {
		t.Fatalf("projection = %+v, want valid used card", first)
	}
	if cache.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", cache.sets)
	}

	// Second lookup must be served from cache, not recomputed.
	second, errSecond := svc.Status(ctx, issued.Code)
	if errSecond != nil {
		t.Fatalf("second status: %v", errSecond)
	}
	if second != first {
		t.Fatal("second lookup did not hit the cache")
	}

	svc.Invalidate(ctx, issued.Code)
	if _, ok := cache.Get(ctx, issued.Code); ok {
		t.Fatal("invalidate left the entry in place")
	}
}

func TestServiceTTLClampedToExpiry(t *testing.T) {
	svc := NewService(nil, nil)

	soon := time.Now().UTC().Add(5 * time.Second)
	ttl := svc.ttlFor(&Validity{Valid: true, ExpiresAt: &soon})
	if ttl > 5*time.Second {
		t.Fatalf("ttl = %v, must not outlive expiry", ttl)
	}

	far := time.Now().UTC().Add(24 * time.Hour)
	if got := svc.ttlFor(&Validity{Valid: true, ExpiresAt: &far}); got != defaultCacheTTL {
		t.Fatalf("ttl = %v, want default %v", got, defaultCacheTTL)
	}

	if got := svc.ttlFor(&Validity{Valid: false}); got != defaultCacheTTL {
		t.Fatalf("invalid projection ttl = %v, want default %v", got, defaultCacheTTL)
	}
}

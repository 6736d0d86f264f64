package catalog

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/capitalize-ai/quote-assistant/internal/model"
)

type cacheEntry struct {
	entries []model.CatalogEntry
	expires time.Time
}

// CachedStore memoizes another Store for a fixed TTL. Concurrent misses for
// the same list share a single upstream call.
type CachedStore struct {
	next  Store
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewCachedStore wraps next with a cache of the given TTL.
func NewCachedStore(next Store, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:  next,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]cacheEntry),
	}
}

// ListCategories returns every category.
func (s *CachedStore) ListCategories(ctx context.Context) ([]model.CatalogEntry, error) {
	return s.get(ctx, "categories", func(ctx context.Context) ([]model.CatalogEntry, error) {
		return s.next.ListCategories(ctx)
	})
}

// ListProducts returns the products of a category.
func (s *CachedStore) ListProducts(ctx context.Context, categoryID string) ([]model.CatalogEntry, error) {
	return s.get(ctx, "products/"+categoryID, func(ctx context.Context) ([]model.CatalogEntry, error) {
		return s.next.ListProducts(ctx, categoryID)
	})
}

// ListMaterials returns the materials of a category.
func (s *CachedStore) ListMaterials(ctx context.Context, categoryID string) ([]model.CatalogEntry, error) {
	return s.get(ctx, "materials/"+categoryID, func(ctx context.Context) ([]model.CatalogEntry, error) {
		return s.next.ListMaterials(ctx, categoryID)
	})
}

// ListFinishes returns the finishes of a product category.
func (s *CachedStore) ListFinishes(ctx context.Context, productCategoryID string) ([]model.CatalogEntry, error) {
	return s.get(ctx, "finishes/"+productCategoryID, func(ctx context.Context) ([]model.CatalogEntry, error) {
		return s.next.ListFinishes(ctx, productCategoryID)
	})
}

// Invalidate drops every cached list.
func (s *CachedStore) Invalidate() {
	s.mu.Lock()
	s.items = make(map[string]cacheEntry)
	s.mu.Unlock()
}

func (s *CachedStore) get(ctx context.Context, key string, load func(context.Context) ([]model.CatalogEntry, error)) ([]model.CatalogEntry, error) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()
	if ok && s.now().Before(item.expires) {
		return append([]model.CatalogEntry(nil), item.entries...), nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		entries, err := load(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.items[key] = cacheEntry{entries: entries, expires: s.now().Add(s.ttl)}
		s.mu.Unlock()
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]model.CatalogEntry(nil), v.([]model.CatalogEntry)...), nil
}

package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/capitalize-ai/quote-assistant/internal/model"
	"github.com/capitalize-ai/quote-assistant/pkg/logger"
	"github.com/capitalize-ai/quote-assistant/pkg/metrics"
)

// Resolver runs Lookup against the correctly scoped catalog list.
type Resolver struct {
	store  Store
	logger *logger.Logger
}

// NewResolver creates a resolver over store. A nil log uses the global logger.
func NewResolver(store Store, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Global()
	}
	return &Resolver{store: store, logger: log}
}

// Store returns the underlying catalog store.
func (r *Resolver) Store() Store {
	return r.store
}

// Category resolves a category name.
func (r *Resolver) Category(ctx context.Context, name string) (model.CatalogEntry, error) {
	entries, err := r.store.ListCategories(ctx)
	if err != nil {
		return model.CatalogEntry{}, fmt.Errorf("failed to list categories: %w", err)
	}
	return r.match(model.KindCategory, name, entries)
}

// Product resolves a product name within a category. An empty categoryID
// searches every category in catalog order.
func (r *Resolver) Product(ctx context.Context, name, categoryID string) (model.CatalogEntry, error) {
	var entries []model.CatalogEntry
	if categoryID != "" {
		list, err := r.store.ListProducts(ctx, categoryID)
		if err != nil {
			return model.CatalogEntry{}, fmt.Errorf("failed to list products: %w", err)
		}
		entries = list
	} else {
		all, err := r.AllProducts(ctx)
		if err != nil {
			return model.CatalogEntry{}, err
		}
		entries = all
	}
	return r.match(model.KindProduct, name, entries)
}

// Material resolves a material name within a category.
func (r *Resolver) Material(ctx context.Context, name, categoryID string) (model.CatalogEntry, error) {
	entries, err := r.store.ListMaterials(ctx, categoryID)
	if err != nil {
		return model.CatalogEntry{}, fmt.Errorf("failed to list materials: %w", err)
	}
	return r.match(model.KindMaterial, name, entries)
}

// Finish resolves a finish name within a product category.
func (r *Resolver) Finish(ctx context.Context, name, productCategoryID string) (model.CatalogEntry, error) {
	entries, err := r.store.ListFinishes(ctx, productCategoryID)
	if err != nil {
		return model.CatalogEntry{}, fmt.Errorf("failed to list finishes: %w", err)
	}
	return r.match(model.KindFinish, name, entries)
}

// AllProducts returns the products of every category, category by category.
func (r *Resolver) AllProducts(ctx context.Context) ([]model.CatalogEntry, error) {
	categories, err := r.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	var all []model.CatalogEntry
	for _, c := range categories {
		products, err := r.store.ListProducts(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		all = append(all, products...)
	}
	return all, nil
}

// CategoryByID returns the category with the given id.
func (r *Resolver) CategoryByID(ctx context.Context, id string) (model.CatalogEntry, error) {
	entries, err := r.store.ListCategories(ctx)
	if err != nil {
		return model.CatalogEntry{}, fmt.Errorf("failed to list categories: %w", err)
	}
	return byID(model.KindCategory, id, entries)
}

// ProductByID returns a product of the category by id.
func (r *Resolver) ProductByID(ctx context.Context, categoryID, id string) (model.CatalogEntry, error) {
	entries, err := r.store.ListProducts(ctx, categoryID)
	if err != nil {
		return model.CatalogEntry{}, fmt.Errorf("failed to list products: %w", err)
	}
	return byID(model.KindProduct, id, entries)
}

// MaterialByID returns a material of the category by id.
func (r *Resolver) MaterialByID(ctx context.Context, categoryID, id string) (model.CatalogEntry, error) {
	entries, err := r.store.ListMaterials(ctx, categoryID)
	if err != nil {
		return model.CatalogEntry{}, fmt.Errorf("failed to list materials: %w", err)
	}
	return byID(model.KindMaterial, id, entries)
}

// FinishByID returns a finish of the product category by id.
func (r *Resolver) FinishByID(ctx context.Context, productCategoryID, id string) (model.CatalogEntry, error) {
	entries, err := r.store.ListFinishes(ctx, productCategoryID)
	if err != nil {
		return model.CatalogEntry{}, fmt.Errorf("failed to list finishes: %w", err)
	}
	return byID(model.KindFinish, id, entries)
}

func (r *Resolver) match(kind model.CatalogKind, name string, entries []model.CatalogEntry) (model.CatalogEntry, error) {
	m, ok := Lookup(name, entries)
	if !ok {
		metrics.RecordLookup(string(kind), NoMatch.String())
		r.logger.Debug("catalog lookup missed",
			zap.String("kind", string(kind)),
			zap.String("input", name),
			zap.Int("candidates", len(entries)),
		)
		return model.CatalogEntry{}, fmt.Errorf("%s %q: %w", kind, name, ErrNoMatch)
	}
	metrics.RecordLookup(string(kind), m.Level.String())
	r.logger.Debug("catalog lookup matched",
		zap.String("kind", string(kind)),
		zap.String("input", name),
		zap.String("entry_id", m.Entry.ID),
		zap.Stringer("level", m.Level),
		zap.Bool("corrected", m.Corrected),
	)
	return m.Entry, nil
}

func byID(kind model.CatalogKind, id string, entries []model.CatalogEntry) (model.CatalogEntry, error) {
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return model.CatalogEntry{}, fmt.Errorf("%s id %q: %w", kind, id, ErrNoMatch)
}

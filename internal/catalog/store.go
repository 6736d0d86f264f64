package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/capitalize-ai/quote-assistant/internal/model"
)

// Store is the read-only catalog collaborator. Every list is returned in
// catalog order.
type Store interface {
	ListCategories(ctx context.Context) ([]model.CatalogEntry, error)
	ListProducts(ctx context.Context, categoryID string) ([]model.CatalogEntry, error)
	ListMaterials(ctx context.Context, categoryID string) ([]model.CatalogEntry, error)
	ListFinishes(ctx context.Context, productCategoryID string) ([]model.CatalogEntry, error)
}

// Catalog is a complete snapshot of the reference data.
type Catalog struct {
	Categories []model.CatalogEntry `yaml:"categories"`
	Products   []model.CatalogEntry `yaml:"products"`
	Materials  []model.CatalogEntry `yaml:"materials"`
	Finishes   []model.CatalogEntry `yaml:"finishes"`
}

// Validate checks identifiers and category references, fills in defaults
// and puts every list in catalog order.
func (c *Catalog) Validate() error {
	categories := make(map[string]struct{}, len(c.Categories))
	for kind, list := range map[model.CatalogKind][]model.CatalogEntry{
		model.KindCategory: c.Categories,
		model.KindProduct:  c.Products,
		model.KindMaterial: c.Materials,
		model.KindFinish:   c.Finishes,
	} {
		seen := make(map[string]struct{}, len(list))
		for i := range list {
			e := &list[i]
			if e.ID == "" || e.Name == "" {
				return fmt.Errorf("%s #%d: id and name are required", kind, i+1)
			}
			if _, dup := seen[e.ID]; dup {
				return fmt.Errorf("%s %q: duplicate id", kind, e.ID)
			}
			seen[e.ID] = struct{}{}
			if e.SortOrder == 0 {
				e.SortOrder = i + 1
			}
			if e.Price.Type == "" {
				e.Price.Type = model.PriceFixed
			}
			switch e.Price.Type {
			case model.PriceFixed, model.PricePercentage, model.PricePerUnit:
			default:
				return fmt.Errorf("%s %q: unknown price type %q", kind, e.ID, e.Price.Type)
			}
			if kind == model.KindCategory {
				categories[e.ID] = struct{}{}
			}
		}
	}

	for kind, list := range map[model.CatalogKind][]model.CatalogEntry{
		model.KindProduct:  c.Products,
		model.KindMaterial: c.Materials,
		model.KindFinish:   c.Finishes,
	} {
		for _, e := range list {
			if e.ParentCategoryID == "" && kind == model.KindProduct {
				return fmt.Errorf("product %q: category is required", e.ID)
			}
			if e.ParentCategoryID == "" {
				continue
			}
			if _, ok := categories[e.ParentCategoryID]; !ok {
				return fmt.Errorf("%s %q: unknown category %q", kind, e.ID, e.ParentCategoryID)
			}
		}
	}

	SortEntries(c.Categories)
	SortEntries(c.Products)
	SortEntries(c.Materials)
	SortEntries(c.Finishes)
	return nil
}

// StaticStore serves a fixed catalog snapshot.
type StaticStore struct {
	catalog Catalog
}

// NewStaticStore validates c and returns a store serving it.
func NewStaticStore(c Catalog) (*StaticStore, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &StaticStore{catalog: c}, nil
}

// ListCategories returns every category.
func (s *StaticStore) ListCategories(ctx context.Context) ([]model.CatalogEntry, error) {
	return append([]model.CatalogEntry(nil), s.catalog.Categories...), nil
}

// ListProducts returns the products of a category.
func (s *StaticStore) ListProducts(ctx context.Context, categoryID string) ([]model.CatalogEntry, error) {
	return scoped(s.catalog.Products, categoryID, false), nil
}

// ListMaterials returns the materials of a category, including global ones.
func (s *StaticStore) ListMaterials(ctx context.Context, categoryID string) ([]model.CatalogEntry, error) {
	return scoped(s.catalog.Materials, categoryID, true), nil
}

// ListFinishes returns the finishes of a product category, including global ones.
func (s *StaticStore) ListFinishes(ctx context.Context, productCategoryID string) ([]model.CatalogEntry, error) {
	return scoped(s.catalog.Finishes, productCategoryID, true), nil
}

func scoped(list []model.CatalogEntry, categoryID string, includeGlobal bool) []model.CatalogEntry {
	var out []model.CatalogEntry
	for _, e := range list {
		if e.ParentCategoryID == categoryID || (includeGlobal && e.ParentCategoryID == "") {
			out = append(out, e)
		}
	}
	return out
}

// FileStore serves the catalog from a YAML file, re-reading it on every
// call. Wrap it in a CachedStore for production use.
type FileStore struct {
	path string
}

// NewFileStore returns a store reading path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// LoadFile reads and validates a YAML catalog.
func LoadFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return c, nil
}

func (s *FileStore) snapshot(ctx context.Context) (*StaticStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := LoadFile(s.path)
	if err != nil {
		return nil, err
	}
	return &StaticStore{catalog: c}, nil
}

// ListCategories returns every category.
func (s *FileStore) ListCategories(ctx context.Context) ([]model.CatalogEntry, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.ListCategories(ctx)
}

// ListProducts returns the products of a category.
func (s *FileStore) ListProducts(ctx context.Context, categoryID string) ([]model.CatalogEntry, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.ListProducts(ctx, categoryID)
}

// ListMaterials returns the materials of a category.
func (s *FileStore) ListMaterials(ctx context.Context, categoryID string) ([]model.CatalogEntry, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.ListMaterials(ctx, categoryID)
}

// ListFinishes returns the finishes of a product category.
func (s *FileStore) ListFinishes(ctx context.Context, productCategoryID string) ([]model.CatalogEntry, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.ListFinishes(ctx, productCategoryID)
}

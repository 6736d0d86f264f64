package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/quote-assistant/internal/model"
)

const testYAML = `
categories:
  - id: pouches
    name: Pouches
    sort_order: 1
  - id: boxes
    name: Boxes
    sort_order: 2
products:
  - id: standup
    name: Standup Pouch
    category: pouches
    sort_order: 2
    dimension_fields: [width, height, gusset]
    price: {unit_price: 0.2}
  - id: flat
    name: Flat Pouch
    category: pouches
    sort_order: 1
    price: {unit_price: 0.1}
materials:
  - id: kraft
    name: Kraft Paper
    category: pouches
    price: {unit_price: 0.003}
finishes:
  - id: matte
    name: Matte
    category: pouches
    price: {unit_price: 10, price_type: percentage}
  - id: spot-uv
    name: Spot UV
    price: {unit_price: 75}
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	c, err := LoadFile(writeCatalog(t, testYAML))
	require.NoError(t, err)

	require.Len(t, c.Products, 2)
	assert.Equal(t, "flat", c.Products[0].ID, "products are sorted into catalog order")
	assert.Equal(t, []string{"width", "height", "gusset"}, c.Products[1].DimensionFields)
	assert.Equal(t, model.PriceFixed, c.Finishes[1].Price.Type, "price type defaults to fixed")
	assert.Equal(t, model.PricePercentage, c.Finishes[0].Price.Type)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFile(writeCatalog(t, "categories: [unterminated"))
	assert.Error(t, err)
}

func TestCatalogValidate(t *testing.T) {
	tests := []struct {
		name    string
		catalog Catalog
		wantErr string
	}{
		{
			name: "duplicate id",
			catalog: Catalog{Categories: []model.CatalogEntry{
				{ID: "a", Name: "A"}, {ID: "a", Name: "Again"},
			}},
			wantErr: "duplicate id",
		},
		{
			name:    "missing name",
			catalog: Catalog{Categories: []model.CatalogEntry{{ID: "a"}}},
			wantErr: "id and name are required",
		},
		{
			name: "unknown category",
			catalog: Catalog{
				Categories: []model.CatalogEntry{{ID: "a", Name: "A"}},
				Materials:  []model.CatalogEntry{{ID: "m", Name: "M", ParentCategoryID: "b"}},
			},
			wantErr: "unknown category",
		},
		{
			name: "product without category",
			catalog: Catalog{
				Products: []model.CatalogEntry{{ID: "p", Name: "P"}},
			},
			wantErr: "category is required",
		},
		{
			name: "unknown price type",
			catalog: Catalog{
				Categories: []model.CatalogEntry{{ID: "a", Name: "A", Price: model.PriceFields{Type: "per_hour"}}},
			},
			wantErr: "unknown price type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.catalog.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStaticStoreScoping(t *testing.T) {
	c, err := LoadFile(writeCatalog(t, testYAML))
	require.NoError(t, err)
	s, err := NewStaticStore(c)
	require.NoError(t, err)
	ctx := context.Background()

	products, err := s.ListProducts(ctx, "boxes")
	require.NoError(t, err)
	assert.Empty(t, products)

	finishes, err := s.ListFinishes(ctx, "pouches")
	require.NoError(t, err)
	assert.Len(t, finishes, 2, "global finishes apply to every category")

	finishes, err = s.ListFinishes(ctx, "boxes")
	require.NoError(t, err)
	require.Len(t, finishes, 1)
	assert.Equal(t, "spot-uv", finishes[0].ID)
}

func TestFileStoreRereadsFile(t *testing.T) {
	path := writeCatalog(t, testYAML)
	s := NewFileStore(path)
	ctx := context.Background()

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 2)

	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - {id: jars, name: Jars}\n"), 0o600))
	categories, err = s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "jars", categories[0].ID)
}

type countingStore struct {
	Store
	calls atomic.Int32
	err   error
}

func (s *countingStore) ListCategories(ctx context.Context) ([]model.CatalogEntry, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return []model.CatalogEntry{{ID: "pouches", Name: "Pouches"}}, nil
}

func TestCachedStore(t *testing.T) {
	next := &countingStore{}
	s := NewCachedStore(next, time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := s.ListCategories(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		got[0].Name = "mutated"
	}
	assert.Equal(t, int32(1), next.calls.Load())

	got, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Pouches", got[0].Name, "callers receive copies")

	now = now.Add(2 * time.Minute)
	_, err = s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())

	s.Invalidate()
	_, err = s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), next.calls.Load())
}

func TestCachedStoreDoesNotCacheErrors(t *testing.T) {
	next := &countingStore{err: errors.New("offline")}
	s := NewCachedStore(next, time.Minute)

	_, err := s.ListCategories(context.Background())
	require.Error(t, err)

	next.err = nil
	_, err = s.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/quote-assistant/internal/model"
	"github.com/capitalize-ai/quote-assistant/pkg/logger"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	s, err := NewStaticStore(Catalog{
		Categories: []model.CatalogEntry{
			{ID: "pouches", Name: "Pouches", Aliases: []string{"bags"}},
			{ID: "boxes", Name: "Boxes"},
		},
		Products: []model.CatalogEntry{
			{ID: "flat", Name: "Flat Pouch", ParentCategoryID: "pouches"},
			{ID: "mailer", Name: "Mailer Box", ParentCategoryID: "boxes"},
		},
		Materials: []model.CatalogEntry{
			{ID: "kraft", Name: "Kraft Paper", ParentCategoryID: "pouches"},
			{ID: "corrugated", Name: "Corrugated", ParentCategoryID: "boxes"},
		},
		Finishes: []model.CatalogEntry{
			{ID: "spot-uv", Name: "Spot UV"},
		},
	})
	require.NoError(t, err)
	return NewResolver(s, logger.NewNop())
}

func TestResolverProductAcrossCategories(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	p, err := r.Product(ctx, "mailer", "")
	require.NoError(t, err)
	assert.Equal(t, "mailer", p.ID)
	assert.Equal(t, "boxes", p.ParentCategoryID)

	_, err = r.Product(ctx, "mailer", "pouches")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestResolverScopesMaterials(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	m, err := r.Material(ctx, "craft", "pouches")
	require.NoError(t, err)
	assert.Equal(t, "kraft", m.ID)

	_, err = r.Material(ctx, "corrugated", "pouches")
	assert.ErrorIs(t, err, ErrNoMatch)

	f, err := r.Finish(ctx, "spot uv", "boxes")
	require.NoError(t, err)
	assert.Equal(t, "spot-uv", f.ID)
}

func TestResolverCategoryAlias(t *testing.T) {
	r := newTestResolver(t)

	c, err := r.Category(context.Background(), "Bags")
	require.NoError(t, err)
	assert.Equal(t, "pouches", c.ID)
}

func TestResolverByID(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	p, err := r.ProductByID(ctx, "pouches", "flat")
	require.NoError(t, err)
	assert.Equal(t, "Flat Pouch", p.Name)

	_, err = r.CategoryByID(ctx, "jars")
	assert.ErrorIs(t, err, ErrNoMatch)
}

type failingStore struct {
	Store
}

func (failingStore) ListCategories(context.Context) ([]model.CatalogEntry, error) {
	return nil, errors.New("catalog offline")
}

func TestResolverStoreFailureIsNotNoMatch(t *testing.T) {
	r := NewResolver(failingStore{}, nil)

	_, err := r.Category(context.Background(), "pouches")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoMatch)

	_, err = r.Product(context.Background(), "flat", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoMatch)
}

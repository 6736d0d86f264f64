package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/quote-assistant/internal/model"
)

func testRequest(quantities ...int) model.QuoteRequest {
	return model.QuoteRequest{
		Product: model.CatalogEntry{ID: "flat", Name: "Flat Pouch", Price: model.PriceFields{UnitPrice: 0.10}},
		Materials: []model.CatalogEntry{
			{ID: "kraft", Name: "Kraft", Price: model.PriceFields{UnitPrice: 0.003}},
		},
		Finishes: []model.CatalogEntry{
			{ID: "uv", Name: "Spot UV", Price: model.PriceFields{UnitPrice: 50, Type: model.PriceFixed}},
			{ID: "matte", Name: "Matte", Price: model.PriceFields{UnitPrice: 10, Type: model.PricePercentage}},
			{ID: "zip", Name: "Zipper", Price: model.PriceFields{UnitPrice: 0.02, Type: model.PricePerUnit}},
		},
		Dimensions: []model.Dimension{
			{Name: "width", Value: 5, Unit: "in"},
			{Name: "height", Value: 4, Unit: "in"},
		},
		Quantities: quantities,
		SKUCount:   2,
	}
}

func testRules() Rules {
	rules := DefaultRules()
	rules.SetupFeePerSKU = 25
	rules.TaxRate = 0.1
	rules.ShippingFlat = 15
	rules.ShippingPerUnit = 0.01
	return rules
}

func TestPriceBreakdown(t *testing.T) {
	tiers, err := NewEngine(testRules()).Price(testRequest(1000))
	require.NoError(t, err)
	require.Len(t, tiers, 1)
	b := tiers[0]

	assert.Equal(t, 1000, b.Quantity)
	assert.InDelta(t, 20, b.Area, 1e-9)
	assert.InDelta(t, 100, b.Base, 1e-9)
	assert.InDelta(t, 60, b.MaterialCost, 1e-9)

	require.Len(t, b.FinishCharges, 3)
	assert.InDelta(t, 50, b.FinishCharges[0].Amount, 1e-9)
	assert.InDelta(t, 16, b.FinishCharges[1].Amount, 1e-9, "percentage of base plus material")
	assert.InDelta(t, 20, b.FinishCharges[2].Amount, 1e-9)
	assert.InDelta(t, 86, b.FinishCost, 1e-9)

	assert.InDelta(t, 50, b.SetupCost, 1e-9)
	assert.InDelta(t, 296, b.Subtotal, 1e-9)
	assert.InDelta(t, 0.15, b.DiscountRate, 1e-9)
	assert.InDelta(t, 44.40, b.Discount, 1e-9)
	assert.InDelta(t, 251.60, b.Taxable, 1e-9)
	assert.InDelta(t, 25.16, b.Tax, 1e-9)
	assert.InDelta(t, 25, b.Shipping, 1e-9)
	assert.InDelta(t, 301.76, b.Total, 1e-9)
	assert.InDelta(t, 0.3018, b.UnitPrice, 1e-9)
}

func TestFreeShippingThreshold(t *testing.T) {
	rules := testRules()
	rules.FreeShippingThreshold = 200

	tiers, err := NewEngine(rules).Price(testRequest(10, 1000))
	require.NoError(t, err)

	assert.Positive(t, tiers[0].Shipping, "small orders pay shipping")
	assert.Zero(t, tiers[1].Shipping)
}

func TestDiscountBoundariesAreInclusive(t *testing.T) {
	e := NewEngine(DefaultRules())

	tests := []struct {
		quantity int
		rate     float64
	}{
		{1, 0},
		{99, 0},
		{100, 0.05},
		{499, 0.05},
		{500, 0.10},
		{999, 0.10},
		{1000, 0.15},
		{250000, 0.15},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.rate, e.DiscountRate(tt.quantity), "quantity %d", tt.quantity)
	}
}

func TestDiscountsSortedOnConstruction(t *testing.T) {
	rules := DefaultRules()
	rules.Discounts = []DiscountTier{{MinQuantity: 1000, Rate: 0.2}, {MinQuantity: 10, Rate: 0.01}}
	e := NewEngine(rules)

	assert.Equal(t, 0.2, e.DiscountRate(5000))
	assert.Equal(t, 0.01, e.DiscountRate(500))
}

func TestTiersAreIndependentAndDeterministic(t *testing.T) {
	e := NewEngine(testRules())

	combined, err := e.Price(testRequest(100, 500, 1000))
	require.NoError(t, err)
	require.Len(t, combined, 3)

	for i, q := range []int{100, 500, 1000} {
		single, err := e.Price(testRequest(q))
		require.NoError(t, err)
		assert.Equal(t, single[0], combined[i])
	}

	again, err := e.Price(testRequest(100, 500, 1000))
	require.NoError(t, err)
	assert.Equal(t, combined, again)
}

func TestSKUCountDefaultsToOne(t *testing.T) {
	req := testRequest(1000)
	req.SKUCount = 0

	tiers, err := NewEngine(testRules()).Price(req)
	require.NoError(t, err)
	assert.InDelta(t, 25, tiers[0].SetupCost, 1e-9)
}

func TestPriceRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *model.QuoteRequest)
	}{
		{"missing product", func(r *model.QuoteRequest) { r.Product = model.CatalogEntry{} }},
		{"no quantities", func(r *model.QuoteRequest) { r.Quantities = nil }},
		{"zero quantity", func(r *model.QuoteRequest) { r.Quantities = []int{0} }},
		{"negative dimension", func(r *model.QuoteRequest) { r.Dimensions[0].Value = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest(1000)
			tt.mutate(&req)
			_, err := NewEngine(DefaultRules()).Price(req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

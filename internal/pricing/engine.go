// Package pricing computes quote breakdowns. It holds no state.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/capitalize-ai/quote-assistant/internal/model"
)

// ErrInvalidRequest is returned for requests that cannot be priced.
var ErrInvalidRequest = errors.New("invalid quote request")

// DiscountTier applies Rate to any quantity of at least MinQuantity.
type DiscountTier struct {
	MinQuantity int
	Rate        float64
}

// Rules are the commercial parameters of the engine.
type Rules struct {
	Discounts             []DiscountTier
	TaxRate               float64
	ShippingFlat          float64
	ShippingPerUnit       float64
	FreeShippingThreshold float64
	SetupFeePerSKU        float64
	Currency              string
}

// DefaultDiscounts are the standard volume discounts.
var DefaultDiscounts = []DiscountTier{
	{MinQuantity: 100, Rate: 0.05},
	{MinQuantity: 500, Rate: 0.10},
	{MinQuantity: 1000, Rate: 0.15},
}

// DefaultRules returns rules with the standard discounts and no tax,
// shipping or setup charges.
func DefaultRules() Rules {
	return Rules{
		Discounts: append([]DiscountTier(nil), DefaultDiscounts...),
		Currency:  "USD",
	}
}

// Engine prices quote requests.
type Engine struct {
	rules Rules
}

// NewEngine creates an engine with rules.
func NewEngine(rules Rules) *Engine {
	rules.Discounts = append([]DiscountTier(nil), rules.Discounts...)
	sort.Slice(rules.Discounts, func(i, j int) bool {
		return rules.Discounts[i].MinQuantity < rules.Discounts[j].MinQuantity
	})
	if rules.Currency == "" {
		rules.Currency = "USD"
	}
	return &Engine{rules: rules}
}

// Rules returns the engine's rules.
func (e *Engine) Rules() Rules {
	return e.rules
}

// Price computes one breakdown per quantity tier. Tiers are computed
// independently from the same immutable request.
func (e *Engine) Price(req model.QuoteRequest) ([]model.Breakdown, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	tiers := make([]model.Breakdown, 0, len(req.Quantities))
	for _, q := range req.Quantities {
		tiers = append(tiers, e.tier(req, q))
	}
	return tiers, nil
}

// DiscountRate returns the discount for quantity. Thresholds are inclusive.
func (e *Engine) DiscountRate(quantity int) float64 {
	rate := 0.0
	for _, d := range e.rules.Discounts {
		if quantity >= d.MinQuantity {
			rate = d.Rate
		}
	}
	return rate
}

func (e *Engine) tier(req model.QuoteRequest, quantity int) model.Breakdown {
	q := float64(quantity)
	b := model.Breakdown{Quantity: quantity}

	b.Area = 1
	for _, d := range req.Dimensions {
		b.Area *= d.Value
	}
	b.Area = round(b.Area, 4)

	b.Base = cents(req.Product.Price.UnitPrice * q)
	for _, m := range req.Materials {
		b.MaterialCost += m.Price.UnitPrice * b.Area * q
	}
	b.MaterialCost = cents(b.MaterialCost)

	for _, f := range req.Finishes {
		var amount float64
		switch f.Price.Type {
		case model.PricePercentage:
			amount = f.Price.UnitPrice / 100 * (b.Base + b.MaterialCost)
		case model.PricePerUnit:
			amount = f.Price.UnitPrice * q
		default:
			amount = f.Price.UnitPrice
		}
		amount = cents(amount)
		b.FinishCharges = append(b.FinishCharges, model.FinishCharge{
			FinishID: f.ID,
			Name:     f.Name,
			Type:     f.Price.Type,
			Amount:   amount,
		})
		b.FinishCost += amount
	}
	b.FinishCost = cents(b.FinishCost)

	skus := req.SKUCount
	if skus < 1 {
		skus = 1
	}
	b.SetupCost = cents(e.rules.SetupFeePerSKU * float64(skus))

	b.Subtotal = cents(b.Base + b.MaterialCost + b.FinishCost + b.SetupCost)
	b.DiscountRate = e.DiscountRate(quantity)
	b.Discount = cents(b.Subtotal * b.DiscountRate)
	b.Taxable = cents(b.Subtotal - b.Discount)
	b.Tax = cents(b.Taxable * e.rules.TaxRate)

	if e.rules.FreeShippingThreshold <= 0 || b.Taxable < e.rules.FreeShippingThreshold {
		b.Shipping = cents(e.rules.ShippingFlat + e.rules.ShippingPerUnit*q)
	}

	b.Total = cents(b.Taxable + b.Tax + b.Shipping)
	b.UnitPrice = round(b.Total/q, 4)
	return b
}

func validate(req model.QuoteRequest) error {
	if req.Product.ID == "" {
		return fmt.Errorf("%w: product is required", ErrInvalidRequest)
	}
	if len(req.Quantities) == 0 {
		return fmt.Errorf("%w: at least one quantity is required", ErrInvalidRequest)
	}
	for _, q := range req.Quantities {
		if q <= 0 {
			return fmt.Errorf("%w: quantity %d must be positive", ErrInvalidRequest, q)
		}
	}
	for _, d := range req.Dimensions {
		if d.Value <= 0 {
			return fmt.Errorf("%w: dimension %s must be positive", ErrInvalidRequest, d.Name)
		}
	}
	return nil
}

func cents(v float64) float64 {
	return round(v, 2)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

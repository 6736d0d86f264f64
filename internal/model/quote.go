package model

import (
	"time"
)

// QuoteRequest is a fully specified order handed to the pricing engine.
// Build it only once every required field is resolved; do not mutate it.
type QuoteRequest struct {
	Product    CatalogEntry   `json:"product"`
	Materials  []CatalogEntry `json:"materials"`
	Finishes   []CatalogEntry `json:"finishes"`
	Dimensions []Dimension    `json:"dimensions"`
	Quantities []int          `json:"quantities"`
	SKUCount   int            `json:"sku_count"`
}

// FinishCharge is the cost contributed by one finish in one tier.
type FinishCharge struct {
	FinishID string    `json:"finish_id"`
	Name     string    `json:"name"`
	Type     PriceType `json:"price_type"`
	Amount   float64   `json:"amount"`
}

// Breakdown is the priced result for one quantity tier. Every intermediate
// value is kept for display.
type Breakdown struct {
	Quantity      int            `json:"quantity"`
	Area          float64        `json:"area"`
	Base          float64        `json:"base"`
	MaterialCost  float64        `json:"material_cost"`
	FinishCharges []FinishCharge `json:"finish_charges,omitempty"`
	FinishCost    float64        `json:"finish_cost"`
	SetupCost     float64        `json:"setup_cost"`
	Subtotal      float64        `json:"subtotal"`
	DiscountRate  float64        `json:"discount_rate"`
	Discount      float64        `json:"discount"`
	Taxable       float64        `json:"taxable"`
	Tax           float64        `json:"tax"`
	Shipping      float64        `json:"shipping"`
	Total         float64        `json:"total"`
	UnitPrice     float64        `json:"unit_price"`
}

// Quote is a priced QuoteRequest with one breakdown per tier.
type Quote struct {
	ID        string       `json:"id"`
	Request   QuoteRequest `json:"request"`
	Tiers     []Breakdown  `json:"tiers"`
	Currency  string       `json:"currency"`
	CreatedAt time.Time    `json:"created_at"`
}

package model

import (
	"time"
)

// Dimension is one named measurement of a product.
type Dimension struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Selection is a catalog entry chosen during the conversation.
type Selection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CollectedData is everything gathered so far. Nil / empty fields are unset.
type CollectedData struct {
	Category   *Selection  `json:"category,omitempty"`
	Product    *Selection  `json:"product,omitempty"`
	Materials  []Selection `json:"materials,omitempty"`
	Finishes   []Selection `json:"finishes,omitempty"`
	Dimensions []Dimension `json:"dimensions,omitempty"`
	Quantities []int       `json:"quantities,omitempty"`
	SKUCount   int         `json:"sku_count,omitempty"`

	// DimensionFields and DimensionUnit are copied from the product when it
	// is selected. DimensionIndex is the next field to collect.
	DimensionFields []string `json:"dimension_fields,omitempty"`
	DimensionUnit   string   `json:"dimension_unit,omitempty"`
	DimensionIndex  int      `json:"current_dimension_index,omitempty"`

	// Acknowledgements.
	GreetingAccepted bool `json:"greeting_accepted,omitempty"`
	FinishesSkipped  bool `json:"finishes_skipped,omitempty"`
	ReviewConfirmed  bool `json:"review_confirmed,omitempty"`
	QuoteAccepted    bool `json:"quote_accepted,omitempty"`
}

// ConversationState is the stored state of one user's session.
type ConversationState struct {
	UserKey       string        `json:"user_key"`
	Step          Step          `json:"step"`
	Data          CollectedData `json:"collected_data"`
	StartedAt     time.Time     `json:"started_at"`
	LastMessageAt time.Time     `json:"last_message_at"`
	Turns         int           `json:"turns"`
	QuoteID       string        `json:"quote_id,omitempty"`
}

// NewConversationState returns a fresh session at the start step.
func NewConversationState(userKey string, now time.Time) *ConversationState {
	return &ConversationState{
		UserKey:       userKey,
		Step:          StepStart,
		StartedAt:     now,
		LastMessageAt: now,
	}
}

// Completed reports whether the session is finished and immutable.
func (s *ConversationState) Completed() bool {
	return s.Step.Terminal()
}

// Clone returns a deep copy of the state.
func (s *ConversationState) Clone() *ConversationState {
	c := *s
	c.Data = s.Data.Clone()
	return &c
}

// Clone returns a deep copy of the collected data.
func (d CollectedData) Clone() CollectedData {
	c := d
	if d.Category != nil {
		cat := *d.Category
		c.Category = &cat
	}
	if d.Product != nil {
		p := *d.Product
		c.Product = &p
	}
	c.Materials = append([]Selection(nil), d.Materials...)
	c.Finishes = append([]Selection(nil), d.Finishes...)
	c.Dimensions = append([]Dimension(nil), d.Dimensions...)
	c.Quantities = append([]int(nil), d.Quantities...)
	c.DimensionFields = append([]string(nil), d.DimensionFields...)
	return c
}

// SetProduct records the product and its dimension layout.
func (d *CollectedData) SetProduct(p CatalogEntry) {
	d.Product = &Selection{ID: p.ID, Name: p.Name}
	d.DimensionFields = append([]string(nil), p.Dimensions()...)
	d.DimensionUnit = p.Unit()
	d.Dimensions = nil
	d.DimensionIndex = 0
}

// DimensionsResolved reports whether every dimension field has a value.
func (d CollectedData) DimensionsResolved() bool {
	return d.Product != nil && len(d.DimensionFields) > 0 && len(d.Dimensions) >= len(d.DimensionFields)
}

// FinishesResolved reports whether the finish step has an answer, which may
// be an explicit "no finish".
func (d CollectedData) FinishesResolved() bool {
	return len(d.Finishes) > 0 || d.FinishesSkipped
}

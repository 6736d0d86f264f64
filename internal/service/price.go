package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/capitalize-ai/quote-assistant/internal/catalog"
	"github.com/capitalize-ai/quote-assistant/internal/model"
	"github.com/capitalize-ai/quote-assistant/internal/pricing"
)

// PriceService prices an order given by catalog names, outside any
// conversation.
type PriceService struct {
	resolver *catalog.Resolver
	engine   *pricing.Engine
	now      func() time.Time
}

// NewPriceService creates a price service.
func NewPriceService(resolver *catalog.Resolver, engine *pricing.Engine) *PriceService {
	return &PriceService{resolver: resolver, engine: engine, now: time.Now}
}

// Quote resolves every name in req and prices the result. Names that do not
// resolve return an error wrapping catalog.ErrNoMatch; unpriceable requests
// wrap pricing.ErrInvalidRequest.
func (s *PriceService) Quote(ctx context.Context, req model.PriceRequest) (*model.Quote, error) {
	categoryID := ""
	if req.Category != "" {
		c, err := s.resolver.Category(ctx, req.Category)
		if err != nil {
			return nil, err
		}
		categoryID = c.ID
	}

	product, err := s.resolver.Product(ctx, req.Product, categoryID)
	if err != nil {
		return nil, err
	}
	categoryID = product.ParentCategoryID

	qr := model.QuoteRequest{
		Product:    product,
		Quantities: append([]int(nil), req.Quantities...),
		SKUCount:   req.SKUCount,
	}
	for _, name := range req.Materials {
		m, err := s.resolver.Material(ctx, name, categoryID)
		if err != nil {
			return nil, err
		}
		qr.Materials = append(qr.Materials, m)
	}
	for _, name := range req.Finishes {
		f, err := s.resolver.Finish(ctx, name, categoryID)
		if err != nil {
			return nil, err
		}
		qr.Finishes = append(qr.Finishes, f)
	}

	fields := product.Dimensions()
	if len(req.Dimensions) != len(fields) {
		return nil, fmt.Errorf("%w: %s needs %d dimensions, got %d",
			pricing.ErrInvalidRequest, product.Name, len(fields), len(req.Dimensions))
	}
	for i, v := range req.Dimensions {
		qr.Dimensions = append(qr.Dimensions, model.Dimension{Name: fields[i], Value: v, Unit: product.Unit()})
	}
	if qr.SKUCount == 0 {
		qr.SKUCount = 1
	}

	tiers, err := s.engine.Price(qr)
	if err != nil {
		return nil, err
	}
	return &model.Quote{
		ID:        uuid.NewString(),
		Request:   qr,
		Tiers:     tiers,
		Currency:  s.engine.Rules().Currency,
		CreatedAt: s.now(),
	}, nil
}

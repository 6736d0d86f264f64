package conversation

import (
	"context"
	"errors"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/capitalize-ai/quote-assistant/internal/catalog"
	"github.com/capitalize-ai/quote-assistant/internal/model"
	"github.com/capitalize-ai/quote-assistant/internal/parse"
)

// Each handler either resolves its field and returns the following step,
// or replies and returns the current step. An empty Turn means "prompt":
// a handler whose field is already resolved passes straight through.

func (m *Machine) handleStart(ctx context.Context, st *model.ConversationState, in Turn, res *Result) (model.Step, error) {
	if in.empty() {
		if st.Data.GreetingAccepted {
			return next(st.Data), nil
		}
		return model.StepStart, nil
	}

	if err := m.applyEntities(ctx, st, in.Entities); err != nil {
		return st.Step, err
	}
	if st.Data.Category != nil || st.Data.Product != nil {
		st.Data.GreetingAccepted = true
		return next(st.Data), nil
	}

	switch {
	case isAffirmative(in.Text):
		st.Data.GreetingAccepted = true
		// "yes, standup pouch" still names what they want.
		if rest := affirmativeRest(in.Text); rest != "" {
			found, err := m.resolveOpening(ctx, st, rest)
			if err != nil {
				return st.Step, err
			}
			if found {
				return next(st.Data), nil
			}
		}
		return model.StepCategorySelection, nil
	case isNegative(in.Text):
		res.say(msgGoodbye)
		return model.StepStart, nil
	}

	// Extraction found nothing usable; try the text itself.
	found, err := m.resolveOpening(ctx, st, in.Text)
	if err != nil {
		return st.Step, err
	}
	if found {
		st.Data.GreetingAccepted = true
		return next(st.Data), nil
	}
	return model.StepGreetingResponse, nil
}

func (m *Machine) handleGreeting(ctx context.Context, st *model.ConversationState, in Turn, res *Result) (model.Step, error) {
	switch {
	case in.empty():
		res.say(msgGreeting)
		return model.StepGreetingResponse, nil
	case isAffirmative(in.Text):
		st.Data.GreetingAccepted = true
		return next(st.Data), nil
	case isNegative(in.Text):
		res.say(msgGoodbye)
		return model.StepStart, nil
	default:
		res.say(msgGreetingHelp)
		return model.StepGreetingResponse, nil
	}
}

func (m *Machine) handleCategory(ctx context.Context, st *model.ConversationState, in Turn, res *Result) (model.Step, error) {
	if st.Data.Category != nil {
		return next(st.Data), nil
	}

	categories, err := m.resolver.Store().ListCategories(ctx)
	if err != nil {
		return st.Step, err
	}
	if in.empty() {
		res.say(askCategory(categories))
		return st.Step, nil
	}

	if err := m.applyEntities(ctx, st, in.Entities); err != nil {
		return st.Step, err
	}
	if st.Data.Category == nil {
		found, err := m.resolveOpening(ctx, st, in.Text)
		if err != nil {
			return st.Step, err
		}
		if !found {
			res.say(notFound(model.KindCategory, in.Text, categories))
			return st.Step, nil
		}
	}
	return next(st.Data), nil
}

func (m *Machine) handleProduct(ctx context.Context, st *model.ConversationState, in Turn, res *Result) (model.Step, error) {
	if st.Data.Category == nil || st.Data.Product != nil {
		return next(st.Data), nil
	}

	products, err := m.resolver.Store().ListProducts(ctx, st.Data.Category.ID)
	if err != nil {
		return st.Step, err
	}
	if in.empty() {
		res.say(askProduct(st.Data.Category.Name, products))
		return st.Step, nil
	}

	if err := m.applyEntities(ctx, st, in.Entities); err != nil {
		return st.Step, err
	}
	if st.Data.Product == nil {
		p, err := m.resolver.Product(ctx, in.Text, st.Data.Category.ID)
		switch {
		case errors.Is(err, catalog.ErrNoMatch):
			res.say(notFound(model.KindProduct, in.Text, products))
			return st.Step, nil
		case err != nil:
			return st.Step, err
		}
		st.Data.SetProduct(p)
	}
	return next(st.Data), nil
}

func (m *Machine) handleDimensions(ctx context.Context, st *model.ConversationState, in Turn, res *Result) (model.Step, error) {
	d := &st.Data
	if d.Product == nil || d.DimensionsResolved() {
		return next(*d), nil
	}
	if in.Text == "" {
		res.say(askDimensions(*d))
		return st.Step, nil
	}

	dims, err := parse.Dimensions(in.Text, d.DimensionFields, d.DimensionIndex, d.DimensionUnit)
	if err != nil {
		res.say(noDimensions(*d))
		return st.Step, nil
	}
	d.Dimensions = append(d.Dimensions, dims...)
	d.DimensionIndex += len(dims)
	if !d.DimensionsResolved() {
		res.say(askDimensions(*d))
		return st.Step, nil
	}
	return next(*d), nil
}

func (m *Machine) handleMaterials(ctx context.Context, st *model.ConversationState, in Turn, res *Result) (model.Step, error) {
	d := &st.Data
	if d.Category == nil || len(d.Materials) > 0 {
		return next(*d), nil
	}

	materials, err := m.resolver.Store().ListMaterials(ctx, d.Category.ID)
	if err != nil {
		return st.Step, err
	}
	if in.Text == "" {
		res.say(askMaterial(materials))
		return st.Step, nil
	}

	picked, miss, err := m.resolveList(ctx, in.Text, materials, func(ctx context.Context, name string) (model.CatalogEntry, error) {
		return m.resolver.Material(ctx, name, d.Category.ID)
	})
	if err != nil {
		return st.Step, err
	}
	if len(picked) == 0 {
		res.say(notFound(model.KindMaterial, miss, materials))
		return st.Step, nil
	}
	d.Materials = picked
	return next(*d), nil
}

func (m *Machine) handleFinishes(ctx context.Context, st *model.ConversationState, in Turn, res *Result) (model.Step, error) {
	d := &st.Data
	if d.Category == nil || d.FinishesResolved() {
		return next(*d), nil
	}

	finishes, err := m.resolver.Store().ListFinishes(ctx, d.Category.ID)
	if err != nil {
		return st.Step, err
	}
	if len(finishes) == 0 {
		d.FinishesSkipped = true
		return next(*d), nil
	}
	if in.Text == "" {
		res.say(askFinish(finishes))
		return st.Step, nil
	}
	if isNoFinish(in.Text) {
		d.FinishesSkipped = true
		return next(*d), nil
	}

	picked, miss, err := m.resolveList(ctx, in.Text, finishes, func(ctx context.Context, name string) (model.CatalogEntry, error) {
		return m.resolver.Finish(ctx, name, d.Category.ID)
	})
	if err != nil {
		return st.Step, err
	}
	if len(picked) == 0 {
		res.say(notFound(model.KindFinish, miss, finishes))
		return st.Step, nil
	}
	d.Finishes = picked
	return next(*d), nil
}

func (m *Machine) handleQuantities(ctx context.Context, st *model.ConversationState, in Turn, res *Result) (model.Step, error) {
	d := &st.Data
	if len(d.Quantities) > 0 {
		return next(*d), nil
	}
	if in.Text == "" {
		res.say(askQuantity())
		return st.Step, nil
	}

	qs, err := parse.Quantities(in.Text)
	if err != nil {
		res.say(noQuantity())
		return st.Step, nil
	}
	d.Quantities = qs
	if n := parse.SKUCount(in.Text); n > 0 {
		d.SKUCount = n
	}
	if d.SKUCount == 0 {
		d.SKUCount = 1
	}
	return next(*d), nil
}

func (m *Machine) handleReview(ctx context.Context, st *model.ConversationState, in Turn, res *Result) (model.Step, error) {
	d := &st.Data
	if step := next(*d); step != model.StepQuoteReview && step != model.StepQuoteGeneration {
		return step, nil
	}
	if d.ReviewConfirmed {
		return model.StepQuoteGeneration, nil
	}
	if in.Text == "" {
		res.say(summary(*d))
		return st.Step, nil
	}

	if target, ok := changeTarget(in.Text); ok {
		clearFrom(d, target)
		return next(*d), nil
	}
	switch {
	case isAffirmative(in.Text):
		d.ReviewConfirmed = true
		return model.StepQuoteGeneration, nil
	case isNegative(in.Text):
		res.say("What would you like to change? For example: change quantity.")
	default:
		res.say(msgReviewHelp)
	}
	return st.Step, nil
}

func (m *Machine) handleGeneration(ctx context.Context, st *model.ConversationState, in Turn, res *Result) (model.Step, error) {
	d := &st.Data
	if !d.ReviewConfirmed {
		return next(*d), nil
	}

	switch {
	case in.Text == "":
		quote, ok, err := m.quote(ctx, st)
		if err != nil || !ok {
			return m.quoteFailed(st, res, err)
		}
		st.QuoteID = quote.ID
		res.Quote = quote
		res.say(quoteText(quote))
		return st.Step, nil
	case isAffirmative(in.Text):
		quote, ok, err := m.quote(ctx, st)
		if err != nil || !ok {
			return m.quoteFailed(st, res, err)
		}
		d.QuoteAccepted = true
		res.Quote = quote
		res.Accepted = true
		res.say(accepted(quote))
		return model.StepCompleted, nil
	case isNegative(in.Text):
		d.ReviewConfirmed = false
		return model.StepQuoteReview, nil
	default:
		res.say(msgAcceptHelp)
		return st.Step, nil
	}
}

func (m *Machine) quoteFailed(st *model.ConversationState, res *Result, err error) (model.Step, error) {
	if err != nil {
		return st.Step, err
	}
	st.Data.ReviewConfirmed = false
	res.say(msgUnavailable)
	return model.StepQuoteReview, nil
}

// quote builds and prices the request from the collected data. It reports
// false when a selection has since disappeared from the catalog.
func (m *Machine) quote(ctx context.Context, st *model.ConversationState) (*model.Quote, bool, error) {
	req, err := m.buildRequest(ctx, st.Data)
	if errors.Is(err, catalog.ErrNoMatch) {
		m.logger.Warn("selection no longer in catalog",
			zap.String("user_key", st.UserKey),
			zap.Error(err),
		)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	tiers, err := m.pricing.Price(req)
	if err != nil {
		return nil, false, err
	}

	id := st.QuoteID
	if id == "" {
		id = m.newID()
	}
	return &model.Quote{
		ID:        id,
		Request:   req,
		Tiers:     tiers,
		Currency:  m.pricing.Rules().Currency,
		CreatedAt: m.now(),
	}, true, nil
}

func (m *Machine) buildRequest(ctx context.Context, d model.CollectedData) (model.QuoteRequest, error) {
	req := model.QuoteRequest{
		Dimensions: append([]model.Dimension(nil), d.Dimensions...),
		Quantities: append([]int(nil), d.Quantities...),
		SKUCount:   d.SKUCount,
	}

	p, err := m.resolver.ProductByID(ctx, d.Category.ID, d.Product.ID)
	if err != nil {
		return req, err
	}
	req.Product = p
	for _, sel := range d.Materials {
		e, err := m.resolver.MaterialByID(ctx, d.Category.ID, sel.ID)
		if err != nil {
			return req, err
		}
		req.Materials = append(req.Materials, e)
	}
	for _, sel := range d.Finishes {
		e, err := m.resolver.FinishByID(ctx, d.Category.ID, sel.ID)
		if err != nil {
			return req, err
		}
		req.Finishes = append(req.Finishes, e)
	}
	return req, nil
}

// resolveOpening matches free text against products of every category, then
// against categories. A matched product also sets its category.
func (m *Machine) resolveOpening(ctx context.Context, st *model.ConversationState, text string) (bool, error) {
	if err := m.setProduct(ctx, st, text); err == nil {
		return true, nil
	} else if !errors.Is(err, catalog.ErrNoMatch) {
		return false, err
	}

	c, err := m.resolver.Category(ctx, text)
	switch {
	case errors.Is(err, catalog.ErrNoMatch):
		return false, nil
	case err != nil:
		return false, err
	}
	st.Data.Category = &model.Selection{ID: c.ID, Name: c.Name}
	return true, nil
}

func (m *Machine) setProduct(ctx context.Context, st *model.ConversationState, name string) error {
	categoryID := ""
	if st.Data.Category != nil {
		categoryID = st.Data.Category.ID
	}
	p, err := m.resolver.Product(ctx, name, categoryID)
	if err != nil {
		return err
	}
	if st.Data.Category == nil {
		c, err := m.resolver.CategoryByID(ctx, p.ParentCategoryID)
		if err != nil {
			return err
		}
		st.Data.Category = &model.Selection{ID: c.ID, Name: c.Name}
	}
	st.Data.SetProduct(p)
	return nil
}

type resolveFunc func(ctx context.Context, name string) (model.CatalogEntry, error)

// resolveList resolves a single name, or a list such as "kraft and PET + PE"
// where every part must match. A list that is itself the exact name of an
// entry is taken as that entry. miss names the part that did not match.
func (m *Machine) resolveList(ctx context.Context, text string, entries []model.CatalogEntry, resolve resolveFunc) ([]model.Selection, string, error) {
	parts := splitList(text)
	if len(parts) > 1 {
		if match, ok := catalog.Lookup(text, entries); ok && match.Level == catalog.MatchExact {
			return []model.Selection{{ID: match.Entry.ID, Name: match.Entry.Name}}, "", nil
		}
	} else {
		parts = []string{text}
	}

	var out []model.Selection
	for _, part := range parts {
		e, err := resolve(ctx, part)
		if errors.Is(err, catalog.ErrNoMatch) {
			return nil, part, nil
		}
		if err != nil {
			return nil, "", err
		}
		out = appendSelection(out, e)
	}
	return out, "", nil
}

func appendSelection(list []model.Selection, e model.CatalogEntry) []model.Selection {
	for _, s := range list {
		if s.ID == e.ID {
			return list
		}
	}
	return append(list, model.Selection{ID: e.ID, Name: e.Name})
}

// entityOrder applies category before product so a product lookup can be
// scoped, and product before dimensions so the fields are known.
var entityOrder = map[model.EntityKind]int{
	model.EntityCategory:  0,
	model.EntityProduct:   1,
	model.EntityMaterial:  2,
	model.EntityFinish:    3,
	model.EntityQuantity:  4,
	model.EntityDimension: 5,
}

// applyEntities fills empty fields from validated entities. Entities that do
// not resolve are logged and skipped; only store failures are errors.
func (m *Machine) applyEntities(ctx context.Context, st *model.ConversationState, entities []model.ExtractedEntity) error {
	if len(entities) == 0 {
		return nil
	}
	sorted := append([]model.ExtractedEntity(nil), entities...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return entityOrder[sorted[i].Kind] < entityOrder[sorted[j].Kind]
	})

	d := &st.Data
	for _, e := range sorted {
		value := e.Value.String()
		var err error
		switch e.Kind {
		case model.EntityCategory:
			if d.Category != nil {
				continue
			}
			var c model.CatalogEntry
			if c, err = m.resolver.Category(ctx, value); err == nil {
				d.Category = &model.Selection{ID: c.ID, Name: c.Name}
			}
		case model.EntityProduct:
			if d.Product != nil {
				continue
			}
			err = m.setProduct(ctx, st, value)
		case model.EntityMaterial:
			if d.Category == nil {
				continue
			}
			var mat model.CatalogEntry
			if mat, err = m.resolver.Material(ctx, value, d.Category.ID); err == nil {
				d.Materials = appendSelection(d.Materials, mat)
			}
		case model.EntityFinish:
			if d.Category == nil || d.FinishesSkipped {
				continue
			}
			var fin model.CatalogEntry
			if fin, err = m.resolver.Finish(ctx, value, d.Category.ID); err == nil {
				d.Finishes = appendSelection(d.Finishes, fin)
			}
		case model.EntityQuantity:
			if len(d.Quantities) == 0 {
				applyQuantity(d, e.Value)
			}
		case model.EntityDimension:
			if d.Product != nil && !d.DimensionsResolved() {
				applyDimension(d, e.Value)
			}
		}

		if errors.Is(err, catalog.ErrNoMatch) {
			m.logger.Debug("entity did not resolve",
				zap.String("kind", string(e.Kind)),
				zap.String("value", value),
			)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func applyQuantity(d *model.CollectedData, v model.EntityValue) {
	if n, ok := v.Number(); ok {
		if n >= 1 && n == math.Trunc(n) {
			d.Quantities = []int{int(n)}
		}
		return
	}
	if qs, err := parse.Quantities(v.String()); err == nil {
		d.Quantities = qs
	}
}

func applyDimension(d *model.CollectedData, v model.EntityValue) {
	dims, err := parse.Dimensions(v.String(), d.DimensionFields, d.DimensionIndex, d.DimensionUnit)
	if err != nil {
		return
	}
	d.Dimensions = append(d.Dimensions, dims...)
	d.DimensionIndex += len(dims)
}

// clearFrom forgets the field a change request names, plus anything that
// depends on it, so the step asks again.
func clearFrom(d *model.CollectedData, step model.Step) {
	d.ReviewConfirmed = false
	switch step {
	case model.StepCategorySelection:
		d.Category = nil
		d.Materials = nil
		d.Finishes = nil
		d.FinishesSkipped = false
		fallthrough
	case model.StepProductSelection:
		d.Product = nil
		d.DimensionFields = nil
		d.DimensionUnit = ""
		fallthrough
	case model.StepDimensionInput:
		d.Dimensions = nil
		d.DimensionIndex = 0
	case model.StepMaterialSelection:
		d.Materials = nil
	case model.StepFinishSelection:
		d.Finishes = nil
		d.FinishesSkipped = false
	case model.StepQuantityInput:
		d.Quantities = nil
		d.SKUCount = 0
	}
}

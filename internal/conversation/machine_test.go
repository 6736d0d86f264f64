package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/quote-assistant/internal/catalog"
	"github.com/capitalize-ai/quote-assistant/internal/extract"
	"github.com/capitalize-ai/quote-assistant/internal/model"
	"github.com/capitalize-ai/quote-assistant/internal/pricing"
	"github.com/capitalize-ai/quote-assistant/pkg/logger"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testCatalog() catalog.Catalog {
	return catalog.Catalog{
		Categories: []model.CatalogEntry{
			{ID: "pouches", Name: "Pouches", Aliases: []string{"bags"}},
			{ID: "boxes", Name: "Boxes"},
		},
		Products: []model.CatalogEntry{
			{ID: "flat-pouch", Name: "Flat Pouch (3 side seal)", ParentCategoryID: "pouches", Price: model.PriceFields{UnitPrice: 0.10}},
			{ID: "standup", Name: "Standup Pouch", Aliases: []string{"Stand-up Pouch"}, ParentCategoryID: "pouches",
				Price: model.PriceFields{UnitPrice: 0.20}, DimensionFields: []string{"width", "height", "gusset"}},
			{ID: "mailer", Name: "Mailer Box", ParentCategoryID: "boxes", Price: model.PriceFields{UnitPrice: 0.50},
				DimensionFields: []string{"length", "width", "height"}},
		},
		Materials: []model.CatalogEntry{
			{ID: "pet-pe", Name: "PET + PE", ParentCategoryID: "pouches", Price: model.PriceFields{UnitPrice: 0.002}},
			{ID: "kraft", Name: "Kraft Paper", ParentCategoryID: "pouches", Price: model.PriceFields{UnitPrice: 0.003}},
			{ID: "foil", Name: "PET + MPET + PE", ParentCategoryID: "pouches", Price: model.PriceFields{UnitPrice: 0.004}},
			{ID: "corrugated", Name: "Corrugated", ParentCategoryID: "boxes", Price: model.PriceFields{UnitPrice: 0.001}},
		},
		Finishes: []model.CatalogEntry{
			{ID: "matte", Name: "Matte Lamination", ParentCategoryID: "pouches", Price: model.PriceFields{UnitPrice: 50}},
			{ID: "gloss", Name: "Gloss", ParentCategoryID: "pouches", Price: model.PriceFields{UnitPrice: 10, Type: model.PricePercentage}},
		},
	}
}

func newTestMachine(t *testing.T, store catalog.Store) *Machine {
	t.Helper()
	if store == nil {
		s, err := catalog.NewStaticStore(testCatalog())
		require.NoError(t, err)
		store = s
	}
	log := logger.NewNop()
	m := NewMachine(catalog.NewResolver(store, log), pricing.NewEngine(pricing.DefaultRules()), extract.NewValidator(log), log)
	m.now = func() time.Time { return testNow }
	m.newID = func() string { return "0190a1b2-c3d4-7e5f-8a9b-0c1d2e3f4a5b" }
	return m
}

func advance(t *testing.T, m *Machine, st *model.ConversationState, text string, entities ...model.ExtractedEntity) *Result {
	t.Helper()
	res, err := m.Advance(context.Background(), st, Turn{Text: text, Entities: entities})
	require.NoError(t, err)
	require.NotNil(t, res.State)
	return res
}

func entity(kind model.EntityKind, value string, confidence float64) model.ExtractedEntity {
	return model.ExtractedEntity{Kind: kind, Value: model.TextValue(value), Confidence: confidence}
}

func stateAt(step model.Step, mutate func(d *model.CollectedData)) *model.ConversationState {
	st := model.NewConversationState("user-1", testNow)
	st.Step = step
	st.Data.GreetingAccepted = true
	if mutate != nil {
		mutate(&st.Data)
	}
	return st
}

func pouchData(d *model.CollectedData) {
	d.Category = &model.Selection{ID: "pouches", Name: "Pouches"}
	d.Product = &model.Selection{ID: "flat-pouch", Name: "Flat Pouch (3 side seal)"}
	d.DimensionFields = []string{"width", "height"}
	d.DimensionUnit = "in"
}

func TestFirstMessageProductSkipsCategory(t *testing.T) {
	m := newTestMachine(t, nil)
	st := model.NewConversationState("user-1", testNow)

	res := advance(t, m, st, "I need quote on flat pouch", entity(model.EntityProduct, "flat pouch", 0.5))

	require.NotNil(t, res.State.Data.Product)
	assert.Equal(t, "flat-pouch", res.State.Data.Product.ID)
	require.NotNil(t, res.State.Data.Category)
	assert.Equal(t, "pouches", res.State.Data.Category.ID)
	assert.Equal(t, model.StepDimensionInput, res.State.Step)
	assert.Equal(t, []string{"width", "height"}, res.State.Data.DimensionFields)
	require.Len(t, res.Replies, 1)
	assert.Contains(t, res.Replies[0], "width x height")
	for _, tr := range res.Transitions {
		assert.NotEqual(t, model.StepCategorySelection, tr.To)
	}
}

func TestDimensionsAdvanceWithoutReusingText(t *testing.T) {
	m := newTestMachine(t, nil)
	st := stateAt(model.StepDimensionInput, pouchData)

	res := advance(t, m, st, "5x4")

	assert.Equal(t, model.StepMaterialSelection, res.State.Step)
	assert.Equal(t, []model.Dimension{
		{Name: "width", Value: 5, Unit: "in"},
		{Name: "height", Value: 4, Unit: "in"},
	}, res.State.Data.Dimensions)
	assert.Empty(t, res.State.Data.Materials)
	require.Len(t, res.Replies, 1)
	assert.Contains(t, res.Replies[0], "Which material")
}

func TestPartialDimensionsAskForRemainingField(t *testing.T) {
	m := newTestMachine(t, nil)
	st := stateAt(model.StepDimensionInput, func(d *model.CollectedData) {
		pouchData(d)
		d.Product = &model.Selection{ID: "standup", Name: "Standup Pouch"}
		d.DimensionFields = []string{"width", "height", "gusset"}
	})

	res := advance(t, m, st, "5")
	assert.Equal(t, model.StepDimensionInput, res.State.Step)
	assert.Equal(t, 1, res.State.Data.DimensionIndex)
	require.Len(t, res.Replies, 1)
	assert.Contains(t, res.Replies[0], "height")

	res = advance(t, m, res.State, "7 by 2")
	assert.Equal(t, model.StepMaterialSelection, res.State.Step)
	require.Len(t, res.State.Data.Dimensions, 3)
	assert.Equal(t, "gusset", res.State.Data.Dimensions[2].Name)
	assert.Equal(t, 2.0, res.State.Data.Dimensions[2].Value)
}

func TestExtractionNeverAppliedInDataEntrySteps(t *testing.T) {
	m := newTestMachine(t, nil)
	strong := []model.ExtractedEntity{
		entity(model.EntityMaterial, "Kraft Paper", 0.99),
		entity(model.EntityFinish, "Gloss", 0.99),
		entity(model.EntityProduct, "Standup Pouch", 0.99),
		entity(model.EntityCategory, "Boxes", 0.99),
		entity(model.EntityQuantity, "5000", 0.99),
		entity(model.EntityDimension, "9x9", 0.99),
	}
	sized := func(d *model.CollectedData) {
		pouchData(d)
		d.Dimensions = []model.Dimension{{Name: "width", Value: 5, Unit: "in"}, {Name: "height", Value: 4, Unit: "in"}}
		d.DimensionIndex = 2
	}
	withMaterial := func(d *model.CollectedData) {
		sized(d)
		d.Materials = []model.Selection{{ID: "pet-pe", Name: "PET + PE"}}
	}
	reviewed := func(d *model.CollectedData) {
		withMaterial(d)
		d.Finishes = []model.Selection{{ID: "matte", Name: "Matte Lamination"}}
		d.Quantities = []int{1000}
		d.SKUCount = 1
		d.ReviewConfirmed = true
	}

	tests := []struct {
		name  string
		step  model.Step
		text  string
		setup func(d *model.CollectedData)
	}{
		{"material", model.StepMaterialSelection, "5x4", sized},
		{"dimension", model.StepDimensionInput, "abc", pouchData},
		{"greeting", model.StepGreetingResponse, "maybe later", nil},
		{"finish", model.StepFinishSelection, "velvet", withMaterial},
		{"quantity", model.StepQuantityInput, "lots please", func(d *model.CollectedData) {
			withMaterial(d)
			d.FinishesSkipped = true
		}},
		{"quote generation", model.StepQuoteGeneration, "hmm", reviewed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := stateAt(tt.step, tt.setup)
			if tt.step == model.StepGreetingResponse {
				st.Data.GreetingAccepted = false
			}
			before := st.Data.Clone()

			res := advance(t, m, st, tt.text, strong...)

			assert.Equal(t, tt.step, res.State.Step)
			got := res.State.Data
			assert.Equal(t, before.Category, got.Category)
			assert.Equal(t, before.Product, got.Product)
			assert.Equal(t, before.Materials, got.Materials)
			assert.Equal(t, before.Finishes, got.Finishes)
			assert.Equal(t, before.Quantities, got.Quantities)
			assert.Equal(t, before.Dimensions, got.Dimensions)
		})
	}
}

func TestQuantityTiersKeepInputOrder(t *testing.T) {
	m := newTestMachine(t, nil)
	st := stateAt(model.StepQuantityInput, func(d *model.CollectedData) {
		pouchData(d)
		d.Dimensions = []model.Dimension{{Name: "width", Value: 5, Unit: "in"}, {Name: "height", Value: 4, Unit: "in"}}
		d.DimensionIndex = 2
		d.Materials = []model.Selection{{ID: "kraft", Name: "Kraft Paper"}}
		d.FinishesSkipped = true
	})

	res := advance(t, m, st, "5k, 1000, 500")

	assert.Equal(t, model.StepQuoteReview, res.State.Step)
	assert.Equal(t, []int{5000, 1000, 500}, res.State.Data.Quantities)
}

func TestLowConfidenceMaterialIsNotApplied(t *testing.T) {
	m := newTestMachine(t, nil)
	st := stateAt(model.StepCategorySelection, nil)

	res := advance(t, m, st, "pouches with kraft",
		entity(model.EntityCategory, "pouches", 0.9),
		entity(model.EntityMaterial, "Kraft Paper", 0.79),
	)
	assert.Empty(t, res.State.Data.Materials)
	assert.Equal(t, model.StepProductSelection, res.State.Step)

	res = advance(t, m, st, "pouches with kraft",
		entity(model.EntityCategory, "pouches", 0.9),
		entity(model.EntityMaterial, "Kraft Paper", 0.8),
	)
	require.Len(t, res.State.Data.Materials, 1)
	assert.Equal(t, "kraft", res.State.Data.Materials[0].ID)
}

func TestCategoryNotFoundKeepsStep(t *testing.T) {
	m := newTestMachine(t, nil)
	st := stateAt(model.StepCategorySelection, nil)

	res := advance(t, m, st, "2")

	assert.Equal(t, model.StepCategorySelection, res.State.Step)
	assert.Nil(t, res.State.Data.Category)
	require.Len(t, res.Replies, 1)
	assert.Contains(t, res.Replies[0], "exact name")
	assert.Contains(t, res.Replies[0], "Pouches, Boxes")
}

func TestCategoryStepAcceptsProductName(t *testing.T) {
	m := newTestMachine(t, nil)
	st := stateAt(model.StepCategorySelection, nil)

	res := advance(t, m, st, "stand-up pouch")

	assert.Equal(t, model.StepDimensionInput, res.State.Step)
	assert.Equal(t, "pouches", res.State.Data.Category.ID)
	assert.Equal(t, "standup", res.State.Data.Product.ID)
}

func TestResetPhrase(t *testing.T) {
	m := newTestMachine(t, nil)

	t.Run("outside data entry", func(t *testing.T) {
		st := stateAt(model.StepProductSelection, func(d *model.CollectedData) {
			d.Category = &model.Selection{ID: "boxes", Name: "Boxes"}
		})
		res := advance(t, m, st, "actually let's start over")

		assert.True(t, res.Reset)
		assert.Nil(t, res.State.Data.Category)
		assert.Equal(t, model.StepCategorySelection, res.State.Step)
		assert.Equal(t, msgReset, res.Replies[0])
	})

	t.Run("literal inside data entry", func(t *testing.T) {
		st := stateAt(model.StepQuantityInput, pouchData)
		res := advance(t, m, st, "start over")

		assert.False(t, res.Reset)
		assert.Equal(t, model.StepQuantityInput, res.State.Step)
		assert.Equal(t, "pouches", res.State.Data.Category.ID)
	})

	t.Run("command inside data entry", func(t *testing.T) {
		st := stateAt(model.StepQuantityInput, pouchData)
		res := advance(t, m, st, "/reset")

		assert.True(t, res.Reset)
		assert.Nil(t, res.State.Data.Product)
		assert.Equal(t, model.StepCategorySelection, res.State.Step)
	})
}

func TestGreeting(t *testing.T) {
	m := newTestMachine(t, nil)
	st := model.NewConversationState("user-1", testNow)

	res := advance(t, m, st, "hello")
	assert.Equal(t, model.StepGreetingResponse, res.State.Step)
	assert.Equal(t, []string{msgGreeting}, res.Replies)

	res = advance(t, m, res.State, "no thanks")
	assert.Equal(t, model.StepStart, res.State.Step)
	assert.Equal(t, []string{msgGoodbye}, res.Replies)
}

func TestAffirmativeOpeningKeepsNamedProduct(t *testing.T) {
	m := newTestMachine(t, nil)

	res := advance(t, m, model.NewConversationState("user-1", testNow), "Yes, standup pouch")
	require.NotNil(t, res.State.Data.Product)
	assert.Equal(t, "standup", res.State.Data.Product.ID)
	require.NotNil(t, res.State.Data.Category)
	assert.Equal(t, "pouches", res.State.Data.Category.ID)
	assert.Equal(t, model.StepDimensionInput, res.State.Step)

	for _, text := range []string{"yes", "yes please", "sure, whatever"} {
		res = advance(t, m, model.NewConversationState("user-1", testNow), text)
		assert.Equal(t, model.StepCategorySelection, res.State.Step, text)
		assert.Nil(t, res.State.Data.Product, text)
	}
}

func TestFinishAutoSkippedWhenCategoryHasNone(t *testing.T) {
	m := newTestMachine(t, nil)
	st := stateAt(model.StepMaterialSelection, func(d *model.CollectedData) {
		d.Category = &model.Selection{ID: "boxes", Name: "Boxes"}
		d.Product = &model.Selection{ID: "mailer", Name: "Mailer Box"}
		d.DimensionFields = []string{"length", "width", "height"}
		d.Dimensions = []model.Dimension{{Name: "length", Value: 1}, {Name: "width", Value: 2}, {Name: "height", Value: 3}}
		d.DimensionIndex = 3
	})

	res := advance(t, m, st, "corrugated")

	assert.True(t, res.State.Data.FinishesSkipped)
	assert.Equal(t, model.StepQuantityInput, res.State.Step)
}

func TestMultipleMaterials(t *testing.T) {
	m := newTestMachine(t, nil)
	st := stateAt(model.StepMaterialSelection, func(d *model.CollectedData) {
		pouchData(d)
		d.Dimensions = []model.Dimension{{Name: "width", Value: 5}, {Name: "height", Value: 4}}
		d.DimensionIndex = 2
	})

	res := advance(t, m, st, "PET + MPET + PE")
	require.Len(t, res.State.Data.Materials, 1)
	assert.Equal(t, "foil", res.State.Data.Materials[0].ID)

	res = advance(t, m, st, "kraft and PET + PE")
	require.Len(t, res.State.Data.Materials, 2)
	assert.Equal(t, "kraft", res.State.Data.Materials[0].ID)
	assert.Equal(t, "pet-pe", res.State.Data.Materials[1].ID)

	res = advance(t, m, st, "kraft, velvet")
	assert.Empty(t, res.State.Data.Materials)
	assert.Contains(t, res.Replies[0], `"velvet"`)
}

func TestFullConversation(t *testing.T) {
	m := newTestMachine(t, nil)
	st := model.NewConversationState("user-1", testNow)

	steps := []struct {
		text string
		want model.Step
	}{
		{"yes", model.StepCategorySelection},
		{"bags", model.StepProductSelection},
		{"stand up pouch", model.StepDimensionInput},
		{"4x6x2", model.StepMaterialSelection},
		{"craft", model.StepFinishSelection},
		{"matte", model.StepQuantityInput},
		{"500 and 1k, 2 designs", model.StepQuoteReview},
		{"confirm", model.StepQuoteGeneration},
	}
	var res *Result
	for _, s := range steps {
		res = advance(t, m, st, s.text)
		require.Equal(t, s.want, res.State.Step, "after %q", s.text)
		st = res.State
	}

	assert.Equal(t, []int{500, 1000}, st.Data.Quantities)
	assert.Equal(t, 2, st.Data.SKUCount)
	assert.Equal(t, "kraft", st.Data.Materials[0].ID)
	require.NotNil(t, res.Quote)
	require.Len(t, res.Quote.Tiers, 2)
	assert.Equal(t, 0.10, res.Quote.Tiers[0].DiscountRate)
	assert.Equal(t, 0.15, res.Quote.Tiers[1].DiscountRate)
	assert.Equal(t, res.Quote.ID, st.QuoteID)
	assert.Contains(t, res.Replies[0], "1,000 units")

	res = advance(t, m, st, "yes please")
	assert.Equal(t, model.StepCompleted, res.State.Step)
	assert.True(t, res.Accepted)
	assert.True(t, res.State.Data.QuoteAccepted)
	require.NotNil(t, res.Quote)
	assert.Equal(t, st.QuoteID, res.Quote.ID)

	res = advance(t, m, res.State, "hi")
	assert.True(t, res.Restarted)
	assert.Equal(t, model.StepGreetingResponse, res.State.Step)
	assert.Empty(t, res.State.QuoteID)
}

func TestReviewChangeRequest(t *testing.T) {
	m := newTestMachine(t, nil)
	st := stateAt(model.StepQuoteReview, func(d *model.CollectedData) {
		pouchData(d)
		d.Dimensions = []model.Dimension{{Name: "width", Value: 5}, {Name: "height", Value: 4}}
		d.DimensionIndex = 2
		d.Materials = []model.Selection{{ID: "kraft", Name: "Kraft Paper"}}
		d.FinishesSkipped = true
		d.Quantities = []int{1000}
		d.SKUCount = 1
	})

	res := advance(t, m, st, "can I change the material?")
	assert.Equal(t, model.StepMaterialSelection, res.State.Step)
	assert.Empty(t, res.State.Data.Materials)
	assert.Len(t, res.State.Data.Dimensions, 2)

	res = advance(t, m, res.State, "PET + PE")
	assert.Equal(t, model.StepQuoteReview, res.State.Step)
	assert.Contains(t, res.Replies[0], "PET + PE")
}

func TestQuoteDeclinedReturnsToReview(t *testing.T) {
	m := newTestMachine(t, nil)
	st := stateAt(model.StepQuoteGeneration, func(d *model.CollectedData) {
		pouchData(d)
		d.Dimensions = []model.Dimension{{Name: "width", Value: 5}, {Name: "height", Value: 4}}
		d.DimensionIndex = 2
		d.Materials = []model.Selection{{ID: "kraft", Name: "Kraft Paper"}}
		d.FinishesSkipped = true
		d.Quantities = []int{1000}
		d.ReviewConfirmed = true
	})

	res := advance(t, m, st, "no")
	assert.Equal(t, model.StepQuoteReview, res.State.Step)
	assert.False(t, res.State.Data.ReviewConfirmed)
	assert.False(t, res.Accepted)
}

type failingStore struct {
	catalog.Store
}

func (failingStore) ListCategories(context.Context) ([]model.CatalogEntry, error) {
	return nil, errors.New("catalog unavailable")
}

func TestCatalogFailureFailsTurn(t *testing.T) {
	m := newTestMachine(t, failingStore{})
	st := model.NewConversationState("user-1", testNow)

	res, err := m.Advance(context.Background(), st, Turn{Text: "yes"})

	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, model.StepStart, st.Step)
	assert.Equal(t, 0, st.Turns)
	assert.False(t, st.Data.GreetingAccepted)
}

func TestAdvanceDoesNotModifyInput(t *testing.T) {
	m := newTestMachine(t, nil)
	st := stateAt(model.StepDimensionInput, pouchData)
	before := st.Clone()

	res := advance(t, m, st, "5x4")

	assert.Equal(t, before, st)
	assert.NotEqual(t, before.Step, res.State.Step)
	assert.Equal(t, 1, res.State.Turns)
}

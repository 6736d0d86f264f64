// Package model defines data structures for the quoting assistant.
package model

// Step is a position in the quoting conversation. Every component refers to
// steps through these constants; step names are never spelled out elsewhere.
type Step string

const (
	StepStart             Step = "start"
	StepGreetingResponse  Step = "greeting_response"
	StepCategorySelection Step = "product_category_selection"
	StepProductSelection  Step = "product_selection"
	StepDimensionInput    Step = "dimension_input"
	StepMaterialSelection Step = "material_selection"
	StepFinishSelection   Step = "finish_selection"
	StepQuantityInput     Step = "quantity_input"
	StepQuoteReview       Step = "quote_review"
	StepQuoteGeneration   Step = "quote_generation"
	StepCompleted         Step = "completed"
)

var stepOrder = []Step{
	StepStart,
	StepGreetingResponse,
	StepCategorySelection,
	StepProductSelection,
	StepDimensionInput,
	StepMaterialSelection,
	StepFinishSelection,
	StepQuantityInput,
	StepQuoteReview,
	StepQuoteGeneration,
	StepCompleted,
}

// Steps returns every step in conversation order.
func Steps() []Step {
	out := make([]Step, len(stepOrder))
	copy(out, stepOrder)
	return out
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	for _, known := range stepOrder {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether s ends the conversation.
func (s Step) Terminal() bool {
	return s == StepCompleted
}

// ActiveDataEntry reports whether s expects a narrowly scoped answer to a
// specific question. Reset phrases are taken literally in these steps.
func (s Step) ActiveDataEntry() bool {
	switch s {
	case StepQuoteGeneration, StepGreetingResponse, StepMaterialSelection,
		StepFinishSelection, StepQuantityInput, StepDimensionInput:
		return true
	}
	return false
}

// AllowsExtraction reports whether general entity extraction may run while
// the conversation is in step s. The excluded steps are the ones where an
// auto-applied entity would contaminate a field other than the one asked for.
func (s Step) AllowsExtraction() bool {
	switch s {
	case StepQuoteGeneration, StepMaterialSelection, StepFinishSelection,
		StepDimensionInput, StepQuantityInput, StepGreetingResponse, StepCompleted:
		return false
	}
	return true
}

// Index returns the position of s in conversation order, or -1.
func (s Step) Index() int {
	for i, known := range stepOrder {
		if s == known {
			return i
		}
	}
	return -1
}

// Package conversation implements the quoting conversation: which step a
// user is in, what has been collected, and what to ask next.
package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/quote-assistant/internal/catalog"
	"github.com/capitalize-ai/quote-assistant/internal/extract"
	"github.com/capitalize-ai/quote-assistant/internal/model"
	"github.com/capitalize-ai/quote-assistant/internal/pricing"
	"github.com/capitalize-ai/quote-assistant/pkg/logger"
	"github.com/capitalize-ai/quote-assistant/pkg/metrics"
)

// Turn is one inbound message plus whatever the extractor found in it.
type Turn struct {
	Text     string
	Entities []model.ExtractedEntity
}

func (t Turn) empty() bool {
	return t.Text == "" && len(t.Entities) == 0
}

// Transition is one step change within a turn.
type Transition struct {
	From model.Step `json:"from"`
	To   model.Step `json:"to"`
}

// Result is the outcome of one turn. State is a new value; the state passed
// to Advance is never modified.
type Result struct {
	State       *model.ConversationState
	Replies     []string
	Transitions []Transition

	// Quote is set when a quote was priced in this turn.
	Quote *model.Quote

	// Accepted is set when the user accepted Quote in this turn.
	Accepted bool

	// Reset is set when the user asked to start over.
	Reset bool

	// Restarted is set when a completed session was replaced by a new one.
	Restarted bool
}

func (r *Result) say(text string) {
	r.Replies = append(r.Replies, text)
}

type handler func(ctx context.Context, st *model.ConversationState, in Turn, res *Result) (model.Step, error)

// Machine advances conversation state one inbound message at a time. It holds
// no per-conversation state and is safe for concurrent use.
type Machine struct {
	resolver  *catalog.Resolver
	pricing   *pricing.Engine
	validator *extract.Validator
	logger    *logger.Logger
	now       func() time.Time
	newID     func() string
	handlers  map[model.Step]handler
}

// NewMachine creates a state machine.
func NewMachine(resolver *catalog.Resolver, engine *pricing.Engine, validator *extract.Validator, log *logger.Logger) *Machine {
	m := &Machine{
		resolver:  resolver,
		pricing:   engine,
		validator: validator,
		logger:    log,
		now:       time.Now,
		newID:     newQuoteID,
	}
	m.handlers = map[model.Step]handler{
		model.StepStart:             m.handleStart,
		model.StepGreetingResponse:  m.handleGreeting,
		model.StepCategorySelection: m.handleCategory,
		model.StepProductSelection:  m.handleProduct,
		model.StepDimensionInput:    m.handleDimensions,
		model.StepMaterialSelection: m.handleMaterials,
		model.StepFinishSelection:   m.handleFinishes,
		model.StepQuantityInput:     m.handleQuantities,
		model.StepQuoteReview:       m.handleReview,
		model.StepQuoteGeneration:   m.handleGeneration,
	}
	return m
}

func newQuoteID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Advance applies one message to state. An error means the turn failed and
// nothing it computed may be stored; catalog misses are not errors.
func (m *Machine) Advance(ctx context.Context, state *model.ConversationState, turn Turn) (*Result, error) {
	now := m.now()
	res := &Result{}

	st := state.Clone()
	if st.Completed() {
		st = model.NewConversationState(state.UserKey, now)
		res.Restarted = true
	}
	st.Turns++
	st.LastMessageAt = now

	if isResetCommand(turn.Text) || (!st.Step.ActiveDataEntry() && isResetIntent(turn.Text)) {
		m.logger.Info("conversation reset",
			zap.String("user_key", st.UserKey),
			zap.String("from_step", string(st.Step)),
		)
		fresh := model.NewConversationState(st.UserKey, now)
		fresh.Turns = st.Turns
		fresh.Data.GreetingAccepted = true
		if st.Step != model.StepStart {
			res.Transitions = append(res.Transitions, Transition{From: st.Step, To: model.StepStart})
			metrics.RecordTransition(string(st.Step), string(model.StepStart))
		}
		st = fresh
		res.Reset = true
		res.say(msgReset)
		turn = Turn{}
	} else {
		turn.Entities = m.validator.Filter(st.Step, turn.Text, turn.Entities)
	}

	in := turn
	for hops := 0; hops <= len(model.Steps()); hops++ {
		h, ok := m.handlers[st.Step]
		if !ok {
			break
		}
		next, err := h(ctx, st, in, res)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", st.Step, err)
		}
		if next == st.Step {
			break
		}
		res.Transitions = append(res.Transitions, Transition{From: st.Step, To: next})
		metrics.RecordTransition(string(st.Step), string(next))
		st.Step = next
		// The text has been consumed; the next step only gets to prompt.
		in = Turn{}
	}

	res.State = st
	return res, nil
}

// next returns the first step whose field is still unresolved.
func next(d model.CollectedData) model.Step {
	switch {
	case d.Category == nil:
		return model.StepCategorySelection
	case d.Product == nil:
		return model.StepProductSelection
	case !d.DimensionsResolved():
		return model.StepDimensionInput
	case len(d.Materials) == 0:
		return model.StepMaterialSelection
	case !d.FinishesResolved():
		return model.StepFinishSelection
	case len(d.Quantities) == 0:
		return model.StepQuantityInput
	case !d.ReviewConfirmed:
		return model.StepQuoteReview
	default:
		return model.StepQuoteGeneration
	}
}

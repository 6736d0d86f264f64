// Package service runs quote conversations end to end.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/quote-assistant/internal/conversation"
	"github.com/capitalize-ai/quote-assistant/internal/extract"
	"github.com/capitalize-ai/quote-assistant/internal/model"
	"github.com/capitalize-ai/quote-assistant/internal/store"
	"github.com/capitalize-ai/quote-assistant/pkg/logger"
	"github.com/capitalize-ai/quote-assistant/pkg/metrics"
	"github.com/capitalize-ai/quote-assistant/pkg/tracing"
)

// TurnFailedReply is sent when a turn could not be processed.
const TurnFailedReply = "Sorry, something went wrong on my side. Please send that again."

// ErrEventsUnavailable is returned when no event log is configured.
var ErrEventsUnavailable = errors.New("conversation events unavailable")

// Sender delivers replies to the user.
type Sender interface {
	Send(ctx context.Context, msg model.OutboundMessage) error
}

// EventPublisher records what happened in committed turns.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *model.ConversationEvent) (uint64, error)
}

// QuoteSink receives accepted quotes for rendering and follow-up.
type QuoteSink interface {
	PublishQuote(ctx context.Context, userKey string, quote *model.Quote) error
}

// EventLog reads back published events.
type EventLog interface {
	GetEvents(ctx context.Context, userKey string, afterSequence uint64, limit int) ([]model.ConversationEvent, uint64, bool, error)
}

// Outbox bundles the outbound collaborators of a turn.
type Outbox interface {
	Sender
	EventPublisher
	QuoteSink
}

// QuoteService processes inbound messages one turn at a time.
type QuoteService struct {
	store     store.Store
	machine   *conversation.Machine
	extractor extract.Extractor
	outbox    Outbox
	events    EventLog
	logger    *logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewQuoteService creates a quote service. extractor may be nil, in which
// case every turn takes the deterministic path.
func NewQuoteService(st store.Store, machine *conversation.Machine, extractor extract.Extractor, outbox Outbox, log *logger.Logger) *QuoteService {
	return &QuoteService{
		store:     st,
		machine:   machine,
		extractor: extractor,
		outbox:    outbox,
		logger:    log,
		tracer:    tracing.Tracer(),
		now:       time.Now,
	}
}

// WithEventLog enables Events.
func (s *QuoteService) WithEventLog(events EventLog) *QuoteService {
	s.events = events
	return s
}

// HandleMessage runs one inbound message through the conversation. A turn
// that fails stores nothing and answers with a generic re-prompt; the error
// is only returned for invalid input.
func (s *QuoteService) HandleMessage(ctx context.Context, userKey, text string) (*model.TurnResponse, error) {
	if userKey == "" {
		return nil, fmt.Errorf("user key is required")
	}

	ctx, span := s.tracer.Start(ctx, "quote.turn", trace.WithAttributes(attribute.String("user_key", userKey)))
	defer span.End()

	start := s.now()
	log := s.logger.WithTurn(uuid.NewString(), userKey)

	step, err := s.currentStep(ctx, userKey)
	if err != nil {
		return s.fail(ctx, span, log, userKey, step, start, err), nil
	}
	span.SetAttributes(attribute.String("step", string(step)))

	entities := s.extract(ctx, log, step, text)

	var (
		from   model.Step
		result *conversation.Result
	)
	state, err := s.store.Update(ctx, userKey, func(current *model.ConversationState) (*model.ConversationState, error) {
		if current == nil {
			current = model.NewConversationState(userKey, s.now())
		}
		res, err := s.machine.Advance(ctx, current, conversation.Turn{Text: text, Entities: entities})
		if err != nil {
			return nil, err
		}
		from, result = current.Step, res
		return res.State, nil
	})
	if err != nil {
		return s.fail(ctx, span, log, userKey, step, start, err), nil
	}

	s.deliver(ctx, log, state, from, result)

	outcome := "advanced"
	if len(result.Transitions) == 0 {
		outcome = "stayed"
	}
	metrics.RecordTurn(string(from), outcome, time.Since(start).Seconds())
	span.SetAttributes(attribute.String("to_step", string(state.Step)))
	log.Info("turn processed",
		zap.String("from_step", string(from)),
		zap.String("to_step", string(state.Step)),
		zap.Int("replies", len(result.Replies)),
		zap.Bool("reset", result.Reset),
		zap.Bool("quote_accepted", result.Accepted),
	)

	return &model.TurnResponse{
		UserKey:   userKey,
		Step:      state.Step,
		Replies:   result.Replies,
		Completed: state.Completed(),
		Quote:     result.Quote,
	}, nil
}

func (s *QuoteService) currentStep(ctx context.Context, userKey string) (model.Step, error) {
	current, err := s.store.Get(ctx, userKey)
	if errors.Is(err, store.ErrNotFound) {
		return model.StepStart, nil
	}
	if err != nil {
		return model.StepStart, err
	}
	if current.Completed() {
		return model.StepStart, nil
	}
	return current.Step, nil
}

// extract calls the extractor only when the step allows it. Failure is not
// an error: the turn continues with no entities.
func (s *QuoteService) extract(ctx context.Context, log *logger.Logger, step model.Step, text string) []model.ExtractedEntity {
	if s.extractor == nil || !step.AllowsExtraction() || text == "" {
		return nil
	}
	entities, err := s.extractor.Extract(ctx, text)
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		metrics.ExtractionFallbacksTotal.WithLabelValues(reason).Inc()
		log.Warn("extraction unavailable, using fallback matching",
			zap.String("step", string(step)),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return nil
	}
	return entities
}

func (s *QuoteService) fail(ctx context.Context, span trace.Span, log *logger.Logger, userKey string, step model.Step, start time.Time, err error) *model.TurnResponse {
	span.RecordError(err)
	span.SetStatus(codes.Error, "turn failed")
	metrics.RecordTurn(string(step), "failed", time.Since(start).Seconds())
	log.Error("turn failed, nothing stored", zap.String("step", string(step)), zap.Error(err))

	if sendErr := s.outbox.Send(ctx, model.OutboundMessage{UserKey: userKey, Text: TurnFailedReply}); sendErr != nil {
		log.Warn("failed to send re-prompt", zap.Error(sendErr))
	}
	return &model.TurnResponse{
		UserKey: userKey,
		Step:    step,
		Replies: []string{TurnFailedReply},
		Failed:  true,
	}
}

// deliver sends replies and publishes events for a committed turn. The
// state is already stored, so failures here are logged and not retried.
func (s *QuoteService) deliver(ctx context.Context, log *logger.Logger, state *model.ConversationState, from model.Step, res *conversation.Result) {
	for i, text := range res.Replies {
		msg := model.OutboundMessage{UserKey: state.UserKey, Text: text, Index: i}
		if err := s.outbox.Send(ctx, msg); err != nil {
			log.Error("failed to send reply", zap.Int("index", i), zap.Error(err))
		}
	}

	eventType := model.EventTypeTurn
	if res.Reset {
		eventType = model.EventTypeReset
	}
	s.publish(ctx, log, &model.ConversationEvent{
		UserKey:  state.UserKey,
		Type:     eventType,
		FromStep: from,
		ToStep:   state.Step,
		Replies:  res.Replies,
	})

	if res.Quote == nil {
		return
	}
	if !res.Accepted {
		metrics.QuotesTotal.WithLabelValues("generated").Inc()
		return
	}

	metrics.QuotesTotal.WithLabelValues("accepted").Inc()
	if err := s.outbox.PublishQuote(ctx, state.UserKey, res.Quote); err != nil {
		log.Error("failed to publish accepted quote", zap.String("quote_id", res.Quote.ID), zap.Error(err))
	}
	s.publish(ctx, log, &model.ConversationEvent{
		UserKey:  state.UserKey,
		Type:     model.EventTypeQuoteAccepted,
		FromStep: from,
		ToStep:   state.Step,
		Metadata: map[string]any{"quote_id": res.Quote.ID},
	})
}

func (s *QuoteService) publish(ctx context.Context, log *logger.Logger, event *model.ConversationEvent) {
	event.ID = uuid.NewString()
	event.CreatedAt = s.now()
	if _, err := s.outbox.PublishEvent(ctx, event); err != nil {
		log.Error("failed to publish event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

// State returns the stored conversation of userKey.
func (s *QuoteService) State(ctx context.Context, userKey string) (*model.ConversationState, error) {
	return s.store.Get(ctx, userKey)
}

// Reset discards the conversation of userKey.
func (s *QuoteService) Reset(ctx context.Context, userKey string) error {
	current, err := s.store.Get(ctx, userKey)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, userKey); err != nil {
		return err
	}
	s.publish(ctx, s.logger.With(zap.String("user_key", userKey)), &model.ConversationEvent{
		UserKey:  userKey,
		Type:     model.EventTypeReset,
		FromStep: current.Step,
		ToStep:   model.StepStart,
		Reason:   "deleted",
	})
	return nil
}

// Events lists published events of userKey after a stream sequence.
func (s *QuoteService) Events(ctx context.Context, userKey string, afterSequence uint64, limit int) (*model.ListEventsResponse, error) {
	if s.events == nil {
		return nil, ErrEventsUnavailable
	}
	events, last, more, err := s.events.GetEvents(ctx, userKey, afterSequence, limit)
	if err != nil {
		return nil, err
	}
	return &model.ListEventsResponse{Events: events, HasMore: more, LastSequence: last}, nil
}

package nats

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/quote-assistant/internal/model"
)

const (
	// StreamName is the name of the quote conversation stream.
	StreamName = "QUOTES"

	// SubjectPrefix is the prefix for all quote conversation subjects.
	SubjectPrefix = "quote"
)

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the quotes stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Outbound replies, turn events and accepted quotes",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// SubjectToken encodes a user key as a single subject token. User keys may
// contain dots and spaces, which subjects reserve.
func SubjectToken(userKey string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(userKey))
}

// OutboundSubject returns the subject replies to userKey are published on.
func OutboundSubject(userKey string) string {
	return fmt.Sprintf("%s.%s.out", SubjectPrefix, SubjectToken(userKey))
}

// EventSubject returns the subject for an event.
func EventSubject(userKey string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.event.%s", SubjectPrefix, SubjectToken(userKey), eventType)
}

// QuoteSubject returns the subject accepted quotes are published on.
func QuoteSubject(userKey string) string {
	return fmt.Sprintf("%s.%s.quote", SubjectPrefix, SubjectToken(userKey))
}

// EventFilter returns the filter subject for all events of a conversation.
func EventFilter(userKey string) string {
	return fmt.Sprintf("%s.%s.event.>", SubjectPrefix, SubjectToken(userKey))
}

func (m *StreamManager) publish(ctx context.Context, subject string, v any) (uint64, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal %s: %w", subject, err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	return ack.Sequence, nil
}

// Send publishes one reply for delivery by the messaging channel.
func (m *StreamManager) Send(ctx context.Context, msg model.OutboundMessage) error {
	_, err := m.publish(ctx, OutboundSubject(msg.UserKey), msg)
	return err
}

// PublishEvent publishes an event to JetStream.
func (m *StreamManager) PublishEvent(ctx context.Context, event *model.ConversationEvent) (uint64, error) {
	return m.publish(ctx, EventSubject(event.UserKey, event.Type), event)
}

// PublishQuote hands an accepted quote to the document renderer.
func (m *StreamManager) PublishQuote(ctx context.Context, userKey string, quote *model.Quote) error {
	_, err := m.publish(ctx, QuoteSubject(userKey), quote)
	return err
}

// GetEvents retrieves events of a conversation starting after a sequence.
func (m *StreamManager) GetEvents(ctx context.Context, userKey string, afterSequence uint64, limit int) ([]model.ConversationEvent, uint64, bool, error) {
	js := m.client.JetStream()

	consumerConfig := jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{EventFilter(userKey)},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	}
	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := js.OrderedConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to fetch events: %w", err)
	}

	var events []model.ConversationEvent
	var lastSequence uint64
	for msg := range batch.Messages() {
		var event model.ConversationEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			continue
		}

		meta, err := msg.Metadata()
		if err == nil {
			event.Sequence = meta.Sequence.Stream
			lastSequence = meta.Sequence.Stream
		}

		events = append(events, event)
	}

	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, jetstream.ErrNoMessages) {
		return nil, 0, false, fmt.Errorf("batch error: %w", err)
	}

	return events, lastSequence, len(events) == limit, nil
}

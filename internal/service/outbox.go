package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/capitalize-ai/quote-assistant/internal/model"
	"github.com/capitalize-ai/quote-assistant/pkg/logger"
)

// LogOutbox is used when no messaging backend is configured. Replies are
// returned to the HTTP caller; events and quotes only reach the log.
type LogOutbox struct {
	logger *logger.Logger
}

// NewLogOutbox creates a log-only outbox.
func NewLogOutbox(log *logger.Logger) *LogOutbox {
	return &LogOutbox{logger: log}
}

// Send implements Sender.
func (o *LogOutbox) Send(ctx context.Context, msg model.OutboundMessage) error {
	o.logger.Debug("reply", zap.String("user_key", msg.UserKey), zap.Int("index", msg.Index))
	return nil
}

// PublishEvent implements EventPublisher.
func (o *LogOutbox) PublishEvent(ctx context.Context, event *model.ConversationEvent) (uint64, error) {
	o.logger.Debug("conversation event",
		zap.String("user_key", event.UserKey),
		zap.String("type", string(event.Type)),
		zap.String("from_step", string(event.FromStep)),
		zap.String("to_step", string(event.ToStep)),
	)
	return 0, nil
}

// PublishQuote implements QuoteSink.
func (o *LogOutbox) PublishQuote(ctx context.Context, userKey string, quote *model.Quote) error {
	o.logger.Info("quote accepted",
		zap.String("user_key", userKey),
		zap.String("quote_id", quote.ID),
		zap.String("product_id", quote.Request.Product.ID),
		zap.Ints("quantities", quote.Request.Quantities),
	)
	return nil
}

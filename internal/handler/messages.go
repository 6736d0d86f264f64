package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/quote-assistant/internal/middleware"
	"github.com/capitalize-ai/quote-assistant/internal/model"
	"github.com/capitalize-ai/quote-assistant/internal/service"
	"github.com/capitalize-ai/quote-assistant/pkg/logger"
)

// MessageHandler accepts inbound user messages from a messaging channel.
type MessageHandler struct {
	service *service.QuoteService
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(svc *service.QuoteService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		service: svc,
		logger:  log,
	}
}

// Receive handles POST /api/v1/messages
//
// The turn result is returned even when processing failed; in that case
// failed is true and nothing was stored.
func (h *MessageHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.InboundMessage
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateUserKey(req.UserKey); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateMessageText(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.HandleMessage(ctx, req.UserKey, req.Text)
	if err != nil {
		h.logger.Error("failed to handle message",
			zap.String("client_id", middleware.GetClientID(ctx)),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to handle message")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

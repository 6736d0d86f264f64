package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/quote-assistant/internal/catalog"
	"github.com/capitalize-ai/quote-assistant/internal/model"
	"github.com/capitalize-ai/quote-assistant/internal/pricing"
	"github.com/capitalize-ai/quote-assistant/internal/service"
	"github.com/capitalize-ai/quote-assistant/pkg/logger"
)

// QuoteHandler prices orders outside of a conversation.
type QuoteHandler struct {
	service *service.PriceService
	logger  *logger.Logger
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(svc *service.PriceService, log *logger.Logger) *QuoteHandler {
	return &QuoteHandler{
		service: svc,
		logger:  log,
	}
}

// Price handles POST /api/v1/quotes/price
func (h *QuoteHandler) Price(w http.ResponseWriter, r *http.Request) {
	var req model.PriceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Product == "" {
		writeError(w, http.StatusBadRequest, "product is required")
		return
	}

	quote, err := h.service.Quote(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, quote)
	case errors.Is(err, catalog.ErrNoMatch):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, pricing.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("failed to price quote", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to price quote")
	}
}

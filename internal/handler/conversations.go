// Package handler provides HTTP handlers for the API.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/quote-assistant/internal/middleware"
	"github.com/capitalize-ai/quote-assistant/internal/service"
	"github.com/capitalize-ai/quote-assistant/internal/store"
	"github.com/capitalize-ai/quote-assistant/pkg/logger"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 100
)

// ConversationHandler exposes stored conversations for support tooling.
type ConversationHandler struct {
	service *service.QuoteService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.QuoteService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		logger:  log,
	}
}

// userKey reads and validates the userKey URL parameter, writing a 400 on
// failure.
func userKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := chi.URLParam(r, "userKey")
	if err := middleware.ValidateUserKey(key); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return key, true
}

// Get handles GET /api/v1/conversations/:userKey
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, ok := userKey(w, r)
	if !ok {
		return
	}

	state, err := h.service.State(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		h.logger.Error("failed to get conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get conversation")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// Delete handles DELETE /api/v1/conversations/:userKey
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key, ok := userKey(w, r)
	if !ok {
		return
	}

	if err := h.service.Reset(r.Context(), key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		h.logger.Error("failed to delete conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Events handles GET /api/v1/conversations/:userKey/events
func (h *ConversationHandler) Events(w http.ResponseWriter, r *http.Request) {
	key, ok := userKey(w, r)
	if !ok {
		return
	}

	afterSequence := queryUint(r, "after_sequence", 0)
	limit := defaultEventLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err == nil {
			err = middleware.ValidateLimit(parsed, maxEventLimit)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	resp, err := h.service.Events(r.Context(), key, afterSequence, limit)
	if err != nil {
		if errors.Is(err, service.ErrEventsUnavailable) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.logger.Error("failed to get events", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get events")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

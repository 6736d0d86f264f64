package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/quote-assistant/internal/model"
	"github.com/capitalize-ai/quote-assistant/internal/service"
	"github.com/capitalize-ai/quote-assistant/pkg/logger"
	"github.com/capitalize-ai/quote-assistant/pkg/metrics"
)

const streamBatchSize = 50

// StreamHandler serves conversation events as server-sent events.
type StreamHandler struct {
	service      *service.QuoteService
	logger       *logger.Logger
	pollInterval time.Duration
	heartbeat    time.Duration
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(svc *service.QuoteService, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		service:      svc,
		logger:       log,
		pollInterval: time.Second,
		heartbeat:    30 * time.Second,
	}
}

// ReplayCompleteEvent marks the end of the replayed backlog.
type ReplayCompleteEvent struct {
	LastSequence uint64 `json:"last_sequence"`
	EventCount   int    `json:"event_count"`
}

// HeartbeatEvent keeps idle connections open through proxies.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// Stream handles GET /api/v1/conversations/:userKey/stream
// Supports ?after_sequence=N for resuming from a specific point.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := userKey(w, r)
	if !ok {
		return
	}
	afterSequence := queryUint(r, "after_sequence", 0)

	// Check the event log before committing to a streaming response.
	if _, err := h.service.Events(ctx, key, afterSequence, 1); errors.Is(err, service.ErrEventsUnavailable) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	metrics.IncrementStreamConnections()
	defer metrics.DecrementStreamConnections()

	log := h.logger.With(zap.String("user_key", key))
	sendSSEEvent(w, flusher, "connected", map[string]string{"user_key": key})

	last, count, err := h.drain(ctx, w, flusher, key, afterSequence)
	if err != nil {
		h.streamError(ctx, w, flusher, log, err)
		return
	}
	sendSSEEvent(w, flusher, "replay_complete", &ReplayCompleteEvent{
		LastSequence: last,
		EventCount:   count,
	})

	poll := time.NewTicker(h.pollInterval)
	defer poll.Stop()
	beat := time.NewTicker(h.heartbeat)
	defer beat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("event stream closed")
			return
		case <-beat.C:
			sendSSEEvent(w, flusher, "heartbeat", &HeartbeatEvent{Timestamp: time.Now().UTC()})
		case <-poll.C:
			next, _, err := h.drain(ctx, w, flusher, key, last)
			if err != nil {
				h.streamError(ctx, w, flusher, log, err)
				return
			}
			last = next
		}
	}
}

// drain writes every event after afterSequence and returns the last
// sequence written along with the number of events.
func (h *StreamHandler) drain(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, key string, afterSequence uint64) (uint64, int, error) {
	last := afterSequence
	count := 0
	for {
		resp, err := h.service.Events(ctx, key, last, streamBatchSize)
		if err != nil {
			return last, count, err
		}
		for i := range resp.Events {
			if ctx.Err() != nil {
				return last, count, nil
			}
			sendSSEEvent(w, flusher, string(resp.Events[i].Type), &resp.Events[i])
			count++
		}
		if resp.LastSequence > last {
			last = resp.LastSequence
		}
		if !resp.HasMore || len(resp.Events) == 0 {
			return last, count, nil
		}
	}
}

func (h *StreamHandler) streamError(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, log *logger.Logger, err error) {
	if ctx.Err() != nil {
		return
	}
	log.Error("failed to stream events", zap.Error(err))
	sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
		Code:    "stream_error",
		Message: "Failed to read conversation events",
	})
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}

package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/capitalize-ai/quote-assistant/internal/llm"
	"github.com/capitalize-ai/quote-assistant/internal/model"
	"github.com/capitalize-ai/quote-assistant/pkg/metrics"
)

// ErrExtractionUnavailable is returned when the extraction call failed, timed
// out or produced output that could not be read. Callers recover by falling
// back to deterministic matching.
var ErrExtractionUnavailable = errors.New("entity extraction unavailable")

// Extractor converts free text into candidate entities.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]model.ExtractedEntity, error)
}

const systemPrompt = `You extract packaging order attributes from a customer's message.
Reply with one JSON object and nothing else:
{"entities":[{"kind":"category|product|material|finish|quantity|dimension","value":"...","confidence":0.0}]}
Rules:
- Only report attributes the customer actually stated. Never infer or invent.
- "value" is the customer's wording for the attribute; quantity values are numbers.
- "confidence" is between 0 and 1.
- Return {"entities":[]} when nothing applies.`

// LLMExtractor asks an LLM for entities and validates its answer.
type LLMExtractor struct {
	client  llm.Client
	model   string
	timeout time.Duration
}

// NewLLMExtractor creates an extractor. A zero timeout means no deadline
// beyond the caller's context.
func NewLLMExtractor(client llm.Client, model string, timeout time.Duration) *LLMExtractor {
	return &LLMExtractor{client: client, model: model, timeout: timeout}
}

// Extract implements Extractor.
func (e *LLMExtractor) Extract(ctx context.Context, text string) ([]model.ExtractedEntity, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := e.client.Complete(ctx, &llm.CompletionRequest{
		Model:     e.model,
		System:    systemPrompt,
		Messages:  []llm.ChatMessage{{Role: "user", Content: text}},
		MaxTokens: 512,
		JSON:      true,
	})
	if err != nil {
		metrics.RecordExtraction(e.client.Name(), "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %w", ErrExtractionUnavailable, err)
	}

	entities, err := ParseEntities(resp.Content)
	if err != nil {
		metrics.RecordExtraction(e.client.Name(), "invalid", time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %v", ErrExtractionUnavailable, err)
	}
	metrics.RecordExtraction(e.client.Name(), "success", time.Since(start).Seconds())
	return entities, nil
}

type rawEntity struct {
	Kind       string          `json:"kind"`
	Value      json.RawMessage `json:"value"`
	Confidence json.RawMessage `json:"confidence"`
}

type rawResponse struct {
	Entities []rawEntity `json:"entities"`
}

// ParseEntities decodes a provider answer into entities. It tolerates code
// fences and prose around the JSON object. Entries with an unknown kind, an
// empty value or an unreadable confidence are skipped; confidence is clamped
// to [0, 1].
func ParseEntities(content string) ([]model.ExtractedEntity, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON object in response")
	}

	var raw rawResponse
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode entities: %w", err)
	}

	out := make([]model.ExtractedEntity, 0, len(raw.Entities))
	for _, r := range raw.Entities {
		kind := model.EntityKind(strings.ToLower(strings.TrimSpace(r.Kind)))
		if !kind.Valid() {
			continue
		}
		value, ok := decodeValue(r.Value)
		if !ok {
			continue
		}
		conf, ok := decodeConfidence(r.Confidence)
		if !ok {
			continue
		}
		out = append(out, model.ExtractedEntity{Kind: kind, Value: value, Confidence: conf})
	}
	return out, nil
}

func decodeValue(raw json.RawMessage) (model.EntityValue, bool) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return model.NumberValue(n), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
		return model.TextValue(strings.TrimSpace(s)), true
	}
	return model.EntityValue{}, false
}

func decodeConfidence(raw json.RawMessage) (float64, bool) {
	var c float64
	if err := json.Unmarshal(raw, &c); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		if _, err := fmt.Sscanf(s, "%g", &c); err != nil {
			return 0, false
		}
	}
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return 0, false
	}
	switch {
	case c < 0:
		c = 0
	case c > 1:
		c = 1
	}
	return c, true
}

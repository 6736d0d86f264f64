// Package extract gates and validates entities produced by the extraction
// collaborator before they reach the conversation state machine.
package extract

import (
	"go.uber.org/zap"

	"github.com/capitalize-ai/quote-assistant/internal/model"
	"github.com/capitalize-ai/quote-assistant/pkg/logger"
	"github.com/capitalize-ai/quote-assistant/pkg/metrics"
)

// Confidence thresholds per entity kind.
const (
	// MaterialThreshold is strict: material names share short tokens with
	// ordinary words ("flat", "coat").
	MaterialThreshold = 0.8
	// ProductThreshold is liberal: the product is the main intent signal.
	ProductThreshold = 0.4
	// DefaultThreshold applies to every other kind.
	DefaultThreshold = 0.5
)

// Drop reasons, used as metric labels and log fields.
const (
	decisionAccepted      = "accepted"
	decisionStepGated     = "step_gated"
	decisionLowConfidence = "low_confidence"
	decisionInvalid       = "invalid"
)

// Threshold returns the minimum confidence for an entity kind.
func Threshold(kind model.EntityKind) float64 {
	switch kind {
	case model.EntityMaterial:
		return MaterialThreshold
	case model.EntityProduct:
		return ProductThreshold
	default:
		return DefaultThreshold
	}
}

// Validator filters extracted entities by step and confidence.
type Validator struct {
	logger *logger.Logger
}

// NewValidator creates a validator.
func NewValidator(log *logger.Logger) *Validator {
	return &Validator{logger: log}
}

// Allowed reports whether extraction may run at all in step.
func (v *Validator) Allowed(step model.Step) bool {
	return step.AllowsExtraction()
}

// Filter returns the entities that may be applied in step. Dropped entities
// are logged and counted, never reported as errors.
func (v *Validator) Filter(step model.Step, text string, entities []model.ExtractedEntity) []model.ExtractedEntity {
	if len(entities) == 0 {
		return nil
	}

	if !v.Allowed(step) {
		for _, e := range entities {
			v.drop(step, text, e, decisionStepGated)
		}
		return nil
	}

	var kept []model.ExtractedEntity
	for _, e := range entities {
		switch {
		case !e.Kind.Valid() || e.Value.IsZero():
			v.drop(step, text, e, decisionInvalid)
		case !(e.Confidence >= Threshold(e.Kind)):
			v.drop(step, text, e, decisionLowConfidence)
		default:
			metrics.RecordEntity(string(e.Kind), decisionAccepted)
			kept = append(kept, e)
		}
	}
	return kept
}

func (v *Validator) drop(step model.Step, text string, e model.ExtractedEntity, reason string) {
	metrics.RecordEntity(string(e.Kind), reason)
	v.logger.Debug("entity dropped",
		zap.String("step", string(step)),
		zap.String("kind", string(e.Kind)),
		zap.String("value", e.Value.String()),
		zap.Float64("confidence", e.Confidence),
		zap.String("reason", reason),
		zap.Int("text_len", len(text)),
	)
}

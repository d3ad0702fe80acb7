package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/agrodesk/agrodesk/internal/llm"
)

// ConfidenceThreshold is the minimum classification confidence required to
// proceed past the clarification gate.
const ConfidenceThreshold = 0.55

// Classifier turns a raw message into a Classification. It never fails: any
// internal error degrades to a deterministic keyword-based fallback so the
// pipeline can continue.
type Classifier struct {
	provider llm.Provider
	model    string
	logger   *zap.Logger
}

// NewClassifier creates a classifier backed by the given reasoning provider.
func NewClassifier(provider llm.Provider, model string, logger *zap.Logger) *Classifier {
	return &Classifier{provider: provider, model: model, logger: logger}
}

type classificationPayload struct {
	Intent   string `json:"intent"`
	Category string `json:"category"`
	Entities struct {
		Machine         *string `json:"machine"`
		Plot            *string `json:"plot"`
		Symptoms        *string `json:"symptoms"`
		Pest            *string `json:"pest"`
		Crop            *string `json:"crop"`
		RequestedAction *string `json:"requested_action"`
		Location        *string `json:"location"`
		Operator        *string `json:"operator"`
	} `json:"entities"`
	Confidence         float64  `json:"confidence"`
	Severity           string   `json:"severity"`
	Notes              *string  `json:"notes"`
	SuggestedQuestions []string `json:"suggested_questions"`
}

// Classify interprets a message, optionally seeded with the previous turn's
// classification for multi-turn disambiguation.
func (c *Classifier) Classify(ctx context.Context, message string, prior *Classification) Classification {
	userPrompt := fmt.Sprintf("Classify this message: %q", message)
	if prior != nil && (prior.Category != "" || prior.Entities != (Entities{})) {
		priorEntities, _ := json.Marshal(prior.Entities)
		userPrompt += fmt.Sprintf(
			"\n\nContext from the previous message: category=%s, entities=%s"+
				"\nNOTE: this may be a reply complementing the previous message.",
			prior.Category, priorEntities)
	}

	content, err := llm.CompleteStructured(ctx, c.provider, c.model,
		classifierSystemPrompt, userPrompt, 0.1, 512)
	if err != nil {
		c.logger.Warn("classification call failed, using keyword fallback", zap.Error(err))
		return fallbackClassification(message)
	}

	var payload classificationPayload
	if err := decodeStrict(content, &payload); err != nil {
		c.logger.Warn("classification response invalid, using keyword fallback", zap.Error(err))
		return fallbackClassification(message)
	}

	cls, err := payload.toClassification()
	if err != nil {
		c.logger.Warn("classification failed validation, using keyword fallback", zap.Error(err))
		return fallbackClassification(message)
	}

	c.logger.Info("message classified",
		zap.String("category", string(cls.Category)),
		zap.Float64("confidence", cls.Confidence))
	return cls
}

func (p classificationPayload) toClassification() (Classification, error) {
	category := Category(p.Category)
	if !validCategories[category] {
		return Classification{}, fmt.Errorf("unknown category %q", p.Category)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return Classification{}, fmt.Errorf("confidence %v out of range", p.Confidence)
	}
	severity := Severity(p.Severity)
	if !validSeverities[severity] {
		return Classification{}, fmt.Errorf("unknown severity %q", p.Severity)
	}

	cls := Classification{
		Intent:     p.Intent,
		Category:   category,
		Confidence: p.Confidence,
		Severity:   severity,
		Notes:      deref(p.Notes),
		Entities: Entities{
			Machine:         deref(p.Entities.Machine),
			Plot:            deref(p.Entities.Plot),
			Symptoms:        deref(p.Entities.Symptoms),
			Pest:            deref(p.Entities.Pest),
			Crop:            deref(p.Entities.Crop),
			RequestedAction: deref(p.Entities.RequestedAction),
			Location:        deref(p.Entities.Location),
			Operator:        deref(p.Entities.Operator),
		},
		SuggestedQuestions: p.SuggestedQuestions,
		Method:             "llm",
	}

	// Greetings always pass the intention gate with full confidence.
	if cls.Category == CategoryGreeting {
		cls.Confidence = 1.0
		cls.SuggestedQuestions = nil
	}

	return cls, nil
}

var greetingWords = map[string]bool{
	"oi": true, "ola": true, "olá": true,
	"hi": true, "hello": true, "hey": true,
	"good morning": true, "good afternoon": true, "good evening": true,
	"bom dia": true, "boa tarde": true, "boa noite": true,
}

// fallbackClassification classifies by keyword heuristics when the reasoning
// call is unavailable or returns malformed output.
func fallbackClassification(message string) Classification {
	lower := strings.ToLower(strings.TrimSpace(message))
	normalized := strings.Trim(lower, "!.,? ")

	if greetingWords[normalized] {
		return Classification{
			Intent:     "Greeting",
			Category:   CategoryGreeting,
			Confidence: 1.0,
			Severity:   SeverityLow,
			Notes:      "Hello! How can I help you today?",
			Method:     "keyword_fallback",
		}
	}

	category := CategoryOther
	severity := SeverityMedium

	switch {
	case containsAny(lower, "broke", "broken", "failure", "stopped", "defect", "error"):
		category = CategoryMechanicalFailure
		severity = SeverityHigh
	case containsAny(lower, "stock", "inventory", "shortage", "quantity"):
		category = CategorySupplyStock
		severity = SeverityMedium
	case containsAny(lower, "pest", "disease", "fungus", "caterpillar"):
		category = CategoryPhytosanitary
		severity = SeverityHigh
	}

	return Classification{
		Intent:     "Fallback classification - limited analysis",
		Category:   category,
		Confidence: 0.4,
		Severity:   severity,
		Notes:      "Keyword-based classification (reasoning service unavailable)",
		SuggestedQuestions: []string{
			"Can you provide more details about the problem?",
			"Which machine or plot is this happening on?",
			"When did the problem start?",
		},
		Method: "keyword_fallback",
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

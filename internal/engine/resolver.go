package engine

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/agrodesk/agrodesk/internal/knowledge"
	"github.com/agrodesk/agrodesk/internal/llm"
)

const defaultTopK = 5

// KnowledgeResolver determines whether a documented procedure exists for the
// classified problem, backed by retrieval-augmented knowledge lookup. It
// never raises outward: every internal failure degrades to the fixed
// insufficient-information result. Only context cancellation halts the turn.
type KnowledgeResolver struct {
	retriever knowledge.Retriever
	provider  llm.Provider
	model     string
	topK      int
	logger    *zap.Logger
}

// NewKnowledgeResolver creates a resolver over the given retriever and
// reasoning provider.
func NewKnowledgeResolver(retriever knowledge.Retriever, provider llm.Provider, model string, logger *zap.Logger) *KnowledgeResolver {
	return &KnowledgeResolver{
		retriever: retriever,
		provider:  provider,
		model:     model,
		topK:      defaultTopK,
		logger:    logger,
	}
}

// WithTopK overrides how many snippets are retrieved per request.
func (r *KnowledgeResolver) WithTopK(k int) *KnowledgeResolver {
	if k > 0 {
		r.topK = k
	}
	return r
}

type knowledgePayload struct {
	Explanation        string   `json:"explanation"`
	Risks              string   `json:"risks"`
	Recommendation     string   `json:"recommendation"`
	Sources            []string `json:"sources"`
	ProcedureKnown     bool     `json:"procedure_known"`
	Complexity         string   `json:"complexity"`
	RequiresSpecialist bool     `json:"requires_specialist"`
}

// Resolve fetches knowledge snippets and judges whether a documented
// procedure covers the request.
func (r *KnowledgeResolver) Resolve(ctx context.Context, message string, cls Classification, enriched EnrichedContext) (KnowledgeResult, error) {
	query := buildSearchQuery(message, cls)
	r.logger.Info("knowledge search", zap.String("query", query))

	snippets, err := r.retriever.Search(ctx, query, r.topK)
	if err != nil {
		if ctx.Err() != nil {
			return KnowledgeResult{}, ctx.Err()
		}
		r.logger.Warn("knowledge retrieval failed", zap.Error(err))
		return insufficientInfoResult(), nil
	}

	if len(snippets) == 0 {
		r.logger.Info("no knowledge snippets found")
		return insufficientInfoResult(), nil
	}

	userPrompt := buildRAGPrompt(message, cls, enriched, snippets)

	content, err := llm.CompleteStructured(ctx, r.provider, r.model,
		resolverSystemPrompt, userPrompt, 0.3, 1000)
	if err != nil {
		if ctx.Err() != nil {
			return KnowledgeResult{}, ctx.Err()
		}
		r.logger.Warn("knowledge reasoning call failed", zap.Error(err))
		return insufficientInfoResult(), nil
	}

	var payload knowledgePayload
	if err := decodeStrict(content, &payload); err != nil {
		r.logger.Warn("knowledge response invalid, keeping raw text", zap.Error(err))
		return unstructuredResult(content), nil
	}

	complexity := Complexity(payload.Complexity)
	if !validComplexities[complexity] {
		r.logger.Warn("knowledge response has invalid complexity",
			zap.String("complexity", payload.Complexity))
		return unstructuredResult(content), nil
	}

	result := KnowledgeResult{
		Explanation:        payload.Explanation,
		Risks:              payload.Risks,
		Recommendation:     payload.Recommendation,
		Sources:            payload.Sources,
		ProcedureKnown:     payload.ProcedureKnown,
		Complexity:         complexity,
		RequiresSpecialist: payload.RequiresSpecialist,
		Method:             "rag",
	}

	// An unknown procedure always needs a specialist, whatever the model said.
	if !result.ProcedureKnown {
		result.RequiresSpecialist = true
	}

	r.logger.Info("knowledge resolved",
		zap.Bool("procedure_known", result.ProcedureKnown),
		zap.String("complexity", string(result.Complexity)),
		zap.Int("sources", len(result.Sources)))

	return result, nil
}

// buildSearchQuery assembles a retrieval query from the structured signals,
// falling back to the raw message when nothing was extracted.
func buildSearchQuery(message string, cls Classification) string {
	var parts []string

	if cls.Category != "" && cls.Category != CategoryOther && cls.Category != CategoryGreeting {
		parts = append(parts, strings.ReplaceAll(string(cls.Category), "_", " "))
	}
	if cls.Entities.Machine != "" {
		parts = append(parts, cls.Entities.Machine)
	}
	if cls.Entities.Symptoms != "" {
		parts = append(parts, cls.Entities.Symptoms)
	}
	if cls.Entities.Pest != "" {
		parts = append(parts, cls.Entities.Pest)
	}

	if len(parts) == 0 {
		return message
	}
	return strings.Join(parts, " ")
}

func buildRAGPrompt(message string, cls Classification, enriched EnrichedContext, snippets []knowledge.Snippet) string {
	var b strings.Builder

	fmt.Fprintf(&b, "User message: %s\n", message)
	if cls.Intent != "" {
		fmt.Fprintf(&b, "Identified intention: %s\n", cls.Intent)
	}
	if cls.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", cls.Category)
	}
	if enriched.Machine != nil {
		fmt.Fprintf(&b, "Machine: %s\n", enriched.Machine.ID)
		if enriched.Machine.Symptoms != "" {
			fmt.Fprintf(&b, "Symptoms: %s\n", enriched.Machine.Symptoms)
		}
	}
	if enriched.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", enriched.Location)
	}

	b.WriteString("\nKNOWLEDGE BASE CONTEXT:\n")
	for _, s := range snippets {
		fmt.Fprintf(&b, "[%s] %s\n%s\n\n", s.ID, s.Title, s.Content)
	}

	b.WriteString("Use ONLY the information in the context above to answer.\n")
	b.WriteString("If the context does not contain enough information, set procedure_known to false.")

	return b.String()
}

// insufficientInfoResult is the fixed failure mode when retrieval produces
// nothing usable.
func insufficientInfoResult() KnowledgeResult {
	return KnowledgeResult{
		Explanation:        "Insufficient information in the knowledge base.",
		Risks:              "Risks could not be assessed without knowledge-base information.",
		Recommendation:     "Consult a technical specialist for detailed analysis.",
		Sources:            []string{},
		ProcedureKnown:     false,
		Complexity:         ComplexityHigh,
		RequiresSpecialist: true,
		Method:             "insufficient_info",
	}
}

// unstructuredResult keeps the raw model text when it did not conform to the
// expected shape. The procedure stays unknown so the turn escalates.
func unstructuredResult(raw string) KnowledgeResult {
	const maxLen = 500
	text := strings.TrimSpace(raw)
	if text == "" {
		text = "Unstructured response"
	}
	if len(text) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return KnowledgeResult{
		Explanation:        text,
		Risks:              "The response could not be structured reliably.",
		Recommendation:     "Review the response manually.",
		Sources:            []string{},
		ProcedureKnown:     false,
		Complexity:         ComplexityHigh,
		RequiresSpecialist: true,
		Method:             "fallback",
	}
}

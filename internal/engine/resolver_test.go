package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
)

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name    string
		message string
		cls     Classification
		want    string
	}{
		{
			name:    "structured signals",
			message: "my harvester is smoking",
			cls: Classification{
				Category: CategoryMechanicalFailure,
				Entities: Entities{Machine: "CH670", Symptoms: "blue smoke"},
			},
			want: "mechanical failure CH670 blue smoke",
		},
		{
			name:    "pest included",
			message: "bugs everywhere",
			cls: Classification{
				Category: CategoryPhytosanitary,
				Entities: Entities{Pest: "brown stink bug", Crop: "soybean"},
			},
			want: "phytosanitary brown stink bug",
		},
		{
			name:    "other category falls back to message",
			message: "how do I request vacation",
			cls:     Classification{Category: CategoryOther},
			want:    "how do I request vacation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSearchQuery(tt.message, tt.cls)
			if got != tt.want {
				t.Errorf("buildSearchQuery = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveNoSnippetsMeansInsufficient(t *testing.T) {
	provider := &scriptedProvider{}
	r := NewKnowledgeResolver(&fakeRetriever{}, provider, "test-model", zap.NewNop())

	kr, err := r.Resolve(context.Background(), "strange noise", Classification{Category: CategoryOther}, EnrichedContext{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if kr.ProcedureKnown {
		t.Error("ProcedureKnown = true, want false")
	}
	if !kr.RequiresSpecialist {
		t.Error("RequiresSpecialist = false, want true")
	}
	if len(provider.Calls) != 0 {
		t.Errorf("got %d reasoning calls with no snippets, want 0", len(provider.Calls))
	}
}

func TestResolveRetrievalErrorDegrades(t *testing.T) {
	r := NewKnowledgeResolver(&fakeRetriever{Err: errors.New("index offline")},
		&scriptedProvider{}, "test-model", zap.NewNop())

	kr, err := r.Resolve(context.Background(), "strange noise", Classification{}, EnrichedContext{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if kr.ProcedureKnown {
		t.Error("ProcedureKnown = true, want false")
	}
}

func TestResolveParsesStructuredAnswer(t *testing.T) {
	provider := &scriptedProvider{Responses: []string{knownProcedureJSON}}
	retriever := &fakeRetriever{Snippets: testSnippets()}
	r := NewKnowledgeResolver(retriever, provider, "test-model", zap.NewNop())

	cls := Classification{
		Category: CategoryMechanicalFailure,
		Entities: Entities{Machine: "CH670", Symptoms: "blue smoke"},
	}
	kr, err := r.Resolve(context.Background(), "ch670 blue smoke", cls, EnrichedContext{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if !kr.ProcedureKnown {
		t.Error("ProcedureKnown = false, want true")
	}
	if kr.Complexity != ComplexityHigh {
		t.Errorf("Complexity = %q, want %q", kr.Complexity, ComplexityHigh)
	}
	if len(kr.Sources) != 1 || kr.Sources[0] != "kb-12" {
		t.Errorf("Sources = %v, want [kb-12]", kr.Sources)
	}
	if kr.Method != "rag" {
		t.Errorf("Method = %q, want %q", kr.Method, "rag")
	}

	// The reasoning prompt must carry the snippet content.
	prompt := provider.Calls[0].Messages[1].Content
	if !strings.Contains(prompt, "[kb-12]") || !strings.Contains(prompt, "Blue smoke indicates oil burn.") {
		t.Errorf("prompt is missing the retrieved snippet: %q", prompt)
	}
}

func TestResolveKeepsRawTextOnInvalidJSON(t *testing.T) {
	provider := &scriptedProvider{Responses: []string{"The most likely cause is a worn turbo seal."}}
	r := NewKnowledgeResolver(&fakeRetriever{Snippets: testSnippets()}, provider, "test-model", zap.NewNop())

	kr, err := r.Resolve(context.Background(), "ch670 blue smoke", Classification{Category: CategoryMechanicalFailure}, EnrichedContext{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if kr.ProcedureKnown {
		t.Error("ProcedureKnown = true, want false for unstructured answers")
	}
	if !kr.RequiresSpecialist {
		t.Error("RequiresSpecialist = false, want true")
	}
	if !strings.Contains(kr.Explanation, "worn turbo seal") {
		t.Errorf("Explanation should keep the raw text, got %q", kr.Explanation)
	}
}

func TestResolveProcedureUnknownForcesSpecialist(t *testing.T) {
	provider := &scriptedProvider{Responses: []string{`{
		"explanation": "Not enough documentation.",
		"risks": "",
		"recommendation": "",
		"sources": [],
		"procedure_known": false,
		"complexity": "low",
		"requires_specialist": false
	}`}}
	r := NewKnowledgeResolver(&fakeRetriever{Snippets: testSnippets()}, provider, "test-model", zap.NewNop())

	kr, err := r.Resolve(context.Background(), "odd request", Classification{Category: CategoryOther}, EnrichedContext{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !kr.RequiresSpecialist {
		t.Error("RequiresSpecialist = false, want true when the procedure is unknown")
	}
}

func TestResolveContextCancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &scriptedProvider{Err: context.Canceled}
	r := NewKnowledgeResolver(&fakeRetriever{Err: context.Canceled}, provider, "test-model", zap.NewNop())

	_, err := r.Resolve(ctx, "anything", Classification{}, EnrichedContext{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestUnstructuredResultTruncatesOnRuneBoundary(t *testing.T) {
	// Byte 500 lands in the middle of the two-byte "ç".
	long := strings.Repeat("a", 499) + strings.Repeat("ção ", 50)

	kr := unstructuredResult(long)

	if !utf8.ValidString(kr.Explanation) {
		t.Fatalf("Explanation is not valid UTF-8: %q", kr.Explanation)
	}
	if len(kr.Explanation) != 499 {
		t.Errorf("len(Explanation) = %d, want 499", len(kr.Explanation))
	}
	if kr.ProcedureKnown {
		t.Error("ProcedureKnown = true, want false")
	}
}

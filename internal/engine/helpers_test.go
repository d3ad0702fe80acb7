package engine

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/agrodesk/agrodesk/internal/knowledge"
	"github.com/agrodesk/agrodesk/internal/llm"
	"github.com/agrodesk/agrodesk/internal/session"
	"github.com/agrodesk/agrodesk/internal/ticketing"
)

// scriptedProvider returns canned responses in order and records every
// request it receives.
type scriptedProvider struct {
	mu        sync.Mutex
	Responses []string
	Calls     []llm.CompletionRequest
	Err       error
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, req)
	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Responses) == 0 {
		return &llm.CompletionResponse{Content: "{}"}, nil
	}
	content := p.Responses[0]
	p.Responses = p.Responses[1:]
	return &llm.CompletionResponse{Content: content}, nil
}

type fakeRetriever struct {
	Snippets []knowledge.Snippet
	Queries  []string
	Err      error
}

func (r *fakeRetriever) Search(ctx context.Context, query string, topK int) ([]knowledge.Snippet, error) {
	r.Queries = append(r.Queries, query)
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Snippets, nil
}

type fakeCreator struct {
	OrderID  string
	Requests []ticketing.CreateRequest
	Err      error
}

func (c *fakeCreator) Create(ctx context.Context, req ticketing.CreateRequest) (string, error) {
	c.Requests = append(c.Requests, req)
	if c.Err != nil {
		return "", c.Err
	}
	return c.OrderID, nil
}

// fixedSampler always yields the same value, pinning runbook outcomes.
type fixedSampler float64

func (s fixedSampler) Float64() float64 { return float64(s) }

type orchestratorDeps struct {
	provider  *scriptedProvider
	retriever *fakeRetriever
	creator   *fakeCreator
	sampler   Sampler
	sessions  session.Store
}

func setupOrchestrator(t *testing.T, deps orchestratorDeps) *Orchestrator {
	t.Helper()
	logger := zap.NewNop()

	if deps.provider == nil {
		deps.provider = &scriptedProvider{}
	}
	if deps.retriever == nil {
		deps.retriever = &fakeRetriever{}
	}
	if deps.creator == nil {
		deps.creator = &fakeCreator{OrderID: "OS-TEST0001"}
	}
	if deps.sampler == nil {
		deps.sampler = fixedSampler(0.0)
	}
	if deps.sessions == nil {
		deps.sessions = session.NewMemoryStore()
	}

	return NewOrchestrator(
		NewClassifier(deps.provider, "test-model", logger),
		NewContextEnricher(deps.sessions, logger),
		NewKnowledgeResolver(deps.retriever, deps.provider, "test-model", logger),
		NewAutomationPolicy(deps.creator, deps.sampler, logger),
		NewExplainer(deps.provider, "test-model", logger),
		deps.sessions,
		logger,
	)
}

const mechanicalClassificationJSON = `{
  "intent": "Harvester losing power with blue smoke",
  "category": "mechanical_failure",
  "entities": {
    "machine": "CH670",
    "plot": "15",
    "symptoms": "blue smoke, power loss",
    "pest": null,
    "crop": null,
    "requested_action": null,
    "location": null,
    "operator": null
  },
  "confidence": 0.9,
  "severity": "high",
  "notes": null,
  "suggested_questions": null
}`

const stockClassificationJSON = `{
  "intent": "Check herbicide stock level",
  "category": "supply_stock",
  "entities": {
    "machine": null,
    "plot": null,
    "symptoms": null,
    "pest": null,
    "crop": null,
    "requested_action": "query",
    "location": "warehouse 2",
    "operator": null
  },
  "confidence": 0.85,
  "severity": "low",
  "notes": null,
  "suggested_questions": null
}`

const knownProcedureJSON = `{
  "explanation": "Blue smoke under load points to oil entering the combustion chamber.",
  "risks": "Continued operation can cause severe engine damage.",
  "recommendation": "Stop the machine and check turbocharger seals per the JD protocol.",
  "sources": ["kb-12"],
  "procedure_known": true,
  "complexity": "high",
  "requires_specialist": true
}`

const simpleProcedureJSON = `{
  "explanation": "Stock levels are read from the warehouse inventory sheet.",
  "risks": "None.",
  "recommendation": "Run the inventory verification procedure.",
  "sources": ["kb-30"],
  "procedure_known": true,
  "complexity": "low",
  "requires_specialist": false
}`

const summaryJSON = `{"summary": "⚠️ **Problem Identified:**\nTest summary."}`

func testSnippets() []knowledge.Snippet {
	return []knowledge.Snippet{
		{ID: "kb-12", Title: "Harvester engine smoke diagnostics", Content: "Blue smoke indicates oil burn.", Category: "machinery", Score: 0.91},
	}
}

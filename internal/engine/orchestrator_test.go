package engine

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/agrodesk/agrodesk/internal/session"
)

const greetingClassificationJSON = `{
  "intent": "Greeting",
  "category": "greeting",
  "entities": {},
  "confidence": 1.0,
  "severity": "low",
  "notes": "Hello! Happy to help you today!",
  "suggested_questions": null
}`

const vagueClassificationJSON = `{
  "intent": "Something about a machine",
  "category": "mechanical_failure",
  "entities": {"machine": null, "plot": null, "symptoms": null, "pest": null, "crop": null, "requested_action": null, "location": null, "operator": null},
  "confidence": 0.3,
  "severity": "medium",
  "notes": null,
  "suggested_questions": ["Which machine is having the problem?", "What symptoms are you seeing?"]
}`

func TestProcessGreeting(t *testing.T) {
	provider := &scriptedProvider{Responses: []string{greetingClassificationJSON}}
	o := setupOrchestrator(t, orchestratorDeps{provider: provider})

	res := o.Process(context.Background(), "oi", "")

	if !res.Success {
		t.Fatal("Success = false, want true")
	}
	if res.FlowState != StateNeedsClarification {
		t.Errorf("FlowState = %q, want %q", res.FlowState, StateNeedsClarification)
	}
	if !strings.Contains(res.Message, "Hello! Happy to help you today!") {
		t.Errorf("Message = %q, want the greeting reply", res.Message)
	}
	if !strings.Contains(res.Message, "What is your question or need?") {
		t.Errorf("Message = %q, want the follow-up invitation", res.Message)
	}
	if res.SessionID == "" {
		t.Error("SessionID is empty, want a generated id")
	}
	if len(res.Decisions) != 1 || res.Decisions[0].Type != DecisionIntentionUnclear {
		t.Errorf("Decisions = %+v, want a single intention_unclear entry", res.Decisions)
	}
	if res.Decisions[0].NextState != StateNeedsClarification {
		t.Errorf("Decisions[0].NextState = %q, want %q", res.Decisions[0].NextState, StateNeedsClarification)
	}
	if res.Clarification == nil {
		t.Fatal("Clarification is nil")
	}
	if got := res.Clarification.SuggestedQuestions; len(got) != 3 || got[0] != "Hello! Happy to help you today!" {
		t.Errorf("SuggestedQuestions = %v, want the greeting plus the two fixed prompts", got)
	}
	if len(res.Clarification.MissingInfo) != 1 || res.Clarification.MissingInfo[0] != "Description of the problem or question" {
		t.Errorf("MissingInfo = %v, want the problem-description entry", res.Clarification.MissingInfo)
	}
	if res.WorkOrder != nil || res.RunbookExecution != nil {
		t.Error("greeting turn should not produce a work order or runbook")
	}
	// No retrieval or explanation happens for a greeting.
	if len(provider.Calls) != 1 {
		t.Errorf("got %d reasoning calls, want 1", len(provider.Calls))
	}
}

func TestProcessLowConfidenceAsksForClarification(t *testing.T) {
	provider := &scriptedProvider{Responses: []string{vagueClassificationJSON}}
	o := setupOrchestrator(t, orchestratorDeps{provider: provider})

	res := o.Process(context.Background(), "machine problem", "")

	if res.FlowState != StateNeedsClarification {
		t.Fatalf("FlowState = %q, want %q", res.FlowState, StateNeedsClarification)
	}
	if res.Clarification == nil {
		t.Fatal("Clarification is nil")
	}
	if len(res.Clarification.SuggestedQuestions) != 2 {
		t.Errorf("SuggestedQuestions = %v, want the classifier's two questions",
			res.Clarification.SuggestedQuestions)
	}
	wantMissing := []string{"machine or location", "symptoms or problem description"}
	if len(res.Clarification.MissingInfo) != len(wantMissing) {
		t.Fatalf("MissingInfo = %v, want %v", res.Clarification.MissingInfo, wantMissing)
	}
	for i, want := range wantMissing {
		if res.Clarification.MissingInfo[i] != want {
			t.Errorf("MissingInfo[%d] = %q, want %q", i, res.Clarification.MissingInfo[i], want)
		}
	}
	if !strings.Contains(res.Message, "Which machine is having the problem?") {
		t.Errorf("Message = %q, want the clarifying questions inline", res.Message)
	}
	if len(res.Decisions) != 1 || res.Decisions[0].Type != DecisionIntentionUnclear {
		t.Errorf("Decisions = %+v, want a single intention_unclear entry", res.Decisions)
	}
}

func TestProcessCreatesWorkOrderForSeriousFailure(t *testing.T) {
	provider := &scriptedProvider{Responses: []string{
		mechanicalClassificationJSON,
		knownProcedureJSON,
		summaryJSON,
	}}
	retriever := &fakeRetriever{Snippets: testSnippets()}
	creator := &fakeCreator{OrderID: "OS-AB12CD34"}
	o := setupOrchestrator(t, orchestratorDeps{provider: provider, retriever: retriever, creator: creator})

	res := o.Process(context.Background(), "ch670 blue smoke losing power plot 15", "")

	if !res.Success {
		t.Fatal("Success = false, want true")
	}
	if res.FlowState != StateCompleted {
		t.Errorf("FlowState = %q, want %q", res.FlowState, StateCompleted)
	}
	if res.WorkOrder == nil {
		t.Fatal("WorkOrder is nil")
	}
	if res.WorkOrder.OrderID != "OS-AB12CD34" {
		t.Errorf("OrderID = %q, want OS-AB12CD34", res.WorkOrder.OrderID)
	}
	if res.RunbookExecution != nil {
		t.Error("RunbookExecution should be nil on the work-order path")
	}
	if res.Message != "⚠️ **Problem Identified:**\nTest summary." {
		t.Errorf("Message = %q, want the explainer summary", res.Message)
	}

	// The audit trail records every branch taken, in order.
	wantDecisions := []DecisionType{
		DecisionIntentionClear,
		DecisionProcedureKnown,
		DecisionCannotAutomate,
		DecisionExecutionSuccess,
	}
	if len(res.Decisions) != len(wantDecisions) {
		t.Fatalf("got %d decisions, want %d: %+v", len(res.Decisions), len(wantDecisions), res.Decisions)
	}
	for i, want := range wantDecisions {
		if res.Decisions[i].Type != want {
			t.Errorf("Decisions[%d].Type = %q, want %q", i, res.Decisions[i].Type, want)
		}
	}
	if res.Decisions[2].NextState != StateWorkOrderCreated {
		t.Errorf("cannot_automate NextState = %q, want %q", res.Decisions[2].NextState, StateWorkOrderCreated)
	}

	wantStages := []string{"classifier", "context_enricher", "knowledge_resolver", "automation_policy", "explainer"}
	if len(res.StageResponses) != len(wantStages) {
		t.Fatalf("got %d stage responses, want %d", len(res.StageResponses), len(wantStages))
	}
	for i, want := range wantStages {
		if res.StageResponses[i].Stage != want {
			t.Errorf("StageResponses[%d].Stage = %q, want %q", i, res.StageResponses[i].Stage, want)
		}
		if !res.StageResponses[i].Success {
			t.Errorf("StageResponses[%d].Success = false", i)
		}
	}
}

func TestProcessAutomatesSimpleStockRequest(t *testing.T) {
	provider := &scriptedProvider{Responses: []string{
		stockClassificationJSON,
		simpleProcedureJSON,
		summaryJSON,
	}}
	retriever := &fakeRetriever{Snippets: testSnippets()}
	creator := &fakeCreator{}
	o := setupOrchestrator(t, orchestratorDeps{
		provider: provider, retriever: retriever, creator: creator, sampler: fixedSampler(0.1),
	})

	res := o.Process(context.Background(), "how much herbicide is left in warehouse 2", "")

	if res.FlowState != StateCompleted {
		t.Fatalf("FlowState = %q, want %q", res.FlowState, StateCompleted)
	}
	if res.RunbookExecution == nil || !res.RunbookExecution.Success {
		t.Fatalf("RunbookExecution = %+v, want a successful execution", res.RunbookExecution)
	}
	if res.WorkOrder != nil {
		t.Error("WorkOrder should be nil on the automation path")
	}
	if len(creator.Requests) != 0 {
		t.Errorf("got %d ticketing calls, want 0", len(creator.Requests))
	}

	var sawCanAutomate, sawExecutionSuccess bool
	for _, d := range res.Decisions {
		switch d.Type {
		case DecisionCanAutomate:
			sawCanAutomate = true
		case DecisionExecutionSuccess:
			sawExecutionSuccess = true
		}
	}
	if !sawCanAutomate || !sawExecutionSuccess {
		t.Errorf("Decisions = %+v, want can_automate and execution_success", res.Decisions)
	}
}

func TestProcessExplainsFailedRunbook(t *testing.T) {
	provider := &scriptedProvider{Responses: []string{
		stockClassificationJSON,
		simpleProcedureJSON,
		summaryJSON,
	}}
	o := setupOrchestrator(t, orchestratorDeps{
		provider:  provider,
		retriever: &fakeRetriever{Snippets: testSnippets()},
		sampler:   fixedSampler(0.95),
	})

	res := o.Process(context.Background(), "check herbicide stock", "")

	// A failed runbook is escalated in the trail, but the explainer still
	// runs and the turn still closes.
	if res.FlowState != StateCompleted {
		t.Fatalf("FlowState = %q, want %q", res.FlowState, StateCompleted)
	}
	if res.RunbookExecution == nil || res.RunbookExecution.Success {
		t.Fatalf("RunbookExecution = %+v, want a failed execution", res.RunbookExecution)
	}
	if res.Message != "⚠️ **Problem Identified:**\nTest summary." {
		t.Errorf("Message = %q, want the explainer summary", res.Message)
	}

	var failed *FlowDecision
	for i := range res.Decisions {
		if res.Decisions[i].Type == DecisionExecutionFailed {
			failed = &res.Decisions[i]
		}
	}
	if failed == nil {
		t.Fatalf("Decisions = %+v, want an execution_failed entry", res.Decisions)
	}
	if failed.NextState != StateHumanEscalation {
		t.Errorf("execution_failed NextState = %q, want %q", failed.NextState, StateHumanEscalation)
	}
	last := res.Decisions[len(res.Decisions)-1]
	if last.Type != DecisionExecutionSuccess || last.NextState != StateCompleted {
		t.Errorf("final decision = %+v, want execution_success -> completed", last)
	}
	if len(provider.Calls) != 3 {
		t.Errorf("got %d reasoning calls, want 3", len(provider.Calls))
	}
}

func TestProcessEscalatesUnknownProcedure(t *testing.T) {
	provider := &scriptedProvider{Responses: []string{
		stockClassificationJSON,
		summaryJSON, // explainer; resolver makes no call without snippets
	}}
	o := setupOrchestrator(t, orchestratorDeps{provider: provider, retriever: &fakeRetriever{}})

	res := o.Process(context.Background(), "how do I calibrate the drone seeder", "")

	if res.FlowState != StateHumanEscalation {
		t.Fatalf("FlowState = %q, want %q", res.FlowState, StateHumanEscalation)
	}
	last := res.Decisions[len(res.Decisions)-1]
	if last.Type != DecisionProcedureUnknown {
		t.Errorf("final decision = %q, want %q", last.Type, DecisionProcedureUnknown)
	}
	if res.Message != "⚠️ **Problem Identified:**\nTest summary." {
		t.Errorf("Message = %q, want the explainer summary", res.Message)
	}
}

func TestProcessRecordsSessionMessages(t *testing.T) {
	store := session.NewMemoryStore()
	provider := &scriptedProvider{Responses: []string{greetingClassificationJSON}}
	o := setupOrchestrator(t, orchestratorDeps{provider: provider, sessions: store})

	res := o.Process(context.Background(), "oi", "sess-1")

	if res.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", res.SessionID)
	}

	sess, err := store.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(sess.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(sess.Messages))
	}
	if sess.Messages[0].Role != "user" || sess.Messages[0].Text != "oi" {
		t.Errorf("first message = %+v, want the user turn", sess.Messages[0])
	}
	if sess.Messages[1].Role != "assistant" {
		t.Errorf("second message role = %q, want assistant", sess.Messages[1].Role)
	}

	var meta turnMetadata
	if err := json.Unmarshal(sess.Messages[1].Metadata, &meta); err != nil {
		t.Fatalf("decoding turn metadata: %v", err)
	}
	if meta.Classification.Category != CategoryGreeting {
		t.Errorf("metadata category = %q, want greeting", meta.Classification.Category)
	}
	if meta.FlowState != StateNeedsClarification {
		t.Errorf("metadata flow state = %q, want needs_clarification", meta.FlowState)
	}
}

func TestProcessSeedsNextTurnWithPriorClassification(t *testing.T) {
	store := session.NewMemoryStore()
	provider := &scriptedProvider{Responses: []string{
		vagueClassificationJSON,        // turn 1: too vague, asks for details
		mechanicalClassificationJSON,   // turn 2: complement resolves it
		knownProcedureJSON,
		summaryJSON,
	}}
	o := setupOrchestrator(t, orchestratorDeps{
		provider:  provider,
		retriever: &fakeRetriever{Snippets: testSnippets()},
		sessions:  store,
	})

	first := o.Process(context.Background(), "machine problem", "sess-multi")
	if first.FlowState != StateNeedsClarification {
		t.Fatalf("first FlowState = %q, want %q", first.FlowState, StateNeedsClarification)
	}

	second := o.Process(context.Background(), "it's the CH670 on plot 15, blue smoke", "sess-multi")
	if second.FlowState != StateCompleted {
		t.Fatalf("second FlowState = %q, want %q", second.FlowState, StateCompleted)
	}

	// The second classification call carries the first turn's category.
	if len(provider.Calls) < 2 {
		t.Fatalf("got %d reasoning calls, want at least 2", len(provider.Calls))
	}
	secondPrompt := provider.Calls[1].Messages[1].Content
	if !strings.Contains(secondPrompt, "mechanical_failure") {
		t.Errorf("second classification prompt is missing the prior category: %q", secondPrompt)
	}
}

func TestProcessSurvivesPanicInStage(t *testing.T) {
	// A nil sessions store makes loadPriorClassification panic; the turn
	// must still come back as an escalation, not a crash.
	o := setupOrchestrator(t, orchestratorDeps{provider: &scriptedProvider{}})
	o.sessions = nil

	res := o.Process(context.Background(), "anything", "sess-panic")

	if res == nil {
		t.Fatal("Process returned nil after panic")
	}
	if res.Success {
		t.Error("Success = true, want false")
	}
	if res.FlowState != StateHumanEscalation {
		t.Errorf("FlowState = %q, want %q", res.FlowState, StateHumanEscalation)
	}
	if res.SessionID != "sess-panic" {
		t.Errorf("SessionID = %q, want sess-panic", res.SessionID)
	}
}

func TestProcessReleasesSessionLocks(t *testing.T) {
	provider := &scriptedProvider{Responses: []string{
		greetingClassificationJSON,
		greetingClassificationJSON,
	}}
	o := setupOrchestrator(t, orchestratorDeps{provider: provider})

	o.Process(context.Background(), "oi", "sess-a")
	o.Process(context.Background(), "bom dia", "sess-b")

	o.mu.Lock()
	held := len(o.locks)
	o.mu.Unlock()
	if held != 0 {
		t.Errorf("got %d session locks after the turns finished, want 0", held)
	}
}

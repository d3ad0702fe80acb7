package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agrodesk/agrodesk/internal/session"
)

// Orchestrator runs the full decision pipeline for one user turn:
// classification, context enrichment, knowledge resolution, the automation
// decision, and the final explanation. Turns on the same session are
// serialized; turns on different sessions run concurrently.
type Orchestrator struct {
	classifier *Classifier
	enricher   *ContextEnricher
	resolver   *KnowledgeResolver
	policy     *AutomationPolicy
	explainer  *Explainer
	sessions   session.Store
	logger     *zap.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock serializes turns on one session. Entries are reference
// counted and removed once the last turn releases them, so the lock table
// does not grow with every session ever seen.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewOrchestrator wires the five pipeline stages together.
func NewOrchestrator(classifier *Classifier, enricher *ContextEnricher, resolver *KnowledgeResolver,
	policy *AutomationPolicy, explainer *Explainer, sessions session.Store, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		enricher:   enricher,
		resolver:   resolver,
		policy:     policy,
		explainer:  explainer,
		sessions:   sessions,
		logger:     logger,
		locks:      make(map[string]*sessionLock),
	}
}

// turnMetadata is what gets attached to the assistant message so the next
// turn in the session can pick up where this one left off.
type turnMetadata struct {
	Classification Classification `json:"classification"`
	FlowState      FlowState      `json:"flow_state"`
}

// Process handles one user message end to end and always returns a Result.
// An empty sessionID starts a new session.
func (o *Orchestrator) Process(ctx context.Context, message, sessionID string) (result *Result) {
	start := time.Now()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	lock := o.acquireSession(sessionID)
	defer o.releaseSession(sessionID, lock)

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic during turn processing",
				zap.String("session_id", sessionID), zap.Any("panic", r))
			result = &Result{
				Success:   false,
				Message:   "⚠️ An internal error occurred while processing your request. A specialist will be notified.",
				FlowState: StateHumanEscalation,
				SessionID: sessionID,
				ElapsedMS: msSince(start),
			}
		}
	}()

	prior := o.loadPriorClassification(ctx, sessionID)
	if err := o.sessions.AppendMessage(ctx, sessionID, "user", message, nil); err != nil {
		o.logger.Warn("recording user message failed", zap.Error(err))
	}

	result = &Result{
		Success:   true,
		FlowState: StateIntentionCheck,
		SessionID: sessionID,
	}

	// Stage 1: intention check.
	clsStart := time.Now()
	cls := o.classifier.Classify(ctx, message, prior)
	result.addStage("classifier", true, cls, msSince(clsStart), "")

	if cls.Category == CategoryGreeting {
		o.finishGreeting(ctx, result, cls)
		result.ElapsedMS = msSince(start)
		return result
	}

	if cls.Confidence < ConfidenceThreshold {
		o.finishClarification(ctx, result, cls)
		result.ElapsedMS = msSince(start)
		return result
	}

	result.addDecision(FlowDecision{
		Type:       DecisionIntentionClear,
		Stage:      "classifier",
		Reason:     fmt.Sprintf("Intention understood with confidence %.2f", cls.Confidence),
		Confidence: cls.Confidence,
		NextState:  StateGatheringContext,
	})
	result.FlowState = StateGatheringContext

	// Stage 2: context enrichment.
	enrStart := time.Now()
	enriched, err := o.enricher.Enrich(ctx, cls, sessionID)
	if err != nil {
		result.addStage("context_enricher", false, nil, msSince(enrStart), err.Error())
		o.finishError(ctx, result, cls, fmt.Sprintf("context enrichment failed: %v", err))
		result.ElapsedMS = msSince(start)
		return result
	}
	result.addStage("context_enricher", true, enriched, msSince(enrStart), "")
	result.FlowState = StateKnowledgeCheck

	// Stage 3: knowledge resolution.
	resStart := time.Now()
	kr, err := o.resolver.Resolve(ctx, message, cls, enriched)
	if err != nil {
		result.addStage("knowledge_resolver", false, nil, msSince(resStart), err.Error())
		o.finishError(ctx, result, cls, fmt.Sprintf("knowledge resolution failed: %v", err))
		result.ElapsedMS = msSince(start)
		return result
	}
	result.addStage("knowledge_resolver", true, kr, msSince(resStart), "")

	if !kr.ProcedureKnown {
		o.finishEscalation(ctx, result, cls, kr)
		result.ElapsedMS = msSince(start)
		return result
	}

	result.addDecision(FlowDecision{
		Type:       DecisionProcedureKnown,
		Stage:      "knowledge_resolver",
		Reason:     "A documented procedure covers this occurrence",
		Confidence: cls.Confidence,
		NextState:  StateAutomationCheck,
	})
	result.FlowState = StateAutomationCheck

	// Stage 4: automation decision.
	polStart := time.Now()
	outcome, err := o.policy.Decide(ctx, cls, kr)
	if err != nil {
		result.addStage("automation_policy", false, nil, msSince(polStart), err.Error())
		o.finishError(ctx, result, cls, fmt.Sprintf("automation decision failed: %v", err))
		result.ElapsedMS = msSince(start)
		return result
	}
	result.addStage("automation_policy", true, outcome, msSince(polStart), "")
	o.applyOutcome(result, cls, outcome)

	// Stage 5: explanation. Runs on every post-automation path, a failed
	// runbook included, and closes the turn.
	expStart := time.Now()
	summary := o.explainer.Explain(ctx, cls, kr, outcome)
	result.addStage("explainer", true, summaryPayload{Summary: summary}, msSince(expStart), "")
	result.Message = summary

	result.addDecision(FlowDecision{
		Type:       DecisionExecutionSuccess,
		Stage:      "orchestrator",
		Reason:     "Turn resolved and explained to the user",
		Confidence: cls.Confidence,
		NextState:  StateCompleted,
	})
	result.FlowState = StateCompleted

	o.recordTurn(ctx, result, cls)
	result.ElapsedMS = msSince(start)
	return result
}

// applyOutcome folds the automation decision into the result.
func (o *Orchestrator) applyOutcome(result *Result, cls Classification, outcome *DecisionOutcome) {
	switch outcome.Action {
	case ActionAutomate:
		result.addDecision(FlowDecision{
			Type:       DecisionCanAutomate,
			Stage:      "automation_policy",
			Reason:     "Safe for automated execution under the decision matrix",
			Confidence: cls.Confidence,
			NextState:  StateRunbookExecution,
		})
		result.addDecision(FlowDecision{
			Type:       DecisionExecutionSuccess,
			Stage:      "automation_policy",
			Reason:     outcome.Message,
			Confidence: cls.Confidence,
			NextState:  StateExecutionSuccess,
		})
		result.RunbookExecution = outcome.RunbookExecution
		result.FlowState = StateExecutionSuccess

	case ActionCreateWorkOrder:
		result.addDecision(FlowDecision{
			Type:       DecisionCannotAutomate,
			Stage:      "automation_policy",
			Reason:     "Decision matrix requires human handling",
			Confidence: cls.Confidence,
			NextState:  StateWorkOrderCreated,
		})
		result.WorkOrder = outcome.WorkOrder
		result.FlowState = StateWorkOrderCreated

	case ActionEscalate:
		if outcome.RunbookExecution != nil {
			result.addDecision(FlowDecision{
				Type:       DecisionCanAutomate,
				Stage:      "automation_policy",
				Reason:     "Safe for automated execution under the decision matrix",
				Confidence: cls.Confidence,
				NextState:  StateRunbookExecution,
			})
			result.addDecision(FlowDecision{
				Type:       DecisionExecutionFailed,
				Stage:      "automation_policy",
				Reason:     outcome.EscalationReason,
				Confidence: cls.Confidence,
				NextState:  StateHumanEscalation,
			})
			result.RunbookExecution = outcome.RunbookExecution
		} else {
			result.addDecision(FlowDecision{
				Type:       DecisionCannotAutomate,
				Stage:      "automation_policy",
				Reason:     outcome.EscalationReason,
				Confidence: cls.Confidence,
				NextState:  StateHumanEscalation,
			})
		}
		result.Message = outcome.Message
		result.FlowState = StateHumanEscalation
	}
}

// finishGreeting answers a greeting and waits for a problem description.
// The turn is treated as an unclear intention, so the session stays in
// clarification until the user says what is going on.
func (o *Orchestrator) finishGreeting(ctx context.Context, result *Result, cls Classification) {
	greeting := cls.Notes
	if greeting == "" {
		greeting = "Hello! Happy to help you today!"
	}
	questions := []string{
		greeting,
		"What is your question or need?",
		"Can you tell me what is happening?",
	}

	result.Clarification = &ClarificationRequest{
		Reason:               "Initial greeting",
		MissingInfo:          []string{"Description of the problem or question"},
		SuggestedQuestions:   questions,
		CurrentUnderstanding: "Greeting received",
	}
	result.Message = strings.Join(questions, "\n")
	result.addDecision(FlowDecision{
		Type:       DecisionIntentionUnclear,
		Stage:      "classifier",
		Reason:     "Greeting received; waiting for a problem description",
		Confidence: cls.Confidence,
		NextState:  StateNeedsClarification,
	})
	result.FlowState = StateNeedsClarification
	o.recordTurn(ctx, result, cls)
}

func (o *Orchestrator) finishClarification(ctx context.Context, result *Result, cls Classification) {
	missing := missingInfo(cls)
	questions := cls.SuggestedQuestions
	if len(questions) == 0 {
		questions = []string{
			"Can you provide more details?",
			"Which machine or location is this happening on?",
		}
	}

	result.Clarification = &ClarificationRequest{
		Reason:               fmt.Sprintf("Confidence %.2f is below the %.2f threshold", cls.Confidence, ConfidenceThreshold),
		MissingInfo:          missing,
		SuggestedQuestions:   questions,
		CurrentUnderstanding: cls.Intent,
	}
	result.Message = clarificationMessage(questions)
	result.addDecision(FlowDecision{
		Type:       DecisionIntentionUnclear,
		Stage:      "classifier",
		Reason:     fmt.Sprintf("Confidence %.2f below threshold; asking for clarification", cls.Confidence),
		Confidence: cls.Confidence,
		NextState:  StateNeedsClarification,
	})
	result.FlowState = StateNeedsClarification
	o.recordTurn(ctx, result, cls)
}

func (o *Orchestrator) finishEscalation(ctx context.Context, result *Result, cls Classification, kr KnowledgeResult) {
	result.addDecision(FlowDecision{
		Type:       DecisionProcedureUnknown,
		Stage:      "knowledge_resolver",
		Reason:     "No documented procedure found for this occurrence",
		Confidence: cls.Confidence,
		NextState:  StateHumanEscalation,
	})
	result.FlowState = StateHumanEscalation

	summary := o.explainer.Explain(ctx, cls, kr, &DecisionOutcome{
		Action:           ActionEscalate,
		EscalationReason: "No documented procedure found in the knowledge base",
	})
	result.Message = summary
	o.recordTurn(ctx, result, cls)
}

// finishError closes a turn after a hard stage failure. The classification
// is still recorded so the next turn keeps the context.
func (o *Orchestrator) finishError(ctx context.Context, result *Result, cls Classification, reason string) {
	o.logger.Error("turn halted", zap.String("session_id", result.SessionID), zap.String("reason", reason))
	result.Success = false
	result.Message = "⚠️ We could not finish processing your request. A specialist will be notified to assist you."
	result.addDecision(FlowDecision{
		Type:       DecisionExecutionFailed,
		Stage:      "orchestrator",
		Reason:     reason,
		Confidence: cls.Confidence,
		NextState:  StateHumanEscalation,
	})
	result.FlowState = StateHumanEscalation
	o.recordTurn(ctx, result, cls)
}

// recordTurn appends the assistant reply with the turn metadata the next
// turn needs for continuity.
func (o *Orchestrator) recordTurn(ctx context.Context, result *Result, cls Classification) {
	meta, err := json.Marshal(turnMetadata{Classification: cls, FlowState: result.FlowState})
	if err != nil {
		o.logger.Warn("encoding turn metadata failed", zap.Error(err))
		meta = nil
	}
	if err := o.sessions.AppendMessage(ctx, result.SessionID, "assistant", result.Message, meta); err != nil {
		o.logger.Warn("recording assistant message failed", zap.Error(err))
	}
}

// loadPriorClassification finds the most recent turn metadata in the
// session, creating the session when it does not exist yet.
func (o *Orchestrator) loadPriorClassification(ctx context.Context, sessionID string) *Classification {
	sess, err := o.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		if _, err := o.sessions.Create(ctx, sessionID, "", nil); err != nil {
			o.logger.Warn("creating session failed", zap.Error(err))
		}
		return nil
	}
	if err != nil {
		o.logger.Warn("loading session failed", zap.Error(err))
		return nil
	}

	for i := len(sess.Messages) - 1; i >= 0; i-- {
		msg := sess.Messages[i]
		if msg.Role != "assistant" || len(msg.Metadata) == 0 {
			continue
		}
		var meta turnMetadata
		if err := json.Unmarshal(msg.Metadata, &meta); err != nil {
			continue
		}
		if meta.Classification.Category == "" {
			continue
		}
		return &meta.Classification
	}
	return nil
}

func (o *Orchestrator) acquireSession(id string) *sessionLock {
	o.mu.Lock()
	lock, ok := o.locks[id]
	if !ok {
		lock = &sessionLock{}
		o.locks[id] = lock
	}
	lock.refs++
	o.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (o *Orchestrator) releaseSession(id string, lock *sessionLock) {
	lock.mu.Unlock()

	o.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(o.locks, id)
	}
	o.mu.Unlock()
}

// missingInfo names the critical fields a vague message left out.
func missingInfo(cls Classification) []string {
	var missing []string
	if cls.Entities.Machine == "" && cls.Entities.Plot == "" && cls.Entities.Location == "" {
		missing = append(missing, "machine or location")
	}
	if cls.Entities.Symptoms == "" {
		missing = append(missing, "symptoms or problem description")
	}
	if len(missing) == 0 {
		missing = append(missing, "additional details")
	}
	return missing
}

func clarificationMessage(questions []string) string {
	var b strings.Builder
	b.WriteString("I need a bit more information to help you:\n")
	for _, q := range questions {
		b.WriteString("\n• " + q)
	}
	return b.String()
}

func (r *Result) addDecision(d FlowDecision) {
	r.Decisions = append(r.Decisions, d)
}

func (r *Result) addStage(stage string, success bool, data any, elapsedMS float64, errMsg string) {
	r.StageResponses = append(r.StageResponses, StageResponse{
		Stage:     stage,
		Success:   success,
		Data:      data,
		ElapsedMS: elapsedMS,
		Error:     errMsg,
	})
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}

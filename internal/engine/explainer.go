package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/agrodesk/agrodesk/internal/llm"
)

// Explainer turns a resolved turn into a short, operator-friendly summary.
// It degrades to fixed templates when the model is unavailable or returns
// something unusable, so the pipeline always has a final message.
type Explainer struct {
	provider llm.Provider
	model    string
	logger   *zap.Logger
}

func NewExplainer(provider llm.Provider, model string, logger *zap.Logger) *Explainer {
	return &Explainer{provider: provider, model: model, logger: logger}
}

type summaryPayload struct {
	Summary string `json:"summary"`
}

// Explain produces the user-facing summary for a completed turn.
func (e *Explainer) Explain(ctx context.Context, cls Classification, kr KnowledgeResult, outcome *DecisionOutcome) string {
	prompt := e.buildPrompt(cls, kr, outcome)

	raw, err := llm.CompleteStructured(ctx, e.provider, e.model, explainerSystemPrompt, prompt, 0.4, 300)
	if err != nil {
		e.logger.Warn("explainer model call failed, using template", zap.Error(err))
		return fallbackSummary(cls, kr, outcome)
	}

	var payload summaryPayload
	if err := json.Unmarshal([]byte(cleanJSONContent(raw)), &payload); err != nil || strings.TrimSpace(payload.Summary) == "" {
		e.logger.Warn("explainer returned unusable payload, using template")
		return fallbackSummary(cls, kr, outcome)
	}
	return payload.Summary
}

func (e *Explainer) buildPrompt(cls Classification, kr KnowledgeResult, outcome *DecisionOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Occurrence: %s (category %s, severity %s)\n", cls.Intent, cls.Category, cls.Severity)
	if cls.Entities.Machine != "" {
		fmt.Fprintf(&b, "Machine: %s\n", cls.Entities.Machine)
	}
	if kr.Explanation != "" {
		fmt.Fprintf(&b, "Technical analysis: %s\n", kr.Explanation)
	}
	if kr.Recommendation != "" {
		fmt.Fprintf(&b, "Recommendation: %s\n", kr.Recommendation)
	}
	if outcome != nil {
		switch {
		case outcome.WorkOrder != nil:
			wo := outcome.WorkOrder
			fmt.Fprintf(&b, "Work order %s was created, priority %s, assigned to %s.\n",
				wo.OrderID, wo.Priority, wo.Specialist)
		case outcome.RunbookExecution != nil && outcome.RunbookExecution.Success:
			fmt.Fprintf(&b, "Automated procedure %q was executed successfully (%d steps).\n",
				outcome.RunbookExecution.RunbookName, outcome.RunbookExecution.StepsCompleted)
		case outcome.EscalationReason != "":
			fmt.Fprintf(&b, "The case was escalated to a human specialist: %s\n", outcome.EscalationReason)
		}
	}
	b.WriteString("\nWrite the summary for the operator.")
	return b.String()
}

// fallbackSummary mirrors the structure the model is asked for, with no
// model in the loop.
func fallbackSummary(cls Classification, kr KnowledgeResult, outcome *DecisionOutcome) string {
	problem := cls.Intent
	if problem == "" {
		problem = "Your request was analyzed"
	}

	if outcome != nil && outcome.WorkOrder != nil {
		wo := outcome.WorkOrder
		return fmt.Sprintf(
			"⚠️ **Problem Identified:**\n%s\n\n🛠️ **Action Taken:**\nWork order %s was created with %s priority and assigned to %s.\n\n💡 **Recommendation:**\nKeep the equipment stopped until the specialist arrives and note any new symptoms.",
			problem, wo.OrderID, wo.Priority, wo.Specialist)
	}

	if outcome != nil && outcome.RunbookExecution != nil && outcome.RunbookExecution.Success {
		exec := outcome.RunbookExecution
		return fmt.Sprintf(
			"⚠️ **Problem Identified:**\n%s\n\n🛠️ **Action Taken:**\nThe procedure %q was executed automatically (%d of %d steps completed).\n\n💡 **Recommendation:**\nConfirm that the issue is resolved and contact us again if it returns.",
			problem, exec.RunbookName, exec.StepsCompleted, exec.TotalSteps)
	}

	recommendation := kr.Recommendation
	if recommendation == "" {
		recommendation = "A specialist will follow up with you shortly."
	}
	return fmt.Sprintf(
		"⚠️ **Problem Identified:**\n%s\n\n🛠️ **Action Taken:**\nYour case is under analysis by our team.\n\n💡 **Recommendation:**\n%s",
		problem, recommendation)
}

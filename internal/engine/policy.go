package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agrodesk/agrodesk/internal/ticketing"
)

// Action is what the automation policy chose to do with a turn.
type Action string

const (
	ActionAutomate        Action = "automate"
	ActionCreateWorkOrder Action = "create_work_order"
	ActionEscalate        Action = "escalate"
)

// DecisionOutcome is the result of the automation decision, including the
// side effect it performed. A turn never gets both a work order and a
// runbook execution.
type DecisionOutcome struct {
	Action           Action            `json:"action"`
	CanAutomate      bool              `json:"can_automate"`
	Message          string            `json:"message"`
	WorkOrder        *WorkOrder        `json:"work_order,omitempty"`
	RunbookExecution *RunbookExecution `json:"runbook_execution,omitempty"`
	EscalationReason string            `json:"escalation_reason,omitempty"`
}

// AutomationPolicy is the deterministic decision matrix gating automated
// remediation, and the stage that performs the chosen action.
type AutomationPolicy struct {
	tickets ticketing.Creator
	sampler Sampler
	logger  *zap.Logger
}

// NewAutomationPolicy creates the policy stage. sampler drives simulated
// runbook outcomes and must not be nil.
func NewAutomationPolicy(tickets ticketing.Creator, sampler Sampler, logger *zap.Logger) *AutomationPolicy {
	return &AutomationPolicy{tickets: tickets, sampler: sampler, logger: logger}
}

// Decide evaluates the decision matrix and executes the chosen action.
func (p *AutomationPolicy) Decide(ctx context.Context, cls Classification, kr KnowledgeResult) (*DecisionOutcome, error) {
	p.logger.Info("automation decision inputs",
		zap.String("category", string(cls.Category)),
		zap.Bool("procedure_known", kr.ProcedureKnown),
		zap.Bool("requires_specialist", kr.RequiresSpecialist),
		zap.String("complexity", string(kr.Complexity)))

	// The orchestrator escalates unknown procedures before this stage runs;
	// keep the guard so the matrix is safe on its own.
	if !kr.ProcedureKnown {
		return p.escalate("No documented procedure found in the knowledge base"), nil
	}

	if !canAutomate(cls, kr) {
		return p.createWorkOrder(ctx, cls, kr)
	}

	rb := selectRunbook(cls)
	exec := executeRunbook(rb, p.sampler)
	p.logger.Info("runbook executed",
		zap.String("runbook", rb.Key),
		zap.Bool("success", exec.Success),
		zap.Int("steps_completed", exec.StepsCompleted))

	if !exec.Success {
		out := p.escalate(fmt.Sprintf("Automated execution failed: %s", exec.ErrorMessage))
		out.RunbookExecution = &exec
		return out, nil
	}

	return &DecisionOutcome{
		Action:           ActionAutomate,
		CanAutomate:      true,
		Message:          fmt.Sprintf("✓ Procedure executed successfully: %s", exec.RunbookName),
		RunbookExecution: &exec,
	}, nil
}

// canAutomate applies the decision matrix in order; first match wins.
func canAutomate(cls Classification, kr KnowledgeResult) bool {
	if kr.RequiresSpecialist {
		return false
	}
	if kr.Complexity == ComplexityHigh {
		return false
	}
	if cls.Severity == SeverityHigh && strings.Contains(string(cls.Category), "failure") {
		return false
	}
	if (cls.Category == CategorySupplyStock || cls.Category == CategoryOperationalQuestion) &&
		kr.Complexity == ComplexityLow {
		return true
	}
	return false
}

func (p *AutomationPolicy) createWorkOrder(ctx context.Context, cls Classification, kr KnowledgeResult) (*DecisionOutcome, error) {
	title := cls.Intent
	if title == "" {
		title = "Unspecified occurrence"
	}
	description := strings.TrimSpace(title + ". " + kr.Explanation)
	specialist := SpecialistFor(cls.Category)
	priority := PriorityFor(cls.Severity)

	req := ticketing.CreateRequest{
		Title:          title,
		Description:    description,
		Category:       WorkOrderCategoryFor(cls.Category),
		Priority:       priority,
		Specialist:     specialist,
		MachineID:      cls.Entities.Machine,
		FieldID:        cls.Entities.Plot,
		Symptoms:       cls.Entities.Symptoms,
		EstimatedHours: 2.0,
	}

	orderID, err := p.tickets.Create(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// The ticketing call is not retried; a locally generated id keeps
		// the turn resolvable for the user.
		orderID = ticketing.NewOrderID()
		p.logger.Warn("ticketing call failed, using local order id",
			zap.String("order_id", orderID), zap.Error(err))
	}

	now := time.Now().UTC()
	wo := &WorkOrder{
		OrderID:        orderID,
		CreatedAt:      now,
		UpdatedAt:      now,
		Priority:       priority,
		Category:       req.Category,
		Description:    description,
		Specialist:     specialist,
		MachineID:      cls.Entities.Machine,
		FieldID:        cls.Entities.Plot,
		Symptoms:       cls.Entities.Symptoms,
		Status:         ticketing.StatusPending,
		EstimatedHours: req.EstimatedHours,
	}

	p.logger.Info("work order created",
		zap.String("order_id", orderID),
		zap.String("specialist", specialist),
		zap.String("priority", priority))

	return &DecisionOutcome{
		Action:      ActionCreateWorkOrder,
		CanAutomate: false,
		Message:     fmt.Sprintf("📋 Work order %s created and routed to %s.", orderID, specialist),
		WorkOrder:   wo,
	}, nil
}

func (p *AutomationPolicy) escalate(reason string) *DecisionOutcome {
	p.logger.Info("escalating to human", zap.String("reason", reason))
	return &DecisionOutcome{
		Action:           ActionEscalate,
		CanAutomate:      false,
		Message:          fmt.Sprintf("⚠️ %s. A specialist will be notified to assist you.", reason),
		EscalationReason: reason,
	}
}

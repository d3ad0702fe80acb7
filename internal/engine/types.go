package engine

import "time"

// FlowState labels where a turn stands in the decision state machine.
type FlowState string

const (
	StateIntentionCheck     FlowState = "intention_check"
	StateNeedsClarification FlowState = "needs_clarification"
	StateGatheringContext   FlowState = "gathering_context"
	StateKnowledgeCheck     FlowState = "knowledge_check"
	StateHumanEscalation    FlowState = "human_escalation"
	StateAutomationCheck    FlowState = "automation_check"
	StateWorkOrderCreated   FlowState = "work_order_created"
	StateRunbookExecution   FlowState = "runbook_execution"
	StateExecutionSuccess   FlowState = "execution_success"
	StateExecutionFailed    FlowState = "execution_failed"
	StateCompleted          FlowState = "completed"
)

// DecisionType identifies the kind of branch taken at a decision point.
type DecisionType string

const (
	DecisionIntentionClear   DecisionType = "intention_clear"
	DecisionIntentionUnclear DecisionType = "intention_unclear"
	DecisionProcedureKnown   DecisionType = "procedure_known"
	DecisionProcedureUnknown DecisionType = "procedure_unknown"
	DecisionCanAutomate      DecisionType = "can_automate"
	DecisionCannotAutomate   DecisionType = "cannot_automate"
	DecisionExecutionSuccess DecisionType = "execution_success"
	DecisionExecutionFailed  DecisionType = "execution_failed"
)

// FlowDecision is one entry in the append-only audit trail of branches taken
// during a turn.
type FlowDecision struct {
	Type       DecisionType `json:"decision_type"`
	Stage      string       `json:"stage"`
	Reason     string       `json:"reason"`
	Confidence float64      `json:"confidence"`
	NextState  FlowState    `json:"next_state"`
}

// Category classifies a support request.
type Category string

const (
	CategoryGreeting              Category = "greeting"
	CategoryMechanicalFailure     Category = "mechanical_failure"
	CategoryPhytosanitary         Category = "phytosanitary"
	CategorySupplyStock           Category = "supply_stock"
	CategoryWeather               Category = "weather"
	CategoryITSystem              Category = "it_system"
	CategoryHR                    Category = "hr"
	CategoryPreventiveMaintenance Category = "preventive_maintenance"
	CategoryMachineOperation      Category = "machine_operation"
	CategoryOperationalQuestion   Category = "operational_question"
	CategoryOther                 Category = "other"
)

// Severity of the reported issue.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Complexity of the documented procedure, as judged by knowledge resolution.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Entities extracted from a message. All fields are optional; empty means
// not mentioned.
type Entities struct {
	Machine         string `json:"machine,omitempty"`
	Plot            string `json:"plot,omitempty"`
	Symptoms        string `json:"symptoms,omitempty"`
	Pest            string `json:"pest,omitempty"`
	Crop            string `json:"crop,omitempty"`
	RequestedAction string `json:"requested_action,omitempty"`
	Location        string `json:"location,omitempty"`
	Operator        string `json:"operator,omitempty"`
}

// Classification is the structured interpretation of one user message.
type Classification struct {
	Intent             string   `json:"intent"`
	Category           Category `json:"category"`
	Entities           Entities `json:"entities"`
	Confidence         float64  `json:"confidence"`
	Severity           Severity `json:"severity"`
	Notes              string   `json:"notes,omitempty"`
	SuggestedQuestions []string `json:"suggested_questions,omitempty"`
	Method             string   `json:"method,omitempty"` // "llm" or "keyword_fallback"
}

// EnrichedContext aggregates the classification with session data. Derived
// per turn, never persisted on its own.
type EnrichedContext struct {
	Classification  Classification    `json:"classification"`
	SessionMetadata map[string]string `json:"session_metadata,omitempty"`
	History         []HistoryMessage  `json:"history,omitempty"`
	Location        string            `json:"location,omitempty"`
	Machine         *MachineInfo      `json:"machine,omitempty"`
}

// HistoryMessage is a prior message carried into the enriched context.
type HistoryMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// MachineInfo pairs a machine identifier with its reported symptoms.
type MachineInfo struct {
	ID       string `json:"id"`
	Symptoms string `json:"symptoms,omitempty"`
}

// KnowledgeResult is the outcome of knowledge resolution. When
// ProcedureKnown is false, RequiresSpecialist is always true.
type KnowledgeResult struct {
	Explanation        string     `json:"explanation"`
	Risks              string     `json:"risks"`
	Recommendation     string     `json:"recommendation"`
	Sources            []string   `json:"sources"`
	ProcedureKnown     bool       `json:"procedure_known"`
	Complexity         Complexity `json:"complexity"`
	RequiresSpecialist bool       `json:"requires_specialist"`
	Method             string     `json:"method,omitempty"`
}

// WorkOrder is the escalation record handed to a human specialist.
type WorkOrder struct {
	OrderID        string    `json:"order_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Priority       string    `json:"priority"`
	Category       string    `json:"category"`
	Description    string    `json:"description"`
	Specialist     string    `json:"assigned_specialist"`
	MachineID      string    `json:"machine_id,omitempty"`
	FieldID        string    `json:"field_id,omitempty"`
	Symptoms       string    `json:"symptoms,omitempty"`
	Status         string    `json:"status"`
	EstimatedHours float64   `json:"estimated_time_hours"`
}

// RunbookExecution is the step-by-step result of an automation attempt.
// Immutable once returned.
type RunbookExecution struct {
	RunbookName    string   `json:"runbook_name"`
	StepsCompleted int      `json:"steps_completed"`
	TotalSteps     int      `json:"total_steps"`
	Success        bool     `json:"success"`
	ExecutionLog   []string `json:"execution_log"`
	ErrorMessage   string   `json:"error_message,omitempty"`
}

// ClarificationRequest asks the user for the information a turn was missing.
type ClarificationRequest struct {
	Reason               string   `json:"reason"`
	MissingInfo          []string `json:"missing_info"`
	SuggestedQuestions   []string `json:"suggested_questions"`
	CurrentUnderstanding string   `json:"current_understanding"`
}

// StageResponse records one stage invocation in the per-turn audit log,
// independent of which branch the decision logic took.
type StageResponse struct {
	Stage     string  `json:"stage"`
	Success   bool    `json:"success"`
	Data      any     `json:"data,omitempty"`
	ElapsedMS float64 `json:"execution_time_ms"`
	Error     string  `json:"error,omitempty"`
}

// Result is the complete outcome of one orchestrated turn.
type Result struct {
	Success          bool                  `json:"success"`
	Message          string                `json:"message"`
	FlowState        FlowState             `json:"flow_state"`
	Decisions        []FlowDecision        `json:"decisions"`
	StageResponses   []StageResponse       `json:"agent_responses"`
	WorkOrder        *WorkOrder            `json:"work_order,omitempty"`
	Clarification    *ClarificationRequest `json:"clarification,omitempty"`
	RunbookExecution *RunbookExecution     `json:"runbook_execution,omitempty"`
	SessionID        string                `json:"session_id,omitempty"`
	ElapsedMS        float64               `json:"total_execution_time_ms"`
}

var validCategories = map[Category]bool{
	CategoryGreeting:              true,
	CategoryMechanicalFailure:     true,
	CategoryPhytosanitary:         true,
	CategorySupplyStock:           true,
	CategoryWeather:               true,
	CategoryITSystem:              true,
	CategoryHR:                    true,
	CategoryPreventiveMaintenance: true,
	CategoryMachineOperation:      true,
	CategoryOperationalQuestion:   true,
	CategoryOther:                 true,
}

var validSeverities = map[Severity]bool{
	SeverityLow:    true,
	SeverityMedium: true,
	SeverityHigh:   true,
}

var validComplexities = map[Complexity]bool{
	ComplexityLow:    true,
	ComplexityMedium: true,
	ComplexityHigh:   true,
}

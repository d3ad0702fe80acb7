package engine

import (
	"fmt"
	"strings"
)

// Runbook is a named, ordered list of scripted remediation steps eligible
// for automated execution.
type Runbook struct {
	Key            string   `json:"key"`
	Name           string   `json:"name"`
	Steps          []string `json:"steps"`
	EstimatedHours float64  `json:"estimated_time_hours"`
	Difficulty     string   `json:"difficulty"` // "easy" or "medium"
}

// Simulated success rates per difficulty tier.
const (
	easySuccessRate   = 0.9
	mediumSuccessRate = 0.7
)

var runbookCatalog = map[string]Runbook{
	"system_reset": {
		Key:  "system_reset",
		Name: "Machine System Reset",
		Steps: []string{
			"Shut the machine down completely",
			"Wait 30 seconds",
			"Check sensor connections",
			"Power the system back on",
			"Check error codes",
		},
		EstimatedHours: 0.25,
		Difficulty:     "easy",
	},
	"inventory_check": {
		Key:  "inventory_check",
		Name: "Inventory Check",
		Steps: []string{
			"Access the management system",
			"Look the item up in the inventory",
			"Check available quantity",
			"Validate warehouse location",
		},
		EstimatedHours: 0.1,
		Difficulty:     "easy",
	},
	"basic_inspection": {
		Key:  "basic_inspection",
		Name: "Basic Machine Inspection",
		Steps: []string{
			"Check oil level",
			"Check fuel level",
			"Inspect the belt",
			"Check tire pressure",
			"Test the brakes",
		},
		EstimatedHours: 0.5,
		Difficulty:     "medium",
	},
}

// RunbookCatalog returns all defined runbooks.
func RunbookCatalog() []Runbook {
	out := make([]Runbook, 0, len(runbookCatalog))
	for _, key := range []string{"system_reset", "inventory_check", "basic_inspection"} {
		out = append(out, runbookCatalog[key])
	}
	return out
}

// selectRunbook picks the runbook for an automatable request by category
// keyword match.
func selectRunbook(cls Classification) Runbook {
	category := strings.ToLower(string(cls.Category))
	symptoms := strings.ToLower(cls.Entities.Symptoms)

	switch {
	case strings.Contains(category, "stock"):
		return runbookCatalog["inventory_check"]
	case cls.Category == CategoryITSystem || strings.Contains(symptoms, "error"):
		return runbookCatalog["system_reset"]
	default:
		return runbookCatalog["basic_inspection"]
	}
}

// Sampler yields uniform values in [0,1) for simulated runbook outcomes.
// *math/rand.Rand satisfies it, so tests can seed deterministic runs.
type Sampler interface {
	Float64() float64
}

// executeRunbook simulates running the runbook. Success is sampled once per
// run with a fixed probability per difficulty tier; on failure the log is
// truncated at the failing step.
func executeRunbook(rb Runbook, sampler Sampler) RunbookExecution {
	rate := mediumSuccessRate
	if rb.Difficulty == "easy" {
		rate = easySuccessRate
	}
	success := sampler.Float64() < rate

	exec := RunbookExecution{
		RunbookName: rb.Name,
		TotalSteps:  len(rb.Steps),
		Success:     success,
	}

	for i, step := range rb.Steps {
		if !success && i == len(rb.Steps)-1 {
			exec.ExecutionLog = append(exec.ExecutionLog,
				fmt.Sprintf("✗ Step %d: %s - FAILED", i+1, step))
			exec.ErrorMessage = fmt.Sprintf("failed at step %d", i+1)
			break
		}
		exec.ExecutionLog = append(exec.ExecutionLog,
			fmt.Sprintf("✓ Step %d: %s", i+1, step))
		exec.StepsCompleted = i + 1
	}

	return exec
}

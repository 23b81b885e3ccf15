package models

// Plan is the structured output of a fix-plan generation: what the planner
// thinks is wrong, the commands to run in order, and why. Degraded marks
// plans synthesised after a parse failure; such plans still carry a usable
// shape so the remediation loop can proceed to its escalation logic.
type Plan struct {
	Diagnosis   string   `json:"diagnosis"`
	Commands    []string `json:"commands"`
	Explanation string   `json:"explanation"`
	Degraded    bool     `json:"-"`
}

// ShellCommand is a single generated command with its rationale.
type ShellCommand struct {
	Command     string `json:"command"`
	Explanation string `json:"explanation"`
	Degraded    bool   `json:"-"`
}

// TaskPlan targets a generated command sequence at specific endpoints.
type TaskPlan struct {
	TargetEndpoints []string `json:"target_endpoints"`
	Commands        []string `json:"commands"`
	Explanation     string   `json:"explanation"`
	Degraded        bool     `json:"-"`
}

// CommandResult captures one executed command and its raw output.
type CommandResult struct {
	Command string `json:"command"`
	Output  string `json:"output"`
}

// TaskResult holds per-endpoint outcomes of a task execution.
type TaskResult struct {
	Succeeded bool            `json:"succeeded"`
	Error     string          `json:"error,omitempty"`
	Results   []CommandResult `json:"results,omitempty"`
}

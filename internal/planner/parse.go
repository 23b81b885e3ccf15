package planner

import (
	"encoding/json"
	"strings"

	"github.com/ariesstack/aries-engine/internal/models"
)

// extractJSON pulls the first-to-last brace span out of a completion.
// Models often wrap JSON in prose or code fences; when no braces are present
// the whole content is returned for the caller to try as-is.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return content
	}
	return content[start : end+1]
}

func parseJSONResponse(content string, out any) error {
	return json.Unmarshal([]byte(extractJSON(content)), out)
}

func degradedFixPlan() models.Plan {
	return models.Plan{
		Diagnosis:   "unable to parse model response",
		Commands:    []string{"echo 'no remediation commands generated'"},
		Explanation: "fix plan generation produced an unusable response",
		Degraded:    true,
	}
}

func degradedShellCommand() models.ShellCommand {
	return models.ShellCommand{
		Command:     "echo 'no command generated'",
		Explanation: "command generation produced an unusable response",
		Degraded:    true,
	}
}

func degradedTaskPlan() models.TaskPlan {
	return models.TaskPlan{
		TargetEndpoints: []string{},
		Commands:        []string{"echo 'no task commands generated'"},
		Explanation:     "task plan generation produced an unusable response",
		Degraded:        true,
	}
}

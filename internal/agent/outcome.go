package agent

import (
	"strings"

	"github.com/ariesstack/aries-engine/internal/models"
)

// inferProblem maps a probe status onto a knowledge graph problem node. The
// mapping is keyword-based; unknown symptoms land on a generic node the
// graph grows around as outcomes accumulate.
func inferProblem(status models.HealthStatus) string {
	msg := strings.ToLower(status.Message)
	switch {
	case strings.Contains(msg, "service") && (strings.Contains(msg, "not active") || strings.Contains(msg, "inactive") || strings.Contains(msg, "down")):
		return "service_down"
	case strings.Contains(msg, "disk"):
		return "disk_full"
	case strings.Contains(msg, "memory"):
		return "high_memory"
	case strings.Contains(msg, "cpu"):
		return "high_cpu"
	case strings.Contains(msg, "connection") || strings.Contains(msg, "refused"):
		return "connection_refused"
	case strings.Contains(msg, "interface") || strings.Contains(msg, "latency"):
		return "network_latency"
	default:
		return "unknown_problem"
	}
}

// inferSolution maps a plan's commands onto a knowledge graph solution node.
func inferSolution(plan models.Plan) string {
	joined := strings.ToLower(strings.Join(plan.Commands, "\n"))
	switch {
	case strings.Contains(joined, "systemctl restart") || (strings.Contains(joined, "service") && strings.Contains(joined, "restart")):
		return "restart_service"
	case strings.Contains(joined, "drop_caches"):
		return "clear_cache"
	case strings.Contains(joined, "truncate") || strings.Contains(joined, "/var/log"):
		return "clean_logs"
	case strings.Contains(joined, "ps aux"):
		return "check_process"
	default:
		return "custom_fix"
	}
}

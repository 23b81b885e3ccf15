package knowledge

import (
	"context"
	"fmt"

	"github.com/ariesstack/aries-engine/internal/models"
)

// Seed installs the base operational catalog: common services, the problems
// they tend to exhibit, and known fixes. Seeding is idempotent for nodes but
// never overwrites an edge the engine has already learned a weight for.
func Seed(ctx context.Context, g *Graph) error {
	nodes := []models.KnowledgeNode{
		{ID: "nginx", Kind: models.NodeService, Category: "web_server"},
		{ID: "apache", Kind: models.NodeService, Category: "web_server"},
		{ID: "mysql", Kind: models.NodeService, Category: "database"},
		{ID: "postgresql", Kind: models.NodeService, Category: "database"},
		{ID: "redis", Kind: models.NodeService, Category: "cache"},
		{ID: "mongodb", Kind: models.NodeService, Category: "database"},
		{ID: "kubernetes", Kind: models.NodeService, Category: "container_orchestration"},
		{ID: "docker", Kind: models.NodeService, Category: "container"},

		{ID: "high_cpu", Kind: models.NodeProblem, Category: "performance"},
		{ID: "high_memory", Kind: models.NodeProblem, Category: "performance"},
		{ID: "disk_full", Kind: models.NodeProblem, Category: "storage"},
		{ID: "service_down", Kind: models.NodeProblem, Category: "availability"},
		{ID: "network_latency", Kind: models.NodeProblem, Category: "network"},
		{ID: "connection_refused", Kind: models.NodeProblem, Category: "network"},

		{
			ID: "restart_service", Kind: models.NodeSolution,
			Description: "Restart the affected service",
			Commands:    []string{"systemctl restart {service}"},
		},
		{
			ID: "clear_cache", Kind: models.NodeSolution,
			Description: "Drop kernel page caches",
			Commands:    []string{"echo 3 > /proc/sys/vm/drop_caches"},
		},
		{
			ID: "clean_logs", Kind: models.NodeSolution,
			Description: "Truncate rotated log files",
			Commands:    []string{`find /var/log -type f -name "*.log" -exec truncate -s 0 {} \;`},
		},
		{
			ID: "check_process", Kind: models.NodeSolution,
			Description: "Inspect the service's processes",
			Commands:    []string{"ps aux | grep {service}"},
		},
	}

	edges := []models.KnowledgeEdge{
		{Source: "nginx", Target: "high_cpu", Weight: 0.7},
		{Source: "nginx", Target: "service_down", Weight: 0.9},
		{Source: "mysql", Target: "high_memory", Weight: 0.8},
		{Source: "mysql", Target: "disk_full", Weight: 0.6},
		{Source: "redis", Target: "high_memory", Weight: 0.7},
		{Source: "kubernetes", Target: "service_down", Weight: 0.8},
		{Source: "docker", Target: "high_cpu", Weight: 0.6},

		{Source: "high_cpu", Target: "restart_service", Weight: 0.6},
		{Source: "high_cpu", Target: "check_process", Weight: 0.8},
		{Source: "high_memory", Target: "clear_cache", Weight: 0.9},
		{Source: "disk_full", Target: "clean_logs", Weight: 0.8},
		{Source: "service_down", Target: "restart_service", Weight: 0.9},
		{Source: "service_down", Target: "check_process", Weight: 0.7},
	}

	for _, n := range nodes {
		if _, ok := g.GetNode(n.ID); ok {
			continue
		}
		if err := g.AddNode(ctx, n); err != nil {
			return fmt.Errorf("seed node %s: %w", n.ID, err)
		}
	}
	for _, e := range edges {
		if _, ok := g.EdgeWeight(e.Source, e.Target); ok {
			continue
		}
		if err := g.AddEdge(ctx, e.Source, e.Target, e.Weight); err != nil {
			return fmt.Errorf("seed edge %s->%s: %w", e.Source, e.Target, err)
		}
	}
	return nil
}

package knowledge

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ariesstack/aries-engine/internal/models"
)

// GraphStore is the persistence surface the graph writes through to.
type GraphStore interface {
	UpsertNode(ctx context.Context, n models.KnowledgeNode) error
	UpsertEdge(ctx context.Context, e models.KnowledgeEdge) error
	LoadGraph(ctx context.Context) ([]models.KnowledgeNode, []models.KnowledgeEdge, error)
}

// Graph is a directed, weighted knowledge graph relating services, problems
// and solutions. Reads are served from memory; every mutation writes through
// to the backing store so restarts keep learned weights.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]models.KnowledgeNode
	edges map[string]map[string]float64
	store GraphStore
}

// Experience-update constants. Each observed outcome nudges the edge weight
// by delta, clamped to [minWeight, maxWeight]. First observations start at
// initialSuccess or initialFailure.
const (
	weightDelta    = 0.1
	minWeight      = 0.1
	maxWeight      = 1.0
	initialSuccess = 0.6
	initialFailure = 0.3
)

// NewGraph hydrates a graph from the store.
func NewGraph(ctx context.Context, store GraphStore) (*Graph, error) {
	g := &Graph{
		nodes: make(map[string]models.KnowledgeNode),
		edges: make(map[string]map[string]float64),
		store: store,
	}

	nodes, edges, err := store.LoadGraph(ctx)
	if err != nil {
		return nil, fmt.Errorf("hydrate graph: %w", err)
	}
	for _, n := range nodes {
		g.nodes[n.ID] = n
	}
	for _, e := range edges {
		if g.edges[e.Source] == nil {
			g.edges[e.Source] = make(map[string]float64)
		}
		g.edges[e.Source][e.Target] = e.Weight
	}
	return g, nil
}

// GetNode returns the node and whether it exists.
func (g *Graph) GetNode(id string) (models.KnowledgeNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// AddNode inserts or replaces a node.
func (g *Graph) AddNode(ctx context.Context, n models.KnowledgeNode) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addNodeLocked(ctx, n)
}

func (g *Graph) addNodeLocked(ctx context.Context, n models.KnowledgeNode) error {
	if err := g.store.UpsertNode(ctx, n); err != nil {
		return err
	}
	g.nodes[n.ID] = n
	return nil
}

// AddEdge inserts or replaces a directed edge. Endpoints must already exist.
func (g *Graph) AddEdge(ctx context.Context, source, target string, weight float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[source]; !ok {
		return fmt.Errorf("edge source %q: unknown node", source)
	}
	if _, ok := g.nodes[target]; !ok {
		return fmt.Errorf("edge target %q: unknown node", target)
	}
	return g.setEdgeLocked(ctx, source, target, weight)
}

func (g *Graph) setEdgeLocked(ctx context.Context, source, target string, weight float64) error {
	if err := g.store.UpsertEdge(ctx, models.KnowledgeEdge{Source: source, Target: target, Weight: weight}); err != nil {
		return err
	}
	if g.edges[source] == nil {
		g.edges[source] = make(map[string]float64)
	}
	g.edges[source][target] = weight
	return nil
}

// EdgeWeight returns the weight of source->target and whether it exists.
func (g *Graph) EdgeWeight(source, target string) (float64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	w, ok := g.edges[source][target]
	return w, ok
}

// GetNeighbors returns outgoing neighbors of the node, sorted by descending
// edge weight.
func (g *Graph) GetNeighbors(id string) []models.Neighbor {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]models.Neighbor, 0, len(g.edges[id]))
	for target, w := range g.edges[id] {
		node, ok := g.nodes[target]
		if !ok {
			continue
		}
		out = append(out, models.Neighbor{Node: node, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Node.ID < out[j].Node.ID
	})
	return out
}

// FindSolutions returns solution nodes directly reachable from the problem,
// ranked by edge weight descending.
func (g *Graph) FindSolutions(problemID string) []models.RankedSolution {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []models.RankedSolution
	for target, w := range g.edges[problemID] {
		node, ok := g.nodes[target]
		if !ok || node.Kind != models.NodeSolution {
			continue
		}
		out = append(out, models.RankedSolution{Node: node, Relevance: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Relevance != out[j].Relevance {
			return out[i].Relevance > out[j].Relevance
		}
		return out[i].Node.ID < out[j].Node.ID
	})
	return out
}

// FindPath returns the shortest directed path between two nodes, treating
// every edge as unit cost. Returns nil when no path exists.
func (g *Graph) FindPath(from, to string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[from]; !ok {
		return nil
	}
	if _, ok := g.nodes[to]; !ok {
		return nil
	}
	if from == to {
		return []string{from}
	}

	prev := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		// Deterministic expansion order for stable results.
		targets := make([]string, 0, len(g.edges[cur]))
		for t := range g.edges[cur] {
			targets = append(targets, t)
		}
		sort.Strings(targets)
		for _, t := range targets {
			if _, seen := prev[t]; seen {
				continue
			}
			prev[t] = cur
			if t == to {
				return rebuildPath(prev, from, to)
			}
			queue = append(queue, t)
		}
	}
	return nil
}

func rebuildPath(prev map[string]string, from, to string) []string {
	var path []string
	for cur := to; cur != ""; cur = prev[cur] {
		path = append(path, cur)
		if cur == from {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// RecordOutcome feeds one remediation result back into the graph. An
// existing problem->solution edge moves up or down by a fixed step and is
// clamped; a first observation creates the edge at an outcome-dependent
// starting weight. Unknown nodes are created on the fly so novel problems
// and fixes enter the graph organically.
func (g *Graph) RecordOutcome(ctx context.Context, problemID, solutionID string, success bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[problemID]; !ok {
		n := models.KnowledgeNode{ID: problemID, Kind: models.NodeProblem, Description: "learned from remediation outcomes"}
		if err := g.addNodeLocked(ctx, n); err != nil {
			return err
		}
	}
	if _, ok := g.nodes[solutionID]; !ok {
		n := models.KnowledgeNode{ID: solutionID, Kind: models.NodeSolution, Description: "learned from remediation outcomes"}
		if err := g.addNodeLocked(ctx, n); err != nil {
			return err
		}
	}

	w, exists := g.edges[problemID][solutionID]
	switch {
	case exists && success:
		w = min(maxWeight, w+weightDelta)
	case exists && !success:
		w = max(minWeight, w-weightDelta)
	case success:
		w = initialSuccess
	default:
		w = initialFailure
	}
	return g.setEdgeLocked(ctx, problemID, solutionID, w)
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of directed edges in the graph.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, targets := range g.edges {
		n += len(targets)
	}
	return n
}

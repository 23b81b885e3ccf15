package models

// NodeKind enumerates the node types of the knowledge graph.
type NodeKind string

const (
	NodeService  NodeKind = "service"
	NodeProblem  NodeKind = "problem"
	NodeSolution NodeKind = "solution"
)

// KnowledgeNode is a typed vertex in the operational knowledge graph.
// Commands is populated for solution nodes only.
type KnowledgeNode struct {
	ID          string   `json:"id"`
	Kind        NodeKind `json:"kind"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Commands    []string `json:"commands,omitempty"`
}

// KnowledgeEdge is a directed, weighted relation between two nodes. Weight
// expresses correlation strength in [0,1] and is unique per (source, target).
type KnowledgeEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// Neighbor pairs an adjacent node with the weight of the connecting edge.
type Neighbor struct {
	Node   KnowledgeNode `json:"node"`
	Weight float64       `json:"weight"`
}

// RankedSolution is a solution node scored by edge weight for a problem.
type RankedSolution struct {
	Node      KnowledgeNode `json:"node"`
	Relevance float64       `json:"relevance"`
}

package models

// Document is a text entry in the retrieval store. The embedding dimension is
// fixed for the lifetime of the store; content changes recompute it.
type Document struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Type      string    `json:"type,omitempty"`
	Category  string    `json:"category,omitempty"`
	Embedding []float32 `json:"-"`
}

// ScoredDocument is a search hit with its bounded similarity score, higher
// meaning more similar.
type ScoredDocument struct {
	Document
	Score float64 `json:"score"`
}

package retrieval

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ariesstack/aries-engine/internal/llm"
	"github.com/ariesstack/aries-engine/internal/models"
)

// DocumentStore is the persistence surface the store writes through to.
type DocumentStore interface {
	InsertDocument(ctx context.Context, d models.Document) error
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context) ([]models.Document, error)
}

// Store is an embedding-backed document index. Vectors live in memory for
// brute-force search and write through to the backing store. The flat index
// does not support point deletes, so removing a document rebuilds it.
type Store struct {
	mu       sync.RWMutex
	docs     []models.Document
	embedder llm.Embedder
	store    DocumentStore

	// generation increments on every mutation; cache decorators key on it
	// so stale search results die with the index that produced them.
	generation uint64
}

// NewStore hydrates the index from the backing store.
func NewStore(ctx context.Context, store DocumentStore, embedder llm.Embedder) (*Store, error) {
	docs, err := store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("hydrate retrieval store: %w", err)
	}
	return &Store{docs: docs, embedder: embedder, store: store}, nil
}

// AddDocument embeds the content and indexes the document. An existing ID is
// replaced.
func (s *Store) AddDocument(ctx context.Context, doc models.Document) error {
	if doc.Content == "" {
		return fmt.Errorf("document %s: empty content", doc.ID)
	}

	emb, err := s.embedder.Embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embed document %s: %w", doc.ID, err)
	}
	doc.Embedding = emb

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.InsertDocument(ctx, doc); err != nil {
		return err
	}
	for i := range s.docs {
		if s.docs[i].ID == doc.ID {
			s.docs[i] = doc
			s.generation++
			return nil
		}
	}
	s.docs = append(s.docs, doc)
	s.generation++
	return nil
}

// Search embeds the query and returns up to limit documents by ascending L2
// distance. An empty index yields an empty result, not an error.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]models.ScoredDocument, error) {
	s.mu.RLock()
	empty := len(s.docs) == 0
	s.mu.RUnlock()
	if empty {
		return []models.ScoredDocument{}, nil
	}

	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit > len(s.docs) {
		limit = len(s.docs)
	}
	if limit <= 0 {
		return []models.ScoredDocument{}, nil
	}

	scored := make([]models.ScoredDocument, 0, len(s.docs))
	for _, d := range s.docs {
		dist := sqDistance(qv, d.Embedding)
		scored = append(scored, models.ScoredDocument{
			Document: d,
			Score:    1.0 - dist/100.0,
		})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
	return scored[:limit], nil
}

// DeleteDocument removes a document and rebuilds the in-memory index.
// Returns false when the ID is unknown.
func (s *Store) DeleteDocument(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.docs {
		if s.docs[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, nil
	}

	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return false, err
	}

	rebuilt := make([]models.Document, 0, len(s.docs)-1)
	rebuilt = append(rebuilt, s.docs[:idx]...)
	rebuilt = append(rebuilt, s.docs[idx+1:]...)
	s.docs = rebuilt
	s.generation++
	return true, nil
}

// UpdateDocument replaces a document's content, recomputing its embedding.
// Implemented as delete followed by add. Returns false for an unknown ID.
func (s *Store) UpdateDocument(ctx context.Context, id, newContent string) (bool, error) {
	s.mu.RLock()
	var existing *models.Document
	for i := range s.docs {
		if s.docs[i].ID == id {
			d := s.docs[i]
			existing = &d
			break
		}
	}
	s.mu.RUnlock()
	if existing == nil {
		return false, nil
	}

	if _, err := s.DeleteDocument(ctx, id); err != nil {
		return false, err
	}
	existing.Content = newContent
	if err := s.AddDocument(ctx, *existing); err != nil {
		return false, err
	}
	return true, nil
}

// GetAllDocuments returns a copy of the indexed documents.
func (s *Store) GetAllDocuments() []models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// Count returns the number of indexed documents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Generation returns the current mutation counter.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// sqDistance returns the squared L2 distance between two vectors. Mismatched
// dimensions compare over the shorter prefix; the remainder counts in full.
func sqDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	for i := n; i < len(a); i++ {
		sum += float64(a[i]) * float64(a[i])
	}
	for i := n; i < len(b); i++ {
		sum += float64(b[i]) * float64(b[i])
	}
	return sum
}

package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/ariesstack/aries-engine/internal/models"
	"github.com/ariesstack/aries-engine/internal/utils"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("storage: not found")

// Store persists the knowledge graph, retrieval documents and prompt
// templates in a single SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. Use ":memory:" for
// an ephemeral store in tests.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, utils.NewAppError("storage.Open", "open sqlite", err)
	}
	// modernc sqlite serialises writes; a single connection avoids
	// SQLITE_BUSY under concurrent access.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS kg_nodes (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	commands    TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS kg_edges (
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	weight REAL NOT NULL,
	PRIMARY KEY (source, target)
);
CREATE TABLE IF NOT EXISTS documents (
	id        TEXT PRIMARY KEY,
	content   TEXT NOT NULL,
	type      TEXT NOT NULL DEFAULT '',
	category  TEXT NOT NULL DEFAULT '',
	embedding BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS llm_prompts (
	name            TEXT PRIMARY KEY,
	system_message  TEXT NOT NULL DEFAULT '',
	prompt_template TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT ''
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// UpsertNode inserts or replaces a knowledge graph node.
func (s *Store) UpsertNode(ctx context.Context, n models.KnowledgeNode) error {
	cmds, err := json.Marshal(n.Commands)
	if err != nil {
		return fmt.Errorf("encode node commands: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO kg_nodes (id, kind, category, description, commands)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	kind = excluded.kind,
	category = excluded.category,
	description = excluded.description,
	commands = excluded.commands`,
		n.ID, string(n.Kind), n.Category, n.Description, string(cmds))
	if err != nil {
		return fmt.Errorf("upsert node %s: %w", n.ID, err)
	}
	return nil
}

// UpsertEdge inserts or replaces a directed edge.
func (s *Store) UpsertEdge(ctx context.Context, e models.KnowledgeEdge) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO kg_edges (source, target, weight)
VALUES (?, ?, ?)
ON CONFLICT(source, target) DO UPDATE SET weight = excluded.weight`,
		e.Source, e.Target, e.Weight)
	if err != nil {
		return fmt.Errorf("upsert edge %s->%s: %w", e.Source, e.Target, err)
	}
	return nil
}

// LoadGraph reads every node and edge. Called once at startup to hydrate the
// in-memory graph.
func (s *Store) LoadGraph(ctx context.Context) ([]models.KnowledgeNode, []models.KnowledgeEdge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, category, description, commands FROM kg_nodes`)
	if err != nil {
		return nil, nil, fmt.Errorf("load nodes: %w", err)
	}
	defer rows.Close()

	var nodes []models.KnowledgeNode
	for rows.Next() {
		var n models.KnowledgeNode
		var kind, cmds string
		if err := rows.Scan(&n.ID, &kind, &n.Category, &n.Description, &cmds); err != nil {
			return nil, nil, fmt.Errorf("scan node: %w", err)
		}
		n.Kind = models.NodeKind(kind)
		if err := json.Unmarshal([]byte(cmds), &n.Commands); err != nil {
			return nil, nil, fmt.Errorf("decode node commands for %s: %w", n.ID, err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate nodes: %w", err)
	}

	erows, err := s.db.QueryContext(ctx, `SELECT source, target, weight FROM kg_edges`)
	if err != nil {
		return nil, nil, fmt.Errorf("load edges: %w", err)
	}
	defer erows.Close()

	var edges []models.KnowledgeEdge
	for erows.Next() {
		var e models.KnowledgeEdge
		if err := erows.Scan(&e.Source, &e.Target, &e.Weight); err != nil {
			return nil, nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := erows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate edges: %w", err)
	}
	return nodes, edges, nil
}

// InsertDocument stores a retrieval document and its embedding.
func (s *Store) InsertDocument(ctx context.Context, d models.Document) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO documents (id, content, type, category, embedding)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	content = excluded.content,
	type = excluded.type,
	category = excluded.category,
	embedding = excluded.embedding`,
		d.ID, d.Content, d.Type, d.Category, encodeFloat32s(d.Embedding))
	if err != nil {
		return fmt.Errorf("insert document %s: %w", d.ID, err)
	}
	return nil
}

// DeleteDocument removes a document by ID. Deleting an absent document is
// not an error.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// ListDocuments returns all stored documents with decoded embeddings.
func (s *Store) ListDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, content, type, category, embedding FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		var blob []byte
		if err := rows.Scan(&d.ID, &d.Content, &d.Type, &d.Category, &blob); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Embedding = decodeFloat32s(blob)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// PromptTemplate is a named prompt stored alongside the engine's data.
type PromptTemplate struct {
	Name           string
	SystemMessage  string
	PromptTemplate string
	Description    string
}

// GetPrompt fetches a prompt template by name. Returns ErrNotFound when the
// template has not been provisioned.
func (s *Store) GetPrompt(ctx context.Context, name string) (PromptTemplate, error) {
	var p PromptTemplate
	err := s.db.QueryRowContext(ctx, `
SELECT name, system_message, prompt_template, description
FROM llm_prompts WHERE name = ?`, name).
		Scan(&p.Name, &p.SystemMessage, &p.PromptTemplate, &p.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return PromptTemplate{}, fmt.Errorf("prompt %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return PromptTemplate{}, fmt.Errorf("get prompt %s: %w", name, err)
	}
	return p, nil
}

// UpsertPrompt inserts or replaces a prompt template.
func (s *Store) UpsertPrompt(ctx context.Context, p PromptTemplate) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO llm_prompts (name, system_message, prompt_template, description)
VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	system_message = excluded.system_message,
	prompt_template = excluded.prompt_template,
	description = excluded.description`,
		p.Name, p.SystemMessage, p.PromptTemplate, p.Description)
	if err != nil {
		return fmt.Errorf("upsert prompt %s: %w", p.Name, err)
	}
	return nil
}

// HasPrompt reports whether a prompt template with the given name exists.
func (s *Store) HasPrompt(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM llm_prompts WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check prompt %s: %w", name, err)
	}
	return true, nil
}

func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeFloat32s(b []byte) []float32 {
	n := len(b) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

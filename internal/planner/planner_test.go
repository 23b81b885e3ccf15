package planner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ariesstack/aries-engine/internal/llm"
	"github.com/ariesstack/aries-engine/internal/models"
	"github.com/ariesstack/aries-engine/internal/storage"
)

type stubClient struct {
	response string
	err      error

	lastSystem string
	lastPrompt string
}

func (s *stubClient) Complete(_ context.Context, system, prompt string, _ llm.GenerationParams) (string, error) {
	s.lastSystem = system
	s.lastPrompt = prompt
	return s.response, s.err
}

type stubSearcher struct {
	docs []models.ScoredDocument
	err  error
}

func (s stubSearcher) Search(context.Context, string, int) ([]models.ScoredDocument, error) {
	return s.docs, s.err
}

func newTestPlanner(t *testing.T, client llm.CompletionClient, search Searcher) (*Planner, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := SeedTemplates(context.Background(), store); err != nil {
		t.Fatalf("seed templates: %v", err)
	}
	return New(client, search, store, llm.GenerationParams{Temperature: 0.2}, nil), store
}

func unhealthyStatus() models.HealthStatus {
	return models.HealthStatus{
		Healthy:    false,
		Message:    "service nginx is inactive",
		Details:    map[string]any{"cpu": "12%"},
		ObservedAt: time.Now(),
	}
}

func TestGenerateFixPlanParsesJSONInProse(t *testing.T) {
	client := &stubClient{response: "Here is my plan:\n" +
		`{"diagnosis": "nginx crashed", "commands": ["systemctl restart nginx"], "explanation": "restart fixes it"}` +
		"\nGood luck!"}
	search := stubSearcher{docs: []models.ScoredDocument{
		{Document: models.Document{ID: "d1", Content: "restart nginx with systemctl"}, Score: 0.9},
	}}
	p, _ := newTestPlanner(t, client, search)

	ep := models.EndpointRecord{ID: "web1", ConnectionType: models.TransportSSH}
	plan, err := p.GenerateFixPlan(context.Background(), ep, unhealthyStatus(), 2)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if plan.Degraded {
		t.Fatal("plan marked degraded")
	}
	if plan.Diagnosis != "nginx crashed" || len(plan.Commands) != 1 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if !strings.Contains(client.lastPrompt, "web1") {
		t.Fatal("endpoint ID not interpolated into prompt")
	}
	if !strings.Contains(client.lastPrompt, "restart nginx with systemctl") {
		t.Fatal("retrieved knowledge not interpolated into prompt")
	}
}

func TestGenerateFixPlanDegradedOnGarbage(t *testing.T) {
	client := &stubClient{response: "I cannot help with that."}
	p, _ := newTestPlanner(t, client, stubSearcher{})

	plan, err := p.GenerateFixPlan(context.Background(), models.EndpointRecord{ID: "web1"}, unhealthyStatus(), 1)
	if err != nil {
		t.Fatalf("degraded path should not error: %v", err)
	}
	if !plan.Degraded {
		t.Fatal("expected degraded plan")
	}
	if len(plan.Commands) == 0 {
		t.Fatal("degraded plan must still carry commands")
	}
}

func TestGenerateFixPlanTemplateNotFound(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	defer store.Close()

	p := New(&stubClient{response: "{}"}, stubSearcher{}, store, llm.GenerationParams{}, nil)
	_, err = p.GenerateFixPlan(context.Background(), models.EndpointRecord{ID: "web1"}, unhealthyStatus(), 1)
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestGenerateFixPlanPropagatesBackendError(t *testing.T) {
	client := &stubClient{err: errors.New("backend down")}
	p, _ := newTestPlanner(t, client, stubSearcher{})

	_, err := p.GenerateFixPlan(context.Background(), models.EndpointRecord{ID: "web1"}, unhealthyStatus(), 1)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerateShellCommand(t *testing.T) {
	client := &stubClient{response: `{"command": "df -h", "explanation": "show disk usage"}`}
	p, _ := newTestPlanner(t, client, stubSearcher{})

	cmd, err := p.GenerateShellCommand(context.Background(), "linux", "show disk usage")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if cmd.Command != "df -h" {
		t.Fatalf("unexpected command %q", cmd.Command)
	}
	if !strings.Contains(client.lastSystem, "linux") {
		t.Fatal("system type not interpolated into system message")
	}
}

func TestGenerateShellCommandDegradedOnEmptyCommand(t *testing.T) {
	client := &stubClient{response: `{"explanation": "no idea"}`}
	p, _ := newTestPlanner(t, client, stubSearcher{})

	cmd, err := p.GenerateShellCommand(context.Background(), "linux", "do the thing")
	if err != nil {
		t.Fatalf("degraded path should not error: %v", err)
	}
	if !cmd.Degraded {
		t.Fatal("expected degraded command")
	}
}

func TestGenerateTaskPlan(t *testing.T) {
	client := &stubClient{response: `{"target_endpoints": ["web1", "web2"], "commands": ["uptime"], "explanation": "check uptime"}`}
	p, _ := newTestPlanner(t, client, stubSearcher{})

	eps := []models.EndpointRecord{
		{ID: "web1", Name: "Web 1", Address: "10.0.0.1", ConnectionType: models.TransportSSH},
		{ID: "web2", Name: "Web 2", Address: "10.0.0.2", ConnectionType: models.TransportSSH},
	}
	plan, err := p.GenerateTaskPlan(context.Background(), "check uptime everywhere", eps)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(plan.TargetEndpoints) != 2 || plan.TargetEndpoints[0] != "web1" {
		t.Fatalf("unexpected targets %v", plan.TargetEndpoints)
	}
	if !strings.Contains(client.lastPrompt, "10.0.0.2") {
		t.Fatal("endpoint summaries not interpolated into prompt")
	}
}

func TestSeedTemplatesPreservesCustomisations(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	custom := storage.PromptTemplate{Name: "fix_plan", PromptTemplate: "custom {{.ProblemDesc}}"}
	if err := store.UpsertPrompt(ctx, custom); err != nil {
		t.Fatalf("upsert custom prompt: %v", err)
	}
	if err := SeedTemplates(ctx, store); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := store.GetPrompt(ctx, "fix_plan")
	if err != nil {
		t.Fatalf("get prompt: %v", err)
	}
	if got.PromptTemplate != custom.PromptTemplate {
		t.Fatal("seed overwrote customised template")
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"prefix {\"a\":1} suffix", `{"a":1}`},
		{"```json\n{\"a\": {\"b\": 2}}\n```", `{"a": {"b": 2}}`},
		{"no braces here", "no braces here"},
	}
	for _, tc := range cases {
		if got := extractJSON(tc.in); got != tc.want {
			t.Fatalf("extractJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

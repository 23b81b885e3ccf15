package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/ariesstack/aries-engine/internal/llm"
	"github.com/ariesstack/aries-engine/internal/models"
	"github.com/ariesstack/aries-engine/internal/storage"
)

var (
	// ErrTemplateNotFound signals a missing prompt template. The planner
	// never invents prompts; provisioning is a deployment concern.
	ErrTemplateNotFound = errors.New("planner: prompt template not found")
	// ErrGenerationFailed signals the completion backend failed.
	ErrGenerationFailed = errors.New("planner: generation failed")
)

// Searcher retrieves context documents for a query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.ScoredDocument, error)
}

// PromptStore provides named prompt templates.
type PromptStore interface {
	GetPrompt(ctx context.Context, name string) (storage.PromptTemplate, error)
	UpsertPrompt(ctx context.Context, p storage.PromptTemplate) error
	HasPrompt(ctx context.Context, name string) (bool, error)
}

// Planner produces remediation plans by combining retrieved knowledge with a
// chat completion backend.
type Planner struct {
	client  llm.CompletionClient
	search  Searcher
	prompts PromptStore
	params  llm.GenerationParams
	logger  *slog.Logger
}

// New builds a Planner.
func New(client llm.CompletionClient, search Searcher, prompts PromptStore, params llm.GenerationParams, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{client: client, search: search, prompts: prompts, params: params, logger: logger}
}

// GenerateFixPlan builds a remediation plan for an unhealthy endpoint. The
// completion is attempted once; an unparseable response degrades to a stub
// plan rather than failing, so the remediation loop keeps its failure
// accounting moving.
func (p *Planner) GenerateFixPlan(ctx context.Context, ep models.EndpointRecord, status models.HealthStatus, failureCount int) (models.Plan, error) {
	query := fmt.Sprintf("server problem: %s, server type: %s", status.Message, ep.ConnectionType)
	knowledge, err := p.retrieveKnowledge(ctx, query, 5)
	if err != nil {
		return models.Plan{}, err
	}

	tpl, err := p.prompts.GetPrompt(ctx, "fix_plan")
	if err != nil {
		return models.Plan{}, p.wrapPromptErr("fix_plan", err)
	}

	details, err := json.MarshalIndent(status.Details, "", "  ")
	if err != nil {
		details = []byte("{}")
	}
	prompt, err := renderTemplate(tpl.PromptTemplate, map[string]any{
		"ServerID":     ep.ID,
		"ServerType":   string(ep.ConnectionType),
		"ProblemDesc":  status.Message,
		"Details":      string(details),
		"FailureCount": failureCount,
		"Knowledge":    knowledge,
	})
	if err != nil {
		return models.Plan{}, fmt.Errorf("render fix_plan prompt: %w", err)
	}

	content, err := p.client.Complete(ctx, tpl.SystemMessage, prompt, p.params)
	if err != nil {
		return models.Plan{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	var plan models.Plan
	if err := parseJSONResponse(content, &plan); err != nil || len(plan.Commands) == 0 {
		p.logger.Warn("fix plan response unparseable, using degraded plan",
			"endpoint", ep.ID, "error", err)
		return degradedFixPlan(), nil
	}
	return plan, nil
}

// GenerateShellCommand turns a natural-language description into a single
// shell command for the given system type.
func (p *Planner) GenerateShellCommand(ctx context.Context, systemType, description string) (models.ShellCommand, error) {
	query := fmt.Sprintf("system type: %s, command: %s", systemType, description)
	knowledge, err := p.retrieveKnowledge(ctx, query, 3)
	if err != nil {
		return models.ShellCommand{}, err
	}

	tpl, err := p.prompts.GetPrompt(ctx, "shell_command")
	if err != nil {
		return models.ShellCommand{}, p.wrapPromptErr("shell_command", err)
	}

	system, err := renderTemplate(tpl.SystemMessage, map[string]any{"SystemType": systemType})
	if err != nil {
		return models.ShellCommand{}, fmt.Errorf("render shell_command system message: %w", err)
	}
	prompt, err := renderTemplate(tpl.PromptTemplate, map[string]any{
		"SystemType":  systemType,
		"Description": description,
		"Knowledge":   knowledge,
	})
	if err != nil {
		return models.ShellCommand{}, fmt.Errorf("render shell_command prompt: %w", err)
	}

	content, err := p.client.Complete(ctx, system, prompt, p.params)
	if err != nil {
		return models.ShellCommand{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	var cmd models.ShellCommand
	if err := parseJSONResponse(content, &cmd); err != nil || cmd.Command == "" {
		p.logger.Warn("shell command response unparseable, using degraded command", "error", err)
		return degradedShellCommand(), nil
	}
	return cmd, nil
}

// GenerateTaskPlan plans a fleet task: which endpoints to touch and what to
// run on them.
func (p *Planner) GenerateTaskPlan(ctx context.Context, description string, endpoints []models.EndpointRecord) (models.TaskPlan, error) {
	query := fmt.Sprintf("operations task: %s", description)
	knowledge, err := p.retrieveKnowledge(ctx, query, 5)
	if err != nil {
		return models.TaskPlan{}, err
	}

	tpl, err := p.prompts.GetPrompt(ctx, "task_plan")
	if err != nil {
		return models.TaskPlan{}, p.wrapPromptErr("task_plan", err)
	}

	type epSummary struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Address string `json:"address"`
		Type    string `json:"type"`
	}
	summaries := make([]epSummary, 0, len(endpoints))
	for _, ep := range endpoints {
		summaries = append(summaries, epSummary{
			ID:      ep.ID,
			Name:    ep.DisplayName(),
			Address: ep.Address,
			Type:    string(ep.ConnectionType),
		})
	}
	available, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return models.TaskPlan{}, fmt.Errorf("encode endpoint summaries: %w", err)
	}

	prompt, err := renderTemplate(tpl.PromptTemplate, map[string]any{
		"TaskDescription":    description,
		"AvailableEndpoints": string(available),
		"Knowledge":          knowledge,
	})
	if err != nil {
		return models.TaskPlan{}, fmt.Errorf("render task_plan prompt: %w", err)
	}

	content, err := p.client.Complete(ctx, tpl.SystemMessage, prompt, p.params)
	if err != nil {
		return models.TaskPlan{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	var plan models.TaskPlan
	if err := parseJSONResponse(content, &plan); err != nil {
		p.logger.Warn("task plan response unparseable, using degraded plan", "error", err)
		return degradedTaskPlan(), nil
	}
	return plan, nil
}

func (p *Planner) retrieveKnowledge(ctx context.Context, query string, limit int) (string, error) {
	docs, err := p.search.Search(ctx, query, limit)
	if err != nil {
		return "", fmt.Errorf("retrieve knowledge: %w", err)
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, " "), nil
}

func (p *Planner) wrapPromptErr(name string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return fmt.Errorf("load prompt %s: %w", name, err)
}

func renderTemplate(text string, data map[string]any) (string, error) {
	tpl, err := template.New("prompt").Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := tpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

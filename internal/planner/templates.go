package planner

import (
	"context"
	"fmt"

	"github.com/ariesstack/aries-engine/internal/storage"
)

// SeedTemplates installs the default prompt templates, skipping any the
// operator has already customised.
func SeedTemplates(ctx context.Context, store PromptStore) error {
	defaults := []storage.PromptTemplate{
		{
			Name: "fix_plan",
			SystemMessage: `You are an experienced systems operations engineer responsible for
diagnosing and repairing server problems. Using the provided server status
and problem description, produce a remediation plan with concrete commands.
Respond in JSON with these fields:
1. diagnosis: what is wrong
2. commands: ordered list of remediation commands
3. explanation: why this plan should work`,
			PromptTemplate: `## Server
ID: {{.ServerID}}
Type: {{.ServerType}}

## Problem
{{.ProblemDesc}}

## Status details
{{.Details}}

## Consecutive failures so far
{{.FailureCount}}

## Relevant knowledge
{{.Knowledge}}

Produce a remediation plan with concrete commands.`,
			Description: "Remediation plan generation for unhealthy endpoints",
		},
		{
			Name: "shell_command",
			SystemMessage: `You are a {{.SystemType}} expert fluent in shell commands. Generate one
accurate shell command from the user's description. Respond in JSON with
these fields:
1. command: the complete shell command
2. explanation: what the command does`,
			PromptTemplate: `## System type
{{.SystemType}}

## Command description
{{.Description}}

## Relevant knowledge
{{.Knowledge}}

Generate one accurate shell command.`,
			Description: "Single shell command generation",
		},
		{
			Name: "task_plan",
			SystemMessage: `You are an experienced systems operations engineer planning fleet tasks.
Using the task description and the available endpoints, produce an
execution plan. Respond in JSON with these fields:
1. target_endpoints: list of endpoint IDs to run on
2. commands: ordered list of commands
3. explanation: what the plan does`,
			PromptTemplate: `## Task
{{.TaskDescription}}

## Available endpoints
{{.AvailableEndpoints}}

## Relevant knowledge
{{.Knowledge}}

Produce an execution plan naming target endpoints and commands.`,
			Description: "Fleet task plan generation",
		},
	}

	for _, tpl := range defaults {
		exists, err := store.HasPrompt(ctx, tpl.Name)
		if err != nil {
			return fmt.Errorf("check prompt %s: %w", tpl.Name, err)
		}
		if exists {
			continue
		}
		if err := store.UpsertPrompt(ctx, tpl); err != nil {
			return fmt.Errorf("seed prompt %s: %w", tpl.Name, err)
		}
	}
	return nil
}

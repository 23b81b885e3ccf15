package agent

import (
	"context"
	"fmt"

	"github.com/ariesstack/aries-engine/internal/models"
)

// ExecuteTask plans a fleet task from a natural-language description and
// runs it on the planned endpoints. Unknown target IDs are reported as
// failed results rather than aborting the rest of the task.
func (a *Agent) ExecuteTask(ctx context.Context, description string) (models.TaskPlan, map[string]models.TaskResult, error) {
	plan, err := a.planner.GenerateTaskPlan(ctx, description, a.endpoints)
	if err != nil {
		return models.TaskPlan{}, nil, fmt.Errorf("plan task: %w", err)
	}

	byID := make(map[string]models.EndpointRecord, len(a.endpoints))
	for _, ep := range a.endpoints {
		byID[ep.ID] = ep
	}

	results := make(map[string]models.TaskResult, len(plan.TargetEndpoints))
	for _, id := range plan.TargetEndpoints {
		ep, ok := byID[id]
		if !ok {
			results[id] = models.TaskResult{Succeeded: false, Error: "unknown endpoint"}
			continue
		}
		results[id] = a.runCommands(ctx, ep, plan.Commands)
	}
	return plan, results, nil
}

// ExecuteShell generates a single command from a description and runs it on
// the named endpoint.
func (a *Agent) ExecuteShell(ctx context.Context, endpointID, description string) (models.ShellCommand, models.CommandResult, error) {
	var target *models.EndpointRecord
	for i := range a.endpoints {
		if a.endpoints[i].ID == endpointID {
			target = &a.endpoints[i]
			break
		}
	}
	if target == nil {
		return models.ShellCommand{}, models.CommandResult{}, fmt.Errorf("unknown endpoint %q", endpointID)
	}

	systemType := "linux"
	if target.ConnectionType == models.TransportSerial {
		systemType = "network device"
	}
	cmd, err := a.planner.GenerateShellCommand(ctx, systemType, description)
	if err != nil {
		return models.ShellCommand{}, models.CommandResult{}, fmt.Errorf("generate command: %w", err)
	}

	res := a.runCommands(ctx, *target, []string{cmd.Command})
	if !res.Succeeded {
		return cmd, models.CommandResult{}, fmt.Errorf("execute on %s: %s", endpointID, res.Error)
	}
	return cmd, res.Results[0], nil
}

// runCommands opens one session and executes the commands in order,
// collecting outputs. Execution continues past individual command errors;
// the result records the first error seen.
func (a *Agent) runCommands(ctx context.Context, ep models.EndpointRecord, commands []string) models.TaskResult {
	conn, err := a.factory(ep)
	if err != nil {
		return models.TaskResult{Succeeded: false, Error: err.Error()}
	}

	connectCtx, cancel := context.WithTimeout(ctx, a.cfg.ConnectTimeout)
	err = conn.Connect(connectCtx)
	cancel()
	if err != nil {
		return models.TaskResult{Succeeded: false, Error: err.Error()}
	}
	defer conn.Disconnect()

	result := models.TaskResult{Succeeded: true}
	for _, cmd := range commands {
		execCtx, cancel := context.WithTimeout(ctx, a.cfg.ExecTimeout)
		out, err := conn.Execute(execCtx, cmd)
		cancel()
		if err != nil {
			result.Succeeded = false
			if result.Error == "" {
				result.Error = fmt.Sprintf("%s: %v", cmd, err)
			}
			continue
		}
		result.Results = append(result.Results, models.CommandResult{Command: cmd, Output: out})
	}
	return result
}

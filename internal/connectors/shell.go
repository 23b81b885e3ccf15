package connectors

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ShellConnector executes commands on the local host through /bin/sh. It
// exists so the engine can manage the machine it runs on with the same loop
// it uses for remote endpoints.
type ShellConnector struct {
	connected bool
}

// NewShellConnector returns a local shell session.
func NewShellConnector() *ShellConnector {
	return &ShellConnector{}
}

// Connect marks the session usable. There is no handshake for a local shell,
// but the connected gate keeps the contract uniform across transports.
func (c *ShellConnector) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.connected = true
	return nil
}

// Execute runs the command via sh -c. A nonzero exit status is surfaced as
// output text so callers see the diagnostic instead of an opaque error.
func (c *ShellConnector) Execute(ctx context.Context, command string) (string, error) {
	if !c.connected {
		return "", ErrNotConnected
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if _, ok := err.(*exec.ExitError); ok {
			if stderr.Len() > 0 {
				return stderr.String(), nil
			}
			if stdout.Len() > 0 {
				return stdout.String(), nil
			}
			return fmt.Sprintf("command exited with error: %v", err), nil
		}
		return "", fmt.Errorf("run %q: %w", command, err)
	}
	return stdout.String(), nil
}

// Disconnect marks the session closed. Safe to call repeatedly.
func (c *ShellConnector) Disconnect() error {
	c.connected = false
	return nil
}

package connectors

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/ariesstack/aries-engine/internal/models"
)

// TelnetConnector drives a line-oriented telnet session for legacy gear that
// exposes no SSH daemon. The login exchange is scripted: read the banner,
// answer the username and password prompts, then treat the session as an
// interactive shell.
type TelnetConnector struct {
	endpoint models.EndpointRecord
	conn     net.Conn

	// settle is how long to wait after writing a command before draining
	// output. Tests shorten it.
	settle time.Duration
}

// NewTelnetConnector prepares a telnet session for the endpoint.
func NewTelnetConnector(ep models.EndpointRecord) *TelnetConnector {
	return &TelnetConnector{endpoint: ep, settle: time.Second}
}

// Connect dials the endpoint and walks the login prompts.
func (c *TelnetConnector) Connect(ctx context.Context) error {
	port := c.endpoint.Port
	if port == 0 {
		port = 23
	}
	addr := net.JoinHostPort(c.endpoint.Address, fmt.Sprintf("%d", port))

	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	if err := c.login(ctx, conn); err != nil {
		conn.Close()
		return err
	}
	c.conn = conn
	return nil
}

func (c *TelnetConnector) login(ctx context.Context, conn net.Conn) error {
	banner, err := readChunk(ctx, conn)
	if err != nil {
		return fmt.Errorf("read banner: %w", err)
	}

	lower := strings.ToLower(banner)
	if strings.Contains(lower, "login") || strings.Contains(lower, "username") {
		if _, err := fmt.Fprintf(conn, "%s\n", c.endpoint.Username); err != nil {
			return fmt.Errorf("send username: %w", err)
		}
		next, err := readChunk(ctx, conn)
		if err != nil {
			return fmt.Errorf("read password prompt: %w", err)
		}
		lower = strings.ToLower(next)
	}

	if strings.Contains(lower, "password") {
		if _, err := fmt.Fprintf(conn, "%s\n", c.endpoint.Password); err != nil {
			return fmt.Errorf("send password: %w", err)
		}
		final, err := readChunk(ctx, conn)
		if err != nil {
			return fmt.Errorf("read login result: %w", err)
		}
		lower = strings.ToLower(final)
	}

	if strings.Contains(lower, "failed") || strings.Contains(lower, "incorrect") {
		return fmt.Errorf("endpoint %s: telnet login rejected", c.endpoint.ID)
	}
	return nil
}

// Execute writes the command, waits for output to settle, and strips the
// echoed command line and the trailing prompt from the response.
func (c *TelnetConnector) Execute(ctx context.Context, command string) (string, error) {
	if c.conn == nil {
		return "", ErrNotConnected
	}

	if _, err := fmt.Fprintf(c.conn, "%s\n", command); err != nil {
		return "", fmt.Errorf("send command: %w", err)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(c.settle):
	}

	raw, err := readChunk(ctx, c.conn)
	if err != nil {
		return "", fmt.Errorf("read output: %w", err)
	}
	return trimEchoAndPrompt(raw, command), nil
}

// Disconnect closes the session. Safe to call repeatedly.
func (c *TelnetConnector) Disconnect() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// readChunk drains whatever the peer has buffered, honouring the context
// deadline. Telnet devices emit output in bursts rather than framed
// messages, so a short read deadline doubles as an end-of-burst marker.
func readChunk(ctx context.Context, conn net.Conn) (string, error) {
	deadline := time.Now().Add(5 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var sb strings.Builder
	buf := make([]byte, 4096)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return "", err
		}
		n, err := conn.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
			// Subsequent reads only pick up the rest of the burst.
			deadline = time.Now().Add(200 * time.Millisecond)
			continue
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() && sb.Len() > 0 {
				return sb.String(), nil
			}
			if sb.Len() > 0 {
				return sb.String(), nil
			}
			return "", err
		}
	}
}

func trimEchoAndPrompt(raw, command string) string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) == strings.TrimSpace(command) {
		lines = lines[1:]
	}
	if len(lines) > 0 {
		last := strings.TrimSpace(lines[len(lines)-1])
		if strings.HasSuffix(last, "$") || strings.HasSuffix(last, "#") || strings.HasSuffix(last, ">") {
			lines = lines[:len(lines)-1]
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

package connectors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/ariesstack/aries-engine/internal/models"
)

// SSHConnector runs commands on a remote host over SSH. Each Execute opens a
// fresh session on the shared client connection.
type SSHConnector struct {
	endpoint models.EndpointRecord
	client   *ssh.Client
}

// NewSSHConnector prepares an SSH session for the endpoint. No network
// activity happens until Connect.
func NewSSHConnector(ep models.EndpointRecord) *SSHConnector {
	return &SSHConnector{endpoint: ep}
}

// Connect dials the endpoint and authenticates with a private key when
// configured, falling back to password auth.
func (c *SSHConnector) Connect(ctx context.Context) error {
	auth, err := c.authMethods()
	if err != nil {
		return err
	}

	cfg := &ssh.ClientConfig{
		User: c.endpoint.Username,
		Auth: auth,
		// Managed endpoints are provisioned dynamically; host keys are
		// not pinned in the inventory.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         15 * time.Second,
	}

	port := c.endpoint.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(c.endpoint.Address, fmt.Sprintf("%d", port))

	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return fmt.Errorf("ssh handshake %s: %w", addr, err)
	}

	c.client = ssh.NewClient(sshConn, chans, reqs)
	return nil
}

func (c *SSHConnector) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if c.endpoint.KeyFile != "" {
		key, err := os.ReadFile(c.endpoint.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file %s: %w", c.endpoint.KeyFile, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse key file %s: %w", c.endpoint.KeyFile, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if c.endpoint.Password != "" {
		methods = append(methods, ssh.Password(c.endpoint.Password))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("endpoint %s: no ssh credentials configured", c.endpoint.ID)
	}
	return methods, nil
}

// Execute runs one command in its own session and returns combined output.
// A nonzero remote exit status is reported through the output text, not as
// an error, so callers can feed diagnostics back into planning.
func (c *SSHConnector) Execute(ctx context.Context, command string) (string, error) {
	if c.client == nil {
		return "", ErrNotConnected
	}

	session, err := c.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("new session: %w", err)
	}
	defer session.Close()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := session.CombinedOutput(command)
		done <- result{out, err}
	}()

	select {
	case <-ctx.Done():
		session.Close()
		return "", ctx.Err()
	case r := <-done:
		var exitErr *ssh.ExitError
		if r.err != nil {
			if errors.As(r.err, &exitErr) {
				if len(r.out) > 0 {
					return string(r.out), nil
				}
				return fmt.Sprintf("command exited with status %d", exitErr.ExitStatus()), nil
			}
			return "", fmt.Errorf("run %q: %w", command, r.err)
		}
		return string(r.out), nil
	}
}

// Disconnect closes the client connection. Safe to call repeatedly.
func (c *SSHConnector) Disconnect() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

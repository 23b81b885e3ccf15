package connectors

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ariesstack/aries-engine/internal/models"
)

// fakeTelnetServer accepts one session and scripts a login exchange followed
// by a canned command loop.
func fakeTelnetServer(t *testing.T, wantUser, wantPass string, responses map[string]string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)

		conn.Write([]byte("Ubuntu 22.04 LTS\nlogin: "))
		user, _ := r.ReadString('\n')
		if strings.TrimSpace(user) != wantUser {
			conn.Write([]byte("Login failed\n"))
			return
		}
		conn.Write([]byte("Password: "))
		pass, _ := r.ReadString('\n')
		if strings.TrimSpace(pass) != wantPass {
			conn.Write([]byte("Login incorrect\n"))
			return
		}
		conn.Write([]byte("Welcome\nuser@host$ "))

		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.TrimSpace(line)
			resp, ok := responses[cmd]
			if !ok {
				resp = "command not found"
			}
			conn.Write([]byte(cmd + "\r\n" + resp + "\r\nuser@host$ "))
		}
	}()

	return ln.Addr().String()
}

func telnetEndpoint(addr string) models.EndpointRecord {
	host, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portStr)
	return models.EndpointRecord{
		ID:             "tn1",
		Address:        host,
		Port:           port,
		ConnectionType: models.TransportTelnet,
		Username:       "admin",
		Password:       "secret",
	}
}

func TestTelnetLoginAndExecute(t *testing.T) {
	addr := fakeTelnetServer(t, "admin", "secret", map[string]string{
		"uptime": "up 12 days, load average: 0.05",
	})

	c := NewTelnetConnector(telnetEndpoint(addr))
	c.settle = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Disconnect()

	out, err := c.Execute(ctx, "uptime")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "up 12 days") {
		t.Fatalf("unexpected output %q", out)
	}
	if strings.Contains(out, "$") {
		t.Fatalf("prompt not stripped from %q", out)
	}
}

func TestTelnetLoginRejected(t *testing.T) {
	addr := fakeTelnetServer(t, "admin", "secret", nil)

	ep := telnetEndpoint(addr)
	ep.Password = "wrong"
	c := NewTelnetConnector(ep)
	c.settle = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Connect(ctx)
	if err == nil {
		c.Disconnect()
		t.Fatal("expected login rejection")
	}
	if !strings.Contains(err.Error(), "login rejected") {
		t.Fatalf("unexpected error %v", err)
	}
}

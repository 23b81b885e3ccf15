package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ariesstack/aries-engine/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Agent.FailureThreshold != 5 {
		t.Fatalf("unexpected failure threshold %d", cfg.Agent.FailureThreshold)
	}
	if cfg.Agent.Interval != time.Minute {
		t.Fatalf("unexpected interval %v", cfg.Agent.Interval)
	}
	if cfg.Server.Address != ":50051" {
		t.Fatalf("unexpected address %q", cfg.Server.Address)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("agent:\n  failureThreshold: 3\nlogging:\n  level: debug\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ARIES_ENGINE_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Agent.FailureThreshold != 3 {
		t.Fatalf("file value not applied: %d", cfg.Agent.FailureThreshold)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("env override not applied: %q", cfg.Logging.Level)
	}
}

func TestLoadMissingFileIsError(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadEndpoints(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "endpoints.yaml")
	data := []byte(`endpoints:
  - id: web1
    name: Web 1
    address: 10.0.0.1
    connection_type: ssh
    expected_services: [nginx]
  - id: router
    connection_type: serial
    serial_device: /dev/ttyUSB0
    baud_rate: 9600
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write endpoints: %v", err)
	}

	eps, err := LoadEndpoints(path)
	if err != nil {
		t.Fatalf("load endpoints: %v", err)
	}
	if len(eps) != 2 {
		t.Fatalf("expected 2 endpoints, got %d", len(eps))
	}
	if eps[0].ConnectionType != models.TransportSSH || eps[0].ExpectedServices[0] != "nginx" {
		t.Fatalf("unexpected endpoint %+v", eps[0])
	}
	if eps[1].SerialDevice != "/dev/ttyUSB0" || eps[1].BaudRate != 9600 {
		t.Fatalf("unexpected endpoint %+v", eps[1])
	}
}

func TestLoadEndpointsMissingFileIsError(t *testing.T) {
	if _, err := LoadEndpoints("/nonexistent/endpoints.yaml"); err == nil {
		t.Fatal("expected error for missing endpoints file")
	}
}

func TestLoadEndpointsRejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "endpoints.yaml")
	data := []byte("endpoints:\n  - id: web1\n  - id: web1\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write endpoints: %v", err)
	}
	if _, err := LoadEndpoints(path); err == nil {
		t.Fatal("expected error for duplicate endpoint IDs")
	}
}

package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ariesstack/aries-engine/internal/models"
)

const (
	cpuProbeCmd  = `top -bn1 | grep 'Cpu(s)' | awk '{print $2 + $4}'`
	memProbeCmd  = `free -m | awk 'NR==2{printf "%s/%s (%.2f%%)", $3,$2,$3*100/$2 }'`
	diskProbeCmd = `df -h | awk '$NF=="/"{printf "%s/%s (%s)",$3,$2,$5}'`

	gearInterfacesCmd = "show ip interface brief"
	gearUptimeCmd     = "show version | include uptime"
)

// probe checks one endpoint's health. Connection failures yield an unhealthy
// status rather than an error; an unreachable endpoint is the most unhealthy
// state there is.
func (a *Agent) probe(ctx context.Context, ep models.EndpointRecord) models.HealthStatus {
	conn, err := a.factory(ep)
	if err != nil {
		return unhealthy(fmt.Sprintf("connector construction failed: %v", err))
	}

	connectCtx, cancel := context.WithTimeout(ctx, a.cfg.ConnectTimeout)
	err = conn.Connect(connectCtx)
	cancel()
	if err != nil {
		return unhealthy(fmt.Sprintf("connection or check failed: %v", err))
	}
	defer conn.Disconnect()

	exec := func(cmd string) (string, error) {
		execCtx, cancel := context.WithTimeout(ctx, a.cfg.ExecTimeout)
		defer cancel()
		return conn.Execute(execCtx, cmd)
	}

	if ep.ConnectionType == models.TransportSerial {
		return probeGear(exec)
	}
	return probeServer(exec, ep.ExpectedServices)
}

// probeServer collects CPU, memory and disk readings plus the state of any
// expected systemd units. With expected services configured, health means
// every unit is active; without them, health means the three basic metrics
// were readable.
func probeServer(exec func(string) (string, error), expectedServices []string) models.HealthStatus {
	details := make(map[string]any)

	readMetric := func(name, cmd string) bool {
		out, err := exec(cmd)
		out = strings.TrimSpace(out)
		if err != nil || out == "" {
			details[name] = fmt.Sprintf("error fetching %s", name)
			return false
		}
		details[name] = out
		return true
	}

	cpuOK := readMetric("cpu", cpuProbeCmd)
	memOK := readMetric("memory", memProbeCmd)
	diskOK := readMetric("disk", diskProbeCmd)

	services := make(map[string]bool, len(expectedServices))
	for _, svc := range expectedServices {
		out, err := exec(fmt.Sprintf("systemctl is-active %s", svc))
		services[svc] = err == nil && strings.TrimSpace(out) == "active"
	}
	details["services"] = services

	if len(expectedServices) > 0 {
		for _, svc := range expectedServices {
			if !services[svc] {
				return models.HealthStatus{
					Healthy:    false,
					Message:    fmt.Sprintf("expected service %s is not active", svc),
					Details:    details,
					ObservedAt: time.Now(),
				}
			}
		}
		return models.HealthStatus{
			Healthy:    true,
			Message:    "all expected services are active",
			Details:    details,
			ObservedAt: time.Now(),
		}
	}

	if cpuOK && memOK && diskOK {
		return models.HealthStatus{
			Healthy:    true,
			Message:    "basic metrics readable, no expected services configured",
			Details:    details,
			ObservedAt: time.Now(),
		}
	}
	return models.HealthStatus{
		Healthy:    false,
		Message:    "unable to read basic server metrics",
		Details:    details,
		ObservedAt: time.Now(),
	}
}

// probeGear checks a serial-attached network device: interface status is the
// primary signal, uptime a secondary one. A failed uptime read only degrades
// the message; it never flips an otherwise healthy verdict.
func probeGear(exec func(string) (string, error)) models.HealthStatus {
	details := make(map[string]any)

	out, err := exec(gearInterfacesCmd)
	healthy := err == nil && strings.TrimSpace(out) != "" && !looksLikeError(out)
	message := "interface status retrieved"
	if healthy {
		details["interfaces_status"] = truncate(out, 200)
	} else {
		message = fmt.Sprintf("failed to retrieve interface status: %v", firstNonEmpty(errString(err), truncate(out, 200)))
		details["interfaces_status"] = firstNonEmpty(out, "no output or connection failed")
	}

	uptime, uerr := exec(gearUptimeCmd)
	if uerr == nil && strings.TrimSpace(uptime) != "" && !looksLikeError(uptime) {
		details["version_uptime"] = truncate(uptime, 200)
		if !healthy {
			message += " | able to get version/uptime"
		}
	} else {
		details["version_uptime"] = fmt.Sprintf("failed to get version/uptime: %v", firstNonEmpty(errString(uerr), truncate(uptime, 200)))
		if !healthy {
			message += " | also failed to get version/uptime"
		}
	}

	return models.HealthStatus{
		Healthy:    healthy,
		Message:    message,
		Details:    details,
		ObservedAt: time.Now(),
	}
}

func looksLikeError(out string) bool {
	lower := strings.ToLower(out)
	return strings.Contains(lower, "error") || strings.Contains(lower, "failed")
}

func unhealthy(message string) models.HealthStatus {
	return models.HealthStatus{
		Healthy:    false,
		Message:    message,
		Details:    map[string]any{},
		ObservedAt: time.Now(),
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ariesstack/aries-engine/internal/config"
	"github.com/ariesstack/aries-engine/internal/connectors"
	"github.com/ariesstack/aries-engine/internal/metrics"
	"github.com/ariesstack/aries-engine/internal/models"
	"github.com/ariesstack/aries-engine/internal/utils"
)

// Planner generates remediation and task plans for the agent.
type Planner interface {
	GenerateFixPlan(ctx context.Context, ep models.EndpointRecord, status models.HealthStatus, failureCount int) (models.Plan, error)
	GenerateShellCommand(ctx context.Context, systemType, description string) (models.ShellCommand, error)
	GenerateTaskPlan(ctx context.Context, description string, endpoints []models.EndpointRecord) (models.TaskPlan, error)
}

// OutcomeRecorder feeds remediation results back into the knowledge graph.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, problemID, solutionID string, success bool) error
}

// Notifier escalates endpoints the agent cannot repair.
type Notifier interface {
	NotifyFailure(ctx context.Context, ep models.EndpointRecord, status models.HealthStatus, failureCount int) error
}

// Agent runs the closed monitoring and remediation loop over a fixed fleet
// of endpoints.
type Agent struct {
	cfg       config.AgentConfig
	endpoints []models.EndpointRecord
	factory   connectors.Factory
	planner   Planner
	recorder  OutcomeRecorder
	notifier  Notifier
	tracker   *FailureTracker
	latency   *utils.LatencyTracker
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

// New builds an Agent over the given fleet.
func New(cfg config.AgentConfig, endpoints []models.EndpointRecord, factory connectors.Factory,
	planner Planner, recorder OutcomeRecorder, notifier Notifier, logger *slog.Logger) *Agent {
	if factory == nil {
		factory = connectors.ForEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = 30 * time.Second
	}
	return &Agent{
		cfg:       cfg,
		endpoints: endpoints,
		factory:   factory,
		planner:   planner,
		recorder:  recorder,
		notifier:  notifier,
		tracker:   NewFailureTracker(),
		latency:   utils.NewLatencyTracker(512),
		logger:    logger,
	}
}

// Run drives the monitoring loop until the context is cancelled. The first
// tick fires immediately.
func (a *Agent) Run(ctx context.Context) {
	a.logger.Info("agent started",
		"endpoints", len(a.endpoints),
		"interval", a.cfg.Interval,
		"failure_threshold", a.cfg.FailureThreshold)

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	a.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("agent stopped")
			return
		case <-ticker.C:
			a.Tick(ctx)
		}
	}
}

// Tick probes every endpoint once, remediating the unhealthy ones. Endpoints
// still mid-remediation from a previous tick are skipped.
func (a *Agent) Tick(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxConcurrent)

	for _, ep := range a.endpoints {
		if !a.tryAcquire(ep.ID) {
			a.logger.Debug("endpoint busy, skipping", "endpoint", ep.ID)
			continue
		}
		g.Go(func() error {
			defer a.release(ep.ID)
			a.processEndpoint(gctx, ep)
			return nil
		})
	}
	_ = g.Wait()
}

// processEndpoint is one probe-remediate-escalate pass for one endpoint.
func (a *Agent) processEndpoint(ctx context.Context, ep models.EndpointRecord) {
	attemptID := uuid.NewString()
	log := a.logger.With("endpoint", ep.ID, "attempt", attemptID)

	probeStart := time.Now()
	status := a.probe(ctx, ep)
	if status.Healthy {
		metrics.ObserveProbe(time.Since(probeStart), metrics.OutcomeSuccess)
		a.tracker.Reset(ep.ID)
		log.Debug("endpoint healthy", "message", status.Message)
		return
	}
	metrics.ObserveProbe(time.Since(probeStart), metrics.OutcomeFailure)

	count := a.tracker.Increment(ep.ID)
	log.Warn("endpoint unhealthy", "message", status.Message, "failures", count)

	fixed := a.remediate(ctx, ep, status, count, log)

	if !fixed && count >= a.cfg.FailureThreshold {
		if err := a.notifier.NotifyFailure(ctx, ep, status, count); err != nil {
			log.Error("escalation webhook failed", "error", err)
		} else {
			metrics.IncEscalation()
			log.Error("endpoint not auto-repairable, escalated", "failures", count)
		}
	}
}

// remediate generates and executes a fix plan, re-probes, and records the
// outcome. Returns whether the endpoint came back healthy.
func (a *Agent) remediate(ctx context.Context, ep models.EndpointRecord, status models.HealthStatus, failureCount int, log *slog.Logger) bool {
	start := time.Now()

	plan, err := a.planner.GenerateFixPlan(ctx, ep, status, failureCount)
	if err != nil {
		metrics.ObserveRemediation(time.Since(start), metrics.OutcomeError)
		log.Error("fix plan generation failed", "error", err)
		return false
	}
	log.Info("fix plan generated",
		"diagnosis", plan.Diagnosis,
		"commands", len(plan.Commands),
		"degraded", plan.Degraded)

	a.executeCommands(ctx, ep, plan.Commands, log)

	newStatus := a.probe(ctx, ep)
	fixed := newStatus.Healthy

	outcome := metrics.OutcomeFailure
	if fixed {
		outcome = metrics.OutcomeSuccess
	}
	duration := time.Since(start)
	metrics.ObserveRemediation(duration, outcome)
	a.latency.Observe(duration)

	problemID := inferProblem(status)
	solutionID := inferSolution(plan)
	if err := a.recorder.RecordOutcome(ctx, problemID, solutionID, fixed); err != nil {
		log.Error("recording remediation outcome failed",
			"problem", problemID, "solution", solutionID, "error", err)
	}

	if fixed {
		log.Info("endpoint repaired", "problem", problemID, "solution", solutionID)
	} else {
		log.Warn("remediation did not restore endpoint", "problem", problemID, "solution", solutionID)
	}
	return fixed
}

// executeCommands runs the plan's commands in order over a single session.
// A failing command is logged and the rest still run; partial remediation
// beats none, and the re-probe decides success.
func (a *Agent) executeCommands(ctx context.Context, ep models.EndpointRecord, commands []string, log *slog.Logger) {
	if len(commands) == 0 {
		return
	}

	conn, err := a.factory(ep)
	if err != nil {
		log.Error("connector construction failed", "error", err)
		return
	}

	connectCtx, cancel := context.WithTimeout(ctx, a.cfg.ConnectTimeout)
	err = conn.Connect(connectCtx)
	cancel()
	if err != nil {
		log.Error("connect for remediation failed", "error", err)
		return
	}
	defer conn.Disconnect()

	for _, cmd := range commands {
		execCtx, cancel := context.WithTimeout(ctx, a.cfg.ExecTimeout)
		out, err := conn.Execute(execCtx, cmd)
		cancel()
		if err != nil {
			log.Error("remediation command failed", "command", cmd, "error", err)
			continue
		}
		log.Info("remediation command executed", "command", cmd, "output", truncate(out, 200))
	}
}

// RemediationLatency reports a percentile over recent remediation durations.
func (a *Agent) RemediationLatency(p float64) time.Duration {
	return a.latency.Percentile(p)
}

// FailureCount exposes an endpoint's consecutive failure count.
func (a *Agent) FailureCount(endpointID string) int {
	return a.tracker.Count(endpointID)
}

// Endpoints returns the fleet the agent manages.
func (a *Agent) Endpoints() []models.EndpointRecord {
	out := make([]models.EndpointRecord, len(a.endpoints))
	copy(out, a.endpoints)
	return out
}

func (a *Agent) tryAcquire(endpointID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inflight == nil {
		a.inflight = make(map[string]bool)
	}
	if a.inflight[endpointID] {
		return false
	}
	a.inflight[endpointID] = true
	return true
}

func (a *Agent) release(endpointID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.inflight, endpointID)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

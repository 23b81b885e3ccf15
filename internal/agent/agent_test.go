package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ariesstack/aries-engine/internal/config"
	"github.com/ariesstack/aries-engine/internal/connectors"
	"github.com/ariesstack/aries-engine/internal/models"
)

// fakeHost simulates one endpoint's operating system: service state plus a
// command log. Connectors built for it execute against this shared state.
type fakeHost struct {
	mu           sync.Mutex
	serviceUp    bool
	metricsFail  bool
	executed     []string
	connectErr   error
	restartHeals bool
}

func (h *fakeHost) exec(cmd string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.executed = append(h.executed, cmd)

	switch {
	case strings.HasPrefix(cmd, "top "):
		if h.metricsFail {
			return "", nil
		}
		return "12.5\n", nil
	case strings.HasPrefix(cmd, "free "):
		if h.metricsFail {
			return "", nil
		}
		return "1024/4096 (25.00%)", nil
	case strings.HasPrefix(cmd, "df "):
		if h.metricsFail {
			return "", nil
		}
		return "20G/100G (20%)", nil
	case strings.HasPrefix(cmd, "systemctl is-active"):
		if h.serviceUp {
			return "active\n", nil
		}
		return "inactive\n", nil
	case strings.HasPrefix(cmd, "systemctl restart"):
		if h.restartHeals {
			h.serviceUp = true
		}
		return "", nil
	default:
		return "ok", nil
	}
}

func (h *fakeHost) commands() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.executed))
	copy(out, h.executed)
	return out
}

type fakeConn struct {
	host      *fakeHost
	connected bool
}

func (c *fakeConn) Connect(context.Context) error {
	if c.host.connectErr != nil {
		return c.host.connectErr
	}
	c.connected = true
	return nil
}

func (c *fakeConn) Execute(_ context.Context, cmd string) (string, error) {
	if !c.connected {
		return "", connectors.ErrNotConnected
	}
	return c.host.exec(cmd)
}

func (c *fakeConn) Disconnect() error {
	c.connected = false
	return nil
}

type fakePlanner struct {
	plan    models.Plan
	planErr error
	shell   models.ShellCommand
	task    models.TaskPlan

	mu        sync.Mutex
	fixCalls  int
	lastCount int
}

func (p *fakePlanner) GenerateFixPlan(_ context.Context, _ models.EndpointRecord, _ models.HealthStatus, failureCount int) (models.Plan, error) {
	p.mu.Lock()
	p.fixCalls++
	p.lastCount = failureCount
	p.mu.Unlock()
	return p.plan, p.planErr
}

func (p *fakePlanner) GenerateShellCommand(context.Context, string, string) (models.ShellCommand, error) {
	return p.shell, nil
}

func (p *fakePlanner) GenerateTaskPlan(context.Context, string, []models.EndpointRecord) (models.TaskPlan, error) {
	return p.task, nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	problems []string
	sols     []string
	outcomes []bool
}

func (r *fakeRecorder) RecordOutcome(_ context.Context, problemID, solutionID string, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.problems = append(r.problems, problemID)
	r.sols = append(r.sols, solutionID)
	r.outcomes = append(r.outcomes, success)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	calls  int
	counts []int
	err    error
}

func (n *fakeNotifier) NotifyFailure(_ context.Context, _ models.EndpointRecord, _ models.HealthStatus, failureCount int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.counts = append(n.counts, failureCount)
	return n.err
}

func webEndpoint() models.EndpointRecord {
	return models.EndpointRecord{
		ID:               "web1",
		Name:             "Web 1",
		Address:          "10.0.0.1",
		ConnectionType:   models.TransportSSH,
		ExpectedServices: []string{"nginx"},
	}
}

func newTestAgent(host *fakeHost, planner *fakePlanner, recorder *fakeRecorder, notifier *fakeNotifier) *Agent {
	cfg := config.AgentConfig{
		Interval:         time.Minute,
		FailureThreshold: 5,
		MaxConcurrent:    4,
		ConnectTimeout:   time.Second,
		ExecTimeout:      time.Second,
	}
	factory := func(models.EndpointRecord) (connectors.Connector, error) {
		return &fakeConn{host: host}, nil
	}
	return New(cfg, []models.EndpointRecord{webEndpoint()}, factory, planner, recorder, notifier, nil)
}

func TestHealthyProbeResetsCounter(t *testing.T) {
	host := &fakeHost{serviceUp: true}
	planner := &fakePlanner{}
	agent := newTestAgent(host, planner, &fakeRecorder{}, &fakeNotifier{})
	agent.tracker.counts["web1"] = 3

	agent.Tick(context.Background())

	if got := agent.FailureCount("web1"); got != 0 {
		t.Fatalf("expected counter reset, got %d", got)
	}
	if planner.fixCalls != 0 {
		t.Fatal("healthy endpoint should not trigger planning")
	}
}

func TestEscalationAtThreshold(t *testing.T) {
	host := &fakeHost{serviceUp: false, restartHeals: false}
	planner := &fakePlanner{plan: models.Plan{
		Diagnosis: "nginx down",
		Commands:  []string{"systemctl restart nginx"},
	}}
	notifier := &fakeNotifier{}
	agent := newTestAgent(host, planner, &fakeRecorder{}, notifier)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		agent.Tick(ctx)
	}

	if notifier.calls != 2 {
		t.Fatalf("expected escalations on ticks 5 and 6, got %d", notifier.calls)
	}
	if notifier.counts[0] != 5 || notifier.counts[1] != 6 {
		t.Fatalf("unexpected escalation counts %v", notifier.counts)
	}
	if agent.FailureCount("web1") != 6 {
		t.Fatalf("counter should keep climbing while unhealthy, got %d", agent.FailureCount("web1"))
	}
}

func TestSuccessfulRemediationKeepsCounterUntilHealthyProbe(t *testing.T) {
	host := &fakeHost{serviceUp: false, restartHeals: true}
	planner := &fakePlanner{plan: models.Plan{
		Commands: []string{"systemctl restart nginx"},
	}}
	recorder := &fakeRecorder{}
	notifier := &fakeNotifier{}
	agent := newTestAgent(host, planner, recorder, notifier)
	ctx := context.Background()

	agent.Tick(ctx)

	// Probe failed, remediation restarted nginx and the re-probe passed.
	// The counter survives until the next scheduled probe sees healthy.
	if got := agent.FailureCount("web1"); got != 1 {
		t.Fatalf("expected counter 1 after remediation, got %d", got)
	}
	if len(recorder.outcomes) != 1 || !recorder.outcomes[0] {
		t.Fatalf("expected one successful outcome, got %v", recorder.outcomes)
	}
	if recorder.problems[0] != "service_down" || recorder.sols[0] != "restart_service" {
		t.Fatalf("unexpected inference %s -> %s", recorder.problems[0], recorder.sols[0])
	}
	if notifier.calls != 0 {
		t.Fatal("no escalation expected below threshold")
	}

	agent.Tick(ctx)
	if got := agent.FailureCount("web1"); got != 0 {
		t.Fatalf("expected counter reset after healthy probe, got %d", got)
	}
}

func TestFailedRemediationRecordsFailure(t *testing.T) {
	host := &fakeHost{serviceUp: false, restartHeals: false}
	planner := &fakePlanner{plan: models.Plan{
		Commands: []string{"systemctl restart nginx"},
	}}
	recorder := &fakeRecorder{}
	agent := newTestAgent(host, planner, recorder, &fakeNotifier{})

	agent.Tick(context.Background())

	if len(recorder.outcomes) != 1 || recorder.outcomes[0] {
		t.Fatalf("expected one failed outcome, got %v", recorder.outcomes)
	}
}

func TestPlanGenerationErrorStillCountsFailure(t *testing.T) {
	host := &fakeHost{serviceUp: false}
	planner := &fakePlanner{planErr: errors.New("backend down")}
	recorder := &fakeRecorder{}
	agent := newTestAgent(host, planner, recorder, &fakeNotifier{})

	agent.Tick(context.Background())

	if agent.FailureCount("web1") != 1 {
		t.Fatalf("expected failure counted, got %d", agent.FailureCount("web1"))
	}
	if len(recorder.outcomes) != 0 {
		t.Fatal("no outcome should be recorded when planning fails")
	}
}

func TestConnectFailureIsUnhealthy(t *testing.T) {
	host := &fakeHost{connectErr: errors.New("connection refused")}
	planner := &fakePlanner{plan: models.Plan{Commands: []string{"uptime"}}}
	agent := newTestAgent(host, planner, &fakeRecorder{}, &fakeNotifier{})

	agent.Tick(context.Background())

	if agent.FailureCount("web1") != 1 {
		t.Fatalf("unreachable endpoint should count as failure, got %d", agent.FailureCount("web1"))
	}
}

func TestBusyEndpointSkipped(t *testing.T) {
	host := &fakeHost{serviceUp: true}
	planner := &fakePlanner{}
	agent := newTestAgent(host, planner, &fakeRecorder{}, &fakeNotifier{})

	if !agent.tryAcquire("web1") {
		t.Fatal("first acquire should succeed")
	}
	before := len(host.commands())
	agent.Tick(context.Background())
	if len(host.commands()) != before {
		t.Fatal("busy endpoint was probed")
	}
	agent.release("web1")

	agent.Tick(context.Background())
	if len(host.commands()) == before {
		t.Fatal("released endpoint was not probed")
	}
}

func TestFixPlanReceivesFailureCount(t *testing.T) {
	host := &fakeHost{serviceUp: false}
	planner := &fakePlanner{plan: models.Plan{Commands: []string{"uptime"}}}
	agent := newTestAgent(host, planner, &fakeRecorder{}, &fakeNotifier{})
	ctx := context.Background()

	agent.Tick(ctx)
	agent.Tick(ctx)
	agent.Tick(ctx)

	if planner.lastCount != 3 {
		t.Fatalf("expected failure count 3 passed to planner, got %d", planner.lastCount)
	}
}

func TestExecuteTask(t *testing.T) {
	host := &fakeHost{serviceUp: true}
	planner := &fakePlanner{task: models.TaskPlan{
		TargetEndpoints: []string{"web1", "ghost"},
		Commands:        []string{"uptime"},
	}}
	agent := newTestAgent(host, planner, &fakeRecorder{}, &fakeNotifier{})

	plan, results, err := agent.ExecuteTask(context.Background(), "check uptime")
	if err != nil {
		t.Fatalf("execute task: %v", err)
	}
	if len(plan.TargetEndpoints) != 2 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if !results["web1"].Succeeded {
		t.Fatalf("web1 should succeed: %+v", results["web1"])
	}
	if results["ghost"].Succeeded || results["ghost"].Error != "unknown endpoint" {
		t.Fatalf("ghost should fail as unknown: %+v", results["ghost"])
	}
}

func TestExecuteShell(t *testing.T) {
	host := &fakeHost{serviceUp: true}
	planner := &fakePlanner{shell: models.ShellCommand{Command: "df -h | awk 'END{print}'", Explanation: "disk usage"}}
	agent := newTestAgent(host, planner, &fakeRecorder{}, &fakeNotifier{})

	cmd, res, err := agent.ExecuteShell(context.Background(), "web1", "show disk usage")
	if err != nil {
		t.Fatalf("execute shell: %v", err)
	}
	if cmd.Command == "" || res.Command != cmd.Command {
		t.Fatalf("unexpected result %+v / %+v", cmd, res)
	}

	if _, _, err := agent.ExecuteShell(context.Background(), "ghost", "anything"); err == nil {
		t.Fatal("expected error for unknown endpoint")
	}
}

func TestCollectSnapshot(t *testing.T) {
	host := &fakeHost{serviceUp: false}
	agent := newTestAgent(host, &fakePlanner{}, &fakeRecorder{}, &fakeNotifier{})
	agent.tracker.counts["web1"] = 2

	snap := agent.CollectSnapshot(context.Background())

	if snap.TotalEndpoints != 1 || snap.UnhealthyCount != 1 || snap.HealthyEndpoints != 0 {
		t.Fatalf("unexpected summary %+v", snap)
	}
	es := snap.Endpoints["web1"]
	if es.FailureCount != 2 {
		t.Fatalf("expected failure count 2, got %d", es.FailureCount)
	}
	if snap.TotalServices != 1 || snap.FailedServices != 1 {
		t.Fatalf("unexpected service counts %+v", snap)
	}
	// Snapshots observe only.
	if agent.FailureCount("web1") != 2 {
		t.Fatal("snapshot mutated failure counter")
	}
}

func TestInferProblem(t *testing.T) {
	cases := []struct {
		message string
		want    string
	}{
		{"expected service nginx is not active", "service_down"},
		{"unable to read basic server metrics", "unknown_problem"},
		{"disk usage at 98%", "disk_full"},
		{"memory pressure detected", "high_memory"},
		{"cpu saturation", "high_cpu"},
		{"connection or check failed: connection refused", "connection_refused"},
		{"failed to retrieve interface status", "network_latency"},
	}
	for _, tc := range cases {
		got := inferProblem(models.HealthStatus{Message: tc.message})
		if got != tc.want {
			t.Fatalf("inferProblem(%q) = %s, want %s", tc.message, got, tc.want)
		}
	}
}

func TestInferSolution(t *testing.T) {
	cases := []struct {
		commands []string
		want     string
	}{
		{[]string{"systemctl restart nginx"}, "restart_service"},
		{[]string{"echo 3 > /proc/sys/vm/drop_caches"}, "clear_cache"},
		{[]string{`find /var/log -name "*.log" -exec truncate -s 0 {} \;`}, "clean_logs"},
		{[]string{"ps aux | grep nginx"}, "check_process"},
		{[]string{"reboot"}, "custom_fix"},
	}
	for _, tc := range cases {
		got := inferSolution(models.Plan{Commands: tc.commands})
		if got != tc.want {
			t.Fatalf("inferSolution(%v) = %s, want %s", tc.commands, got, tc.want)
		}
	}
}

func TestFailureTrackerConcurrency(t *testing.T) {
	tracker := NewFailureTracker()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Increment("ep")
		}()
	}
	wg.Wait()
	if tracker.Count("ep") != 50 {
		t.Fatalf("expected 50, got %d", tracker.Count("ep"))
	}
	tracker.Reset("ep")
	if tracker.Count("ep") != 0 {
		t.Fatal("reset failed")
	}
}

package agent

import "sync"

// FailureTracker counts consecutive unhealthy probes per endpoint. The
// counter only resets when a probe reports healthy; a remediation that
// appears to work still has to survive the next probe.
type FailureTracker struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewFailureTracker returns an empty tracker.
func NewFailureTracker() *FailureTracker {
	return &FailureTracker{counts: make(map[string]int)}
}

// Increment bumps the endpoint's counter and returns the new value.
func (t *FailureTracker) Increment(endpointID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[endpointID]++
	return t.counts[endpointID]
}

// Reset zeroes the endpoint's counter.
func (t *FailureTracker) Reset(endpointID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[endpointID] = 0
}

// Count returns the endpoint's current counter.
func (t *FailureTracker) Count(endpointID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[endpointID]
}

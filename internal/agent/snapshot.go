package agent

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ariesstack/aries-engine/internal/models"
)

// CollectSnapshot probes the whole fleet and returns per-endpoint status
// with summary counts. Snapshots observe only; failure counters are not
// touched.
func (a *Agent) CollectSnapshot(ctx context.Context) models.FleetSnapshot {
	snap := models.FleetSnapshot{
		Endpoints:   make(map[string]models.EndpointSnapshot, len(a.endpoints)),
		CollectedAt: time.Now(),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxConcurrent)

	for _, ep := range a.endpoints {
		g.Go(func() error {
			status := a.probe(gctx, ep)
			mu.Lock()
			snap.Endpoints[ep.ID] = models.EndpointSnapshot{
				Endpoint:     ep,
				Status:       status,
				FailureCount: a.tracker.Count(ep.ID),
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	snap.TotalEndpoints = len(snap.Endpoints)
	for _, es := range snap.Endpoints {
		if es.Status.Healthy {
			snap.HealthyEndpoints++
		} else {
			snap.UnhealthyCount++
		}
		if services, ok := es.Status.Details["services"].(map[string]bool); ok {
			snap.TotalServices += len(services)
			for _, up := range services {
				if !up {
					snap.FailedServices++
				}
			}
		}
	}
	return snap
}

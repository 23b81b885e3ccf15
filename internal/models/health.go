package models

import "time"

// HealthStatus is the outcome of a single health probe. A fresh value is
// created on every probe and never mutated afterwards.
type HealthStatus struct {
	Healthy    bool           `json:"healthy"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	ObservedAt time.Time      `json:"observed_at"`
}

// EndpointSnapshot pairs an endpoint's latest probe result with its failure
// history, for fleet-wide reporting.
type EndpointSnapshot struct {
	Endpoint     EndpointRecord `json:"endpoint"`
	Status       HealthStatus   `json:"status"`
	FailureCount int            `json:"failure_count"`
}

// FleetSnapshot aggregates per-endpoint snapshots with summary counts.
type FleetSnapshot struct {
	Endpoints        map[string]EndpointSnapshot `json:"endpoints"`
	TotalEndpoints   int                         `json:"total_endpoints"`
	HealthyEndpoints int                         `json:"healthy_endpoints"`
	UnhealthyCount   int                         `json:"unhealthy_endpoints"`
	TotalServices    int                         `json:"total_services"`
	FailedServices   int                         `json:"failed_services"`
	CollectedAt      time.Time                   `json:"collected_at"`
}

// Package responses defines API response types used by the read API handlers.
package responses

import (
	"time"

	"git.home.luguber.info/inful/contented/internal/eventstore"
	"git.home.luguber.info/inful/contented/internal/index"
)

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
	Uptime    float64   `json:"uptime"`
}

// PipelinesResponse lists the persisted pipelines.
type PipelinesResponse struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Pipelines   []index.ManifestEntry `json:"pipelines"`
}

// BatchesResponse lists recent build batches, newest first.
type BatchesResponse struct {
	Batches []eventstore.BatchSummary `json:"batches"`
}

// Package responses defines the JSON bodies of the daemon's HTTP API that are
// not already owned by the message router.
package responses

import (
	"time"

	"git.home.luguber.info/inful/contextfocus/internal/eventstore"
)

// HealthStatus represents the overall health of the daemon
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// Worse returns the more severe of s and other.
func (s HealthStatus) Worse(other HealthStatus) HealthStatus {
	rank := func(h HealthStatus) int {
		switch h {
		case HealthStatusHealthy:
			return 0
		case HealthStatusDegraded:
			return 1
		default:
			return 2
		}
	}
	if rank(other) > rank(s) {
		return other
	}
	return s
}

// HealthCheck represents a single health check
type HealthCheck struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status       HealthStatus  `json:"status"`
	Timestamp    time.Time     `json:"timestamp"`
	Uptime       string        `json:"uptime"`
	Version      string        `json:"version"`
	DaemonStatus string        `json:"daemon_status"`
	Checks       []HealthCheck `json:"checks"`
}

// HistoryResponse is the /api/history body, newest session first.
type HistoryResponse struct {
	Sessions []*eventstore.SessionSummary `json:"sessions"`
	LastSync *time.Time                   `json:"last_sync,omitempty"`
}

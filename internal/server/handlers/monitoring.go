package handlers

import (
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/server/responses"
)

// MonitoringHandlers contains monitoring-related HTTP handlers
type MonitoringHandlers struct {
	runtime      Runtime
	errorAdapter *errors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates a new monitoring handlers instance
func NewMonitoringHandlers(runtime Runtime, adapter *errors.HTTPErrorAdapter) *MonitoringHandlers {
	if adapter == nil {
		adapter = errors.NewHTTPErrorAdapter(slog.Default())
	}
	return &MonitoringHandlers{runtime: runtime, errorAdapter: adapter}
}

// HandleHealthCheck answers 200 while the daemon can serve and 503 once a
// check is unhealthy.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		h.errorAdapter.WriteErrorResponse(w, r, methodNotAllowed(r))
		return
	}

	health := h.runtime.Health(r.Context())
	status := http.StatusOK
	if health.Status == responses.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	if err := writeJSON(w, r, status, health); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "encode response").Build())
	}
}

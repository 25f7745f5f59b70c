package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/server/responses"
)

const maxMessageBytes = 1 << 20

// Runtime is the daemon surface the handlers need.
type Runtime interface {
	Message(ctx context.Context, raw []byte) (any, error)
	State(ctx context.Context) (any, error)
	History(limit int) responses.HistoryResponse
	Health(ctx context.Context) *responses.HealthResponse
}

// APIHandlers serves the message, state and history endpoints.
type APIHandlers struct {
	runtime      Runtime
	errorAdapter *errors.HTTPErrorAdapter
}

// NewAPIHandlers creates the API handlers.
func NewAPIHandlers(runtime Runtime, adapter *errors.HTTPErrorAdapter) *APIHandlers {
	if adapter == nil {
		adapter = errors.NewHTTPErrorAdapter(slog.Default())
	}
	return &APIHandlers{runtime: runtime, errorAdapter: adapter}
}

// HandleMessage answers POST /api/messages with the message's response.
func (h *APIHandlers) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.errorAdapter.WriteErrorResponse(w, r, methodNotAllowed(r))
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryValidation, "failed to read message body").Build())
		return
	}

	resp, err := h.runtime.Message(r.Context(), raw)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if err := writeJSON(w, r, http.StatusOK, resp); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "encode response").Build())
	}
}

// HandleState answers GET /api/state.
func (h *APIHandlers) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.errorAdapter.WriteErrorResponse(w, r, methodNotAllowed(r))
		return
	}
	state, err := h.runtime.State(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if err := writeJSON(w, r, http.StatusOK, state); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "encode response").Build())
	}
}

// HandleHistory answers GET /api/history?limit=N.
func (h *APIHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.errorAdapter.WriteErrorResponse(w, r, methodNotAllowed(r))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.errorAdapter.WriteErrorResponse(w, r, errors.ValidationError("limit must be a non-negative integer").
				WithContext("field", "limit").
				WithContext("value", raw).
				Build())
			return
		}
		limit = n
	}

	if err := writeJSON(w, r, http.StatusOK, h.runtime.History(limit)); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "encode response").Build())
	}
}

func methodNotAllowed(r *http.Request) error {
	return errors.ValidationError("method not allowed").
		WithContext("method", r.Method).
		WithContext("path", r.URL.Path).
		Build()
}

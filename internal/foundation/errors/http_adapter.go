package errors

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// requestIDHeader matches the header the server middleware stamps on responses.
const requestIDHeader = "X-Request-ID"

// HTTPErrorAdapter writes classified errors as JSON with a category-derived status.
type HTTPErrorAdapter struct {
	logger *slog.Logger
}

// NewHTTPErrorAdapter returns an adapter logging to logger, or slog.Default when nil.
func NewHTTPErrorAdapter(logger *slog.Logger) *HTTPErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPErrorAdapter{logger: logger}
}

// HTTPErrorResponse is the JSON error body of every API endpoint.
type HTTPErrorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

var statusByCategory = map[ErrorCategory]int{
	CategoryValidation: http.StatusBadRequest,
	CategoryConfig:     http.StatusBadRequest,
	CategoryNotFound:   http.StatusNotFound,
	CategoryRefused:    http.StatusConflict,
	CategoryTransport:  http.StatusBadGateway,
	CategoryTabs:       http.StatusBadGateway,
	CategoryRuntime:    http.StatusServiceUnavailable,
	CategoryDaemon:     http.StatusServiceUnavailable,
}

// StatusCodeFor maps err to a status. Unclassified errors and categories
// without a mapping are 500.
func (a *HTTPErrorAdapter) StatusCodeFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if c, ok := AsClassified(err); ok {
		if status, found := statusByCategory[c.Category()]; found {
			return status
		}
	}
	return http.StatusInternalServerError
}

// WriteErrorResponse writes err as JSON and logs it. Retryable 503s carry a
// Retry-After hint.
func (a *HTTPErrorAdapter) WriteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	status := a.StatusCodeFor(err)
	payload := a.FormatErrorResponse(err)
	payload.RequestID = w.Header().Get(requestIDHeader)

	w.Header().Set("Content-Type", "application/json")
	if payload.Retryable && status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(payload); encErr != nil {
		a.logger.Debug("Failed to write error body", slog.String("error", encErr.Error()))
	}

	// Caller mistakes log at most at warn; server faults always at error.
	level := slog.LevelError
	if status < http.StatusInternalServerError {
		level = slog.LevelWarn
		if c, ok := AsClassified(err); ok {
			level = min(level, slogLevelFromSeverity(c.Severity()))
		}
	}
	a.logger.LogAttrs(r.Context(), level, "Request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("category", payload.Code),
		slog.String("error", err.Error()))
}

// FormatErrorResponse builds the JSON body for err. Unclassified errors are
// reported as internal without leaking their text.
func (a *HTTPErrorAdapter) FormatErrorResponse(err error) HTTPErrorResponse {
	if err == nil {
		return HTTPErrorResponse{}
	}
	c, ok := AsClassified(err)
	if !ok {
		return HTTPErrorResponse{Error: "internal error", Code: string(CategoryInternal)}
	}
	resp := HTTPErrorResponse{
		Error:     c.Message(),
		Code:      string(c.Category()),
		Retryable: c.CanRetry(),
	}
	if len(c.Context()) > 0 {
		resp.Details = map[string]any(c.Context())
	}
	return resp
}

func slogLevelFromSeverity(s ErrorSeverity) slog.Level {
	switch s {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

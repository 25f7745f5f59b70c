package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/contextfocus/internal/eventstore"
	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/server/responses"
)

type stubRuntime struct {
	lastRaw   []byte
	msgResp   any
	msgErr    error
	state     any
	limit     int
	health    responses.HealthStatus
	sessionID string
}

func (s *stubRuntime) Message(_ context.Context, raw []byte) (any, error) {
	s.lastRaw = raw
	return s.msgResp, s.msgErr
}

func (s *stubRuntime) State(context.Context) (any, error) { return s.state, nil }

func (s *stubRuntime) History(limit int) responses.HistoryResponse {
	s.limit = limit
	return responses.HistoryResponse{Sessions: []*eventstore.SessionSummary{{SessionID: s.sessionID, Status: "ended"}}}
}

func (s *stubRuntime) Health(context.Context) *responses.HealthResponse {
	return &responses.HealthResponse{Status: s.health, Timestamp: time.Now(), DaemonStatus: "running"}
}

func TestHandleMessage(t *testing.T) {
	rt := &stubRuntime{msgResp: map[string]bool{"ok": true}}
	h := NewAPIHandlers(rt, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"type":"FORCE_OFF"}`))
	rec := httptest.NewRecorder()
	h.HandleMessage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.JSONEq(t, `{"type":"FORCE_OFF"}`, string(rt.lastRaw))
}

func TestHandleMessage_ErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", errors.ValidationError("unknown message type").Build(), http.StatusBadRequest, "validation"},
		{"daemon", errors.DaemonError("daemon command loop is not running").Build(), http.StatusServiceUnavailable, "daemon"},
		{"storage", errors.StorageError("write failed").Build(), http.StatusInternalServerError, "storage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAPIHandlers(&stubRuntime{msgErr: tt.err}, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"type":"X"}`))
			rec := httptest.NewRecorder()
			h.HandleMessage(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			var body errors.HTTPErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestHandleMessage_RejectsGet(t *testing.T) {
	h := NewAPIHandlers(&stubRuntime{}, nil)
	rec := httptest.NewRecorder()
	h.HandleMessage(rec, httptest.NewRequest(http.MethodGet, "/api/messages", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleState(t *testing.T) {
	h := NewAPIHandlers(&stubRuntime{state: map[string]any{"active": false}}, nil)
	rec := httptest.NewRecorder()
	h.HandleState(rec, httptest.NewRequest(http.MethodGet, "/api/state?pretty=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "\n  \"active\": false")
}

func TestHandleHistory(t *testing.T) {
	rt := &stubRuntime{sessionID: "s-1"}
	h := NewAPIHandlers(rt, nil)

	rec := httptest.NewRecorder()
	h.HandleHistory(rec, httptest.NewRequest(http.MethodGet, "/api/history?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, rt.limit)

	var body responses.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Sessions, 1)
	assert.Equal(t, "s-1", body.Sessions[0].SessionID)

	rec = httptest.NewRecorder()
	h.HandleHistory(rec, httptest.NewRequest(http.MethodGet, "/api/history?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealthCheck(t *testing.T) {
	rt := &stubRuntime{health: responses.HealthStatusDegraded}
	h := NewMonitoringHandlers(rt, nil)

	rec := httptest.NewRecorder()
	h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rt.health = responses.HealthStatusUnhealthy
	rec = httptest.NewRecorder()
	h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthStatusWorse(t *testing.T) {
	assert.Equal(t, responses.HealthStatusDegraded, responses.HealthStatusHealthy.Worse(responses.HealthStatusDegraded))
	assert.Equal(t, responses.HealthStatusUnhealthy, responses.HealthStatusUnhealthy.Worse(responses.HealthStatusDegraded))
	assert.Equal(t, responses.HealthStatusHealthy, responses.HealthStatusHealthy.Worse(responses.HealthStatusHealthy))
}

func TestHandleBlockedPage(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleBlockedPage(rec, httptest.NewRequest(http.MethodGet,
		"/blocked?site=reddit.com&returnUrl="+url.QueryEscape("https://reddit.com/r/go"), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "<code>reddit.com</code>")
	assert.Contains(t, body, `href="https://reddit.com/r/go"`)
}

func TestHandleBlockedPage_DropsUnsafeReturnURL(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleBlockedPage(rec, httptest.NewRequest(http.MethodGet,
		"/blocked?site=%3Cscript%3E&returnUrl="+url.QueryEscape("javascript:alert(1)"), nil))

	body := rec.Body.String()
	assert.NotContains(t, body, "javascript:")
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

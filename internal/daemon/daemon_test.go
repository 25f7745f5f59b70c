package daemon

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/contextfocus/internal/bridge"
	"git.home.luguber.info/inful/contextfocus/internal/config"
	"git.home.luguber.info/inful/contextfocus/internal/kvstore"
	"git.home.luguber.info/inful/contextfocus/internal/monitor"
	"git.home.luguber.info/inful/contextfocus/internal/server/responses"
	"git.home.luguber.info/inful/contextfocus/internal/tabs"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Listen = "127.0.0.1:0"
	cfg.Storage.Backend = kvstore.BackendMemory
	cfg.Storage.Path = ""
	cfg.History.Path = ":memory:"
	return &cfg
}

func startDaemon(t *testing.T, cfg *config.Config, opts Options) *Daemon {
	t.Helper()
	d, err := New(t.Context(), cfg, opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		assert.NoError(t, d.Stop(stopCtx))
		cancel()
		<-done
	})

	require.Eventually(t, func() bool { return d.GetStatus() == StatusRunning }, 5*time.Second, 10*time.Millisecond)
	return d
}

type wsPeer struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialBridge(t *testing.T, addr string) *wsPeer {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &wsPeer{t: t, conn: conn}
}

func (p *wsPeer) send(env map[string]any) {
	p.t.Helper()
	require.NoError(p.t, p.conn.WriteJSON(env))
}

func (p *wsPeer) read() bridge.Envelope {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := p.conn.ReadMessage()
	require.NoError(p.t, err)
	var env bridge.Envelope
	require.NoError(p.t, json.Unmarshal(raw, &env))
	return env
}

// collect reads n frames and groups them by kind.
func (p *wsPeer) collect(n int) map[bridge.Kind]bridge.Envelope {
	p.t.Helper()
	got := make(map[bridge.Kind]bridge.Envelope, n)
	for range n {
		env := p.read()
		got[env.Kind] = env
	}
	return got
}

func httpGet(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec,noctx // local test server
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestDaemon_FocusSessionEndToEnd(t *testing.T) {
	d := startDaemon(t, testConfig(), Options{})
	base := "http://" + d.Addr()
	peer := dialBridge(t, d.Addr())

	first := peer.read()
	require.Equal(t, bridge.KindBadge, first.Kind)
	assert.Equal(t, tabs.BadgeOff, *first.Badge)

	peer.send(map[string]any{
		"kind":  "tab.activated",
		"tabId": 7,
		"tab":   map[string]any{"id": 7, "url": "https://example.com/", "title": "Example"},
	})

	peer.send(map[string]any{
		"kind":    "message",
		"id":      "t1",
		"message": map[string]any{"type": "TOGGLE_FOCUS"},
	})
	frames := peer.collect(3)
	require.Contains(t, frames, bridge.KindBadge)
	assert.Equal(t, tabs.BadgeOn, *frames[bridge.KindBadge].Badge)
	require.Contains(t, frames, bridge.KindFocusChanged)
	require.Contains(t, frames, bridge.KindReply)
	assert.Equal(t, "t1", frames[bridge.KindReply].ID)
	assert.Equal(t, map[string]any{"active": true}, frames[bridge.KindReply].Reply)

	peer.send(map[string]any{
		"kind":       "navigation.before",
		"navigation": map[string]any{"tabId": 7, "frameId": 0, "url": "https://www.reddit.com/r/golang"},
	})
	nav := peer.read()
	require.Equal(t, bridge.KindTabNavigate, nav.Kind)
	require.NotNil(t, nav.TabID)
	assert.Equal(t, tabs.ID(7), *nav.TabID)
	assert.True(t, strings.HasPrefix(nav.URL, monitor.DefaultBlockedPage+"?site=reddit.com"), nav.URL)

	resp, err := http.Post(base+"/api/messages", "application/json", strings.NewReader(`{"type":"FORCE_OFF"}`)) //nolint:noctx // local test server
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		status, body := httpGet(t, base+"/api/history")
		if status != http.StatusOK {
			return false
		}
		var hist responses.HistoryResponse
		if json.Unmarshal([]byte(body), &hist) != nil || len(hist.Sessions) != 1 {
			return false
		}
		s := hist.Sessions[0]
		return s.Status == "ended" && s.EndReason == "force" && s.BlockedCount == 1
	}, 5*time.Second, 20*time.Millisecond)

	status, body := httpGet(t, base+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	var health responses.HealthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "running", health.DaemonStatus)
	assert.NotEqual(t, responses.HealthStatusUnhealthy, health.Status)

	status, body = httpGet(t, base+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "contextfocus_")

	status, body = httpGet(t, base+"/api/state")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"active":false`)
}

func TestDaemon_StartTwiceFails(t *testing.T) {
	d := startDaemon(t, testConfig(), Options{})
	require.Error(t, d.Start(t.Context()))
}

func TestDaemon_HistoryDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.History.Enabled = false
	d := startDaemon(t, cfg, Options{})

	hist := d.History(10)
	assert.NotNil(t, hist.Sessions)
	assert.Empty(t, hist.Sessions)
	assert.Nil(t, hist.LastSync)
}

func TestDaemon_ReloadConfig(t *testing.T) {
	level := new(slog.LevelVar)
	cfg := testConfig()
	d := startDaemon(t, cfg, Options{LevelVar: level})

	next := *cfg
	next.Logging.Level = config.LogLevelDebug
	next.BlockedPageURL = "https://focus.example/blocked"
	require.NoError(t, d.ReloadConfig(t.Context(), &next))

	assert.Equal(t, slog.LevelDebug, level.Level())
	assert.Equal(t, "https://focus.example/blocked", d.monitor.BlockedPage())

	next.BlockedPageURL = ""
	require.NoError(t, d.ReloadConfig(t.Context(), &next))
	assert.Equal(t, monitor.DefaultBlockedPage, d.monitor.BlockedPage())
}

func TestDaemon_NewRejectsNATSStorageWithoutNATS(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Backend = kvstore.BackendNATS
	_, err := New(t.Context(), cfg, Options{})
	require.Error(t, err)
}

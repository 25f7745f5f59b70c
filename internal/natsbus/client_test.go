package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/contextfocus/internal/bridge"
	ferrors "git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/tabs"
)

type stubHandler struct {
	navs    []tabs.Navigation
	removed []tabs.ID
	reply   any
	err     error
}

func (s *stubHandler) TabActivated(context.Context, tabs.ID, *tabs.Tab) error     { return nil }
func (s *stubHandler) TabUpdated(context.Context, tabs.Tab, tabs.Change) error    { return nil }
func (s *stubHandler) TabsSnapshot(context.Context, []tabs.Tab) error             { return nil }
func (s *stubHandler) TabRemoved(_ context.Context, id tabs.ID) error {
	s.removed = append(s.removed, id)
	return nil
}
func (s *stubHandler) BeforeNavigate(_ context.Context, nav tabs.Navigation) error {
	s.navs = append(s.navs, nav)
	return nil
}
func (s *stubHandler) Message(context.Context, []byte) (any, error) { return s.reply, s.err }

func TestSubject(t *testing.T) {
	assert.Equal(t, "contextfocus.messages", subject("contextfocus", SubjectMessages))
	assert.Equal(t, "a.b.focus.changed", subject("a.b.", SubjectFocusChanged))
	assert.Equal(t, "events", subject("", SubjectEvents))
}

func TestHandleRequest(t *testing.T) {
	h := &stubHandler{reply: map[string]bool{"ok": true}}
	var env bridge.Envelope
	require.NoError(t, json.Unmarshal(HandleRequest(t.Context(), h, []byte(`{"type":"RESET_STATS"}`)), &env))
	assert.Equal(t, bridge.KindReply, env.Kind)
	assert.Equal(t, map[string]any{"ok": true}, env.Reply)
	assert.Empty(t, env.Error)

	h = &stubHandler{err: errors.New("unknown message type")}
	require.NoError(t, json.Unmarshal(HandleRequest(t.Context(), h, []byte(`{}`)), &env))
	assert.Equal(t, "unknown message type", env.Error)
}

func TestHandleEvent(t *testing.T) {
	h := &stubHandler{}
	require.NoError(t, HandleEvent(t.Context(), h,
		[]byte(`{"kind":"navigation.before","navigation":{"tabId":2,"frameId":0,"url":"https://x.com"}}`)))
	require.Len(t, h.navs, 1)
	assert.Equal(t, tabs.ID(2), h.navs[0].TabID)

	require.NoError(t, HandleEvent(t.Context(), h, []byte(`{"kind":"tab.removed","tabId":5}`)))
	assert.Equal(t, []tabs.ID{5}, h.removed)

	err := HandleEvent(t.Context(), h, []byte(`{"kind":"message","message":{"type":"GET_STATE"}}`))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	assert.Error(t, HandleEvent(t.Context(), h, []byte(`nope`)))
}

func TestConnectRequiresURL(t *testing.T) {
	_, err := Connect(Config{})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

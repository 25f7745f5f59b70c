package tabs

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCommander struct {
	navigations map[ID]string
	badges      []Badge
	err         error
}

func (r *recordingCommander) Navigate(_ context.Context, id ID, url string) error {
	if r.err != nil {
		return r.err
	}
	if r.navigations == nil {
		r.navigations = map[ID]string{}
	}
	r.navigations[id] = url
	return nil
}

func (r *recordingCommander) SetBadge(_ context.Context, b Badge) error {
	r.badges = append(r.badges, b)
	return nil
}

func strp(s string) *string { return &s }

func TestRegistry_ReplaceQueryOrdered(t *testing.T) {
	reg := NewRegistry()
	reg.Replace([]Tab{{ID: 3, URL: "c"}, {ID: 1, URL: "a"}, {ID: 2, URL: "b"}})

	all, err := reg.Query(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []ID{1, 2, 3}, []ID{all[0].ID, all[1].ID, all[2].ID})
}

func TestRegistry_ApplyMergesChange(t *testing.T) {
	reg := NewRegistry()
	reg.Upsert(Tab{ID: 7, URL: "https://a.example", Title: "A", Status: StatusLoading})

	got := reg.Apply(Tab{ID: 7}, Change{Status: strp(StatusComplete), Title: strp("B")})
	assert.Equal(t, "https://a.example", got.URL)
	assert.Equal(t, "B", got.Title)
	assert.Equal(t, StatusComplete, got.Status)

	created := reg.Apply(Tab{ID: 8, URL: "https://new.example"}, Change{})
	assert.Equal(t, "https://new.example", created.URL)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_GetMissing(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrTabNotFound))
}

func TestRegistry_Activate(t *testing.T) {
	reg := NewRegistry()
	reg.Replace([]Tab{{ID: 1, WindowID: 1, Active: true}, {ID: 2, WindowID: 1}, {ID: 3, WindowID: 2, Active: true}})
	reg.Activate(2)

	ctx := context.Background()
	t1, _ := reg.Get(ctx, 1)
	t2, _ := reg.Get(ctx, 2)
	t3, _ := reg.Get(ctx, 3)
	assert.False(t, t1.Active)
	assert.True(t, t2.Active)
	assert.True(t, t3.Active)
}

func TestBrowserDriver_Navigate(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()
	reg.Upsert(Tab{ID: 5, URL: "https://youtube.com"})
	cmd := &recordingCommander{}
	d := NewBrowserDriver(reg, cmd)

	require.NoError(t, d.Navigate(ctx, 5, "https://blocked.local/"))
	assert.Equal(t, "https://blocked.local/", cmd.navigations[5])
	tab, err := d.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "https://blocked.local/", tab.URL)

	assert.Error(t, d.Navigate(ctx, 99, "x"), "unknown tab")

	cmd.err = stderrors.New("bridge down")
	assert.Error(t, d.Navigate(ctx, 5, "https://other/"))
}

func TestChangeAndNavigation(t *testing.T) {
	assert.True(t, Change{Status: strp(StatusComplete)}.Complete())
	assert.False(t, Change{Status: strp(StatusLoading)}.Complete())
	assert.True(t, Change{Title: strp("")}.TitleChanged())
	assert.True(t, Navigation{FrameID: 0}.TopFrame())
	assert.False(t, Navigation{FrameID: 3}.TopFrame())
}

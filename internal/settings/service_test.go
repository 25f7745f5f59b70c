package settings

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/contextfocus/internal/kvstore"
)

func newTestService(t *testing.T) (*Service, kvstore.Store) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	clock := func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.Local) }
	return NewService(store, WithClock(clock)), store
}

func TestService_EnsureSeeded_Once(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	require.NoError(t, svc.EnsureSeeded(ctx))
	_, _, err := svc.Update(ctx, Patch{StrictMode: ptr(true)})
	require.NoError(t, err)

	require.NoError(t, svc.EnsureSeeded(ctx))
	s, err := svc.Settings(ctx)
	require.NoError(t, err)
	assert.True(t, s.StrictMode, "seeding must not overwrite existing settings")

	raw, err := store.Get(ctx, KeyStats)
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalMinutes":0,"streakDays":0,"lastActiveDate":null,"sessionsToday":0}`, string(raw))
}

func TestService_SettingsMissingFallsBackToDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	s, err := svc.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
}

func TestService_PartialStoredDocument(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	require.NoError(t, store.Put(ctx, KeySettings, []byte(`{"mode":"manual","workDomains":["corp.example"]}`)))

	s, err := svc.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeManual, s.Mode)
	assert.Equal(t, []string{"corp.example"}, s.WorkDomains)
	assert.Equal(t, DefaultBlockedSites, s.BlockedSites)
	assert.Equal(t, 120, s.DailyGoalMinutes)
}

func TestService_Update_ReturnsBeforeAndAfter(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	require.NoError(t, svc.EnsureSeeded(ctx))

	before, after, err := svc.Update(ctx, Patch{Mode: ptr("off")})
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, before.Mode)
	assert.Equal(t, ModeOff, after.Mode)

	_, _, err = svc.Update(ctx, Patch{Mode: ptr("bogus")})
	require.Error(t, err)
	s, err := svc.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeOff, s.Mode, "failed update must not persist")
}

func TestService_ConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	require.NoError(t, svc.EnsureSeeded(ctx))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.MutateStats(ctx, func(st *Stats) { st.TotalMinutes++ })
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, st.TotalMinutes)
}

func TestService_ResetAndRestore(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	require.NoError(t, svc.EnsureSeeded(ctx))

	_, err := svc.MutateStats(ctx, func(st *Stats) {
		st.TotalMinutes = 300
		st.RecordSession(svc.Now())
	})
	require.NoError(t, err)
	require.NoError(t, svc.ResetStats(ctx))
	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, st)

	_, _, err = svc.Update(ctx, Patch{BlockedSites: ptr([]string{"example.com"})})
	require.NoError(t, err)
	s, err := svc.RestoreDefaultBlocklist(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultBlockedSites, s.BlockedSites)
}

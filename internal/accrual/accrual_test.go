package accrual

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/contextfocus/internal/focus"
	"git.home.luguber.info/inful/contextfocus/internal/kvstore"
	"git.home.luguber.info/inful/contextfocus/internal/settings"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func setup(t *testing.T) (*Accrual, *focus.Machine, *settings.Service, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2026, 6, 1, 23, 30, 0, 0, time.Local)}
	svc := settings.NewService(kvstore.NewMemoryStore(), settings.WithClock(c.Now))
	require.NoError(t, svc.EnsureSeeded(context.Background()))
	m := focus.NewMachine(svc, focus.WithClock(c.Now))
	return New(m, svc, nil, c.Now), m, svc, c
}

func TestMinuteTick_NoSession(t *testing.T) {
	ctx := context.Background()
	a, m, svc, _ := setup(t)

	a.MinuteTick(ctx)

	assert.Zero(t, m.Snapshot().SessionMinutes)
	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.TotalMinutes)
}

func TestMinuteTick_Active(t *testing.T) {
	ctx := context.Background()
	a, m, svc, _ := setup(t)
	m.Activate(ctx, "work", focus.ActivateOptions{})

	a.MinuteTick(ctx)
	a.MinuteTick(ctx)

	s := m.Snapshot()
	assert.Equal(t, 2, s.SessionMinutes)
	assert.Equal(t, 2, s.FocusMinutesToday)
	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalMinutes)
}

func TestHourlyTick_RolloverKeepsSession(t *testing.T) {
	ctx := context.Background()
	a, m, _, c := setup(t)
	m.Activate(ctx, "late night", focus.ActivateOptions{})
	for i := 0; i < 45; i++ {
		a.MinuteTick(ctx)
	}

	a.HourlyTick(ctx)
	assert.Equal(t, 45, m.Snapshot().FocusMinutesToday, "same day keeps today's minutes")

	c.t = c.t.Add(time.Hour)
	a.HourlyTick(ctx)

	s := m.Snapshot()
	assert.True(t, s.Active)
	assert.Zero(t, s.FocusMinutesToday)
	assert.Equal(t, 45, s.SessionMinutes)
}

func TestHourlyTick_NeverActive(t *testing.T) {
	ctx := context.Background()
	a, m, _, _ := setup(t)
	a.HourlyTick(ctx)
	assert.False(t, m.Active())
	assert.Zero(t, m.Snapshot().FocusMinutesToday)
}

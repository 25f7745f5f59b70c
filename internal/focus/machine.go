package focus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/contextfocus/internal/daemon/events"
	"git.home.luguber.info/inful/contextfocus/internal/logfields"
	"git.home.luguber.info/inful/contextfocus/internal/metrics"
	"git.home.luguber.info/inful/contextfocus/internal/settings"
	"git.home.luguber.info/inful/contextfocus/internal/tabs"
)

// StatsStore persists session counters.
type StatsStore interface {
	MutateStats(ctx context.Context, fn func(*settings.Stats)) (settings.Stats, error)
}

// Indicator shows the session state on the extension icon.
type Indicator interface {
	SetBadge(ctx context.Context, badge tabs.Badge) error
}

// Publisher broadcasts transitions. It must not block.
type Publisher interface {
	TryPublish(evt any) int
}

// Sweeper redirects already-open blocked tabs.
type Sweeper interface {
	Sweep(ctx context.Context)
}

// Machine is the focus state machine.
type Machine struct {
	mu       sync.RWMutex
	session  Session
	stats    StatsStore
	badge    Indicator
	pub      Publisher
	sweeper  Sweeper
	recorder metrics.Recorder
	now      func() time.Time
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(m *Machine) { m.now = now } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(m *Machine) { m.recorder = r } }

// WithIndicator sets the badge sink.
func WithIndicator(i Indicator) Option { return func(m *Machine) { m.badge = i } }

// WithPublisher sets the broadcast sink.
func WithPublisher(p Publisher) Option { return func(m *Machine) { m.pub = p } }

// NewMachine creates an inactive machine.
func NewMachine(stats StatsStore, opts ...Option) *Machine {
	m := &Machine{
		session:  Session{Mode: ControlAuto},
		stats:    stats,
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetSweeper wires the tab sweep run after activation. The monitor depends on
// the machine, so it is attached after both exist.
func (m *Machine) SetSweeper(s Sweeper) {
	m.sweeper = s
}

// Snapshot returns a copy of the session.
func (m *Machine) Snapshot() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Clone()
}

// Active reports whether a session is running.
func (m *Machine) Active() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Active
}

// Activate starts a session. It returns false and changes nothing when a
// session is already active.
func (m *Machine) Activate(ctx context.Context, reason string, opts ActivateOptions) bool {
	now := m.now()
	control := opts.Control
	if control == "" {
		control = ControlAuto
	}

	m.mu.Lock()
	if m.session.Active {
		m.mu.Unlock()
		return false
	}
	r := reason
	since := now
	m.session.Active = true
	m.session.Mode = control
	m.session.Reason = &r
	m.session.ActiveSince = &since
	m.session.SessionMinutes = 0
	m.session.WorkTabID = nil
	if opts.WorkTabID != nil {
		id := *opts.WorkTabID
		m.session.WorkTabID = &id
	}
	workTab := m.session.WorkTabID
	m.mu.Unlock()

	if _, err := m.stats.MutateStats(ctx, func(st *settings.Stats) { st.RecordSession(now) }); err != nil {
		slog.Warn("Failed to record session start", logfields.Error(err))
	}
	m.setBadge(ctx, tabs.BadgeOn)

	trigger := opts.Signal
	if trigger == "" {
		trigger = string(control)
	}
	m.recorder.IncTransition(metrics.DirectionOn, trigger)
	m.recorder.SetFocusActive(true)
	m.publish(events.FocusChanged{
		ID:        events.NewID(),
		Active:    true,
		Reason:    reason,
		Mode:      string(control),
		Signal:    opts.Signal,
		WorkTabID: tabIDPtr(workTab),
		At:        now,
	})
	slog.Info("Focus ON",
		logfields.Reason(reason),
		logfields.Mode(string(control)),
		logfields.Signal(opts.Signal))

	if m.sweeper != nil {
		m.sweeper.Sweep(ctx)
	}
	return true
}

// Deactivate ends the session. It returns false when no session is active.
// Minute counters are kept until the next activation or daily rollover.
func (m *Machine) Deactivate(ctx context.Context, reason string) bool {
	now := m.now()

	m.mu.Lock()
	if !m.session.Active {
		m.mu.Unlock()
		return false
	}
	m.session.Active = false
	m.session.ActiveSince = nil
	m.session.WorkTabID = nil
	m.session.Reason = nil
	minutes := m.session.SessionMinutes
	control := m.session.Mode
	m.mu.Unlock()

	m.setBadge(ctx, tabs.BadgeOff)
	m.recorder.IncTransition(metrics.DirectionOff, reason)
	m.recorder.SetFocusActive(false)
	m.recorder.ObserveSessionMinutes(minutes)
	m.publish(events.FocusChanged{
		ID:             events.NewID(),
		Active:         false,
		Reason:         reason,
		Mode:           string(control),
		SessionMinutes: minutes,
		At:             now,
	})
	slog.Info("Focus OFF", logfields.Reason(reason), slog.Int("session_minutes", minutes))
	return true
}

// ToggleResult is the outcome of a manual toggle.
type ToggleResult struct {
	Active  bool `json:"active"`
	Refused bool `json:"refused,omitempty"`
}

// Toggle flips the session. With strict set, an active session is not
// ended and the result is marked refused.
func (m *Machine) Toggle(ctx context.Context, strict bool) ToggleResult {
	if m.Active() {
		if strict {
			slog.Info("Manual toggle refused by strict mode")
			return ToggleResult{Active: true, Refused: true}
		}
		m.Deactivate(ctx, ReasonManual)
		return ToggleResult{Active: m.Active()}
	}
	m.Activate(ctx, ReasonManualOverride, ActivateOptions{Control: ControlManual, Signal: "toggle"})
	return ToggleResult{Active: m.Active()}
}

// ForceOff ends the session regardless of policy.
func (m *Machine) ForceOff(ctx context.Context) bool {
	return m.Deactivate(ctx, ReasonForce)
}

// Tick adds one minute to the session and daily counters when active.
func (m *Machine) Tick() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.Active {
		return false
	}
	m.session.SessionMinutes++
	m.session.FocusMinutesToday++
	return true
}

// ResetToday zeroes the daily minute counter. Active sessions keep running.
func (m *Machine) ResetToday() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.FocusMinutesToday = 0
}

// RefreshIndicator re-sends the badge for the current state.
func (m *Machine) RefreshIndicator(ctx context.Context) {
	if m.Active() {
		m.setBadge(ctx, tabs.BadgeOn)
		return
	}
	m.setBadge(ctx, tabs.BadgeOff)
}

func (m *Machine) setBadge(ctx context.Context, b tabs.Badge) {
	if m.badge == nil {
		return
	}
	if err := m.badge.SetBadge(ctx, b); err != nil {
		slog.Debug("Badge update not delivered", logfields.Error(err))
	}
}

func (m *Machine) publish(evt events.FocusChanged) {
	if m.pub == nil {
		return
	}
	if dropped := m.pub.TryPublish(evt); dropped > 0 {
		m.recorder.IncBroadcastDropped("bus", dropped)
	}
}

func tabIDPtr(id *tabs.ID) *int {
	if id == nil {
		return nil
	}
	v := int(*id)
	return &v
}

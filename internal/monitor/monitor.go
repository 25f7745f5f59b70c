// Package monitor reacts to tab lifecycle and navigation events: it feeds tabs
// to the classifier, starts and ends focus sessions, and redirects tabs that
// open blocked sites while a session is active.
//
// Every handler degrades to doing nothing for the event on failure: missing
// tabs are skipped, unparseable URLs are treated as neither work nor blocked.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/contextfocus/internal/classifier"
	"git.home.luguber.info/inful/contextfocus/internal/daemon/events"
	"git.home.luguber.info/inful/contextfocus/internal/focus"
	"git.home.luguber.info/inful/contextfocus/internal/logfields"
	"git.home.luguber.info/inful/contextfocus/internal/metrics"
	"git.home.luguber.info/inful/contextfocus/internal/settings"
	"git.home.luguber.info/inful/contextfocus/internal/sitematch"
	"git.home.luguber.info/inful/contextfocus/internal/tabs"
)

// Machine is the subset of the focus state machine the monitor drives.
type Machine interface {
	Active() bool
	Snapshot() focus.Session
	Activate(ctx context.Context, reason string, opts focus.ActivateOptions) bool
	Deactivate(ctx context.Context, reason string) bool
}

// SettingsReader loads the current settings.
type SettingsReader interface {
	Settings(ctx context.Context) (settings.Settings, error)
}

// Publisher broadcasts redirects. It must not block.
type Publisher interface {
	TryPublish(evt any) int
}

// Monitor holds the event handlers.
type Monitor struct {
	machine  Machine
	driver   tabs.Driver
	settings SettingsReader
	pub      Publisher
	recorder metrics.Recorder
	now      func() time.Time

	mu          sync.RWMutex
	blockedPage string
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithPublisher sets the redirect event sink.
func WithPublisher(p Publisher) Option { return func(m *Monitor) { m.pub = p } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(m *Monitor) { m.recorder = r } }

// WithBlockedPage sets the redirect target.
func WithBlockedPage(page string) Option { return func(m *Monitor) { m.blockedPage = page } }

// WithClock overrides time.Now for event timestamps.
func WithClock(now func() time.Time) Option { return func(m *Monitor) { m.now = now } }

// New creates a Monitor.
func New(machine Machine, driver tabs.Driver, s SettingsReader, opts ...Option) *Monitor {
	m := &Monitor{
		machine:     machine,
		driver:      driver,
		settings:    s,
		recorder:    metrics.NoopRecorder{},
		now:         time.Now,
		blockedPage: DefaultBlockedPage,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetBlockedPage swaps the redirect target (config reload).
func (m *Monitor) SetBlockedPage(page string) {
	if page == "" {
		page = DefaultBlockedPage
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blockedPage = page
}

// BlockedPage returns the redirect target.
func (m *Monitor) BlockedPage() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blockedPage
}

// OnTabActivated evaluates the newly focused tab.
func (m *Monitor) OnTabActivated(ctx context.Context, id tabs.ID) {
	tab, err := m.driver.Get(ctx, id)
	if err != nil {
		slog.Debug("Activated tab unavailable", logfields.TabID(int(id)), logfields.Error(err))
		return
	}
	m.evaluate(ctx, tab)
}

// OnTabUpdated evaluates tab when it finished loading or its title changed.
func (m *Monitor) OnTabUpdated(ctx context.Context, tab tabs.Tab, change tabs.Change) {
	if !change.Complete() && !change.TitleChanged() {
		return
	}
	m.evaluate(ctx, tab)
}

// OnTabRemoved ends an automatic session when its work tab closed and no
// remaining tab still qualifies as work.
func (m *Monitor) OnTabRemoved(ctx context.Context, id tabs.ID) {
	snap := m.machine.Snapshot()
	if !snap.Active || snap.WorkTabID == nil || *snap.WorkTabID != id {
		return
	}
	s, err := m.settings.Settings(ctx)
	if err != nil {
		slog.Warn("Skipping work tab rescan: settings unavailable", logfields.Error(err))
		return
	}
	if s.Mode != settings.ModeAuto {
		return
	}

	all, err := m.driver.Query(ctx)
	if err != nil {
		slog.Warn("Skipping work tab rescan: tabs unavailable", logfields.Error(err))
		return
	}
	rules := classifier.Rules(s.WorkDomains)
	for _, t := range all {
		if t.ID == id {
			continue
		}
		if classifier.IsWorkContext(t.URL, t.Title, rules) {
			slog.Debug("Work tab closed but another work tab remains", logfields.TabID(int(t.ID)))
			return
		}
	}
	m.machine.Deactivate(ctx, focus.ReasonWorkTabClosed)
}

// OnBeforeNavigate redirects top-frame navigations to blocked sites while a
// session is active.
func (m *Monitor) OnBeforeNavigate(ctx context.Context, nav tabs.Navigation) {
	if !nav.TopFrame() || !m.machine.Active() {
		return
	}
	s, err := m.settings.Settings(ctx)
	if err != nil {
		slog.Warn("Skipping navigation check: settings unavailable", logfields.Error(err))
		return
	}
	if s.Mode == settings.ModeOff {
		return
	}
	if err := m.blockIfListed(ctx, nav.TabID, nav.URL, s.BlockedSites, events.SourceNavigation); err != nil {
		slog.Warn("Redirect failed", logfields.TabID(int(nav.TabID)), logfields.Error(err))
	}
}

// Sweep redirects every open tab that is already on a blocked site.
func (m *Monitor) Sweep(ctx context.Context) {
	if !m.machine.Active() {
		return
	}
	s, err := m.settings.Settings(ctx)
	if err != nil {
		slog.Warn("Skipping sweep: settings unavailable", logfields.Error(err))
		return
	}
	if s.Mode == settings.ModeOff {
		return
	}
	all, err := m.driver.Query(ctx)
	if err != nil {
		slog.Warn("Skipping sweep: tabs unavailable", logfields.Error(err))
		return
	}
	for _, t := range all {
		if t.URL == "" {
			continue
		}
		if err := m.blockIfListed(ctx, t.ID, t.URL, s.BlockedSites, events.SourceSweep); err != nil {
			slog.Debug("Sweep skipped tab", logfields.TabID(int(t.ID)), logfields.Error(err))
		}
	}
}

// ContentSignal is a work-context assertion from the page inspector.
type ContentSignal struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// OnContentSignal starts an automatic session from a DOM-detected label.
// Signals are ignored unless settings mode is auto.
func (m *Monitor) OnContentSignal(ctx context.Context, sig ContentSignal) bool {
	if m.machine.Active() {
		return false
	}
	s, err := m.settings.Settings(ctx)
	if err != nil {
		slog.Warn("Ignoring content signal: settings unavailable", logfields.Error(err))
		return false
	}
	if s.Mode != settings.ModeAuto {
		slog.Debug("Ignoring content signal", logfields.Mode(string(s.Mode)), logfields.Label(sig.Label))
		return false
	}
	reason := sig.Label
	if reason == "" {
		reason = focus.ReasonContentSignal
	}
	v := classifier.FromDOMSignal(sig.Label)
	return m.machine.Activate(ctx, reason, focus.ActivateOptions{
		Control: focus.ControlAuto,
		Signal:  string(v.Signal),
	})
}

// OnModeChanged ends a running session when automatic control is switched off.
func (m *Monitor) OnModeChanged(ctx context.Context, from, to settings.Mode) {
	if from == to {
		return
	}
	slog.Info("Focus mode changed", slog.String("from", string(from)), logfields.Mode(string(to)))
	if to == settings.ModeOff && m.machine.Active() {
		m.machine.Deactivate(ctx, focus.ReasonModeOff)
	}
}

func (m *Monitor) evaluate(ctx context.Context, tab tabs.Tab) {
	if m.machine.Active() {
		return
	}
	s, err := m.settings.Settings(ctx)
	if err != nil {
		slog.Warn("Skipping evaluation: settings unavailable", logfields.Error(err))
		return
	}
	if s.Mode != settings.ModeAuto {
		return
	}
	verdict, ok := classifier.Classify(tab.URL, tab.Title, classifier.Rules(s.WorkDomains))
	if !ok {
		return
	}
	reason := tab.Title
	if reason == "" {
		reason = tab.URL
	}
	slog.Debug("Work context detected",
		logfields.TabID(int(tab.ID)),
		logfields.Signal(string(verdict.Signal)),
		logfields.Label(verdict.Label))
	id := tab.ID
	m.machine.Activate(ctx, reason, focus.ActivateOptions{
		Control:   focus.ControlAuto,
		WorkTabID: &id,
		Signal:    string(verdict.Signal),
	})
}

func (m *Monitor) blockIfListed(ctx context.Context, id tabs.ID, raw string, blocklist []string, source string) error {
	page := m.BlockedPage()
	if isBlockedPage(page, raw) {
		return nil
	}
	host, err := sitematch.Hostname(raw)
	if err != nil {
		return nil
	}
	if !sitematch.IsBlocked(host, blocklist) {
		return nil
	}
	site := sitematch.StripWWW(host)
	if err := m.driver.Navigate(ctx, id, RedirectURL(page, site, raw)); err != nil {
		return err
	}
	m.recorder.IncRedirect(source)
	if m.pub != nil {
		m.pub.TryPublish(events.SiteBlocked{
			ID:     events.NewID(),
			TabID:  int(id),
			Site:   site,
			URL:    raw,
			Source: source,
			At:     m.now(),
		})
	}
	slog.Info("Blocked site", logfields.TabID(int(id)), logfields.Site(site), slog.String("source", source))
	return nil
}

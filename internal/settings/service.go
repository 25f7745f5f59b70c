package settings

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/kvstore"
	"git.home.luguber.info/inful/contextfocus/internal/logfields"
)

// Service owns reads and writes of the settings and stats documents.
// Every read-modify-write runs under one mutex so concurrent callers
// (UI requests, the focus loop) cannot lose updates.
type Service struct {
	store kvstore.Store
	now   func() time.Time
	mu    sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service over store.
func NewService(store kvstore.Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time { return s.now() }

// EnsureSeeded writes default settings and zeroed stats when absent.
// Existing documents are never overwritten.
func (s *Service) EnsureSeeded(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.Get(ctx, KeySettings); err != nil {
		if !isNotFound(err) {
			return err
		}
		if err := s.put(ctx, KeySettings, Defaults()); err != nil {
			return err
		}
		slog.Info("Seeded default settings", logfields.StorageKey(KeySettings))
	}
	if _, err := s.store.Get(ctx, KeyStats); err != nil {
		if !isNotFound(err) {
			return err
		}
		if err := s.put(ctx, KeyStats, Stats{}); err != nil {
			return err
		}
		slog.Info("Seeded empty stats", logfields.StorageKey(KeyStats))
	}
	return nil
}

// Settings returns the stored settings, or defaults when missing.
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadSettings(ctx)
}

// Stats returns the stored stats, or zero stats when missing.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadStats(ctx)
}

// Update merges patch into the stored settings and returns the values
// before and after the merge.
func (s *Service) Update(ctx context.Context, patch Patch) (before, after Settings, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before, err = s.loadSettings(ctx)
	if err != nil {
		return Settings{}, Settings{}, err
	}
	after, err = patch.Apply(before)
	if err != nil {
		return before, before, err
	}
	if err := s.put(ctx, KeySettings, after); err != nil {
		return before, before, err
	}
	return before, after, nil
}

// RestoreDefaultBlocklist resets blockedSites to the default list.
func (s *Service) RestoreDefaultBlocklist(ctx context.Context) (Settings, error) {
	sites := append([]string(nil), DefaultBlockedSites...)
	_, after, err := s.Update(ctx, Patch{BlockedSites: &sites})
	return after, err
}

// MutateStats applies fn to the stored stats and persists the result.
func (s *Service) MutateStats(ctx context.Context, fn func(*Stats)) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	fn(&st)
	if err := s.put(ctx, KeyStats, st); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// ResetStats zeroes every counter.
func (s *Service) ResetStats(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(ctx, KeyStats, Stats{})
}

func (s *Service) loadSettings(ctx context.Context) (Settings, error) {
	out := Defaults()
	raw, err := s.store.Get(ctx, KeySettings)
	if isNotFound(err) {
		return out, nil
	}
	if err != nil {
		return Settings{}, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return Settings{}, errors.WrapError(err, errors.CategoryStorage, "decode settings").
			WithContext("key", KeySettings).
			Build()
	}
	if m, err := ParseMode(string(out.Mode)); err == nil {
		out.Mode = m
	} else {
		slog.Warn("Stored settings carry an unknown mode; using auto", logfields.Mode(string(out.Mode)))
		out.Mode = ModeAuto
	}
	if out.BlockedSites == nil {
		out.BlockedSites = append([]string(nil), DefaultBlockedSites...)
	}
	if out.WorkDomains == nil {
		out.WorkDomains = []string{}
	}
	return out, nil
}

func (s *Service) loadStats(ctx context.Context) (Stats, error) {
	var out Stats
	raw, err := s.store.Get(ctx, KeyStats)
	if isNotFound(err) {
		return out, nil
	}
	if err != nil {
		return Stats{}, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return Stats{}, errors.WrapError(err, errors.CategoryStorage, "decode stats").
			WithContext("key", KeyStats).
			Build()
	}
	return out, nil
}

func (s *Service) put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "encode document").
			WithContext("key", key).
			Build()
	}
	return s.store.Put(ctx, key, raw)
}

func isNotFound(err error) bool {
	return err != nil && stderrors.Is(err, kvstore.ErrNotFound)
}

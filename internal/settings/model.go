// Package settings models the persisted user settings and stats and serializes
// every read-modify-write of them.
package settings

import (
	"strings"
	"time"

	"git.home.luguber.info/inful/contextfocus/internal/foundation"
	"git.home.luguber.info/inful/contextfocus/internal/foundation/normalization"
	"git.home.luguber.info/inful/contextfocus/internal/sitematch"
)

// Storage keys.
const (
	KeySettings = "settings"
	KeyStats    = "stats"
)

// DateLayout is the calendar-day format stored in Stats.LastActiveDate.
const DateLayout = "2006-01-02"

// Mode controls automatic context evaluation.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
	ModeOff    Mode = "off"
)

var modeNormalizer = normalization.NewNormalizer(map[string]Mode{
	"auto":   ModeAuto,
	"manual": ModeManual,
	"off":    ModeOff,
}, ModeAuto)

// ParseMode normalizes a raw mode string.
func ParseMode(raw string) (Mode, error) {
	return modeNormalizer.Parse(raw)
}

// DefaultBlockedSites is the blocklist seeded on first run.
var DefaultBlockedSites = []string{
	"youtube.com",
	"reddit.com",
	"twitter.com",
	"x.com",
	"facebook.com",
	"instagram.com",
	"tiktok.com",
	"netflix.com",
	"twitch.tv",
	"hulu.com",
	"disneyplus.com",
	"9gag.com",
	"buzzfeed.com",
	"tumblr.com",
	"pinterest.com",
}

// MaxDailyGoalMinutes bounds dailyGoalMinutes to one day.
const MaxDailyGoalMinutes = 24 * 60

// Settings is the persisted user configuration.
type Settings struct {
	BlockedSites     []string `json:"blockedSites"`
	WorkDomains      []string `json:"workDomains"`
	Mode             Mode     `json:"mode"`
	StrictMode       bool     `json:"strictMode"`
	ShowMotivation   bool     `json:"showMotivation"`
	DailyGoalMinutes int      `json:"dailyGoalMinutes"`
}

// Defaults returns a fresh default settings value.
func Defaults() Settings {
	return Settings{
		BlockedSites:     append([]string(nil), DefaultBlockedSites...),
		WorkDomains:      []string{},
		Mode:             ModeAuto,
		StrictMode:       false,
		ShowMotivation:   true,
		DailyGoalMinutes: 120,
	}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	c := s
	c.BlockedSites = append([]string(nil), s.BlockedSites...)
	c.WorkDomains = append([]string(nil), s.WorkDomains...)
	return c
}

var settingsValidator = foundation.NewValidatorChain(
	foundation.Field(func(s Settings) Mode { return s.Mode },
		foundation.OneOf("mode", []Mode{ModeAuto, ModeManual, ModeOff})),
	foundation.Field(func(s Settings) int { return s.DailyGoalMinutes },
		foundation.IntRange("dailyGoalMinutes", 0, MaxDailyGoalMinutes)),
)

// Validate checks field ranges.
func (s Settings) Validate() error {
	return settingsValidator.Validate(s).ToError()
}

// Patch is a partial settings update; nil fields are left untouched.
type Patch struct {
	BlockedSites     *[]string `json:"blockedSites,omitempty"`
	WorkDomains      *[]string `json:"workDomains,omitempty"`
	Mode             *string   `json:"mode,omitempty"`
	StrictMode       *bool     `json:"strictMode,omitempty"`
	ShowMotivation   *bool     `json:"showMotivation,omitempty"`
	DailyGoalMinutes *int      `json:"dailyGoalMinutes,omitempty"`
}

// Empty reports whether the patch sets nothing.
func (p Patch) Empty() bool {
	return p.BlockedSites == nil && p.WorkDomains == nil && p.Mode == nil &&
		p.StrictMode == nil && p.ShowMotivation == nil && p.DailyGoalMinutes == nil
}

// Apply merges the patch into s. Domain lists are normalized and deduplicated.
func (p Patch) Apply(s Settings) (Settings, error) {
	out := s.Clone()
	if p.BlockedSites != nil {
		out.BlockedSites = NormalizeDomains(*p.BlockedSites)
	}
	if p.WorkDomains != nil {
		out.WorkDomains = NormalizeWorkDomains(*p.WorkDomains)
	}
	if p.Mode != nil {
		m, err := ParseMode(*p.Mode)
		if err != nil {
			return s, foundation.Invalid(foundation.FieldError{
				Field: "mode", Code: "one_of", Message: err.Error(),
			}).ToError()
		}
		out.Mode = m
	}
	if p.StrictMode != nil {
		out.StrictMode = *p.StrictMode
	}
	if p.ShowMotivation != nil {
		out.ShowMotivation = *p.ShowMotivation
	}
	if p.DailyGoalMinutes != nil {
		out.DailyGoalMinutes = *p.DailyGoalMinutes
	}
	if err := out.Validate(); err != nil {
		return s, err
	}
	return out, nil
}

// NormalizeDomain reduces user input like "https://www.Example.com/path" to
// "example.com". Entries without a dot are rejected.
func NormalizeDomain(raw string) (string, bool) {
	return normalizeEntry(raw, false)
}

// NormalizeWorkDomain is NormalizeDomain but keeps a path prefix, so
// "medium.com/new-story/" becomes "medium.com/new-story" and only matches
// pages under that path.
func NormalizeWorkDomain(raw string) (string, bool) {
	return normalizeEntry(raw, true)
}

func normalizeEntry(raw string, keepPath bool) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.TrimPrefix(v, "https://")
	v = strings.TrimPrefix(v, "http://")
	v = sitematch.StripWWW(v)
	if i := strings.IndexAny(v, "?#"); i >= 0 {
		v = v[:i]
	}
	path := ""
	if i := strings.IndexByte(v, '/'); i >= 0 {
		v, path = v[:i], strings.TrimRight(v[i:], "/")
	}
	if v == "" || !strings.Contains(v, ".") {
		return "", false
	}
	host, err := sitematch.NormalizeHost(v)
	if err != nil {
		return "", false
	}
	if keepPath {
		return host + path, true
	}
	return host, true
}

// NormalizeDomains normalizes blocklist entries to bare hosts, dropping
// invalid ones and duplicates.
func NormalizeDomains(raw []string) []string {
	return normalizeAll(raw, NormalizeDomain)
}

// NormalizeWorkDomains is NormalizeDomains with path prefixes kept.
func NormalizeWorkDomains(raw []string) []string {
	return normalizeAll(raw, NormalizeWorkDomain)
}

func normalizeAll(raw []string, norm func(string) (string, bool)) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		d, ok := norm(r)
		if !ok {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// Stats are the persisted cumulative counters.
type Stats struct {
	TotalMinutes   int     `json:"totalMinutes"`
	StreakDays     int     `json:"streakDays"`
	LastActiveDate *string `json:"lastActiveDate"`
	SessionsToday  int     `json:"sessionsToday"`
}

// RecordSession counts a new session started on day (DateLayout).
// sessionsToday continues on the same day and restarts at 1 otherwise; the
// streak extends when the previous active day was yesterday.
func (s *Stats) RecordSession(day time.Time) {
	today := DateString(day)
	yesterday := DateString(day.AddDate(0, 0, -1))
	switch {
	case s.LastActiveDate != nil && *s.LastActiveDate == today:
		s.SessionsToday++
		if s.StreakDays == 0 {
			s.StreakDays = 1
		}
	case s.LastActiveDate != nil && *s.LastActiveDate == yesterday:
		s.SessionsToday = 1
		s.StreakDays++
	default:
		s.SessionsToday = 1
		s.StreakDays = 1
	}
	s.LastActiveDate = &today
}

// ActiveOn reports whether the last active date equals day.
func (s Stats) ActiveOn(day time.Time) bool {
	return s.LastActiveDate != nil && *s.LastActiveDate == DateString(day)
}

// DateString formats t as a local calendar date.
func DateString(t time.Time) string {
	return t.Format(DateLayout)
}

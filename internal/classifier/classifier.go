// Package classifier decides whether a page signal (URL, title) indicates work.
//
// Two independent signals are checked in order: the hostname against a rule set
// (built-in catalog plus user domains), then the lowercased title against a fixed
// keyword list. DOM-detected labels are resolved elsewhere and arrive pre-classified.
package classifier

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/contextfocus/internal/sitematch"
)

// Rule maps a domain (optionally with a path prefix) to a display label.
type Rule struct {
	Domain string `json:"domain"`
	Label  string `json:"label"`
}

// Signal names which check produced a verdict.
type Signal string

const (
	SignalDomain Signal = "domain"
	SignalTitle  Signal = "title"
	SignalDOM    Signal = "dom"
)

// Verdict describes a positive classification.
type Verdict struct {
	Signal Signal
	// Label is the rule label for domain matches, the keyword for title matches,
	// or the collaborator-supplied label for DOM signals.
	Label string
	Rule  *Rule
}

var lower = cases.Lower(language.Und)

// Rules returns the catalog unioned with custom domains, deduplicated by domain.
// Catalog entries win over custom entries with the same domain.
func Rules(custom []string) []Rule {
	out := make([]Rule, 0, len(Catalog)+len(custom))
	seen := make(map[string]struct{}, len(Catalog)+len(custom))
	add := func(r Rule) {
		key := sitematch.StripWWW(strings.ToLower(strings.TrimSpace(r.Domain)))
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	for _, r := range Catalog {
		add(r)
	}
	for _, d := range custom {
		add(Rule{Domain: d, Label: CustomLabel})
	}
	return out
}

// IsWorkContext reports whether the page counts as work under rules.
func IsWorkContext(rawURL, title string, rules []Rule) bool {
	_, ok := Classify(rawURL, title, rules)
	return ok
}

// Classify runs the domain check, then the title check. An absent, relative
// or unparseable URL is never work, regardless of title. URLs without a host
// (file:, about:, data:) skip the domain check but still reach the title check.
func Classify(rawURL, title string, rules []Rule) (Verdict, bool) {
	if rawURL == "" {
		return Verdict{}, false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return Verdict{}, false
	}
	if u.Hostname() != "" {
		if v, ok := matchDomain(rawURL, u.EscapedPath(), rules); ok {
			return v, true
		}
	}
	if kw, ok := MatchTitle(title); ok {
		return Verdict{Signal: SignalTitle, Label: kw}, true
	}
	return Verdict{}, false
}

func matchDomain(rawURL, path string, rules []Rule) (Verdict, bool) {
	host, err := sitematch.Hostname(rawURL)
	if err != nil {
		return Verdict{}, false
	}
	host = sitematch.StripWWW(host)
	for i := range rules {
		if matchRule(host, path, rules[i]) {
			r := rules[i]
			return Verdict{Signal: SignalDomain, Label: r.Label, Rule: &r}, true
		}
	}
	return Verdict{}, false
}

// MatchTitle returns the first keyword contained in the lowercased title.
func MatchTitle(title string) (string, bool) {
	if title == "" {
		return "", false
	}
	t := lower.String(title)
	for _, kw := range TitleKeywords {
		if strings.Contains(t, kw) {
			return kw, true
		}
	}
	return "", false
}

// FromDOMSignal builds the verdict for a label asserted by the page inspector.
func FromDOMSignal(label string) Verdict {
	return Verdict{Signal: SignalDOM, Label: label}
}

func matchRule(host, path string, r Rule) bool {
	domain := sitematch.StripWWW(strings.ToLower(strings.TrimSpace(r.Domain)))
	if domain == "" {
		return false
	}
	rulePath := ""
	if i := strings.IndexByte(domain, '/'); i >= 0 {
		domain, rulePath = domain[:i], domain[i:]
	}
	if !sitematch.IsBlocked(host, []string{domain}) {
		return false
	}
	if rulePath == "" {
		return true
	}
	return path == rulePath || strings.HasPrefix(path, strings.TrimSuffix(rulePath, "/")+"/")
}

// Package sitematch decides whether a hostname falls under a list of apex domains.
//
// Matching is exact or subdomain-contained: "m.youtube.com" matches "youtube.com",
// "notyoutube.com" does not. Entries carry no wildcards.
package sitematch

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"

	ferrors "git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
)

const wwwPrefix = "www."

// StripWWW removes a single leading "www." label.
func StripWWW(host string) string {
	return strings.TrimPrefix(host, wwwPrefix)
}

// Match reports the first entry that host equals or is a subdomain of.
// The host is www-stripped first; entries are compared as given.
func Match(host string, entries []string) (string, bool) {
	host = StripWWW(host)
	if host == "" {
		return "", false
	}
	for _, entry := range entries {
		if entry == "" {
			continue
		}
		if host == entry || strings.HasSuffix(host, "."+entry) {
			return entry, true
		}
	}
	return "", false
}

// IsBlocked reports whether host belongs to the blocklist.
func IsBlocked(host string, blocklist []string) bool {
	_, ok := Match(host, blocklist)
	return ok
}

// Hostname extracts the lowercased host (without port) from an absolute URL.
// Internationalized hosts are converted to their ASCII form.
func Hostname(rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", ferrors.ValidationError("empty url").Build()
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryValidation, "unparseable url").
			WithContext("url", rawURL).
			Build()
	}
	host := u.Hostname()
	if u.Scheme == "" || host == "" {
		return "", ferrors.ValidationError("url has no host").
			WithContext("url", rawURL).
			Build()
	}
	return NormalizeHost(host)
}

// NormalizeHost lowercases host and maps non-ASCII labels through IDNA lookup rules.
func NormalizeHost(host string) (string, error) {
	host = strings.TrimSuffix(strings.TrimSpace(host), ".")
	if isASCII(host) {
		return strings.ToLower(host), nil
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryValidation, "invalid internationalized hostname").
			WithContext("host", host).
			Build()
	}
	return ascii, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

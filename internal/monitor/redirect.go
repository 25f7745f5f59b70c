package monitor

import (
	"net/url"
	"strings"
)

// DefaultBlockedPage is used when no blocked page is configured.
const DefaultBlockedPage = "http://127.0.0.1:7420/blocked"

// RedirectURL builds "<page>?site=<host>&returnUrl=<original>".
func RedirectURL(page, site, original string) string {
	sep := "?"
	if strings.Contains(page, "?") {
		sep = "&"
	}
	return page + sep + "site=" + url.QueryEscape(site) + "&returnUrl=" + url.QueryEscape(original)
}

// isBlockedPage reports whether raw already points at the blocked page. The
// query and fragment are ignored; sibling paths such as "/blockedfoo" are not
// the blocked page.
func isBlockedPage(page, raw string) bool {
	base := page
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	if base == "" || !strings.HasPrefix(raw, base) {
		return false
	}
	rest := raw[len(base):]
	return rest == "" || rest[0] == '?' || rest[0] == '#'
}

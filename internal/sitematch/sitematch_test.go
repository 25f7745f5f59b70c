package sitematch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBlocked(t *testing.T) {
	blocklist := []string{"youtube.com", "x.com", "twitch.tv"}

	tests := []struct {
		name string
		host string
		want bool
	}{
		{"exact apex", "youtube.com", true},
		{"www stripped", "www.youtube.com", true},
		{"subdomain", "m.youtube.com", true},
		{"deep subdomain", "a.b.twitch.tv", true},
		{"substring without dot boundary", "notyoutube.com", false},
		{"suffix of entry is not a match", "tube.com", false},
		{"single letter apex", "x.com", true},
		{"unrelated", "github.com", false},
		{"empty host", "", false},
		{"only www", "www.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBlocked(tt.host, blocklist))
		})
	}
}

func TestIsBlocked_SubdomainProperty(t *testing.T) {
	entries := []string{"reddit.com", "9gag.com", "disneyplus.com", "x.com"}
	prefixes := []string{"a", "old", "www2", "m.sub"}

	for _, e := range entries {
		for _, p := range prefixes {
			assert.True(t, IsBlocked(p+"."+e, []string{e}), "%s.%s should match %s", p, e, e)
		}
		assert.False(t, IsBlocked("not"+e, []string{e}), "not%s must not match %s", e, e)
	}
}

func TestMatch_ReturnsEntry(t *testing.T) {
	entry, ok := Match("www.old.reddit.com", []string{"youtube.com", "reddit.com"})
	require.True(t, ok)
	assert.Equal(t, "reddit.com", entry)

	_, ok = Match("example.org", []string{"", "reddit.com"})
	assert.False(t, ok)
}

func TestStripWWW_OnlyLeading(t *testing.T) {
	assert.Equal(t, "youtube.com", StripWWW("www.youtube.com"))
	assert.Equal(t, "foowww.bar.com", StripWWW("foowww.bar.com"))
	assert.Equal(t, "www.example.com", StripWWW("www.www.example.com"))
}

func TestHostname(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"simple", "https://www.youtube.com/watch?v=1", "www.youtube.com", false},
		{"port dropped", "http://localhost:8080/x", "localhost", false},
		{"uppercase host", "https://GitHub.COM/org/repo", "github.com", false},
		{"idn host", "https://bücher.de/", "xn--bcher-kva.de", false},
		{"empty", "", "", true},
		{"relative", "/just/a/path", "", true},
		{"garbage", "::not a url::", "", true},
		{"no host", "file:///etc/hosts", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Hostname(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

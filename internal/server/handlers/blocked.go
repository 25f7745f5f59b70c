package handlers

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"git.home.luguber.info/inful/contextfocus/internal/logfields"
)

const blockedHTMLTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Blocked: {{.Site}}</title>
<style>
body { font-family: system-ui, sans-serif; background: #111827; color: #f9fafb; display: flex; align-items: center; justify-content: center; min-height: 100vh; margin: 0; }
main { max-width: 32rem; text-align: center; }
h1 { color: #22c55e; }
code { color: #fca5a5; }
</style>
</head>
<body>
<main>
<h1>Stay focused</h1>
{{if .Site}}<p><code>{{.Site}}</code> is blocked while a focus session is active.</p>{{else}}<p>This site is blocked while a focus session is active.</p>{{end}}
{{if .ReturnURL}}<p>You can open <a href="{{.ReturnURL}}">the page</a> once the session ends.</p>{{end}}
</main>
</body>
</html>`

var blockedTemplate = template.Must(template.New("blocked").Parse(blockedHTMLTemplate))

type blockedPageData struct {
	Site      string
	ReturnURL string
}

// HandleBlockedPage renders the page tabs are redirected to.
func HandleBlockedPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := blockedPageData{Site: q.Get("site")}
	if ret := q.Get("returnUrl"); ret != "" {
		if u, err := url.Parse(ret); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
			data.ReturnURL = u.String()
		}
	}

	var buf bytes.Buffer
	if err := blockedTemplate.Execute(&buf, data); err != nil {
		slog.Error("Failed to render blocked page", logfields.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Debug("Failed to write blocked page", logfields.Error(err))
	}
}

// Package handlers contains the HTTP handlers of the focus daemon API.
package handlers

import (
	"encoding/json"
	"net/http"
)

// writeJSON marshals v before touching w so a marshal failure can still be
// reported as an error response. ?pretty=1 or ?pretty=true indents the body.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) error {
	var (
		body []byte
		err  error
	)
	if wantsPretty(r) {
		body, err = json.MarshalIndent(v, "", "  ")
	} else {
		body, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	// The status line is out; a failed write only means the client left.
	_, _ = w.Write(append(body, '\n'))
	return nil
}

func wantsPretty(r *http.Request) bool {
	if r == nil {
		return false
	}
	switch r.URL.Query().Get("pretty") {
	case "1", "true":
		return true
	}
	return false
}

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/contextfocus/internal/config"
	"git.home.luguber.info/inful/contextfocus/internal/focus"
	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/retry"
	"git.home.luguber.info/inful/contextfocus/internal/router"
	"git.home.luguber.info/inful/contextfocus/internal/server/responses"
)

const clientTimeout = 10 * time.Second

// ClientFlags locate a running daemon.
type ClientFlags struct {
	Addr string `help:"Daemon address (defaults to server.listen from the config file)"`
}

func (f ClientFlags) client(root *CLI) *apiClient {
	addr := f.Addr
	if addr == "" {
		addr = config.Default().Server.Listen
		if _, err := os.Stat(root.Config); err == nil {
			if cfg, err := config.Load(root.Config); err == nil {
				addr = cfg.Server.Listen
			}
		}
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &apiClient{
		base:  strings.TrimRight(addr, "/"),
		http:  &http.Client{Timeout: clientTimeout},
		retry: retry.DefaultPolicy(),
	}
}

type apiClient struct {
	base  string
	http  *http.Client
	retry retry.Policy
}

// idempotent lists the messages that are safe to resend after a timeout.
var idempotent = map[router.Type]bool{
	router.TypeGetState:       true,
	router.TypeForceOff:       true,
	router.TypeGetBlockedList: true,
}

// message posts one runtime message and decodes the reply into out.
func (c *apiClient) message(ctx context.Context, req router.Request, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "encode message").Build()
	}
	send := func(ctx context.Context) error {
		return c.do(ctx, http.MethodPost, "/api/messages", body, out)
	}
	if !idempotent[req.Type] {
		return send(ctx)
	}
	return c.retry.Do(ctx, string(req.Type), send)
}

func (c *apiClient) get(ctx context.Context, path string, out any) error {
	return c.retry.Do(ctx, path, func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, path, nil, out)
	})
}

func (c *apiClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "build request").
			WithContext("url", c.base+path).
			Build()
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WrapError(err, errors.CategoryTransport, "daemon not reachable").
			WithContext("url", c.base).
			UserAction().
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapError(err, errors.CategoryTransport, "read response").Build()
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.WrapError(err, errors.CategoryTransport, "decode response").Build()
	}
	return nil
}

// decodeAPIError rebuilds a classified error from the daemon's error payload.
func decodeAPIError(status int, raw []byte) error {
	var payload errors.HTTPErrorResponse
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		return errors.TransportError("unexpected daemon response").
			WithContext("status", status).
			Build()
	}
	category := errors.ErrorCategory(payload.Code)
	if category == "" {
		category = errors.CategoryTransport
	}
	b := errors.NewError(category, payload.Error).WithContext("status", status)
	for k, v := range payload.Details {
		b = b.WithContext(k, v)
	}
	if payload.Retryable {
		b = b.Retryable()
	}
	return b.Build()
}

// StatusCmd implements the 'status' command.
type StatusCmd struct {
	ClientFlags
	JSON bool `help:"Print the raw state as JSON"`
}

func (s *StatusCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	var state router.StateResponse
	if err := s.client(root).get(ctx, "/api/state", &state); err != nil {
		return err
	}
	if s.JSON {
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}
	printState(g.Out, state)
	return nil
}

func printState(w io.Writer, state router.StateResponse) {
	if state.Active {
		reason := ""
		if state.Reason != nil {
			reason = *state.Reason
		}
		_, _ = fmt.Fprintf(w, "Focus: ON (%s), %d min this session\n", reason, state.SessionMinutes)
	} else {
		_, _ = fmt.Fprintln(w, "Focus: OFF")
	}
	_, _ = fmt.Fprintf(w, "Mode: %s", state.Settings.Mode)
	if state.Settings.StrictMode {
		_, _ = fmt.Fprint(w, " (strict)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Today: %d/%d min, %d sessions, %d day streak\n",
		state.FocusMinutesToday, state.Settings.DailyGoalMinutes,
		state.Stats.SessionsToday, state.Stats.StreakDays)
}

// ToggleCmd implements the 'toggle' command.
type ToggleCmd struct {
	ClientFlags
}

func (t *ToggleCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	var res focus.ToggleResult
	if err := t.client(root).message(ctx, router.Request{Type: router.TypeToggleFocus}, &res); err != nil {
		return err
	}
	if res.Refused {
		return errors.RefusedError("strict mode is on; use force-off to end the session").Build()
	}
	if res.Active {
		_, _ = fmt.Fprintln(g.Out, "Focus: ON")
	} else {
		_, _ = fmt.Fprintln(g.Out, "Focus: OFF")
	}
	return nil
}

// ForceOffCmd implements the 'force-off' command.
type ForceOffCmd struct {
	ClientFlags
}

func (f *ForceOffCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	if err := f.client(root).message(ctx, router.Request{Type: router.TypeForceOff}, nil); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(g.Out, "Focus: OFF")
	return nil
}

// BlockedCmd implements the 'blocked' command.
type BlockedCmd struct {
	ClientFlags
}

func (b *BlockedCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	var res router.SitesResponse
	if err := b.client(root).message(ctx, router.Request{Type: router.TypeGetBlockedList}, &res); err != nil {
		return err
	}
	for _, site := range res.Sites {
		_, _ = fmt.Fprintln(g.Out, site)
	}
	return nil
}

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	ClientFlags
	Limit int `short:"n" help:"Number of sessions to show" default:"10"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := context.WithTimeout(context.Background(), clientTimeout)
	defer cancel()

	q := url.Values{"limit": {strconv.Itoa(h.Limit)}}
	var res responses.HistoryResponse
	if err := h.client(root).get(ctx, "/api/history?"+q.Encode(), &res); err != nil {
		return err
	}
	if len(res.Sessions) == 0 {
		_, _ = fmt.Fprintln(g.Out, "No focus sessions recorded")
		return nil
	}

	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tSTATUS\tMINUTES\tBLOCKED\tSTART\tEND")
	for _, s := range res.Sessions {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			s.StartedAt.Local().Format("2006-01-02 15:04"), s.Status,
			s.SessionMinutes, s.BlockedCount, s.StartReason, s.EndReason)
	}
	return tw.Flush()
}

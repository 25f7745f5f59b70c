// Package natsbus exposes the daemon on NATS: request/reply for UI messages,
// a subject for tab events, broadcasts of focus transitions, tab commands, and
// a JetStream key-value bucket for the settings store.
package natsbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/contextfocus/internal/bridge"
	"git.home.luguber.info/inful/contextfocus/internal/daemon/events"
	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/logfields"
	"git.home.luguber.info/inful/contextfocus/internal/tabs"
)

// Subject suffixes below the configured prefix.
const (
	SubjectMessages     = "messages"
	SubjectEvents       = "events"
	SubjectFocusChanged = "focus.changed"
	SubjectSiteBlocked  = "site.blocked"
	SubjectCommands     = "commands"
)

// HeaderEventName carries the bus event name on published events.
const HeaderEventName = "Contextfocus-Event"

// Config configures the connection.
type Config struct {
	URL           string
	SubjectPrefix string
	KVBucket      string
	// Name identifies the connection on the server.
	Name string
}

// Client manages the NATS connection.
type Client struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	kv      jetstream.KeyValue
	cfg     Config
	subs    []*nats.Subscription
	timeout time.Duration
}

// Connect dials NATS and prepares JetStream.
func Connect(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.ConfigError("nats.url is required").Build()
	}
	if cfg.Name == "" {
		cfg.Name = "contextfocus"
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", logfields.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryTransport, "failed to connect to NATS").
			WithContext("url", cfg.URL).
			Retryable().
			Build()
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryTransport, "failed to create JetStream context").Build()
	}

	slog.Info("NATS client connected",
		slog.String("url", cfg.URL),
		slog.String("prefix", cfg.SubjectPrefix))

	return &Client{conn: conn, js: js, cfg: cfg, timeout: 10 * time.Second}, nil
}

// Subject joins the prefix and suffix.
func (c *Client) Subject(suffix string) string {
	return subject(c.cfg.SubjectPrefix, suffix)
}

func subject(prefix, suffix string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return suffix
	}
	return prefix + "." + suffix
}

// KeyValue returns the settings bucket, creating it when missing.
func (c *Client) KeyValue(ctx context.Context) (jetstream.KeyValue, error) {
	if c.kv != nil {
		return c.kv, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	kv, err := c.js.KeyValue(ctx, c.cfg.KVBucket)
	if err == nil {
		c.kv = kv
		return kv, nil
	}

	kv, err = c.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      c.cfg.KVBucket,
		Description: "contextfocus settings and stats",
		History:     1,
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryStorage, "failed to create KV bucket").
			WithContext("bucket", c.cfg.KVBucket).
			Build()
	}
	c.kv = kv
	slog.Info("Created KV bucket", slog.String("bucket", c.cfg.KVBucket))
	return kv, nil
}

// Serve subscribes the message and event subjects and delivers them to h.
func (c *Client) Serve(h bridge.Handler) error {
	msgSub, err := c.conn.Subscribe(c.Subject(SubjectMessages), func(m *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if m.Reply == "" {
			return
		}
		if err := m.Respond(HandleRequest(ctx, h, m.Data)); err != nil {
			slog.Warn("NATS respond failed", logfields.Subject(m.Subject), logfields.Error(err))
		}
	})
	if err != nil {
		return errors.WrapError(err, errors.CategoryTransport, "subscribe messages").Build()
	}
	c.subs = append(c.subs, msgSub)

	evtSub, err := c.conn.Subscribe(c.Subject(SubjectEvents), func(m *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := HandleEvent(ctx, h, m.Data); err != nil {
			slog.Warn("NATS event dropped", logfields.Subject(m.Subject), logfields.Error(err))
		}
	})
	if err != nil {
		return errors.WrapError(err, errors.CategoryTransport, "subscribe events").Build()
	}
	c.subs = append(c.subs, evtSub)
	return nil
}

// HandleRequest answers one message payload with a reply envelope.
func HandleRequest(ctx context.Context, h bridge.Handler, data []byte) []byte {
	reply := bridge.Envelope{Kind: bridge.KindReply}
	resp, err := h.Message(ctx, data)
	if err != nil {
		reply.Error = err.Error()
	} else {
		reply.Reply = resp
	}
	out, err := json.Marshal(reply)
	if err != nil {
		out, _ = json.Marshal(bridge.Envelope{Kind: bridge.KindReply, Error: err.Error()})
	}
	return out
}

// HandleEvent decodes a tab or navigation envelope and delivers it to h.
func HandleEvent(ctx context.Context, h bridge.Handler, data []byte) error {
	env, err := bridge.Decode(data)
	if err != nil {
		return err
	}
	return bridge.Dispatch(ctx, h, env)
}

// Publish sends a bus event on its broadcast subject.
func (c *Client) Publish(evt events.Event) error {
	var suffix string
	switch evt.(type) {
	case events.FocusChanged, *events.FocusChanged:
		suffix = SubjectFocusChanged
	case events.SiteBlocked, *events.SiteBlocked:
		suffix = SubjectSiteBlocked
	default:
		return nil
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal event").Build()
	}
	msg := nats.NewMsg(c.Subject(suffix))
	msg.Header.Set(HeaderEventName, evt.EventName())
	msg.Data = data
	if err := c.conn.PublishMsg(msg); err != nil {
		return errors.WrapError(err, errors.CategoryTransport, "publish event").
			WithContext("subject", msg.Subject).
			Build()
	}
	return nil
}

// Navigate publishes a tab command for NATS-connected shims.
func (c *Client) Navigate(_ context.Context, id tabs.ID, rawURL string) error {
	return c.command(bridge.Envelope{Kind: bridge.KindTabNavigate, TabID: id.Ptr(), URL: rawURL})
}

// SetBadge publishes the indicator state for NATS-connected shims.
func (c *Client) SetBadge(_ context.Context, badge tabs.Badge) error {
	return c.command(bridge.Envelope{Kind: bridge.KindBadge, Badge: &badge})
}

func (c *Client) command(env bridge.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal command").Build()
	}
	if err := c.conn.Publish(c.Subject(SubjectCommands), data); err != nil {
		return errors.WrapError(err, errors.CategoryTransport, "publish command").Build()
	}
	return nil
}

// Connected reports whether the connection is currently up.
func (c *Client) Connected() bool {
	return c != nil && c.conn != nil && c.conn.IsConnected()
}

// Close drains subscriptions and closes the connection.
func (c *Client) Close() error {
	for _, s := range c.subs {
		_ = s.Unsubscribe()
	}
	c.subs = nil
	if c.conn != nil {
		if err := c.conn.Drain(); err != nil {
			c.conn.Close()
			return errors.WrapError(err, errors.CategoryTransport, "drain NATS connection").Build()
		}
	}
	return nil
}

var _ tabs.Commander = (*Client)(nil)

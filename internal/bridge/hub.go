package bridge

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
	"git.home.luguber.info/inful/contextfocus/internal/logfields"
	"git.home.luguber.info/inful/contextfocus/internal/metrics"
	"git.home.luguber.info/inful/contextfocus/internal/tabs"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 90 * time.Second
	pingPeriod     = 30 * time.Second
	sendBuffer     = 64
	maxMessageSize = 1 << 20
)

// Handler receives decoded browser input. Implementations may block until
// the event is processed.
type Handler interface {
	TabActivated(ctx context.Context, id tabs.ID, tab *tabs.Tab) error
	TabUpdated(ctx context.Context, tab tabs.Tab, change tabs.Change) error
	TabRemoved(ctx context.Context, id tabs.ID) error
	TabsSnapshot(ctx context.Context, all []tabs.Tab) error
	BeforeNavigate(ctx context.Context, nav tabs.Navigation) error
	Message(ctx context.Context, raw []byte) (any, error)
}

// ErrNoClients reports a tab command with no connected shim to execute it.
var ErrNoClients = errors.TransportError("no browser bridge connected").Build()

// Hub accepts shim connections and fans commands out to them. It implements
// tabs.Commander.
type Hub struct {
	handler        Handler
	recorder       metrics.Recorder
	upgrader       websocket.Upgrader
	requestTimeout time.Duration

	mu        sync.RWMutex
	clients   map[string]*client
	lastBadge *tabs.Badge
	closed    bool
}

// Option configures a Hub.
type Option func(*Hub)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(h *Hub) { h.recorder = r } }

// WithAllowedOrigins restricts the Origin header accepted on upgrade.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Hub) { h.upgrader.CheckOrigin = originChecker(origins) }
}

// WithRequestTimeout bounds how long one inbound envelope may take to handle.
func WithRequestTimeout(d time.Duration) Option { return func(h *Hub) { h.requestTimeout = d } }

// NewHub creates a hub delivering input to handler.
func NewHub(handler Handler, opts ...Option) *Hub {
	h := &Hub{
		handler:        handler,
		recorder:       metrics.NoopRecorder{},
		requestTimeout: 10 * time.Second,
		clients:        make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(nil),
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// originChecker accepts listed origins. With none listed it accepts
// browser extension origins, same-host pages and clients without an Origin.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.ToLower(o), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(set) > 0 {
			_, ok := set[strings.TrimRight(strings.ToLower(origin), "/")]
			return ok
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		switch u.Scheme {
		case "chrome-extension", "moz-extension", "safari-web-extension":
			return true
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Bridge upgrade failed", logfields.RemoteAddr(r.RemoteAddr), logfields.Error(err))
		return
	}

	c := newClient(uuid.NewString(), conn)
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	slog.Info("Bridge client connected", logfields.ClientID(c.id), logfields.RemoteAddr(r.RemoteAddr))

	go c.writeLoop()
	h.readLoop(r.Context(), c)

	h.unregister(c)
	c.close()
	slog.Info("Bridge client disconnected", logfields.ClientID(c.id))
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	if h.lastBadge != nil {
		c.trySend(Envelope{Kind: KindBadge, Badge: h.lastBadge})
	}
	h.recorder.SetBridgeClients(len(h.clients))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.id)
	h.recorder.SetBridgeClients(len(h.clients))
}

func (h *Hub) readLoop(ctx context.Context, c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("Bridge read error", logfields.ClientID(c.id), logfields.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		env, err := Decode(raw)
		if err != nil {
			slog.Warn("Bridge envelope rejected", logfields.ClientID(c.id), logfields.Error(err))
			c.trySend(Envelope{Kind: KindError, Error: err.Error()})
			continue
		}

		if env.Kind == KindMessage {
			// Messages wait for a reply; keep reading tab events meanwhile.
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				h.handleMessage(ctx, c, env)
			}()
			continue
		}
		h.dispatch(ctx, c, env)
	}
}

func (h *Hub) dispatch(parent context.Context, c *client, env Envelope) {
	ctx, cancel := context.WithTimeout(parent, h.requestTimeout)
	defer cancel()

	if err := Dispatch(ctx, h.handler, env); err != nil {
		slog.Warn("Bridge event dropped",
			logfields.ClientID(c.id),
			slog.String("kind", string(env.Kind)),
			logfields.Error(err))
	}
}

func (h *Hub) handleMessage(parent context.Context, c *client, env Envelope) {
	ctx, cancel := context.WithTimeout(parent, h.requestTimeout)
	defer cancel()

	reply := Envelope{Kind: KindReply, ID: env.ID}
	resp, err := h.handler.Message(ctx, env.Message)
	if err != nil {
		reply.Error = err.Error()
	} else {
		reply.Reply = resp
	}
	if !c.trySend(reply) {
		h.recorder.IncBroadcastDropped("bridge", 1)
	}
}

// Broadcast queues env for every client and returns how many were skipped
// because their buffer was full.
func (h *Hub) Broadcast(env Envelope) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for _, c := range h.clients {
		if !c.trySend(env) {
			dropped++
		}
	}
	if dropped > 0 {
		h.recorder.IncBroadcastDropped("bridge", dropped)
	}
	return dropped
}

// Navigate asks the connected shims to load url in tab id.
func (h *Hub) Navigate(_ context.Context, id tabs.ID, rawURL string) error {
	if h.ClientCount() == 0 {
		return errors.WrapError(ErrNoClients, errors.CategoryTransport, "tab navigate").
			WithContext("tab_id", int(id)).
			Build()
	}
	h.Broadcast(Envelope{Kind: KindTabNavigate, TabID: id.Ptr(), URL: rawURL})
	return nil
}

// SetBadge updates the indicator on every shim and remembers it for clients
// that connect later.
func (h *Hub) SetBadge(_ context.Context, badge tabs.Badge) error {
	h.mu.Lock()
	b := badge
	h.lastBadge = &b
	h.mu.Unlock()

	h.Broadcast(Envelope{Kind: KindBadge, Badge: &b})
	return nil
}

// ClientCount returns the number of connected shims.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

var _ tabs.Commander = (*Hub)(nil)

package websocket

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/metric"
	"github.com/c360/surfacestream/pkg/worker"
	"github.com/c360/surfacestream/store"
)

// EnvelopeSnapshot is the only envelope type sent to clients.
const EnvelopeSnapshot = "snapshot"

// Envelope wraps every message sent to a client.
type Envelope struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"` // unix millis
	Version   uint64          `json:"version"`
	Payload   json.RawMessage `json:"payload"`
}

// Metrics holds the broadcaster's Prometheus collectors.
type Metrics struct {
	clientsConnected prometheus.Gauge
	connections      prometheus.Counter
	sent             prometheus.Counter
	errors           *prometheus.CounterVec
}

// newMetrics registers the collectors. A failed registration is logged and
// the collector keeps counting unexported.
func newMetrics(registry *metric.MetricsRegistry, logger *slog.Logger) *Metrics {
	m := &Metrics{
		clientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "broadcast",
			Name:      "clients_connected",
			Help:      "WebSocket clients currently connected",
		}),
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "broadcast",
			Name:      "connections_total",
			Help:      "WebSocket connections accepted",
		}),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "broadcast",
			Name:      "snapshots_sent_total",
			Help:      "Snapshots written to clients",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "broadcast",
			Name:      "errors_total",
			Help:      "Broadcast errors by reason",
		}, []string{"reason"}),
	}
	for name, c := range map[string]prometheus.Collector{
		"clients_connected":    m.clientsConnected,
		"connections_total":    m.connections,
		"snapshots_sent_total": m.sent,
		"errors_total":         m.errors,
	} {
		if err := registry.Register("broadcast", name, c); err != nil {
			logger.Warn("metric registration failed", "metric", name, "error", err)
		}
	}
	return m
}

func (m *Metrics) clients(n int) {
	if m != nil {
		m.clientsConnected.Set(float64(n))
	}
}

func (m *Metrics) connected() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) snapshotSent() {
	if m != nil {
		m.sent.Inc()
	}
}

func (m *Metrics) fail(reason string) {
	if m != nil {
		m.errors.WithLabelValues(reason).Inc()
	}
}

type client struct {
	conn        *websocket.Conn
	connectedAt time.Time

	writeMu sync.Mutex // gorilla connections allow one concurrent writer
	version uint64     // last version written, guarded by writeMu

	closeOnce sync.Once
	closed    atomic.Bool
}

// Broadcaster fans store snapshots out to WebSocket clients.
type Broadcaster struct {
	store        *store.Store
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pingInterval time.Duration
	logger       *slog.Logger
	registry     *metric.MetricsRegistry
	metrics      *Metrics

	clientsMu sync.RWMutex
	clients   map[*client]struct{}

	pool        *worker.Pool[uint64]
	unsubscribe func()
	seq         atomic.Uint64

	lifecycleMu sync.Mutex
	running     bool
	shutdown    chan struct{}
	wg          sync.WaitGroup
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithWriteTimeout bounds a single write to a client.
func WithWriteTimeout(d time.Duration) Option {
	return func(b *Broadcaster) {
		if d > 0 {
			b.writeTimeout = d
		}
	}
}

// WithPingInterval sets how often clients are pinged. A client that has not
// answered within two intervals is dropped.
func WithPingInterval(d time.Duration) Option {
	return func(b *Broadcaster) {
		if d > 0 {
			b.pingInterval = d
		}
	}
}

// WithCheckOrigin overrides the upgrader's origin check.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(b *Broadcaster) {
		b.upgrader.CheckOrigin = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broadcaster) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics registers broadcaster and pool metrics with registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(b *Broadcaster) {
		b.registry = registry
	}
}

// New creates a broadcaster for st. It serves nothing until Start.
func New(st *store.Store, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		store:        st,
		writeTimeout: 5 * time.Second,
		pingInterval: 30 * time.Second,
		logger:       slog.Default(),
		clients:      make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "broadcast")

	var poolOpts []worker.Option[uint64]
	if b.registry != nil {
		b.metrics = newMetrics(b.registry, b.logger)
		poolOpts = append(poolOpts,
			worker.WithMetricsRegistry[uint64](b.registry, "broadcast"),
			worker.WithLogger[uint64](b.logger))
	}
	// One worker keeps broadcasts ordered.
	b.pool = worker.NewPool[uint64](1, 16, b.broadcast, poolOpts...)
	return b
}

// Start subscribes to the store and begins pinging clients. A stopped
// broadcaster cannot be restarted.
func (b *Broadcaster) Start(ctx context.Context) error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	if b.running {
		return errors.WrapInvalid(stderrors.New("already running"), "Broadcaster", "Start", "start")
	}
	if err := b.pool.Start(ctx); err != nil {
		return errors.Wrap(err, "Broadcaster", "Start", "start worker pool")
	}
	b.shutdown = make(chan struct{})
	b.unsubscribe = b.store.Subscribe(b.notify)
	b.running = true

	b.wg.Add(1)
	go b.pingLoop(ctx)
	return nil
}

// Stop unsubscribes, waits for the in-flight broadcast and disconnects every
// client with a going-away close frame.
func (b *Broadcaster) Stop(timeout time.Duration) error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	if !b.running {
		return nil
	}
	b.running = false
	b.unsubscribe()
	close(b.shutdown)

	err := b.pool.Stop(timeout)
	b.wg.Wait()

	for _, c := range b.snapshotClients() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		b.remove(c, "shutdown")
	}
	if err != nil {
		return errors.WrapTransient(err, "Broadcaster", "Stop", "drain broadcasts")
	}
	return nil
}

// Clients returns the number of connected clients.
func (b *Broadcaster) Clients() int {
	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()
	return len(b.clients)
}

// ServeHTTP upgrades the request and sends the current snapshot.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		b.metrics.fail("upgrade")
		b.logger.Debug("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{conn: conn, connectedAt: time.Now()}
	b.clientsMu.Lock()
	b.clients[c] = struct{}{}
	n := len(b.clients)
	b.clientsMu.Unlock()

	b.metrics.connected()
	b.metrics.clients(n)
	b.logger.Debug("client connected", "remote", r.RemoteAddr, "clients", n)

	snap := b.store.Snapshot()
	data, err := b.envelope(snap)
	if err == nil {
		err = b.send(c, snap.Version, data)
	}
	if err != nil {
		b.remove(c, "initial_send")
		return
	}

	go b.readLoop(c)
}

// notify runs inside Store.Apply and must not block.
func (b *Broadcaster) notify(snap *store.Snapshot) {
	// A full queue already holds a pending broadcast, which will pick up
	// this snapshot or a newer one.
	_ = b.pool.Submit(snap.Version)
}

// broadcast sends the latest snapshot to every client that has not seen it.
func (b *Broadcaster) broadcast(ctx context.Context, _ uint64) error {
	snap := b.store.Snapshot()
	clients := b.snapshotClients()
	if len(clients) == 0 {
		return nil
	}

	data, err := b.envelope(snap)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	var failed atomic.Int64
	for _, c := range clients {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(c *client) {
			defer wg.Done()
			if err := b.send(c, snap.Version, data); err != nil {
				failed.Add(1)
				b.remove(c, "write")
			}
		}(c)
	}
	wg.Wait()

	if n := failed.Load(); n > 0 {
		return errors.WrapTransient(fmt.Errorf("%d clients failed", n),
			"Broadcaster", "broadcast", "write snapshot")
	}
	return nil
}

func (b *Broadcaster) envelope(snap *store.Snapshot) ([]byte, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		b.metrics.fail("marshal")
		return nil, errors.WrapFatal(err, "Broadcaster", "envelope", "marshal snapshot")
	}
	data, err := json.Marshal(Envelope{
		Type:      EnvelopeSnapshot,
		ID:        strconv.FormatUint(b.seq.Add(1), 10),
		Timestamp: time.Now().UnixMilli(),
		Version:   snap.Version,
		Payload:   payload,
	})
	if err != nil {
		b.metrics.fail("marshal")
		return nil, errors.WrapFatal(err, "Broadcaster", "envelope", "marshal envelope")
	}
	return data, nil
}

// send writes data unless the client already has version or newer.
func (b *Broadcaster) send(c *client, version uint64, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return errors.ErrClosed
	}
	if c.version >= version && version > 0 {
		return nil
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(b.writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		b.metrics.fail("write")
		return err
	}
	c.version = version
	b.metrics.snapshotSent()
	return nil
}

// readLoop discards client frames and keeps the pong deadline current.
func (b *Broadcaster) readLoop(c *client) {
	defer b.remove(c, "read")

	deadline := 2 * b.pingInterval
	_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Broadcaster) pingLoop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.shutdown:
			return
		case <-ticker.C:
			for _, c := range b.snapshotClients() {
				err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(b.writeTimeout))
				if err != nil {
					b.metrics.fail("ping")
					b.remove(c, "ping")
				}
			}
		}
	}
}

func (b *Broadcaster) snapshotClients() []*client {
	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()

	out := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		if !c.closed.Load() {
			out = append(out, c)
		}
	}
	return out
}

func (b *Broadcaster) remove(c *client, reason string) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		b.clientsMu.Lock()
		delete(b.clients, c)
		n := len(b.clients)
		b.clientsMu.Unlock()

		b.metrics.clients(n)
		b.logger.Debug("client disconnected",
			"reason", reason,
			"connected_for", time.Since(c.connectedAt),
			"clients", n)
		_ = c.conn.Close()
	})
}

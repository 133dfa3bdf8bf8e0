package metric

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/surfacestream/errors"
)

const (
	defaultPort = 9090
	defaultPath = "/metrics"
)

// Server exposes the registry over HTTP together with a /health endpoint.
type Server struct {
	port     int
	path     string
	registry *MetricsRegistry

	mu     sync.Mutex
	health http.Handler
	srv    *http.Server
}

// NewServer returns an unstarted server. Zero values select :9090/metrics.
func NewServer(port int, path string, registry *MetricsRegistry) *Server {
	s := &Server{port: port, path: path, registry: registry}
	if s.port == 0 {
		s.port = defaultPort
	}
	if s.path == "" {
		s.path = defaultPath
	}
	return s
}

// SetHealthHandler replaces the plain "OK" health endpoint. Call before Start.
func (s *Server) SetHealthHandler(h http.Handler) {
	s.mu.Lock()
	s.health = h
	s.mu.Unlock()
}

// Handler returns the routes Start serves.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	health := s.health
	s.mu.Unlock()

	if health == nil {
		health = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("OK"))
		})
	}

	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.HandlerFor(s.registry.PrometheusRegistry(),
		promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.Handle("/health", health)
	return mux
}

// Start serves until Stop is called. It returns nil after a clean stop.
func (s *Server) Start() error {
	if s.registry == nil {
		return errors.WrapFatal(errors.ErrMissingConfig, "Server", "Start", "check registry")
	}

	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		return errors.WrapInvalid(fmt.Errorf("already running on :%d", s.port), "Server", "Start", "start")
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.srv = srv
	s.mu.Unlock()

	srv.Handler = s.Handler()
	err := srv.ListenAndServe()
	if err == nil || stderrors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.WrapFatal(err, "Server", "Start", fmt.Sprintf("listen on :%d", s.port))
}

// Stop closes the listener. Stopping a server that is not running is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Close(); err != nil {
		return errors.WrapTransient(err, "Server", "Stop", "close listener")
	}
	return nil
}

// Address is the scrape URL.
func (s *Server) Address() string {
	return fmt.Sprintf("http://localhost:%d%s", s.port, s.path)
}

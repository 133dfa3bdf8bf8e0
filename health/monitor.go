package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Check computes a status on demand.
type Check func() Status

// Monitor tracks the health of named components in a thread-safe manner.
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
	checks   map[string]Check
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		statuses: make(map[string]Status),
		checks:   make(map[string]Check),
	}
}

// Update stores the status of a named component, replacing any check of the
// same name.
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	delete(m.checks, name)
	m.statuses[name] = status
}

// AddCheck registers a check evaluated on every read, replacing any stored
// status of the same name.
func (m *Monitor) AddCheck(name string, check Check) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.statuses, name)
	m.checks[name] = check
}

// Get returns the current status of a named component.
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	status, ok := m.statuses[name]
	check, isCheck := m.checks[name]
	m.mu.RUnlock()

	if isCheck {
		return m.run(name, check), true
	}
	return status, ok
}

// Remove stops tracking a component.
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.statuses, name)
	delete(m.checks, name)
}

// AggregateHealth evaluates every component and aggregates the result.
// Sub-statuses are ordered by component name.
func (m *Monitor) AggregateHealth(systemName string) Status {
	m.mu.RLock()
	subs := make([]Status, 0, len(m.statuses)+len(m.checks))
	for _, status := range m.statuses {
		subs = append(subs, status)
	}
	checks := make(map[string]Check, len(m.checks))
	for name, check := range m.checks {
		checks[name] = check
	}
	m.mu.RUnlock()

	// Checks may take their own locks; run them unlocked.
	for name, check := range checks {
		subs = append(subs, m.run(name, check))
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Component < subs[j].Component })
	return Aggregate(systemName, subs)
}

func (m *Monitor) run(name string, check Check) Status {
	status := check()
	status.Component = name
	return status
}

// Handler serves AggregateHealth as JSON: 200 when healthy or degraded, 503
// when unhealthy.
func (m *Monitor) Handler(systemName string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status := m.AggregateHealth(systemName)
		w.Header().Set("Content-Type", "application/json")
		if status.IsUnhealthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(status)
	})
}

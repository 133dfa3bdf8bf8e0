package store

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/surfacestream/datapath"
	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/metric"
	"github.com/c360/surfacestream/protocol"
)

type listener struct {
	id uint64
	fn func(*Snapshot)
}

// Store owns the surfaces and the shared data model.
type Store struct {
	current atomic.Pointer[Snapshot]

	mu        sync.Mutex
	listeners []listener
	nextID    uint64
	draining  bool
	pending   []protocol.Message

	paths    *datapath.Resolver
	pathOpts []datapath.Option
	reporter func(error)
	logger   *slog.Logger
	metrics  *metric.Metrics
}

// New creates an empty store at version 0.
func New(opts ...Option) *Store {
	s := &Store{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	paths, err := datapath.NewResolver(s.pathOpts...)
	if err != nil {
		s.logger.Warn("path resolver options rejected, using defaults",
			"component", "store", "error", err)
		paths, _ = datapath.NewResolver()
	}
	s.paths, s.pathOpts = paths, nil
	s.current.Store(emptySnapshot())
	return s
}

// Apply applies one message. On success a new snapshot is published and
// subscribers are notified before Apply returns. On failure the state is
// unchanged and the error is both reported and returned.
//
// Apply called while a notification is in flight is queued, applied once the
// current round of listeners returns, and returns nil at once. Its error
// reaches the reporter only. This holds for a listener calling Apply and
// equally for another goroutine calling Apply during that window, so
// concurrent feeders that need per-message errors must install a reporter.
//
// A panicking listener is recovered and reported; the remaining listeners
// still run and later applies proceed normally.
func (s *Store) Apply(msg protocol.Message) error {
	s.mu.Lock()
	if s.draining {
		s.pending = append(s.pending, msg)
		s.mu.Unlock()
		return nil
	}
	s.draining = true
	s.mu.Unlock()

	done := false
	defer func() {
		if done {
			return
		}
		// transition panicked; release the store so it is not wedged.
		s.mu.Lock()
		s.draining = false
		s.pending = nil
		s.mu.Unlock()
	}()

	err := s.applyAndNotify(msg)

	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.draining = false
			s.pending = nil
			s.mu.Unlock()
			done = true
			return err
		}
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		_ = s.applyAndNotify(next)
	}
}

// ApplyAll applies msgs in order and returns the errors of those that failed.
func (s *Store) ApplyAll(msgs ...protocol.Message) []error {
	var errs []error
	for _, m := range msgs {
		if err := s.Apply(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (s *Store) applyAndNotify(msg protocol.Message) error {
	start := time.Now()

	s.mu.Lock()
	next, err := s.transition(s.current.Load(), msg)
	if err != nil {
		s.mu.Unlock()
		s.report(msg, err)
		return err
	}
	s.current.Store(next)
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	kind := kindOf(msg)
	s.metrics.RecordMessageApplied(kind, time.Since(start))
	s.metrics.RecordSnapshot(next.Version, len(next.Surfaces))
	s.logger.Debug("message applied",
		"component", "store",
		"kind", kind,
		"surface", protocol.TargetSurface(msg),
		"version", next.Version)

	for _, l := range listeners {
		s.notify(l, msg, next)
	}
	return nil
}

func (s *Store) notify(l listener, msg protocol.Message, snap *Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			s.report(msg, &ListenerPanicError{Version: snap.Version, Value: r})
		}
	}()
	l.fn(snap)
}

// transition computes the snapshot following prev. prev is not modified.
func (s *Store) transition(prev *Snapshot, msg protocol.Message) (*Snapshot, error) {
	next := &Snapshot{
		Version:   prev.Version + 1,
		Surfaces:  prev.Surfaces,
		DataModel: prev.DataModel,
	}

	switch m := msg.(type) {
	case *protocol.BeginRendering:
		next.Surfaces = maps.Clone(prev.Surfaces)
		next.Surfaces[m.SurfaceID] = &Surface{
			ID:         m.SurfaceID,
			Root:       m.Root,
			Components: map[protocol.ComponentID]*protocol.Component{},
		}

	case *protocol.SurfaceUpdate:
		old, ok := prev.Surfaces[m.SurfaceID]
		if !ok {
			return nil, &UnknownSurfaceError{SurfaceID: m.SurfaceID, Op: m.Kind()}
		}
		comps := maps.Clone(old.Components)
		for _, e := range m.Components {
			c := e.Component
			comps[e.ID] = &c
		}
		next.Surfaces = maps.Clone(prev.Surfaces)
		next.Surfaces[m.SurfaceID] = &Surface{
			ID:         old.ID,
			Root:       old.Root,
			Components: comps,
		}

	case *protocol.DataModelUpdate:
		model, err := s.paths.Set(prev.DataModel, m.Path, m.Value)
		if err != nil {
			return nil, err
		}
		next.DataModel = model

	case *protocol.DeleteSurface:
		if _, ok := prev.Surfaces[m.SurfaceID]; !ok {
			return nil, &UnknownSurfaceError{SurfaceID: m.SurfaceID, Op: m.Kind()}
		}
		next.Surfaces = maps.Clone(prev.Surfaces)
		delete(next.Surfaces, m.SurfaceID)

	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Store", "Apply", "unsupported message")
	}

	return next, nil
}

func (s *Store) report(msg protocol.Message, err error) {
	kind := errors.Kind(err)
	s.metrics.RecordError("store", kind)
	s.logger.Warn("message rejected",
		"component", "store",
		"kind", kindOf(msg),
		"surface", protocol.TargetSurface(msg),
		"error", err)
	if s.reporter != nil {
		s.reporter(err)
	}
}

func kindOf(msg protocol.Message) string {
	if msg == nil {
		return "nil"
	}
	return msg.Kind().String()
}

// Subscribe registers fn to be called with each new snapshot. The returned
// function removes the subscription and may be called any number of times.
func (s *Store) Subscribe(fn func(*Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(slices.Clone(s.listeners), listener{id: id, fn: fn})
	n := len(s.listeners)
	s.mu.Unlock()
	s.metrics.RecordSubscribers(n)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.listeners = slices.DeleteFunc(slices.Clone(s.listeners), func(l listener) bool {
				return l.id == id
			})
			n := len(s.listeners)
			s.mu.Unlock()
			s.metrics.RecordSubscribers(n)
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Version returns the current snapshot version.
func (s *Store) Version() uint64 {
	return s.current.Load().Version
}

// Surface returns a surface from the current snapshot.
func (s *Store) Surface(id string) (*Surface, bool) {
	return s.current.Load().Surface(id)
}

// DataModel returns the current data model tree.
func (s *Store) DataModel() any {
	return s.current.Load().DataModel
}

// Get reads path from the current data model.
func (s *Store) Get(path string) (any, bool, error) {
	return s.paths.Get(s.current.Load().DataModel, path)
}

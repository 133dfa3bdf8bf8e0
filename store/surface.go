package store

import (
	"github.com/c360/surfacestream/datapath"
	"github.com/c360/surfacestream/protocol"
)

// Surface is one independently rendered UI region. A published Surface is
// never modified.
type Surface struct {
	ID         string                                       `json:"id"`
	Root       protocol.ComponentID                         `json:"root"`
	Components map[protocol.ComponentID]*protocol.Component `json:"components"`
}

// Component returns the component stored under id.
func (s *Surface) Component(id protocol.ComponentID) (*protocol.Component, bool) {
	c, ok := s.Components[id]
	return c, ok
}

// RootComponent returns the root component if it has been defined.
func (s *Surface) RootComponent() (*protocol.Component, bool) {
	return s.Component(s.Root)
}

// Walk visits the tree depth-first from the root, following children in
// order. Child ids without a component are skipped. Reaching an id a second
// time stops the walk with *CycleError. If fn returns SkipChildren the
// current component's children are not visited; any other error stops the
// walk and is returned.
func (s *Surface) Walk(fn func(c *protocol.Component, depth int) error) error {
	root, ok := s.RootComponent()
	if !ok {
		return ErrMissingRoot
	}
	seen := make(map[protocol.ComponentID]struct{}, len(s.Components))
	seen[s.Root] = struct{}{}
	return s.walk(root, 0, seen, fn)
}

func (s *Surface) walk(c *protocol.Component, depth int, seen map[protocol.ComponentID]struct{}, fn func(*protocol.Component, int) error) error {
	if err := fn(c, depth); err != nil {
		if err == SkipChildren {
			return nil
		}
		return err
	}
	for _, id := range c.Children {
		if _, dup := seen[id]; dup {
			return &CycleError{SurfaceID: s.ID, ID: id}
		}
		child, ok := s.Components[id]
		if !ok {
			continue
		}
		seen[id] = struct{}{}
		if err := s.walk(child, depth+1, seen, fn); err != nil {
			return err
		}
	}
	return nil
}

// Resolve reads the data bound to c through its dataPath. ok is false when
// the component has no binding or the path holds no value.
func (s *Surface) Resolve(c *protocol.Component, dataModel any) (value any, ok bool, err error) {
	return resolveBinding(c, dataModel)
}

func resolveBinding(c *protocol.Component, dataModel any) (any, bool, error) {
	if c == nil || c.DataPath == "" {
		return nil, false, nil
	}
	return datapath.Get(dataModel, c.DataPath)
}

package store

import (
	"sort"

	"github.com/c360/surfacestream/protocol"
)

// Snapshot is an immutable view of the store at one version.
type Snapshot struct {
	Version   uint64              `json:"version"`
	Surfaces  map[string]*Surface `json:"surfaces"`
	DataModel any                 `json:"dataModel"`
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Surfaces:  map[string]*Surface{},
		DataModel: map[string]any{},
	}
}

// Surface returns the surface with the given id.
func (s *Snapshot) Surface(id string) (*Surface, bool) {
	sf, ok := s.Surfaces[id]
	return sf, ok
}

// SurfaceIDs returns the ids of all surfaces in sorted order.
func (s *Snapshot) SurfaceIDs() []string {
	ids := make([]string, 0, len(s.Surfaces))
	for id := range s.Surfaces {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve reads the binding of c against this snapshot's data model.
func (s *Snapshot) Resolve(c *protocol.Component) (any, bool, error) {
	return resolveBinding(c, s.DataModel)
}

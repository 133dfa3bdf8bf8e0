package store

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/protocol"
)

func node(id, typ string, children ...string) *protocol.Component {
	c := &protocol.Component{ID: protocol.ComponentID(id), Type: typ}
	for _, ch := range children {
		c.Children = append(c.Children, protocol.ComponentID(ch))
	}
	return c
}

func surfaceOf(root string, comps ...*protocol.Component) *Surface {
	sf := &Surface{
		ID:         "s",
		Root:       protocol.ComponentID(root),
		Components: map[protocol.ComponentID]*protocol.Component{},
	}
	for _, c := range comps {
		sf.Components[c.ID] = c
	}
	return sf
}

type visit struct {
	id    protocol.ComponentID
	depth int
}

func collect(sf *Surface) ([]visit, error) {
	var out []visit
	err := sf.Walk(func(c *protocol.Component, depth int) error {
		out = append(out, visit{c.ID, depth})
		return nil
	})
	return out, err
}

func TestSurface_Walk(t *testing.T) {
	sf := surfaceOf("r",
		node("r", "Column", "a", "b"),
		node("a", "Row", "a1", "ghost", "a2"),
		node("a1", "Text"),
		node("a2", "Text"),
		node("b", "Text"),
	)

	visits, err := collect(sf)
	require.NoError(t, err)
	assert.Equal(t, []visit{
		{"r", 0}, {"a", 1}, {"a1", 2}, {"a2", 2}, {"b", 1},
	}, visits)
}

func TestSurface_WalkMissingRoot(t *testing.T) {
	sf := surfaceOf("r", node("a", "Text"))
	_, err := collect(sf)
	assert.ErrorIs(t, err, ErrMissingRoot)
}

func TestSurface_WalkCycle(t *testing.T) {
	tests := []struct {
		name  string
		sf    *Surface
		cycle protocol.ComponentID
	}{
		{"self loop", surfaceOf("r", node("r", "Box", "r")), "r"},
		{"back edge", surfaceOf("r", node("r", "Box", "a"), node("a", "Box", "r")), "r"},
		{"shared child", surfaceOf("r", node("r", "Box", "a", "b"), node("a", "Box", "c"), node("b", "Box", "c"), node("c", "Text")), "c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := collect(tt.sf)
			var ce *CycleError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.cycle, ce.ID)
			assert.ErrorIs(t, err, errors.ErrCycle)
			assert.Equal(t, "cycle", errors.Kind(err))
		})
	}
}

func TestSurface_WalkSkipChildrenAndStop(t *testing.T) {
	sf := surfaceOf("r",
		node("r", "Column", "a", "b"),
		node("a", "Row", "a1"),
		node("a1", "Text"),
		node("b", "Text"),
	)

	var ids []protocol.ComponentID
	err := sf.Walk(func(c *protocol.Component, _ int) error {
		ids = append(ids, c.ID)
		if c.ID == "a" {
			return SkipChildren
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []protocol.ComponentID{"r", "a", "b"}, ids)

	stop := stderrors.New("stop")
	err = sf.Walk(func(c *protocol.Component, _ int) error {
		if c.ID == "a1" {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
}

func TestSurface_Resolve(t *testing.T) {
	model := map[string]any{"user": map[string]any{"name": "Ada"}}
	sf := surfaceOf("r")

	bound := &protocol.Component{ID: "t", Type: "Text", DataPath: "user.name"}
	v, ok, err := sf.Resolve(bound, model)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Ada", v)

	_, ok, err = sf.Resolve(&protocol.Component{ID: "u", Type: "Text"}, model)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = sf.Resolve(&protocol.Component{ID: "m", Type: "Text", DataPath: "user.email"}, model)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = sf.Resolve(&protocol.Component{ID: "x", Type: "Text", DataPath: "user..name"}, model)
	assert.ErrorIs(t, err, errors.ErrPathSyntax)

	snap := &Snapshot{DataModel: model}
	v, ok, err = snap.Resolve(bound)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Ada", v)
}

func TestSnapshot_SurfaceIDs(t *testing.T) {
	st := New()
	st.ApplyAll(begin("b", "r"), begin("a", "r"), begin("c", "r"))
	assert.Equal(t, []string{"a", "b", "c"}, st.Snapshot().SurfaceIDs())

	sf, ok := st.Snapshot().Surface("a")
	require.True(t, ok)
	_, ok = sf.RootComponent()
	assert.False(t, ok)
}

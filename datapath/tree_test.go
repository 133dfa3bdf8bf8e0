package datapath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/metric"
)

func TestSetGet_RoundTrip(t *testing.T) {
	tree := map[string]any{
		"a":       map[string]any{"x": "keep"},
		"sibling": 1.0,
	}

	out, err := Set(tree, "a.b[2].c", 5)
	require.NoError(t, err)

	v, ok, err := Get(out, "a.b[2].c")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, v)

	v, ok, err = Get(out, "sibling")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)

	v, ok, err = Get(out, "a.x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "keep", v)

	// Padding grows the slice to exactly index+1.
	arr, ok, err := Get(out, "a.b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []any{nil, nil, map[string]any{"c": 5}}, arr)
}

func TestSet_DoesNotMutateInput(t *testing.T) {
	inner := map[string]any{"x": 1.0}
	other := map[string]any{"y": 2.0}
	tree := map[string]any{"a": inner, "o": other}

	out, err := Set(tree, "a.x", 9.0)
	require.NoError(t, err)

	assert.Equal(t, 1.0, inner["x"])
	assert.Equal(t, inner, tree["a"])

	outMap := out.(map[string]any)
	assert.Equal(t, 9.0, outMap["a"].(map[string]any)["x"])

	// Untouched branch is shared, not copied.
	outOther := outMap["o"].(map[string]any)
	outOther["probe"] = true
	assert.Equal(t, true, other["probe"])
}

func TestSet_EmptyPathReplacesTree(t *testing.T) {
	out, err := Set(map[string]any{"old": true}, "", []any{"new"})
	require.NoError(t, err)
	assert.Equal(t, []any{"new"}, out)
}

func TestSet_ScalarOverwrite(t *testing.T) {
	tests := []struct {
		name string
		tree any
		path string
		want any
	}{
		{
			"scalar replaced by map",
			map[string]any{"a": "text"},
			"a.b",
			map[string]any{"a": map[string]any{"b": 1}},
		},
		{
			"scalar replaced by slice",
			map[string]any{"a": 3.0},
			"a[1]",
			map[string]any{"a": []any{nil, 1}},
		},
		{
			"map replaced by slice",
			map[string]any{"a": map[string]any{"k": "v"}},
			"a[0]",
			map[string]any{"a": []any{1}},
		},
		{
			"slice replaced by map",
			map[string]any{"a": []any{"x"}},
			"a.k",
			map[string]any{"a": map[string]any{"k": 1}},
		},
		{
			"nil root becomes map",
			nil,
			"a",
			map[string]any{"a": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Set(tt.tree, tt.path, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestSet_WithinExistingSlice(t *testing.T) {
	tree := map[string]any{"list": []any{"a", "b", "c"}}

	out, err := Set(tree, "list[1]", "B")
	require.NoError(t, err)

	assert.Equal(t, []any{"a", "B", "c"}, out.(map[string]any)["list"])
	assert.Equal(t, []any{"a", "b", "c"}, tree["list"])
}

func TestGet_NotFoundVersusNil(t *testing.T) {
	tree := map[string]any{
		"present": nil,
		"list":    []any{1.0},
		"scalar":  "s",
	}

	v, ok, err := Get(tree, "present")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, v)

	for _, p := range []string{"missing", "missing.deeper", "list[1]", "scalar.x", "list.x", "present[0]"} {
		t.Run(p, func(t *testing.T) {
			v, ok, err := Get(tree, p)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, v)
		})
	}

	v, ok, err = Get(tree, "")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, tree, v)
}

func TestResolver_SyntaxErrorPropagates(t *testing.T) {
	_, err := Set(map[string]any{}, "a[", 1)
	assert.Error(t, err)

	_, _, err = Get(map[string]any{}, "a..b")
	assert.Error(t, err)
}

func TestResolver_CacheMetrics(t *testing.T) {
	reg := metric.NewMetricsRegistry()
	r, err := NewResolver(WithCacheSize(2), WithMetrics(reg, "paths"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := r.Lookup("a.b")
		require.NoError(t, err)
	}
	stats := r.paths.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestResolver_NoCache(t *testing.T) {
	r, err := NewResolver(WithCacheSize(0))
	require.NoError(t, err)
	assert.Nil(t, r.paths)

	out, err := r.Set(nil, "k", "v")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "v"}, out)
}

func TestResolver_IndexLimit(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"max int", "a[9223372036854775807]"},
		{"terabytes", "a[100000000000]"},
		{"nested", "a[0].b[65536]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := map[string]any{"a": []any{"keep"}}
			var out any
			var err error
			require.NotPanics(t, func() { out, err = Set(tree, tt.path, 1) })
			require.Error(t, err)
			assert.Nil(t, out)

			var ire *IndexRangeError
			require.ErrorAs(t, err, &ire)
			assert.Equal(t, DefaultMaxIndex, ire.Max)
			assert.ErrorIs(t, err, errors.ErrPathSyntax)
			assert.Equal(t, map[string]any{"a": []any{"keep"}}, tree)
		})
	}

	out, err := Set(nil, "a[65535]", "last")
	require.NoError(t, err)
	assert.Len(t, out.(map[string]any)["a"], DefaultMaxIndex+1)
}

func TestResolver_WithMaxIndex(t *testing.T) {
	r, err := NewResolver(WithMaxIndex(3))
	require.NoError(t, err)

	_, err = r.Set(nil, "list[3]", true)
	require.NoError(t, err)

	_, err = r.Set(nil, "list[4]", true)
	var ire *IndexRangeError
	require.ErrorAs(t, err, &ire)
	assert.Equal(t, 4, ire.Index)
	assert.Equal(t, 3, ire.Max)

	// Reads are not limited.
	_, found, err := r.Get(map[string]any{}, "list[4000000]")
	require.NoError(t, err)
	assert.False(t, found)
}

package datapath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/surfacestream/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		path string
		want Path
	}{
		{"empty is root", "", Path{}},
		{"single key", "user", Path{{Key: "user"}}},
		{"nested keys", "user.name", Path{{Key: "user"}, {Key: "name"}}},
		{
			"index",
			"items[3]",
			Path{{Key: "items"}, {Index: 3, IsIndex: true}},
		},
		{
			"multiple indices",
			"grid[1][2].v",
			Path{{Key: "grid"}, {Index: 1, IsIndex: true}, {Index: 2, IsIndex: true}, {Key: "v"}},
		},
		{
			"escaped dot",
			`a\.b.c`,
			Path{{Key: "a.b"}, {Key: "c"}},
		},
		{
			"escaped bracket and backslash",
			`x\[0\]\\`,
			Path{{Key: `x[0]\`}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		offset int
	}{
		{"leading dot", ".a", 0},
		{"trailing dot", "a.", 2},
		{"double dot", "a..b", 2},
		{"unclosed bracket", "a[1", 1},
		{"stray close bracket", "a]", 1},
		{"empty index", "a[]", 1},
		{"negative index", "a[-1]", 2},
		{"non-numeric index", "a[x]", 2},
		{"index without name", "[0]", 0},
		{"junk after index", "a[0]b", 4},
		{"trailing escape", `a\`, 1},
		{"nested bracket", "a[[0]]", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.path)
			require.Error(t, err)

			var pse *PathSyntaxError
			require.ErrorAs(t, err, &pse)
			assert.Equal(t, tt.path, pse.Path)
			assert.Equal(t, tt.offset, pse.Offset)
			assert.ErrorIs(t, err, errors.ErrPathSyntax)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestPath_String(t *testing.T) {
	for _, s := range []string{"", "a", "a.b[2].c", "grid[0][1]", `we\.ird\[key\]`} {
		p, err := Parse(s)
		require.NoError(t, err)
		assert.Equal(t, s, p.String())
	}
}

func TestParse_ReturnsCopy(t *testing.T) {
	r := defaultResolver

	shared, err := r.Lookup("a.b")
	require.NoError(t, err)

	p, err := Parse("a.b")
	require.NoError(t, err)
	p[0].Key = "mutated"

	again, err := r.Lookup("a.b")
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].Key)
	assert.Equal(t, shared, again)
}

package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalMessage_ParsesBack(t *testing.T) {
	messages := []Message{
		&BeginRendering{SurfaceID: "s1", Root: "r"},
		&SurfaceUpdate{
			SurfaceID: "s1",
			Components: []ComponentEntry{
				{ID: "r", Component: Component{ID: "r", Type: "Column", Children: []ComponentID{"t"}}},
				{ID: "t", Component: Component{
					ID:       "t",
					Type:     "Text",
					DataPath: "greeting",
					Fields:   map[string]any{"style": map[string]any{"bold": true}},
				}},
			},
		},
		&DataModelUpdate{Path: "a.b[0]", HasPath: true, Value: []any{"x", 2.0}},
		&DataModelUpdate{Value: map[string]any{"root": true}},
		&DeleteSurface{SurfaceID: "s1"},
	}

	for _, m := range messages {
		t.Run(string(m.Kind()), func(t *testing.T) {
			data, err := MarshalMessage(m)
			require.NoError(t, err)

			back, err := ParseMessageJSON(data)
			require.NoError(t, err)
			assert.Equal(t, m, back)
		})
	}
}

func TestWire_UsesCanonicalKeys(t *testing.T) {
	w, err := Wire(&SurfaceUpdate{SurfaceID: "s", Components: []ComponentEntry{}})
	require.NoError(t, err)
	assert.Contains(t, w, "updateComponents")

	w, err = Wire(&DataModelUpdate{Value: 1.0})
	require.NoError(t, err)
	assert.NotContains(t, w["updateDataModel"], "path")
}

func TestComponent_JSON(t *testing.T) {
	c := Component{ID: "r", Type: "Text", Fields: map[string]any{"content": "hi"}}

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"r","type":"Text","content":"hi"}`, string(data))

	var back Component
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, c, back)
	assert.True(t, c.Equal(&back))

	v, ok := back.Field("content")
	assert.True(t, ok)
	assert.Equal(t, "hi", v)

	other := back
	other.Fields = map[string]any{"content": "bye"}
	assert.False(t, c.Equal(&other))
}

func TestComponent_UnmarshalRequiresType(t *testing.T) {
	var c Component
	err := json.Unmarshal([]byte(`{"id":"x"}`), &c)
	var pe *MessageParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ReasonMissingField, pe.Reason)
}

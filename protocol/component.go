package protocol

import (
	"encoding/json"
)

// ComponentID identifies a component within its surface.
type ComponentID string

// Reserved component keys. Everything else lands in Component.Fields.
const (
	fieldID       = "id"
	fieldType     = "type"
	fieldChildren = "children"
	fieldDataPath = "dataPath"
)

// Component is a node of a surface tree. Children are referenced by id.
// Type-specific fields are kept verbatim in Fields for the renderer.
type Component struct {
	ID       ComponentID
	Type     string
	Children []ComponentID
	DataPath string
	Fields   map[string]any
}

// ComponentEntry pairs a component with the id it is stored under.
type ComponentEntry struct {
	ID        ComponentID
	Component Component
}

// Field returns a type-specific field.
func (c *Component) Field(name string) (any, bool) {
	v, ok := c.Fields[name]
	return v, ok
}

// MarshalJSON encodes the component as one flat object.
func (c Component) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.wire())
}

func (c Component) wire() map[string]any {
	out := make(map[string]any, len(c.Fields)+4)
	for k, v := range c.Fields {
		out[k] = v
	}
	out[fieldID] = string(c.ID)
	out[fieldType] = c.Type
	if c.Children != nil {
		children := make([]string, len(c.Children))
		for i, id := range c.Children {
			children[i] = string(id)
		}
		out[fieldChildren] = children
	}
	if c.DataPath != "" {
		out[fieldDataPath] = c.DataPath
	}
	return out
}

// UnmarshalJSON decodes a flat component object.
func (c *Component) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := parseComponent(raw, "", "component")
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Equal reports whether two components carry the same content.
func (c *Component) Equal(other *Component) bool {
	if c == nil || other == nil {
		return c == other
	}
	a, err := json.Marshal(c)
	if err != nil {
		return false
	}
	b, err := json.Marshal(other)
	if err != nil {
		return false
	}
	return string(a) == string(b)
}

// deepCopy clones JSON-like values so parsed messages never alias the
// caller's decoded input.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}

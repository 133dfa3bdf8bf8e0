package protocol

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/c360/surfacestream/errors"
)

// discriminators maps every accepted top-level key to its variant.
var discriminators = map[string]MessageKind{
	"beginRendering":   KindBeginRendering,
	"updateComponents": KindSurfaceUpdate,
	"surfaceUpdate":    KindSurfaceUpdate,
	"updateDataModel":  KindDataModelUpdate,
	"dataModelUpdate":  KindDataModelUpdate,
	"deleteSurface":    KindDeleteSurface,
}

// ParseMessage validates a decoded JSON value and returns the typed message.
func ParseMessage(raw any) (Message, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &MessageParseError{
			Reason: ReasonNotObject,
			Detail: fmt.Sprintf("got %s", jsonKind(raw)),
			Raw:    raw,
		}
	}

	var keys []string
	for k := range obj {
		if _, known := discriminators[k]; known {
			keys = append(keys, k)
		}
	}

	switch len(keys) {
	case 0:
		return nil, &MessageParseError{
			Reason: ReasonUnknownMessage,
			Detail: "no recognized message key",
			Raw:    raw,
		}
	case 1:
	default:
		sort.Strings(keys)
		return nil, &MessageParseError{
			Reason: ReasonAmbiguous,
			Detail: "multiple message keys: " + strings.Join(keys, ", "),
			Raw:    raw,
		}
	}

	key := keys[0]
	body, ok := obj[key].(map[string]any)
	if !ok {
		return nil, invalidField(raw, key, "expected object, got %s", jsonKind(obj[key]))
	}

	switch discriminators[key] {
	case KindBeginRendering:
		return parseBeginRendering(raw, key, body)
	case KindSurfaceUpdate:
		return parseSurfaceUpdate(raw, key, body)
	case KindDataModelUpdate:
		return parseDataModelUpdate(raw, key, body)
	default:
		return parseDeleteSurface(raw, key, body)
	}
}

// ParseMessageJSON decodes one JSON document and parses it.
func ParseMessageJSON(data []byte) (Message, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapInvalid(err, "protocol", "ParseMessageJSON", "json decode")
	}
	return ParseMessage(raw)
}

func parseBeginRendering(raw any, key string, body map[string]any) (Message, error) {
	surfaceID, err := requireString(raw, body, key, "surfaceId")
	if err != nil {
		return nil, err
	}
	root, err := requireString(raw, body, key, "root")
	if err != nil {
		return nil, err
	}
	return &BeginRendering{SurfaceID: surfaceID, Root: ComponentID(root)}, nil
}

func parseSurfaceUpdate(raw any, key string, body map[string]any) (Message, error) {
	surfaceID, err := requireString(raw, body, key, "surfaceId")
	if err != nil {
		return nil, err
	}

	field := key + ".components"
	rawList, present := body["components"]
	if !present {
		return nil, missingField(raw, field)
	}
	list, ok := rawList.([]any)
	if !ok {
		return nil, invalidField(raw, field, "expected array, got %s", jsonKind(rawList))
	}

	entries := make([]ComponentEntry, 0, len(list))
	for i, item := range list {
		at := fmt.Sprintf("%s[%d]", field, i)
		entryObj, ok := item.(map[string]any)
		if !ok {
			return nil, invalidField(raw, at, "expected object, got %s", jsonKind(item))
		}

		id, err := requireString(raw, entryObj, at, "id")
		if err != nil {
			return nil, err
		}

		rawComp, present := entryObj["component"]
		if !present {
			return nil, missingField(raw, at+".component")
		}
		comp, err := parseComponent(rawComp, ComponentID(id), at+".component")
		if err != nil {
			if pe, ok := err.(*MessageParseError); ok {
				pe.Raw = raw
			}
			return nil, err
		}
		entries = append(entries, ComponentEntry{ID: ComponentID(id), Component: comp})
	}

	return &SurfaceUpdate{SurfaceID: surfaceID, Components: entries}, nil
}

func parseDataModelUpdate(raw any, key string, body map[string]any) (Message, error) {
	msg := &DataModelUpdate{}

	if rawPath, present := body["path"]; present {
		p, ok := rawPath.(string)
		if !ok {
			return nil, invalidField(raw, key+".path", "expected string, got %s", jsonKind(rawPath))
		}
		msg.Path = p
		msg.HasPath = true
	}

	value, present := body["value"]
	if !present {
		value, present = body["contents"]
	}
	if !present {
		return nil, missingField(raw, key+".value")
	}
	msg.Value = deepCopy(value)

	return msg, nil
}

func parseDeleteSurface(raw any, key string, body map[string]any) (Message, error) {
	surfaceID, err := requireString(raw, body, key, "surfaceId")
	if err != nil {
		return nil, err
	}
	return &DeleteSurface{SurfaceID: surfaceID}, nil
}

// parseComponent reads a flat component object. entryID, when set, is the
// id the component is stored under and the default for a missing inner id.
func parseComponent(v any, entryID ComponentID, field string) (Component, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Component{}, invalidField(v, field, "expected object, got %s", jsonKind(v))
	}

	typ, err := requireString(v, obj, field, fieldType)
	if err != nil {
		return Component{}, err
	}

	comp := Component{ID: entryID, Type: typ}

	if rawID, present := obj[fieldID]; present {
		id, ok := rawID.(string)
		if !ok || id == "" {
			return Component{}, invalidField(v, field+".id", "expected non-empty string")
		}
		if entryID != "" && ComponentID(id) != entryID {
			return Component{}, invalidField(v, field+".id", "component id %q does not match entry id %q", id, entryID)
		}
		comp.ID = ComponentID(id)
	}
	if comp.ID == "" {
		return Component{}, missingField(v, field+".id")
	}

	if rawChildren, present := obj[fieldChildren]; present {
		list, ok := rawChildren.([]any)
		if !ok {
			return Component{}, invalidField(v, field+".children", "expected array, got %s", jsonKind(rawChildren))
		}
		comp.Children = make([]ComponentID, len(list))
		for i, c := range list {
			s, ok := c.(string)
			if !ok {
				return Component{}, invalidField(v, fmt.Sprintf("%s.children[%d]", field, i), "expected string, got %s", jsonKind(c))
			}
			comp.Children[i] = ComponentID(s)
		}
	}

	if rawPath, present := obj[fieldDataPath]; present {
		s, ok := rawPath.(string)
		if !ok {
			return Component{}, invalidField(v, field+".dataPath", "expected string, got %s", jsonKind(rawPath))
		}
		comp.DataPath = s
	}

	for k, val := range obj {
		switch k {
		case fieldID, fieldType, fieldChildren, fieldDataPath:
			continue
		}
		if comp.Fields == nil {
			comp.Fields = make(map[string]any, len(obj))
		}
		comp.Fields[k] = deepCopy(val)
	}

	return comp, nil
}

func requireString(raw any, obj map[string]any, parent, name string) (string, error) {
	field := parent + "." + name
	v, present := obj[name]
	if !present {
		return "", missingField(raw, field)
	}
	s, ok := v.(string)
	if !ok {
		return "", invalidField(raw, field, "expected string, got %s", jsonKind(v))
	}
	if s == "" {
		return "", invalidField(raw, field, "must not be empty")
	}
	return s, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number, int, int64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

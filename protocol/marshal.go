package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/c360/surfacestream/errors"
)

// Wire returns the canonical wire form of m as a JSON-like value.
func Wire(m Message) (map[string]any, error) {
	switch v := m.(type) {
	case *BeginRendering:
		return map[string]any{
			string(KindBeginRendering): map[string]any{
				"surfaceId": v.SurfaceID,
				"root":      string(v.Root),
			},
		}, nil

	case *SurfaceUpdate:
		comps := make([]any, len(v.Components))
		for i, e := range v.Components {
			comps[i] = map[string]any{
				"id":        string(e.ID),
				"component": e.Component.wire(),
			}
		}
		return map[string]any{
			string(KindSurfaceUpdate): map[string]any{
				"surfaceId":  v.SurfaceID,
				"components": comps,
			},
		}, nil

	case *DataModelUpdate:
		body := map[string]any{"value": v.Value}
		if v.HasPath {
			body["path"] = v.Path
		}
		return map[string]any{string(KindDataModelUpdate): body}, nil

	case *DeleteSurface:
		return map[string]any{
			string(KindDeleteSurface): map[string]any{"surfaceId": v.SurfaceID},
		}, nil

	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %T", errors.ErrInvalidData, m),
			"protocol", "Wire", "unsupported message",
		)
	}
}

// MarshalMessage encodes m as a single JSON line without the trailing newline.
func MarshalMessage(m Message) ([]byte, error) {
	w, err := Wire(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

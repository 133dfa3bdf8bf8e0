package protocol

// MessageKind names a message variant by its canonical discriminator key.
type MessageKind string

const (
	KindBeginRendering  MessageKind = "beginRendering"
	KindSurfaceUpdate   MessageKind = "updateComponents"
	KindDataModelUpdate MessageKind = "updateDataModel"
	KindDeleteSurface   MessageKind = "deleteSurface"
)

// String returns the discriminator key.
func (k MessageKind) String() string {
	return string(k)
}

// Message is one protocol operation. The set of implementations is closed.
type Message interface {
	Kind() MessageKind
	isMessage()
}

// BeginRendering creates or resets a surface.
type BeginRendering struct {
	SurfaceID string
	Root      ComponentID
}

// SurfaceUpdate upserts components into an existing surface.
type SurfaceUpdate struct {
	SurfaceID  string
	Components []ComponentEntry
}

// DataModelUpdate writes Value at Path in the shared data model. An absent
// or empty Path replaces the whole model.
type DataModelUpdate struct {
	Path    string
	HasPath bool
	Value   any
}

// DeleteSurface removes a surface.
type DeleteSurface struct {
	SurfaceID string
}

func (*BeginRendering) Kind() MessageKind  { return KindBeginRendering }
func (*SurfaceUpdate) Kind() MessageKind   { return KindSurfaceUpdate }
func (*DataModelUpdate) Kind() MessageKind { return KindDataModelUpdate }
func (*DeleteSurface) Kind() MessageKind   { return KindDeleteSurface }

func (*BeginRendering) isMessage()  {}
func (*SurfaceUpdate) isMessage()   {}
func (*DataModelUpdate) isMessage() {}
func (*DeleteSurface) isMessage()   {}

// AsBeginRendering narrows m.
func AsBeginRendering(m Message) (*BeginRendering, bool) {
	v, ok := m.(*BeginRendering)
	return v, ok && v != nil
}

// AsSurfaceUpdate narrows m.
func AsSurfaceUpdate(m Message) (*SurfaceUpdate, bool) {
	v, ok := m.(*SurfaceUpdate)
	return v, ok && v != nil
}

// AsDataModelUpdate narrows m.
func AsDataModelUpdate(m Message) (*DataModelUpdate, bool) {
	v, ok := m.(*DataModelUpdate)
	return v, ok && v != nil
}

// AsDeleteSurface narrows m.
func AsDeleteSurface(m Message) (*DeleteSurface, bool) {
	v, ok := m.(*DeleteSurface)
	return v, ok && v != nil
}

// TargetSurface returns the surface a message addresses, or "" for data
// model updates.
func TargetSurface(m Message) string {
	switch v := m.(type) {
	case *BeginRendering:
		return v.SurfaceID
	case *SurfaceUpdate:
		return v.SurfaceID
	case *DeleteSurface:
		return v.SurfaceID
	default:
		return ""
	}
}

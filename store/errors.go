package store

import (
	stderrors "errors"
	"fmt"

	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/protocol"
)

// ErrMissingRoot is returned by Surface.Walk when the root component has not
// been defined yet.
var ErrMissingRoot = stderrors.New("root component not defined")

// SkipChildren can be returned from a Walk callback to skip the children of
// the current component.
var SkipChildren = stderrors.New("skip children")

// UnknownSurfaceError reports an operation against a surface that does not
// exist.
type UnknownSurfaceError struct {
	SurfaceID string
	Op        protocol.MessageKind
}

func (e *UnknownSurfaceError) Error() string {
	return fmt.Sprintf("%s: unknown surface %q", e.Op, e.SurfaceID)
}

// Is matches errors.ErrUnknownSurface.
func (e *UnknownSurfaceError) Is(target error) bool {
	return target == errors.ErrUnknownSurface
}

// CycleError reports a component reached twice while walking a surface.
type CycleError struct {
	SurfaceID string
	ID        protocol.ComponentID
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("surface %q: component %q visited twice", e.SurfaceID, e.ID)
}

// Is matches errors.ErrCycle.
func (e *CycleError) Is(target error) bool {
	return target == errors.ErrCycle
}

// ListenerPanicError reports a subscriber that panicked while being notified.
// The snapshot was already published when it happened.
type ListenerPanicError struct {
	Version uint64
	Value   any
}

func (e *ListenerPanicError) Error() string {
	return fmt.Sprintf("listener panicked at version %d: %v", e.Version, e.Value)
}

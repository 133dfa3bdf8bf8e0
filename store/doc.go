// Package store holds surface and data model state and applies protocol
// messages to it.
//
// State is published as immutable *Snapshot values. Every successful Apply
// builds a new snapshot that shares every untouched surface, component and
// data model branch with the previous one, then notifies subscribers
// synchronously in subscription order. Readers on other goroutines may call
// Snapshot, Surface and DataModel at any time; they see only fully applied
// messages.
//
// Messages referencing a surface that does not exist are rejected with
// *UnknownSurfaceError: the state is left untouched, the error goes to the
// reporter and no notification is sent. The store stays usable.
//
// A subscriber may call Apply, Subscribe or an unsubscribe function from
// inside its callback. Nested Apply calls are queued and applied, in order,
// once the current notification round has finished. Changes to the
// subscriber list take effect from the next notification.
//
// Snapshots and surfaces returned by the store must be treated as read-only.
package store

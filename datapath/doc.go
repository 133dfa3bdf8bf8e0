// Package datapath reads and writes values in a nested JSON-like tree
// (map[string]any, []any and scalars) addressed by dot-and-bracket paths
// such as "user.addresses[0].city".
//
// # Grammar
//
//	path    = "" | segment { "." segment }
//	segment = name { "[" digits "]" }
//	name    = 1*( char | "\" anychar )      ; char excludes . [ ] \
//
// The empty path addresses the whole tree.
//
// # Write semantics
//
// Set never mutates its input. Every container on the written path is
// shallow-copied and all other branches are shared with the input tree, so a
// previously returned tree stays valid as a snapshot.
//
// Missing intermediates are created: a name creates map[string]any, an index
// creates []any. Writing past the end of a slice grows it to exactly index+1,
// padding with nil. Resolver.Set refuses indices above its limit
// (DefaultMaxIndex unless WithMaxIndex says otherwise) with *IndexRangeError.
//
// When an existing intermediate has the wrong shape (a scalar where a map or
// slice is needed, or a map where a slice is needed) it is replaced by a fresh
// container. Last write wins; Set does not fail on shape conflicts.
package datapath

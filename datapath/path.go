package datapath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/c360/surfacestream/errors"
)

// Segment is one step of a Path: either a map key or a slice index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path is a parsed path. The zero-length Path addresses the root.
type Path []Segment

// PathSyntaxError reports a malformed path string.
type PathSyntaxError struct {
	Path   string
	Offset int
	Reason string
}

func (e *PathSyntaxError) Error() string {
	return fmt.Sprintf("invalid path %q at offset %d: %s", e.Path, e.Offset, e.Reason)
}

// Is matches errors.ErrPathSyntax.
func (e *PathSyntaxError) Is(target error) bool {
	return target == errors.ErrPathSyntax
}

// IndexRangeError reports a write whose index exceeds the resolver's limit.
// Growing a slice to such an index would allocate without bound.
type IndexRangeError struct {
	Path  string
	Index int
	Max   int
}

func (e *IndexRangeError) Error() string {
	return fmt.Sprintf("invalid path %q: index %d exceeds limit %d", e.Path, e.Index, e.Max)
}

// Is matches errors.ErrPathSyntax.
func (e *IndexRangeError) Is(target error) bool {
	return target == errors.ErrPathSyntax
}

// String renders the canonical form of the path, escaping special characters
// in key names.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		if seg.IsIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteByte(']')
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		for j := 0; j < len(seg.Key); j++ {
			switch c := seg.Key[j]; c {
			case '.', '[', ']', '\\':
				b.WriteByte('\\')
				b.WriteByte(c)
			default:
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

// Parse parses a path string. The result is owned by the caller.
func Parse(path string) (Path, error) {
	p, err := defaultResolver.Lookup(path)
	if err != nil {
		return nil, err
	}
	return append(Path(nil), p...), nil
}

func parse(s string) (Path, error) {
	if s == "" {
		return Path{}, nil
	}

	fail := func(offset int, reason string) (Path, error) {
		return nil, &PathSyntaxError{Path: s, Offset: offset, Reason: reason}
	}

	var out Path
	i, n := 0, len(s)
	for {
		start := i
		var name strings.Builder
		for i < n && s[i] != '.' && s[i] != '[' {
			switch s[i] {
			case ']':
				return fail(i, "unbalanced ']'")
			case '\\':
				if i+1 >= n {
					return fail(i, "trailing escape")
				}
				name.WriteByte(s[i+1])
				i += 2
			default:
				name.WriteByte(s[i])
				i++
			}
		}
		if name.Len() == 0 {
			return fail(start, "empty segment")
		}
		out = append(out, Segment{Key: name.String()})

		for i < n && s[i] == '[' {
			open := i
			j := i + 1
			for j < n && s[j] != ']' {
				if s[j] == '[' {
					return fail(j, "nested '['")
				}
				j++
			}
			if j >= n {
				return fail(open, "unbalanced '['")
			}
			digits := s[open+1 : j]
			if digits == "" {
				return fail(open, "empty index")
			}
			for k := 0; k < len(digits); k++ {
				if digits[k] < '0' || digits[k] > '9' {
					return fail(open+1+k, "index must be a non-negative integer")
				}
			}
			idx, err := strconv.Atoi(digits)
			if err != nil {
				return fail(open+1, "index out of range")
			}
			out = append(out, Segment{Index: idx, IsIndex: true})
			i = j + 1
		}

		if i == n {
			return out, nil
		}
		if s[i] != '.' {
			return fail(i, fmt.Sprintf("unexpected %q after index", s[i]))
		}
		i++
		if i == n {
			return fail(i, "empty segment")
		}
	}
}

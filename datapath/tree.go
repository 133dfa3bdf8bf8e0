package datapath

// GetPath walks a parsed path.
func GetPath(tree any, p Path) (any, bool) {
	node := tree
	for _, seg := range p {
		if seg.IsIndex {
			arr, ok := node.([]any)
			if !ok || seg.Index >= len(arr) {
				return nil, false
			}
			node = arr[seg.Index]
			continue
		}
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[seg.Key]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// SetPath returns a copy of tree with value written at p, copying only the
// containers along p. Indices are not bounded here; Resolver.Set checks them
// before a slice is grown.
func SetPath(tree any, p Path, value any) any {
	if len(p) == 0 {
		return value
	}
	seg, rest := p[0], p[1:]

	if seg.IsIndex {
		// Non-slices are overwritten
		arr, _ := tree.([]any)
		size := len(arr)
		if seg.Index >= size {
			size = seg.Index + 1
		}
		out := make([]any, size)
		copy(out, arr)
		out[seg.Index] = SetPath(out[seg.Index], rest, value)
		return out
	}

	m, _ := tree.(map[string]any)
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[seg.Key] = SetPath(m[seg.Key], rest, value)
	return out
}

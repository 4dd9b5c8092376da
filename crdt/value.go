package crdt

// wrapChild wraps a plain scalar in a Register so it can be stored as
// a Map or List child; a value that already satisfies Node (an
// Object, Map, List, or Register the caller built directly) passes
// through unchanged, per spec.md §4.3 "Scalars supplied to Map/List
// are auto-wrapped in a Register".
func wrapChild(v any) Node {
	if n, ok := v.(Node); ok {
		return n
	}
	return NewRegister(v)
}

// unwrapChild returns what a Map/List read should hand back to the
// caller: a Register's scalar, or the child node itself for any other
// variant (spec.md §4.4 "Reads return the Register's scalar if the
// child is a Register, else the child node itself").
func unwrapChild(n Node) any {
	if reg, ok := n.(*Register); ok {
		return reg.Value()
	}
	return n
}

// toPlain recursively converts a node-graph value into plain Go
// values (map[string]any, []any, or a scalar), the read-side
// counterpart to Serialize used by Object.ToObject.
func toPlain(v any) any {
	switch n := v.(type) {
	case *Register:
		return n.Value()
	case *Object:
		return n.ToObject()
	case *Map:
		out := make(map[string]any, n.Size())
		n.ForEach(func(key string, child Node) bool {
			out[key] = toPlain(unwrapChild(child))
			return true
		})
		return out
	case *List:
		out := make([]any, 0, n.Length())
		n.ForEach(func(_ int, child Node) bool {
			out = append(out, toPlain(unwrapChild(child)))
			return true
		})
		return out
	default:
		return v
	}
}

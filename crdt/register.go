package crdt

import "fmt"

// Register is an immutable wrapper around one JSON-serializable scalar
// value (spec.md §4.6). Map and List values are auto-wrapped in a
// Register so that scalars participate in the node graph uniformly
// (identity, attach/detach); a change in value is expressed by
// replacing the Register, never by mutating one in place.
type Register struct {
	nodeBase
	value any
}

// NewRegister wraps value in a new, unattached Register.
func NewRegister(value any) *Register {
	return &Register{value: value}
}

func (r *Register) Kind() NodeType { return NodeRegister }

// Value returns the wrapped scalar.
func (r *Register) Value() any { return r.value }

func (r *Register) Attach(id string, doc *Document) error {
	return r.registerSelf(r, id, doc)
}

func (r *Register) Detach() {
	if parent := r.parent; parent != nil {
		parent.DetachChild(r)
	}
	r.unregisterSelf()
}

func (r *Register) AttachChild(_, _ string, _ Node) error {
	return fmt.Errorf("crdt: Register %q cannot hold children", r.id)
}

func (r *Register) DetachChild(Node) {}

func (r *Register) Serialize(parentID, parentKey *string) []Op {
	return []Op{{
		Type:      OpCreateRegister,
		ID:        r.id,
		ParentID:  parentID,
		ParentKey: parentKey,
		Scalar:    r.value,
	}}
}

// Apply handles ops Document routes straight to this Register by id.
// DeleteCrdt arrives when a peer removes this Register's slot outright.
// SetParentKey arrives when a List containing this Register (scalars
// are auto-wrapped in a Register, see wrapChild in value.go) moves
// it to a new position — List.Move addresses the moving child's id
// directly, so a Register can be that child. Both are handled with the
// same shared helpers the other node variants use.
func (r *Register) Apply(op Op) ApplyResult {
	switch op.Type {
	case OpDeleteCrdt:
		return applyDelete(r, &r.nodeBase)
	case OpSetParentKey:
		return applyParentKeyChange(r, &r.nodeBase, op)
	default:
		return ApplyResult{}
	}
}

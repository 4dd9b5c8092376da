package crdt

// Map is an unordered keyed container of child nodes (spec.md §4.4).
// Unlike Object, every value is a node — scalars are auto-wrapped in
// a Register — and there is no ordered-dictionary requirement, so a
// plain Go map is the correct container here (contrast with Object's
// ordered dictionary in object.go).
type Map struct {
	nodeBase
	children map[string]Node
}

// NewMap constructs an unattached Map, optionally seeded with initial
// entries. Scalars in initial are wrapped in Registers; node values
// are attached recursively once the Map itself is attached.
func NewMap(initial map[string]any) *Map {
	m := &Map{children: make(map[string]Node, len(initial))}
	for k, v := range initial {
		child := wrapChild(v)
		_ = child.SetParentLink(m, k)
		m.children[k] = child
	}
	return m
}

func (m *Map) Kind() NodeType { return NodeMap }

// Get returns the value stored at key, unwrapping a Register to its
// scalar, and whether key is present.
func (m *Map) Get(key string) (any, bool) {
	child, ok := m.children[key]
	if !ok {
		return nil, false
	}
	return unwrapChild(child), true
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.children[key]
	return ok
}

// Size returns the number of entries.
func (m *Map) Size() int { return len(m.children) }

// ForEach calls fn for every entry until fn returns false. Iteration
// order is unspecified, matching the unordered contract of Map.
func (m *Map) ForEach(fn func(key string, child Node) bool) {
	for k, v := range m.children {
		if !fn(k, v) {
			return
		}
	}
}

// Set stores value at key, wrapping scalars in a Register, detaching
// any prior value, and dispatching the creation op for the new
// subtree with a reverse that restores the prior value (spec.md §4.4).
func (m *Map) Set(key string, value any) error {
	newChild := wrapChild(value)
	doc := m.document()

	var newID string
	if doc != nil {
		newID = doc.mintID()
	}

	var reverse []Op
	if prior, exists := m.children[key]; exists {
		parentID := m.id
		reverse = prior.Serialize(&parentID, strPtr(key))
		prior.Detach()
	} else if doc != nil {
		reverse = []Op{{Type: OpDeleteCrdt, ID: newID}}
	}

	if err := m.AttachChild(newID, key, newChild); err != nil {
		return err
	}

	if doc == nil {
		return nil
	}
	forward := newChild.Serialize(strPtr(m.id), strPtr(key))
	doc.dispatch(forward, reverse, []Node{m})
	return nil
}

// Delete removes key, dispatching DeleteCrdt with a reverse that
// restores the deleted child's full serialization.
func (m *Map) Delete(key string) error {
	child, exists := m.children[key]
	if !exists {
		return nil
	}
	parentID := m.id
	reverse := child.Serialize(&parentID, strPtr(key))
	childID := child.ID()
	child.Detach()

	if doc := m.document(); doc != nil {
		doc.dispatch([]Op{{Type: OpDeleteCrdt, ID: childID}}, reverse, []Node{m})
	}
	return nil
}

func (m *Map) Attach(id string, doc *Document) error {
	for key, child := range m.children {
		childID := doc.mintID()
		if err := child.Attach(childID, doc); err != nil {
			return err
		}
		_ = child.SetParentLink(m, key)
	}
	return m.registerSelf(m, id, doc)
}

func (m *Map) Detach() {
	for _, child := range m.children {
		child.Detach()
	}
	m.children = map[string]Node{}
	if parent := m.parent; parent != nil {
		parent.DetachChild(m)
	}
	m.unregisterSelf()
}

func (m *Map) AttachChild(id, key string, child Node) error {
	if err := child.SetParentLink(m, key); err != nil {
		return err
	}
	if id != "" && m.doc != nil {
		if err := child.Attach(id, m.doc); err != nil {
			return err
		}
	}
	m.children[key] = child
	return nil
}

func (m *Map) DetachChild(child Node) {
	for k, v := range m.children {
		if v.ID() == child.ID() {
			delete(m.children, k)
			return
		}
	}
}

func (m *Map) Serialize(parentID, parentKey *string) []Op {
	ops := []Op{{Type: OpCreateMap, ID: m.id, ParentID: parentID, ParentKey: parentKey}}
	for key, child := range m.children {
		ops = append(ops, child.Serialize(strPtr(m.id), strPtr(key))...)
	}
	return ops
}

func (m *Map) Apply(op Op) ApplyResult {
	switch op.Type {
	case OpDeleteCrdt:
		return applyDelete(m, &m.nodeBase)
	case OpSetParentKey:
		return applyParentKeyChange(m, &m.nodeBase, op)
	default:
		return ApplyResult{}
	}
}

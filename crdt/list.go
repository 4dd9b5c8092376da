package crdt

import (
	"github.com/google/btree"

	"github.com/cshekharsharma/treecrdt/position"
)

// listEntry pairs a child node with its position key inside a List's
// ordered index.
type listEntry struct {
	position string
	child    Node
}

func listEntryLess(a, b *listEntry) bool {
	return position.Less(a.position, b.position)
}

// List is an ordered sequence of child nodes keyed by position string
// (spec.md §4.5). Children are kept in a B-tree ordered by position
// rather than a slice kept sorted by hand: insert, neighbour lookup,
// and the same-position collision check on a remote create (below)
// all need an ordered-index query, which is exactly what
// github.com/google/btree provides (see SPEC_FULL.md §3). This plays
// the role the teacher's rga.go linked-list traversal plays for RGA
// sibling ordering, adapted from Lamport-ID ordering to dense position
// strings.
type List struct {
	nodeBase
	tree *btree.BTreeG[*listEntry]
}

// NewList constructs an unattached List, optionally seeded with
// initial elements in order. Scalars are wrapped in Registers.
func NewList(initial []any) *List {
	l := &List{tree: btree.NewG(32, listEntryLess)}
	prevPos := ""
	for _, v := range initial {
		child := wrapChild(v)
		pos := position.After(prevPos)
		_ = child.SetParentLink(l, pos)
		l.tree.ReplaceOrInsert(&listEntry{position: pos, child: child})
		prevPos = pos
	}
	return l
}

func (l *List) Kind() NodeType { return NodeList }

func (l *List) entries() []*listEntry {
	out := make([]*listEntry, 0, l.tree.Len())
	l.tree.Ascend(func(e *listEntry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Length returns the number of elements.
func (l *List) Length() int { return l.tree.Len() }

func (l *List) entryAt(index int) (*listEntry, error) {
	if index < 0 || index >= l.tree.Len() {
		return nil, ErrIndexOutOfRange
	}
	return l.entries()[index], nil
}

// Get returns the element at index, unwrapping a Register to its
// scalar value.
func (l *List) Get(index int) (any, error) {
	e, err := l.entryAt(index)
	if err != nil {
		return nil, err
	}
	return unwrapChild(e.child), nil
}

// ToArray returns every element in order, unwrapping Registers.
func (l *List) ToArray() []any {
	es := l.entries()
	out := make([]any, len(es))
	for i, e := range es {
		out[i] = unwrapChild(e.child)
	}
	return out
}

// ForEach calls fn with each (index, child node) pair in order until
// fn returns false. Unlike ToArray/Get, the raw child node is passed
// uninwrapped so callers needing node identity (e.g. toPlain) don't
// have to re-look it up.
func (l *List) ForEach(fn func(index int, child Node) bool) {
	for i, e := range l.entries() {
		if !fn(i, e.child) {
			return
		}
	}
}

// Find returns the first element (unwrapped) satisfying pred.
func (l *List) Find(pred func(v any) bool) (any, bool) {
	for _, e := range l.entries() {
		if v := unwrapChild(e.child); pred(v) {
			return v, true
		}
	}
	return nil, false
}

// FindIndex returns the index of the first element satisfying pred,
// or -1 if none does.
func (l *List) FindIndex(pred func(v any) bool) int {
	for i, e := range l.entries() {
		if pred(unwrapChild(e.child)) {
			return i
		}
	}
	return -1
}

// Some reports whether any element satisfies pred.
func (l *List) Some(pred func(v any) bool) bool {
	return l.FindIndex(pred) >= 0
}

// Push appends value, equivalent to Insert(value, l.Length()).
func (l *List) Push(value any) error {
	return l.Insert(value, l.Length())
}

// Insert places value at index, shifting nothing physically — it
// mints a position strictly between the current neighbours at index
// (spec.md §4.5). index == Length() is allowed (append); anything
// outside [0, Length()] is rejected (spec.md §9, the insert/delete
// asymmetry is intentional).
func (l *List) Insert(value any, index int) error {
	n := l.tree.Len()
	if index < 0 || index > n {
		return ErrIndexOutOfRange
	}
	es := l.entries()
	var before, after string
	if index > 0 {
		before = es[index-1].position
	}
	if index < n {
		after = es[index].position
	}
	pos := position.Between(before, after)
	child := wrapChild(value)

	doc := l.document()
	var newID string
	if doc != nil {
		newID = doc.mintID()
	}

	if err := l.AttachChild(newID, pos, child); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	forward := child.Serialize(strPtr(l.id), strPtr(pos))
	reverse := []Op{{Type: OpDeleteCrdt, ID: newID}}
	doc.dispatch(forward, reverse, []Node{l})
	return nil
}

// Move relocates the element at from to land at index to in the
// resulting sequence (spec.md §4.5): the new position is computed from
// the neighbours at index to once the moving element has conceptually
// been removed.
func (l *List) Move(from, to int) error {
	n := l.tree.Len()
	if from < 0 || from >= n {
		return ErrIndexOutOfRange
	}
	if to < 0 || to >= n {
		return ErrIndexOutOfRange
	}
	if from == to {
		return nil
	}
	es := l.entries()
	moving := es[from]
	rest := make([]*listEntry, 0, n-1)
	for i, e := range es {
		if i != from {
			rest = append(rest, e)
		}
	}
	var before, after string
	if to > 0 {
		before = rest[to-1].position
	}
	if to < len(rest) {
		after = rest[to].position
	}
	newPos := position.Between(before, after)
	prevPos := moving.position

	l.tree.Delete(moving)
	moving.position = newPos
	l.tree.ReplaceOrInsert(moving)
	_ = moving.child.SetParentLink(l, newPos)

	if doc := l.document(); doc != nil {
		forward := []Op{{Type: OpSetParentKey, ID: moving.child.ID(), ParentKey: strPtr(newPos)}}
		reverse := []Op{{Type: OpSetParentKey, ID: moving.child.ID(), ParentKey: strPtr(prevPos)}}
		doc.dispatch(forward, reverse, []Node{l})
	}
	return nil
}

// Delete removes the element at index, dispatching DeleteCrdt with a
// reverse that restores the child's full serialization including its
// prior position (spec.md §4.5). index must be < Length().
func (l *List) Delete(index int) error {
	e, err := l.entryAt(index)
	if err != nil {
		return err
	}
	parentID := l.id
	reverse := e.child.Serialize(&parentID, strPtr(e.position))
	childID := e.child.ID()
	e.child.Detach()

	if doc := l.document(); doc != nil {
		doc.dispatch([]Op{{Type: OpDeleteCrdt, ID: childID}}, reverse, []Node{l})
	}
	return nil
}

func (l *List) Attach(id string, doc *Document) error {
	for _, e := range l.entries() {
		childID := doc.mintID()
		if err := e.child.Attach(childID, doc); err != nil {
			return err
		}
		_ = e.child.SetParentLink(l, e.position)
	}
	return l.registerSelf(l, id, doc)
}

func (l *List) Detach() {
	for _, e := range l.entries() {
		e.child.Detach()
	}
	l.tree.Clear(false)
	if parent := l.parent; parent != nil {
		parent.DetachChild(l)
	}
	l.unregisterSelf()
}

// AttachChild integrates child at position key. If an existing local
// child already occupies that exact position — because a concurrent
// local insert minted the identical deterministic key — the existing
// child is relocated forward first, per spec.md §4.5 "Conflict
// resolution on remote insert".
func (l *List) AttachChild(id, key string, child Node) error {
	if err := child.SetParentLink(l, key); err != nil {
		return err
	}
	if existing, found := l.tree.Get(&listEntry{position: key}); found {
		l.relocate(existing)
	}
	if id != "" && l.doc != nil {
		if err := child.Attach(id, l.doc); err != nil {
			return err
		}
	}
	l.tree.ReplaceOrInsert(&listEntry{position: key, child: child})
	return nil
}

// relocate pushes existing one slot further out, making room for an
// incoming child at existing's current position.
func (l *List) relocate(existing *listEntry) {
	oldPos := existing.position
	var nextPos string
	count := 0
	l.tree.AscendGreaterOrEqual(existing, func(e *listEntry) bool {
		count++
		if count == 2 {
			nextPos = e.position
			return false
		}
		return true
	})
	newPos := position.Between(oldPos, nextPos)

	l.tree.Delete(existing)
	existing.position = newPos
	l.tree.ReplaceOrInsert(existing)
	_ = existing.child.SetParentLink(l, newPos)

	if l.doc != nil {
		l.doc.log.Warn().
			Str("list", l.id).
			Str("from", oldPos).
			Str("to", newPos).
			Msg("relocated locally-colliding list child ahead of remote create")
	}
}

func (l *List) DetachChild(child Node) {
	target := l.findEntry(child.ID())
	if target != nil {
		l.tree.Delete(target)
	}
}

// repositionChild is the List-side half of applying a remote
// SetParentKey (spec.md §4.5 "Remote SetParentKey").
func (l *List) repositionChild(child Node, newPos string) {
	target := l.findEntry(child.ID())
	if target == nil {
		return
	}
	l.tree.Delete(target)
	target.position = newPos
	l.tree.ReplaceOrInsert(target)
	_ = child.SetParentLink(l, newPos)
}

func (l *List) findEntry(childID string) *listEntry {
	var target *listEntry
	l.tree.Ascend(func(e *listEntry) bool {
		if e.child.ID() == childID {
			target = e
			return false
		}
		return true
	})
	return target
}

func (l *List) Serialize(parentID, parentKey *string) []Op {
	ops := []Op{{Type: OpCreateList, ID: l.id, ParentID: parentID, ParentKey: parentKey}}
	for _, e := range l.entries() {
		ops = append(ops, e.child.Serialize(strPtr(l.id), strPtr(e.position))...)
	}
	return ops
}

func (l *List) Apply(op Op) ApplyResult {
	switch op.Type {
	case OpDeleteCrdt:
		return applyDelete(l, &l.nodeBase)
	case OpSetParentKey:
		return applyParentKeyChange(l, &l.nodeBase, op)
	default:
		return ApplyResult{}
	}
}

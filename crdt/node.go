package crdt

// Node is the contract every variant (Object, Map, List, Register)
// satisfies, per spec.md §4.2. The document routes operations and
// holds references to the tree exclusively through this interface;
// concrete variant types appear only in a few type assertions (e.g.
// detecting a List parent for a SetParentKey op, or Document's
// setNodeIdentity stamping ids during Load).
type Node interface {
	// ID returns the node's identity, or "" if not yet attached.
	ID() string

	// Kind reports which of the four variants this node is.
	Kind() NodeType

	// ParentNode returns the attached parent, or nil for the root or
	// a detached node.
	ParentNode() Node

	// ParentKey returns the key (Object/Map) or position (List) this
	// node is stored under in its parent, or "" if unattached/root.
	ParentKey() string

	// SetParentLink records parent/key. Returns an invariant-violation
	// error if the node already has a different parent.
	SetParentLink(parent Node, key string) error

	// Attach registers the node (and, for a node constructed with
	// child nodes already in memory, its descendants) into doc's id
	// index under id.
	Attach(id string, doc *Document) error

	// Detach recursively detaches this node's subtree and removes it
	// from the document's id index. It is a no-op if already detached.
	Detach()

	// AttachChild integrates child as this node's child under key,
	// wiring its parent link and attaching it to the same document.
	// Only meaningful for the container variants (Object, Map, List);
	// Register returns an error since it has no children.
	AttachChild(id, key string, child Node) error

	// DetachChild removes child from this node's bookkeeping without
	// recursing into child's own subtree (the caller is expected to
	// have called, or be about to call, child.Detach() separately).
	DetachChild(child Node)

	// Serialize returns a creation op for this node carrying the given
	// parentID/parentKey (nil leaves them absent, as for the root)
	// followed by the serialized subtree, in the order Load expects.
	Serialize(parentID, parentKey *string) []Op

	// Apply applies a single remote operation addressed at this node
	// and returns the resulting ApplyResult.
	Apply(op Op) ApplyResult
}

// ApplyResult is the outcome of Node.Apply. Modified is false when the
// operation was a no-op (e.g. an acknowledged echo of a local update);
// when true, Node names the node to report to subscribers and Reverse
// is the op list that undoes the change.
type ApplyResult struct {
	Modified bool
	Node     Node
	Reverse  []Op
}

// nodeBase holds the fields and small helpers shared by every variant:
// identity, document membership, and the parent link. It is embedded
// by Object, Map, List, and Register rather than exposed directly.
//
// Unlike the teacher's counters (gcounter.go, pn_counter.go), nodeBase
// carries no mutex: spec.md §5 mandates a single-threaded cooperative
// model with "no internal locks", so thread-safety here is the host's
// responsibility, not the engine's.
type nodeBase struct {
	id        string
	doc       *Document
	parent    Node
	parentKey string
}

func (b *nodeBase) ID() string        { return b.id }
func (b *nodeBase) ParentNode() Node  { return b.parent }
func (b *nodeBase) ParentKey() string { return b.parentKey }

func (b *nodeBase) SetParentLink(parent Node, key string) error {
	if b.parent != nil && parent != nil && b.parent.ID() != parent.ID() {
		return errAlreadyParented(b.id, b.parent.ID())
	}
	b.parent = parent
	b.parentKey = key
	return nil
}

// registerSelf attaches self into doc's id index. Variants call this
// from their own Attach implementation after recursively attaching
// any children they were constructed with.
func (b *nodeBase) registerSelf(self Node, id string, doc *Document) error {
	if b.doc != nil {
		return errAlreadyAttached(b.id)
	}
	b.id = id
	b.doc = doc
	doc.register(id, self)
	return nil
}

// unregisterSelf removes self from doc's id index. Variants call this
// after detaching their own children.
func (b *nodeBase) unregisterSelf() {
	if b.doc == nil {
		return
	}
	b.doc.unregister(b.id)
	b.doc = nil
}

// document returns the owning document, or nil if unattached. Helper
// for variants building ops that need to mint ids/opIds.
func (b *nodeBase) document() *Document {
	return b.doc
}

// applyParentKeyChange is the shared half of remote SetParentKey
// handling (spec.md §4.2, §4.5 "Remote SetParentKey"): delegated to
// the parent if it is a List, silently ignored otherwise (spec.md §7
// class 4).
func applyParentKeyChange(self Node, b *nodeBase, op Op) ApplyResult {
	list, ok := b.parent.(*List)
	if !ok {
		if b.doc != nil {
			b.doc.log.Debug().Str("id", b.id).Msg("remote SetParentKey on a node whose parent is not a List, ignoring")
		}
		return ApplyResult{}
	}
	newKey := ""
	if op.ParentKey != nil {
		newKey = *op.ParentKey
	}
	prevKey := b.parentKey
	list.repositionChild(self, newKey)
	return ApplyResult{
		Modified: true,
		Node:     self,
		Reverse:  []Op{{Type: OpSetParentKey, ID: b.id, ParentKey: strPtr(prevKey)}},
	}
}

// applyDelete is the shared half of remote DeleteCrdt handling
// (spec.md §4.2): the node serializes itself (so undo can recreate
// the whole subtree), then detaches.
func applyDelete(self Node, b *nodeBase) ApplyResult {
	var parentID, parentKey *string
	if b.parent != nil {
		parentID = strPtr(b.parent.ID())
		parentKey = strPtr(b.parentKey)
	}
	reverse := self.Serialize(parentID, parentKey)
	parent := b.parent
	self.Detach()
	if parent != nil {
		return ApplyResult{Modified: true, Node: parent, Reverse: reverse}
	}
	return ApplyResult{Modified: true, Node: self, Reverse: reverse}
}

package crdt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cshekharsharma/treecrdt/internal/treelog"
)

// BroadcastFunc is the injected transport callback Document calls with
// every committed outbound op list (spec.md §6 "Host interface").
// Network transport, persistence, auth, and UI bindings all live on
// the far side of this function pointer and are out of scope here.
type BroadcastFunc func(ops []Op)

// ModifiedFunc receives the set of nodes changed by one committed unit
// of work (spec.md §4.8).
type ModifiedFunc func(modified []Node)

const defaultUndoLimit = 50

// Document is the replica container: it owns the node population,
// assigns identities, maintains undo/redo and batching state,
// dispatches outbound operations via an injected broadcast callback,
// and applies inbound operations (spec.md §4.7).
//
// Document carries no mutex. spec.md §5 specifies a single-threaded
// cooperative scheduling model with no internal locks — unlike the
// teacher's GCounter/PNCounter, which guard their state with
// sync.RWMutex because they're meant to be shared across goroutines.
// Thread-safety here is explicitly the host's responsibility.
type Document struct {
	actor   int
	clock   int
	opClock int

	root  Node
	nodes map[string]Node

	undoStack [][]Op
	redoStack [][]Op
	maxUndo   int

	batch *batchState

	globalSubs    []*subscription
	nodeSubs      map[string][]*subscription
	deepSubs      []nodeSubscription
	deepSubTarget map[*subscription]string

	broadcast BroadcastFunc
	log       zerolog.Logger
}

type batchState struct {
	forward  []Op
	reverse  []Op
	modified []Node
	seen     map[string]bool
}

type subscription struct {
	cb ModifiedFunc
}

// DocumentOption configures optional Document construction parameters.
type DocumentOption func(*Document)

// WithLogger attaches a zerolog.Logger for debug/warn diagnostics
// (SPEC_FULL.md §2.1). The default is a disabled logger, so embedding
// the engine produces no output unless a caller opts in.
func WithLogger(l zerolog.Logger) DocumentOption {
	return func(d *Document) { d.log = l }
}

// WithUndoLimit overrides the default undo-stack depth of 50
// (spec.md §3 invariant).
func WithUndoLimit(n int) DocumentOption {
	return func(d *Document) { d.maxUndo = n }
}

// NewDocument constructs an empty document around root, attaches it,
// and dispatches root's own serialization as an initial op stream with
// an empty reverse and an empty modified set (spec.md §4.7 "from").
func NewDocument(root Node, actor int, broadcast BroadcastFunc, opts ...DocumentOption) (*Document, error) {
	d := &Document{
		actor:         actor,
		nodes:         make(map[string]Node),
		nodeSubs:      make(map[string][]*subscription),
		deepSubTarget: make(map[*subscription]string),
		maxUndo:       defaultUndoLimit,
		broadcast:     broadcast,
		log:           treelog.Disabled(),
	}
	for _, opt := range opts {
		opt(d)
	}

	id := d.mintID()
	if err := root.Attach(id, d); err != nil {
		return nil, err
	}
	d.root = root

	ops := root.Serialize(nil, nil)
	d.dispatch(ops, []Op{}, nil)
	d.log.Debug().Int("actor", actor).Str("rootId", id).Msg("document constructed")
	return d, nil
}

// Root returns the document's root node.
func (d *Document) Root() Node { return d.root }

// Actor returns this replica's actor id.
func (d *Document) Actor() int { return d.actor }

// Lookup returns the attached node with the given id, if any.
func (d *Document) Lookup(id string) (Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

func (d *Document) mintID() string {
	id := fmt.Sprintf("%d:%d", d.actor, d.clock)
	d.clock++
	return id
}

func (d *Document) mintOpID() string {
	id := fmt.Sprintf("%d:%d", d.actor, d.opClock)
	d.opClock++
	return id
}

func (d *Document) register(id string, n Node) {
	d.nodes[id] = n
}

func (d *Document) unregister(id string) {
	delete(d.nodes, id)
}

// dispatch is the single commit path used by every mutator, by the
// batch commit, and by Undo/Redo. When a batch is open, forward ops,
// reverse ops, and the modified set are accumulated rather than
// committed immediately (spec.md §4.7 "dispatch").
func (d *Document) dispatch(forward, reverse []Op, modified []Node) {
	if d.batch != nil {
		d.batch.forward = append(d.batch.forward, forward...)
		d.batch.reverse = append(d.batch.reverse, reverse...)
		for _, n := range modified {
			if n == nil {
				continue
			}
			if !d.batch.seen[n.ID()] {
				d.batch.seen[n.ID()] = true
				d.batch.modified = append(d.batch.modified, n)
			}
		}
		return
	}

	d.pushUndo(reverse)
	d.redoStack = nil
	if d.broadcast != nil {
		d.broadcast(forward)
	}
	d.notify(modified)
}

// pushUndo stores a deep-enough copy of reverse on the undo stack.
// Cloning gives each stored op its own Data map, so a caller that
// keeps a reverse op it passed to dispatch and later mutates that op's
// Data cannot change the stored undo entry.
func (d *Document) pushUndo(reverse []Op) {
	cloned := make([]Op, len(reverse))
	for i, op := range reverse {
		cloned[i] = op.Clone()
	}
	d.undoStack = append(d.undoStack, cloned)
	if len(d.undoStack) > d.maxUndo {
		d.undoStack = d.undoStack[1:]
	}
}

// Batch guards reentrance (a nested Batch call is an error), runs fn,
// and on exit emits exactly one consolidated dispatch: the
// concatenated reverse ops pushed as a single undo entry, the redo
// stack cleared, the concatenated forward ops broadcast once, and
// subscribers notified once with the union of modified nodes
// (spec.md §4.7, §8 "Batch atomicity").
//
// If fn returns an error (a panic in fn is recovered and returned as
// an error), the accumulated ops are discarded and batching state is
// reset before Batch returns — the "discard on failure" choice
// documented in DESIGN.md for spec.md §9's open question on batch
// exception semantics. Local changes fn made before failing stay
// applied; they are neither broadcast nor recorded for undo.
func (d *Document) Batch(fn func() error) error {
	if d.batch != nil {
		return ErrNestedBatch
	}
	d.batch = &batchState{seen: map[string]bool{}}

	fnErr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("crdt: batch function panicked: %v", r)
			}
		}()
		return fn()
	}()

	b := d.batch
	d.batch = nil

	if fnErr != nil {
		d.log.Warn().Err(fnErr).Msg("batch discarded due to error")
		return fnErr
	}

	d.dispatch(b.forward, b.reverse, b.modified)
	return nil
}

// Undo pops the most recent reverse op list, applies it locally,
// pushes the resulting inverse onto the redo stack, and broadcasts
// the applied ops (spec.md §4.7). Forbidden during a batch.
func (d *Document) Undo() error {
	if d.batch != nil {
		return ErrUndoRedoDuringBatch
	}
	if len(d.undoStack) == 0 {
		return ErrNothingToUndo
	}
	n := len(d.undoStack) - 1
	ops := d.undoStack[n]
	d.undoStack = d.undoStack[:n]
	return d.applyLocalOps(ops, &d.redoStack)
}

// Redo is the mirror of Undo, popping from the redo stack and pushing
// the resulting inverse back onto the undo stack.
func (d *Document) Redo() error {
	if d.batch != nil {
		return ErrUndoRedoDuringBatch
	}
	if len(d.redoStack) == 0 {
		return ErrNothingToRedo
	}
	n := len(d.redoStack) - 1
	ops := d.redoStack[n]
	d.redoStack = d.redoStack[:n]
	return d.applyLocalOps(ops, &d.undoStack)
}

// applyLocalOps applies ops (an undo or redo entry) against the local
// tree, broadcasts them, and pushes the resulting reverse onto
// oppositeStack.
func (d *Document) applyLocalOps(ops []Op, oppositeStack *[][]Op) error {
	var reverse []Op
	var modified []Node
	seen := map[string]bool{}

	for _, op := range ops {
		result, _, ok := d.routeOp(op)
		if !ok {
			continue
		}
		if result.Modified {
			reverse = append(reverse, result.Reverse...)
			if result.Node != nil && !seen[result.Node.ID()] {
				seen[result.Node.ID()] = true
				modified = append(modified, result.Node)
			}
		}
	}

	*oppositeStack = append(*oppositeStack, reverse)
	if len(*oppositeStack) > d.maxUndo {
		*oppositeStack = (*oppositeStack)[1:]
	}

	if d.broadcast != nil {
		d.broadcast(ops)
	}
	d.notify(modified)
	return nil
}

// routeOp dispatches a single op to its addressed node, handling the
// Create* case by constructing a fresh child and attaching it — the
// same routing spec.md §4.7 describes for ApplyRemoteOperations, also
// reused by Undo/Redo since applying one's own reverse/forward ops
// goes through the identical per-node Apply contract.
func (d *Document) routeOp(op Op) (ApplyResult, Node, bool) {
	switch op.Type {
	case OpUpdateObject, OpDeleteObjectKey, OpDeleteCrdt, OpSetParentKey:
		n, ok := d.nodes[op.ID]
		if !ok {
			d.log.Debug().Str("op", string(op.Type)).Str("id", op.ID).Msg("op addressed an unknown id, ignoring")
			return ApplyResult{}, nil, false
		}
		return n.Apply(op), n, true

	case OpCreateObject, OpCreateMap, OpCreateList, OpCreateRegister:
		if op.ParentID == nil {
			d.log.Debug().Str("op", string(op.Type)).Msg("create op missing parentId, ignoring")
			return ApplyResult{}, nil, false
		}
		if _, exists := d.nodes[op.ID]; exists {
			d.log.Debug().Str("id", op.ID).Msg("create op id already exists, ignoring")
			return ApplyResult{}, nil, false
		}
		parent, ok := d.nodes[*op.ParentID]
		if !ok {
			d.log.Debug().Str("parentId", *op.ParentID).Msg("create op parent missing, ignoring")
			return ApplyResult{}, nil, false
		}
		child, err := buildNodeFromCreateOp(op)
		if err != nil {
			d.log.Warn().Err(err).Msg("failed to build node from create op")
			return ApplyResult{}, nil, false
		}
		key := ""
		if op.ParentKey != nil {
			key = *op.ParentKey
		}
		if err := parent.AttachChild(op.ID, key, child); err != nil {
			d.log.Warn().Err(err).Msg("attach_child failed for create op")
			return ApplyResult{}, nil, false
		}
		return ApplyResult{
			Modified: true,
			Node:     parent,
			Reverse:  []Op{{Type: OpDeleteCrdt, ID: op.ID}},
		}, parent, true

	default:
		d.log.Debug().Str("op", string(op.Type)).Msg("unknown op type, ignoring")
		return ApplyResult{}, nil, false
	}
}

// ApplyRemoteOperations routes each op to the node it addresses and
// notifies subscribers with the union of modified nodes. The undo
// stack is never touched (spec.md §4.7).
func (d *Document) ApplyRemoteOperations(ops []Op) {
	var modified []Node
	seen := map[string]bool{}

	for _, op := range ops {
		result, _, ok := d.routeOp(op)
		if !ok || !result.Modified || result.Node == nil {
			continue
		}
		if !seen[result.Node.ID()] {
			seen[result.Node.ID()] = true
			modified = append(modified, result.Node)
		}
	}
	d.notify(modified)
}

func buildNodeFromCreateOp(op Op) (Node, error) {
	switch op.Type {
	case OpCreateObject:
		return newObjectFromData(op.Data), nil
	case OpCreateMap:
		return NewMap(nil), nil
	case OpCreateList:
		return NewList(nil), nil
	case OpCreateRegister:
		return NewRegister(op.Scalar), nil
	default:
		return nil, fmt.Errorf("crdt: %q is not a creation op", op.Type)
	}
}

func newObjectFromData(data map[string]any) *Object {
	o := NewObject(nil)
	for k, v := range data {
		o.data.Set(k, v)
	}
	return o
}

// Serialize returns the flat (id, record) list for the document's
// entire tree, suitable for Load to reconstruct elsewhere.
func (d *Document) Serialize() []SerializedNode {
	ops := d.root.Serialize(nil, nil)
	return opsToSerializedNodes(ops)
}

func opsToSerializedNodes(ops []Op) []SerializedNode {
	out := make([]SerializedNode, 0, len(ops))
	for _, op := range ops {
		var nt NodeType
		switch op.Type {
		case OpCreateObject:
			nt = NodeObject
		case OpCreateMap:
			nt = NodeMap
		case OpCreateList:
			nt = NodeList
		case OpCreateRegister:
			nt = NodeRegister
		default:
			continue
		}
		out = append(out, SerializedNode{
			ID:        op.ID,
			Type:      nt,
			ParentID:  op.ParentID,
			ParentKey: op.ParentKey,
			Data:      op.Data,
			Scalar:    op.Scalar,
		})
	}
	return out
}

// Load reconstructs a document from a flat (id, serialized) list,
// building a parent→children index, locating the single parentless
// (root) entry, and deserializing recursively (spec.md §4.7 "load").
func Load(records []SerializedNode, actor int, broadcast BroadcastFunc, opts ...DocumentOption) (*Document, error) {
	if len(records) == 0 {
		return nil, errEmptyLoadList()
	}

	byParent := make(map[string][]SerializedNode)
	var rootRecord *SerializedNode
	for i := range records {
		rec := records[i]
		if rec.ParentID == nil {
			if rootRecord != nil {
				return nil, errMultipleRoots(rootRecord.ID, rec.ID)
			}
			r := rec
			rootRecord = &r
			continue
		}
		byParent[*rec.ParentID] = append(byParent[*rec.ParentID], rec)
	}
	if rootRecord == nil {
		return nil, errNoRoot()
	}

	d := &Document{
		actor:         actor,
		nodes:         make(map[string]Node),
		nodeSubs:      make(map[string][]*subscription),
		deepSubTarget: make(map[*subscription]string),
		maxUndo:       defaultUndoLimit,
		log:           treelog.Disabled(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.broadcast = broadcast

	root, err := d.deserialize(*rootRecord, byParent)
	if err != nil {
		return nil, err
	}
	d.root = root
	d.resumeClockPastOwnIDs(records)
	return d, nil
}

// deserialize builds one node (and, recursively, its subtree) from
// its serialized record, registering each into the id index using its
// original id rather than minting a fresh one.
func (d *Document) deserialize(rec SerializedNode, byParent map[string][]SerializedNode) (Node, error) {
	var n Node
	switch rec.Type {
	case NodeObject:
		n = newObjectFromData(rec.Data)
	case NodeMap:
		n = NewMap(nil)
	case NodeList:
		n = NewList(nil)
	case NodeRegister:
		n = NewRegister(rec.Scalar)
	default:
		return nil, errUnknownNodeType(rec.Type)
	}

	d.register(rec.ID, n)
	setNodeIdentity(n, rec.ID, d)

	children := byParent[rec.ID]
	for _, childRec := range children {
		if childRec.ParentKey == nil {
			return nil, errMissingParentKey(childRec.ID)
		}
		child, err := d.deserialize(childRec, byParent)
		if err != nil {
			return nil, err
		}
		// child is already registered and identified by deserialize
		// above; pass "" so AttachChild only wires the parent link and
		// container slot instead of re-running Attach.
		if err := n.AttachChild("", *childRec.ParentKey, child); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// setNodeIdentity stamps id/doc directly, used during Load where ids
// are already fixed by the serialized record rather than minted.
func setNodeIdentity(n Node, id string, d *Document) {
	switch v := n.(type) {
	case *Object:
		v.id, v.doc = id, d
	case *Map:
		v.id, v.doc = id, d
	case *List:
		v.id, v.doc = id, d
	case *Register:
		v.id, v.doc = id, d
	}
}

// resumeClockPastOwnIDs bumps the local clock past any id minted by
// this same actor among the loaded records, so a replica reloading
// its own previously-saved tree never re-mints a colliding id.
func (d *Document) resumeClockPastOwnIDs(records []SerializedNode) {
	prefix := strconv.Itoa(d.actor) + ":"
	for _, rec := range records {
		if !strings.HasPrefix(rec.ID, prefix) {
			continue
		}
		clockStr := strings.TrimPrefix(rec.ID, prefix)
		if clock, err := strconv.Atoi(clockStr); err == nil && clock >= d.clock {
			d.clock = clock + 1
		}
	}
}

// DebugTree returns a human-readable dump of the id index, grounded
// in the teacher's tools/gotest_coverage.go habit of building small
// textual reports over internal state.
func (d *Document) DebugTree() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "document actor=%d nodes=%d\n", d.actor, len(d.nodes))
	for id, n := range d.nodes {
		fmt.Fprintf(&sb, "  %s [%s] parentKey=%q\n", id, n.Kind(), n.ParentKey())
	}
	return sb.String()
}

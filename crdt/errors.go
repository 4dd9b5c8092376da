package crdt

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel errors for the argument-out-of-range and reentrance-misuse
// classes of spec.md §7. These carry no extra context, so plain
// sentinel values compared with errors.Is are enough.
var (
	// ErrIndexOutOfRange is returned by List.Insert/Delete/Move/Get
	// when an index falls outside the range the operation permits.
	ErrIndexOutOfRange = errors.New("crdt: index out of range")

	// ErrNestedBatch is returned when Document.Batch is called while
	// a batch is already open.
	ErrNestedBatch = errors.New("crdt: nested batch is not allowed")

	// ErrUndoRedoDuringBatch is returned by Undo/Redo when called
	// while a batch is open.
	ErrUndoRedoDuringBatch = errors.New("crdt: undo/redo is not allowed during a batch")

	// ErrNothingToUndo / ErrNothingToRedo signal an empty stack.
	ErrNothingToUndo = errors.New("crdt: undo stack is empty")
	ErrNothingToRedo = errors.New("crdt: redo stack is empty")
)

// Invariant-violation errors (spec.md §7 class 1) are wrapped with
// github.com/pkg/errors so a caller tracing a reparent bug or a
// malformed Load input gets a stack trace attached to the error value,
// per SPEC_FULL.md §2.2.

func errAlreadyParented(nodeID, existingParentID string) error {
	return pkgerrors.Errorf("crdt: node %q already has parent %q; cannot attach to a different parent", nodeID, existingParentID)
}

func errAlreadyAttached(nodeID string) error {
	return pkgerrors.Errorf("crdt: node %q is already attached", nodeID)
}

func errMissingParentKey(id string) error {
	return pkgerrors.Errorf("crdt: serialized node %q is not the root but has no parentKey", id)
}

func errEmptyLoadList() error {
	return pkgerrors.New("crdt: Load requires at least one serialized node")
}

func errNoRoot() error {
	return pkgerrors.New("crdt: Load input has no parentless (root) record")
}

func errMultipleRoots(first, second string) error {
	return pkgerrors.Errorf("crdt: Load input has more than one parentless record (%q and %q)", first, second)
}

func errUnknownNodeType(t NodeType) error {
	return pkgerrors.Errorf("crdt: unknown serialized node type %q", t)
}

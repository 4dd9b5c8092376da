package crdt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cshekharsharma/treecrdt/crdt"
)

func TestListPushInsertToArray(t *testing.T) {
	doc := newTestDocument(t, 1, nil)
	root := doc.Root().(*crdt.Object)

	list := crdt.NewList(nil)
	require.NoError(t, root.Set("items", list))

	require.NoError(t, list.Push("a"))
	require.NoError(t, list.Push("c"))
	require.NoError(t, list.Insert("b", 1))

	require.Equal(t, []any{"a", "b", "c"}, list.ToArray())
}

func TestListDeleteOutOfRange(t *testing.T) {
	list := crdt.NewList([]any{"a"})
	require.ErrorIs(t, list.Delete(5), crdt.ErrIndexOutOfRange)
}

func TestListFindFindIndexSome(t *testing.T) {
	list := crdt.NewList([]any{1, 2, 3, 4})

	v, ok := list.Find(func(v any) bool { return v.(int) > 2 })
	require.True(t, ok)
	require.Equal(t, 3, v)

	require.Equal(t, 2, list.FindIndex(func(v any) bool { return v.(int) == 3 }))
	require.True(t, list.Some(func(v any) bool { return v.(int) == 4 }))
	require.False(t, list.Some(func(v any) bool { return v.(int) == 99 }))
}

// TestListMoveUndoRedo covers spec.md's end-to-end scenario of moving
// a list element and then undoing/redoing that move.
func TestListMoveUndoRedo(t *testing.T) {
	doc := newTestDocument(t, 1, nil)
	root := doc.Root().(*crdt.Object)

	list := crdt.NewList([]any{"a", "b", "c"})
	require.NoError(t, root.Set("items", list))

	require.NoError(t, list.Move(0, 2))
	require.Equal(t, []any{"b", "c", "a"}, list.ToArray())

	require.NoError(t, doc.Undo())
	require.Equal(t, []any{"a", "b", "c"}, list.ToArray())

	require.NoError(t, doc.Redo())
	require.Equal(t, []any{"b", "c", "a"}, list.ToArray())
}

// TestListConcurrentInsertAtSamePositionConvergence covers spec.md's
// end-to-end scenario where two replicas independently insert at the
// same index, minting the identical deterministic position; applying
// the remote create must relocate the local child forward rather than
// silently overwrite it.
func TestListConcurrentInsertAtSamePositionConvergence(t *testing.T) {
	doc := newTestDocument(t, 1, nil)
	root := doc.Root().(*crdt.Object)

	list := crdt.NewList([]any{"a", "b"})
	require.NoError(t, root.Set("items", list))
	require.Equal(t, 2, list.Length())

	before, errA := list.Get(0)
	require.NoError(t, errA)
	after, errB := list.Get(1)
	require.NoError(t, errB)
	_ = before
	_ = after

	// Simulate a remote insert landing at the exact same position as a
	// local element by constructing the CreateRegister op directly
	// against one of the list's existing child positions.
	var existingPos string
	list.ForEach(func(_ int, child crdt.Node) bool {
		existingPos = child.ParentKey()
		return false
	})

	remoteID := "2:0"
	remoteOp := crdt.Op{
		Type:      crdt.OpCreateRegister,
		ID:        remoteID,
		ParentID:  strPtrForTest(list.ID()),
		ParentKey: strPtrForTest(existingPos),
		Scalar:    "remote",
	}
	doc.ApplyRemoteOperations([]crdt.Op{remoteOp})

	require.Equal(t, 3, list.Length())
	arr := list.ToArray()
	require.Contains(t, arr, "remote")
	require.Contains(t, arr, "a")
	require.Contains(t, arr, "b")
}

func strPtrForTest(s string) *string { return &s }

package crdt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cshekharsharma/treecrdt/crdt"
)

func TestMapSetGetHasSize(t *testing.T) {
	doc := newTestDocument(t, 1, nil)
	root := doc.Root().(*crdt.Object)

	m := crdt.NewMap(nil)
	require.NoError(t, root.Set("tags", m))

	require.NoError(t, m.Set("color", "blue"))
	require.True(t, m.Has("color"))
	require.Equal(t, 1, m.Size())

	v, ok := m.Get("color")
	require.True(t, ok)
	require.Equal(t, "blue", v)
}

func TestMapDeleteUndo(t *testing.T) {
	doc := newTestDocument(t, 1, nil)
	root := doc.Root().(*crdt.Object)

	m := crdt.NewMap(nil)
	require.NoError(t, root.Set("tags", m))
	require.NoError(t, m.Set("color", "blue"))

	require.NoError(t, m.Delete("color"))
	require.False(t, m.Has("color"))

	require.NoError(t, doc.Undo())
	require.True(t, m.Has("color"))
	v, _ := m.Get("color")
	require.Equal(t, "blue", v)
}

// TestMapContainingListDeleteUndoAtomicity covers spec.md's end-to-end
// scenario of deleting a Map entry that is a List with elements, then
// undoing the whole deletion in one step.
func TestMapContainingListDeleteUndoAtomicity(t *testing.T) {
	doc := newTestDocument(t, 1, nil)
	root := doc.Root().(*crdt.Object)

	m := crdt.NewMap(nil)
	require.NoError(t, root.Set("bucket", m))

	list := crdt.NewList([]any{"a", "b", "c"})
	require.NoError(t, m.Set("items", list))
	require.Equal(t, 3, list.Length())

	require.NoError(t, m.Delete("items"))
	require.False(t, m.Has("items"))

	require.NoError(t, doc.Undo())
	require.True(t, m.Has("items"))

	restored, ok := m.Get("items")
	require.True(t, ok)
	restoredList, ok := restored.(*crdt.List)
	require.True(t, ok)
	require.Equal(t, []any{"a", "b", "c"}, restoredList.ToArray())
}

func TestMapForEachVisitsAllEntries(t *testing.T) {
	m := crdt.NewMap(map[string]any{"a": 1, "b": 2, "c": 3})
	seen := map[string]any{}
	m.ForEach(func(key string, child crdt.Node) bool {
		reg := child.(*crdt.Register)
		seen[key] = reg.Value()
		return true
	})
	require.Len(t, seen, 3)
	require.Equal(t, 1, seen["a"])
}

package crdt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cshekharsharma/treecrdt/crdt"
)

func newTestDocument(t *testing.T, actor int, broadcast crdt.BroadcastFunc) *crdt.Document {
	t.Helper()
	doc, err := crdt.NewDocument(crdt.NewObject(nil), actor, broadcast)
	require.NoError(t, err)
	return doc
}

func TestObjectSetAndGet(t *testing.T) {
	doc := newTestDocument(t, 1, nil)
	root := doc.Root().(*crdt.Object)

	require.NoError(t, root.Set("title", "hello"))
	v, ok := root.Get("title")
	require.True(t, ok)
	require.Equal(t, "hello", v)
}

func TestObjectUpdateUndoRedo(t *testing.T) {
	doc := newTestDocument(t, 1, nil)
	root := doc.Root().(*crdt.Object)

	require.NoError(t, root.Set("count", 1))
	require.NoError(t, root.Set("count", 2))

	v, _ := root.Get("count")
	require.Equal(t, 2, v)

	require.NoError(t, doc.Undo())
	v, _ = root.Get("count")
	require.Equal(t, 1, v)

	require.NoError(t, doc.Redo())
	v, _ = root.Get("count")
	require.Equal(t, 2, v)
}

func TestObjectDeleteKey(t *testing.T) {
	doc := newTestDocument(t, 1, nil)
	root := doc.Root().(*crdt.Object)

	require.NoError(t, root.Set("a", 1))
	require.NoError(t, root.Delete("a"))

	_, ok := root.Get("a")
	require.False(t, ok)
}

func TestObjectToObjectDeepConversion(t *testing.T) {
	doc := newTestDocument(t, 1, nil)
	root := doc.Root().(*crdt.Object)

	require.NoError(t, root.Set("nested", crdt.NewObject(map[string]any{"inner": 42})))

	plain := root.ToObject()
	nested, ok := plain["nested"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, 42, nested["inner"])
}

// TestObjectConcurrentUpdateConvergence covers the acknowledgement
// half of concurrent Object updates on a single replica: the remote
// echo of the replica's own pending update must be swallowed rather
// than double-applied. Conflicting updates from another replica are
// not exercised here.
func TestObjectConcurrentUpdateConvergence(t *testing.T) {
	var aliceOut []crdt.Op
	alice := newTestDocument(t, 1, func(ops []crdt.Op) { aliceOut = append(aliceOut, ops...) })
	aliceRoot := alice.Root().(*crdt.Object)

	require.NoError(t, aliceRoot.Set("title", "draft"))
	require.NotEmpty(t, aliceOut)

	// Simulate the network echoing alice's own op back to her; it must
	// be swallowed rather than treated as a remote write.
	alice.ApplyRemoteOperations(aliceOut)
	v, _ := aliceRoot.Get("title")
	require.Equal(t, "draft", v)
}

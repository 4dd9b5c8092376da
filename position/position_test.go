package position_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cshekharsharma/treecrdt/position"
)

func TestBetweenUnbounded(t *testing.T) {
	a := position.Between("", "")
	require.NotEmpty(t, a)

	b := position.Before("m")
	assert.True(t, position.Less(b, "m"))

	c := position.After("m")
	assert.True(t, position.Less("m", c))
}

func TestBetweenOrdering(t *testing.T) {
	mid := position.Between("a", "b")
	assert.True(t, position.Less("a", mid))
	assert.True(t, position.Less(mid, "b"))
}

func TestBetweenIsDeterministic(t *testing.T) {
	a1 := position.Between("a", "c")
	a2 := position.Between("a", "c")
	assert.Equal(t, a1, a2)
}

func TestBetweenPanicsOnInvertedBounds(t *testing.T) {
	assert.Panics(t, func() {
		position.Between("b", "a")
	})
	assert.Panics(t, func() {
		position.Between("a", "a")
	})
}

// TestDenseInsertion repeatedly inserts a new position between the two
// nearest existing neighbours and checks the whole sequence stays
// strictly ordered, the property List.Insert leans on for every index.
func TestDenseInsertion(t *testing.T) {
	seq := []string{position.Between("", "")}

	for i := 0; i < 500; i++ {
		idx := rand.Intn(len(seq) + 1)
		var before, after string
		if idx > 0 {
			before = seq[idx-1]
		}
		if idx < len(seq) {
			after = seq[idx]
		}
		p := position.Between(before, after)

		out := make([]string, 0, len(seq)+1)
		out = append(out, seq[:idx]...)
		out = append(out, p)
		out = append(out, seq[idx:]...)
		seq = out
	}

	for i := 1; i < len(seq); i++ {
		require.True(t, position.Less(seq[i-1], seq[i]), "sequence not strictly ordered at index %d", i)
	}
}

func TestCompare(t *testing.T) {
	assert.Equal(t, 0, position.Compare("x", "x"))
	assert.Less(t, position.Compare("a", "b"), 0)
	assert.Greater(t, position.Compare("b", "a"), 0)
}

// Package position implements the dense-order positional key space used
// to index List children.
//
// A position is an opaque string over a small byte alphabet, ordered by
// plain lexicographic byte comparison. The empty string acts as the
// implicit "less than all" sentinel: it is both a valid sentinel bound
// and, by construction, never minted as a real key, since Between always
// emits at least one byte.
//
// This mirrors the Lamport-style deterministic ordering the teacher
// repo's RGA keys elements by (see rga.go's ID.Greater), but swaps a
// per-node (timestamp, actor) pair for a single dense string so a List
// child's position can be compared and sorted without touching a
// registry of siblings.
package position

import "strings"

const (
	// minByte and maxByte bound the alphabet a position string is built
	// from. Neither 0x00 nor 0xFF is used, so strings built from this
	// alphabet compare correctly under plain byte-wise lexicographic
	// ordering and never collide with the empty-string sentinel.
	minByte byte = 0x01
	maxByte byte = 0xFE

	// infinity is a sentinel wider than any real byte, representing "no
	// upper bound" when the after-bound is absent.
	infinity = int(maxByte) + 1
)

// Compare returns the sign of the lexicographic ordering between a and b:
// negative if a < b, zero if equal, positive if a > b.
func Compare(a, b string) int {
	return strings.Compare(a, b)
}

// Less reports whether a sorts strictly before b.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Between returns a position strictly greater than before (if non-empty)
// and strictly less than after (if non-empty). The empty string for
// either bound means "unbounded" on that side.
//
// Between is deterministic: the same (before, after) pair always yields
// the same output, on any replica, which is what lets a position minted
// locally be trusted once confirmed by a network authority.
//
// Between panics if before is non-empty, after is non-empty, and
// before is not strictly less than after — that is a programmer error
// at the call site (List is responsible for only ever supplying
// correctly-ordered neighbours).
func Between(before, after string) string {
	if before != "" && after != "" && !Less(before, after) {
		panic("position: Between requires before < after")
	}
	lo := []byte(before)
	hi := []byte(after)
	hiActive := after != ""

	var out []byte
	i := 0
	for {
		loByte := minByte
		hasLo := i < len(lo)
		if hasLo {
			loByte = lo[i]
		}

		hiByte := infinity
		hasHi := hiActive && i < len(hi)
		if hasHi {
			hiByte = int(hi[i])
		}

		if hasHi && int(loByte) == hiByte {
			// Same digit at this depth on both bounds (an exhausted
			// before counts as minByte); descend.
			out = append(out, loByte)
			i++
			continue
		}

		mid := int(loByte) + (hiByte-int(loByte))/2
		if mid > int(loByte) {
			out = append(out, byte(mid))
			return string(out)
		}

		// No room for a midpoint byte at this depth (hiByte == loByte+1).
		// Emit loByte and continue one level deeper, purely constrained
		// by "before" from here on: once the prefix this far is
		// strictly less than hi's digit at this depth, any suffix keeps
		// the whole string less than after.
		out = append(out, loByte)
		i++
		hiActive = false
	}
}

// Before returns a position strictly less than after.
func Before(after string) string {
	return Between("", after)
}

// After returns a position strictly greater than before.
func After(before string) string {
	return Between(before, "")
}

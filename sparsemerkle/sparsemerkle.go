// Package sparsemerkle generates and verifies Merkle branches over sparse
// binary trees without ever materializing the full tree. It is the Go
// counterpart of the sparse proof generator used by consensus clients such
// as Lighthouse: a tree of depth d has 2^d leaf slots, but only the
// occupied prefix of those slots is backed by real data — everything
// beyond it collapses to a precomputed zero hash (see the zerohash
// package), so proving leaf index i costs O(n + d) hashes for n occupied
// slots instead of O(2^d).
package sparsemerkle

import (
	"fmt"

	"github.com/dapplion/consolidation-incentives-go/zerohash"
)

// leafAt returns leaves[index], or the zero leaf if index is beyond the
// supplied data.
func leafAt(leaves [][32]byte, index int) [32]byte {
	if index < len(leaves) {
		return leaves[index]
	}
	return zerohash.Zero(0)
}

// subtreeRoot computes the root of the subtree covering leaf slots
// [start, start+2^depth) of a tree whose real data is `leaves`. Slots
// beyond len(leaves) contribute only zero hashes, so a subtree entirely
// past the supplied data short-circuits to the precomputed zero hash for
// its depth instead of recursing.
func subtreeRoot(leaves [][32]byte, start, depth int) [32]byte {
	if depth == 0 {
		return leafAt(leaves, start)
	}
	if start >= len(leaves) {
		return zerohash.Zero(depth)
	}
	half := 1 << uint(depth-1)
	left := subtreeRoot(leaves, start, depth-1)
	right := subtreeRoot(leaves, start+half, depth-1)
	return zerohash.Pair(left, right)
}

// SubtreeRoot computes the root of a balanced binary tree of the given
// depth (2^depth leaf slots), backed by leaves and zero-padded beyond it.
func SubtreeRoot(leaves [][32]byte, depth int) [32]byte {
	return subtreeRoot(leaves, 0, depth)
}

// Prove builds a Merkle branch for leaf slot `index` in a tree of the
// given depth, and returns the branch alongside the tree's root. The
// branch has exactly `depth` sibling hashes, ordered from the leaf's
// immediate sibling up to the child of the root.
func Prove(leaves [][32]byte, index uint64, depth int) (branch [][32]byte, root [32]byte, err error) {
	leafCount := uint64(1) << uint(depth)
	if index >= leafCount {
		return nil, [32]byte{}, fmt.Errorf("sparsemerkle: index %d out of range for depth %d (%d leaf slots)", index, depth, leafCount)
	}

	branch = make([][32]byte, 0, depth)
	pos := index
	for level := 0; level < depth; level++ {
		siblingPos := pos ^ 1
		start := int(siblingPos) << uint(level)
		branch = append(branch, subtreeRoot(leaves, start, level))
		pos /= 2
	}

	current := leafAt(leaves, int(index))
	for level, sibling := range branch {
		if (index>>uint(level))&1 == 0 {
			current = zerohash.Pair(current, sibling)
		} else {
			current = zerohash.Pair(sibling, current)
		}
	}

	return branch, current, nil
}

// Verify recomputes the root implied by leaf, branch and gindex, and
// reports whether it equals root. depth(gindex) must equal len(branch) —
// a branch of the wrong length is rejected rather than silently
// truncated or zero-extended.
func Verify(root, leaf [32]byte, branch [][32]byte, gindex uint64) (bool, error) {
	depth := gindexDepth(gindex)
	if len(branch) != depth {
		return false, fmt.Errorf("sparsemerkle: branch length %d does not match gindex depth %d", len(branch), depth)
	}

	current := leaf
	for level, sibling := range branch {
		if positionAtLevel(gindex, level) {
			current = zerohash.Pair(sibling, current)
		} else {
			current = zerohash.Pair(current, sibling)
		}
	}

	return current == root, nil
}

// positionAtLevel reports whether the node on the path to gindex at the
// given level (0 = the leaf's own level) is a right child.
func positionAtLevel(gindex uint64, level int) bool {
	return (gindex>>uint(level))&1 == 1
}

// gindexDepth returns floor(log2(gindex)), duplicated here (rather than
// imported from package gindex) to keep sparsemerkle free of a dependency
// on the beacon-state-specific gindex layout; it operates on raw
// generalized indices only.
func gindexDepth(gindex uint64) int {
	depth := 0
	for gindex > 1 {
		gindex >>= 1
		depth++
	}
	return depth
}

// Package sszcompose builds the small amount of SSZ Merkleization logic
// this engine needs on top of package sparsemerkle: List length mix-ins
// and fixed-field container roots. It is not a general SSZ codec — it
// only knows how to combine already-hashed field/element roots, never how
// to serialize a type.
package sszcompose

import (
	"encoding/binary"
	"fmt"

	"github.com/dapplion/consolidation-incentives-go/sparsemerkle"
	"github.com/dapplion/consolidation-incentives-go/zerohash"
)

// lengthChunk packs an SSZ List's length as a little-endian uint64 in the
// low 8 bytes of an otherwise zero 32-byte chunk.
func lengthChunk(length uint64) [32]byte {
	var chunk [32]byte
	binary.LittleEndian.PutUint64(chunk[:8], length)
	return chunk
}

// ListRoot computes the root of an SSZ List given the hash-tree-root of
// each present element, the list's capacity expressed as data-tree depth
// (log2 of the element limit), and its actual length. The data root
// (elements merkleized and zero-padded to the capacity) is paired with the
// length mix-in: root = hash(data_root, length_chunk).
func ListRoot(elementHashes [][32]byte, limitDepth int, length uint64) [32]byte {
	dataRoot := sparsemerkle.SubtreeRoot(elementHashes, limitDepth)
	return zerohash.Pair(dataRoot, lengthChunk(length))
}

// ListProve builds a branch proving elementHashes[index] is the element at
// that position in the list's data tree, appends the length mix-in
// sibling, and returns the full branch (length limitDepth+1) alongside the
// list root. The branch is ordered leaf-to-root: data-tree siblings first,
// then the length chunk last.
func ListProve(elementHashes [][32]byte, index uint64, limitDepth int, length uint64) (branch [][32]byte, root [32]byte, err error) {
	dataBranch, dataRoot, err := sparsemerkle.Prove(elementHashes, index, limitDepth)
	if err != nil {
		return nil, [32]byte{}, fmt.Errorf("sszcompose: list element proof: %w", err)
	}

	lc := lengthChunk(length)
	branch = make([][32]byte, 0, limitDepth+1)
	branch = append(branch, dataBranch...)
	branch = append(branch, lc)

	root = zerohash.Pair(dataRoot, lc)
	return branch, root, nil
}

// containerDepth returns the Merkleization depth of a container with the
// given field count: 0 for a single field, otherwise the smallest d with
// 2^d >= numFields.
func containerDepth(numFields int) int {
	if numFields <= 1 {
		return 0
	}
	depth := 0
	for (1 << uint(depth)) < numFields {
		depth++
	}
	return depth
}

// ContainerRoot computes the root of a fixed-field SSZ container given the
// hash-tree-root of each field, zero-padding up to the next power of two
// the way SSZ container Merkleization does.
func ContainerRoot(fieldHashes [][32]byte) [32]byte {
	return sparsemerkle.SubtreeRoot(fieldHashes, containerDepth(len(fieldHashes)))
}

// ContainerProve builds a branch proving fieldHashes[fieldIndex] is the
// value of that field, alongside the container's root.
func ContainerProve(fieldHashes [][32]byte, fieldIndex int) (branch [][32]byte, root [32]byte, err error) {
	depth := containerDepth(len(fieldHashes))
	return sparsemerkle.Prove(fieldHashes, uint64(fieldIndex), depth)
}

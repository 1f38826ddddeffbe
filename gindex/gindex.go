// Package gindex computes generalized indices (gindices) for the proof
// paths this engine produces, and the path-concatenation arithmetic used
// to combine them.
//
// A generalized index numbers every node of a binary tree starting from
// the root at 1: a node's left child is 2*g, its right child is 2*g+1.
// Depth(g) = floor(log2(g)) is both the node's distance from the root and
// the number of sibling hashes a branch to that node must carry.
package gindex

import "math/bits"

// BeaconState has 37 fields in Electra, giving a container tree of depth 6
// (2^6 = 64 >= 37).
const (
	BeaconStateTreeDepth                    = 6
	BeaconStateBaseGindex            uint64 = 1 << BeaconStateTreeDepth
	ValidatorsFieldIndex             uint64 = 11
	PendingConsolidationsFieldIndex  uint64 = 36
)

// BeaconBlockHeader has 5 fields, padded to a container tree of depth 3.
const (
	HeaderTreeDepth            = 3
	HeaderBaseGindex     uint64 = 1 << HeaderTreeDepth
	StateRootFieldIndex  uint64 = 3
)

// Validator has 8 fields, a container tree of depth 3.
const (
	ValidatorTreeDepth               = 3
	ValidatorBaseGindex        uint64 = 1 << ValidatorTreeDepth
	WithdrawalCredentialsFieldIndex uint64 = 1
	ActivationEpochFieldIndex  uint64 = 5
)

// PendingConsolidation has 2 fields, a container tree of depth 1.
const (
	ConsolidationTreeDepth       = 1
	ConsolidationBaseGindex uint64 = 1 << ConsolidationTreeDepth
	SourceIndexFieldIndex   uint64 = 0
)

// listDataRootGindex is the gindex of a List's data-root child relative to
// the list's own root: root = hash(data_root, length_mixin), so data_root
// sits at the left child, gindex 2.
const listDataRootGindex = 2

// Depth returns floor(log2(g)), the number of sibling hashes a branch to
// generalized index g must carry. Depth(1) == 0 (the root itself).
func Depth(g uint64) int {
	if g == 0 {
		panic("gindex: zero is not a valid generalized index")
	}
	return bits.Len64(g) - 1
}

// Concat combines a sequence of generalized indices, each relative to the
// root of the subtree rooted at the previous one, into a single
// generalized index relative to the outermost root.
//
// concat([g1, g2]) = (g1 << depth(g2)) | (g2 ^ (1 << depth(g2))), i.e. g1's
// path followed by g2's path with its own leading 1 bit stripped off.
func Concat(gindices ...uint64) uint64 {
	result := uint64(1)
	for _, g := range gindices {
		d := Depth(g)
		result = (result << uint(d)) | (g ^ (1 << uint(d)))
	}
	return result
}

// ElementInData returns the gindex of element i within a data tree of the
// given depth (the 0-indexed chunk at depth `depth` of a balanced binary
// tree, i.e. 2^depth + i).
func ElementInData(depth int, index uint64) uint64 {
	return (uint64(1) << uint(depth)) + index
}

// ConsolidationSourceGindex returns the gindex, relative to a
// BeaconBlockHeader root, of pending_consolidations[index].source_index.
//
// Path: header -> state_root -> pending_consolidations -> data_root ->
// element[index] -> source_index.
func ConsolidationSourceGindex(index uint64, consolidationsDataDepth int) uint64 {
	stateRootInHeader := HeaderBaseGindex + StateRootFieldIndex
	consolidationsInState := BeaconStateBaseGindex + PendingConsolidationsFieldIndex
	elementInData := ElementInData(consolidationsDataDepth, index)
	sourceInConsolidation := ConsolidationBaseGindex + SourceIndexFieldIndex

	return Concat(
		stateRootInHeader,
		consolidationsInState,
		listDataRootGindex,
		elementInData,
		sourceInConsolidation,
	)
}

// ValidatorCredentialsGindex returns the gindex, relative to a
// BeaconBlockHeader root, of validators[index].withdrawal_credentials.
func ValidatorCredentialsGindex(index uint64, validatorsDataDepth int) uint64 {
	stateRootInHeader := HeaderBaseGindex + StateRootFieldIndex
	validatorsInState := BeaconStateBaseGindex + ValidatorsFieldIndex
	elementInData := ElementInData(validatorsDataDepth, index)
	credentialsInValidator := ValidatorBaseGindex + WithdrawalCredentialsFieldIndex

	return Concat(
		stateRootInHeader,
		validatorsInState,
		listDataRootGindex,
		elementInData,
		credentialsInValidator,
	)
}

// ValidatorActivationEpochGindex returns the gindex, relative to a
// BeaconBlockHeader root, of validators[index].activation_epoch.
func ValidatorActivationEpochGindex(index uint64, validatorsDataDepth int) uint64 {
	stateRootInHeader := HeaderBaseGindex + StateRootFieldIndex
	validatorsInState := BeaconStateBaseGindex + ValidatorsFieldIndex
	elementInData := ElementInData(validatorsDataDepth, index)
	activationInValidator := ValidatorBaseGindex + ActivationEpochFieldIndex

	return Concat(
		stateRootInHeader,
		validatorsInState,
		listDataRootGindex,
		elementInData,
		activationInValidator,
	)
}

// ConsolidationProofLength returns the number of sibling hashes a proof of
// any pending_consolidations[*].source_index must carry, for the given
// consolidations data-tree depth.
func ConsolidationProofLength(consolidationsDataDepth int) int {
	return Depth(ConsolidationSourceGindex(0, consolidationsDataDepth))
}

// ValidatorProofLength returns the number of sibling hashes a proof of any
// validators[*] field must carry, for the given validators data-tree depth.
// Withdrawal credentials and activation epoch sit at the same container
// depth, so they share a proof length.
func ValidatorProofLength(validatorsDataDepth int) int {
	return Depth(ValidatorCredentialsGindex(0, validatorsDataDepth))
}

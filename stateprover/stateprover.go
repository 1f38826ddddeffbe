// Package stateprover assembles the sparse subtree engine, SSZ
// composition helpers and gindex arithmetic into proofs over a full
// Electra BeaconState: the state root itself, and Merkle branches for the
// three fields a consolidation-reward claim needs, rooted at a beacon
// block header.
package stateprover

import (
	"fmt"

	"github.com/dapplion/consolidation-incentives-go/beacontypes"
	"github.com/dapplion/consolidation-incentives-go/gindex"
	"github.com/dapplion/consolidation-incentives-go/sparsemerkle"
	"github.com/dapplion/consolidation-incentives-go/sszcompose"
)

// BeaconStateFieldCount is the number of top-level fields in an Electra
// BeaconState; constant across presets.
const BeaconStateFieldCount = 37

// ConsolidationIndexOutOfBoundsError reports an index past the end of the
// pending_consolidations list the prover was built with.
type ConsolidationIndexOutOfBoundsError struct {
	Index uint64
	Count int
}

func (e *ConsolidationIndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("stateprover: consolidation index %d out of bounds (have %d)", e.Index, e.Count)
}

// ValidatorIndexOutOfBoundsError reports an index past the end of the
// validators list the prover was built with.
type ValidatorIndexOutOfBoundsError struct {
	Index uint64
	Count int
}

func (e *ValidatorIndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("stateprover: validator index %d out of bounds (have %d)", e.Index, e.Count)
}

// FieldRootCountMismatchError reports that the caller supplied the wrong
// number of BeaconState field roots. This indicates a programming error
// in the caller (the field count is a protocol constant, not derived from
// untrusted input), so StateProver constructors return it rather than
// panicking only because it crosses a package boundary.
type FieldRootCountMismatchError struct {
	Got, Want int
}

func (e *FieldRootCountMismatchError) Error() string {
	return fmt.Sprintf("stateprover: expected %d beacon state field roots, got %d", e.Want, e.Got)
}

// StateProver generates proofs over one snapshot of beacon-state data: a
// fixed slice of top-level field roots, plus the decoded validators and
// pending consolidations needed to prove into the two large lists without
// materializing them as full Merkle trees.
type StateProver struct {
	fieldRoots           [][32]byte
	validators           []beacontypes.Validator
	validatorHashes      [][32]byte
	consolidations       []beacontypes.PendingConsolidation
	consolidationHashes  [][32]byte
	preset               beacontypes.Preset
}

// New builds a StateProver from precomputed BeaconState field roots (in
// field-declaration order) and the decoded validators/consolidations those
// field roots summarize for the validators and pending_consolidations
// fields respectively.
func New(fieldRoots [][32]byte, validators []beacontypes.Validator, consolidations []beacontypes.PendingConsolidation, preset beacontypes.Preset) (*StateProver, error) {
	if len(fieldRoots) != BeaconStateFieldCount {
		return nil, &FieldRootCountMismatchError{Got: len(fieldRoots), Want: BeaconStateFieldCount}
	}

	validatorHashes := make([][32]byte, len(validators))
	for i, v := range validators {
		validatorHashes[i] = v.HashTreeRoot()
	}

	consolidationHashes := make([][32]byte, len(consolidations))
	for i, c := range consolidations {
		consolidationHashes[i] = c.HashTreeRoot()
	}

	roots := make([][32]byte, len(fieldRoots))
	copy(roots, fieldRoots)

	return &StateProver{
		fieldRoots:          roots,
		validators:          validators,
		validatorHashes:     validatorHashes,
		consolidations:      consolidations,
		consolidationHashes: consolidationHashes,
		preset:              preset,
	}, nil
}

// StateRoot computes the BeaconState container root from its field roots.
func (p *StateProver) StateRoot() [32]byte {
	return sparsemerkle.SubtreeRoot(p.fieldRoots, gindex.BeaconStateTreeDepth)
}

// ProveConsolidationSourceIndex proves pending_consolidations[index].source_index
// against the state root, returning the leaf value and the branch (data
// tree, length mix-in, and the pending_consolidations field itself).
func (p *StateProver) ProveConsolidationSourceIndex(index uint64) (leaf [32]byte, branch [][32]byte, err error) {
	if index >= uint64(len(p.consolidations)) {
		return [32]byte{}, nil, &ConsolidationIndexOutOfBoundsError{Index: index, Count: len(p.consolidations)}
	}

	consolidationFieldHashes := p.consolidations[index].FieldHashes()
	fieldBranch, _, err := sszcompose.ContainerProve(consolidationFieldHashes, int(gindex.SourceIndexFieldIndex))
	if err != nil {
		return [32]byte{}, nil, fmt.Errorf("stateprover: consolidation field proof: %w", err)
	}
	fieldLeaf := consolidationFieldHashes[gindex.SourceIndexFieldIndex]

	listBranch, _, err := sszcompose.ListProve(p.consolidationHashes, index, p.preset.ConsolidationsDataDepth, uint64(len(p.consolidations)))
	if err != nil {
		return [32]byte{}, nil, fmt.Errorf("stateprover: consolidation list proof: %w", err)
	}

	stateBranch, _, err := sszcompose.ContainerProve(p.fieldRoots, int(gindex.PendingConsolidationsFieldIndex))
	if err != nil {
		return [32]byte{}, nil, fmt.Errorf("stateprover: consolidation state-field proof: %w", err)
	}

	full := make([][32]byte, 0, len(fieldBranch)+len(listBranch)+len(stateBranch))
	full = append(full, fieldBranch...)
	full = append(full, listBranch...)
	full = append(full, stateBranch...)

	return fieldLeaf, full, nil
}

// ProveValidatorCredentials proves validators[index].withdrawal_credentials
// against the state root.
func (p *StateProver) ProveValidatorCredentials(index uint64) (leaf [32]byte, branch [][32]byte, err error) {
	return p.proveValidatorField(index, int(gindex.WithdrawalCredentialsFieldIndex))
}

// ProveValidatorActivationEpoch proves validators[index].activation_epoch
// against the state root.
func (p *StateProver) ProveValidatorActivationEpoch(index uint64) (leaf [32]byte, branch [][32]byte, err error) {
	return p.proveValidatorField(index, int(gindex.ActivationEpochFieldIndex))
}

func (p *StateProver) proveValidatorField(index uint64, fieldIndex int) (leaf [32]byte, branch [][32]byte, err error) {
	if index >= uint64(len(p.validators)) {
		return [32]byte{}, nil, &ValidatorIndexOutOfBoundsError{Index: index, Count: len(p.validators)}
	}

	fieldHashes := p.validators[index].FieldHashes()
	fieldBranch, _, err := sszcompose.ContainerProve(fieldHashes, fieldIndex)
	if err != nil {
		return [32]byte{}, nil, fmt.Errorf("stateprover: validator field proof: %w", err)
	}

	listBranch, _, err := sszcompose.ListProve(p.validatorHashes, index, p.preset.ValidatorsDataDepth, uint64(len(p.validators)))
	if err != nil {
		return [32]byte{}, nil, fmt.Errorf("stateprover: validator list proof: %w", err)
	}

	stateBranch, _, err := sszcompose.ContainerProve(p.fieldRoots, int(gindex.ValidatorsFieldIndex))
	if err != nil {
		return [32]byte{}, nil, fmt.Errorf("stateprover: validator state-field proof: %w", err)
	}

	full := make([][32]byte, 0, len(fieldBranch)+len(listBranch)+len(stateBranch))
	full = append(full, fieldBranch...)
	full = append(full, listBranch...)
	full = append(full, stateBranch...)

	return fieldHashes[fieldIndex], full, nil
}

// GenerateBundle produces the full proof bundle for a consolidation
// reward claim, rooted at a beacon block header: the three state-level
// proofs above, each extended with the header's own proof of state_root,
// plus the plaintext values a claim needs to present on-chain.
func (p *StateProver) GenerateBundle(header beacontypes.BeaconBlockHeader, consolidationIndex uint64, beaconTimestamp uint64) (Bundle, error) {
	if consolidationIndex >= uint64(len(p.consolidations)) {
		return Bundle{}, &ConsolidationIndexOutOfBoundsError{Index: consolidationIndex, Count: len(p.consolidations)}
	}

	consolidation := p.consolidations[consolidationIndex]
	sourceIndex := consolidation.SourceIndex
	if sourceIndex >= uint64(len(p.validators)) {
		return Bundle{}, &ValidatorIndexOutOfBoundsError{Index: sourceIndex, Count: len(p.validators)}
	}
	validator := p.validators[sourceIndex]

	headerBranch, _, err := sszcompose.ContainerProve(header.FieldHashes(), int(gindex.StateRootFieldIndex))
	if err != nil {
		return Bundle{}, fmt.Errorf("stateprover: header proof: %w", err)
	}

	_, consolidationBranch, err := p.ProveConsolidationSourceIndex(consolidationIndex)
	if err != nil {
		return Bundle{}, err
	}
	_, credentialsBranch, err := p.ProveValidatorCredentials(sourceIndex)
	if err != nil {
		return Bundle{}, err
	}
	_, activationBranch, err := p.ProveValidatorActivationEpoch(sourceIndex)
	if err != nil {
		return Bundle{}, err
	}

	return Bundle{
		BeaconTimestamp:      beaconTimestamp,
		ConsolidationIndex:   consolidationIndex,
		SourceIndex:          consolidation.SourceIndex,
		ActivationEpoch:      validator.ActivationEpoch,
		SourceCredentials:    validator.WithdrawalCredentials,
		ProofConsolidation:   append(append([][32]byte{}, consolidationBranch...), headerBranch...),
		ProofCredentials:     append(append([][32]byte{}, credentialsBranch...), headerBranch...),
		ProofActivationEpoch: append(append([][32]byte{}, activationBranch...), headerBranch...),
	}, nil
}

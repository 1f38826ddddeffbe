// Package testvectors builds small, deterministic beacon-state fixtures
// and generates the proof bundles a Solidity contract test suite checks
// against, using the same stateprover logic the production service uses.
package testvectors

import (
	"fmt"

	"github.com/dapplion/consolidation-incentives-go/beacontypes"
	"github.com/dapplion/consolidation-incentives-go/gindex"
	"github.com/dapplion/consolidation-incentives-go/sparsemerkle"
	"github.com/dapplion/consolidation-incentives-go/stateprover"
	"github.com/dapplion/consolidation-incentives-go/zerohash"
)

// Vector is one named test vector: a proof bundle, ready to be marshaled
// to JSON. The block header the bundle verifies against is not included.
type Vector struct {
	Name   string
	Bundle stateprover.Bundle
}

// PresetByName resolves a preset flag value ("production" or "test") to
// its beacontypes.Preset.
func PresetByName(name string) (beacontypes.Preset, error) {
	switch name {
	case "production", "":
		return beacontypes.Production, nil
	case "test":
		return beacontypes.Test, nil
	default:
		return beacontypes.Preset{}, fmt.Errorf("testvectors: unknown preset %q", name)
	}
}

func fixtureValidator(index byte, credentialPrefix byte) beacontypes.Validator {
	v := beacontypes.Validator{
		EffectiveBalance: 32_000_000_000,
		ActivationEpoch:  100 + uint64(index),
	}
	v.WithdrawalCredentials[0] = credentialPrefix
	for i := 12; i < 32; i++ {
		v.WithdrawalCredentials[i] = index
	}
	return v
}

func listRoot(hashes [][32]byte, depth int, length uint64) [32]byte {
	dataRoot := sparsemerkle.SubtreeRoot(hashes, depth)
	var lengthChunk [32]byte
	for i := 0; i < 8; i++ {
		lengthChunk[i] = byte(length >> uint(8*i))
	}
	return zerohash.Pair(dataRoot, lengthChunk)
}

func fieldRoots(validators []beacontypes.Validator, consolidations []beacontypes.PendingConsolidation, preset beacontypes.Preset) [][32]byte {
	roots := make([][32]byte, stateprover.BeaconStateFieldCount)

	validatorHashes := make([][32]byte, len(validators))
	for i, v := range validators {
		validatorHashes[i] = v.HashTreeRoot()
	}
	consolidationHashes := make([][32]byte, len(consolidations))
	for i, c := range consolidations {
		consolidationHashes[i] = c.HashTreeRoot()
	}

	roots[gindex.ValidatorsFieldIndex] = listRoot(validatorHashes, preset.ValidatorsDataDepth, uint64(len(validators)))
	roots[gindex.PendingConsolidationsFieldIndex] = listRoot(consolidationHashes, preset.ConsolidationsDataDepth, uint64(len(consolidations)))
	return roots
}

// Generate builds the fixed set of test vectors this module ships:
// one ordinary consolidation claim, one exercising a 0x02 (compounding)
// withdrawal credential, and one with a BLS (non-executable) credential
// to document the RecipientAddress edge case.
func Generate(preset beacontypes.Preset) ([]Vector, error) {
	validators := []beacontypes.Validator{
		fixtureValidator(0, 0x01),
		fixtureValidator(1, 0x02),
		fixtureValidator(2, 0x00),
	}
	consolidations := []beacontypes.PendingConsolidation{
		{SourceIndex: 0, TargetIndex: 2},
		{SourceIndex: 1, TargetIndex: 2},
		{SourceIndex: 2, TargetIndex: 2},
	}

	roots := fieldRoots(validators, consolidations, preset)
	prover, err := stateprover.New(roots, validators, consolidations, preset)
	if err != nil {
		return nil, err
	}

	header := beacontypes.BeaconBlockHeader{
		Slot:          1_000_000,
		ProposerIndex: 0,
		StateRoot:     prover.StateRoot(),
		BodyRoot:      beacontypes.Root{0xbd},
	}

	names := []string{
		"execution_withdrawal_credential",
		"compounding_withdrawal_credential",
		"bls_withdrawal_credential",
	}

	vectors := make([]Vector, 0, len(consolidations))
	for i, name := range names {
		bundle, err := prover.GenerateBundle(header, uint64(i), 1_700_000_000)
		if err != nil {
			return nil, fmt.Errorf("testvectors: generating bundle %q: %w", name, err)
		}
		vectors = append(vectors, Vector{Name: name, Bundle: bundle})
	}
	return vectors, nil
}

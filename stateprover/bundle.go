package stateprover

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Bundle is a complete proof bundle for a consolidation reward claim: the
// plaintext values the claim asserts, plus a Merkle branch for each one
// rooted at a beacon block header.
type Bundle struct {
	BeaconTimestamp      uint64
	ConsolidationIndex   uint64
	SourceIndex          uint64
	ActivationEpoch      uint64
	SourceCredentials    [32]byte
	ProofConsolidation   [][32]byte
	ProofCredentials     [][32]byte
	ProofActivationEpoch [][32]byte
}

// RecipientAddress derives the 20-byte EVM address encoded in an
// execution-layer withdrawal credential (prefix 0x01 or 0x02). It returns
// false for a BLS withdrawal credential (prefix 0x00), which has no
// embedded address.
func (b Bundle) RecipientAddress() (addr [20]byte, ok bool) {
	prefix := b.SourceCredentials[0]
	if prefix != 0x01 && prefix != 0x02 {
		return [20]byte{}, false
	}
	copy(addr[:], b.SourceCredentials[12:32])
	return addr, true
}

// bundleJSON mirrors Bundle's external wire shape: hex-encoded roots
// with a "0x" prefix, decimal-string-free uint64 fields (JSON numbers are
// exact up to 2^53, comfortably above any slot/epoch/index this system
// produces).
type bundleJSON struct {
	BeaconTimestamp      uint64   `json:"beacon_timestamp"`
	ConsolidationIndex   uint64   `json:"consolidation_index"`
	SourceIndex          uint64   `json:"source_index"`
	ActivationEpoch      uint64   `json:"activation_epoch"`
	SourceCredentials    string   `json:"source_credentials"`
	ProofConsolidation   []string `json:"proof_consolidation"`
	ProofCredentials     []string `json:"proof_credentials"`
	ProofActivationEpoch []string `json:"proof_activation_epoch"`
}

func hexEncodeRoot(r [32]byte) string {
	return "0x" + hex.EncodeToString(r[:])
}

func hexDecodeRoot(s string) ([32]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return [32]byte{}, err
	}
	if len(b) != 32 {
		return [32]byte{}, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	var out [32]byte
	copy(out[:], b)
	return out, nil
}

func hexEncodeRoots(roots [][32]byte) []string {
	out := make([]string, len(roots))
	for i, r := range roots {
		out[i] = hexEncodeRoot(r)
	}
	return out
}

func hexDecodeRoots(strs []string) ([][32]byte, error) {
	out := make([][32]byte, len(strs))
	for i, s := range strs {
		r, err := hexDecodeRoot(s)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

// MarshalJSON renders the bundle in the wire shape external consumers
// (the beacon-node-facing test-vector files, the claim submitter) expect.
func (b Bundle) MarshalJSON() ([]byte, error) {
	return json.Marshal(bundleJSON{
		BeaconTimestamp:      b.BeaconTimestamp,
		ConsolidationIndex:   b.ConsolidationIndex,
		SourceIndex:          b.SourceIndex,
		ActivationEpoch:      b.ActivationEpoch,
		SourceCredentials:    hexEncodeRoot(b.SourceCredentials),
		ProofConsolidation:   hexEncodeRoots(b.ProofConsolidation),
		ProofCredentials:     hexEncodeRoots(b.ProofCredentials),
		ProofActivationEpoch: hexEncodeRoots(b.ProofActivationEpoch),
	})
}

// UnmarshalJSON parses the wire shape produced by MarshalJSON.
func (b *Bundle) UnmarshalJSON(data []byte) error {
	var wire bundleJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	creds, err := hexDecodeRoot(wire.SourceCredentials)
	if err != nil {
		return fmt.Errorf("source_credentials: %w", err)
	}
	proofConsolidation, err := hexDecodeRoots(wire.ProofConsolidation)
	if err != nil {
		return fmt.Errorf("proof_consolidation: %w", err)
	}
	proofCredentials, err := hexDecodeRoots(wire.ProofCredentials)
	if err != nil {
		return fmt.Errorf("proof_credentials: %w", err)
	}
	proofActivationEpoch, err := hexDecodeRoots(wire.ProofActivationEpoch)
	if err != nil {
		return fmt.Errorf("proof_activation_epoch: %w", err)
	}

	b.BeaconTimestamp = wire.BeaconTimestamp
	b.ConsolidationIndex = wire.ConsolidationIndex
	b.SourceIndex = wire.SourceIndex
	b.ActivationEpoch = wire.ActivationEpoch
	b.SourceCredentials = creds
	b.ProofConsolidation = proofConsolidation
	b.ProofCredentials = proofCredentials
	b.ProofActivationEpoch = proofActivationEpoch
	return nil
}

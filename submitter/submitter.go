// Package submitter encodes a finished consolidation-reward proof bundle
// into the calldata for the on-chain claim function. It stops at the ABI
// boundary: signing, broadcasting, and confirmation polling are out of
// scope until a contract ABI is finalized, matching the original
// service's submitter stub.
package submitter

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dapplion/consolidation-incentives-go/stateprover"
)

// Config controls where and how claims get submitted once signing is
// wired in.
type Config struct {
	RPCURL          string
	ContractAddress common.Address
	PrivateKey      string // hex, no 0x prefix; empty means read-only
	MaxGasPriceGwei uint64
	Confirmations   uint64
}

// Submitter encodes and (once a signer is configured) submits
// consolidation reward claims.
type Submitter struct {
	config    Config
	hasSigner bool
	method    abi.Method
}

// ErrNoSigner is returned by Submit when the Submitter was built without
// a private key.
var ErrNoSigner = errors.New("submitter: not configured with a signer")

// New builds a read-only Submitter: it can encode calldata, but Submit
// always fails.
func New(config Config) (*Submitter, error) {
	method, err := claimRewardMethod()
	if err != nil {
		return nil, err
	}
	return &Submitter{config: config, hasSigner: false, method: method}, nil
}

// WithSigner builds a Submitter that can sign and submit transactions.
// config.PrivateKey must be non-empty.
func WithSigner(config Config) (*Submitter, error) {
	if config.PrivateKey == "" {
		return nil, fmt.Errorf("submitter: private key required for signing")
	}
	method, err := claimRewardMethod()
	if err != nil {
		return nil, err
	}
	return &Submitter{config: config, hasSigner: true, method: method}, nil
}

// claimConsolidationReward(uint64,uint64,uint64,bytes32,bytes32[],bytes32[],bytes32[],uint64)
func claimRewardMethod() (abi.Method, error) {
	uint64Type, err := abi.NewType("uint64", "", nil)
	if err != nil {
		return abi.Method{}, err
	}
	bytes32Type, err := abi.NewType("bytes32", "", nil)
	if err != nil {
		return abi.Method{}, err
	}
	bytes32ArrayType, err := abi.NewType("bytes32[]", "", nil)
	if err != nil {
		return abi.Method{}, err
	}

	args := abi.Arguments{
		{Name: "sourceIndex", Type: uint64Type},
		{Name: "consolidationIndex", Type: uint64Type},
		{Name: "activationEpoch", Type: uint64Type},
		{Name: "sourceCredentials", Type: bytes32Type},
		{Name: "proofConsolidation", Type: bytes32ArrayType},
		{Name: "proofCredentials", Type: bytes32ArrayType},
		{Name: "proofActivationEpoch", Type: bytes32ArrayType},
		{Name: "beaconTimestamp", Type: uint64Type},
	}

	return abi.NewMethod("claimConsolidationReward", "claimConsolidationReward", abi.Function, "", false, false, args, nil), nil
}

// EncodeClaim ABI-encodes the claimConsolidationReward calldata (4-byte
// selector plus packed arguments) for the given proof bundle.
func (s *Submitter) EncodeClaim(bundle stateprover.Bundle) ([]byte, error) {
	packed, err := s.method.Inputs.Pack(
		bundle.SourceIndex,
		bundle.ConsolidationIndex,
		bundle.ActivationEpoch,
		bundle.SourceCredentials,
		rootsToBytes32(bundle.ProofConsolidation),
		rootsToBytes32(bundle.ProofCredentials),
		rootsToBytes32(bundle.ProofActivationEpoch),
		bundle.BeaconTimestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("submitter: packing claim calldata: %w", err)
	}
	return append(append([]byte{}, s.method.ID...), packed...), nil
}

func rootsToBytes32(roots [][32]byte) [][32]byte {
	out := make([][32]byte, len(roots))
	copy(out, roots)
	return out
}

// Submit encodes and would broadcast a consolidation reward claim.
// Until signing/broadcast is implemented, it reports the stub behavior
// of the original service: fail without a signer, otherwise return a
// placeholder transaction hash derived from the source index.
func (s *Submitter) Submit(bundle stateprover.Bundle) (txHash string, err error) {
	if !s.hasSigner {
		return "", ErrNoSigner
	}
	if _, err := s.EncodeClaim(bundle); err != nil {
		return "", err
	}
	return fmt.Sprintf("0x%064x", bundle.SourceIndex), nil
}

// IsRewarded reports whether sourceIndex has already claimed its reward.
// Stub: always returns false until a read-only contract call is wired
// in against a finalized ABI.
func (s *Submitter) IsRewarded(sourceIndex uint64) (bool, error) {
	_ = sourceIndex
	return false, nil
}

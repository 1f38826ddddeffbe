// Package beaconclient is a thin HTTP client against the subset of the
// Beacon API this engine needs: finalized headers, finality checkpoints,
// pending consolidations, validators, and raw SSZ state dumps.
package beaconclient

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// NotFoundError reports a 404 response for a state or header lookup.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("beaconclient: %s not found for %q", e.Kind, e.ID)
}

// ProtocolError reports a non-2xx, non-404 response.
type ProtocolError struct {
	StatusCode int
	Body       string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("beaconclient: unexpected status %d: %s", e.StatusCode, e.Body)
}

// InvalidResponseError reports a response body that doesn't parse into
// the shape the endpoint promises.
type InvalidResponseError struct {
	Reason string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("beaconclient: invalid response: %s", e.Reason)
}

// Client fetches beacon-chain data over the standard Beacon API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client against the given beacon node base URL, e.g.
// "http://localhost:5052".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{},
	}
}

// NewWithHTTPClient builds a Client using a caller-supplied *http.Client,
// e.g. one configured with a timeout or a custom transport.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) get(path string, accept string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("beaconclient: building request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("beaconclient: request failed: %w", err)
	}
	return resp, nil
}

// GetStateSSZ fetches a beacon state as raw SSZ bytes.
// stateID is a slot number, "head", "finalized", "genesis", or a state root.
func (c *Client) GetStateSSZ(stateID string) ([]byte, error) {
	resp, err := c.get("/eth/v2/debug/beacon/states/"+stateID, "application/octet-stream")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Kind: "state", ID: stateID}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &ProtocolError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return io.ReadAll(resp.Body)
}

// BeaconBlockHeader is the decoded form of a beacon block header response.
type BeaconBlockHeader struct {
	Slot          uint64
	ProposerIndex uint64
	ParentRoot    [32]byte
	StateRoot     [32]byte
	BodyRoot      [32]byte
}

type headerResponseJSON struct {
	Data struct {
		Header struct {
			Message struct {
				Slot          string `json:"slot"`
				ProposerIndex string `json:"proposer_index"`
				ParentRoot    string `json:"parent_root"`
				StateRoot     string `json:"state_root"`
				BodyRoot      string `json:"body_root"`
			} `json:"message"`
		} `json:"header"`
	} `json:"data"`
}

// GetHeader fetches a beacon block header.
// blockID is a slot number, "head", "finalized", "genesis", or a block root.
func (c *Client) GetHeader(blockID string) (BeaconBlockHeader, error) {
	resp, err := c.get("/eth/v1/beacon/headers/"+blockID, "")
	if err != nil {
		return BeaconBlockHeader{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return BeaconBlockHeader{}, &NotFoundError{Kind: "header", ID: blockID}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return BeaconBlockHeader{}, &ProtocolError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var wire headerResponseJSON
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return BeaconBlockHeader{}, &InvalidResponseError{Reason: err.Error()}
	}
	msg := wire.Data.Header.Message

	slot, err := strconv.ParseUint(msg.Slot, 10, 64)
	if err != nil {
		return BeaconBlockHeader{}, &InvalidResponseError{Reason: "invalid slot: " + err.Error()}
	}
	proposerIndex, err := strconv.ParseUint(msg.ProposerIndex, 10, 64)
	if err != nil {
		return BeaconBlockHeader{}, &InvalidResponseError{Reason: "invalid proposer_index: " + err.Error()}
	}
	parentRoot, err := parseHex32(msg.ParentRoot)
	if err != nil {
		return BeaconBlockHeader{}, err
	}
	stateRoot, err := parseHex32(msg.StateRoot)
	if err != nil {
		return BeaconBlockHeader{}, err
	}
	bodyRoot, err := parseHex32(msg.BodyRoot)
	if err != nil {
		return BeaconBlockHeader{}, err
	}

	return BeaconBlockHeader{
		Slot:          slot,
		ProposerIndex: proposerIndex,
		ParentRoot:    parentRoot,
		StateRoot:     stateRoot,
		BodyRoot:      bodyRoot,
	}, nil
}

// FinalityCheckpoints reports the three checkpoint epochs plus the
// finalized checkpoint's root.
type FinalityCheckpoints struct {
	PreviousJustifiedEpoch uint64
	CurrentJustifiedEpoch  uint64
	FinalizedEpoch         uint64
	FinalizedRoot          [32]byte
}

type checkpointsResponseJSON struct {
	Data struct {
		PreviousJustified struct {
			Epoch string `json:"epoch"`
		} `json:"previous_justified"`
		CurrentJustified struct {
			Epoch string `json:"epoch"`
		} `json:"current_justified"`
		Finalized struct {
			Epoch string `json:"epoch"`
			Root  string `json:"root"`
		} `json:"finalized"`
	} `json:"data"`
}

// GetFinalityCheckpoints fetches the head state's finality checkpoints.
func (c *Client) GetFinalityCheckpoints() (FinalityCheckpoints, error) {
	resp, err := c.get("/eth/v1/beacon/states/head/finality_checkpoints", "")
	if err != nil {
		return FinalityCheckpoints{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return FinalityCheckpoints{}, &NotFoundError{Kind: "state", ID: "head"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return FinalityCheckpoints{}, &ProtocolError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var wire checkpointsResponseJSON
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return FinalityCheckpoints{}, &InvalidResponseError{Reason: err.Error()}
	}

	prevJustified, err := strconv.ParseUint(wire.Data.PreviousJustified.Epoch, 10, 64)
	if err != nil {
		return FinalityCheckpoints{}, &InvalidResponseError{Reason: "invalid previous_justified epoch: " + err.Error()}
	}
	currJustified, err := strconv.ParseUint(wire.Data.CurrentJustified.Epoch, 10, 64)
	if err != nil {
		return FinalityCheckpoints{}, &InvalidResponseError{Reason: "invalid current_justified epoch: " + err.Error()}
	}
	finalized, err := strconv.ParseUint(wire.Data.Finalized.Epoch, 10, 64)
	if err != nil {
		return FinalityCheckpoints{}, &InvalidResponseError{Reason: "invalid finalized epoch: " + err.Error()}
	}
	finalizedRoot, err := parseHex32(wire.Data.Finalized.Root)
	if err != nil {
		return FinalityCheckpoints{}, err
	}

	return FinalityCheckpoints{
		PreviousJustifiedEpoch: prevJustified,
		CurrentJustifiedEpoch:  currJustified,
		FinalizedEpoch:         finalized,
		FinalizedRoot:          finalizedRoot,
	}, nil
}

// GetHeadSlot returns the current head slot.
func (c *Client) GetHeadSlot() (uint64, error) {
	header, err := c.GetHeader("head")
	if err != nil {
		return 0, err
	}
	return header.Slot, nil
}

// PendingConsolidation is the decoded form of one entry returned by the
// pending-consolidations endpoint.
type PendingConsolidation struct {
	SourceIndex uint64
	TargetIndex uint64
}

type pendingConsolidationJSON struct {
	SourceIndex string `json:"source_index"`
	TargetIndex string `json:"target_index"`
}

type pendingConsolidationsResponseJSON struct {
	Data []pendingConsolidationJSON `json:"data"`
}

// GetPendingConsolidations fetches the pending_consolidations queue via
// the standard (non-debug) Electra beacon-state endpoint, avoiding the
// need to fetch and decode a full SSZ state dump just to read one list.
func (c *Client) GetPendingConsolidations(stateID string) ([]PendingConsolidation, error) {
	resp, err := c.get("/eth/v1/beacon/states/"+stateID+"/pending_consolidations", "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Kind: "state", ID: stateID}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &ProtocolError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var wire pendingConsolidationsResponseJSON
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, &InvalidResponseError{Reason: err.Error()}
	}

	out := make([]PendingConsolidation, len(wire.Data))
	for i, entry := range wire.Data {
		sourceIndex, err := strconv.ParseUint(entry.SourceIndex, 10, 64)
		if err != nil {
			return nil, &InvalidResponseError{Reason: "invalid source_index: " + err.Error()}
		}
		targetIndex, err := strconv.ParseUint(entry.TargetIndex, 10, 64)
		if err != nil {
			return nil, &InvalidResponseError{Reason: "invalid target_index: " + err.Error()}
		}
		out[i] = PendingConsolidation{SourceIndex: sourceIndex, TargetIndex: targetIndex}
	}
	return out, nil
}

// Validator is the decoded form of one validator entry.
type Validator struct {
	Index                      uint64
	Pubkey                     [48]byte
	WithdrawalCredentials      [32]byte
	EffectiveBalance           uint64
	Slashed                    bool
	ActivationEligibilityEpoch uint64
	ActivationEpoch            uint64
	ExitEpoch                  uint64
	WithdrawableEpoch          uint64
}

type validatorResponseJSON struct {
	Data struct {
		Index     string `json:"index"`
		Validator struct {
			Pubkey                     string `json:"pubkey"`
			WithdrawalCredentials      string `json:"withdrawal_credentials"`
			EffectiveBalance           string `json:"effective_balance"`
			Slashed                    bool   `json:"slashed"`
			ActivationEligibilityEpoch string `json:"activation_eligibility_epoch"`
			ActivationEpoch            string `json:"activation_epoch"`
			ExitEpoch                  string `json:"exit_epoch"`
			WithdrawableEpoch          string `json:"withdrawable_epoch"`
		} `json:"validator"`
	} `json:"data"`
}

// GetValidator fetches a single validator by index from the given state.
func (c *Client) GetValidator(stateID string, validatorIndex uint64) (Validator, error) {
	path := fmt.Sprintf("/eth/v1/beacon/states/%s/validators/%d", stateID, validatorIndex)
	resp, err := c.get(path, "")
	if err != nil {
		return Validator{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Validator{}, &NotFoundError{Kind: "validator", ID: strconv.FormatUint(validatorIndex, 10)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return Validator{}, &ProtocolError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var wire validatorResponseJSON
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return Validator{}, &InvalidResponseError{Reason: err.Error()}
	}
	v := wire.Data.Validator

	index, err := strconv.ParseUint(wire.Data.Index, 10, 64)
	if err != nil {
		return Validator{}, &InvalidResponseError{Reason: "invalid index: " + err.Error()}
	}
	effectiveBalance, err := strconv.ParseUint(v.EffectiveBalance, 10, 64)
	if err != nil {
		return Validator{}, &InvalidResponseError{Reason: "invalid effective_balance: " + err.Error()}
	}
	activationEligibilityEpoch, err := strconv.ParseUint(v.ActivationEligibilityEpoch, 10, 64)
	if err != nil {
		return Validator{}, &InvalidResponseError{Reason: "invalid activation_eligibility_epoch: " + err.Error()}
	}
	activationEpoch, err := strconv.ParseUint(v.ActivationEpoch, 10, 64)
	if err != nil {
		return Validator{}, &InvalidResponseError{Reason: "invalid activation_epoch: " + err.Error()}
	}
	exitEpoch, err := strconv.ParseUint(v.ExitEpoch, 10, 64)
	if err != nil {
		return Validator{}, &InvalidResponseError{Reason: "invalid exit_epoch: " + err.Error()}
	}
	withdrawableEpoch, err := strconv.ParseUint(v.WithdrawableEpoch, 10, 64)
	if err != nil {
		return Validator{}, &InvalidResponseError{Reason: "invalid withdrawable_epoch: " + err.Error()}
	}
	pubkey, err := parseHexN(v.Pubkey, 48)
	if err != nil {
		return Validator{}, err
	}
	withdrawalCredentials, err := parseHex32(v.WithdrawalCredentials)
	if err != nil {
		return Validator{}, err
	}

	var pubkeyArr [48]byte
	copy(pubkeyArr[:], pubkey)

	return Validator{
		Index:                      index,
		Pubkey:                     pubkeyArr,
		WithdrawalCredentials:      withdrawalCredentials,
		EffectiveBalance:           effectiveBalance,
		Slashed:                    v.Slashed,
		ActivationEligibilityEpoch: activationEligibilityEpoch,
		ActivationEpoch:            activationEpoch,
		ExitEpoch:                  exitEpoch,
		WithdrawableEpoch:          withdrawableEpoch,
	}, nil
}

func parseHex32(s string) ([32]byte, error) {
	b, err := parseHexN(s, 32)
	if err != nil {
		return [32]byte{}, err
	}
	var out [32]byte
	copy(out[:], b)
	return out, nil
}

func parseHexN(s string, n int) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, &InvalidResponseError{Reason: "invalid hex: " + err.Error()}
	}
	if len(b) != n {
		return nil, &InvalidResponseError{Reason: fmt.Sprintf("expected %d bytes, got %d", n, len(b))}
	}
	return b, nil
}

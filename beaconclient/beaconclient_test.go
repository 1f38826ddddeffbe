package beaconclient

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func root32(lead byte) string {
	return "0x" + fmt.Sprintf("%02x", lead) + hexN(31)
}

func TestGetHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/eth/v1/beacon/headers/head" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprintf(w, `{"data":{"header":{"message":{
			"slot":"12345",
			"proposer_index":"42",
			"parent_root":"%s",
			"state_root":"%s",
			"body_root":"%s"
		}}}}`, root32(1), root32(2), root32(3))
	}))
	defer srv.Close()

	c := New(srv.URL)
	header, err := c.GetHeader("head")
	if err != nil {
		t.Fatal(err)
	}
	if header.Slot != 12345 {
		t.Errorf("Slot = %d, want 12345", header.Slot)
	}
	if header.ProposerIndex != 42 {
		t.Errorf("ProposerIndex = %d, want 42", header.ProposerIndex)
	}
	if header.StateRoot[0] != 0x02 {
		t.Errorf("StateRoot[0] = %x, want 0x02", header.StateRoot[0])
	}
}

func TestGetHeaderNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetHeader("999999")
	if err == nil {
		t.Fatal("expected not-found error")
	}
	var nfErr *NotFoundError
	if _, ok := err.(*NotFoundError); !ok {
		t.Fatalf("err = %T (%v), want *NotFoundError", err, nfErr)
	}
}

func TestGetFinalityCheckpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{
			"previous_justified":{"epoch":"100","root":"%s"},
			"current_justified":{"epoch":"101","root":"%s"},
			"finalized":{"epoch":"99","root":"%s"}
		}}`, root32(0x0a), root32(0x0b), root32(0x0c))
	}))
	defer srv.Close()

	c := New(srv.URL)
	cp, err := c.GetFinalityCheckpoints()
	if err != nil {
		t.Fatal(err)
	}
	if cp.FinalizedEpoch != 99 {
		t.Errorf("FinalizedEpoch = %d, want 99", cp.FinalizedEpoch)
	}
	if cp.PreviousJustifiedEpoch != 100 || cp.CurrentJustifiedEpoch != 101 {
		t.Errorf("unexpected checkpoints: %+v", cp)
	}
}

func TestGetPendingConsolidations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantPath := "/eth/v1/beacon/states/1600/pending_consolidations"
		if r.URL.Path != wantPath {
			t.Fatalf("path = %s, want %s", r.URL.Path, wantPath)
		}
		fmt.Fprint(w, `{"data":[{"source_index":"3","target_index":"0"},{"source_index":"7","target_index":"1"}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	list, err := c.GetPendingConsolidations("1600")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}
	if list[0].SourceIndex != 3 || list[0].TargetIndex != 0 {
		t.Errorf("list[0] = %+v", list[0])
	}
	if list[1].SourceIndex != 7 || list[1].TargetIndex != 1 {
		t.Errorf("list[1] = %+v", list[1])
	}
}

func TestGetPendingConsolidationsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	list, err := c.GetPendingConsolidations("head")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("len(list) = %d, want 0", len(list))
	}
}

func TestGetStateSSZ(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(payload)
	}))
	defer srv.Close()

	c := New(srv.URL)
	got, err := c.GetStateSSZ("finalized")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(payload) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(payload))
	}
}

func TestGetStateSSZProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetStateSSZ("head")
	if err == nil {
		t.Fatal("expected protocol error")
	}
	if _, ok := err.(*ProtocolError); !ok {
		t.Fatalf("err = %T, want *ProtocolError", err)
	}
}

func TestGetValidator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"index":"5","validator":{
			"pubkey":"0x`+hexN(48)+`",
			"withdrawal_credentials":"0x`+hexN(32)+`",
			"effective_balance":"32000000000",
			"slashed":false,
			"activation_eligibility_epoch":"10",
			"activation_epoch":"11",
			"exit_epoch":"18446744073709551615",
			"withdrawable_epoch":"18446744073709551615"
		}}}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	v, err := c.GetValidator("head", 5)
	if err != nil {
		t.Fatal(err)
	}
	if v.Index != 5 {
		t.Errorf("Index = %d, want 5", v.Index)
	}
	if v.EffectiveBalance != 32_000_000_000 {
		t.Errorf("EffectiveBalance = %d, want 32000000000", v.EffectiveBalance)
	}
	if v.ActivationEpoch != 11 {
		t.Errorf("ActivationEpoch = %d, want 11", v.ActivationEpoch)
	}
}

func hexN(n int) string {
	out := make([]byte, n*2)
	for i := range out {
		out[i] = '0'
	}
	return string(out)
}

func TestParseHex32RejectsWrongLength(t *testing.T) {
	if _, err := parseHex32("0x0102"); err == nil {
		t.Fatal("expected error for short hex string")
	}
}

func TestParseHex32AcceptsWithoutPrefix(t *testing.T) {
	full := hexN(32)
	root, err := parseHex32(full)
	if err != nil {
		t.Fatal(err)
	}
	if root != ([32]byte{}) {
		t.Errorf("root = %x, want all zero", root)
	}
}

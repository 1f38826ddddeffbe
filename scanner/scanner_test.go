package scanner

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.SlotsPerEpoch != 16 {
		t.Errorf("SlotsPerEpoch = %d, want 16", c.SlotsPerEpoch)
	}
	if c.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", c.PollInterval)
	}
}

func newTestBeaconNode(t *testing.T, headSlot, finalizedEpoch uint64, consolidations string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/eth/v1/beacon/headers/head":
			fmt.Fprintf(w, `{"data":{"header":{"message":{
				"slot":"%d","proposer_index":"0",
				"parent_root":"0x%s","state_root":"0x%s","body_root":"0x%s"
			}}}}`, headSlot, zero64(), zero64(), zero64())
		case r.URL.Path == "/eth/v1/beacon/states/head/finality_checkpoints":
			fmt.Fprintf(w, `{"data":{
				"previous_justified":{"epoch":"%d","root":"0x%s"},
				"current_justified":{"epoch":"%d","root":"0x%s"},
				"finalized":{"epoch":"%d","root":"0x%s"}
			}}`, finalizedEpoch, zero64(), finalizedEpoch, zero64(), finalizedEpoch, zero64())
		default:
			fmt.Fprintf(w, `{"data":[%s]}`, consolidations)
		}
	}))
}

func zero64() string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}

func silentLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(nopWriter{})
	return logrus.NewEntry(logger)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestPollOnceDetectsNewConsolidation(t *testing.T) {
	srv := newTestBeaconNode(t, 1600, 100, `{"source_index":"3","target_index":"0"}`)
	defer srv.Close()

	store := NewStore(0)
	s := New(Config{BeaconURL: srv.URL, SlotsPerEpoch: 16}, store, silentLog())

	if err := s.pollOnce(); err != nil {
		t.Fatal(err)
	}

	record, ok := store.Get(3)
	if !ok {
		t.Fatal("expected source index 3 to be tracked")
	}
	if record.Status != StatusDetected {
		t.Errorf("Status = %s, want %s", record.Status, StatusDetected)
	}
	if record.EpochSeen != 100 {
		t.Errorf("EpochSeen = %d, want 100", record.EpochSeen)
	}
	if store.HeadSlot() != 1600 {
		t.Errorf("HeadSlot = %d, want 1600", store.HeadSlot())
	}
	if store.CurrentSlot() != 100*16 {
		t.Errorf("CurrentSlot = %d, want %d", store.CurrentSlot(), 100*16)
	}
}

func TestPollOnceSkipsAlreadySeenEpoch(t *testing.T) {
	srv := newTestBeaconNode(t, 1600, 100, `{"source_index":"3","target_index":"0"}`)
	defer srv.Close()

	store := NewStore(0)
	s := New(Config{BeaconURL: srv.URL, SlotsPerEpoch: 16}, store, silentLog())

	if err := s.pollOnce(); err != nil {
		t.Fatal(err)
	}
	store.Upsert(ConsolidationRecord{SourceIndex: 3, Status: StatusSubmitted})

	if err := s.pollOnce(); err != nil {
		t.Fatal(err)
	}

	record, _ := store.Get(3)
	if record.Status != StatusSubmitted {
		t.Fatal("second poll of the same finalized epoch should not re-detect the consolidation")
	}
}

func TestPollOnceSkipsAlreadyTrackedSourceIndex(t *testing.T) {
	srv := newTestBeaconNode(t, 1600, 100, `{"source_index":"3","target_index":"0"}`)
	defer srv.Close()

	store := NewStore(0)
	store.Upsert(ConsolidationRecord{SourceIndex: 3, Status: StatusConfirmed})
	s := New(Config{BeaconURL: srv.URL, SlotsPerEpoch: 16}, store, silentLog())

	if err := s.pollOnce(); err != nil {
		t.Fatal(err)
	}

	record, _ := store.Get(3)
	if record.Status != StatusConfirmed {
		t.Fatal("already-tracked source index should not be overwritten")
	}
}

func TestStoreStatusCounts(t *testing.T) {
	store := NewStore(0)
	store.Upsert(ConsolidationRecord{SourceIndex: 1, Status: StatusDetected})
	store.Upsert(ConsolidationRecord{SourceIndex: 2, Status: StatusDetected})
	store.Upsert(ConsolidationRecord{SourceIndex: 3, Status: StatusConfirmed})

	counts := store.StatusCounts()
	if counts.Detected != 2 {
		t.Errorf("Detected = %d, want 2", counts.Detected)
	}
	if counts.Confirmed != 1 {
		t.Errorf("Confirmed = %d, want 1", counts.Confirmed)
	}
}

func TestStoreHealthiness(t *testing.T) {
	store := NewStore(0)
	store.SetCurrentSlot(100)
	store.SetHeadSlot(150)

	if store.SlotsBehind() != 50 {
		t.Errorf("SlotsBehind = %d, want 50", store.SlotsBehind())
	}
	if !store.IsHealthy(64) {
		t.Fatal("expected healthy at 50 slots behind with threshold 64")
	}

	store.SetHeadSlot(200)
	if store.IsHealthy(64) {
		t.Fatal("expected unhealthy at 100 slots behind with threshold 64")
	}
}

func TestStoreLastError(t *testing.T) {
	store := NewStore(0)
	if store.LastError() != "" {
		t.Fatal("expected empty last error initially")
	}
	store.SetLastError("boom")
	if store.LastError() != "boom" {
		t.Errorf("LastError() = %q, want %q", store.LastError(), "boom")
	}
	store.SetLastError("")
	if store.LastError() != "" {
		t.Fatal("expected last error to clear")
	}
}

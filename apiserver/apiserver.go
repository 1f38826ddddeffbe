// Package apiserver exposes the scanner's sync status and tracked
// consolidations over a small REST surface.
package apiserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dapplion/consolidation-incentives-go/scanner"
)

// Server wraps a scanner.Store in an HTTP handler.
type Server struct {
	store          *scanner.Store
	maxSlotsBehind uint64
	log            *logrus.Entry
}

// New builds a Server reporting unhealthy once the scanner falls more
// than maxSlotsBehind behind the beacon node's head slot.
func New(store *scanner.Store, maxSlotsBehind uint64, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{store: store, maxSlotsBehind: maxSlotsBehind, log: log}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /consolidations", s.handleListConsolidations)
	mux.HandleFunc("GET /consolidations/{source_index}", s.handleGetConsolidation)
	return mux
}

// ListenAndServe runs the API server at listenAddr until the process
// exits or the listener errors.
func (s *Server) ListenAndServe(listenAddr string) error {
	s.log.WithField("address", listenAddr).Info("API server listening")
	return http.ListenAndServe(listenAddr, s.Handler())
}

type healthResponse struct {
	Status      string `json:"status"`
	SlotsBehind uint64 `json:"slots_behind"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	healthy := s.store.IsHealthy(s.maxSlotsBehind)
	status := "degraded"
	code := http.StatusServiceUnavailable
	if healthy {
		status = "healthy"
		code = http.StatusOK
	}

	writeJSON(w, code, healthResponse{
		Status:      status,
		SlotsBehind: s.store.SlotsBehind(),
	})
}

type statusResponse struct {
	CurrentSlot    uint64               `json:"current_slot"`
	CurrentEpoch   uint64               `json:"current_epoch"`
	HeadSlot       uint64               `json:"head_slot"`
	SlotsBehind    uint64               `json:"slots_behind"`
	UptimeSecs     int64                `json:"uptime_secs"`
	Consolidations scanner.StatusCounts `json:"consolidations"`
	LastError      string               `json:"last_error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		CurrentSlot:    s.store.CurrentSlot(),
		CurrentEpoch:   s.store.CurrentEpoch(),
		HeadSlot:       s.store.HeadSlot(),
		SlotsBehind:    s.store.SlotsBehind(),
		UptimeSecs:     s.store.UptimeSeconds(time.Now().Unix()),
		Consolidations: s.store.StatusCounts(),
		LastError:      s.store.LastError(),
	})
}

func (s *Server) handleListConsolidations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.All())
}

func (s *Server) handleGetConsolidation(w http.ResponseWriter, r *http.Request) {
	sourceIndex, err := strconv.ParseUint(r.PathValue("source_index"), 10, 64)
	if err != nil {
		http.Error(w, "invalid source_index", http.StatusBadRequest)
		return
	}

	record, ok := s.store.Get(sourceIndex)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

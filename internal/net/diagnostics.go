package net

import (
	"encoding/json"
	"net/http"
	"sort"
)

// sessionDiagnostics is one row of the /diagnostics answer.
type sessionDiagnostics struct {
	PlayerID         string `json:"playerId"`
	RTTMillis        int64  `json:"rttMillis"`
	Strikes          int    `json:"strikes"`
	LastProcessedSeq uint64 `json:"lastProcessedSeq"`
	Encoding         string `json:"encoding"`
}

type diagnosticsReport struct {
	Tick     uint64               `json:"tick"`
	Sessions []sessionDiagnostics `json:"sessions"`
}

// HandleDiagnostics reports per-session latency, anti-cheat strikes, and
// acknowledgment cursors. Operational surface only; clients never call it.
func (h *Hub) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	report := diagnosticsReport{
		Tick:     h.world.CurrentTick(),
		Sessions: make([]sessionDiagnostics, 0, len(h.subscribers)),
	}
	for id, sub := range h.subscribers {
		report.Sessions = append(report.Sessions, sessionDiagnostics{
			PlayerID:         id,
			RTTMillis:        h.tracker.RTT(id).Milliseconds(),
			Strikes:          h.world.Validator().Strikes(id),
			LastProcessedSeq: h.world.LastProcessedSeq(id),
			Encoding:         string(sub.enc),
		})
	}
	h.mu.Unlock()

	sort.Slice(report.Sessions, func(i, j int) bool {
		return report.Sessions[i].PlayerID < report.Sessions[j].PlayerID
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		h.log.Warn().Err(err).Msg("failed to encode diagnostics")
	}
}

// Router binds the hub's HTTP surface.
func (h *Hub) Router() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleWS)
	mux.HandleFunc("/diagnostics", h.HandleDiagnostics)
	return mux
}

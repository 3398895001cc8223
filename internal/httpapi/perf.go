package httpapi

import "net/http"

func (s *Server) handlePerfBridge(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"generated_at": "",
			"window_size":  0,
			"events":       []any{},
		})
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.SnapshotBridgeNotifications())
}

// handleResetPerfBridge clears the rolling window so a benchmark run starts
// from an empty sample set. Prometheus counters are left alone.
func (s *Server) handleResetPerfBridge(w http.ResponseWriter, _ *http.Request) {
	s.metrics.ResetBridgeNotifications()
	w.WriteHeader(http.StatusNoContent)
}

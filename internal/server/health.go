package server

import (
	"context"
	"net/http"
	"time"
)

const readinessTimeout = 5 * time.Second

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"status":"` + status + `"}`))
}

// handleHealth reports liveness only.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, "ok")
}

// handleReady checks that the blob container can be reached.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := s.store.CheckAccess(ctx); err != nil {
		s.logger.Warn().Err(err).Str("backend", s.store.Backend()).Msg("readiness check failed")
		writeStatus(w, http.StatusServiceUnavailable, "unavailable")
		return
	}
	writeStatus(w, http.StatusOK, "ready")
}

package handlers

import (
	"fmt"
	"net/http"

	"climatemarket/internal/auth"
	"climatemarket/internal/logger"
	"climatemarket/internal/storage"
)

// HandleHistory handles GET /api/history, the caller's committed calls newest first
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	principal, ok := auth.GetPrincipalFromContext(r.Context())
	if !ok {
		respondWithError(w, "Unauthorized: principal not in context", http.StatusUnauthorized)
		return
	}

	calls, err := h.store.CallsByCaller(r.Context(), principal, limitParam(r, 50, 500))
	if err != nil {
		logger.Error(principal, "history_error", err)
		respondWithError(w, "Failed to fetch history", http.StatusInternalServerError)
		return
	}
	if calls == nil {
		calls = []storage.CallRecord{}
	}

	logger.Debug(principal, "history_success", fmt.Sprintf("count=%d", len(calls)))
	respondWithJSON(w, http.StatusOK, calls)
}

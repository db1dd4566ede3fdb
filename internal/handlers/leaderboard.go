package handlers

import (
	"fmt"
	"net/http"

	"climatemarket/internal/ledger"
	"climatemarket/internal/logger"
)

// HandleLeaderboard handles GET /api/leaderboard
func (h *Handler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		logger.Debug("", "leaderboard_invalid_method", "method="+r.Method+" path="+r.URL.Path)
		respondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var leaderboard []ledger.Holding
	h.rt.View(func(s *ledger.State) {
		leaderboard = s.TopHolders(limitParam(r, 20, 100))
	})
	if leaderboard == nil {
		leaderboard = []ledger.Holding{}
	}

	logger.Debug("", "leaderboard_success", fmt.Sprintf("count=%d", len(leaderboard)))
	respondWithJSON(w, http.StatusOK, leaderboard)
}

package handlers

import (
	"fmt"
	"net/http"

	"climatemarket/internal/auth"
	"climatemarket/internal/ledger"
	"climatemarket/internal/logger"
)

// MarketResponse is one market as seen by the caller
type MarketResponse struct {
	ledger.Market
	Open  bool        `json:"open"`
	MyBet *ledger.Bet `json:"my_bet,omitempty"`
}

// HandleMarkets handles GET /api/markets. ?status=open keeps markets still
// accepting bets, ?status=resolved keeps resolved ones.
func (h *Handler) HandleMarkets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" && status != "open" && status != "resolved" {
		respondWithError(w, "Invalid status: must be 'open' or 'resolved'", http.StatusBadRequest)
		return
	}
	principal, _ := auth.GetPrincipalFromContext(r.Context())

	markets := []MarketResponse{}
	h.rt.View(func(s *ledger.State) {
		height := s.BlockHeight()
		for _, m := range s.Markets() {
			open := m.Open(height)
			if (status == "open" && !open) || (status == "resolved" && !m.Resolved) {
				continue
			}
			resp := MarketResponse{Market: m, Open: open}
			if principal != "" {
				if bet, err := s.Bet(m.ID, principal); err == nil {
					resp.MyBet = &bet
				}
			}
			markets = append(markets, resp)
		}
	})

	logger.Debug(principal, "markets_listed", fmt.Sprintf("status=%s count=%d", status, len(markets)))
	respondWithJSON(w, http.StatusOK, markets)
}

package handlers

import (
	"fmt"
	"net/http"

	"climatemarket/internal/auth"
	"climatemarket/internal/ledger"
	"climatemarket/internal/logger"
)

// MeResponse is the response for the /api/me endpoint
type MeResponse struct {
	Principal      string `json:"principal"`
	Balance        uint64 `json:"balance"`
	BalanceDisplay string `json:"balance_display"`
	IsProvider     bool   `json:"is_provider"`
	IsAdmin        bool   `json:"is_admin"`
	BlockHeight    uint64 `json:"block_height"`
}

// HandleMe handles the GET /api/me endpoint
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		logger.Debug("", "me_invalid_method", "method="+r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	principal, ok := auth.GetPrincipalFromContext(r.Context())
	if !ok {
		logger.Debug("", "me_unauthorized", "path="+r.URL.Path)
		http.Error(w, "Unauthorized: principal not in context", http.StatusUnauthorized)
		return
	}

	var resp MeResponse
	h.rt.View(func(s *ledger.State) {
		resp = MeResponse{
			Principal:   principal,
			Balance:     s.Balance(principal),
			IsProvider:  s.IsProvider(principal),
			IsAdmin:     s.Admin() != "" && s.Admin() == principal,
			BlockHeight: s.BlockHeight(),
		}
	})
	resp.BalanceDisplay = fmt.Sprintf("%d CLT", resp.Balance)

	logger.Debug(principal, "me_success", fmt.Sprintf("balance=%d", resp.Balance))
	respondWithJSON(w, http.StatusOK, resp)
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"climatemarket/internal/service"
	"climatemarket/internal/storage"
)

// Handler serves the ledger HTTP API
type Handler struct {
	rt    *service.Runtime
	store *storage.Store
}

// New creates a handler backed by rt and its journal
func New(rt *service.Runtime, store *storage.Store) *Handler {
	return &Handler{rt: rt, store: store}
}

// Router returns the API routes, relative to the /api prefix
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", PingHandler)
	mux.HandleFunc("/call", h.HandleCall)
	mux.HandleFunc("/me", h.HandleMe)
	mux.HandleFunc("/history", h.HandleHistory)
	mux.HandleFunc("/leaderboard", h.HandleLeaderboard)
	mux.HandleFunc("/markets", h.HandleMarkets)
	return mux
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// limitParam reads ?limit=, falling back to def and capping at max
func limitParam(r *http.Request, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"climatemarket/internal/auth"
	"climatemarket/internal/ledger"
	"climatemarket/internal/logger"
	"climatemarket/internal/service"
)

const maxCallBody = 64 << 10

// CallRequest is the request body for POST /api/call
type CallRequest struct {
	Function string          `json:"function"`
	Args     json.RawMessage `json:"args"`
}

// CallResponse is the response of POST /api/call
type CallResponse struct {
	Success bool   `json:"success"`
	Value   any    `json:"value"`
	TxID    string `json:"tx_id,omitempty"`
	Block   uint64 `json:"block,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HandleCall handles the POST /api/call endpoint
func (h *Handler) HandleCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	principal, ok := auth.GetPrincipalFromContext(ctx)
	if !ok {
		respondWithError(w, "Unauthorized: principal not in context", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallBody+1))
	if err != nil || len(body) > maxCallBody {
		respondWithCallError(w, principal, "", ledger.ErrInvalidArguments)
		return
	}

	var req CallRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil || req.Function == "" {
		respondWithCallError(w, principal, req.Function, ledger.ErrInvalidArguments)
		return
	}

	args, err := service.DecodeArgs(req.Args)
	if err != nil {
		respondWithCallError(w, principal, req.Function, err)
		return
	}

	rc, err := h.rt.Submit(ctx, principal, req.Function, args)
	if err != nil {
		respondWithCallError(w, principal, req.Function, err)
		return
	}

	logger.Debug(principal, "call_ok", fmt.Sprintf("function=%s tx_id=%s block=%d", req.Function, rc.TxID, rc.Block))
	respondWithJSON(w, http.StatusOK, CallResponse{
		Success: true,
		Value:   rc.Value,
		TxID:    rc.TxID,
		Block:   rc.Block,
	})
}

func respondWithCallError(w http.ResponseWriter, principal, function string, err error) {
	kind := ledger.Kind(err)
	status := statusForKind(kind)
	if kind == "" {
		logger.Error(principal, "call_failed", err)
		kind = "Internal"
	} else {
		logger.Debug(principal, "call_rejected", fmt.Sprintf("function=%s kind=%s", function, kind))
	}
	respondWithJSON(w, status, CallResponse{Error: kind})
}

// statusForKind maps a ledger error kind to an HTTP status
func statusForKind(kind string) int {
	switch kind {
	case "":
		return http.StatusInternalServerError
	case "InsufficientBalance":
		return http.StatusPaymentRequired
	case "NotFound", "MarketNotFound", "UnknownFunction":
		return http.StatusNotFound
	case "Unauthorized", "NotRegistered":
		return http.StatusForbidden
	case "AlreadyRegistered", "MarketResolved", "AlreadyResolved", "MarketNotResolved",
		"AlreadyClaimed", "OptionMismatch", "NotRefundable":
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

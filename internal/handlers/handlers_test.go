package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatemarket/internal/auth"
	"climatemarket/internal/ledger"
	"climatemarket/internal/service"
	"climatemarket/internal/storage"
)

const (
	alice = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"
	bob   = "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"
)

type testServer struct {
	handler http.Handler
	store   *storage.Store
	rt      *service.Runtime
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := storage.Open(":memory:")
	require.NoError(t, err, "Failed to initialize test database")
	t.Cleanup(func() { store.Close() })

	rt := service.NewRuntime(ledger.NewState(ledger.Options{StartBlock: 100}), store, nil, nil, nil)
	h := New(rt, store)

	mux := http.NewServeMux()
	mux.Handle("/api/", auth.Middleware("")(http.StripPrefix("/api", h.Router())))
	return &testServer{handler: mux, store: store, rt: rt}
}

func (ts *testServer) do(t *testing.T, principal, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if principal != "" {
		req.Header.Set(auth.HeaderPrincipal, principal)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) call(t *testing.T, principal, function, args string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rr := ts.do(t, principal, http.MethodPost, "/api/call", `{"function":"`+function+`","args":`+args+`}`)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return rr, resp
}

func TestPingHandler(t *testing.T) {
	ts := setupTestServer(t)

	rr := ts.do(t, "", http.MethodGet, "/api/ping", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
}

func TestHandleCallUnauthorized(t *testing.T) {
	ts := setupTestServer(t)

	// Don't set a principal - should fail
	rr := ts.do(t, "", http.MethodPost, "/api/call", `{"function":"get-total-supply","args":[]}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandleCallInvalidMethod(t *testing.T) {
	ts := setupTestServer(t)

	rr := ts.do(t, alice, http.MethodGet, "/api/call", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandleCallFlow(t *testing.T) {
	ts := setupTestServer(t)

	rr, resp := ts.call(t, alice, ledger.FnMint, `[1000, "`+alice+`"]`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, true, resp["value"])
	assert.NotEmpty(t, resp["tx_id"])
	assert.Equal(t, float64(100), resp["block"])

	rr, resp = ts.call(t, alice, ledger.FnCreateMarket, `["Will it rain tomorrow?", ["Yes", "No"], 11000]`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, float64(1), resp["value"])

	rr, _ = ts.call(t, alice, ledger.FnPlaceBet, `[1, 0, 100]`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr, resp = ts.call(t, bob, ledger.FnGetBalance, `["`+alice+`"]`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(900), resp["value"])
	assert.Nil(t, resp["tx_id"])

	rr, resp = ts.call(t, bob, ledger.FnGetMarket, `[1]`)
	require.Equal(t, http.StatusOK, rr.Code)
	market := resp["value"].(map[string]any)
	assert.Equal(t, float64(100), market["totalStake"])
	assert.Equal(t, alice, market["creator"])

	rr, resp = ts.call(t, bob, ledger.FnIsProvider, `["`+bob+`"]`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, resp["value"])
}

func TestHandleCallErrors(t *testing.T) {
	ts := setupTestServer(t)
	_, _ = ts.call(t, alice, ledger.FnMint, `[100, "`+alice+`"]`)
	_, _ = ts.call(t, alice, ledger.FnCreateMarket, `["Will it rain tomorrow?", ["Yes", "No"], 11000]`)
	_, _ = ts.call(t, alice, ledger.FnRegisterProvider, `["`+bob+`"]`)

	tests := []struct {
		name     string
		caller   string
		body     string
		wantCode int
		wantKind string
	}{
		{"insufficient balance", alice, `{"function":"transfer","args":[500,"` + alice + `","` + bob + `"]}`, http.StatusPaymentRequired, "InsufficientBalance"},
		{"transfer for someone else", bob, `{"function":"transfer","args":[5,"` + alice + `","` + bob + `"]}`, http.StatusForbidden, "Unauthorized"},
		{"missing market", alice, `{"function":"get-market","args":[9]}`, http.StatusNotFound, "NotFound"},
		{"bet on missing market", alice, `{"function":"place-bet","args":[9,0,1]}`, http.StatusNotFound, "MarketNotFound"},
		{"unknown function", alice, `{"function":"burn","args":[]}`, http.StatusNotFound, "UnknownFunction"},
		{"resolve by stranger", bob, `{"function":"resolve-market","args":[1,0]}`, http.StatusForbidden, "Unauthorized"},
		{"submit unregistered", alice, `{"function":"submit-climate-data","args":[20,0,0]}`, http.StatusForbidden, "NotRegistered"},
		{"register twice", alice, `{"function":"register-data-provider","args":["` + bob + `"]}`, http.StatusConflict, "AlreadyRegistered"},
		{"claim before resolution", alice, `{"function":"claim-winnings","args":[1]}`, http.StatusConflict, "MarketNotResolved"},
		{"zero amount", alice, `{"function":"mint","args":[0,"` + alice + `"]}`, http.StatusBadRequest, "InvalidAmount"},
		{"not json", alice, `mint please`, http.StatusBadRequest, "InvalidArguments"},
		{"missing function", alice, `{"args":[]}`, http.StatusBadRequest, "InvalidArguments"},
		{"args not a list", alice, `{"function":"get-balance","args":{"account":"x"}}`, http.StatusBadRequest, "InvalidArguments"},
		{"wrong arity", alice, `{"function":"get-balance","args":[]}`, http.StatusBadRequest, "InvalidArguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, tt.caller, http.MethodPost, "/api/call", tt.body)
			assert.Equal(t, tt.wantCode, rr.Code, rr.Body.String())

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, false, resp["success"])
			assert.Equal(t, tt.wantKind, resp["error"])
		})
	}

	// none of the failures moved any tokens
	ts.rt.View(func(s *ledger.State) {
		assert.Equal(t, uint64(100), s.Balance(alice))
		assert.Equal(t, uint64(100), s.TotalSupply())
	})
}

func TestHandleCallJournalFailure(t *testing.T) {
	ts := setupTestServer(t)
	require.NoError(t, ts.store.Close())

	rr, resp := ts.call(t, alice, ledger.FnMint, `[100, "`+alice+`"]`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Internal", resp["error"])
}

func TestHandleCallBodyTooLarge(t *testing.T) {
	ts := setupTestServer(t)

	big := `{"function":"get-balance","args":["` + strings.Repeat("a", maxCallBody) + `"]}`
	rr := ts.do(t, alice, http.MethodPost, "/api/call", big)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatusForKind(t *testing.T) {
	tests := map[string]int{
		"":                    http.StatusInternalServerError,
		"InsufficientBalance": http.StatusPaymentRequired,
		"NotFound":            http.StatusNotFound,
		"Unauthorized":        http.StatusForbidden,
		"AlreadyClaimed":      http.StatusConflict,
		"NotRefundable":       http.StatusConflict,
		"InvalidOption":       http.StatusBadRequest,
		"SameAccount":         http.StatusBadRequest,
	}
	for kind, want := range tests {
		assert.Equal(t, want, statusForKind(kind), kind)
	}
}

func TestHandleMe(t *testing.T) {
	ts := setupTestServer(t)
	_, _ = ts.call(t, alice, ledger.FnMint, `[1234, "`+alice+`"]`)
	_, _ = ts.call(t, alice, ledger.FnRegisterProvider, `["`+alice+`"]`)

	rr := ts.do(t, alice, http.MethodGet, "/api/me", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var me MeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, alice, me.Principal)
	assert.Equal(t, uint64(1234), me.Balance)
	assert.Equal(t, "1234 CLT", me.BalanceDisplay)
	assert.True(t, me.IsProvider)
	assert.False(t, me.IsAdmin)
	assert.Equal(t, uint64(100), me.BlockHeight)

	rr = ts.do(t, "", http.MethodGet, "/api/me", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = ts.do(t, alice, http.MethodPost, "/api/me", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandleHistory(t *testing.T) {
	ts := setupTestServer(t)
	_, _ = ts.call(t, alice, ledger.FnMint, `[10, "`+alice+`"]`)
	_, _ = ts.call(t, alice, ledger.FnTransfer, `[4, "`+alice+`", "`+bob+`"]`)
	_, _ = ts.call(t, bob, ledger.FnTransfer, `[1, "`+bob+`", "`+alice+`"]`)
	// failed and read-only calls are not journaled
	_, _ = ts.call(t, alice, ledger.FnTransfer, `[400, "`+alice+`", "`+bob+`"]`)
	_, _ = ts.call(t, alice, ledger.FnGetBalance, `["`+alice+`"]`)

	rr := ts.do(t, alice, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var calls []storage.CallRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &calls))
	require.Len(t, calls, 2)
	assert.Equal(t, ledger.FnTransfer, calls[0].Function)
	assert.Equal(t, ledger.FnMint, calls[1].Function)

	rr = ts.do(t, alice, http.MethodGet, "/api/history?limit=1", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &calls))
	assert.Len(t, calls, 1)

	rr = ts.do(t, "ST2JHG361ZXG51QTKY2NQCVBPPRRE2KZB1HR05NNC", http.MethodGet, "/api/history", "")
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestHandleLeaderboard(t *testing.T) {
	ts := setupTestServer(t)

	rr := ts.do(t, alice, http.MethodGet, "/api/leaderboard", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	_, _ = ts.call(t, alice, ledger.FnMint, `[10, "`+alice+`"]`)
	_, _ = ts.call(t, alice, ledger.FnMint, `[30, "`+bob+`"]`)
	_, _ = ts.call(t, alice, ledger.FnCreateMarket, `["Will it rain tomorrow?", ["Yes", "No"], 11000]`)
	_, _ = ts.call(t, bob, ledger.FnPlaceBet, `[1, 0, 5]`)

	rr = ts.do(t, alice, http.MethodGet, "/api/leaderboard", "")
	var holders []ledger.Holding
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &holders))
	require.Len(t, holders, 2)
	assert.Equal(t, ledger.Holding{Principal: bob, Balance: 25}, holders[0])
	assert.Equal(t, ledger.Holding{Principal: alice, Balance: 10}, holders[1])
}

func TestHandleMarkets(t *testing.T) {
	ts := setupTestServer(t)
	_, _ = ts.call(t, alice, ledger.FnMint, `[100, "`+alice+`"]`)
	_, _ = ts.call(t, alice, ledger.FnCreateMarket, `["Will it rain tomorrow?", ["Yes", "No"], 11000]`)
	_, _ = ts.call(t, alice, ledger.FnCreateMarket, `["Wind above 50 km/h?", ["Yes", "No"], 11000]`)
	_, _ = ts.call(t, alice, ledger.FnPlaceBet, `[1, 1, 40]`)
	_, _ = ts.call(t, alice, ledger.FnResolveMarket, `[2, 0]`)

	rr := ts.do(t, alice, http.MethodGet, "/api/markets", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var markets []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &markets))
	require.Len(t, markets, 2)
	assert.Equal(t, "Will it rain tomorrow?", markets[0]["description"])
	assert.Equal(t, true, markets[0]["open"])
	assert.Equal(t, map[string]any{"option": float64(1), "amount": float64(40), "claimed": false}, markets[0]["my_bet"])
	assert.Equal(t, false, markets[1]["open"])
	assert.NotContains(t, markets[1], "my_bet")

	rr = ts.do(t, bob, http.MethodGet, "/api/markets?status=open", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &markets))
	require.Len(t, markets, 1)
	assert.Equal(t, float64(1), markets[0]["id"])
	assert.NotContains(t, markets[0], "my_bet")

	rr = ts.do(t, bob, http.MethodGet, "/api/markets?status=resolved", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &markets))
	require.Len(t, markets, 1)
	assert.Equal(t, float64(2), markets[0]["id"])

	rr = ts.do(t, bob, http.MethodGet, "/api/markets?status=later", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

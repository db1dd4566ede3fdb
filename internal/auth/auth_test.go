package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret    = "s3cret"
	testPrincipal = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"
)

func TestGetPrincipalFromContext(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		expectOk  bool
	}{
		{
			name:      "valid principal",
			principal: testPrincipal,
			expectOk:  true,
		},
		{
			name:      "empty principal",
			principal: "",
			expectOk:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := contextWithPrincipal(context.Background(), tt.principal)
			p, ok := GetPrincipalFromContext(ctx)
			if ok != tt.expectOk {
				t.Errorf("Expected ok=%v, got ok=%v", tt.expectOk, ok)
			}
			if ok && p != tt.principal {
				t.Errorf("Expected principal=%s, got principal=%s", tt.principal, p)
			}
		})
	}
}

func TestGetPrincipalFromContextMissing(t *testing.T) {
	_, ok := GetPrincipalFromContext(context.Background())
	if ok {
		t.Error("Expected ok=false for missing principal in context")
	}
}

func TestValidateSignature(t *testing.T) {
	now := time.Unix(1_800_000_000, 0)
	fresh := now.Add(-time.Hour).Unix()
	stale := now.Add(-25 * time.Hour).Unix()
	future := now.Add(time.Hour).Unix()

	tests := []struct {
		name      string
		principal string
		timestamp string
		signature string
		wantErr   string
	}{
		{"valid", testPrincipal, itoa(fresh), Sign(testSecret, testPrincipal, fresh), ""},
		{"uppercase hex", testPrincipal, itoa(fresh), upper(Sign(testSecret, testPrincipal, fresh)), ""},
		{"missing signature", testPrincipal, itoa(fresh), "", "missing"},
		{"bad timestamp", testPrincipal, "yesterday", "abc", "invalid timestamp"},
		{"wrong secret", testPrincipal, itoa(fresh), Sign("other", testPrincipal, fresh), "invalid signature"},
		{"signed for someone else", testPrincipal, itoa(fresh), Sign(testSecret, "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG", fresh), "invalid signature"},
		{"too old", testPrincipal, itoa(stale), Sign(testSecret, testPrincipal, stale), "too old"},
		{"from the future", testPrincipal, itoa(future), Sign(testSecret, testPrincipal, future), "future"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSignature(testSecret, tt.principal, tt.timestamp, tt.signature, now)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestMiddleware(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetPrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	signed := func(r *http.Request) {
		ts := time.Now().Unix()
		r.Header.Set(HeaderPrincipal, testPrincipal)
		r.Header.Set(HeaderTimestamp, itoa(ts))
		r.Header.Set(HeaderSignature, Sign(testSecret, testPrincipal, ts))
	}

	tests := []struct {
		name     string
		secret   string
		path     string
		prepare  func(r *http.Request)
		wantCode int
		wantSeen string
	}{
		{"ping is public", testSecret, "/api/ping", func(*http.Request) {}, http.StatusOK, ""},
		{"static is public", testSecret, "/index.html", func(*http.Request) {}, http.StatusOK, ""},
		{"missing principal", "", "/api/me", func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"escrow principal", "", "/api/me", func(r *http.Request) { r.Header.Set(HeaderPrincipal, "escrow.market.1") }, http.StatusUnauthorized, ""},
		{"whitespace principal", "", "/api/me", func(r *http.Request) { r.Header.Set(HeaderPrincipal, "a b") }, http.StatusUnauthorized, ""},
		{"trusted without secret", "", "/api/me", func(r *http.Request) { r.Header.Set(HeaderPrincipal, testPrincipal) }, http.StatusOK, testPrincipal},
		{"unsigned with secret", testSecret, "/api/me", func(r *http.Request) { r.Header.Set(HeaderPrincipal, testPrincipal) }, http.StatusUnauthorized, ""},
		{"signed with secret", testSecret, "/api/call", signed, http.StatusOK, testPrincipal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			tt.prepare(req)
			rr := httptest.NewRecorder()

			Middleware(tt.secret)(next).ServeHTTP(rr, req)

			require.Equal(t, tt.wantCode, rr.Code)
			assert.Equal(t, tt.wantSeen, seen)
		})
	}
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'f' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

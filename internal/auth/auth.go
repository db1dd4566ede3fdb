package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"climatemarket/internal/ledger"
	"climatemarket/internal/logger"
)

// ContextKey is the key type for context values
type ContextKey string

const (
	// PrincipalKey is the context key for the authenticated principal
	PrincipalKey ContextKey = "principal"

	HeaderPrincipal = "X-Principal"
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"

	// MaxAge bounds how old a signed timestamp may be
	MaxAge = 24 * time.Hour
	// MaxSkew bounds how far a timestamp may run ahead of the server clock
	MaxSkew = 5 * time.Minute
)

// Sign returns the hex HMAC-SHA256 of principal and unix timestamp under secret
func Sign(secret, principal string, timestamp int64) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(principal + "\n" + strconv.FormatInt(timestamp, 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// ValidateSignature checks a signed principal header set against secret at now
func ValidateSignature(secret, principal, timestamp, signature string, now time.Time) error {
	if timestamp == "" || signature == "" {
		return fmt.Errorf("missing %s or %s", HeaderTimestamp, HeaderSignature)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp format")
	}

	expected := Sign(secret, principal, ts)
	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return fmt.Errorf("invalid signature")
	}

	signedAt := time.Unix(ts, 0)
	if now.Sub(signedAt) > MaxAge {
		return fmt.Errorf("timestamp is too old")
	}
	if signedAt.Sub(now) > MaxSkew {
		return fmt.Errorf("timestamp is in the future")
	}
	return nil
}

// Middleware authenticates the caller principal of every /api/ request
// except /api/ping. With an empty secret the X-Principal header is trusted
// as is.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip auth for non-API routes
			if !strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api/ping" {
				next.ServeHTTP(w, r)
				return
			}

			principal := r.Header.Get(HeaderPrincipal)
			if principal == "" {
				http.Error(w, "Unauthorized: missing X-Principal header", http.StatusUnauthorized)
				return
			}
			if !ledger.ValidPrincipal(principal) || ledger.IsEscrow(principal) {
				http.Error(w, "Unauthorized: invalid principal", http.StatusUnauthorized)
				return
			}

			if secret != "" {
				err := ValidateSignature(secret, principal, r.Header.Get(HeaderTimestamp), r.Header.Get(HeaderSignature), time.Now())
				if err != nil {
					logger.Debug(principal, "auth_failed", err.Error())
					http.Error(w, "Unauthorized: invalid signature", http.StatusUnauthorized)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(contextWithPrincipal(r.Context(), principal)))
		})
	}
}

// contextWithPrincipal adds the principal to the context
func contextWithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// GetPrincipalFromContext retrieves the principal from the context
func GetPrincipalFromContext(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(PrincipalKey).(string)
	return p, ok && p != ""
}

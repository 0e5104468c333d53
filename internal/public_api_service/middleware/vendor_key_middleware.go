package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/sha3"
)

const VendorKeyHeader = "X-Api-Key"

// HashAPIKey returns the stored form of a vendor key.
func HashAPIKey(plainTextKey string) string {
	hash := sha3.Sum256([]byte(plainTextKey))
	return base64.URLEncoding.EncodeToString(hash[:])
}

// VendorKeyMiddleware checks X-Api-Key against keyHash. An empty keyHash disables the check.
func VendorKeyMiddleware(keyHash string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if keyHash == "" {
			return next
		}
		want := []byte(keyHash)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(VendorKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(HashAPIKey(key)), want) != 1 {
				logger.WarnContext(r.Context(), "Rejected vendor callback with bad API key", "remote_addr", r.RemoteAddr)
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

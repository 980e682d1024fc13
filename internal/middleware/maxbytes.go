package middleware

import (
	"encoding/json"
	"net/http"
)

// DefaultMaxBodyBytes caps JSON record bodies (1 MiB). Import uploads size
// their own limit from UPLOAD_MAX_BYTES.
const DefaultMaxBodyBytes = 1 << 20

// MaxBytes limits the request body. A declared Content-Length over the limit
// is rejected with 413 before the handler runs; otherwise reads past the
// limit fail inside the handler's decoder.
func MaxBytes(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				json.NewEncoder(w).Encode(map[string]string{"error": "request body too large", "code": "too_large"})
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

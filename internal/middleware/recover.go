package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/crucial707/hci-inventory/internal/logging"
)

// Recoverer turns a panic in an inventory handler into a 500 JSON body with
// code "internal", logging the stack under the request id.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logging.FromContext(r.Context()).Error("panic recovered",
				"method", r.Method,
				"path", r.URL.Path,
				"panic", rec,
				"stack", string(debug.Stack()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "internal server error", "code": "internal"})
		}()
		next.ServeHTTP(w, r)
	})
}

package middleware

import (
	"net/http"

	"github.com/cloo-solutions/mathbot/internal/api"
)

// MaxBodyBytes caps request bodies at limit bytes on POST, PUT and PATCH.
// Declared lengths over the cap are refused up front; chunked bodies are cut
// off by http.MaxBytesReader and surface as *http.MaxBytesError in the handler.
// A non-positive limit disables the check.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
			default:
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				w.Header().Set("Connection", "close")
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

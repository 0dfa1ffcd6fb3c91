package web

import (
	"net/http"
	"strings"
)

// HTTPProtocolMiddleware keeps event streams on plain HTTP/1.1 semantics behind proxies.
// Browsers that try HTTP/3 through some load balancers drop long-lived streams.
func HTTPProtocolMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Alt-Svc", "clear")

		if strings.HasPrefix(r.URL.Path, "/events") {
			w.Header().Set("Cache-Control", "no-cache, no-transform")
			w.Header().Set("X-Accel-Buffering", "no")
			w.Header().Set("Connection", "keep-alive")
		}

		next.ServeHTTP(w, r)
	})
}

package middleware

import (
	"net/http"
	"strconv"

	"github.com/Harshitk-cp/concord/internal/metrics"
)

// Metrics returns middleware that counts requests by method and status
// class (2xx, 4xx, ...).
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)
			m.HTTPRequest(r.Method, statusClass(rw.statusCode))
		})
	}
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

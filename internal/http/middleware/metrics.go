package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-tenant-auth/internal/metrics"
)

// Metrics считает запросы и их длительность по шаблону маршрута chi.
// Запросы вне зарегистрированных маршрутов учитываются под меткой "unmatched".
func Metrics(m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					route = p
				}
			}

			m.HTTPRequest(route, r.Method, strconv.Itoa(sw.code()), time.Since(start).Seconds())
		})
	}
}

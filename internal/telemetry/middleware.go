package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// statusRecorder remembers the first status written.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) code() string {
	if s.status == 0 {
		return "200"
	}
	return strconv.Itoa(s.status)
}

// routeLabel is the chi route pattern, or fallback before routing resolves.
func routeLabel(r *http.Request, fallback string) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return fallback
}

// MetricsMiddleware records request counts and latency per route pattern.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		APIActiveConnections.Inc()
		defer APIActiveConnections.Dec()

		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(rec, r)

		labels := []string{r.Method, routeLabel(r, "unmatched"), rec.code()}
		APIRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		APIRequestsTotal.WithLabelValues(labels...).Inc()
	})
}

// TracingMiddleware opens a server span per request named "METHOD pattern".
func TracingMiddleware(service string) func(http.Handler) http.Handler {
	spanName := func(_ string, r *http.Request) string {
		return r.Method + " " + routeLabel(r, r.URL.Path)
	}
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, service, otelhttp.WithSpanNameFormatter(spanName))
	}
}

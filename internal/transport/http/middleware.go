package http

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cimillas/license-store/internal/metrics"
)

// RequestLogger logs basic request details and latency.
func RequestLogger(next http.Handler, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Printf(
			"request method=%s path=%s status=%d duration=%s",
			r.Method,
			r.URL.Path,
			rec.status,
			time.Since(start),
		)
	})
}

// Instrument records request counts and latency per handler group.
func Instrument(next http.Handler, m *metrics.ServerMetrics) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		handler := handlerLabel(r.URL.Path)
		m.Requests.WithLabelValues(handler, strconv.Itoa(rec.status)).Inc()
		m.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
	})
}

// handlerLabel collapses paths to a fixed label set so metric cardinality
// stays bounded regardless of ids in the URL.
func handlerLabel(path string) string {
	switch {
	case path == "/health":
		return "health"
	case path == "/metrics":
		return "metrics"
	case path == "/games":
		return "games"
	case strings.HasPrefix(path, "/games/"):
		return "game_by_id"
	case path == "/cart/calculate":
		return "cart_calculate"
	case path == "/cart/checkout":
		return "cart_checkout"
	case path == "/transactions":
		return "transactions"
	case path == "/admin/low-stock":
		return "admin_low_stock"
	default:
		return "other"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Requests       *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	DecodedSymbols prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "codonhmm",
				Name:      "http_requests_total",
				Help:      "number of http requests by route, method and status code",
			},
			[]string{"path", "method", "code"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "codonhmm",
				Name:      "http_request_duration_seconds",
				Help:      "latency of http requests by route and method",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		DecodedSymbols: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "codonhmm",
				Name:      "decoded_symbols_total",
				Help:      "number of bases decoded with viterbi",
			},
		),
	}
	reg.MustRegister(m.Requests, m.Duration, m.DecodedSymbols)
	return m
}

// PromeHttpMiddleware. count requests and observe their latency, labelled by route pattern so
// path parameters don't blow up the label set.
func PromeHttpMiddleware(m *Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				path = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.Requests.WithLabelValues(path, r.Method, strconv.Itoa(status)).Inc()
			m.Duration.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}

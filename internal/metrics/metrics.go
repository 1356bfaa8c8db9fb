// AngelaMos | 2026
// metrics.go

package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "community_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RealtimeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "community_realtime_connections",
			Help: "Number of open realtime connections on this instance",
		},
	)

	RealtimeMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_realtime_messages_total",
			Help: "Realtime messages by direction (in/out) and type",
		},
		[]string{"direction", "type"},
	)

	RealtimeDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_realtime_dropped_total",
			Help: "Realtime messages that were not delivered, by reason",
		},
		[]string{"reason"},
	)

	NotificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_notifications_dispatched_total",
			Help: "Notifications persisted, by type and whether the live push succeeded",
		},
		[]string{"type", "pushed"},
	)

	HashtagUpserts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "community_hashtag_upserts_total",
			Help: "Total number of hashtag insert-or-increment writes",
		},
	)

	ProgressUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_course_progress_updates_total",
			Help: "Lesson progress updates by completed flag",
		},
		[]string{"completed"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(RealtimeConnections)
	prometheus.MustRegister(RealtimeMessages)
	prometheus.MustRegister(RealtimeDropped)
	prometheus.MustRegister(NotificationsDispatched)
	prometheus.MustRegister(HashtagUpserts)
	prometheus.MustRegister(ProgressUpdates)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// Middleware records request counts and latency keyed by chi route pattern
// so path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		HTTPRequestsTotal.WithLabelValues(
			r.Method, route, strconv.Itoa(sw.status),
		).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).
			Observe(time.Since(start).Seconds())
	})
}

func BoolLabel(b bool) string {
	return strconv.FormatBool(b)
}

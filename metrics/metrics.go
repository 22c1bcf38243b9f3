// Package metrics exposes Prometheus collectors for HTTP traffic and
// progression events.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cppla/practicehub/progression"
)

const namespace = "practicehub"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	checkIns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "streak",
			Name:      "checkins_total",
			Help:      "Check-ins by streak transition.",
		},
		[]string{"transition"},
	)

	redemptions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "streak",
			Name:      "redemptions_total",
			Help:      "Redemption tokens spent.",
		},
	)

	unlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "achievements",
			Name:      "unlocks_total",
			Help:      "Achievements unlocked.",
		},
		[]string{"badge_id", "type"},
	)

	levelUps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "level_ups_total",
			Help:      "Levels gained across all users.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		checkIns,
		redemptions,
		unlocks,
		levelUps,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Recorder counts committed progression events. It implements progression.Observer.
type Recorder struct{}

var _ progression.Observer = Recorder{}

// NewRecorder returns a Recorder bound to Registry.
func NewRecorder() Recorder { return Recorder{} }

func (Recorder) CheckedIn(t progression.Transition) {
	checkIns.WithLabelValues(string(t)).Inc()
}

func (Recorder) Redeemed() { redemptions.Inc() }

func (Recorder) Unlocked(badgeID string, t progression.Type) {
	unlocks.WithLabelValues(badgeID, string(t)).Inc()
}

func (Recorder) LeveledUp(levels int) {
	levelUps.Add(float64(levels))
}

// Package metrics holds the Prometheus collectors for the giveaway service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	lotteriesStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "giveaway",
			Subsystem: "lottery",
			Name:      "started_total",
			Help:      "Total number of lotteries started.",
		},
	)

	entriesRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "giveaway",
			Subsystem: "lottery",
			Name:      "entries_total",
			Help:      "Total number of participants entered, by whether the multiplier applied.",
		},
		[]string{"multiplied"},
	)

	lotteriesResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "giveaway",
			Subsystem: "lottery",
			Name:      "resolved_total",
			Help:      "Total number of lotteries resolved, by trigger.",
		},
		[]string{"reason"},
	)

	winnersDrawn = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "giveaway",
			Subsystem: "lottery",
			Name:      "winners_total",
			Help:      "Total number of winners drawn at resolution.",
		},
	)

	lotteryActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "giveaway",
			Subsystem: "lottery",
			Name:      "active",
			Help:      "1 while a lottery is running.",
		},
	)

	lotteryParticipants = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "giveaway",
			Subsystem: "lottery",
			Name:      "participants",
			Help:      "Unique participants in the running lottery.",
		},
	)

	persistenceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "giveaway",
			Subsystem: "persistence",
			Name:      "failures_total",
			Help:      "Total number of failed snapshot loads and saves.",
		},
		[]string{"op"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "giveaway",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "giveaway",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)
)

func init() {
	Registry.MustRegister(
		lotteriesStarted,
		entriesRecorded,
		lotteriesResolved,
		winnersDrawn,
		lotteryActive,
		lotteryParticipants,
		persistenceFailures,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// LotteryStarted counts a started lottery.
func LotteryStarted() {
	lotteriesStarted.Inc()
}

// EntryRecorded counts a new participant.
func EntryRecorded(multiplied bool) {
	entriesRecorded.WithLabelValues(strconv.FormatBool(multiplied)).Inc()
}

// LotteryResolved counts a resolution and its winners.
func LotteryResolved(reason string, winners int) {
	lotteriesResolved.WithLabelValues(reason).Inc()
	winnersDrawn.Add(float64(winners))
}

// PersistenceFailure counts a failed load or save.
func PersistenceFailure(op string) {
	persistenceFailures.WithLabelValues(op).Inc()
}

// SetLottery publishes the running lottery gauges.
func SetLottery(active bool, participants int) {
	if active {
		lotteryActive.Set(1)
	} else {
		lotteryActive.Set(0)
	}
	lotteryParticipants.Set(float64(participants))
}

// Middleware records request counts and durations for gin routes.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

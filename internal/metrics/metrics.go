package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Bid outcomes reported by RecordBid
const (
	BidAccepted           = "accepted"
	BidBelowStartingPrice = "below_starting_price"
	BidNotHigher          = "not_higher"
	BidAuctionClosed      = "auction_closed"
	BidNotFound           = "not_found"
	BidInvalid            = "invalid"
	BidError              = "error"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "auction_house",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auction_house",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "auction_house",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path"},
	)

	bids = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auction_house",
			Subsystem: "ledger",
			Name:      "bids_total",
			Help:      "Bid attempts by outcome.",
		},
		[]string{"outcome"},
	)

	bidDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "auction_house",
			Subsystem: "ledger",
			Name:      "bid_duration_seconds",
			Help:      "Time spent deciding and applying a bid, lock wait included.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	closures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auction_house",
			Subsystem: "ledger",
			Name:      "closures_total",
			Help:      "Closed auctions, split by whether a winner was fixed.",
		},
		[]string{"winner"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		bids,
		bidDuration,
		closures,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := strings.ToUpper(c.Request.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordBid records a bid attempt and how long it took.
func RecordBid(outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = BidError
	}
	bids.WithLabelValues(outcome).Inc()
	bidDuration.Observe(duration.Seconds())
}

// RecordClose records a successful close.
func RecordClose(hasWinner bool) {
	closures.WithLabelValues(strconv.FormatBool(hasWinner)).Inc()
}

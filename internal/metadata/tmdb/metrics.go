package tmdb

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reelscout",
		Subsystem: "tmdb",
		Name:      "requests_total",
		Help:      "TMDB requests by endpoint group and response status.",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reelscout",
		Subsystem: "tmdb",
		Name:      "request_duration_seconds",
		Help:      "TMDB request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})
)

func observeRequest(endpoint, status string, elapsed time.Duration) {
	requestsTotal.WithLabelValues(endpoint, status).Inc()
	requestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// metricEndpoint collapses numeric path segments so ids do not become labels:
// "movie/603/credits" -> "movie/:id/credits".
func metricEndpoint(endpoint string) string {
	segs := strings.Split(endpoint, "/")
	for i, s := range segs {
		if s != "" && strings.Trim(s, "0123456789") == "" {
			segs[i] = ":id"
		}
	}
	return strings.Join(segs, "/")
}

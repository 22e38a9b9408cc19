package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	documentsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docuchat",
			Name:      "documents_ingested_total",
			Help:      "Documents that reached a terminal status, by status.",
		},
		[]string{"status"},
	)
	extractionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docuchat",
			Name:      "extraction_duration_seconds",
			Help:      "Text extraction duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	chatRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docuchat",
			Name:      "chat_requests_total",
			Help:      "Chat requests by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	registry.MustRegister(documentsIngested, extractionDuration, chatRequests)
}

// IncDocumentIngested records a document reaching a terminal status.
func IncDocumentIngested(status string) {
	documentsIngested.WithLabelValues(status).Inc()
}

// ObserveExtractionSeconds records one extraction duration.
func ObserveExtractionSeconds(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	extractionDuration.Observe(seconds)
}

// IncChatRequest records a chat request outcome (ok, not_found, not_ready, ...).
func IncChatRequest(outcome string) {
	chatRequests.WithLabelValues(outcome).Inc()
}

// Handler exposes the metrics registry in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

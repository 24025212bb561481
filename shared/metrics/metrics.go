package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RentalsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "colony_rentals_created_total",
		Help: "Total number of rentals created by room allotment",
	})
	RentalsClosedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "colony_rentals_closed_total",
		Help: "Total number of rentals closed into history",
	})
	PaymentsAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "colony_payments_applied_total",
		Help: "Total number of payments applied, by mode",
	}, []string{"mode"})
	PaymentAmountTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "colony_payment_amount_total",
		Help: "Sum of all applied payment amounts",
	})
	OperationErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "colony_operation_errors_total",
		Help: "Failed core operations, by operation and error kind",
	}, []string{"operation", "kind"})
	EventsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "colony_events_dropped_total",
		Help: "Rental events dropped because the publish queue was full",
	})
	DeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "colony_event_deliveries_total",
		Help: "Webhook deliveries of rental events, by outcome",
	}, []string{"outcome"})
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(
		RentalsCreatedTotal,
		RentalsClosedTotal,
		PaymentsAppliedTotal,
		PaymentAmountTotal,
		OperationErrorsTotal,
		EventsDroppedTotal,
		DeliveriesTotal,
		HttpRequestsTotal,
		HttpRequestDuration,
	)
}

// GinMiddleware records request counts and latencies for Prometheus
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry for scraping
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

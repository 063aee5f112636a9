package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lendhub",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lendhub",
			Name:      "bookings_created_total",
			Help:      "Bookings created in WAITING status.",
		},
	)

	bookingsDecided = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lendhub",
			Name:      "booking_decisions_total",
			Help:      "Booking decisions by resulting status.",
		},
		[]string{"status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, bookingsDecided)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncBookingCreated counts a successful booking creation.
func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncBookingDecided counts a decision with its resulting status.
func IncBookingDecided(status string) {
	bookingsDecided.WithLabelValues(status).Inc()
}

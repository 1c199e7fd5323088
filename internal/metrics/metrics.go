package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Bookings counts committed booking actions by campus and kind
	// (single, double, reschedule, staff_reschedule, cancel).
	Bookings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "atlab",
		Name:      "bookings_total",
		Help:      "Committed booking actions.",
	}, []string{"campus", "kind"})

	// Rejections counts refused booking requests by reason.
	Rejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "atlab",
		Name:      "booking_rejections_total",
		Help:      "Booking requests refused, by reason.",
	}, []string{"reason"})

	// RowErrors counts stored rows whose slot label could not be parsed.
	RowErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "atlab",
		Name:      "row_format_errors_total",
		Help:      "Stored rows skipped because of an unparseable slot label.",
	})

	// Notifications counts delivery attempts by channel and outcome.
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "atlab",
		Name:      "notifications_total",
		Help:      "Confirmation deliveries, by channel and outcome.",
	}, []string{"channel", "outcome"})

	// RequestDuration observes booking API latency.
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "atlab",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "status"})
)

func init() {
	prometheus.MustRegister(Bookings, Rejections, RowErrors, Notifications, RequestDuration)
}

// Outcome labels a delivery result.
func Outcome(err error) string {
	if err != nil {
		return "failed"
	}
	return "sent"
}

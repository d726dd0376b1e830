package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsAccepted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_accepted_total",
		Help: "Accepted analytics events by type.",
	}, []string{"type"})
	EventsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "events_rejected_total",
		Help: "Events rejected for an invalid type or malformed body.",
	})
	UniqueVisitors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "unique_visitors_total",
		Help: "First-time-today visitor marks.",
	})
	StoreErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "store_errors_total",
		Help: "Store operation failures surfaced as 500s.",
	})
	ExpiredPurged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "expired_rows_purged_total",
		Help: "Expired visitor marks and click events reclaimed by the janitor.",
	})
)

func init() {
	prometheus.MustRegister(EventsAccepted, EventsRejected, UniqueVisitors, StoreErrors, ExpiredPurged)
}

func Handler(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

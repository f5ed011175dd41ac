package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	ErrorsTotal      *prometheus.CounterVec

	// CSRF handshake
	CsrfRetriesTotal       prometheus.Counter
	CsrfFetchFailuresTotal prometheus.Counter

	// Session
	AuthFailuresTotal *prometheus.CounterVec

	// Query cache
	CacheEventsTotal *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "imtihanctl",
				Name:      "http_requests_total",
				Help:      "Total API requests sent",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "imtihanctl",
				Name:      "http_request_duration_seconds",
				Help:      "API request latency distributions.",
				// Sane initial defaults
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "imtihanctl",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight API requests.",
			},
			[]string{"method", "route"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "imtihanctl",
				Name:      "errors_total",
				Help:      "Transport-level failures by class.",
			},
			[]string{"class"},
		),
		CsrfRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "imtihanctl",
				Subsystem: "csrf",
				Name:      "retries_total",
				Help:      "Requests replayed once after a CSRF rejection.",
			},
		),
		CsrfFetchFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "imtihanctl",
				Subsystem: "csrf",
				Name:      "fetch_failures_total",
				Help:      "CSRF token fetches that failed; the request proceeded without the header.",
			},
		),
		AuthFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "imtihanctl",
				Subsystem: "auth",
				Name:      "failures_total",
				Help:      "Requests rejected for auth reasons.",
			},
			[]string{"reason"}, // reason=expired|unauthorized|forbidden
		),
		CacheEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "imtihanctl",
				Subsystem: "cache",
				Name:      "events_total",
				Help:      "Query cache outcomes.",
			},
			[]string{"result"}, // result=hit|miss|revalidated|shared
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight, p.ErrorsTotal,
		p.CsrfRetriesTotal, p.CsrfFetchFailuresTotal, p.AuthFailuresTotal, p.CacheEventsTotal,
	)

	return p
}

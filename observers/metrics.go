package observers

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vyrodovalexey/requesthook"
)

// Metrics is an observer that records request metrics in Prometheus.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	requestBodyBytes prometheus.Histogram
}

// NewMetrics creates a metrics observer and registers its collectors with
// registerer. A nil registerer falls back to the default registerer.
//
// The in-flight gauge counts start notifications without a matching end;
// a request dropped by the server mid-flight leaves it permanently
// elevated by one.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "requesthook",
				Name:      "requests_total",
				Help:      "Total number of observed requests by method and status.",
			},
			[]string{"method", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "requesthook",
				Name:      "request_duration_seconds",
				Help:      "Observed request duration in seconds by method.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		requestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "requesthook",
				Name:      "requests_in_flight",
				Help:      "Number of observed requests currently being handled.",
			},
		),
		requestBodyBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "requesthook",
				Name:      "request_body_bytes",
				Help:      "Size of buffered request bodies in bytes.",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
			},
		),
	}
}

// OnRequestStarted records the buffered body size and marks the request
// in flight.
func (o *Metrics) OnRequestStarted(data requesthook.RequestStartData) {
	o.requestsInFlight.Inc()
	o.requestBodyBytes.Observe(float64(len(data.Body)))
}

// OnRequestEnded records the request outcome and duration.
func (o *Metrics) OnRequestEnded(data requesthook.RequestEndData) {
	o.requestsInFlight.Dec()
	o.requestsTotal.WithLabelValues(data.Method, strconv.Itoa(data.Status)).Inc()
	o.requestDuration.WithLabelValues(data.Method).Observe(data.Elapsed.Seconds())
}

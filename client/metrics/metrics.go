// Package metrics instruments outbound requests with Prometheus
// collectors: a request counter and latency histogram labelled by
// method and status code, plus an in-flight gauge.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "httpfetch"

// Collector holds the registered client collectors.
type Collector struct {
	inFlight prometheus.Gauge
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New registers the client collectors on reg. Collectors already
// registered by an earlier Collector are reused, so several clients
// may share one registry.
func New(reg prometheus.Registerer) (*Collector, error) {
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "client_in_flight_requests",
		Help:      "Requests currently awaiting a response.",
	})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_requests_total",
		Help:      "Completed requests by method and status code.",
	}, []string{"method", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "client_request_duration_seconds",
		Help:      "Round trip latency by method and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "code"})

	var err error
	c := &Collector{}
	if c.inFlight, err = register(reg, inFlight); err != nil {
		return nil, err
	}
	if c.requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if c.duration, err = register(reg, duration); err != nil {
		return nil, err
	}

	return c, nil
}

// RoundTripper wraps next with the collectors.
func (c *Collector) RoundTripper(next http.RoundTripper) http.RoundTripper {
	return promhttp.InstrumentRoundTripperInFlight(c.inFlight,
		promhttp.InstrumentRoundTripperCounter(c.requests,
			promhttp.InstrumentRoundTripperDuration(c.duration, next),
		),
	)
}

func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	if err := reg.Register(col); err != nil {
		if are, ok := errors.AsType[prometheus.AlreadyRegisteredError](err); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}

	return col, nil
}

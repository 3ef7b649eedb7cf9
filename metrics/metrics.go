// Package metrics exposes Prometheus collectors for the HTTP surface and the
// background collaborators.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"venuedir/models"
	"venuedir/services/aggregation"
	"venuedir/services/geocode"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "venuedir"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	geocodeLookups  *prometheus.CounterVec
	aggregateRetry  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		geocodeLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_lookups_total",
			Help:      "Geocoding provider calls by outcome (ok, not_found, error).",
		}, []string{"outcome"}),
		aggregateRetry: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_retries_total",
			Help:      "Aggregate recomputes handed to the retry queue by outcome (enqueued, error).",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.geocodeLookups,
		m.aggregateRetry,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latency. Unmatched routes are
// grouped under "unmatched" to keep label cardinality bounded.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// TrackSearchSessions exports the number of live search sessions.
func (m *Metrics) TrackSearchSessions(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "search_sessions",
		Help:      "Live search sessions.",
	}, func() float64 { return float64(count()) }))
}

// InstrumentGeocoder counts every provider call by outcome.
func (m *Metrics) InstrumentGeocoder(p geocode.Provider) geocode.Provider {
	return geocode.ProviderFunc(func(ctx context.Context, address string) (models.Coordinate, error) {
		c, err := p.Resolve(ctx, address)
		switch {
		case err == nil:
			m.geocodeLookups.WithLabelValues("ok").Inc()
		case errors.Is(err, geocode.ErrNotFound):
			m.geocodeLookups.WithLabelValues("not_found").Inc()
		default:
			m.geocodeLookups.WithLabelValues("error").Inc()
		}
		return c, err
	})
}

type retryQueue struct {
	next    aggregation.RetryQueue
	counter *prometheus.CounterVec
}

func (q retryQueue) EnqueueRecompute(ctx context.Context, merchantID string) error {
	err := q.next.EnqueueRecompute(ctx, merchantID)
	if err != nil {
		q.counter.WithLabelValues("error").Inc()
	} else {
		q.counter.WithLabelValues("enqueued").Inc()
	}
	return err
}

// InstrumentRetryQueue counts aggregate retries. A nil queue stays nil.
func (m *Metrics) InstrumentRetryQueue(q aggregation.RetryQueue) aggregation.RetryQueue {
	if q == nil {
		return nil
	}
	return retryQueue{next: q, counter: m.aggregateRetry}
}

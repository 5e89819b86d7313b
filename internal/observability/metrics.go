package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. Each collector
// owns its registry, so independent builders (or tests) never collide on
// registration. A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// Store metrics
	Transactions        *prometheus.CounterVec
	TransactionDuration *prometheus.HistogramVec

	// Builder metrics
	Links        *prometheus.CounterVec
	NodesCreated *prometheus.CounterVec
	NodesRenamed prometheus.Counter

	// Event metrics
	EventsPublished *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	transactions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_transactions_total",
			Help:      "Total number of graph store write transactions",
		},
		[]string{"operation", "status"},
	)

	transactionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_transaction_duration_seconds",
			Help:      "Graph store write transaction duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	links := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_total",
			Help:      "Relationship link attempts by outcome",
		},
		[]string{"operation", "outcome"},
	)

	nodesCreated := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_created_total",
			Help:      "Total number of topic nodes created",
		},
		[]string{"operation"},
	)

	nodesRenamed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_renamed_total",
			Help:      "Total number of topic nodes renamed",
		},
	)

	eventsPublished := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Graph change events by publish status",
		},
		[]string{"status"},
	)

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	registry.MustRegister(
		transactions,
		transactionDuration,
		links,
		nodesCreated,
		nodesRenamed,
		eventsPublished,
		httpRequests,
		httpDuration,
	)

	return &Collector{
		registry:            registry,
		Transactions:        transactions,
		TransactionDuration: transactionDuration,
		Links:               links,
		NodesCreated:        nodesCreated,
		NodesRenamed:        nodesRenamed,
		EventsPublished:     eventsPublished,
		HTTPRequests:        httpRequests,
		HTTPDuration:        httpDuration,
	}
}

// ObserveTransaction records one finished store transaction.
func (c *Collector) ObserveTransaction(operation, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.Transactions.WithLabelValues(operation, status).Inc()
	c.TransactionDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordLinks records the outcome counts of one link call.
func (c *Collector) RecordLinks(operation string, found, missing int) {
	if c == nil {
		return
	}
	c.Links.WithLabelValues(operation, "found").Add(float64(found))
	c.Links.WithLabelValues(operation, "missing").Add(float64(missing))
}

// RecordNodesCreated records nodes created by a primitive.
func (c *Collector) RecordNodesCreated(operation string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.NodesCreated.WithLabelValues(operation).Add(float64(n))
}

// RecordNodesRenamed records renamed nodes.
func (c *Collector) RecordNodesRenamed(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.NodesRenamed.Add(float64(n))
}

// RecordEvent records a publish attempt.
func (c *Collector) RecordEvent(status string) {
	if c == nil {
		return
	}
	c.EventsPublished.WithLabelValues(status).Inc()
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(method, route, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

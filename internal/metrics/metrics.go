// Package metrics exposes engine and HTTP activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the agentgraph metrics on a dedicated registry.
type Collector struct {
	registry *prometheus.Registry

	nodeVisits   *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	nodeErrors   *prometheus.CounterVec
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	turns        *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
}

// New creates a Collector. Go runtime and process collectors are included.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		nodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentgraph_node_visits_total",
			Help: "Total number of node visits",
		}, []string{"graph", "node"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentgraph_node_duration_seconds",
			Help:    "Duration of node executions",
			Buckets: prometheus.DefBuckets,
		}, []string{"graph", "node"}),
		nodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentgraph_node_errors_total",
			Help: "Node executions that returned an error",
		}, []string{"graph", "node"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentgraph_tool_calls_total",
			Help: "Total number of tool invocations",
		}, []string{"tool", "status"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "agentgraph_tool_duration_seconds",
			Help: "Duration of tool executions",
		}, []string{"tool"}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentgraph_turns_total",
			Help: "Completed turns by outcome",
		}, []string{"graph", "status"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentgraph_turn_duration_seconds",
			Help:    "Duration of turns",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"graph"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentgraph_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.nodeVisits, c.nodeDuration, c.nodeErrors,
		c.toolCalls, c.toolDuration,
		c.turns, c.turnDuration,
		c.httpRequests,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Hooks returns lifecycle hooks that record engine activity.
func (c *Collector) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			c.nodeVisits.WithLabelValues(e.Graph, e.NodeID).Inc()
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			c.nodeDuration.WithLabelValues(e.Graph, e.NodeID).Observe(e.Duration.Seconds())
			if e.Err != nil {
				c.nodeErrors.WithLabelValues(e.Graph, e.NodeID).Inc()
			}
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			status := "ok"
			if e.IsError {
				status = "error"
			}
			c.toolCalls.WithLabelValues(e.ToolName, status).Inc()
			c.toolDuration.WithLabelValues(e.ToolName).Observe(e.Duration.Seconds())
		},
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			status := "ok"
			if e.Err != nil {
				status = "error"
			}
			c.turns.WithLabelValues(e.Graph, status).Inc()
			c.turnDuration.WithLabelValues(e.Graph).Observe(e.Duration.Seconds())
		},
	}
}

// ObserveRequest records one HTTP request.
func (c *Collector) ObserveRequest(method, route string, code int, _ time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

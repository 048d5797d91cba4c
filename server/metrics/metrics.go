// Package metrics exposes the tool-call counters on a private prometheus
// registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	ToolCalls       *prometheus.CounterVec
	ToolErrors      *prometheus.CounterVec
	OrdersConfirmed prometheus.Counter
	OrdersRejected  prometheus.Counter
	OrderLatency    prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	toolCalls := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "cesto_tool_calls_total"}, []string{"tool"})
	toolErrors := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "cesto_tool_errors_total"}, []string{"tool", "kind"})
	ordersConfirmed := prometheus.NewCounter(prometheus.CounterOpts{Name: "cesto_orders_confirmed_total"})
	ordersRejected := prometheus.NewCounter(prometheus.CounterOpts{Name: "cesto_orders_rejected_total"})
	orderLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cesto_order_create_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(toolCalls, toolErrors, ordersConfirmed, ordersRejected, orderLatency)
	return &Registry{
		reg:             r,
		ToolCalls:       toolCalls,
		ToolErrors:      toolErrors,
		OrdersConfirmed: ordersConfirmed,
		OrdersRejected:  ordersRejected,
		OrderLatency:    orderLatency,
	}
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Package metrics mirrors the node controller state into Prometheus gauges.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/salahayoub/bonsai/pkg/node"
)

var statusKinds = []node.StatusKind{
	node.StatusInactive,
	node.StatusStarting,
	node.StatusRunning,
	node.StatusShuttingDown,
	node.StatusFailed,
}

// NodeCollector owns a dedicated registry so bonsai metrics do not mix with
// the global default registry.
type NodeCollector struct {
	registry *prometheus.Registry

	status            *prometheus.GaugeVec
	headerHeight      prometheus.Gauge
	validatedHeight   prometheus.Gauge
	inIBD             prometheus.Gauge
	peerCount         prometheus.Gauge
	peersByImpl       *prometheus.GaugeVec
	accumulatorLeaves prometheus.Gauge
	accumulatorRoots  prometheus.Gauge
	uptimeSeconds     prometheus.Gauge
	logVersion        prometheus.Gauge

	blocksObserved prometheus.Counter
	errors         *prometheus.CounterVec
}

// NewNodeCollector creates and registers every metric.
func NewNodeCollector() *NodeCollector {
	reg := prometheus.NewRegistry()
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "bonsai", Subsystem: "node", Name: name, Help: help})
		reg.MustRegister(g)
		return g
	}

	c := &NodeCollector{
		registry: reg,
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bonsai",
			Name:      "node_status",
			Help:      "Node life cycle state, 1 for the current state.",
		}, []string{"status"}),
		peersByImpl: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bonsai",
			Subsystem: "node",
			Name:      "peers_by_implementation",
			Help:      "Connected peers by advertised implementation.",
		}, []string{"implementation"}),
		blocksObserved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bonsai",
			Subsystem: "node",
			Name:      "blocks_observed_total",
			Help:      "New chain tips reported by the node.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bonsai",
			Subsystem: "node",
			Name:      "errors_total",
			Help:      "Errors handled by the controller by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(c.status, c.peersByImpl, c.blocksObserved, c.errors)

	c.headerHeight = gauge("header_height", "Best known header height.")
	c.validatedHeight = gauge("validated_height", "Height of the last fully validated block.")
	c.inIBD = gauge("in_ibd", "1 while the node is in initial block download.")
	c.peerCount = gauge("peer_count", "Number of connected peers.")
	c.accumulatorLeaves = gauge("accumulator_leaves", "Leaves in the Utreexo accumulator.")
	c.accumulatorRoots = gauge("accumulator_roots", "Roots in the Utreexo accumulator.")
	c.uptimeSeconds = gauge("uptime_seconds", "Seconds since the node reached RUNNING.")
	c.logVersion = gauge("log_version", "Version counter of the captured log buffer.")
	return c
}

// Registry returns the dedicated registry.
func (c *NodeCollector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *NodeCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Observe copies the controller state after msg was handled. It must run on
// the controller's loop goroutine.
func (c *NodeCollector) Observe(ctrl *node.Controller, msg node.Message) {
	switch m := msg.(type) {
	case node.BlockObserved:
		c.blocksObserved.Inc()
	case node.Error:
		c.errors.WithLabelValues(m.Kind.String()).Inc()
	}

	current := ctrl.Status().Kind
	for _, k := range statusKinds {
		v := 0.0
		if k == current {
			v = 1
		}
		c.status.WithLabelValues(k.String()).Set(v)
	}

	c.uptimeSeconds.Set(ctrl.Uptime().Seconds())
	c.logVersion.Set(float64(ctrl.LogVersion()))

	stats := ctrl.Statistics()
	c.peersByImpl.Reset()
	if stats == nil {
		c.headerHeight.Set(0)
		c.validatedHeight.Set(0)
		c.inIBD.Set(0)
		c.peerCount.Set(0)
		c.accumulatorLeaves.Set(0)
		c.accumulatorRoots.Set(0)
		return
	}

	c.headerHeight.Set(float64(stats.HeaderHeight))
	c.validatedHeight.Set(float64(stats.ValidatedHeight))
	if stats.InIBD {
		c.inIBD.Set(1)
	} else {
		c.inIBD.Set(0)
	}
	c.peerCount.Set(float64(len(stats.Peers)))
	for _, p := range stats.Peers {
		c.peersByImpl.WithLabelValues(p.Impl.String()).Inc()
	}
	c.accumulatorLeaves.Set(float64(stats.Accumulator.Leaves))
	c.accumulatorRoots.Set(float64(len(stats.Accumulator.Roots)))
}

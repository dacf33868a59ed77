// Package metrics exports binding activity as Prometheus metrics.
//
// The Collector owns a private registry and is fed by the event bus, so the
// coordinator has no dependency on Prometheus.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Iron-Ham/svcbind/internal/event"
	"github.com/Iron-Ham/svcbind/internal/router"
)

const namespace = "svcbind"

// Transition ops recorded by TransitionsTotal.
const (
	OpStart  = "start"
	OpExit   = "exit"
	OpBind   = "bind"
	OpUnbind = "unbind"
)

// Collector holds the binding metrics.
type Collector struct {
	registry *prometheus.Registry

	// TransitionsTotal counts effective lifecycle and binding transitions by op
	TransitionsTotal *prometheus.CounterVec
	// SlotPublicationsTotal counts slot writes by result (published|cleared)
	SlotPublicationsTotal *prometheus.CounterVec
	// SlotActive is 1 while a service is published
	SlotActive prometheus.Gauge
	// SlotGeneration is the latest slot generation observed
	SlotGeneration prometheus.Gauge
	// StartFailuresTotal counts starts that could not obtain the host context
	StartFailuresTotal prometheus.Counter
	// UnbindMismatchesTotal counts unbinds that cleared a different service than requested
	UnbindMismatchesTotal prometheus.Counter
	// RouteDecisionsTotal counts routing outcomes by target (local|remote|failed)
	RouteDecisionsTotal *prometheus.CounterVec

	mu      sync.Mutex
	lastGen uint64
	subs    []string
	bus     *event.Bus
}

var _ router.Observer = (*Collector)(nil)

// NewCollector creates a Collector with its own registry. Go runtime and
// process collectors are registered alongside the binding metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Effective binding transitions by operation",
			},
			[]string{"op"},
		),
		SlotPublicationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "slot_publications_total",
				Help:      "Slot writes by result (published/cleared)",
			},
			[]string{"result"},
		),
		SlotActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "slot_active",
				Help:      "Whether a client service is currently published (0/1)",
			},
		),
		SlotGeneration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "slot_generation",
				Help:      "Latest observed slot generation",
			},
		),
		StartFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "start_failures_total",
				Help:      "Host starts that could not obtain the host context",
			},
		),
		UnbindMismatchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unbind_mismatches_total",
				Help:      "Unbinds that cleared a different service than requested",
			},
		),
		RouteDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "route_decisions_total",
				Help:      "Routing outcomes by target (local/remote/failed)",
			},
			[]string{"target"},
		),
	}

	c.registry.MustRegister(
		c.TransitionsTotal,
		c.SlotPublicationsTotal,
		c.SlotActive,
		c.SlotGeneration,
		c.StartFailuresTotal,
		c.UnbindMismatchesTotal,
		c.RouteDecisionsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler serving the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Subscribe feeds the collector from bus. Calling it again moves the
// subscription to the new bus.
func (c *Collector) Subscribe(bus *event.Bus) {
	c.Unsubscribe()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.bus = bus
	c.subs = []string{
		bus.Subscribe(event.TypeStarted, func(event.Event) {
			c.TransitionsTotal.WithLabelValues(OpStart).Inc()
		}),
		bus.Subscribe(event.TypeExited, func(event.Event) {
			c.TransitionsTotal.WithLabelValues(OpExit).Inc()
		}),
		bus.Subscribe(event.TypeBound, func(event.Event) {
			c.TransitionsTotal.WithLabelValues(OpBind).Inc()
		}),
		bus.Subscribe(event.TypeUnbound, func(e event.Event) {
			c.TransitionsTotal.WithLabelValues(OpUnbind).Inc()
			if ue, ok := e.(event.UnboundEvent); ok && ue.Mismatched {
				c.UnbindMismatchesTotal.Inc()
			}
		}),
		bus.Subscribe(event.TypeStartFailed, func(event.Event) {
			c.StartFailuresTotal.Inc()
		}),
		bus.Subscribe(event.TypeSlotChanged, func(e event.Event) {
			if se, ok := e.(event.SlotChangedEvent); ok {
				c.observeSlot(se)
			}
		}),
	}
}

// Unsubscribe detaches the collector from its bus, if any.
func (c *Collector) Unsubscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bus == nil {
		return
	}
	for _, id := range c.subs {
		c.bus.Unsubscribe(id)
	}
	c.subs = nil
	c.bus = nil
}

// observeSlot records a slot write. Slot events are published outside the
// coordinator lock and may arrive out of order; the gauges follow the
// highest generation seen.
func (c *Collector) observeSlot(e event.SlotChangedEvent) {
	result := "cleared"
	if e.Published() {
		result = "published"
	}
	c.SlotPublicationsTotal.WithLabelValues(result).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	if e.Generation < c.lastGen {
		return
	}
	c.lastGen = e.Generation
	c.SlotGeneration.Set(float64(e.Generation))
	if e.Published() {
		c.SlotActive.Set(1)
	} else {
		c.SlotActive.Set(0)
	}
}

// ObserveRoute implements router.Observer.
func (c *Collector) ObserveRoute(target router.Target) {
	label := string(target)
	if label == "" {
		label = "failed"
	}
	c.RouteDecisionsTotal.WithLabelValues(label).Inc()
}

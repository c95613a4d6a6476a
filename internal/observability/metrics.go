package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics of a simulation run. All
// methods are safe to call on a nil Collector, which records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	LinesEmitted      *prometheus.CounterVec
	WriteFailures     *prometheus.CounterVec
	ComponentsRunning prometheus.Gauge
	ShutdownDuration  prometheus.Histogram
	ShutdownTimeouts  prometheus.Counter
}

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil. Registering twice on the same registry
// reuses the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	lines, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radarsim_lines_emitted_total",
		Help: "Status lines written to the output, labeled by component.",
	}, []string{"component"}), "radarsim_lines_emitted_total")
	if err != nil {
		return nil, err
	}

	failures, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "radarsim_write_failures_total",
		Help: "Status lines the output refused, labeled by component.",
	}, []string{"component"}), "radarsim_write_failures_total")
	if err != nil {
		return nil, err
	}

	running, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "radarsim_components_running",
		Help: "Number of component goroutines currently running.",
	}), "radarsim_components_running")
	if err != nil {
		return nil, err
	}

	shutdown, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "radarsim_shutdown_duration_seconds",
		Help:    "Time spent waiting for components to stop.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}), "radarsim_shutdown_duration_seconds")
	if err != nil {
		return nil, err
	}

	timeouts, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "radarsim_shutdown_timeouts_total",
		Help: "Components which did not stop within the grace period.",
	}), "radarsim_shutdown_timeouts_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:          gatherer,
		LinesEmitted:      lines,
		WriteFailures:     failures,
		ComponentsRunning: running,
		ShutdownDuration:  shutdown,
		ShutdownTimeouts:  timeouts,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) IncLines(component string) {
	if c == nil || c.LinesEmitted == nil {
		return
	}
	c.LinesEmitted.WithLabelValues(component).Inc()
}

func (c *Collector) IncWriteFailures(component string) {
	if c == nil || c.WriteFailures == nil {
		return
	}
	c.WriteFailures.WithLabelValues(component).Inc()
}

func (c *Collector) SetRunning(n int) {
	if c == nil || c.ComponentsRunning == nil {
		return
	}
	c.ComponentsRunning.Set(float64(n))
}

// ObserveShutdown records how long a stop took and how many components
// missed the grace period.
func (c *Collector) ObserveShutdown(d time.Duration, stuck int) {
	if c == nil {
		return
	}
	if c.ShutdownDuration != nil {
		c.ShutdownDuration.Observe(d.Seconds())
	}
	if c.ShutdownTimeouts != nil && stuck > 0 {
		c.ShutdownTimeouts.Add(float64(stuck))
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

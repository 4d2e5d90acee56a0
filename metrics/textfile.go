package metrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/prometheus/client_golang/prometheus"
)

// TextfileConfig configures a TextfileRegistry.
type TextfileConfig struct {
	// Path is the .prom file Flush writes. Flush is a no-op when empty.
	Path string
	// Prefix becomes the namespace of every metric that does not set one.
	Prefix string
}

// TextfileRegistry implements Registry on a prometheus.Registry and writes it
// in exposition format for the node_exporter textfile collector.
type TextfileRegistry struct {
	prom *prometheus.Registry
	cfg  TextfileConfig
}

// NewTextfileRegistry creates a new TextfileRegistry.
func NewTextfileRegistry(cfg TextfileConfig) *TextfileRegistry {
	return &TextfileRegistry{
		prom: prometheus.NewRegistry(),
		cfg:  cfg,
	}
}

// PrometheusRegistry returns the underlying Prometheus registry.
func (r *TextfileRegistry) PrometheusRegistry() *prometheus.Registry {
	return r.prom
}

// Flush atomically replaces the configured file with the current values.
func (r *TextfileRegistry) Flush(ctx context.Context) error {
	if r.cfg.Path == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.cfg.Path), 0o755); err != nil {
		return fmt.Errorf("creating textfile directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(r.cfg.Path, r.prom); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", r.cfg.Path, err)
	}
	return nil
}

// NewGauge creates and registers a new Gauge.
func (r *TextfileRegistry) NewGauge(opts prometheus.GaugeOpts) (Gauge, error) {
	if opts.Namespace == "" {
		opts.Namespace = r.cfg.Prefix
	}
	g, err := register(r.prom, prometheus.NewGauge(opts))
	if err != nil {
		return nil, fmt.Errorf("registering gauge %q: %w", opts.Name, err)
	}
	return &promGauge{gauge: g}, nil
}

// NewGaugeVec creates and registers a new GaugeVec.
func (r *TextfileRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	if opts.Namespace == "" {
		opts.Namespace = r.cfg.Prefix
	}
	g, err := register(r.prom, prometheus.NewGaugeVec(opts, labels))
	if err != nil {
		return nil, fmt.Errorf("registering gauge vec %q: %w", opts.Name, err)
	}
	return &promGaugeVec{gaugeVec: g}, nil
}

// NewCounter creates and registers a new Counter.
func (r *TextfileRegistry) NewCounter(opts prometheus.CounterOpts) (Counter, error) {
	if opts.Namespace == "" {
		opts.Namespace = r.cfg.Prefix
	}
	c, err := register(r.prom, prometheus.NewCounter(opts))
	if err != nil {
		return nil, fmt.Errorf("registering counter %q: %w", opts.Name, err)
	}
	return &promCounter{counter: c}, nil
}

// NewCounterVec creates and registers a new CounterVec.
func (r *TextfileRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	if opts.Namespace == "" {
		opts.Namespace = r.cfg.Prefix
	}
	c, err := register(r.prom, prometheus.NewCounterVec(opts, labels))
	if err != nil {
		return nil, fmt.Errorf("registering counter vec %q: %w", opts.Name, err)
	}
	return &promCounterVec{counterVec: c}, nil
}

// register adds c to reg, returning the collector already registered under
// the same description if it is of the same kind.
func register[C prometheus.Collector](reg *prometheus.Registry, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok && reflect.TypeOf(existing) == reflect.TypeOf(c) {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// promGauge wraps prometheus.Gauge to implement Gauge interface.
type promGauge struct {
	gauge prometheus.Gauge
}

func (g *promGauge) Set(v float64) {
	g.gauge.Set(v)
}

// promGaugeVec wraps prometheus.GaugeVec to implement GaugeVec interface.
type promGaugeVec struct {
	gaugeVec *prometheus.GaugeVec
}

func (g *promGaugeVec) With(labels prometheus.Labels) Gauge {
	return &promGauge{gauge: g.gaugeVec.With(labels)}
}

// promCounter wraps prometheus.Counter to implement Counter interface.
type promCounter struct {
	counter prometheus.Counter
}

func (c *promCounter) Inc() {
	c.counter.Inc()
}

func (c *promCounter) Add(v float64) {
	c.counter.Add(v)
}

// promCounterVec wraps prometheus.CounterVec to implement CounterVec interface.
type promCounterVec struct {
	counterVec *prometheus.CounterVec
}

func (c *promCounterVec) With(labels prometheus.Labels) Counter {
	return &promCounter{counter: c.counterVec.With(labels)}
}

package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// TeeRegistry records every metric into several registries.
type TeeRegistry struct {
	registries []Registry
}

// Tee returns a registry that fans out to regs. Nil entries are dropped.
func Tee(regs ...Registry) *TeeRegistry {
	t := &TeeRegistry{}
	for _, r := range regs {
		if r != nil {
			t.registries = append(t.registries, r)
		}
	}
	return t
}

// Len returns the number of underlying registries.
func (t *TeeRegistry) Len() int { return len(t.registries) }

// Flush flushes every underlying registry that supports it.
func (t *TeeRegistry) Flush(ctx context.Context) error {
	var errs []error
	for _, r := range t.registries {
		if f, ok := r.(Flusher); ok {
			if err := f.Flush(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (t *TeeRegistry) NewGauge(opts prometheus.GaugeOpts) (Gauge, error) {
	gauges := make(teeGauge, 0, len(t.registries))
	for _, r := range t.registries {
		g, err := r.NewGauge(opts)
		if err != nil {
			return nil, err
		}
		gauges = append(gauges, g)
	}
	return gauges, nil
}

func (t *TeeRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	vecs := make(teeGaugeVec, 0, len(t.registries))
	for _, r := range t.registries {
		v, err := r.NewGaugeVec(opts, labels)
		if err != nil {
			return nil, err
		}
		vecs = append(vecs, v)
	}
	return vecs, nil
}

func (t *TeeRegistry) NewCounter(opts prometheus.CounterOpts) (Counter, error) {
	counters := make(teeCounter, 0, len(t.registries))
	for _, r := range t.registries {
		c, err := r.NewCounter(opts)
		if err != nil {
			return nil, err
		}
		counters = append(counters, c)
	}
	return counters, nil
}

func (t *TeeRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	vecs := make(teeCounterVec, 0, len(t.registries))
	for _, r := range t.registries {
		v, err := r.NewCounterVec(opts, labels)
		if err != nil {
			return nil, err
		}
		vecs = append(vecs, v)
	}
	return vecs, nil
}

type teeGauge []Gauge

func (g teeGauge) Set(v float64) {
	for _, x := range g {
		x.Set(v)
	}
}

type teeGaugeVec []GaugeVec

func (g teeGaugeVec) With(labels prometheus.Labels) Gauge {
	out := make(teeGauge, len(g))
	for i, v := range g {
		out[i] = v.With(labels)
	}
	return out
}

type teeCounter []Counter

func (c teeCounter) Inc() {
	for _, x := range c {
		x.Inc()
	}
}

func (c teeCounter) Add(v float64) {
	for _, x := range c {
		x.Add(v)
	}
}

type teeCounterVec []CounterVec

func (c teeCounterVec) With(labels prometheus.Labels) Counter {
	out := make(teeCounter, len(c))
	for i, v := range c {
		out[i] = v.With(labels)
	}
	return out
}

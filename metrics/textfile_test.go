package metrics

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextfileRegistry_Flush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collector", "solrsetup.prom")
	registry := NewTextfileRegistry(TextfileConfig{Path: path, Prefix: "solrsetup"})

	g, err := registry.NewGaugeVec(prometheus.GaugeOpts{Name: "run_success", Help: "Run outcome"}, []string{"environment"})
	require.NoError(t, err)
	g.With(prometheus.Labels{"environment": "Debug"}).Set(1)

	require.NoError(t, registry.Flush(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `solrsetup_run_success{environment="Debug"} 1`)
}

func TestTextfileRegistry_FlushWithoutPath(t *testing.T) {
	registry := NewTextfileRegistry(TextfileConfig{})
	assert.NoError(t, registry.Flush(context.Background()))
}

func TestTextfileRegistry_ReRegisterReturnsExisting(t *testing.T) {
	registry := NewTextfileRegistry(TextfileConfig{})
	opts := prometheus.CounterOpts{Name: "task_runs_total", Help: "Task runs"}

	first, err := registry.NewCounterVec(opts, []string{"task"})
	require.NoError(t, err)
	second, err := registry.NewCounterVec(opts, []string{"task"})
	require.NoError(t, err)

	first.With(prometheus.Labels{"task": "a"}).Inc()
	second.With(prometheus.Labels{"task": "a"}).Inc()

	expected := `
# HELP task_runs_total Task runs
# TYPE task_runs_total counter
task_runs_total{task="a"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(registry.PrometheusRegistry(), strings.NewReader(expected)))
}

func TestTextfileRegistry_ConflictingRegistration(t *testing.T) {
	registry := NewTextfileRegistry(TextfileConfig{})

	_, err := registry.NewGauge(prometheus.GaugeOpts{Name: "x", Help: "x"})
	require.NoError(t, err)
	_, err = registry.NewCounter(prometheus.CounterOpts{Name: "x", Help: "x"})
	assert.Error(t, err)
}

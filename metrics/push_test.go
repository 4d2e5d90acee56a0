package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeReceiver is a fake remote write endpoint.
type writeReceiver struct {
	mu       sync.Mutex
	requests []*prompb.WriteRequest
	headers  []http.Header
	status   int
}

func (w *writeReceiver) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := snappy.Decode(nil, body)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	var req prompb.WriteRequest
	if err := proto.Unmarshal(data, &req); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	w.mu.Lock()
	w.requests = append(w.requests, &req)
	w.headers = append(w.headers, r.Header.Clone())
	status := w.status
	w.mu.Unlock()

	if status == 0 {
		status = http.StatusNoContent
	}
	rw.WriteHeader(status)
}

func (w *writeReceiver) series() map[string]prompb.TimeSeries {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]prompb.TimeSeries)
	for _, req := range w.requests {
		for _, ts := range req.Timeseries {
			key := ""
			for _, l := range ts.Labels {
				key += l.Name + "=" + l.Value + ";"
			}
			out[key] = ts
		}
	}
	return out
}

func TestNewPushRegistry(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PushConfig
		wantURL string
	}{
		{
			name:    "minimal config",
			cfg:     PushConfig{URL: "http://localhost:8428"},
			wantURL: "http://localhost:8428/api/v1/write",
		},
		{
			name: "trailing slash",
			cfg: PushConfig{
				URL:      "http://localhost:8428/",
				Prefix:   "solrsetup",
				Job:      "solrsetup",
				Instance: "build01",
				Timeout:  5 * time.Second,
			},
			wantURL: "http://localhost:8428/api/v1/write",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewPushRegistry(tt.cfg)
			require.NotNil(t, registry.pusher)
			assert.Equal(t, tt.wantURL, registry.pusher.url)
		})
	}
}

func TestPushRegistry_FlushSendsOneBatch(t *testing.T) {
	recv := &writeReceiver{}
	server := httptest.NewServer(recv)
	defer server.Close()

	registry := NewPushRegistry(PushConfig{URL: server.URL, Prefix: "solrsetup", Job: "solrsetup", Instance: "build01"})

	runs, err := registry.NewCounterVec(prometheus.CounterOpts{Name: "task_runs_total"}, []string{"task", "outcome"})
	require.NoError(t, err)
	success, err := registry.NewGauge(prometheus.GaugeOpts{Name: "run_success"})
	require.NoError(t, err)

	runs.With(prometheus.Labels{"task": "install-solr", "outcome": "success"}).Inc()
	runs.With(prometheus.Labels{"outcome": "success", "task": "install-solr"}).Inc()
	success.Set(0)
	success.Set(1)

	require.NoError(t, registry.Flush(context.Background()))

	require.Len(t, recv.requests, 1, "one request per flush")
	h := recv.headers[0]
	assert.Equal(t, "snappy", h.Get("Content-Encoding"))
	assert.Equal(t, "application/x-protobuf", h.Get("Content-Type"))
	assert.Equal(t, "0.1.0", h.Get("X-Prometheus-Remote-Write-Version"))

	series := recv.series()
	require.Len(t, series, 2)

	counter, ok := series["__name__=solrsetup_task_runs_total;job=solrsetup;instance=build01;outcome=success;task=install-solr;"]
	require.True(t, ok, "counter series present with sorted labels")
	assert.Equal(t, 2.0, counter.Samples[0].Value)

	gauge, ok := series["__name__=solrsetup_run_success;job=solrsetup;instance=build01;"]
	require.True(t, ok)
	assert.Equal(t, 1.0, gauge.Samples[0].Value)
}

func TestPushRegistry_FlushEmptyIsNoop(t *testing.T) {
	recv := &writeReceiver{}
	server := httptest.NewServer(recv)
	defer server.Close()

	registry := NewPushRegistry(PushConfig{URL: server.URL})
	require.NoError(t, registry.Flush(context.Background()))
	assert.Empty(t, recv.requests)
}

func TestPushRegistry_FlushErrorStatus(t *testing.T) {
	recv := &writeReceiver{status: http.StatusInternalServerError}
	server := httptest.NewServer(recv)
	defer server.Close()

	registry := NewPushRegistry(PushConfig{URL: server.URL})
	g, err := registry.NewGauge(prometheus.GaugeOpts{Name: "run_success"})
	require.NoError(t, err)
	g.Set(1)

	err = registry.Flush(context.Background())
	assert.ErrorContains(t, err, "unexpected status 500")
}

func TestPushCounter_NegativePanics(t *testing.T) {
	registry := NewPushRegistry(PushConfig{URL: "http://localhost:8428"})
	c, err := registry.NewCounter(prometheus.CounterOpts{Name: "c"})
	require.NoError(t, err)
	assert.Panics(t, func() { c.Add(-1) })
}

func TestSeriesKey_IgnoresLabelOrder(t *testing.T) {
	a := seriesKey("m", map[string]string{"a": "1", "b": "2"})
	b := seriesKey("m", map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, seriesKey("m", map[string]string{"a": "1"}))
}

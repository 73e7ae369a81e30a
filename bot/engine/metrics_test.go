package engine

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordRequests(t *testing.T) {
	q := NewWorkQueue(4)
	m := NewMetrics(q)

	require.NoError(t, q.Enqueue(context.Background(), Item{}))
	require.NoError(t, q.Enqueue(context.Background(), Item{}))

	m.ItemProduced()
	m.RequestStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))

	m.RequestDone(Sample{Malicious: true, Succeeded: true, HasLatency: true, Latency: 3 * time.Millisecond})
	m.RequestStarted()
	m.RequestDone(Sample{})

	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.produced))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("succeeded", "malicious")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("failed", "normal")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.latency))

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var depth float64

	for _, mf := range families {
		if mf.GetName() == "trafficbot_queue_depth" {
			depth = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}

	assert.Equal(t, 2.0, depth)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ItemProduced()
		m.RequestStarted()
		m.RequestDone(Sample{Succeeded: true})
	})
	assert.Nil(t, m.Registry())
}

func TestMetricsServer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricsAddress = "127.0.0.1:0"

	m := NewMetrics(NewWorkQueue(1))
	m.ItemProduced()

	srv := NewMetricsServer(cfg, m, nil)
	require.NoError(t, srv.Start(context.Background()))

	defer func() { _ = srv.Stop(context.Background()) }()

	resp, err := http.Get("http://" + srv.Addr().String() + "/metrics")
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "trafficbot_items_produced_total 1")
}

func TestMetricsServerDisabled(t *testing.T) {
	srv := NewMetricsServer(DefaultConfig(), NewMetrics(nil), nil)

	require.NoError(t, srv.Start(context.Background()))
	require.NoError(t, srv.Stop(context.Background()))
	assert.Nil(t, srv.Addr())
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnel/go-runnel/pkg/types"
)

func TestCollector_Describe(t *testing.T) {
	c := NewCollector()

	ch := make(chan *prometheus.Desc, 32)
	c.Describe(ch)
	close(ch)

	count := 0
	for range ch {
		count++
	}
	assert.Equal(t, 13, count)
}

func TestCollector_Gather(t *testing.T) {
	c := NewCollector()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	c.StreamOpened()
	c.StreamTerminated(types.StreamCompleted)
	c.StreamTerminated(types.StreamCompleted)
	c.StreamTerminated(types.StreamCancelled)
	c.EventDelivered(types.KindData, 64)
	c.AggregationStarted()
	c.BufferAcquired(128)

	fams, err := reg.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(fams))
	for _, f := range fams {
		byName[f.GetName()] = f
	}

	for _, name := range []string{
		"runnel_streams_opened_total",
		"runnel_streams_terminated_total",
		"runnel_stream_events_delivered_total",
		"runnel_stream_payload_bytes_total",
		"runnel_stream_delivery_bytes_per_second",
		"runnel_aggregations_started_total",
		"runnel_buffers_acquired_total",
	} {
		assert.Contains(t, byName, name)
	}

	terminated := byName["runnel_streams_terminated_total"]
	require.NotNil(t, terminated)
	got := map[string]float64{}
	for _, m := range terminated.GetMetric() {
		require.Len(t, m.GetLabel(), 1)
		got[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	assert.Equal(t, 2.0, got["completed"])
	assert.Equal(t, 1.0, got["cancelled"])

	events := byName["runnel_stream_events_delivered_total"]
	require.NotNil(t, events)
	assert.Len(t, events.GetMetric(), eventKindCount, "每个事件类别各一条时间序列")
}

func TestCollector_CustomNamespace(t *testing.T) {
	c := NewCollector(WithNamespace("proxy"))
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	fams, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range fams {
		if f.GetName() == "proxy_streams_opened_total" {
			found = true
		}
	}
	assert.True(t, found)
}

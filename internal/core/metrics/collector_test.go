package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnel/go-runnel/pkg/types"
)

func TestCollector_StreamHooks(t *testing.T) {
	c := NewCollector()

	c.StreamOpened()
	c.StreamOpened()
	c.StreamOpened()
	c.StreamTerminated(types.StreamCompleted)
	c.StreamTerminated(types.StreamCompleted)
	c.StreamTerminated(types.StreamCancelled)

	s := c.Snapshot()
	assert.Equal(t, int64(3), s.Streams.Opened)
	assert.Equal(t, int64(2), s.Streams.Completed)
	assert.Equal(t, int64(1), s.Streams.Cancelled)
	assert.False(t, s.Timestamp.IsZero())
}

func TestCollector_NonTerminalStateIgnored(t *testing.T) {
	c := NewCollector()
	c.StreamTerminated(types.StreamSubscribed)

	s := c.Snapshot()
	assert.Zero(t, s.Streams.Completed)
	assert.Zero(t, s.Streams.Cancelled)
}

func TestCollector_EventHooks(t *testing.T) {
	c := NewCollector()

	c.EventDelivered(types.KindHeaders, 0)
	c.EventDelivered(types.KindData, 10)
	c.EventDelivered(types.KindData, 5)
	c.EventDelivered(types.KindTrailers, 0)
	c.EventDelivered(types.KindEnd, 0)

	s := c.Snapshot()
	assert.Equal(t, int64(5), s.Streams.EventsDelivered)
	assert.Equal(t, int64(15), s.Streams.BytesDelivered)
	assert.Positive(t, s.Streams.DeliveryRate)
}

func TestCollector_AggregationHooks(t *testing.T) {
	c := NewCollector()

	c.AggregationStarted()
	c.AggregationStarted()
	c.AggregationCompleted(1024)
	c.AggregationFailed()

	s := c.Snapshot()
	assert.Equal(t, int64(2), s.Aggregations.Started)
	assert.Equal(t, int64(1), s.Aggregations.Completed)
	assert.Equal(t, int64(1), s.Aggregations.Failed)
	assert.Equal(t, int64(1024), s.Aggregations.BytesAggregated)
}

func TestCollector_BufferHooks(t *testing.T) {
	c := NewCollector()

	c.BufferAcquired(4096)
	c.BufferAcquired(512)
	c.BufferRecycled(4096)
	c.LeakFlagged()

	s := c.Snapshot()
	assert.Equal(t, int64(2), s.Buffers.Acquired)
	assert.Equal(t, int64(4608), s.Buffers.BytesAcquired)
	assert.Equal(t, int64(1), s.Buffers.Recycled)
	assert.Equal(t, int64(1), s.Buffers.LeaksFlagged)
}

func TestCollector_Reset(t *testing.T) {
	c := NewCollector()

	c.StreamOpened()
	c.EventDelivered(types.KindData, 100)
	c.AggregationStarted()
	c.BufferAcquired(64)
	c.Reset()

	s := c.Snapshot()
	assert.Zero(t, s.Streams.Opened)
	assert.Zero(t, s.Streams.EventsDelivered)
	assert.Zero(t, s.Streams.BytesDelivered)
	assert.Zero(t, s.Aggregations.Started)
	assert.Zero(t, s.Buffers.Acquired)

	c.StreamOpened()
	assert.Equal(t, int64(1), c.Snapshot().Streams.Opened, "重置后计数器可继续使用")
}

func TestCollector_ConcurrentHooks(t *testing.T) {
	c := NewCollector()

	const workers = 8
	const perWorker = 500

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				c.StreamOpened()
				c.EventDelivered(types.KindData, 2)
				c.BufferAcquired(8)
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	assert.Equal(t, int64(workers*perWorker), s.Streams.Opened)
	assert.Equal(t, int64(workers*perWorker), s.Streams.EventsDelivered)
	assert.Equal(t, int64(workers*perWorker*2), s.Streams.BytesDelivered)
	assert.Equal(t, int64(workers*perWorker*8), s.Buffers.BytesAcquired)
}

func TestRateMeter_SlidingWindow(t *testing.T) {
	mk := clock.NewMock()
	rm := newRateMeter(4*time.Second, mk)

	rm.Add(100)
	assert.InDelta(t, 25.0, rm.Rate(), 0.001)

	mk.Add(time.Second)
	rm.Add(300)
	assert.InDelta(t, 100.0, rm.Rate(), 0.001)

	// 窗口未滑出，速率不变
	mk.Add(2 * time.Second)
	assert.InDelta(t, 100.0, rm.Rate(), 0.001)

	// 最早的桶滑出窗口
	mk.Add(time.Second)
	assert.InDelta(t, 75.0, rm.Rate(), 0.001)

	// 长时间无写入，全部清零
	mk.Add(10 * time.Second)
	assert.Zero(t, rm.Rate())
}

func TestRateMeter_Reset(t *testing.T) {
	mk := clock.NewMock()
	rm := newRateMeter(2*time.Second, mk)

	rm.Add(500)
	rm.Reset()
	assert.Zero(t, rm.Rate())

	rm.Add(200)
	assert.InDelta(t, 100.0, rm.Rate(), 0.001)
}

func TestRateMeter_MinimumWindow(t *testing.T) {
	rm := NewRateMeter(0)
	rm.Add(40)
	require.InDelta(t, 40.0, rm.Rate(), 0.001, "窗口向下取整后至少 1 秒")
}

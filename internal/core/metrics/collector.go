package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/log"
	"github.com/runnel/go-runnel/pkg/types"
)

var logger = log.Logger("core/metrics")

// eventKindCount 事件类别数，决定按类别计数的数组宽度
const eventKindCount = int(types.KindError) + 1

// 接口实现检查
var (
	_ interfaces.Metrics   = (*Collector)(nil)
	_ prometheus.Collector = (*Collector)(nil)
)

// ============================================================================
// Collector 实现
// ============================================================================

// Collector 核心指标收集器
//
// 全部计数器为原子操作，钩子可在投递热路径直接调用。
type Collector struct {
	namespace string
	descs     descs

	// 流
	streamsOpened    atomic.Int64
	streamsCompleted atomic.Int64
	streamsCancelled atomic.Int64
	eventsByKind     [eventKindCount]atomic.Int64
	payloadBytes     atomic.Int64
	deliveryRate     *RateMeter

	// 聚合
	aggregationsStarted   atomic.Int64
	aggregationsCompleted atomic.Int64
	aggregationsFailed    atomic.Int64
	aggregatedBytes       atomic.Int64

	// 缓冲
	buffersAcquired atomic.Int64
	bytesAcquired   atomic.Int64
	buffersRecycled atomic.Int64
	leaksFlagged    atomic.Int64
}

// NewCollector 创建指标收集器
func NewCollector(opts ...Option) *Collector {
	o := buildOptions(opts)
	return &Collector{
		namespace:    o.namespace,
		descs:        newDescs(o.namespace),
		deliveryRate: NewRateMeter(o.rateWindow),
	}
}

// ============================================================================
// Recorder 钩子
// ============================================================================

// StreamOpened 新流创建
func (c *Collector) StreamOpened() {
	c.streamsOpened.Add(1)
}

// StreamTerminated 流到达终态
func (c *Collector) StreamTerminated(state types.StreamState) {
	switch state {
	case types.StreamCompleted:
		c.streamsCompleted.Add(1)
	case types.StreamCancelled:
		c.streamsCancelled.Add(1)
	}
}

// EventDelivered 一个事件投递给订阅者
func (c *Collector) EventDelivered(kind types.EventKind, payloadBytes int) {
	if k := int(kind); k >= 0 && k < eventKindCount {
		c.eventsByKind[k].Add(1)
	}
	if payloadBytes > 0 {
		c.payloadBytes.Add(int64(payloadBytes))
		c.deliveryRate.Add(int64(payloadBytes))
	}
}

// AggregationStarted 聚合开始
func (c *Collector) AggregationStarted() {
	c.aggregationsStarted.Add(1)
}

// AggregationCompleted 聚合成功
func (c *Collector) AggregationCompleted(contentBytes int64) {
	c.aggregationsCompleted.Add(1)
	if contentBytes > 0 {
		c.aggregatedBytes.Add(contentBytes)
	}
}

// AggregationFailed 聚合失败
func (c *Collector) AggregationFailed() {
	c.aggregationsFailed.Add(1)
}

// BufferAcquired 分配器发出一个缓冲
func (c *Collector) BufferAcquired(size int) {
	c.buffersAcquired.Add(1)
	if size > 0 {
		c.bytesAcquired.Add(int64(size))
	}
}

// BufferRecycled 池化分配器回收一块底层存储
func (c *Collector) BufferRecycled(size int) {
	c.buffersRecycled.Add(1)
}

// LeakFlagged 泄漏检测器记录一次违规或泄漏
func (c *Collector) LeakFlagged() {
	c.leaksFlagged.Add(1)
}

// ============================================================================
// 快照与重置
// ============================================================================

// Snapshot 获取指标快照
func (c *Collector) Snapshot() interfaces.MetricsSnapshot {
	var events int64
	for i := range c.eventsByKind {
		events += c.eventsByKind[i].Load()
	}
	return interfaces.MetricsSnapshot{
		Timestamp: time.Now(),
		Streams: interfaces.StreamMetrics{
			Opened:          c.streamsOpened.Load(),
			Completed:       c.streamsCompleted.Load(),
			Cancelled:       c.streamsCancelled.Load(),
			EventsDelivered: events,
			BytesDelivered:  c.payloadBytes.Load(),
			DeliveryRate:    c.deliveryRate.Rate(),
		},
		Aggregations: interfaces.AggregationMetrics{
			Started:         c.aggregationsStarted.Load(),
			Completed:       c.aggregationsCompleted.Load(),
			Failed:          c.aggregationsFailed.Load(),
			BytesAggregated: c.aggregatedBytes.Load(),
		},
		Buffers: interfaces.BufferMetrics{
			Acquired:      c.buffersAcquired.Load(),
			BytesAcquired: c.bytesAcquired.Load(),
			Recycled:      c.buffersRecycled.Load(),
			LeaksFlagged:  c.leaksFlagged.Load(),
		},
	}
}

// Reset 清零全部计数器
func (c *Collector) Reset() {
	c.streamsOpened.Store(0)
	c.streamsCompleted.Store(0)
	c.streamsCancelled.Store(0)
	for i := range c.eventsByKind {
		c.eventsByKind[i].Store(0)
	}
	c.payloadBytes.Store(0)
	c.deliveryRate.Reset()

	c.aggregationsStarted.Store(0)
	c.aggregationsCompleted.Store(0)
	c.aggregationsFailed.Store(0)
	c.aggregatedBytes.Store(0)

	c.buffersAcquired.Store(0)
	c.bytesAcquired.Store(0)
	c.buffersRecycled.Store(0)
	c.leaksFlagged.Store(0)
}

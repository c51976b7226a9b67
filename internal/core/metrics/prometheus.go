package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/runnel/go-runnel/pkg/types"
)

// ============================================================================
// Prometheus 导出
// ============================================================================

// descs 导出指标的描述符集合，随 Collector 的命名空间构建一次
type descs struct {
	streamsOpened     *prometheus.Desc
	streamsTerminated *prometheus.Desc
	eventsDelivered   *prometheus.Desc
	payloadBytes      *prometheus.Desc
	deliveryRate      *prometheus.Desc

	aggregationsStarted   *prometheus.Desc
	aggregationsCompleted *prometheus.Desc
	aggregationsFailed    *prometheus.Desc
	aggregatedBytes       *prometheus.Desc

	buffersAcquired *prometheus.Desc
	bytesAcquired   *prometheus.Desc
	buffersRecycled *prometheus.Desc
	leaksFlagged    *prometheus.Desc
}

func newDescs(ns string) descs {
	return descs{
		streamsOpened: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "streams", "opened_total"),
			"创建的流总数", nil, nil),
		streamsTerminated: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "streams", "terminated_total"),
			"到达终态的流数", []string{"state"}, nil),
		eventsDelivered: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "stream", "events_delivered_total"),
			"投递给订阅者的事件数", []string{"kind"}, nil),
		payloadBytes: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "stream", "payload_bytes_total"),
			"投递的载荷字节总数", nil, nil),
		deliveryRate: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "stream", "delivery_bytes_per_second"),
			"滑动窗口内的平均投递速率", nil, nil),

		aggregationsStarted: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "aggregations", "started_total"),
			"启动的聚合数", nil, nil),
		aggregationsCompleted: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "aggregations", "completed_total"),
			"成功的聚合数", nil, nil),
		aggregationsFailed: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "aggregations", "failed_total"),
			"失败的聚合数（含超限与取消）", nil, nil),
		aggregatedBytes: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "aggregations", "content_bytes_total"),
			"成功聚合的内容字节总数", nil, nil),

		buffersAcquired: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "buffers", "acquired_total"),
			"分配器发出的缓冲总数", nil, nil),
		bytesAcquired: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "buffers", "acquired_bytes_total"),
			"分配器发出的缓冲字节总数", nil, nil),
		buffersRecycled: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "buffers", "recycled_total"),
			"回收进池的存储块数", nil, nil),
		leaksFlagged: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "buffers", "leaks_flagged_total"),
			"泄漏检测记录的违规总数", nil, nil),
	}
}

// Describe 实现 prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.descs.streamsOpened
	ch <- c.descs.streamsTerminated
	ch <- c.descs.eventsDelivered
	ch <- c.descs.payloadBytes
	ch <- c.descs.deliveryRate
	ch <- c.descs.aggregationsStarted
	ch <- c.descs.aggregationsCompleted
	ch <- c.descs.aggregationsFailed
	ch <- c.descs.aggregatedBytes
	ch <- c.descs.buffersAcquired
	ch <- c.descs.bytesAcquired
	ch <- c.descs.buffersRecycled
	ch <- c.descs.leaksFlagged
}

// Collect 实现 prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	counter(c.descs.streamsOpened, c.streamsOpened.Load())
	counter(c.descs.streamsTerminated, c.streamsCompleted.Load(), types.StreamCompleted.String())
	counter(c.descs.streamsTerminated, c.streamsCancelled.Load(), types.StreamCancelled.String())
	for i := range c.eventsByKind {
		counter(c.descs.eventsDelivered, c.eventsByKind[i].Load(), types.EventKind(i).String())
	}
	counter(c.descs.payloadBytes, c.payloadBytes.Load())
	ch <- prometheus.MustNewConstMetric(c.descs.deliveryRate, prometheus.GaugeValue, c.deliveryRate.Rate())

	counter(c.descs.aggregationsStarted, c.aggregationsStarted.Load())
	counter(c.descs.aggregationsCompleted, c.aggregationsCompleted.Load())
	counter(c.descs.aggregationsFailed, c.aggregationsFailed.Load())
	counter(c.descs.aggregatedBytes, c.aggregatedBytes.Load())

	counter(c.descs.buffersAcquired, c.buffersAcquired.Load())
	counter(c.descs.bytesAcquired, c.bytesAcquired.Load())
	counter(c.descs.buffersRecycled, c.buffersRecycled.Load())
	counter(c.descs.leaksFlagged, c.leaksFlagged.Load())
}

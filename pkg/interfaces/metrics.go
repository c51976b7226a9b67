// Package interfaces 定义 Runnel 公共接口
//
// 本文件定义 Metrics 接口，提供监控指标服务。
package interfaces

import (
	"time"

	"github.com/runnel/go-runnel/pkg/types"
)

// Recorder 定义指标记录接口
//
// 流引擎、聚合器与分配器在关键事件处调用对应钩子。
// 实现不得阻塞；组件统一容忍 nil Recorder（跳过记录）。
type Recorder interface {
	// StreamOpened 新流创建
	StreamOpened()

	// StreamTerminated 流到达终态
	StreamTerminated(state types.StreamState)

	// EventDelivered 一个事件投递给订阅者
	EventDelivered(kind types.EventKind, payloadBytes int)

	// AggregationStarted 聚合开始
	AggregationStarted()

	// AggregationCompleted 聚合成功，contentBytes 为拼装后的内容长度
	AggregationCompleted(contentBytes int64)

	// AggregationFailed 聚合失败
	AggregationFailed()

	// BufferAcquired 分配器发出一个缓冲
	BufferAcquired(size int)

	// BufferRecycled 池化分配器回收一块底层存储
	BufferRecycled(size int)

	// LeakFlagged 泄漏检测器记录一次违规或泄漏
	LeakFlagged()
}

// Metrics 定义监控指标服务接口
//
// Metrics 聚合 Recorder 钩子累计的计数，提供快照读取；
// 实现同时充当 Prometheus 收集器。
type Metrics interface {
	Recorder

	// Snapshot 获取指标快照
	Snapshot() MetricsSnapshot
}

// MetricsSnapshot 指标快照
type MetricsSnapshot struct {
	// Timestamp 快照时间
	Timestamp time.Time

	// Streams 流相关指标
	Streams StreamMetrics

	// Aggregations 聚合相关指标
	Aggregations AggregationMetrics

	// Buffers 缓冲相关指标
	Buffers BufferMetrics
}

// StreamMetrics 流指标
type StreamMetrics struct {
	// Opened 创建的流总数
	Opened int64

	// Completed 以终止事件结束的流数（End 或 Error）
	Completed int64

	// Cancelled 取消或中止的流数
	Cancelled int64

	// EventsDelivered 投递的事件总数
	EventsDelivered int64

	// BytesDelivered 投递的载荷字节总数
	BytesDelivered int64

	// DeliveryRate 滑动窗口内的平均投递速率（字节/秒）
	DeliveryRate float64
}

// AggregationMetrics 聚合指标
type AggregationMetrics struct {
	// Started 启动的聚合数
	Started int64

	// Completed 成功的聚合数
	Completed int64

	// Failed 失败的聚合数（含超限与取消）
	Failed int64

	// BytesAggregated 成功聚合的内容字节总数
	BytesAggregated int64
}

// BufferMetrics 缓冲指标
type BufferMetrics struct {
	// Acquired 发出的缓冲总数
	Acquired int64

	// BytesAcquired 发出的缓冲字节总数
	BytesAcquired int64

	// Recycled 回收进池的存储块数
	Recycled int64

	// LeaksFlagged 泄漏检测记录的违规总数
	LeaksFlagged int64
}

// Package interfaces 定义 Runnel 公共接口
//
// 本文件定义 Aggregator 接口，提供流到聚合消息的拼装服务。
package interfaces

import (
	"context"

	"github.com/runnel/go-runnel/pkg/types"
)

// Aggregator 定义消息聚合服务接口
//
// 聚合器订阅整条流，把事件序列拼装为单个 AggregatedMessage：
// 数据块按序拷贝进一块连续缓冲，原块逐一释放。
type Aggregator interface {
	// Aggregate 启动一次聚合，立即返回 Future
	//
	// 聚合独占流的订阅权；ctx 取消时聚合中止并取消订阅。
	// 累计内容超过上限时聚合以 ContentTooLargeError 失败，
	// 订阅被取消，已累积的缓冲全部释放。
	Aggregate(ctx context.Context, msg StreamMessage, opts ...AggregateOpt) AggregateFuture
}

// AggregateFuture 定义聚合结果句柄
type AggregateFuture interface {
	// Done 返回聚合完成时关闭的通道
	Done() <-chan struct{}

	// Result 返回聚合结果
	//
	// 聚合尚未完成时返回 (nil, ErrNotDone)；成功时返回
	// *types.AggregatedRequest 或 *types.AggregatedResponse
	// （由头块中的伪头决定），消息内容的引用转移给调用方。
	Result() (types.AggregatedMessage, error)

	// Wait 阻塞等待聚合完成
	Wait(ctx context.Context) (types.AggregatedMessage, error)
}

// AggregateOpt 聚合选项函数类型
type AggregateOpt func(*AggregateSettings)

// AggregateSettings 聚合设置（导出以供实现使用）
type AggregateSettings struct {
	// MaxContentLength 累计内容字节数上限，0 表示使用服务默认值
	MaxContentLength int64
	// Window 读取时的事件需求窗口，0 表示使用服务默认值
	Window int64
	// SkipLengthPrecheck 跳过按 content-length 声明值的提前失败
	SkipLengthPrecheck bool
}

// WithMaxContentLength 设置本次聚合的内容上限
func WithMaxContentLength(n int64) AggregateOpt {
	return func(s *AggregateSettings) {
		s.MaxContentLength = n
	}
}

// WithWindow 设置本次聚合的事件需求窗口
func WithWindow(n int64) AggregateOpt {
	return func(s *AggregateSettings) {
		s.Window = n
	}
}

// WithSkipLengthPrecheck 跳过 content-length 声明值的提前检查
//
// 适用于上游 content-length 不可信、希望严格按实际累计判定的场景。
func WithSkipLengthPrecheck() AggregateOpt {
	return func(s *AggregateSettings) {
		s.SkipLengthPrecheck = true
	}
}

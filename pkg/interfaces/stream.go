// Package interfaces 定义 Runnel 公共接口
//
// 本文件定义消息流接口：StreamMessage（消费侧）、Subscription（订阅句柄）
// 与 StreamWriter（生产侧）。
package interfaces

import (
	"context"

	"github.com/runnel/go-runnel/pkg/lib/buffer"
	"github.com/runnel/go-runnel/pkg/lib/httpheader"
	"github.com/runnel/go-runnel/pkg/types"
)

// StreamMessage 定义异步消息流接口
//
// 一条流承载一条 HTTP 消息的事件序列（Headers→Data*→Trailers?→终止），
// 至多允许一个活跃订阅者，事件投递由订阅者声明的需求量驱动。
type StreamMessage interface {
	// ID 返回流的唯一标识
	ID() string

	// Subscribe 建立订阅
	//
	// 流已有活跃订阅者时返回 ErrAlreadySubscribed。
	// 流已终止时订阅仍然成立：订阅者只收到一次终止事件后通道关闭。
	Subscribe(opts ...SubscribeOpt) (Subscription, error)

	// State 返回流的当前状态
	State() types.StreamState

	// Completion 返回终态信息，流未终止时第二个返回值为 false
	Completion() (types.Completion, bool)

	// WhenComplete 返回在流终止时收到终态信息的通道
	//
	// 每次调用返回独立的单值通道；流已终止时立即可读。
	WhenComplete() <-chan types.Completion

	// Abort 强制中止流
	//
	// 丢弃未投递的事件并释放其缓冲，订阅者（若有）收到携带 cause 的
	// ErrorEvent。cause 为 nil 时使用 ErrAborted。对已终止的流为空操作。
	Abort(cause error)
}

// Subscription 定义流订阅接口
type Subscription interface {
	// Events 返回接收事件的通道
	//
	// 通道在终止事件投递后或取消生效后关闭。
	Events() <-chan types.MessageEvent

	// Request 追加 n 个事件的需求量
	//
	// 需求量只增不减，饱和于 math.MaxInt64；n <= 0 为空操作。
	Request(n int64)

	// Cancel 取消订阅
	//
	// 幂等。取消生效后不再投递任何事件，未投递事件的缓冲由流释放，
	// 流进入 StreamCancelled 状态。
	Cancel()
}

// StreamWriter 定义流的生产侧接口
//
// 单生产者：所有写入方法须由同一 goroutine 串行调用。
type StreamWriter interface {
	// Emit 尝试写入一个事件
	//
	// 非终止事件在需求量不足时立即返回 ErrNoDemand；
	// 违反事件文法返回 ErrBadEventOrder；流已终止返回 ErrStreamClosed。
	// 写入成功后事件携带的缓冲引用转移给流。
	Emit(ev types.MessageEvent) error

	// WriteHeaders 写入头块，需求量不足时阻塞等待
	WriteHeaders(ctx context.Context, headers *httpheader.Block) error

	// WriteData 写入数据块，需求量不足时阻塞等待
	//
	// 成功或失败都会消耗 data 的引用（失败时由本方法释放）。
	WriteData(ctx context.Context, data *buffer.Buffer) error

	// WriteTrailers 写入尾部头块，需求量不足时阻塞等待
	WriteTrailers(ctx context.Context, trailers *httpheader.Block) error

	// Close 写入正常终止事件（不受需求量限制）
	Close() error

	// Fail 写入异常终止事件（不受需求量限制）
	//
	// 已入队未投递的事件仍会先行投递，cause 随 ErrorEvent 传递给订阅者。
	Fail(cause error) error

	// Requested 返回当前未消耗的需求量
	Requested() int64

	// Demand 返回需求量从零转正时收到信号的通道
	//
	// 与 Emit 配合实现自定义的等待策略。
	Demand() <-chan struct{}

	// Cancelled 返回订阅取消或流中止时关闭的通道
	Cancelled() <-chan struct{}
}

// SubscribeOpt 订阅选项函数类型
type SubscribeOpt func(*SubscribeSettings)

// SubscribeSettings 订阅设置（导出以供实现使用）
type SubscribeSettings struct {
	// InitialDemand 订阅建立时的初始需求量
	InitialDemand int64
	// Unbounded 放弃背压，需求量视为无限
	Unbounded bool
}

// WithInitialDemand 设置订阅建立时的初始需求量
func WithInitialDemand(n int64) SubscribeOpt {
	return func(s *SubscribeSettings) {
		s.InitialDemand = n
	}
}

// WithUnboundedDemand 放弃背压，事件随生产随投递
func WithUnboundedDemand() SubscribeOpt {
	return func(s *SubscribeSettings) {
		s.Unbounded = true
	}
}

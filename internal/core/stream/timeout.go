package stream

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/log"
	"github.com/runnel/go-runnel/pkg/types"
)

// ============================================================================
// 超时装饰器
// ============================================================================

// TimeoutMode 超时计时模式
type TimeoutMode int

const (
	// TimeoutUntilFirst 只约束首个事件的到达，之后不再计时
	TimeoutUntilFirst TimeoutMode = iota
	// TimeoutUntilNext 每个事件到达后重新计时
	TimeoutUntilNext
	// TimeoutUntilEOS 约束整条流在时限内终止
	TimeoutUntilEOS
)

// String 返回模式的字符串表示
func (m TimeoutMode) String() string {
	switch m {
	case TimeoutUntilFirst:
		return "until_first"
	case TimeoutUntilNext:
		return "until_next"
	case TimeoutUntilEOS:
		return "until_eos"
	default:
		return "unknown"
	}
}

// TimeoutOption 超时装饰器配置函数
type TimeoutOption func(*timeoutOptions)

type timeoutOptions struct {
	clk clock.Clock
}

// WithClock 注入时钟，测试时替换为 mock
func WithClock(clk clock.Clock) TimeoutOption {
	return func(o *timeoutOptions) {
		o.clk = clk
	}
}

// WithTimeout 为流附加超时装饰
//
// 计时按 mode 约束上游事件的到达；超时触发时中止底层流
// （cause 为 ErrStreamTimeout），订阅者经由 ErrorEvent 观察到超时。
func WithTimeout(msg interfaces.StreamMessage, d time.Duration, mode TimeoutMode, opts ...TimeoutOption) interfaces.StreamMessage {
	o := timeoutOptions{clk: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	return &timeoutMessage{
		inner: msg,
		d:     d,
		mode:  mode,
		clk:   o.clk,
	}
}

// timeoutMessage 包装底层流，只改写 Subscribe 的事件路径
type timeoutMessage struct {
	inner interfaces.StreamMessage
	d     time.Duration
	mode  TimeoutMode
	clk   clock.Clock
}

var _ interfaces.StreamMessage = (*timeoutMessage)(nil)

// ID 返回底层流的标识
func (t *timeoutMessage) ID() string { return t.inner.ID() }

// State 返回底层流的状态
func (t *timeoutMessage) State() types.StreamState { return t.inner.State() }

// Completion 返回底层流的终态信息
func (t *timeoutMessage) Completion() (types.Completion, bool) { return t.inner.Completion() }

// WhenComplete 返回底层流的终态通道
func (t *timeoutMessage) WhenComplete() <-chan types.Completion { return t.inner.WhenComplete() }

// Abort 中止底层流
func (t *timeoutMessage) Abort(cause error) { t.inner.Abort(cause) }

// Subscribe 订阅底层流并启动计时转发
func (t *timeoutMessage) Subscribe(opts ...interfaces.SubscribeOpt) (interfaces.Subscription, error) {
	inner, err := t.inner.Subscribe(opts...)
	if err != nil {
		return nil, err
	}

	sub := &timeoutSubscription{
		inner:    inner,
		out:      make(chan types.MessageEvent),
		cancelCh: make(chan struct{}),
	}
	go t.relay(inner, sub)
	return sub, nil
}

// relay 转发上游事件并执行超时计时
func (t *timeoutMessage) relay(inner interfaces.Subscription, sub *timeoutSubscription) {
	timer := t.clk.Timer(t.d)
	defer timer.Stop()
	timeoutC := timer.C

	for {
		select {
		case ev, ok := <-inner.Events():
			if !ok {
				close(sub.out)
				return
			}

			switch t.mode {
			case TimeoutUntilFirst:
				if timeoutC != nil {
					timer.Stop()
					timeoutC = nil
				}
			case TimeoutUntilNext:
				// 转发完成后再重新计时，下游消费耗时不计入
			}

			select {
			case sub.out <- ev:
			case <-sub.cancelCh:
				types.ReleaseEvent(ev)
				close(sub.out)
				return
			}

			if t.mode == TimeoutUntilNext && timeoutC != nil && !ev.Kind().IsTerminal() {
				timer.Stop()
				timer.Reset(t.d)
			}

		case <-timeoutC:
			logger.Debug("流超时",
				"stream", log.ShortID(t.inner.ID(), 8),
				"mode", t.mode.String(),
				"timeout", t.d)
			t.inner.Abort(types.ErrStreamTimeout)
			// 中止产生的 ErrorEvent 沿正常路径转发，保证只有一个终止事件
			timeoutC = nil

		case <-sub.cancelCh:
			close(sub.out)
			return
		}
	}
}

// timeoutSubscription 装饰订阅：事件走转发通道，控制直通底层
type timeoutSubscription struct {
	inner      interfaces.Subscription
	out        chan types.MessageEvent
	cancelCh   chan struct{}
	cancelOnce sync.Once
}

var _ interfaces.Subscription = (*timeoutSubscription)(nil)

// Events 返回接收事件的通道
func (s *timeoutSubscription) Events() <-chan types.MessageEvent {
	return s.out
}

// Request 追加需求量
func (s *timeoutSubscription) Request(n int64) {
	s.inner.Request(n)
}

// Cancel 取消订阅，同时解除转发阻塞
func (s *timeoutSubscription) Cancel() {
	s.inner.Cancel()
	s.cancelOnce.Do(func() { close(s.cancelCh) })
}

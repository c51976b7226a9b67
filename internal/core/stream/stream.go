package stream

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/buffer"
	"github.com/runnel/go-runnel/pkg/lib/httpheader"
	"github.com/runnel/go-runnel/pkg/lib/log"
	"github.com/runnel/go-runnel/pkg/types"
)

var logger = log.Logger("core/stream")

// 接口实现检查
var (
	_ interfaces.StreamMessage = (*Message)(nil)
	_ interfaces.StreamWriter  = (*Writer)(nil)
	_ interfaces.Subscription  = (*subscription)(nil)
	_ interfaces.Subscription  = (*replaySubscription)(nil)
)

// ============================================================================
// Message 实现
// ============================================================================

// Message 消息流
//
// 生产侧经由 Writer 写入事件，消费侧经由 Subscribe 返回的订阅读取。
// 所有可变状态由 mu 保护；投递泵是唯一从队列取事件的 goroutine。
type Message struct {
	id string

	mu             sync.Mutex
	state          types.StreamState
	queue          []types.MessageEvent
	demand         int64
	unbounded      bool
	sawHeaders     bool
	sawTrailers    bool
	terminalQueued bool
	completed      bool
	completion     types.Completion
	sub            *subscription
	waiters        []chan types.Completion

	wakeCh   chan struct{} // 唤醒投递泵：入队或终态
	demandCh chan struct{} // 需求量零转正信号，面向生产侧
	cancelCh chan struct{} // 订阅取消，打断投递泵
	stopCh   chan struct{} // 取消或中止，面向生产侧
	dropCh   chan struct{} // 中止时换新，令投递泵丢弃在手事件

	cancelOnce sync.Once
	stopOnce   sync.Once

	recorder interfaces.Recorder
}

// Writer 流的生产侧句柄
type Writer struct {
	msg *Message
}

// New 创建一对消息流与生产侧句柄
func New(opts ...Option) (*Message, *Writer) {
	o := buildOptions(opts)
	id := o.id
	if id == "" {
		id = uuid.New().String()
	}

	m := &Message{
		id:       id,
		state:    types.StreamNotSubscribed,
		wakeCh:   make(chan struct{}, 1),
		demandCh: make(chan struct{}, 1),
		cancelCh: make(chan struct{}),
		stopCh:   make(chan struct{}),
		dropCh:   make(chan struct{}),
		recorder: o.recorder,
	}
	if m.recorder != nil {
		m.recorder.StreamOpened()
	}
	return m, &Writer{msg: m}
}

// ID 返回流的唯一标识
func (m *Message) ID() string {
	return m.id
}

// Subscribe 建立订阅
//
// 流已终止时返回一次性重放订阅：单个终止事件后通道关闭。
func (m *Message) Subscribe(opts ...interfaces.SubscribeOpt) (interfaces.Subscription, error) {
	settings := &interfaces.SubscribeSettings{}
	for _, opt := range opts {
		opt(settings)
	}

	m.mu.Lock()
	if m.completed {
		c := m.completion
		m.mu.Unlock()
		return newReplaySubscription(c), nil
	}
	if m.sub != nil {
		m.mu.Unlock()
		return nil, types.ErrAlreadySubscribed
	}

	sub := &subscription{
		msg: m,
		out: make(chan types.MessageEvent),
	}
	m.sub = sub
	m.state = types.StreamSubscribed
	if settings.Unbounded {
		m.unbounded = true
		m.signalDemandLocked()
	} else if settings.InitialDemand > 0 {
		m.addDemandLocked(settings.InitialDemand)
	}
	m.mu.Unlock()

	go m.pump(sub)

	logger.Debug("订阅建立",
		"stream", log.ShortID(m.id, 8),
		"initial", settings.InitialDemand,
		"unbounded", settings.Unbounded)
	return sub, nil
}

// State 返回流的当前状态
func (m *Message) State() types.StreamState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Completion 返回终态信息，流未终止时第二个返回值为 false
func (m *Message) Completion() (types.Completion, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completion, m.completed
}

// WhenComplete 返回在流终止时收到终态信息的通道
func (m *Message) WhenComplete() <-chan types.Completion {
	ch := make(chan types.Completion, 1)
	m.mu.Lock()
	if m.completed {
		ch <- m.completion
	} else {
		m.waiters = append(m.waiters, ch)
	}
	m.mu.Unlock()
	return ch
}

// Abort 强制中止流
//
// 未投递事件的缓冲立即释放；活跃订阅者收到携带 cause 的 ErrorEvent，
// 终态立即可见。对已终止的流为空操作。
func (m *Message) Abort(cause error) {
	if cause == nil {
		cause = types.ErrAborted
	}

	m.mu.Lock()
	if m.completed {
		m.mu.Unlock()
		return
	}
	for _, ev := range m.queue {
		types.ReleaseEvent(ev)
	}
	m.queue = nil
	m.terminalQueued = true
	if m.sub != nil {
		m.queue = append(m.queue, types.ErrorEvent{Cause: cause})
	}
	// 换新丢弃通道：投递泵若正拿着中止前取出的事件阻塞发送，
	// 旧通道的关闭会令其丢弃该事件
	close(m.dropCh)
	m.dropCh = make(chan struct{})
	m.completeLocked(types.Completion{State: types.StreamCompleted, Err: cause})
	m.wakeLocked()
	m.mu.Unlock()

	m.stopOnce.Do(func() { close(m.stopCh) })

	logger.Debug("流被中止",
		"stream", log.ShortID(m.id, 8),
		"cause", cause)
}

// ============================================================================
// 生产侧
// ============================================================================

// Emit 尝试写入一个事件
//
// 错误优先级：已终止 ErrStreamClosed > 文法违例 ErrBadEventOrder >
// 需求不足 ErrNoDemand。成功后事件缓冲的引用转移给流。
func (w *Writer) Emit(ev types.MessageEvent) error {
	return w.msg.emit(ev)
}

// WriteHeaders 写入头块，需求量不足时阻塞等待
func (w *Writer) WriteHeaders(ctx context.Context, headers *httpheader.Block) error {
	if headers == nil {
		headers = httpheader.Empty()
	}
	return w.emitWhenReady(ctx, types.HeadersEvent{Headers: headers})
}

// WriteData 写入数据块，需求量不足时阻塞等待
//
// 无论成败都消耗 data 的引用。
func (w *Writer) WriteData(ctx context.Context, data *buffer.Buffer) error {
	if data == nil {
		return types.ErrInvalidArgument
	}
	if err := w.emitWhenReady(ctx, types.DataEvent{Data: data}); err != nil {
		_ = data.Release()
		return err
	}
	return nil
}

// WriteTrailers 写入尾部头块，需求量不足时阻塞等待
func (w *Writer) WriteTrailers(ctx context.Context, trailers *httpheader.Block) error {
	if trailers == nil {
		trailers = httpheader.Empty()
	}
	return w.emitWhenReady(ctx, types.TrailersEvent{Trailers: trailers})
}

// Close 写入正常终止事件，不受需求量限制
func (w *Writer) Close() error {
	return w.msg.emit(types.EndEvent{})
}

// Fail 写入异常终止事件，不受需求量限制
//
// 已入队的事件仍会先行投递。cause 为 nil 时使用 ErrAborted。
func (w *Writer) Fail(cause error) error {
	if cause == nil {
		cause = types.ErrAborted
	}
	return w.msg.emit(types.ErrorEvent{Cause: cause})
}

// Requested 返回当前未消耗的需求量
func (w *Writer) Requested() int64 {
	w.msg.mu.Lock()
	defer w.msg.mu.Unlock()
	if w.msg.unbounded {
		return math.MaxInt64
	}
	return w.msg.demand
}

// Demand 返回需求量从零转正时收到信号的通道
func (w *Writer) Demand() <-chan struct{} {
	return w.msg.demandCh
}

// Cancelled 返回订阅取消或流中止时关闭的通道
func (w *Writer) Cancelled() <-chan struct{} {
	return w.msg.stopCh
}

// emitWhenReady 循环写入直到成功、ctx 结束或流不再接受事件
func (w *Writer) emitWhenReady(ctx context.Context, ev types.MessageEvent) error {
	for {
		err := w.msg.emit(ev)
		if !errors.Is(err, types.ErrNoDemand) {
			return err
		}
		select {
		case <-w.msg.demandCh:
		case <-w.msg.stopCh:
			return types.ErrStreamClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ============================================================================
// 内部状态机
// ============================================================================

// emit 校验并入队一个事件
func (m *Message) emit(ev types.MessageEvent) error {
	switch e := ev.(type) {
	case nil:
		return types.ErrInvalidArgument
	case types.DataEvent:
		if e.Data == nil {
			return types.ErrInvalidArgument
		}
	case types.HeadersEvent:
		if e.Headers == nil {
			ev = types.HeadersEvent{Headers: httpheader.Empty()}
		}
	case types.TrailersEvent:
		if e.Trailers == nil {
			ev = types.TrailersEvent{Trailers: httpheader.Empty()}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.completed || m.terminalQueued {
		return types.ErrStreamClosed
	}

	switch ev.(type) {
	case types.HeadersEvent:
		if m.sawHeaders {
			return types.ErrBadEventOrder
		}
	case types.DataEvent, types.TrailersEvent:
		if !m.sawHeaders || m.sawTrailers {
			return types.ErrBadEventOrder
		}
	case types.EndEvent:
		if !m.sawHeaders {
			return types.ErrBadEventOrder
		}
	case types.ErrorEvent:
		// 任意位置合法
	}

	terminal := ev.Kind().IsTerminal()
	if !terminal && !m.unbounded {
		if m.demand <= 0 {
			return types.ErrNoDemand
		}
		m.demand--
	}

	switch ev.(type) {
	case types.HeadersEvent:
		m.sawHeaders = true
	case types.TrailersEvent:
		m.sawTrailers = true
	}

	if terminal {
		m.terminalQueued = true
		// 尚无订阅者时没有投递对象，直接定格终态；订阅者事后经由
		// 重放订阅观察到终止事件
		if m.sub == nil {
			m.completeLocked(completionFor(ev))
			return nil
		}
	}

	m.queue = append(m.queue, ev)
	m.wakeLocked()
	return nil
}

// cancel 消费侧取消
func (m *Message) cancel() {
	m.mu.Lock()
	if !m.completed {
		for _, ev := range m.queue {
			types.ReleaseEvent(ev)
		}
		m.queue = nil
		m.completeLocked(types.Completion{State: types.StreamCancelled, Err: types.ErrCancelled})
		logger.Debug("订阅已取消", "stream", log.ShortID(m.id, 8))
	}
	m.mu.Unlock()

	// 已终止也要关闭信号通道，保证投递泵与阻塞中的生产者退出
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.cancelOnce.Do(func() { close(m.cancelCh) })
}

// pump 投递泵：按写入顺序把队列事件转发给订阅者
func (m *Message) pump(s *subscription) {
	for {
		m.mu.Lock()
		for len(m.queue) == 0 {
			if m.completed {
				m.mu.Unlock()
				s.closeOut()
				return
			}
			m.mu.Unlock()
			select {
			case <-m.wakeCh:
			case <-m.cancelCh:
			}
			m.mu.Lock()
		}
		ev := m.queue[0]
		m.queue = m.queue[1:]
		dropCh := m.dropCh
		m.mu.Unlock()

		select {
		case s.out <- ev:
			if m.recorder != nil {
				m.recorder.EventDelivered(ev.Kind(), types.EventSize(ev))
			}
			if ev.Kind().IsTerminal() {
				m.mu.Lock()
				m.completeLocked(completionFor(ev))
				m.mu.Unlock()
				s.closeOut()
				return
			}
		case <-m.cancelCh:
			types.ReleaseEvent(ev)
			s.closeOut()
			return
		case <-dropCh:
			// 取出后发生了中止：事件作废，回到队列取中止补入的终止事件
			types.ReleaseEvent(ev)
		}
	}
}

// completeLocked 定格终态并通知等待者，幂等
func (m *Message) completeLocked(c types.Completion) {
	if m.completed {
		return
	}
	m.completed = true
	m.completion = c
	m.state = c.State
	for _, ch := range m.waiters {
		ch <- c
	}
	m.waiters = nil
	if m.recorder != nil {
		m.recorder.StreamTerminated(c.State)
	}
}

// addDemandLocked 追加需求量，饱和于 MaxInt64
func (m *Message) addDemandLocked(n int64) {
	if m.completed {
		return
	}
	prev := m.demand
	if n > math.MaxInt64-m.demand {
		m.demand = math.MaxInt64
	} else {
		m.demand += n
	}
	if prev == 0 && m.demand > 0 {
		m.signalDemandLocked()
	}
}

func (m *Message) signalDemandLocked() {
	select {
	case m.demandCh <- struct{}{}:
	default:
	}
}

func (m *Message) wakeLocked() {
	select {
	case m.wakeCh <- struct{}{}:
	default:
	}
}

// completionFor 把终止事件映射为终态信息
func completionFor(ev types.MessageEvent) types.Completion {
	if e, ok := ev.(types.ErrorEvent); ok {
		return types.Completion{State: types.StreamCompleted, Err: e.Cause}
	}
	return types.Completion{State: types.StreamCompleted}
}

// ============================================================================
// Subscription 实现
// ============================================================================

// subscription 活跃订阅
type subscription struct {
	msg       *Message
	out       chan types.MessageEvent
	closeOnce sync.Once
}

// Events 返回接收事件的通道
func (s *subscription) Events() <-chan types.MessageEvent {
	return s.out
}

// Request 追加 n 个事件的需求量，n <= 0 为空操作
func (s *subscription) Request(n int64) {
	if n <= 0 {
		return
	}
	s.msg.mu.Lock()
	s.msg.addDemandLocked(n)
	s.msg.mu.Unlock()
}

// Cancel 取消订阅，幂等
func (s *subscription) Cancel() {
	s.msg.cancel()
}

func (s *subscription) closeOut() {
	s.closeOnce.Do(func() { close(s.out) })
}

// replaySubscription 终止后订阅的一次性重放
type replaySubscription struct {
	out chan types.MessageEvent
}

func newReplaySubscription(c types.Completion) *replaySubscription {
	out := make(chan types.MessageEvent, 1)
	if c.Err != nil {
		out <- types.ErrorEvent{Cause: c.Err}
	} else {
		out <- types.EndEvent{}
	}
	close(out)
	return &replaySubscription{out: out}
}

// Events 返回接收事件的通道
func (s *replaySubscription) Events() <-chan types.MessageEvent {
	return s.out
}

// Request 重放订阅无需求量语义
func (s *replaySubscription) Request(int64) {}

// Cancel 重放订阅无可取消的投递
func (s *replaySubscription) Cancel() {}

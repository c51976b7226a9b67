package stream

import (
	"context"
	"sync"

	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/log"
	"github.com/runnel/go-runnel/pkg/types"
)

// ============================================================================
// 流复制器
// ============================================================================

// DupOption 复制器配置函数
type DupOption func(*dupOptions)

type dupOptions struct {
	maxBufferedBytes int
}

// WithMaxBufferedBytes 限制主日志缓存的数据字节总量
//
// 超限时复制器失败：上游被取消，所有子流以 ErrDuplicatorOverflow 中止。
// 0 表示不限制。
func WithMaxBufferedBytes(n int) DupOption {
	return func(o *dupOptions) {
		o.maxBufferedBytes = n
	}
}

// Duplicator 把一条上游流复制给多个下游订阅者
//
// 上游事件被追加进主日志并常驻（DataEvent 持有一个引用），子流从日志头
// 开始重放后跟随直播，因此允许迟到加入。每次投递给子流前对数据缓冲
// Retain 一次，引用随子流转移给其消费者。
//
// Close 释放主日志并以 ErrDuplicatorClosed 中止未完成的子流。
type Duplicator struct {
	upstream interfaces.StreamMessage
	upSub    interfaces.Subscription
	maxBytes int

	mu            sync.Mutex
	log           []types.MessageEvent
	bufferedBytes int
	done          bool  // 主日志以终止事件收尾
	failErr       error // 复制器整体失败原因
	closed        bool
	children      []*Message
	updated       chan struct{} // 日志追加或状态变更时关闭换新
}

// NewDuplicator 创建复制器并立即开始消费上游
//
// 上游以无界需求订阅；上游已有订阅者时返回 ErrAlreadySubscribed。
func NewDuplicator(upstream interfaces.StreamMessage, opts ...DupOption) (*Duplicator, error) {
	o := dupOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	sub, err := upstream.Subscribe(interfaces.WithUnboundedDemand())
	if err != nil {
		return nil, err
	}

	d := &Duplicator{
		upstream: upstream,
		upSub:    sub,
		maxBytes: o.maxBufferedBytes,
		updated:  make(chan struct{}),
	}
	go d.consume()
	return d, nil
}

// Duplicate 派生一条从头重放上游事件的子流
func (d *Duplicator) Duplicate() (interfaces.StreamMessage, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, types.ErrDuplicatorClosed
	}
	msg, w := New()
	d.children = append(d.children, msg)
	d.mu.Unlock()

	go d.feed(msg, w)
	return msg, nil
}

// Close 停止消费上游、释放主日志并中止未完成的子流
func (d *Duplicator) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	done := d.done
	d.releaseLogLocked()
	children := make([]*Message, len(d.children))
	copy(children, d.children)
	d.broadcastLocked()
	d.mu.Unlock()

	if !done {
		d.upSub.Cancel()
	}
	// 已终止的子流不受影响，Abort 对其为空操作
	for _, child := range children {
		child.Abort(types.ErrDuplicatorClosed)
	}
	return nil
}

// consume 消费上游事件进主日志
func (d *Duplicator) consume() {
	for ev := range d.upSub.Events() {
		if data, ok := ev.(types.DataEvent); ok {
			d.mu.Lock()
			d.bufferedBytes += data.Data.Len()
			over := d.maxBytes > 0 && d.bufferedBytes > d.maxBytes
			d.mu.Unlock()
			if over {
				types.ReleaseEvent(ev)
				logger.Warn("复制器缓存超限",
					"stream", log.ShortID(d.upstream.ID(), 8),
					"max", d.maxBytes)
				d.fail(types.ErrDuplicatorOverflow)
				d.upSub.Cancel()
				return
			}
		}

		d.mu.Lock()
		if d.closed || d.failErr != nil {
			d.mu.Unlock()
			types.ReleaseEvent(ev)
			return
		}
		d.log = append(d.log, ev)
		if ev.Kind().IsTerminal() {
			d.done = true
		}
		d.broadcastLocked()
		terminal := d.done
		d.mu.Unlock()

		if terminal {
			return
		}
	}
}

// feed 把主日志喂给一条子流
func (d *Duplicator) feed(child *Message, w *Writer) {
	ctx := context.Background()
	i := 0
	for {
		d.mu.Lock()
		for i >= len(d.log) && !d.done && d.failErr == nil && !d.closed {
			ch := d.updated
			d.mu.Unlock()
			select {
			case <-ch:
			case <-w.Cancelled():
				return
			}
			d.mu.Lock()
		}
		if d.failErr != nil {
			err := d.failErr
			d.mu.Unlock()
			child.Abort(err)
			return
		}
		if i >= len(d.log) {
			closed := d.closed
			d.mu.Unlock()
			if closed {
				child.Abort(types.ErrDuplicatorClosed)
			}
			return
		}

		ev := d.log[i]
		i++
		if data, ok := ev.(types.DataEvent); ok {
			data.Data.Retain()
		}
		d.mu.Unlock()

		var err error
		switch e := ev.(type) {
		case types.HeadersEvent:
			err = w.WriteHeaders(ctx, e.Headers)
		case types.DataEvent:
			err = w.WriteData(ctx, e.Data)
		case types.TrailersEvent:
			err = w.WriteTrailers(ctx, e.Trailers)
		case types.EndEvent:
			err = w.Close()
		case types.ErrorEvent:
			err = w.Fail(e.Cause)
		}
		if err != nil || ev.Kind().IsTerminal() {
			return
		}
	}
}

// fail 记录失败原因、释放主日志并中止所有子流
func (d *Duplicator) fail(cause error) {
	d.mu.Lock()
	if d.failErr != nil || d.closed {
		d.mu.Unlock()
		return
	}
	d.failErr = cause
	d.releaseLogLocked()
	children := make([]*Message, len(d.children))
	copy(children, d.children)
	d.broadcastLocked()
	d.mu.Unlock()

	for _, child := range children {
		child.Abort(cause)
	}
}

// releaseLogLocked 释放主日志持有的全部缓冲引用
func (d *Duplicator) releaseLogLocked() {
	for _, ev := range d.log {
		types.ReleaseEvent(ev)
	}
	d.log = nil
}

// broadcastLocked 唤醒所有等待日志更新的喂送 goroutine
func (d *Duplicator) broadcastLocked() {
	close(d.updated)
	d.updated = make(chan struct{})
}

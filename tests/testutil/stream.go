package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/runnel/go-runnel"
	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/httpheader"
	"github.com/runnel/go-runnel/pkg/types"
)

// ============================================================================
//                              脚本化生产
// ============================================================================

// ProduceChunks 在新 goroutine 中按脚本驱动流的生产侧
//
// 依次写入 headers、按 chunks 给定的数据块、可选的 trailers，
// 最后写入正常终止事件。返回接收最终写入结果的通道（单值）。
// 数据块内容被复制进新分配的缓冲，写入的节奏由订阅需求驱动。
func ProduceChunks(ctx context.Context, core *runnel.Core, w interfaces.StreamWriter,
	headers *httpheader.Block, chunks [][]byte, trailers *httpheader.Block) <-chan error {

	result := make(chan error, 1)
	go func() {
		result <- produce(ctx, core, w, headers, chunks, trailers)
	}()
	return result
}

func produce(ctx context.Context, core *runnel.Core, w interfaces.StreamWriter,
	headers *httpheader.Block, chunks [][]byte, trailers *httpheader.Block) error {

	if err := w.WriteHeaders(ctx, headers); err != nil {
		return err
	}
	for _, chunk := range chunks {
		buf := core.Acquire(len(chunk))
		copy(buf.Bytes(), chunk)
		if err := w.WriteData(ctx, buf); err != nil {
			return err
		}
	}
	if trailers != nil && !trailers.IsEmpty() {
		if err := w.WriteTrailers(ctx, trailers); err != nil {
			return err
		}
	}
	return w.Close()
}

// ============================================================================
//                              记录式订阅
// ============================================================================

// RecordingSubscriber 记录订阅收到的全部事件
//
// 后台消费事件：数据块内容被复制后立即释放缓冲，
// 每收到一个事件补一个需求量。事件通道关闭后 Done() 关闭。
type RecordingSubscriber struct {
	sub  interfaces.Subscription
	done chan struct{}

	mu         sync.Mutex
	kinds      []types.EventKind
	headers    *httpheader.Block
	trailers   *httpheader.Block
	content    []byte
	chunkSizes []int
	terminal   error
}

// Record 订阅消息流并在后台记录事件
//
// opts 为空时使用初始需求 1，之后逐事件续订。
func Record(t *testing.T, msg interfaces.StreamMessage, opts ...interfaces.SubscribeOpt) *RecordingSubscriber {
	t.Helper()

	if len(opts) == 0 {
		opts = []interfaces.SubscribeOpt{interfaces.WithInitialDemand(1)}
	}
	sub, err := msg.Subscribe(opts...)
	if err != nil {
		t.Fatalf("订阅失败: %v", err)
	}

	r := &RecordingSubscriber{
		sub:  sub,
		done: make(chan struct{}),
	}
	go r.consume()
	return r
}

func (r *RecordingSubscriber) consume() {
	defer close(r.done)
	for ev := range r.sub.Events() {
		r.mu.Lock()
		r.kinds = append(r.kinds, ev.Kind())
		switch e := ev.(type) {
		case types.HeadersEvent:
			r.headers = e.Headers
		case types.DataEvent:
			r.content = append(r.content, e.Data.Bytes()...)
			r.chunkSizes = append(r.chunkSizes, e.Data.Len())
			_ = e.Data.Release()
		case types.TrailersEvent:
			r.trailers = e.Trailers
		case types.ErrorEvent:
			r.terminal = e.Cause
		}
		r.mu.Unlock()
		r.sub.Request(1)
	}
}

// Cancel 取消底层订阅
func (r *RecordingSubscriber) Cancel() {
	r.sub.Cancel()
}

// Done 返回事件通道关闭时关闭的通道
func (r *RecordingSubscriber) Done() <-chan struct{} {
	return r.done
}

// Wait 等待事件通道关闭，超时则 fail 测试
func (r *RecordingSubscriber) Wait(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(timeout):
		t.Fatal("等待订阅结束超时")
	}
}

// Kinds 返回收到的事件类别序列
func (r *RecordingSubscriber) Kinds() []types.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]types.EventKind, len(r.kinds))
	copy(kinds, r.kinds)
	return kinds
}

// Headers 返回收到的头块（未收到时为 nil）
func (r *RecordingSubscriber) Headers() *httpheader.Block {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headers
}

// Trailers 返回收到的尾部头块（未收到时为 nil）
func (r *RecordingSubscriber) Trailers() *httpheader.Block {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trailers
}

// Content 返回按序拼接的数据内容副本
func (r *RecordingSubscriber) Content() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	content := make([]byte, len(r.content))
	copy(content, r.content)
	return content
}

// ChunkSizes 返回每个数据事件的字节数
func (r *RecordingSubscriber) ChunkSizes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	sizes := make([]int, len(r.chunkSizes))
	copy(sizes, r.chunkSizes)
	return sizes
}

// TerminalErr 返回 ErrorEvent 携带的原因（正常结束时为 nil）
func (r *RecordingSubscriber) TerminalErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.terminal
}

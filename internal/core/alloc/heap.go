package alloc

import (
	"sync/atomic"

	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/buffer"
)

// HeapAllocator 直接堆分配的分配器
//
// 每次 Acquire 分配新切片，引用计数归零后交给 GC。
// 无池化状态，Close 仅做标记。
type HeapAllocator struct {
	detector *LeakDetector
	recorder interfaces.Recorder
	closed   atomic.Bool
}

var _ interfaces.Allocator = (*HeapAllocator)(nil)

// NewHeap 创建堆分配器
func NewHeap(opts ...Option) *HeapAllocator {
	o := buildOptions(opts)
	return &HeapAllocator{
		detector: o.detector,
		recorder: o.recorder,
	}
}

// Acquire 分配一个 size 字节的缓冲
func (a *HeapAllocator) Acquire(size int) *buffer.Buffer {
	if size < 0 {
		size = 0
	}
	var tracker buffer.Tracker
	if a.detector != nil {
		tracker = a.detector
	}
	buf := buffer.NewManaged(make([]byte, size), nil, tracker)
	if a.detector != nil {
		a.detector.Track(buf)
	}
	if a.recorder != nil {
		a.recorder.BufferAcquired(size)
	}
	return buf
}

// Release 归还缓冲
func (a *HeapAllocator) Release(buf *buffer.Buffer) error {
	return buf.Release()
}

// Close 关闭分配器
func (a *HeapAllocator) Close() error {
	a.closed.Store(true)
	return nil
}

package alloc

import (
	"sync"
	"sync/atomic"

	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/buffer"
	"github.com/runnel/go-runnel/pkg/lib/log"
)

var logger = log.Logger("core/alloc")

// PooledAllocator 按档位池化底层存储的分配器
//
// Acquire 从首个容量足够的档位取存储，缓冲长度精确为请求值；
// 引用计数归零时底层存储回池。超过最大档位的请求退化为堆分配。
type PooledAllocator struct {
	classes  []int
	pools    []*sync.Pool
	detector *LeakDetector
	recorder interfaces.Recorder
	closed   atomic.Bool
}

var _ interfaces.Allocator = (*PooledAllocator)(nil)

// NewPooled 创建池化分配器
func NewPooled(opts ...Option) *PooledAllocator {
	o := buildOptions(opts)
	a := &PooledAllocator{
		classes:  o.classes,
		pools:    make([]*sync.Pool, len(o.classes)),
		detector: o.detector,
		recorder: o.recorder,
	}
	for i, size := range o.classes {
		size := size
		a.pools[i] = &sync.Pool{
			New: func() any {
				slab := make([]byte, size)
				return &slab
			},
		}
	}
	return a
}

// Acquire 分配一个 size 字节的缓冲
func (a *PooledAllocator) Acquire(size int) *buffer.Buffer {
	if size < 0 {
		size = 0
	}
	var tracker buffer.Tracker
	if a.detector != nil {
		tracker = a.detector
	}

	idx := a.classFor(size)
	var buf *buffer.Buffer
	if idx < 0 || a.closed.Load() {
		// 超档或已关闭：堆分配，GC 回收
		buf = buffer.NewManaged(make([]byte, size), nil, tracker)
	} else {
		pool := a.pools[idx]
		slabPtr := pool.Get().(*[]byte)
		data := (*slabPtr)[:size]
		final := func([]byte) {
			if a.closed.Load() {
				return
			}
			pool.Put(slabPtr)
			if a.recorder != nil {
				a.recorder.BufferRecycled(cap(*slabPtr))
			}
		}
		buf = buffer.NewManaged(data, final, tracker)
	}

	if a.detector != nil {
		a.detector.Track(buf)
	}
	if a.recorder != nil {
		a.recorder.BufferAcquired(size)
	}
	return buf
}

// classFor 返回首个容量不小于 size 的档位下标，超档返回 -1
func (a *PooledAllocator) classFor(size int) int {
	for i, c := range a.classes {
		if size <= c {
			return i
		}
	}
	return -1
}

// Release 归还缓冲
func (a *PooledAllocator) Release(buf *buffer.Buffer) error {
	return buf.Release()
}

// Close 关闭分配器
//
// 关闭后 Acquire 退化为堆分配，在外缓冲的回收钩子不再回池。
func (a *PooledAllocator) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	logger.Debug("池化分配器已关闭", "classes", len(a.classes))
	return nil
}

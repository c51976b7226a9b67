package testutil

import (
	"sync/atomic"

	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/buffer"
)

// CountingAllocator 统计分配次数的分配器包装
//
// 用于验证组件的分配行为（如解码路径是否通过注入的分配器取缓冲）。
type CountingAllocator struct {
	inner    interfaces.Allocator
	acquired atomic.Int64
	bytes    atomic.Int64
	released atomic.Int64
}

var _ interfaces.Allocator = (*CountingAllocator)(nil)

// WrapCounting 包装一个分配器，统计经由它的分配与归还
func WrapCounting(inner interfaces.Allocator) *CountingAllocator {
	return &CountingAllocator{inner: inner}
}

// Acquire 分配缓冲并计数
func (c *CountingAllocator) Acquire(size int) *buffer.Buffer {
	c.acquired.Add(1)
	c.bytes.Add(int64(size))
	return c.inner.Acquire(size)
}

// Release 归还缓冲并计数
func (c *CountingAllocator) Release(buf *buffer.Buffer) error {
	c.released.Add(1)
	return c.inner.Release(buf)
}

// Close 关闭底层分配器
func (c *CountingAllocator) Close() error {
	return c.inner.Close()
}

// Acquired 返回累计分配次数
func (c *CountingAllocator) Acquired() int64 {
	return c.acquired.Load()
}

// BytesAcquired 返回累计请求的字节数
func (c *CountingAllocator) BytesAcquired() int64 {
	return c.bytes.Load()
}

// Released 返回经由 Release 方法归还的次数
//
// 直接调用 Buffer.Release 的归还不计入。
func (c *CountingAllocator) Released() int64 {
	return c.released.Load()
}

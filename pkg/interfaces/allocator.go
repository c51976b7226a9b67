// Package interfaces 定义 Runnel 公共接口
//
// 本文件定义缓冲分配器接口。
package interfaces

import (
	"github.com/runnel/go-runnel/pkg/lib/buffer"
)

// Allocator 定义缓冲分配器接口
//
// 分配出的 Buffer 引用计数为 1，归还通过 Buffer.Release（或 Release
// 便捷方法）完成。实现决定底层存储策略（堆分配或池化复用）。
type Allocator interface {
	// Acquire 分配一个至少可容纳 size 字节的缓冲
	//
	// 返回缓冲的 Len() 恰为 size，底层容量可能更大（池化按档位取整）。
	// size <= 0 时返回空缓冲。
	Acquire(size int) *buffer.Buffer

	// Release 归还缓冲（等价于 buf.Release()）
	Release(buf *buffer.Buffer) error

	// Close 关闭分配器并释放池化资源
	//
	// 关闭后 Acquire 退化为堆分配，已发出的缓冲仍可正常 Release。
	Close() error
}

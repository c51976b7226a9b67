// Package buffer 提供引用计数的字节缓冲
//
// Buffer 是 Runnel 数据面的基本载荷单元：一段字节视图加一个原子引用计数。
// 引用计数从 1 开始，Retain 加一，Release 减一；计数归零时字节视图失效，
// 底层存储（若来自池化分配器）被回收。
//
// 所有权规则：
//   - 构造者（分配器或 Wrap/Copy）持有初始引用
//   - 将 Buffer 交给下游（如 DataEvent）即转移该引用
//   - 需要并行保留时先 Retain，用完各自 Release
//
// 重复 Release、释放后 Retain/Bytes 属使用错误：不破坏状态，
// 但会被泄漏检测模式（见 internal/core/buffer）记录并告警。
package buffer

import (
	"sync/atomic"
)

// 全局序号，用于缓冲诊断标识（泄漏记录、日志）
var nextSeq atomic.Uint64

// ViolationKind 引用计数违规类别
type ViolationKind int

const (
	// ViolationDoubleRelease 重复释放
	ViolationDoubleRelease ViolationKind = iota
	// ViolationRetainAfterRelease 释放后重新持有
	ViolationRetainAfterRelease
	// ViolationUseAfterRelease 释放后访问字节
	ViolationUseAfterRelease
)

// String 返回违规类别的字符串表示
func (k ViolationKind) String() string {
	switch k {
	case ViolationDoubleRelease:
		return "double-release"
	case ViolationRetainAfterRelease:
		return "retain-after-release"
	case ViolationUseAfterRelease:
		return "use-after-release"
	default:
		return "unknown"
	}
}

// Tracker 引用计数事件的观察者
//
// 由泄漏检测器实现。nil Tracker 表示不跟踪，所有回调跳过。
// 回调在持有引用计数原子操作之后调用，不得阻塞。
type Tracker interface {
	// OnRetain 在引用计数增加后调用
	OnRetain(b *Buffer)
	// OnRelease 在引用计数减少后调用，remaining 为减少后的计数
	OnRelease(b *Buffer, remaining int32)
	// OnViolation 在检测到引用计数违规时调用
	OnViolation(b *Buffer, kind ViolationKind)
}

// FinalizeFunc 在引用计数归零时调用一次
//
// 池化分配器用它回收底层存储。data 为构造时的完整底层切片。
type FinalizeFunc func(data []byte)

// Buffer 引用计数的字节缓冲
//
// 并发安全：Retain/Release/IsReleased 可在多个 goroutine 并发调用；
// Bytes 返回的切片只在持有引用期间有效。
type Buffer struct {
	seq     uint64
	data    []byte
	refs    atomic.Int32
	final   FinalizeFunc
	tracker Tracker
}

// NewManaged 创建带回收钩子和跟踪器的 Buffer
//
// 供分配器使用：final 在计数归零时回收底层存储，tracker 记录
// 引用计数事件（泄漏检测）。两者均可为 nil。
// 返回的 Buffer 持有初始引用（计数为 1）。
func NewManaged(data []byte, final FinalizeFunc, tracker Tracker) *Buffer {
	b := &Buffer{
		seq:     nextSeq.Add(1),
		data:    data,
		final:   final,
		tracker: tracker,
	}
	b.refs.Store(1)
	return b
}

// Wrap 将已有切片包装为 Buffer
//
// 不复制数据，调用方不得再直接修改 data。
// 返回的 Buffer 持有初始引用（计数为 1），无回收钩子。
func Wrap(data []byte) *Buffer {
	return NewManaged(data, nil, nil)
}

// Copy 复制切片内容并包装为 Buffer
//
// 适用于调用方之后仍要修改原切片的场景。
func Copy(data []byte) *Buffer {
	dup := make([]byte, len(data))
	copy(dup, data)
	return Wrap(dup)
}

// Empty 返回一个空 Buffer（长度为 0，计数为 1）
//
// 每次调用返回新实例，Release 语义与普通 Buffer 一致。
func Empty() *Buffer {
	return Wrap(nil)
}

// Seq 返回缓冲的全局序号，用于日志与泄漏记录定位
func (b *Buffer) Seq() uint64 {
	return b.seq
}

// Len 返回字节长度；已释放时返回 0
func (b *Buffer) Len() int {
	if b.refs.Load() <= 0 {
		return 0
	}
	return len(b.data)
}

// Bytes 返回字节视图
//
// 返回的切片只在持有引用期间有效，不得修改。
// 已释放后调用返回 nil 并记录 use-after-release 违规。
func (b *Buffer) Bytes() []byte {
	if b.refs.Load() <= 0 {
		if b.tracker != nil {
			b.tracker.OnViolation(b, ViolationUseAfterRelease)
		}
		return nil
	}
	return b.data
}

// Retain 增加引用计数并返回自身
//
// 已释放后调用不恢复缓冲：记录 retain-after-release 违规并原样返回。
func (b *Buffer) Retain() *Buffer {
	for {
		cur := b.refs.Load()
		if cur <= 0 {
			if b.tracker != nil {
				b.tracker.OnViolation(b, ViolationRetainAfterRelease)
			}
			return b
		}
		if b.refs.CompareAndSwap(cur, cur+1) {
			if b.tracker != nil {
				b.tracker.OnRetain(b)
			}
			return b
		}
	}
}

// Release 减少引用计数
//
// 计数归零时调用回收钩子并使字节视图失效。
// 对已归零的缓冲重复调用返回 ErrReleased 并记录违规，不破坏状态。
func (b *Buffer) Release() error {
	for {
		cur := b.refs.Load()
		if cur <= 0 {
			if b.tracker != nil {
				b.tracker.OnViolation(b, ViolationDoubleRelease)
			}
			return ErrReleased
		}
		if b.refs.CompareAndSwap(cur, cur-1) {
			remaining := cur - 1
			if b.tracker != nil {
				b.tracker.OnRelease(b, remaining)
			}
			if remaining == 0 {
				data := b.data
				b.data = nil
				if b.final != nil {
					b.final(data)
				}
			}
			return nil
		}
	}
}

// IsReleased 返回引用计数是否已归零
func (b *Buffer) IsReleased() bool {
	return b.refs.Load() <= 0
}

// RefCount 返回当前引用计数（诊断用）
func (b *Buffer) RefCount() int32 {
	return b.refs.Load()
}

package config

import (
	"errors"
	"fmt"
)

// AllocatorKind 缓冲分配器类别
type AllocatorKind string

const (
	// AllocatorPooled 按档位池化底层存储（推荐）
	AllocatorPooled AllocatorKind = "pooled"

	// AllocatorHeap 直接堆分配，交给 GC 回收
	AllocatorHeap AllocatorKind = "heap"
)

// BufferConfig 缓冲分配配置
//
// 配置数据面载荷缓冲的分配策略与泄漏检测：
//   - Pooled: 按档位复用底层存储，高吞吐场景减少 GC 压力
//   - Heap: 每次分配新切片，行为最简单，适合调试
type BufferConfig struct {
	// Kind 分配器类别（pooled/heap）
	Kind AllocatorKind `json:"kind"`

	// PoolClasses 池化档位（字节，严格递增）
	//
	// Acquire 从首个容量足够的档位取存储，超过最大档位退化为堆分配。
	// 仅对 pooled 生效；为空时使用内置档位。
	PoolClasses []int `json:"pool_classes,omitempty"`

	// LeakDetection 启用泄漏检测
	//
	// 登记每个发出的缓冲并检查 acquire/release 配平，
	// 有固定开销，建议仅在调试与测试环境开启。
	LeakDetection bool `json:"leak_detection"`

	// LeakVerbose 泄漏检测详细模式，登记与违规时捕获调用栈
	LeakVerbose bool `json:"leak_verbose"`

	// LeakSampleEvery 泄漏检测采样间隔，每 n 次分配登记一次
	//
	// 1 表示登记全部分配。违规记录不受采样影响。
	LeakSampleEvery int `json:"leak_sample_every"`
}

// DefaultBufferConfig 返回默认缓冲配置
func DefaultBufferConfig() BufferConfig {
	return BufferConfig{
		Kind:            AllocatorPooled, // 默认池化：流场景分配频繁，复用显著减压 GC
		PoolClasses:     nil,             // 使用分配器内置档位（512B ~ 256KB）
		LeakDetection:   false,           // 默认关闭：生产环境避免登记开销
		LeakVerbose:     false,           // 调用栈捕获开销大，仅排障时开启
		LeakSampleEvery: 1,               // 开启检测时默认全量登记
	}
}

// Validate 验证缓冲配置
func (c BufferConfig) Validate() error {
	switch c.Kind {
	case AllocatorPooled, AllocatorHeap, "":
	default:
		return fmt.Errorf("unknown allocator kind: %q", c.Kind)
	}

	// 档位必须为正且严格递增
	prev := 0
	for _, size := range c.PoolClasses {
		if size <= 0 {
			return errors.New("pool class size must be positive")
		}
		if size <= prev {
			return errors.New("pool classes must be strictly increasing")
		}
		prev = size
	}

	if c.LeakSampleEvery < 0 {
		return errors.New("leak sample interval must not be negative")
	}
	return nil
}

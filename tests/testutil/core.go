// Package testutil 提供测试辅助工具
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runnel/go-runnel"
	"github.com/runnel/go-runnel/pkg/interfaces"
)

// TestCoreBuilder 测试核心构建器
//
// 使用 Builder 模式简化测试核心的创建和配置。
//
// 示例:
//
//	core := testutil.NewTestCore(t).
//		WithPreset("debug").
//		WithMaxContentLength(100).
//		Start()
type TestCoreBuilder struct {
	t                *testing.T
	preset           string
	maxContentLength int64
	leakDetection    bool
	metrics          bool
	allocator        interfaces.Allocator
	extra            []runnel.Option
}

// NewTestCore 创建测试核心构建器
//
// 默认配置:
//   - preset: "minimal"
//   - 泄漏检测与指标关闭
func NewTestCore(t *testing.T) *TestCoreBuilder {
	t.Helper()
	return &TestCoreBuilder{
		t:      t,
		preset: runnel.PresetMinimal,
	}
}

// WithPreset 设置预设配置
//
// 可选值: "server", "proxy", "debug", "minimal"
func (b *TestCoreBuilder) WithPreset(preset string) *TestCoreBuilder {
	b.t.Helper()
	b.preset = preset
	return b
}

// WithMaxContentLength 设置聚合内容上限
func (b *TestCoreBuilder) WithMaxContentLength(n int64) *TestCoreBuilder {
	b.t.Helper()
	b.maxContentLength = n
	return b
}

// WithLeakDetection 启用缓冲泄漏检测
func (b *TestCoreBuilder) WithLeakDetection() *TestCoreBuilder {
	b.t.Helper()
	b.leakDetection = true
	return b
}

// WithMetrics 启用指标收集
func (b *TestCoreBuilder) WithMetrics() *TestCoreBuilder {
	b.t.Helper()
	b.metrics = true
	return b
}

// WithAllocator 使用外部分配器
func (b *TestCoreBuilder) WithAllocator(alloc interfaces.Allocator) *TestCoreBuilder {
	b.t.Helper()
	b.allocator = alloc
	return b
}

// WithOptions 追加任意选项
func (b *TestCoreBuilder) WithOptions(opts ...runnel.Option) *TestCoreBuilder {
	b.t.Helper()
	b.extra = append(b.extra, opts...)
	return b
}

// Start 启动核心并注册清理函数
//
// 核心会在测试结束时自动关闭。
func (b *TestCoreBuilder) Start() *runnel.Core {
	b.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	opts := []runnel.Option{
		runnel.WithPreset(b.preset),
	}
	if b.maxContentLength > 0 {
		opts = append(opts, runnel.WithMaxContentLength(b.maxContentLength))
	}
	if b.leakDetection {
		opts = append(opts, runnel.WithLeakDetection(true))
	}
	if b.metrics {
		opts = append(opts, runnel.WithMetrics(true))
	}
	if b.allocator != nil {
		opts = append(opts, runnel.WithAllocator(b.allocator))
	}
	opts = append(opts, b.extra...)

	core, err := runnel.Start(ctx, opts...)
	require.NoError(b.t, err, "启动测试核心失败")
	require.NotNil(b.t, core, "核心不应为 nil")

	b.t.Cleanup(func() {
		if err := core.Close(); err != nil {
			b.t.Logf("关闭核心失败: %v", err)
		}
	})

	return core
}

// Package alloc 实现缓冲分配器
package alloc

import (
	"context"

	"github.com/runnel/go-runnel/config"
	"github.com/runnel/go-runnel/pkg/interfaces"
	"go.uber.org/fx"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Result Fx 模块输出结果
type Result struct {
	fx.Out

	Allocator interfaces.Allocator
	Detector  *LeakDetector
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("alloc",
		fx.Provide(ProvideAllocator),
		fx.Invoke(registerLifecycle),
	)
}

// moduleInput 模块输入参数
type moduleInput struct {
	fx.In

	Config  *config.Config
	Metrics interfaces.Metrics `optional:"true"`
}

// ProvideAllocator 按配置提供分配器（及可选的泄漏检测器）
func ProvideAllocator(in moduleInput) Result {
	cfg := in.Config.Buffer

	var det *LeakDetector
	var opts []Option
	if in.Metrics != nil {
		opts = append(opts, WithRecorder(in.Metrics))
	}
	if cfg.LeakDetection {
		dopts := []DetectorOption{
			WithVerbose(cfg.LeakVerbose),
			WithSampleEvery(cfg.LeakSampleEvery),
		}
		if in.Metrics != nil {
			dopts = append(dopts, WithDetectorRecorder(in.Metrics))
		}
		det = NewLeakDetector(dopts...)
		opts = append(opts, WithDetector(det))
	}

	var allocator interfaces.Allocator
	switch cfg.Kind {
	case config.AllocatorHeap:
		allocator = NewHeap(opts...)
	default:
		if len(cfg.PoolClasses) > 0 {
			opts = append(opts, WithClasses(cfg.PoolClasses))
		}
		allocator = NewPooled(opts...)
	}

	return Result{Allocator: allocator, Detector: det}
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In

	LC        fx.Lifecycle
	Allocator interfaces.Allocator
	Detector  *LeakDetector `optional:"true"`
}

// registerLifecycle 注册生命周期
func registerLifecycle(in lifecycleInput) {
	in.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return nil
		},
		OnStop: func(_ context.Context) error {
			if in.Detector != nil {
				if n := in.Detector.Report(); n > 0 {
					logger.Warn("关闭时仍有缓冲未释放", "count", n)
				}
			}
			return in.Allocator.Close()
		},
	})
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "alloc"
	// Description 模块描述
	Description = "缓冲分配模块，提供堆/池化分配与泄漏检测"
)

package runnel

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/runnel/go-runnel/internal/core/aggregate"
	"github.com/runnel/go-runnel/internal/core/alloc"
	"github.com/runnel/go-runnel/internal/core/encoding"
	"github.com/runnel/go-runnel/internal/core/metrics"
	"github.com/runnel/go-runnel/internal/core/stream"
	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/log"
)

// buildFxApp 构建 Fx 应用
//
// 组装所有内部模块，采用条件加载策略：
//   - 核心模块：必须加载（Alloc, Stream, Aggregate, Encoding）
//   - 条件模块：根据配置加载（Metrics）
//   - 扩展模块：用户自定义 Fx 选项
//
// 加载顺序（按依赖）：
//  1. Metrics（无依赖，被其余模块以可选方式消费）
//  2. Alloc（依赖 Metrics?）
//  3. Stream → Aggregate → Encoding（依赖 Alloc 与 Metrics?）

var fxLogger = log.Logger("runnel/fx")

func buildFxApp(o *options, core *Core) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置转换与验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	cfg, err := o.toInternalConfig()
	if err != nil {
		return nil, fmt.Errorf("build config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	core.cfg = cfg

	modules := []fx.Option{
		// 配置注入
		fx.Supply(cfg),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 指标收集（条件加载）
	// ════════════════════════════════════════════════════════════════════════
	// 禁用时不装配模块，下游组件以 nil Recorder 跳过记录
	if cfg.Metrics.Enabled {
		modules = append(modules, metrics.Module())
		fxLogger.Debug("已加载指标模块", "namespace", cfg.Metrics.Namespace)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 缓冲分配（必须）
	// ════════════════════════════════════════════════════════════════════════
	if o.allocator != nil {
		// 外部分配器：不注册关闭钩子，生命周期由调用方管理
		external := o.allocator
		modules = append(modules, fx.Provide(func() interfaces.Allocator {
			return external
		}))
		fxLogger.Debug("使用外部分配器")
	} else {
		modules = append(modules, alloc.Module())
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. 流引擎、聚合与解码（必须）
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		stream.Module(),    // 需求驱动的消息流
		aggregate.Module(), // 流到完整消息的聚合
		encoding.Module(),  // 内容编码解码
	)

	// ════════════════════════════════════════════════════════════════════════
	// 5. 用户扩展（Fx Options）
	// ════════════════════════════════════════════════════════════════════════
	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 6. Core 组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.Invoke(injectCoreComponents(core)))

	// ════════════════════════════════════════════════════════════════════════
	// 7. Fx 配置
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
		fx.NopLogger,
	)

	app := fx.New(modules...)
	return app, nil
}

// ════════════════════════════════════════════════════════════════════════════
// 组件注入辅助函数
// ════════════════════════════════════════════════════════════════════════════

// coreInjectParams Core 组件注入参数
type coreInjectParams struct {
	fx.In

	// 核心组件（必需）
	Factory    *stream.Factory    // 流工厂
	Aggregator *aggregate.Service // 聚合服务
	Allocator  interfaces.Allocator
	Encoding   *encoding.Service // 解码服务

	// 可选组件
	Detector *alloc.LeakDetector  `optional:"true"` // 泄漏检测器
	Metrics  interfaces.Metrics   `optional:"true"` // 指标服务
	Registry *prometheus.Registry `optional:"true"` // Prometheus 注册表
}

// injectCoreComponents 创建 Core 组件注入函数
//
// 使用统一的注入结构，所有可选组件通过 optional:"true" 标签处理
func injectCoreComponents(core *Core) interface{} {
	return func(params coreInjectParams) {
		// 核心组件
		core.factory = params.Factory
		core.aggregator = params.Aggregator
		core.allocator = params.Allocator
		core.encoding = params.Encoding

		// 可选组件
		core.detector = params.Detector
		core.metrics = params.Metrics
		core.registry = params.Registry
	}
}

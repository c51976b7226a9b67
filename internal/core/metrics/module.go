package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"

	"github.com/runnel/go-runnel/config"
	"github.com/runnel/go-runnel/pkg/interfaces"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Result Fx 模块输出结果
type Result struct {
	fx.Out

	Collector *Collector
	Metrics   interfaces.Metrics
	Registry  *prometheus.Registry
}

// Module 返回 Fx 模块
//
// 是否启用指标由装配方决定：禁用时不装配本模块，下游以
// nil Recorder 跳过记录。
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideCollector),
		fx.Invoke(registerLifecycle),
	)
}

// moduleInput 模块输入参数
type moduleInput struct {
	fx.In

	Config *config.Config
}

// ProvideCollector 按配置提供收集器与注册表
func ProvideCollector(in moduleInput) (Result, error) {
	c := NewCollector(WithNamespace(in.Config.Metrics.Namespace))

	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return Result{}, err
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return Result{}, err
	}
	return Result{Collector: c, Metrics: c, Registry: reg}, nil
}

// registerLifecycle 注册生命周期
func registerLifecycle(lc fx.Lifecycle, c *Collector) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return nil
		},
		OnStop: func(_ context.Context) error {
			s := c.Snapshot()
			logger.Info("关闭时指标汇总",
				"streamsOpened", s.Streams.Opened,
				"streamsCompleted", s.Streams.Completed,
				"streamsCancelled", s.Streams.Cancelled,
				"bytesDelivered", s.Streams.BytesDelivered,
				"aggregations", s.Aggregations.Started,
				"buffersAcquired", s.Buffers.Acquired)
			return nil
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
	Name = "metrics"
	// Description 模块描述
	Description = "指标收集模块，累计计数并导出 Prometheus 指标"
)

// Package aggregate 实现消息聚合
package aggregate

import (
	"go.uber.org/fx"

	"github.com/runnel/go-runnel/config"
	"github.com/runnel/go-runnel/pkg/interfaces"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("aggregate",
		fx.Provide(ProvideService),
	)
}

// moduleInput 模块输入参数
type moduleInput struct {
	fx.In

	Config    *config.Config
	Allocator interfaces.Allocator
	Metrics   interfaces.Metrics `optional:"true"`
}

// ProvideService 按配置提供聚合服务
func ProvideService(in moduleInput) *Service {
	cfg := in.Config.Aggregate

	opts := []Option{}
	if cfg.MaxContentLength > 0 {
		opts = append(opts, WithDefaultMaxContentLength(cfg.MaxContentLength))
	}
	if cfg.ReadAheadWindow > 0 {
		opts = append(opts, WithDefaultWindow(cfg.ReadAheadWindow))
	}
	if !cfg.ContentLengthPrecheck {
		opts = append(opts, WithoutLengthPrecheck())
	}
	if in.Metrics != nil {
		opts = append(opts, WithRecorder(in.Metrics))
	}
	return NewService(in.Allocator, opts...)
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "aggregate"
	// Description 模块描述
	Description = "消息聚合模块，流事件拼装为完整请求/响应"
)

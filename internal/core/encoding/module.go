package encoding

import (
	"context"

	"go.uber.org/fx"

	"github.com/runnel/go-runnel/config"
	"github.com/runnel/go-runnel/internal/core/stream"
	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/types"
)

// ============================================================================
// 解码服务
// ============================================================================

// Service 绑定分配器与默认选项的解码服务
type Service struct {
	alloc interfaces.Allocator
	base  []Option
}

// NewService 创建解码服务，opts 为服务级默认选项
func NewService(alloc interfaces.Allocator, opts ...Option) *Service {
	return &Service{alloc: alloc, base: opts}
}

// DecodingStream 以服务默认选项包装一条流，见 NewDecodingStream
func (s *Service) DecodingStream(ctx context.Context, upstream interfaces.StreamMessage, opts ...Option) (interfaces.StreamMessage, error) {
	merged := make([]Option, 0, len(s.base)+len(opts))
	merged = append(merged, s.base...)
	merged = append(merged, opts...)
	return NewDecodingStream(ctx, upstream, s.alloc, merged...)
}

// DecodeAggregated 以服务分配器解码聚合消息
//
// limit <= 0 时退回服务级 WithMaxDecodedBytes 的值。
func (s *Service) DecodeAggregated(agg types.AggregatedMessage, limit int64) (types.AggregatedMessage, error) {
	if limit <= 0 {
		limit = buildOptions(s.base).maxDecodedBytes
	}
	return DecodeAggregated(agg, s.alloc, limit)
}

// ============================================================================
// Fx 模块
// ============================================================================

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("encoding",
		fx.Provide(ProvideService),
	)
}

// moduleInput 模块输入参数
type moduleInput struct {
	fx.In

	Config    *config.Config
	Allocator interfaces.Allocator
	Factory   *stream.Factory `optional:"true"`
}

// ProvideService 按配置提供解码服务
func ProvideService(in moduleInput) *Service {
	cfg := in.Config.Encoding

	opts := []Option{}
	if cfg.ReadChunkSize > 0 {
		opts = append(opts, WithReadChunkSize(cfg.ReadChunkSize))
	}
	if cfg.MaxDecodedBytes > 0 {
		opts = append(opts, WithMaxDecodedBytes(cfg.MaxDecodedBytes))
	}
	if cfg.Strict {
		opts = append(opts, WithStrict())
	}
	if in.Factory != nil {
		opts = append(opts, WithStreamFactory(in.Factory))
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
	Name = "encoding"
	// Description 模块描述
	Description = "内容解码模块，支持 gzip、deflate、zstd"
)

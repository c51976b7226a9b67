package stream

import (
	"go.uber.org/fx"

	"github.com/runnel/go-runnel/pkg/interfaces"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Factory 流工厂，把指标记录器一次性绑定到所有新建流
type Factory struct {
	recorder interfaces.Recorder
}

// NewFactory 创建流工厂，rec 可为 nil
func NewFactory(rec interfaces.Recorder) *Factory {
	return &Factory{recorder: rec}
}

// NewStream 创建一对消息流与生产侧句柄
func (f *Factory) NewStream() (interfaces.StreamMessage, interfaces.StreamWriter) {
	m, w := New(WithRecorder(f.recorder))
	return m, w
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("stream",
		fx.Provide(ProvideFactory),
	)
}

// moduleInput 模块输入参数
type moduleInput struct {
	fx.In

	Metrics interfaces.Metrics `optional:"true"`
}

// ProvideFactory 提供流工厂
func ProvideFactory(in moduleInput) *Factory {
	var rec interfaces.Recorder
	if in.Metrics != nil {
		rec = in.Metrics
	}
	return NewFactory(rec)
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "stream"
	// Description 模块描述
	Description = "需求驱动的消息流引擎，提供背压、超时与复制"
)

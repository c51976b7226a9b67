package metrics

import (
	"time"
)

// DefaultNamespace 导出指标的默认命名空间
const DefaultNamespace = "runnel"

// options 收集器可选配置
type options struct {
	namespace  string
	rateWindow time.Duration
}

// Option 收集器配置函数
type Option func(*options)

// WithNamespace 设置导出指标的命名空间
func WithNamespace(ns string) Option {
	return func(o *options) {
		if ns != "" {
			o.namespace = ns
		}
	}
}

// WithRateWindow 设置投递速率的滑动窗口宽度
func WithRateWindow(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.rateWindow = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		namespace:  DefaultNamespace,
		rateWindow: DefaultRateWindow,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

package aggregate

import (
	"github.com/runnel/go-runnel/pkg/interfaces"
)

// options 聚合服务可选配置
type options struct {
	recorder         interfaces.Recorder
	maxContentLength int64
	window           int64
	skipPrecheck     bool
}

// Option 聚合服务配置函数
type Option func(*options)

// WithDefaultMaxContentLength 设置服务级内容上限默认值
func WithDefaultMaxContentLength(n int64) Option {
	return func(o *options) {
		o.maxContentLength = n
	}
}

// WithDefaultWindow 设置服务级读取窗口默认值
func WithDefaultWindow(n int64) Option {
	return func(o *options) {
		o.window = n
	}
}

// WithoutLengthPrecheck 默认跳过 content-length 声明值的提前检查
func WithoutLengthPrecheck() Option {
	return func(o *options) {
		o.skipPrecheck = true
	}
}

// WithRecorder 挂接指标记录器
func WithRecorder(rec interfaces.Recorder) Option {
	return func(o *options) {
		o.recorder = rec
	}
}

func buildOptions(opts []Option) options {
	o := options{
		maxContentLength: DefaultMaxContentLength,
		window:           DefaultWindow,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

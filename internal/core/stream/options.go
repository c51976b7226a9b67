package stream

import (
	"github.com/runnel/go-runnel/pkg/interfaces"
)

// options 流引擎可选配置
type options struct {
	id       string
	recorder interfaces.Recorder
}

// Option 流引擎配置函数
type Option func(*options)

// WithID 指定流标识，默认为随机 UUID
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithRecorder 挂接指标记录器
func WithRecorder(rec interfaces.Recorder) Option {
	return func(o *options) {
		o.recorder = rec
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

package encoding

import (
	"github.com/runnel/go-runnel/internal/core/stream"
)

// options 解码可选配置
type options struct {
	chunkSize       int
	maxDecodedBytes int64
	strict          bool
	factory         *stream.Factory
}

// Option 解码配置函数
type Option func(*options)

// WithReadChunkSize 设置解码输出的分块大小
func WithReadChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithMaxDecodedBytes 设置解码输出上限，0 为不限
//
// 压缩比极端的载荷（压缩炸弹）在解码输出越过上限时以
// ContentTooLargeError 终止。
func WithMaxDecodedBytes(n int64) Option {
	return func(o *options) {
		o.maxDecodedBytes = n
	}
}

// WithStrict 不支持的内容编码按失败处理而非透传
func WithStrict() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithStreamFactory 用流工厂创建下游流（携带指标记录器）
func WithStreamFactory(f *stream.Factory) Option {
	return func(o *options) {
		o.factory = f
	}
}

func buildOptions(opts []Option) options {
	o := options{
		chunkSize: DefaultReadChunkSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

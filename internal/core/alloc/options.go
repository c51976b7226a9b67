package alloc

import (
	"github.com/runnel/go-runnel/pkg/interfaces"
)

// 默认池化档位（字节）。覆盖常见的块尺寸，超过最大档位时退化为堆分配。
var defaultClasses = []int{512, 4096, 16384, 65536, 262144}

// options 分配器可选配置
type options struct {
	classes  []int
	detector *LeakDetector
	recorder interfaces.Recorder
}

// Option 分配器选项函数类型
type Option func(*options)

// WithClasses 设置池化档位（须严格递增）
//
// 仅对 PooledAllocator 生效。
func WithClasses(classes []int) Option {
	return func(o *options) {
		if len(classes) > 0 {
			o.classes = classes
		}
	}
}

// WithDetector 挂接泄漏检测器
func WithDetector(det *LeakDetector) Option {
	return func(o *options) {
		o.detector = det
	}
}

// WithRecorder 挂接指标记录器
func WithRecorder(rec interfaces.Recorder) Option {
	return func(o *options) {
		o.recorder = rec
	}
}

func buildOptions(opts []Option) options {
	o := options{classes: defaultClasses}
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

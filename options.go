package runnel

import (
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/runnel/go-runnel/config"
	"github.com/runnel/go-runnel/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 完整配置（作为基底，预设与单项覆盖在其上应用）
	config *config.Config

	// 预设名称
	preset string

	// 缓冲配置
	buffer struct {
		kind          config.AllocatorKind
		leakDetection *bool
	}

	// 聚合配置
	aggregate struct {
		maxContentLength *int64
	}

	// 流配置
	stream struct {
		defaultTimeout *time.Duration
		timeoutMode    string
	}

	// 指标配置
	metrics struct {
		enable    *bool
		namespace string
	}

	// 日志配置
	logFile  string
	logLevel string

	// 外部分配器（绕过内置分配模块，生命周期由调用方管理）
	allocator interfaces.Allocator

	// 用户自定义 Fx 选项
	userFxOptions []fx.Option
}

// newOptions 创建默认选项
func newOptions() *options {
	return &options{}
}

// toInternalConfig 转换为内部配置
func (o *options) toInternalConfig() (*config.Config, error) {
	var cfg *config.Config
	if o.config != nil {
		cfg = config.CloneConfig(o.config)
	} else {
		cfg = config.NewConfig()
	}

	// 应用预设
	if o.preset != "" {
		if err := config.ApplyPreset(cfg, o.preset); err != nil {
			return nil, err
		}
	}

	// 覆盖: 缓冲配置
	if o.buffer.kind != "" {
		cfg.Buffer.Kind = o.buffer.kind
	}
	if o.buffer.leakDetection != nil {
		cfg.Buffer.LeakDetection = *o.buffer.leakDetection
	}

	// 覆盖: 聚合配置
	if o.aggregate.maxContentLength != nil {
		cfg.Aggregate.MaxContentLength = *o.aggregate.maxContentLength
	}

	// 覆盖: 流配置
	if o.stream.defaultTimeout != nil {
		cfg.Stream.DefaultTimeout = config.Duration(*o.stream.defaultTimeout)
	}
	if o.stream.timeoutMode != "" {
		cfg.Stream.TimeoutMode = o.stream.timeoutMode
	}

	// 覆盖: 指标配置
	if o.metrics.enable != nil {
		cfg.Metrics.Enabled = *o.metrics.enable
	}
	if o.metrics.namespace != "" {
		cfg.Metrics.Namespace = o.metrics.namespace
	}

	// 覆盖: 日志配置
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	return cfg, nil
}

// ============================================================================
//                              配置选项
// ============================================================================

// WithConfig 使用完整配置
//
// 传入的配置会被克隆，后续的预设与单项选项在克隆上应用。
//
//	cfg := config.NewConfig()
//	cfg.Aggregate.MaxContentLength = 1 << 20
//	core, err := runnel.New(runnel.WithConfig(cfg))
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("配置不能为空")
		}
		o.config = cfg
		return nil
	}
}

// WithPreset 使用预设配置
//
// 预设提供针对不同场景优化的默认配置：
//   - PresetServer: 服务端优化，大池化档位与高吞吐窗口
//   - PresetProxy: 代理转发优化，流式透传与严格超时
//   - PresetDebug: 调试配置，泄漏检测与指标全开
//   - PresetMinimal: 最小配置，仅用于测试
func WithPreset(name string) Option {
	return func(o *options) error {
		if !IsValidPreset(name) {
			return fmt.Errorf("未知预设: %s", name)
		}
		o.preset = name
		return nil
	}
}

// ============================================================================
//                              缓冲选项
// ============================================================================

// WithAllocator 使用外部缓冲分配器
//
// 绕过内置的分配模块，Core 关闭时不会关闭该分配器，
// 其生命周期由调用方管理。
func WithAllocator(alloc interfaces.Allocator) Option {
	return func(o *options) error {
		if alloc == nil {
			return fmt.Errorf("分配器不能为空")
		}
		o.allocator = alloc
		return nil
	}
}

// WithHeapAllocator 使用堆分配器（不池化）
func WithHeapAllocator() Option {
	return func(o *options) error {
		o.buffer.kind = config.AllocatorHeap
		return nil
	}
}

// WithLeakDetection 启用/禁用缓冲泄漏检测
//
// 启用后分配器发出的每个缓冲都会被跟踪，
// 重复释放、释放后使用等违规会被记录。
func WithLeakDetection(enable bool) Option {
	return func(o *options) error {
		o.buffer.leakDetection = &enable
		return nil
	}
}

// ============================================================================
//                              聚合选项
// ============================================================================

// WithMaxContentLength 设置聚合内容的默认字节上限
//
// 单次聚合可通过 AggregateOpt 覆盖此默认值。
func WithMaxContentLength(n int64) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("内容上限必须大于 0")
		}
		o.aggregate.maxContentLength = &n
		return nil
	}
}

// ============================================================================
//                              流选项
// ============================================================================

// WithStreamTimeout 设置流的默认超时参数
//
// 参数:
//   - d: 超时时长
//   - mode: 超时模式（config.TimeoutModeUntilFirst/UntilNext/UntilEOS）
//
// 示例:
//
//	runnel.New(runnel.WithStreamTimeout(10*time.Second, config.TimeoutModeUntilNext))
func WithStreamTimeout(d time.Duration, mode string) Option {
	return func(o *options) error {
		if d <= 0 {
			return fmt.Errorf("超时时长必须大于 0")
		}
		switch mode {
		case config.TimeoutModeUntilFirst, config.TimeoutModeUntilNext, config.TimeoutModeUntilEOS:
		default:
			return fmt.Errorf("未知超时模式: %s", mode)
		}
		o.stream.defaultTimeout = &d
		o.stream.timeoutMode = mode
		return nil
	}
}

// ============================================================================
//                              指标选项
// ============================================================================

// WithMetrics 启用/禁用指标收集
//
// 启用后流引擎、聚合器与分配器的关键事件会被计数，
// 并通过 Prometheus Registry 导出。
func WithMetrics(enable bool) Option {
	return func(o *options) error {
		o.metrics.enable = &enable
		return nil
	}
}

// WithMetricsNamespace 设置 Prometheus 指标命名空间
func WithMetricsNamespace(namespace string) Option {
	return func(o *options) error {
		if namespace == "" {
			return fmt.Errorf("命名空间不能为空")
		}
		o.metrics.namespace = namespace
		return nil
	}
}

// ============================================================================
//                              日志选项
// ============================================================================

// WithLogFile 将日志输出到文件
//
// 文件以追加模式打开，Core 关闭时同步关闭。
func WithLogFile(path string) Option {
	return func(o *options) error {
		if path == "" {
			return fmt.Errorf("日志文件路径不能为空")
		}
		o.logFile = path
		return nil
	}
}

// WithLogLevel 设置日志级别
//
// 可选值: debug、info、warn、error。
func WithLogLevel(level string) Option {
	return func(o *options) error {
		switch level {
		case config.LogLevelDebug, config.LogLevelInfo, config.LogLevelWarn, config.LogLevelError:
		default:
			return fmt.Errorf("未知日志级别: %s", level)
		}
		o.logLevel = level
		return nil
	}
}

// ============================================================================
//                              扩展选项
// ============================================================================

// WithFxOption 注入自定义 Fx 选项
//
// 高级用法：向内部依赖注入容器追加模块或装饰器。
//
//	runnel.New(runnel.WithFxOption(fx.Invoke(myHook)))
func WithFxOption(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}

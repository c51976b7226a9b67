package runnel

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/runnel/go-runnel/config"
	"github.com/runnel/go-runnel/internal/core/aggregate"
	"github.com/runnel/go-runnel/internal/core/alloc"
	"github.com/runnel/go-runnel/internal/core/encoding"
	"github.com/runnel/go-runnel/internal/core/stream"
	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/buffer"
	"github.com/runnel/go-runnel/pkg/lib/log"
	"github.com/runnel/go-runnel/pkg/types"
)

var logger = log.Logger("runnel")

// ════════════════════════════════════════════════════════════════════════════
//                              核心状态
// ════════════════════════════════════════════════════════════════════════════

// CoreState 核心状态
//
// 表示核心在生命周期中的当前阶段。
type CoreState int

const (
	// StateIdle 空闲状态（已创建，未启动）
	StateIdle CoreState = iota

	// StateStarting 启动中（Fx App 启动中）
	StateStarting

	// StateRunning 运行中（正常工作状态）
	StateRunning

	// StateStopping 停止中（正在关闭组件）
	StateStopping

	// StateStopped 已停止（可重新启动）
	StateStopped
)

// String 返回状态的字符串表示
func (s CoreState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// 生命周期超时配置
const (
	// startTimeout 启动超时（Fx App Start）
	startTimeout = 15 * time.Second

	// stopTimeout 停止超时（Fx App Stop）
	stopTimeout = 15 * time.Second
)

// ════════════════════════════════════════════════════════════════════════════
//                              Core 门面
// ════════════════════════════════════════════════════════════════════════════

// Core Runnel 消息核心
//
// Core 是用户与 Runnel 交互的主入口。
// 它是一个门面（Facade），聚合了所有内部组件。
//
// 架构层次：
//   - API Layer: Core (本层，用户直接交互)
//   - Service Layer: Stream, Aggregate, Encoding
//   - Resource Layer: Alloc, Metrics
//
// 使用示例：
//
//	// 创建并启动核心
//	core, err := runnel.Start(ctx,
//	    runnel.WithPreset(runnel.PresetServer),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer core.Close()
//
//	// 生产侧写入一条响应
//	msg, w := core.NewResponseStream()
//	go func() {
//	    headers, _ := httpheader.Of(":status", "200")
//	    w.WriteHeaders(ctx, headers)
//	    w.WriteData(ctx, core.Acquire(1024))
//	    w.Close()
//	}()
//
//	// 消费侧聚合为完整消息
//	resp, err := core.AggregateResponse(ctx, msg)
type Core struct {
	// ────────────────────────────────────────────────────────────────────────
	// 配置和状态
	// ────────────────────────────────────────────────────────────────────────

	// cfg 生效的内部配置（由 buildFxApp 填充）
	cfg *config.Config

	// app Fx 应用
	app *fx.App

	// logFile 日志输出文件（WithLogFile 时打开，Close 时关闭）
	logFile *os.File

	// ────────────────────────────────────────────────────────────────────────
	// 核心组件（由 Fx 注入）
	// ────────────────────────────────────────────────────────────────────────

	// factory 流工厂
	factory *stream.Factory

	// aggregator 聚合服务
	aggregator *aggregate.Service

	// allocator 缓冲分配器
	allocator interfaces.Allocator

	// encoding 解码服务
	encoding *encoding.Service

	// detector 泄漏检测器（未启用时为 nil）
	detector *alloc.LeakDetector

	// metrics 指标服务（未启用时为 nil）
	metrics interfaces.Metrics

	// registry Prometheus 注册表（指标未启用时为 nil）
	registry *prometheus.Registry

	// ────────────────────────────────────────────────────────────────────────
	// 生命周期状态
	// ────────────────────────────────────────────────────────────────────────

	mu      sync.RWMutex
	state   CoreState
	started bool
	closed  bool
}

// 编译时接口检查
var _ interfaces.Core = (*Core)(nil)

// ════════════════════════════════════════════════════════════════════════════
//                              构造函数
// ════════════════════════════════════════════════════════════════════════════

// New 创建新核心
//
// 创建核心但不启动，需要调用 Start() 启动。
// 通过 Option 函数配置核心。
//
// 示例：
//
//	core, err := runnel.New(
//	    runnel.WithPreset(runnel.PresetServer),
//	    runnel.WithMetrics(true),
//	)
func New(opts ...Option) (*Core, error) {
	// 创建选项
	o := newOptions()

	// 应用选项
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	// 创建 Core 实例
	core := &Core{}

	// 构建 Fx 应用（同时填充 core.cfg）
	var err error
	core.app, err = buildFxApp(o, core)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}

	// 日志配置（必须在组件产生日志之前应用）
	if err := core.applyLogSettings(); err != nil {
		return nil, err
	}

	return core, nil
}

// Start 快捷启动函数
//
// 创建核心并立即启动。
// 等价于 New() + Start()。
//
// 示例：
//
//	core, err := runnel.Start(ctx,
//	    runnel.WithPreset(runnel.PresetServer),
//	)
func Start(ctx context.Context, opts ...Option) (*Core, error) {
	core, err := New(opts...)
	if err != nil {
		return nil, err
	}

	if err := core.Start(ctx); err != nil {
		return nil, fmt.Errorf("start core: %w", err)
	}

	return core, nil
}

// applyLogSettings 应用日志配置
func (c *Core) applyLogSettings() error {
	level := logLevelFromConfig(c.cfg.Log.Level)

	if c.cfg.Log.File != "" {
		f, err := os.OpenFile(c.cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		c.logFile = f
		log.SetOutputWithLevel(f, level)
		return nil
	}

	if c.cfg.Log.Level != config.LogLevelInfo {
		log.SetLevel(level)
	}
	return nil
}

// logLevelFromConfig 把配置级别映射到 slog 级别
func logLevelFromConfig(level string) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return log.LevelDebug
	case config.LogLevelWarn:
		return log.LevelWarn
	case config.LogLevelError:
		return log.LevelError
	default:
		return log.LevelInfo
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// Start 启动核心
//
// 启动所有内部组件（Fx OnStart 钩子）。
// 启动失败时核心回到可重试状态。
func (c *Core) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCoreClosed
	}

	if c.started {
		return ErrCoreAlreadyStarted
	}

	c.state = StateStarting
	logger.Info("正在启动核心")

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := c.app.Start(startCtx); err != nil {
		c.state = StateIdle
		logger.Error("核心启动失败", "error", err)
		return fmt.Errorf("start failed: %w", err)
	}

	c.state = StateRunning
	c.started = true
	logger.Info("核心启动成功",
		"allocator", c.cfg.Buffer.Kind,
		"metrics", c.cfg.Metrics.Enabled)
	return nil
}

// Stop 停止核心
//
// 停止所有内部组件，但保留状态。
// 调用 Stop 后可以再次调用 Start 重启核心。
func (c *Core) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCoreClosed
	}

	if !c.started {
		return ErrCoreNotStarted
	}

	c.state = StateStopping
	logger.Info("正在停止核心")

	// 停止 Fx 应用（自动按反向顺序调用 OnStop）
	if err := c.app.Stop(ctx); err != nil {
		c.state = StateStopped
		c.started = false
		logger.Error("停止核心失败", "error", err)
		return fmt.Errorf("stop fx app: %w", err)
	}

	c.state = StateStopped
	c.started = false
	logger.Info("核心已停止")
	return nil
}

// Close 关闭核心并释放所有资源
//
// 与 Stop 的区别：
//   - Stop: 可以重新 Start
//   - Close: 完全关闭，不可重新启动
//
// 幂等：重复调用返回 nil。关闭后池化资源已释放，
// 仍在使用的流与缓冲不受影响，新分配退化为堆分配。
func (c *Core) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil // 已经关闭
	}

	logger.Info("正在关闭核心")

	var errs error
	if c.started {
		c.state = StateStopping
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := c.app.Stop(ctx); err != nil {
			logger.Warn("停止 Fx 应用失败", "error", err)
			errs = multierr.Append(errs, err)
		}
		c.started = false
	}

	if c.logFile != nil {
		errs = multierr.Append(errs, c.logFile.Close())
		c.logFile = nil
	}

	c.state = StateStopped
	c.closed = true
	logger.Info("核心已关闭")
	return errs
}

// State 返回核心的当前状态
func (c *Core) State() CoreState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsRunning 返回核心是否处于运行状态
func (c *Core) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateRunning
}

// Config 返回生效的内部配置
//
// 返回副本，修改不影响运行中的核心。
func (c *Core) Config() *config.Config {
	return config.CloneConfig(c.cfg)
}

// ════════════════════════════════════════════════════════════════════════════
//                              流创建
// ════════════════════════════════════════════════════════════════════════════

// NewStream 创建一条新的消息流
//
// 返回消费侧句柄与生产侧写入器，两者指向同一条流。
// 流的生命周期独立于核心：Close 之后已创建的流仍可正常工作。
func (c *Core) NewStream() (interfaces.StreamMessage, interfaces.StreamWriter) {
	return c.factory.NewStream()
}

// NewRequestStream 创建一条承载请求的消息流
//
// 与 NewStream 等价；请求/响应的区分由写入的首个头块决定
// （请求头块携带 :method 与 :path 伪头）。
func (c *Core) NewRequestStream() (interfaces.StreamMessage, interfaces.StreamWriter) {
	return c.factory.NewStream()
}

// NewResponseStream 创建一条承载响应的消息流
//
// 与 NewStream 等价；响应头块携带 :status 伪头。
func (c *Core) NewResponseStream() (interfaces.StreamMessage, interfaces.StreamWriter) {
	return c.factory.NewStream()
}

// ════════════════════════════════════════════════════════════════════════════
//                              聚合
// ════════════════════════════════════════════════════════════════════════════

// Aggregator 返回聚合服务
func (c *Core) Aggregator() interfaces.Aggregator {
	return c.aggregator
}

// Aggregate 启动一次聚合，立即返回 Future
func (c *Core) Aggregate(ctx context.Context, msg interfaces.StreamMessage, opts ...interfaces.AggregateOpt) interfaces.AggregateFuture {
	return c.aggregator.Aggregate(ctx, msg, opts...)
}

// AggregateRequest 聚合一条请求流并阻塞等待结果
func (c *Core) AggregateRequest(ctx context.Context, msg interfaces.StreamMessage, opts ...interfaces.AggregateOpt) (*types.AggregatedRequest, error) {
	return c.aggregator.AggregateRequest(ctx, msg, opts...)
}

// AggregateResponse 聚合一条响应流并阻塞等待结果
func (c *Core) AggregateResponse(ctx context.Context, msg interfaces.StreamMessage, opts ...interfaces.AggregateOpt) (*types.AggregatedResponse, error) {
	return c.aggregator.AggregateResponse(ctx, msg, opts...)
}

// ════════════════════════════════════════════════════════════════════════════
//                              流装饰
// ════════════════════════════════════════════════════════════════════════════

// TimeoutMode 流超时模式
type TimeoutMode = stream.TimeoutMode

// 超时模式常量
const (
	// TimeoutUntilFirst 只约束首个事件的到达
	TimeoutUntilFirst = stream.TimeoutUntilFirst

	// TimeoutUntilNext 每个事件到达后重新计时
	TimeoutUntilNext = stream.TimeoutUntilNext

	// TimeoutUntilEOS 约束整条流在时限内终止
	TimeoutUntilEOS = stream.TimeoutUntilEOS
)

// WithTimeout 为流加上事件超时约束
//
// 超时触发时下游收到携带 ErrStreamTimeout 的 ErrorEvent，
// 上游订阅被取消。
func (c *Core) WithTimeout(msg interfaces.StreamMessage, d time.Duration, mode TimeoutMode) interfaces.StreamMessage {
	return stream.WithTimeout(msg, d, mode)
}

// WithDefaultTimeout 按配置的默认超时参数装饰流
//
// 配置的 DefaultTimeout 为 0 时原样返回。
func (c *Core) WithDefaultTimeout(msg interfaces.StreamMessage) interfaces.StreamMessage {
	d := c.cfg.Stream.DefaultTimeout.Duration()
	if d <= 0 {
		return msg
	}
	return stream.WithTimeout(msg, d, timeoutModeFromConfig(c.cfg.Stream.TimeoutMode))
}

// timeoutModeFromConfig 把配置字符串映射到超时模式
func timeoutModeFromConfig(mode string) TimeoutMode {
	switch mode {
	case config.TimeoutModeUntilFirst:
		return TimeoutUntilFirst
	case config.TimeoutModeUntilEOS:
		return TimeoutUntilEOS
	default:
		return TimeoutUntilNext
	}
}

// Duplicator 流复制器，把一条流扇出为多条等价流
type Duplicator = stream.Duplicator

// NewDuplicator 创建流复制器
//
// 缓冲上限取配置的 DuplicateBufferLimit。
// 上游流不能已有订阅者。
func (c *Core) NewDuplicator(upstream interfaces.StreamMessage) (*Duplicator, error) {
	return stream.NewDuplicator(upstream,
		stream.WithMaxBufferedBytes(c.cfg.Stream.DuplicateBufferLimit))
}

// DecodingStream 包装一条流，按头块的 content-encoding 透明解码
//
// 支持 gzip、deflate（zlib 与原始位流）与 zstd；
// 未知编码原样透传（严格模式下以 ErrContentEncoding 失败）。
func (c *Core) DecodingStream(ctx context.Context, upstream interfaces.StreamMessage) (interfaces.StreamMessage, error) {
	return c.encoding.DecodingStream(ctx, upstream)
}

// DecodeAggregated 解码聚合消息的内容
//
// limit <= 0 时使用配置的 MaxDecodedBytes。
func (c *Core) DecodeAggregated(agg types.AggregatedMessage, limit int64) (types.AggregatedMessage, error) {
	return c.encoding.DecodeAggregated(agg, limit)
}

// ════════════════════════════════════════════════════════════════════════════
//                              流消费辅助
// ════════════════════════════════════════════════════════════════════════════

// Drain 订阅流并逐个消费事件
//
// 初始需求量取配置的 InitialDemand，每处理完一个事件补充一个需求。
// fn 返回错误时取消订阅并返回该错误；fn 不接管 DataEvent 缓冲的
// 释放，Drain 在 fn 返回后统一释放。
func (c *Core) Drain(ctx context.Context, msg interfaces.StreamMessage, fn func(types.MessageEvent) error) error {
	sub, err := msg.Subscribe(interfaces.WithInitialDemand(c.cfg.Stream.InitialDemand))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			sub.Cancel()
			return ctx.Err()
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			err := fn(ev)
			types.ReleaseEvent(ev)
			if err != nil {
				sub.Cancel()
				return err
			}
			if e, isErr := ev.(types.ErrorEvent); isErr {
				return e.Cause
			}
			sub.Request(1)
		}
	}
}

// Pipe 把一条流的事件原样转发到另一条流的写入器
//
// 终止事件（End/Error）转发后返回；上游 ErrorEvent 的 cause
// 经 Fail 传给下游后以 nil 返回（转发本身成功）。
// 下游写入失败时取消上游订阅并中止下游。
func (c *Core) Pipe(ctx context.Context, from interfaces.StreamMessage, to interfaces.StreamWriter) error {
	sub, err := from.Subscribe(interfaces.WithInitialDemand(c.cfg.Stream.InitialDemand))
	if err != nil {
		return err
	}

	fail := func(cause error) error {
		sub.Cancel()
		_ = to.Fail(cause)
		return cause
	}

	for {
		select {
		case <-ctx.Done():
			return fail(ctx.Err())
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			switch e := ev.(type) {
			case types.HeadersEvent:
				if err := to.WriteHeaders(ctx, e.Headers); err != nil {
					return fail(err)
				}
			case types.DataEvent:
				if err := to.WriteData(ctx, e.Data); err != nil {
					// WriteData 失败时已释放缓冲
					sub.Cancel()
					_ = to.Fail(err)
					return err
				}
			case types.TrailersEvent:
				if err := to.WriteTrailers(ctx, e.Trailers); err != nil {
					return fail(err)
				}
			case types.EndEvent:
				return to.Close()
			case types.ErrorEvent:
				_ = to.Fail(e.Cause)
				return nil
			}
			sub.Request(1)
		}
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              资源访问
// ════════════════════════════════════════════════════════════════════════════

// Allocator 返回缓冲分配器
func (c *Core) Allocator() interfaces.Allocator {
	return c.allocator
}

// Acquire 分配一个至少可容纳 size 字节的缓冲
//
// 等价于 Allocator().Acquire(size)。
func (c *Core) Acquire(size int) *buffer.Buffer {
	return c.allocator.Acquire(size)
}

// Metrics 返回监控指标服务（未启用时为 nil）
func (c *Core) Metrics() interfaces.Metrics {
	return c.metrics
}

// MetricsRegistry 返回 Prometheus 注册表（指标未启用时为 nil）
//
// 用于挂接 promhttp.HandlerFor 等导出端点。
func (c *Core) MetricsRegistry() *prometheus.Registry {
	return c.registry
}

// LeakRecord 泄漏检测的存活缓冲记录
type LeakRecord = alloc.LeakRecord

// LeakViolation 泄漏检测记录的引用计数违规
type LeakViolation = alloc.Violation

// LiveBuffers 返回泄漏检测器当前跟踪的存活缓冲数
//
// 泄漏检测未启用时恒为 0。
func (c *Core) LiveBuffers() int {
	if c.detector == nil {
		return 0
	}
	return c.detector.LiveCount()
}

// LeakRecords 返回泄漏检测器当前跟踪的存活缓冲记录
//
// 泄漏检测未启用时为 nil。
func (c *Core) LeakRecords() []LeakRecord {
	if c.detector == nil {
		return nil
	}
	return c.detector.Live()
}

// LeakViolations 返回泄漏检测记录的违规列表
//
// 泄漏检测未启用时为 nil。
func (c *Core) LeakViolations() []LeakViolation {
	if c.detector == nil {
		return nil
	}
	return c.detector.Violations()
}

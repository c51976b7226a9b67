package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// FromJSON 从 JSON 数据创建配置
//
// 未出现的字段保留默认值，JSON 格式与 Config 结构体一一对应。
//
// 示例 JSON:
//
//	{
//	  "buffer": {"kind": "pooled", "leak_detection": true},
//	  "aggregate": {"max_content_length": 1048576}
//	}
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// ToJSON 把配置序列化为缩进 JSON
func ToJSON(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	return json.MarshalIndent(cfg, "", "  ")
}

// ApplyPreset 应用预设配置
//
// Preset 提供了针对不同场景优化的配置组合。
// 该函数将预设应用到配置上。
//
// 支持的预设：
//   - "server": 服务端优化
//   - "proxy": 代理转发优化
//   - "debug": 调试与测试
//   - "minimal": 最小配置
func ApplyPreset(cfg *Config, presetName string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	switch presetName {
	case "server":
		return applyServerPreset(cfg)
	case "proxy":
		return applyProxyPreset(cfg)
	case "debug":
		return applyDebugPreset(cfg)
	case "minimal":
		return applyMinimalPreset(cfg)
	case "":
		// 空预设，不做任何操作
		return nil
	default:
		return fmt.Errorf("unknown preset: %s", presetName)
	}
}

// applyServerPreset 应用服务端预设
//
// 服务端配置优化：
//   - 大池化档位，应对高并发分配
//   - 较大的聚合上限与需求窗口
//   - 泄漏检测关闭
func applyServerPreset(cfg *Config) error {
	// 缓冲：池化 + 大档位，覆盖大响应体
	cfg.Buffer.Kind = AllocatorPooled
	cfg.Buffer.PoolClasses = []int{1 << 10, 8 << 10, 64 << 10, 256 << 10, 1 << 20}
	cfg.Buffer.LeakDetection = false

	// 流：大窗口提升吞吐
	cfg.Stream.InitialDemand = 16
	cfg.Stream.DuplicateBufferLimit = 16 << 20

	// 聚合：服务端消息普遍更大
	cfg.Aggregate.MaxContentLength = 32 << 20
	cfg.Aggregate.ReadAheadWindow = 8

	// 解码：相应放宽
	cfg.Encoding.MaxDecodedBytes = 256 << 20

	return nil
}

// applyProxyPreset 应用代理预设
//
// 代理转发配置优化：
//   - 以流式透传为主，聚合上限压低
//   - 严格超时，避免悬挂上游
//   - 小需求窗口，端到端背压
func applyProxyPreset(cfg *Config) error {
	// 流：小窗口，让下游慢速直接传导到上游
	cfg.Stream.InitialDemand = 2
	cfg.Stream.DefaultTimeout = Duration(10 * time.Second)
	cfg.Stream.TimeoutMode = TimeoutModeUntilNext
	cfg.Stream.DuplicateBufferLimit = 1 << 20

	// 聚合：代理不应整体缓冲大消息
	cfg.Aggregate.MaxContentLength = 1 << 20
	cfg.Aggregate.ReadAheadWindow = 2

	// 解码：代理透传原始编码
	cfg.Encoding.Strict = false

	return nil
}

// applyDebugPreset 应用调试预设
//
// 调试配置优化：
//   - 堆分配 + 全量泄漏检测（含调用栈）
//   - 指标开启
//   - debug 级日志
func applyDebugPreset(cfg *Config) error {
	// 缓冲：堆分配行为最直观，泄漏检测全开
	cfg.Buffer.Kind = AllocatorHeap
	cfg.Buffer.LeakDetection = true
	cfg.Buffer.LeakVerbose = true
	cfg.Buffer.LeakSampleEvery = 1

	// 指标：开启便于断言计数
	cfg.Metrics.Enabled = true

	// 日志：全量输出
	cfg.Log.Level = LogLevelDebug

	return nil
}

// applyMinimalPreset 应用最小预设
//
// 最小配置优化：
//   - 堆分配，无池化状态
//   - 小上限、小窗口
//   - 适合测试和嵌入式使用
func applyMinimalPreset(cfg *Config) error {
	cfg.Buffer.Kind = AllocatorHeap
	cfg.Buffer.LeakDetection = false

	cfg.Stream.InitialDemand = 1
	cfg.Stream.DuplicateBufferLimit = 64 << 10

	cfg.Aggregate.MaxContentLength = 256 << 10
	cfg.Aggregate.ReadAheadWindow = 1

	cfg.Encoding.MaxDecodedBytes = 1 << 20

	cfg.Metrics.Enabled = false

	return nil
}

// NewServerConfig 创建服务端预设配置
func NewServerConfig() *Config {
	cfg := NewConfig()
	_ = applyServerPreset(cfg)
	return cfg
}

// NewProxyConfig 创建代理预设配置
func NewProxyConfig() *Config {
	cfg := NewConfig()
	_ = applyProxyPreset(cfg)
	return cfg
}

// NewDebugConfig 创建调试预设配置
func NewDebugConfig() *Config {
	cfg := NewConfig()
	_ = applyDebugPreset(cfg)
	return cfg
}

// NewMinimalConfig 创建最小预设配置
func NewMinimalConfig() *Config {
	cfg := NewConfig()
	_ = applyMinimalPreset(cfg)
	return cfg
}

// CloneConfig 克隆配置
//
// 创建配置的深拷贝，用于安全地修改配置而不影响原始配置。
func CloneConfig(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}

	cloned := *cfg
	if len(cfg.Buffer.PoolClasses) > 0 {
		cloned.Buffer.PoolClasses = make([]int, len(cfg.Buffer.PoolClasses))
		copy(cloned.Buffer.PoolClasses, cfg.Buffer.PoolClasses)
	}
	return &cloned
}

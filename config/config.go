// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 加载和保存配置
//   - 支持预设配置（server/proxy/debug/minimal）
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Buffer.LeakDetection = true
//	cfg.Aggregate.MaxContentLength = 1 << 20
//
//	// 使用预设配置
//	cfg := config.NewServerConfig()
//
//	// 应用预设到现有配置
//	config.ApplyPreset(cfg, "server")
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
package config

// Config 是 Runnel 的完整配置结构
//
// 该结构体嵌入了所有组件的子配置，提供统一的配置接口。
// 配置按照功能模块组织：
//   - Buffer: 缓冲分配与泄漏检测
//   - Stream: 消息流引擎默认参数
//   - Aggregate: 消息聚合
//   - Encoding: 内容解码
//   - Metrics: 指标收集
//   - Log: 日志输出
type Config struct {
	// Buffer 缓冲分配配置
	Buffer BufferConfig `json:"buffer"`

	// Stream 消息流配置
	Stream StreamConfig `json:"stream"`

	// Aggregate 聚合配置
	Aggregate AggregateConfig `json:"aggregate"`

	// Encoding 内容解码配置
	Encoding EncodingConfig `json:"encoding"`

	// Metrics 指标收集配置
	Metrics MetricsConfig `json:"metrics"`

	// Log 日志配置
	Log LogConfig `json:"log"`
}

// NewConfig 创建默认配置
//
// 返回的配置使用所有组件的默认值，适用于大多数场景。
// 可以通过修改字段或使用预设来定制配置。
func NewConfig() *Config {
	return &Config{
		Buffer:    DefaultBufferConfig(),
		Stream:    DefaultStreamConfig(),
		Aggregate: DefaultAggregateConfig(),
		Encoding:  DefaultEncodingConfig(),
		Metrics:   DefaultMetricsConfig(),
		Log:       DefaultLogConfig(),
	}
}

// Validate 验证配置的有效性
//
// 检查所有子配置是否有效，如果发现无效配置则返回错误。
// 建议在使用配置前调用此方法。
func (c *Config) Validate() error {
	if err := c.Buffer.Validate(); err != nil {
		return err
	}
	if err := c.Stream.Validate(); err != nil {
		return err
	}
	if err := c.Aggregate.Validate(); err != nil {
		return err
	}
	if err := c.Encoding.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"time"
)

// StreamConfig 消息流配置
//
// 配置流引擎的默认参数。单条流的行为仍可在订阅/装饰时逐一覆盖，
// 这里的值作为门面层便捷方法的缺省值。
type StreamConfig struct {
	// InitialDemand 管道等便捷消费路径的初始需求量
	//
	// 需求窗口越大吞吐越高、峰值内存越大。
	InitialDemand int64 `json:"initial_demand"`

	// DefaultTimeout 超时装饰的默认时限
	//
	// 仅在调用方附加超时装饰且未显式给出时限时生效；
	// 流引擎本身不内置计时。
	DefaultTimeout Duration `json:"default_timeout"`

	// TimeoutMode 超时计时模式（until_first/until_next/until_eos）
	TimeoutMode string `json:"timeout_mode"`

	// DuplicateBufferLimit 复制器主日志缓存的数据字节上限
	//
	// 复制器为支持迟到订阅会常驻整条流的数据，超限时复制失败。
	// 0 表示不限制。
	DuplicateBufferLimit int `json:"duplicate_buffer_limit"`
}

// 超时模式名称常量
const (
	// TimeoutModeUntilFirst 只约束首个事件的到达
	TimeoutModeUntilFirst = "until_first"

	// TimeoutModeUntilNext 每个事件到达后重新计时
	TimeoutModeUntilNext = "until_next"

	// TimeoutModeUntilEOS 约束整条流在时限内终止
	TimeoutModeUntilEOS = "until_eos"
)

// DefaultStreamConfig 返回默认流配置
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		InitialDemand:        4,                           // 需求窗口：4 个事件，流水线化且封顶内存
		DefaultTimeout:       Duration(30 * time.Second),  // 超时装饰缺省时限：30 秒
		TimeoutMode:          TimeoutModeUntilNext,        // 默认逐事件计时：只约束上游停顿
		DuplicateBufferLimit: 4 << 20,                     // 复制器缓存上限：4 MB
	}
}

// Validate 验证流配置
func (c StreamConfig) Validate() error {
	if c.InitialDemand <= 0 {
		return errors.New("initial demand must be positive")
	}
	if c.DefaultTimeout < 0 {
		return errors.New("default timeout must not be negative")
	}
	switch c.TimeoutMode {
	case TimeoutModeUntilFirst, TimeoutModeUntilNext, TimeoutModeUntilEOS, "":
	default:
		return fmt.Errorf("unknown timeout mode: %q", c.TimeoutMode)
	}
	if c.DuplicateBufferLimit < 0 {
		return errors.New("duplicate buffer limit must not be negative")
	}
	return nil
}

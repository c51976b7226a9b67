package config

import (
	"fmt"
)

// LogConfig 日志配置
//
// 控制默认日志输出。空 File 表示输出到 stderr。
type LogConfig struct {
	// Level 日志级别（debug/info/warn/error）
	Level string `json:"level"`

	// File 日志文件路径，为空时输出到 stderr
	File string `json:"file,omitempty"`
}

// 日志级别名称常量
const (
	// LogLevelDebug 调试级别
	LogLevelDebug = "debug"

	// LogLevelInfo 信息级别
	LogLevelInfo = "info"

	// LogLevelWarn 警告级别
	LogLevelWarn = "warn"

	// LogLevelError 错误级别
	LogLevelError = "error"
)

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level: LogLevelInfo, // 默认 info：debug 日志逐事件输出，仅排障时开启
		File:  "",           // 默认 stderr
	}
}

// Validate 验证日志配置
func (c LogConfig) Validate() error {
	switch c.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, "":
		return nil
	default:
		return fmt.Errorf("unknown log level: %q", c.Level)
	}
}

package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/runnel/go-runnel/config"
)

// ============================================================================
//                              配置加载（CLI 专用）
// ============================================================================

// loadConfigFile 从 JSON 文件加载配置
func loadConfigFile(path string) (*config.Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: 用户指定的配置文件路径是预期行为
	if err != nil {
		return nil, err
	}
	return config.FromJSON(data)
}

// applyEnvOverrides 应用环境变量覆盖配置
//
// 环境变量优先级高于配置文件，但低于命令行参数。
// 支持的环境变量（均使用 RUNNEL_ 前缀）：
//   - RUNNEL_PRESET: 预设名称
//   - RUNNEL_LOG_FILE: 日志文件路径
//   - RUNNEL_LOG_LEVEL: 日志级别
//   - RUNNEL_METRICS: 启用指标收集
//   - RUNNEL_LEAK_DETECTION: 启用泄漏检测
//   - RUNNEL_MAX_CONTENT_LENGTH: 聚合内容上限（字节）
func applyEnvOverrides(cfg *config.Config, runtime *runtimeConfig) {
	// RUNNEL_PRESET（预设的应用顺序由选项层决定，这里只记录名称）
	if v := os.Getenv(config.EnvPrefix + config.EnvPreset); v != "" {
		runtime.preset = v
	}

	// RUNNEL_LOG_FILE
	if v := os.Getenv(config.EnvPrefix + config.EnvLogFile); v != "" {
		runtime.logFile = v
	}

	// RUNNEL_LOG_LEVEL
	if v := os.Getenv(config.EnvPrefix + config.EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}

	// RUNNEL_METRICS
	if v := os.Getenv(config.EnvPrefix + config.EnvMetrics); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}

	// RUNNEL_LEAK_DETECTION
	if v := os.Getenv(config.EnvPrefix + config.EnvLeakDetection); v != "" {
		cfg.Buffer.LeakDetection = parseBool(v)
	}

	// RUNNEL_MAX_CONTENT_LENGTH
	if v := os.Getenv(config.EnvPrefix + config.EnvMaxContentLength); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Aggregate.MaxContentLength = n
		}
	}
}

// ============================================================================
//                              辅助函数
// ============================================================================

// parseBool 解析布尔值字符串
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

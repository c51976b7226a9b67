package config

// ============================================================================
//                              环境变量（供 CLI 使用）
// ============================================================================

// 环境变量前缀和名称常量（供 cmd 层使用）
const (
	// EnvPrefix 环境变量前缀
	EnvPrefix = "RUNNEL_"

	// EnvPreset 预设名称
	EnvPreset = "PRESET"

	// EnvLogFile 日志文件路径
	EnvLogFile = "LOG_FILE"

	// EnvLogLevel 日志级别
	EnvLogLevel = "LOG_LEVEL"

	// EnvMetrics 启用指标收集
	EnvMetrics = "METRICS"

	// EnvLeakDetection 启用缓冲泄漏检测
	EnvLeakDetection = "LEAK_DETECTION"

	// EnvMaxContentLength 聚合内容上限（字节）
	EnvMaxContentLength = "MAX_CONTENT_LENGTH"
)

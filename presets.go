package runnel

import (
	"github.com/runnel/go-runnel/config"
)

// ════════════════════════════════════════════════════════════════════════════
//                              预设配置常量
// ════════════════════════════════════════════════════════════════════════════

// 预设名称常量
const (
	// PresetServer 服务端预设名称
	PresetServer = "server"

	// PresetProxy 代理预设名称
	PresetProxy = "proxy"

	// PresetDebug 调试预设名称
	PresetDebug = "debug"

	// PresetMinimal 最小预设名称
	PresetMinimal = "minimal"
)

// ════════════════════════════════════════════════════════════════════════════
//                              预设配置获取
// ════════════════════════════════════════════════════════════════════════════

// GetServerConfig 获取服务端配置
//
// 适用场景：消息吞吐为主的服务端
// 特点：
//   - 大池化档位，覆盖大响应体
//   - 高初始需求量与宽聚合窗口
//   - 泄漏检测关闭
//
// 示例：
//
//	cfg := runnel.GetServerConfig()
func GetServerConfig() *config.Config {
	return config.NewServerConfig()
}

// GetProxyConfig 获取代理配置
//
// 适用场景：流式透传、背压端到端传导
// 特点：
//   - 小需求窗口，下游慢速直接传导到上游
//   - 压低的聚合上限，避免整体缓冲大消息
//   - 严格的事件间超时
//
// 示例：
//
//	cfg := runnel.GetProxyConfig()
func GetProxyConfig() *config.Config {
	return config.NewProxyConfig()
}

// GetDebugConfig 获取调试配置
//
// 适用场景：排查缓冲泄漏与引用计数违规
// 特点：
//   - 堆分配 + 全量泄漏检测（含调用栈）
//   - 指标开启
//   - debug 级日志
//
// 示例：
//
//	cfg := runnel.GetDebugConfig()
func GetDebugConfig() *config.Config {
	return config.NewDebugConfig()
}

// GetMinimalConfig 获取最小配置
//
// 适用场景：测试环境、最小化嵌入
// 特点：
//   - 堆分配，无池化状态
//   - 小上限、小窗口
//
// 示例：
//
//	cfg := runnel.GetMinimalConfig()
func GetMinimalConfig() *config.Config {
	return config.NewMinimalConfig()
}

// GetConfigByPreset 根据预设名称获取配置
//
// 支持的预设名称：
//   - "server"  - 服务端配置
//   - "proxy"   - 代理配置
//   - "debug"   - 调试配置
//   - "minimal" - 最小配置
//
// 如果名称未知，返回默认配置。
func GetConfigByPreset(name string) *config.Config {
	switch name {
	case PresetServer:
		return GetServerConfig()
	case PresetProxy:
		return GetProxyConfig()
	case PresetDebug:
		return GetDebugConfig()
	case PresetMinimal:
		return GetMinimalConfig()
	default:
		// 默认返回基础配置
		return config.NewConfig()
	}
}

// GetDefaultConfig 获取默认配置
//
// 等同于 config.NewConfig()。
func GetDefaultConfig() *config.Config {
	return config.NewConfig()
}

// ════════════════════════════════════════════════════════════════════════════
//                              预设列表
// ════════════════════════════════════════════════════════════════════════════

// PresetInfo 预设信息
type PresetInfo struct {
	// Name 预设名称
	Name string

	// Description 预设描述
	Description string

	// UseCase 适用场景
	UseCase string
}

// AvailablePresets 返回所有可用预设的信息
//
// 示例：
//
//	for _, preset := range runnel.AvailablePresets() {
//	    fmt.Printf("%s: %s\n", preset.Name, preset.Description)
//	}
func AvailablePresets() []PresetInfo {
	return []PresetInfo{
		{
			Name:        PresetServer,
			Description: "服务端优化配置，大池化档位与高吞吐窗口",
			UseCase:     "消息服务端、高并发转发节点",
		},
		{
			Name:        PresetProxy,
			Description: "代理优化配置，流式透传与端到端背压",
			UseCase:     "代理网关、流量中继",
		},
		{
			Name:        PresetDebug,
			Description: "调试配置，泄漏检测与指标全开",
			UseCase:     "开发调试、缓冲泄漏排查",
		},
		{
			Name:        PresetMinimal,
			Description: "最小配置，最少的资源和功能",
			UseCase:     "测试环境、极度资源受限场景",
		},
	}
}

// IsValidPreset 检查预设名称是否有效
//
// 示例：
//
//	if runnel.IsValidPreset("server") {
//	    cfg := runnel.GetConfigByPreset("server")
//	}
func IsValidPreset(name string) bool {
	switch name {
	case PresetServer, PresetProxy, PresetDebug, PresetMinimal:
		return true
	default:
		return false
	}
}

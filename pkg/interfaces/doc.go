// Package interfaces 定义 Runnel 的公共接口
//
// 本包采用分层架构组织接口定义，采用扁平命名（无层级前缀）：
//
// # API Layer 接口
//
// 核心门面：
//   - core.go           - Core 门面接口（用户入口）
//
// # Core Layer 接口
//
// 消息核心能力（一个接口文件 = 一个实现目录）：
//   - stream.go         - 消息流（StreamMessage/Subscription/StreamWriter）
//   - allocator.go      - 缓冲分配器
//   - aggregator.go     - 消息聚合器
//   - metrics.go        - 指标接口
//
// # 依赖方向
//
//	API → Core
//
// 禁止反向依赖。
//
// # 设计原则
//
// 本包仅包含纯接口定义，数据结构定义在 pkg/types 包中，
// 基础工具库（缓冲、头块、媒体类型）在 pkg/lib 下。
//
// 采用扁平命名结构：
//   - 简化导入：一次性导入所有接口
//   - 避免循环依赖：清晰的依赖关系
//   - 降低包层级：提高可维护性
package interfaces

// Package types 定义 Runnel 的公共数据结构
//
// 这是架构核心的最底层包，除 pkg/lib 基础工具库外不依赖任何内部包。
// 所有类型都是纯值类型或不可变结构，用于在各模块间传递数据。
//
// # 职能
//
// pkg/types 的职能是定义 **Go 内部数据结构**：
//   - 流事件（消息在流上传播的五种载荷）
//   - 聚合消息（请求/响应的完整拼装形态）
//   - 流状态与完成信息
//   - 公共错误定义
//
// # 文件组织
//
// 事件与状态:
//   - events.go     - MessageEvent 及五种变体（Headers/Data/Trailers/End/Error）
//   - enums.go      - StreamState, EventKind
//   - completion.go - Completion 终态信息
//
// 聚合消息:
//   - aggregated.go - AggregatedRequest, AggregatedResponse 及其 Builder
//
// 错误:
//   - errors.go     - 公共错误定义（含 ContentTooLargeError）
//
// # 设计原则
//
//  1. 不可变性：事件与聚合消息构建后不可修改（缓冲内容除外，受引用计数管理）
//  2. 封闭事件集：MessageEvent 通过非导出方法封闭，变体仅限包内五种
//  3. 所有权显式：携带缓冲的类型（DataEvent、聚合消息）明确标注引用转移
//
// # 使用示例
//
//	import "github.com/runnel/go-runnel/pkg/types"
//
//	// 构建聚合请求
//	req, err := types.NewRequestBuilder().
//	    Method("POST").
//	    Path("/items").
//	    ContentString("text/plain", "hello").
//	    Build()
//
//	// 消费流事件
//	switch ev := ev.(type) {
//	case types.HeadersEvent:
//	    _ = ev.Headers
//	case types.DataEvent:
//	    defer ev.Data.Release()
//	}
package types

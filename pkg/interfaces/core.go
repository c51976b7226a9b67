// Package interfaces 定义 Runnel 公共接口
//
// 本文件定义 Core 接口，是 Runnel 的顶层 API 入口。
package interfaces

import (
	"context"
)

// Core 定义 Runnel 核心的顶层接口
//
// Core 是用户与 Runnel 交互的主要入口点，聚合消息流的创建、
// 聚合服务、缓冲分配与指标读取。
type Core interface {
	// NewStream 创建一条新的消息流
	//
	// 返回消费侧句柄与生产侧写入器，两者指向同一条流。
	NewStream() (StreamMessage, StreamWriter)

	// Aggregator 返回聚合服务
	Aggregator() Aggregator

	// Allocator 返回缓冲分配器
	Allocator() Allocator

	// Metrics 返回监控指标服务（未启用时为 nil）
	Metrics() Metrics

	// Start 启动核心
	Start(ctx context.Context) error

	// Stop 停止核心
	Stop(ctx context.Context) error

	// Close 关闭核心并释放资源
	Close() error
}

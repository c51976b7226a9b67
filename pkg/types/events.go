// Package types 定义 Runnel 公共类型
//
// 本文件定义流事件类型。
package types

import (
	"github.com/runnel/go-runnel/pkg/lib/buffer"
	"github.com/runnel/go-runnel/pkg/lib/httpheader"
)

// ============================================================================
//                              MessageEvent - 流事件
// ============================================================================

// MessageEvent 消息在流上传播的事件
//
// 封闭类型集：仅有 HeadersEvent、DataEvent、TrailersEvent、EndEvent、
// ErrorEvent 五种变体，消费侧用类型 switch 分发：
//
//	switch ev := ev.(type) {
//	case types.HeadersEvent:
//	case types.DataEvent:
//	case types.TrailersEvent:
//	case types.EndEvent:
//	case types.ErrorEvent:
//	}
//
// 合法事件序列文法：
//
//	Headers → Data* → Trailers? → (End | Error)
//
// 其中 Error 允许在任意位置出现（含 Headers 之前，对应头块到达前的
// 传输失败）；End 只能出现在 Headers 之后。
type MessageEvent interface {
	// Kind 返回事件类别
	Kind() EventKind
	// isMessageEvent 封闭类型集，变体仅限本包定义
	isMessageEvent()
}

// HeadersEvent 头块事件（每流恰好一次，位于数据之前）
type HeadersEvent struct {
	Headers *httpheader.Block
}

// Kind 返回 KindHeaders
func (HeadersEvent) Kind() EventKind { return KindHeaders }

func (HeadersEvent) isMessageEvent() {}

// DataEvent 数据块事件
//
// Data 的引用随事件转移：消费者处理完毕后负责 Release；
// 未投递即被取消/中止的事件由流负责释放。
type DataEvent struct {
	Data *buffer.Buffer
}

// Kind 返回 KindData
func (DataEvent) Kind() EventKind { return KindData }

func (DataEvent) isMessageEvent() {}

// TrailersEvent 尾部头块事件（每流至多一次，位于数据之后）
type TrailersEvent struct {
	Trailers *httpheader.Block
}

// Kind 返回 KindTrailers
func (TrailersEvent) Kind() EventKind { return KindTrailers }

func (TrailersEvent) isMessageEvent() {}

// EndEvent 正常终止事件
type EndEvent struct{}

// Kind 返回 KindEnd
func (EndEvent) Kind() EventKind { return KindEnd }

func (EndEvent) isMessageEvent() {}

// ErrorEvent 异常终止事件，Cause 原样传递生产侧错误
type ErrorEvent struct {
	Cause error
}

// Kind 返回 KindError
func (ErrorEvent) Kind() EventKind { return KindError }

func (ErrorEvent) isMessageEvent() {}

// ============================================================================
//                              事件辅助函数
// ============================================================================

// EventSize 返回事件携带的载荷字节数（仅 DataEvent 非零）
func EventSize(ev MessageEvent) int {
	if d, ok := ev.(DataEvent); ok && d.Data != nil {
		return d.Data.Len()
	}
	return 0
}

// ReleaseEvent 释放事件携带的缓冲（非 DataEvent 为空操作）
//
// 供未能投递事件的一方（取消、中止、覆盖）统一回收使用。
func ReleaseEvent(ev MessageEvent) {
	if d, ok := ev.(DataEvent); ok && d.Data != nil {
		_ = d.Data.Release()
	}
}

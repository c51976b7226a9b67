// Package types 定义 Runnel 的基础类型
//
// 本文件定义所有公共错误类型。
package types

import (
	"errors"
	"fmt"
)

// ============================================================================
//                              订阅相关错误
// ============================================================================

var (
	// ErrAlreadySubscribed 流已有订阅者（单订阅者约束）
	ErrAlreadySubscribed = errors.New("stream already subscribed")

	// ErrCancelled 订阅已取消
	ErrCancelled = errors.New("subscription cancelled")

	// ErrAborted 流被持有方中止
	ErrAborted = errors.New("stream aborted")
)

// ============================================================================
//                              生产侧错误
// ============================================================================

var (
	// ErrStreamClosed 向已终止的流写入
	ErrStreamClosed = errors.New("stream closed")

	// ErrNoDemand 写入超出订阅者已声明的需求量
	ErrNoDemand = errors.New("no outstanding demand")

	// ErrBadEventOrder 事件顺序违反 Headers→Data→Trailers→终止 的文法
	ErrBadEventOrder = errors.New("event violates stream grammar")
)

// ============================================================================
//                              聚合相关错误
// ============================================================================

var (
	// ErrContentTooLarge 内容长度超过聚合上限
	ErrContentTooLarge = errors.New("content exceeds max length")

	// ErrAggregationAborted 聚合因上下文取消而中止
	ErrAggregationAborted = errors.New("aggregation aborted")

	// ErrNotDone 聚合尚未完成（Result 在 Done 之前被调用）
	ErrNotDone = errors.New("aggregation not done")
)

// ContentTooLargeError 携带上限与实际长度的超限错误
//
// 通过 errors.Is 可匹配 ErrContentTooLarge。
// Actual 为判定超限时已统计的字节数：按声明长度提前失败时为
// content-length 的值，按块累计失败时为已接收字节数。
type ContentTooLargeError struct {
	Limit  int64
	Actual int64
}

// Error 实现 error 接口
func (e *ContentTooLargeError) Error() string {
	return fmt.Sprintf("content exceeds max length: %d > %d", e.Actual, e.Limit)
}

// Unwrap 返回 ErrContentTooLarge 以支持 errors.Is 匹配
func (e *ContentTooLargeError) Unwrap() error {
	return ErrContentTooLarge
}

// ============================================================================
//                              超时相关错误
// ============================================================================

var (
	// ErrStreamTimeout 流事件超时（超时装饰器触发）
	ErrStreamTimeout = errors.New("stream timeout")
)

// ============================================================================
//                              编码相关错误
// ============================================================================

var (
	// ErrContentEncoding 内容编码不受支持或解码失败
	ErrContentEncoding = errors.New("content encoding error")
)

// ============================================================================
//                              复制相关错误
// ============================================================================

var (
	// ErrDuplicatorClosed 复制器已关闭，无法派生新流
	ErrDuplicatorClosed = errors.New("duplicator closed")

	// ErrDuplicatorOverflow 复制器缓存超过上限
	ErrDuplicatorOverflow = errors.New("duplicator buffer overflow")
)

// ============================================================================
//                              通用错误
// ============================================================================

var (
	// ErrAllocatorClosed 分配器已关闭
	ErrAllocatorClosed = errors.New("allocator closed")

	// ErrInvalidArgument 参数无效
	ErrInvalidArgument = errors.New("invalid argument")
)

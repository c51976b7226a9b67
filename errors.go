package runnel

import (
	"errors"

	"github.com/runnel/go-runnel/pkg/types"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 核心生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrCoreNotStarted 核心未启动
	ErrCoreNotStarted = errors.New("core not started")

	// ErrCoreAlreadyStarted 核心已启动
	ErrCoreAlreadyStarted = errors.New("core already started")

	// ErrCoreClosed 核心已关闭
	ErrCoreClosed = errors.New("core closed")
)

// 流与聚合错误（转发自 pkg/types，便于调用方统一从根包取用）
var (
	// ErrAlreadySubscribed 流已有活跃订阅者
	ErrAlreadySubscribed = types.ErrAlreadySubscribed

	// ErrCancelled 订阅已取消
	ErrCancelled = types.ErrCancelled

	// ErrAborted 流被强制中止
	ErrAborted = types.ErrAborted

	// ErrStreamClosed 流已终止，不再接受写入
	ErrStreamClosed = types.ErrStreamClosed

	// ErrNoDemand 需求量不足，事件被拒绝
	ErrNoDemand = types.ErrNoDemand

	// ErrBadEventOrder 事件违反文法顺序
	ErrBadEventOrder = types.ErrBadEventOrder

	// ErrContentTooLarge 聚合内容超过上限
	ErrContentTooLarge = types.ErrContentTooLarge

	// ErrNotDone 聚合尚未完成
	ErrNotDone = types.ErrNotDone

	// ErrStreamTimeout 流事件等待超时
	ErrStreamTimeout = types.ErrStreamTimeout

	// ErrContentEncoding 内容编码无法解码
	ErrContentEncoding = types.ErrContentEncoding
)

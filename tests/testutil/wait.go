package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/types"
)

// WaitForCondition 等待条件满足或超时
//
// 参数：
//   - t: 测试对象
//   - timeout: 超时时间
//   - interval: 检查间隔
//   - condition: 条件函数，返回 true 表示条件满足
//
// 返回：条件是否满足（超时返回 false）
func WaitForCondition(t *testing.T, timeout time.Duration, interval time.Duration, condition func() bool) bool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// 立即检查一次
	if condition() {
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if condition() {
				return true
			}
		}
	}
}

// Eventually 在指定时间内重试条件检查，失败则 fail 测试
//
// 使用默认间隔 10ms。
//
// 示例:
//
//	testutil.Eventually(t, time.Second, func() bool {
//	    return detector.LiveCount() == 0
//	}, "所有缓冲应已释放")
func Eventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	if !WaitForCondition(t, timeout, 10*time.Millisecond, condition) {
		t.Fatalf("等待超时: %s", msg)
	}
}

// WaitCompletion 等待流终止并返回终态信息，超时则 fail 测试
//
// 示例:
//
//	completion := testutil.WaitCompletion(t, msg, time.Second)
//	assert.True(t, completion.OK())
func WaitCompletion(t *testing.T, msg interfaces.StreamMessage, timeout time.Duration) types.Completion {
	t.Helper()

	select {
	case completion := <-msg.WhenComplete():
		return completion
	case <-time.After(timeout):
		t.Fatalf("等待流终止超时: %s", msg.ID())
		return types.Completion{}
	}
}

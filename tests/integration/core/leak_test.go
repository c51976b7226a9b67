//go:build integration

package core_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	runnel "github.com/runnel/go-runnel"
	"github.com/runnel/go-runnel/pkg/lib/buffer"
	"github.com/runnel/go-runnel/tests/testutil"
)

// TestLeak_DoubleReleaseFlagged 测试重复释放被记为违规
func TestLeak_DoubleReleaseFlagged(t *testing.T) {
	core := testutil.NewTestCore(t).WithLeakDetection().Start()

	buf := core.Acquire(512)
	require.Equal(t, 1, core.LiveBuffers(), "分配后应登记一个存活缓冲")

	require.NoError(t, buf.Release())
	require.Equal(t, 0, core.LiveBuffers(), "释放后登记应注销")

	// 第二次释放失败并留下违规记录
	require.Error(t, buf.Release(), "重复释放应报错")

	violations := core.LeakViolations()
	require.Len(t, violations, 1, "应记录一次违规")
	require.Equal(t, buffer.ViolationDoubleRelease, violations[0].Kind)
	require.Equal(t, buf.Seq(), violations[0].Seq, "违规应指向该缓冲")

	t.Log("✅ 重复释放违规测试通过")
}

// TestLeak_UseAfterReleaseFlagged 测试释放后访问被记为违规
func TestLeak_UseAfterReleaseFlagged(t *testing.T) {
	core := testutil.NewTestCore(t).WithLeakDetection().Start()

	buf := core.Acquire(256)
	require.NoError(t, buf.Release())

	// 释放后取字节返回 nil 并留下违规记录
	require.Nil(t, buf.Bytes(), "释放后取字节应返回 nil")

	violations := core.LeakViolations()
	require.Len(t, violations, 1)
	require.Equal(t, buffer.ViolationUseAfterRelease, violations[0].Kind)

	t.Log("✅ 释放后访问违规测试通过")
}

// TestLeak_RetainExtendsLifetime 测试增引用延长缓冲生命期
func TestLeak_RetainExtendsLifetime(t *testing.T) {
	core := testutil.NewTestCore(t).WithLeakDetection().Start()

	buf := core.Acquire(128)
	buf.Retain()
	require.Equal(t, int32(2), buf.RefCount())

	// 第一次释放后引用仍在，登记保留
	require.NoError(t, buf.Release())
	require.Equal(t, 1, core.LiveBuffers(), "引用计数未归零时登记应保留")

	require.NoError(t, buf.Release())
	require.Equal(t, 0, core.LiveBuffers())
	require.Empty(t, core.LeakViolations())

	t.Log("✅ 增引用生命期测试通过")
}

// TestLeak_CleanPipeline 测试完整链路结束后无缓冲存活
//
// 分块写入、复制扇出、两路聚合、结果释放，全程泄漏检测，
// 结束时存活缓冲归零且无违规。
func TestLeak_CleanPipeline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	core := testutil.NewTestCore(t).WithLeakDetection().Start()

	payload := testutil.MakePayload(8 << 10)
	headers, err := runnel.ResponseHeaders(200, "content-type", testutil.DefaultTestMediaType)
	require.NoError(t, err)

	upstream, w := core.NewResponseStream()
	errCh := testutil.ProduceChunks(ctx, core, w, headers,
		testutil.SplitPayload(payload, 2048), nil)

	dup, err := core.NewDuplicator(upstream)
	require.NoError(t, err)

	first, err := dup.Duplicate()
	require.NoError(t, err)
	second, err := dup.Duplicate()
	require.NoError(t, err)

	resp1, err := core.AggregateResponse(ctx, first)
	require.NoError(t, err, "下游 1 聚合失败")
	resp2, err := core.AggregateResponse(ctx, second)
	require.NoError(t, err, "下游 2 聚合失败")

	require.NoError(t, <-errCh, "生产侧写入失败")
	require.True(t, bytes.Equal(payload, resp1.ContentBytes()))
	require.True(t, bytes.Equal(payload, resp2.ContentBytes()))

	// 消费完毕：释放聚合结果并关闭复制器
	require.NoError(t, resp1.Release())
	require.NoError(t, resp2.Release())
	require.NoError(t, dup.Close())

	testutil.Eventually(t, 5*time.Second, func() bool {
		return core.LiveBuffers() == 0
	}, "链路结束后仍有缓冲存活")
	require.Empty(t, core.LeakViolations(), "链路全程不应出现违规")

	t.Log("✅ 链路无泄漏测试通过")
}

// TestLeak_AbandonedBufferVisible 测试未释放缓冲保持可见直到释放
func TestLeak_AbandonedBufferVisible(t *testing.T) {
	core := testutil.NewTestCore(t).WithLeakDetection().Start()

	held := core.Acquire(1024)
	other := core.Acquire(2048)
	require.NoError(t, other.Release())

	require.Equal(t, 1, core.LiveBuffers(), "未释放缓冲应保持登记")

	// 补救释放后登记清空
	require.NoError(t, held.Release())
	require.Equal(t, 0, core.LiveBuffers())

	t.Log("✅ 存活缓冲可见性测试通过")
}

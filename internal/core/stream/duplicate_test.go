package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/buffer"
	"github.com/runnel/go-runnel/pkg/types"
)

// collectEvents 以无界需求订阅并收集全部事件直到通道关闭
func collectEvents(t *testing.T, msg interfaces.StreamMessage) []types.MessageEvent {
	t.Helper()
	sub, err := msg.Subscribe(interfaces.WithUnboundedDemand())
	require.NoError(t, err)

	var evs []types.MessageEvent
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return evs
			}
			evs = append(evs, ev)
		case <-deadline:
			t.Fatal("收集事件超时")
		}
	}
}

func releaseAll(evs []types.MessageEvent) {
	for _, ev := range evs {
		types.ReleaseEvent(ev)
	}
}

func TestDuplicator_FanOut(t *testing.T) {
	up, w := New()
	d, err := NewDuplicator(up)
	require.NoError(t, err)

	c1, err := d.Duplicate()
	require.NoError(t, err)
	c2, err := d.Duplicate()
	require.NoError(t, err)

	ctx := context.Background()
	payload := buffer.Wrap([]byte("shared"))
	require.NoError(t, w.WriteHeaders(ctx, reqHeaders(t)))
	require.NoError(t, w.WriteData(ctx, payload))
	require.NoError(t, w.Close())

	for _, child := range []interfaces.StreamMessage{c1, c2} {
		evs := collectEvents(t, child)
		require.Len(t, evs, 3)
		assert.Equal(t, types.KindHeaders, evs[0].Kind())
		data, ok := evs[1].(types.DataEvent)
		require.True(t, ok)
		assert.Equal(t, []byte("shared"), data.Data.Bytes())
		assert.Equal(t, types.KindEnd, evs[2].Kind())
		releaseAll(evs)
	}

	// 子流各持一份引用且均已释放，主日志仍持有自己的引用
	assert.False(t, payload.IsReleased())
	require.NoError(t, d.Close())
	assert.True(t, payload.IsReleased(), "关闭复制器应释放主日志引用")
}

func TestDuplicator_LateJoin(t *testing.T) {
	up, w := New()
	d, err := NewDuplicator(up)
	require.NoError(t, err)
	defer d.Close()

	ctx := context.Background()
	require.NoError(t, w.WriteHeaders(ctx, reqHeaders(t)))
	require.NoError(t, w.WriteData(ctx, buffer.Wrap([]byte("one"))))
	require.NoError(t, w.WriteData(ctx, buffer.Wrap([]byte("two"))))
	require.NoError(t, w.Close())

	// 等上游完全进入主日志
	require.Eventually(t, func() bool {
		_, done := up.Completion()
		return done
	}, time.Second, 5*time.Millisecond)

	late, err := d.Duplicate()
	require.NoError(t, err)
	evs := collectEvents(t, late)
	require.Len(t, evs, 4, "迟到的子流应从头收到完整序列")
	assert.Equal(t, types.KindHeaders, evs[0].Kind())
	assert.Equal(t, types.KindData, evs[1].Kind())
	assert.Equal(t, types.KindData, evs[2].Kind())
	assert.Equal(t, types.KindEnd, evs[3].Kind())
	releaseAll(evs)
}

func TestDuplicator_UpstreamFailurePropagates(t *testing.T) {
	up, w := New()
	d, err := NewDuplicator(up)
	require.NoError(t, err)
	defer d.Close()

	child, err := d.Duplicate()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, w.WriteHeaders(ctx, reqHeaders(t)))
	require.NoError(t, w.Fail(types.ErrAborted))

	evs := collectEvents(t, child)
	require.NotEmpty(t, evs)
	last, ok := evs[len(evs)-1].(types.ErrorEvent)
	require.True(t, ok, "上游失败应以 ErrorEvent 收尾")
	assert.ErrorIs(t, last.Cause, types.ErrAborted)
	releaseAll(evs)
}

func TestDuplicator_Overflow(t *testing.T) {
	up, w := New()
	d, err := NewDuplicator(up, WithMaxBufferedBytes(10))
	require.NoError(t, err)
	defer d.Close()

	child, err := d.Duplicate()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, w.WriteHeaders(ctx, reqHeaders(t)))
	require.NoError(t, w.WriteData(ctx, buffer.Wrap([]byte("aaaaa"))))
	require.NoError(t, w.WriteData(ctx, buffer.Wrap([]byte("bbbbb"))))
	// 第三块令缓存超限
	require.NoError(t, w.WriteData(ctx, buffer.Wrap([]byte("ccccc"))))

	evs := collectEvents(t, child)
	require.NotEmpty(t, evs)
	last, ok := evs[len(evs)-1].(types.ErrorEvent)
	require.True(t, ok, "超限应以 ErrorEvent 收尾")
	assert.ErrorIs(t, last.Cause, types.ErrDuplicatorOverflow)
	releaseAll(evs)

	assert.Eventually(t, func() bool {
		return up.State() == types.StreamCancelled
	}, time.Second, 5*time.Millisecond, "超限应取消上游订阅")
}

func TestDuplicator_CloseAbortsRunningChildren(t *testing.T) {
	up, w := New()
	d, err := NewDuplicator(up)
	require.NoError(t, err)

	child, err := d.Duplicate()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, w.WriteHeaders(ctx, reqHeaders(t)))
	// 上游不终止，直接关闭复制器

	require.NoError(t, d.Close())

	evs := collectEvents(t, child)
	require.NotEmpty(t, evs)
	last, ok := evs[len(evs)-1].(types.ErrorEvent)
	require.True(t, ok)
	assert.ErrorIs(t, last.Cause, types.ErrDuplicatorClosed)
	releaseAll(evs)

	_, err = d.Duplicate()
	assert.ErrorIs(t, err, types.ErrDuplicatorClosed)

	assert.Eventually(t, func() bool {
		return up.State() == types.StreamCancelled
	}, time.Second, 5*time.Millisecond)
}

func TestDuplicator_UpstreamAlreadySubscribed(t *testing.T) {
	up, _ := New()
	_, err := up.Subscribe()
	require.NoError(t, err)

	_, err = NewDuplicator(up)
	assert.ErrorIs(t, err, types.ErrAlreadySubscribed)
}

func TestDuplicator_ChildCancelLeavesSiblingsAlone(t *testing.T) {
	up, w := New()
	d, err := NewDuplicator(up)
	require.NoError(t, err)
	defer d.Close()

	c1, err := d.Duplicate()
	require.NoError(t, err)
	c2, err := d.Duplicate()
	require.NoError(t, err)

	sub1, err := c1.Subscribe()
	require.NoError(t, err)
	sub1.Cancel()

	ctx := context.Background()
	require.NoError(t, w.WriteHeaders(ctx, reqHeaders(t)))
	require.NoError(t, w.WriteData(ctx, buffer.Wrap([]byte("sibling"))))
	require.NoError(t, w.Close())

	evs := collectEvents(t, c2)
	require.Len(t, evs, 3, "兄弟子流不受取消影响")
	releaseAll(evs)
}

package runnel

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/httpheader"
	"github.com/runnel/go-runnel/pkg/types"
)

// collectEvents 以无界需求订阅并收集整条流的事件
func collectEvents(t *testing.T, msg interfaces.StreamMessage) []types.MessageEvent {
	t.Helper()

	sub, err := msg.Subscribe(interfaces.WithUnboundedDemand())
	require.NoError(t, err)

	var events []types.MessageEvent
	for ev := range sub.Events() {
		events = append(events, ev)
	}
	return events
}

// TestRequestOf 测试只有头块的请求构造
func TestRequestOf(t *testing.T) {
	msg, err := RequestOf("GET", "/api/items", "accept", "application/json")
	require.NoError(t, err)

	events := collectEvents(t, msg)
	require.Len(t, events, 2)

	headers := events[0].(types.HeadersEvent).Headers
	method, _ := headers.Method()
	path, _ := headers.Path()
	assert.Equal(t, "GET", method)
	assert.Equal(t, "/api/items", path)
	assert.Equal(t, "application/json", headers.GetOr("accept", ""))

	assert.Equal(t, types.KindEnd, events[1].Kind())
	assert.Equal(t, types.StreamCompleted, msg.State())

	t.Log("✅ 请求构造事件序列正确")
}

// TestRequestOf_OddPairs 测试奇数个头字段参数
func TestRequestOf_OddPairs(t *testing.T) {
	_, err := RequestOf("GET", "/", "orphan")
	assert.ErrorIs(t, err, httpheader.ErrOddPairs)
}

// TestRequestOf_MissingMethod 测试缺失必填伪头
func TestRequestOf_MissingMethod(t *testing.T) {
	_, err := RequestOf("", "/")
	assert.Error(t, err)
}

// TestRequestOfBytes 测试携带内容的请求构造
func TestRequestOfBytes(t *testing.T) {
	body := []byte(`{"name":"runnel"}`)
	msg, err := RequestOfBytes("POST", "/api/items", "application/json", body)
	require.NoError(t, err)

	events := collectEvents(t, msg)
	require.Len(t, events, 3)

	headers := events[0].(types.HeadersEvent).Headers
	ct, _ := headers.ContentType()
	assert.Equal(t, "application/json", ct)
	assert.Equal(t, int64(len(body)), headers.ContentLength())

	data := events[1].(types.DataEvent).Data
	assert.Equal(t, body, data.Bytes())
	require.NoError(t, data.Release())

	assert.Equal(t, types.KindEnd, events[2].Kind())
}

// TestResponseOf 测试只有头块的响应构造
func TestResponseOf(t *testing.T) {
	msg, err := ResponseOf(204, "cache-control", "no-store")
	require.NoError(t, err)

	events := collectEvents(t, msg)
	require.Len(t, events, 2)

	headers := events[0].(types.HeadersEvent).Headers
	status, _ := headers.Status()
	assert.Equal(t, 204, status)
	assert.Equal(t, "no-store", headers.GetOr("cache-control", ""))
}

// TestResponseOfString 测试字符串内容的响应构造
func TestResponseOfString(t *testing.T) {
	ctx := context.Background()

	core, err := New()
	require.NoError(t, err)
	defer core.Close()

	msg, err := ResponseOfString(200, "text/plain; charset=utf-8", "你好")
	require.NoError(t, err)

	resp, err := core.AggregateResponse(ctx, msg)
	require.NoError(t, err)
	defer resp.Release()

	assert.Equal(t, 200, resp.Status())
	assert.Equal(t, "你好", resp.ContentString())

	mt := resp.ContentType()
	require.NotNil(t, mt)
	assert.True(t, mt.Is("text/plain"))
}

// TestFromAggregatedRequest_RoundTrip 测试聚合消息回放后再聚合的一致性
func TestFromAggregatedRequest_RoundTrip(t *testing.T) {
	ctx := context.Background()

	core, err := New()
	require.NoError(t, err)
	defer core.Close()

	original, err := types.NewRequestBuilder().
		Method("PUT").
		Path("/docs/1").
		Authority("example.com").
		ContentString("text/plain", strings.Repeat("r", 1024)).
		Trailer("x-checksum", "abc123").
		Build()
	require.NoError(t, err)

	replayed := FromAggregatedRequest(original)
	again, err := core.AggregateRequest(ctx, replayed)
	require.NoError(t, err)
	defer again.Release()

	assert.Equal(t, "PUT", again.Method())
	assert.Equal(t, "/docs/1", again.Path())
	assert.Equal(t, "example.com", again.Authority())
	assert.Equal(t, strings.Repeat("r", 1024), again.ContentString())
	require.NotNil(t, again.Trailers())
	assert.Equal(t, "abc123", again.Trailers().GetOr("x-checksum", ""))

	t.Log("✅ 回放-聚合往返内容一致")
}

// TestFromAggregatedResponse_EmptyContent 测试空内容的回放
func TestFromAggregatedResponse_EmptyContent(t *testing.T) {
	resp, err := types.NewResponseBuilder().Status(304).Build()
	require.NoError(t, err)

	msg := FromAggregatedResponse(resp)
	events := collectEvents(t, msg)

	// 空内容不产生 DataEvent
	require.Len(t, events, 2)
	assert.Equal(t, types.KindHeaders, events[0].Kind())
	assert.Equal(t, types.KindEnd, events[1].Kind())
}

// TestStreamingRequest 测试流式请求写入
func TestStreamingRequest(t *testing.T) {
	ctx := context.Background()

	core, err := New()
	require.NoError(t, err)
	defer core.Close()

	headers, err := httpheader.Of(":method", "POST", ":path", "/upload")
	require.NoError(t, err)

	msg, w, err := StreamingRequest(headers)
	require.NoError(t, err)

	go func() {
		for _, chunk := range []string{"part-1|", "part-2|", "part-3"} {
			buf := core.Acquire(len(chunk))
			copy(buf.Bytes(), chunk)
			if err := w.WriteData(ctx, buf); err != nil {
				return
			}
		}
		_ = w.Close()
	}()

	req, err := core.AggregateRequest(ctx, msg)
	require.NoError(t, err)
	defer req.Release()

	assert.Equal(t, "POST", req.Method())
	assert.Equal(t, "part-1|part-2|part-3", req.ContentString())

	t.Log("✅ 流式写入自动补写头块")
}

// TestStreamingRequest_HeadersOnly 测试只写头块即关闭
func TestStreamingRequest_HeadersOnly(t *testing.T) {
	headers, err := httpheader.Of(":method", "GET", ":path", "/ping")
	require.NoError(t, err)

	msg, w, err := StreamingRequest(headers)
	require.NoError(t, err)

	go func() {
		_ = w.Close()
	}()

	events := collectEvents(t, msg)
	require.Len(t, events, 2)
	assert.Equal(t, types.KindHeaders, events[0].Kind())
	assert.Equal(t, types.KindEnd, events[1].Kind())
}

// TestStreamingRequest_WrongKind 测试头块类别校验
func TestStreamingRequest_WrongKind(t *testing.T) {
	respHeaders, err := httpheader.Of(":status", "200")
	require.NoError(t, err)
	_, _, err = StreamingRequest(respHeaders)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	reqHeaders, err := httpheader.Of(":method", "GET", ":path", "/")
	require.NoError(t, err)
	_, _, err = StreamingResponse(reqHeaders)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

// TestStreamingResponse_FailBeforeHeaders 测试头块写出前的失败
func TestStreamingResponse_FailBeforeHeaders(t *testing.T) {
	headers, err := httpheader.Of(":status", "200")
	require.NoError(t, err)

	msg, w, err := StreamingResponse(headers)
	require.NoError(t, err)

	// Fail 不受需求量限制，头块未写出也立即生效
	require.NoError(t, w.Fail(assert.AnError))

	completion, done := msg.Completion()
	require.True(t, done)
	assert.ErrorIs(t, completion.Err, assert.AnError)
}

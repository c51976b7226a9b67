package encoding

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnel/go-runnel/internal/core/alloc"
	"github.com/runnel/go-runnel/internal/core/stream"
	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/buffer"
	"github.com/runnel/go-runnel/pkg/lib/httpheader"
	"github.com/runnel/go-runnel/pkg/types"
)

// ============================================================================
// 测试辅助
// ============================================================================

func newAllocator(t *testing.T) interfaces.Allocator {
	t.Helper()
	a := alloc.NewHeap()
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func mustBlock(t *testing.T, pairs ...string) *httpheader.Block {
	t.Helper()
	h, err := httpheader.Of(pairs...)
	require.NoError(t, err)
	return h
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func flateBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, fw.Close())
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// produce 按 chunkLen 把 payload 切块写出一条流
func produce(t *testing.T, headers *httpheader.Block, payload []byte, chunkLen int, trailers *httpheader.Block) interfaces.StreamMessage {
	t.Helper()
	msg, w := stream.New()
	go func() {
		ctx := context.Background()
		if err := w.WriteHeaders(ctx, headers); err != nil {
			return
		}
		for off := 0; off < len(payload); off += chunkLen {
			end := off + chunkLen
			if end > len(payload) {
				end = len(payload)
			}
			if err := w.WriteData(ctx, buffer.Copy(payload[off:end])); err != nil {
				return
			}
		}
		if trailers != nil {
			if err := w.WriteTrailers(ctx, trailers); err != nil {
				return
			}
		}
		_ = w.Close()
	}()
	return msg
}

// collect 无界订阅并收齐全部事件
func collect(t *testing.T, msg interfaces.StreamMessage) (headers *httpheader.Block, data []byte, trailers *httpheader.Block, failure error) {
	t.Helper()
	sub, err := msg.Subscribe(interfaces.WithUnboundedDemand())
	require.NoError(t, err)
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			switch e := ev.(type) {
			case types.HeadersEvent:
				headers = e.Headers
			case types.DataEvent:
				data = append(data, e.Data.Bytes()...)
				require.NoError(t, e.Data.Release())
			case types.TrailersEvent:
				trailers = e.Trailers
			case types.ErrorEvent:
				failure = e.Cause
			}
		case <-time.After(2 * time.Second):
			t.Fatal("等待解码事件超时")
		}
	}
}

// ============================================================================
// 流式解码
// ============================================================================

func TestDecodingStream_Gzip(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")
	compressed := gzipBytes(t, payload)
	headers := mustBlock(t,
		":method", "POST", ":path", "/data",
		"content-encoding", "gzip",
		"content-length", "9999",
		"x-keep", "yes")

	upstream := produce(t, headers, compressed, 8, nil)
	decoded, err := NewDecodingStream(context.Background(), upstream, newAllocator(t))
	require.NoError(t, err)

	gotHeaders, gotData, _, failure := collect(t, decoded)
	require.NoError(t, failure)
	assert.Equal(t, payload, gotData)
	assert.False(t, gotHeaders.Contains("content-encoding"), "解码后应移除 content-encoding")
	assert.False(t, gotHeaders.Contains("content-length"), "流式解码最终长度未知，应移除 content-length")
	assert.True(t, gotHeaders.Contains("x-keep"), "其余头字段应保留")
	assert.Equal(t, types.StreamCompleted, decoded.State())
}

func TestDecodingStream_AllCodecs(t *testing.T) {
	payload := bytes.Repeat([]byte("runnel stream decoding roundtrip "), 64)

	tests := []struct {
		encoding string
		compress func(*testing.T, []byte) []byte
	}{
		{"gzip", gzipBytes},
		{"deflate", flateBytes},
		{"zstd", zstdBytes},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			headers := mustBlock(t, ":method", "POST", ":path", "/", "content-encoding", tt.encoding)
			upstream := produce(t, headers, tt.compress(t, payload), 64, nil)

			decoded, err := NewDecodingStream(context.Background(), upstream, newAllocator(t),
				WithReadChunkSize(96))
			require.NoError(t, err)

			_, gotData, _, failure := collect(t, decoded)
			require.NoError(t, failure)
			assert.Equal(t, payload, gotData)
		})
	}
}

func TestDecodingStream_EmptyBody(t *testing.T) {
	headers := mustBlock(t, ":method", "POST", ":path", "/", "content-encoding", "gzip")
	upstream := produce(t, headers, gzipBytes(t, nil), 16, nil)

	decoded, err := NewDecodingStream(context.Background(), upstream, newAllocator(t))
	require.NoError(t, err)

	_, gotData, _, failure := collect(t, decoded)
	require.NoError(t, failure)
	assert.Empty(t, gotData)
	assert.Equal(t, types.StreamCompleted, decoded.State())
}

func TestDecodingStream_TrailersForwarded(t *testing.T) {
	payload := []byte("with trailers")
	headers := mustBlock(t, ":method", "POST", ":path", "/", "content-encoding", "gzip")
	trailers := mustBlock(t, "grpc-status", "0")
	upstream := produce(t, headers, gzipBytes(t, payload), 4, trailers)

	decoded, err := NewDecodingStream(context.Background(), upstream, newAllocator(t))
	require.NoError(t, err)

	_, gotData, gotTrailers, failure := collect(t, decoded)
	require.NoError(t, failure)
	assert.Equal(t, payload, gotData)
	require.NotNil(t, gotTrailers, "尾部头块应在解码数据之后转发")
	v, ok := gotTrailers.Get("grpc-status")
	require.True(t, ok)
	assert.Equal(t, "0", v)
}

func TestDecodingStream_Passthrough(t *testing.T) {
	payload := []byte("no encoding at all")

	t.Run("无编码头", func(t *testing.T) {
		headers := mustBlock(t, ":method", "POST", ":path", "/")
		upstream := produce(t, headers, payload, 5, nil)

		decoded, err := NewDecodingStream(context.Background(), upstream, newAllocator(t))
		require.NoError(t, err)

		gotHeaders, gotData, _, failure := collect(t, decoded)
		require.NoError(t, failure)
		assert.True(t, gotHeaders.Equal(headers), "透传时头块原样转发")
		assert.Equal(t, payload, gotData)
	})

	t.Run("identity", func(t *testing.T) {
		headers := mustBlock(t, ":method", "POST", ":path", "/", "content-encoding", "identity")
		upstream := produce(t, headers, payload, 5, nil)

		decoded, err := NewDecodingStream(context.Background(), upstream, newAllocator(t))
		require.NoError(t, err)

		gotHeaders, gotData, _, failure := collect(t, decoded)
		require.NoError(t, failure)
		assert.True(t, gotHeaders.Contains("content-encoding"))
		assert.Equal(t, payload, gotData)
	})
}

func TestDecodingStream_UnknownEncoding(t *testing.T) {
	payload := []byte("brotli-ish bytes")
	headers := mustBlock(t, ":method", "POST", ":path", "/", "content-encoding", "br")

	t.Run("默认透传", func(t *testing.T) {
		upstream := produce(t, headers, payload, 4, nil)
		decoded, err := NewDecodingStream(context.Background(), upstream, newAllocator(t))
		require.NoError(t, err)

		gotHeaders, gotData, _, failure := collect(t, decoded)
		require.NoError(t, failure)
		assert.True(t, gotHeaders.Contains("content-encoding"), "透传时保留原始编码头")
		assert.Equal(t, payload, gotData)
	})

	t.Run("严格模式失败", func(t *testing.T) {
		upstream := produce(t, headers, payload, 4, nil)
		decoded, err := NewDecodingStream(context.Background(), upstream, newAllocator(t), WithStrict())
		require.NoError(t, err)

		_, _, _, failure := collect(t, decoded)
		assert.ErrorIs(t, failure, types.ErrContentEncoding)
		assert.Eventually(t, func() bool {
			return upstream.State() == types.StreamCancelled
		}, time.Second, 5*time.Millisecond, "严格模式失败后应取消上游订阅")
	})
}

func TestDecodingStream_CorruptPayload(t *testing.T) {
	headers := mustBlock(t, ":method", "POST", ":path", "/", "content-encoding", "gzip")
	upstream := produce(t, headers, []byte("definitely not gzip"), 8, nil)

	decoded, err := NewDecodingStream(context.Background(), upstream, newAllocator(t))
	require.NoError(t, err)

	gotHeaders, _, _, failure := collect(t, decoded)
	require.NotNil(t, gotHeaders, "头块先于解码失败送达")
	assert.ErrorIs(t, failure, types.ErrContentEncoding)
}

func TestDecodingStream_UpstreamFailurePropagates(t *testing.T) {
	cause := errors.New("connection reset")
	headers := mustBlock(t, ":method", "POST", ":path", "/", "content-encoding", "gzip")
	compressed := gzipBytes(t, bytes.Repeat([]byte("x"), 4096))

	msg, w := stream.New()
	go func() {
		ctx := context.Background()
		_ = w.WriteHeaders(ctx, headers)
		_ = w.WriteData(ctx, buffer.Copy(compressed[:len(compressed)/2]))
		_ = w.Fail(cause)
	}()

	decoded, err := NewDecodingStream(context.Background(), msg, newAllocator(t))
	require.NoError(t, err)

	_, _, _, failure := collect(t, decoded)
	assert.ErrorIs(t, failure, cause, "上游失败原因应原样传递，不做编码错误包装")
	assert.NotErrorIs(t, failure, types.ErrContentEncoding)
}

func TestDecodingStream_DecodedLimit(t *testing.T) {
	payload := bytes.Repeat([]byte{0}, 64<<10)
	headers := mustBlock(t, ":method", "POST", ":path", "/", "content-encoding", "gzip")
	upstream := produce(t, headers, gzipBytes(t, payload), 512, nil)

	decoded, err := NewDecodingStream(context.Background(), upstream, newAllocator(t),
		WithMaxDecodedBytes(100))
	require.NoError(t, err)

	_, _, _, failure := collect(t, decoded)
	require.Error(t, failure)
	assert.ErrorIs(t, failure, types.ErrContentTooLarge)

	var tooLarge *types.ContentTooLargeError
	require.ErrorAs(t, failure, &tooLarge)
	assert.Equal(t, int64(100), tooLarge.Limit)
	assert.Greater(t, tooLarge.Actual, tooLarge.Limit)
}

func TestDecodingStream_ContextCancelled(t *testing.T) {
	headers := mustBlock(t, ":method", "POST", ":path", "/", "content-encoding", "gzip")
	msg, w := stream.New()
	go func() {
		_ = w.WriteHeaders(context.Background(), headers)
		// 不再写入，流悬置
	}()

	ctx, cancel := context.WithCancel(context.Background())
	decoded, err := NewDecodingStream(ctx, msg, newAllocator(t))
	require.NoError(t, err)
	cancel()

	_, _, _, failure := collect(t, decoded)
	assert.ErrorIs(t, failure, context.Canceled)
}

func TestDecodingStream_AlreadySubscribed(t *testing.T) {
	msg, _ := stream.New()
	sub, err := msg.Subscribe()
	require.NoError(t, err)
	t.Cleanup(sub.Cancel)

	_, err = NewDecodingStream(context.Background(), msg, newAllocator(t))
	assert.ErrorIs(t, err, types.ErrAlreadySubscribed)
}

func TestDecodingStream_SourceChunksReleased(t *testing.T) {
	payload := []byte("release the sources")
	compressed := gzipBytes(t, payload)
	headers := mustBlock(t, ":method", "POST", ":path", "/", "content-encoding", "gzip")

	msg, w := stream.New()
	first := buffer.Copy(compressed[:len(compressed)/2])
	second := buffer.Copy(compressed[len(compressed)/2:])
	go func() {
		ctx := context.Background()
		_ = w.WriteHeaders(ctx, headers)
		_ = w.WriteData(ctx, first)
		_ = w.WriteData(ctx, second)
		_ = w.Close()
	}()

	decoded, err := NewDecodingStream(context.Background(), msg, newAllocator(t))
	require.NoError(t, err)

	_, gotData, _, failure := collect(t, decoded)
	require.NoError(t, failure)
	assert.Equal(t, payload, gotData)
	assert.Eventually(t, func() bool {
		return first.IsReleased() && second.IsReleased()
	}, time.Second, 5*time.Millisecond, "消化过的压缩块应已释放")
}

// ============================================================================
// 聚合解码
// ============================================================================

func TestDecodeAggregated_Gzip(t *testing.T) {
	payload := []byte("aggregated body to decode")
	compressed := gzipBytes(t, payload)
	headers := mustBlock(t,
		":method", "POST", ":path", "/",
		"content-encoding", "gzip",
		"content-length", "9999")
	src := types.AssembleRequest(headers, buffer.Copy(compressed), nil)

	decoded, err := DecodeAggregated(src, newAllocator(t), 0)
	require.NoError(t, err)
	req, ok := decoded.(*types.AggregatedRequest)
	require.True(t, ok, "解码副本应保持请求类别")

	assert.Equal(t, payload, req.ContentBytes())
	assert.False(t, req.Headers().Contains("content-encoding"))
	assert.Equal(t, int64(len(payload)), req.Headers().ContentLength(), "content-length 应改写为解码后长度")

	require.NoError(t, src.Release())
	assert.Equal(t, payload, req.ContentBytes(), "副本内容独立于输入")
	require.NoError(t, req.Release())
}

func TestDecodeAggregated_ResponseKind(t *testing.T) {
	payload := []byte("pong")
	headers := mustBlock(t, ":status", "200", "content-encoding", "zstd")
	src := types.AssembleResponse(headers, buffer.Copy(zstdBytes(t, payload)), nil)

	decoded, err := DecodeAggregated(src, newAllocator(t), 0)
	require.NoError(t, err)
	resp, ok := decoded.(*types.AggregatedResponse)
	require.True(t, ok, "解码副本应保持响应类别")
	assert.Equal(t, 200, resp.Status())
	assert.Equal(t, payload, resp.ContentBytes())

	require.NoError(t, src.Release())
	require.NoError(t, resp.Release())
}

func TestDecodeAggregated_Identity(t *testing.T) {
	payload := []byte("plain body")
	headers := mustBlock(t, ":method", "GET", ":path", "/")
	src := types.AssembleRequest(headers, buffer.Copy(payload), nil)

	decoded, err := DecodeAggregated(src, newAllocator(t), 0)
	require.NoError(t, err)
	assert.True(t, decoded.Headers().Equal(headers), "无编码时头块保持不变")

	require.NoError(t, src.Release())
	assert.Equal(t, payload, decoded.ContentBytes(), "副本内容独立于输入")
	require.NoError(t, decoded.Release())
}

func TestDecodeAggregated_UnknownEncoding(t *testing.T) {
	headers := mustBlock(t, ":method", "POST", ":path", "/", "content-encoding", "br")
	src := types.AssembleRequest(headers, buffer.Copy([]byte("data")), nil)
	defer func() { _ = src.Release() }()

	_, err := DecodeAggregated(src, newAllocator(t), 0)
	assert.ErrorIs(t, err, types.ErrContentEncoding)
}

func TestDecodeAggregated_LimitExceeded(t *testing.T) {
	headers := mustBlock(t, ":method", "POST", ":path", "/", "content-encoding", "gzip")
	src := types.AssembleRequest(headers, buffer.Copy(gzipBytes(t, bytes.Repeat([]byte{0}, 4096))), nil)
	defer func() { _ = src.Release() }()

	_, err := DecodeAggregated(src, newAllocator(t), 64)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrContentTooLarge)

	var tooLarge *types.ContentTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, int64(64), tooLarge.Limit)
}

func TestDecodeAggregated_Corrupt(t *testing.T) {
	headers := mustBlock(t, ":method", "POST", ":path", "/", "content-encoding", "gzip")
	src := types.AssembleRequest(headers, buffer.Copy([]byte("garbage")), nil)
	defer func() { _ = src.Release() }()

	_, err := DecodeAggregated(src, newAllocator(t), 0)
	assert.ErrorIs(t, err, types.ErrContentEncoding)
}

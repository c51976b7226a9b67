package encoding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/runnel/go-runnel/internal/core/stream"
	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/buffer"
	"github.com/runnel/go-runnel/pkg/lib/httpheader"
	"github.com/runnel/go-runnel/pkg/lib/log"
	"github.com/runnel/go-runnel/pkg/types"
)

var logger = log.Logger("core/encoding")

// DefaultReadChunkSize 解码输出的默认分块大小
const DefaultReadChunkSize = 8 << 10

// ============================================================================
// 流式解码
// ============================================================================

// NewDecodingStream 包装 upstream，返回一条边读边解码的新流
//
// 立即订阅上游（需求量 1），上游已有订阅者时返回 ErrAlreadySubscribed。
// 返回流上的事件：
//   - 头块按编码处理方式改写（见包文档）；
//   - 数据块为解码后的内容，从 alloc 分配；
//   - 上游失败原样传递，解码失败包装为 ErrContentEncoding。
func NewDecodingStream(ctx context.Context, upstream interfaces.StreamMessage, alloc interfaces.Allocator, opts ...Option) (interfaces.StreamMessage, error) {
	o := buildOptions(opts)
	sub, err := upstream.Subscribe(interfaces.WithInitialDemand(1))
	if err != nil {
		return nil, err
	}
	msg, w := newPair(o)
	go relay(ctx, sub, w, alloc, o)
	return msg, nil
}

func newPair(o options) (interfaces.StreamMessage, interfaces.StreamWriter) {
	if o.factory != nil {
		return o.factory.NewStream()
	}
	m, w := stream.New()
	return m, w
}

// relay 消费上游首事件并按内容编码选择解码或透传
func relay(ctx context.Context, sub interfaces.Subscription, w interfaces.StreamWriter, alloc interfaces.Allocator, o options) {
	defer sub.Cancel()

	var headers *httpheader.Block
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			_ = w.Fail(types.ErrCancelled)
			return
		}
		switch e := ev.(type) {
		case types.HeadersEvent:
			headers = e.Headers
		case types.ErrorEvent:
			_ = w.Fail(e.Cause)
			return
		default:
			types.ReleaseEvent(ev)
			_ = w.Fail(types.ErrBadEventOrder)
			return
		}
	case <-ctx.Done():
		_ = w.Fail(ctx.Err())
		return
	case <-w.Cancelled():
		return
	}
	if headers == nil {
		headers = httpheader.Empty()
	}

	enc := normalizeEncoding(headers)
	if enc == "" {
		passthrough(ctx, sub, w, headers)
		return
	}
	open, known := codecFor(enc)
	if !known {
		if o.strict {
			logger.Debug("不支持的内容编码", "encoding", enc)
			_ = w.Fail(fmt.Errorf("%w: unsupported encoding %q", types.ErrContentEncoding, enc))
			return
		}
		passthrough(ctx, sub, w, headers)
		return
	}
	decode(ctx, sub, w, alloc, headers, open, o)
}

// passthrough 原样转发全部事件
//
// 写入失败时用失败原因终止下游：对已终止的下游为空操作，对 ctx
// 取消则保证下游收到终止事件而非悬置。
func passthrough(ctx context.Context, sub interfaces.Subscription, w interfaces.StreamWriter, headers *httpheader.Block) {
	if err := w.WriteHeaders(ctx, headers); err != nil {
		_ = w.Fail(err)
		return
	}
	sub.Request(1)
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				_ = w.Fail(types.ErrCancelled)
				return
			}
			var err error
			terminal := false
			switch e := ev.(type) {
			case types.HeadersEvent:
				err = w.WriteHeaders(ctx, e.Headers)
			case types.DataEvent:
				err = w.WriteData(ctx, e.Data)
			case types.TrailersEvent:
				err = w.WriteTrailers(ctx, e.Trailers)
			case types.EndEvent:
				err = w.Close()
				terminal = true
			case types.ErrorEvent:
				err = w.Fail(e.Cause)
				terminal = true
			}
			if terminal {
				return
			}
			if err != nil {
				_ = w.Fail(err)
				return
			}
			sub.Request(1)
		case <-ctx.Done():
			_ = w.Fail(ctx.Err())
			return
		case <-w.Cancelled():
			return
		}
	}
}

// decode 解压数据块并按下游需求重发
func decode(ctx context.Context, sub interfaces.Subscription, w interfaces.StreamWriter, alloc interfaces.Allocator,
	headers *httpheader.Block, open openFunc, o options) {

	hb := headers.ToBuilder()
	hb.Remove("content-encoding")
	hb.Remove("content-length")
	if err := w.WriteHeaders(ctx, hb.Build()); err != nil {
		_ = w.Fail(err)
		return
	}

	er := &eventReader{ctx: ctx, sub: sub, stop: w.Cancelled()}
	defer er.release()
	sub.Request(1)

	rc, err := open(er)
	if err != nil {
		_ = w.Fail(decodeFailure(er, err))
		return
	}
	defer func() { _ = rc.Close() }()

	scratch := make([]byte, o.chunkSize)
	var decoded int64
	for {
		n, rerr := rc.Read(scratch)
		if n > 0 {
			decoded += int64(n)
			if o.maxDecodedBytes > 0 && decoded > o.maxDecodedBytes {
				logger.Debug("解码输出超限",
					"decoded", decoded,
					"limit", o.maxDecodedBytes)
				_ = w.Fail(&types.ContentTooLargeError{Limit: o.maxDecodedBytes, Actual: decoded})
				return
			}
			out := alloc.Acquire(n)
			copy(out.Bytes(), scratch[:n])
			if werr := w.WriteData(ctx, out); werr != nil {
				_ = w.Fail(werr)
				return
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			_ = w.Fail(decodeFailure(er, rerr))
			return
		}
	}

	// 解码器在压缩载荷末尾即返回 EOF，上游可能仍有 Trailers/End 未读
	er.drain()
	if er.failure != nil {
		_ = w.Fail(er.failure)
		return
	}
	if er.trailers != nil {
		if err := w.WriteTrailers(ctx, er.trailers); err != nil {
			_ = w.Fail(err)
			return
		}
	}
	_ = w.Close()
}

// decodeFailure 区分上游失败与数据损坏：前者原样传递，后者包装
func decodeFailure(er *eventReader, err error) error {
	if er.failure != nil {
		return er.failure
	}
	return fmt.Errorf("%w: %v", types.ErrContentEncoding, err)
}

// ============================================================================
// 聚合解码
// ============================================================================

// DecodeAggregated 返回 agg 的解码副本
//
// 副本独立持有内容（从 alloc 分配），输入不被释放，仍由调用方负责。
// 解码时头块移除 content-encoding，content-length 改写为解码后长度；
// 无编码时头块保持不变。limit > 0 约束解码后的内容长度，超限返回
// ContentTooLargeError；不受支持的编码返回 ErrContentEncoding。
func DecodeAggregated(agg types.AggregatedMessage, alloc interfaces.Allocator, limit int64) (types.AggregatedMessage, error) {
	headers := agg.Headers()

	enc := normalizeEncoding(headers)
	if enc == "" {
		raw := agg.ContentBytes()
		if limit > 0 && int64(len(raw)) > limit {
			return nil, &types.ContentTooLargeError{Limit: limit, Actual: int64(len(raw))}
		}
		content := alloc.Acquire(len(raw))
		copy(content.Bytes(), raw)
		return sealAs(agg, headers, content), nil
	}

	open, known := codecFor(enc)
	if !known {
		return nil, fmt.Errorf("%w: unsupported encoding %q", types.ErrContentEncoding, enc)
	}
	rc, err := open(bytes.NewReader(agg.ContentBytes()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrContentEncoding, err)
	}
	defer func() { _ = rc.Close() }()

	var src io.Reader = rc
	if limit > 0 {
		src = io.LimitReader(rc, limit+1)
	}
	decoded, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrContentEncoding, err)
	}
	if limit > 0 && int64(len(decoded)) > limit {
		return nil, &types.ContentTooLargeError{Limit: limit, Actual: int64(len(decoded))}
	}

	hb := headers.ToBuilder()
	hb.Remove("content-encoding")
	if err := hb.SetContentLength(int64(len(decoded))); err != nil {
		return nil, err
	}
	content := alloc.Acquire(len(decoded))
	copy(content.Bytes(), decoded)
	return sealAs(agg, hb.Build(), content), nil
}

// sealAs 保持输入的请求/响应类别封装副本
func sealAs(src types.AggregatedMessage, headers *httpheader.Block, content *buffer.Buffer) types.AggregatedMessage {
	if _, ok := src.(*types.AggregatedResponse); ok {
		return types.AssembleResponse(headers, content, src.Trailers())
	}
	return types.AssembleRequest(headers, content, src.Trailers())
}

// ============================================================================
// 编码器表
// ============================================================================

// openFunc 在压缩字节流之上构造解码读取器
type openFunc func(io.Reader) (io.ReadCloser, error)

func codecFor(name string) (openFunc, bool) {
	switch name {
	case "gzip", "x-gzip":
		return func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		}, true
	case "deflate":
		return func(r io.Reader) (io.ReadCloser, error) {
			return flate.NewReader(r), nil
		}, true
	case "zstd":
		return func(r io.Reader) (io.ReadCloser, error) {
			d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
			if err != nil {
				return nil, err
			}
			return d.IOReadCloser(), nil
		}, true
	}
	return nil, false
}

// normalizeEncoding 取小写的 content-encoding 值，缺失或 identity 归一为空串
func normalizeEncoding(headers *httpheader.Block) string {
	enc, ok := headers.ContentEncoding()
	if !ok {
		return ""
	}
	enc = strings.ToLower(strings.TrimSpace(enc))
	if enc == "identity" {
		return ""
	}
	return enc
}

// ============================================================================
// 事件读取器
// ============================================================================

// eventReader 把订阅事件适配为 io.Reader 供解码器消费
//
// 每消化一个事件即续订一个，稳态下上游只有一个未兑现的需求量。
// 尾部头块与上游失败记录在字段里，由 decode 收尾时取用。
type eventReader struct {
	ctx      context.Context
	sub      interfaces.Subscription
	stop     <-chan struct{}
	cur      *buffer.Buffer
	off      int
	trailers *httpheader.Block
	failure  error
	eos      bool
}

func (r *eventReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if r.cur != nil {
			n := copy(p, r.cur.Bytes()[r.off:])
			r.off += n
			if r.off >= r.cur.Len() {
				_ = r.cur.Release()
				r.cur, r.off = nil, 0
			}
			if n > 0 {
				return n, nil
			}
		}
		if r.eos {
			return 0, io.EOF
		}
		if r.failure != nil {
			return 0, r.failure
		}
		r.next()
	}
}

// next 拉取并消化一个上游事件
func (r *eventReader) next() {
	select {
	case ev, ok := <-r.sub.Events():
		if !ok {
			r.failure = types.ErrCancelled
			return
		}
		switch e := ev.(type) {
		case types.DataEvent:
			if e.Data.Len() == 0 {
				_ = e.Data.Release()
			} else {
				r.cur, r.off = e.Data, 0
			}
			r.sub.Request(1)
		case types.TrailersEvent:
			r.trailers = e.Trailers
			r.sub.Request(1)
		case types.EndEvent:
			r.eos = true
		case types.ErrorEvent:
			r.failure = e.Cause
		case types.HeadersEvent:
			r.failure = types.ErrBadEventOrder
		}
	case <-r.ctx.Done():
		r.failure = r.ctx.Err()
	case <-r.stop:
		r.failure = types.ErrCancelled
	}
}

// drain 读完上游剩余事件，压缩载荷之后的多余数据直接丢弃
func (r *eventReader) drain() {
	r.release()
	for !r.eos && r.failure == nil {
		r.next()
		r.release()
	}
}

func (r *eventReader) release() {
	if r.cur != nil {
		_ = r.cur.Release()
		r.cur, r.off = nil, 0
	}
}

package runnel

import (
	"context"
	"fmt"

	"github.com/runnel/go-runnel/internal/core/stream"
	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/buffer"
	"github.com/runnel/go-runnel/pkg/lib/httpheader"
	"github.com/runnel/go-runnel/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              固定消息构造
// ════════════════════════════════════════════════════════════════════════════
//
// 本文件提供内容已知的消息流快捷构造。返回的流是普通的
// StreamMessage：事件仍按订阅者的需求量投递，未订阅前生产侧
// 挂起等待，中止时未投递的缓冲由流释放。

// RequestOf 构造只有头块的请求流
//
// headerPairs 为追加的 name/value 对。
//
//	msg, err := runnel.RequestOf("GET", "/api/items", "accept", "application/json")
func RequestOf(method, path string, headerPairs ...string) (interfaces.StreamMessage, error) {
	b := types.NewRequestBuilder().Method(method).Path(path)
	if err := applyPairs(func(name, value string) {
		b.Header(name, value)
	}, headerPairs); err != nil {
		return nil, err
	}
	req, err := b.Build()
	if err != nil {
		return nil, err
	}
	return FromAggregatedRequest(req), nil
}

// RequestOfBytes 构造携带字节内容的请求流
//
// body 被复制，content-type 与 content-length 自动补齐。
func RequestOfBytes(method, path, mediaType string, body []byte) (interfaces.StreamMessage, error) {
	req, err := types.NewRequestBuilder().
		Method(method).
		Path(path).
		ContentBytes(mediaType, body).
		Build()
	if err != nil {
		return nil, err
	}
	return FromAggregatedRequest(req), nil
}

// RequestOfString 构造携带字符串内容的请求流
func RequestOfString(method, path, mediaType, body string) (interfaces.StreamMessage, error) {
	return RequestOfBytes(method, path, mediaType, []byte(body))
}

// ResponseOf 构造只有头块的响应流
//
//	msg, err := runnel.ResponseOf(204)
func ResponseOf(status int, headerPairs ...string) (interfaces.StreamMessage, error) {
	b := types.NewResponseBuilder().Status(status)
	if err := applyPairs(func(name, value string) {
		b.Header(name, value)
	}, headerPairs); err != nil {
		return nil, err
	}
	resp, err := b.Build()
	if err != nil {
		return nil, err
	}
	return FromAggregatedResponse(resp), nil
}

// ResponseOfBytes 构造携带字节内容的响应流
func ResponseOfBytes(status int, mediaType string, body []byte) (interfaces.StreamMessage, error) {
	resp, err := types.NewResponseBuilder().
		Status(status).
		ContentBytes(mediaType, body).
		Build()
	if err != nil {
		return nil, err
	}
	return FromAggregatedResponse(resp), nil
}

// ResponseOfString 构造携带字符串内容的响应流
func ResponseOfString(status int, mediaType, body string) (interfaces.StreamMessage, error) {
	return ResponseOfBytes(status, mediaType, []byte(body))
}

// RequestHeaders 构造请求头块
//
// 直接写入流生产侧时使用，省去手工拼装伪头。
func RequestHeaders(method, path string, headerPairs ...string) (*httpheader.Block, error) {
	b := httpheader.NewBuilder()
	if err := b.SetMethod(method); err != nil {
		return nil, err
	}
	if err := b.SetPath(path); err != nil {
		return nil, err
	}
	if err := applyPairsErr(b.Add, headerPairs); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

// ResponseHeaders 构造响应头块
func ResponseHeaders(status int, headerPairs ...string) (*httpheader.Block, error) {
	b := httpheader.NewBuilder()
	if err := b.SetStatus(status); err != nil {
		return nil, err
	}
	if err := applyPairsErr(b.Add, headerPairs); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

// applyPairs 把 name/value 对逐个交给 add 追加
func applyPairs(add func(name, value string), pairs []string) error {
	if len(pairs)%2 != 0 {
		return httpheader.ErrOddPairs
	}
	for i := 0; i < len(pairs); i += 2 {
		add(pairs[i], pairs[i+1])
	}
	return nil
}

// applyPairsErr 同 applyPairs，add 可返回字段校验错误
func applyPairsErr(add func(name, value string) error, pairs []string) error {
	if len(pairs)%2 != 0 {
		return httpheader.ErrOddPairs
	}
	for i := 0; i < len(pairs); i += 2 {
		if err := add(pairs[i], pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              聚合消息回放
// ════════════════════════════════════════════════════════════════════════════

// FromAggregatedRequest 把聚合请求回放为单块数据的消息流
//
// agg 的内容引用转移给流，调用方此后不得再 Release。
// 事件序列为 Headers → Data?（内容非空时）→ Trailers? → End。
func FromAggregatedRequest(agg *types.AggregatedRequest) interfaces.StreamMessage {
	return replayStream(agg)
}

// FromAggregatedResponse 把聚合响应回放为单块数据的消息流
//
// 所有权语义同 FromAggregatedRequest。
func FromAggregatedResponse(agg *types.AggregatedResponse) interfaces.StreamMessage {
	return replayStream(agg)
}

// replayStream 以固定事件序列回放一条聚合消息
func replayStream(agg types.AggregatedMessage) interfaces.StreamMessage {
	msg, w := stream.New()
	headers := agg.Headers()
	content := agg.Content()
	trailers := agg.Trailers()

	go func() {
		ctx := context.Background()
		if err := w.WriteHeaders(ctx, headers); err != nil {
			if content != nil {
				_ = content.Release()
			}
			return
		}
		if content != nil {
			if content.Len() == 0 {
				_ = content.Release()
			} else if err := w.WriteData(ctx, content); err != nil {
				// WriteData 失败时已释放缓冲
				return
			}
		}
		if trailers != nil && !trailers.IsEmpty() {
			if err := w.WriteTrailers(ctx, trailers); err != nil {
				return
			}
		}
		_ = w.Close()
	}()

	return msg
}

// ════════════════════════════════════════════════════════════════════════════
//                              流式写入
// ════════════════════════════════════════════════════════════════════════════

// StreamingRequest 构造头块已知、内容渐进写入的请求流
//
// 返回的 StreamingWriter 在首次写入时自动先写出头块。
func StreamingRequest(headers *httpheader.Block) (interfaces.StreamMessage, *StreamingWriter, error) {
	if headers == nil || !headers.IsRequest() {
		return nil, nil, fmt.Errorf("%w: request headers required", types.ErrInvalidArgument)
	}
	return newStreamingPair(headers)
}

// StreamingResponse 构造头块已知、内容渐进写入的响应流
func StreamingResponse(headers *httpheader.Block) (interfaces.StreamMessage, *StreamingWriter, error) {
	if headers == nil || !headers.IsResponse() {
		return nil, nil, fmt.Errorf("%w: response headers required", types.ErrInvalidArgument)
	}
	return newStreamingPair(headers)
}

func newStreamingPair(headers *httpheader.Block) (interfaces.StreamMessage, *StreamingWriter, error) {
	msg, w := stream.New()
	return msg, &StreamingWriter{w: w, headers: headers}, nil
}

// StreamingWriter 头块滞后写出的生产侧句柄
//
// 单生产者：所有方法须由同一 goroutine 串行调用。
type StreamingWriter struct {
	w            interfaces.StreamWriter
	headers      *httpheader.Block
	wroteHeaders bool
}

// ensureHeaders 确保头块已写出
func (s *StreamingWriter) ensureHeaders(ctx context.Context) error {
	if s.wroteHeaders {
		return nil
	}
	if err := s.w.WriteHeaders(ctx, s.headers); err != nil {
		return err
	}
	s.wroteHeaders = true
	return nil
}

// WriteData 写入数据块，需求量不足时阻塞等待
//
// 成功或失败都会消耗 data 的引用。
func (s *StreamingWriter) WriteData(ctx context.Context, data *buffer.Buffer) error {
	if err := s.ensureHeaders(ctx); err != nil {
		if data != nil {
			_ = data.Release()
		}
		return err
	}
	return s.w.WriteData(ctx, data)
}

// WriteTrailers 写入尾部头块，需求量不足时阻塞等待
func (s *StreamingWriter) WriteTrailers(ctx context.Context, trailers *httpheader.Block) error {
	if err := s.ensureHeaders(ctx); err != nil {
		return err
	}
	return s.w.WriteTrailers(ctx, trailers)
}

// Close 写入正常终止事件
//
// 头块尚未写出时先阻塞写出头块（头块受需求量约束）。
func (s *StreamingWriter) Close() error {
	if err := s.ensureHeaders(context.Background()); err != nil {
		return err
	}
	return s.w.Close()
}

// Fail 写入异常终止事件（不受需求量限制，头块未写出时也可调用）
func (s *StreamingWriter) Fail(cause error) error {
	return s.w.Fail(cause)
}

// Requested 返回当前未消耗的需求量
func (s *StreamingWriter) Requested() int64 {
	return s.w.Requested()
}

// Demand 返回需求量从零转正时收到信号的通道
func (s *StreamingWriter) Demand() <-chan struct{} {
	return s.w.Demand()
}

// Cancelled 返回订阅取消或流中止时关闭的通道
func (s *StreamingWriter) Cancelled() <-chan struct{} {
	return s.w.Cancelled()
}

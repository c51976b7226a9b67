package types

import (
	"fmt"
	"sync"

	"github.com/runnel/go-runnel/pkg/lib/buffer"
	"github.com/runnel/go-runnel/pkg/lib/httpheader"
	"github.com/runnel/go-runnel/pkg/lib/mediatype"
)

// ============================================================================
//                              AggregatedMessage
// ============================================================================

// AggregatedMessage 聚合后的完整消息
//
// 由头块、单个连续内容缓冲与可选尾部头块组成，AggregatedRequest 与
// AggregatedResponse 是仅有的两种变体。
//
// 内容缓冲的引用随消息持有：用完调用 Release（恰好一次）；
// 需要在多处共享时先 Retain。
type AggregatedMessage interface {
	// Headers 返回头块（非 nil，可能为空块）
	Headers() *httpheader.Block
	// Content 返回内容缓冲（非 nil，可能为空缓冲）
	Content() *buffer.Buffer
	// ContentBytes 返回内容字节视图（仅在持有引用期间有效）
	ContentBytes() []byte
	// Trailers 返回尾部头块（非 nil，可能为空块）
	Trailers() *httpheader.Block
	// ContentType 返回解析后的媒体类型，缺失或无法解析时为 nil
	ContentType() *mediatype.MediaType
	// ContentString 按 content-type 隐含的字符集解码内容（默认 UTF-8）
	ContentString() string
	// ContentASCII 按隐含字符集解码后做 7-bit 投影（非 ASCII 字符替换为 '?'）
	ContentASCII() string
	// IsEmpty 判断内容是否为空
	IsEmpty() bool
	// Retain 增加内容缓冲的引用
	Retain()
	// Release 释放内容缓冲的引用
	Release() error

	isAggregatedMessage()
}

// aggregatedBody 两种变体共享的载荷与惰性解析状态
type aggregatedBody struct {
	headers  *httpheader.Block
	content  *buffer.Buffer
	trailers *httpheader.Block

	ctOnce sync.Once
	ct     *mediatype.MediaType
}

func newAggregatedBody(headers *httpheader.Block, content *buffer.Buffer, trailers *httpheader.Block) aggregatedBody {
	if headers == nil {
		headers = httpheader.Empty()
	}
	if content == nil {
		content = buffer.Empty()
	}
	if trailers == nil {
		trailers = httpheader.Empty()
	}
	return aggregatedBody{headers: headers, content: content, trailers: trailers}
}

// Headers 返回头块
func (m *aggregatedBody) Headers() *httpheader.Block {
	return m.headers
}

// Content 返回内容缓冲
func (m *aggregatedBody) Content() *buffer.Buffer {
	return m.content
}

// ContentBytes 返回内容字节视图
func (m *aggregatedBody) ContentBytes() []byte {
	return m.content.Bytes()
}

// Trailers 返回尾部头块
func (m *aggregatedBody) Trailers() *httpheader.Block {
	return m.trailers
}

// ContentType 返回解析后的媒体类型
//
// 首次调用时解析并缓存；content-type 头缺失或无法解析时返回 nil。
func (m *aggregatedBody) ContentType() *mediatype.MediaType {
	m.ctOnce.Do(func() {
		raw, ok := m.headers.ContentType()
		if !ok {
			return
		}
		if mt, err := mediatype.Parse(raw); err == nil {
			m.ct = mt
		}
	})
	return m.ct
}

// charset 返回 content-type 隐含的字符集（缺失时为空串，即 UTF-8）
func (m *aggregatedBody) charset() string {
	if mt := m.ContentType(); mt != nil {
		if cs, ok := mt.Charset(); ok {
			return cs
		}
	}
	return ""
}

// ContentString 按隐含字符集解码内容
//
// 字符集缺失、无法解析或不受支持时回退为 UTF-8 宽松解码
// （非法序列替换为 U+FFFD）。
func (m *aggregatedBody) ContentString() string {
	data := m.content.Bytes()
	s, err := mediatype.DecodeString(data, m.charset())
	if err != nil {
		s, _ = mediatype.DecodeString(data, "")
	}
	return s
}

// ContentASCII 解码后做 7-bit 投影
func (m *aggregatedBody) ContentASCII() string {
	s := m.ContentString()
	clean := true
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r > 0x7f {
			out = append(out, '?')
		} else {
			out = append(out, r)
		}
	}
	return string(out)
}

// IsEmpty 判断内容是否为空
func (m *aggregatedBody) IsEmpty() bool {
	return m.content.Len() == 0
}

// Retain 增加内容缓冲的引用
func (m *aggregatedBody) Retain() {
	m.content.Retain()
}

// Release 释放内容缓冲的引用
func (m *aggregatedBody) Release() error {
	return m.content.Release()
}

// ============================================================================
//                              AggregatedRequest
// ============================================================================

// AggregatedRequest 聚合后的完整请求
type AggregatedRequest struct {
	aggregatedBody
}

var _ AggregatedMessage = (*AggregatedRequest)(nil)

// AssembleRequest 从既有部件直接拼装请求（不做校验）
//
// 供聚合器与传输层使用：headers/trailers 来自已校验的头块，
// content 的引用随调用转移。应用侧构建请求请使用 NewRequestBuilder。
func AssembleRequest(headers *httpheader.Block, content *buffer.Buffer, trailers *httpheader.Block) *AggregatedRequest {
	return &AggregatedRequest{aggregatedBody: newAggregatedBody(headers, content, trailers)}
}

func (*AggregatedRequest) isAggregatedMessage() {}

// Method 返回请求方法（:method 伪头，缺失时为空串）
func (r *AggregatedRequest) Method() string {
	m, _ := r.headers.Method()
	return m
}

// Path 返回请求路径（:path 伪头，缺失时为空串）
func (r *AggregatedRequest) Path() string {
	p, _ := r.headers.Path()
	return p
}

// Authority 返回 :authority 伪头（缺失时为空串）
func (r *AggregatedRequest) Authority() string {
	a, _ := r.headers.Authority()
	return a
}

// Scheme 返回 :scheme 伪头（缺失时为空串）
func (r *AggregatedRequest) Scheme() string {
	s, _ := r.headers.Scheme()
	return s
}

// ============================================================================
//                              AggregatedResponse
// ============================================================================

// AggregatedResponse 聚合后的完整响应
type AggregatedResponse struct {
	aggregatedBody
}

var _ AggregatedMessage = (*AggregatedResponse)(nil)

// AssembleResponse 从既有部件直接拼装响应（不做校验）
//
// 语义与 AssembleRequest 一致。
func AssembleResponse(headers *httpheader.Block, content *buffer.Buffer, trailers *httpheader.Block) *AggregatedResponse {
	return &AggregatedResponse{aggregatedBody: newAggregatedBody(headers, content, trailers)}
}

func (*AggregatedResponse) isAggregatedMessage() {}

// Status 返回状态码（:status 伪头，缺失或非法时为 0）
func (r *AggregatedResponse) Status() int {
	code, _ := r.headers.Status()
	return code
}

// ============================================================================
//                              RequestBuilder
// ============================================================================

// RequestBuilder 聚合请求构建器
//
// 链式调用，首个校验错误被记录并由 Build 返回。
// Build 失败时构建器持有的内容缓冲会被释放。
type RequestBuilder struct {
	hb      *httpheader.Builder
	tb      *httpheader.Builder
	content *buffer.Buffer
	err     error
}

// NewRequestBuilder 创建请求构建器
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{hb: httpheader.NewBuilder()}
}

// Method 设置请求方法
func (b *RequestBuilder) Method(method string) *RequestBuilder {
	b.record(b.hb.SetMethod(method))
	return b
}

// Path 设置请求路径
func (b *RequestBuilder) Path(path string) *RequestBuilder {
	b.record(b.hb.SetPath(path))
	return b
}

// Authority 设置 :authority 伪头
func (b *RequestBuilder) Authority(authority string) *RequestBuilder {
	b.record(b.hb.SetAuthority(authority))
	return b
}

// Scheme 设置 :scheme 伪头
func (b *RequestBuilder) Scheme(scheme string) *RequestBuilder {
	b.record(b.hb.SetScheme(scheme))
	return b
}

// Header 追加一个头字段
func (b *RequestBuilder) Header(name, value string) *RequestBuilder {
	b.record(b.hb.Add(name, value))
	return b
}

// SetHeader 设置头字段的唯一值
func (b *RequestBuilder) SetHeader(name, value string) *RequestBuilder {
	b.record(b.hb.Set(name, value))
	return b
}

// Trailer 追加一个尾部头字段
func (b *RequestBuilder) Trailer(name, value string) *RequestBuilder {
	if b.tb == nil {
		b.tb = httpheader.NewBuilder()
	}
	b.record(b.tb.Add(name, value))
	return b
}

// Content 设置内容缓冲（引用随调用转移）
func (b *RequestBuilder) Content(content *buffer.Buffer) *RequestBuilder {
	if b.content != nil {
		_ = b.content.Release()
	}
	b.content = content
	return b
}

// ContentBytes 复制字节作为内容并设置 content-type
func (b *RequestBuilder) ContentBytes(mediaType string, data []byte) *RequestBuilder {
	if mediaType != "" {
		b.record(b.hb.SetContentType(mediaType))
	}
	return b.Content(buffer.Copy(data))
}

// ContentString 以字符串作为内容并设置 content-type
func (b *RequestBuilder) ContentString(mediaType, s string) *RequestBuilder {
	return b.ContentBytes(mediaType, []byte(s))
}

func (b *RequestBuilder) record(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

// Build 构建聚合请求
//
// 要求 :method 与 :path 均已设置；内容非空且未显式给出
// content-length 时自动补齐。
func (b *RequestBuilder) Build() (*AggregatedRequest, error) {
	if b.err != nil {
		b.discardContent()
		return nil, b.err
	}
	headers := b.hb.Build()
	if _, ok := headers.Method(); !ok {
		b.discardContent()
		return nil, fmt.Errorf("%w: request method not set", ErrInvalidArgument)
	}
	if _, ok := headers.Path(); !ok {
		b.discardContent()
		return nil, fmt.Errorf("%w: request path not set", ErrInvalidArgument)
	}

	content := b.content
	if content == nil {
		content = buffer.Empty()
	}
	b.content = nil
	if content.Len() > 0 && !headers.Contains(httpheader.NameContentLength) {
		nb := headers.ToBuilder()
		if err := nb.SetContentLength(int64(content.Len())); err != nil {
			_ = content.Release()
			return nil, err
		}
		headers = nb.Build()
	}
	var trailers *httpheader.Block
	if b.tb != nil {
		trailers = b.tb.Build()
	}
	return AssembleRequest(headers, content, trailers), nil
}

func (b *RequestBuilder) discardContent() {
	if b.content != nil {
		_ = b.content.Release()
		b.content = nil
	}
}

// ============================================================================
//                              ResponseBuilder
// ============================================================================

// ResponseBuilder 聚合响应构建器
//
// 链式调用，语义与 RequestBuilder 一致，Build 要求 :status 已设置。
type ResponseBuilder struct {
	hb      *httpheader.Builder
	tb      *httpheader.Builder
	content *buffer.Buffer
	err     error
}

// NewResponseBuilder 创建响应构建器
func NewResponseBuilder() *ResponseBuilder {
	return &ResponseBuilder{hb: httpheader.NewBuilder()}
}

// Status 设置状态码
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.record(b.hb.SetStatus(code))
	return b
}

// Header 追加一个头字段
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.record(b.hb.Add(name, value))
	return b
}

// SetHeader 设置头字段的唯一值
func (b *ResponseBuilder) SetHeader(name, value string) *ResponseBuilder {
	b.record(b.hb.Set(name, value))
	return b
}

// Trailer 追加一个尾部头字段
func (b *ResponseBuilder) Trailer(name, value string) *ResponseBuilder {
	if b.tb == nil {
		b.tb = httpheader.NewBuilder()
	}
	b.record(b.tb.Add(name, value))
	return b
}

// Content 设置内容缓冲（引用随调用转移）
func (b *ResponseBuilder) Content(content *buffer.Buffer) *ResponseBuilder {
	if b.content != nil {
		_ = b.content.Release()
	}
	b.content = content
	return b
}

// ContentBytes 复制字节作为内容并设置 content-type
func (b *ResponseBuilder) ContentBytes(mediaType string, data []byte) *ResponseBuilder {
	if mediaType != "" {
		b.record(b.hb.SetContentType(mediaType))
	}
	return b.Content(buffer.Copy(data))
}

// ContentString 以字符串作为内容并设置 content-type
func (b *ResponseBuilder) ContentString(mediaType, s string) *ResponseBuilder {
	return b.ContentBytes(mediaType, []byte(s))
}

func (b *ResponseBuilder) record(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

// Build 构建聚合响应
func (b *ResponseBuilder) Build() (*AggregatedResponse, error) {
	if b.err != nil {
		b.discardContent()
		return nil, b.err
	}
	headers := b.hb.Build()
	if _, ok := headers.Status(); !ok {
		b.discardContent()
		return nil, fmt.Errorf("%w: response status not set", ErrInvalidArgument)
	}

	content := b.content
	if content == nil {
		content = buffer.Empty()
	}
	b.content = nil
	if content.Len() > 0 && !headers.Contains(httpheader.NameContentLength) {
		nb := headers.ToBuilder()
		if err := nb.SetContentLength(int64(content.Len())); err != nil {
			_ = content.Release()
			return nil, err
		}
		headers = nb.Build()
	}
	var trailers *httpheader.Block
	if b.tb != nil {
		trailers = b.tb.Build()
	}
	return AssembleResponse(headers, content, trailers), nil
}

func (b *ResponseBuilder) discardContent() {
	if b.content != nil {
		_ = b.content.Release()
		b.content = nil
	}
}

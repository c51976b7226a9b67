package aggregate

import (
	"context"
	"errors"
	"sync"

	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/buffer"
	"github.com/runnel/go-runnel/pkg/lib/httpheader"
	"github.com/runnel/go-runnel/pkg/lib/log"
	"github.com/runnel/go-runnel/pkg/types"
)

var logger = log.Logger("core/aggregate")

// ============================================================================
// 错误定义
// ============================================================================

var (
	// ErrUnexpectedKind 聚合结果与期望的消息类别不符
	ErrUnexpectedKind = errors.New("aggregated message kind mismatch")
)

// 默认参数
const (
	// DefaultMaxContentLength 默认内容上限（10 MiB）
	DefaultMaxContentLength int64 = 10 << 20
	// DefaultWindow 默认读取窗口
	DefaultWindow int64 = 4
)

// 接口实现检查
var (
	_ interfaces.Aggregator      = (*Service)(nil)
	_ interfaces.AggregateFuture = (*Future)(nil)
)

// ============================================================================
// Service 实现
// ============================================================================

// Service 聚合服务
//
// 无状态，可并发使用；每次 Aggregate 启动独立的消费 goroutine。
type Service struct {
	alloc            interfaces.Allocator
	recorder         interfaces.Recorder
	maxContentLength int64
	window           int64
	skipPrecheck     bool
}

// NewService 创建聚合服务
func NewService(alloc interfaces.Allocator, opts ...Option) *Service {
	o := buildOptions(opts)
	return &Service{
		alloc:            alloc,
		recorder:         o.recorder,
		maxContentLength: o.maxContentLength,
		window:           o.window,
		skipPrecheck:     o.skipPrecheck,
	}
}

// Aggregate 启动一次聚合，立即返回 Future
func (s *Service) Aggregate(ctx context.Context, msg interfaces.StreamMessage, opts ...interfaces.AggregateOpt) interfaces.AggregateFuture {
	settings := interfaces.AggregateSettings{
		MaxContentLength:   s.maxContentLength,
		Window:             s.window,
		SkipLengthPrecheck: s.skipPrecheck,
	}
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.MaxContentLength <= 0 {
		settings.MaxContentLength = DefaultMaxContentLength
	}
	if settings.Window <= 0 {
		settings.Window = DefaultWindow
	}

	f := newFuture()
	sub, err := msg.Subscribe(interfaces.WithInitialDemand(settings.Window))
	if err != nil {
		f.fail(err)
		return f
	}

	if s.recorder != nil {
		s.recorder.AggregationStarted()
	}
	go s.run(ctx, msg, sub, settings, f)
	return f
}

// AggregateRequest 聚合并断言结果为请求
func (s *Service) AggregateRequest(ctx context.Context, msg interfaces.StreamMessage, opts ...interfaces.AggregateOpt) (*types.AggregatedRequest, error) {
	res, err := s.Aggregate(ctx, msg, opts...).Wait(ctx)
	if err != nil {
		return nil, err
	}
	req, ok := res.(*types.AggregatedRequest)
	if !ok {
		_ = res.Release()
		return nil, ErrUnexpectedKind
	}
	return req, nil
}

// AggregateResponse 聚合并断言结果为响应
func (s *Service) AggregateResponse(ctx context.Context, msg interfaces.StreamMessage, opts ...interfaces.AggregateOpt) (*types.AggregatedResponse, error) {
	res, err := s.Aggregate(ctx, msg, opts...).Wait(ctx)
	if err != nil {
		return nil, err
	}
	resp, ok := res.(*types.AggregatedResponse)
	if !ok {
		_ = res.Release()
		return nil, ErrUnexpectedKind
	}
	return resp, nil
}

// run 消费事件并拼装结果
func (s *Service) run(ctx context.Context, msg interfaces.StreamMessage, sub interfaces.Subscription,
	settings interfaces.AggregateSettings, f *Future) {

	var (
		headers  *httpheader.Block
		trailers *httpheader.Block
		chunks   []*buffer.Buffer
		total    int64
	)
	releaseChunks := func() {
		for _, c := range chunks {
			_ = c.Release()
		}
		chunks = nil
	}
	abort := func(err error) {
		sub.Cancel()
		releaseChunks()
		f.fail(err)
		if s.recorder != nil {
			s.recorder.AggregationFailed()
		}
	}

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				releaseChunks()
				f.fail(types.ErrCancelled)
				if s.recorder != nil {
					s.recorder.AggregationFailed()
				}
				return
			}

			switch e := ev.(type) {
			case types.HeadersEvent:
				headers = e.Headers
				if !settings.SkipLengthPrecheck {
					if cl := headers.ContentLength(); cl > settings.MaxContentLength {
						logger.Debug("声明长度超限，提前失败",
							"stream", log.ShortID(msg.ID(), 8),
							"declared", cl,
							"limit", settings.MaxContentLength)
						abort(&types.ContentTooLargeError{Limit: settings.MaxContentLength, Actual: cl})
						return
					}
				}

			case types.DataEvent:
				total += int64(e.Data.Len())
				if total > settings.MaxContentLength {
					_ = e.Data.Release()
					abort(&types.ContentTooLargeError{Limit: settings.MaxContentLength, Actual: total})
					return
				}
				chunks = append(chunks, e.Data)

			case types.TrailersEvent:
				trailers = e.Trailers

			case types.EndEvent:
				content := s.assembleContent(chunks, total)
				chunks = nil
				f.complete(seal(headers, content, trailers))
				if s.recorder != nil {
					s.recorder.AggregationCompleted(total)
				}
				return

			case types.ErrorEvent:
				releaseChunks()
				f.fail(e.Cause)
				if s.recorder != nil {
					s.recorder.AggregationFailed()
				}
				return
			}
			sub.Request(1)

		case <-ctx.Done():
			abort(ctx.Err())
			return
		}
	}
}

// assembleContent 把数据块按序拷贝进一块连续缓冲并释放原块
func (s *Service) assembleContent(chunks []*buffer.Buffer, total int64) *buffer.Buffer {
	content := s.alloc.Acquire(int(total))
	dst := content.Bytes()
	off := 0
	for _, c := range chunks {
		off += copy(dst[off:], c.Bytes())
		_ = c.Release()
	}
	return content
}

// seal 按伪头形态封装为请求或响应
func seal(headers *httpheader.Block, content *buffer.Buffer, trailers *httpheader.Block) types.AggregatedMessage {
	if headers == nil {
		headers = httpheader.Empty()
	}
	if headers.IsResponse() {
		return types.AssembleResponse(headers, content, trailers)
	}
	return types.AssembleRequest(headers, content, trailers)
}

// ============================================================================
// Future 实现
// ============================================================================

// Future 聚合结果句柄
//
// 结果写入发生在 done 关闭之前，读取以 done 为栅栏，无需额外同步。
type Future struct {
	done chan struct{}
	once sync.Once
	msg  types.AggregatedMessage
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(msg types.AggregatedMessage) {
	f.once.Do(func() {
		f.msg = msg
		close(f.done)
	})
}

func (f *Future) fail(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done 返回聚合完成时关闭的通道
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result 返回聚合结果，未完成时返回 (nil, ErrNotDone)
func (f *Future) Result() (types.AggregatedMessage, error) {
	select {
	case <-f.done:
		return f.msg, f.err
	default:
		return nil, types.ErrNotDone
	}
}

// Wait 阻塞等待聚合完成
//
// ctx 结束只解除本次等待，不中止聚合本身；中止聚合用 Aggregate
// 传入的 ctx。
func (f *Future) Wait(ctx context.Context) (types.AggregatedMessage, error) {
	select {
	case <-f.done:
		return f.msg, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/runnel/go-runnel"
	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/httpheader"
	"github.com/runnel/go-runnel/pkg/types"
)

// ============================================================================
//                              管道自检
// ============================================================================
//
// 每项自检走一条完整的生产-消费管道，校验内容逐字节一致。
// 自检覆盖聚合、流式写入、管道转发、复制分发和内容解码五条路径。

// check 一项自检
type check struct {
	name string
	run  func(ctx context.Context, core *runnel.Core, payload []byte) error
}

var checks = []check{
	{"聚合往返", checkAggregateRoundTrip},
	{"流式写入", checkStreamingWrite},
	{"管道转发", checkPipe},
	{"复制分发", checkDuplicate},
	{"内容解码", checkDecoding},
}

// runChecks 依次执行全部自检，返回未通过的项数
func runChecks(ctx context.Context, core *runnel.Core) (int, error) {
	payload := makePayload(*payloadSize)
	fmt.Printf("自检载荷 %s，分块数 %d\n\n", formatBytes(int64(len(payload))), *chunkCount)

	failed := 0
	for _, c := range checks {
		start := time.Now()
		err := c.run(ctx, core, payload)
		elapsed := time.Since(start).Round(time.Microsecond)

		if err != nil {
			if ctx.Err() != nil {
				return failed, ctx.Err()
			}
			failed++
			fmt.Printf("  ✗ %s (%v): %v\n", c.name, elapsed, err)
			logger.Error("自检未通过", "check", c.name, "error", err)
			continue
		}
		fmt.Printf("  ✓ %s (%v)\n", c.name, elapsed)
	}
	fmt.Println()
	return failed, nil
}

// makePayload 生成确定性内容的自检载荷
func makePayload(size int) []byte {
	if size < 1 {
		size = 1
	}
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}
	return payload
}

// checkAggregateRoundTrip 聚合往返：单块请求 → 聚合 → 内容一致
func checkAggregateRoundTrip(ctx context.Context, core *runnel.Core, payload []byte) error {
	msg, err := runnel.RequestOfBytes("POST", "/self-check", "application/octet-stream", payload)
	if err != nil {
		return err
	}

	req, err := core.AggregateRequest(ctx, msg)
	if err != nil {
		return err
	}
	defer func() { _ = req.Release() }()

	if !bytes.Equal(req.ContentBytes(), payload) {
		return fmt.Errorf("内容不一致: 期望 %d 字节，实际 %d 字节", len(payload), len(req.ContentBytes()))
	}
	return nil
}

// checkStreamingWrite 流式写入：分块写入 → 聚合重组 → 内容一致
func checkStreamingWrite(ctx context.Context, core *runnel.Core, payload []byte) error {
	headers, err := httpheader.Of(":method", "PUT", ":path", "/self-check/stream")
	if err != nil {
		return err
	}

	msg, w, err := runnel.StreamingRequest(headers)
	if err != nil {
		return err
	}

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- writeChunks(ctx, core, w, payload, *chunkCount)
	}()

	req, err := core.AggregateRequest(ctx, msg)
	if err != nil {
		return err
	}
	defer func() { _ = req.Release() }()

	if err := <-writeErr; err != nil {
		return err
	}
	if !bytes.Equal(req.ContentBytes(), payload) {
		return fmt.Errorf("分块重组后内容不一致")
	}
	return nil
}

// writeChunks 把载荷切成 n 块写入流
func writeChunks(ctx context.Context, core *runnel.Core, w *runnel.StreamingWriter, payload []byte, n int) error {
	if n < 1 {
		n = 1
	}
	size := (len(payload) + n - 1) / n
	for off := 0; off < len(payload); off += size {
		end := off + size
		if end > len(payload) {
			end = len(payload)
		}
		buf := core.Acquire(end - off)
		copy(buf.Bytes(), payload[off:end])
		if err := w.WriteData(ctx, buf); err != nil {
			return err
		}
	}
	return w.Close()
}

// checkPipe 管道转发：源流 → Pipe → 目的流 → 聚合 → 内容一致
func checkPipe(ctx context.Context, core *runnel.Core, payload []byte) error {
	src, err := runnel.ResponseOfBytes(200, "application/octet-stream", payload)
	if err != nil {
		return err
	}

	dst, w := core.NewResponseStream()
	pipeErr := make(chan error, 1)
	go func() {
		pipeErr <- core.Pipe(ctx, src, w)
	}()

	resp, err := core.AggregateResponse(ctx, dst)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Release() }()

	if err := <-pipeErr; err != nil {
		return err
	}
	if resp.Status() != 200 {
		return fmt.Errorf("状态码不一致: %d", resp.Status())
	}
	if !bytes.Equal(resp.ContentBytes(), payload) {
		return fmt.Errorf("转发后内容不一致")
	}
	return nil
}

// checkDuplicate 复制分发：一条源流复制给两个下游，各自聚合一致
func checkDuplicate(ctx context.Context, core *runnel.Core, payload []byte) error {
	src, err := runnel.ResponseOfBytes(200, "application/octet-stream", payload)
	if err != nil {
		return err
	}

	dup, err := core.NewDuplicator(src)
	if err != nil {
		return err
	}
	defer func() { _ = dup.Close() }()

	for i := 0; i < 2; i++ {
		child, err := dup.Duplicate()
		if err != nil {
			return err
		}
		resp, err := core.AggregateResponse(ctx, child)
		if err != nil {
			return fmt.Errorf("下游 %d 聚合失败: %w", i, err)
		}
		equal := bytes.Equal(resp.ContentBytes(), payload)
		_ = resp.Release()
		if !equal {
			return fmt.Errorf("下游 %d 内容不一致", i)
		}
	}
	return nil
}

// checkDecoding 内容解码：gzip 压缩的请求 → 解码流 → 聚合 → 原文一致
func checkDecoding(ctx context.Context, core *runnel.Core, payload []byte) error {
	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	if _, err := zw.Write(payload); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	agg, err := types.NewRequestBuilder().
		Method("POST").
		Path("/self-check/encoded").
		Header("content-encoding", "gzip").
		ContentBytes("application/octet-stream", compressed.Bytes()).
		Build()
	if err != nil {
		return err
	}

	decoded, err := core.DecodingStream(ctx, runnel.FromAggregatedRequest(agg))
	if err != nil {
		return err
	}

	req, err := core.AggregateRequest(ctx, decoded)
	if err != nil {
		return err
	}
	defer func() { _ = req.Release() }()

	if !bytes.Equal(req.ContentBytes(), payload) {
		return fmt.Errorf("解码后内容不一致: 期望 %d 字节，实际 %d 字节", len(payload), len(req.ContentBytes()))
	}
	return nil
}

// ============================================================================
//                              观测输出
// ============================================================================

// printMetricsSnapshot 打印指标快照
func printMetricsSnapshot(s interfaces.MetricsSnapshot) {
	fmt.Println("指标快照:")
	fmt.Printf("  流:   创建 %d / 完成 %d / 取消 %d\n", s.Streams.Opened, s.Streams.Completed, s.Streams.Cancelled)
	fmt.Printf("  事件: 投递 %d 个，载荷 %s\n", s.Streams.EventsDelivered, formatBytes(s.Streams.BytesDelivered))
	fmt.Printf("  聚合: 启动 %d / 成功 %d / 失败 %d，内容 %s\n",
		s.Aggregations.Started, s.Aggregations.Completed, s.Aggregations.Failed, formatBytes(s.Aggregations.BytesAggregated))
	fmt.Printf("  缓冲: 发出 %d 块（%s），回收 %d 块\n",
		s.Buffers.Acquired, formatBytes(s.Buffers.BytesAcquired), s.Buffers.Recycled)
	fmt.Println()
}

// printLeakReport 打印缓冲泄漏报告
func printLeakReport(core *runnel.Core) {
	live := core.LeakRecords()
	violations := core.LeakViolations()

	if len(live) == 0 && len(violations) == 0 {
		fmt.Println("泄漏检测: 无存活缓冲，无违规 ✓")
		fmt.Println()
		return
	}

	fmt.Printf("泄漏检测: %d 个存活缓冲，%d 次违规\n", len(live), len(violations))
	for _, r := range live {
		fmt.Printf("  存活: %s %d 字节，分配于 %s\n", r.ID, r.Size, r.AcquiredAt.Format(time.RFC3339))
	}
	for _, v := range violations {
		fmt.Printf("  违规: #%d %v\n", v.Seq, v.Kind)
	}
	fmt.Println()
}

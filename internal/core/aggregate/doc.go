// Package aggregate 实现流到聚合消息的拼装服务
//
// Service 订阅整条消息流，把事件序列收拢为单个不可变的
// types.AggregatedRequest / AggregatedResponse：数据块按到达顺序拷贝进
// 一块来自分配器的连续缓冲，原块逐一释放。聚合不阻塞调用方，结果经由
// Future 异步交付。
//
// # 失败语义
//
//   - 累计内容超过上限：以 ContentTooLargeError 失败，取消上游订阅，
//     已累积的缓冲全部释放，不返回部分结果。头块声明的 content-length
//     超限时提前失败（可用 WithSkipLengthPrecheck 关闭）。
//   - 上游 ErrorEvent：原因原样传递。
//   - ctx 取消：订阅被取消，Future 以 ctx.Err() 失败。
//
// # 用法
//
//	svc := aggregate.NewService(allocator)
//	future := svc.Aggregate(ctx, msg)
//	result, err := future.Wait(ctx)
//
// 成功后聚合内容的引用转移给调用方，由调用方 Release。
package aggregate

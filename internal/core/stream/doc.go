// Package stream 实现需求驱动的消息流引擎
//
// 本包是 interfaces.StreamMessage / StreamWriter / Subscription 的核心实现：
// 单生产者、单订阅者，事件按需求量（demand）投递，为生产与消费速率不匹配
// 的场景提供背压。
//
// # 核心模型
//
//   - Message：互斥锁保护的状态机，持有已写入未投递的事件队列。队列长度
//     受需求量约束——超出需求量的写入被拒绝（ErrNoDemand），队列因此
//     永远不会超过订阅者的授权。
//   - Writer：生产侧句柄。Emit 即时返回；WriteHeaders/WriteData/
//     WriteTrailers 在需求量不足时阻塞等待（ctx 感知）。
//   - 投递泵：Subscribe 时启动的 goroutine，把队列事件按写入顺序转发到
//     订阅通道，终止事件投递后关闭通道。
//
// # 事件文法
//
//	Headers → Data* → Trailers? → (End | Error)
//
// Error 允许出现在任意位置（含 Headers 之前）；End 只能出现在 Headers
// 之后。终止事件不消耗需求量。
//
// # 用法
//
//	msg, w := stream.New()
//
//	go func() {
//		ctx := context.Background()
//		_ = w.WriteHeaders(ctx, headers)
//		_ = w.WriteData(ctx, chunk)
//		_ = w.Close()
//	}()
//
//	sub, _ := msg.Subscribe(interfaces.WithInitialDemand(4))
//	for ev := range sub.Events() {
//		switch e := ev.(type) {
//		case types.DataEvent:
//			process(e.Data)
//			_ = e.Data.Release()
//			sub.Request(1)
//		}
//	}
//
// # 装饰器
//
// WithTimeout 为流附加空闲超时（三种模式，时钟可注入）；
// NewDuplicator 把一条上游流复制给多个可迟到的下游订阅者。
package stream

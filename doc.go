// Package runnel 提供传输无关的异步 HTTP 消息核心
//
// Runnel 围绕一条「消息流」组织 HTTP 请求/响应的生产与消费：
// 流上依次传播头块、数据块、尾部头块与终止事件，投递节奏由
// 订阅者声明的需求量驱动，生产侧因此天然获得背压。
//
// # 核心概念
//
// Runnel 围绕四个核心概念构建：
//
//   - StreamMessage: 异步消息流，一条流承载一条 HTTP 消息
//   - StreamWriter: 流的生产侧句柄，受需求量约束写入事件
//   - Aggregator: 把整条流拼装为单个聚合消息（完整请求/响应）
//   - Buffer: 引用计数的数据块载体，支持池化复用与泄漏检测
//
// # 快速开始
//
//	import "github.com/runnel/go-runnel"
//
//	// 1. 创建并启动核心
//	core, err := runnel.Start(ctx,
//	    runnel.WithPreset(runnel.PresetServer),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer core.Close()
//
//	// 2. 生产一条响应流
//	msg, w := core.NewResponseStream()
//	go func() {
//	    headers, _ := httpheader.Of(":status", "200", "content-type", "text/plain")
//	    w.WriteHeaders(ctx, headers)
//	    buf := core.Acquire(5)
//	    copy(buf.Bytes(), "hello")
//	    w.WriteData(ctx, buf)
//	    w.Close()
//	}()
//
//	// 3. 聚合为完整消息
//	resp, err := core.AggregateResponse(ctx, msg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer resp.Release()
//	fmt.Println(resp.Status(), resp.ContentString())
//
// # 事件文法
//
// 一条流上的合法事件序列：
//
//	Headers → Data* → Trailers? → (End | Error)
//
// Error 允许在任意位置出现（对应头块到达前的传输失败）；
// 终止事件不受需求量约束，保证失败与完成总能及时送达。
//
// # API 层次结构
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│  入口层                                                          │
//	│  ┌─────────┐                                                     │
//	│  │  Core   │  runnel.New() / runnel.Start()                     │
//	│  └─────────┘                                                     │
//	├─────────────────────────────────────────────────────────────────┤
//	│  流层                                                            │
//	│  ┌───────────────┐ ┌──────────────┐                             │
//	│  │ StreamMessage │ │ StreamWriter │  core.NewStream()           │
//	│  └───────────────┘ └──────────────┘                             │
//	├─────────────────────────────────────────────────────────────────┤
//	│  服务层                                                          │
//	│  ┌────────────┐ ┌──────────┐ ┌────────────┐                     │
//	│  │ Aggregator │ │ Encoding │ │ Duplicator │                     │
//	│  └────────────┘ └──────────┘ └────────────┘                     │
//	│  core.Aggregate() / core.DecodingStream() / core.NewDuplicator()│
//	├─────────────────────────────────────────────────────────────────┤
//	│  资源层                                                          │
//	│  ┌───────────┐ ┌─────────┐                                      │
//	│  │ Allocator │ │ Metrics │  core.Acquire() / core.Metrics()     │
//	│  └───────────┘ └─────────┘                                      │
//	└─────────────────────────────────────────────────────────────────┘
//
// # 文件组织
//
// 本包按功能领域组织代码：
//
//	runnel/
//	├── runnel.go             # 版本信息
//	├── core.go               # Core 门面：生命周期、流创建、聚合、装饰
//	├── messages.go           # 固定消息与流式写入的快捷构造
//	├── options.go            # WithXxx 配置选项
//	├── presets.go            # 预设配置（Server、Proxy、Debug、Minimal）
//	├── fx.go                 # 内部模块装配
//	└── errors.go             # 错误定义
//
// # 预设配置
//
// Runnel 提供四种预设配置：
//
//	runnel.PresetServer   服务端优化，大池化档位与高吞吐窗口
//	runnel.PresetProxy    代理优化，流式透传与端到端背压
//	runnel.PresetDebug    调试配置，泄漏检测与指标全开
//	runnel.PresetMinimal  最小配置，仅用于测试
//
// # 缓冲所有权
//
// 数据块缓冲采用引用计数管理：
//
//   - 写入成功后缓冲引用转移给流，生产侧不再持有
//   - 事件投递后缓冲引用转移给订阅者，处理完毕负责 Release
//   - 取消订阅或中止流时，未投递事件的缓冲由流统一释放
//   - 聚合成功后原数据块逐一释放，调用方只持有拼装后的内容
//
// 启用泄漏检测（WithLeakDetection(true) 或 debug 预设）后，
// 重复释放、释放后使用等违规会被记录并可经指标观测。
//
// # 更多资源
//
//   - 使用示例: examples/
//
// # 版本
//
// 当前版本: v0.1.0
//
// 更多信息请访问: https://github.com/runnel/go-runnel
package runnel

// Package metrics 实现指标收集
//
// Collector 用原子计数器累计流、聚合与缓冲三组指标，实现
// interfaces.Metrics：流引擎、聚合器与分配器通过 Recorder 钩子写入，
// Snapshot 提供一致性读取，RateMeter 维护投递速率的滑动窗口平均。
//
// Collector 同时实现 prometheus.Collector：注册进 Registry 后按
// 命名空间（默认 runnel）导出计数器，事件按类别、流终态按状态
// 打维度标签。钩子全部为无锁原子操作，可在投递热路径直接调用。
package metrics

// Package alloc 实现缓冲分配器
//
// 提供两种 interfaces.Allocator 实现：
//
//   - HeapAllocator: 每次 Acquire 直接堆分配，依赖 GC 回收，
//     适合低吞吐或调试场景
//   - PooledAllocator: 按档位池化底层存储（sync.Pool），
//     缓冲引用计数归零时存储回池复用，适合高吞吐数据面
//
// 两者均可挂接 LeakDetector：检测器登记每个发出的缓冲，
// 记录重复释放/释放后使用等违规，并能列出仍未归还的缓冲。
//
// # 使用示例
//
//	det := alloc.NewLeakDetector(alloc.WithVerbose(true))
//	a := alloc.NewPooled(alloc.WithDetector(det))
//	buf := a.Acquire(4096)
//	defer buf.Release()
package alloc

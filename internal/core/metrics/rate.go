package metrics

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultRateWindow 速率滑动窗口的默认宽度
const DefaultRateWindow = 60 * time.Second

// ============================================================================
// RateMeter - 滑动窗口速率计
// ============================================================================

// RateMeter 按 1 秒分桶的滑动窗口速率计
//
// Rate 返回窗口内的平均速率（字节/秒）。读取与写入都会先把桶环
// 推进到当前秒，长时间无写入时读到的是归零后的真实值。
type RateMeter struct {
	mu       sync.Mutex
	clk      clock.Clock
	buckets  []int64
	idx      int
	lastTick time.Time
}

// NewRateMeter 创建速率计，窗口向下取整到秒，最小 1 秒
func NewRateMeter(window time.Duration) *RateMeter {
	return newRateMeter(window, clock.New())
}

func newRateMeter(window time.Duration, clk clock.Clock) *RateMeter {
	n := int(window / time.Second)
	if n <= 0 {
		n = 1
	}
	return &RateMeter{
		clk:      clk,
		buckets:  make([]int64, n),
		lastTick: clk.Now(),
	}
}

// Add 累计 n 字节到当前秒的桶
func (r *RateMeter) Add(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advance()
	r.buckets[r.idx] += n
}

// Rate 返回窗口平均速率（字节/秒）
func (r *RateMeter) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advance()
	var total int64
	for _, v := range r.buckets {
		total += v
	}
	return float64(total) / float64(len(r.buckets))
}

// Reset 清空全部桶
func (r *RateMeter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.buckets {
		r.buckets[i] = 0
	}
	r.idx = 0
	r.lastTick = r.clk.Now()
}

// advance 把桶环推进到当前秒，清空途经的桶
//
// lastTick 沿秒格推进而非直接取 now，避免长期运行下的漂移。
func (r *RateMeter) advance() {
	elapsed := int(r.clk.Now().Sub(r.lastTick) / time.Second)
	if elapsed <= 0 {
		return
	}
	if elapsed >= len(r.buckets) {
		for i := range r.buckets {
			r.buckets[i] = 0
		}
		r.idx = 0
	} else {
		for i := 0; i < elapsed; i++ {
			r.idx = (r.idx + 1) % len(r.buckets)
			r.buckets[r.idx] = 0
		}
	}
	r.lastTick = r.lastTick.Add(time.Duration(elapsed) * time.Second)
}

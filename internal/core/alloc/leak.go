package alloc

import (
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/runnel/go-runnel/pkg/interfaces"
	"github.com/runnel/go-runnel/pkg/lib/buffer"
	"github.com/runnel/go-runnel/pkg/lib/log"
)

// LeakRecord 一个在外缓冲的登记信息
type LeakRecord struct {
	// ID 本次分配的唯一标识
	ID string
	// Seq 缓冲全局序号
	Seq uint64
	// Size 分配时的字节数
	Size int
	// AcquiredAt 分配时间
	AcquiredAt time.Time
	// Stack 分配点调用栈（仅详细模式）
	Stack string
}

// Violation 一次引用计数违规的记录
type Violation struct {
	// Kind 违规类别
	Kind buffer.ViolationKind
	// Seq 缓冲全局序号
	Seq uint64
	// At 违规时间
	At time.Time
	// Stack 违规点调用栈（仅详细模式）
	Stack string
}

// LeakDetector 缓冲泄漏检测器
//
// 实现 buffer.Tracker：登记分配器发出的每个缓冲，归零时注销；
// 记录重复释放/释放后使用等违规。挂接后有固定开销，
// 用于调试与测试环境，生产默认关闭。
type LeakDetector struct {
	mu          sync.Mutex
	live        map[uint64]LeakRecord
	violations  []Violation
	verbose     bool
	sampleEvery uint64
	recorder    interfaces.Recorder
}

var _ buffer.Tracker = (*LeakDetector)(nil)

// DetectorOption 检测器选项函数类型
type DetectorOption func(*LeakDetector)

// WithVerbose 开启详细模式，登记与违规时捕获调用栈
func WithVerbose(v bool) DetectorOption {
	return func(d *LeakDetector) {
		d.verbose = v
	}
}

// WithSampleEvery 设置采样间隔，每 n 次分配登记一次
//
// 按缓冲全局序号取模采样，同一缓冲的登记与注销始终一致。
// n <= 1 时登记全部分配。违规记录不受采样影响。
func WithSampleEvery(n int) DetectorOption {
	return func(d *LeakDetector) {
		if n > 1 {
			d.sampleEvery = uint64(n)
		}
	}
}

// WithDetectorRecorder 挂接指标记录器
func WithDetectorRecorder(rec interfaces.Recorder) DetectorOption {
	return func(d *LeakDetector) {
		d.recorder = rec
	}
}

// NewLeakDetector 创建泄漏检测器
func NewLeakDetector(opts ...DetectorOption) *LeakDetector {
	d := &LeakDetector{
		live: make(map[uint64]LeakRecord),
	}
	for _, apply := range opts {
		apply(d)
	}
	return d
}

// Track 登记一个新发出的缓冲
func (d *LeakDetector) Track(b *buffer.Buffer) {
	if d.sampleEvery > 1 && b.Seq()%d.sampleEvery != 0 {
		return
	}
	rec := LeakRecord{
		ID:         uuid.New().String(),
		Seq:        b.Seq(),
		Size:       b.Len(),
		AcquiredAt: time.Now(),
	}
	if d.verbose {
		rec.Stack = string(debug.Stack())
	}
	d.mu.Lock()
	d.live[rec.Seq] = rec
	d.mu.Unlock()
}

// OnRetain 实现 buffer.Tracker
func (d *LeakDetector) OnRetain(b *buffer.Buffer) {}

// OnRelease 实现 buffer.Tracker，计数归零时注销登记
func (d *LeakDetector) OnRelease(b *buffer.Buffer, remaining int32) {
	if remaining != 0 {
		return
	}
	d.mu.Lock()
	delete(d.live, b.Seq())
	d.mu.Unlock()
}

// OnViolation 实现 buffer.Tracker，记录违规并告警
func (d *LeakDetector) OnViolation(b *buffer.Buffer, kind buffer.ViolationKind) {
	v := Violation{
		Kind: kind,
		Seq:  b.Seq(),
		At:   time.Now(),
	}
	if d.verbose {
		v.Stack = string(debug.Stack())
	}
	d.mu.Lock()
	d.violations = append(d.violations, v)
	d.mu.Unlock()

	logger.Error("检测到引用计数违规",
		"kind", kind.String(),
		"seq", b.Seq())
	if d.recorder != nil {
		d.recorder.LeakFlagged()
	}
}

// Live 返回仍在外的缓冲登记快照
func (d *LeakDetector) Live() []LeakRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]LeakRecord, 0, len(d.live))
	for _, rec := range d.live {
		out = append(out, rec)
	}
	return out
}

// LiveCount 返回仍在外的缓冲数量
func (d *LeakDetector) LiveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// Violations 返回已记录的违规快照
func (d *LeakDetector) Violations() []Violation {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Violation, len(d.violations))
	copy(out, d.violations)
	return out
}

// Report 将在外缓冲逐条告警（通常在关闭时调用）
//
// 返回在外缓冲数量，为 0 表示无泄漏嫌疑。
func (d *LeakDetector) Report() int {
	live := d.Live()
	for _, rec := range live {
		logger.Warn("缓冲疑似泄漏",
			"id", log.ShortID(rec.ID, 8),
			"seq", rec.Seq,
			"size", rec.Size,
			"age", time.Since(rec.AcquiredAt).String())
		if d.recorder != nil {
			d.recorder.LeakFlagged()
		}
	}
	return len(live)
}

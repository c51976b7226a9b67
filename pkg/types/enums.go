package types

// ============================================================================
//                              StreamState - 流状态
// ============================================================================

// StreamState 流的生命周期状态
type StreamState int

const (
	// StreamNotSubscribed 初始状态，尚无订阅者
	StreamNotSubscribed StreamState = iota
	// StreamSubscribed 已有订阅者，事件按需求量投递中
	StreamSubscribed
	// StreamCompleted 已正常或异常终止（End 或 Error）
	StreamCompleted
	// StreamCancelled 订阅者取消或持有方中止
	StreamCancelled
)

// String 返回流状态的字符串表示
func (s StreamState) String() string {
	switch s {
	case StreamNotSubscribed:
		return "not_subscribed"
	case StreamSubscribed:
		return "subscribed"
	case StreamCompleted:
		return "completed"
	case StreamCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal 判断状态是否为终态
func (s StreamState) IsTerminal() bool {
	return s == StreamCompleted || s == StreamCancelled
}

// ============================================================================
//                              EventKind - 事件类别
// ============================================================================

// EventKind 消息事件类别
type EventKind int

const (
	// KindHeaders 头块事件
	KindHeaders EventKind = iota
	// KindData 数据块事件
	KindData
	// KindTrailers 尾部头块事件
	KindTrailers
	// KindEnd 正常终止事件
	KindEnd
	// KindError 异常终止事件
	KindError
)

// String 返回事件类别的字符串表示
func (k EventKind) String() string {
	switch k {
	case KindHeaders:
		return "headers"
	case KindData:
		return "data"
	case KindTrailers:
		return "trailers"
	case KindEnd:
		return "end"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// IsTerminal 判断事件类别是否终止流
func (k EventKind) IsTerminal() bool {
	return k == KindEnd || k == KindError
}

package types

// Completion 流的终态信息
//
// State 为 StreamCompleted 或 StreamCancelled；
// Err 在正常 End 终止时为 nil，异常终止时为生产侧原因，
// 取消时为 ErrCancelled（或中止原因）。
type Completion struct {
	State StreamState
	Err   error
}

// OK 判断流是否正常完成（End 终止且无错误）
func (c Completion) OK() bool {
	return c.State == StreamCompleted && c.Err == nil
}

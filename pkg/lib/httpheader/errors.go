package httpheader

import (
	"errors"
	"fmt"
)

// ==================== 校验错误 ====================

// ErrInvalidHeaderName 头名称非法（非 token 字符或未知伪头）
var ErrInvalidHeaderName = errors.New("invalid header name")

// ErrInvalidHeaderValue 头值非法（控制字符等）
var ErrInvalidHeaderValue = errors.New("invalid header value")

// ErrOddPairs Of 的参数个数不是偶数
var ErrOddPairs = errors.New("odd number of name-value strings")

// ValidationError 携带违规头的名称与原因
//
// 通过 errors.Is 可匹配 ErrInvalidHeaderName 或 ErrInvalidHeaderValue。
type ValidationError struct {
	Name   string
	Value  string
	Reason string
	kind   error
}

// Error 实现 error 接口
func (e *ValidationError) Error() string {
	if e.kind == ErrInvalidHeaderValue {
		return fmt.Sprintf("%v: %q (name %q)", e.kind, e.Reason, e.Name)
	}
	return fmt.Sprintf("%v: %q (%s)", e.kind, e.Name, e.Reason)
}

// Unwrap 返回底层错误类别
func (e *ValidationError) Unwrap() error {
	return e.kind
}

func invalidName(name, reason string) error {
	return &ValidationError{Name: name, Reason: reason, kind: ErrInvalidHeaderName}
}

func invalidValue(name, value, reason string) error {
	return &ValidationError{Name: name, Value: value, Reason: reason, kind: ErrInvalidHeaderValue}
}

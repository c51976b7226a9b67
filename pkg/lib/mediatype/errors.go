package mediatype

import (
	"errors"
	"fmt"
)

// ErrInvalidMediaType 媒体类型字符串无法解析
var ErrInvalidMediaType = errors.New("invalid media type")

// ErrUnsupportedCharset 字符集不在 IANA 注册表中
var ErrUnsupportedCharset = errors.New("unsupported charset")

func invalidType(input, reason string) error {
	return fmt.Errorf("%w: %q (%s)", ErrInvalidMediaType, input, reason)
}

func unsupportedCharset(name string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedCharset, name)
}

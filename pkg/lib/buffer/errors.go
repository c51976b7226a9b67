package buffer

import "errors"

// ErrReleased 对引用计数已归零的缓冲再次 Release
var ErrReleased = errors.New("buffer already released")

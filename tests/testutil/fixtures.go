// Package testutil 提供测试辅助工具
package testutil

// 测试数据固件
//
// 提供测试中常用的常量值，确保测试一致性。

const (
	// DefaultTestPath 默认测试请求路径
	DefaultTestPath = "/test/items"

	// DefaultTestMediaType 默认测试内容类型
	DefaultTestMediaType = "application/octet-stream"

	// DefaultChunkSize 默认测试数据块大小
	DefaultChunkSize = 4 << 10
)

// MakePayload 生成确定性内容的测试载荷
//
// 内容为循环的小写字母，同一 size 的两次调用结果相同。
func MakePayload(size int) []byte {
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}
	return payload
}

// SplitPayload 把载荷按给定块大小切分
//
// 最后一块可能小于 chunkSize。chunkSize < 1 时整体作为一块返回。
func SplitPayload(payload []byte, chunkSize int) [][]byte {
	if chunkSize < 1 {
		return [][]byte{payload}
	}
	var chunks [][]byte
	for off := 0; off < len(payload); off += chunkSize {
		end := off + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		chunks = append(chunks, payload[off:end])
	}
	return chunks
}

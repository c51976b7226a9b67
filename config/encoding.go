package config

import (
	"errors"
)

// EncodingConfig 内容解码配置
//
// 配置按 content-encoding 头解码消息内容的行为，
// 支持 gzip、deflate、zstd。
type EncodingConfig struct {
	// ReadChunkSize 解码输出的分块大小（字节）
	ReadChunkSize int `json:"read_chunk_size"`

	// MaxDecodedBytes 解码输出字节上限
	//
	// 压缩比极端的载荷（压缩炸弹）在解码输出越过上限时失败。
	// 0 表示不限制。
	MaxDecodedBytes int64 `json:"max_decoded_bytes"`

	// Strict 不支持的内容编码按失败处理
	//
	// 默认透传未知编码，由调用方自行处理。
	Strict bool `json:"strict"`
}

// DefaultEncodingConfig 返回默认解码配置
func DefaultEncodingConfig() EncodingConfig {
	return EncodingConfig{
		ReadChunkSize:   8 << 10,  // 输出分块：8 KB，与常见传输帧尺寸同量级
		MaxDecodedBytes: 64 << 20, // 解码上限：64 MB，防压缩炸弹
		Strict:          false,    // 默认透传未知编码
	}
}

// Validate 验证解码配置
func (c EncodingConfig) Validate() error {
	if c.ReadChunkSize < 0 {
		return errors.New("read chunk size must not be negative")
	}
	if c.MaxDecodedBytes < 0 {
		return errors.New("max decoded bytes must not be negative")
	}
	return nil
}

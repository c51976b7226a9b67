package config

import (
	"errors"
)

// AggregateConfig 聚合配置
//
// 配置流到完整消息的聚合行为。聚合把整条消息缓冲进内存，
// 上限是抵御超大载荷的主要防线。
type AggregateConfig struct {
	// MaxContentLength 累计内容字节数上限
	//
	// 每收到一个数据块即做累计检查，超限立即失败并取消上游订阅。
	MaxContentLength int64 `json:"max_content_length"`

	// ReadAheadWindow 聚合订阅的事件需求窗口
	//
	// 聚合器以该窗口预取事件，每消费一个再续一个。
	ReadAheadWindow int64 `json:"read_ahead_window"`

	// ContentLengthPrecheck 按 content-length 声明值提前失败
	//
	// 头块声明的长度已超上限时无需等待数据块即失败。
	// 声明值不可信的场景可关闭，只按实际累计判定。
	ContentLengthPrecheck bool `json:"content_length_precheck"`
}

// DefaultAggregateConfig 返回默认聚合配置
func DefaultAggregateConfig() AggregateConfig {
	return AggregateConfig{
		MaxContentLength:      10 << 20, // 内容上限：10 MB，覆盖常规 API 消息
		ReadAheadWindow:       4,        // 需求窗口：4 个事件
		ContentLengthPrecheck: true,     // 默认开启：声明超限快速失败
	}
}

// Validate 验证聚合配置
func (c AggregateConfig) Validate() error {
	if c.MaxContentLength <= 0 {
		return errors.New("max content length must be positive")
	}
	if c.ReadAheadWindow <= 0 {
		return errors.New("read ahead window must be positive")
	}
	return nil
}

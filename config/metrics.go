package config

import (
	"errors"
	"strings"
)

// MetricsConfig 指标收集配置
//
// 启用后装配指标模块：各核心组件把计数累计进收集器，
// 收集器同时充当 Prometheus Collector 供调用方注册导出。
type MetricsConfig struct {
	// Enabled 是否启用指标收集
	Enabled bool `json:"enabled"`

	// Namespace 导出指标的命名空间前缀
	Namespace string `json:"namespace"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,    // 默认关闭：库核心不强加观测开销
		Namespace: "runnel", // 指标前缀：runnel_streams_opened_total 等
	}
}

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Namespace == "" {
		return errors.New("metrics namespace must not be empty")
	}
	if strings.ContainsAny(c.Namespace, " -") {
		return errors.New("metrics namespace must not contain spaces or dashes")
	}
	return nil
}

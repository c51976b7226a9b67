// Package lib 包含基础设施工具库
//
// 本目录包含与架构组件无关的通用工具库：
//
//   - buffer: 引用计数字节缓冲
//   - httpheader: 不可变 HTTP 头块（大小写不敏感，伪头优先）
//   - mediatype: MIME 媒体类型解析（带 LRU 缓存）
//   - log: 日志封装
//
// # 与 pkg/ 其他目录的关系
//
// pkg/ 目录包含三类内容：
//
//   - interfaces/: 组件公共接口（架构核心）
//   - types/: 公共类型定义（架构核心）
//   - lib/: 基础设施工具库（本目录）
//
// # 使用示例
//
//	import (
//	    "github.com/runnel/go-runnel/pkg/lib/buffer"
//	    "github.com/runnel/go-runnel/pkg/lib/httpheader"
//	    "github.com/runnel/go-runnel/pkg/lib/log"
//	)
package lib

// Package main 提供 runnel 命令行自检入口
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/runnel/go-runnel"
	"github.com/runnel/go-runnel/config"
	"github.com/runnel/go-runnel/pkg/lib/log"
)

var logger = log.Logger("runnel/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
// 设计原则：
//
//   命令行参数：运行时覆盖 / 快速测试（「这次运行」想怎么跑）
//   JSON 配置文件：持久化配置 / 固定部署（「这个进程」的固定配置）
//
// ═══════════════════════════════════════════════════════════════════════════
var (
	// ─────────────────────────────────────────────────────────────────────
	// 运行时参数（快速指定）
	// ─────────────────────────────────────────────────────────────────────
	configFile = flag.String("config", "", "配置文件路径")
	preset     = flag.String("preset", "", "预设配置 (server/proxy/debug/minimal)")

	// ─────────────────────────────────────────────────────────────────────
	// 自检参数
	// ─────────────────────────────────────────────────────────────────────
	payloadSize = flag.Int("payload", 64<<10, "自检载荷大小（字节）")
	chunkCount  = flag.Int("chunks", 8, "流式自检的数据分块数")

	// ─────────────────────────────────────────────────────────────────────
	// 观测开关
	// ─────────────────────────────────────────────────────────────────────
	enableMetrics = flag.Bool("metrics", false, "启用指标收集并打印快照")
	leakCheck     = flag.Bool("leak-check", false, "启用缓冲泄漏检测并打印报告")

	// ─────────────────────────────────────────────────────────────────────
	// 日志参数
	// ─────────────────────────────────────────────────────────────────────
	logFile  = flag.String("log", "", "日志文件路径（默认 stderr）")
	logLevel = flag.String("log-level", "", "日志级别 (debug/info/warn/error)")

	// ─────────────────────────────────────────────────────────────────────
	// 信息显示
	// ─────────────────────────────────────────────────────────────────────
	showVersion = flag.Bool("version", false, "显示版本信息")
	showHelp    = flag.Bool("help", false, "显示帮助信息")
)

// runtimeConfig 运行时配置（来自环境变量，不属于 config.Config）
type runtimeConfig struct {
	preset  string
	logFile string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	// 显示版本
	if *showVersion {
		printVersion()
		return nil
	}

	// 显示帮助
	if *showHelp {
		printHelp()
		return nil
	}

	// 构建选项
	opts, err := buildOptions()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	// 创建上下文（Ctrl+C 取消进行中的自检）
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 打印版本信息（部署验证）
	fmt.Printf("📦 %s\n", runnel.VersionInfo())
	logger.Info("启动 runnel 核心", "version", runnel.Version, "commit", runnel.GitCommit, "buildDate", runnel.BuildDate)

	// 启动核心
	core, err := runnel.Start(ctx, opts...)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = core.Close() }()

	// 显示核心信息
	printCoreInfo(core)

	// 运行自检
	failed, err := runChecks(ctx, core)
	if err != nil {
		return err
	}

	// 指标快照
	if m := core.Metrics(); m != nil {
		printMetricsSnapshot(m.Snapshot())
	}

	// 泄漏报告
	if core.Config().Buffer.LeakDetection {
		printLeakReport(core)
	}

	// 停止核心
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	if err := core.Stop(stopCtx); err != nil {
		return fmt.Errorf("停止失败: %w", err)
	}

	if failed > 0 {
		return fmt.Errorf("%d 项自检未通过", failed)
	}
	fmt.Println("全部自检通过 ✓")
	return nil
}

// buildOptions 构建选项
//
// 配置优先级（从高到低）：
//  1. 命令行参数（运行时覆盖）
//  2. 环境变量（RUNNEL_* 前缀）
//  3. 配置文件（持久化配置）
//  4. 预设默认值
func buildOptions() ([]runnel.Option, error) {
	var opts []runnel.Option
	var cfg *config.Config
	runtime := &runtimeConfig{}

	// ═══════════════════════════════════════════════════════════════════
	// 1. 加载配置文件（持久化配置）
	// ═══════════════════════════════════════════════════════════════════
	if *configFile != "" {
		var err error
		cfg, err = loadConfigFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
	} else {
		cfg = config.NewConfig()
	}

	// ═══════════════════════════════════════════════════════════════════
	// 2. 应用环境变量覆盖
	// ═══════════════════════════════════════════════════════════════════
	applyEnvOverrides(cfg, runtime)

	opts = append(opts, runnel.WithConfig(cfg))

	// ═══════════════════════════════════════════════════════════════════
	// 3. 应用命令行参数覆盖（运行时参数，最高优先级）
	// ═══════════════════════════════════════════════════════════════════

	// 预设（命令行 > 环境变量）
	presetName := *preset
	if presetName == "" {
		presetName = runtime.preset
	}
	if presetName != "" {
		if !runnel.IsValidPreset(presetName) {
			return nil, fmt.Errorf("未知预设: %s", presetName)
		}
		opts = append(opts, runnel.WithPreset(presetName))
	}

	// 观测开关
	if isFlagSet("metrics") {
		opts = append(opts, runnel.WithMetrics(*enableMetrics))
	}
	if isFlagSet("leak-check") {
		opts = append(opts, runnel.WithLeakDetection(*leakCheck))
	}

	// 日志文件（命令行 > 环境变量 > 配置文件）
	logPath := *logFile
	if logPath == "" {
		logPath = runtime.logFile
	}
	if logPath != "" {
		opts = append(opts, runnel.WithLogFile(logPath))
	}
	if *logLevel != "" {
		opts = append(opts, runnel.WithLogLevel(*logLevel))
	}

	return opts, nil
}

// isFlagSet 检查命令行参数是否被显式设置
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// printCoreInfo 打印核心信息
func printCoreInfo(core *runnel.Core) {
	cfg := core.Config()

	fmt.Println()
	fmt.Println("╔════════════════════════════════════════════════════════════════════╗")
	fmt.Printf("║              Runnel Core Started (%-8s)                         ║\n", runnel.Version)
	fmt.Println("╠════════════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  Allocator:       %-49s  ║\n", cfg.Buffer.Kind)
	fmt.Printf("║  Leak detection:  %-49v  ║\n", cfg.Buffer.LeakDetection)
	fmt.Printf("║  Metrics:         %-49v  ║\n", cfg.Metrics.Enabled)
	fmt.Printf("║  Initial demand:  %-49d  ║\n", cfg.Stream.InitialDemand)
	fmt.Printf("║  Content limit:   %-49s  ║\n", formatBytes(cfg.Aggregate.MaxContentLength))
	if cfg.Stream.DefaultTimeout > 0 {
		fmt.Printf("║  Stream timeout:  %-49s  ║\n", time.Duration(cfg.Stream.DefaultTimeout))
	}
	if cfg.Log.File != "" {
		fmt.Printf("║  Log file:        %-49s  ║\n", cfg.Log.File)
	}
	fmt.Println("╚════════════════════════════════════════════════════════════════════╝")
	fmt.Println()
}

// formatBytes 把字节数格式化为人类可读形式
func formatBytes(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("runnel %s\n", runnel.Version)
	if runnel.GitCommit != "" {
		fmt.Printf("  commit: %s\n", runnel.GitCommit)
	}
	if runnel.BuildDate != "" {
		fmt.Printf("  built:  %s\n", runnel.BuildDate)
	}
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("runnel - 异步 HTTP 消息核心自检工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  runnel [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println("配置边界说明")
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Println("命令行参数（运行时覆盖）：")
	fmt.Println("  -preset, -config                  # 运行时参数")
	fmt.Println("  -metrics, -leak-check             # 观测开关")
	fmt.Println("  -payload, -chunks                 # 自检参数")
	fmt.Println("  -log, -log-level                  # 日志参数")
	fmt.Println()
	fmt.Println("配置文件（持久化配置）：")
	fmt.Println("  buffer.kind                  # 分配器类别 (pooled/heap)")
	fmt.Println("  buffer.leak_detection        # 是否启用泄漏检测")
	fmt.Println("  stream.initial_demand        # 订阅初始需求量")
	fmt.Println("  stream.default_timeout       # 流默认超时")
	fmt.Println("  aggregate.max_content_length # 聚合内容上限（字节）")
	fmt.Println("  metrics.enabled              # 是否启用指标收集")
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  RUNNEL_PRESET              预设名称")
	fmt.Println("  RUNNEL_LOG_FILE            日志文件路径")
	fmt.Println("  RUNNEL_LOG_LEVEL           日志级别")
	fmt.Println("  RUNNEL_METRICS             启用指标收集 (true/false)")
	fmt.Println("  RUNNEL_LEAK_DETECTION      启用泄漏检测 (true/false)")
	fmt.Println("  RUNNEL_MAX_CONTENT_LENGTH  聚合内容上限（字节）")
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println("预设配置")
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Println("  server    - 服务端优化，池化分配 + 大内容上限")
	fmt.Println("  proxy     - 代理转发，低需求量 + 严格超时")
	fmt.Println("  debug     - 排障配置，泄漏检测 + 指标 + debug 日志")
	fmt.Println("  minimal   - 最小配置，仅用于测试")
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println("使用示例")
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Println("  # 使用默认配置自检")
	fmt.Println("  runnel")
	fmt.Println()
	fmt.Println("  # 服务端预设 + 1 MB 载荷")
	fmt.Println("  runnel -preset server -payload 1048576")
	fmt.Println()
	fmt.Println("  # 使用配置文件")
	fmt.Println("  runnel -config runnel.json")
	fmt.Println()
	fmt.Println("  # 排障：泄漏检测 + 指标快照 + debug 日志")
	fmt.Println("  runnel -leak-check -metrics -log-level debug")
	fmt.Println()
	fmt.Println("  # 使用环境变量")
	fmt.Println("  RUNNEL_PRESET=debug RUNNEL_METRICS=true runnel")
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println("配置文件示例 (runnel.json)")
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Println(`  {`)
	fmt.Println(`    "buffer": {`)
	fmt.Println(`      "kind": "pooled",`)
	fmt.Println(`      "leak_detection": true`)
	fmt.Println(`    },`)
	fmt.Println(`    "stream": {`)
	fmt.Println(`      "initial_demand": 8,`)
	fmt.Println(`      "default_timeout": "30s"`)
	fmt.Println(`    },`)
	fmt.Println(`    "aggregate": {`)
	fmt.Println(`      "max_content_length": 10485760`)
	fmt.Println(`    },`)
	fmt.Println(`    "metrics": {`)
	fmt.Println(`      "enabled": true,`)
	fmt.Println(`      "namespace": "runnel"`)
	fmt.Println(`    }`)
	fmt.Println(`  }`)
}

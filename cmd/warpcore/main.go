// Package main 提供 warpcore 命令行入口
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/warpmc/go-warpcore"
	"github.com/warpmc/go-warpcore/config"
	"github.com/warpmc/go-warpcore/internal/core/httpsession"
	pkgif "github.com/warpmc/go-warpcore/pkg/interfaces"
	"github.com/warpmc/go-warpcore/pkg/lib/log"
)

var logger = log.Logger("warpcore/cmd")

var (
	configFile  = flag.String("config", "", "配置文件路径（.json/.yaml）")
	workers     = flag.Int("workers", 0, "期望的任务 worker 数（0 = 使用配置）")
	proxyPool   = flag.String("proxy-pool", "", "代理池文件，设置后启用代理")
	proxyFormat = flag.String("proxy-format", config.PoolFormatHostPortUserPass, "代理池行格式")
	introAddr   = flag.String("introspect", "", "诊断服务地址，例如 127.0.0.1:6060")
	logLevel    = flag.String("log-level", "", "日志级别，支持 component=level,...,default")
	timeout     = flag.Duration("timeout", time.Minute, "get 命令的总超时")
	showVersion = flag.Bool("version", false, "显示版本信息")
)

func main() {
	flag.Usage = printHelp
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Printf("warpcore %s\n", warpcore.Version)
		return nil
	}

	args := flag.Args()
	if len(args) == 0 {
		printHelp()
		return nil
	}

	cfg, err := buildConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	switch args[0] {
	case "profile":
		return runProfile(cfg)
	case "get":
		if len(args) < 3 {
			return errors.New("用法: warpcore get <service> <path> [key=value ...]")
		}
		return runGet(cfg, args[1], args[2], args[3:])
	case "serve":
		return runServe(cfg)
	default:
		return fmt.Errorf("未知命令: %s", args[0])
	}
}

// buildConfig 加载配置文件并应用命令行覆盖
func buildConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if *workers > 0 {
		cfg.Tasks.Workers = *workers
	}
	if *proxyPool != "" {
		cfg.Proxy = cfg.Proxy.WithEnabled(true).WithPoolFile(*proxyPool, *proxyFormat)
	}
	if *introAddr != "" {
		cfg.Diagnostics = cfg.Diagnostics.WithIntrospect(*introAddr)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	return cfg, cfg.Validate()
}

// runProfile 输出资源画像
func runProfile(cfg *config.Config) error {
	core, err := warpcore.New(warpcore.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = core.Close() }()

	return printJSON(os.Stdout, core.Profile().Rounded())
}

// runGet 通过执行核心发起一次弹性请求，响应体写到标准输出
func runGet(cfg *config.Config, service, path string, params []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	opts := make([]pkgif.RequestOption, 0, len(params))
	for _, kv := range params {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return fmt.Errorf("无效的查询参数: %q", kv)
		}
		opts = append(opts, httpsession.WithParam(k, v))
	}

	core, err := warpcore.Start(ctx, warpcore.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = core.Close() }()

	resp, err := core.Get(ctx, service, path, opts...)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	logger.Info("请求完成", "service", service, "path", path, "status", resp.StatusCode)
	_, err = io.Copy(os.Stdout, resp.Body)
	return err
}

// runServe 启动执行核心与诊断服务，直到收到退出信号
func runServe(cfg *config.Config) error {
	if !cfg.Diagnostics.EnableIntrospect {
		cfg.Diagnostics = cfg.Diagnostics.WithIntrospect("")
	}

	core, err := warpcore.Start(context.Background(), warpcore.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = core.Close() }()

	fmt.Printf("warpcore %s\n", warpcore.Version)
	fmt.Printf("  workers:    %d\n", core.Tasks().Workers())
	fmt.Printf("  introspect: http://%s/debug/introspect\n", core.IntrospectAddr())
	fmt.Println("按 Ctrl+C 退出")

	waitForSignal()
	fmt.Println("\n正在关闭...")
	return nil
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("warpcore - 资源受控的并发执行核心")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  warpcore [选项] profile")
	fmt.Println("  warpcore [选项] get <service> <path> [key=value ...]")
	fmt.Println("  warpcore [选项] serve")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  WARP_LOG_LEVEL   日志级别，例如 core/httpsession=debug,info")
	fmt.Println("  WARP_LOG_FORMAT  text 或 json")
}

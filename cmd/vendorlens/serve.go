package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/magicmaxmagic/qualification-generator-sub000/internal/config"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/server"
	"github.com/magicmaxmagic/qualification-generator-sub000/internal/util"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		devMode    bool
		dataDir    string
		noBrowser  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, port, devMode, dataDir, noBrowser)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config.toml 路径 (默认: 可执行文件同目录)")
	cmd.Flags().IntVar(&port, "port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	cmd.Flags().BoolVar(&devMode, "dev", false, "开发模式")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "数据目录 (覆盖配置文件)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "不自动打开浏览器")

	return cmd
}

func runServe(configPath string, port int, devMode bool, dataDir string, noBrowser bool) error {
	fmt.Println("==========================================")
	fmt.Println("  vendorlens - 供应商评估看板")
	fmt.Println("==========================================")

	// 加载配置
	cfg, info, err := config.LoadConfigWithInfo(configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	// 命令行参数覆盖配置
	if port > 0 && !info.PortSpecified {
		cfg.Server.Port = util.FindAvailablePort(port)
	}
	if devMode {
		cfg.Server.DevMode = true
	}
	if dataDir != "" {
		cfg.Data.DataDir = dataDir
	}

	logger := config.SetupLogger(cfg.Log)
	if info.FileFound {
		logger.WithField("path", info.Path).Info("config loaded")
	}

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	url := fmt.Sprintf("http://localhost:%d/api/status", cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
		errCh <- srv.Run(addr)
	}()

	// 打开浏览器
	if cfg.Server.OpenBrowser && !cfg.Server.DevMode && !noBrowser {
		fmt.Printf("正在打开浏览器: %s\n", url)
		if err := util.OpenBrowserWithFallback(url); err != nil {
			fmt.Printf("无法自动打开浏览器，请手动访问: %s\n", url)
		}
	} else {
		fmt.Printf("请访问 %s\n", url)
	}

	fmt.Println("\n按 Ctrl+C 停止服务...")

	// 等待信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		_ = srv.Close()
		return fmt.Errorf("服务启动失败: %w", err)
	case <-quit:
	}

	fmt.Println("\n正在关闭服务...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

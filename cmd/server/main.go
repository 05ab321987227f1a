package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/palemoky/bill-to-law/internal/config"
	"github.com/palemoky/bill-to-law/internal/logger"
	"github.com/palemoky/bill-to-law/internal/server"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, loadErr := config.Load(*configPath)
	if loadErr != nil {
		cfg = config.Default()
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	log := logger.Named("main")
	if loadErr != nil {
		log.Warnw("加载配置文件失败，使用默认配置", "path", *configPath, "error", loadErr)
	}

	// 创建服务器
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalw("创建服务器失败", "error", err)
	}

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Infow("🏛  bill-to-law 服务器启动中...", "addr", cfg.Server.Addr())
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalw("服务器启动失败", "error", err)
		}
	case sig := <-quit:
		log.Infow("正在关闭服务器...", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warnw("shutdown", "error", err)
		}
	}
}

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voxelarena/config"
	"voxelarena/logging"
	"voxelarena/server"
)

// voxelarena 协调端入口：启动 HTTP + WebSocket 服务，并初始化默认世界
func main() {
	var (
		cfgPath string
		addr    string
	)
	flag.StringVar(&cfgPath, "config", "", "path to YAML config (defaults to $VOXELARENA_CONFIG)")
	flag.StringVar(&addr, "addr", "", "server listen address, e.g. :8080 (overrides config)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	if err := logging.InitLogger(logging.Options{
		File:    cfg.Log.File,
		Level:   cfg.Log.Level,
		Console: cfg.Log.Console,
	}); err != nil {
		panic(err)
	}
	defer logging.SyncLogger()
	log := logging.Log

	coordinator := server.New(cfg)
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: coordinator.Router()}

	go func() {
		log.Infof("voxelarena listening on %s (world=%s, terrain=%d blocks, departure=%s)",
			cfg.Server.Addr, cfg.Server.DefaultWorld, cfg.World.TerrainBlocks, cfg.Sync.DeparturePolicy)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warnf("http shutdown: %v", err)
	}
	coordinator.Close()
}

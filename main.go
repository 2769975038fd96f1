package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"esptimelapse/internal/app"
	"esptimelapse/internal/config"
	"esptimelapse/internal/logging"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("ロガーの作成に失敗しました: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatalw("アプリケーションの作成に失敗しました", "error", err)
	}

	// SIGINT/SIGTERM で停止する
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Fatalw("タイムラプス撮影が異常終了しました", "error", err)
	}
}

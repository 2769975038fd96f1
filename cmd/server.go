// Package main はタイムラプス撮影コマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"esptimelapse/internal/app"
	"esptimelapse/internal/config"
	"esptimelapse/internal/logging"
	"esptimelapse/internal/timelapse"
)

func main() {
	// コマンドラインオプション
	var (
		host     = flag.String("host", "", "状態サーバーのホスト (デフォルト: 0.0.0.0)")
		port     = flag.Int("port", 0, "状態サーバーのポート (デフォルト: 8080)")
		cameraIP = flag.String("camera", "", "カメラのIPアドレス (デフォルト: 192.168.1.111)")
		interval = flag.Duration("interval", 0, "撮影間隔 (デフォルト: 5m)")
		once     = flag.Bool("once", false, "1回だけ撮影して終了")
		help     = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("esptimelapse")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *cameraIP != "" {
		cfg.Camera.Host = *cameraIP
	}
	if *interval != 0 {
		cfg.Timelapse.Interval = *interval
	}
	if *once {
		cfg.Server.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("設定の検証に失敗しました: %v", err)
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		if !captureOnce(ctx, a) {
			stop()
			_ = logger.Sync()
			os.Exit(1)
		}
		return
	}

	if err := a.Run(ctx); err != nil {
		logger.Fatalw("タイムラプス撮影が異常終了しました", "error", err)
	}
}

// captureOnce は1回だけ撮影し、保存できたかどうかを返す
func captureOnce(ctx context.Context, a *app.App) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	result := a.CaptureOnce(ctx)
	if result.Outcome != timelapse.OutcomeSaved {
		log.Printf("撮影に失敗しました: outcome=%s error=%s", result.Outcome, result.Error)
		return false
	}
	fmt.Println(result.Path)
	return true
}

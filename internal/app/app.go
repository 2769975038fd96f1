// Package app はカメラクライアント・撮影コントローラー・状態サーバーを組み立てて実行する
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"esptimelapse/internal/camera"
	"esptimelapse/internal/config"
	"esptimelapse/internal/server"
	"esptimelapse/internal/timelapse"
)

// StartupLogName は起動時の設定を書き出すファイル名
const StartupLogName = "debug.txt"

// stopTimeout はスケジューラーの停止を待つ時間
const stopTimeout = 5 * time.Second

// App はタイムラプス撮影アプリケーション
type App struct {
	config     *config.Config
	logger     *zap.SugaredLogger
	controller *timelapse.Controller
	scheduler  *timelapse.Scheduler
	server     *server.Server
}

// New は設定から新しいAppを作成する
func New(cfg *config.Config, logger *zap.SugaredLogger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	client := camera.NewHTTPClient(cfg.Camera.ClientConfig(), nil)

	controller, err := timelapse.NewController(client, cfg.Timelapse, logger)
	if err != nil {
		return nil, fmt.Errorf("撮影コントローラーの作成に失敗: %w", err)
	}

	a := &App{
		config:     cfg,
		logger:     logger,
		controller: controller,
		scheduler:  timelapse.NewScheduler(controller, cfg.Timelapse.Interval, logger),
	}

	if cfg.Server.Enabled {
		gin.SetMode(gin.ReleaseMode)
		a.server = server.New(cfg, controller, logger)
	}

	return a, nil
}

// Controller は撮影コントローラーを返す
func (a *App) Controller() *timelapse.Controller {
	return a.controller
}

// Server は状態サーバーを返す（無効の場合は nil）
func (a *App) Server() *server.Server {
	return a.server
}

// Run は撮影を開始し、ctx がキャンセルされるまで実行する
func (a *App) Run(ctx context.Context) error {
	a.WriteStartupLog()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 状態サーバーは補助機能なので、起動に失敗しても撮影は続ける
	serverDone := make(chan struct{})
	if a.server != nil {
		go func() {
			defer close(serverDone)
			if err := a.server.Start(ctx); err != nil {
				a.logger.Errorw("状態サーバーの実行に失敗しました", "error", err)
			}
		}()
	} else {
		close(serverDone)
	}

	if err := a.scheduler.Start(ctx); err != nil {
		cancel()
		<-serverDone
		return err
	}

	<-a.scheduler.Done()
	err := a.scheduler.Err()

	// 停止済みの状態に戻して再度 Run できるようにする
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	if stopErr := a.scheduler.Stop(stopCtx); stopErr != nil {
		a.logger.Warnw("スケジューラーの停止に失敗しました", "error", stopErr)
	}

	cancel()
	<-serverDone

	if errors.Is(err, context.Canceled) {
		a.logger.Infow("タイムラプス撮影を終了しました")
		return nil
	}
	return err
}

// CaptureOnce は1回だけ撮影する
func (a *App) CaptureOnce(ctx context.Context) timelapse.Result {
	a.WriteStartupLog()
	return a.controller.CaptureAndAdapt(ctx)
}

// WriteStartupLog は起動時の設定をログと {PathPrefix}debug.txt に記録する
// ファイルに書き込めなくても撮影は継続する
func (a *App) WriteStartupLog() {
	line := a.config.StartupLine()
	a.logger.Info(line)

	path := a.config.Timelapse.PathPrefix + StartupLogName
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		a.logger.Warnw("出力ディレクトリの作成に失敗しました", "path", path, "error", err)
		return
	}
	if err := os.WriteFile(path, []byte(line), 0644); err != nil {
		a.logger.Warnw("起動ログの書き込みに失敗しました", "path", path, "error", err)
	}
}

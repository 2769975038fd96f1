package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"esptimelapse/internal/config"
)

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	httpServer *http.Server
	engine     *gin.Engine
	logger     *zap.SugaredLogger

	mu    sync.Mutex
	addr  net.Addr
	ready chan struct{}
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, status StatusProvider, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))
	NewHandler(cfg, status).Register(engine)

	return &Server{
		config: cfg,
		engine: engine,
		logger: logger,
		ready:  make(chan struct{}),
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// Handler はHTTPハンドラを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Ready はリッスン開始後に閉じられるチャンネルを返す
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr は実際にリッスンしているアドレスを返す
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// Start はサーバーを起動し、コンテキストがキャンセルされるまで待つ
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("サーバーの起動に失敗: %w", err)
	}

	s.mu.Lock()
	s.addr = listener.Addr()
	s.mu.Unlock()
	close(s.ready)

	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		s.logger.Infow("HTTPサーバーを起動しています", "addr", listener.Addr().String())
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// コンテキストを待つ
	select {
	case <-ctx.Done():
		s.logger.Infow("コンテキストがキャンセルされました")
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	s.logger.Infow("サーバーをシャットダウンしています...")

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	s.logger.Infow("サーバーが正常にシャットダウンされました")
	return nil
}

// requestLogger はリクエストをデバッグログに記録する
func requestLogger(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugw("HTTPリクエスト",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
		)
	}
}

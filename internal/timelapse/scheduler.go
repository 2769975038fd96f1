package timelapse

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Runner は1回分の撮影を実行する
type Runner interface {
	CaptureAndAdapt(ctx context.Context) Result
}

// Scheduler は一定間隔で撮影を実行する
// 撮影は1つのゴルーチンで順番に実行するため、前回の撮影が終わるまで次の撮影は始まらない
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *zap.SugaredLogger

	// 制御用
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
	lastErr error
}

// NewScheduler は新しいSchedulerを作成する
func NewScheduler(runner Runner, interval time.Duration, logger *zap.SugaredLogger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Run は起動直後に1回撮影し、その後は間隔ごとに撮影する
// コンテキストがキャンセルされるまで戻らない
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("無効な撮影間隔: %v", s.interval)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// Start はスケジューラーをバックグラウンドで開始する
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return fmt.Errorf("スケジューラーは既に開始されています")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		err := s.Run(runCtx)

		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
	}(s.done)

	s.logger.Infow("タイムラプス撮影を開始しました", "interval", s.interval.String())
	return nil
}

// Stop はスケジューラーを停止する
// 撮影中の場合は完了を待つが、ctx がキャンセルされた時点で待機をやめる
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}

	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warnw("撮影の停止待ちを中断しました", "error", ctx.Err())
		return ctx.Err()
	}

	s.mu.Lock()
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	s.logger.Infow("タイムラプス撮影を停止しました")
	return nil
}

// Done はバックグラウンド実行の終了を通知するチャンネルを返す
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err はバックグラウンド実行の終了理由を返す
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// runOnce は1回分の撮影を実行する
func (s *Scheduler) runOnce(ctx context.Context) {
	result := s.runner.CaptureAndAdapt(ctx)
	s.logger.Debugw("撮影が完了しました",
		"tick", result.TickID,
		"outcome", result.Outcome,
		"attempts", result.Attempts,
		"quality", result.NextQuality,
	)
}

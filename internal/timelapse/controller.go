package timelapse

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"esptimelapse/internal/camera"
)

// Controller は画像サイズに応じてカメラの画質を調整しながら撮影する
//
// 画質は数値が小さいほど高画質・大きいファイルになる。
// 撮影のたびに画像サイズを判定し、
//   - 上限以上: 破損とみなして破棄し、画質を1段階下げて撮り直す
//   - 0バイト: 失敗として記録する
//   - 下限以下: 保存し、次回のために画質を1段階上げる
//   - 範囲内: 保存する
//
// CaptureAndAdapt は同時に1つしか実行されない。
type Controller struct {
	device   camera.Device
	config   Config
	band     SizeBand
	location *time.Location
	logger   *zap.SugaredLogger

	// テストで差し替える
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	// 撮影の多重実行防止
	running sync.Mutex

	mu        sync.RWMutex
	quality   int
	last      *Result
	lastSaved string
	counters  Counters
}

// NewController は新しいControllerを作成する
func NewController(device camera.Device, config Config, logger *zap.SugaredLogger) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("タイムラプス設定の検証に失敗: %w", err)
	}

	location, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("タイムゾーンの読み込みに失敗: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Controller{
		device:   device,
		config:   config,
		band:     config.SizeBand(),
		location: location,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
		quality:  config.InitialQuality,
	}, nil
}

// Quality は次回の撮影に使う画質を返す
func (c *Controller) Quality() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.quality
}

// Status は現在の状態を取得する
func (c *Controller) Status() StatusInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := StatusInfo{
		Quality:      c.quality,
		BestQuality:  c.config.BestQuality,
		WorstQuality: c.config.WorstQuality,
		Band:         c.band,
		LastSaved:    c.lastSaved,
		Counters:     c.counters,
	}
	if c.last != nil {
		last := *c.last
		status.LastResult = &last
	}
	return status
}

// CaptureAndAdapt は1回分の撮影を行い、必要に応じて画質を調整する
// エラーは全てログに記録して結果に含め、呼び出し元には伝播させない
func (c *Controller) CaptureAndAdapt(ctx context.Context) Result {
	if !c.running.TryLock() {
		c.logger.Warnw("前回の撮影が実行中のため今回の撮影を見送ります")
		result := Result{
			Outcome:     OutcomeSkipped,
			Quality:     c.Quality(),
			NextQuality: c.Quality(),
			Err:         ErrCaptureInProgress,
			Error:       ErrCaptureInProgress.Error(),
			At:          c.now(),
		}
		c.record(result)
		return result
	}
	defer c.running.Unlock()

	tickID := uuid.New().String()
	logger := c.logger.With("tick", tickID)

	var result Result
	for attempt := 1; ; attempt++ {
		result = c.attempt(ctx, logger)
		result.Attempts = attempt

		if result.Outcome != OutcomeDiscarded {
			break
		}

		if attempt > c.config.MaxRecaptures {
			result.Outcome = OutcomeGaveUp
			result.Err = fmt.Errorf("%w: %d回撮影しても %d バイト以上", ErrRecapturesExhausted, attempt, c.band.Max)
			logger.Warnw("再撮影の上限に達したため今回の撮影をスキップします",
				"attempts", attempt,
				"quality", result.NextQuality,
			)
			break
		}

		// カメラの回復を待ってから撮り直す
		if err := c.sleep(ctx, c.config.RecaptureCooldown); err != nil {
			result.Outcome = OutcomeFailed
			result.Err = fmt.Errorf("再撮影の待機中に中断: %w", err)
			logger.Warnw("再撮影を中断しました", "error", err)
			break
		}
	}

	result.TickID = tickID
	result.At = c.now()
	if result.Err != nil {
		result.Error = result.Err.Error()
	}

	c.record(result)
	return result
}

// attempt は1回の撮影を行う
func (c *Controller) attempt(ctx context.Context, logger *zap.SugaredLogger) Result {
	quality := c.Quality()
	path := FrameFilename(c.config.PathPrefix, c.now().In(c.location), quality)

	result := Result{
		Quality:     quality,
		NextQuality: quality,
	}

	if err := c.device.ApplySettings(ctx, c.settings(quality)); err != nil {
		logger.Errorw("カメラ設定の適用に失敗したため撮影を中止します", "quality", quality, "error", err)
		result.Outcome = OutcomeFailed
		result.Err = err
		return result
	}

	data, err := c.device.Capture(ctx)
	if err != nil {
		logger.Errorw("画像の取得に失敗しました", "quality", quality, "error", err)
		result.Outcome = OutcomeFailed
		result.Err = err
		return result
	}

	result.Size = len(data)
	result.Class = c.band.Classify(result.Size)

	switch result.Class {
	case SizeOversize:
		// 画像は破損している可能性が高いので保存しない
		next, clamped := c.adjustQuality(1, SizeOversize)
		result.NextQuality = next
		result.Outcome = OutcomeDiscarded
		logger.Infow("上限サイズの画像を受信したため画質を下げて撮り直します",
			"size", result.Size,
			"quality", next,
			"clamped", clamped,
		)
		return result

	case SizeEmpty:
		result.Outcome = OutcomeFailed
		result.Err = ErrEmptyFrame
		logger.Errorw("画像の保存に失敗しました", "quality", quality, "error", ErrEmptyFrame)
		return result

	case SizeUndersize:
		next, clamped := c.adjustQuality(-1, SizeUndersize)
		result.NextQuality = next
		logger.Infow("下限サイズの画像を受信したため次回の画質を上げます",
			"size", result.Size,
			"quality", next,
			"clamped", clamped,
		)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		logger.Errorw("画像の保存に失敗しました", "path", path, "error", err)
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("画像ファイルの書き込みに失敗: %w", err)
		return result
	}

	result.Outcome = OutcomeSaved
	result.Path = path
	logger.Infow("画像を保存しました", "path", path, "bytes", len(data))
	return result
}

// settings は撮影前にカメラへ送る設定を組み立てる
func (c *Controller) settings(quality int) camera.Settings {
	return c.config.StaticSettings.
		With(camera.SettingQuality, quality).
		With(camera.SettingFrameSize, c.config.FrameSize)
}

// adjustQuality は画質を delta だけ動かし、範囲内に収める
func (c *Controller) adjustQuality(delta int, class SizeClass) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch class {
	case SizeOversize:
		c.counters.Oversize++
	case SizeUndersize:
		c.counters.Undersize++
	}

	next := c.quality + delta
	clamped := false
	if next > c.config.WorstQuality {
		next = c.config.WorstQuality
		clamped = true
	}
	if next < c.config.BestQuality {
		next = c.config.BestQuality
		clamped = true
	}

	c.quality = next
	return next, clamped
}

// record は結果を状態に反映する
func (c *Controller) record(result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counters.Ticks++
	switch result.Outcome {
	case OutcomeSaved:
		c.counters.Saved++
		c.lastSaved = result.Path
	case OutcomeFailed:
		c.counters.Failures++
	case OutcomeGaveUp:
		c.counters.GaveUp++
	case OutcomeSkipped:
		c.counters.Skipped++
	}

	c.last = &result
}

// sleepContext はコンテキストのキャンセルを考慮して待機する
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

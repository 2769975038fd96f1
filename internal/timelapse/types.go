package timelapse

import (
	"errors"
	"fmt"
	"time"

	"esptimelapse/internal/camera"
)

// エラー定義
var (
	// ErrEmptyFrame はカメラが0バイトの画像を返したことを表す
	ErrEmptyFrame = errors.New("カメラから0バイトの画像を受信")
	// ErrRecapturesExhausted は再撮影の上限に達しても画像が大きすぎたことを表す
	ErrRecapturesExhausted = errors.New("再撮影の上限に到達")
	// ErrCaptureInProgress は前回の撮影がまだ実行中であることを表す
	ErrCaptureInProgress = errors.New("前回の撮影が実行中")
)

// 画質の範囲（ESP32カメラのJPEG画質は数値が小さいほど高画質）
const (
	QualityLimitBest  = 0
	QualityLimitWorst = 63
)

// Config はタイムラプス設定
type Config struct {
	Interval          time.Duration   `yaml:"interval"`           // 撮影間隔 (デフォルト: 5分)
	PathPrefix        string          `yaml:"path_prefix"`        // 保存先のパスプレフィックス
	InitialQuality    int             `yaml:"initial_quality"`    // 起動時の画質
	BestQuality       int             `yaml:"best_quality"`       // 画質の上限（数値の下限）
	WorstQuality      int             `yaml:"worst_quality"`      // 画質の下限（数値の上限）
	FrameSize         int             `yaml:"frame_size"`         // 解像度コード
	MinSizeBytes      int             `yaml:"min_size_bytes"`     // これ以下なら画質を上げる
	MaxSizeBytes      int             `yaml:"max_size_bytes"`     // これ以上なら破損とみなして撮り直す
	MaxRecaptures     int             `yaml:"max_recaptures"`     // 1回の撮影あたりの再撮影上限
	RecaptureCooldown time.Duration   `yaml:"recapture_cooldown"` // 再撮影前の待機時間
	Timezone          string          `yaml:"timezone"`           // ファイル名に使うタイムゾーン
	StaticSettings    camera.Settings `yaml:"settings"`           // 画質・解像度以外の固定設定
}

// DefaultConfig はデフォルトのタイムラプス設定を返す
func DefaultConfig() Config {
	return Config{
		Interval:          5 * time.Minute,
		PathPrefix:        "",
		InitialQuality:    25,
		BestQuality:       10,
		WorstQuality:      63,
		FrameSize:         8,
		MinSizeBytes:      40000,
		MaxSizeBytes:      60000,
		MaxRecaptures:     5,
		RecaptureCooldown: 1 * time.Second,
		Timezone:          "Local",
		StaticSettings: camera.Settings{
			{Name: camera.SettingVFlip, Value: 0},
		},
	}
}

// Validate は設定の妥当性を検証する
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("無効な撮影間隔: %v", c.Interval)
	}
	if c.BestQuality < QualityLimitBest || c.WorstQuality > QualityLimitWorst {
		return fmt.Errorf("画質の範囲は %d-%d である必要があります: %d-%d",
			QualityLimitBest, QualityLimitWorst, c.BestQuality, c.WorstQuality)
	}
	if c.BestQuality > c.WorstQuality {
		return fmt.Errorf("画質の上限 %d が下限 %d を超えています", c.BestQuality, c.WorstQuality)
	}
	if c.InitialQuality < c.BestQuality || c.InitialQuality > c.WorstQuality {
		return fmt.Errorf("初期画質 %d が範囲 %d-%d の外です", c.InitialQuality, c.BestQuality, c.WorstQuality)
	}
	if c.MinSizeBytes <= 0 || c.MaxSizeBytes <= c.MinSizeBytes {
		return fmt.Errorf("無効なサイズ範囲: %d-%d", c.MinSizeBytes, c.MaxSizeBytes)
	}
	if c.MaxRecaptures < 0 {
		return fmt.Errorf("無効な再撮影上限: %d", c.MaxRecaptures)
	}
	if c.RecaptureCooldown < 0 {
		return fmt.Errorf("無効な再撮影待機時間: %v", c.RecaptureCooldown)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("無効なタイムゾーン %q: %w", c.Timezone, err)
	}
	for _, setting := range c.StaticSettings {
		if setting.Name == "" {
			return fmt.Errorf("設定名が空です")
		}
	}
	// 画質と解像度は撮影ごとに送るため固定設定には含めない
	for _, name := range []string{camera.SettingQuality, camera.SettingFrameSize} {
		if _, ok := c.StaticSettings.Get(name); ok {
			return fmt.Errorf("固定設定に %s は指定できません", name)
		}
	}
	return nil
}

// SizeBand は設定からサイズの判定範囲を返す
func (c Config) SizeBand() SizeBand {
	return SizeBand{Min: c.MinSizeBytes, Max: c.MaxSizeBytes}
}

// Outcome は1回の撮影の結果
type Outcome string

// Outcome の定数定義
const (
	OutcomeSaved     Outcome = "saved"     // 画像を保存した
	OutcomeDiscarded Outcome = "discarded" // 大きすぎる画像を破棄した
	OutcomeFailed    Outcome = "failed"    // 設定・取得・保存のいずれかに失敗した
	OutcomeGaveUp    Outcome = "gave_up"   // 再撮影の上限に達した
	OutcomeSkipped   Outcome = "skipped"   // 前回の撮影が実行中のため見送った
)

// Result は1回の撮影（再撮影を含む）の結果
type Result struct {
	TickID      string    `json:"tick_id"`      // 撮影ID
	Outcome     Outcome   `json:"outcome"`      // 結果
	Class       SizeClass `json:"class"`        // 最後に取得した画像のサイズ分類
	Quality     int       `json:"quality"`      // 最後の撮影に使った画質
	NextQuality int       `json:"next_quality"` // 次回の撮影に使う画質
	Size        int       `json:"size"`         // 最後に取得した画像のサイズ
	Path        string    `json:"path"`         // 保存先（保存した場合のみ）
	Attempts    int       `json:"attempts"`     // 撮影回数
	Error       string    `json:"error"`        // エラー内容
	At          time.Time `json:"at"`           // 完了時刻

	Err error `json:"-"`
}

// Counters は起動後の累計
type Counters struct {
	Ticks     int `json:"ticks"`
	Saved     int `json:"saved"`
	Oversize  int `json:"oversize"`
	Undersize int `json:"undersize"`
	Failures  int `json:"failures"`
	GaveUp    int `json:"gave_up"`
	Skipped   int `json:"skipped"`
}

// StatusInfo はコントローラーの状態情報
type StatusInfo struct {
	Quality      int      `json:"quality"`
	BestQuality  int      `json:"best_quality"`
	WorstQuality int      `json:"worst_quality"`
	Band         SizeBand `json:"size_band"`
	LastResult   *Result  `json:"last_result"`
	LastSaved    string   `json:"last_saved"`
	Counters     Counters `json:"counters"`
}

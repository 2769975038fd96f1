package camera

import (
	"context"
	"errors"
)

// エラー定義
var (
	// ErrConfigApplyFailed はカメラ設定の適用に失敗したことを表す
	ErrConfigApplyFailed = errors.New("カメラ設定の適用に失敗")
	// ErrCaptureFailed は画像の取得に失敗したことを表す
	ErrCaptureFailed = errors.New("画像の取得に失敗")
)

// 設定名の定数定義
const (
	SettingQuality   = "quality"   // JPEG画質（小さいほど高画質）
	SettingFrameSize = "framesize" // 解像度コード
	SettingVFlip     = "vflip"     // 上下反転
	SettingHMirror   = "hmirror"   // 左右反転
)

// Setting はカメラ設定1件を表す
type Setting struct {
	Name  string `yaml:"name"`  // 設定名
	Value int    `yaml:"value"` // 設定値
}

// Settings は順序付きのカメラ設定
type Settings []Setting

// With は指定した設定を置き換えた（存在しなければ末尾に追加した）コピーを返す
func (s Settings) With(name string, value int) Settings {
	result := make(Settings, len(s), len(s)+1)
	copy(result, s)

	for i := range result {
		if result[i].Name == name {
			result[i].Value = value
			return result
		}
	}

	return append(result, Setting{Name: name, Value: value})
}

// Get は指定した設定値を取得する
func (s Settings) Get(name string) (int, bool) {
	for _, setting := range s {
		if setting.Name == name {
			return setting.Value, true
		}
	}
	return 0, false
}

// Device はカメラデバイスの操作を提供するインターフェース
type Device interface {
	// ApplySettings は設定を順番にカメラへ適用する
	ApplySettings(ctx context.Context, settings Settings) error

	// Capture は1フレームを取得してJPEGバイト列として返す
	Capture(ctx context.Context) ([]byte, error)
}

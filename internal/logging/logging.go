// Package logging はアプリケーション全体で使うロガーを構築する
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 出力形式
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config はログ出力の設定
type Config struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// DefaultConfig はデフォルトのログ設定を返す
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: FormatConsole,
	}
}

// Validate は設定の妥当性を検証する
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case FormatConsole, FormatJSON:
		return nil
	default:
		return fmt.Errorf("無効なログ形式: %q", c.Format)
	}
}

// ParseLevel はログレベルの文字列を変換する
func ParseLevel(level string) (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return lvl, fmt.Errorf("無効なログレベル %q: %w", level, err)
	}
	return lvl, nil
}

// New は設定に従ってロガーを作成する
func New(cfg Config) (*zap.SugaredLogger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zcfg zap.Config
	if cfg.Format == FormatJSON {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.Development = false
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("ロガーの作成に失敗: %w", err)
	}

	return logger.Sugar(), nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"esptimelapse/internal/camera"
	"esptimelapse/internal/logging"
	"esptimelapse/internal/timelapse"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Camera    CameraConfig     `yaml:"camera"`
	Timelapse timelapse.Config `yaml:"timelapse"`
	Log       logging.Config   `yaml:"log"`
}

// ServerConfig は状態確認用HTTPサーバーの設定
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"` // サーバーを起動するか
	Host    string `yaml:"host"`    // リッスンするホスト
	Port    int    `yaml:"port"`    // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// CameraConfig はカメラ関連の設定
type CameraConfig struct {
	Host        string        `yaml:"host"`         // カメラのホスト (例: 192.168.1.111)
	Timeout     time.Duration `yaml:"timeout"`      // 1リクエストあたりのタイムアウト
	PacingDelay time.Duration `yaml:"pacing_delay"` // 設定リクエスト間の待機時間
}

// ClientConfig はカメラクライアントの設定に変換する
func (c CameraConfig) ClientConfig() camera.ClientConfig {
	return camera.ClientConfig{
		Host:        c.Host,
		Timeout:     c.Timeout,
		PacingDelay: c.PacingDelay,
	}
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Enabled:      true,
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Camera: CameraConfig{
			Host:        "192.168.1.111",
			Timeout:     camera.DefaultTimeout,
			PacingDelay: camera.DefaultPacingDelay,
		},
		Timelapse: timelapse.DefaultConfig(),
		Log:       logging.DefaultConfig(),
	}
}

// Load は設定を読み込む
// デフォルト値 → CONFIG_FILE で指定したYAML → 環境変数 の順に上書きする
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// LoadFile はYAMLファイルの内容で設定を上書きする
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("設定ファイルの解析に失敗 (%s): %w", path, err)
	}

	return nil
}

// applyEnv は環境変数で設定を上書きする
// espcamip, pathprefix, quality_start, size は従来の名前をそのまま使う
func (c *Config) applyEnv() error {
	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	c.Camera.Host = getEnvOrDefault("espcamip", c.Camera.Host)
	c.Timelapse.PathPrefix = getEnvOrDefault("pathprefix", c.Timelapse.PathPrefix)
	collect(setInt("quality_start", &c.Timelapse.InitialQuality))
	collect(setInt("size", &c.Timelapse.FrameSize))

	collect(setInt("QUALITY_BEST", &c.Timelapse.BestQuality))
	collect(setInt("QUALITY_WORST", &c.Timelapse.WorstQuality))
	collect(setInt("MIN_SIZE_BYTES", &c.Timelapse.MinSizeBytes))
	collect(setInt("MAX_SIZE_BYTES", &c.Timelapse.MaxSizeBytes))
	collect(setInt("MAX_RECAPTURES", &c.Timelapse.MaxRecaptures))
	collect(setDurationUnit("TIMELAPSE_INTERVAL", &c.Timelapse.Interval, time.Minute))
	collect(setDuration("RECAPTURE_COOLDOWN", &c.Timelapse.RecaptureCooldown))
	c.Timelapse.Timezone = getEnvOrDefault("TIMEZONE", c.Timelapse.Timezone)

	collect(setDuration("REQUEST_TIMEOUT", &c.Camera.Timeout))
	collect(setDuration("PACING_DELAY", &c.Camera.PacingDelay))

	collect(setBool("SERVER_ENABLED", &c.Server.Enabled))
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	collect(setInt("PORT", &c.Server.Port))

	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvOrDefault("LOG_FORMAT", c.Log.Format)

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// カメラ設定の検証
	if strings.TrimSpace(c.Camera.Host) == "" {
		return fmt.Errorf("カメラのホストが設定されていません")
	}
	if c.Camera.Timeout <= 0 {
		return fmt.Errorf("無効なリクエストタイムアウト: %v", c.Camera.Timeout)
	}
	if c.Camera.PacingDelay < 0 {
		return fmt.Errorf("無効な設定間隔: %v", c.Camera.PacingDelay)
	}

	if err := c.Timelapse.Validate(); err != nil {
		return err
	}

	if err := c.Log.Validate(); err != nil {
		return err
	}

	// サーバー設定の検証
	if c.Server.Enabled && (c.Server.Port < 1 || c.Server.Port > 65535) {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// StartupLine は起動時に記録する設定の要約を返す
func (c *Config) StartupLine() string {
	return fmt.Sprintf("Timelapsing from IP:%s, PATH_PREFIX:%s, QUALITY_START:%d, SIZE:%d, INTERVAL:%s, QUALITY:%d-%d, BYTES:%d-%d",
		c.Camera.Host, c.Timelapse.PathPrefix, c.Timelapse.InitialQuality, c.Timelapse.FrameSize,
		c.Timelapse.Interval, c.Timelapse.BestQuality, c.Timelapse.WorstQuality,
		c.Timelapse.MinSizeBytes, c.Timelapse.MaxSizeBytes)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// setInt は環境変数が設定されていれば整数として読み込む
func setInt(key string, dst *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s: 整数ではありません: %q", key, value)
	}
	*dst = v
	return nil
}

// setDuration は環境変数が設定されていれば時間として読み込む
// 単位のない数値は秒とみなす
func setDuration(key string, dst *time.Duration) error {
	return setDurationUnit(key, dst, time.Second)
}

// setDurationUnit は単位のない数値を unit 単位として時間を読み込む
func setDurationUnit(key string, dst *time.Duration, unit time.Duration) error {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		*dst = time.Duration(n * float64(unit))
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: 時間として解釈できません: %q", key, value)
	}
	*dst = d
	return nil
}

// setBool は環境変数が設定されていれば真偽値として読み込む
func setBool(key string, dst *bool) error {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s: 真偽値ではありません: %q", key, value)
	}
	*dst = v
	return nil
}

package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// デフォルト値
const (
	DefaultTimeout     = 500 * time.Millisecond
	DefaultPacingDelay = 500 * time.Millisecond
)

// ClientConfig はHTTPクライアントの設定
type ClientConfig struct {
	Host        string        // カメラのホストまたはベースURL（例: 192.168.1.111）
	Timeout     time.Duration // 1リクエストあたりのタイムアウト
	PacingDelay time.Duration // 設定リクエスト間の待機時間
}

// HTTPClient はカメラのHTTP APIを呼び出すDevice実装
type HTTPClient struct {
	baseURL     string
	timeout     time.Duration
	pacingDelay time.Duration
	httpClient  *http.Client
}

// NewHTTPClient は新しいHTTPClientを作成する
// httpClient が nil の場合はタイムアウト付きのクライアントを内部で作成する
func NewHTTPClient(cfg ClientConfig, httpClient *http.Client) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &HTTPClient{
		baseURL:     normalizeBaseURL(cfg.Host),
		timeout:     timeout,
		pacingDelay: cfg.PacingDelay,
		httpClient:  httpClient,
	}
}

// ApplySettings は設定を順番にカメラへ適用する
func (c *HTTPClient) ApplySettings(ctx context.Context, settings Settings) error {
	for i, setting := range settings {
		// ファームウェア側の反映を待ってから次の設定を送る
		if i > 0 && c.pacingDelay > 0 {
			if err := sleepContext(ctx, c.pacingDelay); err != nil {
				return fmt.Errorf("%w: %s=%d: %w", ErrConfigApplyFailed, setting.Name, setting.Value, err)
			}
		}

		if err := c.applySetting(ctx, setting); err != nil {
			return err
		}
	}

	return nil
}

// applySetting は設定1件を送信する
func (c *HTTPClient) applySetting(ctx context.Context, setting Setting) error {
	endpoint := fmt.Sprintf("%s/control?var=%s&val=%d", c.baseURL, url.QueryEscape(setting.Name), setting.Value)

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("%w: %s=%d: %w", ErrConfigApplyFailed, setting.Name, setting.Value, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// 本文は不要だが接続を再利用するために読み捨てる
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s=%d: ステータス %d", ErrConfigApplyFailed, setting.Name, setting.Value, resp.StatusCode)
	}

	return nil
}

// Capture は1フレームを取得してJPEGバイト列として返す
func (c *HTTPClient) Capture(ctx context.Context) ([]byte, error) {
	resp, err := c.get(ctx, c.baseURL+"/capture")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: ステータス %d", ErrCaptureFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: 本文の読み取りに失敗: %w", ErrCaptureFailed, err)
	}

	return data, nil
}

// get はタイムアウト付きでGETリクエストを送信する
// 呼び出し元は本文を読み切る前にキャンセルされないよう、本文を閉じるまでコンテキストを保持する
func (c *HTTPClient) get(ctx context.Context, endpoint string) (*http.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose は本文を閉じたときにリクエストのコンテキストを解放する
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	defer b.cancel()
	return b.ReadCloser.Close()
}

// normalizeBaseURL はホスト指定をベースURLに変換する
func normalizeBaseURL(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return ""
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host
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

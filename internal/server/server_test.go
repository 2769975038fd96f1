package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"esptimelapse/internal/config"
	"esptimelapse/internal/timelapse"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubStatus は固定の状態を返す
type stubStatus struct {
	info timelapse.StatusInfo
}

func (s *stubStatus) Status() timelapse.StatusInfo {
	return s.info
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0 // ランダムポートを使用
	cfg.Camera.Host = "192.168.1.111"
	return cfg
}

func TestHandlers(t *testing.T) {
	status := &stubStatus{info: timelapse.StatusInfo{
		Quality:      27,
		BestQuality:  10,
		WorstQuality: 63,
		Band:         timelapse.SizeBand{Min: 40000, Max: 60000},
		Counters:     timelapse.Counters{Ticks: 3, Saved: 2},
	}}
	srv := New(testConfig(), status, nil)

	testCases := []struct {
		name           string
		endpoint       string
		expectedStatus int
	}{
		{"ルートエンドポイント", "/", http.StatusOK},
		{"ヘルスチェックエンドポイント", "/health", http.StatusOK},
		{"ステータスエンドポイント", "/api/status", http.StatusOK},
		{"保存画像なし", "/api/frames/latest", http.StatusNotFound},
		{"存在しないパス", "/api/unknown", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.endpoint, nil)
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tc.expectedStatus {
				t.Errorf("予期しないステータスコード: got %d, want %d", rec.Code, tc.expectedStatus)
			}
		})
	}
}

func TestGetStatus(t *testing.T) {
	status := &stubStatus{info: timelapse.StatusInfo{
		Quality:  27,
		Band:     timelapse.SizeBand{Min: 40000, Max: 60000},
		Counters: timelapse.Counters{Ticks: 3, Saved: 2, Oversize: 1},
		LastResult: &timelapse.Result{
			TickID:  "tick-1",
			Outcome: timelapse.OutcomeSaved,
			Class:   timelapse.SizeNormal,
			Size:    50000,
		},
	}}
	srv := New(testConfig(), status, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("予期しないステータスコード: %d", rec.Code)
	}

	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("JSONの解析に失敗しました: %v", err)
	}

	if resp.Status != "running" {
		t.Errorf("ステータスが一致しません: got %s", resp.Status)
	}
	if resp.Camera.Host != "192.168.1.111" || resp.Camera.Interval != "5m0s" {
		t.Errorf("カメラ情報が一致しません: %+v", resp.Camera)
	}
	if resp.Timelapse.Quality != 27 {
		t.Errorf("画質が一致しません: got %d", resp.Timelapse.Quality)
	}
	if resp.Timelapse.Counters.Oversize != 1 {
		t.Errorf("カウンターが一致しません: %+v", resp.Timelapse.Counters)
	}
	if resp.Timelapse.LastResult == nil || resp.Timelapse.LastResult.TickID != "tick-1" {
		t.Errorf("最後の結果が一致しません: %+v", resp.Timelapse.LastResult)
	}
}

func TestGetLatestFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2024-05-01T12.34.56_25.jpg")
	frame := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}
	if err := os.WriteFile(path, frame, 0644); err != nil {
		t.Fatalf("画像の作成に失敗しました: %v", err)
	}

	status := &stubStatus{info: timelapse.StatusInfo{LastSaved: path}}
	srv := New(testConfig(), status, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/frames/latest", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("予期しないステータスコード: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Typeが一致しません: got %s", ct)
	}
	if rec.Body.Len() != len(frame) {
		t.Errorf("画像サイズが一致しません: got %d, want %d", rec.Body.Len(), len(frame))
	}

	// ファイルが削除された場合は404
	if err := os.Remove(path); err != nil {
		t.Fatalf("画像の削除に失敗しました: %v", err)
	}
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/frames/latest", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("予期しないステータスコード: got %d, want 404", rec.Code)
	}
}

// TestServerStartAndShutdown はサーバーの起動とシャットダウンをテストする
func TestServerStartAndShutdown(t *testing.T) {
	srv := New(testConfig(), &stubStatus{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// サーバーを別ゴルーチンで起動
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("サーバーの起動に失敗しました: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("サーバーの起動がタイムアウトしました")
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/health", srv.Addr()))
	if err != nil {
		t.Fatalf("HTTPリクエストでエラーが発生しました: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("予期しないステータスコード: %d", resp.StatusCode)
	}

	// コンテキストをキャンセルしてサーバーを停止
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("サーバーのシャットダウンでエラーが発生しました: %v", err)
		}
	case <-time.After(6 * time.Second):
		t.Fatal("サーバーのシャットダウンがタイムアウトしました")
	}
}

func TestServerStartPortInUse(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("リッスンに失敗しました: %v", err)
	}
	defer func() {
		_ = listener.Close()
	}()

	cfg := testConfig()
	cfg.Server.Port = listener.Addr().(*net.TCPAddr).Port
	srv := New(cfg, &stubStatus{}, nil)

	if err := srv.Start(context.Background()); err == nil {
		t.Error("使用中のポートでエラーが期待されました")
	}
}

package server

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"esptimelapse/internal/config"
)

// Handler はHTTPエンドポイントを実装する
type Handler struct {
	config *config.Config
	status StatusProvider
}

// NewHandler は新しいHandlerを作成する
func NewHandler(cfg *config.Config, status StatusProvider) *Handler {
	return &Handler{
		config: cfg,
		status: status,
	}
}

// Register はルートを登録する
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.HealthCheck)

	api := r.Group("/api")
	api.GET("/status", h.GetStatus)
	api.GET("/frames/latest", h.GetLatestFrame)
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// GetStatus はシステム状態取得エンドポイントの実装
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Status: "running",
		Camera: CameraInfo{
			Host:      h.config.Camera.Host,
			Interval:  h.config.Timelapse.Interval.String(),
			FrameSize: h.config.Timelapse.FrameSize,
		},
		Timelapse: h.status.Status(),
		Timestamp: time.Now(),
	})
}

// GetLatestFrame は最後に保存した画像を返す
func (h *Handler) GetLatestFrame(c *gin.Context) {
	path := h.status.Status().LastSaved
	if path == "" {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:     "frame_not_found",
			Message:   "保存された画像がまだありません",
			Timestamp: time.Now(),
		})
		return
	}

	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:     "frame_not_found",
			Message:   "画像ファイルが見つかりません",
			Timestamp: time.Now(),
		})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Content-Type", "image/jpeg")
	c.File(path)
}

// Root はルートパスのハンドラ
func (h *Handler) Root(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(`<!DOCTYPE html>
<html lang="ja">
<head>
    <meta charset="UTF-8">
    <title>esptimelapse</title>
</head>
<body>
    <h1>esptimelapse</h1>
    <p>タイムラプス撮影を実行しています。</p>
    <p>最新の画像: <a href="/api/frames/latest">/api/frames/latest</a></p>
    <p>ステータス: <a href="/api/status">/api/status</a></p>
    <p>ヘルスチェック: <a href="/health">/health</a></p>
</body>
</html>`))
}

package server

import (
	"time"

	"esptimelapse/internal/timelapse"
)

// StatusProvider は撮影状態を提供するインターフェース
type StatusProvider interface {
	Status() timelapse.StatusInfo
}

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse はシステム状態のレスポンス
type StatusResponse struct {
	Status    string               `json:"status"`
	Camera    CameraInfo           `json:"camera"`
	Timelapse timelapse.StatusInfo `json:"timelapse"`
	Timestamp time.Time            `json:"timestamp"`
}

// CameraInfo はカメラ接続先の情報
type CameraInfo struct {
	Host      string `json:"host"`
	Interval  string `json:"interval"`
	FrameSize int    `json:"frame_size"`
}

// ErrorResponse はエラーレスポンス
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

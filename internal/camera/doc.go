// Package camera ネットワークカメラのHTTP制御APIとの通信を担う
//
// # 責務
// - カメラ設定（明るさ、反転、画質、解像度など）の順序付き適用
// - 1フレームのJPEG画像の取得
// - 呼び出しごとのタイムアウトと設定間のペーシング
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - ESP32-CAM互換の /control, /capture エンドポイントを持つカメラを操作したい
// - テストでカメラをhttptestサーバーに差し替えたい
//
// # 仕様
//   - GET /control?var={name}&val={value}: 2xxを成功とみなす
//   - GET /capture: 200の場合のみ本文をJPEGとして返す
//   - 設定は指定順に1件ずつ送信する（反転フラグを画質より先に送るなど順序が意味を持つ）
//   - 失敗した設定があればその時点で中断し ErrConfigApplyFailed を返す
//   - 画像本文は必ず最後まで読み切ってから返す（サイズ判定に全長が必要なため）
package camera

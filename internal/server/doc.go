// Package server は、タイムラプスの状態確認用HTTPサーバーを管理します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - ヘルスチェックと撮影状態のJSON配信
//   - 最後に保存した画像の配信
//
// 仕様:
//   - ルーティングはgin-gonic/ginを使用
//   - 読み取り専用（画質などの状態は変更しない）
//   - グレースフルシャットダウンに対応
package server

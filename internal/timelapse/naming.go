package timelapse

import (
	"fmt"
	"time"
)

// frameTimeLayout はファイル名の時刻部分
// Windowsでも扱えるようにコロンの代わりにピリオドを使う
const frameTimeLayout = "2006-01-02T15.04.05"

// FrameFilename は保存する画像のファイル名を生成する
// 同じ秒でも画質が異なれば別の名前になる
func FrameFilename(prefix string, t time.Time, quality int) string {
	return fmt.Sprintf("%s%s_%d.jpg", prefix, t.Format(frameTimeLayout), quality)
}

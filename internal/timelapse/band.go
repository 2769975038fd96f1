package timelapse

// SizeClass は画像サイズの分類
type SizeClass string

// SizeClass の定数定義
const (
	SizeNone      SizeClass = ""          // 画像を取得していない
	SizeEmpty     SizeClass = "empty"     // 0バイト
	SizeUndersize SizeClass = "undersize" // 下限以下
	SizeNormal    SizeClass = "normal"    // 範囲内
	SizeOversize  SizeClass = "oversize"  // 上限以上（破損とみなす）
)

// SizeBand は画像サイズの判定範囲
type SizeBand struct {
	Min int `json:"min"` // 下限 (バイト)
	Max int `json:"max"` // 上限 (バイト)
}

// Classify は画像サイズを分類する
// 上限の判定を最優先する
func (b SizeBand) Classify(size int) SizeClass {
	switch {
	case size >= b.Max:
		return SizeOversize
	case size == 0:
		return SizeEmpty
	case size <= b.Min:
		return SizeUndersize
	default:
		return SizeNormal
	}
}

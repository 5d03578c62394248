package theme

import "github.com/hitoshi/stagecast/internal/model"

// FontSizes は文字サイズの段階。小さい順。
var FontSizes = []string{
	"text-6xl",
	"text-7xl",
	"text-8xl",
	"text-9xl",
	"text-[10rem]",
	"text-[12rem]",
	"text-[14rem]",
}

// 未知のサイズから切り替えるときの開始位置
const defaultFontSizeIndex = 3

// NextFontSize は1段階大きい（up=false なら小さい）サイズを返す。端では止まる。
func NextFontSize(current string, up bool) string {
	idx := defaultFontSizeIndex
	for i, s := range FontSizes {
		if s == current {
			idx = i
			break
		}
	}
	if up {
		idx++
	} else {
		idx--
	}
	idx = max(0, min(idx, len(FontSizes)-1))
	return FontSizes[idx]
}

// StepFontSize は選択中アイテムのライブテーマの文字サイズを変更して適用する。
// 適用経路を通るためアンドゥできる。
func (e *Engine) StepFontSize(s *model.Snapshot, up bool) bool {
	item := s.ActiveItem()
	if item == nil {
		return false
	}
	t := item.Theme
	t.FontSize = NextFontSize(t.FontSize, up)
	return e.ApplyTheme(s, t)
}

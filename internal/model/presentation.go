package model

// SlideKind はスライドの種類を表す。
type SlideKind string

const (
	// SlideKindText は歌詞や聖書箇所などのテキストスライド。
	SlideKindText SlideKind = "text"
	// SlideKindImage は画像スライド。
	SlideKindImage SlideKind = "image"
	// SlideKindVideo は外部動画スライド。
	SlideKindVideo SlideKind = "video"
)

// Valid はスライド種別が既知の値かどうかを返す。
func (k SlideKind) Valid() bool {
	switch k {
	case SlideKindText, SlideKindImage, SlideKindVideo:
		return true
	}
	return false
}

// ItemKind はプレゼンテーションアイテムの種類を表す。
type ItemKind string

const (
	ItemKindSong      ItemKind = "song"
	ItemKindScripture ItemKind = "scripture"
	ItemKindCustom    ItemKind = "custom"
	// ItemKindDivider はセクション区切り。スライドを持たず、ライブにできない。
	ItemKindDivider ItemKind = "divider"
)

// Valid はアイテム種別が既知の値かどうかを返す。
func (k ItemKind) Valid() bool {
	switch k {
	case ItemKindSong, ItemKindScripture, ItemKindCustom, ItemKindDivider:
		return true
	}
	return false
}

// Slide は1枚分の表示単位。
type Slide struct {
	ID            string    `json:"id"`
	Kind          SlideKind `json:"kind"`
	Content       string    `json:"content"`
	MediaRef      string    `json:"mediaRef,omitempty"`
	Label         string    `json:"label,omitempty"`
	OperatorNotes string    `json:"operatorNotes,omitempty"` // オペレーターのみに見えるメモ
}

// PresentationItem はテーマを共有するスライドの並び。
// スライドとテーマはアイテムが排他的に所有する。
type PresentationItem struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Kind         ItemKind `json:"kind"`
	Slides       []Slide  `json:"slides"`
	Theme        Theme    `json:"theme"`
	OriginQuery  string   `json:"originQuery,omitempty"`
	DividerColor string   `json:"dividerColor,omitempty"`
	DividerIcon  string   `json:"dividerIcon,omitempty"`
}

// Clone はスライド配列を含めたディープコピーを返す。
func (it PresentationItem) Clone() PresentationItem {
	out := it
	if it.Slides != nil {
		out.Slides = make([]Slide, len(it.Slides))
		copy(out.Slides, it.Slides)
	}
	return out
}

// IsDivider はアイテムが区切りかどうかを返す。
func (it PresentationItem) IsDivider() bool {
	return it.Kind == ItemKindDivider
}

// SlideIndex は指定IDのスライド位置を返す。見つからない場合は-1を返す。
func (it PresentationItem) SlideIndex(slideID string) int {
	for i, s := range it.Slides {
		if s.ID == slideID {
			return i
		}
	}
	return -1
}

package model

// NoSelection は「何も選択されていない」ことを表すスライド位置。
const NoSelection = -1

// Snapshot はコンソールからディスプレイへ複製される状態全体。
// ActiveItemID/ActiveSlideIndex はオペレーターのカーソル、
// LiveItemID/LiveSlideIndex は観客向けディスプレイが描画している位置を指す。
// アイテムIDが空文字列の場合は未選択を表す。
type Snapshot struct {
	Playlist         []PresentationItem `json:"playlist"`
	ActiveItemID     string             `json:"activeItemId"`
	ActiveSlideIndex int                `json:"activeSlideIndex"`
	LiveItemID       string             `json:"liveItemId"`
	LiveSlideIndex   int                `json:"liveSlideIndex"`
	StagedTheme      Theme              `json:"stagedTheme"`
	Blackout         bool               `json:"blackout"`
	TextHidden       bool               `json:"textHidden"`
	LogoMode         bool               `json:"logoMode"`
}

// NewSnapshot は空のプレイリストを持つ初期状態を返す。
func NewSnapshot() Snapshot {
	return Snapshot{
		Playlist:         []PresentationItem{},
		ActiveSlideIndex: NoSelection,
		LiveSlideIndex:   NoSelection,
		StagedTheme:      DefaultTheme(),
	}
}

// Clone はプレイリストを含めたディープコピーを返す。
// バスへ渡すスナップショットは必ずコピーにする。
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Playlist = make([]PresentationItem, len(s.Playlist))
	for i, it := range s.Playlist {
		out.Playlist[i] = it.Clone()
	}
	return out
}

// ItemIndex は指定IDのアイテム位置を返す。見つからない場合は-1を返す。
func (s *Snapshot) ItemIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.Playlist {
		if s.Playlist[i].ID == id {
			return i
		}
	}
	return -1
}

// Item は指定IDのアイテムへのポインタを返す。見つからない場合はnilを返す。
func (s *Snapshot) Item(id string) *PresentationItem {
	idx := s.ItemIndex(id)
	if idx < 0 {
		return nil
	}
	return &s.Playlist[idx]
}

// ActiveItem は選択中のアイテムを返す。
func (s *Snapshot) ActiveItem() *PresentationItem {
	return s.Item(s.ActiveItemID)
}

// LiveItem はライブ中のアイテムを返す。
func (s *Snapshot) LiveItem() *PresentationItem {
	return s.Item(s.LiveItemID)
}

// ActiveIsLive は選択中のアイテムがライブ中のアイテムと同一かどうかを返す。
func (s *Snapshot) ActiveIsLive() bool {
	return s.ActiveItemID != "" && s.ActiveItemID == s.LiveItemID
}

// ClampIndex はスライド位置をアイテムの範囲に収める。
// スライドがない場合はNoSelectionを返す。
func ClampIndex(index, length int) int {
	if length <= 0 {
		return NoSelection
	}
	if index < 0 {
		return 0
	}
	if index >= length {
		return length - 1
	}
	return index
}

package console

import (
	"context"
	"fmt"

	"github.com/hitoshi/stagecast/internal/model"
)

// 操作名
const (
	ActionAddItem       = "add_item"
	ActionDeleteItem    = "delete_item"
	ActionRenameItem    = "rename_item"
	ActionAddSlide      = "add_slide"
	ActionUpdateSlide   = "update_slide"
	ActionDeleteSlide   = "delete_slide"
	ActionDuplicate     = "duplicate_slide"
	ActionReplaceSlides = "replace_slides"
	ActionImport        = "import"
	ActionSaveTheme     = "save_custom_theme"
)

// 取り込みモード
const (
	ImportReplace = "replace"
	ImportMerge   = "merge"
)

const (
	defaultCustomTitle = "カスタム"
	duplicateSuffix    = " (コピー)"
)

// SlideUpdate はスライドの部分更新。nilのフィールドは変更しない。
type SlideUpdate struct {
	Content       *string
	Label         *string
	OperatorNotes *string
}

// Playlist はプレイリストとカスタムテーマのコピーを返す。
func (s *Session) Playlist() ([]model.PresentationItem, []model.Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePlaylist(s.snap.Playlist), cloneThemes(s.customThemes)
}

// Item は指定IDのアイテムのコピーを返す。
func (s *Session) Item(id string) (model.PresentationItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.snap.Item(id)
	if it == nil {
		return model.PresentationItem{}, false
	}
	return it.Clone(), true
}

// AddItem はアイテムをプレイリスト末尾に追加する。
// IDが空または使用済みのアイテムとスライドには新しいIDを割り当てる。テーマは値としてコピーされる。
func (s *Session) AddItem(ctx context.Context, item model.PresentationItem) (model.PresentationItem, error) {
	if !item.Kind.Valid() {
		return model.PresentationItem{}, model.NewInvalidRequestError(fmt.Sprintf("不明なアイテム種別です: %s", item.Kind))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := s.prepareItemLocked(item)
	s.snap.Playlist = append(s.snap.Playlist, added)
	s.commitLocked(ctx, ActionAddItem, added.Title, true)
	return added.Clone(), nil
}

// DeleteItem はアイテムを削除する。選択中ならば選択を解除し、ライブ中ならばライブを止める。
func (s *Session) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.snap.ItemIndex(id)
	if idx < 0 {
		return model.NewItemNotFoundError(id)
	}
	title := s.snap.Playlist[idx].Title
	s.removeItemLocked(idx)
	s.commitLocked(ctx, ActionDeleteItem, title, true)
	return nil
}

// UpdateItemTitle はアイテムのタイトルを変更する。
func (s *Session) UpdateItemTitle(ctx context.Context, id, title string) error {
	if title == "" {
		return model.NewInvalidRequestError("タイトルは必須です")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.snap.Item(id)
	if item == nil {
		return model.NewItemNotFoundError(id)
	}
	item.Title = title
	s.commitLocked(ctx, ActionRenameItem, title, true)
	return nil
}

// AddSlide はアイテムの末尾にスライドを追加する。
// itemIDが空の場合は選択中のアイテムに追加し、選択中のアイテムもなければ
// 新しいカスタムアイテムを作って選択する。
func (s *Session) AddSlide(ctx context.Context, itemID string, slide model.Slide) (model.Slide, error) {
	if slide.Kind == "" {
		slide.Kind = model.SlideKindText
	}
	if !slide.Kind.Valid() {
		return model.Slide{}, model.NewInvalidRequestError(fmt.Sprintf("不明なスライド種別です: %s", slide.Kind))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if slide.ID == "" {
		slide.ID = s.newID()
	}

	if itemID == "" {
		itemID = s.snap.ActiveItemID
	}

	if itemID == "" {
		item := s.prepareItemLocked(model.PresentationItem{
			Title:  defaultCustomTitle,
			Kind:   model.ItemKindCustom,
			Slides: []model.Slide{slide},
			Theme:  s.snap.StagedTheme,
		})
		s.snap.Playlist = append(s.snap.Playlist, item)
		s.snap.ActiveItemID = item.ID
		s.snap.ActiveSlideIndex = 0
		s.commitLocked(ctx, ActionAddSlide, item.Title, true)
		return slide, nil
	}

	item := s.snap.Item(itemID)
	if item == nil {
		return model.Slide{}, model.NewItemNotFoundError(itemID)
	}
	if item.IsDivider() {
		return model.Slide{}, model.NewInvalidRequestError("区切りにはスライドを追加できません")
	}
	item.Slides = append(item.Slides, slide)
	s.commitLocked(ctx, ActionAddSlide, item.Title, true)
	return slide, nil
}

// UpdateSlide はスライドの本文、ラベル、メモを更新する。
func (s *Session) UpdateSlide(ctx context.Context, itemID, slideID string, upd SlideUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, idx, err := s.findSlideLocked(itemID, slideID)
	if err != nil {
		return err
	}

	sl := &item.Slides[idx]
	if upd.Content != nil {
		sl.Content = *upd.Content
	}
	if upd.Label != nil {
		sl.Label = *upd.Label
	}
	if upd.OperatorNotes != nil {
		sl.OperatorNotes = *upd.OperatorNotes
	}
	s.commitLocked(ctx, ActionUpdateSlide, item.Title, true)
	return nil
}

// DeleteSlide はスライドを削除する。スライドがなくなったアイテムは削除する。
func (s *Session) DeleteSlide(ctx context.Context, itemID, slideID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, idx, err := s.findSlideLocked(itemID, slideID)
	if err != nil {
		return err
	}
	title := item.Title

	if len(item.Slides) == 1 {
		s.removeItemLocked(s.snap.ItemIndex(itemID))
		s.commitLocked(ctx, ActionDeleteSlide, title, true)
		return nil
	}

	item.Slides = append(item.Slides[:idx], item.Slides[idx+1:]...)
	n := len(item.Slides)
	if s.snap.ActiveItemID == itemID {
		s.snap.ActiveSlideIndex = shiftAfterRemoval(s.snap.ActiveSlideIndex, idx, n)
	}
	if s.snap.LiveItemID == itemID {
		s.snap.LiveSlideIndex = shiftAfterRemoval(s.snap.LiveSlideIndex, idx, n)
	}
	s.commitLocked(ctx, ActionDeleteSlide, title, true)
	return nil
}

// DuplicateSlide はスライドを複製して直後に挿入する。
func (s *Session) DuplicateSlide(ctx context.Context, itemID, slideID string) (model.Slide, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, idx, err := s.findSlideLocked(itemID, slideID)
	if err != nil {
		return model.Slide{}, err
	}

	dup := item.Slides[idx]
	dup.ID = s.newID()
	if dup.Label != "" {
		dup.Label += duplicateSuffix
	}

	slides := make([]model.Slide, 0, len(item.Slides)+1)
	slides = append(slides, item.Slides[:idx+1]...)
	slides = append(slides, dup)
	slides = append(slides, item.Slides[idx+1:]...)
	item.Slides = slides

	if s.snap.ActiveItemID == itemID && s.snap.ActiveSlideIndex > idx {
		s.snap.ActiveSlideIndex++
	}
	if s.snap.LiveItemID == itemID && s.snap.LiveSlideIndex > idx {
		s.snap.LiveSlideIndex++
	}
	s.commitLocked(ctx, ActionDuplicate, item.Title, true)
	return dup, nil
}

// ReplaceSlides はアイテムのスライドを丸ごと置き換える。再取得で使う。
func (s *Session) ReplaceSlides(ctx context.Context, itemID string, slides []model.Slide) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.snap.Item(itemID)
	if item == nil {
		return model.NewItemNotFoundError(itemID)
	}

	next := make([]model.Slide, len(slides))
	copy(next, slides)
	for i := range next {
		if next[i].ID == "" {
			next[i].ID = s.newID()
		}
	}
	item.Slides = next

	if s.snap.ActiveItemID == itemID {
		s.snap.ActiveSlideIndex = model.ClampIndex(s.snap.ActiveSlideIndex, len(next))
	}
	if s.snap.LiveItemID == itemID {
		s.snap.LiveSlideIndex = model.ClampIndex(s.snap.LiveSlideIndex, len(next))
	}
	s.commitLocked(ctx, ActionReplaceSlides, item.Title, true)
	return nil
}

// Import はアイテムとカスタムテーマを取り込む。
// replaceは全体を置き換え、mergeはIDが未登録のアイテムと名前が未登録のテーマだけを追加する。
func (s *Session) Import(ctx context.Context, items []model.PresentationItem, themes []model.Theme, mode string) error {
	if mode != ImportReplace && mode != ImportMerge {
		return model.NewInvalidImportModeError(mode)
	}
	for _, it := range items {
		if !it.Kind.Valid() {
			return model.NewInvalidRequestError(fmt.Sprintf("不明なアイテム種別です: %s", it.Kind))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if mode == ImportReplace {
		for _, it := range s.snap.Playlist {
			s.themes.Forget(it.ID)
		}
		s.snap.Playlist = make([]model.PresentationItem, 0, len(items))
		for _, it := range items {
			s.snap.Playlist = append(s.snap.Playlist, s.prepareItemLocked(it))
		}
		s.customThemes = cloneThemes(themes)
		s.snap.ActiveItemID, s.snap.ActiveSlideIndex = "", model.NoSelection
		s.snap.LiveItemID, s.snap.LiveSlideIndex = "", model.NoSelection
	} else {
		for _, it := range items {
			if it.ID != "" && s.snap.ItemIndex(it.ID) >= 0 {
				continue
			}
			s.snap.Playlist = append(s.snap.Playlist, s.prepareItemLocked(it))
		}
		for _, t := range themes {
			if s.customThemeIndexLocked(t.Name) >= 0 {
				continue
			}
			s.customThemes = append(s.customThemes, t)
		}
	}

	s.commitLocked(ctx, ActionImport, fmt.Sprintf("%s: %d items", mode, len(items)), true)
	return nil
}

// SaveCustomTheme はカスタムテーマを保存する。同名のテーマは上書きする。
func (s *Session) SaveCustomTheme(ctx context.Context, t model.Theme) error {
	if t.Name == "" {
		return model.NewInvalidRequestError("テーマ名は必須です")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = s.newID()
	}
	if idx := s.customThemeIndexLocked(t.Name); idx >= 0 {
		s.customThemes[idx] = t
	} else {
		s.customThemes = append(s.customThemes, t)
	}
	s.commitLocked(ctx, ActionSaveTheme, t.Name, true)
	return nil
}

// prepareItemLocked はIDを割り当て、スライドを複製したアイテムを返す。
// プレイリストで使用済みのアイテムIDと、アイテム内で重複したスライドIDは振り直す。
func (s *Session) prepareItemLocked(item model.PresentationItem) model.PresentationItem {
	out := item.Clone()
	if out.ID == "" || s.snap.ItemIndex(out.ID) >= 0 {
		out.ID = s.newID()
	}
	if out.Slides == nil {
		out.Slides = []model.Slide{}
	}
	seen := make(map[string]bool, len(out.Slides))
	for i := range out.Slides {
		if id := out.Slides[i].ID; id == "" || seen[id] {
			out.Slides[i].ID = s.newID()
		}
		seen[out.Slides[i].ID] = true
	}
	if out.Theme == (model.Theme{}) {
		out.Theme = model.DefaultTheme()
	}
	return out
}

func (s *Session) removeItemLocked(idx int) {
	id := s.snap.Playlist[idx].ID
	s.snap.Playlist = append(s.snap.Playlist[:idx], s.snap.Playlist[idx+1:]...)
	s.themes.Forget(id)

	if s.snap.ActiveItemID == id {
		s.snap.ActiveItemID = ""
		s.snap.ActiveSlideIndex = model.NoSelection
	}
	if s.snap.LiveItemID == id {
		s.snap.LiveItemID = ""
		s.snap.LiveSlideIndex = model.NoSelection
	}
}

func (s *Session) findSlideLocked(itemID, slideID string) (*model.PresentationItem, int, error) {
	item := s.snap.Item(itemID)
	if item == nil {
		return nil, -1, model.NewItemNotFoundError(itemID)
	}
	idx := item.SlideIndex(slideID)
	if idx < 0 {
		return nil, -1, model.NewSlideNotFoundError(slideID)
	}
	return item, idx, nil
}

func (s *Session) customThemeIndexLocked(name string) int {
	for i, t := range s.customThemes {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// shiftAfterRemoval は位置removedのスライド削除後の選択位置を返す。
func shiftAfterRemoval(current, removed, length int) int {
	if current < 0 {
		return current
	}
	if current > removed {
		current--
	}
	return model.ClampIndex(current, length)
}

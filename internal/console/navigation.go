package console

import (
	"context"
	"fmt"

	"github.com/hitoshi/stagecast/internal/model"
)

// 操作名
const (
	ActionSelect   = "select"
	ActionStep     = "step_active"
	ActionStepLive = "step_live"
	ActionGoLive   = "go_live"
	ActionStopLive = "stop_live"
	ActionBlackout = "blackout"
	ActionTextHide = "text_hidden"
	ActionLogo     = "logo"
)

// SelectItem はアイテムを選択し、先頭のスライドにカーソルを置く。
// ステージテーマは選択したアイテムのライブテーマに戻る。
func (s *Session) SelectItem(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.snap.Item(itemID)
	if item == nil {
		return model.NewItemNotFoundError(itemID)
	}

	s.snap.ActiveItemID = itemID
	s.snap.ActiveSlideIndex = model.ClampIndex(0, len(item.Slides))
	s.themes.ResetStaged(&s.snap)
	s.commitLocked(ctx, ActionSelect, item.Title, false)
	return nil
}

// SelectSlide はスライドをクリックしたときの操作。
// 選択中のアイテムを切り替え、そのアイテムがライブ中ならライブ位置も合わせる。
// ブラックアウトとロゴ表示は解除する。
func (s *Session) SelectSlide(ctx context.Context, itemID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.snap.Item(itemID)
	if item == nil {
		return model.NewItemNotFoundError(itemID)
	}

	idx := model.ClampIndex(index, len(item.Slides))
	switched := s.snap.ActiveItemID != itemID

	s.snap.ActiveItemID = itemID
	s.snap.ActiveSlideIndex = idx
	if switched {
		s.themes.ResetStaged(&s.snap)
	}
	if s.snap.LiveItemID == itemID {
		s.snap.LiveSlideIndex = idx
	}
	s.snap.Blackout = false
	s.snap.LogoMode = false

	s.commitLocked(ctx, ActionSelect, fmt.Sprintf("%s #%d", item.Title, idx+1), false)
	return nil
}

// StepActive は選択中のカーソルをdeltaだけ動かす。
// 選択中のアイテムがライブ中のアイテムと同じ場合はライブ位置も一緒に動く。
func (s *Session) StepActive(ctx context.Context, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.snap.ActiveItem()
	if item == nil {
		return model.NewNoActiveItemError()
	}

	next := model.ClampIndex(s.snap.ActiveSlideIndex+delta, len(item.Slides))
	if next == s.snap.ActiveSlideIndex {
		return nil
	}
	s.snap.ActiveSlideIndex = next
	if s.snap.ActiveIsLive() {
		s.snap.LiveSlideIndex = next
	}
	s.commitLocked(ctx, ActionStep, fmt.Sprintf("%s #%d", item.Title, next+1), false)
	return nil
}

// StepLive はライブ位置をdeltaだけ動かす。
// ライブ中のアイテムが選択中のアイテムと同じ場合は選択中のカーソルも一緒に動く。
// ライブ中のアイテムがなければ何もしない。
func (s *Session) StepLive(ctx context.Context, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.snap.LiveItem()
	if item == nil {
		return nil
	}

	next := model.ClampIndex(s.snap.LiveSlideIndex+delta, len(item.Slides))
	if next == s.snap.LiveSlideIndex {
		return nil
	}
	s.snap.LiveSlideIndex = next
	if s.snap.ActiveIsLive() {
		s.snap.ActiveSlideIndex = next
	}
	s.commitLocked(ctx, ActionStepLive, fmt.Sprintf("%s #%d", item.Title, next+1), false)
	return nil
}

// GoLive はアイテムをライブにする。
//
//   - itemIDが空の場合は選択中のアイテムと位置をそのままライブにする。
//   - indexを指定した場合はライブ位置と選択位置の両方をその位置にする。
//   - indexを省略した場合は位置0。ただし既にライブ中のアイテムなら選択位置を引き継ぐ。
//
// 区切りはライブにできない。ライブにしたアイテムは選択中にもなり、ブラックアウトは解除される。
func (s *Session) GoLive(ctx context.Context, itemID string, index *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target int
	switch {
	case itemID == "":
		if s.snap.ActiveItem() == nil {
			return model.NewNoActiveItemError()
		}
		itemID = s.snap.ActiveItemID
		target = s.snap.ActiveSlideIndex
		if index != nil {
			target = *index
		}
	case index != nil:
		target = *index
	case itemID == s.snap.LiveItemID && itemID == s.snap.ActiveItemID:
		target = s.snap.ActiveSlideIndex
	case itemID == s.snap.LiveItemID:
		target = s.snap.LiveSlideIndex
	default:
		target = 0
	}

	item := s.snap.Item(itemID)
	if item == nil {
		return model.NewItemNotFoundError(itemID)
	}
	if item.IsDivider() {
		return model.NewDividerNotLiveError()
	}

	idx := model.ClampIndex(target, len(item.Slides))
	switched := s.snap.ActiveItemID != itemID

	s.snap.LiveItemID = itemID
	s.snap.LiveSlideIndex = idx
	s.snap.ActiveItemID = itemID
	s.snap.ActiveSlideIndex = idx
	s.snap.Blackout = false
	if switched {
		s.themes.ResetStaged(&s.snap)
	}

	s.commitLocked(ctx, ActionGoLive, fmt.Sprintf("%s #%d", item.Title, idx+1), false)
	return nil
}

// StopLive はライブ出力を止める。
func (s *Session) StopLive(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.LiveItemID == "" {
		return nil
	}
	s.snap.LiveItemID = ""
	s.snap.LiveSlideIndex = model.NoSelection
	s.commitLocked(ctx, ActionStopLive, "", false)
	return nil
}

// ToggleBlackout は画面全体の暗転を切り替え、切り替え後の値を返す。
func (s *Session) ToggleBlackout(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Blackout = !s.snap.Blackout
	s.commitLocked(ctx, ActionBlackout, onOff(s.snap.Blackout), false)
	return s.snap.Blackout
}

// ToggleTextHidden は文字だけを隠す表示を切り替え、切り替え後の値を返す。
func (s *Session) ToggleTextHidden(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.TextHidden = !s.snap.TextHidden
	s.commitLocked(ctx, ActionTextHide, onOff(s.snap.TextHidden), false)
	return s.snap.TextHidden
}

// ToggleLogo はロゴ表示を切り替え、切り替え後の値を返す。
func (s *Session) ToggleLogo(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.LogoMode = !s.snap.LogoMode
	s.commitLocked(ctx, ActionLogo, onOff(s.snap.LogoMode), false)
	return s.snap.LogoMode
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

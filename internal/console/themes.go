package console

import (
	"context"

	"github.com/hitoshi/stagecast/internal/model"
	"github.com/hitoshi/stagecast/internal/surface"
)

// 操作名
const (
	ActionApplyTheme   = "apply_theme"
	ActionDiscardTheme = "discard_theme"
	ActionUndoTheme    = "undo_theme"
	ActionRestoreTheme = "restore_theme"
	ActionRestoreEntry = "restore_theme_entry"
	ActionFontSize     = "font_size"
)

// StageTheme はステージテーマを置き換える。ライブテーマと操作履歴には触れない。
func (s *Session) StageTheme(t model.Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.themes.Stage(&s.snap, t)
	s.publishLocked(surface.ReasonMutation)
}

// StagePreset は名前で指定したプリセットをステージする。
func (s *Session) StagePreset(name string) error {
	if s.presets == nil {
		return model.NewPresetNotFoundError(name)
	}
	t, ok := s.presets.Preset(name)
	if !ok {
		return model.NewPresetNotFoundError(name)
	}
	s.StageTheme(t)
	return nil
}

// Presets はテーマプリセットを返す。
func (s *Session) Presets() []model.Theme {
	if s.presets == nil {
		return []model.Theme{}
	}
	return s.presets.Presets()
}

// ApplyTheme はステージテーマを選択中アイテムのライブテーマにする。
func (s *Session) ApplyTheme(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.themes.Apply(&s.snap) {
		return model.NewNoActiveItemError()
	}
	s.commitLocked(ctx, ActionApplyTheme, s.snap.StagedTheme.Name, true)
	return nil
}

// DiscardTheme はステージテーマを選択中アイテムのライブテーマに戻す。
func (s *Session) DiscardTheme(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.themes.Discard(&s.snap) {
		return model.NewNoActiveItemError()
	}
	s.commitLocked(ctx, ActionDiscardTheme, "", false)
	return nil
}

// UndoTheme は直前のテーマ適用を取り消す。履歴がなければfalseを返す。
func (s *Session) UndoTheme(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.ActiveItem() == nil {
		return false, model.NewNoActiveItemError()
	}
	if !s.themes.Undo(&s.snap) {
		return false, nil
	}
	s.commitLocked(ctx, ActionUndoTheme, s.snap.StagedTheme.Name, true)
	return true, nil
}

// RestoreOriginalTheme は選択中アイテムを編集前のテーマに戻す。
// 編集前のテーマが記録されていなければfalseを返す。
func (s *Session) RestoreOriginalTheme(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.ActiveItem() == nil {
		return false, model.NewNoActiveItemError()
	}
	if !s.themes.RestoreOriginal(&s.snap) {
		return false, nil
	}
	s.commitLocked(ctx, ActionRestoreTheme, s.snap.StagedTheme.Name, true)
	return true, nil
}

// RestoreThemeEntry は選択中アイテムの適用履歴のindex番目を適用する。
// 範囲外のindexではfalseを返す。
func (s *Session) RestoreThemeEntry(ctx context.Context, index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.ActiveItem() == nil {
		return false, model.NewNoActiveItemError()
	}
	if !s.themes.RestoreEntry(&s.snap, index) {
		return false, nil
	}
	s.commitLocked(ctx, ActionRestoreEntry, s.snap.StagedTheme.Name, true)
	return true, nil
}

// StepFontSize は選択中アイテムの文字サイズを1段階変更する。
func (s *Session) StepFontSize(ctx context.Context, up bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.themes.StepFontSize(&s.snap, up) {
		return model.NewNoActiveItemError()
	}
	s.commitLocked(ctx, ActionFontSize, s.snap.StagedTheme.FontSize, true)
	return nil
}

// ThemeHistory は選択中アイテムのテーマ適用履歴を新しい順で返す。
func (s *Session) ThemeHistory() []model.ThemeHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.ActiveItemID == "" {
		return []model.ThemeHistoryEntry{}
	}
	return s.themes.History(s.snap.ActiveItemID)
}

// HasOriginalTheme は選択中アイテムの編集前テーマが記録済みかどうかを返す。
func (s *Session) HasOriginalTheme() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.ActiveItemID != "" && s.themes.HasOriginal(s.snap.ActiveItemID)
}
